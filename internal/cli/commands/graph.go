package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Show the entity dependency graph as execution levels",
		Long: `Show the resolved processing order as execution levels. Entities in the
same level have no dependencies on each other; each level only depends on
earlier levels.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGraph(cmd)
		},
	}
}

func runGraph(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	g := cmdCtx.Project.Graph()
	levels, err := g.ExecutionLevels()
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	r.Header(fmt.Sprintf("Execution plan (%d entities, %d levels)", g.NodeCount(), len(levels)))
	for i, level := range levels {
		r.Printf("  %d. %s\n", i+1, strings.Join(level, ", "))
	}
	return nil
}
