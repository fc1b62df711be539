package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List entities with their kind, public id and dependencies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}
}

func runList(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	p := cmdCtx.Project
	r := cmdCtx.Renderer

	title := fmt.Sprintf("Entities (%d total)", p.Entities.Len())
	if p.Metadata.Name != "" {
		title = fmt.Sprintf("%s - %s", p.Metadata.Name, title)
	}
	r.Header(title)

	rows := make([][]string, 0, p.Entities.Len())
	for _, name := range p.Entities.Order {
		ent, _ := p.Entities.Get(name)
		deps := p.Dependencies(name)
		marker := ""
		if name == p.Metadata.DefaultEntity {
			marker = "*"
		}
		rows = append(rows, []string{
			name + marker,
			string(ent.Kind),
			ent.PublicID,
			strings.Join(deps, ", "),
		})
	}
	r.Table([]string{"Entity", "Kind", "Public ID", "Depends on"}, rows)
	if p.Metadata.DefaultEntity != "" {
		r.Dim("* default entity")
	}
	return nil
}
