package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tablelink-labs/tablelink/internal/dispatch"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Materialize every entity and write the output files",
		Long: `Validate the project, resolve the dependency order, materialize every
entity through the processing pipeline and write one CSV file per entity
into the output directory.

Error-severity validation issues block the run. Any materialization
failure aborts the run; entities materialized before the failure are kept
in memory for the error report but nothing is written.`,
		Example: `  # Run the default project file into ./output
  tablelink run

  # Run a specific project into a specific directory
  tablelink run -p customers.yaml --out build/tables`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd)
		},
	}
}

func runRun(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine()
	result, err := eng.Run(cmd.Context(), cmdCtx.Project, nil)
	if err != nil {
		return err
	}

	writer := dispatch.NewCSVWriter(cmdCtx.Config.OutDir, cmdCtx.Logger)
	if err := writer.Write(cmd.Context(), result.Store); err != nil {
		return err
	}

	r := cmdCtx.Renderer
	rows := make([][]string, 0, len(result.Entities))
	for _, er := range result.Entities {
		rows = append(rows, []string{
			er.Entity,
			strconv.Itoa(er.Rows),
			strconv.Itoa(er.Columns),
			er.Elapsed.Round(time.Millisecond).String(),
		})
	}
	r.Table([]string{"Entity", "Rows", "Columns", "Elapsed"}, rows)
	r.Success(fmt.Sprintf("Run %s completed in %s, %d file(s) written to %s",
		result.ID, result.Elapsed.Round(time.Millisecond), result.Store.Len(), cmdCtx.Config.OutDir))
	return nil
}
