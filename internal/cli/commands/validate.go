package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablelink-labs/tablelink/internal/validate"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the project description",
		Long: `Validate the project description against the structural rules, and
against the data-aware rules when --data is set (those sample live sources).

Every issue is reported; validation never stops at the first finding. The
exit status is non-zero when any error-severity issue is found.`,
		Example: `  # Validate the default project file
  tablelink validate

  # Validate a specific project with data-aware rules
  tablelink validate -p customers.yaml --data`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd)
		},
	}
}

func runValidate(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	runner := validate.NewRunner(cmdCtx.Rules())
	issues := runner.Validate(cmd.Context(), cmdCtx.Project)

	r := cmdCtx.Renderer
	errs, warns := 0, 0
	for _, is := range issues {
		r.Issue(is.Severity.String(), is.Code, is.Entity, is.Message)
		if is.Severity == validate.SeverityError {
			errs++
		} else {
			warns++
		}
	}

	if len(issues) == 0 {
		r.Success("No issues found")
		return nil
	}
	r.Println()
	if validate.Blocking(issues) {
		return fmt.Errorf("%d error(s), %d warning(s)", errs, warns)
	}
	r.Printf("%d warning(s), no errors\n", warns)
	return nil
}
