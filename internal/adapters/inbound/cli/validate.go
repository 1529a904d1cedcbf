package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/ruleset"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/tui"
	"github.com/lazymigrate/lazymigrate/internal/domain"
)

func newValidateCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate <ruleset>",
		Short: "Check a migration ruleset without touching any project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := ruleset.New().Load(args[0])
			if err != nil {
				return &ExitError{Code: domain.ExitFatal, Err: fmt.Errorf("invalid ruleset %s: %w", args[0], err)}
			}

			if jsonOutput {
				return renderJSON(cmd, rs)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderRuleSet(args[0], rs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the normalized ruleset as JSON")

	return cmd
}
