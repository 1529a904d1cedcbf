package cli

import "github.com/spf13/cobra"

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lazymigrate",
		Short:         "Rule-driven Mule 4 project migrations",
		Long:          "lazymigrate upgrades a Mule 4 project's pom.xml, mule-artifact.json and sources according to a declarative ruleset, with dry-run previews, backups and an auditable change report.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().CountP("verbose", "v", "Increase log verbosity (-v info, -vv debug)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newMCPCmd())
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}
