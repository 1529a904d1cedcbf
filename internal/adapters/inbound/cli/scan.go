package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/buildtool"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/tui"
	"github.com/lazymigrate/lazymigrate/internal/domain"
)

func newScanCmd() *cobra.Command {
	var (
		jsonOutput bool
		all        bool
		exclude    []string
	)

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "List the project files a migration would process",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := projectPath(args)
			if err != nil {
				return err
			}

			svc := newMigrateService(newLogger(cmd), buildtool.DefaultCommand)
			files, err := svc.Scan(absPath, domain.RunOptions{ExcludePaths: exclude})
			if err != nil {
				return &ExitError{Code: domain.ExitFatal, Err: err}
			}

			if jsonOutput {
				return renderJSON(cmd, files)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderScan(files, all))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the file list as JSON")
	cmd.Flags().BoolVar(&all, "all", false, "Also list ignored files")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Directories to skip")

	return cmd
}
