package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/buildtool"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/config"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/gitinfo"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/history"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/mutator"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/report"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/ruleset"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/scanner"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/tui"
	"github.com/lazymigrate/lazymigrate/internal/application"
	"github.com/lazymigrate/lazymigrate/internal/domain"
)

func newMigrateService(logger *slog.Logger, mvn string) *application.MigrateService {
	return application.NewMigrateService(
		scanner.New(),
		config.New(),
		mutator.Factory(logger),
		buildtool.New(mvn, logger),
		gitinfo.New(),
		logger,
	)
}

func newMigrateCmd() *cobra.Command {
	var (
		rulesPath  string
		opts       domain.RunOptions
		jsonOutput bool
		reportPath string
		mvn        string
		noHistory  bool
	)

	cmd := &cobra.Command{
		Use:   "migrate [path]",
		Short: "Apply a migration ruleset to a Mule project",
		Long: `Scan the project, apply the ruleset to pom.xml, mule-artifact.json and source
files, and print the change report. Use --dry-run to preview without writing.

Exit status is 0 when every file succeeded, 1 when at least one file or build
step failed, and 2 when the run was aborted (invalid ruleset or project root).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := projectPath(args)
			if err != nil {
				return err
			}

			rs, err := ruleset.New().Load(rulesPath)
			if err != nil {
				return &ExitError{Code: domain.ExitFatal, Err: fmt.Errorf("loading ruleset: %w", err)}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := newLogger(cmd)
			sum, runErr := newMigrateService(logger, mvn).Run(ctx, rs, absPath, opts)

			if jsonOutput {
				if err := renderJSON(cmd, sum); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderSummary(sum))
			}

			if reportPath != "" {
				if err := report.New().Write(reportPath, *sum); err != nil {
					logger.Warn("writing report", "path", reportPath, "error", err)
				}
			}

			if !noHistory {
				if _, err := application.RecordRun(history.New(), absPath, rs, *sum, runErr, time.Now()); err != nil {
					logger.Warn("saving run history", "error", err)
				}
			}

			switch {
			case errors.Is(runErr, context.Canceled):
				return &ExitError{Code: domain.ExitErrors, Err: fmt.Errorf("migration interrupted: %w", runErr)}
			case sum.ExitCode() != domain.ExitOK:
				return &ExitError{Code: sum.ExitCode()}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "Path to the migration ruleset (JSON or YAML)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Preview changes without writing files or running Maven")
	cmd.Flags().BoolVar(&opts.Backup, "backup", false, "Write <file>.bak before modifying a file")
	cmd.Flags().BoolVar(&opts.UpdateDependencies, "update-dependencies", false, "Run 'mvn versions:use-latest-releases' before migrating")
	cmd.Flags().BoolVar(&opts.Build, "build", false, "Run 'mvn clean install' after migrating")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Parallel file workers (default: one per CPU)")
	cmd.Flags().DurationVar(&opts.ToolTimeout, "tool-timeout", 0, "Timeout for each Maven step (default 10m)")
	cmd.Flags().StringSliceVar(&opts.ExcludePaths, "exclude", nil, "Directories to skip, in addition to .lazymigrate.yaml")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the summary as JSON")
	cmd.Flags().StringVar(&reportPath, "report", "", "Also write the JSON summary to this file")
	cmd.Flags().StringVar(&mvn, "mvn", buildtool.DefaultCommand, "Maven executable")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the run in .lazymigrate/history")
	_ = cmd.MarkFlagRequired("rules")

	return cmd
}
