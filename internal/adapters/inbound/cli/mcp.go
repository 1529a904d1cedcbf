package cli

import (
	mcpadapter "github.com/lazymigrate/lazymigrate/internal/adapters/inbound/mcp"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  "Commands for running the lazymigrate MCP (Model Context Protocol) server.",
	}
	cmd.AddCommand(newMCPServeCmd())
	return cmd
}

func newMCPServeCmd() *cobra.Command {
	var projectPath, rulesPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start lazymigrate MCP server (stdio)",
		Long:  "Start the lazymigrate MCP server using stdio transport. This allows AI coding assistants to preview and apply migrations, scan projects and validate rulesets.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectPath == "" {
				projectPath = "."
			}
			s := mcpadapter.NewLazyMigrateMCPServer(projectPath, rulesPath, newLogger(cmd))
			return server.ServeStdio(s)
		},
	}

	cmd.Flags().StringVar(&projectPath, "path", "", "Project path (defaults to current working directory)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "Default ruleset for tools called without one")

	return cmd
}
