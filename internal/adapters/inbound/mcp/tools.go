package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/buildtool"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/config"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/gitinfo"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/history"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/mutator"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/ruleset"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/scanner"
	"github.com/lazymigrate/lazymigrate/internal/application"
	"github.com/lazymigrate/lazymigrate/internal/domain"
)

const rulesDescription = "Path to the migration ruleset (JSON or YAML), relative to the project. Defaults to the server's --rules."

// registerTools registers all lazymigrate MCP tools on the given server.
func registerTools(s *server.MCPServer, p *project) {
	// 1. lazymigrate_plan
	s.AddTool(
		mcplib.NewTool("lazymigrate_plan",
			mcplib.WithDescription("Preview a migration: returns the change report of a dry run without writing any file"),
			mcplib.WithString("rules",
				mcplib.Description(rulesDescription),
			),
		),
		handlePlan(p),
	)

	// 2. lazymigrate_apply
	s.AddTool(
		mcplib.NewTool("lazymigrate_apply",
			mcplib.WithDescription("Apply a migration ruleset to the project and return the change report"),
			mcplib.WithString("rules",
				mcplib.Description(rulesDescription),
			),
			mcplib.WithBoolean("backup",
				mcplib.Description("Write <file>.bak before modifying a file"),
			),
			mcplib.WithBoolean("build",
				mcplib.Description("Run 'mvn clean install' after migrating"),
			),
		),
		handleApply(p),
	)

	// 3. lazymigrate_scan
	s.AddTool(
		mcplib.NewTool("lazymigrate_scan",
			mcplib.WithDescription("List the project files a migration would process, with their category"),
		),
		handleScan(p),
	)

	// 4. lazymigrate_validate_rules
	s.AddTool(
		mcplib.NewTool("lazymigrate_validate_rules",
			mcplib.WithDescription("Validate a migration ruleset and return it normalized"),
			mcplib.WithString("rules",
				mcplib.Description(rulesDescription),
			),
		),
		handleValidateRules(p),
	)
}

func newMigrateService(logger *slog.Logger) *application.MigrateService {
	return application.NewMigrateService(
		scanner.New(),
		config.New(),
		mutator.Factory(logger),
		buildtool.New(buildtool.DefaultCommand, logger),
		gitinfo.New(),
		logger,
	)
}

// loadRules resolves the rules argument against the project and loads it.
func (p *project) loadRules(request mcplib.CallToolRequest) (domain.RuleSet, error) {
	path, _ := request.GetArguments()["rules"].(string)
	if path == "" {
		path = p.defaultRules
	}
	if path == "" {
		return domain.RuleSet{}, errors.New("no ruleset given: pass \"rules\" or start the server with --rules")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.path, path)
	}
	return ruleset.New().Load(path)
}

func handlePlan(p *project) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		rs, err := p.loadRules(request)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid ruleset: %v", err)), nil
		}

		sum, err := newMigrateService(p.log).Run(ctx, rs, p.path, domain.RunOptions{DryRun: true})
		if err != nil {
			return errorResult(fmt.Sprintf("plan failed: %v", err)), nil
		}
		return jsonResult(sum)
	}
}

func handleApply(p *project) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		rs, err := p.loadRules(request)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid ruleset: %v", err)), nil
		}

		args := request.GetArguments()
		backup, _ := args["backup"].(bool)
		build, _ := args["build"].(bool)

		p.mu.Lock()
		defer p.mu.Unlock()

		sum, err := newMigrateService(p.log).Run(ctx, rs, p.path, domain.RunOptions{Backup: backup, Build: build})
		if err != nil {
			return errorResult(fmt.Sprintf("migration failed: %v", err)), nil
		}
		if _, err := application.RecordRun(history.New(), p.path, rs, *sum, nil, time.Now()); err != nil {
			p.log.Warn("saving run history", "error", err)
		}
		return jsonResult(sum)
	}
}

func handleScan(p *project) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		files, err := newMigrateService(p.log).Scan(p.path, domain.RunOptions{})
		if err != nil {
			return errorResult(fmt.Sprintf("scan failed: %v", err)), nil
		}
		return jsonResult(files)
	}
}

func handleValidateRules(p *project) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		rs, err := p.loadRules(request)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid ruleset: %v", err)), nil
		}
		return jsonResult(rs)
	}
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
