package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/config"
	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/history"
	"github.com/lazymigrate/lazymigrate/internal/domain"
)

// registerResources registers all lazymigrate MCP resources on the given server.
func registerResources(s *server.MCPServer, p *project) {
	// 1. lazymigrate://history - previous runs
	s.AddResource(
		mcplib.NewResource(
			"lazymigrate://history",
			"Run History",
			mcplib.WithResourceDescription("Previous migration runs recorded for the project"),
			mcplib.WithMIMEType("application/json"),
		),
		handleHistoryResource(p),
	)

	// 2. lazymigrate://config - effective project configuration
	s.AddResource(
		mcplib.NewResource(
			"lazymigrate://config",
			"Project Config",
			mcplib.WithResourceDescription("Contents of .lazymigrate.yaml, or the defaults when absent"),
			mcplib.WithMIMEType("application/json"),
		),
		handleConfigResource(p),
	)

	// 3. lazymigrate://files/{category} - scanned files of one category
	s.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			"lazymigrate://files/{category}",
			"Project Files",
			mcplib.WithTemplateDescription("Scanned files of a category (PomXml, ArtifactManifest, SourceText, Ignored)"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		handleFilesResource(p),
	)
}

func handleHistoryResource(p *project) server.ResourceHandlerFunc {
	return func(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		entries, err := history.New().Load(p.path)
		if err != nil {
			return nil, fmt.Errorf("loading history: %w", err)
		}
		if entries == nil {
			entries = []domain.RunEntry{}
		}
		return jsonContents(request.Params.URI, entries)
	}
}

func handleConfigResource(p *project) server.ResourceHandlerFunc {
	return func(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		cfg, err := config.New().Load(p.path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return jsonContents(request.Params.URI, cfg)
	}
}

func handleFilesResource(p *project) server.ResourceTemplateHandlerFunc {
	return func(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		category := categoryArg(request.Params.Arguments["category"])
		if category == "" {
			return nil, fmt.Errorf("category is required")
		}

		files, err := newMigrateService(p.log).Scan(p.path, domain.RunOptions{})
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		matched := []string{}
		for _, f := range files {
			if string(f.Category) == category {
				matched = append(matched, f.RelPath)
			}
		}
		return jsonContents(request.Params.URI, matched)
	}
}

// categoryArg unwraps a template argument, which the router may deliver as
// a plain string or as a list of values.
func categoryArg(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case []string:
		if len(a) > 0 {
			return a[0]
		}
	}
	return ""
}

func jsonContents(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
