package mcp

import (
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/server"
)

// project is the state shared by the tool and resource handlers of one server.
type project struct {
	path         string
	defaultRules string
	log          *slog.Logger

	// mu serializes runs that write to the project.
	mu sync.Mutex
}

// NewLazyMigrateMCPServer creates a new MCP server with all lazymigrate tools
// and resources registered. projectPath is the root of the Mule project to
// migrate; rulesPath, when set, is used by tools called without a ruleset.
func NewLazyMigrateMCPServer(projectPath, rulesPath string, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := server.NewMCPServer(
		"lazymigrate",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	p := &project{path: projectPath, defaultRules: rulesPath, log: logger}
	registerTools(s, p)
	registerResources(s, p)

	return s
}
