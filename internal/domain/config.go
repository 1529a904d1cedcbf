package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSourceRoots are the directories whose text files are SourceText.
var DefaultSourceRoots = []string{"src"}

// DefaultSourceExtensions lists file extensions eligible for text replacement.
var DefaultSourceExtensions = []string{
	"xml", "dwl", "yaml", "yml", "properties", "txt", "java", "groovy", "json", "raml",
}

// ProjectConfig holds project-level configuration loaded from .lazymigrate.yaml.
type ProjectConfig struct {
	ExcludePaths     []string `yaml:"exclude_paths"     json:"exclude_paths,omitempty"`
	SourceRoots      []string `yaml:"source_roots"      json:"source_roots,omitempty"`
	SourceExtensions []string `yaml:"source_extensions" json:"source_extensions,omitempty"`
	Workers          int      `yaml:"workers"           json:"workers,omitempty"`
	ToolTimeout      string   `yaml:"tool_timeout"      json:"tool_timeout,omitempty"`
}

// DefaultConfig returns a zero-value config that changes nothing.
func DefaultConfig() ProjectConfig {
	return ProjectConfig{}
}

// Validate checks the config for invalid values and returns a descriptive error.
func (c ProjectConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0 (got %d)", c.Workers)
	}

	if c.ToolTimeout != "" {
		d, err := time.ParseDuration(c.ToolTimeout)
		if err != nil {
			return fmt.Errorf("invalid tool_timeout %q: %w", c.ToolTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("tool_timeout must be positive (got %s)", c.ToolTimeout)
		}
	}

	for i, ext := range c.SourceExtensions {
		if strings.TrimSpace(ext) == "" {
			return fmt.Errorf("source_extensions[%d] must not be empty", i)
		}
	}

	for i, root := range c.SourceRoots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("source_roots[%d] must not be empty", i)
		}
	}

	return nil
}

// ApplyTo fills options left unset by the caller. Explicit options always win.
func (c ProjectConfig) ApplyTo(opts RunOptions) RunOptions {
	if len(opts.ExcludePaths) == 0 {
		opts.ExcludePaths = c.ExcludePaths
	}
	if len(opts.SourceRoots) == 0 {
		opts.SourceRoots = c.SourceRoots
	}
	if len(opts.SourceExtensions) == 0 {
		opts.SourceExtensions = c.SourceExtensions
	}
	if opts.Workers == 0 {
		opts.Workers = c.Workers
	}
	if opts.ToolTimeout == 0 && c.ToolTimeout != "" {
		// Validate has already checked the duration.
		if d, err := time.ParseDuration(c.ToolTimeout); err == nil {
			opts.ToolTimeout = d
		}
	}
	return opts
}
