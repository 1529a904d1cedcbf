package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lazymigrate/lazymigrate/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileName is the project-level configuration file.
const FileName = ".lazymigrate.yaml"

// YAMLLoader implements domain.ConfigLoader by reading .lazymigrate.yaml.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// Load reads .lazymigrate.yaml from projectPath.
// Returns DefaultConfig if the file does not exist.
func (l *YAMLLoader) Load(projectPath string) (domain.ProjectConfig, error) {
	data, err := os.ReadFile(filepath.Join(projectPath, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultConfig(), nil
		}
		return domain.ProjectConfig{}, err
	}

	var cfg domain.ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.ProjectConfig{}, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	if err := cfg.Validate(); err != nil {
		return domain.ProjectConfig{}, fmt.Errorf("invalid %s: %w", FileName, err)
	}

	return cfg, nil
}

// Template is the commented starter file written by `lazymigrate init`.
const Template = `# lazymigrate project configuration
# Directories skipped during the scan, relative to the project root.
exclude_paths: []
# Directories whose text files receive textReplacements.
source_roots:
  - src
# Extensions eligible for textReplacements (without the dot).
source_extensions: [xml, dwl, yaml, yml, properties, txt, java, groovy, json, raml]
# Parallel file workers; 0 uses one per CPU.
workers: 0
# Upper bound for each Maven step.
tool_timeout: 10m
`
