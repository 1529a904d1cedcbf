package ruleset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lazymigrate/lazymigrate/internal/domain"
	"gopkg.in/yaml.v3"
)

// wire mirrors domain.RuleSet with an optional munitVersion so that an
// explicitly empty value can be told apart from an absent one.
type wire struct {
	RuntimeVersion    string                   `json:"runtimeVersion"    yaml:"runtimeVersion"`
	MunitVersion      *string                  `json:"munitVersion"      yaml:"munitVersion"`
	PluginRules       []domain.PluginRule      `json:"pluginRules"       yaml:"pluginRules"`
	ArtifactJSONRules map[string]any           `json:"artifactJsonRules" yaml:"artifactJsonRules"`
	TextReplacements  []domain.TextReplacement `json:"textReplacements"  yaml:"textReplacements"`
}

// Loader implements domain.RuleSetLoader. JSON is the canonical format;
// files ending in .yaml or .yml are read as YAML with the same field names.
type Loader struct{}

// New creates a Loader.
func New() *Loader { return &Loader{} }

// Load reads, decodes and validates the ruleset at path.
func (l *Loader) Load(path string) (domain.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RuleSet{}, &domain.ConfigError{Kind: domain.Malformed, Field: path, Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a JSON ruleset. Unknown fields are rejected.
func ParseJSON(data []byte) (domain.RuleSet, error) {
	var w wire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return domain.RuleSet{}, &domain.ConfigError{Kind: domain.Malformed, Err: err}
	}
	if dec.More() {
		return domain.RuleSet{}, &domain.ConfigError{Kind: domain.Malformed, Err: errors.New("trailing data after ruleset")}
	}
	return w.ruleSet()
}

// ParseYAML decodes a YAML ruleset. Unknown fields are rejected.
func ParseYAML(data []byte) (domain.RuleSet, error) {
	var w wire
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return domain.RuleSet{}, &domain.ConfigError{Kind: domain.Malformed, Err: err}
	}
	w.ArtifactJSONRules = normalize(w.ArtifactJSONRules)
	return w.ruleSet()
}

func (w wire) ruleSet() (domain.RuleSet, error) {
	if w.MunitVersion != nil && strings.TrimSpace(*w.MunitVersion) == "" {
		return domain.RuleSet{}, &domain.ConfigError{Kind: domain.MissingRequiredField, Field: "munitVersion"}
	}
	rs := domain.RuleSet{
		RuntimeVersion:    w.RuntimeVersion,
		PluginRules:       w.PluginRules,
		ArtifactJSONRules: w.ArtifactJSONRules,
		TextReplacements:  w.TextReplacements,
	}
	if w.MunitVersion != nil {
		rs.MunitVersion = *w.MunitVersion
	}
	if err := rs.Validate(); err != nil {
		return domain.RuleSet{}, err
	}
	return rs, nil
}

// normalize round-trips YAML-decoded values through JSON so manifest rules
// carry the same types a JSON ruleset would produce.
func normalize(rules map[string]any) map[string]any {
	if len(rules) == 0 {
		return rules
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return rules
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return rules
	}
	return out
}

// Describe returns a short human-readable description of the ruleset.
func Describe(rs domain.RuleSet) string {
	munit := "unset"
	if rs.HasMunit() {
		munit = rs.MunitVersion
	}
	return fmt.Sprintf("runtime %s, munit %s, %d plugin rules, %d manifest rules, %d text replacements",
		rs.RuntimeVersion, munit, len(rs.PluginRules), len(rs.ArtifactJSONRules), len(rs.TextReplacements))
}
