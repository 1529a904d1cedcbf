package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// RuleSet is the validated migration configuration. The engine treats it as
// read-only for the lifetime of a run.
type RuleSet struct {
	RuntimeVersion    string            `json:"runtimeVersion"              yaml:"runtimeVersion"`
	MunitVersion      string            `json:"munitVersion,omitempty"      yaml:"munitVersion,omitempty"`
	PluginRules       []PluginRule      `json:"pluginRules"                 yaml:"pluginRules"`
	ArtifactJSONRules map[string]any    `json:"artifactJsonRules,omitempty" yaml:"artifactJsonRules,omitempty"`
	TextReplacements  []TextReplacement `json:"textReplacements,omitempty"  yaml:"textReplacements,omitempty"`
}

// PluginRule pins the version of a build plugin identified by its coordinates.
type PluginRule struct {
	GroupID       string `json:"groupId"       yaml:"groupId"`
	ArtifactID    string `json:"artifactId"    yaml:"artifactId"`
	TargetVersion string `json:"targetVersion" yaml:"targetVersion"`
}

// Key returns the groupId:artifactId coordinate.
func (r PluginRule) Key() string { return r.GroupID + ":" + r.ArtifactID }

// TextReplacement is one ordered substitution applied to source text.
type TextReplacement struct {
	Pattern     string `json:"pattern"            yaml:"pattern"`
	Replacement string `json:"replacement"        yaml:"replacement"`
	IsRegex     bool   `json:"isRegex"            yaml:"isRegex"`
	FileGlob    string `json:"fileGlob,omitempty" yaml:"fileGlob,omitempty"`
}

// ID identifies the rule in change records. Index is the rule's position.
func (r TextReplacement) ID(index int) string {
	return fmt.Sprintf("textReplacements[%d]", index)
}

// HasMunit reports whether the MUnit version rule is active.
func (rs RuleSet) HasMunit() bool { return rs.MunitVersion != "" }

// ArtifactKeys returns the manifest rule keys in sorted order so every run
// visits them identically.
func (rs RuleSet) ArtifactKeys() []string {
	keys := make([]string, 0, len(rs.ArtifactJSONRules))
	for k := range rs.ArtifactJSONRules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks the invariants of a loaded ruleset.
func (rs RuleSet) Validate() error {
	if strings.TrimSpace(rs.RuntimeVersion) == "" {
		return &ConfigError{Kind: MissingRequiredField, Field: "runtimeVersion"}
	}

	seen := make(map[string]int, len(rs.PluginRules))
	for i, p := range rs.PluginRules {
		field := fmt.Sprintf("pluginRules[%d]", i)
		switch {
		case strings.TrimSpace(p.GroupID) == "":
			return &ConfigError{Kind: MissingRequiredField, Field: field + ".groupId"}
		case strings.TrimSpace(p.ArtifactID) == "":
			return &ConfigError{Kind: MissingRequiredField, Field: field + ".artifactId"}
		case strings.TrimSpace(p.TargetVersion) == "":
			return &ConfigError{Kind: MissingRequiredField, Field: field + ".targetVersion"}
		}
		if prev, dup := seen[p.Key()]; dup {
			return &ConfigError{
				Kind:  DuplicatePluginRule,
				Field: field,
				Err:   fmt.Errorf("%s already declared at pluginRules[%d]", p.Key(), prev),
			}
		}
		seen[p.Key()] = i
	}

	for k := range rs.ArtifactJSONRules {
		if strings.TrimSpace(k) == "" {
			return &ConfigError{Kind: Malformed, Field: "artifactJsonRules", Err: fmt.Errorf("empty key")}
		}
		if strings.Contains(k, ".") {
			return &ConfigError{Kind: Malformed, Field: "artifactJsonRules." + k, Err: fmt.Errorf("keys must be flat root-level names")}
		}
	}

	for i, r := range rs.TextReplacements {
		field := r.ID(i)
		if r.Pattern == "" {
			return &ConfigError{Kind: MissingRequiredField, Field: field + ".pattern"}
		}
		if r.IsRegex {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				return &ConfigError{Kind: Malformed, Field: field + ".pattern", Err: err}
			}
		}
		if r.FileGlob != "" && !doublestar.ValidatePattern(r.FileGlob) {
			return &ConfigError{Kind: Malformed, Field: field + ".fileGlob", Err: fmt.Errorf("invalid glob %q", r.FileGlob)}
		}
	}

	return nil
}
