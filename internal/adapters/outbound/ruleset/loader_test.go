package ruleset_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/ruleset"
	"github.com/lazymigrate/lazymigrate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "runtimeVersion": "4.9.4",
  "munitVersion": "3.4.0",
  "pluginRules": [
    {"groupId": "org.mule.tools.maven", "artifactId": "mule-maven-plugin", "targetVersion": "4.3.1"}
  ],
  "artifactJsonRules": {"minMuleVersion": "4.9.0", "javaSpecificationVersions": ["17"]},
  "textReplacements": [
    {"pattern": "a", "replacement": "b", "isRegex": false},
    {"pattern": "b", "replacement": "c", "isRegex": false, "fileGlob": "*.dwl"}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func configErr(t *testing.T, err error) *domain.ConfigError {
	t.Helper()
	require.Error(t, err)
	var ce *domain.ConfigError
	require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
	return ce
}

func TestLoader_JSON(t *testing.T) {
	rs, err := ruleset.New().Load(writeFile(t, "rules.json", sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, "4.9.4", rs.RuntimeVersion)
	assert.Equal(t, "3.4.0", rs.MunitVersion)
	require.Len(t, rs.PluginRules, 1)
	assert.Equal(t, "org.mule.tools.maven:mule-maven-plugin", rs.PluginRules[0].Key())
	assert.Equal(t, []any{"17"}, rs.ArtifactJSONRules["javaSpecificationVersions"])
	require.Len(t, rs.TextReplacements, 2)
	assert.Equal(t, "*.dwl", rs.TextReplacements[1].FileGlob)
}

func TestLoader_YAMLMatchesJSON(t *testing.T) {
	yamlRules := `
runtimeVersion: 4.9.4
munitVersion: 3.4.0
pluginRules:
  - groupId: org.mule.tools.maven
    artifactId: mule-maven-plugin
    targetVersion: 4.3.1
artifactJsonRules:
  minMuleVersion: 4.9.0
  javaSpecificationVersions: ["17"]
textReplacements:
  - pattern: a
    replacement: b
    isRegex: false
  - pattern: b
    replacement: c
    isRegex: false
    fileGlob: "*.dwl"
`
	fromYAML, err := ruleset.New().Load(writeFile(t, "rules.yaml", yamlRules))
	require.NoError(t, err)
	fromJSON, err := ruleset.ParseJSON([]byte(sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
}

func TestLoader_MissingFileIsMalformed(t *testing.T) {
	_, err := ruleset.New().Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Equal(t, domain.Malformed, configErr(t, err).Kind)
}

func TestParseJSON_Malformed(t *testing.T) {
	for _, in := range []string{
		`{"runtimeVersion": `,
		`{"runtimeVersion": "4.9.4", "surprise": true}`,
		`{"runtimeVersion": "4.9.4"} {}`,
		`{"runtimeVersion": 4}`,
	} {
		_, err := ruleset.ParseJSON([]byte(in))
		assert.Equal(t, domain.Malformed, configErr(t, err).Kind, "input %s", in)
	}
}

func TestParseJSON_MissingRuntime(t *testing.T) {
	_, err := ruleset.ParseJSON([]byte(`{"pluginRules": []}`))
	ce := configErr(t, err)
	assert.Equal(t, domain.MissingRequiredField, ce.Kind)
	assert.Equal(t, "runtimeVersion", ce.Field)
}

func TestParseJSON_EmptyMunitIsRejected(t *testing.T) {
	_, err := ruleset.ParseJSON([]byte(`{"runtimeVersion": "4.9.4", "munitVersion": ""}`))
	ce := configErr(t, err)
	assert.Equal(t, domain.MissingRequiredField, ce.Kind)
	assert.Equal(t, "munitVersion", ce.Field)
}

func TestParseJSON_AbsentMunitIsAllowed(t *testing.T) {
	rs, err := ruleset.ParseJSON([]byte(`{"runtimeVersion": "4.9.4"}`))
	require.NoError(t, err)
	assert.False(t, rs.HasMunit())
}

func TestParseJSON_DuplicatePluginRule(t *testing.T) {
	_, err := ruleset.ParseJSON([]byte(`{
		"runtimeVersion": "4.9.4",
		"pluginRules": [
			{"groupId": "g", "artifactId": "a", "targetVersion": "1"},
			{"groupId": "g", "artifactId": "a", "targetVersion": "2"}
		]
	}`))
	assert.Equal(t, domain.DuplicatePluginRule, configErr(t, err).Kind)
}

func TestParseYAML_UnknownField(t *testing.T) {
	_, err := ruleset.ParseYAML([]byte("runtimeVersion: 4.9.4\nextra: 1\n"))
	assert.Equal(t, domain.Malformed, configErr(t, err).Kind)
}

func TestDescribe(t *testing.T) {
	rs, err := ruleset.ParseJSON([]byte(sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, "runtime 4.9.4, munit 3.4.0, 1 plugin rules, 2 manifest rules, 2 text replacements", ruleset.Describe(rs))
}
