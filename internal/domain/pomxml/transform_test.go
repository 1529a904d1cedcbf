package pomxml_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/lazymigrate/lazymigrate/internal/domain"
	"github.com/lazymigrate/lazymigrate/internal/domain/pomxml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePom = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
    <modelVersion>4.0.0</modelVersion>
    <groupId>com.example</groupId>
    <artifactId>orders-api</artifactId>

    <properties>
        <project.build.sourceEncoding>UTF-8</project.build.sourceEncoding>
        <app.runtime>4.4.0</app.runtime>
        <mule.maven.plugin.version>3.8.0</mule.maven.plugin.version>
        <munit.version>2.3.0</munit.version>
    </properties>

    <build>
        <plugins>
            <!-- packaging -->
            <plugin>
                <groupId>org.mule.tools.maven</groupId>
                <artifactId>mule-maven-plugin</artifactId>
                <version>${mule.maven.plugin.version}</version>
                <extensions>true</extensions>
            </plugin>
            <plugin>
                <groupId>com.mulesoft.munit.tools</groupId>
                <artifactId>munit-maven-plugin</artifactId>
                <version>${munit.version}</version>
            </plugin>
            <plugin>
                <artifactId>maven-clean-plugin</artifactId>
                <version>3.0.0</version>
            </plugin>
        </plugins>
    </build>
</project>
`

func sampleRules() domain.RuleSet {
	return domain.RuleSet{
		RuntimeVersion: "4.9.4",
		MunitVersion:   "3.4.0",
		PluginRules: []domain.PluginRule{
			{GroupID: "org.mule.tools.maven", ArtifactID: "mule-maven-plugin", TargetVersion: "4.3.1"},
			{GroupID: "org.apache.maven.plugins", ArtifactID: "maven-clean-plugin", TargetVersion: "3.2.0"},
		},
	}
}

var pomFile = domain.ScannedFile{RelPath: "pom.xml", Category: domain.CategoryPomXML}

func TestTransformer_UpdatesScopedTargets(t *testing.T) {
	tr := pomxml.New(sampleRules())

	out, records, err := tr.Transform(pomFile, []byte(samplePom))
	require.NoError(t, err)

	want := strings.NewReplacer(
		"<app.runtime>4.4.0<", "<app.runtime>4.9.4<",
		"<mule.maven.plugin.version>3.8.0<", "<mule.maven.plugin.version>4.3.1<",
		"<munit.version>2.3.0<", "<munit.version>3.4.0<",
		"<version>3.0.0<", "<version>3.2.0<",
	).Replace(samplePom)
	assert.Equal(t, want, string(out))

	require.Len(t, records, 4)
	for _, r := range records {
		assert.Equal(t, domain.KindXMLUpdate, r.Kind)
		assert.Equal(t, "pom.xml", r.File)
	}
	assert.Equal(t, pomxml.RuleRuntime, records[0].RuleID)
	assert.Equal(t, "4.4.0", records[0].Before)
	assert.Equal(t, "4.9.4", records[0].After)
	assert.Equal(t, pomxml.RuleMunit, records[1].RuleID)
	assert.Equal(t, "plugin:org.mule.tools.maven:mule-maven-plugin", records[2].RuleID)
	assert.Equal(t, "/project/properties/mule.maven.plugin.version", records[2].Message)
	assert.Equal(t, "plugin:org.apache.maven.plugins:maven-clean-plugin", records[3].RuleID)
}

func TestTransformer_IsIdempotent(t *testing.T) {
	tr := pomxml.New(sampleRules())

	first, _, err := tr.Transform(pomFile, []byte(samplePom))
	require.NoError(t, err)

	second, records, err := tr.Transform(pomFile, first)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, string(first), string(second))
}

func TestTransformer_NoOpWhenAlreadyAtTarget(t *testing.T) {
	in := "<project><properties><app.runtime>4.9.4</app.runtime></properties></project>"

	out, records, err := pomxml.New(domain.RuleSet{RuntimeVersion: "4.9.4"}).Transform(pomFile, []byte(in))
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, in, string(out))
}

func TestTransformer_UpdatesBothRuntimeProperties(t *testing.T) {
	in := "<project><properties><app.runtime>${mule.version}</app.runtime><mule.version>4.3.0</mule.version></properties></project>"

	out, records, err := pomxml.New(domain.RuleSet{RuntimeVersion: "4.9.4"}).Transform(pomFile, []byte(in))
	require.NoError(t, err)

	require.Len(t, records, 1, "the reference resolves to mule.version, which is updated once")
	assert.Equal(t, "/project/properties/mule.version", records[0].Message)
	assert.Contains(t, string(out), "<app.runtime>${mule.version}</app.runtime>")
	assert.Contains(t, string(out), "<mule.version>4.9.4</mule.version>")
}

func TestTransformer_CreatesRuntimePropertyWhenMissing(t *testing.T) {
	in := "<project>\n  <properties>\n    <foo>bar</foo>\n  </properties>\n</project>\n"

	out, records, err := pomxml.New(domain.RuleSet{RuntimeVersion: "4.9.4"}).Transform(pomFile, []byte(in))
	require.NoError(t, err)

	assert.Equal(t, "<project>\n  <properties>\n    <foo>bar</foo>\n    <app.runtime>4.9.4</app.runtime>\n  </properties>\n</project>\n", string(out))
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].Before)
	assert.Contains(t, records[0].Message, "created")
}

func TestTransformer_MissingTargetsAreNoOps(t *testing.T) {
	in := "<project><build><plugins><plugin><groupId>org.mule.tools.maven</groupId><artifactId>mule-maven-plugin</artifactId></plugin></plugins></build></project>"

	out, records, err := pomxml.New(sampleRules()).Transform(pomFile, []byte(in))
	require.NoError(t, err)
	assert.Empty(t, records, "no properties section and no plugin version element")
	assert.Equal(t, in, string(out))
}

func TestTransformer_WarnsOnDowngrade(t *testing.T) {
	in := "<project><properties><app.runtime>4.10.0</app.runtime></properties></project>"

	_, records, err := pomxml.New(domain.RuleSet{RuntimeVersion: "4.9.4"}).Transform(pomFile, []byte(in))
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, domain.KindWarning, records[0].Kind)
	assert.Contains(t, records[0].Message, "downgrades")
	assert.Equal(t, domain.KindXMLUpdate, records[1].Kind)
}

func TestTransformer_WarnsOnUndefinedProperty(t *testing.T) {
	in := "<project><properties><app.runtime>${runtime}</app.runtime></properties></project>"

	out, records, err := pomxml.New(domain.RuleSet{RuntimeVersion: "4.9.4"}).Transform(pomFile, []byte(in))
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
	require.Len(t, records, 1)
	assert.Equal(t, domain.KindWarning, records[0].Kind)
	assert.Contains(t, records[0].Message, "${runtime}")
}

func TestTransformer_MalformedDescriptor(t *testing.T) {
	in := []byte("<project><properties></project>")

	out, records, err := pomxml.New(sampleRules()).Transform(pomFile, in)
	require.Error(t, err)
	assert.Empty(t, records)
	assert.Equal(t, in, out)

	var te *domain.TransformError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "pom.xml", te.File)
}

func TestTransformer_NonProjectRootWarns(t *testing.T) {
	in := "<settings><app.runtime>1</app.runtime></settings>"

	out, records, err := pomxml.New(sampleRules()).Transform(pomFile, []byte(in))
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
	require.Len(t, records, 1)
	assert.Equal(t, domain.KindWarning, records[0].Kind)
}

func TestTransformer_Latin1Descriptor(t *testing.T) {
	in := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<project><name>caf\xe9</name><properties><app.runtime>4.4.0</app.runtime></properties></project>"

	out, records, err := pomxml.New(domain.RuleSet{RuntimeVersion: "4.9.4"}).Transform(pomFile, []byte(in))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.KindXMLUpdate, records[0].Kind)
	assert.Contains(t, string(out), "<name>caf\xe9</name>")
	assert.Contains(t, string(out), "<app.runtime>4.9.4</app.runtime>")
}
