package pomxml

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/lazymigrate/lazymigrate/internal/domain"
)

// Rule identifiers used in change records.
const (
	RuleRuntime = "runtimeVersion"
	RuleMunit   = "munitVersion"
	rulePlugin  = "plugin:"
)

// Runtime properties, in update order. The first one is created when none
// exists.
var runtimeProperties = []string{"app.runtime", "mule.version"}

const munitProperty = "munit.version"

// defaultPluginGroup is what Maven assumes when a plugin omits its groupId.
const defaultPluginGroup = "org.apache.maven.plugins"

var pluginSections = [][]string{
	{"project", "build", "plugins"},
	{"project", "build", "pluginManagement", "plugins"},
}

var propertyRef = regexp.MustCompile(`^\$\{([^}]+)\}$`)

// maxPropertyHops bounds ${a} -> ${b} -> ... chains.
const maxPropertyHops = 8

// Transformer applies the descriptor rules of a RuleSet to pom.xml files.
type Transformer struct {
	rules domain.RuleSet
}

// New returns a Transformer for rules.
func New(rules domain.RuleSet) *Transformer {
	return &Transformer{rules: rules}
}

// Transform implements domain.Transformer.
func (t *Transformer) Transform(file domain.ScannedFile, content []byte) ([]byte, []domain.ChangeRecord, error) {
	doc, err := Parse(content)
	if err != nil {
		return content, nil, &domain.TransformError{File: file.RelPath, Err: err}
	}
	if doc.Name(doc.Root()) != "project" {
		return content, []domain.ChangeRecord{
			domain.Warning(file.RelPath, RuleRuntime, fmt.Sprintf("root element is <%s>, not <project>; skipped", doc.Name(doc.Root()))),
		}, nil
	}

	e := &editor{doc: doc, file: file.RelPath}
	e.runtime(t.rules.RuntimeVersion)
	if t.rules.HasMunit() {
		e.munit(t.rules.MunitVersion)
	}
	for _, rule := range t.rules.PluginRules {
		e.plugin(rule)
	}

	if !e.changed {
		return content, e.records, nil
	}
	return doc.Bytes(), e.records, nil
}

type editor struct {
	doc     *Document
	file    string
	records []domain.ChangeRecord
	changed bool
}

func (e *editor) properties() NodeID {
	return e.doc.Find("project", "properties")
}

func (e *editor) runtime(target string) {
	props := e.properties()
	if props == NoNode {
		return
	}
	found := false
	for _, name := range runtimeProperties {
		if id := e.doc.Child(props, name); id != NoNode {
			found = true
			e.update(id, RuleRuntime, target)
		}
	}
	if found {
		return
	}

	id := e.doc.InsertElement(props, runtimeProperties[0], target)
	e.changed = true
	e.records = append(e.records, domain.ChangeRecord{
		File:    e.file,
		RuleID:  RuleRuntime,
		Kind:    domain.KindXMLUpdate,
		After:   target,
		Message: "created " + e.doc.Path(id),
	})
}

func (e *editor) munit(target string) {
	if id := e.doc.Child(e.properties(), munitProperty); id != NoNode {
		e.update(id, RuleMunit, target)
	}
}

func (e *editor) plugin(rule domain.PluginRule) {
	ruleID := rulePlugin + rule.Key()
	for _, section := range pluginSections {
		for _, p := range e.doc.Children(e.doc.Find(section...), "plugin") {
			group := e.doc.ChildText(p, "groupId")
			if group == "" {
				group = defaultPluginGroup
			}
			if group != rule.GroupID || e.doc.ChildText(p, "artifactId") != rule.ArtifactID {
				continue
			}
			if v := e.doc.Child(p, "version"); v != NoNode {
				e.update(v, ruleID, rule.TargetVersion)
			}
		}
	}
}

// update sets the value behind id to target, following property references.
func (e *editor) update(id NodeID, ruleID, target string) {
	id, ok := e.resolve(id, ruleID)
	if !ok {
		return
	}
	current, ok := e.doc.Text(id)
	if !ok {
		e.records = append(e.records, domain.Warning(e.file, ruleID, e.doc.Path(id)+" has nested elements; skipped"))
		return
	}
	if current == target {
		return
	}
	if isDowngrade(current, target) {
		e.records = append(e.records, domain.Warning(e.file, ruleID,
			fmt.Sprintf("%s downgrades %s to %s", e.doc.Path(id), current, target)))
	}
	if err := e.doc.SetText(id, target); err != nil {
		e.records = append(e.records, domain.Warning(e.file, ruleID, err.Error()))
		return
	}
	e.changed = true
	e.records = append(e.records, domain.ChangeRecord{
		File:    e.file,
		RuleID:  ruleID,
		Kind:    domain.KindXMLUpdate,
		Before:  current,
		After:   target,
		Message: e.doc.Path(id),
	})
}

// resolve follows ${name} references into /project/properties.
func (e *editor) resolve(id NodeID, ruleID string) (NodeID, bool) {
	seen := map[NodeID]bool{id: true}
	for hop := 0; hop < maxPropertyHops; hop++ {
		text, ok := e.doc.Text(id)
		if !ok {
			return id, true
		}
		m := propertyRef.FindStringSubmatch(text)
		if m == nil {
			return id, true
		}
		next := e.doc.Child(e.properties(), m[1])
		if next == NoNode {
			e.records = append(e.records, domain.Warning(e.file, ruleID,
				fmt.Sprintf("%s references undefined property ${%s}; skipped", e.doc.Path(id), m[1])))
			return NoNode, false
		}
		if seen[next] {
			break
		}
		seen[next] = true
		id = next
	}
	e.records = append(e.records, domain.Warning(e.file, ruleID,
		fmt.Sprintf("%s: property reference cycle; skipped", e.doc.Path(id))))
	return NoNode, false
}

func isDowngrade(current, target string) bool {
	if strings.HasPrefix(current, "${") {
		return false
	}
	c, err := version.NewVersion(current)
	if err != nil {
		return false
	}
	t, err := version.NewVersion(target)
	if err != nil {
		return false
	}
	return t.LessThan(c)
}
