// Package replace applies the ordered text substitutions of a ruleset.
package replace

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/lazymigrate/lazymigrate/internal/domain"
)

type rule struct {
	id  string
	def domain.TextReplacement
	re  *regexp.Regexp
}

// Replacer runs text replacements in declared order. Each rule sees the
// output of the previous one.
type Replacer struct {
	rules []rule
}

// New compiles rules once for the whole run.
func New(rules []domain.TextReplacement) (*Replacer, error) {
	r := &Replacer{rules: make([]rule, 0, len(rules))}
	for i, def := range rules {
		cr := rule{id: def.ID(i), def: def}
		if def.IsRegex {
			re, err := regexp.Compile(def.Pattern)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", cr.id, err)
			}
			cr.re = re
		}
		r.rules = append(r.rules, cr)
	}
	return r, nil
}

// Transform implements domain.Transformer.
func (r *Replacer) Transform(file domain.ScannedFile, content []byte) ([]byte, []domain.ChangeRecord, error) {
	out, records := r.Apply(file.RelPath, content)
	return out, records, nil
}

// Apply rewrites content of the file at relPath. Content that no rule
// changes is returned as is, with no records.
func (r *Replacer) Apply(relPath string, content []byte) ([]byte, []domain.ChangeRecord) {
	if bytes.IndexByte(content, 0) >= 0 {
		return content, nil
	}

	text := content
	var records []domain.ChangeRecord
	for _, cr := range r.rules {
		if !cr.matches(relPath) {
			continue
		}
		next, n := cr.apply(text)
		if n == 0 || bytes.Equal(next, text) {
			continue
		}
		text = next
		records = append(records, domain.ChangeRecord{
			File:        relPath,
			RuleID:      cr.id,
			Kind:        domain.KindTextReplace,
			Before:      cr.def.Pattern,
			After:       cr.def.Replacement,
			Occurrences: n,
		})
	}
	return text, records
}

func (cr rule) apply(text []byte) ([]byte, int) {
	if cr.re != nil {
		n := len(cr.re.FindAllIndex(text, -1))
		if n == 0 {
			return text, 0
		}
		return cr.re.ReplaceAll(text, []byte(cr.def.Replacement)), n
	}
	pattern := []byte(cr.def.Pattern)
	n := bytes.Count(text, pattern)
	if n == 0 {
		return text, 0
	}
	return bytes.ReplaceAll(text, pattern, []byte(cr.def.Replacement)), n
}

// matches applies the rule's fileGlob. A glob without a slash is matched
// against the base name, otherwise against the slash-separated relative path.
func (cr rule) matches(relPath string) bool {
	if cr.def.FileGlob == "" {
		return true
	}
	name := relPath
	if !strings.Contains(cr.def.FileGlob, "/") {
		name = path.Base(relPath)
	}
	ok, err := doublestar.Match(cr.def.FileGlob, name)
	return err == nil && ok
}
