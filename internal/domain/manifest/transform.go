// Package manifest applies flat key rules to mule-artifact.json.
//
// Edits are spliced into the raw document, so key order, formatting and
// every untouched key survive verbatim. Only root-level keys are rewritten;
// the same key found deeper in the document is reported, never changed.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/google/go-cmp/cmp"

	"github.com/lazymigrate/lazymigrate/internal/domain"
)

type target struct {
	key   string
	raw   []byte
	value any
	typ   jsonparser.ValueType
}

// Transformer applies artifactJsonRules to manifest files.
type Transformer struct {
	targets []target
}

// New prepares the rules of rs. Values are encoded once up front.
func New(rs domain.RuleSet) (*Transformer, error) {
	t := &Transformer{}
	for _, key := range rs.ArtifactKeys() {
		raw, err := encode(rs.ArtifactJSONRules[key])
		if err != nil {
			return nil, fmt.Errorf("encoding artifactJsonRules.%s: %w", key, err)
		}
		value, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("encoding artifactJsonRules.%s: %w", key, err)
		}
		t.targets = append(t.targets, target{key: key, raw: raw, value: value, typ: typeOf(value)})
	}
	return t, nil
}

// RuleID names the rule for key in change records.
func RuleID(key string) string { return "artifactJsonRules." + key }

// Transform implements domain.Transformer.
func (t *Transformer) Transform(file domain.ScannedFile, content []byte) ([]byte, []domain.ChangeRecord, error) {
	if !json.Valid(content) {
		return content, nil, &domain.TransformError{File: file.RelPath, Err: errors.New("invalid JSON")}
	}
	if _, typ, _, err := jsonparser.Get(content); err != nil || typ != jsonparser.Object {
		return content, nil, &domain.TransformError{File: file.RelPath, Err: fmt.Errorf("root is %s, not an object", typ)}
	}

	out := content
	var records []domain.ChangeRecord
	for _, tg := range t.targets {
		ruleID := RuleID(tg.key)

		value, typ, _, err := jsonparser.Get(out, tg.key)
		switch {
		case errors.Is(err, jsonparser.KeyPathNotFoundError):
		case err != nil:
			return content, nil, &domain.TransformError{File: file.RelPath, Err: fmt.Errorf("reading %q: %w", tg.key, err)}
		case typ != tg.typ:
			records = append(records, domain.Warning(file.RelPath, ruleID,
				fmt.Sprintf("root key %q is %s but the rule sets %s; left unchanged", tg.key, typ, tg.typ)))
		default:
			current := rawValue(value, typ)
			if tg.equal(current) {
				break
			}
			// Set may write into the backing array of its input.
			updated, err := jsonparser.Set(append([]byte(nil), out...), tg.raw, tg.key)
			if err != nil {
				return content, nil, &domain.TransformError{File: file.RelPath, Err: fmt.Errorf("writing %q: %w", tg.key, err)}
			}
			out = updated
			records = append(records, domain.ChangeRecord{
				File:   file.RelPath,
				RuleID: ruleID,
				Kind:   domain.KindJSONUpdate,
				Before: string(current),
				After:  string(tg.raw),
			})
		}

		for _, path := range nested(out, tg) {
			records = append(records, domain.Warning(file.RelPath, ruleID,
				fmt.Sprintf("nested key %s left unchanged; only root-level keys are rewritten", path)))
		}
	}

	return out, records, nil
}

func (tg target) equal(raw []byte) bool {
	v, err := decode(raw)
	if err != nil {
		return false
	}
	return cmp.Equal(v, tg.value)
}

// nested returns the paths of occurrences of tg.key below the root whose
// value differs from the target.
func nested(data []byte, tg target) []string {
	var paths []string
	var walk func(data []byte, typ jsonparser.ValueType, path string, depth int)
	walk = func(data []byte, typ jsonparser.ValueType, path string, depth int) {
		switch typ {
		case jsonparser.Object:
			_ = jsonparser.ObjectEach(data, func(k, v []byte, vt jsonparser.ValueType, _ int) error {
				key := string(k)
				child := key
				if path != "" {
					child = path + "." + key
				}
				if depth > 0 && key == tg.key && !tg.equal(rawValue(v, vt)) {
					paths = append(paths, child)
				}
				walk(v, vt, child, depth+1)
				return nil
			})
		case jsonparser.Array:
			i := 0
			_, _ = jsonparser.ArrayEach(data, func(v []byte, vt jsonparser.ValueType, _ int, _ error) {
				walk(v, vt, path+"["+strconv.Itoa(i)+"]", depth+1)
				i++
			})
		}
	}
	walk(data, jsonparser.Object, "", 0)
	return paths
}

// rawValue restores the quotes jsonparser strips from string values.
func rawValue(v []byte, typ jsonparser.ValueType) []byte {
	if typ == jsonparser.String {
		out := make([]byte, 0, len(v)+2)
		out = append(out, '"')
		out = append(out, v...)
		return append(out, '"')
	}
	return v
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decode(raw []byte) (any, error) {
	var v any
	err := json.Unmarshal(raw, &v)
	return v, err
}

func typeOf(v any) jsonparser.ValueType {
	switch v.(type) {
	case string:
		return jsonparser.String
	case float64:
		return jsonparser.Number
	case bool:
		return jsonparser.Boolean
	case nil:
		return jsonparser.Null
	case []any:
		return jsonparser.Array
	case map[string]any:
		return jsonparser.Object
	default:
		return jsonparser.Unknown
	}
}
