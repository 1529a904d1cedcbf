// Package pomxml edits Maven build descriptors without reformatting them.
//
// A descriptor is parsed into an arena of nodes addressed by NodeID. Every
// node keeps the exact bytes it was parsed from, so serializing an unmodified
// Document reproduces the input byte for byte and an edit only rewrites the
// nodes it targets.
package pomxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// NodeID addresses a node in a Document's arena.
type NodeID int

// NoNode is returned by lookups that find nothing.
const NoNode NodeID = -1

type nodeKind int

const (
	kindDocument nodeKind = iota
	kindElement
	kindText
	kindOther // comments, processing instructions, directives
)

type node struct {
	kind        nodeKind
	name        string // local name
	qname       string // prefix:local as written
	parent      NodeID
	children    []NodeID
	raw         []byte // start tag, text or markup
	end         []byte // end tag; empty for self-closing elements
	text        string // decoded character data
	selfClosing bool
}

// Document is a format-preserving XML tree. Nodes always hold UTF-8; a
// document declared in a single-byte charset is transcoded on the way in and
// encoded back by Bytes.
type Document struct {
	bom     []byte
	newline string
	charset *charmap.Charmap
	nodes   []node
}

var (
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	declEncoding = regexp.MustCompile(`^<\?xml\s[^>]*?encoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)
	entityDecl   = regexp.MustCompile(`<!ENTITY\s+([A-Za-z_][\w.:-]*)\s+(?:"([^"<&%]*)"|'([^'<&%]*)')\s*>`)
)

// Parse builds a Document from data. The input is copied.
func Parse(data []byte) (*Document, error) {
	doc := &Document{newline: "\n"}
	data = append([]byte(nil), data...)
	if bytes.HasPrefix(data, utf8BOM) {
		doc.bom = utf8BOM
		data = data[len(utf8BOM):]
	}
	cm, err := declaredCharset(data)
	if err != nil {
		return nil, err
	}
	if cm != nil {
		if data, err = cm.NewDecoder().Bytes(data); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", cm, err)
		}
		doc.charset = cm
	}
	if bytes.Contains(data, []byte("\r\n")) {
		doc.newline = "\r\n"
	}
	doc.nodes = append(doc.nodes, node{kind: kindDocument, parent: NoNode})

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.Entity = internalEntities(data)
	// data is UTF-8 at this point whatever the declaration says.
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	stack := []NodeID{0}
	var prev int64
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		off := dec.InputOffset()
		raw := data[prev:off]
		top := stack[len(stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			id := doc.add(top, node{
				kind:  kindElement,
				name:  t.Name.Local,
				qname: qualified(t.Name),
				raw:   raw,
			})
			stack = append(stack, id)
		case xml.EndElement:
			if top == 0 {
				return nil, fmt.Errorf("unexpected </%s> at offset %d", qualified(t.Name), prev)
			}
			n := &doc.nodes[top]
			if n.qname != qualified(t.Name) {
				return nil, fmt.Errorf("element <%s> closed by </%s> at offset %d", n.qname, qualified(t.Name), prev)
			}
			if len(raw) == 0 {
				// The decoder synthesizes a zero-width end token for <a/>.
				n.selfClosing = true
			} else {
				n.end = raw
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			doc.add(top, node{kind: kindText, raw: raw, text: string(t)})
		default:
			doc.add(top, node{kind: kindOther, raw: raw})
		}
		prev = off
	}

	if len(stack) != 1 {
		return nil, fmt.Errorf("element <%s> is never closed", doc.nodes[stack[len(stack)-1]].qname)
	}
	if doc.Root() == NoNode {
		return nil, errors.New("document has no root element")
	}
	return doc, nil
}

// declaredCharset returns the single-byte charset named by the XML
// declaration, or nil for UTF-8 documents. Multi-byte encodings other than
// UTF-8 are rejected.
func declaredCharset(data []byte) (*charmap.Charmap, error) {
	m := declEncoding.FindSubmatch(data)
	if m == nil {
		return nil, nil
	}
	name := string(m[1])
	switch strings.ToLower(name) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	cm, ok := enc.(*charmap.Charmap)
	if !ok {
		return nil, fmt.Errorf("unsupported encoding %q: only UTF-8 and single-byte charsets are handled", name)
	}
	return cm, nil
}

// internalEntities collects the general entities declared in the DOCTYPE
// internal subset. Values that contain markup or references are skipped and
// fail at their point of use.
func internalEntities(data []byte) map[string]string {
	start := bytes.Index(data, []byte("<!DOCTYPE"))
	if start < 0 {
		return nil
	}
	ents := make(map[string]string)
	for _, m := range entityDecl.FindAllSubmatch(data[start:], -1) {
		name := string(m[1])
		if _, dup := ents[name]; dup {
			continue // the first declaration wins
		}
		if m[2] != nil {
			ents[name] = string(m[2])
		} else {
			ents[name] = string(m[3])
		}
	}
	return ents
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func (d *Document) add(parent NodeID, n node) NodeID {
	id := NodeID(len(d.nodes))
	n.parent = parent
	d.nodes = append(d.nodes, n)
	d.nodes[parent].children = append(d.nodes[parent].children, id)
	return id
}

// Bytes serializes the document in its declared encoding. Characters the
// charset cannot represent are written as character references.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	buf.Write(d.bom)
	d.write(&buf, 0)
	if d.charset == nil {
		return buf.Bytes()
	}
	out, err := encoding.HTMLEscapeUnsupported(d.charset.NewEncoder()).Bytes(buf.Bytes())
	if err != nil {
		// Unreachable with an escaping encoder.
		return buf.Bytes()
	}
	return out
}

func (d *Document) write(buf *bytes.Buffer, id NodeID) {
	n := &d.nodes[id]
	buf.Write(n.raw)
	for _, c := range n.children {
		d.write(buf, c)
	}
	buf.Write(n.end)
}

// Root returns the document element.
func (d *Document) Root() NodeID {
	for _, c := range d.nodes[0].children {
		if d.nodes[c].kind == kindElement {
			return c
		}
	}
	return NoNode
}

// Name returns the local name of an element.
func (d *Document) Name(id NodeID) string { return d.nodes[id].name }

// Children returns the element children of id with the given local name, in
// document order. An empty name matches every element.
func (d *Document) Children(id NodeID, name string) []NodeID {
	if id == NoNode {
		return nil
	}
	var out []NodeID
	for _, c := range d.nodes[id].children {
		n := &d.nodes[c]
		if n.kind == kindElement && (name == "" || n.name == name) {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first element child of id named name.
func (d *Document) Child(id NodeID, name string) NodeID {
	if id == NoNode {
		return NoNode
	}
	for _, c := range d.nodes[id].children {
		n := &d.nodes[c]
		if n.kind == kindElement && n.name == name {
			return c
		}
	}
	return NoNode
}

// Find follows a path of local names starting at the document element, whose
// name must be path[0].
func (d *Document) Find(path ...string) NodeID {
	id := d.Root()
	if id == NoNode || len(path) == 0 || d.nodes[id].name != path[0] {
		return NoNode
	}
	for _, name := range path[1:] {
		id = d.Child(id, name)
		if id == NoNode {
			return NoNode
		}
	}
	return id
}

// Path renders the location of id as /a/b/c.
func (d *Document) Path(id NodeID) string {
	var parts []string
	for id > 0 {
		parts = append(parts, d.nodes[id].name)
		id = d.nodes[id].parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

// Text returns the trimmed character data of a leaf element. ok is false
// when the element contains child elements.
func (d *Document) Text(id NodeID) (text string, ok bool) {
	if id == NoNode {
		return "", false
	}
	var b strings.Builder
	for _, c := range d.nodes[id].children {
		switch d.nodes[c].kind {
		case kindElement:
			return "", false
		case kindText:
			b.WriteString(d.nodes[c].text)
		}
	}
	return strings.TrimSpace(b.String()), true
}

// ChildText returns the text of the first child element named name.
func (d *Document) ChildText(id NodeID, name string) string {
	text, _ := d.Text(d.Child(id, name))
	return text
}

// SetText replaces the character data of a leaf element, keeping the
// whitespace that surrounded the old value and any comments.
func (d *Document) SetText(id NodeID, value string) error {
	if _, ok := d.Text(id); !ok {
		return fmt.Errorf("%s is not a leaf element", d.Path(id))
	}
	d.open(id)

	var old strings.Builder
	first := -1
	var kept []NodeID
	for _, c := range d.nodes[id].children {
		if d.nodes[c].kind != kindText {
			kept = append(kept, c)
			continue
		}
		old.Write(d.nodes[c].raw)
		if first < 0 {
			first = len(kept)
		}
	}
	rawOld := old.String()
	trimmed := strings.TrimSpace(rawOld)
	lead, trail := "", ""
	if trimmed != "" {
		lead = rawOld[:strings.Index(rawOld, trimmed)]
		trail = rawOld[len(lead)+len(trimmed):]
	}

	text := d.newNode(id, node{kind: kindText, raw: []byte(lead + escape(value) + trail), text: lead + value + trail})
	if first < 0 {
		first = len(kept)
	}
	d.nodes[id].children = insertAt(kept, first, text)
	return nil
}

// InsertElement appends <name>value</name> as the last element child of
// parent. Indentation is copied from the existing sibling elements, or
// derived from the parent's own indentation when it has none.
func (d *Document) InsertElement(parent NodeID, name, value string) NodeID {
	d.open(parent)

	elem := d.newNode(parent, node{
		kind:  kindElement,
		name:  name,
		qname: name,
		raw:   []byte("<" + name + ">"),
		end:   []byte("</" + name + ">"),
	})
	content := d.newNode(elem, node{kind: kindText, raw: []byte(escape(value)), text: value})
	d.nodes[elem].children = []NodeID{content}

	siblings := d.Children(parent, "")
	if len(siblings) > 0 {
		last := siblings[len(siblings)-1]
		idx := d.indexOf(parent, last) + 1
		kids := d.nodes[parent].children
		if ws, ok := d.leadingSpace(last); ok {
			sep := ws
			if strings.Contains(ws, "\n") {
				sep = d.newline + d.indentOf(last)
			}
			gap := d.newNode(parent, node{kind: kindText, raw: []byte(sep), text: sep})
			kids = insertAt(kids, idx, gap)
			idx++
		}
		d.nodes[parent].children = insertAt(kids, idx, elem)
		return elem
	}

	parentIndent := d.indentOf(parent)
	childIndent := parentIndent + d.indentStep(parent)
	open := d.newNode(parent, node{kind: kindText, raw: []byte(d.newline + childIndent), text: d.newline + childIndent})
	kids := append([]NodeID{open, elem}, d.nodes[parent].children...)
	if len(d.nodes[parent].children) == 0 {
		closing := d.newline + parentIndent
		kids = append(kids, d.newNode(parent, node{kind: kindText, raw: []byte(closing), text: closing}))
	}
	d.nodes[parent].children = kids
	return elem
}

func (d *Document) newNode(parent NodeID, n node) NodeID {
	id := NodeID(len(d.nodes))
	n.parent = parent
	d.nodes = append(d.nodes, n)
	return id
}

// open turns a self-closing element into an explicit start/end pair so it can
// take children.
func (d *Document) open(id NodeID) {
	n := &d.nodes[id]
	if !n.selfClosing {
		return
	}
	start := bytes.TrimSuffix(n.raw, []byte("/>"))
	start = bytes.TrimRight(start, " \t\r\n")
	n.raw = append(append([]byte(nil), start...), '>')
	n.end = []byte("</" + n.qname + ">")
	n.selfClosing = false
}

// leadingSpace returns the whitespace-only text node directly before id.
func (d *Document) leadingSpace(id NodeID) (string, bool) {
	parent := d.nodes[id].parent
	idx := d.indexOf(parent, id)
	if idx <= 0 {
		return "", false
	}
	prev := &d.nodes[d.nodes[parent].children[idx-1]]
	if prev.kind != kindText || strings.TrimSpace(string(prev.raw)) != "" {
		return "", false
	}
	return string(prev.raw), true
}

// indentOf returns the horizontal whitespace that precedes id on its line.
func (d *Document) indentOf(id NodeID) string {
	ws, ok := d.leadingSpace(id)
	if !ok {
		return ""
	}
	if i := strings.LastIndex(ws, "\n"); i >= 0 {
		return ws[i+1:]
	}
	return ""
}

func (d *Document) indexOf(parent, id NodeID) int {
	for i, c := range d.nodes[parent].children {
		if c == id {
			return i
		}
	}
	return -1
}

// indentStep returns the indentation one level adds, taken from the
// nearest ancestor that is indented deeper than its own parent.
func (d *Document) indentStep(id NodeID) string {
	for ; id > 0; id = d.nodes[id].parent {
		own := d.indentOf(id)
		outer := ""
		if p := d.nodes[id].parent; p > 0 {
			outer = d.indentOf(p)
		}
		if len(own) > len(outer) && strings.HasPrefix(own, outer) {
			return own[len(outer):]
		}
	}
	for _, n := range d.nodes {
		if n.kind == kindText && strings.Contains(string(n.raw), "\n\t") {
			return "\t"
		}
	}
	return "    "
}

func insertAt(ids []NodeID, i int, id NodeID) []NodeID {
	ids = append(ids, NoNode)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
