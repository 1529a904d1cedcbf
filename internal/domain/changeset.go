package domain

import (
	"sort"
	"sync"
)

// ChangeKind classifies a change record.
type ChangeKind string

const (
	KindXMLUpdate   ChangeKind = "XmlUpdate"
	KindJSONUpdate  ChangeKind = "JsonUpdate"
	KindTextReplace ChangeKind = "TextReplace"
	KindWarning     ChangeKind = "Warning"
	KindError       ChangeKind = "Error"
)

// ChangeKinds lists every kind in report order.
var ChangeKinds = []ChangeKind{KindXMLUpdate, KindJSONUpdate, KindTextReplace, KindWarning, KindError}

// IsEdit reports whether the record describes a content change.
func (k ChangeKind) IsEdit() bool {
	return k == KindXMLUpdate || k == KindJSONUpdate || k == KindTextReplace
}

// ChangeRecord is one entry of the audit trail.
type ChangeRecord struct {
	File        string     `json:"file"`
	RuleID      string     `json:"rule_id"`
	Kind        ChangeKind `json:"kind"`
	Before      string     `json:"before,omitempty"`
	After       string     `json:"after,omitempty"`
	Message     string     `json:"message,omitempty"`
	Occurrences int        `json:"occurrences,omitempty"`
}

// Warning builds a Warning record.
func Warning(file, ruleID, msg string) ChangeRecord {
	return ChangeRecord{File: file, RuleID: ruleID, Kind: KindWarning, Message: msg}
}

// Failure builds an Error record from err.
func Failure(file, ruleID string, err error) ChangeRecord {
	return ChangeRecord{File: file, RuleID: ruleID, Kind: KindError, Message: err.Error()}
}

// BackupRecord pairs a mutated file with its pre-run copy.
type BackupRecord struct {
	OriginalPath string `json:"original_path"`
	BackupPath   string `json:"backup_path"`
}

// ToolRun is the folded outcome of a build-tool step.
type ToolRun struct {
	Step     string   `json:"step"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exit_code"`
	Stdout   string   `json:"stdout,omitempty"`
	Stderr   string   `json:"stderr,omitempty"`
}

// Exit codes surfaced through Summary.
const (
	ExitOK     = 0
	ExitErrors = 1
	ExitFatal  = 2
)

// Summary is the immutable snapshot of a run.
type Summary struct {
	Root        string             `json:"root"`
	DryRun      bool               `json:"dry_run"`
	Scanned     int                `json:"scanned"`
	Changed     int                `json:"changed"`
	PerCategory map[Category]int   `json:"per_category"`
	PerKind     map[ChangeKind]int `json:"per_kind"`
	Warnings    int                `json:"warnings"`
	Errors      int                `json:"errors"`
	Records     []ChangeRecord     `json:"records"`
	Backups     []BackupRecord     `json:"backups,omitempty"`
	Tools       []ToolRun          `json:"tools,omitempty"`
	Git         *GitState          `json:"git,omitempty"`
	Fatal       string             `json:"fatal,omitempty"`
}

// ExitCode maps the summary to the process exit status.
func (s Summary) ExitCode() int {
	switch {
	case s.Fatal != "":
		return ExitFatal
	case s.Errors > 0:
		return ExitErrors
	default:
		return ExitOK
	}
}

// Edits returns only the records that describe content changes.
func (s Summary) Edits() []ChangeRecord {
	var out []ChangeRecord
	for _, r := range s.Records {
		if r.Kind.IsEdit() {
			out = append(out, r)
		}
	}
	return out
}

// ChangeSet accumulates the records of one run. It is the only state shared
// between workers; every method is safe for concurrent use.
type ChangeSet struct {
	mu          sync.Mutex
	root        string
	dryRun      bool
	records     []ChangeRecord
	scanned     int
	perCategory map[Category]int
	changed     map[string]bool
	backups     []BackupRecord
	tools       []ToolRun
	git         *GitState
	fatal       string
}

// NewChangeSet returns an empty change set for a run over root.
func NewChangeSet(root string, dryRun bool) *ChangeSet {
	return &ChangeSet{
		root:        root,
		dryRun:      dryRun,
		perCategory: make(map[Category]int),
		changed:     make(map[string]bool),
	}
}

// Append records every entry in order. A batch is appended under one lock so
// records of the same file stay contiguous.
func (c *ChangeSet) Append(records ...ChangeRecord) {
	if len(records) == 0 {
		return
	}
	c.mu.Lock()
	c.records = append(c.records, records...)
	c.mu.Unlock()
}

// SetScanned stores the scanner's output counters.
func (c *ChangeSet) SetScanned(files []ScannedFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scanned = 0
	c.perCategory = make(map[Category]int)
	for _, f := range files {
		c.perCategory[f.Category]++
		if f.Processable() {
			c.scanned++
		}
	}
}

// MarkChanged counts file as changed (or planned to change in a dry run).
func (c *ChangeSet) MarkChanged(file string) {
	c.mu.Lock()
	c.changed[file] = true
	c.mu.Unlock()
}

// AddBackup records a backup created during the run.
func (c *ChangeSet) AddBackup(b BackupRecord) {
	c.mu.Lock()
	c.backups = append(c.backups, b)
	c.mu.Unlock()
}

// AddTool folds a build-tool result into the run.
func (c *ChangeSet) AddTool(t ToolRun) {
	c.mu.Lock()
	c.tools = append(c.tools, t)
	c.mu.Unlock()
}

// SetGit attaches repository state.
func (c *ChangeSet) SetGit(g *GitState) {
	c.mu.Lock()
	c.git = g
	c.mu.Unlock()
}

// SetFatal marks the run as aborted before any file was touched.
func (c *ChangeSet) SetFatal(err error) {
	c.mu.Lock()
	c.fatal = err.Error()
	c.mu.Unlock()
}

// Snapshot returns a Summary. Records are ordered by file, keeping the
// insertion order within each file; run-level records (empty file) come first.
func (c *ChangeSet) Snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := make([]ChangeRecord, len(c.records))
	copy(records, c.records)
	sort.SliceStable(records, func(i, j int) bool { return records[i].File < records[j].File })

	perKind := make(map[ChangeKind]int)
	for _, r := range records {
		perKind[r.Kind]++
	}
	perCategory := make(map[Category]int, len(c.perCategory))
	for k, v := range c.perCategory {
		perCategory[k] = v
	}
	backups := make([]BackupRecord, len(c.backups))
	copy(backups, c.backups)
	sort.Slice(backups, func(i, j int) bool { return backups[i].OriginalPath < backups[j].OriginalPath })
	tools := make([]ToolRun, len(c.tools))
	copy(tools, c.tools)

	return Summary{
		Root:        c.root,
		DryRun:      c.dryRun,
		Scanned:     c.scanned,
		Changed:     len(c.changed),
		PerCategory: perCategory,
		PerKind:     perKind,
		Warnings:    perKind[KindWarning],
		Errors:      perKind[KindError],
		Records:     records,
		Backups:     backups,
		Tools:       tools,
		Git:         c.git,
		Fatal:       c.fatal,
	}
}
