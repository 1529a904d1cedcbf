package domain

import "context"

// RuleSetLoader reads and validates a migration ruleset.
type RuleSetLoader interface {
	Load(path string) (RuleSet, error)
}

// ConfigLoader loads the optional project-level configuration.
type ConfigLoader interface {
	Load(projectPath string) (ProjectConfig, error)
}

// ProjectScanner walks a project and classifies its files.
type ProjectScanner interface {
	Scan(root string, opts ScanOptions) ([]ScannedFile, error)
}

// Transformer rewrites the content of one file category. It returns the new
// content (identical to content when nothing applies) and the records
// describing what it did. A *TransformError fails that file only.
type Transformer interface {
	Transform(file ScannedFile, content []byte) ([]byte, []ChangeRecord, error)
}

// FileMutator persists new file content.
type FileMutator interface {
	Apply(ctx context.Context, path string, content []byte) (*BackupRecord, error)
}

// MutatorFactory creates the per-run mutator. Backup bookkeeping is scoped to
// one mutator, so each run gets a fresh one.
type MutatorFactory func(backup, dryRun bool) FileMutator

// ToolResult is the captured outcome of a build-tool invocation.
type ToolResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// BuildTool runs the external build tool in a project directory.
type BuildTool interface {
	Run(ctx context.Context, dir string, args []string) (ToolResult, error)
}

// GitInfo inspects the repository containing a project.
type GitInfo interface {
	IsGitRepo(projectPath string) bool
	State(projectPath string) (*GitState, error)
}

// RunHistory persists the outcome of applied runs.
type RunHistory interface {
	Save(projectPath string, entry RunEntry) error
	Load(projectPath string) ([]RunEntry, error)
}

// ReportWriter persists a run summary.
type ReportWriter interface {
	Write(path string, s Summary) error
}
