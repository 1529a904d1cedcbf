package domain

import "time"

// Category tags a scanned file with the transformer that owns it. A file has
// exactly one category.
type Category string

const (
	CategoryPomXML           Category = "PomXml"
	CategoryArtifactManifest Category = "ArtifactManifest"
	CategorySourceText       Category = "SourceText"
	CategoryIgnored          Category = "Ignored"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategoryPomXML,
	CategoryArtifactManifest,
	CategorySourceText,
	CategoryIgnored,
}

// Well-known file names.
const (
	PomFileName      = "pom.xml"
	ManifestFileName = "mule-artifact.json"
	BackupSuffix     = ".bak"
)

// ScannedFile is a project file tagged with its processing category.
type ScannedFile struct {
	AbsPath  string   `json:"abs_path"`
	RelPath  string   `json:"rel_path"`
	Category Category `json:"category"`
}

// Processable reports whether some transformer handles the file.
func (f ScannedFile) Processable() bool { return f.Category != CategoryIgnored }

// RunOptions controls a single migration run.
type RunOptions struct {
	DryRun             bool          `json:"dry_run"`
	Backup             bool          `json:"backup"`
	UpdateDependencies bool          `json:"update_dependencies"`
	Build              bool          `json:"build"`
	Workers            int           `json:"workers,omitempty"`
	ToolTimeout        time.Duration `json:"tool_timeout,omitempty"`
	ExcludePaths       []string      `json:"exclude_paths,omitempty"`
	SourceRoots        []string      `json:"source_roots,omitempty"`
	SourceExtensions   []string      `json:"source_extensions,omitempty"`
}

// DefaultToolTimeout bounds a build-tool step when no timeout is configured.
const DefaultToolTimeout = 10 * time.Minute

// EffectiveToolTimeout returns the configured tool timeout or the default.
func (o RunOptions) EffectiveToolTimeout() time.Duration {
	if o.ToolTimeout > 0 {
		return o.ToolTimeout
	}
	return DefaultToolTimeout
}

// ScanOptions narrows the scanner's classification.
type ScanOptions struct {
	ExcludePaths     []string
	SourceRoots      []string
	SourceExtensions []string

	// OnError receives directories below the root that could not be read.
	// They are skipped. When nil, such a directory fails the scan.
	OnError func(relPath string, err error)
}

// ScanOptions derives scanner options from the run options.
func (o RunOptions) ScanOptions() ScanOptions {
	return ScanOptions{
		ExcludePaths:     o.ExcludePaths,
		SourceRoots:      o.SourceRoots,
		SourceExtensions: o.SourceExtensions,
	}
}

// GitState describes the repository the project lives in, if any.
type GitState struct {
	Commit string `json:"commit"`
	Dirty  bool   `json:"dirty"`
}

// RunEntry is one line of the project's migration history.
type RunEntry struct {
	Timestamp      string `json:"timestamp"`
	CommitHash     string `json:"commit_hash,omitempty"`
	RuntimeVersion string `json:"runtime_version"`
	Changed        int    `json:"changed"`
	Warnings       int    `json:"warnings"`
	Errors         int    `json:"errors"`
	ExitCode       int    `json:"exit_code"`
}

// NewRunEntry summarizes a completed, non-dry run.
func NewRunEntry(timestamp, runtimeVersion string, s Summary) RunEntry {
	e := RunEntry{
		Timestamp:      timestamp,
		RuntimeVersion: runtimeVersion,
		Changed:        s.Changed,
		Warnings:       s.Warnings,
		Errors:         s.Errors,
		ExitCode:       s.ExitCode(),
	}
	if s.Git != nil {
		e.CommitHash = s.Git.Commit
	}
	return e
}

// Build-tool steps run around file processing.
const (
	StepUpdateDependencies = "update-dependencies"
	StepBuild              = "build"
)

// VersionsBackupFile is left behind by the Maven versions plugin.
const VersionsBackupFile = "pom.xml.versionsBackup"

// StepArgs returns the build-tool arguments of a step.
func StepArgs(step string) []string {
	switch step {
	case StepUpdateDependencies:
		return []string{"versions:use-latest-releases"}
	case StepBuild:
		return []string{"clean", "install"}
	default:
		return nil
	}
}
