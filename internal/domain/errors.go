package domain

import "fmt"

// ConfigErrorKind classifies ruleset failures.
type ConfigErrorKind string

const (
	Malformed            ConfigErrorKind = "malformed"
	MissingRequiredField ConfigErrorKind = "missing_required_field"
	DuplicatePluginRule  ConfigErrorKind = "duplicate_plugin_rule"
)

// ConfigError is fatal: no file is touched when the ruleset is invalid.
type ConfigError struct {
	Kind  ConfigErrorKind
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "ruleset: " + msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ScanErrorKind classifies project root failures.
type ScanErrorKind string

const (
	RootNotFound  ScanErrorKind = "root_not_found"
	NotADirectory ScanErrorKind = "not_a_directory"
	WalkFailed    ScanErrorKind = "walk_failed"
)

// ScanError is fatal and raised before any transformation starts.
type ScanError struct {
	Kind ScanErrorKind
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scan %s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("scan %s: %s", e.Path, e.Kind)
}

func (e *ScanError) Unwrap() error { return e.Err }

// TransformError marks a file whose content could not be parsed. It fails
// that file only.
type TransformError struct {
	File string
	Err  error
}

func (e *TransformError) Error() string { return fmt.Sprintf("transform %s: %v", e.File, e.Err) }
func (e *TransformError) Unwrap() error { return e.Err }

// BackupError means the required backup could not be written; the original
// file is left unmodified.
type BackupError struct {
	Path string
	Err  error
}

func (e *BackupError) Error() string { return fmt.Sprintf("backup %s: %v", e.Path, e.Err) }
func (e *BackupError) Unwrap() error { return e.Err }

// MutationError is an I/O failure while writing new content.
type MutationError struct {
	Path string
	Err  error
}

func (e *MutationError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *MutationError) Unwrap() error { return e.Err }

// ToolError is a failed build-tool step. Prior file edits stay in place.
type ToolError struct {
	Step     string
	ExitCode int
	Err      error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s: exit status %d", e.Step, e.ExitCode)
}

func (e *ToolError) Unwrap() error { return e.Err }
