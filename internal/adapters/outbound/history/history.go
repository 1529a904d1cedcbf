// Package history keeps a bounded log of applied migration runs per project.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lazymigrate/lazymigrate/internal/domain"
)

// File is the history location relative to the project root. The scanner
// prunes .lazymigrate so the history never feeds back into a run.
const File = ".lazymigrate/history/runs.json"

// DefaultLimit is the number of runs kept; older runs are dropped first.
const DefaultLimit = 50

// corruptSuffix marks a history file that could not be decoded and was set
// aside so new runs can still be recorded.
const corruptSuffix = ".corrupt"

// FileHistory implements domain.RunHistory using JSON file storage.
type FileHistory struct {
	limit int
}

func New() *FileHistory {
	return NewWithLimit(DefaultLimit)
}

// NewWithLimit keeps at most limit runs. A limit below one keeps one.
func NewWithLimit(limit int) *FileHistory {
	return &FileHistory{limit: max(limit, 1)}
}

// Save appends entry, dropping the oldest runs beyond the limit. An
// undecodable history is moved to runs.json.corrupt and replaced.
func (h *FileHistory) Save(projectPath string, entry domain.RunEntry) error {
	fp := filepath.Join(projectPath, File)

	entries, err := h.Load(projectPath)
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		if rerr := os.Rename(fp, fp+corruptSuffix); rerr != nil {
			return fmt.Errorf("setting aside corrupt history: %w", rerr)
		}
		entries, err = nil, nil
	}
	if err != nil {
		return err
	}

	entries = append(entries, entry)
	if len(entries) > h.limit {
		entries = entries[len(entries)-h.limit:]
	}

	if err := os.MkdirAll(filepath.Dir(fp), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp := fp + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, fp)
}

// Load returns the recorded runs, oldest first.
func (h *FileHistory) Load(projectPath string) ([]domain.RunEntry, error) {
	fp := filepath.Join(projectPath, File)

	data, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []domain.RunEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", File, err)
	}

	return entries, nil
}
