// Package mutator persists transformed content with optional backups.
//
// Writes go through a temporary file in the target's directory followed by a
// rename, so a reader observes either the old or the new content.
package mutator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/lazymigrate/lazymigrate/internal/domain"
)

// Mutator implements domain.FileMutator for one run.
type Mutator struct {
	backup bool
	dryRun bool
	log    *slog.Logger

	mu       sync.Mutex
	backedUp map[string]bool
}

// New creates a Mutator. A nil logger discards output.
func New(backup, dryRun bool, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Mutator{
		backup:   backup,
		dryRun:   dryRun,
		log:      logger,
		backedUp: make(map[string]bool),
	}
}

// Factory returns a domain.MutatorFactory producing fresh mutators that
// share logger.
func Factory(logger *slog.Logger) domain.MutatorFactory {
	return func(backup, dryRun bool) domain.FileMutator {
		return New(backup, dryRun, logger)
	}
}

// Apply replaces the content of path. It returns the backup created by this
// call, or nil when backups are off or the file was already backed up.
func (m *Mutator) Apply(ctx context.Context, path string, content []byte) (*domain.BackupRecord, error) {
	if m.dryRun {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &domain.MutationError{Path: path, Err: err}
	}
	mode := info.Mode().Perm()

	var rec *domain.BackupRecord
	if m.backup {
		rec, err = m.ensureBackup(path, mode)
		if err != nil {
			return nil, err
		}
	}

	if err := m.write(ctx, path, content, mode); err != nil {
		return rec, err
	}
	m.log.Debug("wrote file", "path", path, "bytes", len(content))
	return rec, nil
}

// ensureBackup copies the current content of path to path.bak the first
// time path is seen in this run. A .bak left by an earlier run is replaced.
func (m *Mutator) ensureBackup(path string, mode os.FileMode) (*domain.BackupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backedUp[path] {
		return nil, nil
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.BackupError{Path: path, Err: err}
	}
	backupPath := path + domain.BackupSuffix
	if err := os.WriteFile(backupPath, original, mode); err != nil {
		return nil, &domain.BackupError{Path: path, Err: err}
	}
	m.backedUp[path] = true
	m.log.Debug("created backup", "path", backupPath)

	return &domain.BackupRecord{OriginalPath: path, BackupPath: backupPath}, nil
}

func (m *Mutator) write(ctx context.Context, path string, content []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".lazymigrate-*")
	if err != nil {
		m.log.Warn("temp file unavailable, writing in place", "path", path, "error", err)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.WriteFile(path, content, mode); err != nil {
			return &domain.MutationError{Path: path, Err: err}
		}
		return nil
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(content); err != nil {
		return fail(&domain.MutationError{Path: path, Err: err})
	}
	if err := tmp.Sync(); err != nil {
		return fail(&domain.MutationError{Path: path, Err: err})
	}
	if err := tmp.Close(); err != nil {
		return fail(&domain.MutationError{Path: path, Err: err})
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fail(&domain.MutationError{Path: path, Err: err})
	}

	// Last point at which the file can still be left untouched.
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fail(&domain.MutationError{Path: path, Err: fmt.Errorf("renaming temp file: %w", err)})
	}
	return nil
}
