package history_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/history"
	"github.com/lazymigrate/lazymigrate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	h := history.New()

	entry := domain.RunEntry{
		Timestamp:      "2026-02-25T10:00:00Z",
		CommitHash:     "abc1234",
		RuntimeVersion: "4.9.4",
		Changed:        3,
	}

	err := h.Save(dir, entry)
	require.NoError(t, err)

	entries, err := h.Load(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Changed)
	assert.Equal(t, "abc1234", entries[0].CommitHash)
}

func TestHistory_AppendMultiple(t *testing.T) {
	dir := t.TempDir()
	h := history.New()

	require.NoError(t, h.Save(dir, domain.RunEntry{Timestamp: "t1", Changed: 4, Errors: 1, ExitCode: 1}))
	require.NoError(t, h.Save(dir, domain.RunEntry{Timestamp: "t2", Changed: 1}))
	require.NoError(t, h.Save(dir, domain.RunEntry{Timestamp: "t3"}))

	entries, err := h.Load(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].ExitCode)
	assert.Equal(t, "t3", entries[2].Timestamp)
}

func TestHistory_LoadEmpty(t *testing.T) {
	dir := t.TempDir()
	h := history.New()

	entries, err := h.Load(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistory_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, history.File)
	require.NoError(t, os.MkdirAll(filepath.Dir(fp), 0755))
	require.NoError(t, os.WriteFile(fp, []byte("not json"), 0644))

	_, err := history.New().Load(dir)
	assert.Error(t, err)
}

func TestNewRunEntry_FromSummary(t *testing.T) {
	s := domain.Summary{Changed: 2, Warnings: 1, Errors: 1, Git: &domain.GitState{Commit: "deadbeef"}}

	e := domain.NewRunEntry("t", "4.9.4", s)
	assert.Equal(t, "deadbeef", e.CommitHash)
	assert.Equal(t, domain.ExitErrors, e.ExitCode)
	assert.Equal(t, 2, e.Changed)
}

func TestHistory_DropsOldestBeyondLimit(t *testing.T) {
	dir := t.TempDir()
	h := history.NewWithLimit(3)

	for _, ts := range []string{"t1", "t2", "t3", "t4", "t5"} {
		require.NoError(t, h.Save(dir, domain.RunEntry{Timestamp: ts}))
	}

	entries, err := h.Load(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "t3", entries[0].Timestamp)
	assert.Equal(t, "t5", entries[2].Timestamp)
}

func TestHistory_SaveSetsAsideCorruptFile(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, history.File)
	require.NoError(t, os.MkdirAll(filepath.Dir(fp), 0755))
	require.NoError(t, os.WriteFile(fp, []byte("not json"), 0644))

	h := history.New()
	require.NoError(t, h.Save(dir, domain.RunEntry{Timestamp: "t1"}))

	entries, err := h.Load(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t1", entries[0].Timestamp)

	kept, err := os.ReadFile(fp + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "not json", string(kept))
	assert.NoFileExists(t, fp+".tmp")
}
