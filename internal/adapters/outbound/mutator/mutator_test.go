package mutator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/mutator"
	"github.com/lazymigrate/lazymigrate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pom.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	require.NoError(t, os.Chmod(path, mode))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func entries(t *testing.T, dir string) []string {
	t.Helper()
	des, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names
}

func TestMutator_Writes(t *testing.T) {
	path := writeFile(t, "old", 0640)
	m := mutator.New(false, false, nil)

	rec, err := m.Apply(context.Background(), path, []byte("new"))
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, "new", readFile(t, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
	assert.Equal(t, []string{"pom.xml"}, entries(t, filepath.Dir(path)), "no temp or backup files left")
}

func TestMutator_DryRunNeverTouchesDisk(t *testing.T) {
	path := writeFile(t, "old", 0644)
	m := mutator.New(true, true, nil)

	rec, err := m.Apply(context.Background(), path, []byte("new"))
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, "old", readFile(t, path))
	assert.Equal(t, []string{"pom.xml"}, entries(t, filepath.Dir(path)))
}

func TestMutator_BackupCreatedOncePerRun(t *testing.T) {
	path := writeFile(t, "v1", 0644)
	m := mutator.New(true, false, nil)
	ctx := context.Background()

	rec, err := m.Apply(ctx, path, []byte("v2"))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, path+".bak", rec.BackupPath)
	assert.Equal(t, path, rec.OriginalPath)

	rec, err = m.Apply(ctx, path, []byte("v3"))
	require.NoError(t, err)
	assert.Nil(t, rec, "second write reuses the existing backup")

	assert.Equal(t, "v1", readFile(t, path+".bak"))
	assert.Equal(t, "v3", readFile(t, path))
}

func TestMutator_StaleBackupIsReplaced(t *testing.T) {
	path := writeFile(t, "current", 0644)
	require.NoError(t, os.WriteFile(path+".bak", []byte("from an earlier run"), 0644))

	_, err := mutator.New(true, false, nil).Apply(context.Background(), path, []byte("next"))
	require.NoError(t, err)
	assert.Equal(t, "current", readFile(t, path+".bak"))
}

func TestMutator_BackupFailureLeavesFileUnmodified(t *testing.T) {
	path := writeFile(t, "original", 0644)
	require.NoError(t, os.Mkdir(path+".bak", 0755))

	_, err := mutator.New(true, false, nil).Apply(context.Background(), path, []byte("new"))
	require.Error(t, err)
	var be *domain.BackupError
	assert.True(t, errors.As(err, &be))
	assert.Equal(t, "original", readFile(t, path))
}

func TestMutator_CancelledContextLeavesFileUntouched(t *testing.T) {
	path := writeFile(t, "original", 0644)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mutator.New(false, false, nil).Apply(ctx, path, []byte("new"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "original", readFile(t, path))
	assert.Equal(t, []string{"pom.xml"}, entries(t, filepath.Dir(path)))
}

func TestMutator_MissingFile(t *testing.T) {
	_, err := mutator.New(false, false, nil).Apply(context.Background(), filepath.Join(t.TempDir(), "gone.xml"), []byte("x"))
	var me *domain.MutationError
	assert.True(t, errors.As(err, &me))
}

func TestMutator_FallsBackToDirectWrite(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	path := writeFile(t, "old", 0644)
	dir := filepath.Dir(path)
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0755) })

	_, err := mutator.New(false, false, nil).Apply(context.Background(), path, []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, "new", readFile(t, path))
}

func TestFactory_FreshStatePerRun(t *testing.T) {
	path := writeFile(t, "v1", 0644)
	factory := mutator.Factory(nil)
	ctx := context.Background()

	rec, err := factory(true, false).Apply(ctx, path, []byte("v2"))
	require.NoError(t, err)
	require.NotNil(t, rec)

	rec, err = factory(true, false).Apply(ctx, path, []byte("v3"))
	require.NoError(t, err)
	require.NotNil(t, rec, "a new run takes a new backup")
	assert.Equal(t, "v2", readFile(t, path+".bak"))
}
