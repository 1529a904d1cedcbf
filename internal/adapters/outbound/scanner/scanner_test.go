package scanner_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/lazymigrate/lazymigrate/internal/adapters/outbound/scanner"
	"github.com/lazymigrate/lazymigrate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "../../../../testdata/mule-app"

func touch(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}
}

func categories(files []domain.ScannedFile) map[string]domain.Category {
	out := make(map[string]domain.Category, len(files))
	for _, f := range files {
		out[f.RelPath] = f.Category
	}
	return out
}

func TestFileScanner_Scan(t *testing.T) {
	s := scanner.New()
	files, err := s.Scan(fixtureDir, domain.ScanOptions{})
	require.NoError(t, err)

	got := categories(files)
	assert.Equal(t, domain.CategoryPomXML, got["pom.xml"])
	assert.Equal(t, domain.CategoryArtifactManifest, got["mule-artifact.json"])
	assert.Equal(t, domain.CategorySourceText, got["src/main/mule/orders.xml"])
	assert.Equal(t, domain.CategoryIgnored, got["README.md"])
}

func TestFileScanner_Classifies(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"pom.xml",
		"mule-artifact.json",
		"README.md",
		"src/main/mule/flow.xml",
		"src/main/resources/dw/map.dwl",
		"src/main/resources/logo.png",
		"src/main/mule/flow.xml.bak",
		"docs/notes.txt",
		"module-a/pom.xml",
		"module-a/src/main/mule/a.xml",
	)

	files, err := scanner.New().Scan(root, domain.ScanOptions{})
	require.NoError(t, err)

	assert.Equal(t, map[string]domain.Category{
		"README.md":                     domain.CategoryIgnored,
		"docs/notes.txt":                domain.CategoryIgnored,
		"module-a/pom.xml":              domain.CategoryPomXML,
		"module-a/src/main/mule/a.xml":  domain.CategorySourceText,
		"mule-artifact.json":            domain.CategoryArtifactManifest,
		"pom.xml":                       domain.CategoryPomXML,
		"src/main/mule/flow.xml":        domain.CategorySourceText,
		"src/main/mule/flow.xml.bak":    domain.CategoryIgnored,
		"src/main/resources/dw/map.dwl": domain.CategorySourceText,
		"src/main/resources/logo.png":   domain.CategoryIgnored,
	}, categories(files))
}

func TestFileScanner_SortedByRelPath(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src/b.xml", "src/a-b.xml", "src/a/z.xml", "pom.xml")

	files, err := scanner.New().Scan(root, domain.ScanOptions{})
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	assert.Equal(t, []string{"pom.xml", "src/a-b.xml", "src/a/z.xml", "src/b.xml"}, rels)
}

func TestFileScanner_PrunesBuildAndVCSDirs(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"pom.xml",
		"target/classes/mule-artifact.json",
		".git/config",
		".mule/cache.xml",
		"node_modules/x/pom.xml",
		".lazymigrate/report.json",
	)

	files, err := scanner.New().Scan(root, domain.ScanOptions{})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "pom.xml", files[0].RelPath)
}

func TestFileScanner_ExcludePaths(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src/main/mule/a.xml", "src/legacy/b.xml", "generated/pom.xml")

	files, err := scanner.New().Scan(root, domain.ScanOptions{ExcludePaths: []string{"src/legacy/", "generated"}})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "src/main/mule/a.xml", files[0].RelPath)
}

func TestFileScanner_CustomSourceRootsAndExtensions(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src/a.xml", "api/spec.raml", "api/readme.md")

	files, err := scanner.New().Scan(root, domain.ScanOptions{
		SourceRoots:      []string{"api"},
		SourceExtensions: []string{".raml"},
	})
	require.NoError(t, err)

	got := categories(files)
	assert.Equal(t, domain.CategorySourceText, got["api/spec.raml"])
	assert.Equal(t, domain.CategoryIgnored, got["api/readme.md"])
	assert.Equal(t, domain.CategoryIgnored, got["src/a.xml"])
}

func TestFileScanner_SymlinksAreIgnored(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src/real.xml")
	if err := os.Symlink(filepath.Join(root, "src", "real.xml"), filepath.Join(root, "src", "link.xml")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	files, err := scanner.New().Scan(root, domain.ScanOptions{})
	require.NoError(t, err)
	got := categories(files)
	assert.Equal(t, domain.CategoryIgnored, got["src/link.xml"])
	assert.Equal(t, domain.CategorySourceText, got["src/real.xml"])
}

func TestFileScanner_RootErrors(t *testing.T) {
	s := scanner.New()

	_, err := s.Scan(filepath.Join(t.TempDir(), "missing"), domain.ScanOptions{})
	var se *domain.ScanError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.RootNotFound, se.Kind)

	file := filepath.Join(t.TempDir(), "pom.xml")
	require.NoError(t, os.WriteFile(file, []byte("<project/>"), 0644))
	_, err = s.Scan(file, domain.ScanOptions{})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.NotADirectory, se.Kind)
}

// lockedFS fails to list the directories in locked.
type lockedFS struct {
	fs.FS
	locked map[string]bool
}

func (l lockedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if l.locked[name] {
		return nil, &fs.PathError{Op: "readdirent", Path: name, Err: fs.ErrPermission}
	}
	return fs.ReadDir(l.FS, name)
}

func lockedScanner(dirs ...string) *scanner.FileScanner {
	locked := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		locked[d] = true
	}
	return scanner.NewWithFS(func(root string) fs.FS {
		return lockedFS{FS: os.DirFS(root), locked: locked}
	})
}

func TestFileScanner_UnreadableSubdirectoryIsSkipped(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "pom.xml", "src/main/mule/flow.xml", "src/secret/keys.properties")

	var failed []string
	files, err := lockedScanner("src/secret").Scan(root, domain.ScanOptions{
		OnError: func(rel string, err error) {
			assert.ErrorIs(t, err, fs.ErrPermission)
			failed = append(failed, rel)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"src/secret"}, failed)
	got := categories(files)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "src/main/mule/flow.xml")
	assert.Equal(t, filepath.Join(root, "src", "main", "mule", "flow.xml"), files[1].AbsPath)
}

func TestFileScanner_UnreadableSubdirectoryWithoutHandlerFails(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "pom.xml", "src/secret/keys.properties")

	_, err := lockedScanner("src/secret").Scan(root, domain.ScanOptions{})

	var se *domain.ScanError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.WalkFailed, se.Kind)
}

func TestFileScanner_UnreadableRootIsFatal(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "pom.xml")

	_, err := lockedScanner(".").Scan(root, domain.ScanOptions{
		OnError: func(string, error) { t.Fatal("root errors must not be skipped") },
	})

	var se *domain.ScanError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.WalkFailed, se.Kind)
}
