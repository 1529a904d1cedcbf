package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lazymigrate/lazymigrate/internal/domain"
)

var skipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"target":       true,
	"node_modules": true,
	".idea":        true,
	".vscode":      true,
	".mule":        true,
	".settings":    true,
	"bin":          true,
	".lazymigrate": true,
}

// FileScanner implements domain.ProjectScanner by walking the filesystem.
type FileScanner struct {
	open func(root string) fs.FS
}

func New() *FileScanner {
	return &FileScanner{open: os.DirFS}
}

// Scan walks root depth-first and classifies every regular file. The result
// is sorted by relative path. An unreadable subdirectory is reported through
// opts.OnError and skipped; without OnError it fails the scan.
func (s *FileScanner) Scan(root string, opts domain.ScanOptions) ([]domain.ScannedFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &domain.ScanError{Kind: domain.RootNotFound, Path: root, Err: err}
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.ScanError{Kind: domain.RootNotFound, Path: root}
		}
		return nil, &domain.ScanError{Kind: domain.WalkFailed, Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &domain.ScanError{Kind: domain.NotADirectory, Path: root}
	}

	c := newClassifier(opts)

	var files []domain.ScannedFile
	err = fs.WalkDir(s.open(absRoot), ".", func(rel string, d fs.DirEntry, err error) error {
		if err != nil {
			if rel == "." || opts.OnError == nil {
				return err
			}
			opts.OnError(rel, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if rel != "." && c.pruned(rel, d.Name()) {
				return fs.SkipDir
			}
			return nil
		}

		files = append(files, domain.ScannedFile{
			AbsPath:  filepath.Join(absRoot, filepath.FromSlash(rel)),
			RelPath:  rel,
			Category: c.classify(rel, d),
		})
		return nil
	})
	if err != nil {
		return nil, &domain.ScanError{Kind: domain.WalkFailed, Path: root, Err: err}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

type classifier struct {
	exclude    map[string]bool
	roots      []string
	extensions map[string]bool
}

func newClassifier(opts domain.ScanOptions) classifier {
	c := classifier{
		exclude:    make(map[string]bool, len(opts.ExcludePaths)),
		roots:      opts.SourceRoots,
		extensions: make(map[string]bool),
	}
	for _, p := range opts.ExcludePaths {
		c.exclude[strings.Trim(filepath.ToSlash(p), "/")] = true
	}
	if len(c.roots) == 0 {
		c.roots = domain.DefaultSourceRoots
	}
	exts := opts.SourceExtensions
	if len(exts) == 0 {
		exts = domain.DefaultSourceExtensions
	}
	for _, e := range exts {
		c.extensions[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return c
}

// pruned matches a directory against the built-in skip list and the
// configured excludes, by name or by relative path.
func (c classifier) pruned(rel, name string) bool {
	return skipDirs[name] || c.exclude[name] || c.exclude[rel]
}

func (c classifier) classify(rel string, d fs.DirEntry) domain.Category {
	name := d.Name()
	switch {
	case !d.Type().IsRegular():
		return domain.CategoryIgnored
	case strings.HasSuffix(name, domain.BackupSuffix):
		return domain.CategoryIgnored
	case name == domain.PomFileName:
		return domain.CategoryPomXML
	case name == domain.ManifestFileName:
		return domain.CategoryArtifactManifest
	case c.underSourceRoot(rel) && c.extensions[strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))]:
		return domain.CategorySourceText
	default:
		return domain.CategoryIgnored
	}
}

// underSourceRoot reports whether rel lies below a source root. A root
// without a slash matches a directory of that name at any depth, so modules
// of a multi-module project are covered too.
func (c classifier) underSourceRoot(rel string) bool {
	dir := path.Dir(rel)
	if dir == "." {
		return false
	}
	for _, root := range c.roots {
		root = strings.Trim(filepath.ToSlash(root), "/")
		if strings.Contains(root, "/") {
			if dir == root || strings.HasPrefix(dir, root+"/") {
				return true
			}
			continue
		}
		for _, seg := range strings.Split(dir, "/") {
			if seg == root {
				return true
			}
		}
	}
	return false
}
