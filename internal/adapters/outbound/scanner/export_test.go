package scanner

import "io/fs"

// NewWithFS returns a scanner that walks the file system open returns for
// the absolute root.
func NewWithFS(open func(root string) fs.FS) *FileScanner {
	return &FileScanner{open: open}
}
