// Package fsys is the filesystem layer used by the pipeline: sorted glob
// enumeration, whole-file reads, atomic writes and recursive removal.
//
// Paths returned by [FS.ListFiles] are slash-separated and relative to the
// listed root, so they can be matched against glob patterns directly and
// reused below a different root.
package fsys

import (
	"errors"
	"io/fs"
)

// ErrNotDir is returned by ListFiles when root exists but is not a directory.
var ErrNotDir = errors.New("not a directory")

// FS is the set of filesystem operations the pipeline depends on.
// Implementations must be safe for concurrent use.
type FS interface {
	// ListFiles returns the regular files below root whose relative path
	// matches pattern (doublestar syntax), sorted lexicographically.
	ListFiles(root, pattern string) ([]string, error)
	ReadBytes(path string) ([]byte, error)
	// WriteBytesAtomic writes data to a temporary file in the target
	// directory and renames it over path.
	WriteBytesAtomic(path string, data []byte) error
	// RemoveTree removes path and everything below it. A missing path is
	// not an error.
	RemoveTree(path string) error
	EnsureDir(path string) error
	Stat(path string) (fs.FileInfo, error)
}
