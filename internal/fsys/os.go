package fsys

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

const tempMarker = ".imgpipe-tmp-"

// OS implements [FS] on the host filesystem.
type OS struct {
	// DirPerm and FilePerm default to 0755 and 0644.
	DirPerm  fs.FileMode
	FilePerm fs.FileMode
}

// NewOS returns an OS filesystem with default permissions.
func NewOS() *OS {
	return &OS{DirPerm: 0o755, FilePerm: 0o644}
}

// ListFiles enumerates files under root matching pattern. Leftover
// temporary files from interrupted writes are never listed.
func (o *OS) ListFiles(root, pattern string) ([]string, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, &fs.PathError{Op: "list", Path: root, Err: ErrNotDir}
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern,
		doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	files := matches[:0]
	for _, m := range matches {
		if IsTempName(m) {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// ReadBytes reads the whole file at path.
func (o *OS) ReadBytes(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteBytesAtomic writes data next to path under a unique temporary name,
// then renames it into place. Readers never observe a partial file.
func (o *OS) WriteBytesAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+tempMarker+uuid.NewString())

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, o.filePerm())
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// RemoveTree removes path recursively.
func (o *OS) RemoveTree(path string) error {
	return os.RemoveAll(path)
}

// EnsureDir creates path and any missing parents.
func (o *OS) EnsureDir(path string) error {
	return os.MkdirAll(path, o.dirPerm())
}

// Stat returns file info for path.
func (o *OS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (o *OS) dirPerm() fs.FileMode {
	if o.DirPerm == 0 {
		return 0o755
	}
	return o.DirPerm
}

func (o *OS) filePerm() fs.FileMode {
	if o.FilePerm == 0 {
		return 0o644
	}
	return o.FilePerm
}

// IsTempName reports whether name (a path or base name) is a temporary
// file left by WriteBytesAtomic.
func IsTempName(name string) bool {
	return strings.Contains(filepath.Base(name), tempMarker)
}
