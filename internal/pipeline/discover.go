package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/backmassage/imgpipe/internal/codec"
	"github.com/backmassage/imgpipe/internal/fsys"
	"github.com/backmassage/imgpipe/internal/planner"
)

// DefaultPattern enumerates every file below the source root.
const DefaultPattern = "**/*"

// Raster and vector extensions the analyze command inspects (lowercase,
// with leading dot).
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".svg":  true,
}

// Discover lists the files below root matching pattern and returns them as
// assets sorted by relative path. Format is taken from the extension until
// the asset is probed.
func Discover(fs fsys.FS, root, pattern string) ([]planner.Asset, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	rels, err := fs.ListFiles(root, pattern)
	if err != nil {
		return nil, err
	}
	assets := make([]planner.Asset, len(rels))
	for i, rel := range rels {
		f, _ := codec.FormatFromExt(filepath.Ext(rel))
		assets[i] = planner.Asset{
			Path:   filepath.Join(root, filepath.FromSlash(rel)),
			Rel:    rel,
			Format: f,
		}
	}
	return assets, nil
}

// isImage reports whether rel has an image extension.
func isImage(rel string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(rel))]
}
