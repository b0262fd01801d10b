package naming

import (
	"path"
	"path/filepath"
	"strings"
)

// DerivativePath builds the target path for one derivative:
//
//	<destRoot>/<dir of rel>/<stem><suffix><ext>
//
// rel is slash-separated and relative to the source root. An empty ext
// keeps the source extension.
//
//	DerivativePath("dist/images", "a/photo.jpg", "-sm", "")      → dist/images/a/photo-sm.jpg
//	DerivativePath("dist/images", "a/photo.jpg", "-sm", ".webp") → dist/images/a/photo-sm.webp
func DerivativePath(destRoot, rel, suffix, ext string) string {
	dir, base := path.Split(rel)
	oldExt := path.Ext(base)
	stem := strings.TrimSuffix(base, oldExt)
	if stem == "" {
		// Dotfile such as ".logo": the whole name is the stem.
		stem, oldExt = base, ""
	}
	if ext == "" {
		ext = oldExt
	}
	return filepath.Join(destRoot, filepath.FromSlash(dir), stem+suffix+ext)
}

// RelTarget returns target relative to destRoot in slash form, for display.
// Paths outside destRoot are returned unchanged.
func RelTarget(destRoot, target string) string {
	rel, err := filepath.Rel(destRoot, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return target
	}
	return filepath.ToSlash(rel)
}
