// Package stage defines the named stages of the image pipeline, resolves
// stage lists given on the command line, and runs them in order with
// fail-fast handling.
package stage

import "strings"

// Name is a canonical stage identifier.
type Name string

// Canonical stage names.
const (
	Clean     Name = "clean"
	DelJPEG   Name = "del-jpeg"
	Optimize  Name = "optimize"
	Resize    Name = "resize"
	ToWEBP    Name = "to-webp"
	PNGToJPG  Name = "png-to-jpg"
	JPEGToJPG Name = "jpeg-to-jpg"
	Vector    Name = "vector"
	Compress  Name = "compress" // Composite: clean, then resize.
)

// aliases maps alternative spellings to canonical names.
var aliases = map[string]Name{
	"image":           Optimize,
	"convert-to-webp": ToWEBP,
	"vectorize":       Vector,
}

// composites expand to an ordered list of stages.
var composites = map[Name][]Name{
	Compress: {Clean, Resize},
}

// All returns the runnable stage names in catalog order.
func All() []Name {
	return []Name{Clean, DelJPEG, Optimize, Resize, ToWEBP, PNGToJPG, JPEGToJPG, Vector}
}

// Canonical returns the canonical name for s, following aliases. The
// second result is false for unknown names.
func Canonical(s string) (Name, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, ok := aliases[s]; ok {
		return n, true
	}
	n := Name(s)
	if _, ok := composites[n]; ok {
		return n, true
	}
	for _, known := range All() {
		if n == known {
			return n, true
		}
	}
	return "", false
}
