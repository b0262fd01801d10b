package planner

import (
	"fmt"
	"strings"

	"github.com/backmassage/imgpipe/internal/codec"
)

// Status is the outcome of one derivative.
type Status int

const (
	StatusPlanned Status = iota
	StatusSucceeded
	StatusFailed
	StatusSkippedEnlargement
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusPlanned:
		return "planned"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkippedEnlargement:
		return "skipped-enlargement"
	case StatusCanceled:
		return "canceled"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Skipped reports whether the derivative was intentionally not produced.
func (s Status) Skipped() bool {
	return s == StatusSkippedEnlargement || s == StatusCanceled
}

// Asset is one enumerated source file. Width and Height are 0 until probed
// (and stay 0 when probing fails).
type Asset struct {
	Path   string       // Host path, as passed to the filesystem layer.
	Rel    string       // Slash-separated path relative to the stage source root.
	Format codec.Format // Sniffed when probed, otherwise from the extension.
	Width  int
	Height int
	Size   int64
}

// Descriptor is one transform of a rule. Width 0 keeps the source width.
// An empty Ext keeps the source extension. A zero PNGQuality derives the
// range from Quality.
type Descriptor struct {
	Width              int
	Quality            int
	Progressive        bool
	Suffix             string
	Ext                string
	WithoutEnlargement bool
	PNGQuality         [2]int
	SVG                codec.SVGOptions
}

// Label is a short human description used in logs and failure reports,
// e.g. "w360 q80 -sm .webp".
func (d Descriptor) Label() string {
	var parts []string
	if d.Width > 0 {
		parts = append(parts, fmt.Sprintf("w%d", d.Width))
	} else {
		parts = append(parts, "full")
	}
	parts = append(parts, fmt.Sprintf("q%d", d.Quality))
	if d.Suffix != "" {
		parts = append(parts, d.Suffix)
	}
	if d.Ext != "" {
		parts = append(parts, d.Ext)
	}
	if d.Progressive {
		parts = append(parts, "progressive")
	}
	return strings.Join(parts, " ")
}

// pngRange returns the explicit PNG range, or [Quality-10, Quality].
func (d Descriptor) pngRange() [2]int {
	if d.PNGQuality != [2]int{} {
		return d.PNGQuality
	}
	lo := d.Quality - 10
	if lo < 0 {
		lo = 0
	}
	return [2]int{lo, d.Quality}
}

// Options returns the codec options for this descriptor.
func (d Descriptor) Options() codec.Options {
	return codec.Options{
		Width: d.Width,
		JPEG:  codec.JPEGOptions{Quality: d.Quality, Progressive: d.Progressive},
		PNG:   codec.PNGOptions{QualityRange: d.pngRange()},
		WEBP:  codec.WEBPOptions{Quality: d.Quality},
		SVG:   d.SVG,
	}
}

// SkipsEnlargement reports whether the descriptor must not be produced for
// a source of the given width. Unknown widths (0) never skip.
func (d Descriptor) SkipsEnlargement(srcWidth int) bool {
	return d.WithoutEnlargement && d.Width > 0 && srcWidth > 0 && d.Width >= srcWidth
}

// Derivative is one planned output. Source is a copy of the asset's path
// information; the derivative does not own the asset.
type Derivative struct {
	Source     Asset
	Target     string
	Format     codec.Format // Follows the target extension; empty when unsupported.
	Descriptor Descriptor
	Rule       int
	Index      int

	Status   Status
	Err      error
	OutBytes int64
}

// ID identifies the derivative within a stage: "<rel>#<rule>.<index>".
func (d *Derivative) ID() string {
	return fmt.Sprintf("%s#%d.%d", d.Source.Rel, d.Rule, d.Index)
}
