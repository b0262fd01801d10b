package stage

import (
	"errors"
	"fmt"

	"github.com/backmassage/imgpipe/internal/codec"
	"github.com/backmassage/imgpipe/internal/config"
	"github.com/backmassage/imgpipe/internal/planner"
)

// ErrUnknownStage is returned by Resolve for names that are neither a
// stage, an alias nor a composite.
var ErrUnknownStage = errors.New("unknown stage")

// Kind selects how a stage is executed.
type Kind int

const (
	KindTransform Kind = iota // Plan and encode derivatives.
	KindClean                 // Remove Root.
	KindDelete                // Delete files below Root matching Pattern.
)

func (k Kind) String() string {
	switch k {
	case KindClean:
		return "clean"
	case KindDelete:
		return "delete"
	default:
		return "transform"
	}
}

// Definition is one executable stage.
type Definition struct {
	Name     Name
	Kind     Kind
	Root     string // Source root for transforms, target for clean/delete.
	Pattern  string // Enumeration glob; empty means every file.
	Spec     *planner.VariantSpec
	FailFast bool
}

// Catalog builds the definitions of every stage from cfg.
func Catalog(cfg *config.Config) (map[Name]Definition, error) {
	svg := codec.SVGOptions{RemoveViewBox: cfg.SVG.RemoveViewBox, CleanupIDs: cfg.SVG.CleanupIDs}
	var pngRange [2]int
	if len(cfg.Quality.PNG) == 2 {
		pngRange = [2]int{cfg.Quality.PNG[0], cfg.Quality.PNG[1]}
	}
	imagesDest := cfg.ImagesDest()

	resize, err := planner.FromConfig(imagesDest, cfg.Resize, cfg.SVG)
	if err != nil {
		return nil, fmt.Errorf("resize rules: %w", err)
	}

	single := func(dest string, d planner.Descriptor) *planner.VariantSpec {
		s, _ := planner.NewVariantSpec(dest, planner.Rule{Pattern: "**/*", Descriptors: []planner.Descriptor{d}})
		return s
	}

	defs := []Definition{
		{Name: Clean, Kind: KindClean, Root: cfg.DestRoot},
		{Name: DelJPEG, Kind: KindDelete, Root: imagesDest, Pattern: "**/*.jpeg"},
		{
			// In place: targets are the enumerated files themselves.
			Name: Optimize, Root: imagesDest, Pattern: "**/*.{jpg,jpeg,png,svg}",
			Spec: single(imagesDest, planner.Descriptor{
				Quality: cfg.Quality.JPEG, Progressive: true, PNGQuality: pngRange, SVG: svg,
			}),
		},
		{Name: Resize, Root: cfg.ImagesSource(), Spec: resize},
		{
			Name: ToWEBP, Root: cfg.ImagesSource(),
			Spec: single(imagesDest, planner.Descriptor{Quality: cfg.Quality.WEBP, Ext: ".webp"}),
		},
		{
			Name: PNGToJPG, Root: imagesDest, Pattern: "**/*.png",
			Spec: single(imagesDest, planner.Descriptor{Quality: cfg.Quality.JPEG, Ext: ".jpg"}),
		},
		{
			Name: JPEGToJPG, Root: imagesDest, Pattern: "**/*.jpeg",
			Spec: single(imagesDest, planner.Descriptor{Quality: cfg.Quality.JPEG, Progressive: true, Ext: ".jpg"}),
		},
		{
			Name: Vector, Root: cfg.VectorsSource(), Pattern: "**/*.svg",
			Spec: single(cfg.VectorsDest(), planner.Descriptor{SVG: svg}),
		},
	}

	out := make(map[Name]Definition, len(defs))
	for _, d := range defs {
		d.FailFast = cfg.IsFailFast(string(d.Name))
		out[d.Name] = d
	}
	return out, nil
}

// Resolve expands names (aliases and composites included) into the ordered
// list of definitions to run. Within a composite every stage but the last
// is fail-fast.
func Resolve(cfg *config.Config, names ...string) ([]Definition, error) {
	catalog, err := Catalog(cfg)
	if err != nil {
		return nil, err
	}
	var out []Definition
	for _, raw := range names {
		n, ok := Canonical(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStage, raw)
		}
		parts, composite := composites[n]
		if !composite {
			out = append(out, catalog[n])
			continue
		}
		for i, p := range parts {
			d := catalog[p]
			if i < len(parts)-1 {
				d.FailFast = true
			}
			out = append(out, d)
		}
	}
	return out, nil
}
