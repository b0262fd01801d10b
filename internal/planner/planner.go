package planner

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/backmassage/imgpipe/internal/codec"
	"github.com/backmassage/imgpipe/internal/config"
	"github.com/backmassage/imgpipe/internal/naming"
)

// Rule maps a glob pattern to an ordered list of descriptors.
type Rule struct {
	Pattern     string
	Descriptors []Descriptor
}

// Matches reports whether rel (slash-separated) matches the rule pattern.
func (r Rule) Matches(rel string) bool {
	ok, err := doublestar.Match(r.Pattern, rel)
	return err == nil && ok
}

// VariantSpec is the static derivative table of one stage. Targets are
// built below DestRoot.
type VariantSpec struct {
	DestRoot string
	Rules    []Rule
}

// NewVariantSpec validates every pattern and returns the spec.
func NewVariantSpec(destRoot string, rules ...Rule) (*VariantSpec, error) {
	for i, r := range rules {
		if !doublestar.ValidatePattern(r.Pattern) {
			return nil, fmt.Errorf("rule %d: invalid pattern %q", i, r.Pattern)
		}
		if len(r.Descriptors) == 0 {
			return nil, fmt.Errorf("rule %d (%s): no descriptors", i, r.Pattern)
		}
	}
	return &VariantSpec{DestRoot: destRoot, Rules: rules}, nil
}

// FromConfig compiles configured resize rules into a VariantSpec. svg is
// attached to every descriptor.
func FromConfig(destRoot string, rules []config.Rule, svg config.SVGOptions) (*VariantSpec, error) {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		pr := Rule{Pattern: r.Pattern}
		for _, t := range r.Transforms {
			pr.Descriptors = append(pr.Descriptors, FromTransform(t, svg))
		}
		out = append(out, pr)
	}
	return NewVariantSpec(destRoot, out...)
}

// FromTransform converts one configured transform.
func FromTransform(t config.Transform, svg config.SVGOptions) Descriptor {
	d := Descriptor{
		Width:              t.Width,
		Quality:            t.Quality,
		Progressive:        t.Progressive,
		Suffix:             t.Suffix,
		Ext:                t.Ext,
		WithoutEnlargement: t.WithoutEnlargement,
		SVG:                codec.SVGOptions{RemoveViewBox: svg.RemoveViewBox, CleanupIDs: svg.CleanupIDs},
	}
	if len(t.PNGQuality) == 2 {
		d.PNGQuality = [2]int{t.PNGQuality[0], t.PNGQuality[1]}
	}
	return d
}

// NeedsDimensions reports whether planning a depends on its probed width,
// i.e. some matching descriptor resizes without enlargement.
func (s *VariantSpec) NeedsDimensions(a Asset) bool {
	for _, r := range s.Rules {
		if !r.Matches(a.Rel) {
			continue
		}
		for _, d := range r.Descriptors {
			if d.WithoutEnlargement && d.Width > 0 {
				return true
			}
		}
	}
	return false
}

// Plan returns the derivatives of a under s in rule order, then descriptor
// order. Descriptors that would upscale a are listed as
// StatusSkippedEnlargement; all others are StatusPlanned.
func Plan(a Asset, s *VariantSpec) []Derivative {
	var out []Derivative
	for ri, r := range s.Rules {
		if !r.Matches(a.Rel) {
			continue
		}
		for di, d := range r.Descriptors {
			target := naming.DerivativePath(s.DestRoot, a.Rel, d.Suffix, d.Ext)
			f, _ := codec.FormatFromExt(filepath.Ext(target))
			dv := Derivative{
				Source:     a,
				Target:     target,
				Format:     f,
				Descriptor: d,
				Rule:       ri,
				Index:      di,
				Status:     StatusPlanned,
			}
			if d.SkipsEnlargement(a.Width) {
				dv.Status = StatusSkippedEnlargement
			}
			out = append(out, dv)
		}
	}
	return out
}
