// Package config holds runtime configuration: defaults, file/env/flag
// layering, and validation. Defaults describe a conventional static-site
// layout (src/ → dist/, quality 80, widths 360/480/720/1200).
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shirou/gopsutil/v3/cpu"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Transform is the declarative form of one derivative rule entry. Width 0
// means "keep source width". An empty Ext keeps the source extension.
type Transform struct {
	Width              int    `yaml:"width,omitempty" validate:"gte=0"`
	Quality            int    `yaml:"quality" validate:"gte=0,lte=100"`
	Progressive        bool   `yaml:"progressive,omitempty"`
	Suffix             string `yaml:"suffix,omitempty"`
	Ext                string `yaml:"ext,omitempty" validate:"omitempty,startswith=."`
	WithoutEnlargement bool   `yaml:"without_enlargement,omitempty"`
	PNGQuality         []int  `yaml:"png_quality,omitempty" validate:"omitempty,len=2,dive,gte=0,lte=100"`
}

// Rule maps a glob pattern (relative to the stage source root) to an
// ordered list of transforms.
type Rule struct {
	Pattern    string      `yaml:"pattern" validate:"required"`
	Transforms []Transform `yaml:"transforms" validate:"required,min=1,dive"`
}

// SVGOptions toggles the SVG cleanup passes.
type SVGOptions struct {
	RemoveViewBox bool `yaml:"remove_viewbox"`
	CleanupIDs    bool `yaml:"cleanup_ids"`
}

// QualityConfig holds the per-format defaults used by the optimize and
// conversion stages.
type QualityConfig struct {
	JPEG int   `yaml:"jpeg" validate:"gte=0,lte=100"`
	WEBP int   `yaml:"webp" validate:"gte=0,lte=100"`
	PNG  []int `yaml:"png" validate:"len=2,dive,gte=0,lte=100"`
}

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then by an optional YAML file, the environment and finally CLI flags
// (see [Load]) before being passed by pointer to the packages that need it.
type Config struct {
	// Paths.
	SourceRoot string `yaml:"source" validate:"required"`
	DestRoot   string `yaml:"dest" validate:"required"`
	ImagesDir  string `yaml:"images_dir" validate:"required"`  // Default: "images".
	VectorsDir string `yaml:"vectors_dir" validate:"required"` // Default: "vectors".

	// Execution.
	Workers int           `yaml:"workers" validate:"gte=1,lte=1024"` // Default: logical CPUs.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`          // Per derivative; 0 disables.

	// Codec defaults.
	Quality QualityConfig `yaml:"quality"`
	SVG     SVGOptions    `yaml:"svg"`

	// Responsive variants for the resize stage.
	Resize []Rule `yaml:"resize" validate:"required,min=1,dive"`

	// Stage name → fail-fast. Default: clean only.
	FailFast map[string]bool `yaml:"fail_fast"`

	// Behavior flags.
	DryRun        bool          `yaml:"dry_run"`
	FailFastAll   bool          `yaml:"-"`
	Watch         bool          `yaml:"-"`
	WatchDebounce time.Duration `yaml:"watch_debounce" validate:"gte=0"`

	// Display and logging.
	Verbose   bool      `yaml:"verbose"`
	ColorMode ColorMode `yaml:"color"`
	LogFile   string    `yaml:"log_file"`

	// CLI-only.
	ConfigFile  string   `yaml:"-"`
	EnvFile     string   `yaml:"-"`
	CheckOnly   bool     `yaml:"-"`
	ShowHelp    bool     `yaml:"-"`
	ShowVersion bool     `yaml:"-"`
	Commands    []string `yaml:"-"` // Positional stage names, in order.
}

// DefaultConfig returns a Config with sources in src/images and
// src/vectors, outputs in dist/, JPEG/WEBP quality 80, PNG quality range
// 70-80, viewBox removal on and id cleanup off.
func DefaultConfig() Config {
	return Config{
		SourceRoot: "src",
		DestRoot:   "dist",
		ImagesDir:  "images",
		VectorsDir: "vectors",
		Workers:    DefaultWorkers(),
		Quality: QualityConfig{
			JPEG: 80,
			WEBP: 80,
			PNG:  []int{70, 80},
		},
		SVG:           SVGOptions{RemoveViewBox: true, CleanupIDs: false},
		Resize:        DefaultResizeRules(),
		FailFast:      map[string]bool{"clean": true},
		WatchDebounce: 300 * time.Millisecond,
		ColorMode:     ColorAuto,
	}
}

// DefaultResizeRules returns the default responsive variant table of the
// resize stage: four widths plus a full-size copy for PNG/JPEG sources, and
// the same set re-encoded to WEBP for every image.
func DefaultResizeRules() []Rule {
	sizes := []struct {
		width  int
		suffix string
	}{
		{360, "-sm"},
		{480, "-md"},
		{720, "-lg"},
		{1200, "-xl"},
	}

	raster := Rule{Pattern: "**/*.{png,jpg}"}
	webp := Rule{Pattern: "**/*"}
	for _, s := range sizes {
		raster.Transforms = append(raster.Transforms, Transform{
			Width:              s.width,
			Quality:            80,
			Progressive:        s.suffix != "-md", // -md stays baseline.
			Suffix:             s.suffix,
			WithoutEnlargement: true,
		})
		webp.Transforms = append(webp.Transforms, Transform{
			Width:              s.width,
			Quality:            80,
			Suffix:             s.suffix,
			Ext:                ".webp",
			WithoutEnlargement: true,
		})
	}
	raster.Transforms = append(raster.Transforms, Transform{Quality: 80, Progressive: true})
	webp.Transforms = append(webp.Transforms, Transform{Quality: 80, Ext: ".webp"})
	return []Rule{raster, webp}
}

// DefaultWorkers returns the number of logical CPUs, falling back to the Go
// runtime's view when the host cannot be inspected.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// ImagesSource is the source directory of raster images.
func (c *Config) ImagesSource() string { return filepath.Join(c.SourceRoot, c.ImagesDir) }

// ImagesDest is the destination directory of raster images.
func (c *Config) ImagesDest() string { return filepath.Join(c.DestRoot, c.ImagesDir) }

// VectorsSource is the source directory of SVG files.
func (c *Config) VectorsSource() string { return filepath.Join(c.SourceRoot, c.VectorsDir) }

// VectorsDest is the destination directory of SVG files.
func (c *Config) VectorsDest() string { return filepath.Join(c.DestRoot, c.VectorsDir) }

// IsFailFast reports whether the named stage halts the run on failure.
func (c *Config) IsFailFast(stage string) bool {
	return c.FailFastAll || c.FailFast[stage]
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints (ranges, required paths, rule shape)
// and enum fields. Outside CheckOnly mode at least one command is required.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", c.ColorMode)
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Quality.PNG[0] > c.Quality.PNG[1] {
		return fmt.Errorf("invalid png quality range %d-%d (min must not exceed max)", c.Quality.PNG[0], c.Quality.PNG[1])
	}
	for i, r := range c.Resize {
		for j, t := range r.Transforms {
			if len(t.PNGQuality) == 2 && t.PNGQuality[0] > t.PNGQuality[1] {
				return fmt.Errorf("resize[%d].transforms[%d]: png quality min exceeds max", i, j)
			}
		}
	}

	if c.CheckOnly {
		return nil
	}
	if len(c.Commands) == 0 {
		return errors.New("need at least one command (e.g. resize, compress, to-webp)")
	}
	return nil
}

// ValidatePaths ensures the resolved destination is neither the source nor
// nested inside it, and that the source is not nested inside the
// destination. The clean stage removes the destination tree, so either
// overlap would destroy sources. Both arguments must be absolute,
// symlink-resolved paths.
func (c *Config) ValidatePaths(sourceAbs, destAbs string) error {
	sep := string(filepath.Separator)
	if destAbs == sourceAbs || strings.HasPrefix(destAbs+sep, sourceAbs+sep) {
		return errors.New("destination directory must not be inside source directory")
	}
	if strings.HasPrefix(sourceAbs+sep, destAbs+sep) {
		return errors.New("source directory must not be inside destination directory")
	}
	return nil
}
