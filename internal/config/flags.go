package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into paths, execution, behavior, display, and utility.
// Negated flags (e.g. --no-color) are applied after Parse so Config defaults hold unless set.

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Version is shown in --version and help; override at build time with
// -ldflags "-X github.com/backmassage/imgpipe/internal/config.Version=...".
var Version = "1.0.0-dev"

// ParseFlags parses args (without the program name) into cfg. Positional
// arguments become cfg.Commands. --help and --version only set
// ShowHelp/ShowVersion; the caller decides what to print.
func ParseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("imgpipe", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var negated negatedFlags

	definePathFlags(fs, cfg)
	defineExecutionFlags(fs, cfg)
	defineBehaviorFlags(fs, cfg, &negated)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, cfg)

	if err := fs.Parse(interleave(fs, args)); err != nil {
		if err == flag.ErrHelp {
			cfg.ShowHelp = true
			return nil
		}
		return err
	}

	applyNegatedFlags(cfg, &negated)

	if args := fs.Args(); len(args) > 0 {
		cfg.Commands = append([]string(nil), args...)
	}
	return nil
}

// negatedFlags holds boolean flags that are applied after Parse.
type negatedFlags struct {
	forceColor bool
	noColor    bool
}

// definePathFlags registers --src, --dest, --images-dir, --vectors-dir.
func definePathFlags(fs *flag.FlagSet, cfg *Config) {
	fs.Var(&dirValue{&cfg.SourceRoot}, "src", "Source root (default: src)")
	fs.Var(&dirValue{&cfg.SourceRoot}, "s", "Same as --src")
	fs.Var(&dirValue{&cfg.DestRoot}, "dest", "Destination root (default: dist)")
	fs.Var(&dirValue{&cfg.DestRoot}, "o", "Same as --dest")
	fs.StringVar(&cfg.ImagesDir, "images-dir", cfg.ImagesDir, "Image subdirectory below both roots")
	fs.StringVar(&cfg.VectorsDir, "vectors-dir", cfg.VectorsDir, "Vector subdirectory below both roots")
}

// defineExecutionFlags registers -j/--workers and --timeout.
func defineExecutionFlags(fs *flag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent derivative workers")
	fs.IntVar(&cfg.Workers, "j", cfg.Workers, "Same as --workers")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-derivative codec timeout (0 = none)")
}

// defineBehaviorFlags registers dry-run, fail-fast, watch and config sources.
func defineBehaviorFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Plan and report only; write nothing")
	fs.BoolVar(&cfg.DryRun, "d", cfg.DryRun, "Same as --dry-run")
	fs.BoolVar(&cfg.FailFastAll, "fail-fast", false, "Halt the run after any failing stage")
	fs.BoolVar(&cfg.Watch, "watch", false, "Re-run the stages when sources change")
	fs.BoolVar(&cfg.Watch, "w", false, "Same as --watch")
	fs.StringVar(&cfg.ConfigFile, "config", "", "YAML pipeline configuration file")
	fs.StringVar(&cfg.EnvFile, "env-file", "", "Load IMGPIPE_* variables from this file (default: .env if present)")
}

// defineDisplayFlags registers --color, --no-color, verbose, --log.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Same as --verbose")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "Same as --log")
}

// defineUtilityFlags registers --check, --version and --help.
func defineUtilityFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")
	fs.BoolVar(&cfg.ShowVersion, "V", false, "Same as --version")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated and override flag values into cfg.
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// interleave moves positional arguments behind the flags so that
// "imgpipe resize --dry-run" parses the same as "imgpipe --dry-run resize".
// Arguments after a literal "--" are kept positional.
func interleave(fs *flag.FlagSet, args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(a, "-") || a == "-" {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			continue
		}
		if i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	if len(positional) == 0 {
		return flags
	}
	return append(append(flags, "--"), positional...)
}

// PrintUsage writes the help text to w. Column-aligned for readability.
func PrintUsage(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	const col1 = 30 // width of "  -x, --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "imgpipe v" + Version + " - batch image derivative pipeline"},
		{"", ""},
		{"  imgpipe [OPTIONS] <stage> [stage...]", ""},
		{"  imgpipe [OPTIONS] analyze", ""},
		{"", ""},
		{"Stages", ""},
		{"  clean", "Remove the destination root"},
		{"  resize", "Responsive variants from source images"},
		{"  compress", "clean, then resize (clean is fail-fast)"},
		{"  optimize, image", "Recompress destination images in place"},
		{"  to-webp", "WEBP copy of every source image"},
		{"  png-to-jpg", "Convert destination PNG files to JPG"},
		{"  jpeg-to-jpg", "Rename destination .jpeg files to progressive .jpg"},
		{"  del-jpeg", "Delete destination .jpeg files"},
		{"  vector, vectorize", "Optimize source SVG files into the destination"},
		{"", ""},
		{"Paths", ""},
		{"  -s, --src <dir>", "Source root (default: src)"},
		{"  -o, --dest <dir>", "Destination root (default: dist)"},
		{"  --images-dir <name>", "Image subdirectory (default: images)"},
		{"  --vectors-dir <name>", "Vector subdirectory (default: vectors)"},
		{"", ""},
		{"Execution", ""},
		{"  -j, --workers <n>", "Concurrent workers (default: logical CPUs)"},
		{"  --timeout <dur>", "Per-derivative codec timeout (default: none)"},
		{"  -d, --dry-run", "Plan and report only"},
		{"  --fail-fast", "Halt after any failing stage"},
		{"  -w, --watch", "Re-run on source changes"},
		{"  --config <file>", "YAML pipeline configuration"},
		{"  --env-file <file>", "IMGPIPE_* variables (default: .env)"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"  -l, --log <path>", "Append logs to file"},
		{"", ""},
		{"Utility", ""},
		{"  -c, --check", "System diagnostics (codecs, CPU, paths)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(w)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(w, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(w, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(w, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// dirValue is a flag.Value that normalizes trailing slashes on set.
type dirValue struct{ p *string }

func (d *dirValue) String() string {
	if d.p == nil {
		return ""
	}
	return *d.p
}

func (d *dirValue) Set(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("directory must not be empty")
	}
	*d.p = NormalizeDirArg(s)
	return nil
}
