// Package term decides whether console output is colored and paints text
// with ANSI sequences.
//
// [Configure] is called once during startup (from logging.NewLogger).
// When colors are off [Paint] returns its input unchanged, so callers never
// branch on the color state themselves.
package term

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/backmassage/imgpipe/internal/config"
)

// Color is an ANSI foreground style.
type Color int

const (
	None Color = iota
	Red
	Green
	Yellow
	Orange
	Blue
	Cyan
	Magenta
	Dim
)

var codes = [...]string{
	None:    "",
	Red:     "\033[1;91m",
	Green:   "\033[1;92m",
	Yellow:  "\033[1;93m",
	Orange:  "\033[1;38;5;208m",
	Blue:    "\033[1;94m",
	Cyan:    "\033[1;96m",
	Magenta: "\033[1;95m",
	Dim:     "\033[2m",
}

const reset = "\033[0m"

var enabled atomic.Bool

// Configure resolves mode against the environment and switches colors on
// or off for the whole process.
func Configure(mode config.ColorMode) {
	enabled.Store(resolve(mode))
}

// Enabled reports whether ANSI colors are currently active.
func Enabled() bool { return enabled.Load() }

// Paint wraps s in the sequence for c. It returns s unchanged when colors
// are off or c is None.
func Paint(c Color, s string) string {
	if c == None || int(c) >= len(codes) || !enabled.Load() {
		return s
	}
	return codes[c] + s + reset
}

// resolve applies, in order: the explicit mode, CLICOLOR_FORCE, NO_COLOR
// (https://no-color.org), TERM=dumb and finally TTY detection on stdout.
func resolve(mode config.ColorMode) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if v := os.Getenv("CLICOLOR_FORCE"); v != "" && v != "0" {
		return true
	}
	if os.Getenv("NO_COLOR") != "" || strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return false
	}
	return IsTerminal(os.Stdout)
}

// IsTerminal reports whether f is attached to a TTY (character device).
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
