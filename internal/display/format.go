// Package display formats sizes, ratios and the startup banner for
// console output.
package display

import (
	"fmt"
	"math"
)

var binaryUnits = [...]string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// FormatBytes returns a human-readable binary size such as "340.0 KiB".
// Values below 1 KiB are printed exactly.
func FormatBytes(n int64) string {
	if n > -1024 && n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	v, i := float64(n)/1024, 0
	for math.Abs(v) >= 1024 && i < len(binaryUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", v, binaryUnits[i])
}

// FormatSavings describes the size change from in to out, e.g.
// "Space saved: 1.2 MiB (34.0%)" or "Output grew by 512 B (12.0%)".
func FormatSavings(in, out int64) string {
	d := in - out
	if d >= 0 {
		return fmt.Sprintf("Space saved: %s (%s)", FormatBytes(d), FormatRatio(d, in))
	}
	return fmt.Sprintf("Output grew by %s (%s)", FormatBytes(-d), FormatRatio(-d, in))
}

// FormatRatio returns part as a percentage of whole (e.g. "42.0%"), or
// "n/a" when whole is zero.
func FormatRatio(part, whole int64) string {
	if whole <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(whole))
}

// FormatDimensions returns "WxH", or "?" when either side is unknown.
func FormatDimensions(w, h int) string {
	if w <= 0 || h <= 0 {
		return "?"
	}
	return fmt.Sprintf("%dx%d", w, h)
}
