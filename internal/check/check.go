// Package check provides system diagnostics (--check mode) and the
// pre-run validation (Preflight) of codecs and destination paths.
package check

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/backmassage/imgpipe/internal/codec"
	"github.com/backmassage/imgpipe/internal/config"
	"github.com/backmassage/imgpipe/internal/display"
)

// Sentinel errors returned by Preflight.
var (
	ErrCodecSelfTest = errors.New("codec self-test failed")
	ErrDestNotDir    = errors.New("destination exists but is not a directory")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// Encoder is the codec capability exercised by the self-test.
type Encoder interface {
	Encode(ctx context.Context, src []byte, f codec.Format, opts codec.Options) ([]byte, error)
	Formats() []codec.Format
}

// RunCheck runs the interactive --check flow: codec self-tests, host CPU and
// memory, and presence of the configured directories. This is
// informational only; it does not stop on failure.
func RunCheck(cfg *config.Config, enc Encoder, log Logger) {
	log.Info("=== System Check ===")

	checkCodecs(enc, log)
	checkHost(cfg, log)
	checkPaths(cfg, log)
}

// checkCodecs encodes a small sample into every registered format.
func checkCodecs(enc Encoder, log Logger) {
	log.Info("Codecs:")
	for _, f := range enc.Formats() {
		out, err := selfTest(enc, f)
		if err != nil {
			log.Error("  %s: %v", f, err)
			continue
		}
		log.Success("  %s: ok (%s sample)", f, display.FormatBytes(int64(len(out))))
	}
}

// checkHost logs the CPU model, logical core count and available memory.
func checkHost(cfg *config.Config, log Logger) {
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		log.Info("CPU: %s", infos[0].ModelName)
	}
	if n, err := cpu.Counts(true); err == nil {
		log.Info("Logical CPUs: %d (workers: %d)", n, cfg.Workers)
	} else {
		log.Warn("Could not count CPUs: %v", err)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		log.Info("Memory: %s available of %s", display.FormatBytes(int64(vm.Available)), display.FormatBytes(int64(vm.Total)))
	} else {
		log.Warn("Could not read memory: %v", err)
	}
}

// checkPaths reports whether the source and destination directories exist.
func checkPaths(cfg *config.Config, log Logger) {
	for _, p := range []struct{ label, path string }{
		{"Images source", cfg.ImagesSource()},
		{"Vectors source", cfg.VectorsSource()},
	} {
		if fi, err := os.Stat(p.path); err == nil && fi.IsDir() {
			log.Success("%s: %s", p.label, p.path)
		} else {
			log.Warn("%s missing: %s", p.label, p.path)
		}
	}
	if err := checkDest(cfg.DestRoot); err != nil {
		log.Error("Destination %s: %v", cfg.DestRoot, err)
	} else {
		log.Info("Destination: %s", cfg.DestRoot)
	}
}

// Preflight is the pre-run validation: every registered codec must pass its
// self-test and the destination root, if present, must be a directory.
// Returns a sentinel error on failure.
func Preflight(cfg *config.Config, enc Encoder) error {
	for _, f := range enc.Formats() {
		if _, err := selfTest(enc, f); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrCodecSelfTest, f, err)
		}
	}
	return checkDest(cfg.DestRoot)
}

func checkDest(dest string) error {
	fi, err := os.Stat(dest)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return ErrDestNotDir
	}
	return nil
}

// --- internal helpers ---

const sampleSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16" viewBox="0 0 16 16"><rect id="r" width="16" height="16" fill="#c33"/></svg>`

// selfTest encodes a 16x16 sample into f at the default quality.
func selfTest(enc Encoder, f codec.Format) ([]byte, error) {
	src := []byte(sampleSVG)
	if f != codec.SVG {
		var err error
		if src, err = samplePNG(); err != nil {
			return nil, err
		}
	}
	opts := codec.Options{
		Width: 8,
		JPEG:  codec.JPEGOptions{Quality: 80},
		PNG:   codec.PNGOptions{QualityRange: [2]int{70, 80}},
		WEBP:  codec.WEBPOptions{Quality: 80},
		SVG:   codec.SVGOptions{RemoveViewBox: true},
	}
	return enc.Encode(context.Background(), src, f, opts)
}

// samplePNG returns a 16x16 gradient with partial transparency.
func samplePNG() ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 16), uint8(y * 16), 128, uint8(128 + x*8)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
