// Package codec is the uniform encode interface over the format backends.
//
// An [Adapter] maps a target [Format] to an [Encoder]. Every encoder takes
// the full source bytes (any decodable raster format, or SVG text for the
// vector backend) and returns the encoded target bytes. Encoders never touch
// the filesystem.
package codec

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Sentinel errors. Backend errors are wrapped with ErrCodecFailure so
// callers can classify with errors.Is while keeping the underlying message.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCodecFailure      = errors.New("codec failure")
)

// Format is an encode target.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	WEBP Format = "webp"
	SVG  Format = "svg"
)

// FormatFromExt maps a file extension (with or without the dot, any case)
// to a Format.
func FormatFromExt(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return JPEG, true
	case "png":
		return PNG, true
	case "webp":
		return WEBP, true
	case "svg":
		return SVG, true
	}
	return "", false
}

// FormatFromMIME maps a sniffed MIME type to a Format.
func FormatFromMIME(mime string) (Format, bool) {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	switch strings.TrimSpace(mime) {
	case "image/jpeg":
		return JPEG, true
	case "image/png":
		return PNG, true
	case "image/webp":
		return WEBP, true
	case "image/svg+xml":
		return SVG, true
	}
	return "", false
}

// JPEGOptions configures JPEG output.
type JPEGOptions struct {
	Quality     int // 0-100
	Progressive bool
}

// PNGOptions configures palette quantization. QualityRange is [min, max],
// each 0-100.
type PNGOptions struct {
	QualityRange [2]int
}

// WEBPOptions configures lossy WEBP output.
type WEBPOptions struct {
	Quality int // 0-100
}

// SVGOptions toggles the SVG cleanup passes run before minification.
type SVGOptions struct {
	RemoveViewBox bool
	CleanupIDs    bool
}

// Options carries the per-format settings of one encode. Only the block
// matching the target format is consulted. Width 0 keeps the source size;
// the aspect ratio is always preserved.
type Options struct {
	Width int
	JPEG  JPEGOptions
	PNG   PNGOptions
	WEBP  WEBPOptions
	SVG   SVGOptions
}

// Encoder produces one target format from source bytes.
type Encoder interface {
	Encode(ctx context.Context, src []byte, opts Options) ([]byte, error)
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc func(ctx context.Context, src []byte, opts Options) ([]byte, error)

// Encode calls f.
func (f EncoderFunc) Encode(ctx context.Context, src []byte, opts Options) ([]byte, error) {
	return f(ctx, src, opts)
}

// Adapter dispatches encodes to the registered backend of each format.
// It is safe for concurrent use.
type Adapter struct {
	mu       sync.RWMutex
	encoders map[Format]Encoder
}

// NewAdapter returns an adapter with no backends registered.
func NewAdapter() *Adapter {
	return &Adapter{encoders: make(map[Format]Encoder)}
}

// Default returns an adapter with the built-in backend of every format.
func Default() *Adapter {
	a := NewAdapter()
	a.Register(JPEG, JPEGEncoder{})
	a.Register(PNG, PNGEncoder{})
	a.Register(WEBP, WEBPEncoder{})
	a.Register(SVG, SVGEncoder{})
	return a
}

// Register sets (or replaces) the backend for f.
func (a *Adapter) Register(f Format, enc Encoder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.encoders[f] = enc
}

// Formats returns the registered formats, sorted.
func (a *Adapter) Formats() []Format {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Format, 0, len(a.encoders))
	for f := range a.encoders {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Encode converts src to format f. It returns ErrUnsupportedFormat when no
// backend is registered, and wraps backend errors with ErrCodecFailure.
func (a *Adapter) Encode(ctx context.Context, src []byte, f Format, opts Options) ([]byte, error) {
	a.mu.RLock()
	enc, ok := a.encoders[f]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := enc.Encode(ctx, src, opts)
	if err != nil {
		if errors.Is(err, ErrCodecFailure) || errors.Is(err, ErrUnsupportedFormat) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrCodecFailure, f, err)
	}
	return out, nil
}

// failure wraps a backend error with ErrCodecFailure and the failing step.
func failure(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCodecFailure, step, err)
}
