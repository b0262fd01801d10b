package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // registers GIF for DecodeConfig
	_ "image/jpeg" // registers JPEG for DecodeConfig
	_ "image/png"  // registers PNG for DecodeConfig
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"  // registers BMP for DecodeConfig
	_ "golang.org/x/image/tiff" // registers TIFF for DecodeConfig
	_ "golang.org/x/image/webp" // registers WEBP for DecodeConfig

	"github.com/backmassage/imgpipe/internal/codec"
	"github.com/backmassage/imgpipe/internal/fsys"
)

// ErrNotImage is returned for content that is neither a raster image nor SVG.
var ErrNotImage = errors.New("not an image")

// Probe reads path through fs and inspects it.
func Probe(ctx context.Context, fs fsys.FS, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadBytes(path)
	if err != nil {
		return nil, fmt.Errorf("probe %q: %w", path, err)
	}
	r, err := ProbeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("probe %q: %w", path, err)
	}
	return r, nil
}

// ProbeBytes inspects in-memory content. Exported for callers that already
// hold the bytes.
func ProbeBytes(data []byte) (*Result, error) {
	mt := mimetype.Detect(data)
	r := &Result{MIME: mt.String(), Size: int64(len(data))}
	if f, ok := codec.FormatFromMIME(r.MIME); ok {
		r.Format = f
	}

	if mt.Is("image/svg+xml") {
		w, h, err := codec.SVGSize(data)
		if err != nil {
			return r, err
		}
		r.Width, r.Height = w, h
		return r, nil
	}

	if !strings.HasPrefix(r.MIME, "image/") {
		return r, fmt.Errorf("%w (detected %s)", ErrNotImage, r.MIME)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return r, fmt.Errorf("decode header: %w", err)
	}
	r.Width, r.Height = cfg.Width, cfg.Height
	if r.Format == codec.JPEG {
		r.Orientation = jpegOrientation(data)
		if r.Orientation >= 5 {
			// Orientations 5-8 rotate by 90 degrees.
			r.Width, r.Height = r.Height, r.Width
		}
	}
	return r, nil
}
