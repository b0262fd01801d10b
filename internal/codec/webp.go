package codec

import (
	"bytes"
	"context"

	"github.com/chai2010/webp"
)

// WEBPEncoder encodes lossy WEBP through libwebp.
type WEBPEncoder struct{}

// Encode implements Encoder.
func (WEBPEncoder) Encode(ctx context.Context, src []byte, opts Options) ([]byte, error) {
	img, err := decodeRaster(ctx, src, opts.Width)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(clampQuality(opts.WEBP.Quality))}); err != nil {
		return nil, failure("encode webp", err)
	}
	return buf.Bytes(), nil
}
