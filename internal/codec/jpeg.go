package codec

import (
	"bytes"
	"context"
	"image"
	"image/draw"

	libjpeg "github.com/pixiv/go-libjpeg/jpeg"
)

// JPEGEncoder encodes JPEG through libjpeg with optimized Huffman tables,
// baseline or progressive per JPEGOptions. Transparent sources are
// flattened onto white.
type JPEGEncoder struct{}

// Encode implements Encoder.
func (JPEGEncoder) Encode(ctx context.Context, src []byte, opts Options) ([]byte, error) {
	img, err := decodeRaster(ctx, src, opts.Width)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = libjpeg.Encode(&buf, toRGBA(flatten(img)), &libjpeg.EncoderOptions{
		Quality:         clampQuality(opts.JPEG.Quality),
		OptimizeCoding:  true,
		ProgressiveMode: opts.JPEG.Progressive,
	})
	if err != nil {
		return nil, failure("encode jpeg", err)
	}
	return buf.Bytes(), nil
}

// toRGBA returns img as an origin-based *image.RGBA, the layout libjpeg
// reads directly.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
