package codec

import (
	"bytes"
	"context"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers the WEBP decoder with image.Decode
)

// decodeRaster decodes src, applies the EXIF orientation and scales to
// width when width > 0. SVG sources are rendered directly at width. The
// result's bounds start at the origin.
func decodeRaster(ctx context.Context, src []byte, width int) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		if !svgRootRe.Match(src) {
			return nil, failure("decode", err)
		}
		if img, err = rasterizeSVG(src, width); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if width > 0 && width != img.Bounds().Dx() {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	return img, nil
}

// flatten composites img onto an opaque white canvas. JPEG has no alpha
// channel, and a plain conversion would turn transparent pixels black.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func clampQuality(q int) int {
	switch {
	case q < 1:
		return 1
	case q > 100:
		return 100
	}
	return q
}
