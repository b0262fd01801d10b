package codec

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/soniakeys/quant/median"
)

// paletteSizes are tried smallest first; the first palette whose score
// reaches the range maximum wins.
var paletteSizes = []int{32, 64, 128, 256}

// PNGEncoder writes palette-quantized PNG (median cut with Floyd-Steinberg
// dithering). The quality score of a candidate is its PSNR mapped onto
// 0-100. The smallest palette scoring at least QualityRange[1] is used;
// failing that the 256-color palette if it scores at least QualityRange[0];
// otherwise the image is written losslessly.
type PNGEncoder struct{}

// Encode implements Encoder.
func (PNGEncoder) Encode(ctx context.Context, src []byte, opts Options) ([]byte, error) {
	img, err := decodeRaster(ctx, src, opts.Width)
	if err != nil {
		return nil, err
	}
	lo, hi := opts.PNG.QualityRange[0], opts.PNG.QualityRange[1]
	if hi == 0 {
		hi = 100
	}

	ref := imaging.Clone(img)
	var best *image.Paletted
	for _, n := range paletteSizes {
		if ref.Bounds().Empty() {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pm := quantize(ref, n)
		score := qualityScore(ref, pm)
		if score >= float64(hi) {
			best = pm
			break
		}
		if n == paletteSizes[len(paletteSizes)-1] && score >= float64(lo) {
			best = pm
		}
	}

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	var buf bytes.Buffer
	if best != nil {
		err = enc.Encode(&buf, best)
	} else {
		err = enc.Encode(&buf, ref)
	}
	if err != nil {
		return nil, failure("encode png", err)
	}
	return buf.Bytes(), nil
}

func quantize(img *image.NRGBA, colors int) *image.Paletted {
	b := img.Bounds()
	pal := median.Quantizer(colors).Quantize(make(color.Palette, 0, colors), img)
	pm := image.NewPaletted(b, pal)
	draw.FloydSteinberg.Draw(pm, b, img, b.Min)
	return pm
}

// qualityScore maps the PSNR between ref and pm onto 0-100: 20 dB or less
// scores 0, 50 dB or more (or identical images) scores 100.
func qualityScore(ref *image.NRGBA, pm *image.Paletted) float64 {
	b := ref.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 100
	}
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r1, g1, b1, a1 := ref.At(x, y).RGBA()
			r2, g2, b2, a2 := pm.At(x, y).RGBA()
			sum += sq(r1, r2) + sq(g1, g2) + sq(b1, b2) + sq(a1, a2)
		}
	}
	mse := sum / float64(4*n)
	if mse == 0 {
		return 100
	}
	psnr := 10 * math.Log10(65535.0*65535.0/mse)
	score := (psnr - 20) * 100 / 30
	return math.Max(0, math.Min(100, score))
}

func sq(a, b uint32) float64 {
	d := float64(a) - float64(b)
	return d * d
}
