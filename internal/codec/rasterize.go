package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// maxRasterPixels bounds the canvas allocated for one rasterized SVG.
const maxRasterPixels = 64 << 20

// svgRoot is the wire form of the attributes read from an SVG root element.
type svgRoot struct {
	XMLName xml.Name `xml:"svg"`
	Width   string   `xml:"width,attr"`
	Height  string   `xml:"height,attr"`
	ViewBox string   `xml:"viewBox,attr"`
}

// SVGSize returns the intrinsic size of an SVG document in user units.
// Percentages and missing attributes fall back to the viewBox size; 0x0
// means the document declares no size at all.
func SVGSize(data []byte) (width, height int, err error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	var root svgRoot
	for {
		tok, err := dec.Token()
		if err != nil {
			return 0, 0, fmt.Errorf("parse svg: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "svg" {
			return 0, 0, fmt.Errorf("parse svg: root element is <%s>", se.Name.Local)
		}
		if err := dec.DecodeElement(&root, &se); err != nil {
			return 0, 0, fmt.Errorf("parse svg: %w", err)
		}
		break
	}

	w, wok := parseLength(root.Width)
	h, hok := parseLength(root.Height)
	if wok && hok {
		return w, h, nil
	}
	vb := strings.Fields(strings.ReplaceAll(root.ViewBox, ",", " "))
	if len(vb) == 4 {
		vw, err1 := strconv.ParseFloat(vb[2], 64)
		vh, err2 := strconv.ParseFloat(vb[3], 64)
		if err1 == nil && err2 == nil && vw > 0 && vh > 0 {
			return int(vw + 0.5), int(vh + 0.5), nil
		}
	}
	return 0, 0, nil
}

// parseLength accepts unitless and px lengths.
func parseLength(s string) (int, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return int(f + 0.5), true
}

// rasterizeSVG renders an SVG document at width (its intrinsic width when
// width is 0), keeping the intrinsic aspect ratio.
func rasterizeSVG(src []byte, width int) (image.Image, error) {
	w, h, err := SVGSize(src)
	if err != nil {
		return nil, failure("rasterize svg", err)
	}
	if w == 0 || h == 0 {
		return nil, failure("rasterize svg", errors.New("document has no intrinsic size"))
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(src), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, failure("rasterize svg", err)
	}
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		icon.ViewBox.X, icon.ViewBox.Y = 0, 0
		icon.ViewBox.W, icon.ViewBox.H = float64(w), float64(h)
	}

	tw, th := w, h
	if width > 0 {
		tw = width
		th = max(1, int(math.Round(float64(h)*float64(width)/float64(w))))
	}
	if tw*th > maxRasterPixels {
		return nil, failure("rasterize svg", fmt.Errorf("%dx%d canvas too large", tw, th))
	}

	icon.SetTarget(0, 0, float64(tw), float64(th))
	img := image.NewRGBA(image.Rect(0, 0, tw, th))
	scanner := rasterx.NewScannerGV(tw, th, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(tw, th, scanner), 1)
	return img, nil
}
