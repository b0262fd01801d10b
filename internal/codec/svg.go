package codec

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"
)

const svgMIME = "image/svg+xml"

var (
	svgRootRe = regexp.MustCompile(`(?s)<svg\b[^>]*>`)
	viewBoxRe = regexp.MustCompile(`\s+viewBox\s*=\s*("[^"]*"|'[^']*')`)
	idAttrRe  = regexp.MustCompile(`\s+id\s*=\s*("[^"]*"|'[^']*')`)
)

// SVGEncoder runs the optional viewBox and id cleanup passes, then
// minifies. Width is ignored.
type SVGEncoder struct{}

// Encode implements Encoder.
func (SVGEncoder) Encode(ctx context.Context, src []byte, opts Options) ([]byte, error) {
	root := svgRootRe.FindIndex(src)
	if root == nil {
		return nil, failure("parse svg", errors.New("no <svg> root element"))
	}
	doc := append([]byte(nil), src...)
	if opts.SVG.RemoveViewBox {
		doc = removeViewBox(doc, root)
	}
	if opts.SVG.CleanupIDs {
		doc = cleanupIDs(doc)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := minify.New()
	m.Add(svgMIME, &svg.Minifier{})
	out, err := m.Bytes(svgMIME, doc)
	if err != nil {
		return nil, failure("minify svg", err)
	}
	return out, nil
}

// removeViewBox drops the root viewBox when it is "0 0 width height" for
// the root's own width and height, where it carries no information.
func removeViewBox(doc []byte, root []int) []byte {
	tag := doc[root[0]:root[1]]
	loc := viewBoxRe.FindSubmatchIndex(tag)
	if loc == nil {
		return doc
	}
	vb := strings.Fields(strings.ReplaceAll(unquote(tag[loc[2]:loc[3]]), ",", " "))
	w, wok := attrNumber(tag, "width")
	h, hok := attrNumber(tag, "height")
	if len(vb) != 4 || !wok || !hok {
		return doc
	}
	nums := make([]float64, 4)
	for i, f := range vb {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return doc
		}
		nums[i] = n
	}
	if nums[0] != 0 || nums[1] != 0 || nums[2] != w || nums[3] != h {
		return doc
	}

	out := make([]byte, 0, len(doc))
	out = append(out, doc[:root[0]+loc[0]]...)
	out = append(out, doc[root[0]+loc[1]:]...)
	return out
}

// cleanupIDs removes id attributes nothing in the document references
// through "#id" (href, xlink:href, url(#id)).
func cleanupIDs(doc []byte) []byte {
	return idAttrRe.ReplaceAllFunc(doc, func(attr []byte) []byte {
		m := idAttrRe.FindSubmatch(attr)
		id := unquote(m[1])
		if id == "" || referenced(doc, id) {
			return attr
		}
		return nil
	})
}

func referenced(doc []byte, id string) bool {
	needle := []byte("#" + id)
	for rest := doc; ; {
		i := bytes.Index(rest, needle)
		if i < 0 {
			return false
		}
		end := i + len(needle)
		if end == len(rest) || !isNameByte(rest[end]) {
			return true
		}
		rest = rest[end:]
	}
}

func isNameByte(c byte) bool {
	return c == '-' || c == '_' || c == '.' || c == ':' ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// attrNumber reads a numeric attribute of tag, accepting a "px" unit.
func attrNumber(tag []byte, name string) (float64, bool) {
	re := regexp.MustCompile(`\s` + regexp.QuoteMeta(name) + `\s*=\s*("[^"]*"|'[^']*')`)
	m := re.FindSubmatch(tag)
	if m == nil {
		return 0, false
	}
	v := strings.TrimSuffix(strings.TrimSpace(unquote(m[1])), "px")
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func unquote(b []byte) string {
	s := string(b)
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
