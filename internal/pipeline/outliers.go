package pipeline

import (
	"sort"

	"github.com/backmassage/imgpipe/internal/term"
)

// Class is the bytes-per-pixel outlier class of an analyzed image.
type Class uint8

const (
	ClassNormal Class = iota
	ClassOutlier
	ClassExtreme
)

func (c Class) String() string {
	switch c {
	case ClassOutlier:
		return "outlier"
	case ClassExtreme:
		return "extreme"
	default:
		return "normal"
	}
}

func (c Class) color() term.Color {
	switch c {
	case ClassOutlier:
		return term.Orange
	case ClassExtreme:
		return term.Red
	default:
		return term.None
	}
}

// marker is the table flag for c, painted.
func (c Class) marker() string {
	switch c {
	case ClassOutlier:
		return term.Paint(c.color(), "[*]")
	case ClassExtreme:
		return term.Paint(c.color(), "[!]")
	default:
		return ""
	}
}

// fences are Tukey's fences over a sample: values beyond the inner fences
// (1.5 IQR) are outliers, beyond the outer fences (3 IQR) extreme.
type fences struct {
	q1, q3       float64
	innerLo      float64
	innerHi      float64
	outerLo      float64
	outerHi      float64
	discriminate bool
}

// tukeyFences needs at least four samples and a non-zero spread; otherwise
// every value classifies as normal.
func tukeyFences(vals []float64) fences {
	if len(vals) < 4 {
		return fences{}
	}
	s := append([]float64(nil), vals...)
	sort.Float64s(s)

	q1, q3 := quantile(s, 0.25), quantile(s, 0.75)
	spread := q3 - q1
	return fences{
		q1:           q1,
		q3:           q3,
		innerLo:      q1 - 1.5*spread,
		innerHi:      q3 + 1.5*spread,
		outerLo:      q1 - 3*spread,
		outerHi:      q3 + 3*spread,
		discriminate: spread > 0,
	}
}

// classify maps v onto a class. Non-positive values (vectors, unknown
// dimensions) are always normal.
func (f fences) classify(v float64) Class {
	switch {
	case !f.discriminate || v <= 0:
		return ClassNormal
	case v < f.outerLo || v > f.outerHi:
		return ClassExtreme
	case v < f.innerLo || v > f.innerHi:
		return ClassOutlier
	}
	return ClassNormal
}

// quantile interpolates linearly between the closest ranks of the sorted
// sample s. q is in [0, 1].
func quantile(s []float64, q float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	pos := q * float64(n-1)
	i := int(pos)
	if i+1 >= n {
		return s[n-1]
	}
	return s[i] + (s[i+1]-s[i])*(pos-float64(i))
}
