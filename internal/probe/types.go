package probe

import (
	"strconv"

	"github.com/backmassage/imgpipe/internal/codec"
)

// Result is the probed metadata of one asset. Format is empty when the
// content is not one of the encodable formats (GIF, BMP and TIFF still
// report dimensions). Width and Height are 0 when unknown.
type Result struct {
	MIME        string
	Format      codec.Format
	Width       int
	Height      int
	Orientation int // EXIF orientation 1-8; 0 when absent.
	Size        int64
}

// HasDimensions reports whether both dimensions are known.
func (r *Result) HasDimensions() bool {
	return r != nil && r.Width > 0 && r.Height > 0
}

// Resolution returns "WxH", or "unknown".
func (r *Result) Resolution() string {
	if !r.HasDimensions() {
		return "unknown"
	}
	return strconv.Itoa(r.Width) + "x" + strconv.Itoa(r.Height)
}

// Pixels returns Width*Height, or 0 when unknown.
func (r *Result) Pixels() int64 {
	if !r.HasDimensions() {
		return 0
	}
	return int64(r.Width) * int64(r.Height)
}
