package decoder

import "fmt"

type regionKind uint8

const (
	regionFull regionKind = iota
	regionPixels
	regionRatio
)

// Region selects the part of the image to decode. The zero value is the
// full image.
type Region struct {
	kind                     regionKind
	left, top, right, bottom int
	l, t, r, b               float64
}

// FullImage decodes the whole image.
func FullImage() Region { return Region{} }

// PixelRect decodes [left,right) x [top,bottom) in pixel coordinates.
func PixelRect(left, top, right, bottom int) Region {
	return Region{kind: regionPixels, left: left, top: top, right: right, bottom: bottom}
}

// RatioRect decodes a rectangle given as fractions of the image size.
func RatioRect(left, top, right, bottom float64) Region {
	return Region{kind: regionRatio, l: left, t: top, r: right, b: bottom}
}

// IsFull reports whether r covers the whole image.
func (r Region) IsFull() bool { return r.kind == regionFull }

func (r Region) String() string {
	switch r.kind {
	case regionPixels:
		return fmt.Sprintf("px[%d,%d,%d,%d]", r.left, r.top, r.right, r.bottom)
	case regionRatio:
		return fmt.Sprintf("ratio[%g,%g,%g,%g]", r.l, r.t, r.r, r.b)
	}
	return "full"
}

func (r Region) validate() error {
	switch r.kind {
	case regionPixels:
		if r.left < 0 || r.top < 0 || r.right <= r.left || r.bottom <= r.top {
			return localError(KindRegionOutOfBounds, msgRegion)
		}
	case regionRatio:
		for _, v := range [...]float64{r.l, r.t, r.r, r.b} {
			// the negated form also rejects NaN
			if !(v >= 0 && v <= 1) {
				return localError(KindRegionOutOfBounds, msgRatio)
			}
		}
		if r.r <= r.l || r.b <= r.t {
			return localError(KindRegionOutOfBounds, msgRatioOrder)
		}
	}
	return nil
}
