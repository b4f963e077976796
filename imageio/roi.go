package imageio

import "fmt"

// ROI describes a region of interest: an axis-aligned box of pixel
// coordinates plus a channel range. All ranges use "exclusive end"
// convention, so an empty range has begin == end. A default-constructed
// ROI is "undefined" and conventionally means "the whole image".
type ROI struct {
	XBegin, XEnd   int
	YBegin, YEnd   int
	ZBegin, ZEnd   int
	ChBegin, ChEnd int
}

// NewROI returns a 2D region covering [xbegin,xend) x [ybegin,yend),
// a single z plane and all channels up to a large sentinel.
func NewROI(xbegin, xend, ybegin, yend int) ROI {
	return ROI{xbegin, xend, ybegin, yend, 0, 1, 0, 10000}
}

// ROIAll returns the undefined ROI that means "the entire image".
func ROIAll() ROI { return ROI{} }

// Defined reports whether the ROI carries an actual region, as opposed
// to the "all" sentinel.
func (r ROI) Defined() bool {
	return r != ROI{}
}

// Width returns the x extent of the region.
func (r ROI) Width() int { return r.XEnd - r.XBegin }

// Height returns the y extent of the region.
func (r ROI) Height() int { return r.YEnd - r.YBegin }

// Depth returns the z extent of the region.
func (r ROI) Depth() int { return r.ZEnd - r.ZBegin }

// NChannels returns the size of the channel range.
func (r ROI) NChannels() int { return r.ChEnd - r.ChBegin }

// NPixels returns the number of pixel positions in the region
// (not counting channels).
func (r ROI) NPixels() int {
	if r.Width() <= 0 || r.Height() <= 0 || r.Depth() <= 0 {
		return 0
	}
	return r.Width() * r.Height() * r.Depth()
}

// Contains reports whether the coordinate (x, y, z) lies inside the region.
func (r ROI) Contains(x, y, z int) bool {
	return x >= r.XBegin && x < r.XEnd &&
		y >= r.YBegin && y < r.YEnd &&
		z >= r.ZBegin && z < r.ZEnd
}

// ContainsROI reports whether other lies entirely inside the region,
// including its channel range.
func (r ROI) ContainsROI(other ROI) bool {
	return other.XBegin >= r.XBegin && other.XEnd <= r.XEnd &&
		other.YBegin >= r.YBegin && other.YEnd <= r.YEnd &&
		other.ZBegin >= r.ZBegin && other.ZEnd <= r.ZEnd &&
		other.ChBegin >= r.ChBegin && other.ChEnd <= r.ChEnd
}

// Union returns the tightest region containing both a and b.
// An undefined operand yields the other operand.
func Union(a, b ROI) ROI {
	if !a.Defined() {
		return b
	}
	if !b.Defined() {
		return a
	}
	return ROI{
		min(a.XBegin, b.XBegin), max(a.XEnd, b.XEnd),
		min(a.YBegin, b.YBegin), max(a.YEnd, b.YEnd),
		min(a.ZBegin, b.ZBegin), max(a.ZEnd, b.ZEnd),
		min(a.ChBegin, b.ChBegin), max(a.ChEnd, b.ChEnd),
	}
}

// Intersection returns the region common to a and b. The result may be
// empty (begin == end) on any axis with no overlap.
func Intersection(a, b ROI) ROI {
	if !a.Defined() {
		return b
	}
	if !b.Defined() {
		return a
	}
	r := ROI{
		max(a.XBegin, b.XBegin), min(a.XEnd, b.XEnd),
		max(a.YBegin, b.YBegin), min(a.YEnd, b.YEnd),
		max(a.ZBegin, b.ZBegin), min(a.ZEnd, b.ZEnd),
		max(a.ChBegin, b.ChBegin), min(a.ChEnd, b.ChEnd),
	}
	// Collapse negative extents to empty.
	if r.XEnd < r.XBegin {
		r.XEnd = r.XBegin
	}
	if r.YEnd < r.YBegin {
		r.YEnd = r.YBegin
	}
	if r.ZEnd < r.ZBegin {
		r.ZEnd = r.ZBegin
	}
	if r.ChEnd < r.ChBegin {
		r.ChEnd = r.ChBegin
	}
	return r
}

// String formats the region in the conventional
// "x0 x1 y0 y1 z0 z1 ch0 ch1" layout.
func (r ROI) String() string {
	if !r.Defined() {
		return "all"
	}
	return fmt.Sprintf("%d %d %d %d %d %d %d %d",
		r.XBegin, r.XEnd, r.YBegin, r.YEnd, r.ZBegin, r.ZEnd,
		r.ChBegin, r.ChEnd)
}
