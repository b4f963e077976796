package imagebuf

// WrapMode determines what pixel accessors return for coordinates
// outside the image's pixel data window.
type WrapMode int

const (
	// WrapDefault lets the operation choose; pixel reads treat it as
	// WrapBlack.
	WrapDefault WrapMode = iota
	// WrapBlack returns zero for all channels outside the window.
	WrapBlack
	// WrapClamp returns the nearest edge pixel.
	WrapClamp
	// WrapPeriodic tiles the image infinitely.
	WrapPeriodic
	// WrapMirror reflects the image at its edges.
	WrapMirror
)

var wrapNames = [...]string{"default", "black", "clamp", "periodic", "mirror"}

// String returns the lowercase wrap mode name.
func (w WrapMode) String() string {
	if w < 0 || int(w) >= len(wrapNames) {
		return "default"
	}
	return wrapNames[w]
}

// WrapModeFromString returns the wrap mode for a name produced by
// String. Unrecognized names yield WrapDefault.
func WrapModeFromString(name string) WrapMode {
	for i, n := range wrapNames {
		if n == name {
			return WrapMode(i)
		}
	}
	return WrapDefault
}

// wrapCoord maps a coordinate into [begin, end) per the wrap mode.
// ok is false when the mode defines no source pixel (black).
func wrapCoord(w WrapMode, c, begin, end int) (int, bool) {
	if c >= begin && c < end {
		return c, true
	}
	width := end - begin
	if width < 1 {
		return begin, false
	}
	switch w {
	case WrapClamp:
		if c < begin {
			return begin, true
		}
		return end - 1, true
	case WrapPeriodic:
		c = (c - begin) % width
		if c < 0 {
			c += width
		}
		return c + begin, true
	case WrapMirror:
		c -= begin
		if c < 0 {
			c = -c - 1
		}
		iter := c / width
		c %= width
		if iter&1 == 1 {
			c = width - 1 - c
		}
		return c + begin, true
	}
	return c, false
}
