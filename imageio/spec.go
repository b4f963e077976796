package imageio

import (
	"fmt"
	"strconv"
	"strings"
)

// ParamValue is one named metadata attribute. Values are stored as Go
// values; the common kinds are int, float32, float64 and string.
type ParamValue struct {
	Name  string
	Value any
}

// ImageSpec describes the geometry, channel layout and metadata of one
// image (one subimage at one MIP level).
type ImageSpec struct {
	// X, Y, Z are the origin of the pixel data window.
	X, Y, Z int
	// Width, Height, Depth are the extents of the pixel data window.
	Width, Height, Depth int
	// FullX..FullDepth describe the "full" or display window.
	FullX, FullY, FullZ          int
	FullWidth, FullHeight, FullDepth int
	// TileWidth etc are nonzero for tiled images.
	TileWidth, TileHeight, TileDepth int
	// NChannels is the number of channels per pixel.
	NChannels int
	// Format is the data type of the channels.
	Format TypeDesc
	// ChannelNames holds one name per channel ("R", "G", "B", "A", ...).
	ChannelNames []string
	// AlphaChannel is the index of the alpha channel, or -1.
	AlphaChannel int
	// ZChannel is the index of the depth channel, or -1.
	ZChannel int
	// Deep marks variable-sample "deep" pixel data.
	Deep bool

	// attribs holds arbitrary metadata in insertion order.
	attribs []ParamValue
}

// NewImageSpec returns a spec for a simple 2D image whose data and full
// windows coincide, with default channel names.
func NewImageSpec(width, height, nchannels int, format TypeDesc) *ImageSpec {
	s := &ImageSpec{
		Width: width, Height: height, Depth: 1,
		FullWidth: width, FullHeight: height, FullDepth: 1,
		NChannels:    nchannels,
		Format:       format,
		AlphaChannel: -1,
		ZChannel:     -1,
	}
	s.DefaultChannelNames()
	return s
}

// NewImageSpecROI returns a spec whose data and full windows both cover
// the given region, with the region's channel count.
func NewImageSpecROI(roi ROI, format TypeDesc) *ImageSpec {
	s := &ImageSpec{
		X: roi.XBegin, Y: roi.YBegin, Z: roi.ZBegin,
		Width: roi.Width(), Height: roi.Height(), Depth: roi.Depth(),
		FullX: roi.XBegin, FullY: roi.YBegin, FullZ: roi.ZBegin,
		FullWidth: roi.Width(), FullHeight: roi.Height(), FullDepth: roi.Depth(),
		NChannels:    roi.NChannels(),
		Format:       format,
		AlphaChannel: -1,
		ZChannel:     -1,
	}
	s.DefaultChannelNames()
	return s
}

// DefaultChannelNames fills ChannelNames with R, G, B, A for the first
// four channels and "channel%d" beyond, and infers AlphaChannel.
func (s *ImageSpec) DefaultChannelNames() {
	s.ChannelNames = make([]string, s.NChannels)
	for i := range s.ChannelNames {
		switch {
		case i == 0 && s.NChannels <= 2:
			s.ChannelNames[i] = "Y"
		case i < 4:
			s.ChannelNames[i] = string("RGBA"[i])
		default:
			s.ChannelNames[i] = "channel" + strconv.Itoa(i)
		}
	}
	s.AlphaChannel = -1
	for i, n := range s.ChannelNames {
		if n == "A" || n == "Alpha" {
			s.AlphaChannel = i
		}
	}
}

// ChannelName returns the name of channel ch, or "" if out of range.
func (s *ImageSpec) ChannelName(ch int) string {
	if ch < 0 || ch >= len(s.ChannelNames) {
		return ""
	}
	return s.ChannelNames[ch]
}

// ChannelIndex returns the index of the named channel, or -1.
func (s *ImageSpec) ChannelIndex(name string) int {
	for i, n := range s.ChannelNames {
		if n == name {
			return i
		}
	}
	return -1
}

// PixelBytes returns the size in bytes of one pixel.
func (s *ImageSpec) PixelBytes() int {
	return s.NChannels * s.Format.Size()
}

// ScanlineBytes returns the size in bytes of one scanline.
func (s *ImageSpec) ScanlineBytes() int {
	return s.Width * s.PixelBytes()
}

// TileBytes returns the size in bytes of one tile, or 0 for untiled specs.
func (s *ImageSpec) TileBytes() int {
	if s.TileWidth == 0 {
		return 0
	}
	d := s.TileDepth
	if d == 0 {
		d = 1
	}
	return s.TileWidth * s.TileHeight * d * s.PixelBytes()
}

// ImageBytes returns the size in bytes of the full pixel data window.
func (s *ImageSpec) ImageBytes() int {
	return s.Width * s.Height * s.Depth * s.PixelBytes()
}

// ImagePixels returns the number of pixels in the data window.
func (s *ImageSpec) ImagePixels() int {
	return s.Width * s.Height * s.Depth
}

// ROI returns the data window as a region, spanning all channels.
func (s *ImageSpec) ROI() ROI {
	return ROI{
		s.X, s.X + s.Width,
		s.Y, s.Y + s.Height,
		s.Z, s.Z + s.Depth,
		0, s.NChannels,
	}
}

// ROIFull returns the full (display) window as a region.
func (s *ImageSpec) ROIFull() ROI {
	return ROI{
		s.FullX, s.FullX + s.FullWidth,
		s.FullY, s.FullY + s.FullHeight,
		s.FullZ, s.FullZ + s.FullDepth,
		0, s.NChannels,
	}
}

// SetROI moves the data window to cover roi.
func (s *ImageSpec) SetROI(roi ROI) {
	s.X, s.Y, s.Z = roi.XBegin, roi.YBegin, roi.ZBegin
	s.Width, s.Height, s.Depth = roi.Width(), roi.Height(), roi.Depth()
}

// SetROIFull moves the full window to cover roi.
func (s *ImageSpec) SetROIFull(roi ROI) {
	s.FullX, s.FullY, s.FullZ = roi.XBegin, roi.YBegin, roi.ZBegin
	s.FullWidth, s.FullHeight, s.FullDepth = roi.Width(), roi.Height(), roi.Depth()
}

// Copy returns a deep copy of the spec, including channel names and
// attributes.
func (s *ImageSpec) Copy() *ImageSpec {
	c := *s
	c.ChannelNames = append([]string(nil), s.ChannelNames...)
	c.attribs = append([]ParamValue(nil), s.attribs...)
	return &c
}

// Attribute sets a named metadata value, replacing any prior value of
// the same name while keeping its original position.
func (s *ImageSpec) Attribute(name string, value any) {
	for i := range s.attribs {
		if s.attribs[i].Name == name {
			s.attribs[i].Value = value
			return
		}
	}
	s.attribs = append(s.attribs, ParamValue{name, value})
}

// EraseAttribute removes the named metadata value if present.
func (s *ImageSpec) EraseAttribute(name string) {
	for i := range s.attribs {
		if s.attribs[i].Name == name {
			s.attribs = append(s.attribs[:i], s.attribs[i+1:]...)
			return
		}
	}
}

// Attrib returns the named metadata value, or nil if absent.
func (s *ImageSpec) Attrib(name string) any {
	for i := range s.attribs {
		if s.attribs[i].Name == name {
			return s.attribs[i].Value
		}
	}
	return nil
}

// Attribs returns the metadata attributes in insertion order. The slice
// is shared; callers must not modify it.
func (s *ImageSpec) Attribs() []ParamValue { return s.attribs }

// AttribInt returns the named attribute as an int, or def if absent or
// not numeric.
func (s *ImageSpec) AttribInt(name string, def int) int {
	switch v := s.Attrib(name).(type) {
	case int:
		return v
	case float32:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// AttribFloat returns the named attribute as a float32, or def.
func (s *ImageSpec) AttribFloat(name string, def float32) float32 {
	switch v := s.Attrib(name).(type) {
	case int:
		return float32(v)
	case float32:
		return v
	case float64:
		return float32(v)
	case string:
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return def
}

// AttribString returns the named attribute as a string, or def.
func (s *ImageSpec) AttribString(name string, def string) string {
	switch v := s.Attrib(name).(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return def
}

// String gives a short human-readable summary of the spec.
func (s *ImageSpec) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d x %d", s.Width, s.Height)
	if s.Depth > 1 {
		fmt.Fprintf(&b, " x %d", s.Depth)
	}
	fmt.Fprintf(&b, ", %d channel, %s", s.NChannels, s.Format)
	if s.Deep {
		b.WriteString(" (deep)")
	}
	return b.String()
}
