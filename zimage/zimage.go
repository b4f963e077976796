// Package zimage implements the "zimage" tiled image file format, a
// little-endian container holding any number of subimages, each with
// optional MIP levels, flat or deep pixels, arbitrary metadata and an
// embedded thumbnail. Pixel chunks are compressed independently with
// zlib, zstd or lossless JPEG 2000, so readers can page in single tiles
// without touching the rest of the file.
package zimage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/clayne/oiio/imageio"
)

const (
	formatName  = "zimage"
	magic       = "ZIMG"
	fileVersion = 1

	flagThumbnail = 1 << 0

	// bandRows is the chunk height used for untiled images.
	bandRows = 64

	headerSize = 4 + 2 + 2 + 4 + 8
)

var (
	// ErrBadMagic reports a file that is not a zimage file.
	ErrBadMagic = errors.New("zimage: bad magic")
	// ErrBadVersion reports an unsupported file version.
	ErrBadVersion = errors.New("zimage: unsupported version")
	// ErrCorrupt reports structural damage in the file.
	ErrCorrupt = errors.New("zimage: corrupt file")
)

func init() {
	imageio.RegisterFormat(imageio.FormatInfo{
		Name:       formatName,
		Extensions: []string{"zimg", "zimage"},
		OpenInput: func(name string, config *imageio.ImageSpec) (imageio.ImageInput, error) {
			return openFile(name, config)
		},
		NewOutput: func() (imageio.ImageOutput, error) {
			return &writer{}, nil
		},
	})
}

// attribute value kinds on disk
const (
	attrInt byte = iota
	attrFloat
	attrDouble
	attrString
)

// chunkDims returns the chunk shape used to store a spec's pixels.
// Tiled specs chunk by tile; untiled specs chunk into full-width bands.
func chunkDims(spec *imageio.ImageSpec) (cw, ch, cd int) {
	if spec.TileWidth > 0 {
		cd = spec.TileDepth
		if cd == 0 {
			cd = 1
		}
		return spec.TileWidth, spec.TileHeight, cd
	}
	ch = bandRows
	if spec.Height < ch {
		ch = spec.Height
	}
	if ch == 0 {
		ch = 1
	}
	return spec.Width, ch, 1
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// chunkCounts returns the chunk grid extents for a spec.
func chunkCounts(spec *imageio.ImageSpec) (nx, ny, nz int) {
	cw, ch, cd := chunkDims(spec)
	return ceilDiv(spec.Width, cw), ceilDiv(spec.Height, ch), ceilDiv(spec.Depth, cd)
}

// appendSpec serializes a spec block.
func appendSpec(buf []byte, spec *imageio.ImageSpec) []byte {
	put32 := func(v int) { buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(v))) }
	put16 := func(v int) { buf = binary.LittleEndian.AppendUint16(buf, uint16(v)) }
	put32(spec.X)
	put32(spec.Y)
	put32(spec.Z)
	put32(spec.Width)
	put32(spec.Height)
	put32(spec.Depth)
	put32(spec.FullX)
	put32(spec.FullY)
	put32(spec.FullZ)
	put32(spec.FullWidth)
	put32(spec.FullHeight)
	put32(spec.FullDepth)
	put16(spec.TileWidth)
	put16(spec.TileHeight)
	put16(spec.TileDepth)
	put16(spec.NChannels)
	buf = append(buf, byte(spec.Format))
	if spec.Deep {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	put32(spec.AlphaChannel)
	put32(spec.ZChannel)
	for _, n := range spec.ChannelNames {
		put16(len(n))
		buf = append(buf, n...)
	}
	attribs := spec.Attribs()
	put16(len(attribs))
	for _, a := range attribs {
		var kind byte
		switch a.Value.(type) {
		case int:
			kind = attrInt
		case float32:
			kind = attrFloat
		case float64:
			kind = attrDouble
		case string:
			kind = attrString
		default:
			continue
		}
		buf = append(buf, kind)
		put16(len(a.Name))
		buf = append(buf, a.Name...)
		switch v := a.Value.(type) {
		case int:
			buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(v)))
		case float32:
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		case float64:
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		case string:
			put16(len(v))
			buf = append(buf, v...)
		}
	}
	return buf
}

// cursor walks a byte slice during index parsing.
type cursor struct {
	buf []byte
	off int
	err error
}

func (c *cursor) bytes(n int) []byte {
	if c.err != nil {
		return nil
	}
	if c.off+n > len(c.buf) {
		c.err = ErrCorrupt
		return nil
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) u8() byte {
	b := c.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) u16() int {
	b := c.bytes(2)
	if b == nil {
		return 0
	}
	return int(binary.LittleEndian.Uint16(b))
}

func (c *cursor) i32() int {
	b := c.bytes(4)
	if b == nil {
		return 0
	}
	return int(int32(binary.LittleEndian.Uint32(b)))
}

func (c *cursor) u32() uint32 {
	b := c.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *cursor) u64() uint64 {
	b := c.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (c *cursor) str() string {
	n := c.u16()
	b := c.bytes(n)
	if b == nil {
		return ""
	}
	return string(b)
}

// parseSpec reads a spec block.
func parseSpec(c *cursor) (*imageio.ImageSpec, error) {
	s := &imageio.ImageSpec{}
	s.X = c.i32()
	s.Y = c.i32()
	s.Z = c.i32()
	s.Width = c.i32()
	s.Height = c.i32()
	s.Depth = c.i32()
	s.FullX = c.i32()
	s.FullY = c.i32()
	s.FullZ = c.i32()
	s.FullWidth = c.i32()
	s.FullHeight = c.i32()
	s.FullDepth = c.i32()
	s.TileWidth = c.u16()
	s.TileHeight = c.u16()
	s.TileDepth = c.u16()
	s.NChannels = c.u16()
	s.Format = imageio.TypeDesc(c.u8())
	s.Deep = c.u8() != 0
	s.AlphaChannel = c.i32()
	s.ZChannel = c.i32()
	if c.err != nil {
		return nil, c.err
	}
	if s.NChannels > 1024 {
		return nil, fmt.Errorf("%w: %d channels", ErrCorrupt, s.NChannels)
	}
	s.ChannelNames = make([]string, s.NChannels)
	for i := range s.ChannelNames {
		s.ChannelNames[i] = c.str()
	}
	nattr := c.u16()
	for i := 0; i < nattr && c.err == nil; i++ {
		kind := c.u8()
		name := c.str()
		switch kind {
		case attrInt:
			s.Attribute(name, int(int64(c.u64())))
		case attrFloat:
			s.Attribute(name, math.Float32frombits(c.u32()))
		case attrDouble:
			s.Attribute(name, math.Float64frombits(c.u64()))
		case attrString:
			s.Attribute(name, c.str())
		default:
			return nil, fmt.Errorf("%w: attribute kind %d", ErrCorrupt, kind)
		}
	}
	return s, c.err
}

// readFull reads exactly n bytes at off.
func readFull(r io.ReaderAt, off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := r.ReadAt(buf, off)
	if got == n {
		return buf, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}
