package imagebuf

import (
	"github.com/clayne/oiio/imagecache"
	"github.com/clayne/oiio/imageio"
)

// iterState is the machinery shared by Iterator and ConstIterator: a
// position within an iteration range, an "exists" flag telling whether
// the position is inside the pixel data window, and a byte window onto
// the current pixel. For cache-backed buffers the state pins one tile
// at a time, releasing it before crossing into the next.
type iterState struct {
	ib   *ImageBuf
	impl *imageBufImpl

	rng  imageio.ROI // iteration range
	img  imageio.ROI // pixel data window
	wrap WrapMode

	x, y, z       int
	valid, exists bool
	deep          bool

	format                imageio.TypeDesc
	chanBytes, pixelBytes int
	nchannels             int

	// buf is a slice starting at the storage of the current pixel, or
	// of the wrap-mapped source pixel. nil when the position reads as
	// black.
	buf []byte

	tile *imagecache.Tile
	tb   imageio.ROI // pinned tile's nominal bounds, clipped to img
}

func (it *iterState) init(ib *ImageBuf, roi imageio.ROI, wrap WrapMode) error {
	if err := ib.ensurePixels(); err != nil {
		return err
	}
	impl := ib.impl
	it.ib = ib
	it.impl = impl
	it.img = impl.spec.ROI()
	if !roi.Defined() {
		roi = it.img
	}
	it.rng = roi
	if wrap == WrapDefault {
		wrap = WrapBlack
	}
	it.wrap = wrap
	it.deep = impl.spec.Deep
	it.nchannels = impl.spec.NChannels
	if !it.deep {
		it.format = impl.spec.Format
		if impl.storage == ImageCache {
			it.format = impl.cacheFmt
		}
		it.chanBytes = it.format.Size()
		it.pixelBytes = it.chanBytes * it.nchannels
	}
	if it.rng.NPixels() == 0 {
		it.markDone()
		return nil
	}
	it.valid = true
	it.position(it.rng.XBegin, it.rng.YBegin, it.rng.ZBegin)
	return nil
}

// Done reports whether iteration has moved past the last pixel of the
// range.
func (it *iterState) Done() bool { return !it.valid }

// X returns the current x coordinate.
func (it *iterState) X() int { return it.x }

// Y returns the current y coordinate.
func (it *iterState) Y() int { return it.y }

// Z returns the current z coordinate.
func (it *iterState) Z() int { return it.z }

// Exists reports whether the current position lies inside the pixel
// data window.
func (it *iterState) Exists() bool { return it.exists }

// NChannels returns the channel count of the underlying buffer.
func (it *iterState) NChannels() int { return it.nchannels }

// Next advances to the following pixel in x-fastest order. After the
// last pixel the iterator becomes Done and any pinned tile is released.
func (it *iterState) Next() {
	if !it.valid {
		return
	}
	// fast path: staying inside the data window and the pinned tile
	x := it.x + 1
	if it.buf != nil && it.exists && x < it.rng.XEnd && x < it.img.XEnd &&
		(it.tile == nil || x < it.tb.XEnd) {
		it.x = x
		it.buf = it.buf[it.pixelBytes:]
		return
	}
	y, z := it.y, it.z
	if x >= it.rng.XEnd {
		x = it.rng.XBegin
		y++
		if y >= it.rng.YEnd {
			y = it.rng.YBegin
			z++
			if z >= it.rng.ZEnd {
				it.markDone()
				return
			}
		}
	}
	it.position(x, y, z)
}

// Pos jumps to an arbitrary position. Positions outside the iteration
// range are allowed; they read per the wrap mode and refuse writes.
func (it *iterState) Pos(x, y, z int) {
	it.valid = true
	it.position(x, y, z)
}

// Rerange restarts iteration over a different region of the same
// buffer, dropping any pinned tile first.
func (it *iterState) Rerange(roi imageio.ROI, wrap WrapMode) {
	it.Release()
	if !roi.Defined() {
		roi = it.img
	}
	it.rng = roi
	if wrap != WrapDefault {
		it.wrap = wrap
	}
	if it.rng.NPixels() == 0 {
		it.markDone()
		return
	}
	it.valid = true
	it.position(it.rng.XBegin, it.rng.YBegin, it.rng.ZBegin)
}

// Release drops any pinned tile. It is called automatically when
// iteration completes; only loops that abandon an iterator early over a
// cache-backed buffer need to call it themselves.
func (it *iterState) Release() {
	if it.tile != nil {
		it.tile.Release()
		it.tile = nil
	}
}

func (it *iterState) markDone() {
	it.x = it.rng.XBegin
	it.y = it.rng.YBegin
	it.z = it.rng.ZEnd
	it.valid = false
	it.exists = false
	it.buf = nil
	it.Release()
}

func (it *iterState) position(x, y, z int) {
	it.x, it.y, it.z = x, y, z
	it.exists = it.img.Contains(x, y, z)
	if it.deep {
		it.buf = nil
		return
	}
	sx, sy, sz := x, y, z
	if !it.exists {
		if it.wrap == WrapBlack {
			it.buf = nil
			return
		}
		sx, _ = wrapCoord(it.wrap, x, it.img.XBegin, it.img.XEnd)
		sy, _ = wrapCoord(it.wrap, y, it.img.YBegin, it.img.YEnd)
		sz, _ = wrapCoord(it.wrap, z, it.img.ZBegin, it.img.ZEnd)
	}
	if it.impl.localpixels() {
		it.buf = it.impl.pixels[it.impl.pixeladdr(sx, sy, sz):]
		return
	}
	it.retile(sx, sy, sz)
}

// retile points buf at pixel (sx, sy, sz) of a cache-backed buffer,
// swapping the pinned tile when the position leaves it.
func (it *iterState) retile(sx, sy, sz int) {
	if it.tile == nil || !it.tb.Contains(sx, sy, sz) {
		it.Release()
		t, err := it.impl.cache.GetTile(it.impl.name, it.impl.subimage, it.impl.miplevel, sx, sy, sz)
		if err != nil {
			it.ib.Errorf("%v", err)
			it.buf = nil
			return
		}
		it.tile = t
		it.tb = t.ROI()
	}
	tw, th, _ := it.impl.tileDims()
	off := ((sz-it.tb.ZBegin)*th+(sy-it.tb.YBegin))*tw + (sx - it.tb.XBegin)
	it.buf = it.tile.Pixels()[off*it.pixelBytes:]
}

// GetFloat returns channel ch at the current position, converted to
// float. Non-existent positions read per the wrap mode.
func (it *iterState) GetFloat(ch int) float32 {
	if it.buf == nil || ch < 0 || ch >= it.nchannels {
		return 0
	}
	return imageio.NormalizedToFloat(it.format, it.buf[ch*it.chanBytes:])
}

// GetPixel fills pixel with channel values at the current position,
// up to min(len(pixel), NChannels) channels.
func (it *iterState) GetPixel(pixel []float32) {
	n := len(pixel)
	if n > it.nchannels {
		n = it.nchannels
	}
	for ch := 0; ch < n; ch++ {
		pixel[ch] = it.GetFloat(ch)
	}
	for ch := n; ch < len(pixel); ch++ {
		pixel[ch] = 0
	}
}

// DeepSamples returns the sample count of the current deep pixel.
func (it *iterState) DeepSamples() int {
	if !it.deep || !it.exists {
		return 0
	}
	return it.impl.deep.Samples(it.impl.pixelindex(it.x, it.y, it.z))
}

// DeepValue returns sample s of channel ch of the current deep pixel.
func (it *iterState) DeepValue(ch, s int) float32 {
	if !it.deep || !it.exists {
		return 0
	}
	return it.impl.deep.DeepValue(it.impl.pixelindex(it.x, it.y, it.z), ch, s)
}

// DeepValueUint returns sample s of channel ch of the current deep
// pixel as an unsigned integer.
func (it *iterState) DeepValueUint(ch, s int) uint32 {
	if !it.deep || !it.exists {
		return 0
	}
	return it.impl.deep.DeepValueUint(it.impl.pixelindex(it.x, it.y, it.z), ch, s)
}

// ConstIterator walks a region of an ImageBuf read-only, in x-fastest
// order. Cache-backed buffers are iterated tile by tile without being
// promoted to local storage.
type ConstIterator struct {
	iterState
}

// NewConstIterator returns a read-only iterator over roi, or over the
// whole data window when roi is undefined. wrap governs reads at
// positions outside the data window.
func NewConstIterator(ib *ImageBuf, roi imageio.ROI, wrap WrapMode) (*ConstIterator, error) {
	it := &ConstIterator{}
	if err := it.init(ib, roi, wrap); err != nil {
		return nil, err
	}
	return it, nil
}

// Iterator walks a region of an ImageBuf with both read and write
// access. Creating one promotes a cache-backed buffer to locally owned
// pixels, preserving current values and the cached pixel type.
type Iterator struct {
	iterState
}

// NewIterator returns a writable iterator over roi, or over the whole
// data window when roi is undefined.
func NewIterator(ib *ImageBuf, roi imageio.ROI, wrap WrapMode) (*Iterator, error) {
	if err := ib.MakeWritable(true); err != nil {
		return nil, err
	}
	it := &Iterator{}
	if err := it.init(ib, roi, wrap); err != nil {
		return nil, err
	}
	return it, nil
}

// SetFloat stores v into channel ch at the current position. Writes to
// positions outside the data window are ignored.
func (it *Iterator) SetFloat(ch int, v float32) {
	if !it.exists || it.buf == nil || ch < 0 || ch >= it.nchannels {
		return
	}
	imageio.FloatToNormalized(it.format, v, it.buf[ch*it.chanBytes:])
}

// SetPixel stores up to min(len(pixel), NChannels) channel values at
// the current position.
func (it *Iterator) SetPixel(pixel []float32) {
	n := len(pixel)
	if n > it.nchannels {
		n = it.nchannels
	}
	for ch := 0; ch < n; ch++ {
		it.SetFloat(ch, pixel[ch])
	}
}

// SetDeepSamples resizes the sample count of the current deep pixel.
func (it *Iterator) SetDeepSamples(n int) {
	if !it.deep || !it.exists {
		return
	}
	it.impl.deep.SetSamples(it.impl.pixelindex(it.x, it.y, it.z), n)
}

// SetDeepValue stores v into sample s of channel ch of the current deep
// pixel.
func (it *Iterator) SetDeepValue(ch, s int, v float32) {
	if !it.deep || !it.exists {
		return
	}
	it.impl.deep.SetDeepValue(it.impl.pixelindex(it.x, it.y, it.z), ch, s, v)
}

// SetDeepValueUint stores an unsigned integer sample value.
func (it *Iterator) SetDeepValueUint(ch, s int, v uint32) {
	if !it.deep || !it.exists {
		return
	}
	it.impl.deep.SetDeepValueUint(it.impl.pixelindex(it.x, it.y, it.z), ch, s, v)
}
