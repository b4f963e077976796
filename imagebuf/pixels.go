package imagebuf

import (
	"fmt"

	"github.com/clayne/oiio/imagecache"
	"github.com/clayne/oiio/imageio"
)

// ensurePixels makes pixel data available, triggering the lazy file
// read for file-bound buffers.
func (ib *ImageBuf) ensurePixels() error {
	impl := ib.impl
	if impl == nil {
		return errUninitialized
	}
	if impl.pixelsValid {
		return nil
	}
	if impl.name == "" {
		return errUninitialized
	}
	sub, mip := impl.subimage, impl.miplevel
	if sub < 0 {
		sub = 0
	}
	if mip < 0 {
		mip = 0
	}
	return ib.Read(sub, mip, false, imageio.TypeUnknown, nil)
}

// pixelWindow returns a byte window onto pixel (x, y, z) after wrap
// mapping, together with the storage type. buf is nil when the position
// reads as black. A non-nil tile must be released by the caller.
func (ib *ImageBuf) pixelWindow(x, y, z int, wrap WrapMode) (buf []byte, format imageio.TypeDesc, tile *imagecache.Tile) {
	impl := ib.impl
	img := impl.spec.ROI()
	if !img.Contains(x, y, z) {
		if wrap == WrapDefault || wrap == WrapBlack {
			return nil, imageio.TypeUnknown, nil
		}
		x, _ = wrapCoord(wrap, x, img.XBegin, img.XEnd)
		y, _ = wrapCoord(wrap, y, img.YBegin, img.YEnd)
		z, _ = wrapCoord(wrap, z, img.ZBegin, img.ZEnd)
	}
	if impl.localpixels() {
		return impl.pixels[impl.pixeladdr(x, y, z):], impl.spec.Format, nil
	}
	t, err := impl.cache.GetTile(impl.name, impl.subimage, impl.miplevel, x, y, z)
	if err != nil {
		ib.Errorf("%v", err)
		return nil, imageio.TypeUnknown, nil
	}
	tb := t.ROI()
	tw, th, _ := impl.tileDims()
	off := ((z-tb.ZBegin)*th+(y-tb.YBegin))*tw + (x - tb.XBegin)
	pb := impl.cacheFmt.Size() * impl.spec.NChannels
	return t.Pixels()[off*pb:], impl.cacheFmt, t
}

// GetChannel returns one channel of one pixel as a float, applying
// wrap for coordinates outside the data window.
func (ib *ImageBuf) GetChannel(x, y, z, ch int, wrap WrapMode) float32 {
	if err := ib.ensurePixels(); err != nil {
		return 0
	}
	impl := ib.impl
	if impl.spec.Deep || ch < 0 || ch >= impl.spec.NChannels {
		return 0
	}
	buf, format, tile := ib.pixelWindow(x, y, z, wrap)
	if buf == nil {
		return 0
	}
	v := imageio.NormalizedToFloat(format, buf[ch*format.Size():])
	tile.Release()
	return v
}

// GetPixel fills pixel with the channel values at (x, y, z), converted
// to float, up to min(len(pixel), NChannels) channels.
func (ib *ImageBuf) GetPixel(x, y, z int, pixel []float32, wrap WrapMode) {
	for i := range pixel {
		pixel[i] = 0
	}
	if err := ib.ensurePixels(); err != nil {
		return
	}
	impl := ib.impl
	if impl.spec.Deep {
		// deep pixels read as their first sample
		p := impl.pixelindex(x, y, z)
		if p >= 0 && impl.deep.Samples(p) > 0 {
			for ch := 0; ch < len(pixel) && ch < impl.spec.NChannels; ch++ {
				pixel[ch] = impl.deep.DeepValue(p, ch, 0)
			}
		}
		return
	}
	buf, format, tile := ib.pixelWindow(x, y, z, wrap)
	if buf == nil {
		return
	}
	cb := format.Size()
	n := len(pixel)
	if n > impl.spec.NChannels {
		n = impl.spec.NChannels
	}
	for ch := 0; ch < n; ch++ {
		pixel[ch] = imageio.NormalizedToFloat(format, buf[ch*cb:])
	}
	tile.Release()
}

// SetPixel stores channel values at (x, y, z), converting to the
// buffer's pixel type. Cache-backed buffers are first promoted to local
// storage. Writes outside the data window are ignored.
func (ib *ImageBuf) SetPixel(x, y, z int, pixel []float32) {
	if err := ib.ensurePixels(); err != nil {
		return
	}
	if err := ib.MakeWritable(true); err != nil {
		return
	}
	impl := ib.impl
	if impl.spec.Deep || !impl.spec.ROI().Contains(x, y, z) {
		return
	}
	buf := impl.pixels[impl.pixeladdr(x, y, z):]
	cb := impl.spec.Format.Size()
	n := len(pixel)
	if n > impl.spec.NChannels {
		n = impl.spec.NChannels
	}
	for ch := 0; ch < n; ch++ {
		imageio.FloatToNormalized(impl.spec.Format, pixel[ch], buf[ch*cb:])
	}
}

// GetPixels copies the pixels of roi into a strided caller buffer,
// converting to format. Copying covers only the intersection of roi and
// the data window; destination bytes for positions outside it are left
// untouched. AutoStride strides request contiguous layout over roi's
// extent and channel range.
func (ib *ImageBuf) GetPixels(roi imageio.ROI, format imageio.TypeDesc, dst []byte, xstride, ystride, zstride int) error {
	if err := ib.ensurePixels(); err != nil {
		return err
	}
	impl := ib.impl
	if impl.spec.Deep {
		return imageio.ErrDeep
	}
	if !roi.Defined() {
		roi = impl.spec.ROI()
	}
	clampChannels(&roi, impl.spec.NChannels)
	nch := roi.NChannels()
	resolveStrides(&xstride, &ystride, &zstride, format.Size()*nch, roi.Width(), roi.Height())
	need := (roi.Depth()-1)*zstride + (roi.Height()-1)*ystride + (roi.Width()-1)*xstride + format.Size()*nch
	if len(dst) < need {
		return fmt.Errorf("imagebuf: destination is %d bytes, need %d", len(dst), need)
	}
	clipped := imageio.Intersection(roi, impl.spec.ROI())
	if clipped.NPixels() == 0 {
		return nil
	}
	it, err := NewConstIterator(ib, clipped, WrapBlack)
	if err != nil {
		return err
	}
	defer it.Release()
	cb := it.format.Size()
	for ; !it.Done(); it.Next() {
		if it.buf == nil {
			// tile fetch failed; the error is on the buffer's queue
			continue
		}
		off := (it.z-roi.ZBegin)*zstride + (it.y-roi.YBegin)*ystride + (it.x-roi.XBegin)*xstride
		if err := imageio.ConvertPixelValues(it.format, it.buf[roi.ChBegin*cb:], format, dst[off:], nch); err != nil {
			return err
		}
	}
	return nil
}

// SetPixels copies pixels from a strided caller buffer in the given
// format into roi, converting to the buffer's pixel type. Cache-backed
// buffers are first promoted. Portions of roi outside the data window
// are ignored.
func (ib *ImageBuf) SetPixels(roi imageio.ROI, format imageio.TypeDesc, src []byte, xstride, ystride, zstride int) error {
	if err := ib.ensurePixels(); err != nil {
		return err
	}
	if err := ib.MakeWritable(true); err != nil {
		return err
	}
	impl := ib.impl
	if impl.spec.Deep {
		return imageio.ErrDeep
	}
	if !roi.Defined() {
		roi = impl.spec.ROI()
	}
	clampChannels(&roi, impl.spec.NChannels)
	nch := roi.NChannels()
	resolveStrides(&xstride, &ystride, &zstride, format.Size()*nch, roi.Width(), roi.Height())
	dcb := impl.spec.Format.Size()
	clipped := imageio.Intersection(roi, impl.spec.ROI())
	for z := clipped.ZBegin; z < clipped.ZEnd; z++ {
		for y := clipped.YBegin; y < clipped.YEnd; y++ {
			for x := clipped.XBegin; x < clipped.XEnd; x++ {
				soff := (z-roi.ZBegin)*zstride + (y-roi.YBegin)*ystride + (x-roi.XBegin)*xstride
				dst := impl.pixels[impl.pixeladdr(x, y, z)+roi.ChBegin*dcb:]
				if err := imageio.ConvertPixelValues(format, src[soff:], impl.spec.Format, dst, nch); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func clampChannels(roi *imageio.ROI, nchannels int) {
	if roi.ChBegin < 0 {
		roi.ChBegin = 0
	}
	if roi.ChEnd > nchannels {
		roi.ChEnd = nchannels
	}
	if roi.ChEnd < roi.ChBegin {
		roi.ChEnd = roi.ChBegin
	}
}

func resolveStrides(xstride, ystride, zstride *int, pixelBytes, width, height int) {
	if *xstride == imageio.AutoStride {
		*xstride = pixelBytes
	}
	if *ystride == imageio.AutoStride {
		*ystride = *xstride * width
	}
	if *zstride == imageio.AutoStride {
		*zstride = *ystride * height
	}
}

// InterpPixel bilinearly samples the image at continuous pixel
// coordinates, with pixel centers at half-integer positions. Samples
// falling outside the data window contribute per the wrap mode.
func (ib *ImageBuf) InterpPixel(x, y float32, pixel []float32, wrap WrapMode) {
	s := x - 0.5
	t := y - 0.5
	x0 := ifloor(s)
	y0 := ifloor(t)
	fs := s - float32(x0)
	ft := t - float32(y0)
	n := len(pixel)
	p00 := make([]float32, n)
	p10 := make([]float32, n)
	p01 := make([]float32, n)
	p11 := make([]float32, n)
	z := ib.ZBegin()
	ib.GetPixel(x0, y0, z, p00, wrap)
	ib.GetPixel(x0+1, y0, z, p10, wrap)
	ib.GetPixel(x0, y0+1, z, p01, wrap)
	ib.GetPixel(x0+1, y0+1, z, p11, wrap)
	for ch := 0; ch < n; ch++ {
		top := p00[ch] + (p10[ch]-p00[ch])*fs
		bot := p01[ch] + (p11[ch]-p01[ch])*fs
		pixel[ch] = top + (bot-top)*ft
	}
}

// InterpPixelNDC bilinearly samples at NDC coordinates, where (0, 0)
// and (1, 1) are the corners of the full (display) window.
func (ib *ImageBuf) InterpPixelNDC(s, t float32, pixel []float32, wrap WrapMode) {
	spec := ib.Spec()
	ib.InterpPixel(float32(spec.FullX)+s*float32(spec.FullWidth),
		float32(spec.FullY)+t*float32(spec.FullHeight), pixel, wrap)
}

// InterpPixelBicubic samples with Catmull-Rom cubic interpolation over
// the 4x4 neighborhood of the continuous pixel coordinate.
func (ib *ImageBuf) InterpPixelBicubic(x, y float32, pixel []float32, wrap WrapMode) {
	s := x - 0.5
	t := y - 0.5
	x0 := ifloor(s)
	y0 := ifloor(t)
	fs := s - float32(x0)
	ft := t - float32(y0)
	var wx, wy [4]float32
	catmullRomWeights(fs, &wx)
	catmullRomWeights(ft, &wy)
	n := len(pixel)
	p := make([]float32, n)
	for ch := range pixel {
		pixel[ch] = 0
	}
	z := ib.ZBegin()
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			w := wx[i] * wy[j]
			if w == 0 {
				continue
			}
			ib.GetPixel(x0-1+i, y0-1+j, z, p, wrap)
			for ch := 0; ch < n; ch++ {
				pixel[ch] += w * p[ch]
			}
		}
	}
}

// InterpPixelBicubicNDC is InterpPixelBicubic addressed in NDC space
// over the full window.
func (ib *ImageBuf) InterpPixelBicubicNDC(s, t float32, pixel []float32, wrap WrapMode) {
	spec := ib.Spec()
	ib.InterpPixelBicubic(float32(spec.FullX)+s*float32(spec.FullWidth),
		float32(spec.FullY)+t*float32(spec.FullHeight), pixel, wrap)
}

// catmullRomWeights fills w with the kernel weights for the four taps
// at offsets -1, 0, 1, 2 around fractional position t in [0, 1).
func catmullRomWeights(t float32, w *[4]float32) {
	t2 := t * t
	t3 := t2 * t
	w[0] = 0.5 * (-t3 + 2*t2 - t)
	w[1] = 0.5 * (3*t3 - 5*t2 + 2)
	w[2] = 0.5 * (-3*t3 + 4*t2 + t)
	w[3] = 0.5 * (t3 - t2)
}

func ifloor(f float32) int {
	i := int(f)
	if f < 0 && float32(i) != f {
		i--
	}
	return i
}
