package imagebuf

import (
	"github.com/clayne/oiio/imageio"
)

// CopyMetadata replaces this buffer's metadata (attributes, full
// window, channel designations, tile shape) with src's, leaving pixel
// geometry, type and the pixels themselves alone.
func (ib *ImageBuf) CopyMetadata(src *ImageBuf) {
	d := ib.Spec()
	s := src.Spec()
	d.FullX, d.FullY, d.FullZ = s.FullX, s.FullY, s.FullZ
	d.FullWidth, d.FullHeight, d.FullDepth = s.FullWidth, s.FullHeight, s.FullDepth
	d.TileWidth, d.TileHeight, d.TileDepth = s.TileWidth, s.TileHeight, s.TileDepth
	d.AlphaChannel = s.AlphaChannel
	d.ZChannel = s.ZChannel
	attrs := append([]imageio.ParamValue(nil), s.Attribs()...)
	for _, a := range d.Attribs() {
		d.EraseAttribute(a.Name)
	}
	for _, a := range attrs {
		d.Attribute(a.Name, a.Value)
	}
}

// MergeMetadata adds src's attributes to this buffer. With override
// true, attributes present in both take src's value; otherwise existing
// values win.
func (ib *ImageBuf) MergeMetadata(src *ImageBuf, override bool) {
	d := ib.Spec()
	for _, a := range src.Spec().Attribs() {
		if !override && d.Attrib(a.Name) != nil {
			continue
		}
		d.Attribute(a.Name, a.Value)
	}
}

// CopyPixels copies src's pixels into this buffer's data window,
// converting pixel type as needed. Pixels of this buffer that fall
// outside src's data window are zeroed. Geometry and metadata of this
// buffer are unchanged.
func (ib *ImageBuf) CopyPixels(src *ImageBuf) error {
	if err := ib.ensurePixels(); err != nil {
		return err
	}
	if err := src.ensurePixels(); err != nil {
		return err
	}
	if err := ib.MakeWritable(true); err != nil {
		return err
	}
	dimpl, simpl := ib.impl, src.impl
	if dimpl.spec.Deep || simpl.spec.Deep {
		return imageio.ErrDeep
	}

	// fast path: identical layout, both directly addressable
	if simpl.localpixels() && dimpl.spec.Format == simpl.spec.Format &&
		dimpl.spec.ROI() == simpl.spec.ROI() &&
		dimpl.spec.NChannels == simpl.spec.NChannels {
		rowBytes := dimpl.spec.Width * dimpl.spec.PixelBytes()
		s := dimpl.spec
		nrows := s.Height * s.Depth
		parallelFor(ib.resolveThreads(), 0, nrows, func(r int) {
			y := s.Y + r%s.Height
			z := s.Z + r/s.Height
			doff := dimpl.pixeladdr(s.X, y, z)
			soff := simpl.pixeladdr(s.X, y, z)
			copy(dimpl.pixels[doff:doff+rowBytes], simpl.pixels[soff:soff+rowBytes])
		})
		return nil
	}

	nch := dimpl.spec.NChannels
	pixel := make([]float32, nch)
	it, err := NewIterator(ib, imageio.ROI{}, WrapDefault)
	if err != nil {
		return err
	}
	defer it.Release()
	for ; !it.Done(); it.Next() {
		src.GetPixel(it.X(), it.Y(), it.Z(), pixel, WrapBlack)
		it.SetPixel(pixel)
	}
	return nil
}

// CopyFrom turns this buffer into a full copy of src: geometry,
// metadata, pixels and deep samples. format overrides the pixel type
// when not TypeUnknown. The result always owns its pixels locally, even
// when src wraps application memory or pages from a cache.
func (ib *ImageBuf) CopyFrom(src *ImageBuf, format imageio.TypeDesc) error {
	if src == ib {
		return nil
	}
	if !src.Initialized() {
		ib.Reset()
		return nil
	}
	if err := src.ensurePixels(); err != nil {
		return err
	}
	if ib.impl != nil && ib.impl.storage == AppBuffer {
		// wrapped memory cannot be reshaped; copy in place when the
		// geometry already matches, converting to the wrapped type
		d, s := ib.impl.spec, src.Spec()
		if d.ROI() != s.ROI() || d.NChannels != s.NChannels || s.Deep {
			ib.Errorf("cannot copy %s into wrapped buffer shaped %s", s, d)
			return imageio.ErrUnsupportedWrite
		}
		ib.CopyMetadata(src)
		return ib.CopyPixels(src)
	}
	spec := src.Spec().Copy()
	if format != imageio.TypeUnknown {
		spec.Format = format
	} else if src.impl.storage == ImageCache {
		spec.Format = src.impl.cacheFmt
	}
	ib.ResetSpec(spec)
	ib.impl.name = src.impl.name
	ib.impl.fileFormat = src.impl.fileFormat
	ib.impl.nativeSpec = src.impl.nativeSpec.Copy()
	ib.impl.thumb = src.impl.thumb
	if spec.Deep {
		ib.impl.deep = src.impl.deep.Copy()
		return nil
	}
	return ib.CopyPixels(src)
}

// Copy returns a new buffer that is a full local copy of this one, in
// format when not TypeUnknown.
func (ib *ImageBuf) Copy(format imageio.TypeDesc) (*ImageBuf, error) {
	out := &ImageBuf{impl: newImpl()}
	if err := out.CopyFrom(ib, format); err != nil {
		return nil, err
	}
	return out, nil
}

// Swap exchanges the entire contents of two buffers.
func (ib *ImageBuf) Swap(other *ImageBuf) {
	ib.impl, other.impl = other.impl, ib.impl
}
