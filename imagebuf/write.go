package imagebuf

import (
	"io"

	"github.com/clayne/oiio/imageio"
)

// SetWriteFormat requests that subsequent Write calls store pixels in
// the given type rather than the buffer's own. TypeUnknown clears the
// request.
func (ib *ImageBuf) SetWriteFormat(format imageio.TypeDesc) {
	ib.impl.writeFormat = format
}

// SetWriteTiles requests the tile shape for subsequent Write calls.
// All zero requests scanline layout. Formats that cannot tile ignore
// the request.
func (ib *ImageBuf) SetWriteTiles(width, height, depth int) {
	impl := ib.impl
	impl.writeTileW, impl.writeTileH, impl.writeTileD = width, height, depth
	impl.writeTilesSet = true
}

// SetWriteIOProxy directs subsequent Write calls to w instead of a
// named file, for formats that support proxied output.
func (ib *ImageBuf) SetWriteIOProxy(w io.WriteSeeker) {
	ib.impl.writeProxy = w
}

// Write stores the buffer to a file. dtype overrides the pixel type
// when not TypeUnknown; otherwise a type requested by SetWriteFormat
// applies, and failing that the buffer's own type. fileformat names the
// format explicitly, "" chooses by file extension. progress, when
// non-nil, is called during the write with the completed fraction.
func (ib *ImageBuf) Write(filename string, dtype imageio.TypeDesc, fileformat string, progress imageio.ProgressCallback) error {
	if err := ib.ensurePixels(); err != nil {
		ib.Errorf("%v", err)
		return err
	}
	var out imageio.ImageOutput
	var err error
	if fileformat != "" {
		out, err = imageio.NewOutputFormat(fileformat)
	} else {
		out, err = imageio.NewOutput(filename)
	}
	if err != nil {
		ib.Errorf("%v", err)
		return err
	}
	impl := ib.impl
	if impl.writeProxy != nil {
		if p, ok := out.(imageio.IOProxyOutput); ok {
			p.SetIOProxy(impl.writeProxy)
		} else {
			ib.Errorf("%s does not support ioproxy output", out.FormatName())
			return imageio.ErrUnsupportedWrite
		}
	}
	spec := ib.writeSpec(dtype, out)
	if err := out.Open(filename, spec, imageio.Create); err != nil {
		ib.Errorf("%v", err)
		return err
	}
	if err := ib.writeBody(out, spec, progress); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		ib.Errorf("%v", err)
		return err
	}
	return nil
}

// WriteToOutput appends the buffer's pixels to an already open writer,
// for callers assembling multi-subimage files themselves. The caller
// owns the Open and Close calls.
func (ib *ImageBuf) WriteToOutput(out imageio.ImageOutput, progress imageio.ProgressCallback) error {
	if err := ib.ensurePixels(); err != nil {
		ib.Errorf("%v", err)
		return err
	}
	return ib.writeBody(out, ib.writeSpec(imageio.TypeUnknown, out), progress)
}

// writeSpec assembles the on-disk spec from the working spec and the
// queued write requests.
func (ib *ImageBuf) writeSpec(dtype imageio.TypeDesc, out imageio.ImageOutput) *imageio.ImageSpec {
	impl := ib.impl
	spec := impl.spec.Copy()
	switch {
	case dtype != imageio.TypeUnknown:
		spec.Format = dtype
	case impl.writeFormat != imageio.TypeUnknown:
		spec.Format = impl.writeFormat
	case impl.storage == ImageCache:
		spec.Format = impl.nativeSpec.Format
	}
	if impl.writeTilesSet {
		spec.TileWidth, spec.TileHeight, spec.TileDepth = impl.writeTileW, impl.writeTileH, impl.writeTileD
	}
	if spec.TileWidth > 0 && !out.Supports("tiles") {
		spec.TileWidth, spec.TileHeight, spec.TileDepth = 0, 0, 0
	}
	return spec
}

// writeBody sends pixels, deep samples and the thumbnail to out for the
// current subimage.
func (ib *ImageBuf) writeBody(out imageio.ImageOutput, spec *imageio.ImageSpec, progress imageio.ProgressCallback) error {
	impl := ib.impl
	if impl.spec.Deep {
		if !out.Supports("deepdata") {
			ib.Errorf("%s does not support deep data", out.FormatName())
			return imageio.ErrUnsupportedWrite
		}
		if err := out.WriteDeep(impl.deep); err != nil {
			ib.Errorf("%v", err)
			return err
		}
	} else {
		buf := make([]byte, spec.ImagePixels()*spec.NChannels*spec.Format.Size())
		if err := ib.GetPixels(imageio.ROI{}, spec.Format, buf,
			imageio.AutoStride, imageio.AutoStride, imageio.AutoStride); err != nil {
			ib.Errorf("%v", err)
			return err
		}
		if err := out.WriteImage(spec.Format, buf,
			imageio.AutoStride, imageio.AutoStride, imageio.AutoStride, progress); err != nil {
			ib.Errorf("%v", err)
			return err
		}
	}
	if impl.thumb != nil && out.Supports("thumbnail") {
		tspec := impl.thumb.Spec()
		if err := out.SetThumbnail(tspec, impl.thumb.impl.pixels); err != nil {
			ib.Errorf("%v", err)
			return err
		}
	}
	return nil
}
