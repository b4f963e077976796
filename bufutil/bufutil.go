// Package bufutil bridges ImageBuf to the standard library image types
// and provides thumbnail generation on top of that bridge.
package bufutil

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/clayne/oiio/imagebuf"
	"github.com/clayne/oiio/imageio"
)

var errNoPixels = errors.New("bufutil: buffer has no pixels")

// ToImage converts a flat buffer to a standard library image. Buffers
// with 8-bit channels become *image.NRGBA (or *image.Gray for single
// channel); every other channel type converts through float to
// *image.NRGBA64. Two-channel buffers render as luminance plus alpha.
func ToImage(ib *imagebuf.ImageBuf) (image.Image, error) {
	if !ib.Initialized() {
		return nil, errNoPixels
	}
	if ib.Deep() {
		return nil, imageio.ErrDeep
	}
	spec := ib.Spec()
	w, h := spec.Width, spec.Height
	roi := spec.ROI()
	roi.ZEnd = roi.ZBegin + 1

	if spec.Format == imageio.TypeUInt8 && spec.NChannels == 1 {
		g := image.NewGray(image.Rect(0, 0, w, h))
		err := ib.GetPixels(roi, imageio.TypeUInt8, g.Pix,
			1, g.Stride, imageio.AutoStride)
		return g, err
	}
	if spec.Format == imageio.TypeUInt8 && spec.NChannels >= 3 {
		n := image.NewNRGBA(image.Rect(0, 0, w, h))
		if spec.NChannels == 4 {
			err := ib.GetPixels(roi, imageio.TypeUInt8, n.Pix,
				4, n.Stride, imageio.AutoStride)
			return n, err
		}
		roi3 := roi
		roi3.ChEnd = roi3.ChBegin + 3
		buf := make([]byte, w*h*3)
		if err := ib.GetPixels(roi3, imageio.TypeUInt8, buf,
			imageio.AutoStride, imageio.AutoStride, imageio.AutoStride); err != nil {
			return nil, err
		}
		for p := 0; p < w*h; p++ {
			n.Pix[p*4+0] = buf[p*3+0]
			n.Pix[p*4+1] = buf[p*3+1]
			n.Pix[p*4+2] = buf[p*3+2]
			n.Pix[p*4+3] = 0xff
		}
		return n, nil
	}

	// generic path through float
	out := image.NewNRGBA64(image.Rect(0, 0, w, h))
	pixel := make([]float32, spec.NChannels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ib.GetPixel(spec.X+x, spec.Y+y, spec.Z, pixel, imagebuf.WrapBlack)
			var c color.NRGBA64
			switch spec.NChannels {
			case 1:
				v := q16(pixel[0])
				c = color.NRGBA64{v, v, v, 0xffff}
			case 2:
				v := q16(pixel[0])
				c = color.NRGBA64{v, v, v, q16(pixel[1])}
			case 3:
				c = color.NRGBA64{q16(pixel[0]), q16(pixel[1]), q16(pixel[2]), 0xffff}
			default:
				c = color.NRGBA64{q16(pixel[0]), q16(pixel[1]), q16(pixel[2]), q16(pixel[3])}
			}
			out.SetNRGBA64(x, y, c)
		}
	}
	return out, nil
}

func q16(v float32) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*65535 + 0.5)
}

// FromImage wraps a standard library image in a new locally owned
// buffer. 8-bit sources become uint8 buffers, everything else uint16.
func FromImage(img image.Image) (*imagebuf.ImageBuf, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("bufutil: image has empty bounds %v", b)
	}
	switch src := img.(type) {
	case *image.Gray:
		spec := imageio.NewImageSpec(w, h, 1, imageio.TypeUInt8)
		ib := imagebuf.New(spec)
		err := ib.SetPixels(spec.ROI(), imageio.TypeUInt8, src.Pix,
			1, src.Stride, imageio.AutoStride)
		return ib, err
	case *image.NRGBA:
		spec := imageio.NewImageSpec(w, h, 4, imageio.TypeUInt8)
		ib := imagebuf.New(spec)
		err := ib.SetPixels(spec.ROI(), imageio.TypeUInt8, src.Pix,
			4, src.Stride, imageio.AutoStride)
		return ib, err
	}
	spec := imageio.NewImageSpec(w, h, 4, imageio.TypeUInt16)
	ib := imagebuf.New(spec)
	pixel := make([]float32, 4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			pixel[0] = float32(c.R) / 65535
			pixel[1] = float32(c.G) / 65535
			pixel[2] = float32(c.B) / 65535
			pixel[3] = float32(c.A) / 65535
			ib.SetPixel(x, y, 0, pixel)
		}
	}
	return ib, nil
}

// Thumbnail returns a preview of the buffer scaled to fit within
// maxdim on the longer side, preserving aspect ratio.
func Thumbnail(ib *imagebuf.ImageBuf, maxdim int) (*imagebuf.ImageBuf, error) {
	if maxdim < 1 {
		return nil, fmt.Errorf("bufutil: thumbnail size %d", maxdim)
	}
	img, err := ToImage(ib)
	if err != nil {
		return nil, err
	}
	small := imaging.Fit(img, maxdim, maxdim, imaging.Lanczos)
	return FromImage(small)
}

// AttachThumbnail generates a preview of the buffer and attaches it, so
// a following Write embeds it in files whose format supports previews.
func AttachThumbnail(ib *imagebuf.ImageBuf, maxdim int) error {
	thumb, err := Thumbnail(ib, maxdim)
	if err != nil {
		return err
	}
	ib.SetThumbnail(thumb)
	return nil
}
