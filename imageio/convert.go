package imageio

import "fmt"

// ConvertPixelValues converts n channel values from src (in srcType)
// into dst (in dstType). Both buffers are densely packed. Integer types
// convert by normalized value, so uint8 255 becomes float 1.0 and back.
func ConvertPixelValues(srcType TypeDesc, src []byte, dstType TypeDesc, dst []byte, n int) error {
	ss, ds := srcType.Size(), dstType.Size()
	if ss == 0 || ds == 0 {
		return fmt.Errorf("imageio: cannot convert %s to %s", srcType, dstType)
	}
	if len(src) < n*ss || len(dst) < n*ds {
		return fmt.Errorf("imageio: conversion buffer too small for %d values", n)
	}
	if srcType == dstType {
		copy(dst[:n*ds], src[:n*ss])
		return nil
	}
	for i := 0; i < n; i++ {
		v := NormalizedToFloat(srcType, src[i*ss:])
		FloatToNormalized(dstType, v, dst[i*ds:])
	}
	return nil
}

// CopyPixelRegion copies a rectangular region of pixels between two
// strided buffers, converting type along the way. Strides are in bytes;
// width, height and depth are in pixels and nchannels is the number of
// interleaved channels per pixel.
func CopyPixelRegion(srcType TypeDesc, src []byte, sxstride, systride, szstride int,
	dstType TypeDesc, dst []byte, dxstride, dystride, dzstride int,
	width, height, depth, nchannels int) error {
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			srow := src[z*szstride+y*systride:]
			drow := dst[z*dzstride+y*dystride:]
			if srcType == dstType && sxstride == srcType.Size()*nchannels &&
				dxstride == dstType.Size()*nchannels {
				copy(drow[:width*dxstride], srow[:width*sxstride])
				continue
			}
			for x := 0; x < width; x++ {
				if err := ConvertPixelValues(srcType, srow[x*sxstride:],
					dstType, drow[x*dxstride:], nchannels); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
