package imagebuf

// Deep pixel access. All methods are no-ops or return zero for flat
// buffers and for coordinates outside the data window.

// DeepSamples returns the sample count of the deep pixel at (x, y, z).
func (ib *ImageBuf) DeepSamples(x, y, z int) int {
	if err := ib.ensurePixels(); err != nil || ib.impl.deep == nil {
		return 0
	}
	return ib.impl.deep.Samples(ib.impl.pixelindex(x, y, z))
}

// SetDeepSamples resizes the sample count of the deep pixel at
// (x, y, z), preserving existing samples and zero-filling growth.
func (ib *ImageBuf) SetDeepSamples(x, y, z, n int) {
	if err := ib.ensurePixels(); err != nil || ib.impl.deep == nil {
		return
	}
	p := ib.impl.pixelindex(x, y, z)
	if p >= 0 {
		ib.impl.deep.SetSamples(p, n)
	}
}

// DeepValue returns sample s of channel ch of the deep pixel at
// (x, y, z) as a float.
func (ib *ImageBuf) DeepValue(x, y, z, ch, s int) float32 {
	if err := ib.ensurePixels(); err != nil || ib.impl.deep == nil {
		return 0
	}
	return ib.impl.deep.DeepValue(ib.impl.pixelindex(x, y, z), ch, s)
}

// DeepValueUint returns sample s of channel ch of the deep pixel at
// (x, y, z) as a raw unsigned integer.
func (ib *ImageBuf) DeepValueUint(x, y, z, ch, s int) uint32 {
	if err := ib.ensurePixels(); err != nil || ib.impl.deep == nil {
		return 0
	}
	return ib.impl.deep.DeepValueUint(ib.impl.pixelindex(x, y, z), ch, s)
}

// SetDeepValue stores v into sample s of channel ch of the deep pixel
// at (x, y, z).
func (ib *ImageBuf) SetDeepValue(x, y, z, ch, s int, v float32) {
	if err := ib.ensurePixels(); err != nil || ib.impl.deep == nil {
		return
	}
	p := ib.impl.pixelindex(x, y, z)
	if p >= 0 {
		ib.impl.deep.SetDeepValue(p, ch, s, v)
	}
}

// SetDeepValueUint stores raw integer v into sample s of channel ch of
// the deep pixel at (x, y, z).
func (ib *ImageBuf) SetDeepValueUint(x, y, z, ch, s int, v uint32) {
	if err := ib.ensurePixels(); err != nil || ib.impl.deep == nil {
		return
	}
	p := ib.impl.pixelindex(x, y, z)
	if p >= 0 {
		ib.impl.deep.SetDeepValueUint(p, ch, s, v)
	}
}

// DeepInsertSamples inserts n zero-valued samples before sample pos of
// the deep pixel at (x, y, z).
func (ib *ImageBuf) DeepInsertSamples(x, y, z, pos, n int) {
	if err := ib.ensurePixels(); err != nil || ib.impl.deep == nil {
		return
	}
	p := ib.impl.pixelindex(x, y, z)
	if p >= 0 {
		ib.impl.deep.InsertSamples(p, pos, n)
	}
}

// DeepEraseSamples removes n samples starting at sample pos of the
// deep pixel at (x, y, z).
func (ib *ImageBuf) DeepEraseSamples(x, y, z, pos, n int) {
	if err := ib.ensurePixels(); err != nil || ib.impl.deep == nil {
		return
	}
	p := ib.impl.pixelindex(x, y, z)
	if p >= 0 {
		ib.impl.deep.EraseSamples(p, pos, n)
	}
}

// CopyDeepPixel replaces the deep pixel at (x, y, z) with the deep
// pixel of src at (sx, sy, sz). The two buffers must have the same
// channel layout.
func (ib *ImageBuf) CopyDeepPixel(x, y, z int, src *ImageBuf, sx, sy, sz int) error {
	if err := ib.ensurePixels(); err != nil {
		return err
	}
	if err := src.ensurePixels(); err != nil {
		return err
	}
	if ib.impl.deep == nil || src.impl.deep == nil {
		return errNotDeep
	}
	p := ib.impl.pixelindex(x, y, z)
	sp := src.impl.pixelindex(sx, sy, sz)
	if p < 0 || sp < 0 {
		return errOutsideWindow
	}
	return ib.impl.deep.CopyDeepPixel(p, src.impl.deep, sp)
}
