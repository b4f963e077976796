package imageio

import "fmt"

// DeepData holds the sample data for a deep image, where every pixel
// carries a variable number of samples on every channel. Samples for a
// pixel are stored contiguously per channel; a cumulative offset table
// maps pixel index to its first sample.
type DeepData struct {
	npixels   int
	nchannels int
	chantypes []TypeDesc
	channames []string

	nsamples []int    // per-pixel sample count
	offsets  []int    // per-pixel cumulative start, len npixels+1
	dirty    bool     // offsets need rebuilding
	data     [][]byte // per-channel flat sample storage
}

// NewDeepData returns deep storage for npixels pixels with the given
// channel types and names. All pixels start with zero samples.
func NewDeepData(npixels int, chantypes []TypeDesc, channames []string) *DeepData {
	d := &DeepData{
		npixels:   npixels,
		nchannels: len(chantypes),
		chantypes: append([]TypeDesc(nil), chantypes...),
		channames: append([]string(nil), channames...),
		nsamples:  make([]int, npixels),
		offsets:   make([]int, npixels+1),
		data:      make([][]byte, len(chantypes)),
	}
	return d
}

// NPixels returns the number of pixels covered by the deep storage.
func (d *DeepData) NPixels() int { return d.npixels }

// NChannels returns the number of channels.
func (d *DeepData) NChannels() int { return d.nchannels }

// ChannelType returns the data type of channel ch.
func (d *DeepData) ChannelType(ch int) TypeDesc { return d.chantypes[ch] }

// ChannelName returns the name of channel ch, or "" if unnamed.
func (d *DeepData) ChannelName(ch int) string {
	if ch < 0 || ch >= len(d.channames) {
		return ""
	}
	return d.channames[ch]
}

// TotalSamples returns the sum of sample counts over all pixels.
func (d *DeepData) TotalSamples() int {
	d.rebuild()
	return d.offsets[d.npixels]
}

// Samples returns the sample count of pixel p, or 0 if p is out of range.
func (d *DeepData) Samples(p int) int {
	if p < 0 || p >= d.npixels {
		return 0
	}
	return d.nsamples[p]
}

func (d *DeepData) rebuild() {
	if !d.dirty {
		return
	}
	total := 0
	for i, n := range d.nsamples {
		d.offsets[i] = total
		total += n
	}
	d.offsets[d.npixels] = total
	d.dirty = false
}

// byte offset of sample s of pixel p in channel ch
func (d *DeepData) sampleOffset(p, ch, s int) int {
	d.rebuild()
	return (d.offsets[p] + s) * d.chantypes[ch].Size()
}

// SetSamples resizes the sample count of pixel p to n, preserving
// existing samples up to the new count and zero-filling growth.
func (d *DeepData) SetSamples(p, n int) error {
	if p < 0 || p >= d.npixels {
		return fmt.Errorf("imageio: deep pixel %d out of range", p)
	}
	if n < 0 {
		n = 0
	}
	old := d.nsamples[p]
	if n == old {
		return nil
	}
	if n > old {
		d.insertSamples(p, old, n-old)
	} else {
		d.eraseSamples(p, n, old-n)
	}
	return nil
}

// InsertSamples inserts count zero-valued samples in pixel p before
// sample position s.
func (d *DeepData) InsertSamples(p, s, count int) error {
	if p < 0 || p >= d.npixels {
		return fmt.Errorf("imageio: deep pixel %d out of range", p)
	}
	if s < 0 || s > d.nsamples[p] {
		return fmt.Errorf("imageio: deep sample position %d out of range", s)
	}
	if count > 0 {
		d.insertSamples(p, s, count)
	}
	return nil
}

// EraseSamples removes count samples from pixel p starting at sample s.
func (d *DeepData) EraseSamples(p, s, count int) error {
	if p < 0 || p >= d.npixels {
		return fmt.Errorf("imageio: deep pixel %d out of range", p)
	}
	if s < 0 || s+count > d.nsamples[p] {
		return fmt.Errorf("imageio: deep sample range [%d,%d) out of range", s, s+count)
	}
	if count > 0 {
		d.eraseSamples(p, s, count)
	}
	return nil
}

func (d *DeepData) insertSamples(p, s, count int) {
	d.rebuild()
	at := d.offsets[p] + s
	for ch := range d.data {
		size := d.chantypes[ch].Size()
		zero := make([]byte, count*size)
		buf := d.data[ch]
		buf = append(buf[:at*size], append(zero, buf[at*size:]...)...)
		d.data[ch] = buf
	}
	d.nsamples[p] += count
	d.dirty = true
}

func (d *DeepData) eraseSamples(p, s, count int) {
	d.rebuild()
	at := d.offsets[p] + s
	for ch := range d.data {
		size := d.chantypes[ch].Size()
		buf := d.data[ch]
		d.data[ch] = append(buf[:at*size], buf[(at+count)*size:]...)
	}
	d.nsamples[p] -= count
	d.dirty = true
}

// DeepValue returns sample s of channel ch of pixel p as a float,
// applying the usual normalized conversion for integer channel types.
// Out-of-range requests return 0.
func (d *DeepData) DeepValue(p, ch, s int) float32 {
	if p < 0 || p >= d.npixels || ch < 0 || ch >= d.nchannels ||
		s < 0 || s >= d.nsamples[p] {
		return 0
	}
	off := d.sampleOffset(p, ch, s)
	return NormalizedToFloat(d.chantypes[ch], d.data[ch][off:])
}

// DeepValueUint returns sample s of channel ch of pixel p as an
// unsigned integer without normalization. Non-integer channels and
// out-of-range requests return 0.
func (d *DeepData) DeepValueUint(p, ch, s int) uint32 {
	if p < 0 || p >= d.npixels || ch < 0 || ch >= d.nchannels ||
		s < 0 || s >= d.nsamples[p] {
		return 0
	}
	off := d.sampleOffset(p, ch, s)
	buf := d.data[ch][off:]
	switch d.chantypes[ch] {
	case TypeUInt8, TypeInt8:
		return uint32(buf[0])
	case TypeUInt16, TypeInt16:
		return uint32(le16(buf))
	case TypeUInt32, TypeInt32:
		return le32(buf)
	}
	return 0
}

// SetDeepValue stores v into sample s of channel ch of pixel p,
// converting to the channel's type. Out-of-range requests are ignored.
func (d *DeepData) SetDeepValue(p, ch, s int, v float32) {
	if p < 0 || p >= d.npixels || ch < 0 || ch >= d.nchannels ||
		s < 0 || s >= d.nsamples[p] {
		return
	}
	off := d.sampleOffset(p, ch, s)
	FloatToNormalized(d.chantypes[ch], v, d.data[ch][off:])
}

// SetDeepValueUint stores raw integer v into sample s of channel ch of
// pixel p. Out-of-range requests are ignored.
func (d *DeepData) SetDeepValueUint(p, ch, s int, v uint32) {
	if p < 0 || p >= d.npixels || ch < 0 || ch >= d.nchannels ||
		s < 0 || s >= d.nsamples[p] {
		return
	}
	off := d.sampleOffset(p, ch, s)
	buf := d.data[ch][off:]
	switch d.chantypes[ch] {
	case TypeUInt8, TypeInt8:
		buf[0] = byte(v)
	case TypeUInt16, TypeInt16:
		putLE16(buf, uint16(v))
	case TypeUInt32, TypeInt32:
		putLE32(buf, v)
	}
}

// CopyDeepPixel replaces pixel p's samples with those of pixel srcPix
// from src. The two deep stores must have the same channel layout.
func (d *DeepData) CopyDeepPixel(p int, src *DeepData, srcPix int) error {
	if p < 0 || p >= d.npixels {
		return fmt.Errorf("imageio: deep pixel %d out of range", p)
	}
	if srcPix < 0 || srcPix >= src.npixels {
		return fmt.Errorf("imageio: deep source pixel %d out of range", srcPix)
	}
	if d.nchannels != src.nchannels {
		return fmt.Errorf("imageio: deep channel count mismatch (%d vs %d)",
			d.nchannels, src.nchannels)
	}
	for ch := 0; ch < d.nchannels; ch++ {
		if d.chantypes[ch] != src.chantypes[ch] {
			return fmt.Errorf("imageio: deep channel %d type mismatch", ch)
		}
	}
	n := src.nsamples[srcPix]
	if err := d.SetSamples(p, n); err != nil {
		return err
	}
	d.rebuild()
	src.rebuild()
	for ch := 0; ch < d.nchannels; ch++ {
		size := d.chantypes[ch].Size()
		doff := d.offsets[p] * size
		soff := src.offsets[srcPix] * size
		copy(d.data[ch][doff:doff+n*size], src.data[ch][soff:soff+n*size])
	}
	return nil
}

// Copy returns a deep copy of the deep store.
func (d *DeepData) Copy() *DeepData {
	c := &DeepData{
		npixels:   d.npixels,
		nchannels: d.nchannels,
		chantypes: append([]TypeDesc(nil), d.chantypes...),
		channames: append([]string(nil), d.channames...),
		nsamples:  append([]int(nil), d.nsamples...),
		offsets:   append([]int(nil), d.offsets...),
		dirty:     d.dirty,
		data:      make([][]byte, len(d.data)),
	}
	for ch := range d.data {
		c.data[ch] = append([]byte(nil), d.data[ch]...)
	}
	return c
}

// ChannelData returns the flat sample storage for channel ch. The slice
// aliases the deep store; it is valid until the next structural edit.
func (d *DeepData) ChannelData(ch int) []byte {
	d.rebuild()
	return d.data[ch]
}

// SetChannelData replaces the flat sample storage for channel ch. The
// buffer length must match TotalSamples times the channel's type size.
func (d *DeepData) SetChannelData(ch int, buf []byte) error {
	want := d.TotalSamples() * d.chantypes[ch].Size()
	if len(buf) != want {
		return fmt.Errorf("imageio: deep channel %d data is %d bytes, want %d",
			ch, len(buf), want)
	}
	d.data[ch] = buf
	return nil
}

// SetAllSamples sets every pixel's sample count at once, as when a file
// reader has decoded a sample-count table. Existing samples are discarded.
func (d *DeepData) SetAllSamples(counts []int) error {
	if len(counts) != d.npixels {
		return fmt.Errorf("imageio: sample count table has %d entries, want %d",
			len(counts), d.npixels)
	}
	copy(d.nsamples, counts)
	d.dirty = true
	d.rebuild()
	total := d.offsets[d.npixels]
	for ch := range d.data {
		d.data[ch] = make([]byte, total*d.chantypes[ch].Size())
	}
	return nil
}
