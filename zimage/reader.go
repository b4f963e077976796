package zimage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/clayne/oiio/imageio"
)

// reader parses the index once at open time, then serves tiles and
// scanline bands with single ReadAt calls per chunk.
type reader struct {
	name   string
	src    io.ReaderAt
	closer io.Closer

	subimages []rSubimage
	thumb     *rThumb
	cur, mip  int
}

type rSubimage struct {
	levels []rLevel
}

type rLevel struct {
	spec   *imageio.ImageSpec
	chunks []chunkRef
	deep   *rDeep
}

type chunkRef struct {
	codec byte
	blob
}

type rDeep struct {
	counts   blob
	channels []rDeepChannel
}

type rDeepChannel struct {
	typ imageio.TypeDesc
	blob
}

type rThumb struct {
	spec *imageio.ImageSpec
	blob
}

func openFile(name string, config *imageio.ImageSpec) (imageio.ImageInput, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r := &reader{name: name, src: f, closer: f}
	if err := r.parse(st.Size(), config); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// NewReader opens a zimage stream from any random-access source, for
// callers that do not have a file on disk.
func NewReader(src io.ReaderAt, size int64) (imageio.ImageInput, error) {
	r := &reader{name: "<proxy>", src: src}
	if err := r.parse(size, nil); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *reader) parse(size int64, config *imageio.ImageSpec) (err error) {
	hdr, err := readFull(r.src, 0, headerSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if string(hdr[:4]) != magic {
		return ErrBadMagic
	}
	if binary.LittleEndian.Uint16(hdr[4:]) != fileVersion {
		return ErrBadVersion
	}
	flags := binary.LittleEndian.Uint16(hdr[6:])
	nsub := int(binary.LittleEndian.Uint32(hdr[8:]))
	indexOff := int64(binary.LittleEndian.Uint64(hdr[12:]))
	if indexOff < headerSize || indexOff > size {
		return ErrCorrupt
	}
	raw, err := readFull(r.src, indexOff, int(size-indexOff))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	c := &cursor{buf: raw}

	if flags&flagThumbnail != 0 {
		ts := &imageio.ImageSpec{Depth: 1, FullDepth: 1, AlphaChannel: -1, ZChannel: -1}
		ts.Width = c.u16()
		ts.Height = c.u16()
		ts.NChannels = c.u16()
		ts.Format = imageio.TypeDesc(c.u8())
		ts.FullWidth, ts.FullHeight = ts.Width, ts.Height
		ts.DefaultChannelNames()
		r.thumb = &rThumb{spec: ts, blob: blob{c.u64(), c.u32()}}
	}

	for i := 0; i < nsub; i++ {
		nlevels := int(c.u32())
		if c.err != nil || nlevels < 1 || nlevels > 64 {
			return ErrCorrupt
		}
		var img rSubimage
		for l := 0; l < nlevels; l++ {
			spec, err := parseSpec(c)
			if err != nil {
				return err
			}
			lv := rLevel{spec: spec}
			if spec.Deep {
				d := &rDeep{counts: blob{c.u64(), c.u32()}}
				for ch := 0; ch < spec.NChannels; ch++ {
					d.channels = append(d.channels, rDeepChannel{
						typ:  imageio.TypeDesc(c.u8()),
						blob: blob{c.u64(), c.u32()},
					})
				}
				lv.deep = d
			} else {
				nchunks := int(c.u32())
				nx, ny, nz := chunkCounts(spec)
				if c.err != nil || nchunks != nx*ny*nz {
					return ErrCorrupt
				}
				lv.chunks = make([]chunkRef, nchunks)
				for j := range lv.chunks {
					lv.chunks[j] = chunkRef{codec: c.u8(), blob: blob{c.u64(), c.u32()}}
				}
			}
			img.levels = append(img.levels, lv)
		}
		r.subimages = append(r.subimages, img)
	}
	if c.err != nil {
		return c.err
	}
	if len(r.subimages) == 0 {
		return ErrCorrupt
	}
	return nil
}

func (r *reader) FormatName() string { return formatName }

func (r *reader) level() rLevel {
	return r.subimages[r.cur].levels[r.mip]
}

func (r *reader) Spec() *imageio.ImageSpec { return r.level().spec }

func (r *reader) SeekSubimage(subimage, miplevel int) bool {
	if subimage < 0 || subimage >= len(r.subimages) {
		return false
	}
	if miplevel < 0 || miplevel >= len(r.subimages[subimage].levels) {
		return false
	}
	r.cur, r.mip = subimage, miplevel
	return true
}

func (r *reader) CurrentSubimage() int { return r.cur }

func (r *reader) CurrentMipLevel() int { return r.mip }

func (r *reader) NSubimages() (int, bool) { return len(r.subimages), true }

func (r *reader) NMipLevels() int { return len(r.subimages[r.cur].levels) }

func (r *reader) Thumbnail() (*imageio.ImageSpec, []byte, bool) {
	if r.thumb == nil {
		return nil, nil, false
	}
	raw, err := readFull(r.src, int64(r.thumb.off), int(r.thumb.size))
	if err != nil {
		return nil, nil, false
	}
	return r.thumb.spec.Copy(), raw, true
}

// chunk fetches and decodes chunk (cx, cy, cz) of the current level.
func (r *reader) chunk(cx, cy, cz int) ([]byte, int, error) {
	lv := r.level()
	spec := lv.spec
	nx, ny, _ := chunkCounts(spec)
	idx := (cz*ny+cy)*nx + cx
	if idx < 0 || idx >= len(lv.chunks) {
		return nil, 0, fmt.Errorf("%w: chunk (%d, %d, %d)", ErrCorrupt, cx, cy, cz)
	}
	ref := lv.chunks[idx]
	raw, err := readFull(r.src, int64(ref.off), int(ref.size))
	if err != nil {
		return nil, 0, err
	}
	cw, ch, cd := chunkDims(spec)
	pb := spec.PixelBytes()
	var want, cWidth, cHeight int
	if spec.TileWidth > 0 {
		cWidth, cHeight = cw, ch
		want = cw * ch * cd * pb
	} else {
		rows := min(ch, spec.Height-cy*ch)
		cWidth, cHeight = spec.Width, rows
		want = rows * spec.Width * pb
	}
	out, err := decompressChunk(ref.codec, raw, want, cWidth, cHeight, spec.NChannels)
	if err != nil {
		return nil, 0, err
	}
	return out, cHeight, nil
}

// ReadTile returns the tile whose origin pixel is (x, y, z), padded to
// the nominal tile size at image edges.
func (r *reader) ReadTile(x, y, z int) ([]byte, error) {
	lv := r.level()
	spec := lv.spec
	if spec.Deep {
		return nil, imageio.ErrDeep
	}
	if spec.TileWidth == 0 {
		return nil, fmt.Errorf("zimage: %s subimage %d is not tiled", r.name, r.cur)
	}
	cw, ch, cd := chunkDims(spec)
	cx := (x - spec.X) / cw
	cy := (y - spec.Y) / ch
	cz := (z - spec.Z) / cd
	out, _, err := r.chunk(cx, cy, cz)
	return out, err
}

// ReadScanlines returns scanlines [ybegin, yend) of plane z, packed
// contiguously in the file's native format. Only untiled images are
// scanline addressable.
func (r *reader) ReadScanlines(ybegin, yend, z int) ([]byte, error) {
	lv := r.level()
	spec := lv.spec
	if spec.Deep {
		return nil, imageio.ErrDeep
	}
	if spec.TileWidth != 0 {
		return nil, fmt.Errorf("zimage: %s subimage %d is tiled, read it by tile", r.name, r.cur)
	}
	if ybegin < spec.Y {
		ybegin = spec.Y
	}
	if yend > spec.Y+spec.Height {
		yend = spec.Y + spec.Height
	}
	if yend <= ybegin {
		return nil, nil
	}
	_, ch, _ := chunkDims(spec)
	rowBytes := spec.ScanlineBytes()
	out := make([]byte, (yend-ybegin)*rowBytes)
	cz := z - spec.Z
	for cy := (ybegin - spec.Y) / ch; cy*ch < yend-spec.Y; cy++ {
		band, rows, err := r.chunk(0, cy, cz)
		if err != nil {
			return nil, err
		}
		bandY := spec.Y + cy*ch
		lo := max(ybegin, bandY)
		hi := min(yend, bandY+rows)
		for y := lo; y < hi; y++ {
			copy(out[(y-ybegin)*rowBytes:(y-ybegin+1)*rowBytes],
				band[(y-bandY)*rowBytes:(y-bandY+1)*rowBytes])
		}
	}
	return out, nil
}

// ReadImage assembles the whole current level into one contiguous
// buffer holding channels [chbegin, chend) converted to format.
func (r *reader) ReadImage(chbegin, chend int, format imageio.TypeDesc, progress imageio.ProgressCallback) ([]byte, error) {
	lv := r.level()
	spec := lv.spec
	if spec.Deep {
		return nil, imageio.ErrDeep
	}
	if chbegin < 0 {
		chbegin = 0
	}
	if chend <= chbegin || chend > spec.NChannels {
		chend = spec.NChannels
	}
	if format == imageio.TypeUnknown {
		format = spec.Format
	}

	// native full image first
	pb := spec.PixelBytes()
	rowBytes := spec.Width * pb
	native := make([]byte, spec.ImageBytes())
	nx, ny, nz := chunkCounts(spec)
	cw, ch, cd := chunkDims(spec)
	tiled := spec.TileWidth > 0
	done := 0
	total := nx * ny * nz
	for cz := 0; cz < nz; cz++ {
		for cy := 0; cy < ny; cy++ {
			for cx := 0; cx < nx; cx++ {
				chunk, rows, err := r.chunk(cx, cy, cz)
				if err != nil {
					return nil, err
				}
				if tiled {
					wReal := min(cw, spec.Width-cx*cw)
					hReal := min(ch, spec.Height-cy*ch)
					dReal := min(cd, spec.Depth-cz*cd)
					for dz := 0; dz < dReal; dz++ {
						for dy := 0; dy < hReal; dy++ {
							doff := ((cz*cd+dz)*spec.Height+(cy*ch+dy))*rowBytes + cx*cw*pb
							soff := (dz*ch + dy) * cw * pb
							copy(native[doff:doff+wReal*pb], chunk[soff:soff+wReal*pb])
						}
					}
				} else {
					doff := (cz*spec.Height + cy*ch) * rowBytes
					copy(native[doff:doff+rows*rowBytes], chunk)
				}
				done++
				if progress != nil {
					progress(float32(done) / float32(total))
				}
			}
		}
	}

	nch := chend - chbegin
	if nch == spec.NChannels && format == spec.Format {
		return native, nil
	}
	out := make([]byte, spec.ImagePixels()*nch*format.Size())
	scb := spec.Format.Size()
	for p := 0; p < spec.ImagePixels(); p++ {
		src := native[p*pb+chbegin*scb:]
		dst := out[p*nch*format.Size():]
		if err := imageio.ConvertPixelValues(spec.Format, src, format, dst, nch); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadNativeDeep reads the deep samples of the current level.
func (r *reader) ReadNativeDeep() (*imageio.DeepData, error) {
	lv := r.level()
	spec := lv.spec
	if !spec.Deep || lv.deep == nil {
		return nil, imageio.ErrNotDeep
	}
	npix := spec.ImagePixels()
	raw, err := readFull(r.src, int64(lv.deep.counts.off), int(lv.deep.counts.size))
	if err != nil {
		return nil, err
	}
	countBytes, err := zlibDecompress(raw, 4*npix)
	if err != nil {
		return nil, err
	}
	if len(countBytes) < 4*npix {
		return nil, ErrCorrupt
	}
	counts := make([]int, npix)
	for p := range counts {
		counts[p] = int(binary.LittleEndian.Uint32(countBytes[p*4:]))
	}
	chant := make([]imageio.TypeDesc, len(lv.deep.channels))
	for i, dc := range lv.deep.channels {
		chant[i] = dc.typ
	}
	deep := imageio.NewDeepData(npix, chant, spec.ChannelNames)
	if err := deep.SetAllSamples(counts); err != nil {
		return nil, err
	}
	total := deep.TotalSamples()
	for ch, dc := range lv.deep.channels {
		raw, err := readFull(r.src, int64(dc.off), int(dc.size))
		if err != nil {
			return nil, err
		}
		want := total * dc.typ.Size()
		buf, err := zlibDecompress(raw, want)
		if err != nil {
			return nil, err
		}
		if len(buf) < want {
			return nil, ErrCorrupt
		}
		if err := deep.SetChannelData(ch, buf[:want]); err != nil {
			return nil, err
		}
	}
	return deep, nil
}

func (r *reader) Close() error {
	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}
