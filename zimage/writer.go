package zimage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/clayne/oiio/imageio"
)

// writer buffers subimages in memory and serializes the whole file at
// Close, so chunk offsets are known before anything hits disk.
type writer struct {
	name  string
	proxy io.WriteSeeker

	subimages []*wSubimage
	cur       *wLevel
	thumb     *wThumb
	open      bool
}

type wSubimage struct {
	levels []*wLevel
}

type wLevel struct {
	spec   *imageio.ImageSpec
	pixels []byte // native format, contiguous
	deep   *imageio.DeepData
}

type wThumb struct {
	spec   *imageio.ImageSpec
	pixels []byte
}

func (w *writer) FormatName() string { return formatName }

func (w *writer) Supports(feature string) bool {
	switch feature {
	case "tiles", "mipmap", "multiimage", "deepdata", "thumbnail",
		"appendsubimage", "displaywindow", "origin", "ioproxy":
		return true
	}
	return false
}

// SetIOProxy directs Close to write the file to pw instead of the
// named path.
func (w *writer) SetIOProxy(pw io.WriteSeeker) { w.proxy = pw }

func (w *writer) Open(name string, spec *imageio.ImageSpec, mode imageio.OpenMode) error {
	switch mode {
	case imageio.Create:
		w.name = name
		w.subimages = nil
		w.thumb = nil
		w.appendLevel(&wSubimage{}, spec)
	case imageio.AppendSubimage:
		if !w.open {
			return imageio.ErrNotOpen
		}
		w.appendLevel(&wSubimage{}, spec)
	case imageio.AppendMIPLevel:
		if !w.open {
			return imageio.ErrNotOpen
		}
		w.appendLevel(w.subimages[len(w.subimages)-1], spec)
	default:
		return fmt.Errorf("zimage: bad open mode %d", mode)
	}
	w.open = true
	return nil
}

func (w *writer) appendLevel(img *wSubimage, spec *imageio.ImageSpec) {
	lv := &wLevel{spec: spec.Copy()}
	if len(img.levels) == 0 && img != w.lastSubimage() {
		w.subimages = append(w.subimages, img)
	}
	img.levels = append(img.levels, lv)
	w.cur = lv
}

func (w *writer) lastSubimage() *wSubimage {
	if len(w.subimages) == 0 {
		return nil
	}
	return w.subimages[len(w.subimages)-1]
}

func (w *writer) WriteImage(format imageio.TypeDesc, data []byte, xstride, ystride, zstride int, progress imageio.ProgressCallback) error {
	if !w.open || w.cur == nil {
		return imageio.ErrNotOpen
	}
	spec := w.cur.spec
	if spec.Deep {
		return imageio.ErrDeep
	}
	if format == imageio.TypeUnknown {
		format = spec.Format
	}
	if xstride == imageio.AutoStride {
		xstride = format.Size() * spec.NChannels
	}
	if ystride == imageio.AutoStride {
		ystride = xstride * spec.Width
	}
	if zstride == imageio.AutoStride {
		zstride = ystride * spec.Height
	}
	native := make([]byte, spec.ImageBytes())
	nativeX := spec.PixelBytes()
	nativeY := nativeX * spec.Width
	nativeZ := nativeY * spec.Height
	err := imageio.CopyPixelRegion(
		format, data, xstride, ystride, zstride,
		spec.Format, native, nativeX, nativeY, nativeZ,
		spec.Width, spec.Height, spec.Depth, spec.NChannels)
	if err != nil {
		return err
	}
	w.cur.pixels = native
	if progress != nil {
		progress(1)
	}
	return nil
}

func (w *writer) WriteDeep(deep *imageio.DeepData) error {
	if !w.open || w.cur == nil {
		return imageio.ErrNotOpen
	}
	if !w.cur.spec.Deep {
		return imageio.ErrNotDeep
	}
	if deep.NPixels() != w.cur.spec.ImagePixels() {
		return fmt.Errorf("zimage: deep data covers %d pixels, spec has %d",
			deep.NPixels(), w.cur.spec.ImagePixels())
	}
	w.cur.deep = deep.Copy()
	return nil
}

func (w *writer) SetThumbnail(spec *imageio.ImageSpec, pixels []byte) error {
	if !w.open {
		return imageio.ErrNotOpen
	}
	w.thumb = &wThumb{spec: spec.Copy(), pixels: append([]byte(nil), pixels...)}
	return nil
}

func (w *writer) Close() error {
	if !w.open {
		return imageio.ErrNotOpen
	}
	w.open = false

	var data []byte // data section, grows as chunks are encoded
	var index []byte

	addBlob := func(b []byte) blob {
		off := uint64(headerSize + len(data))
		data = append(data, b...)
		return blob{off, uint32(len(b))}
	}

	var thumbBlob blob
	if w.thumb != nil {
		thumbBlob = addBlob(w.thumb.pixels)
	}

	for _, img := range w.subimages {
		index = binary.LittleEndian.AppendUint32(index, uint32(len(img.levels)))
		for _, lv := range img.levels {
			index = appendSpec(index, lv.spec)
			if lv.spec.Deep {
				var err error
				index, err = w.closeDeep(index, lv, addBlob)
				if err != nil {
					return err
				}
				continue
			}
			if lv.pixels == nil {
				lv.pixels = make([]byte, lv.spec.ImageBytes())
			}
			codec := codecForName(lv.spec.AttribString("compression", "zlib"))
			chunks, codecs, err := encodeLevel(lv.spec, lv.pixels, codec)
			if err != nil {
				return err
			}
			index = binary.LittleEndian.AppendUint32(index, uint32(len(chunks)))
			for i, c := range chunks {
				b := addBlob(c)
				index = append(index, codecs[i])
				index = binary.LittleEndian.AppendUint64(index, b.off)
				index = binary.LittleEndian.AppendUint32(index, b.size)
			}
		}
	}

	// header
	out := make([]byte, 0, headerSize+len(data)+len(index))
	out = append(out, magic...)
	out = binary.LittleEndian.AppendUint16(out, fileVersion)
	var flags uint16
	if w.thumb != nil {
		flags |= flagThumbnail
	}
	out = binary.LittleEndian.AppendUint16(out, flags)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(w.subimages)))
	out = binary.LittleEndian.AppendUint64(out, uint64(headerSize+len(data)))
	out = append(out, data...)
	if w.thumb != nil {
		ts := w.thumb.spec
		index2 := make([]byte, 0, 16)
		index2 = binary.LittleEndian.AppendUint16(index2, uint16(ts.Width))
		index2 = binary.LittleEndian.AppendUint16(index2, uint16(ts.Height))
		index2 = binary.LittleEndian.AppendUint16(index2, uint16(ts.NChannels))
		index2 = append(index2, byte(ts.Format))
		index2 = binary.LittleEndian.AppendUint64(index2, thumbBlob.off)
		index2 = binary.LittleEndian.AppendUint32(index2, thumbBlob.size)
		out = append(out, index2...)
	}
	out = append(out, index...)

	if w.proxy != nil {
		if _, err := w.proxy.Seek(0, io.SeekStart); err != nil {
			return err
		}
		_, err := w.proxy.Write(out)
		return err
	}
	return os.WriteFile(w.name, out, 0o644)
}

// blob locates one payload in the data section.
type blob struct {
	off  uint64
	size uint32
}

// closeDeep serializes one deep level: a zlib-compressed sample count
// table plus one zlib-compressed blob per channel.
func (w *writer) closeDeep(index []byte, lv *wLevel, addBlob func([]byte) blob) ([]byte, error) {
	deep := lv.deep
	if deep == nil {
		chant := make([]imageio.TypeDesc, lv.spec.NChannels)
		for i := range chant {
			chant[i] = lv.spec.Format
		}
		deep = imageio.NewDeepData(lv.spec.ImagePixels(), chant, lv.spec.ChannelNames)
	}
	counts := make([]byte, 4*deep.NPixels())
	for p := 0; p < deep.NPixels(); p++ {
		binary.LittleEndian.PutUint32(counts[p*4:], uint32(deep.Samples(p)))
	}
	b := addBlob(zlibCompress(counts))
	index = binary.LittleEndian.AppendUint64(index, b.off)
	index = binary.LittleEndian.AppendUint32(index, b.size)
	for ch := 0; ch < deep.NChannels(); ch++ {
		cb := addBlob(zlibCompress(deep.ChannelData(ch)))
		index = append(index, byte(deep.ChannelType(ch)))
		index = binary.LittleEndian.AppendUint64(index, cb.off)
		index = binary.LittleEndian.AppendUint32(index, cb.size)
	}
	return index, nil
}

// encodeLevel splits a level's contiguous pixels into its chunk grid
// and compresses every chunk. Edge tiles are zero-padded to nominal
// size; edge bands keep their exact row count.
func encodeLevel(spec *imageio.ImageSpec, pixels []byte, codec byte) (chunks [][]byte, codecs []byte, err error) {
	cw, ch, cd := chunkDims(spec)
	nx, ny, nz := chunkCounts(spec)
	pb := spec.PixelBytes()
	rowBytes := spec.Width * pb
	tiled := spec.TileWidth > 0

	for cz := 0; cz < nz; cz++ {
		for cy := 0; cy < ny; cy++ {
			for cx := 0; cx < nx; cx++ {
				x0 := cx * cw
				y0 := cy * ch
				z0 := cz * cd
				var raw []byte
				var cWidth, cHeight int
				if tiled {
					cWidth, cHeight = cw, ch
					raw = make([]byte, cw*ch*cd*pb)
					wReal := min(cw, spec.Width-x0)
					hReal := min(ch, spec.Height-y0)
					dReal := min(cd, spec.Depth-z0)
					for dz := 0; dz < dReal; dz++ {
						for dy := 0; dy < hReal; dy++ {
							soff := ((z0+dz)*spec.Height+(y0+dy))*rowBytes + x0*pb
							doff := (dz*ch + dy) * cw * pb
							copy(raw[doff:doff+wReal*pb], pixels[soff:soff+wReal*pb])
						}
					}
				} else {
					hReal := min(ch, spec.Height-y0)
					cWidth, cHeight = spec.Width, hReal
					soff := (z0*spec.Height + y0) * rowBytes
					raw = append([]byte(nil), pixels[soff:soff+hReal*rowBytes]...)
				}
				enc, used, err := compressChunk(codec, raw, cWidth, cHeight, spec.NChannels, spec.Format)
				if err != nil {
					return nil, nil, err
				}
				chunks = append(chunks, enc)
				codecs = append(codecs, used)
			}
		}
	}
	return chunks, codecs, nil
}
