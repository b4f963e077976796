// Package imagebuf provides ImageBuf, an in-memory image whose pixels
// may be owned locally, wrap caller-owned memory, or be paged on demand
// from a tile cache backed by a file. All three storage strategies sit
// behind one pixel access API, with lazy file reads, copy-on-write
// promotion, deep (variable sample count) pixels, and tile-aware
// iterators.
package imagebuf

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/clayne/oiio/imagecache"
	"github.com/clayne/oiio/imageio"
)

// ImageBuf is an image held in memory. The zero value is an
// uninitialized buffer; bind it with the New* constructors or the Reset
// methods.
//
// Concurrent reads of a fully read buffer are safe. Concurrent writes
// to distinct pixels are safe; overlapping writes are last-write-wins
// but never corrupt the buffer structure. Construction, Reset, Read and
// spec modification must not race with any other use.
type ImageBuf struct {
	impl *imageBufImpl
}

type imageBufImpl struct {
	mu sync.Mutex

	storage    IBStorage
	name       string
	fileFormat string

	spec       *imageio.ImageSpec
	nativeSpec *imageio.ImageSpec
	config     *imageio.ImageSpec // reader hints for deferred opens

	subimage, miplevel int
	nsubimages         int
	nsubKnown          bool
	nmiplevels         int

	// pixel storage for LocalBuffer and AppBuffer
	pixels                    []byte
	xstride, ystride, zstride int

	// tile paging for ImageCache
	cache    *imagecache.Cache
	cacheFmt imageio.TypeDesc

	deep *imageio.DeepData

	specValid   bool
	pixelsValid bool

	writeFormat                        imageio.TypeDesc
	writeTileW, writeTileH, writeTileD int
	writeTilesSet                      bool
	writeProxy                         io.WriteSeeker

	threads int

	errMu sync.Mutex
	errs  []string

	thumb *ImageBuf
}

func newImpl() *imageBufImpl {
	return &imageBufImpl{subimage: -1, miplevel: -1}
}

// New returns a buffer that owns freshly allocated, zeroed pixels
// shaped by spec. Deep specs get empty deep sample storage instead of
// flat pixels.
func New(spec *imageio.ImageSpec) *ImageBuf {
	ib := &ImageBuf{impl: newImpl()}
	ib.ResetSpec(spec)
	return ib
}

// NewFromFile returns a buffer bound to one subimage and MIP level of a
// file. Nothing is read until the spec or pixels are first needed. A
// non-nil cache makes the buffer cache-backed: pixels page in tile by
// tile and stay owned by the cache until a write forces promotion. A
// nil cache makes Read pull the whole image into locally owned memory.
// config, when non-nil, passes opening hints to the file reader.
func NewFromFile(name string, subimage, miplevel int, cache *imagecache.Cache, config *imageio.ImageSpec) *ImageBuf {
	ib := &ImageBuf{impl: newImpl()}
	ib.ResetFile(name, subimage, miplevel, cache, config)
	return ib
}

// NewWrapping returns a buffer that reads and writes pixels in place in
// caller-owned memory. buffer must cover the spec's data window with
// the given byte strides; AutoStride means contiguous. The caller keeps
// ownership and must keep the memory alive for the buffer's lifetime.
func NewWrapping(spec *imageio.ImageSpec, buffer []byte, xstride, ystride, zstride int) (*ImageBuf, error) {
	ib := &ImageBuf{impl: newImpl()}
	if err := ib.ResetWrapping(spec, buffer, xstride, ystride, zstride); err != nil {
		return nil, err
	}
	return ib, nil
}

// Reset returns the buffer to the uninitialized state, dropping any
// pixels, file binding and queued errors.
func (ib *ImageBuf) Reset() {
	ib.impl = newImpl()
}

// ResetSpec rebinds the buffer to own zeroed local pixels shaped by spec.
func (ib *ImageBuf) ResetSpec(spec *imageio.ImageSpec) {
	impl := newImpl()
	impl.spec = spec.Copy()
	impl.nativeSpec = spec.Copy()
	impl.storage = LocalBuffer
	impl.specValid = true
	impl.pixelsValid = true
	impl.nsubimages, impl.nsubKnown = 1, true
	impl.nmiplevels = 1
	if spec.Deep {
		chant := make([]imageio.TypeDesc, spec.NChannels)
		for i := range chant {
			chant[i] = spec.Format
		}
		impl.deep = imageio.NewDeepData(spec.ImagePixels(), chant, spec.ChannelNames)
	} else {
		impl.xstride = spec.PixelBytes()
		impl.ystride = impl.xstride * spec.Width
		impl.zstride = impl.ystride * spec.Height
		impl.pixels = make([]byte, spec.ImageBytes())
	}
	ib.impl = impl
}

// ResetFile rebinds the buffer to a file without reading anything yet.
// See NewFromFile for the meaning of the arguments.
func (ib *ImageBuf) ResetFile(name string, subimage, miplevel int, cache *imagecache.Cache, config *imageio.ImageSpec) {
	impl := newImpl()
	impl.name = name
	impl.subimage = subimage
	impl.miplevel = miplevel
	impl.cache = cache
	if config != nil {
		impl.config = config.Copy()
	}
	ib.impl = impl
}

// ResetWrapping rebinds the buffer around caller-owned pixel memory.
func (ib *ImageBuf) ResetWrapping(spec *imageio.ImageSpec, buffer []byte, xstride, ystride, zstride int) error {
	if spec.Deep {
		return imageio.ErrDeep
	}
	impl := newImpl()
	impl.spec = spec.Copy()
	impl.nativeSpec = spec.Copy()
	if xstride == imageio.AutoStride {
		xstride = spec.PixelBytes()
	}
	if ystride == imageio.AutoStride {
		ystride = xstride * spec.Width
	}
	if zstride == imageio.AutoStride {
		zstride = ystride * spec.Height
	}
	need := (spec.Depth-1)*zstride + (spec.Height-1)*ystride + (spec.Width-1)*xstride + spec.PixelBytes()
	if len(buffer) < need {
		return fmt.Errorf("imagebuf: wrapped buffer is %d bytes, need %d", len(buffer), need)
	}
	impl.pixels = buffer
	impl.xstride, impl.ystride, impl.zstride = xstride, ystride, zstride
	impl.storage = AppBuffer
	impl.specValid = true
	impl.pixelsValid = true
	impl.nsubimages, impl.nsubKnown = 1, true
	impl.nmiplevels = 1
	ib.impl = impl
	return nil
}

// Initialized reports whether the buffer is bound to pixels or a file.
func (ib *ImageBuf) Initialized() bool {
	return ib.impl != nil && (ib.impl.storage != Uninitialized || ib.impl.name != "")
}

// Storage returns where the pixels currently live. A file-bound buffer
// that has not yet read anything reports Uninitialized.
func (ib *ImageBuf) Storage() IBStorage {
	if ib.impl == nil {
		return Uninitialized
	}
	return ib.impl.storage
}

// Name returns the file name the buffer is bound to, or "".
func (ib *ImageBuf) Name() string {
	if ib.impl == nil {
		return ""
	}
	return ib.impl.name
}

// FileFormatName returns the format of the bound file, known after the
// spec has been read.
func (ib *ImageBuf) FileFormatName() string {
	if ib.impl == nil {
		return ""
	}
	return ib.impl.fileFormat
}

// Spec returns the buffer's spec. Callers must treat it as read-only;
// use SpecMod to change metadata.
func (ib *ImageBuf) Spec() *imageio.ImageSpec {
	if err := ib.InitSpec(); err != nil {
		return &imageio.ImageSpec{}
	}
	return ib.impl.spec
}

// SpecMod returns the spec for modification of metadata and the full
// window. Changing geometry or format through it is undefined; resizing
// requires a Reset. Not safe to race with other use of the buffer.
func (ib *ImageBuf) SpecMod() *imageio.ImageSpec {
	return ib.Spec()
}

// NativeSpec returns the spec as stored in the file, unaffected by
// later modification or type conversion on read.
func (ib *ImageBuf) NativeSpec() *imageio.ImageSpec {
	if err := ib.InitSpec(); err != nil {
		return &imageio.ImageSpec{}
	}
	return ib.impl.nativeSpec
}

// Subimage returns the subimage the buffer holds.
func (ib *ImageBuf) Subimage() int {
	if ib.impl == nil || ib.impl.subimage < 0 {
		return 0
	}
	return ib.impl.subimage
}

// Miplevel returns the MIP level the buffer holds.
func (ib *ImageBuf) Miplevel() int {
	if ib.impl == nil || ib.impl.miplevel < 0 {
		return 0
	}
	return ib.impl.miplevel
}

// NSubimages returns how many subimages the bound file has. ok is false
// when the count is unknown, either because nothing has been read or
// because the file format cannot report it cheaply.
func (ib *ImageBuf) NSubimages() (n int, ok bool) {
	if err := ib.InitSpec(); err != nil {
		return 0, false
	}
	return ib.impl.nsubimages, ib.impl.nsubKnown
}

// NMipLevels returns the MIP level count of the buffer's subimage.
func (ib *ImageBuf) NMipLevels() int {
	if err := ib.InitSpec(); err != nil {
		return 0
	}
	return ib.impl.nmiplevels
}

// NChannels returns the channel count.
func (ib *ImageBuf) NChannels() int { return ib.Spec().NChannels }

// PixelType returns the channel data type the stored pixels actually
// use, which for cache-backed buffers may differ from the file's
// native type.
func (ib *ImageBuf) PixelType() imageio.TypeDesc {
	s := ib.Spec()
	if ib.impl.storage == ImageCache {
		return ib.impl.cacheFmt
	}
	return s.Format
}

// Deep reports whether the buffer holds deep pixel data.
func (ib *ImageBuf) Deep() bool { return ib.Spec().Deep }

// XBegin returns the first x coordinate of the data window.
func (ib *ImageBuf) XBegin() int { return ib.Spec().X }

// XEnd returns one past the last x coordinate of the data window.
func (ib *ImageBuf) XEnd() int { s := ib.Spec(); return s.X + s.Width }

// YBegin returns the first y coordinate of the data window.
func (ib *ImageBuf) YBegin() int { return ib.Spec().Y }

// YEnd returns one past the last y coordinate of the data window.
func (ib *ImageBuf) YEnd() int { s := ib.Spec(); return s.Y + s.Height }

// ZBegin returns the first z coordinate of the data window.
func (ib *ImageBuf) ZBegin() int { return ib.Spec().Z }

// ZEnd returns one past the last z coordinate of the data window.
func (ib *ImageBuf) ZEnd() int { s := ib.Spec(); return s.Z + s.Depth }

// XMin returns the first x coordinate of the data window.
func (ib *ImageBuf) XMin() int { return ib.Spec().X }

// XMax returns the last x coordinate of the data window, inclusive.
func (ib *ImageBuf) XMax() int { s := ib.Spec(); return s.X + s.Width - 1 }

// YMin returns the first y coordinate of the data window.
func (ib *ImageBuf) YMin() int { return ib.Spec().Y }

// YMax returns the last y coordinate of the data window, inclusive.
func (ib *ImageBuf) YMax() int { s := ib.Spec(); return s.Y + s.Height - 1 }

// ZMin returns the first z coordinate of the data window.
func (ib *ImageBuf) ZMin() int { return ib.Spec().Z }

// ZMax returns the last z coordinate of the data window, inclusive.
func (ib *ImageBuf) ZMax() int { s := ib.Spec(); return s.Z + s.Depth - 1 }

// ROI returns the pixel data window.
func (ib *ImageBuf) ROI() imageio.ROI { return ib.Spec().ROI() }

// Contains reports whether (x, y, z) lies in the pixel data window.
func (ib *ImageBuf) Contains(x, y, z int) bool {
	return ib.ROI().Contains(x, y, z)
}

// ContainsROI reports whether roi lies entirely in the data window.
func (ib *ImageBuf) ContainsROI(roi imageio.ROI) bool {
	return ib.ROI().ContainsROI(roi)
}

// ROIFull returns the full (display) window.
func (ib *ImageBuf) ROIFull() imageio.ROI { return ib.Spec().ROIFull() }

// SetFull moves the full window without touching pixels.
func (ib *ImageBuf) SetFull(roi imageio.ROI) { ib.Spec().SetROIFull(roi) }

// SetOrigin repositions the data window origin without touching pixels.
func (ib *ImageBuf) SetOrigin(x, y, z int) {
	s := ib.Spec()
	s.X, s.Y, s.Z = x, y, z
}

// SetName renames the buffer without rebinding it to a file.
func (ib *ImageBuf) SetName(name string) { ib.impl.name = name }

// PixelsValid reports whether pixel data has been materialized, either
// locally or through the cache.
func (ib *ImageBuf) PixelsValid() bool {
	return ib.impl != nil && ib.impl.pixelsValid
}

// LocalPixels returns the raw pixel bytes when they are directly
// addressable (LocalBuffer or AppBuffer storage), else nil.
func (ib *ImageBuf) LocalPixels() []byte {
	if ib.impl == nil || !ib.impl.localpixels() {
		return nil
	}
	return ib.impl.pixels
}

// CachedPixels reports whether pixels page in from the tile cache.
func (ib *ImageBuf) CachedPixels() bool {
	return ib.impl != nil && ib.impl.storage == ImageCache
}

// Cache returns the tile cache backing the buffer, or nil.
func (ib *ImageBuf) Cache() *imagecache.Cache {
	if ib.impl == nil {
		return nil
	}
	return ib.impl.cache
}

// PixelStride returns the byte distance between adjacent pixels of a
// directly addressable buffer.
func (ib *ImageBuf) PixelStride() int { return ib.impl.xstride }

// ScanlineStride returns the byte distance between adjacent rows.
func (ib *ImageBuf) ScanlineStride() int { return ib.impl.ystride }

// ZStride returns the byte distance between adjacent z planes.
func (ib *ImageBuf) ZStride() int { return ib.impl.zstride }

// Contiguous reports whether directly addressable pixels are packed
// with no padding between pixels, rows or planes.
func (ib *ImageBuf) Contiguous() bool {
	impl := ib.impl
	if impl == nil || !impl.localpixels() {
		return false
	}
	s := impl.spec
	return impl.xstride == s.PixelBytes() &&
		impl.ystride == impl.xstride*s.Width &&
		impl.zstride == impl.ystride*s.Height
}

// PixelIndex returns the flat index of (x, y, z) in the data window, or
// -1 for coordinates outside it.
func (ib *ImageBuf) PixelIndex(x, y, z int) int {
	if err := ib.InitSpec(); err != nil {
		return -1
	}
	return ib.impl.pixelindex(x, y, z)
}

// Orientation returns the "Orientation" metadata (TIFF convention,
// 1 = upright), defaulting to 1 when unset.
func (ib *ImageBuf) Orientation() int {
	return ib.Spec().AttribInt("Orientation", 1)
}

// SetOrientation stores the "Orientation" metadata.
func (ib *ImageBuf) SetOrientation(orient int) {
	ib.SpecMod().Attribute("Orientation", orient)
}

// OrientedWidth returns the display width after applying the
// orientation, swapping axes for the transposed orientations 5 to 8.
func (ib *ImageBuf) OrientedWidth() int {
	s := ib.Spec()
	if ib.Orientation() >= 5 {
		return s.FullHeight
	}
	return s.FullWidth
}

// OrientedHeight returns the display height after applying the
// orientation.
func (ib *ImageBuf) OrientedHeight() int {
	s := ib.Spec()
	if ib.Orientation() >= 5 {
		return s.FullWidth
	}
	return s.FullHeight
}

// Lock takes the buffer's internal mutex, for callers coordinating
// non-atomic multi-step operations across goroutines. Pixel accessors
// do not take it themselves.
func (ib *ImageBuf) Lock() { ib.impl.mu.Lock() }

// Unlock releases the mutex taken by Lock.
func (ib *ImageBuf) Unlock() { ib.impl.mu.Unlock() }

// SetThreads sets the parallelism hint for operations on this buffer.
// 0 means use the process-wide default, 1 means do not spawn.
func (ib *ImageBuf) SetThreads(n int) {
	if n < 0 {
		n = 0
	}
	ib.impl.threads = n
}

// Threads returns the buffer's parallelism hint.
func (ib *ImageBuf) Threads() int { return ib.impl.threads }

// Error queues an error message on the buffer.
func (ib *ImageBuf) Error(args ...any) {
	ib.impl.errMu.Lock()
	ib.impl.errs = append(ib.impl.errs, fmt.Sprint(args...))
	ib.impl.errMu.Unlock()
}

// Errorf queues an error message on the buffer.
func (ib *ImageBuf) Errorf(format string, args ...any) {
	ib.impl.errMu.Lock()
	ib.impl.errs = append(ib.impl.errs, fmt.Sprintf(format, args...))
	ib.impl.errMu.Unlock()
}

// HasError reports whether errors are queued.
func (ib *ImageBuf) HasError() bool {
	ib.impl.errMu.Lock()
	defer ib.impl.errMu.Unlock()
	return len(ib.impl.errs) > 0
}

// GetError returns the queued error messages joined by newlines,
// clearing the queue if clear is true.
func (ib *ImageBuf) GetError(clear bool) string {
	ib.impl.errMu.Lock()
	defer ib.impl.errMu.Unlock()
	msg := strings.Join(ib.impl.errs, "\n")
	if clear {
		ib.impl.errs = nil
	}
	return msg
}

// HasThumbnail reports whether a preview image is attached.
func (ib *ImageBuf) HasThumbnail() bool { return ib.Thumbnail() != nil }

// Thumbnail returns the buffer's preview image, or nil. The returned
// buffer is shared, not copied.
func (ib *ImageBuf) Thumbnail() *ImageBuf {
	if err := ib.InitSpec(); err != nil {
		return nil
	}
	return ib.impl.thumb
}

// SetThumbnail attaches a preview image, shared by reference. Pass nil
// to clear.
func (ib *ImageBuf) SetThumbnail(thumb *ImageBuf) {
	ib.impl.thumb = thumb
}

// ClearThumbnail removes any attached preview image.
func (ib *ImageBuf) ClearThumbnail() { ib.impl.thumb = nil }

// DeepData returns the deep sample storage, or nil for flat buffers.
func (ib *ImageBuf) DeepData() *imageio.DeepData {
	if err := ib.Read(ib.Subimage(), ib.Miplevel(), false, imageio.TypeUnknown, nil); err != nil {
		return nil
	}
	return ib.impl.deep
}

// pixelindex returns the flat pixel index of (x, y, z), used for deep
// sample addressing.
func (impl *imageBufImpl) pixelindex(x, y, z int) int {
	s := impl.spec
	x -= s.X
	y -= s.Y
	z -= s.Z
	if x < 0 || x >= s.Width || y < 0 || y >= s.Height || z < 0 || z >= s.Depth {
		return -1
	}
	return (z*s.Height+y)*s.Width + x
}

// pixeladdr returns the byte offset of (x, y, z) in local or app
// storage. The caller must have checked the coordinate is inside the
// data window.
func (impl *imageBufImpl) pixeladdr(x, y, z int) int {
	s := impl.spec
	return (z-s.Z)*impl.zstride + (y-s.Y)*impl.ystride + (x-s.X)*impl.xstride
}

// localpixels reports whether pixels are directly addressable in memory.
func (impl *imageBufImpl) localpixels() bool {
	return impl.storage == LocalBuffer || impl.storage == AppBuffer
}
