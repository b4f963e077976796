// Package imageio defines the image file abstraction shared by the
// higher-level buffer and cache packages: image geometry and metadata
// (ImageSpec, ROI), channel data types with normalized conversion
// (TypeDesc), deep sample storage (DeepData), and the reader and writer
// interfaces that concrete file formats implement and register.
package imageio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Errors shared across format implementations.
var (
	ErrNotOpen          = errors.New("imageio: file not open")
	ErrNoSuchSubimage   = errors.New("imageio: no such subimage or MIP level")
	ErrUnknownFormat    = errors.New("imageio: unknown file format")
	ErrNotDeep          = errors.New("imageio: image does not contain deep data")
	ErrDeep             = errors.New("imageio: operation not defined for deep images")
	ErrUnsupportedWrite = errors.New("imageio: output does not support this operation")
)

// ProgressCallback is invoked periodically during long reads and writes
// with a completion fraction in [0, 1]. It is advisory only; operations
// run to completion or failure regardless.
type ProgressCallback func(done float32)

// OpenMode selects how ImageOutput.Open treats an existing file.
type OpenMode int

const (
	// Create opens a fresh file, discarding prior contents.
	Create OpenMode = iota
	// AppendSubimage appends another subimage to an open file.
	AppendSubimage
	// AppendMIPLevel appends another MIP level to the current subimage.
	AppendMIPLevel
)

// AutoStride as a stride argument asks for contiguous layout.
const AutoStride = 0

// ImageInput reads pixels from one image file. Implementations need not
// be safe for concurrent use; callers serialize access.
type ImageInput interface {
	// FormatName identifies the file format, e.g. "zimage".
	FormatName() string

	// Spec returns the spec of the current subimage and MIP level.
	Spec() *ImageSpec

	// SeekSubimage positions the reader at the given subimage and MIP
	// level, returning false if the pair does not exist.
	SeekSubimage(subimage, miplevel int) bool

	// CurrentSubimage and CurrentMipLevel report the reader position.
	CurrentSubimage() int
	CurrentMipLevel() int

	// NSubimages returns the subimage count. ok is false when the
	// format cannot know the count without scanning the whole file.
	NSubimages() (n int, ok bool)

	// NMipLevels returns the MIP level count of the current subimage.
	NMipLevels() int

	// ReadImage reads channels [chbegin, chend) of the current
	// subimage and MIP level into a freshly allocated contiguous
	// buffer in the requested format. A nil progress callback is
	// allowed.
	ReadImage(chbegin, chend int, format TypeDesc, progress ProgressCallback) ([]byte, error)

	// ReadTile reads the single tile whose upper-left corner is
	// (x, y, z), in the file's native format and native tile size.
	ReadTile(x, y, z int) ([]byte, error)

	// ReadScanlines reads scanlines [ybegin, yend) of plane z in the
	// file's native format.
	ReadScanlines(ybegin, yend, z int) ([]byte, error)

	// ReadNativeDeep reads the deep samples of the current subimage
	// and MIP level. Returns ErrNotDeep for flat images.
	ReadNativeDeep() (*DeepData, error)

	// Thumbnail returns the embedded preview image, or ok false when
	// the file carries none.
	Thumbnail() (spec *ImageSpec, pixels []byte, ok bool)

	// Close releases the underlying file.
	Close() error
}

// ImageOutput writes pixels to one image file.
type ImageOutput interface {
	// FormatName identifies the file format.
	FormatName() string

	// Open begins a subimage with the given spec. Create must be the
	// first call; later subimages and MIP levels use the append modes.
	Open(name string, spec *ImageSpec, mode OpenMode) error

	// Supports reports whether the format handles a named feature:
	// "tiles", "mipmap", "multiimage", "deepdata", "thumbnail",
	// "appendsubimage", "displaywindow", "origin", "ioproxy".
	Supports(feature string) bool

	// WriteImage writes the full data window of the current subimage
	// from a strided buffer in the given format. AutoStride strides
	// request contiguous layout.
	WriteImage(format TypeDesc, data []byte, xstride, ystride, zstride int, progress ProgressCallback) error

	// WriteDeep writes deep samples for the current subimage.
	WriteDeep(deep *DeepData) error

	// SetThumbnail attaches a preview image to the file.
	SetThumbnail(spec *ImageSpec, pixels []byte) error

	// Close finishes the file. No writes may follow.
	Close() error
}

// IOProxyInput is implemented by formats that can read from an
// arbitrary random-access source instead of a named file.
type IOProxyInput interface {
	OpenReaderAt(r io.ReaderAt, size int64, config *ImageSpec) error
}

// IOProxyOutput is implemented by formats that can write to an
// arbitrary seekable sink instead of a named file.
type IOProxyOutput interface {
	SetIOProxy(w io.WriteSeeker)
}

// FormatInfo describes one registered file format.
type FormatInfo struct {
	Name       string
	Extensions []string
	OpenInput  func(name string, config *ImageSpec) (ImageInput, error)
	NewOutput  func() (ImageOutput, error)
}

var (
	formatMu sync.RWMutex
	formats  = map[string]FormatInfo{}
	extIndex = map[string]string{} // extension -> format name
)

// RegisterFormat makes a file format available to OpenInput and
// NewOutput. Typically called from a format package's init.
func RegisterFormat(info FormatInfo) {
	formatMu.Lock()
	defer formatMu.Unlock()
	formats[info.Name] = info
	for _, ext := range info.Extensions {
		extIndex[strings.ToLower(ext)] = info.Name
	}
}

// FormatNames returns the registered format names, sorted.
func FormatNames() []string {
	formatMu.RLock()
	defer formatMu.RUnlock()
	names := make([]string, 0, len(formats))
	for n := range formats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func formatForFile(name string) (FormatInfo, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	formatMu.RLock()
	defer formatMu.RUnlock()
	fname, ok := extIndex[ext]
	if !ok {
		return FormatInfo{}, fmt.Errorf("%w for %q", ErrUnknownFormat, name)
	}
	return formats[fname], nil
}

// OpenInput opens an image file for reading, choosing the format by
// file extension. config, when non-nil, passes reader hints as
// attributes.
func OpenInput(name string, config *ImageSpec) (ImageInput, error) {
	info, err := formatForFile(name)
	if err != nil {
		return nil, err
	}
	return info.OpenInput(name, config)
}

// NewOutput creates a writer for the named file, choosing the format by
// file extension. The caller must call Open before writing.
func NewOutput(name string) (ImageOutput, error) {
	info, err := formatForFile(name)
	if err != nil {
		return nil, err
	}
	return info.NewOutput()
}

// NewOutputFormat creates a writer for an explicitly named format,
// independent of any file extension.
func NewOutputFormat(format string) (ImageOutput, error) {
	formatMu.RLock()
	info, ok := formats[format]
	formatMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	return info.NewOutput()
}
