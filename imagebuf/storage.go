package imagebuf

// IBStorage identifies where an ImageBuf's pixels live.
type IBStorage int

const (
	// Uninitialized means the buffer has no pixels and no file binding.
	Uninitialized IBStorage = iota
	// LocalBuffer means the buffer owns its pixel memory.
	LocalBuffer
	// AppBuffer means the pixels live in caller-owned memory that the
	// buffer merely wraps.
	AppBuffer
	// ImageCache means pixels are paged on demand from a tile cache
	// backed by a file on disk.
	ImageCache
)

// String returns the storage name.
func (s IBStorage) String() string {
	switch s {
	case LocalBuffer:
		return "localbuffer"
	case AppBuffer:
		return "appbuffer"
	case ImageCache:
		return "imagecache"
	}
	return "uninitialized"
}
