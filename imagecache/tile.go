package imagecache

import (
	"sync/atomic"

	"github.com/clayne/oiio/imageio"
)

type tileKey struct {
	file     string
	subimage int
	miplevel int
	x, y, z  int
}

// Tile is a pinned reference to one cached tile of pixels. A tile
// obtained from Cache.GetTile stays resident until Release is called;
// after Release the pixel slice must not be touched.
type Tile struct {
	cache  *Cache
	key    tileKey
	roi    imageio.ROI
	format imageio.TypeDesc
	pixels []byte
	refs   atomic.Int32
}

// ROI returns the region of the image the tile covers. Edge tiles keep
// their full nominal size; the ROI tells how much of it is real pixels.
func (t *Tile) ROI() imageio.ROI { return t.roi }

// Format returns the data type the cache stores this tile in, which may
// differ from the file's native type.
func (t *Tile) Format() imageio.TypeDesc { return t.format }

// Pixels returns the tile's pixel storage, laid out contiguously over
// the tile's nominal width, height and depth. Callers must treat it as
// read-only.
func (t *Tile) Pixels() []byte { return t.pixels }

// Release drops the pin on the tile, making it eligible for eviction.
// Release is safe to call from any goroutine but must be called exactly
// once per GetTile.
func (t *Tile) Release() {
	if t == nil {
		return
	}
	if t.refs.Add(-1) == 0 {
		t.cache.unpinned(t)
	}
}
