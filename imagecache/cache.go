// Package imagecache manages a process-wide budgeted cache of image
// tiles read on demand from disk. Callers fetch pinned Tile handles by
// pixel coordinate and release them when done; the cache evicts the
// least recently used unpinned tiles when the byte budget is exceeded.
package imagecache

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/clayne/oiio/imageio"
)

// DefaultMaxBytes is the byte budget of the Default cache.
const DefaultMaxBytes = 256 << 20

// bandTileHeight is the synthetic tile height used for untiled files,
// which are cached as full-width scanline bands.
const bandTileHeight = 64

// Stats reports cache activity counters.
type Stats struct {
	TileReads  int64
	TileHits   int64
	Evictions  int64
	BytesInUse int64
	PeakBytes  int64
	FilesOpen  int
}

type subimageKey struct {
	subimage int
	miplevel int
}

type cachedFile struct {
	mu      sync.Mutex
	name    string
	input   imageio.ImageInput
	specs   map[subimageKey]*imageio.ImageSpec
	nsub    int
	nsubOK  bool
	opened  bool
	broken  error
}

// Cache holds decoded tiles from any number of image files under a
// shared byte budget. All methods are safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	maxBytes int64
	curBytes int64
	files    map[string]*cachedFile
	tiles    map[tileKey]*Tile
	lru      *list.List // of *Tile, front is coldest
	elems    map[*Tile]*list.Element
	stats    Stats
}

// NewCache returns a cache with the given byte budget. A budget of 0
// uses DefaultMaxBytes.
func NewCache(maxBytes int64) *Cache {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Cache{
		maxBytes: maxBytes,
		files:    map[string]*cachedFile{},
		tiles:    map[tileKey]*Tile{},
		lru:      list.New(),
		elems:    map[*Tile]*list.Element{},
	}
}

var (
	defaultOnce  sync.Once
	defaultCache *Cache
)

// Default returns the shared process-wide cache, creating it on first use.
func Default() *Cache {
	defaultOnce.Do(func() {
		defaultCache = NewCache(DefaultMaxBytes)
	})
	return defaultCache
}

// SetMaxBytes changes the byte budget, evicting immediately if the
// cache is over the new limit.
func (c *Cache) SetMaxBytes(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 {
		n = DefaultMaxBytes
	}
	c.maxBytes = n
	c.evictLocked()
}

// MaxBytes returns the current byte budget.
func (c *Cache) MaxBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxBytes
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.BytesInUse = c.curBytes
	s.FilesOpen = len(c.files)
	return s
}

// cacheFormat maps a file's native channel type to the type the cache
// stores it in. Common types are kept as is; everything else widens to
// float so later reads need no per-type handling.
func cacheFormat(native imageio.TypeDesc) imageio.TypeDesc {
	switch native {
	case imageio.TypeUInt8, imageio.TypeUInt16, imageio.TypeHalf, imageio.TypeFloat:
		return native
	}
	return imageio.TypeFloat
}

func (c *Cache) file(name string) *cachedFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.files[name]
	if f == nil {
		f = &cachedFile{name: name, specs: map[subimageKey]*imageio.ImageSpec{}}
		c.files[name] = f
	}
	return f
}

// ensure the file is open and positioned; caller holds f.mu.
func (f *cachedFile) seek(subimage, miplevel int) error {
	if f.broken != nil {
		return f.broken
	}
	if !f.opened {
		in, err := imageio.OpenInput(f.name, nil)
		if err != nil {
			f.broken = err
			return err
		}
		f.input = in
		f.opened = true
		f.nsub, f.nsubOK = in.NSubimages()
	}
	if f.input.CurrentSubimage() == subimage && f.input.CurrentMipLevel() == miplevel {
		return nil
	}
	if !f.input.SeekSubimage(subimage, miplevel) {
		return fmt.Errorf("%w: %s subimage %d miplevel %d",
			imageio.ErrNoSuchSubimage, f.name, subimage, miplevel)
	}
	return nil
}

// Spec returns the spec of one subimage and MIP level of a file,
// reading the header on first use. The returned spec is shared and must
// not be modified.
func (c *Cache) Spec(name string, subimage, miplevel int) (*imageio.ImageSpec, error) {
	f := c.file(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	key := subimageKey{subimage, miplevel}
	if s := f.specs[key]; s != nil {
		return s, nil
	}
	if err := f.seek(subimage, miplevel); err != nil {
		return nil, err
	}
	s := f.input.Spec().Copy()
	f.specs[key] = s
	return s, nil
}

// NSubimages returns the subimage count of a file. ok is false when the
// format cannot report the count cheaply.
func (c *Cache) NSubimages(name string) (n int, ok bool, err error) {
	f := c.file(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.seek(0, 0); err != nil {
		return 0, false, err
	}
	return f.nsub, f.nsubOK, nil
}

// NMipLevels returns the MIP level count of one subimage.
func (c *Cache) NMipLevels(name string, subimage int) (int, error) {
	f := c.file(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.seek(subimage, 0); err != nil {
		return 0, err
	}
	return f.input.NMipLevels(), nil
}

// FileFormat returns the format name of a file, opening it if needed.
func (c *Cache) FileFormat(name string) (string, error) {
	f := c.file(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.seek(0, 0); err != nil {
		return "", err
	}
	return f.input.FormatName(), nil
}

// Thumbnail returns the embedded preview of a file, or ok false.
func (c *Cache) Thumbnail(name string) (*imageio.ImageSpec, []byte, bool, error) {
	f := c.file(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.seek(0, 0); err != nil {
		return nil, nil, false, err
	}
	spec, pixels, ok := f.input.Thumbnail()
	return spec, pixels, ok, nil
}

// ReadDeep reads the deep samples of one subimage and MIP level. Deep
// data is not tiled into the cache; it is returned whole.
func (c *Cache) ReadDeep(name string, subimage, miplevel int) (*imageio.DeepData, error) {
	f := c.file(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.seek(subimage, miplevel); err != nil {
		return nil, err
	}
	return f.input.ReadNativeDeep()
}

// TileDims returns the tile dimensions the cache uses for a spec.
// Untiled images are cached as full-width scanline bands.
func TileDims(spec *imageio.ImageSpec) (tw, th, td int) {
	if spec.TileWidth > 0 {
		td = spec.TileDepth
		if td == 0 {
			td = 1
		}
		return spec.TileWidth, spec.TileHeight, td
	}
	th = bandTileHeight
	if spec.Height < th {
		th = spec.Height
	}
	return spec.Width, th, 1
}

// GetTile returns a pinned tile containing pixel (x, y, z) of the given
// subimage and MIP level. The coordinate is snapped down to the tile
// grid. The caller must Release the tile when done with its pixels.
func (c *Cache) GetTile(name string, subimage, miplevel, x, y, z int) (*Tile, error) {
	spec, err := c.Spec(name, subimage, miplevel)
	if err != nil {
		return nil, err
	}
	if !spec.ROI().Contains(x, y, z) {
		return nil, fmt.Errorf("imagecache: pixel (%d, %d, %d) outside data window of %s",
			x, y, z, name)
	}
	tw, th, td := TileDims(spec)
	tx := spec.X + ((x-spec.X)/tw)*tw
	ty := spec.Y + ((y-spec.Y)/th)*th
	tz := spec.Z + ((z-spec.Z)/td)*td
	key := tileKey{name, subimage, miplevel, tx, ty, tz}

	c.mu.Lock()
	c.stats.TileReads++
	if t := c.tiles[key]; t != nil {
		if t.refs.Add(1) == 1 {
			if e := c.elems[t]; e != nil {
				c.lru.Remove(e)
				delete(c.elems, t)
			}
		}
		c.stats.TileHits++
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()

	t, err := c.readTile(name, spec, key, tw, th, td)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prior := c.tiles[key]; prior != nil {
		// lost a race with another reader; use the resident copy
		if prior.refs.Add(1) == 1 {
			if e := c.elems[prior]; e != nil {
				c.lru.Remove(e)
				delete(c.elems, prior)
			}
		}
		return prior, nil
	}
	c.tiles[key] = t
	c.curBytes += int64(len(t.pixels))
	if c.curBytes > c.stats.PeakBytes {
		c.stats.PeakBytes = c.curBytes
	}
	c.evictLocked()
	return t, nil
}

// readTile decodes one tile from the file into cache storage format.
func (c *Cache) readTile(name string, spec *imageio.ImageSpec, key tileKey, tw, th, td int) (*Tile, error) {
	f := c.file(name)
	f.mu.Lock()
	if err := f.seek(key.subimage, key.miplevel); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	var native []byte
	var err error
	if spec.TileWidth > 0 {
		native, err = f.input.ReadTile(key.x, key.y, key.z)
	} else {
		yend := key.y + th
		if yend > spec.Y+spec.Height {
			yend = spec.Y + spec.Height
		}
		native, err = f.input.ReadScanlines(key.y, yend, key.z)
	}
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	roi := imageio.Intersection(spec.ROI(), imageio.ROI{
		XBegin: key.x, XEnd: key.x + tw,
		YBegin: key.y, YEnd: key.y + th,
		ZBegin: key.z, ZEnd: key.z + td,
		ChBegin: 0, ChEnd: spec.NChannels,
	})
	format := cacheFormat(spec.Format)
	n := tw * th * td * spec.NChannels
	pixels := make([]byte, n*format.Size())
	nat := len(native) / spec.Format.Size()
	if nat > n {
		nat = n
	}
	if err := imageio.ConvertPixelValues(spec.Format, native, format, pixels, nat); err != nil {
		return nil, err
	}
	t := &Tile{cache: c, key: key, roi: roi, format: format, pixels: pixels}
	t.refs.Store(1)
	return t, nil
}

// unpinned is called by Tile.Release when the last pin drops.
func (c *Cache) unpinned(t *Tile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tiles[t.key] != t {
		return // invalidated while pinned; bytes already released
	}
	if t.refs.Load() != 0 {
		return // repinned concurrently
	}
	if c.elems[t] == nil {
		c.elems[t] = c.lru.PushBack(t)
	}
	c.evictLocked()
}

// evictLocked drops cold unpinned tiles until under budget.
// Caller holds c.mu.
func (c *Cache) evictLocked() {
	for c.curBytes > c.maxBytes {
		e := c.lru.Front()
		if e == nil {
			return
		}
		t := e.Value.(*Tile)
		c.lru.Remove(e)
		delete(c.elems, t)
		delete(c.tiles, t.key)
		c.curBytes -= int64(len(t.pixels))
		c.stats.Evictions++
	}
}

// Invalidate drops all cached state for one file, closing it. Pinned
// tiles remain valid for their holders but will be re-read next time.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f := c.files[name]; f != nil {
		f.mu.Lock()
		if f.input != nil {
			f.input.Close()
		}
		f.mu.Unlock()
		delete(c.files, name)
	}
	for key, t := range c.tiles {
		if key.file != name {
			continue
		}
		if e := c.elems[t]; e != nil {
			c.lru.Remove(e)
			delete(c.elems, t)
		}
		delete(c.tiles, key)
		c.curBytes -= int64(len(t.pixels))
	}
}

// InvalidateAll drops every cached tile and closes every file.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	names := make([]string, 0, len(c.files))
	for n := range c.files {
		names = append(names, n)
	}
	c.mu.Unlock()
	for _, n := range names {
		c.Invalidate(n)
	}
}

// Close releases everything held by the cache.
func (c *Cache) Close() error {
	c.InvalidateAll()
	return nil
}
