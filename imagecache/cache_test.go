package imagecache

import (
	"path/filepath"
	"testing"

	"github.com/clayne/oiio/imageio"
	_ "github.com/clayne/oiio/zimage"
)

// writeTiled writes a 64x64 single channel uint8 image with 16x16
// tiles, where every pixel holds (x + y) % 251.
func writeTiled(t *testing.T, dir string) string {
	t.Helper()
	name := filepath.Join(dir, "tiled.zimg")
	spec := imageio.NewImageSpec(64, 64, 1, imageio.TypeUInt8)
	spec.TileWidth, spec.TileHeight = 16, 16
	pixels := make([]byte, spec.ImageBytes())
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			pixels[y*64+x] = byte((x + y) % 251)
		}
	}
	out, err := imageio.NewOutput(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := out.Open(name, spec, imageio.Create); err != nil {
		t.Fatal(err)
	}
	if err := out.WriteImage(spec.Format, pixels, 0, 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestSpecAndCounts(t *testing.T) {
	name := writeTiled(t, t.TempDir())
	c := NewCache(0)
	defer c.Close()

	spec, err := c.Spec(name, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if spec.Width != 64 || spec.TileWidth != 16 {
		t.Fatalf("spec: %s", spec)
	}
	n, known, err := c.NSubimages(name)
	if err != nil || !known || n != 1 {
		t.Errorf("NSubimages = %d, %v, %v", n, known, err)
	}
	if _, err := c.Spec(name, 3, 0); err == nil {
		t.Error("bogus subimage accepted")
	}
}

func TestGetTilePinAndValues(t *testing.T) {
	name := writeTiled(t, t.TempDir())
	c := NewCache(0)
	defer c.Close()

	// a coordinate mid-tile snaps to the tile that contains it
	tile, err := c.GetTile(name, 0, 0, 20, 37, 0)
	if err != nil {
		t.Fatal(err)
	}
	roi := tile.ROI()
	if roi.XBegin != 16 || roi.YBegin != 32 || roi.Width() != 16 {
		t.Fatalf("tile roi: %s", roi)
	}
	if tile.Format() != imageio.TypeUInt8 {
		t.Errorf("tile format %s", tile.Format())
	}
	// pixel (20, 37) inside the tile
	off := (37-32)*16 + (20 - 16)
	if got := tile.Pixels()[off]; got != byte(20+37) {
		t.Errorf("pixel value %d, want %d", got, 20+37)
	}
	tile.Release()

	if _, err := c.GetTile(name, 0, 0, 99, 0, 0); err == nil {
		t.Error("out of window coordinate accepted")
	}
}

func TestTileHitStats(t *testing.T) {
	name := writeTiled(t, t.TempDir())
	c := NewCache(0)
	defer c.Close()

	t1, err := c.GetTile(name, 0, 0, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := c.GetTile(name, 0, 0, 5, 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if t1 != t2 {
		t.Error("same tile fetched twice should share storage")
	}
	t1.Release()
	t2.Release()

	s := c.Stats()
	if s.TileReads != 2 || s.TileHits != 1 {
		t.Errorf("reads %d hits %d", s.TileReads, s.TileHits)
	}
}

func TestEviction(t *testing.T) {
	name := writeTiled(t, t.TempDir())
	// each tile is 16*16 = 256 bytes; allow only four
	c := NewCache(1024)
	defer c.Close()

	for ty := 0; ty < 4; ty++ {
		for tx := 0; tx < 4; tx++ {
			tile, err := c.GetTile(name, 0, 0, tx*16, ty*16, 0)
			if err != nil {
				t.Fatal(err)
			}
			tile.Release()
		}
	}
	s := c.Stats()
	if s.BytesInUse > 1024 {
		t.Errorf("cache holds %d bytes, budget 1024", s.BytesInUse)
	}
	if s.Evictions == 0 {
		t.Error("no evictions under a tight budget")
	}
	if s.TileHits != 0 {
		t.Errorf("unexpected hits: %d", s.TileHits)
	}
}

func TestPinnedTilesSurviveEviction(t *testing.T) {
	name := writeTiled(t, t.TempDir())
	c := NewCache(256) // budget of a single tile
	defer c.Close()

	pinned, err := c.GetTile(name, 0, 0, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	// fetch and release other tiles; the pinned one must not be evicted
	for tx := 1; tx < 4; tx++ {
		tile, err := c.GetTile(name, 0, 0, tx*16, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		tile.Release()
	}
	if got := pinned.Pixels()[0]; got != 0 {
		t.Errorf("pinned tile corrupted: %d", got)
	}
	again, err := c.GetTile(name, 0, 0, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if again != pinned {
		t.Error("pinned tile was dropped from the cache")
	}
	again.Release()
	pinned.Release()
}

func TestInvalidate(t *testing.T) {
	name := writeTiled(t, t.TempDir())
	c := NewCache(0)
	defer c.Close()

	tile, err := c.GetTile(name, 0, 0, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	tile.Release()
	c.Invalidate(name)
	s := c.Stats()
	if s.BytesInUse != 0 || s.FilesOpen != 0 {
		t.Errorf("after invalidate: %d bytes, %d files", s.BytesInUse, s.FilesOpen)
	}
	// re-fetch works and is a fresh read, not a hit
	reads := s.TileReads
	tile, err = c.GetTile(name, 0, 0, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	tile.Release()
	s = c.Stats()
	if s.TileReads != reads+1 || s.TileHits != 0 {
		t.Errorf("reads %d hits %d after invalidate", s.TileReads, s.TileHits)
	}
}

func TestUntiledBands(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "bands.zimg")
	spec := imageio.NewImageSpec(32, 100, 1, imageio.TypeUInt8)
	pixels := make([]byte, spec.ImageBytes())
	for i := range pixels {
		pixels[i] = byte(i % 253)
	}
	out, err := imageio.NewOutput(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := out.Open(name, spec, imageio.Create); err != nil {
		t.Fatal(err)
	}
	if err := out.WriteImage(spec.Format, pixels, 0, 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	c := NewCache(0)
	defer c.Close()
	// row 70 lives in the second 64-row band
	tile, err := c.GetTile(name, 0, 0, 10, 70, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer tile.Release()
	roi := tile.ROI()
	if roi.YBegin != 64 || roi.Width() != 32 {
		t.Fatalf("band roi: %s", roi)
	}
	off := (70-64)*32 + 10
	if got := tile.Pixels()[off]; got != pixels[70*32+10] {
		t.Errorf("band pixel %d, want %d", got, pixels[70*32+10])
	}
}

func TestDefaultCacheIsShared(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default returned different caches")
	}
}
