package zimage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/clayne/oiio/imageio"
)

// fillPattern writes a recognizable per-pixel pattern in uint8.
func fillPattern(spec *imageio.ImageSpec) []byte {
	buf := make([]byte, spec.ImageBytes())
	pb := spec.PixelBytes()
	for y := 0; y < spec.Height; y++ {
		for x := 0; x < spec.Width; x++ {
			for c := 0; c < spec.NChannels; c++ {
				buf[(y*spec.Width+x)*pb+c] = byte((x + y*3 + c*7) % 251)
			}
		}
	}
	return buf
}

func writeTestFile(t *testing.T, name string, spec *imageio.ImageSpec, pixels []byte) {
	t.Helper()
	out, err := imageio.NewOutput(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := out.Open(name, spec, imageio.Create); err != nil {
		t.Fatal(err)
	}
	if err := out.WriteImage(spec.Format, pixels,
		imageio.AutoStride, imageio.AutoStride, imageio.AutoStride, nil); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRoundTripScanline(t *testing.T) {
	for _, codec := range []string{"none", "zlib", "zstd"} {
		t.Run(codec, func(t *testing.T) {
			name := filepath.Join(t.TempDir(), "img.zimg")
			spec := imageio.NewImageSpec(37, 150, 3, imageio.TypeUInt8)
			spec.Attribute("compression", codec)
			pixels := fillPattern(spec)
			writeTestFile(t, name, spec, pixels)

			in, err := imageio.OpenInput(name, nil)
			if err != nil {
				t.Fatal(err)
			}
			defer in.Close()
			if in.FormatName() != "zimage" {
				t.Errorf("format %q", in.FormatName())
			}
			got := in.Spec()
			if got.Width != 37 || got.Height != 150 || got.NChannels != 3 {
				t.Fatalf("spec mismatch: %s", got)
			}
			if got.AttribString("compression", "") != codec {
				t.Errorf("compression attribute lost")
			}
			data, err := in.ReadImage(0, 3, imageio.TypeUnknown, nil)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(data, pixels) {
				t.Error("pixels did not round trip")
			}
		})
	}
}

func TestRoundTripTiled(t *testing.T) {
	name := filepath.Join(t.TempDir(), "tiled.zimg")
	spec := imageio.NewImageSpec(70, 50, 4, imageio.TypeUInt16)
	spec.TileWidth, spec.TileHeight = 32, 32
	spec.Attribute("compression", "zstd")
	pixels := fillPattern(spec)
	writeTestFile(t, name, spec, pixels)

	in, err := imageio.OpenInput(name, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()

	data, err := in.ReadImage(0, 4, imageio.TypeUnknown, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, pixels) {
		t.Fatal("whole image read differs")
	}

	// single tile read, edge tile padded to nominal size
	tile, err := in.ReadTile(64, 32, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tile) != 32*32*spec.PixelBytes() {
		t.Fatalf("tile is %d bytes", len(tile))
	}
	// first pixel of that tile is image pixel (64, 32)
	pb := spec.PixelBytes()
	want := pixels[(32*70+64)*pb : (32*70+64)*pb+pb]
	if !bytes.Equal(tile[:pb], want) {
		t.Error("tile corner pixel differs")
	}
}

func TestRoundTripJ2K(t *testing.T) {
	name := filepath.Join(t.TempDir(), "j2k.zimg")
	spec := imageio.NewImageSpec(64, 64, 3, imageio.TypeUInt8)
	spec.TileWidth, spec.TileHeight = 32, 32
	spec.Attribute("compression", "j2k")
	pixels := fillPattern(spec)
	writeTestFile(t, name, spec, pixels)

	in, err := imageio.OpenInput(name, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	data, err := in.ReadImage(0, 3, imageio.TypeUnknown, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, pixels) {
		t.Error("lossless j2k pixels did not round trip")
	}
}

func TestJ2KFallbackForWideTypes(t *testing.T) {
	// j2k cannot hold uint16 chunks; the writer must silently fall
	// back to zlib and the file must still read correctly.
	name := filepath.Join(t.TempDir(), "fallback.zimg")
	spec := imageio.NewImageSpec(16, 16, 3, imageio.TypeUInt16)
	spec.Attribute("compression", "j2k")
	pixels := fillPattern(spec)
	writeTestFile(t, name, spec, pixels)

	in, err := imageio.OpenInput(name, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	data, err := in.ReadImage(0, 3, imageio.TypeUnknown, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, pixels) {
		t.Error("fallback pixels did not round trip")
	}
}

func TestSubimagesAndMipLevels(t *testing.T) {
	name := filepath.Join(t.TempDir(), "multi.zimg")
	out, err := imageio.NewOutput(name)
	if err != nil {
		t.Fatal(err)
	}
	spec0 := imageio.NewImageSpec(16, 16, 3, imageio.TypeUInt8)
	if err := out.Open(name, spec0, imageio.Create); err != nil {
		t.Fatal(err)
	}
	px0 := fillPattern(spec0)
	if err := out.WriteImage(spec0.Format, px0, 0, 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	mip := imageio.NewImageSpec(8, 8, 3, imageio.TypeUInt8)
	if err := out.Open(name, mip, imageio.AppendMIPLevel); err != nil {
		t.Fatal(err)
	}
	pxm := fillPattern(mip)
	if err := out.WriteImage(mip.Format, pxm, 0, 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	spec1 := imageio.NewImageSpec(4, 4, 1, imageio.TypeFloat)
	if err := out.Open(name, spec1, imageio.AppendSubimage); err != nil {
		t.Fatal(err)
	}
	px1 := make([]byte, spec1.ImageBytes())
	if err := out.WriteImage(spec1.Format, px1, 0, 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := imageio.OpenInput(name, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	if n, ok := in.NSubimages(); !ok || n != 2 {
		t.Fatalf("NSubimages = %d, %v", n, ok)
	}
	if in.NMipLevels() != 2 {
		t.Errorf("subimage 0 has %d MIP levels", in.NMipLevels())
	}
	if !in.SeekSubimage(0, 1) {
		t.Fatal("cannot seek to MIP level 1")
	}
	if in.Spec().Width != 8 {
		t.Errorf("MIP level width = %d", in.Spec().Width)
	}
	got, err := in.ReadImage(0, 3, imageio.TypeUnknown, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, pxm) {
		t.Error("MIP level pixels differ")
	}
	if !in.SeekSubimage(1, 0) {
		t.Fatal("cannot seek to subimage 1")
	}
	if in.Spec().Format != imageio.TypeFloat || in.Spec().NChannels != 1 {
		t.Errorf("subimage 1 spec: %s", in.Spec())
	}
	if in.SeekSubimage(2, 0) || in.SeekSubimage(0, 5) {
		t.Error("seek out of range succeeded")
	}
}

func TestDeepRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "deep.zimg")
	spec := imageio.NewImageSpec(4, 4, 2, imageio.TypeFloat)
	spec.Deep = true
	chant := []imageio.TypeDesc{imageio.TypeFloat, imageio.TypeFloat}
	deep := imageio.NewDeepData(16, chant, spec.ChannelNames)
	deep.SetSamples(5, 3)
	for s := 0; s < 3; s++ {
		deep.SetDeepValue(5, 0, s, float32(s)*0.25)
		deep.SetDeepValue(5, 1, s, 1)
	}

	out, err := imageio.NewOutput(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := out.Open(name, spec, imageio.Create); err != nil {
		t.Fatal(err)
	}
	if err := out.WriteDeep(deep); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := imageio.OpenInput(name, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	if !in.Spec().Deep {
		t.Fatal("spec lost the deep flag")
	}
	got, err := in.ReadNativeDeep()
	if err != nil {
		t.Fatal(err)
	}
	if got.Samples(5) != 3 || got.Samples(0) != 0 {
		t.Fatalf("sample counts: %d and %d", got.Samples(5), got.Samples(0))
	}
	if got.DeepValue(5, 0, 2) != 0.5 || got.DeepValue(5, 1, 0) != 1 {
		t.Error("deep samples differ")
	}
}

func TestThumbnailRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "thumb.zimg")
	spec := imageio.NewImageSpec(32, 32, 3, imageio.TypeUInt8)
	pixels := fillPattern(spec)

	tspec := imageio.NewImageSpec(8, 8, 3, imageio.TypeUInt8)
	tpix := fillPattern(tspec)

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
	if err := out.SetThumbnail(tspec, tpix); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := imageio.OpenInput(name, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	gotSpec, gotPix, ok := in.Thumbnail()
	if !ok {
		t.Fatal("thumbnail missing")
	}
	if gotSpec.Width != 8 || gotSpec.Height != 8 || gotSpec.NChannels != 3 {
		t.Errorf("thumbnail spec: %s", gotSpec)
	}
	if !bytes.Equal(gotPix, tpix) {
		t.Error("thumbnail pixels differ")
	}
}

func TestScanlineRead(t *testing.T) {
	name := filepath.Join(t.TempDir(), "bands.zimg")
	spec := imageio.NewImageSpec(20, 200, 1, imageio.TypeUInt8)
	pixels := fillPattern(spec)
	writeTestFile(t, name, spec, pixels)

	in, err := imageio.OpenInput(name, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	// a range straddling two 64-row bands
	got, err := in.ReadScanlines(60, 70, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := pixels[60*20 : 70*20]
	if !bytes.Equal(got, want) {
		t.Error("scanline range differs")
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	name := filepath.Join(t.TempDir(), "bad.zimg")
	if err := os.WriteFile(name, []byte("this is not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := imageio.OpenInput(name, nil); err == nil {
		t.Fatal("garbage accepted")
	}
}

func TestIOProxyRoundTrip(t *testing.T) {
	spec := imageio.NewImageSpec(10, 10, 3, imageio.TypeUInt8)
	pixels := fillPattern(spec)

	var sink seekBuffer
	out, err := imageio.NewOutputFormat("zimage")
	if err != nil {
		t.Fatal(err)
	}
	out.(imageio.IOProxyOutput).SetIOProxy(&sink)
	if err := out.Open("mem.zimg", spec, imageio.Create); err != nil {
		t.Fatal(err)
	}
	if err := out.WriteImage(spec.Format, pixels, 0, 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := NewReader(bytes.NewReader(sink.buf), int64(len(sink.buf)))
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	got, err := in.ReadImage(0, 3, imageio.TypeUnknown, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, pixels) {
		t.Error("proxy pixels differ")
	}
}

// seekBuffer is a minimal in-memory io.WriteSeeker.
type seekBuffer struct {
	buf []byte
	off int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	need := s.off + len(p)
	if need > len(s.buf) {
		s.buf = append(s.buf, make([]byte, need-len(s.buf))...)
	}
	copy(s.buf[s.off:], p)
	s.off = need
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 1:
		offset += int64(s.off)
	case 2:
		offset += int64(len(s.buf))
	}
	s.off = int(offset)
	return offset, nil
}
