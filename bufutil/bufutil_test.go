package bufutil

import (
	"image"
	"testing"

	"github.com/clayne/oiio/imagebuf"
	"github.com/clayne/oiio/imageio"
)

func TestToImageGray(t *testing.T) {
	spec := imageio.NewImageSpec(4, 4, 1, imageio.TypeUInt8)
	ib := imagebuf.New(spec)
	ib.SetPixel(2, 1, 0, []float32{1.0})

	img, err := ToImage(ib)
	if err != nil {
		t.Fatal(err)
	}
	g, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("got %T, want *image.Gray", img)
	}
	if g.GrayAt(2, 1).Y != 255 {
		t.Errorf("pixel (2, 1) = %d", g.GrayAt(2, 1).Y)
	}
	if g.GrayAt(0, 0).Y != 0 {
		t.Errorf("background = %d", g.GrayAt(0, 0).Y)
	}
}

func TestToImageRGBGetsOpaqueAlpha(t *testing.T) {
	spec := imageio.NewImageSpec(2, 2, 3, imageio.TypeUInt8)
	ib := imagebuf.New(spec)
	ib.SetPixel(1, 0, 0, []float32{1, 0, 0})

	img, err := ToImage(ib)
	if err != nil {
		t.Fatal(err)
	}
	n, ok := img.(*image.NRGBA)
	if !ok {
		t.Fatalf("got %T, want *image.NRGBA", img)
	}
	c := n.NRGBAAt(1, 0)
	if c.R != 255 || c.G != 0 || c.B != 0 || c.A != 255 {
		t.Errorf("pixel (1, 0) = %v", c)
	}
}

func TestToImageFloatGoes16Bit(t *testing.T) {
	spec := imageio.NewImageSpec(2, 2, 3, imageio.TypeFloat)
	ib := imagebuf.New(spec)
	ib.SetPixel(0, 0, 0, []float32{0.5, 0.5, 0.5})

	img, err := ToImage(ib)
	if err != nil {
		t.Fatal(err)
	}
	n, ok := img.(*image.NRGBA64)
	if !ok {
		t.Fatalf("got %T, want *image.NRGBA64", img)
	}
	if got := n.NRGBA64At(0, 0).R; got != 32768 {
		t.Errorf("half gray = %d", got)
	}
}

func TestFromImageRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.Pix[(1*src.Stride)+2*4+0] = 200 // (2, 1) red
	src.Pix[(1*src.Stride)+2*4+3] = 255

	ib, err := FromImage(src)
	if err != nil {
		t.Fatal(err)
	}
	if ib.NChannels() != 4 || ib.Spec().Width != 3 || ib.Spec().Height != 2 {
		t.Fatalf("buffer shape %s", ib.Spec())
	}
	if got := ib.GetChannel(2, 1, 0, 0, imagebuf.WrapDefault); got != 200.0/255 {
		t.Errorf("red = %v", got)
	}

	back, err := ToImage(ib)
	if err != nil {
		t.Fatal(err)
	}
	if back.(*image.NRGBA).NRGBAAt(2, 1).R != 200 {
		t.Error("round trip changed pixel values")
	}
}

func TestThumbnailFitsWithinBounds(t *testing.T) {
	spec := imageio.NewImageSpec(64, 32, 3, imageio.TypeUInt8)
	ib := imagebuf.New(spec)

	thumb, err := Thumbnail(ib, 16)
	if err != nil {
		t.Fatal(err)
	}
	if thumb.Spec().Width != 16 || thumb.Spec().Height != 8 {
		t.Errorf("thumbnail is %dx%d", thumb.Spec().Width, thumb.Spec().Height)
	}
}

func TestAttachThumbnail(t *testing.T) {
	ib := imagebuf.New(imageio.NewImageSpec(32, 32, 3, imageio.TypeUInt8))
	if err := AttachThumbnail(ib, 8); err != nil {
		t.Fatal(err)
	}
	thumb := ib.Thumbnail()
	if thumb == nil || thumb.Spec().Width != 8 {
		t.Error("thumbnail not attached")
	}
}

func TestToImageRejectsDeep(t *testing.T) {
	spec := imageio.NewImageSpec(2, 2, 1, imageio.TypeFloat)
	spec.Deep = true
	if _, err := ToImage(imagebuf.New(spec)); err == nil {
		t.Error("deep buffer accepted")
	}
}
