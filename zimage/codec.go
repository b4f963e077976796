package zimage

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/mrjoshuak/go-jpeg2000"

	"github.com/clayne/oiio/imageio"
)

// Chunk codecs. Every pixel chunk in the file carries one of these in
// its header.
const (
	codecNone byte = iota
	codecZlib
	codecZstd
	codecJ2K
)

func codecForName(name string) byte {
	switch name {
	case "none":
		return codecNone
	case "zstd":
		return codecZstd
	case "j2k":
		return codecJ2K
	}
	return codecZlib
}

func codecName(c byte) string {
	switch c {
	case codecNone:
		return "none"
	case codecZstd:
		return "zstd"
	case codecJ2K:
		return "j2k"
	}
	return "zlib"
}

var (
	zstdEnc, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	zstdDec, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
)

func zlibCompress(src []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(src)
	w.Close()
	return buf.Bytes()
}

func zlibDecompress(src []byte, want int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out := make([]byte, 0, want)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// compressChunk encodes one chunk of pixels. The JPEG 2000 codec only
// handles 8-bit single, three or four channel chunks; anything else
// silently falls back to zlib. Returns the data and the codec actually
// used.
func compressChunk(codec byte, src []byte, width, height, nchannels int, format imageio.TypeDesc) ([]byte, byte, error) {
	switch codec {
	case codecNone:
		return src, codecNone, nil
	case codecZstd:
		return zstdEnc.EncodeAll(src, nil), codecZstd, nil
	case codecJ2K:
		if format == imageio.TypeUInt8 && (nchannels == 1 || nchannels == 3 || nchannels == 4) {
			data, err := j2kCompress(src, width, height, nchannels)
			if err == nil {
				return data, codecJ2K, nil
			}
		}
		fallthrough
	default:
		return zlibCompress(src), codecZlib, nil
	}
}

// decompressChunk decodes one chunk back to want raw bytes.
func decompressChunk(codec byte, src []byte, want, width, height, nchannels int) ([]byte, error) {
	switch codec {
	case codecNone:
		out := make([]byte, want)
		copy(out, src)
		return out, nil
	case codecZlib:
		out, err := zlibDecompress(src, want)
		if err != nil {
			return nil, err
		}
		if len(out) < want {
			out = append(out, make([]byte, want-len(out))...)
		}
		return out[:want], nil
	case codecZstd:
		out, err := zstdDec.DecodeAll(src, make([]byte, 0, want))
		if err != nil {
			return nil, err
		}
		if len(out) < want {
			out = append(out, make([]byte, want-len(out))...)
		}
		return out[:want], nil
	case codecJ2K:
		return j2kDecompress(src, want, width, height, nchannels)
	}
	return nil, fmt.Errorf("zimage: unknown chunk codec %d", codec)
}

// j2kCompress losslessly encodes an 8-bit interleaved chunk as a JPEG
// 2000 codestream.
func j2kCompress(src []byte, width, height, nchannels int) ([]byte, error) {
	var img image.Image
	switch nchannels {
	case 1:
		g := image.NewGray(image.Rect(0, 0, width, height))
		copy(g.Pix, src)
		img = g
	case 3:
		n := image.NewNRGBA(image.Rect(0, 0, width, height))
		for p := 0; p < width*height; p++ {
			n.Pix[p*4+0] = src[p*3+0]
			n.Pix[p*4+1] = src[p*3+1]
			n.Pix[p*4+2] = src[p*3+2]
			n.Pix[p*4+3] = 0xff
		}
		img = n
	case 4:
		n := image.NewNRGBA(image.Rect(0, 0, width, height))
		copy(n.Pix, src)
		img = n
	default:
		return nil, fmt.Errorf("zimage: j2k cannot encode %d channels", nchannels)
	}
	var buf bytes.Buffer
	opts := &jpeg2000.Options{Format: jpeg2000.FormatJ2K, Lossless: true}
	if err := jpeg2000.Encode(&buf, img, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// j2kDecompress decodes a JPEG 2000 codestream back to interleaved
// 8-bit bytes.
func j2kDecompress(src []byte, want, width, height, nchannels int) ([]byte, error) {
	img, err := jpeg2000.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	out := make([]byte, want)
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return nil, fmt.Errorf("zimage: j2k chunk is %dx%d, want %dx%d", b.Dx(), b.Dy(), width, height)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			p := (y*width + x) * nchannels
			switch nchannels {
			case 1:
				out[p] = c.R
			case 3:
				out[p], out[p+1], out[p+2] = c.R, c.G, c.B
			case 4:
				out[p], out[p+1], out[p+2], out[p+3] = c.R, c.G, c.B, c.A
			}
		}
	}
	return out, nil
}
