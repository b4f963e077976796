// iconvert rewrites an image file, optionally changing pixel type,
// compression, tiling and embedded thumbnail.
//
// Usage:
//
//	iconvert [options] <input> <output>
//
// Options:
//
//	-d, --data-format <type>   Output channel type: uint8, uint16,
//	                           half, float, ...
//	-c, --compression <name>   Chunk codec: zlib, zstd, j2k, none.
//	-t, --tile <WxH>           Write tiled with the given tile size.
//	    --scanline             Write scanline (untiled) layout.
//	    --thumbnail <size>     Embed a preview scaled to fit <size>.
//	-h, --help                 Show this help message.
//	--version                  Show version information.
//
// Exit codes:
//
//	0: Converted
//	2: Error
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/clayne/oiio/bufutil"
	"github.com/clayne/oiio/imagebuf"
	"github.com/clayne/oiio/imagecache"
	"github.com/clayne/oiio/imageio"
	_ "github.com/clayne/oiio/zimage"
)

const version = "1.0.0"

func main() {
	dataFormat := imageio.TypeUnknown
	compression := ""
	tileW, tileH := 0, 0
	scanline := false
	thumbSize := 0
	files := []string{}

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		next := func() string {
			i++
			if i >= len(args) {
				fmt.Fprintf(os.Stderr, "iconvert: %s needs an argument\n", arg)
				os.Exit(2)
			}
			return args[i]
		}
		switch arg {
		case "-d", "--data-format":
			dataFormat = imageio.TypeDescFromString(next())
			if dataFormat == imageio.TypeUnknown {
				fmt.Fprintln(os.Stderr, "iconvert: unknown data format")
				os.Exit(2)
			}
		case "-c", "--compression":
			compression = next()
		case "-t", "--tile":
			wh := strings.SplitN(next(), "x", 2)
			if len(wh) != 2 {
				fmt.Fprintln(os.Stderr, "iconvert: tile size must be WxH")
				os.Exit(2)
			}
			tileW, _ = strconv.Atoi(wh[0])
			tileH, _ = strconv.Atoi(wh[1])
		case "--scanline":
			scanline = true
		case "--thumbnail":
			thumbSize, _ = strconv.Atoi(next())
		case "-h", "--help":
			usage()
			os.Exit(0)
		case "--version":
			fmt.Printf("iconvert %s\n", version)
			os.Exit(0)
		default:
			if len(arg) > 0 && arg[0] == '-' {
				fmt.Fprintf(os.Stderr, "iconvert: unknown option %s\n", arg)
				os.Exit(2)
			}
			files = append(files, arg)
		}
	}
	if len(files) != 2 {
		usage()
		os.Exit(2)
	}

	if err := convert(files[0], files[1], dataFormat, compression, tileW, tileH, scanline, thumbSize); err != nil {
		fmt.Fprintf(os.Stderr, "iconvert: %v\n", err)
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("Usage: iconvert [options] <input> <output>")
}

func convert(in, out string, dataFormat imageio.TypeDesc, compression string, tileW, tileH int, scanline bool, thumbSize int) error {
	ib := imagebuf.NewFromFile(in, 0, 0, imagecache.Default(), nil)
	if err := ib.Read(0, 0, false, imageio.TypeUnknown, nil); err != nil {
		return err
	}
	if compression != "" {
		ib.SpecMod().Attribute("compression", compression)
	}
	if scanline {
		ib.SetWriteTiles(0, 0, 0)
	} else if tileW > 0 && tileH > 0 {
		ib.SetWriteTiles(tileW, tileH, 1)
	}
	if thumbSize > 0 {
		if err := bufutil.AttachThumbnail(ib, thumbSize); err != nil {
			return err
		}
	}
	if err := ib.Write(out, dataFormat, "", nil); err != nil {
		if msg := ib.GetError(true); msg != "" {
			return fmt.Errorf("%s", msg)
		}
		return err
	}
	return nil
}
