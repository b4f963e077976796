// iinfo prints the geometry and metadata of image files.
//
// Usage:
//
//	iinfo [-v|--verbose] <filename> [<filename> ...]
//
// Options:
//
//	-v, --verbose  Also list metadata attributes, MIP levels and the
//	               embedded thumbnail.
//	-h, --help     Show this help message.
//	--version      Show version information.
//
// Exit codes:
//
//	0: All files read
//	2: Error (file not found, unreadable, etc.)
package main

import (
	"fmt"
	"os"

	"github.com/clayne/oiio/imagebuf"
	"github.com/clayne/oiio/imagecache"
	_ "github.com/clayne/oiio/zimage"
)

const version = "1.0.0"

func main() {
	verbose := false
	files := []string{}

	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch arg {
		case "-v", "--verbose":
			verbose = true
		case "-h", "--help":
			usage()
			os.Exit(0)
		case "--version":
			fmt.Printf("iinfo %s\n", version)
			os.Exit(0)
		default:
			if len(arg) > 0 && arg[0] == '-' {
				fmt.Fprintf(os.Stderr, "iinfo: unknown option %s\n", arg)
				os.Exit(2)
			}
			files = append(files, arg)
		}
	}
	if len(files) == 0 {
		usage()
		os.Exit(2)
	}

	cache := imagecache.Default()
	exit := 0
	for _, name := range files {
		if err := printInfo(name, cache, verbose); err != nil {
			fmt.Fprintf(os.Stderr, "iinfo: %s: %v\n", name, err)
			exit = 2
		}
	}
	os.Exit(exit)
}

func usage() {
	fmt.Println("Usage: iinfo [-v|--verbose] <filename> ...")
}

func printInfo(name string, cache *imagecache.Cache, verbose bool) error {
	nsub, known, err := cache.NSubimages(name)
	if err != nil {
		return err
	}
	if !known {
		nsub = 1
	}
	for sub := 0; sub < nsub; sub++ {
		ib := imagebuf.NewFromFile(name, sub, 0, cache, nil)
		if err := ib.InitSpec(); err != nil {
			return err
		}
		spec := ib.Spec()
		label := name
		if nsub > 1 {
			label = fmt.Sprintf("%s subimage %d", name, sub)
		}
		fmt.Printf("%s : %s %s\n", label, spec, ib.FileFormatName())
		if !verbose {
			continue
		}
		if full := spec.ROIFull(); full != spec.ROI() {
			fmt.Printf("    full/display window: %s\n", full)
		}
		if spec.TileWidth > 0 {
			fmt.Printf("    tile size: %d x %d\n", spec.TileWidth, spec.TileHeight)
		}
		for lvl := 1; lvl < ib.NMipLevels(); lvl++ {
			mip := imagebuf.NewFromFile(name, sub, lvl, cache, nil)
			if err := mip.InitSpec(); err != nil {
				return err
			}
			fmt.Printf("    MIP level %d: %s\n", lvl, mip.Spec())
		}
		fmt.Printf("    channels:")
		for _, ch := range spec.ChannelNames {
			fmt.Printf(" %s", ch)
		}
		fmt.Println()
		for _, a := range spec.Attribs() {
			fmt.Printf("    %q: %v\n", a.Name, a.Value)
		}
		if thumb := ib.Thumbnail(); thumb != nil {
			fmt.Printf("    thumbnail: %s\n", thumb.Spec())
		}
	}
	return nil
}
