package imagebuf

import (
	"errors"

	"github.com/clayne/oiio/imagecache"
	"github.com/clayne/oiio/imageio"
)

var (
	errUninitialized = errors.New("imagebuf: buffer is uninitialized")
	errNotBound      = errors.New("imagebuf: buffer is not bound to a file")
	errNotDeep       = errors.New("imagebuf: buffer holds no deep data")
	errOutsideWindow = errors.New("imagebuf: coordinate outside the data window")
)

// InitSpec reads just the header of the bound file, enough to answer
// geometry and metadata queries without touching pixels. It is a no-op
// if the spec is already known.
func (ib *ImageBuf) InitSpec() error {
	impl := ib.impl
	if impl == nil {
		return errUninitialized
	}
	if impl.specValid {
		return nil
	}
	if impl.name == "" {
		return errNotBound
	}
	sub, mip := impl.subimage, impl.miplevel
	if sub < 0 {
		sub = 0
	}
	if mip < 0 {
		mip = 0
	}
	if impl.cache != nil {
		spec, err := impl.cache.Spec(impl.name, sub, mip)
		if err != nil {
			ib.Errorf("%v", err)
			return err
		}
		impl.nativeSpec = spec.Copy()
		impl.spec = spec.Copy()
		impl.nsubimages, impl.nsubKnown, _ = impl.cache.NSubimages(impl.name)
		impl.nmiplevels, _ = impl.cache.NMipLevels(impl.name, sub)
		impl.fileFormat, _ = impl.cache.FileFormat(impl.name)
		if tspec, tpix, ok, _ := impl.cache.Thumbnail(impl.name); ok {
			impl.thumb = thumbBuf(tspec, tpix)
		}
	} else {
		in, err := imageio.OpenInput(impl.name, impl.config)
		if err != nil {
			ib.Errorf("%v", err)
			return err
		}
		defer in.Close()
		if !in.SeekSubimage(sub, mip) {
			err := imageio.ErrNoSuchSubimage
			ib.Errorf("%s: subimage %d miplevel %d", impl.name, sub, mip)
			return err
		}
		impl.nativeSpec = in.Spec().Copy()
		impl.spec = in.Spec().Copy()
		impl.nsubimages, impl.nsubKnown = in.NSubimages()
		impl.nmiplevels = in.NMipLevels()
		impl.fileFormat = in.FormatName()
		if tspec, tpix, ok := in.Thumbnail(); ok {
			impl.thumb = thumbBuf(tspec, tpix)
		}
	}
	impl.subimage, impl.miplevel = sub, mip
	impl.specValid = true
	return nil
}

// thumbBuf wraps raw preview pixels in a local buffer.
func thumbBuf(spec *imageio.ImageSpec, pixels []byte) *ImageBuf {
	t := New(spec)
	copy(t.impl.pixels, pixels)
	return t
}

// Read ensures the pixels of the given subimage and MIP level are
// available. For cache-backed buffers this is lazy: unless force is
// true or the conversion type demands otherwise, pixels stay in the
// cache and page in on access. Otherwise the whole image is read into
// locally owned memory, in the file's native type or in convert when it
// is not TypeUnknown. progress, when non-nil, is called during long
// reads with the completed fraction.
func (ib *ImageBuf) Read(subimage, miplevel int, force bool, convert imageio.TypeDesc, progress imageio.ProgressCallback) error {
	impl := ib.impl
	if impl == nil {
		return errUninitialized
	}
	if impl.name == "" {
		// pixels are not file-backed; nothing to read
		if impl.storage != Uninitialized {
			return nil
		}
		return errNotBound
	}
	if subimage < 0 {
		subimage = 0
	}
	if miplevel < 0 {
		miplevel = 0
	}
	if impl.pixelsValid && subimage == impl.subimage && miplevel == impl.miplevel &&
		!force && (convert == imageio.TypeUnknown || convert == impl.spec.Format) {
		return nil
	}
	if subimage != impl.subimage || miplevel != impl.miplevel || !impl.specValid {
		impl.subimage, impl.miplevel = subimage, miplevel
		impl.specValid = false
		impl.pixelsValid = false
		if err := ib.InitSpec(); err != nil {
			return err
		}
	}

	if impl.nativeSpec.Deep {
		return ib.readDeep()
	}

	native := impl.nativeSpec.Format
	if impl.cache != nil && !force &&
		(convert == imageio.TypeUnknown || convert == cacheFormat(native)) {
		impl.storage = ImageCache
		impl.cacheFmt = cacheFormat(native)
		impl.pixels = nil
		impl.pixelsValid = true
		return nil
	}
	format := convert
	if format == imageio.TypeUnknown {
		format = native
	}
	return ib.readLocal(0, impl.nativeSpec.NChannels, format, progress)
}

// ReadChannels is Read restricted to channels [chbegin, chend). The
// resulting buffer holds only that channel range when reading into
// local memory; cache-backed reads treat the range as advisory and keep
// all channels available.
func (ib *ImageBuf) ReadChannels(subimage, miplevel, chbegin, chend int, force bool, convert imageio.TypeDesc, progress imageio.ProgressCallback) error {
	impl := ib.impl
	if impl == nil {
		return errUninitialized
	}
	if err := ib.Read(subimage, miplevel, force, convert, progress); err != nil {
		return err
	}
	if impl.storage != LocalBuffer || impl.nativeSpec.Deep {
		return nil
	}
	if chbegin < 0 {
		chbegin = 0
	}
	if chend <= chbegin || chend > impl.nativeSpec.NChannels {
		chend = impl.nativeSpec.NChannels
	}
	if chbegin == 0 && chend == impl.spec.NChannels {
		return nil
	}
	format := convert
	if format == imageio.TypeUnknown {
		format = impl.nativeSpec.Format
	}
	return ib.readLocal(chbegin, chend, format, progress)
}

// readLocal pulls channels [chbegin, chend) of the bound subimage into
// freshly allocated local pixels.
func (ib *ImageBuf) readLocal(chbegin, chend int, format imageio.TypeDesc, progress imageio.ProgressCallback) error {
	impl := ib.impl
	in, err := imageio.OpenInput(impl.name, impl.config)
	if err != nil {
		ib.Errorf("%v", err)
		return err
	}
	defer in.Close()
	if !in.SeekSubimage(impl.subimage, impl.miplevel) {
		ib.Errorf("%s: subimage %d miplevel %d", impl.name, impl.subimage, impl.miplevel)
		return imageio.ErrNoSuchSubimage
	}
	data, err := in.ReadImage(chbegin, chend, format, progress)
	if err != nil {
		ib.Errorf("%v", err)
		return err
	}
	spec := impl.nativeSpec.Copy()
	spec.Format = format
	if chbegin > 0 || chend < impl.nativeSpec.NChannels {
		spec.NChannels = chend - chbegin
		spec.ChannelNames = append([]string(nil), impl.nativeSpec.ChannelNames[chbegin:chend]...)
		spec.AlphaChannel = -1
		for i, n := range spec.ChannelNames {
			if n == "A" || n == "Alpha" {
				spec.AlphaChannel = i
			}
		}
	}
	impl.spec = spec
	impl.pixels = data
	impl.xstride = spec.PixelBytes()
	impl.ystride = impl.xstride * spec.Width
	impl.zstride = impl.ystride * spec.Height
	impl.storage = LocalBuffer
	impl.pixelsValid = true
	impl.deep = nil
	return nil
}

// readDeep pulls the deep samples of the bound subimage into local
// storage. Deep images never stay cache-backed.
func (ib *ImageBuf) readDeep() error {
	impl := ib.impl
	var deep *imageio.DeepData
	var err error
	if impl.cache != nil {
		deep, err = impl.cache.ReadDeep(impl.name, impl.subimage, impl.miplevel)
	} else {
		var in imageio.ImageInput
		in, err = imageio.OpenInput(impl.name, impl.config)
		if err == nil {
			if !in.SeekSubimage(impl.subimage, impl.miplevel) {
				err = imageio.ErrNoSuchSubimage
			} else {
				deep, err = in.ReadNativeDeep()
			}
			in.Close()
		}
	}
	if err != nil {
		ib.Errorf("%v", err)
		return err
	}
	impl.deep = deep
	impl.pixels = nil
	impl.storage = LocalBuffer
	impl.pixelsValid = true
	return nil
}

// MakeWritable promotes a cache-backed buffer to locally owned pixels
// so it can be written to. With keepCacheType true the local copy keeps
// the type the cache stored, otherwise the file's native type. Buffers
// already holding local or wrapped pixels are untouched.
func (ib *ImageBuf) MakeWritable(keepCacheType bool) error {
	impl := ib.impl
	if impl == nil {
		return errUninitialized
	}
	if impl.storage != ImageCache {
		return nil
	}
	convert := impl.nativeSpec.Format
	if keepCacheType {
		convert = impl.cacheFmt
	}
	return ib.Read(impl.subimage, impl.miplevel, true, convert, nil)
}

// cacheFormat mirrors the tile cache's storage type policy so a
// cache-backed buffer can report the type its pixels will arrive in.
func cacheFormat(native imageio.TypeDesc) imageio.TypeDesc {
	switch native {
	case imageio.TypeUInt8, imageio.TypeUInt16, imageio.TypeHalf, imageio.TypeFloat:
		return native
	}
	return imageio.TypeFloat
}

// tileDims reports the cache tile shape for the buffer's spec.
func (impl *imageBufImpl) tileDims() (tw, th, td int) {
	return imagecache.TileDims(impl.nativeSpec)
}
