package converter

import (
	"image"
	"image/png"
	"io"
	"os"

	"ddsconv/contracts"
	"ddsconv/dds"
	"ddsconv/files_manager"
	"ddsconv/filters"
)

type ConversionOptions = contracts.ConversionOptions

// keepAlpha makes png.Encoder write an alpha channel even when every pixel
// is opaque.
type keepAlpha struct {
	image.Image
}

func (keepAlpha) Opaque() bool { return false }

func pngEncoder(c contracts.PNGCompression) *png.Encoder {
	if c == contracts.Lossy {
		return &png.Encoder{CompressionLevel: png.DefaultCompression}
	}
	return &png.Encoder{CompressionLevel: png.NoCompression}
}

func getImageFromDDS(filePath string) (image.Image, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, contracts.WrapPath(contracts.KindIO, "open dds", filePath, err)
	}
	defer f.Close()
	img, err := dds.Decode(f)
	if err != nil {
		return nil, contracts.WrapPath(contracts.KindDecode, "decode dds", filePath, err)
	}
	return img, nil
}

func getImageFromPNG(filePath string) (image.Image, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, contracts.WrapPath(contracts.KindIO, "open png", filePath, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, contracts.WrapPath(contracts.KindDecode, "decode png", filePath, err)
	}
	return img, nil
}

// ConvertDDSToPNG decodes srcPath, applies the enabled filters and writes
// the result to dstPath as PNG.
func ConvertDDSToPNG(srcPath, dstPath string, opts ConversionOptions) error {
	src, err := getImageFromDDS(srcPath)
	if err != nil {
		return err
	}
	img, err := filters.Apply(src, opts)
	if err != nil {
		return contracts.WrapPath(contracts.KindTransform, "filter", srcPath, err)
	}
	if opts.KeepAlpha && filters.ModelHasAlpha(src.ColorModel()) {
		img = keepAlpha{img}
	}
	enc := pngEncoder(opts.PNGCompression)
	return files_manager.WriteFileAtomic(dstPath, func(w io.Writer) error {
		if err := enc.Encode(w, img); err != nil {
			return contracts.WrapPath(contracts.KindEncode, "encode png", dstPath, err)
		}
		return nil
	})
}

// ConvertPNGToDDS decodes srcPath, drops its alpha channel when
// opts.KeepAlpha is false and writes an uncompressed DDS to dstPath. A PNG
// with an alpha channel stays 32-bit even when every pixel is opaque. The
// other adjustments in opts only apply to DDS to PNG conversion.
func ConvertPNGToDDS(srcPath, dstPath string, opts ConversionOptions) error {
	img, err := getImageFromPNG(srcPath)
	if err != nil {
		return err
	}
	var encOpts *dds.EncodeOptions
	switch {
	case !opts.KeepAlpha:
		img = filters.DropAlpha(img)
	case filters.ModelHasAlpha(img.ColorModel()):
		encOpts = &dds.EncodeOptions{Format: dds.EncodeBGRA8}
	}
	return files_manager.WriteFileAtomic(dstPath, func(w io.Writer) error {
		if err := dds.Encode(w, img, encOpts); err != nil {
			return contracts.WrapPath(contracts.KindEncode, "encode dds", dstPath, err)
		}
		return nil
	})
}
