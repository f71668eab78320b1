package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"os"

	"ddsconv/contracts"
	"ddsconv/dds"
	"ddsconv/filters"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

const pngSignature = "\x89PNG\r\n\x1a\n"

// ImageInfo describes a source file without converting it.
type ImageInfo struct {
	Path      string
	Format    string
	Width     int
	Height    int
	HasAlpha  bool
	DDSFormat string
	MipMaps   int
	// DPI is 0 when the file does not record a physical resolution.
	DPIX float64
	DPIY float64
}

func (i ImageInfo) String() string {
	s := fmt.Sprintf("%s: %s %dx%d alpha=%t", i.Path, i.Format, i.Width, i.Height, i.HasAlpha)
	if i.DDSFormat != "" {
		s += fmt.Sprintf(" dds=%s mips=%d", i.DDSFormat, i.MipMaps)
	}
	if i.DPIX > 0 {
		s += fmt.Sprintf(" dpi=%.0fx%.0f", i.DPIX, i.DPIY)
	}
	return s
}

// Inspect reads the header of a DDS or PNG file. PNG files are also scanned
// for pHYs and eXIf chunks; an eXIf resolution takes precedence.
func Inspect(filePath string) (ImageInfo, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return ImageInfo{}, contracts.WrapPath(contracts.KindIO, "inspect", filePath, err)
	}
	info := ImageInfo{Path: filePath}

	if bytes.HasPrefix(data, []byte(dds.Magic)) {
		h, err := dds.DecodeHeader(bytes.NewReader(data))
		if err != nil {
			return ImageInfo{}, contracts.WrapPath(contracts.KindDecode, "inspect", filePath, err)
		}
		info.Format = "dds"
		info.Width, info.Height = h.Width, h.Height
		info.HasAlpha = h.HasAlpha()
		info.DDSFormat = h.Format.String()
		info.MipMaps = max(h.MipMapCount, 1)
		return info, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, contracts.WrapPath(contracts.KindDecode, "inspect", filePath, err)
	}
	info.Format = format
	info.Width, info.Height = cfg.Width, cfg.Height
	info.HasAlpha = filters.ModelHasAlpha(cfg.ColorModel)

	if format == "png" {
		if dpi, ok := GetDPIfromPNG(data); ok {
			info.DPIX, info.DPIY = dpi, dpi
		}
		if payload := findPNGChunk(data, "eXIf"); payload != nil {
			if x, y, err := GetEXIFDPI(payload); err == nil {
				info.DPIX, info.DPIY = x, y
			}
		}
	}
	return info, nil
}

// GetEXIFDPI returns the horizontal and vertical resolution of an EXIF
// payload in dots per inch.
func GetEXIFDPI(data []byte) (float64, float64, error) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return 0, 0, fmt.Errorf("EXIF not found: %w", err)
	}

	im := exifcommon.NewIfdMapping()
	ti := exif.NewTagIndex()
	if err := exifcommon.LoadStandardIfds(im); err != nil {
		return 0, 0, err
	}

	_, index, err := exif.Collect(im, ti, rawExif)
	if err != nil {
		return 0, 0, err
	}

	dpiX, okX := rationalTag(index.RootIfd, "XResolution")
	dpiY, okY := rationalTag(index.RootIfd, "YResolution")
	if !okX && !okY {
		return 0, 0, fmt.Errorf("EXIF has no resolution")
	}
	if !okX {
		dpiX = dpiY
	}
	if !okY {
		dpiY = dpiX
	}

	if tag, err := index.RootIfd.FindTagWithName("ResolutionUnit"); err == nil {
		if val, err := tag[0].Value(); err == nil {
			if u, ok := val.([]uint16); ok && len(u) > 0 && u[0] == 3 {
				dpiX *= 2.54
				dpiY *= 2.54
			}
		}
	}

	return dpiX, dpiY, nil
}

func rationalTag(ifd *exif.Ifd, name string) (float64, bool) {
	tag, err := ifd.FindTagWithName(name)
	if err != nil {
		return 0, false
	}
	val, err := tag[0].Value()
	if err != nil {
		return 0, false
	}
	rats, ok := val.([]exifcommon.Rational)
	if !ok || len(rats) == 0 || rats[0].Denominator == 0 {
		return 0, false
	}
	return float64(rats[0].Numerator) / float64(rats[0].Denominator), true
}

// GetDPIfromPNG reads the pHYs chunk of a PNG file. ok is false when the
// chunk is missing or its unit is not the meter.
func GetDPIfromPNG(data []byte) (dpi float64, ok bool) {
	payload := findPNGChunk(data, "pHYs")
	if len(payload) < 9 {
		return 0, false
	}
	pxPerUnitX := binary.BigEndian.Uint32(payload[0:4])
	unit := payload[8]
	if unit != 1 {
		return 0, false
	}
	return float64(pxPerUnitX) * 0.0254, true
}

// findPNGChunk returns the data of the first chunk named chunkType, or nil.
func findPNGChunk(data []byte, chunkType string) []byte {
	if !bytes.HasPrefix(data, []byte(pngSignature)) {
		return nil
	}
	buf := bytes.NewReader(data[len(pngSignature):])

	for {
		var length uint32
		if err := binary.Read(buf, binary.BigEndian, &length); err != nil {
			return nil
		}

		name := make([]byte, 4)
		if _, err := io.ReadFull(buf, name); err != nil {
			return nil
		}

		if int64(length) > int64(buf.Len()) {
			return nil
		}
		if string(name) == chunkType {
			payload := make([]byte, length)
			if _, err := io.ReadFull(buf, payload); err != nil {
				return nil
			}
			return payload
		}
		if string(name) == "IEND" {
			return nil
		}

		// skip chunk data + CRC
		if _, err := buf.Seek(int64(length)+4, io.SeekCurrent); err != nil {
			return nil
		}
	}
}
