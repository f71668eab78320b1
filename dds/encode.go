package dds

import (
	"bufio"
	"encoding/binary"
	"image"
	"io"

	"golang.org/x/image/draw"
)

// EncodeFormat selects the uncompressed layout Encode writes.
type EncodeFormat int

const (
	// EncodeAuto picks EncodeBGR8 for opaque images and EncodeBGRA8 otherwise.
	EncodeAuto EncodeFormat = iota
	// EncodeBGR8 is 24-bit R8G8B8 stored as B, G, R bytes.
	EncodeBGR8
	// EncodeBGRA8 is 32-bit A8R8G8B8 stored as B, G, R, A bytes.
	EncodeBGRA8
)

// EncodeOptions are optional arguments to Encode. The zero value is valid and
// means to use the default configuration.
type EncodeOptions struct {
	Format EncodeFormat
}

// Encode writes src to w as a single uncompressed DDS surface.
//
// options may be nil, which means to use the default configuration.
func Encode(w io.Writer, src image.Image, options *EncodeOptions) error {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return ErrBadArgument
	}
	if uint64(width)*uint64(height) > maxPixels {
		return ErrImageIsTooLarge
	}

	format := EncodeAuto
	if options != nil {
		format = options.Format
	}
	if format == EncodeAuto {
		format = EncodeBGRA8
		if isOpaque(src) {
			format = EncodeBGR8
		}
	}
	if format != EncodeBGR8 && format != EncodeBGRA8 {
		return ErrBadArgument
	}

	bpp := 3
	pf := PixelFormat{Flags: pfRGB, RGBBitCount: 24, RBitMask: 0x00ff0000, GBitMask: 0x0000ff00, BBitMask: 0x000000ff}
	if format == EncodeBGRA8 {
		bpp = 4
		pf.Flags |= pfAlphaPixels
		pf.RGBBitCount = 32
		pf.ABitMask = 0xff000000
	}

	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, width, height, width*bpp, pf); err != nil {
		return err
	}

	nrgba := toNRGBA(src)
	row := make([]byte, width*bpp)
	for y := 0; y < height; y++ {
		s := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < width; x++ {
			d := row[x*bpp:]
			d[0], d[1], d[2] = s[4*x+2], s[4*x+1], s[4*x+0]
			if bpp == 4 {
				d[3] = s[4*x+3]
			}
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeHeader(w io.Writer, width, height, pitch int, pf PixelFormat) error {
	var buf [4 + headerSize]byte
	copy(buf[:4], Magic)
	b := buf[4:]
	le := binary.LittleEndian
	le.PutUint32(b[0:], headerSize)
	le.PutUint32(b[4:], flagCaps|flagHeight|flagWidth|flagPitch|flagPixelFormat)
	le.PutUint32(b[8:], uint32(height))
	le.PutUint32(b[12:], uint32(width))
	le.PutUint32(b[16:], uint32(pitch))
	le.PutUint32(b[24:], 1)

	p := b[72:104]
	le.PutUint32(p[0:], pixelFormatSize)
	le.PutUint32(p[4:], pf.Flags)
	copy(p[8:12], pf.FourCC[:])
	le.PutUint32(p[12:], pf.RGBBitCount)
	le.PutUint32(p[16:], pf.RBitMask)
	le.PutUint32(p[20:], pf.GBitMask)
	le.PutUint32(p[24:], pf.BBitMask)
	le.PutUint32(p[28:], pf.ABitMask)

	le.PutUint32(b[104:], capsTexture)
	_, err := w.Write(buf[:])
	return err
}

func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if m, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return m
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func isOpaque(src image.Image) bool {
	if o, ok := src.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := src.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}
