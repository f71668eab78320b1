// Package dds implements the DirectDraw Surface container format.
//
// Decoding covers uncompressed bitmask layouts and the DXT1, DXT3 and DXT5
// block formats (legacy FourCC or DX10 header). Only the top-level surface is
// decoded; mipmaps, cube faces and array slices are ignored. Encoding writes
// uncompressed 24 or 32 bit surfaces without mipmaps.
//
// Importing the package registers it with the image package.
package dds

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

// Magic is the byte string prefix of every DDS image file.
const Magic = "DDS "

func init() {
	image.RegisterFormat("dds", Magic, Decode, DecodeConfig)
}

var (
	ErrBadArgument       = errors.New("dds: bad argument")
	ErrNotADDSFile       = errors.New("dds: not a DDS file")
	ErrImageIsTooLarge   = errors.New("dds: image is too large")
	ErrUnsupportedFormat = errors.New("dds: unsupported pixel format")
)

const (
	headerSize      = 124
	pixelFormatSize = 32
	dx10HeaderSize  = 20

	// Sanity bound on width*height to refuse absurd allocations.
	maxPixels = 1 << 28
)

// Header flags.
const (
	flagCaps        = 0x1
	flagHeight      = 0x2
	flagWidth       = 0x4
	flagPitch       = 0x8
	flagPixelFormat = 0x1000
	flagMipMapCount = 0x20000
	flagLinearSize  = 0x80000
)

// Pixel format flags.
const (
	pfAlphaPixels = 0x1
	pfAlpha       = 0x2
	pfFourCC      = 0x4
	pfRGB         = 0x40
	pfYUV         = 0x200
	pfLuminance   = 0x20000
)

const capsTexture = 0x1000

// Format is the pixel layout of the top-level surface.
type Format int

const (
	FormatInvalid Format = iota
	FormatUncompressed
	FormatDXT1
	FormatDXT3
	FormatDXT5
)

func (f Format) String() string {
	switch f {
	case FormatUncompressed:
		return "uncompressed"
	case FormatDXT1:
		return "DXT1"
	case FormatDXT3:
		return "DXT3"
	case FormatDXT5:
		return "DXT5"
	}
	return "invalid"
}

// blockSize is the byte size of one 4x4 block, or 0 for uncompressed data.
func (f Format) blockSize() int {
	switch f {
	case FormatDXT1:
		return 8
	case FormatDXT3, FormatDXT5:
		return 16
	}
	return 0
}

// PixelFormat mirrors the DDS_PIXELFORMAT structure.
type PixelFormat struct {
	Flags       uint32
	FourCC      [4]byte
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

// Header is the decoded DDS_HEADER plus the DX10 extension when present.
type Header struct {
	PixelFormat PixelFormat
	Width       int
	Height      int
	Pitch       int
	MipMapCount int
	Caps        uint32
	Flags       uint32
	DXGIFormat  uint32
	Format      Format
	DX10        bool
}

// HasAlpha reports whether the surface stores an alpha channel.
func (h Header) HasAlpha() bool {
	switch h.Format {
	case FormatDXT1:
		// DXT1 may encode 1-bit transparency per block; treat it as alpha.
		return true
	case FormatDXT3, FormatDXT5:
		return true
	}
	pf := h.PixelFormat
	return pf.Flags&(pfAlphaPixels|pfAlpha) != 0 && pf.ABitMask != 0
}

// DXGI formats understood in the DX10 extension header.
const (
	dxgiR8G8B8A8UNorm     = 28
	dxgiR8G8B8A8UNormSRGB = 29
	dxgiBC1UNorm          = 71
	dxgiBC1UNormSRGB      = 72
	dxgiBC2UNorm          = 74
	dxgiBC2UNormSRGB      = 75
	dxgiBC3UNorm          = 77
	dxgiBC3UNormSRGB      = 78
	dxgiB8G8R8A8UNorm     = 87
	dxgiB8G8R8X8UNorm     = 88
)

// DecodeHeader reads the magic, the DDS_HEADER and, if announced by the
// "DX10" FourCC, the extension header. r is left at the first pixel byte.
func DecodeHeader(r io.Reader) (Header, error) {
	var buf [4 + headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, ErrNotADDSFile
		}
		return Header{}, err
	}
	if string(buf[:4]) != Magic {
		return Header{}, ErrNotADDSFile
	}
	b := buf[4:]
	le := binary.LittleEndian
	if le.Uint32(b[0:]) != headerSize || le.Uint32(b[72:]) != pixelFormatSize {
		return Header{}, ErrNotADDSFile
	}

	h := Header{
		Flags:       le.Uint32(b[4:]),
		Height:      int(le.Uint32(b[8:])),
		Width:       int(le.Uint32(b[12:])),
		Pitch:       int(le.Uint32(b[16:])),
		MipMapCount: int(le.Uint32(b[24:])),
		Caps:        le.Uint32(b[104:]),
	}
	pf := b[72:104]
	h.PixelFormat = PixelFormat{
		Flags:       le.Uint32(pf[4:]),
		RGBBitCount: le.Uint32(pf[12:]),
		RBitMask:    le.Uint32(pf[16:]),
		GBitMask:    le.Uint32(pf[20:]),
		BBitMask:    le.Uint32(pf[24:]),
		ABitMask:    le.Uint32(pf[28:]),
	}
	copy(h.PixelFormat.FourCC[:], pf[8:12])

	if h.Width <= 0 || h.Height <= 0 {
		return Header{}, ErrNotADDSFile
	}
	if uint64(h.Width)*uint64(h.Height) > maxPixels {
		return Header{}, ErrImageIsTooLarge
	}

	if h.PixelFormat.Flags&pfFourCC != 0 {
		switch string(h.PixelFormat.FourCC[:]) {
		case "DXT1":
			h.Format = FormatDXT1
		case "DXT2", "DXT3":
			h.Format = FormatDXT3
		case "DXT4", "DXT5":
			h.Format = FormatDXT5
		case "DX10":
			if err := h.readDX10(r); err != nil {
				return Header{}, err
			}
		default:
			return Header{}, fmt.Errorf("%w: FourCC %q", ErrUnsupportedFormat, h.PixelFormat.FourCC[:])
		}
		return h, nil
	}

	pfFlags := h.PixelFormat.Flags
	switch {
	case pfFlags&pfYUV != 0:
		return Header{}, fmt.Errorf("%w: YUV surfaces", ErrUnsupportedFormat)
	case pfFlags&(pfRGB|pfLuminance|pfAlpha) == 0:
		return Header{}, fmt.Errorf("%w: flags %#x", ErrUnsupportedFormat, pfFlags)
	}
	switch h.PixelFormat.RGBBitCount {
	case 8, 16, 24, 32:
	default:
		return Header{}, fmt.Errorf("%w: %d bits per pixel", ErrUnsupportedFormat, h.PixelFormat.RGBBitCount)
	}
	h.Format = FormatUncompressed
	return h, nil
}

func (h *Header) readDX10(r io.Reader) error {
	var ext [dx10HeaderSize]byte
	if _, err := io.ReadFull(r, ext[:]); err != nil {
		return ErrNotADDSFile
	}
	h.DX10 = true
	h.DXGIFormat = binary.LittleEndian.Uint32(ext[0:])
	switch h.DXGIFormat {
	case dxgiBC1UNorm, dxgiBC1UNormSRGB:
		h.Format = FormatDXT1
	case dxgiBC2UNorm, dxgiBC2UNormSRGB:
		h.Format = FormatDXT3
	case dxgiBC3UNorm, dxgiBC3UNormSRGB:
		h.Format = FormatDXT5
	case dxgiR8G8B8A8UNorm, dxgiR8G8B8A8UNormSRGB:
		h.Format = FormatUncompressed
		h.PixelFormat = PixelFormat{Flags: pfRGB | pfAlphaPixels, RGBBitCount: 32,
			RBitMask: 0x000000ff, GBitMask: 0x0000ff00, BBitMask: 0x00ff0000, ABitMask: 0xff000000}
	case dxgiB8G8R8A8UNorm:
		h.Format = FormatUncompressed
		h.PixelFormat = PixelFormat{Flags: pfRGB | pfAlphaPixels, RGBBitCount: 32,
			RBitMask: 0x00ff0000, GBitMask: 0x0000ff00, BBitMask: 0x000000ff, ABitMask: 0xff000000}
	case dxgiB8G8R8X8UNorm:
		h.Format = FormatUncompressed
		h.PixelFormat = PixelFormat{Flags: pfRGB, RGBBitCount: 32,
			RBitMask: 0x00ff0000, GBitMask: 0x0000ff00, BBitMask: 0x000000ff}
	default:
		return fmt.Errorf("%w: DXGI format %d", ErrUnsupportedFormat, h.DXGIFormat)
	}
	return nil
}

// DecodeConfig reads a DDS image configuration from r.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: h.colorModel(),
		Width:      h.Width,
		Height:     h.Height,
	}, nil
}

func (h Header) colorModel() color.Model {
	if h.HasAlpha() {
		return color.NRGBAModel
	}
	return color.RGBAModel
}
