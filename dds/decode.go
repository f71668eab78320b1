package dds

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"math/bits"
)

// Decode reads the top-level surface of a DDS image from r. Surfaces with
// alpha decode to *image.NRGBA, opaque ones to *image.RGBA.
func Decode(r io.Reader) (image.Image, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	// The pixel payload is read before the image is allocated, so a header
	// claiming a huge surface over a short file fails without the allocation.
	size := h.surfaceSize()
	if size <= 0 {
		return nil, ErrUnsupportedFormat
	}
	payload, err := io.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) < size {
		return nil, fmt.Errorf("dds: surface needs %d bytes, got %d: %w", size, len(payload), io.ErrUnexpectedEOF)
	}
	r = bytes.NewReader(payload)

	rect := image.Rect(0, 0, h.Width, h.Height)
	var pix []byte
	var stride int
	var m image.Image
	if h.HasAlpha() {
		dst := image.NewNRGBA(rect)
		pix, stride, m = dst.Pix, dst.Stride, dst
	} else {
		dst := image.NewRGBA(rect)
		pix, stride, m = dst.Pix, dst.Stride, dst
	}

	switch h.Format {
	case FormatUncompressed:
		err = decodeUncompressed(pix, stride, r, h)
	case FormatDXT1, FormatDXT3, FormatDXT5:
		err = decodeBlocks(pix, stride, r, h)
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// surfaceSize is the byte size of the top-level surface as Decode reads it.
func (h Header) surfaceSize() int64 {
	if bs := h.Format.blockSize(); bs > 0 {
		return int64((h.Width+3)/4) * int64((h.Height+3)/4) * int64(bs)
	}
	return int64(h.Width) * int64(h.PixelFormat.RGBBitCount/8) * int64(h.Height)
}

// channel extracts one bitmask channel and widens it to 8 bits.
type channel struct {
	mask  uint32
	shift int
	max   uint32
}

func newChannel(mask uint32) channel {
	if mask == 0 {
		return channel{}
	}
	shift := bits.TrailingZeros32(mask)
	width := bits.OnesCount32(mask >> shift)
	return channel{mask: mask, shift: shift, max: (1 << width) - 1}
}

func (c channel) value(p uint32, fallback uint8) uint8 {
	if c.mask == 0 {
		return fallback
	}
	v := (p & c.mask) >> c.shift
	if c.max == 0xff {
		return uint8(v)
	}
	return uint8((v*0xff + c.max/2) / c.max)
}

func decodeUncompressed(pix []byte, stride int, r io.Reader, h Header) error {
	pf := h.PixelFormat
	bpp := int(pf.RGBBitCount / 8)
	rowBytes := h.Width * bpp
	row := make([]byte, rowBytes)

	red, green, blue := newChannel(pf.RBitMask), newChannel(pf.GBitMask), newChannel(pf.BBitMask)
	alpha := channel{}
	if h.HasAlpha() {
		alpha = newChannel(pf.ABitMask)
	}
	luminance := pf.Flags&pfLuminance != 0
	alphaOnly := pf.Flags&(pfRGB|pfLuminance) == 0

	for y := 0; y < h.Height; y++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return fmt.Errorf("dds: reading row %d: %w", y, err)
		}
		d := pix[y*stride:]
		for x := 0; x < h.Width; x++ {
			var p uint32
			for i := bpp - 1; i >= 0; i-- {
				p = p<<8 | uint32(row[x*bpp+i])
			}
			o := 4 * x
			switch {
			case alphaOnly:
				d[o+0], d[o+1], d[o+2] = 0, 0, 0
			case luminance:
				l := red.value(p, 0)
				d[o+0], d[o+1], d[o+2] = l, l, l
			default:
				d[o+0] = red.value(p, 0)
				d[o+1] = green.value(p, 0)
				d[o+2] = blue.value(p, 0)
			}
			d[o+3] = alpha.value(p, 0xff)
		}
	}
	return nil
}
