package dds

import (
	"encoding/binary"
	"fmt"
	"io"
)

// decodeBlocks decodes 4x4 BC1/BC2/BC3 blocks row by row. Blocks hanging over
// the right or bottom edge are clipped.
func decodeBlocks(pix []byte, stride int, r io.Reader, h Header) error {
	bw, bh := (h.Width+3)/4, (h.Height+3)/4
	size := h.Format.blockSize()
	row := make([]byte, bw*size)
	var texels [16][4]uint8

	for by := 0; by < bh; by++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return fmt.Errorf("dds: reading block row %d: %w", by, err)
		}
		for bx := 0; bx < bw; bx++ {
			block := row[bx*size : (bx+1)*size]
			switch h.Format {
			case FormatDXT1:
				decodeColorBlock(&texels, block, true)
			case FormatDXT3:
				decodeColorBlock(&texels, block[8:], false)
				decodeExplicitAlpha(&texels, block[:8])
			case FormatDXT5:
				decodeColorBlock(&texels, block[8:], false)
				decodeInterpolatedAlpha(&texels, block[:8])
			}
			for i, t := range texels {
				x, y := bx*4+i%4, by*4+i/4
				if x >= h.Width || y >= h.Height {
					continue
				}
				o := y*stride + 4*x
				copy(pix[o:o+4], t[:])
			}
		}
	}
	return nil
}

func unpack565(c uint16) [3]uint32 {
	r := uint32(c>>11) & 0x1f
	g := uint32(c>>5) & 0x3f
	b := uint32(c) & 0x1f
	return [3]uint32{(r << 3) | (r >> 2), (g << 2) | (g >> 4), (b << 3) | (b >> 2)}
}

// decodeColorBlock fills the RGB (and, for DXT1 three-color blocks, the
// alpha) of 16 texels from an 8 byte color block.
func decodeColorBlock(texels *[16][4]uint8, block []byte, dxt1 bool) {
	c0 := binary.LittleEndian.Uint16(block[0:])
	c1 := binary.LittleEndian.Uint16(block[2:])
	p0, p1 := unpack565(c0), unpack565(c1)

	var palette [4][4]uint8
	for i := 0; i < 3; i++ {
		palette[0][i] = uint8(p0[i])
		palette[1][i] = uint8(p1[i])
	}
	palette[0][3], palette[1][3] = 0xff, 0xff

	if c0 > c1 || !dxt1 {
		for i := 0; i < 3; i++ {
			palette[2][i] = uint8((2*p0[i] + p1[i] + 1) / 3)
			palette[3][i] = uint8((p0[i] + 2*p1[i] + 1) / 3)
		}
		palette[2][3], palette[3][3] = 0xff, 0xff
	} else {
		for i := 0; i < 3; i++ {
			palette[2][i] = uint8((p0[i] + p1[i]) / 2)
		}
		palette[2][3] = 0xff
		// palette[3] stays transparent black.
	}

	indices := binary.LittleEndian.Uint32(block[4:])
	for i := 0; i < 16; i++ {
		texels[i] = palette[(indices>>(2*i))&3]
	}
}

// decodeExplicitAlpha applies DXT3's 4-bit per texel alpha.
func decodeExplicitAlpha(texels *[16][4]uint8, block []byte) {
	a := binary.LittleEndian.Uint64(block)
	for i := 0; i < 16; i++ {
		v := uint8(a>>(4*i)) & 0x0f
		texels[i][3] = v<<4 | v
	}
}

// decodeInterpolatedAlpha applies DXT5's two endpoints and 3-bit indices.
func decodeInterpolatedAlpha(texels *[16][4]uint8, block []byte) {
	a0, a1 := uint32(block[0]), uint32(block[1])
	var palette [8]uint8
	palette[0], palette[1] = uint8(a0), uint8(a1)
	if a0 > a1 {
		for i := uint32(1); i < 7; i++ {
			palette[i+1] = uint8(((7-i)*a0 + i*a1 + 3) / 7)
		}
	} else {
		for i := uint32(1); i < 5; i++ {
			palette[i+1] = uint8(((5-i)*a0 + i*a1 + 2) / 5)
		}
		palette[6], palette[7] = 0x00, 0xff
	}

	var bits uint64
	for i := 5; i >= 0; i-- {
		bits = bits<<8 | uint64(block[2+i])
	}
	for i := 0; i < 16; i++ {
		texels[i][3] = palette[(bits>>(3*i))&7]
	}
}
