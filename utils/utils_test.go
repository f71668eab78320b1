package utils

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"ddsconv/dds"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

func encodePNG(t *testing.T, m image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// insertChunk places a chunk right after IHDR, which always ends at byte 33.
func insertChunk(data []byte, chunkType string, payload []byte) []byte {
	var chunk bytes.Buffer
	binary.Write(&chunk, binary.BigEndian, uint32(len(payload)))
	chunk.WriteString(chunkType)
	chunk.Write(payload)
	crc := crc32.ChecksumIEEE(append([]byte(chunkType), payload...))
	binary.Write(&chunk, binary.BigEndian, crc)

	out := append([]byte{}, data[:33]...)
	out = append(out, chunk.Bytes()...)
	return append(out, data[33:]...)
}

func physPayload(pxPerMeter uint32, unit byte) []byte {
	p := make([]byte, 9)
	binary.BigEndian.PutUint32(p[0:], pxPerMeter)
	binary.BigEndian.PutUint32(p[4:], pxPerMeter)
	p[8] = unit
	return p
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGetDPIfromPNG(t *testing.T) {
	plain := encodePNG(t, image.NewGray(image.Rect(0, 0, 2, 2)))

	t.Run("missing", func(t *testing.T) {
		if _, ok := GetDPIfromPNG(plain); ok {
			t.Fatal("expected no DPI")
		}
	})

	t.Run("meters", func(t *testing.T) {
		data := insertChunk(plain, "pHYs", physPayload(3780, 1))
		dpi, ok := GetDPIfromPNG(data)
		if !ok {
			t.Fatal("expected DPI")
		}
		if dpi < 95.9 || dpi > 96.1 {
			t.Fatalf("dpi = %v, want ~96", dpi)
		}
	})

	t.Run("unknown unit", func(t *testing.T) {
		data := insertChunk(plain, "pHYs", physPayload(3780, 0))
		if _, ok := GetDPIfromPNG(data); ok {
			t.Fatal("expected no DPI for unit 0")
		}
	})

	t.Run("not a png", func(t *testing.T) {
		if _, ok := GetDPIfromPNG([]byte("DDS garbage")); ok {
			t.Fatal("expected no DPI")
		}
	})
}

func buildExif(t *testing.T, resolution uint32, unit uint16) []byte {
	t.Helper()
	im := exifcommon.NewIfdMapping()
	if err := exifcommon.LoadStandardIfds(im); err != nil {
		t.Fatal(err)
	}
	ti := exif.NewTagIndex()
	ib := exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, binary.BigEndian)
	rat := []exifcommon.Rational{{Numerator: resolution, Denominator: 1}}
	if err := ib.AddStandardWithName("XResolution", rat); err != nil {
		t.Fatal(err)
	}
	if err := ib.AddStandardWithName("YResolution", rat); err != nil {
		t.Fatal(err)
	}
	if err := ib.AddStandardWithName("ResolutionUnit", []uint16{unit}); err != nil {
		t.Fatal(err)
	}
	data, err := exif.NewIfdByteEncoder().EncodeToExif(ib)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestGetEXIFDPI(t *testing.T) {
	x, y, err := GetEXIFDPI(buildExif(t, 300, 2))
	if err != nil {
		t.Fatal(err)
	}
	if x != 300 || y != 300 {
		t.Fatalf("dpi = %vx%v, want 300x300", x, y)
	}

	x, _, err = GetEXIFDPI(buildExif(t, 100, 3))
	if err != nil {
		t.Fatal(err)
	}
	if x < 253.9 || x > 254.1 {
		t.Fatalf("dpi = %v, want 254", x)
	}

	if _, _, err := GetEXIFDPI([]byte("no exif here")); err == nil {
		t.Fatal("expected error")
	}
}

func TestInspect(t *testing.T) {
	t.Run("dds", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 6, 3))
		src.SetNRGBA(1, 1, color.NRGBA{1, 2, 3, 4})
		var buf bytes.Buffer
		if err := dds.Encode(&buf, src, nil); err != nil {
			t.Fatal(err)
		}
		info, err := Inspect(writeTemp(t, "a.dds", buf.Bytes()))
		if err != nil {
			t.Fatal(err)
		}
		if info.Format != "dds" || info.Width != 6 || info.Height != 3 || !info.HasAlpha || info.MipMaps != 1 {
			t.Fatalf("unexpected info: %+v", info)
		}
		if info.DDSFormat != dds.FormatUncompressed.String() {
			t.Fatalf("DDSFormat = %q", info.DDSFormat)
		}
	})

	t.Run("png with pHYs and eXIf", func(t *testing.T) {
		data := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 5, 4)))
		data = insertChunk(data, "pHYs", physPayload(3780, 1))
		data = insertChunk(data, "eXIf", buildExif(t, 300, 2))
		info, err := Inspect(writeTemp(t, "b.png", data))
		if err != nil {
			t.Fatal(err)
		}
		if info.Format != "png" || info.Width != 5 || info.Height != 4 {
			t.Fatalf("unexpected info: %+v", info)
		}
		if info.DPIX != 300 || info.DPIY != 300 {
			t.Fatalf("dpi = %vx%v, want EXIF 300", info.DPIX, info.DPIY)
		}
	})

	t.Run("png alpha", func(t *testing.T) {
		m := image.NewNRGBA(image.Rect(0, 0, 2, 2))
		m.SetNRGBA(0, 0, color.NRGBA{A: 10})
		info, err := Inspect(writeTemp(t, "c.png", encodePNG(t, m)))
		if err != nil {
			t.Fatal(err)
		}
		if !info.HasAlpha || info.DPIX != 0 {
			t.Fatalf("unexpected info: %+v", info)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := Inspect(writeTemp(t, "d.dds", []byte("nope"))); err == nil {
			t.Fatal("expected error")
		}
	})
}
