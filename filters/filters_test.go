package filters

import (
	"image"
	"image/color"
	"testing"

	"ddsconv/contracts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(width, height int, c color.NRGBA) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.SetNRGBA(x, y, c)
		}
	}
	return m
}

func at(m image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
}

func TestApplyDefaultsIsIdentity(t *testing.T) {
	src := filled(4, 4, color.NRGBA{10, 20, 30, 40})
	got, err := Apply(src, contracts.DefaultOptions())
	require.NoError(t, err)
	assert.Same(t, src, got)
}

func TestApplyEmpty(t *testing.T) {
	_, err := Apply(image.NewNRGBA(image.Rect(0, 0, 0, 0)), contracts.DefaultOptions())
	assert.True(t, contracts.IsKind(err, contracts.KindTransform))
}

func TestDropAlpha(t *testing.T) {
	src := filled(3, 2, color.NRGBA{10, 20, 30, 40})
	opts := contracts.DefaultOptions()
	opts.KeepAlpha = false

	got, err := Apply(src, opts)
	require.NoError(t, err)
	assert.False(t, HasAlpha(got))
	assert.Equal(t, color.NRGBA{10, 20, 30, 0xff}, at(got, 2, 1))

	opaque := filled(2, 2, color.NRGBA{1, 2, 3, 0xff})
	assert.Same(t, opaque, DropAlpha(opaque))
}

func TestDropAlphaGeneric(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.SetRGBA(0, 0, color.RGBA{50, 25, 0, 128})
	got := DropAlpha(src)
	c := at(got, 0, 0)
	assert.Equal(t, uint8(0xff), c.A)
	assert.InDelta(t, 100, int(c.R), 1)
}

func TestResize(t *testing.T) {
	src := filled(10, 10, color.NRGBA{100, 150, 200, 0xff})
	opts := contracts.DefaultOptions()
	opts.Resize = &contracts.Size{Width: 4, Height: 7}

	got, err := Apply(src, opts)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 7), got.Bounds())
	c := at(got, 2, 3)
	assert.InDelta(t, 100, int(c.R), 1)
	assert.InDelta(t, 150, int(c.G), 1)
	assert.InDelta(t, 200, int(c.B), 1)
	assert.False(t, HasAlpha(got))

	opts.Resize = &contracts.Size{Width: 0, Height: 7}
	got, err = Apply(src, opts)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), got.Bounds())
}

func TestBrightness(t *testing.T) {
	src := filled(2, 2, color.NRGBA{50, 100, 0, 0xff})
	assert.Equal(t, color.NRGBA{100, 200, 0, 0xff}, at(Brightness(src, 100), 1, 1))
	assert.Equal(t, color.NRGBA{0, 0, 0, 0xff}, at(Brightness(src, -100), 0, 0))
	assert.Equal(t, color.NRGBA{75, 150, 0, 0xff}, at(Brightness(src, 50), 0, 1))
}

func TestContrast(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{0, 0, 0, 0xff})
	src.SetNRGBA(1, 0, color.NRGBA{200, 200, 200, 0xff})

	flat := Contrast(src, -100)
	for x := 0; x < 2; x++ {
		c := at(flat, x, 0)
		assert.InDelta(t, 100, int(c.R), 1)
		assert.Equal(t, c.R, c.G)
	}

	steep := Contrast(src, 50)
	assert.Equal(t, uint8(0), at(steep, 0, 0).R)
	assert.InDelta(t, 250, int(at(steep, 1, 0).R), 1)
}

func TestSaturation(t *testing.T) {
	src := filled(2, 2, color.NRGBA{200, 50, 10, 0x80})

	opts := contracts.DefaultOptions()
	got, err := Apply(src, opts)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, got.(*image.NRGBA).Pix)

	gray := at(Saturation(src, 0), 1, 1)
	assert.Equal(t, gray.R, gray.G)
	assert.Equal(t, gray.G, gray.B)
	assert.InDelta(t, 90, int(gray.R), 1)
	assert.Equal(t, uint8(0x80), gray.A)
}

func TestBlurAndSharpenKeepFlatAreas(t *testing.T) {
	src := filled(8, 8, color.NRGBA{120, 60, 30, 0xff})
	assert.Equal(t, color.NRGBA{120, 60, 30, 0xff}, at(Blur(src), 4, 4))
	assert.Equal(t, color.NRGBA{120, 60, 30, 0xff}, at(Sharpen(src), 0, 0))
}

func TestSharpenEdges(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 8; x++ {
			v := uint8(50)
			if x >= 4 {
				v = 200
			}
			src.SetNRGBA(x, y, color.NRGBA{v, v, v, 0xff})
		}
	}
	got := Sharpen(src)
	assert.Less(t, at(got, 3, 2).R, uint8(50))
	assert.Greater(t, at(got, 4, 2).R, uint8(200))

	blurred := Blur(src)
	assert.Greater(t, at(blurred, 3, 2).R, uint8(50))
	assert.Less(t, at(blurred, 4, 2).R, uint8(200))
}

func TestApplyOrder(t *testing.T) {
	src := filled(6, 6, color.NRGBA{40, 80, 120, 0x40})
	opts := contracts.ConversionOptions{
		Resize:     &contracts.Size{Width: 3, Height: 2},
		Brightness: 100,
		Saturation: 0,
		KeepAlpha:  false,
		Sharpen:    true,
		Blur:       true,
	}
	got, err := Apply(src, opts)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), got.Bounds())
	c := at(got, 1, 1)
	assert.Equal(t, uint8(0xff), c.A)
	assert.Equal(t, c.R, c.G)
	assert.Equal(t, c.G, c.B)
}

func TestResizeKeepsTranslucentColor(t *testing.T) {
	src := filled(8, 8, color.NRGBA{200, 100, 50, 1})
	got := Resize(src, 4, 4)
	require.IsType(t, &image.NRGBA{}, got)
	c := at(got, 1, 2)
	assert.InDelta(t, 200, int(c.R), 2)
	assert.InDelta(t, 100, int(c.G), 2)
	assert.InDelta(t, 50, int(c.B), 2)
	assert.InDelta(t, 1, int(c.A), 1)
}

func TestBlurSpreadsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 8; x++ {
			a := uint8(0)
			if x >= 4 {
				a = 0xff
			}
			src.SetNRGBA(x, y, color.NRGBA{90, 90, 90, a})
		}
	}
	got := Blur(src)
	assert.Greater(t, at(got, 3, 2).A, uint8(0))
	assert.Less(t, at(got, 4, 2).A, uint8(0xff))
}

func TestSharpenFactor(t *testing.T) {
	// 2*113 - (5*113 + 8*100)/13 = 121 at the impulse,
	// (21*100 - 7*100 - 113)/13 = 99 next to it.
	src := filled(5, 5, color.NRGBA{100, 100, 100, 0xff})
	src.SetNRGBA(2, 2, color.NRGBA{113, 113, 113, 0xff})

	got := Sharpen(src)
	assert.Equal(t, color.NRGBA{121, 121, 121, 0xff}, at(got, 2, 2))
	assert.Equal(t, color.NRGBA{99, 99, 99, 0xff}, at(got, 1, 2))
	assert.Equal(t, color.NRGBA{99, 99, 99, 0xff}, at(got, 3, 3))
	assert.Equal(t, color.NRGBA{100, 100, 100, 0xff}, at(got, 0, 0))
}
