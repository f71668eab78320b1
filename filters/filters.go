// Package filters holds the pixel adjustments applied between decoding and
// encoding. Apply runs them in a fixed order: drop alpha, resize, sharpen,
// blur, brightness, contrast, saturation.
package filters

import (
	"image"
	"image/color"

	"ddsconv/contracts"

	"github.com/disintegration/gift"
	"golang.org/x/image/draw"
)

// sharpenKernel is 2*identity minus the 3x3 smoothing kernel
// [1 1 1; 1 5 1; 1 1 1]/13, an enhancement factor of 2.0.
var sharpenKernel = []float32{
	-1.0 / 13, -1.0 / 13, -1.0 / 13,
	-1.0 / 13, 21.0 / 13, -1.0 / 13,
	-1.0 / 13, -1.0 / 13, -1.0 / 13,
}

// blurKernel is a 5x5 ring box blur, normalized by gift.
var blurKernel = []float32{
	1, 1, 1, 1, 1,
	1, 0, 0, 0, 1,
	1, 0, 0, 0, 1,
	1, 0, 0, 0, 1,
	1, 1, 1, 1, 1,
}

// Apply runs every enabled step of opts on src. src is returned unchanged
// when no step is enabled.
func Apply(src image.Image, opts contracts.ConversionOptions) (image.Image, error) {
	if src.Bounds().Empty() {
		return nil, contracts.New(contracts.KindTransform, "apply filters", "image is empty")
	}
	m := src
	if !opts.KeepAlpha {
		m = DropAlpha(m)
	}
	if opts.ResizeEnabled() {
		m = Resize(m, opts.Resize.Width, opts.Resize.Height)
	}
	if opts.Sharpen {
		m = Sharpen(m)
	}
	if opts.Blur {
		m = Blur(m)
	}
	if opts.Brightness != 0 {
		m = Brightness(m, opts.Brightness)
	}
	if opts.Contrast != 0 {
		m = Contrast(m, opts.Contrast)
	}
	if opts.Saturation != 100 {
		m = Saturation(m, opts.Saturation)
	}
	return m, nil
}

// HasAlpha reports whether any pixel of m is not fully opaque.
func HasAlpha(m image.Image) bool {
	if o, ok := m.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := m.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// ModelHasAlpha reports whether images of model carry an alpha channel,
// whatever their pixels hold.
func ModelHasAlpha(model color.Model) bool {
	if p, ok := model.(color.Palette); ok {
		for _, c := range p {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	}
	return model == color.NRGBAModel || model == color.NRGBA64Model
}

// DropAlpha discards the alpha channel, keeping the straight (not
// premultiplied) color of every pixel.
func DropAlpha(m image.Image) image.Image {
	if !HasAlpha(m) {
		return m
	}
	b := m.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if n, ok := m.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			s := n.Pix[n.PixOffset(b.Min.X, b.Min.Y+y):]
			d := dst.Pix[y*dst.Stride:]
			for x := 0; x < b.Dx(); x++ {
				d[4*x+0], d[4*x+1], d[4*x+2], d[4*x+3] = s[4*x+0], s[4*x+1], s[4*x+2], 0xff
			}
		}
		return dst
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{c.R, c.G, c.B, 0xff})
		}
	}
	return dst
}

// Resize resamples m to exactly width x height with a Catmull-Rom kernel,
// which widens to cover the source area when downscaling. The aspect ratio
// is not preserved. The result is non-premultiplied so translucent pixels
// keep their color.
func Resize(m image.Image, width, height int) image.Image {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), m, m.Bounds(), draw.Src, nil)
	return dst
}

func Sharpen(m image.Image) image.Image {
	return apply(m, gift.Convolution(sharpenKernel, false, false, false, 0))
}

// Blur convolves every channel, alpha included, with blurKernel.
func Blur(m image.Image) image.Image {
	return apply(m, gift.Convolution(blurKernel, true, true, false, 0))
}

// Brightness scales every color channel by 1 + value/100.
func Brightness(m image.Image, value int) image.Image {
	f := 1 + float32(value)/100
	return apply(m, gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		return clamp(r * f), clamp(g * f), clamp(b * f), a
	}))
}

// Contrast scales the distance of every channel from the mean luminance of
// m by 1 + value/100.
func Contrast(m image.Image, value int) image.Image {
	f := 1 + float32(value)/100
	mean := meanLuma(m)
	return apply(m, gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		return clamp(mean + (r-mean)*f), clamp(mean + (g-mean)*f), clamp(mean + (b-mean)*f), a
	}))
}

// Saturation blends every pixel with its own luma by value/100: 0 is
// grayscale, 100 is the identity, 200 doubles the chroma.
func Saturation(m image.Image, value int) image.Image {
	f := float32(value) / 100
	return apply(m, gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		l := luma(r, g, b)
		return clamp(l + (r-l)*f), clamp(l + (g-l)*f), clamp(l + (b-l)*f), a
	}))
}

func apply(m image.Image, filters ...gift.Filter) image.Image {
	g := gift.New(filters...)
	dst := image.NewNRGBA(g.Bounds(m.Bounds()))
	g.Draw(dst, m)
	return dst
}

func luma(r, g, b float32) float32 {
	return 0.299*r + 0.587*g + 0.114*b
}

// meanLuma is the average luma of m in [0, 1].
func meanLuma(m image.Image) float32 {
	b := m.Bounds()
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			sum += float64(luma(float32(c.R), float32(c.G), float32(c.B)))
		}
	}
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return 0
	}
	return float32(sum/n) / 255
}

func clamp(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
