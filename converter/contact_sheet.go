package converter

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"ddsconv/contracts"
	"ddsconv/files_manager"
	"ddsconv/utils"

	"github.com/phpdave11/gofpdf"
	"golang.org/x/image/draw"
)

// defaultDPI sizes pages of PNG files without a pHYs chunk.
const defaultDPI = 96.0

type sheetPage struct {
	imageId    string
	imgBuffer  *bytes.Buffer
	drawWidth  float64
	drawHeight float64
}

// WriteContactSheet writes a PDF with one page per PNG file, each page
// exactly the size of its image.
func WriteContactSheet(pngPaths []string, pdfPath string) error {
	if len(pngPaths) == 0 {
		return contracts.New(contracts.KindValidation, "contact sheet", "no images to place")
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "mm"})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	options := gofpdf.ImageOptions{
		ImageType: "PNG",
		ReadDpi:   false,
	}

	for i, pngPath := range pngPaths {
		page, err := loadSheetPage(i, pngPath)
		if err != nil {
			return err
		}

		orientation := "P"
		pdf.AddPageFormat(orientation, gofpdf.SizeType{Wd: page.drawWidth, Ht: page.drawHeight})
		pdf.RegisterImageOptionsReader(page.imageId, options, page.imgBuffer)
		pdf.ImageOptions(page.imageId, 0, 0, page.drawWidth, page.drawHeight, false, options, 0, "")

		if err := pdf.Error(); err != nil {
			return contracts.WrapPath(contracts.KindEncode, "contact sheet", pngPath, err)
		}
	}

	return files_manager.WriteFileAtomic(pdfPath, func(w io.Writer) error {
		if err := pdf.Output(w); err != nil {
			return contracts.WrapPath(contracts.KindEncode, "contact sheet", pdfPath, err)
		}
		return nil
	})
}

// loadSheetPage re-encodes a PNG as 8-bit non-interlaced data, the only
// layout gofpdf accepts.
func loadSheetPage(index int, pngPath string) (sheetPage, error) {
	data, err := os.ReadFile(pngPath)
	if err != nil {
		return sheetPage{}, contracts.WrapPath(contracts.KindIO, "contact sheet", pngPath, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return sheetPage{}, contracts.WrapPath(contracts.KindDecode, "contact sheet", pngPath, err)
	}

	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)

	buf := new(bytes.Buffer)
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(buf, nrgba); err != nil {
		return sheetPage{}, contracts.WrapPath(contracts.KindEncode, "contact sheet", pngPath, err)
	}

	dpi, ok := utils.GetDPIfromPNG(data)
	if !ok || dpi <= 0 {
		dpi = defaultDPI
	}
	mmPerPixel := 25.4 / dpi

	return sheetPage{
		imageId:    fmt.Sprintf("page%d", index),
		imgBuffer:  buf,
		drawWidth:  float64(b.Dx()) * mmPerPixel,
		drawHeight: float64(b.Dy()) * mmPerPixel,
	}, nil
}
