package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/go-pdf/fpdf"
)

// A4 portrait geometry in millimetres. Each page carries pageStepMM of
// content; the remainder of the sheet stays blank.
const (
	pageWidthMM  = 210.0
	pageHeightMM = 297.0
	pageStepMM   = 295.0
)

// pageOffsets returns the vertical offset, in millimetres, at which each page
// starts reading the content. A page is added for every step while content
// remains, so content that ends exactly on a boundary gets a trailing blank
// page.
func pageOffsets(contentMM, stepMM float64) []float64 {
	offsets := []float64{0}
	remaining := contentMM - stepMM
	for remaining >= 0 {
		offsets = append(offsets, contentMM-remaining)
		remaining -= stepMM
	}
	return offsets
}

// assemblePDF slices the raster into A4 pages scaled to the full page width.
func assemblePDF(raster image.Image, title string) ([]byte, int, error) {
	bounds := raster.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, 0, fmt.Errorf("empty raster")
	}
	pxPerMM := float64(bounds.Dx()) / pageWidthMM
	contentMM := float64(bounds.Dy()) / pxPerMM

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(title, true)
	pdf.SetCreator("jobfolio", true)

	for i, offset := range pageOffsets(contentMM, pageStepMM) {
		pdf.AddPage()

		top := bounds.Min.Y + int(offset*pxPerMM)
		bottom := top + int(pageStepMM*pxPerMM)
		if bottom > bounds.Max.Y {
			bottom = bounds.Max.Y
		}
		if top >= bottom {
			continue
		}

		slice, err := encodeSlice(raster, image.Rect(bounds.Min.X, top, bounds.Max.X, bottom))
		if err != nil {
			return nil, 0, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("page-%d", i+1)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(slice))
		heightMM := float64(bottom-top) / pxPerMM
		pdf.ImageOptions(name, 0, 0, pageWidthMM, heightMM, false, opts, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, 0, fmt.Errorf("write pdf: %w", err)
	}
	return out.Bytes(), pdf.PageCount(), nil
}

// encodeSlice copies rect onto a white background and encodes it as PNG.
func encodeSlice(src image.Image, rect image.Rectangle) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
