// CLAUDE:SUMMARY Placeholder PNGs (basicfont text on grey) and the top-band crop fed to OCR for front-page identification.
package images

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/hazyhaar/sintesis/internal/sections"
)

const (
	placeholderW = 600
	placeholderH = 800
	ocrMinWidth  = 1600 // tesseract reads small mastheads poorly below this
)

// placeholder turns img into a placeholder record and writes its PNG. A
// write failure still leaves the record: every page gets an Image.
func (a *Associator) placeholder(img *Image, sec sections.Section, date string, res *SectionResult) {
	img.Placeholder = true
	img.Filename = fmt.Sprintf("placeholder-%s-p%03d.png", sec.ID, img.PageNumber)
	img.Path = filepath.Join(a.DateDir(date), img.Filename)
	img.Title = fmt.Sprintf("%s (imagen no disponible, página %d)", img.Title, img.PageNumber)
	res.Placeholders++

	lines := []string{
		"IMAGEN NO DISPONIBLE",
		"",
		fmt.Sprintf("%s-p%03d.png", sec.ID, img.PageNumber),
		fmt.Sprintf("pagina %d", img.PageNumber),
		date,
	}
	if err := writePlaceholder(img.Path, lines); err != nil {
		res.Diags = append(res.Diags, Diagnostic{
			Kind: DiagTool, SectionID: sec.ID, Page: img.PageNumber,
			Message: fmt.Sprintf("write placeholder: %v", err),
		})
		a.logger.Warn("images: placeholder write failed", "path", img.Path, "error", err)
	}
}

// writePlaceholder renders lines centred on a light grey page.
func writePlaceholder(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	rgba := image.NewRGBA(image.Rect(0, 0, placeholderW, placeholderH))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.RGBA{0xe6, 0xe6, 0xe6, 0xff}), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: rgba, Src: image.NewUniform(color.RGBA{0x44, 0x44, 0x44, 0xff}), Face: face}
	lineH := face.Metrics().Height.Ceil() + 6
	y := placeholderH/2 - len(lines)*lineH/2
	for _, l := range lines {
		w := d.MeasureString(l).Ceil()
		d.Dot = fixed.P((placeholderW-w)/2, y)
		d.DrawString(l)
		y += lineH
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, rgba); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ocrTop crops the top band of the PNG at path, upscales narrow crops and
// runs OCR on the result.
func (a *Associator) ocrTop(ctx context.Context, path string) (string, error) {
	crop, err := cropTop(path, a.cfg.TopFraction)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ocr-*.png")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if err := png.Encode(tmp, crop); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return a.ocr.Recognize(ctx, tmp.Name())
}

func cropTop(path string, fraction float64) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	b := src.Bounds()
	h := int(float64(b.Dy()) * fraction)
	if h < 1 {
		h = 1
	}
	band := image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+h)

	scale := 1
	if b.Dx() > 0 && b.Dx() < ocrMinWidth {
		scale = (ocrMinWidth + b.Dx() - 1) / b.Dx()
	}
	dst := image.NewGray(image.Rect(0, 0, band.Dx()*scale, band.Dy()*scale))
	if scale == 1 {
		draw.Copy(dst, image.Point{}, src, band, draw.Src, nil)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, band, draw.Src, nil)
	}
	return dst, nil
}
