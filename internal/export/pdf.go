/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/jung-kurt/gofpdf"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"pageboard/internal/vector"
)

// pxToPt converts CSS px (1/96 in) to PDF points (1/72 in).
const pxToPt = 0.75

// Color is an 8-bit RGB triple.
type Color struct{ R, G, B uint8 }

// PDFOptions controls LayoutPDF.
//
// Coordinates:
// - Page origin is top-left, as in the editor.
// - Item boxes are transformed about their centre like the CSS transform.
type PDFOptions struct {
	Title         string
	IncludeLabels bool
	// IncludeOutlines draws the transformed item polygon even for embedded images.
	IncludeOutlines bool
	OutlineColor    Color
	LabelSize       float64
}

// LayoutPDF writes one PDF page per canvas with every item drawn at its
// transform. Images are embedded when Item.ImagePath is set.
func LayoutPDF(w io.Writer, pages []Page, items []Item, opt PDFOptions) error {
	if len(pages) == 0 {
		return errors.New("no pages to export")
	}
	if opt.LabelSize <= 0 {
		opt.LabelSize = 8
	}
	if opt.OutlineColor == (Color{}) {
		opt.OutlineColor = Color{R: 90, G: 90, B: 90}
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pages[0].Width * pxToPt, Ht: pages[0].Height * pxToPt},
	})
	pdf.SetTitle(cmpOrTitle(opt.Title), true)
	pdf.SetCreator("pageboard", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", opt.LabelSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	registered := map[string]string{}

	for i, pg := range byPage(len(pages), items) {
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: pages[i].Width * pxToPt, Ht: pages[i].Height * pxToPt})
		for _, it := range pg {
			drawn := false
			if it.ImagePath != "" {
				name, err := registerImage(pdf, registered, it.ImagePath)
				if err == nil {
					drawImage(pdf, name, it)
					drawn = true
				}
			}
			if !drawn || opt.IncludeOutlines {
				drawOutline(pdf, it, opt.OutlineColor)
			}
			if opt.IncludeLabels && it.Label != "" {
				poly := it.Polygon()
				b := vector.Bounds(poly[:])
				pdf.SetAlpha(1, "Normal")
				pdf.SetTextColor(0, 0, 0)
				pdf.Text(b.X*pxToPt, (b.Y+b.H)*pxToPt+opt.LabelSize, tr(it.Label))
			}
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// LayoutPDFFile is LayoutPDF into a file at path.
func LayoutPDFFile(path string, pages []Page, items []Item, opt PDFOptions) error {
	var buf bytes.Buffer
	if err := LayoutPDF(&buf, pages, items, opt); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func cmpOrTitle(t string) string {
	if strings.TrimSpace(t) == "" {
		return "pageboard layout"
	}
	return t
}

func drawOutline(pdf *gofpdf.Fpdf, it Item, c Color) {
	poly := it.Polygon()
	pts := make([]gofpdf.PointType, 0, len(poly))
	for _, p := range poly {
		pts = append(pts, gofpdf.PointType{X: p.X * pxToPt, Y: p.Y * pxToPt})
	}
	pdf.SetAlpha(it.Record.EffectiveOpacity(), "Normal")
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
	pdf.SetLineWidth(0.75)
	pdf.Polygon(pts, "D")
}

// drawImage places the image in the item's box, rotated and scaled about
// the box centre. gofpdf rotates counter-clockwise; CSS rotates clockwise.
func drawImage(pdf *gofpdf.Fpdf, name string, it Item) {
	box := it.Box()
	s := it.Record.EffectiveScale()
	c := box.Center()
	w, h := box.W*s, box.H*s
	pdf.SetAlpha(it.Record.EffectiveOpacity(), "Normal")
	pdf.TransformBegin()
	if it.Record.Rotation != 0 {
		pdf.TransformRotate(-float64(it.Record.Rotation), c.X*pxToPt, c.Y*pxToPt)
	}
	pdf.ImageOptions(name, (c.X-w/2)*pxToPt, (c.Y-h/2)*pxToPt, w*pxToPt, h*pxToPt, false,
		gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.TransformEnd()
}

// registerImage decodes path with any registered decoder and registers it
// as PNG under a stable name, once per document.
func registerImage(pdf *gofpdf.Fpdf, seen map[string]string, path string) (string, error) {
	if name, ok := seen[path]; ok {
		return name, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	name := fmt.Sprintf("img%d", len(seen))
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	if err := pdf.Error(); err != nil {
		return "", err
	}
	seen[path] = name
	return name, nil
}
