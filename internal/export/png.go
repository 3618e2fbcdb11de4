/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"pageboard/internal/vector"
)

// PNGOptions controls LayoutPNG.
// - Scale: output pixels per CSS px, default 0.25
// - Page: index of the page to render
type PNGOptions struct {
	Scale        float64
	Page         int
	OutlineColor Color
}

// LayoutPNG renders one page as a PNG thumbnail. Images are resampled
// through the item transform; other items are drawn as outlines.
func LayoutPNG(w io.Writer, pages []Page, items []Item, opt PNGOptions) error {
	if opt.Page < 0 || opt.Page >= len(pages) {
		return fmt.Errorf("page %d out of range", opt.Page)
	}
	k := opt.Scale
	if k <= 0 {
		k = 0.25
	}
	oc := opt.OutlineColor
	if oc == (Color{}) {
		oc = Color{R: 90, G: 90, B: 90}
	}
	pg := pages[opt.Page]
	pixW := max(1, int(math.Round(pg.Width*k)))
	pixH := max(1, int(math.Round(pg.Height*k)))

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)
	strokeRect(img, 0, 0, pixW-1, pixH-1, color.RGBA{200, 200, 200, 255})

	view := vector.Scale(k, k)
	for _, it := range byPage(len(pages), items)[opt.Page] {
		if it.ImagePath != "" {
			if err := blitImage(img, view, it); err == nil {
				continue
			}
		}
		poly := it.Polygon()
		col := withAlpha(oc, it.Record.EffectiveOpacity())
		for i := range poly {
			a, b := view.Apply(poly[i]), view.Apply(poly[(i+1)%len(poly)])
			strokeLine(img, a, b, col)
		}
	}
	return png.Encode(w, img)
}

func withAlpha(c Color, a float64) color.RGBA {
	al := uint8(math.Round(255 * a))
	// premultiplied
	return color.RGBA{
		R: uint8(uint16(c.R) * uint16(al) / 255),
		G: uint8(uint16(c.G) * uint16(al) / 255),
		B: uint8(uint16(c.B) * uint16(al) / 255),
		A: al,
	}
}

// blitImage maps the source image onto the item's transformed box.
func blitImage(dst *image.RGBA, view vector.Affine2D, it Item) error {
	f, err := os.Open(it.ImagePath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	src, _, err := image.Decode(f)
	if err != nil {
		return err
	}
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return fmt.Errorf("empty image %s", it.ImagePath)
	}
	box := it.Box()
	m := view.
		Mul(vector.ItemTransform(box, it.Record.Rotation, it.Record.EffectiveScale())).
		Mul(vector.Translate(box.X, box.Y)).
		Mul(vector.Scale(box.W/float64(sb.Dx()), box.H/float64(sb.Dy()))).
		Mul(vector.Translate(-float64(sb.Min.X), -float64(sb.Min.Y)))
	s2d := f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}
	var opts *draw.Options
	if a := it.Record.EffectiveOpacity(); a < 1 {
		opts = &draw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(255 * a))}), SrcMaskP: sb.Min}
	}
	draw.BiLinear.Transform(dst, s2d, src, sb, draw.Over, opts)
	return nil
}

// strokeLine draws a 1px line with Bresenham's algorithm.
func strokeLine(img *image.RGBA, a, b vector.Pt, col color.RGBA) {
	x0, y0 := int(math.Round(a.X)), int(math.Round(a.Y))
	x1, y1 := int(math.Round(b.X)), int(math.Round(b.Y))
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		if (image.Point{X: x0, Y: y0}).In(img.Bounds()) {
			img.SetRGBA(x0, y0, col)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}
