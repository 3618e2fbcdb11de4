/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders an arranged layout to PDF and PNG.
package export

import (
	"cmp"
	"math"

	"pageboard/internal/domain"
	"pageboard/internal/editor"
	"pageboard/internal/parser"
	"pageboard/internal/vector"
)

// DefaultItemSize is used for items whose size is not known (CSS px).
const DefaultItemSize = 100.0

// Page is a fixed-size canvas in CSS px.
type Page struct {
	Width  float64
	Height float64
}

// Item is one placed item, already resolved to a page-relative box.
type Item struct {
	ID     string
	Record domain.ItemRecord
	Width  float64
	Height float64
	Label  string
	// ImagePath is a local file to embed; empty draws an outline only.
	ImagePath string
}

// Box returns the untransformed page-relative rectangle.
func (it Item) Box() vector.Rect {
	x, y := it.Record.Position()
	return vector.R(x, y, cmpOrSize(it.Width), cmpOrSize(it.Height))
}

// Polygon returns the corners after rotation and scale about the centre.
func (it Item) Polygon() [4]vector.Pt {
	box := it.Box()
	return vector.ItemTransform(box, it.Record.Rotation, it.Record.EffectiveScale()).Polygon(box)
}

func cmpOrSize(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return DefaultItemSize
	}
	return v
}

// FromSession collects pages and items from an arranged editor session.
// imageFile maps a sourcePath to a readable local file; nil disables embedding.
func FromSession(s *editor.Session, imageFile func(sourcePath string) (string, bool)) ([]Page, []Item) {
	var pages []Page
	for _, p := range s.Doc.Pages() {
		pages = append(pages, Page{Width: p.Bounds.W, Height: p.Bounds.H})
	}
	var items []Item
	for _, id := range s.Store.IDs() {
		rec, _ := s.Store.Get(id)
		el, ok := s.Doc.ElementByID(id)
		if !ok {
			continue
		}
		w, h := el.Size()
		it := Item{ID: id, Record: rec, Width: w, Height: h, Label: cmp.Or(el.Filename(), id)}
		if k, ok := parser.ParseKind(cmp.Or(rec.ParserKind, el.ParserKind())); ok && parser.IsImageLike(k) && imageFile != nil && rec.SourcePath != "" {
			if p, ok := imageFile(rec.SourcePath); ok {
				it.ImagePath = p
			}
		}
		items = append(items, it)
	}
	return pages, items
}

// byPage groups items by page index; indexes past the end go to the last page.
func byPage(pageCount int, items []Item) [][]Item {
	out := make([][]Item, pageCount)
	if pageCount == 0 {
		return out
	}
	for _, it := range items {
		i := min(max(it.Record.PageIndex, 0), pageCount-1)
		out[i] = append(out[i], it)
	}
	return out
}
