/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package dom is the in-memory document the editor reconciles against: page
// containers holding absolutely positioned item elements, backed by
// golang.org/x/net/html nodes so it can be parsed from and rendered to HTML.
package dom

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pageboard/internal/domain"
	"pageboard/internal/vector"
)

const (
	AttrPageIndex     = "data-page-index"
	AttrWidth         = "data-width"
	AttrHeight        = "data-height"
	AttrFilename      = "data-filename"
	AttrParser        = "data-parser"
	AttrNaturalWidth  = "data-natural-width"
	AttrNaturalHeight = "data-natural-height"
	AttrBoot          = "data-boot"

	ClassPage     = "page"
	ClassItem     = "draggable"
	ClassSelected = "selected"
	ClassDropZone = "drop-target"
	ClassDragging = "dragging"
)

// ReservedClasses are the classes the editor itself assigns. Item content
// must not carry them.
var ReservedClasses = []string{ClassPage, ClassItem, ClassSelected, ClassDropZone, ClassDragging}

// Layout describes how page containers are arranged in document space:
// stacked vertically, Margin from the top-left, Gap between pages.
type Layout struct {
	Margin float64
	Gap    float64
}

// Page is one fixed-size canvas. Bounds is in document space.
type Page struct {
	Index  int
	Bounds vector.Rect
	node   *html.Node
}

func (p *Page) Origin() vector.Pt { return p.Bounds.Min() }

// Document wraps a parsed HTML tree. It is not safe for concurrent use.
type Document struct {
	root   *html.Node
	pages  []*Page
	layout Layout
}

// ShellOptions configures NewShell.
type ShellOptions struct {
	Title  string
	Count  int
	Width  float64
	Height float64
	Layout Layout
	Script string
	BootID string
}

const shellSkeleton = `<!DOCTYPE html><html><head><meta charset="utf-8"><title></title></head><body></body></html>`

// NewShell builds the editor page: Count empty page containers and an
// optional script tag.
func NewShell(opts ShellOptions) *Document {
	root, _ := html.Parse(strings.NewReader(shellSkeleton))
	if t := findFirst(root, func(n *html.Node) bool { return n.DataAtom == atom.Title }); t != nil {
		t.AppendChild(&html.Node{Type: html.TextNode, Data: cmpOr(opts.Title, "pageboard")})
	}
	body := findFirst(root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
	if opts.BootID != "" {
		setAttr(body, AttrBoot, opts.BootID)
	}
	for i := 0; i < opts.Count; i++ {
		div := newDiv()
		setAttr(div, "class", ClassPage)
		setAttr(div, AttrPageIndex, strconv.Itoa(i))
		setAttr(div, AttrWidth, domain.FormatNumber(opts.Width))
		setAttr(div, AttrHeight, domain.FormatNumber(opts.Height))
		setAttr(div, "style", fmt.Sprintf("position: relative; width: %s; height: %s",
			domain.Px(opts.Width), domain.Px(opts.Height)))
		body.AppendChild(div)
	}
	if opts.Script != "" {
		s := &html.Node{Type: html.ElementNode, Data: "script", DataAtom: atom.Script}
		setAttr(s, "src", opts.Script)
		body.AppendChild(s)
	}
	d := &Document{root: root, layout: opts.Layout}
	d.scanPages()
	return d
}

// Parse reads a document and locates its page containers.
func Parse(r io.Reader, layout Layout) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	d := &Document{root: root, layout: layout}
	d.scanPages()
	return d, nil
}

func (d *Document) scanPages() {
	d.pages = d.pages[:0]
	ordinal := 0
	walk(d.root, func(n *html.Node) bool {
		if !isElement(n, ClassPage) {
			return true
		}
		idx, err := strconv.Atoi(getAttr(n, AttrPageIndex))
		if err != nil {
			idx = ordinal
		}
		ordinal++
		w, _ := domain.ParsePx(getAttr(n, AttrWidth))
		h, _ := domain.ParsePx(getAttr(n, AttrHeight))
		d.pages = append(d.pages, &Page{Index: idx, Bounds: vector.R(0, 0, w, h), node: n})
		return false
	})
	slices.SortStableFunc(d.pages, func(a, b *Page) int { return a.Index - b.Index })
	y := d.layout.Margin
	for _, p := range d.pages {
		p.Bounds.X, p.Bounds.Y = d.layout.Margin, y
		y += p.Bounds.H + d.layout.Gap
	}
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error { return html.Render(w, d.root) }

// Pages returns the page containers in index order.
func (d *Document) Pages() []*Page { return slices.Clone(d.pages) }

// Page returns the container whose data-page-index equals i.
func (d *Document) Page(i int) (*Page, bool) {
	for _, p := range d.pages {
		if p.Index == i {
			return p, true
		}
	}
	return nil, false
}

// LastPage returns the highest-indexed page.
func (d *Document) LastPage() (*Page, bool) {
	if len(d.pages) == 0 {
		return nil, false
	}
	return d.pages[len(d.pages)-1], true
}

// SetPageBounds overrides the computed bounds of page i, for adapters that
// measure the real layout.
func (d *Document) SetPageBounds(i int, r vector.Rect) bool {
	p, ok := d.Page(i)
	if ok {
		p.Bounds = r
	}
	return ok
}

// PageAt returns the page whose bounds contain pt.
func (d *Document) PageAt(pt vector.Pt) (*Page, bool) {
	for _, p := range d.pages {
		if p.Bounds.Contains(pt) {
			return p, true
		}
	}
	return nil, false
}

// ElementByID finds an item element by its id attribute.
func (d *Document) ElementByID(id string) (*Element, bool) {
	if id == "" {
		return nil, false
	}
	// Items never nest: content inside an item is not searched, so a
	// snippet cannot shadow another item's id.
	var n *html.Node
	walk(d.root, func(c *html.Node) bool {
		if n != nil {
			return false
		}
		if isElement(c, ClassItem) {
			if getAttr(c, "id") == id {
				n = c
			}
			return false
		}
		return true
	})
	if n == nil {
		return nil, false
	}
	return &Element{node: n}, true
}

// Elements returns every item element in document order.
func (d *Document) Elements() []*Element {
	var out []*Element
	walk(d.root, func(n *html.Node) bool {
		if isElement(n, ClassItem) {
			out = append(out, &Element{node: n})
			return false
		}
		return true
	})
	return out
}

// PageOf returns the page currently containing el.
func (d *Document) PageOf(el *Element) (*Page, bool) {
	for n := el.node.Parent; n != nil; n = n.Parent {
		if isElement(n, ClassPage) {
			for _, p := range d.pages {
				if p.node == n {
					return p, true
				}
			}
			return nil, false
		}
	}
	return nil, false
}

// Place moves el (attached or not) to the end of page's children.
func (d *Document) Place(el *Element, page *Page) {
	if el.node.Parent != nil {
		el.node.Parent.RemoveChild(el.node)
	}
	page.node.AppendChild(el.node)
}

// RemoveElement detaches el from the tree.
func (d *Document) RemoveElement(el *Element) {
	if el.node.Parent != nil {
		el.node.Parent.RemoveChild(el.node)
	}
}

// Origin returns el's top-left corner in document space, derived from its
// page and its left/top style.
func (d *Document) Origin(el *Element) (vector.Pt, bool) {
	p, ok := d.PageOf(el)
	if !ok {
		return vector.Pt{}, false
	}
	return p.Origin().Add(el.Offset()), true
}

// SetDropTarget marks page as the current drop target; nil clears it.
func (d *Document) SetDropTarget(page *Page) {
	for _, p := range d.pages {
		if p == page {
			addClass(p.node, ClassDropZone)
		} else {
			removeClass(p.node, ClassDropZone)
		}
	}
}

// DropTarget returns the page currently marked as drop target.
func (d *Document) DropTarget() (*Page, bool) {
	for _, p := range d.pages {
		if hasClass(p.node, ClassDropZone) {
			return p, true
		}
	}
	return nil, false
}

func cmpOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
