/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pageboard/internal/domain"
	"pageboard/internal/vector"
)

// Element is an item container (div.draggable).
type Element struct {
	node *html.Node
}

// Meta carries the data attributes stamped on a new element.
type Meta struct {
	Filename      string
	Parser        string
	NaturalWidth  float64
	NaturalHeight float64
}

// NewElement creates a detached item element around content.
func NewElement(id string, content *html.Node, meta Meta) *Element {
	n := newDiv()
	setAttr(n, "id", id)
	setAttr(n, "class", ClassItem)
	if meta.Filename != "" {
		setAttr(n, AttrFilename, meta.Filename)
	}
	if meta.Parser != "" {
		setAttr(n, AttrParser, meta.Parser)
	}
	if meta.NaturalWidth > 0 && meta.NaturalHeight > 0 {
		setAttr(n, AttrNaturalWidth, domain.FormatNumber(meta.NaturalWidth))
		setAttr(n, AttrNaturalHeight, domain.FormatNumber(meta.NaturalHeight))
	}
	if content != nil {
		if content.Parent != nil {
			content.Parent.RemoveChild(content)
		}
		n.AppendChild(content)
	}
	return &Element{node: n}
}

func (e *Element) Node() *html.Node   { return e.node }
func (e *Element) ID() string         { return getAttr(e.node, "id") }
func (e *Element) Filename() string   { return getAttr(e.node, AttrFilename) }
func (e *Element) ParserKind() string { return getAttr(e.node, AttrParser) }

// SetID assigns the id of an element that was created without one.
func (e *Element) SetID(id string) { setAttr(e.node, "id", id) }

// Attached reports whether the element is part of a tree.
func (e *Element) Attached() bool { return e.node.Parent != nil }

// NaturalSize returns the intrinsic size recorded at parse time.
func (e *Element) NaturalSize() (w, h float64, ok bool) {
	w, okW := domain.ParsePx(getAttr(e.node, AttrNaturalWidth))
	h, okH := domain.ParsePx(getAttr(e.node, AttrNaturalHeight))
	return w, h, okW && okH
}

// Style returns the value of an inline style property.
func (e *Element) Style(prop string) (string, bool) {
	return parseStyle(getAttr(e.node, "style")).get(prop)
}

// SetStyle writes one inline style property, keeping the others.
func (e *Element) SetStyle(prop, value string) {
	s := parseStyle(getAttr(e.node, "style")).set(prop, value)
	setAttr(e.node, "style", s.String())
}

// RemoveStyle deletes one inline style property.
func (e *Element) RemoveStyle(prop string) {
	s := parseStyle(getAttr(e.node, "style")).remove(prop)
	if len(s) == 0 {
		removeAttr(e.node, "style")
		return
	}
	setAttr(e.node, "style", s.String())
}

// StyleText returns the raw style attribute.
func (e *Element) StyleText() string { return getAttr(e.node, "style") }

// Offset returns left/top relative to the containing page.
func (e *Element) Offset() vector.Pt {
	var p vector.Pt
	if v, ok := e.Style("left"); ok {
		p.X, _ = domain.ParsePx(v)
	}
	if v, ok := e.Style("top"); ok {
		p.Y, _ = domain.ParsePx(v)
	}
	return p
}

// Size returns the layout size: explicit px width/height when set,
// otherwise the natural size. Either may be zero when unknown.
func (e *Element) Size() (w, h float64) {
	nw, nh, _ := e.NaturalSize()
	w, h = nw, nh
	if v, ok := e.Style("width"); ok {
		if px, ok := domain.ParsePx(v); ok {
			w = px
		}
	}
	if v, ok := e.Style("height"); ok {
		if px, ok := domain.ParsePx(v); ok {
			h = px
		}
	}
	return w, h
}

func (e *Element) AddClass(c string)      { addClass(e.node, c) }
func (e *Element) RemoveClass(c string)   { removeClass(e.node, c) }
func (e *Element) HasClass(c string) bool { return hasClass(e.node, c) }

// Text returns the concatenated text content.
func (e *Element) Text() string {
	var b strings.Builder
	walk(e.node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return b.String()
}

func newDiv() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace != "" || a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}

func hasClass(n *html.Node, c string) bool {
	for _, f := range strings.Fields(getAttr(n, "class")) {
		if f == c {
			return true
		}
	}
	return false
}

func addClass(n *html.Node, c string) {
	if hasClass(n, c) {
		return
	}
	setAttr(n, "class", strings.TrimSpace(getAttr(n, "class")+" "+c))
}

func removeClass(n *html.Node, c string) {
	if !hasClass(n, c) {
		return
	}
	var keep []string
	for _, f := range strings.Fields(getAttr(n, "class")) {
		if f != c {
			keep = append(keep, f)
		}
	}
	setAttr(n, "class", strings.Join(keep, " "))
}

func isElement(n *html.Node, class string) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Div && hasClass(n, class)
}

// walk visits n and its descendants depth first; fn returning false skips
// the children of the visited node.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if pred(c) {
			found = c
			return false
		}
		return true
	})
	return found
}
