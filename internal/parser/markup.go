/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parser

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pageboard/internal/dom"
	"pageboard/internal/domain"
)

// HTMLParser sanitizes a snippet and wraps it in div.html-snippet.
type HTMLParser struct {
	policy *bluemonday.Policy
}

func NewHTMLParser() HTMLParser {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	return HTMLParser{policy: p}
}

func (p HTMLParser) Parse(content, _ string) (Result, error) {
	policy := p.policy
	if policy == nil {
		policy = bluemonday.UGCPolicy()
	}
	clean := strings.TrimSpace(policy.Sanitize(content))
	if clean == "" {
		return Result{}, errors.New("html snippet is empty after sanitizing")
	}
	root := element(atom.Div, "html-snippet")
	nodes, err := html.ParseFragment(strings.NewReader(clean), root)
	if err != nil {
		return Result{}, fmt.Errorf("parse html fragment: %w", err)
	}
	for _, n := range nodes {
		stripReservedClasses(n)
		root.AppendChild(n)
	}
	return Result{Node: root}, nil
}

// SVGParser accepts documents whose root element is <svg>. Scripts,
// foreignObject subtrees, event handler attributes and javascript: URLs
// are dropped.
type SVGParser struct{}

func (SVGParser) Parse(content, _ string) (Result, error) {
	nodes, err := html.ParseFragment(strings.NewReader(content), element(atom.Div, ""))
	if err != nil {
		return Result{}, fmt.Errorf("parse svg: %w", err)
	}
	var svg *html.Node
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			svg = n
			break
		}
	}
	if svg == nil || svg.Data != "svg" {
		return Result{}, errors.New("svg root element not found")
	}
	scrub(svg)
	res := Result{Node: svg}
	w, okW := domain.ParsePx(attr(svg, "width"))
	h, okH := domain.ParsePx(attr(svg, "height"))
	if okW && okH {
		res.Width, res.Height = w, h
	} else if vw, vh, ok := viewBoxSize(attr(svg, "viewbox")); ok {
		res.Width, res.Height = vw, vh
	}
	return res, nil
}

// unsafeSVGElements are removed together with their subtrees.
var unsafeSVGElements = []string{"script", "foreignObject", "iframe", "embed", "object"}

func scrub(n *html.Node) {
	keep := n.Attr[:0]
	for _, a := range n.Attr {
		if strings.HasPrefix(strings.ToLower(a.Key), "on") || isScriptURL(a.Val) {
			continue
		}
		keep = append(keep, a)
	}
	n.Attr = keep
	dropReservedClasses(n)
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && isUnsafeSVGElement(c.Data) {
			n.RemoveChild(c)
		} else {
			scrub(c)
		}
		c = next
	}
}

func isUnsafeSVGElement(name string) bool {
	for _, u := range unsafeSVGElements {
		if strings.EqualFold(name, u) {
			return true
		}
	}
	return false
}

// isScriptURL reports values such as "java\tscript:alert(1)"; browsers
// ignore whitespace and control characters inside the scheme.
func isScriptURL(v string) bool {
	var b strings.Builder
	for _, r := range v {
		if r > ' ' {
			b.WriteRune(r)
		}
	}
	s := strings.ToLower(b.String())
	return strings.HasPrefix(s, "javascript:") || strings.HasPrefix(s, "vbscript:")
}

// stripReservedClasses removes editor-owned class names from n and its
// descendants so snippet markup cannot pose as a page or an item.
func stripReservedClasses(n *html.Node) {
	dropReservedClasses(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		stripReservedClasses(c)
	}
}

func dropReservedClasses(n *html.Node) {
	if n.Type != html.ElementNode {
		return
	}
	for i := 0; i < len(n.Attr); i++ {
		a := &n.Attr[i]
		if a.Key != "class" {
			continue
		}
		fields := slices.DeleteFunc(strings.Fields(a.Val), func(c string) bool {
			return slices.Contains(dom.ReservedClasses, c)
		})
		if len(fields) == 0 {
			n.Attr = slices.Delete(n.Attr, i, i+1)
			i--
			continue
		}
		a.Val = strings.Join(fields, " ")
	}
}

func viewBoxSize(v string) (w, h float64, ok bool) {
	f := strings.FieldsFunc(v, func(r rune) bool { return r == ' ' || r == ',' })
	if len(f) != 4 {
		return 0, 0, false
	}
	w, errW := strconv.ParseFloat(f[2], 64)
	h, errH := strconv.ParseFloat(f[3], 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// attr looks up an attribute; the HTML tokenizer lowercases names, so
// viewBox arrives as viewbox.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
