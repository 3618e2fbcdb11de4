/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package parser is the closed table of content capabilities. Each Kind
// turns source text into an HTML node plus an optional intrinsic size.
package parser

import (
	"path"
	"strings"

	"golang.org/x/net/html"
)

// Kind names a parser capability. It is the value stored in parserKind.
type Kind string

const (
	Chord Kind = "chord"
	HTML  Kind = "html"
	SVG   Kind = "svg"
	Image Kind = "image"
)

// Kinds lists every known kind in a stable order.
var Kinds = []Kind{Chord, HTML, SVG, Image}

func (k Kind) String() string { return string(k) }

// ParseKind validates a stored tag.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

var extensions = map[string]Kind{
	".txt":      Chord,
	".cho":      Chord,
	".chopro":   Chord,
	".chordpro": Chord,
	".pro":      Chord,
	".html":     HTML,
	".htm":      HTML,
	".svg":      SVG,
	".png":      Image,
	".jpg":      Image,
	".jpeg":     Image,
	".gif":      Image,
	".webp":     Image,
	".bmp":      Image,
}

// KindForFilename picks a kind from the file extension.
func KindForFilename(name string) (Kind, bool) {
	k, ok := extensions[strings.ToLower(path.Ext(name))]
	return k, ok
}

// IsImageLike reports whether the content passed to the parser is the
// source path itself rather than fetched text.
func IsImageLike(k Kind) bool { return k == Image }

// Result is what a parser produces. Width and Height are zero when the
// parser cannot tell.
type Result struct {
	Node   *html.Node
	Width  float64
	Height float64
}

// HasSize reports whether an intrinsic size is known.
func (r Result) HasSize() bool { return r.Width > 0 && r.Height > 0 }

// Parser turns content into a renderable node.
type Parser interface {
	Parse(content, filename string) (Result, error)
}

// Func adapts a function to Parser.
type Func func(content, filename string) (Result, error)

func (f Func) Parse(content, filename string) (Result, error) { return f(content, filename) }

// Registry maps kinds to parsers.
type Registry struct {
	parsers map[Kind]Parser
}

func NewRegistry() *Registry { return &Registry{parsers: make(map[Kind]Parser)} }

// Register installs p for k, replacing any previous entry.
func (r *Registry) Register(k Kind, p Parser) { r.parsers[k] = p }

// Lookup returns the parser for k.
func (r *Registry) Lookup(k Kind) (Parser, bool) {
	p, ok := r.parsers[k]
	return p, ok
}

// Default returns a registry with the four built-in parsers.
func Default() *Registry {
	r := NewRegistry()
	r.Register(Chord, ChordParser{})
	r.Register(HTML, NewHTMLParser())
	r.Register(SVG, SVGParser{})
	r.Register(Image, ImageParser{})
	return r
}
