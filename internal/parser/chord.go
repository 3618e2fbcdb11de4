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
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Rough glyph metrics used to estimate the rendered size of a chord sheet.
const (
	chordCharWidth  = 8
	chordLineHeight = 22
)

var errEmptySheet = errors.New("empty chord sheet")

// ChordParser renders ChordPro-style text: {title:}, {subtitle:} and
// {comment:} directives, inline [C] chords over lyrics, # comment lines.
type ChordParser struct{}

func (ChordParser) Parse(content, _ string) (Result, error) {
	if strings.TrimSpace(content) == "" {
		return Result{}, errEmptySheet
	}
	root := element(atom.Div, "chord-sheet")
	longest, lines := 0, 0
	emit := func(n *html.Node, visible string) {
		root.AppendChild(n)
		longest = max(longest, utf8.RuneCountInString(visible))
		lines++
	}

	for _, raw := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		line := strings.TrimRight(raw, " \t")
		switch {
		case strings.HasPrefix(strings.TrimSpace(line), "#"):
			continue
		case isDirective(line):
			name, value := splitDirective(line)
			switch name {
			case "title", "t":
				emit(textElement(atom.H3, "chord-title", value), value)
			case "subtitle", "st":
				emit(textElement(atom.H4, "chord-subtitle", value), value)
			case "comment", "c":
				emit(textElement(atom.P, "chord-comment", value), value)
			}
		case line == "":
			emit(element(atom.Div, "chord-line chord-blank"), "")
		default:
			n, visible := chordLine(line)
			emit(n, visible)
		}
	}
	if lines == 0 {
		return Result{}, errEmptySheet
	}
	return Result{Node: root, Width: float64(longest * chordCharWidth), Height: float64(lines * chordLineHeight)}, nil
}

func isDirective(line string) bool {
	l := strings.TrimSpace(line)
	return strings.HasPrefix(l, "{") && strings.HasSuffix(l, "}")
}

func splitDirective(line string) (name, value string) {
	l := strings.TrimSpace(line)
	l = strings.TrimSuffix(strings.TrimPrefix(l, "{"), "}")
	name, value, _ = strings.Cut(l, ":")
	return strings.ToLower(strings.TrimSpace(name)), strings.TrimSpace(value)
}

// chordLine splits "[G]Amazing [C]grace" into chord/lyric segments and
// returns the lyric text for width estimation.
func chordLine(line string) (*html.Node, string) {
	n := element(atom.Div, "chord-line")
	var lyrics strings.Builder
	chord := ""
	rest := line
	flush := func(text string) {
		if chord == "" && text == "" {
			return
		}
		seg := element(atom.Span, "chord-seg")
		seg.AppendChild(textElement(atom.Span, "chord", chord))
		seg.AppendChild(textElement(atom.Span, "lyric", text))
		n.AppendChild(seg)
		lyrics.WriteString(text)
	}
	for {
		open := strings.IndexByte(rest, '[')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open:], ']')
		if end < 0 {
			break
		}
		flush(rest[:open])
		chord = rest[open+1 : open+end]
		rest = rest[open+end+1:]
	}
	flush(rest)
	return n, lyrics.String()
}

func element(a atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	if class != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
	}
	return n
}

func textElement(a atom.Atom, class, text string) *html.Node {
	n := element(a, class)
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return n
}
