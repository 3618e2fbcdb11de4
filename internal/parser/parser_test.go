/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parser

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func render(t *testing.T, n *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestKindTables(t *testing.T) {
	cases := map[string]Kind{
		"song.cho": Chord, "Song.TXT": Chord, "a.chordpro": Chord,
		"x.html": HTML, "x.svg": SVG, "p.JPEG": Image, "p.webp": Image,
	}
	for name, want := range cases {
		if got, ok := KindForFilename(name); !ok || got != want {
			t.Fatalf("KindForFilename(%q) = %q, %v", name, got, ok)
		}
	}
	if _, ok := KindForFilename("archive.zip"); ok {
		t.Fatalf("zip should not map to a parser")
	}
	if k, ok := ParseKind(" SVG "); !ok || k != SVG {
		t.Fatalf("ParseKind should normalise case")
	}
	if _, ok := ParseKind("markdown"); ok {
		t.Fatalf("unknown kind accepted")
	}
	if !IsImageLike(Image) || IsImageLike(SVG) {
		t.Fatalf("image-like classification wrong")
	}
}

func TestDefaultRegistryCoversEveryKind(t *testing.T) {
	r := Default()
	for _, k := range Kinds {
		if _, ok := r.Lookup(k); !ok {
			t.Fatalf("no parser registered for %s", k)
		}
	}
	if _, ok := r.Lookup(Kind("nope")); ok {
		t.Fatalf("lookup of unknown kind should fail")
	}
}

func TestChordParser(t *testing.T) {
	src := "{title: Amazing Grace}\n# tuning note\n[G]Amazing [C]grace how [G]sweet\n\n{c: Chorus}\nplain line"
	res, err := ChordParser{}.Parse(src, "grace.cho")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := render(t, res.Node)
	for _, want := range []string{`<h3 class="chord-title">Amazing Grace</h3>`, `<span class="chord">C</span>`, `chord-comment`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}
	if strings.Contains(out, "tuning") {
		t.Fatalf("comment line should be skipped")
	}
	// five rendered lines; the longest lyric is "Amazing grace how sweet".
	if res.Height != 5*chordLineHeight || res.Width != float64(len("Amazing grace how sweet")*chordCharWidth) {
		t.Fatalf("size estimate %v x %v", res.Width, res.Height)
	}
	if _, err := (ChordParser{}).Parse("  \n", "x.txt"); err == nil {
		t.Fatalf("blank sheet should fail")
	}
}

func TestHTMLParserSanitizes(t *testing.T) {
	res, err := NewHTMLParser().Parse(`<p class="note" onclick="x()">Hi</p><script>alert(1)</script>`, "a.html")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := render(t, res.Node)
	if strings.Contains(out, "script") || strings.Contains(out, "onclick") {
		t.Fatalf("unsafe markup kept: %s", out)
	}
	if !strings.Contains(out, "Hi") || !strings.Contains(out, `class="html-snippet"`) {
		t.Fatalf("content lost: %s", out)
	}
	if res.HasSize() {
		t.Fatalf("html snippets carry no intrinsic size")
	}
	if _, err := NewHTMLParser().Parse(`<script>x</script>`, "a.html"); err == nil {
		t.Fatalf("snippet empty after sanitizing should fail")
	}
}

func TestSVGParser(t *testing.T) {
	res, err := SVGParser{}.Parse(`<?xml version="1.0"?><svg width="120" height="80px" onload="evil()"><script>x</script><rect width="10" height="10"/></svg>`, "a.svg")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Width != 120 || res.Height != 80 {
		t.Fatalf("size %v x %v", res.Width, res.Height)
	}
	out := render(t, res.Node)
	if strings.Contains(out, "onload") || strings.Contains(out, "<script") {
		t.Fatalf("svg not scrubbed: %s", out)
	}

	res, err = SVGParser{}.Parse(`<svg viewBox="0 0 300 150"></svg>`, "b.svg")
	if err != nil || res.Width != 300 || res.Height != 150 {
		t.Fatalf("viewBox size: %v x %v, %v", res.Width, res.Height, err)
	}

	if _, err := (SVGParser{}).Parse(`<div>not svg</div>`, "c.svg"); err == nil {
		t.Fatalf("non-svg root should fail")
	}
}

func TestParsersDropEditorClasses(t *testing.T) {
	res, err := NewHTMLParser().Parse(`<div class="draggable note" id="a"><span class="page selected">hi</span></div>`, "x.html")
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	out := render(t, res.Node)
	for _, c := range []string{"draggable", `"page`, "selected"} {
		if strings.Contains(out, c) {
			t.Fatalf("html kept reserved class %s: %s", c, out)
		}
	}
	if !strings.Contains(out, `class="note"`) || !strings.Contains(out, "hi") {
		t.Fatalf("html lost its own classes or text: %s", out)
	}

	res, err = SVGParser{}.Parse(`<svg class="drop-target" width="10" height="10"><g class="dragging x"></g></svg>`, "x.svg")
	if err != nil {
		t.Fatalf("parse svg: %v", err)
	}
	out = render(t, res.Node)
	if strings.Contains(out, "drop-target") || strings.Contains(out, "dragging") || !strings.Contains(out, `class="x"`) {
		t.Fatalf("svg classes not filtered: %s", out)
	}
}

func TestSVGParserDropsScriptURLsAndForeignObject(t *testing.T) {
	src := `<svg width="10" height="10">` +
		`<a href="javascript:alert(1)"><text>a</text></a>` +
		`<a xlink:href=" JaVa&#9;Script:alert(2)"><text>b</text></a>` +
		`<foreignObject><div>inner</div></foreignObject>` +
		`<a href="/user/ok.svg"><text>c</text></a></svg>`
	res, err := SVGParser{}.Parse(src, "links.svg")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := render(t, res.Node)
	if strings.Contains(strings.ToLower(out), "script:") {
		t.Fatalf("script url kept: %s", out)
	}
	if strings.Contains(strings.ToLower(out), "foreignobject") || strings.Contains(out, "inner") {
		t.Fatalf("foreignObject kept: %s", out)
	}
	if !strings.Contains(out, `href="/user/ok.svg"`) {
		t.Fatalf("safe link removed: %s", out)
	}
}

func TestImageParser(t *testing.T) {
	res, err := ImageParser{}.Parse("/user/cat.png", "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := render(t, res.Node)
	if !strings.Contains(out, `src="/user/cat.png"`) || !strings.Contains(out, `alt="cat.png"`) {
		t.Fatalf("unexpected img: %s", out)
	}
	if _, err := (ImageParser{}).Parse(" ", "x.png"); err == nil {
		t.Fatalf("empty source should fail")
	}
}
