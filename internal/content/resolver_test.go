/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package content

import (
	"context"
	"errors"
	"testing"

	"pageboard/internal/domain"
	"pageboard/internal/parser"
)

type fakeFetcher struct {
	files map[string]string
	calls int
}

func (f *fakeFetcher) FetchText(_ context.Context, p string) (string, error) {
	f.calls++
	s, ok := f.files[p]
	if !ok {
		return "", &domain.FetchError{URL: p, Status: 404}
	}
	return s, nil
}

func TestResolveSVGFetchesAndSizes(t *testing.T) {
	f := &fakeFetcher{files: map[string]string{"/user/a.svg": `<svg width="40" height="30"></svg>`}}
	el, err := NewResolver(f).Resolve(context.Background(), "x", "svg", "/user/a.svg")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if el.ID() != "x" || el.Filename() != "a.svg" || el.ParserKind() != "svg" {
		t.Fatalf("metadata wrong: %q %q %q", el.ID(), el.Filename(), el.ParserKind())
	}
	if w, h, ok := el.NaturalSize(); !ok || w != 40 || h != 30 {
		t.Fatalf("natural size %v x %v", w, h)
	}
}

func TestResolveImageSkipsFetch(t *testing.T) {
	f := &fakeFetcher{}
	el, err := NewResolver(f).Resolve(context.Background(), "img", "image", "/user/cat.png")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if f.calls != 0 {
		t.Fatalf("image content must not be fetched")
	}
	if _, _, ok := el.NaturalSize(); ok {
		t.Fatalf("image parser reports no size")
	}
}

func TestResolveErrors(t *testing.T) {
	f := &fakeFetcher{files: map[string]string{"/user/bad.svg": "<p>no</p>"}}
	r := NewResolver(f)

	_, err := r.Resolve(context.Background(), "a", "svg", "/user/missing.svg")
	var fe *domain.FetchError
	if !errors.As(err, &fe) || fe.Status != 404 {
		t.Fatalf("expected FetchError 404, got %v", err)
	}

	_, err = r.Resolve(context.Background(), "b", "svg", "/user/bad.svg")
	var pe *domain.ParseError
	if !errors.As(err, &pe) || pe.Filename != "bad.svg" || pe.Parser != "svg" {
		t.Fatalf("expected ParseError for bad.svg, got %v", err)
	}

	_, err = r.Resolve(context.Background(), "c", "latex", "/user/x.tex")
	if !errors.As(err, &pe) || pe.Parser != "latex" {
		t.Fatalf("unknown kind should be a ParseError, got %v", err)
	}
}

func TestFromContent(t *testing.T) {
	el, err := NewResolver(nil).FromContent("song-1", parser.Chord, "song.txt", "[C]la la")
	if err != nil {
		t.Fatalf("from content: %v", err)
	}
	if el.Text() != "Cla la" {
		t.Fatalf("unexpected text %q", el.Text())
	}
	if w, _, ok := el.NaturalSize(); !ok || w != 5*8 {
		t.Fatalf("chord width estimate %v", w)
	}
}
