/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package content materializes item elements from their source: it fetches
// text when needed, runs the matching parser and wraps the result.
package content

import (
	"context"
	"errors"
	"fmt"
	"path"

	"pageboard/internal/dom"
	"pageboard/internal/domain"
	"pageboard/internal/parser"
)

// Fetcher retrieves the text behind a source path.
type Fetcher interface {
	FetchText(ctx context.Context, sourcePath string) (string, error)
}

// Resolver builds elements for records that have no live element.
type Resolver struct {
	Fetcher  Fetcher
	Registry *parser.Registry
}

// NewResolver returns a resolver over the default parser table.
func NewResolver(f Fetcher) *Resolver {
	return &Resolver{Fetcher: f, Registry: parser.Default()}
}

// Resolve recreates the element for id from its parser kind and source path.
// Image-like kinds use the path itself as content; others are fetched.
func (r *Resolver) Resolve(ctx context.Context, id, kind, sourcePath string) (*dom.Element, error) {
	filename := path.Base(sourcePath)
	k, p, err := r.lookup(kind, filename)
	if err != nil {
		return nil, err
	}
	text := sourcePath
	if !parser.IsImageLike(k) {
		if r.Fetcher == nil {
			return nil, &domain.FetchError{URL: sourcePath, Err: errors.New("no fetcher configured")}
		}
		text, err = r.Fetcher.FetchText(ctx, sourcePath)
		if err != nil {
			var fe *domain.FetchError
			if errors.As(err, &fe) {
				return nil, err
			}
			return nil, &domain.FetchError{URL: sourcePath, Err: err}
		}
	}
	return build(id, k, p, filename, text)
}

// FromContent is Resolve without the fetch, for content already in hand.
func (r *Resolver) FromContent(id string, kind parser.Kind, filename, text string) (*dom.Element, error) {
	k, p, err := r.lookup(string(kind), filename)
	if err != nil {
		return nil, err
	}
	return build(id, k, p, filename, text)
}

func (r *Resolver) lookup(kind, filename string) (parser.Kind, parser.Parser, error) {
	k, ok := parser.ParseKind(kind)
	if !ok {
		return "", nil, &domain.ParseError{Filename: filename, Parser: kind, Err: fmt.Errorf("unknown parser kind %q", kind)}
	}
	reg := r.Registry
	if reg == nil {
		reg = parser.Default()
	}
	p, ok := reg.Lookup(k)
	if !ok {
		return "", nil, &domain.ParseError{Filename: filename, Parser: kind, Err: errors.New("no parser registered")}
	}
	return k, p, nil
}

func build(id string, k parser.Kind, p parser.Parser, filename, text string) (*dom.Element, error) {
	res, err := p.Parse(text, filename)
	if err != nil {
		return nil, &domain.ParseError{Filename: filename, Parser: k.String(), Err: err}
	}
	if res.Node == nil {
		return nil, &domain.ParseError{Filename: filename, Parser: k.String(), Err: errors.New("parser returned no content")}
	}
	meta := dom.Meta{Filename: filename, Parser: k.String()}
	if res.HasSize() {
		meta.NaturalWidth, meta.NaturalHeight = res.Width, res.Height
	}
	return dom.NewElement(id, res.Node, meta), nil
}
