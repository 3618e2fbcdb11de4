/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"pageboard/internal/dom"
	"pageboard/internal/domain"
	applog "pageboard/internal/log"
	"pageboard/internal/parser"
)

// ApplyAll brings the document in line with the store: every record gets
// an element (recreated from its source when missing) on its page, styled
// from the record. Items that cannot be placed are skipped and stay in the
// store; their errors are joined in the result.
func (s *Session) ApplyAll(ctx context.Context) error {
	var errs []error
	for _, id := range s.Store.IDs() {
		rec, _ := s.Store.Get(id)
		if err := s.applyOne(ctx, id, rec); err != nil {
			applog.WithItem(s.log, id).Warn("item skipped", slog.String("err", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) applyOne(ctx context.Context, id string, rec domain.ItemRecord) error {
	el, err := s.elementFor(ctx, id, rec)
	if err != nil {
		return err
	}
	if el == nil {
		applog.WithItem(s.log, id).Warn("no element and no source path; cannot recreate")
		return nil
	}
	page, err := s.targetPage(id, rec.PageIndex)
	if err != nil {
		return err
	}
	if cur, ok := s.Doc.PageOf(el); !ok || cur != page {
		s.Doc.Place(el, page)
	}
	delete(s.detached, id)
	styleElement(el, rec)
	return nil
}

// elementFor returns the live element for id, reattachable detached
// elements, or a freshly resolved one. A nil element with nil error means
// the record cannot be materialized.
func (s *Session) elementFor(ctx context.Context, id string, rec domain.ItemRecord) (*dom.Element, error) {
	if el, ok := s.Doc.ElementByID(id); ok {
		return el, nil
	}
	if el, ok := s.detached[id]; ok {
		return el, nil
	}
	if rec.SourcePath == "" {
		return nil, nil
	}
	kind := rec.ParserKind
	if kind == "" {
		k, ok := parser.KindForFilename(rec.SourcePath)
		if !ok {
			return nil, &domain.ParseError{Filename: path.Base(rec.SourcePath), Err: errors.New("no parser for file type")}
		}
		kind = k.String()
	}
	return s.resolver.Resolve(ctx, id, kind, rec.SourcePath)
}

// targetPage maps a page index to a container. Indexes past the last page
// land on the last page; any other missing index falls back to the first.
func (s *Session) targetPage(id string, index int) (*dom.Page, error) {
	if p, ok := s.Doc.Page(index); ok {
		return p, nil
	}
	pages := s.Doc.Pages()
	if len(pages) == 0 {
		return nil, &domain.PlacementError{ID: id, Reason: "no page containers"}
	}
	last := pages[len(pages)-1]
	if index > last.Index {
		return last, nil
	}
	applog.WithItem(s.log, id).Warn("page container missing; using first page", slog.Int("pageIndex", index))
	return pages[0], nil
}

func styleElement(el *dom.Element, rec domain.ItemRecord) {
	el.SetStyle("position", "absolute")
	el.SetStyle("left", cmpOr(rec.Left, domain.DefaultLength))
	el.SetStyle("top", cmpOr(rec.Top, domain.DefaultLength))
	setOrRemove(el, "width", rec.Width)
	setOrRemove(el, "height", rec.Height)
	if rec.Opacity != 0 {
		el.SetStyle("opacity", domain.FormatNumber(rec.Opacity))
	} else {
		el.RemoveStyle("opacity")
	}
	el.SetStyle("transform", rec.Transform())
}

func setOrRemove(el *dom.Element, prop, v string) {
	if v == "" {
		el.RemoveStyle(prop)
		return
	}
	el.SetStyle(prop, v)
}

func cmpOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// ArrangeDefaults places every document item that has no record yet. Items
// flow down the first column of a page, then the second column, then on to
// the next page. When all pages are full the rest go to the top of the
// last page's second column and overlap. Recorded items whose element sits
// on the wrong page are moved back, then the history is reset to the
// resulting state. It never saves.
func (s *Session) ArrangeDefaults() error {
	pages := s.Doc.Pages()
	var unplaced []*dom.Element
	for _, el := range s.Doc.Elements() {
		if el.ID() == "" {
			el.SetID(domain.NewItemID(el.Filename()))
		}
		if !s.Store.Has(el.ID()) {
			unplaced = append(unplaced, el)
		}
	}

	var err error
	if len(unplaced) > 0 && len(pages) == 0 {
		err = &domain.PlacementError{Reason: fmt.Sprintf("%d items but no page containers", len(unplaced))}
		unplaced = nil
	}

	pad, gap := s.opts.Padding, s.opts.Spacing
	pi, col, y := 0, 0, pad
	for _, el := range unplaced {
		h := s.itemHeight(el)
		overflow := false
		for {
			if pi >= len(pages) {
				overflow = true
				break
			}
			if y == pad || y+h <= pages[pi].Bounds.H-pad {
				break
			}
			if col == 0 {
				col, y = 1, pad
			} else {
				pi, col, y = pi+1, 0, pad
			}
		}

		var page *dom.Page
		var x, top float64
		if overflow {
			page = pages[len(pages)-1]
			x, top = pad+columnWidth(page, pad)+pad, pad
			applog.WithItem(s.log, el.ID()).Warn("pages exhausted; overlapping on last page")
		} else {
			page = pages[pi]
			x, top = pad+float64(col)*(columnWidth(page, pad)+pad), y
			y += h + gap
		}
		s.Store.Upsert(el.ID(), domain.PositionPatch(x, top, page.Index))
		if cur, ok := s.Doc.PageOf(el); !ok || cur != page {
			s.Doc.Place(el, page)
		}
		rec, _ := s.Store.Get(el.ID())
		styleElement(el, rec)
	}

	for _, id := range s.Store.IDs() {
		el, ok := s.Doc.ElementByID(id)
		if !ok {
			continue
		}
		rec, _ := s.Store.Get(id)
		page, perr := s.targetPage(id, rec.PageIndex)
		if perr != nil {
			continue
		}
		if cur, ok := s.Doc.PageOf(el); !ok || cur != page {
			s.Doc.Place(el, page)
		}
	}

	s.History.Init(s.Store.Snapshot())
	return err
}

func columnWidth(p *dom.Page, pad float64) float64 {
	return (p.Bounds.W - 3*pad) / 2
}

func (s *Session) itemHeight(el *dom.Element) float64 {
	if _, h := el.Size(); h > 0 {
		return h
	}
	return s.opts.DefaultHeight
}
