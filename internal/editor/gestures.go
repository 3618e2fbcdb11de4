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
	"strings"

	"pageboard/internal/dom"
	"pageboard/internal/domain"
	applog "pageboard/internal/log"
	"pageboard/internal/parser"
)

// Dispatch applies one event to the session. Failures are shown through
// the Notifier, logged and returned.
func (s *Session) Dispatch(ctx context.Context, ev Event) error {
	ctx = applog.ContextWithSession(ctx, s.id)
	var err error
	op := fmt.Sprintf("%T", ev)
	switch e := ev.(type) {
	case DragStart:
		err = s.dragStart(e)
	case DragOver:
		s.dragOver(e)
	case Drop:
		err = s.drop(ctx, e)
	case DragCancel:
		s.cancelDrag()
	case Wheel:
		err = s.wheel(ctx, e)
	case Click:
		err = s.click(e)
	case KeyDown:
		err = s.keyDown(ctx, e)
	case FileDragOver:
		if s.drag == nil {
			page, _ := s.Doc.PageAt(e.Point)
			s.Doc.SetDropTarget(page)
		}
	case FileDrop:
		err = s.fileDrop(ctx, e)
	case Reload:
		s.reload(e)
	default:
		err = fmt.Errorf("unsupported event %T", ev)
	}
	if err != nil {
		s.report(ctx, op, err)
	}
	return err
}

func (s *Session) dragStart(e DragStart) error {
	el, ok := s.Doc.ElementByID(e.ID)
	if !ok {
		return &domain.NotFoundError{What: "element " + e.ID}
	}
	origin, ok := s.Doc.Origin(el)
	if !ok {
		return &domain.PlacementError{ID: e.ID, Reason: "element is not on a page"}
	}
	s.cancelDrag()
	s.drag = &dragState{id: e.ID, offset: e.Point.Sub(origin)}
	el.AddClass(dom.ClassDragging)
	return nil
}

func (s *Session) dragOver(e DragOver) {
	if s.drag == nil {
		return
	}
	page, _ := s.Doc.PageAt(e.Point)
	s.Doc.SetDropTarget(page)
}

func (s *Session) drop(ctx context.Context, e Drop) error {
	if s.drag == nil {
		return nil
	}
	d := *s.drag
	s.cancelDrag()

	el, ok := s.Doc.ElementByID(d.id)
	if !ok {
		return &domain.NotFoundError{What: "element " + d.id}
	}
	page, ok := s.Doc.PageAt(e.Point)
	if !ok {
		return &domain.PlacementError{ID: d.id, Reason: "drop outside any page"}
	}
	pos := e.Point.Sub(page.Origin()).Sub(d.offset)
	s.Store.Upsert(d.id, domain.PositionPatch(pos.X, pos.Y, page.Index))
	s.place(el, page)
	return s.commit(ctx)
}

func (s *Session) cancelDrag() {
	if s.drag != nil {
		if el, ok := s.Doc.ElementByID(s.drag.id); ok {
			el.RemoveClass(dom.ClassDragging)
		}
	}
	s.drag = nil
	s.Doc.SetDropTarget(nil)
}

// place attaches el to page when needed and restyles it from its record.
func (s *Session) place(el *dom.Element, page *dom.Page) {
	if cur, ok := s.Doc.PageOf(el); !ok || cur != page {
		s.Doc.Place(el, page)
	}
	rec, _ := s.Store.Get(el.ID())
	styleElement(el, rec)
}

func (s *Session) wheel(ctx context.Context, e Wheel) error {
	if e.DeltaY == 0 {
		return nil
	}
	up := e.DeltaY < 0
	rec, ok := s.Store.Get(e.ID)
	if !ok {
		return &domain.NotFoundError{What: "item " + e.ID}
	}
	var p domain.Patch
	switch {
	case e.Mods.Has(ModAlt):
		step := s.opts.OpacityStep
		if up {
			step = -step
		}
		p.Opacity = domain.Ptr(max(rec.EffectiveOpacity()+step, domain.MinOpacity))
	case e.Mods.Has(ModCtrl) || e.Mods.Has(ModMeta):
		step := s.opts.ScaleStep
		if !up {
			step = -step
		}
		p.Scale = domain.Ptr(domain.FormatNumber(max(rec.EffectiveScale()+step, s.opts.MinScale)))
	case e.Mods.Has(ModShift):
		step := s.opts.RotationStep
		if !up {
			step = -step
		}
		p.Rotation = domain.Ptr(rec.Rotation + step)
	default:
		return nil
	}
	s.Store.Upsert(e.ID, p)
	if el, ok := s.Doc.ElementByID(e.ID); ok {
		rec, _ = s.Store.Get(e.ID)
		styleElement(el, rec)
	}
	return s.commit(ctx)
}

func (s *Session) click(e Click) error {
	s.clearSelection()
	if e.ID == "" {
		return nil
	}
	el, ok := s.Doc.ElementByID(e.ID)
	if !ok {
		return &domain.NotFoundError{What: "element " + e.ID}
	}
	el.AddClass(dom.ClassSelected)
	s.selected = e.ID
	return nil
}

func (s *Session) clearSelection() {
	if el, ok := s.Doc.ElementByID(s.selected); ok {
		el.RemoveClass(dom.ClassSelected)
	}
	s.selected = ""
}

func (s *Session) keyDown(ctx context.Context, e KeyDown) error {
	ctrl := e.Mods.Has(ModCtrl) || e.Mods.Has(ModMeta)
	switch key := strings.ToLower(e.Key); {
	case key == "escape":
		s.clearSelection()
		s.cancelDrag()
	case key == "delete" || key == "backspace":
		return s.deleteSelected(ctx)
	case ctrl && key == "z" && e.Mods.Has(ModShift), ctrl && key == "y":
		return s.Redo(ctx)
	case ctrl && key == "z":
		return s.Undo(ctx)
	}
	return nil
}

func (s *Session) deleteSelected(ctx context.Context) error {
	id := s.selected
	if id == "" {
		return nil
	}
	s.clearSelection()
	rec, _ := s.Store.Get(id)
	s.Store.Remove(id)
	if el, ok := s.Doc.ElementByID(id); ok {
		s.Doc.RemoveElement(el)
		s.detached[id] = el
	}
	if err := s.commit(ctx); err != nil {
		return err
	}
	if rec.SourcePath == "" || s.confirmer == nil || s.bridge == nil {
		return nil
	}
	if !s.confirmer.Confirm(ctx, fmt.Sprintf("Also delete %s permanently?", rec.SourcePath)) {
		return nil
	}
	if err := s.bridge.DeleteFile(ctx, rec.SourcePath); err != nil {
		return fmt.Errorf("delete %s: %w", rec.SourcePath, err)
	}
	s.log.Info("file deleted", slog.String("path", rec.SourcePath))
	return nil
}

// Undo restores the previous snapshot, re-renders and saves without
// pushing a new history entry.
func (s *Session) Undo(ctx context.Context) error {
	if !s.History.CanUndo() {
		s.log.DebugContext(ctx, "nothing to undo")
		return nil
	}
	s.History.Undo()
	return s.afterRestore(ctx)
}

// Redo is the inverse of Undo.
func (s *Session) Redo(ctx context.Context) error {
	if !s.History.CanRedo() {
		s.log.DebugContext(ctx, "nothing to redo")
		return nil
	}
	s.History.Redo()
	return s.afterRestore(ctx)
}

func (s *Session) afterRestore(ctx context.Context) error {
	applyErr := s.ApplyAll(ctx)
	for _, el := range s.Doc.Elements() {
		if id := el.ID(); !s.Store.Has(id) {
			if id == s.selected {
				s.clearSelection()
			}
			s.Doc.RemoveElement(el)
			s.detached[id] = el
		}
	}
	return errors.Join(applyErr, s.Save(ctx))
}

func (s *Session) fileDrop(ctx context.Context, e FileDrop) error {
	if s.drag != nil {
		return nil
	}
	s.Doc.SetDropTarget(nil)
	page, ok := s.Doc.PageAt(e.Point)
	if !ok {
		return &domain.PlacementError{ID: e.Name, Reason: "drop outside any page"}
	}
	kind, ok := parser.KindForFilename(e.Name)
	if !ok {
		return &domain.ParseError{Filename: e.Name, Err: errors.New("unsupported file type")}
	}

	sourcePath, filename := "", e.Name
	if s.bridge != nil {
		res, err := s.bridge.Upload(ctx, e.Name, e.Data)
		if err != nil {
			return fmt.Errorf("upload %s: %w", e.Name, err)
		}
		sourcePath = res.Path
		if res.Filename != "" {
			filename = res.Filename
		}
	}

	text := string(e.Data)
	if parser.IsImageLike(kind) {
		if sourcePath == "" {
			return &domain.ParseError{Filename: e.Name, Parser: kind.String(), Err: errors.New("image needs an uploaded path")}
		}
		text = sourcePath
	}
	id := domain.NewItemID(filename)
	el, err := s.resolver.FromContent(id, kind, filename, text)
	if err != nil {
		return err
	}

	pos := e.Point.Sub(page.Origin())
	patch := domain.PositionPatch(pos.X, pos.Y, page.Index)
	patch.ParserKind = domain.Ptr(kind.String())
	if sourcePath != "" {
		patch.SourcePath = domain.Ptr(sourcePath)
	}
	s.Store.Upsert(id, patch)
	s.place(el, page)
	s.log.Info("file dropped", slog.String("item", id), slog.String("kind", kind.String()), slog.Int("page", page.Index))
	return s.commit(ctx)
}

func (s *Session) reload(e Reload) {
	if s.onReload != nil {
		s.onReload(e.Message)
		return
	}
	s.log.Info("reload requested", slog.String("message", e.Message))
}
