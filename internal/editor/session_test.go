/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pageboard/internal/content"
	"pageboard/internal/dom"
	"pageboard/internal/domain"
	applog "pageboard/internal/log"
	"pageboard/internal/vector"
)

type fakeBridge struct {
	loadItems []domain.SavedItem
	loadErr   error
	saveErr   error
	saves     [][]domain.SavedItem
	uploads   []string
	deleted   []string
}

func (b *fakeBridge) Load(context.Context) ([]domain.SavedItem, error) {
	return b.loadItems, b.loadErr
}

func (b *fakeBridge) Save(_ context.Context, items []domain.SavedItem) error {
	b.saves = append(b.saves, items)
	return b.saveErr
}

func (b *fakeBridge) Upload(_ context.Context, name string, _ []byte) (domain.UploadResult, error) {
	b.uploads = append(b.uploads, name)
	return domain.UploadResult{Success: true, Filename: name, Path: "/user/" + name}, nil
}

func (b *fakeBridge) DeleteFile(_ context.Context, p string) error {
	b.deleted = append(b.deleted, p)
	return nil
}

type fakeFetcher struct {
	files map[string]string
	calls int
}

func (f *fakeFetcher) FetchText(_ context.Context, p string) (string, error) {
	f.calls++
	if s, ok := f.files[p]; ok {
		return s, nil
	}
	return "", &domain.FetchError{URL: p, Status: 404}
}

type harness struct {
	s       *Session
	bridge  *fakeBridge
	fetcher *fakeFetcher
	notes   []string
}

func newHarness(t *testing.T, doc *dom.Document) *harness {
	t.Helper()
	h := &harness{bridge: &fakeBridge{}, fetcher: &fakeFetcher{files: map[string]string{}}}
	h.s = New(Config{
		Doc:      doc,
		Resolver: content.NewResolver(h.fetcher),
		Bridge:   h.bridge,
		Notifier: NotifierFunc(func(msg string) { h.notes = append(h.notes, msg) }),
		Logger:   applog.Discard(),
	})
	return h
}

func shell(count int) *dom.Document {
	return dom.NewShell(dom.ShellOptions{Count: count, Width: 794, Height: 1123, Layout: dom.Layout{Margin: 20, Gap: 40}})
}

// addItem places a bare element on page 0 with a matching record.
func (h *harness) addItem(t *testing.T, id string, x, y float64) *dom.Element {
	t.Helper()
	el := dom.NewElement(id, nil, dom.Meta{NaturalWidth: 50, NaturalHeight: 50})
	p, ok := h.s.Doc.Page(0)
	if !ok {
		t.Fatalf("no page 0")
	}
	h.s.Doc.Place(el, p)
	h.s.Store.Upsert(id, domain.PositionPatch(x, y, 0))
	styleElement(el, mustGet(t, h.s, id))
	return el
}

func mustGet(t *testing.T, s *Session, id string) domain.ItemRecord {
	t.Helper()
	rec, ok := s.Store.Get(id)
	if !ok {
		t.Fatalf("record %q missing", id)
	}
	return rec
}

func style(t *testing.T, el *dom.Element, prop string) string {
	t.Helper()
	v, _ := el.Style(prop)
	return v
}

func TestFileDropPlacesRelativeToPage(t *testing.T) {
	doc := shell(2)
	doc.SetPageBounds(0, vector.R(900, 20, 794, 1123))
	doc.SetPageBounds(1, vector.R(50, 20, 794, 1123))
	h := newHarness(t, doc)
	ctx := context.Background()

	err := h.s.Dispatch(ctx, FileDrop{Name: "song.txt", Data: []byte("[C]la la"), Point: vector.Pt{X: 150, Y: 300}})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	ids := h.s.Store.IDs()
	if len(ids) != 1 || !strings.HasPrefix(ids[0], "song-") {
		t.Fatalf("unexpected ids %v", ids)
	}
	rec := mustGet(t, h.s, ids[0])
	if rec.Left != "100px" || rec.Top != "280px" || rec.PageIndex != 1 {
		t.Fatalf("unexpected placement %+v", rec)
	}
	if rec.ParserKind != "chord" || rec.SourcePath != "/user/song.txt" {
		t.Fatalf("source not recorded: %+v", rec)
	}
	el, ok := doc.ElementByID(ids[0])
	if !ok {
		t.Fatalf("dropped element not in document")
	}
	if p, _ := doc.PageOf(el); p.Index != 1 {
		t.Fatalf("element on page %d", p.Index)
	}
	if len(h.bridge.uploads) != 1 || len(h.bridge.saves) != 1 || h.s.History.Len() != 1 {
		t.Fatalf("uploads=%d saves=%d history=%d", len(h.bridge.uploads), len(h.bridge.saves), h.s.History.Len())
	}
}

func TestFileDropErrors(t *testing.T) {
	h := newHarness(t, shell(1))
	ctx := context.Background()

	var pe *domain.PlacementError
	if err := h.s.Dispatch(ctx, FileDrop{Name: "a.txt", Point: vector.Pt{X: 1, Y: 1}}); !errors.As(err, &pe) {
		t.Fatalf("drop outside pages should be a PlacementError, got %v", err)
	}
	var parseErr *domain.ParseError
	if err := h.s.Dispatch(ctx, FileDrop{Name: "a.zip", Point: vector.Pt{X: 100, Y: 100}}); !errors.As(err, &parseErr) {
		t.Fatalf("unsupported file should be a ParseError, got %v", err)
	}
	if len(h.notes) != 2 || len(h.bridge.uploads) != 0 || h.s.Store.Len() != 0 {
		t.Fatalf("notes=%v uploads=%v", h.notes, h.bridge.uploads)
	}
}

func TestWheelOpacityTicks(t *testing.T) {
	h := newHarness(t, shell(1))
	el := h.addItem(t, "a", 10, 10)
	h.s.History.Init(h.s.Store.Snapshot())
	ctx := context.Background()

	if err := h.s.Dispatch(ctx, Wheel{ID: "a", DeltaY: -100, Mods: ModAlt}); err != nil {
		t.Fatalf("wheel: %v", err)
	}
	if got := mustGet(t, h.s, "a").Opacity; got != 0.95 {
		t.Fatalf("opacity after one tick up = %v", got)
	}
	if style(t, el, "opacity") != "0.95" {
		t.Fatalf("opacity style %q", style(t, el, "opacity"))
	}
	for i := 0; i < 5; i++ {
		if err := h.s.Dispatch(ctx, Wheel{ID: "a", DeltaY: 100, Mods: ModAlt}); err != nil {
			t.Fatalf("wheel: %v", err)
		}
	}
	if got := mustGet(t, h.s, "a").Opacity; got != 0 {
		t.Fatalf("opacity should be absent, got %v", got)
	}
	if _, ok := el.Style("opacity"); ok {
		t.Fatalf("opacity style should be cleared")
	}
	if len(h.bridge.saves) != 6 || h.s.History.Len() != 7 {
		t.Fatalf("saves=%d history=%d", len(h.bridge.saves), h.s.History.Len())
	}
}

func TestWheelScaleRotationAndPlain(t *testing.T) {
	h := newHarness(t, shell(1))
	el := h.addItem(t, "a", 0, 0)
	ctx := context.Background()

	_ = h.s.Dispatch(ctx, Wheel{ID: "a", DeltaY: -1, Mods: ModCtrl})
	_ = h.s.Dispatch(ctx, Wheel{ID: "a", DeltaY: -1, Mods: ModShift})
	rec := mustGet(t, h.s, "a")
	if rec.Scale != "1.05" || rec.Rotation != 5 {
		t.Fatalf("unexpected transform record %+v", rec)
	}
	if style(t, el, "transform") != "rotate(5deg) scale(1.05)" {
		t.Fatalf("transform style %q", style(t, el, "transform"))
	}
	for i := 0; i < 40; i++ {
		_ = h.s.Dispatch(ctx, Wheel{ID: "a", DeltaY: 1, Mods: ModMeta})
	}
	if got := mustGet(t, h.s, "a").Scale; got != "0.1" {
		t.Fatalf("scale should clamp at 0.1, got %q", got)
	}
	saves := len(h.bridge.saves)
	_ = h.s.Dispatch(ctx, Wheel{ID: "a", DeltaY: -1})
	if len(h.bridge.saves) != saves {
		t.Fatalf("wheel without modifier must be ignored")
	}
}

func TestDragAndDropKeepsGrabOffset(t *testing.T) {
	h := newHarness(t, shell(2))
	el := h.addItem(t, "a", 10, 10)
	h.s.History.Init(h.s.Store.Snapshot())
	ctx := context.Background()

	// page 0 starts at (20,20), so the element origin is (30,30)
	if err := h.s.Dispatch(ctx, DragStart{ID: "a", Point: vector.Pt{X: 40, Y: 35}}); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	_ = h.s.Dispatch(ctx, DragOver{Point: vector.Pt{X: 100, Y: 100}})
	if len(h.bridge.saves) != 0 || mustGet(t, h.s, "a").Left != "10px" {
		t.Fatalf("drag over must not touch the store")
	}
	if err := h.s.Dispatch(ctx, Drop{Point: vector.Pt{X: 200, Y: 300}}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	rec := mustGet(t, h.s, "a")
	if rec.Left != "170px" || rec.Top != "275px" || rec.PageIndex != 0 {
		t.Fatalf("unexpected drop record %+v", rec)
	}
	if style(t, el, "left") != "170px" || el.HasClass("dragging") || h.s.Dragging() {
		t.Fatalf("drag state not cleaned up")
	}

	// a drop onto page 1 moves the element across containers
	_ = h.s.Dispatch(ctx, DragStart{ID: "a", Point: vector.Pt{X: 190, Y: 295}})
	if err := h.s.Dispatch(ctx, Drop{Point: vector.Pt{X: 100, Y: 1250}}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if p, _ := h.s.Doc.PageOf(el); p.Index != 1 || mustGet(t, h.s, "a").PageIndex != 1 {
		t.Fatalf("element should be on page 1")
	}

	_ = h.s.Dispatch(ctx, DragStart{ID: "a", Point: vector.Pt{X: 100, Y: 1250}})
	before := mustGet(t, h.s, "a")
	var pe *domain.PlacementError
	if err := h.s.Dispatch(ctx, Drop{Point: vector.Pt{X: 5000, Y: 5000}}); !errors.As(err, &pe) {
		t.Fatalf("expected PlacementError, got %v", err)
	}
	if mustGet(t, h.s, "a") != before || len(h.bridge.saves) != 2 {
		t.Fatalf("failed drop must leave the item untouched")
	}
}

func TestFileEventsIgnoredDuringDrag(t *testing.T) {
	h := newHarness(t, shell(1))
	h.addItem(t, "a", 0, 0)
	ctx := context.Background()
	_ = h.s.Dispatch(ctx, DragStart{ID: "a", Point: vector.Pt{X: 25, Y: 25}})
	if err := h.s.Dispatch(ctx, FileDrop{Name: "b.txt", Data: []byte("x"), Point: vector.Pt{X: 100, Y: 100}}); err != nil {
		t.Fatalf("file drop during drag should be ignored, got %v", err)
	}
	_ = h.s.Dispatch(ctx, FileDragOver{Point: vector.Pt{X: 100, Y: 100}})
	if _, ok := h.s.Doc.DropTarget(); ok {
		t.Fatalf("file drag-over during element drag must not mark a target")
	}
	if len(h.bridge.uploads) != 0 || h.s.Store.Len() != 1 {
		t.Fatalf("file drop leaked through an active drag")
	}
}

func TestUndoRedoKeys(t *testing.T) {
	h := newHarness(t, shell(1))
	el := h.addItem(t, "a", 10, 10)
	h.s.History.Init(h.s.Store.Snapshot())
	ctx := context.Background()

	_ = h.s.Dispatch(ctx, DragStart{ID: "a", Point: vector.Pt{X: 30, Y: 30}})
	_ = h.s.Dispatch(ctx, Drop{Point: vector.Pt{X: 130, Y: 130}})
	if mustGet(t, h.s, "a").Left != "110px" {
		t.Fatalf("drop did not move the item")
	}

	if err := h.s.Dispatch(ctx, KeyDown{Key: "z", Mods: ModCtrl}); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if mustGet(t, h.s, "a").Left != "10px" || style(t, el, "left") != "10px" {
		t.Fatalf("undo did not restore the position")
	}
	if h.s.History.Len() != 2 || h.s.History.Index() != 0 || len(h.bridge.saves) != 2 {
		t.Fatalf("undo must save without recording: len=%d idx=%d saves=%d", h.s.History.Len(), h.s.History.Index(), len(h.bridge.saves))
	}

	if err := h.s.Dispatch(ctx, KeyDown{Key: "Z", Mods: ModMeta | ModShift}); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if mustGet(t, h.s, "a").Left != "110px" {
		t.Fatalf("redo did not reapply the drop")
	}
	_ = h.s.Dispatch(ctx, KeyDown{Key: "z", Mods: ModCtrl})
	_ = h.s.Dispatch(ctx, KeyDown{Key: "y", Mods: ModCtrl})
	if mustGet(t, h.s, "a").Left != "110px" {
		t.Fatalf("ctrl+y should redo")
	}
}

func TestDeleteSelectedConfirmsAndUndoReattaches(t *testing.T) {
	h := newHarness(t, shell(1))
	h.addItem(t, "a", 10, 10)
	h.s.Store.Upsert("a", domain.Patch{SourcePath: domain.Ptr("/user/a.svg"), ParserKind: domain.Ptr("svg")})
	h.s.History.Init(h.s.Store.Snapshot())
	var prompts []string
	h.s.confirmer = ConfirmFunc(func(_ context.Context, p string) bool {
		prompts = append(prompts, p)
		return true
	})
	ctx := context.Background()

	if err := h.s.Dispatch(ctx, KeyDown{Key: "Delete"}); err != nil || len(h.bridge.saves) != 0 {
		t.Fatalf("delete without selection should be a no-op")
	}
	_ = h.s.Dispatch(ctx, Click{ID: "a"})
	if h.s.Selected() != "a" {
		t.Fatalf("click should select")
	}
	if err := h.s.Dispatch(ctx, KeyDown{Key: "Backspace"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if h.s.Store.Has("a") {
		t.Fatalf("record should be removed")
	}
	if _, ok := h.s.Doc.ElementByID("a"); ok {
		t.Fatalf("element should be removed")
	}
	if len(prompts) != 1 || len(h.bridge.deleted) != 1 || h.bridge.deleted[0] != "/user/a.svg" {
		t.Fatalf("prompts=%v deleted=%v", prompts, h.bridge.deleted)
	}

	_ = h.s.Dispatch(ctx, KeyDown{Key: "z", Mods: ModCtrl})
	el, ok := h.s.Doc.ElementByID("a")
	if !ok || !h.s.Store.Has("a") {
		t.Fatalf("undo should bring the item back")
	}
	if h.fetcher.calls != 0 {
		t.Fatalf("reattaching a deleted element must not refetch")
	}
	if style(t, el, "left") != "10px" {
		t.Fatalf("restored element not styled")
	}
}

func TestClickAndEscapeClearSelection(t *testing.T) {
	h := newHarness(t, shell(1))
	a := h.addItem(t, "a", 0, 0)
	b := h.addItem(t, "b", 0, 0)
	ctx := context.Background()
	_ = h.s.Dispatch(ctx, Click{ID: "a"})
	_ = h.s.Dispatch(ctx, Click{ID: "b"})
	if a.HasClass(dom.ClassSelected) || !b.HasClass(dom.ClassSelected) {
		t.Fatalf("only b should be selected")
	}
	_ = h.s.Dispatch(ctx, KeyDown{Key: "Escape"})
	if b.HasClass(dom.ClassSelected) || h.s.Selected() != "" {
		t.Fatalf("escape should clear the selection")
	}
}

func TestReloadCallsHook(t *testing.T) {
	h := newHarness(t, shell(1))
	if err := h.s.Dispatch(context.Background(), Reload{Message: "reload"}); err != nil {
		t.Fatalf("reload without hook must not fail: %v", err)
	}
	var got string
	h.s.onReload = func(msg string) { got = msg }
	_ = h.s.Dispatch(context.Background(), Reload{Message: "reload"})
	if got != "reload" {
		t.Fatalf("hook not called")
	}
}

func TestApplyAllRecreatesMissingElement(t *testing.T) {
	doc := shell(2)
	h := newHarness(t, doc)
	h.fetcher.files["/user/a.svg"] = `<svg width="10" height="10"></svg>`
	h.s.Store.Upsert("x", domain.Patch{
		Left: domain.Ptr("10px"), Top: domain.Ptr("10px"),
		SourcePath: domain.Ptr("/user/a.svg"), ParserKind: domain.Ptr("svg"),
	})

	if err := h.s.ApplyAll(context.Background()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	els := doc.Elements()
	if len(els) != 1 || els[0].ID() != "x" {
		t.Fatalf("expected exactly one element x, got %d", len(els))
	}
	if p, _ := doc.PageOf(els[0]); p.Index != 0 {
		t.Fatalf("element should be on page 0")
	}
	want := "position: absolute; left: 10px; top: 10px; transform: rotate(0deg) scale(1)"
	if got := els[0].StyleText(); got != want {
		t.Fatalf("style %q, want %q", got, want)
	}

	var first bytes.Buffer
	_ = doc.Render(&first)
	if err := h.s.ApplyAll(context.Background()); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	var second bytes.Buffer
	_ = doc.Render(&second)
	if first.String() != second.String() || len(doc.Elements()) != 1 || h.fetcher.calls != 1 {
		t.Fatalf("ApplyAll is not idempotent")
	}
}

func TestApplyAllSkipsFailingItems(t *testing.T) {
	h := newHarness(t, shell(1))
	h.s.Store.Upsert("gone", domain.Patch{SourcePath: domain.Ptr("/user/gone.svg"), ParserKind: domain.Ptr("svg")})
	h.s.Store.Upsert("img", domain.Patch{SourcePath: domain.Ptr("/user/cat.png"), ParserKind: domain.Ptr("image"), PageIndex: domain.Ptr(7)})
	h.s.Store.Upsert("orphan", domain.Patch{})

	err := h.s.ApplyAll(context.Background())
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected a joined FetchError, got %v", err)
	}
	if _, ok := h.s.Doc.ElementByID("img"); !ok {
		t.Fatalf("healthy item should still be placed")
	}
	if el, _ := h.s.Doc.ElementByID("img"); el != nil {
		if p, _ := h.s.Doc.PageOf(el); p.Index != 0 {
			t.Fatalf("page past the end should fall back to the last page")
		}
	}
	if !h.s.Store.Has("gone") || !h.s.Store.Has("orphan") {
		t.Fatalf("skipped items must stay in the store")
	}
}

func TestArrangeDefaultsFlowsColumnsAndOverflows(t *testing.T) {
	doc := dom.NewShell(dom.ShellOptions{Count: 1, Width: 400, Height: 300})
	h := newHarness(t, doc)
	p, _ := doc.Page(0)
	for _, id := range []string{"i1", "i2", "i3", "i4", "i5"} {
		doc.Place(dom.NewElement(id, nil, dom.Meta{NaturalWidth: 10, NaturalHeight: 100}), p)
	}
	if err := h.s.ArrangeDefaults(); err != nil {
		t.Fatalf("arrange: %v", err)
	}
	want := map[string][2]string{
		"i1": {"20px", "20px"},
		"i2": {"20px", "135px"},
		"i3": {"210px", "20px"},
		"i4": {"210px", "135px"},
		"i5": {"210px", "20px"}, // pages exhausted: overlaps on the last page
	}
	for id, pos := range want {
		rec := mustGet(t, h.s, id)
		if rec.Left != pos[0] || rec.Top != pos[1] || rec.PageIndex != 0 {
			t.Fatalf("%s placed at %s,%s page %d; want %v", id, rec.Left, rec.Top, rec.PageIndex, pos)
		}
	}
	if !h.s.History.Initialized() || h.s.History.Len() != 1 || len(h.bridge.saves) != 0 {
		t.Fatalf("arrange must init history and never save")
	}
}

func TestLoad404ArrangesAndInitializesHistory(t *testing.T) {
	doc := shell(2)
	h := newHarness(t, doc)
	h.bridge.loadErr = &domain.NotFoundError{What: "saved positions"}
	p, _ := doc.Page(0)
	doc.Place(dom.NewElement("one", nil, dom.Meta{NaturalWidth: 50, NaturalHeight: 40}), p)
	doc.Place(dom.NewElement("two", nil, dom.Meta{}), p)

	if err := h.s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := mustGet(t, h.s, "one"); got.Left != "20px" || got.Top != "20px" {
		t.Fatalf("one at %+v", got)
	}
	if got := mustGet(t, h.s, "two"); got.Top != "75px" {
		t.Fatalf("two at %+v", got)
	}
	if !h.s.History.Initialized() || h.s.History.Len() != 1 {
		t.Fatalf("history should hold the arrangement")
	}
	if len(h.bridge.saves) != 0 || len(h.notes) != 0 {
		t.Fatalf("404 is not an error and load never saves")
	}
}

func TestLoadAppliesSavedItems(t *testing.T) {
	doc := shell(2)
	h := newHarness(t, doc)
	h.fetcher.files["/user/a.svg"] = `<svg width="10" height="10"></svg>`
	h.bridge.loadItems = []domain.SavedItem{
		{ItemRecord: domain.ItemRecord{Left: "5px", Top: "6px", PageIndex: 1, SourcePath: "/user/a.svg", ParserKind: "svg", Opacity: 0.5}},
		{ItemRecord: domain.ItemRecord{Left: "1px", Top: "1px", SourcePath: "/user/missing.svg"}},
		{ItemRecord: domain.ItemRecord{Left: "9px", Top: "9px"}},
	}
	if err := h.s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	el, ok := doc.ElementByID("src:/user/a.svg")
	if !ok {
		t.Fatalf("saved svg not recreated")
	}
	if pg, _ := doc.PageOf(el); pg.Index != 1 || style(t, el, "opacity") != "0.5" {
		t.Fatalf("saved svg misplaced")
	}
	if !h.s.Store.Has("src:/user/missing.svg") || h.s.Store.Len() != 2 {
		t.Fatalf("failing item must stay, anonymous item must be dropped: %v", h.s.Store.IDs())
	}
	if len(h.notes) != 1 {
		t.Fatalf("fetch failure should be reported once, got %v", h.notes)
	}
}

func TestLoadPlacementFailureFallsBack(t *testing.T) {
	h := newHarness(t, shell(0))
	h.bridge.loadItems = []domain.SavedItem{{ItemRecord: domain.ItemRecord{SourcePath: "/user/cat.png", ParserKind: "image"}}}
	if err := h.s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if h.s.Store.Len() != 0 || !h.s.History.Initialized() {
		t.Fatalf("placement failure should fall back to an empty arrangement")
	}
}

func TestSaveFailureIsReportedButKeepsState(t *testing.T) {
	h := newHarness(t, shell(1))
	h.addItem(t, "a", 0, 0)
	h.bridge.saveErr = &domain.PersistenceError{Err: errors.New("disk full")}
	err := h.s.Dispatch(context.Background(), Wheel{ID: "a", DeltaY: -1, Mods: ModShift})
	var pe *domain.PersistenceError
	if !errors.As(err, &pe) || len(h.notes) != 1 {
		t.Fatalf("expected reported PersistenceError, got %v", err)
	}
	if mustGet(t, h.s, "a").Rotation != 5 {
		t.Fatalf("the edit itself must survive a failed save")
	}
}

func TestWheelTargetsItemNotLookalikeSnippet(t *testing.T) {
	doc := shell(2)
	h := newHarness(t, doc)
	realEl := dom.NewElement("a", nil, dom.Meta{NaturalWidth: 50, NaturalHeight: 50})
	p1, _ := doc.Page(1)
	doc.Place(realEl, p1)
	h.s.Store.Upsert("a", domain.PositionPatch(10, 10, 1))

	res, err := content.NewResolver(nil).FromContent("snip-1", "html", "x.html", `<div class="draggable" id="a">hi</div>`)
	if err != nil {
		t.Fatalf("snippet: %v", err)
	}
	p0, _ := doc.Page(0)
	doc.Place(res, p0)
	h.s.Store.Upsert("snip-1", domain.PositionPatch(0, 0, 0))
	h.s.History.Init(h.s.Store.Snapshot())

	if err := h.s.Dispatch(context.Background(), Wheel{ID: "a", DeltaY: -1, Mods: ModAlt}); err != nil {
		t.Fatalf("wheel: %v", err)
	}
	if style(t, realEl, "opacity") != "0.95" {
		t.Fatalf("real item opacity style = %q", style(t, realEl, "opacity"))
	}
	if got, ok := doc.ElementByID("a"); !ok || got.Node() != realEl.Node() {
		t.Fatalf("lookup resolved to the snippet")
	}
}

func TestDispatchLogsCarrySessionID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editor.log")
	applog.Init(applog.Options{Level: "warn", Format: "json", File: path})
	t.Cleanup(func() { applog.Init(applog.Options{Level: "error", Format: "json"}) })

	s := New(Config{Doc: shell(1)})
	if err := s.Dispatch(context.Background(), DragStart{ID: "missing"}); err == nil {
		t.Fatalf("drag on a missing item should fail")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		if json.Unmarshal(sc.Bytes(), &rec) != nil {
			continue
		}
		if rec["msg"] == "action failed" {
			if rec["session"] != s.ID() || rec["component"] != "editor" {
				t.Fatalf("record lacks session context: %v", rec)
			}
			return
		}
	}
	t.Fatalf("no action failed record in %s", path)
}
