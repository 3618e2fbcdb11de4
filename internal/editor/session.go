/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor holds the editor session: the positional store, its undo
// history and the document, driven by gesture events. Every gesture is a
// state transition applied through Session.Dispatch.
package editor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"pageboard/internal/content"
	"pageboard/internal/dom"
	"pageboard/internal/domain"
	applog "pageboard/internal/log"
	"pageboard/internal/store"
	"pageboard/internal/undo"
	"pageboard/internal/vector"
)

// Bridge is the persistence boundary.
type Bridge interface {
	Load(ctx context.Context) ([]domain.SavedItem, error)
	Save(ctx context.Context, items []domain.SavedItem) error
	Upload(ctx context.Context, filename string, data []byte) (domain.UploadResult, error)
	DeleteFile(ctx context.Context, filePath string) error
}

// Notifier shows transient messages (toasts) to the user.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Options tunes layout and gesture steps.
type Options struct {
	Padding       float64
	Spacing       float64
	DefaultHeight float64
	OpacityStep   float64
	ScaleStep     float64
	MinScale      float64
	RotationStep  int
	HistoryDepth  int
}

func DefaultOptions() Options {
	return Options{
		Padding:       20,
		Spacing:       15,
		DefaultHeight: 100,
		OpacityStep:   0.05,
		ScaleStep:     0.05,
		MinScale:      0.1,
		RotationStep:  5,
		HistoryDepth:  undo.DefaultMaxDepth,
	}
}

// Config wires a Session. Doc and Resolver are required; the rest may be nil.
type Config struct {
	Doc       *dom.Document
	Resolver  *content.Resolver
	Bridge    Bridge
	Notifier  Notifier
	Confirmer Confirmer
	Options   Options
	Logger    *slog.Logger
	// OnReload runs when the server asks for a reload.
	OnReload func(msg string)
}

// dragState tracks an element drag; offset is the pointer position minus
// the element origin at grab time.
type dragState struct {
	id     string
	offset vector.Pt
}

// Session is one editor instance. It is not safe for concurrent use:
// events must be dispatched from a single goroutine.
type Session struct {
	id      string
	Store   *store.Store
	History *undo.History
	Doc     *dom.Document

	resolver  *content.Resolver
	bridge    Bridge
	notifier  Notifier
	confirmer Confirmer
	onReload  func(string)
	opts      Options
	log       *slog.Logger

	drag     *dragState
	selected string
	// detached keeps elements removed by deletion or undo so a later
	// restore can reattach them without a fetch.
	detached map[string]*dom.Element
}

// New creates a session with an empty store and an uninitialized history.
func New(cfg Config) *Session {
	opts := cfg.Options
	if opts == (Options{}) {
		opts = DefaultOptions()
	}
	l := cfg.Logger
	if l == nil {
		l = applog.WithComponent("editor")
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = content.NewResolver(nil)
	}
	st := store.New()
	return &Session{
		id:        uuid.NewString(),
		Store:     st,
		History:   undo.New(undo.Config{MaxDepth: opts.HistoryDepth}, st),
		Doc:       cfg.Doc,
		resolver:  resolver,
		bridge:    cfg.Bridge,
		notifier:  cfg.Notifier,
		confirmer: cfg.Confirmer,
		onReload:  cfg.OnReload,
		opts:      opts,
		log:       l,
		detached:  make(map[string]*dom.Element),
	}
}

// ID identifies the session in log records.
func (s *Session) ID() string { return s.id }

// Selected returns the id of the selected item, "" when none.
func (s *Session) Selected() string { return s.selected }

// Dragging reports whether an element drag is in progress.
func (s *Session) Dragging() bool { return s.drag != nil }

// Save persists the normalized store.
func (s *Session) Save(ctx context.Context) error {
	if s.bridge == nil {
		return nil
	}
	items := s.Store.Export()
	if err := s.bridge.Save(ctx, items); err != nil {
		return err
	}
	s.log.DebugContext(ctx, "positions saved", slog.Int("count", len(items)))
	return nil
}

// commit closes one discrete user action: history push, then save.
func (s *Session) commit(ctx context.Context) error {
	s.History.Record()
	return s.Save(ctx)
}

// report surfaces err to the user and the log.
func (s *Session) report(ctx context.Context, op string, err error) {
	applog.WithOperation(s.log, op).LogAttrs(ctx, slog.LevelWarn, "action failed", slog.String("err", err.Error()))
	if s.notifier != nil {
		s.notifier.Notify(err.Error())
	}
}
