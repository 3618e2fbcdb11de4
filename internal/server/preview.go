/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"pageboard/internal/content"
	"pageboard/internal/dom"
	"pageboard/internal/editor"
	"pageboard/internal/export"
	"pageboard/internal/telemetry"
)

// SessionOptions configures a server-side editor session.
type SessionOptions struct {
	Shell  dom.ShellOptions
	Editor editor.Options
	Logger *slog.Logger
}

// OpenLocalSession builds a document from opts.Shell and runs the editor
// startup sequence against the workspace: load, apply, arrange.
func OpenLocalSession(ctx context.Context, bridge *LocalBridge, opts SessionOptions) (*editor.Session, error) {
	sess := editor.New(editor.Config{
		Doc:      dom.NewShell(opts.Shell),
		Resolver: content.NewResolver(bridge),
		Bridge:   bridge,
		Options:  opts.Editor,
		Logger:   opts.Logger,
	})
	if err := sess.Load(ctx); err != nil {
		return nil, fmt.Errorf("arrange layout: %w", err)
	}
	return sess, nil
}

func (s *Server) bridge() *LocalBridge {
	return &LocalBridge{WS: s.cfg.Workspace, Positions: s.cfg.Positions}
}

// Session runs a fresh editor session over the stored layout.
func (s *Server) Session(ctx context.Context) (*editor.Session, error) {
	return OpenLocalSession(ctx, s.bridge(), SessionOptions{Shell: s.shellOptions(), Editor: s.cfg.Editor, Logger: s.log})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Session(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := sess.Doc.Render(w); err != nil {
		s.log.Error("render preview", slog.Any("err", err))
	}
}

func (s *Server) exportLayout(r *http.Request) ([]export.Page, []export.Item, error) {
	sess, err := s.Session(r.Context())
	if err != nil {
		return nil, nil, err
	}
	pages, items := export.FromSession(sess, s.bridge().ImageFile)
	return pages, items, nil
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	pages, items, err := s.exportLayout(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="layout.pdf"`)
	opt := export.PDFOptions{IncludeLabels: r.URL.Query().Get("labels") != "0"}
	if err := export.LayoutPDF(w, pages, items, opt); err != nil {
		s.log.Error("export pdf", slog.Any("err", err))
		return
	}
	s.cfg.Telemetry.Event(telemetry.EventExported, map[string]any{"format": "pdf", "pages": len(pages)})
}

func (s *Server) handleExportPNG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	scale, _ := strconv.ParseFloat(q.Get("scale"), 64)
	pages, items, err := s.exportLayout(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if page < 0 || page >= len(pages) {
		writeError(w, http.StatusNotFound, fmt.Errorf("page %d out of range", page))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := export.LayoutPNG(w, pages, items, export.PNGOptions{Page: page, Scale: scale}); err != nil {
		s.log.Error("export png", slog.Any("err", err))
		return
	}
	s.cfg.Telemetry.Event(telemetry.EventExported, map[string]any{"format": "png"})
}
