/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server is the HTTP boundary: the editor shell, the positions
// endpoints, uploads, the reload channel and server-side previews.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"pageboard/internal/dom"
	"pageboard/internal/editor"
	applog "pageboard/internal/log"
	"pageboard/internal/storage"
	"pageboard/internal/telemetry"
)

// PageLayout sizes the page containers of the shell. Units are CSS px.
type PageLayout struct {
	Count  int
	Width  float64
	Height float64
	Margin float64
	Gap    float64
}

// Config wires a Server. Workspace and Positions are required.
type Config struct {
	Workspace *storage.Workspace
	Positions storage.PositionStore
	// Uploads is optional; without it uploads are not indexed.
	Uploads        *storage.UploadIndex
	StaticDir      string
	HotReload      bool
	MaxUploadBytes int64
	Pages          PageLayout
	Editor         editor.Options
	Telemetry      *telemetry.Client
	Logger         *slog.Logger
	// BootID identifies this server process; a fresh uuid when empty.
	BootID string
}

type Server struct {
	cfg    Config
	log    *slog.Logger
	router chi.Router
	schema *gojsonschema.Schema
	hub    *hub
	watch  *staticWatcher
}

// New validates cfg and builds the router.
func New(cfg Config) (*Server, error) {
	if cfg.Workspace == nil || cfg.Positions == nil {
		return nil, errors.New("server: workspace and positions store are required")
	}
	if cfg.Pages.Count <= 0 {
		cfg.Pages.Count = 2
	}
	if cfg.Pages.Width <= 0 || cfg.Pages.Height <= 0 {
		cfg.Pages.Width, cfg.Pages.Height = 794, 1123
	}
	if cfg.BootID == "" {
		cfg.BootID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = applog.WithComponent("server")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(positionsSchema))
	if err != nil {
		return nil, fmt.Errorf("compile positions schema: %w", err)
	}
	s := &Server{cfg: cfg, log: cfg.Logger, schema: schema, hub: newHub(cfg.Logger)}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleShell)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)

	r.Get("/load-positions", s.handleLoadPositions)
	r.Post("/save-positions", s.handleSavePositions)
	r.Post("/user", s.handleUpload)
	r.Post("/delete-file", s.handleDeleteFile)
	r.Get("/uploads", s.handleListUploads)
	r.Handle("/user/*", http.StripPrefix(storage.UserURLPrefix, http.FileServer(http.Dir(s.cfg.Workspace.UserDir()))))
	if s.cfg.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir))))
	}

	r.Get("/ws", s.handleWS)
	r.Get("/preview", s.handlePreview)
	r.Get("/export.pdf", s.handleExportPDF)
	r.Get("/export.png", s.handleExportPNG)
	return r
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) BootID() string { return s.cfg.BootID }

// Start begins watching the static dir when hot reload is on.
func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.HotReload || s.cfg.StaticDir == "" {
		return nil
	}
	w, err := newStaticWatcher(s.cfg.StaticDir, 200*time.Millisecond, s.Reload, s.log)
	if err != nil {
		return fmt.Errorf("watch static dir: %w", err)
	}
	s.watch = w
	go w.run(ctx)
	return nil
}

// Reload tells every connected client to reload.
func (s *Server) Reload() { s.hub.broadcast(reloadMessage) }

// Close stops the watcher and drops websocket clients.
func (s *Server) Close() error {
	if s.watch != nil {
		_ = s.watch.close()
	}
	s.hub.closeAll()
	return nil
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("listening", slog.String("addr", addr), slog.String("data", s.cfg.Workspace.Root))
	s.cfg.Telemetry.Event(telemetry.EventServerStarted, nil)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func (s *Server) shellOptions() dom.ShellOptions {
	p := s.cfg.Pages
	return dom.ShellOptions{
		Title:  "pageboard",
		Count:  p.Count,
		Width:  p.Width,
		Height: p.Height,
		Layout: dom.Layout{Margin: p.Margin, Gap: p.Gap},
	}
}

func (s *Server) handleShell(w http.ResponseWriter, _ *http.Request) {
	opts := s.shellOptions()
	opts.Script = "/static/app.js"
	opts.BootID = s.cfg.BootID
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dom.NewShell(opts).Render(w); err != nil {
		s.log.Error("render shell", slog.Any("err", err))
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.cfg.Positions.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, fmt.Errorf("positions store not ready: %w", err))
			return
		}
	}
	if _, err := os.Stat(s.cfg.Workspace.UserDir()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("req", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
