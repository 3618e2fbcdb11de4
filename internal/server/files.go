/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"pageboard/internal/domain"
	"pageboard/internal/storage"
)

const defaultMaxUpload = 32 << 20

func (s *Server) maxUpload() int64 {
	if s.cfg.MaxUploadBytes > 0 {
		return s.cfg.MaxUploadBytes
	}
	return defaultMaxUpload
}

// handleUpload stores the multipart "file" part under user/ with a
// collision-free name.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.maxUpload()
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, errors.New("no file uploaded"))
			return
		}
		if err != nil {
			writeError(w, statusForBodyErr(err), err)
			return
		}
		if part.FormName() != "file" || part.FileName() == "" {
			_ = part.Close()
			continue
		}
		name, size, err := s.cfg.Workspace.StoreUpload(part.FileName(), part, limit)
		_ = part.Close()
		if err != nil {
			s.log.Warn("store upload", slog.String("filename", part.FileName()), slog.Any("err", err))
			writeError(w, statusForBodyErr(err), err)
			return
		}
		s.indexUpload(r, name, size)
		writeJSON(w, http.StatusOK, domain.UploadResult{Success: true, Filename: name, Path: storage.PublicPath(name)})
		return
	}
}

func statusForBodyErr(err error) int {
	var mbe *http.MaxBytesError
	if storage.IsTooLarge(err) || errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func (s *Server) indexUpload(r *http.Request, name string, size int64) {
	u := storage.Upload{Name: name, Path: storage.PublicPath(name), Size: size, UploadedAt: time.Now()}
	if wd, ht, format, err := storage.ProbeImage(filepath.Join(s.cfg.Workspace.UserDir(), name)); err == nil {
		u.Kind, u.Width, u.Height = format, wd, ht
	}
	if s.cfg.Uploads != nil {
		if err := s.cfg.Uploads.Put(r.Context(), u); err != nil {
			s.log.Warn("index upload", slog.String("name", name), slog.Any("err", err))
		}
	}
	s.cfg.Telemetry.FileUploaded(u.Kind, size)
	s.log.Info("file uploaded", slog.String("name", name), slog.Int64("bytes", size), slog.String("kind", u.Kind))
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FilePath string `json:"filepath"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := s.cfg.Workspace.UserFile(req.FilePath)
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, errors.New("file not found"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.cfg.Uploads != nil {
		if err := s.cfg.Uploads.Delete(r.Context(), filepath.Base(p)); err != nil {
			s.log.Warn("unindex upload", slog.String("path", req.FilePath), slog.Any("err", err))
		}
	}
	s.cfg.Telemetry.FileDeleted()
	s.log.Info("file deleted", slog.String("path", req.FilePath))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Uploads == nil {
		writeJSON(w, http.StatusOK, []storage.Upload{})
		return
	}
	list, err := s.cfg.Uploads.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []storage.Upload{}
	}
	writeJSON(w, http.StatusOK, list)
}
