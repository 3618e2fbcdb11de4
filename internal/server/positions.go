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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"pageboard/internal/domain"
)

const maxPositionsBytes = 8 << 20

// positionsSchema describes the body of POST /save-positions.
const positionsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["objects"],
  "properties": {
    "objects": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["left", "top"],
        "properties": {
          "id":         {"type": "string", "minLength": 1},
          "left":       {"type": "string"},
          "top":        {"type": "string"},
          "width":      {"type": "string"},
          "height":     {"type": "string"},
          "pageIndex":  {"type": "integer", "minimum": 0},
          "opacity":    {"type": "number", "minimum": 0, "maximum": 1},
          "scale":      {"type": "string"},
          "rotation":   {"type": "integer"},
          "parserKind": {"type": "string"},
          "sourcePath": {"type": "string"}
        },
        "anyOf": [{"required": ["id"]}, {"required": ["sourcePath"]}]
      }
    }
  }
}`

func (s *Server) handleLoadPositions(w http.ResponseWriter, r *http.Request) {
	items, err := s.cfg.Positions.Load(r.Context())
	var nf *domain.NotFoundError
	switch {
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, struct{}{})
		return
	case err != nil:
		s.log.Error("load positions", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []domain.SavedItem{}
	}
	writeJSON(w, http.StatusOK, domain.Positions{Objects: items})
}

func (s *Server) handleSavePositions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPositionsBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body) > maxPositionsBytes {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("positions payload too large"))
		return
	}
	if err := s.validatePositions(body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var env domain.Positions
	if err := json.Unmarshal(body, &env); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for i := range env.Objects {
		env.Objects[i].ItemRecord = env.Objects[i].Normalize()
	}
	if err := s.cfg.Positions.Save(r.Context(), env.Objects); err != nil {
		s.log.Error("save positions", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.cfg.Telemetry.PositionsSaved(len(env.Objects))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) validatePositions(body []byte) error {
	res, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.New(strings.Join(msgs, "; "))
}
