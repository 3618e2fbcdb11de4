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
	"log/slog"

	"pageboard/internal/domain"
	applog "pageboard/internal/log"
)

// Load runs the startup sequence: fetch the saved layout, populate the
// store, apply it to the document, then arrange whatever is left and reset
// the history. Any load failure falls back to a default arrangement of an
// empty store. Load never saves.
func (s *Session) Load(ctx context.Context) error {
	ctx = applog.ContextWithSession(ctx, s.id)
	s.Store.Clear()
	if s.bridge == nil {
		return s.ArrangeDefaults()
	}

	items, err := s.bridge.Load(ctx)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			s.log.InfoContext(ctx, "no saved positions; arranging defaults")
		} else {
			s.report(ctx, "load", err)
		}
		return s.fallback()
	}

	keyed, dropped := domain.AssignIDs(items)
	for _, it := range dropped {
		s.log.WarnContext(ctx, "saved item has neither id nor source path; ignored",
			slog.String("left", it.Left), slog.String("top", it.Top), slog.Int("pageIndex", it.PageIndex))
	}
	s.Store.Import(keyed)

	if err := s.ApplyAll(ctx); err != nil {
		var pe *domain.PlacementError
		if errors.As(err, &pe) {
			s.report(ctx, "load", err)
			return s.fallback()
		}
		// Fetch and parse failures only skip their own items.
		if s.notifier != nil {
			s.notifier.Notify(err.Error())
		}
	}
	s.log.InfoContext(ctx, "positions applied", slog.Int("count", s.Store.Len()))
	return s.ArrangeDefaults()
}

func (s *Session) fallback() error {
	s.Store.Clear()
	return s.ArrangeDefaults()
}
