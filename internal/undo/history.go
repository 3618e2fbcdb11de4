/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo implements the editor's undo/redo history over full snapshots
// of the positional store.
package undo

import (
	"pageboard/internal/store"
)

// DefaultMaxDepth bounds the number of snapshots kept in memory.
const DefaultMaxDepth = 100

// Config controls the depth cap.
type Config struct {
	// MaxDepth is the maximum number of snapshots; the oldest is evicted beyond it.
	MaxDepth int
}

// History is an index-addressed stack of store snapshots. index points at the
// snapshot matching the live store. Snapshots are never mutated after being
// pushed; restoring copies one into the live store.
//
// History is not safe for concurrent use. It belongs to one editor session.
type History struct {
	cfg       Config
	target    *store.Store
	snapshots []store.Snapshot
	index     int
}

// New creates an empty history bound to the live store target.
func New(cfg Config, target *store.Store) *History {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &History{cfg: cfg, target: target, index: -1}
}

// Init replaces the stack with a single copy of initial.
func (h *History) Init(initial store.Snapshot) {
	h.snapshots = []store.Snapshot{initial.Clone()}
	h.index = 0
}

// Record pushes a copy of the live store as the newest snapshot. Any redo
// tail is discarded first. When the stack overflows, the oldest snapshot is
// evicted and the index shifts down with it.
func (h *History) Record() {
	if h.index < 0 {
		h.Init(h.target.Snapshot())
		return
	}
	if h.index < len(h.snapshots)-1 {
		clear(h.snapshots[h.index+1:])
		h.snapshots = h.snapshots[:h.index+1]
	}
	h.snapshots = append(h.snapshots, h.target.Snapshot())
	h.index = len(h.snapshots) - 1
	for len(h.snapshots) > h.cfg.MaxDepth {
		h.snapshots[0] = nil
		h.snapshots = h.snapshots[1:]
		h.index--
	}
}

// Undo steps back one snapshot and restores it into the live store.
// It returns a copy of the restored state, or false at the oldest snapshot.
func (h *History) Undo() (store.Snapshot, bool) {
	if h.index <= 0 {
		return nil, false
	}
	h.index--
	return h.restore(), true
}

// Redo steps forward one snapshot, symmetric to Undo.
func (h *History) Redo() (store.Snapshot, bool) {
	if h.index < 0 || h.index >= len(h.snapshots)-1 {
		return nil, false
	}
	h.index++
	return h.restore(), true
}

func (h *History) restore() store.Snapshot {
	snap := h.snapshots[h.index].Clone()
	h.target.Restore(snap)
	return snap.Clone()
}

func (h *History) CanUndo() bool { return h.index > 0 }
func (h *History) CanRedo() bool { return h.index >= 0 && h.index < len(h.snapshots)-1 }

// Len returns the number of retained snapshots.
func (h *History) Len() int { return len(h.snapshots) }

// Index returns the position of the current snapshot, -1 before Init.
func (h *History) Index() int { return h.index }

// Initialized reports whether Init (or a first Record) happened.
func (h *History) Initialized() bool { return h.index >= 0 }
