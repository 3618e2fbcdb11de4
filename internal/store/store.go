/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store holds the positional store: the single source of truth for
// where every layout item sits and how it is transformed.
package store

import (
	"maps"
	"slices"

	"pageboard/internal/domain"
)

// Snapshot is an independent copy of the whole store. Records are values,
// so a shallow map copy is a full structural clone.
type Snapshot map[string]domain.ItemRecord

// Clone returns an independent copy of s.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return maps.Clone(s)
}

// Store maps item identifiers to their records. It is not safe for
// concurrent use; an editor session owns exactly one and drives it from a
// single goroutine.
type Store struct {
	items map[string]domain.ItemRecord
}

func New() *Store { return &Store{items: make(map[string]domain.ItemRecord)} }

// Upsert merges p into the record for id, creating it with the default
// position when absent, and normalizes the result.
func (s *Store) Upsert(id string, p domain.Patch) {
	rec, ok := s.items[id]
	if !ok {
		rec = domain.NewRecord()
	}
	s.items[id] = rec.Apply(p)
}

// Get returns the record for id.
func (s *Store) Get(id string) (domain.ItemRecord, bool) {
	rec, ok := s.items[id]
	return rec, ok
}

// Has reports whether id is present.
func (s *Store) Has(id string) bool {
	_, ok := s.items[id]
	return ok
}

// Remove deletes id; absent ids are ignored.
func (s *Store) Remove(id string) { delete(s.items, id) }

// Clear empties the store in place.
func (s *Store) Clear() { clear(s.items) }

func (s *Store) Len() int { return len(s.items) }

// IDs returns all identifiers in sorted order.
func (s *Store) IDs() []string {
	return slices.Sorted(maps.Keys(s.items))
}

// Snapshot returns a deep copy of the current contents.
func (s *Store) Snapshot() Snapshot { return maps.Clone(Snapshot(s.items)) }

// Restore replaces the contents with a copy of snap. The Store value itself
// is kept, so references held by controllers stay valid.
func (s *Store) Restore(snap Snapshot) {
	clear(s.items)
	maps.Copy(s.items, snap)
}

// Export returns the normalized wire form of every record, sorted by id.
// The id is only emitted for records without a source path; sourced records
// are re-keyed from their path on load.
func (s *Store) Export() []domain.SavedItem {
	out := make([]domain.SavedItem, 0, len(s.items))
	for _, id := range s.IDs() {
		rec := s.items[id].Normalize()
		it := domain.SavedItem{ItemRecord: rec}
		if rec.SourcePath == "" {
			it.ID = id
		}
		out = append(out, it)
	}
	return out
}

// Import clears the store and loads items, which must already carry ids
// (see domain.AssignIDs). Records are normalized on the way in.
func (s *Store) Import(items []domain.SavedItem) {
	clear(s.items)
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		s.items[it.ID] = it.ItemRecord.Normalize()
	}
}
