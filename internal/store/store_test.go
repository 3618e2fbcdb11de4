/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"pageboard/internal/domain"
)

func TestUpsertCreatesWithDefaults(t *testing.T) {
	s := New()
	s.Upsert("a", domain.Patch{PageIndex: domain.Ptr(1)})
	got, ok := s.Get("a")
	if !ok {
		t.Fatalf("record not created")
	}
	want := domain.ItemRecord{Left: "0px", Top: "0px", PageIndex: 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestUpsertNormalizes(t *testing.T) {
	s := New()
	s.Upsert("x", domain.Patch{Opacity: domain.Ptr(0.5), Rotation: domain.Ptr(30), Scale: domain.Ptr("2")})
	s.Upsert("x", domain.Patch{Opacity: domain.Ptr(1.0)})
	s.Upsert("x", domain.Patch{Rotation: domain.Ptr(0)})
	s.Upsert("x", domain.Patch{Scale: domain.Ptr("1")})
	got, _ := s.Get("x")
	if got.Opacity != 0 || got.Rotation != 0 || got.Scale != "" {
		t.Fatalf("expected normalized absent fields, got %+v", got)
	}
}

func TestRemoveAndClear(t *testing.T) {
	s := New()
	s.Remove("missing")
	s.Upsert("a", domain.Patch{})
	s.Upsert("b", domain.Patch{})
	s.Remove("a")
	if s.Has("a") || !s.Has("b") || s.Len() != 1 {
		t.Fatalf("unexpected contents: %v", s.IDs())
	}
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("clear left %d records", s.Len())
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := New()
	s.Upsert("a", domain.PositionPatch(10, 10, 0))
	snap := s.Snapshot()
	s.Upsert("a", domain.PositionPatch(99, 99, 1))
	if snap["a"].Left != "10px" {
		t.Fatalf("snapshot aliased the live store: %+v", snap["a"])
	}
}

func TestRestoreKeepsIdentity(t *testing.T) {
	s := New()
	ref := s
	s.Upsert("a", domain.Patch{})
	snap := Snapshot{"b": domain.NewRecord()}
	s.Restore(snap)
	if ref != s || !ref.Has("b") || ref.Has("a") {
		t.Fatalf("restore should mutate in place: %v", ref.IDs())
	}
	s.Upsert("b", domain.PositionPatch(5, 5, 0))
	if snap["b"].Left != "0px" {
		t.Fatalf("restore aliased the snapshot")
	}
}

func TestExportEmitsIDOnlyWithoutSource(t *testing.T) {
	s := New()
	s.Upsert("note", domain.PositionPatch(1, 2, 0))
	s.Upsert("song-1", domain.Patch{SourcePath: domain.Ptr("/user/song.txt"), ParserKind: domain.Ptr("chord"), Opacity: domain.Ptr(1.0)})
	got := s.Export()
	want := []domain.SavedItem{
		{ID: "note", ItemRecord: domain.ItemRecord{Left: "1px", Top: "2px"}},
		{ItemRecord: domain.ItemRecord{Left: "0px", Top: "0px", SourcePath: "/user/song.txt", ParserKind: "chord"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestImportReplacesContents(t *testing.T) {
	s := New()
	s.Upsert("old", domain.Patch{})
	s.Import([]domain.SavedItem{
		{ID: "a", ItemRecord: domain.ItemRecord{Left: "3px", Top: "4px", Rotation: 720}},
		{ItemRecord: domain.NewRecord()},
	})
	if diff := cmp.Diff([]string{"a"}, s.IDs()); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}
	if got, _ := s.Get("a"); got.Rotation != 0 {
		t.Fatalf("import should normalize, got rotation %d", got.Rotation)
	}
}
