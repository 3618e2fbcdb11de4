/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pageboard/internal/domain"
)

func sampleItems() []domain.SavedItem {
	return []domain.SavedItem{
		{ID: "note-1", ItemRecord: domain.ItemRecord{Left: "10px", Top: "20px", PageIndex: 1, Opacity: 0.5}},
		{ItemRecord: domain.ItemRecord{Left: "0px", Top: "0px", SourcePath: "/user/a.svg", ParserKind: "svg", Rotation: 15}},
	}
}

func TestFilePositionsNotFoundBeforeFirstSave(t *testing.T) {
	ws, _ := OpenWorkspace(t.TempDir())
	_, err := NewFilePositions(ws).Load(context.Background())
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestFilePositionsRoundTripAndBackups(t *testing.T) {
	ws, _ := OpenWorkspace(t.TempDir())
	fp := NewFilePositions(ws)
	ctx := context.Background()

	if err := fp.Save(ctx, sampleItems()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := fp.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(sampleItems(), got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if b, _ := fp.Backups(); len(b) != 0 {
		t.Fatalf("first save has nothing to back up, got %v", b)
	}
	if err := fp.Save(ctx, nil); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if b, _ := fp.Backups(); len(b) != 1 {
		t.Fatalf("expected one backup, got %v", b)
	}
	raw, _ := os.ReadFile(ws.PositionsPath())
	if !strings.Contains(string(raw), `"objects": []`) {
		t.Fatalf("empty layout should be an empty array: %s", raw)
	}
}

func TestFilePositionsPrunesBackups(t *testing.T) {
	ws, _ := OpenWorkspace(t.TempDir())
	fp := NewFilePositions(ws)
	fp.Keep = 3
	for i := 0; i < 6; i++ {
		if err := fp.Save(context.Background(), sampleItems()); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if b, _ := fp.Backups(); len(b) != 3 {
		t.Fatalf("expected 3 backups kept, got %d", len(b))
	}
}

func TestFilePositionsFallsBackToLatestBackup(t *testing.T) {
	ws, _ := OpenWorkspace(t.TempDir())
	fp := NewFilePositions(ws)
	ctx := context.Background()
	_ = fp.Save(ctx, sampleItems())
	_ = fp.Save(ctx, sampleItems()[:1])
	if err := os.WriteFile(ws.PositionsPath(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := fp.Load(ctx)
	if err != nil {
		t.Fatalf("load with corrupt file: %v", err)
	}
	if diff := cmp.Diff(sampleItems(), got); diff != "" {
		t.Fatalf("expected the backed-up layout (-want +got):\n%s", diff)
	}
}

func TestAutosaveCrashSnapshot(t *testing.T) {
	ws, _ := OpenWorkspace(t.TempDir())
	if p, err := AutosaveCrashSnapshot(ws); err != nil || p != "" {
		t.Fatalf("nothing to snapshot yet: %q %v", p, err)
	}
	_ = NewFilePositions(ws).Save(context.Background(), sampleItems())
	p, err := AutosaveCrashSnapshot(ws)
	if err != nil || !strings.HasSuffix(p, ".crash.bak") {
		t.Fatalf("crash snapshot = %q, %v", p, err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("crash snapshot missing: %v", err)
	}
}
