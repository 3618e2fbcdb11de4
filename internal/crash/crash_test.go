/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pageboard/internal/domain"
	"pageboard/internal/storage"
)

func TestWriteReportFallsBackToTempDir(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	defer os.Remove(path)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Pageboard Crash Report") || !strings.Contains(s, "Panic: boom") {
		t.Fatalf("unexpected report: %s", s)
	}
}

func TestRecoverWritesReportAndSnapshot(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()

	ws, err := storage.OpenWorkspace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	items := []domain.SavedItem{{ID: "a", ItemRecord: domain.NewRecord()}}
	if err := storage.NewFilePositions(ws).Save(context.Background(), items); err != nil {
		t.Fatal(err)
	}

	func() {
		defer Recover(ws)
		panic("kaboom")
	}()

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	reports, _ := filepath.Glob(filepath.Join(ws.BackupsDir(), "crash-*.log"))
	if len(reports) != 1 {
		t.Fatalf("expected one crash report, got %v", reports)
	}
	snaps, _ := filepath.Glob(filepath.Join(ws.BackupsDir(), "*.crash.bak"))
	if len(snaps) != 1 {
		t.Fatalf("expected a positions snapshot, got %v", snaps)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(nil)
	}()
	if called {
		t.Fatalf("exit must not be called without a panic")
	}
}
