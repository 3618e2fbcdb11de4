/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file and a positions snapshot.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "pageboard/internal/log"
	"pageboard/internal/storage"
	"pageboard/internal/telemetry"
	"pageboard/internal/version"
)

var exitFn = os.Exit

// Recover captures a panic, logs it with the stack, writes a crash report
// into the workspace backups and snapshots positions.json next to it.
//
// Usage: defer crash.Recover(ws)
//
// recover only works in the deferred call itself; wrap with Handle when
// the workspace is assigned after the defer.
func Recover(ws *storage.Workspace) {
	if r := recover(); r != nil {
		Handle(ws, r)
	}
}

// Handle reports an already-recovered panic value and exits.
func Handle(ws *storage.Workspace, r any) {
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(ws, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if ws != nil {
		if path, err := storage.AutosaveCrashSnapshot(ws); err != nil {
			l.Error("crash snapshot failed", slog.Any("err", err))
		} else if path != "" {
			l.Info("crash snapshot written", slog.String("path", path))
		}
	}
	_, _ = fmt.Fprintf(os.Stderr, "pageboard crashed. Report: %s\nVersion: %s (%s/%s)\n",
		reportPath, version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func writeReport(ws *storage.Workspace, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if ws != nil && ws.Root != "" {
		dir = ws.BackupsDir()
		_ = os.MkdirAll(dir, 0o755)
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Pageboard Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if ws != nil {
		_, _ = fmt.Fprintf(&buf, "Workspace: %s\n", ws.Root)
		_, _ = fmt.Fprintf(&buf, "Positions: %s\n", ws.PositionsPath())
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
