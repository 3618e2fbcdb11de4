/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// readRecords parses every JSON line of a log file.
func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()
	var recs []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("log line is not JSON: %v: %q", err, sc.Text())
		}
		recs = append(recs, m)
	}
	return recs
}

func findRecord(recs []map[string]any, msg string) map[string]any {
	for _, r := range recs {
		if r["msg"] == msg {
			return r
		}
	}
	return nil
}

func TestFileFromEnvCarriesItemAndSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pageboard.log")
	t.Setenv("PGB_LOG_FILE", path)
	t.Setenv("PGB_LOG_LEVEL", "debug")
	t.Setenv("PGB_LOG_FORMAT", "json")
	Init(FromEnv())
	t.Cleanup(func() { Init(Options{Level: "error", Format: "json"}) })

	l := WithItem(WithOperation(WithComponent("editor"), "Wheel"), "song-1a2b3c4d")
	l.InfoContext(ContextWithSession(context.Background(), "sess-7"), "opacity changed")
	l.Debug("no session here")

	recs := readRecords(t, path)
	got := findRecord(recs, "opacity changed")
	if got == nil {
		t.Fatalf("record not written to %s: %v", path, recs)
	}
	want := map[string]string{
		"app":       "pageboard",
		"component": "editor",
		"op":        "Wheel",
		"item":      "song-1a2b3c4d",
		"session":   "sess-7",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s = %v, want %q (record %v)", k, got[k], v, got)
		}
	}
	plain := findRecord(recs, "no session here")
	if plain == nil {
		t.Fatalf("debug record missing")
	}
	if _, ok := plain["session"]; ok {
		t.Fatalf("session attr without a tagged context: %v", plain)
	}
}

func TestFileOutputRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	Init(Options{Level: "warn", Format: "json", File: path})
	t.Cleanup(func() { Init(Options{Level: "error", Format: "json"}) })

	WithComponent("server").Info("dropped")
	WithComponent("server").Warn("kept")

	recs := readRecords(t, path)
	if findRecord(recs, "dropped") != nil {
		t.Fatalf("info record written at warn level: %v", recs)
	}
	if r := findRecord(recs, "kept"); r == nil || r["level"] != "WARN" {
		t.Fatalf("warn record missing or mislabeled: %v", recs)
	}
}
