/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenWorkspaceScaffolds(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	ws, err := OpenWorkspace(root)
	if err != nil {
		t.Fatalf("OpenWorkspace error: %v", err)
	}
	for _, d := range []string{UserDirName, BackupsDirName, IndexDirName} {
		if fi, err := os.Stat(filepath.Join(ws.Root, d)); err != nil || !fi.IsDir() {
			t.Fatalf("expected directory %s to exist", d)
		}
	}
	if _, err := OpenWorkspace("  "); err == nil {
		t.Fatalf("blank root should be rejected")
	}
}

func TestUserFileRejectsEscapes(t *testing.T) {
	ws, _ := OpenWorkspace(t.TempDir())
	got, err := ws.UserFile("/user/a.png")
	if err != nil || got != filepath.Join(ws.UserDir(), "a.png") {
		t.Fatalf("UserFile = %q, %v", got, err)
	}
	for _, bad := range []string{"/etc/passwd", "/user/../positions.json", "/user/", "/user/sub/x.png", "user/a.png"} {
		if _, err := ws.UserFile(bad); !errors.Is(err, ErrOutsideUserDir) {
			t.Fatalf("%q should be rejected, got %v", bad, err)
		}
	}
}

func TestStoreUploadAvoidsCollisions(t *testing.T) {
	ws, _ := OpenWorkspace(t.TempDir())
	names := make([]string, 3)
	for i := range names {
		name, size, err := ws.StoreUpload("../My Song.txt", strings.NewReader("abc"), 0)
		if err != nil {
			t.Fatalf("StoreUpload error: %v", err)
		}
		if size != 3 {
			t.Fatalf("size = %d", size)
		}
		names[i] = name
	}
	want := []string{"My_Song.txt", "My_Song-1.txt", "My_Song-2.txt"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestStoreUploadEnforcesLimit(t *testing.T) {
	ws, _ := OpenWorkspace(t.TempDir())
	_, _, err := ws.StoreUpload("big.bin", strings.NewReader("0123456789"), 5)
	if !IsTooLarge(err) {
		t.Fatalf("expected size limit error, got %v", err)
	}
	if ents, _ := os.ReadDir(ws.UserDir()); len(ents) != 0 {
		t.Fatalf("partial upload left behind")
	}
}
