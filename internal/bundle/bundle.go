/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bundle packs a workspace (layout plus uploads) into a zip and
// installs such a zip into another workspace.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	applog "pageboard/internal/log"
	"pageboard/internal/storage"
	"pageboard/internal/version"
)

const ManifestName = "pageboard.manifest.txt"

// Export zips positions.json (when present) and every file in user/ into
// destZipPath. Paths inside the archive are workspace-relative with forward
// slashes. It returns the number of files added, manifest excluded.
func Export(ws *storage.Workspace, destZipPath string) (int, error) {
	if ws == nil {
		return 0, errors.New("workspace is required")
	}
	if strings.TrimSpace(destZipPath) == "" {
		return 0, errors.New("destination is required")
	}
	l := applog.WithOperation(applog.WithComponent("bundle"), "export").With(slog.String("workspace", ws.Root))
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	_ = os.Remove(destZipPath)
	zf, err := os.Create(destZipPath)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	manifest := fmt.Sprintf("Pageboard Bundle\nCreated: %s\nVersion: %s\n\nContents: %s and %s/.\n",
		time.Now().Format(time.RFC3339), version.String(), storage.PositionsFileName, storage.UserDirName)
	if err := addBytes(zw, ManifestName, []byte(manifest)); err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}

	added := 0
	if _, err := os.Stat(ws.PositionsPath()); err == nil {
		if err := addFile(zw, storage.PositionsFileName, ws.PositionsPath()); err != nil {
			return added, err
		}
		added++
	}
	ents, err := os.ReadDir(ws.UserDir())
	if err != nil {
		return added, fmt.Errorf("read upload dir: %w", err)
	}
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if err := addFile(zw, storage.UserDirName+"/"+e.Name(), filepath.Join(ws.UserDir(), e.Name())); err != nil {
			l.Error("zip build failed", slog.Any("err", err))
			return added, fmt.Errorf("build zip: %w", err)
		}
		added++
	}
	if err := zw.Close(); err != nil {
		return added, fmt.Errorf("finish zip: %w", err)
	}
	l.Info("bundle exported", slog.Int("files", added), slog.String("zip", destZipPath))
	return added, nil
}

func addBytes(zw *zip.Writer, name string, b []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func addFile(zw *zip.Writer, name, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// Install extracts a bundle into ws. Uploads that already exist are
// skipped; positions.json is installed only when ws has none. Entries
// outside user/ other than positions.json are ignored. It returns the
// number of files written.
func Install(ws *storage.Workspace, zipPath string) (int, error) {
	if ws == nil {
		return 0, errors.New("workspace is required")
	}
	l := applog.WithOperation(applog.WithComponent("bundle"), "install").With(slog.String("workspace", ws.Root))
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	installed := 0
	for _, f := range r.File {
		target, ok := targetFor(ws, f.Name)
		if !ok || f.FileInfo().IsDir() {
			continue
		}
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		if err := extract(f, target); err != nil {
			return installed, err
		}
		installed++
	}
	l.Info("bundle installed", slog.Int("files", installed))
	return installed, nil
}

// targetFor maps an archive entry to its destination, rejecting anything
// that would escape the upload directory.
func targetFor(ws *storage.Workspace, name string) (string, bool) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == storage.PositionsFileName {
		return ws.PositionsPath(), true
	}
	p, err := ws.UserFile("/" + clean)
	if err != nil {
		return "", false
	}
	return p, true
}

func extract(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return err
	}
	return out.Close()
}
