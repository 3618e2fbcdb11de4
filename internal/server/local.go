/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"pageboard/internal/content"
	"pageboard/internal/domain"
	"pageboard/internal/editor"
	"pageboard/internal/storage"
)

const maxTextBytes = 8 << 20

var (
	_ editor.Bridge   = (*LocalBridge)(nil)
	_ content.Fetcher = (*LocalBridge)(nil)
)

// LocalBridge serves an editor session straight from a workspace, without
// HTTP in between. It mirrors the status semantics of the endpoints.
type LocalBridge struct {
	WS        *storage.Workspace
	Positions storage.PositionStore
}

func (b *LocalBridge) Load(ctx context.Context) ([]domain.SavedItem, error) {
	return b.Positions.Load(ctx)
}

func (b *LocalBridge) Save(ctx context.Context, items []domain.SavedItem) error {
	if err := b.Positions.Save(ctx, items); err != nil {
		return &domain.PersistenceError{Err: err}
	}
	return nil
}

func (b *LocalBridge) Upload(_ context.Context, filename string, data []byte) (domain.UploadResult, error) {
	name, _, err := b.WS.StoreUpload(filename, bytes.NewReader(data), defaultMaxUpload)
	if err != nil {
		return domain.UploadResult{}, &domain.FetchError{URL: storage.PublicPath(filename), Err: err}
	}
	return domain.UploadResult{Success: true, Filename: name, Path: storage.PublicPath(name)}, nil
}

func (b *LocalBridge) DeleteFile(_ context.Context, filePath string) error {
	p, err := b.WS.UserFile(filePath)
	if err != nil {
		return &domain.FetchError{URL: filePath, Status: http.StatusForbidden, Err: err}
	}
	if err := os.Remove(p); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusNotFound
		}
		return &domain.FetchError{URL: filePath, Status: status, Err: err}
	}
	return nil
}

// FetchText reads an uploaded file by its public path.
func (b *LocalBridge) FetchText(_ context.Context, sourcePath string) (string, error) {
	p, err := b.WS.UserFile(sourcePath)
	if err != nil {
		return "", &domain.FetchError{URL: sourcePath, Status: http.StatusForbidden, Err: err}
	}
	f, err := os.Open(p)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusNotFound
		}
		return "", &domain.FetchError{URL: sourcePath, Status: status, Err: err}
	}
	defer func() { _ = f.Close() }()
	b2, err := io.ReadAll(io.LimitReader(f, maxTextBytes))
	if err != nil {
		return "", &domain.FetchError{URL: sourcePath, Err: fmt.Errorf("read %s: %w", filepath.Base(p), err)}
	}
	return string(b2), nil
}

// ImageFile maps a public path to the local file, when it exists.
func (b *LocalBridge) ImageFile(sourcePath string) (string, bool) {
	p, err := b.WS.UserFile(sourcePath)
	if err != nil {
		return "", false
	}
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}
