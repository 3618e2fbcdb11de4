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
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Upload is one row of the upload index.
type Upload struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Kind       string    `json:"kind,omitempty"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// UploadIndex records uploaded files for listing and cleanup.
type UploadIndex struct {
	db *sql.DB
}

// OpenUploadIndex opens (or creates) the workspace's SQLite index.
func OpenUploadIndex(ws *Workspace) (*UploadIndex, error) {
	db, err := InitOrOpenIndex(ws.Root)
	if err != nil {
		return nil, err
	}
	return &UploadIndex{db: db}, nil
}

func (ix *UploadIndex) Close() error { return ix.db.Close() }

// language=SQL
// dialect=SQLite
const upsertUploadSQL = `INSERT INTO uploads(name, path, size, kind, width, height, uploaded_at) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET path=excluded.path, size=excluded.size, kind=excluded.kind,
	width=excluded.width, height=excluded.height, uploaded_at=excluded.uploaded_at`

// Put inserts or replaces the row for u.Name.
func (ix *UploadIndex) Put(ctx context.Context, u Upload) error {
	if u.UploadedAt.IsZero() {
		u.UploadedAt = time.Now()
	}
	_, err := ix.db.ExecContext(ctx, upsertUploadSQL, u.Name, u.Path, u.Size, u.Kind, u.Width, u.Height,
		u.UploadedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("index upload %s: %w", u.Name, err)
	}
	return nil
}

// Get returns the row for name.
func (ix *UploadIndex) Get(ctx context.Context, name string) (Upload, bool, error) {
	row := ix.db.QueryRowContext(ctx, `SELECT name, path, size, kind, width, height, uploaded_at FROM uploads WHERE name = ?`, name)
	u, err := scanUpload(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Upload{}, false, nil
	}
	if err != nil {
		return Upload{}, false, err
	}
	return u, true, nil
}

// Delete removes the row for name; missing rows are not an error.
func (ix *UploadIndex) Delete(ctx context.Context, name string) error {
	_, err := ix.db.ExecContext(ctx, `DELETE FROM uploads WHERE name = ?`, name)
	return err
}

// List returns all rows, newest first.
func (ix *UploadIndex) List(ctx context.Context) ([]Upload, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT name, path, size, kind, width, height, uploaded_at FROM uploads ORDER BY uploaded_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Upload
	for rows.Next() {
		u, err := scanUpload(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Rebuild re-creates every row from the files in user/. Image dimensions
// are probed again.
func (ix *UploadIndex) Rebuild(ctx context.Context, ws *Workspace) (int, error) {
	ents, err := os.ReadDir(ws.UserDir())
	if err != nil {
		return 0, fmt.Errorf("read upload dir: %w", err)
	}
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM uploads`); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	n := 0
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		u := Upload{Name: e.Name(), Path: PublicPath(e.Name()), Size: info.Size(), UploadedAt: info.ModTime()}
		if w, h, format, err := ProbeImage(filepath.Join(ws.UserDir(), e.Name())); err == nil {
			u.Kind, u.Width, u.Height = format, w, h
		}
		if _, err := tx.ExecContext(ctx, upsertUploadSQL, u.Name, u.Path, u.Size, u.Kind, u.Width, u.Height,
			u.UploadedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		n++
	}
	return n, tx.Commit()
}

func scanUpload(scan func(dest ...any) error) (Upload, error) {
	var (
		u    Upload
		kind sql.NullString
		w, h sql.NullInt64
		ts   string
	)
	if err := scan(&u.Name, &u.Path, &u.Size, &kind, &w, &h, &ts); err != nil {
		return Upload{}, err
	}
	u.Kind = kind.String
	u.Width, u.Height = int(w.Int64), int(h.Int64)
	u.UploadedAt, _ = time.Parse(time.RFC3339Nano, ts)
	return u, nil
}
