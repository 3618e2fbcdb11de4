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
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

const (
	PositionsFileName = "positions.json"
	UserDirName       = "user"
	BackupsDirName    = "backups"
	IndexDirName      = ".pgb"
	IndexFileName     = "index.sqlite"

	// UserURLPrefix is the public path prefix of uploaded files.
	UserURLPrefix = "/user/"
)

var standardSubDirs = []string{UserDirName, BackupsDirName, IndexDirName}

// ErrOutsideUserDir is returned for public paths that do not resolve into user/.
var ErrOutsideUserDir = errors.New("path is outside the upload directory")

// Workspace is the data directory served by pageboard.
type Workspace struct {
	Root string
}

// OpenWorkspace creates root if needed and scaffolds the standard subfolders.
func OpenWorkspace(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(abs, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return &Workspace{Root: abs}, nil
}

func (w *Workspace) UserDir() string       { return filepath.Join(w.Root, UserDirName) }
func (w *Workspace) BackupsDir() string    { return filepath.Join(w.Root, BackupsDirName) }
func (w *Workspace) IndexPath() string     { return filepath.Join(w.Root, IndexDirName, IndexFileName) }
func (w *Workspace) PositionsPath() string { return filepath.Join(w.Root, PositionsFileName) }

// UserFile maps a public path such as "/user/a.png" to its file on disk.
func (w *Workspace) UserFile(publicPath string) (string, error) {
	if !strings.HasPrefix(publicPath, UserURLPrefix) {
		return "", ErrOutsideUserDir
	}
	clean := path.Clean(publicPath)
	if !strings.HasPrefix(clean, UserURLPrefix) {
		return "", ErrOutsideUserDir
	}
	rel := strings.TrimPrefix(clean, UserURLPrefix)
	if rel == "" || strings.Contains(rel, "/") {
		return "", ErrOutsideUserDir
	}
	return filepath.Join(w.UserDir(), rel), nil
}

// PublicPath returns the URL path of a stored upload.
func PublicPath(name string) string { return UserURLPrefix + name }

// SanitizeFilename keeps the base name of an uploaded file and replaces
// characters that are awkward in URLs.
func SanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.TrimLeft(b.String(), ".")
	if s == "" {
		return "upload"
	}
	return s
}

// StoreUpload writes r into user/ under a collision-free variant of name
// ("a.png", "a-1.png", ...) and returns the stored name and size. At most
// limit bytes are accepted when limit > 0.
func (w *Workspace) StoreUpload(name string, r io.Reader, limit int64) (string, int64, error) {
	clean := SanitizeFilename(name)
	ext := path.Ext(clean)
	stem := strings.TrimSuffix(clean, ext)
	for n := 0; n < 10000; n++ {
		candidate := clean
		if n > 0 {
			candidate = stem + "-" + strconv.Itoa(n) + ext
		}
		dst := filepath.Join(w.UserDir(), candidate)
		f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("create upload: %w", err)
		}
		size, err := copyLimited(f, r, limit)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
			return "", 0, err
		}
		return candidate, size, nil
	}
	return "", 0, fmt.Errorf("no free name for %s", clean)
}

var errTooLarge = errors.New("upload exceeds size limit")

func copyLimited(dst io.Writer, src io.Reader, limit int64) (int64, error) {
	if limit <= 0 {
		return io.Copy(dst, src)
	}
	n, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if err != nil {
		return n, err
	}
	if n > limit {
		return n, errTooLarge
	}
	return n, nil
}

// IsTooLarge reports whether err came from an upload over the size limit.
func IsTooLarge(err error) bool { return errors.Is(err, errTooLarge) }

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
