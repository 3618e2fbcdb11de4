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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pageboard/internal/domain"
	applog "pageboard/internal/log"
)

// DefaultBackupsKept bounds the number of positions backups on disk.
const DefaultBackupsKept = 20

// backupStamp sorts lexicographically in time order.
const backupStamp = "20060102-150405.000000000"

// PositionStore persists the saved layout. Load reports *domain.NotFoundError
// when nothing was saved yet.
type PositionStore interface {
	Load(ctx context.Context) ([]domain.SavedItem, error)
	Save(ctx context.Context, items []domain.SavedItem) error
}

// FilePositions keeps the layout in <root>/positions.json.
type FilePositions struct {
	ws   *Workspace
	Keep int
	log  *slog.Logger
}

func NewFilePositions(ws *Workspace) *FilePositions {
	return &FilePositions{ws: ws, Keep: DefaultBackupsKept, log: applog.WithComponent("storage")}
}

// Load reads positions.json. If it is unreadable or corrupt the latest
// backup is used instead.
func (fp *FilePositions) Load(_ context.Context) ([]domain.SavedItem, error) {
	l := applog.WithOperation(fp.log, "positions_load")
	b, err := os.ReadFile(fp.ws.PositionsPath())
	if errors.Is(err, os.ErrNotExist) && !fp.hasBackups() {
		return nil, &domain.NotFoundError{What: "saved positions"}
	}
	if err == nil {
		var env domain.Positions
		uerr := json.Unmarshal(b, &env)
		if uerr == nil {
			return env.Objects, nil
		}
		err = fmt.Errorf("parse %s: %w", PositionsFileName, uerr)
	}
	l.Warn("positions unreadable; trying latest backup", slog.Any("err", err))
	items, berr := fp.latestBackup()
	if berr != nil {
		return nil, fmt.Errorf("open positions: %w; backup attempt: %v", err, berr)
	}
	return items, nil
}

// Save writes the layout with transactional semantics and a timestamped
// backup of the previous file.
func (fp *FilePositions) Save(_ context.Context, items []domain.SavedItem) error {
	if items == nil {
		items = []domain.SavedItem{}
	}
	data, err := json.MarshalIndent(domain.Positions{Objects: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}
	data = append(data, '\n')

	bdir := fp.ws.BackupsDir()
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	target := fp.ws.PositionsPath()
	if _, statErr := os.Stat(target); statErr == nil {
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", PositionsFileName, time.Now().Format(backupStamp)))
		if cerr := copyFile(target, bpath); cerr != nil {
			return fmt.Errorf("backup current positions: %w", cerr)
		}
	}

	temp := filepath.Join(filepath.Dir(target), fmt.Sprintf(".%s.tmp-%d-%d", PositionsFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp positions: %w", werr)
	}
	if rerr := os.Rename(temp, target); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace positions: %w", rerr)
	}
	fp.pruneBackups()
	return nil
}

// Backups lists backup files, oldest first.
func (fp *FilePositions) Backups() ([]string, error) {
	ents, err := os.ReadDir(fp.ws.BackupsDir())
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, PositionsFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(fp.ws.BackupsDir(), name))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (fp *FilePositions) hasBackups() bool {
	b, err := fp.Backups()
	return err == nil && len(b) > 0
}

func (fp *FilePositions) latestBackup() ([]domain.SavedItem, error) {
	candidates, err := fp.Backups()
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	var env domain.Positions
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return env.Objects, nil
}

func (fp *FilePositions) pruneBackups() {
	if fp.Keep <= 0 {
		return
	}
	all, err := fp.Backups()
	if err != nil || len(all) <= fp.Keep {
		return
	}
	for _, p := range all[:len(all)-fp.Keep] {
		if err := os.Remove(p); err != nil {
			fp.log.Warn("prune backup failed", slog.String("path", p), slog.Any("err", err))
		}
	}
}

// AutosaveCrashSnapshot copies the current positions file into backups so a
// crash never loses the last saved layout. It returns the backup path, or ""
// when there is nothing to copy.
func AutosaveCrashSnapshot(ws *Workspace) (string, error) {
	if ws == nil {
		return "", errors.New("nil workspace")
	}
	src := ws.PositionsPath()
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	dst := filepath.Join(ws.BackupsDir(), fmt.Sprintf("%s.%s.crash.bak", PositionsFileName, time.Now().Format(backupStamp)))
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("crash snapshot: %w", err)
	}
	return dst, nil
}
