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
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pageboard/internal/domain"
	applog "pageboard/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultSnapshotsKept bounds the rows kept in layout_snapshots.
const DefaultSnapshotsKept = 50

// PGPositions stores every saved layout as a JSONB row; the newest row is
// the current layout.
type PGPositions struct {
	db   *sql.DB
	Keep int
	log  *slog.Logger
}

// OpenPGPositions connects through the pgx stdlib driver and applies the
// embedded migrations.
func OpenPGPositions(ctx context.Context, dsn string) (*PGPositions, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	l := applog.WithComponent("storage")
	if err := applyMigrations(pctx, db, l); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PGPositions{db: db, Keep: DefaultSnapshotsKept, log: l}, nil
}

func (p *PGPositions) Close() error { return p.db.Close() }

// Ping checks the connection, for readiness probes.
func (p *PGPositions) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *PGPositions) Load(ctx context.Context) ([]domain.SavedItem, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM layout_snapshots ORDER BY id DESC LIMIT 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{What: "saved positions"}
	}
	if err != nil {
		return nil, fmt.Errorf("select layout: %w", err)
	}
	var env domain.Positions
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	return env.Objects, nil
}

func (p *PGPositions) Save(ctx context.Context, items []domain.SavedItem) error {
	if items == nil {
		items = []domain.SavedItem{}
	}
	b, err := json.Marshal(domain.Positions{Objects: items})
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO layout_snapshots(payload) VALUES($1)`, string(b)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert layout: %w", err)
	}
	if p.Keep > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM layout_snapshots WHERE id NOT IN (
			SELECT id FROM layout_snapshots ORDER BY id DESC LIMIT $1)`, p.Keep); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("prune layouts: %w", err)
		}
	}
	return tx.Commit()
}

// applyMigrations applies embedded SQL migrations in filename order and
// records each applied version.
func applyMigrations(ctx context.Context, db *sql.DB, l *slog.Logger) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, fname := range files {
		v, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[v] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		l.Info("applying migration", slog.String("file", fname))
		if _, err := db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, v, fname); err != nil {
			return fmt.Errorf("record %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	prefix, _, _ := strings.Cut(path.Base(name), "_")
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
