/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "calendarcanvas/internal/log"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName holds per-document index data under the document root.
	IndexDirName  = ".calcanvas"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the embedded index schema. Bump it together with
	// a migration step in runMigrations.
	schemaVersion = 2
)

// IndexPath returns the path of the document's index database.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex opens (creating if needed) the index of the document in
// root, enables WAL and brings the schema up to date.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(slog.String("root", root))
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("document root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create %s dir: %w", IndexDirName, err)
	}

	path := IndexPath(root)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// keep schema as is; runMigrations moves it forward
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// SchemaVersion reads the schema number stored in the index.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return cur, nil
}

// runMigrations applies schema steps up to schemaVersion. Newer databases
// are left alone.
func runMigrations(ctx context.Context, db *sql.DB) error {
	cur, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// v2 labels snapshots with the reason they were taken.
			cols, err := tableColumns(ctx, db, "snapshots")
			if err != nil {
				return fmt.Errorf("migration %d: %w", next, err)
			}
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{`CREATE INDEX IF NOT EXISTS idx_exports_ts ON exports(ts);`}
			if !cols["reason"] {
				stmts = append(stmts, `ALTER TABLE snapshots ADD COLUMN reason TEXT NOT NULL DEFAULT 'autosave';`)
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
			// best effort
			_, _ = db.ExecContext(ctx, `INSERT INTO fts_layers(fts_layers) VALUES('optimize')`)
		}
		cur = next
	}
	return nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s);`, table))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// ensureIndexSchema creates the index tables and FTS structures.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// One row per layer, text is what the layer shows or names.
		`CREATE TABLE IF NOT EXISTS layers (
			row_id     INTEGER PRIMARY KEY,
			page_id    TEXT    NOT NULL,
			page_index INTEGER NOT NULL,
			layer_id   TEXT    NOT NULL,
			kind       TEXT    NOT NULL,
			name       TEXT,
			text       TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_layers_page ON layers(page_index);`,
		`CREATE INDEX IF NOT EXISTS idx_layers_layer ON layers(layer_id);`,

		// Contentless FTS5 index fed from layers via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_layers USING fts5(
			text,
			content='',
			tokenize = 'unicode61'
		);`,

		`CREATE TABLE IF NOT EXISTS snapshots (
			id         INTEGER PRIMARY KEY,
			ts         TEXT    NOT NULL,
			reason     TEXT    NOT NULL DEFAULT 'autosave',
			scene_blob BLOB    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts);`,

		`CREATE TABLE IF NOT EXISTS exports (
			id         INTEGER PRIMARY KEY,
			ts         TEXT    NOT NULL,
			preset     TEXT    NOT NULL,
			format     TEXT    NOT NULL,
			page_index INTEGER NOT NULL,
			dpi        INTEGER NOT NULL,
			path       TEXT    NOT NULL,
			bytes      INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_exports_ts ON exports(ts);`,

		`CREATE TABLE IF NOT EXISTS previews (
			id          INTEGER PRIMARY KEY,
			page_id     TEXT    NOT NULL,
			w           INTEGER NOT NULL,
			h           INTEGER NOT NULL,
			hash        TEXT    NOT NULL,
			thumb_blob  BLOB    NOT NULL,
			size        INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT    NOT NULL,
			last_access TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_previews_page_size ON previews(page_id, w, h);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS layers_ai AFTER INSERT ON layers BEGIN
			INSERT INTO fts_layers(rowid, text) VALUES (new.row_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS layers_ad AFTER DELETE ON layers BEGIN
			INSERT INTO fts_layers(fts_layers, rowid, text) VALUES ('delete', old.row_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS layers_au AFTER UPDATE OF text ON layers BEGIN
			INSERT INTO fts_layers(fts_layers, rowid, text) VALUES ('delete', old.row_id, old.text);
			INSERT INTO fts_layers(rowid, text) VALUES (new.row_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// DetectAndRebuildIndex rebuilds an index that cannot be opened, fails
// quick_check or lacks its core table. It reports whether a rebuild ran.
// The damaged file is copied to .calcanvas/backups first.
func DetectAndRebuildIndex(ctx context.Context, root string, sc *scene.Scene) (bool, error) {
	path := IndexPath(root)
	db, err := InitOrOpenIndex(root)
	if err != nil {
		backupIndexFile(path)
		removeIndexFiles(path)
		if rbErr := RebuildIndex(ctx, root, sc); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM layers LIMIT 1;`); err != nil {
			needs = true
		}
	}
	_ = db.Close()
	if !needs {
		return false, nil
	}
	backupIndexFile(path)
	removeIndexFiles(path)
	if err := RebuildIndex(ctx, root, sc); err != nil {
		return false, err
	}
	return true, nil
}

func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

func removeIndexFiles(indexPath string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(indexPath + suffix)
	}
}

// UpdateIndex replaces the layer rows with the content of sc.
func UpdateIndex(ctx context.Context, root string, sc *scene.Scene) error {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	return rebuildLayersFromScene(ctx, db, sc)
}

// RebuildIndex drops the derived tables, recreates them and fills them from
// sc. Snapshots and the export history are kept.
func RebuildIndex(ctx context.Context, root string, sc *scene.Scene) error {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TRIGGER IF EXISTS layers_ai;",
		"DROP TRIGGER IF EXISTS layers_ad;",
		"DROP TRIGGER IF EXISTS layers_au;",
		"DROP TABLE IF EXISTS layers;",
		"DROP TABLE IF EXISTS fts_layers;",
		"DROP TABLE IF EXISTS previews;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	return rebuildLayersFromScene(ctx, db, sc)
}

type layerRow struct {
	pageID    string
	pageIndex int
	layerID   string
	kind      string
	name      string
	text      string
}

func layerRows(sc *scene.Scene) []layerRow {
	if sc == nil || sc.Project == nil {
		return nil
	}
	rows := make([]layerRow, 0, 64)
	for i, pg := range sc.Project.Pages {
		if pg == nil {
			continue
		}
		for _, l := range scene.Flatten(pg.Layers) {
			rows = append(rows, layerRow{
				pageID:    pg.ID,
				pageIndex: i,
				layerID:   l.ID,
				kind:      string(l.Type),
				name:      l.Name,
				text:      searchText(l),
			})
		}
	}
	return rows
}

// searchText is the text a layer is found by: its name and whatever it
// shows on the page.
func searchText(l *scene.Layer) string {
	parts := []string{strings.TrimSpace(l.Name)}
	switch p := l.Props.(type) {
	case *scene.TextProps:
		parts = append(parts, p.Text)
	case *scene.CalendarProps:
		parts = append(parts, fmt.Sprintf("%04.0f-%02.0f", p.Year, p.Month), p.HighlightExpression)
		parts = append(parts, p.Holidays...)
	case *scene.GenericProps:
		for _, k := range p.Keys() {
			if s, ok := p.Values[k].(string); ok {
				parts = append(parts, s)
			}
		}
	}
	out := parts[:0]
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, " ")
}

func rebuildLayersFromScene(ctx context.Context, db *sql.DB, sc *scene.Scene) error {
	rows := layerRows(sc)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM layers;"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear layers: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, "INSERT INTO layers(page_id, page_index, layer_id, kind, name, text) VALUES(?,?,?,?,?,?);")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, r := range rows {
		if _, err := ins.ExecContext(ctx, r.pageID, r.pageIndex, r.layerID, r.kind, r.name, r.text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert layer: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
