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
	"fmt"
	"time"
)

// ExportRecord is one file written by an export run.
type ExportRecord struct {
	ID        int64
	TS        time.Time
	Preset    string
	Format    string
	PageIndex int
	DPI       int
	Path      string
	Bytes     int64
}

// keepExports bounds the export history.
const keepExports = 20

// language=SQL
// dialect=SQLite
const insertExportSQL = `INSERT INTO exports(ts, preset, format, page_index, dpi, path, bytes) VALUES (?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listExportsSQL = `SELECT id, ts, preset, format, page_index, dpi, path, bytes FROM exports ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneExportsSQL = `DELETE FROM exports WHERE id NOT IN (
	SELECT id FROM exports ORDER BY ts DESC, id DESC LIMIT ?
)`

// RecordExports appends recs to the export history of the document in root
// and trims the history to the newest 20 entries.
func RecordExports(ctx context.Context, root string, recs ...ExportRecord) error {
	if len(recs) == 0 {
		return nil
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for _, r := range recs {
		ts := r.TS
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := tx.ExecContext(ctx, insertExportSQL, ts.UTC().Format(tsLayout), r.Preset, r.Format, r.PageIndex, r.DPI, r.Path, r.Bytes); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert export: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, pruneExportsSQL, keepExports); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prune exports: %w", err)
	}
	return tx.Commit()
}

// ListExports returns the export history, newest first.
func ListExports(ctx context.Context, root string) ([]ExportRecord, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, listExportsSQL, keepExports)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExportRecord
	for rows.Next() {
		var r ExportRecord
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.Preset, &r.Format, &r.PageIndex, &r.DPI, &r.Path, &r.Bytes); err != nil {
			return nil, err
		}
		r.TS, _ = time.Parse(tsLayout, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}
