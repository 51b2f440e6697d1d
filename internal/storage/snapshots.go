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
	"time"

	"calendarcanvas/internal/scene"
)

// tsLayout is RFC 3339 with fixed nanoseconds so stored times sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Snapshot reasons.
const (
	ReasonAutosave = "autosave"
	ReasonManual   = "manual"
	ReasonCrash    = "crash"
)

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO snapshots(ts, reason, scene_blob) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestSnapshotSQL = `SELECT id, ts, reason, scene_blob FROM snapshots ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT id, ts, reason, scene_blob FROM snapshots ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE id NOT IN (
	SELECT id FROM snapshots ORDER BY ts DESC, id DESC LIMIT ?
)`

// Snapshot is a stored copy of a whole document.
type Snapshot struct {
	ID     int64
	TS     time.Time
	Reason string
	Data   []byte
}

// Scene decodes the stored document.
func (s Snapshot) Scene() (*scene.Scene, error) { return scene.Unmarshal(s.Data) }

// SaveSnapshot stores sc in the index of the document in root and returns
// the new row id.
func SaveSnapshot(ctx context.Context, root string, sc *scene.Scene, reason string, ts time.Time) (int64, error) {
	data, err := scene.Marshal(sc)
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}
	if reason == "" {
		reason = ReasonAutosave
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, insertSnapshotSQL, ts.UTC().Format(tsLayout), reason, data)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	return res.LastInsertId()
}

// LatestSnapshot returns the newest snapshot, or nil when there is none.
func LatestSnapshot(ctx context.Context, root string) (*Snapshot, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	s, err := scanSnapshot(db.QueryRowContext(ctx, selectLatestSnapshotSQL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSnapshots returns up to limit snapshots, newest first.
func ListSnapshots(ctx context.Context, root string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listSnapshotsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneSnapshots keeps the newest keepLast snapshots and deletes the rest.
// keepLast <= 0 keeps everything.
func PruneSnapshots(ctx context.Context, root string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneOldSnapshotsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(r scanner) (Snapshot, error) {
	var s Snapshot
	var ts string
	if err := r.Scan(&s.ID, &ts, &s.Reason, &s.Data); err != nil {
		return Snapshot{}, err
	}
	// a bad timestamp leaves TS zero but keeps the data usable
	s.TS, _ = time.Parse(tsLayout, ts)
	return s, nil
}
