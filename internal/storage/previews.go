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
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"calendarcanvas/internal/scene"
)

// PageHash fingerprints a page so cached previews go stale when it changes.
func PageHash(p *scene.Page) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("hash page: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// GetPreview returns the cached thumbnail of a page at w x h, or nil when
// none is cached for this page hash. A hit refreshes last_access.
func GetPreview(ctx context.Context, root, pageID string, w, h int, hash string) ([]byte, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	var blob []byte
	err = db.QueryRowContext(ctx, `SELECT thumb_blob FROM previews WHERE page_id=? AND w=? AND h=? AND hash=?`, pageID, w, h, hash).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	now := time.Now().UTC().Format(tsLayout)
	_, _ = db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE page_id=? AND w=? AND h=?`, now, pageID, w, h)
	return blob, nil
}

// PutPreview upserts a thumbnail and evicts least recently used rows once
// the cache exceeds MaxPreviewBytesFromEnv.
func PutPreview(ctx context.Context, root, pageID string, w, h int, hash string, blob []byte) error {
	if len(blob) == 0 {
		return errors.New("empty preview")
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	now := time.Now().UTC().Format(tsLayout)
	_, err = db.ExecContext(ctx, `INSERT INTO previews(page_id,w,h,hash,thumb_blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(page_id,w,h) DO UPDATE SET hash=excluded.hash, thumb_blob=excluded.thumb_blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		pageID, w, h, hash, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	if capBytes := MaxPreviewBytesFromEnv(); capBytes > 0 {
		return EvictPreviewsToFit(ctx, db, capBytes)
	}
	return nil
}

// GetOrCreatePreview returns the cached thumbnail or renders it with gen
// and stores the result.
func GetOrCreatePreview(ctx context.Context, root, pageID string, w, h int, hash string, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := GetPreview(ctx, root, pageID, w, h, hash); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	if err := PutPreview(ctx, root, pageID, w, h, hash, data); err != nil {
		return nil, err
	}
	return data, nil
}

// EvictPreviewsToFit deletes least recently used rows until the total size
// is at most capBytes.
func EvictPreviewsToFit(ctx context.Context, db *sql.DB, capBytes int64) error {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return fmt.Errorf("sum previews size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	rows, err := db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// the single connection must be free before the delete
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM previews WHERE id IN (`+placeholders(len(victims))+`)`, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// TotalPreviewBytes sums the size of all cached previews.
func TotalPreviewBytes(ctx context.Context, root string) (int64, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// MaxPreviewBytesFromEnv reads CALCANVAS_PREVIEWS_MAX_BYTES, 64 MiB when
// unset or invalid.
func MaxPreviewBytesFromEnv() int64 {
	const def = 64 << 20
	v := os.Getenv("CALCANVAS_PREVIEWS_MAX_BYTES")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
