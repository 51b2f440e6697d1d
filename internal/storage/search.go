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
	"strings"
)

// SearchQuery filters the layer index.
// Text uses SQLite FTS5 syntax (terms, "phrases", AND/OR/NOT). Kinds limits
// results to layer types. Page is a one-based page number, 0 for all pages.
type SearchQuery struct {
	Text   string
	Kinds  []string
	Page   int
	Limit  int
	Offset int
}

// SearchResult is one matching layer. Snippet marks the match with [ ]
// when Text was given.
type SearchResult struct {
	PageID    string
	PageIndex int
	LayerID   string
	Kind      string
	Name      string
	Snippet   string
}

// SearchLayers runs q against the index of the document in root.
func SearchLayers(ctx context.Context, root string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("document root is required")
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT l.page_id, l.page_index, l.layer_id, l.kind, COALESCE(l.name,''), snippet(fts_layers, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_layers JOIN layers l ON fts_layers.rowid = l.row_id\n")
		sb.WriteString("WHERE fts_layers MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT l.page_id, l.page_index, l.layer_id, l.kind, COALESCE(l.name,''), ''\n")
		sb.WriteString("FROM layers l\nWHERE 1=1\n")
	}
	if len(q.Kinds) > 0 {
		sb.WriteString(" AND l.kind IN (" + placeholders(len(q.Kinds)) + ")\n")
		for _, k := range q.Kinds {
			args = append(args, k)
		}
	}
	if q.Page > 0 {
		sb.WriteString(" AND l.page_index = ?\n")
		args = append(args, q.Page-1)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := max(q.Offset, 0)
	sb.WriteString("ORDER BY l.page_index, l.row_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.PageID, &r.PageIndex, &r.LayerID, &r.Kind, &r.Name, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
