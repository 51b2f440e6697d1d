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
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestPreviewsPutGetAndEvict(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	t.Setenv("CALCANVAS_PREVIEWS_MAX_BYTES", "64")

	blob := func(b byte) []byte { return bytes.Repeat([]byte{b}, 40) }
	if err := PutPreview(ctx, root, "pg_1", 100, 100, "h1", blob('a')); err != nil {
		t.Fatalf("put A: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := PutPreview(ctx, root, "pg_1", 200, 200, "h1", blob('b')); err != nil {
		t.Fatalf("put B: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := PutPreview(ctx, root, "pg_2", 100, 100, "h2", blob('c')); err != nil {
		t.Fatalf("put C: %v", err)
	}
	total, err := TotalPreviewBytes(ctx, root)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total > 64 {
		t.Fatalf("expected eviction to <= 64 bytes, got %d", total)
	}
	got, err := GetPreview(ctx, root, "pg_2", 100, 100, "h2")
	if err != nil || !bytes.Equal(got, blob('c')) {
		t.Fatalf("newest preview should survive eviction: %v", err)
	}
	if got, _ := GetPreview(ctx, root, "pg_1", 100, 100, "h1"); got != nil {
		t.Fatalf("oldest preview should have been evicted")
	}
}

func TestPreviewGoesStaleWithPageHash(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	sc := sampleScene(t)
	pg := sc.Project.Pages[0]
	h1, err := PageHash(pg)
	if err != nil {
		t.Fatalf("PageHash: %v", err)
	}
	calls := 0
	gen := func(context.Context) ([]byte, error) {
		calls++
		return []byte("png-bytes"), nil
	}
	for i := 0; i < 2; i++ {
		b, err := GetOrCreatePreview(ctx, root, pg.ID, 150, 267, h1, gen)
		if err != nil || string(b) != "png-bytes" {
			t.Fatalf("GetOrCreatePreview: %q %v", b, err)
		}
	}
	if calls != 1 {
		t.Fatalf("generator ran %d times, want 1", calls)
	}

	pg.Layers[1].Frame.X += 10
	h2, _ := PageHash(pg)
	if h2 == h1 {
		t.Fatalf("hash did not change with the page")
	}
	if _, err := GetOrCreatePreview(ctx, root, pg.ID, 150, 267, h2, gen); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("stale preview reused")
	}
}

func TestPreviewGeneratorError(t *testing.T) {
	boom := errors.New("boom")
	_, err := GetOrCreatePreview(context.Background(), t.TempDir(), "pg_1", 10, 10, "h", func(context.Context) ([]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
	if err := PutPreview(context.Background(), t.TempDir(), "pg_1", 10, 10, "h", nil); err == nil {
		t.Fatalf("expected error for empty blob")
	}
}

func TestMaxPreviewBytesFromEnv(t *testing.T) {
	t.Setenv("CALCANVAS_PREVIEWS_MAX_BYTES", "nope")
	if got := MaxPreviewBytesFromEnv(); got != 64<<20 {
		t.Fatalf("invalid value should use default, got %d", got)
	}
	t.Setenv("CALCANVAS_PREVIEWS_MAX_BYTES", "1024")
	if got := MaxPreviewBytesFromEnv(); got != 1024 {
		t.Fatalf("got %d", got)
	}
}
