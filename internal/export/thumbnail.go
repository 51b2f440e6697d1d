/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/storage"
	"calendarcanvas/internal/surface"
)

// DefaultThumbnailSide is the longer edge of a page thumbnail in pixels.
const DefaultThumbnailSide = 256

// ThumbnailSize fits a pw x ph page into maxSide pixels keeping the aspect.
func ThumbnailSize(pw, ph float64, maxSide int) (int, int) {
	if maxSide <= 0 {
		maxSide = DefaultThumbnailSide
	}
	s := float64(maxSide) / math.Max(pw, ph)
	return max(1, int(math.Round(pw*s))), max(1, int(math.Round(ph*s)))
}

// Thumbnail returns a PNG preview of a page, served from the preview cache
// of the document index while the page content is unchanged.
func Thumbnail(ctx context.Context, doc *storage.Document, pageIndex, maxSide int) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	sc := doc.Scene
	page, err := pageAt(sc, pageIndex)
	if err != nil {
		return nil, err
	}
	pw, ph := scene.PageSize(page)
	w, h := ThumbnailSize(pw, ph, maxSide)
	hash, err := storage.PageHash(page)
	if err != nil {
		return nil, err
	}
	return storage.GetOrCreatePreview(ctx, doc.Root, page.ID, w, h, hash, func(context.Context) ([]byte, error) {
		vp := geom.Fit(float64(w), float64(h), pw, ph, 1)
		r := surface.NewRaster(w, h, surface.RasterOptions{})
		defer func() { _ = r.Close() }()
		drawPage(r, sc, pageIndex, vp, Options{})
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("rasterize thumbnail: %w", err)
		}
		var buf bytes.Buffer
		if err := r.EncodePNG(&buf); err != nil {
			return nil, fmt.Errorf("encode thumbnail: %w", err)
		}
		return buf.Bytes(), nil
	})
}
