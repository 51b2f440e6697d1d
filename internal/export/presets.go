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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"calendarcanvas/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls batch export across formats and pages.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under <document>/exports/<preset>/.
//   - PDF output is one file named <name>.pdf in OutDir/pdf.
//   - Per-page formats write <name>-page-<n>.<ext> into OutDir/<format>.
type BatchOptions struct {
	Preset        PresetName
	Formats       []string // allowed: png, jpg, svg, pdf; empty means preset defaults
	Pages         []int    // zero-based indices; empty means all pages
	DPIOverride   int      // when > 0 overrides the preset DPI
	IncludeGuides *bool    // when set, overrides the preset's default for guides
	OutDir        string
	// Name is the file stem; empty uses "calendar".
	Name          string
	Watermark     Watermark
	WatermarkText string
	Now           func() time.Time
}

// PresetOptions returns the render options a preset implies.
func PresetOptions(p PresetName) Options {
	o := DefaultOptions()
	switch p {
	case PresetPrint:
		o.DPI = 300
		o.Bleed = 3
		o.IncludeGuides = true
	default:
		o.DPI = 150
	}
	return o
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"pdf"}
	}
}

// BatchExport renders the document according to opt, writes the files and
// records them in the document index. The records are returned in write order.
func BatchExport(ctx context.Context, doc *storage.Document, opt BatchOptions) ([]storage.ExportRecord, error) {
	if doc == nil || doc.Scene == nil {
		return nil, errors.New("document is nil")
	}
	sc := doc.Scene
	if sc.Project == nil || len(sc.Project.Pages) == 0 {
		return nil, errors.New("document has no pages")
	}
	if opt.Preset == "" {
		opt.Preset = PresetWeb
	}
	now := time.Now
	if opt.Now != nil {
		now = opt.Now
	}

	ro := PresetOptions(opt.Preset)
	if opt.DPIOverride > 0 {
		ro.DPI = opt.DPIOverride
	}
	if opt.IncludeGuides != nil {
		ro.IncludeGuides = *opt.IncludeGuides
	}
	if opt.Watermark != "" {
		ro.Watermark = opt.Watermark
		ro.WatermarkText = opt.WatermarkText
	}
	if err := ro.Validate(); err != nil {
		return nil, err
	}

	var formats []Format
	raw := opt.Formats
	if len(raw) == 0 {
		raw = presetDefaultFormats(opt.Preset)
	}
	for _, s := range raw {
		f, err := ParseFormat(s)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}

	pages := opt.Pages
	if len(pages) == 0 {
		pages = make([]int, len(sc.Project.Pages))
		for i := range pages {
			pages[i] = i
		}
	}
	for _, p := range pages {
		if _, err := pageAt(sc, p); err != nil {
			return nil, err
		}
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(doc.Root, storage.ExportsDirName, baseOut)
	}
	name := strings.TrimSpace(opt.Name)
	if name == "" {
		name = "calendar"
	}

	var recs []storage.ExportRecord
	record := func(f Format, page int, path string, n int) {
		recs = append(recs, storage.ExportRecord{
			TS: now(), Preset: string(opt.Preset), Format: string(f),
			PageIndex: page, DPI: ro.DPI, Path: path, Bytes: int64(n),
		})
	}

	for _, f := range formats {
		dir := filepath.Join(baseOut, string(f))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
		if f == FormatPDF {
			var buf bytes.Buffer
			if _, err := ExportPDF(&buf, sc, pages, ro); err != nil {
				return nil, fmt.Errorf("pdf: %w", err)
			}
			out := filepath.Join(dir, name+f.Ext())
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return nil, fmt.Errorf("write %s: %w", out, err)
			}
			record(f, -1, out, buf.Len())
			continue
		}
		for _, p := range pages {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			if _, err := ExportPage(&buf, sc, p, f, ro); err != nil {
				return nil, fmt.Errorf("%s page %d: %w", f, p+1, err)
			}
			out := filepath.Join(dir, fmt.Sprintf("%s-page-%d%s", name, p+1, f.Ext()))
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return nil, fmt.Errorf("write %s: %w", out, err)
			}
			record(f, p, out, buf.Len())
		}
	}

	if err := storage.RecordExports(ctx, doc.Root, recs...); err != nil {
		return recs, fmt.Errorf("record exports: %w", err)
	}
	ro.logger().Info("batch export finished",
		slog.String("preset", string(opt.Preset)), slog.Int("files", len(recs)))
	return recs, nil
}
