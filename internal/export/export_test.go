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
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/storage"
)

var fixtureTime = time.Date(2024, 2, 15, 9, 0, 0, 0, time.UTC)

func sampleScene(t *testing.T) *scene.Scene {
	t.Helper()
	reg := scene.NewRegistry(func() time.Time { return fixtureTime })
	sc := scene.NewSceneAt(0, 0, scene.SequentialIDs(), fixtureTime)
	sc.Project.Title = "Export test"
	txt, err := reg.New(scene.KindText, map[string]any{"text": "Hello"})
	if err != nil {
		t.Fatalf("text props: %v", err)
	}
	pg := sc.Project.Pages[0]
	pg.Layers = append(pg.Layers,
		&scene.Layer{ID: "l_1", Type: scene.KindCalendar, Name: "February", Frame: geom.R(37, 200, 675, 933), Props: reg.Defaults(scene.KindCalendar)},
		&scene.Layer{ID: "l_2", Type: scene.KindText, Name: "Title", Frame: geom.R(150, 80, 450, 94), Props: txt},
	)
	back := scene.NewPage("pg_2", "Back", 400, 600)
	back.Layers = append(back.Layers, &scene.Layer{ID: "l_3", Type: scene.KindShape, Frame: geom.R(40, 40, 320, 520), Props: reg.Defaults(scene.KindShape)})
	sc.Project.Pages = append(sc.Project.Pages, back)
	return sc
}

func opts72() Options {
	o := DefaultOptions()
	o.DPI = 72
	return o
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Options)
		want error
	}{
		{"defaults", func(*Options) {}, nil},
		{"dpi too low", func(o *Options) { o.DPI = 50 }, ErrInvalidDPI},
		{"text watermark without text", func(o *Options) { o.Watermark = WatermarkText; o.WatermarkText = "  " }, ErrWatermarkText},
		{"text watermark", func(o *Options) { o.Watermark = WatermarkText; o.WatermarkText = "draft" }, nil},
		{"unknown watermark", func(o *Options) { o.Watermark = "stamp" }, ErrInvalidWatermark},
		{"unknown size", func(o *Options) { o.Size = "poster" }, ErrInvalidSize},
		{"custom too small", func(o *Options) { o.Size = SizeCustom; o.Width, o.Height = 100, 800 }, ErrInvalidSize},
		{"custom ok", func(o *Options) { o.Size = SizeCustom; o.Width, o.Height = 800, 800 }, nil},
		{"preset size", func(o *Options) { o.Size = "square-1200" }, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := DefaultOptions()
			tc.mut(&o)
			err := o.Validate()
			if tc.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidateClampsBleedAndQuality(t *testing.T) {
	o := DefaultOptions()
	o.Bleed = 55
	o.Quality = 0
	if err := o.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if o.Bleed != MaxBleed || o.Quality != DefaultQuality {
		t.Fatalf("bleed=%v quality=%d", o.Bleed, o.Quality)
	}
	o.Bleed = -4
	_ = o.Validate()
	if o.Bleed != 0 {
		t.Fatalf("negative bleed kept: %v", o.Bleed)
	}
}

func TestViewportFromDPI(t *testing.T) {
	o := DefaultOptions()
	o.DPI = 144
	o.Bleed = 3
	vp := o.Viewport(750, 1334)
	w, h := vp.PixelSize()
	if w != 1512 || h != 2680 {
		t.Fatalf("pixel size %dx%d", w, h)
	}
	// page origin sits inside the bleed
	x, y := vp.WorldToScreen(0, 0)
	if x != 6 || y != 6 {
		t.Fatalf("origin at %v,%v", x, y)
	}
}

func TestViewportFromSizePreset(t *testing.T) {
	o := DefaultOptions()
	o.Size = "square-1200"
	vp := o.Viewport(600, 1200)
	w, h := vp.PixelSize()
	if w != 1200 || h != 1200 {
		t.Fatalf("pixel size %dx%d", w, h)
	}
	x0, y0 := vp.WorldToScreen(0, 0)
	x1, y1 := vp.WorldToScreen(600, 1200)
	if geom.FloatRound(x0, 6) != 300 || y0 != 0 || geom.FloatRound(x1, 6) != 900 || geom.FloatRound(y1, 6) != 1200 {
		t.Fatalf("page maps to %v,%v..%v,%v", x0, y0, x1, y1)
	}
}

func TestExportPagePNGAndJPG(t *testing.T) {
	sc := sampleScene(t)
	for _, f := range []Format{FormatPNG, FormatJPG} {
		var buf bytes.Buffer
		info, err := ExportPage(&buf, sc, 1, f, opts72())
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		cfg, kind, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("%s decode: %v", f, err)
		}
		if cfg.Width != 400 || cfg.Height != 600 || info.Width != 400 || info.Height != 600 {
			t.Fatalf("%s: got %dx%d (%s), info %+v", f, cfg.Width, cfg.Height, kind, info)
		}
	}
}

func TestExportPageSVG(t *testing.T) {
	var buf bytes.Buffer
	o := opts72()
	o.Watermark = WatermarkText
	o.WatermarkText = "DRAFT"
	if _, err := ExportPage(&buf, sampleScene(t), 0, FormatSVG, o); err != nil {
		t.Fatalf("svg: %v", err)
	}
	s := buf.String()
	if !strings.Contains(s, "<svg") || !strings.Contains(s, "DRAFT") {
		t.Fatalf("unexpected svg output: %.200s", s)
	}
}

func TestExportPDFAllPages(t *testing.T) {
	var buf bytes.Buffer
	o := opts72()
	o.Bleed = 3
	o.IncludeGuides = true
	infos, err := ExportPDF(&buf, sampleScene(t), nil, o)
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("pages: %d", len(infos))
	}
	if infos[1].Width != 406 || infos[1].Height != 606 {
		t.Fatalf("second page %+v", infos[1])
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("missing pdf header")
	}
}

func TestExportPageErrors(t *testing.T) {
	sc := sampleScene(t)
	var buf bytes.Buffer
	if _, err := ExportPage(&buf, sc, 5, FormatPNG, opts72()); !errors.Is(err, ErrPageIndex) {
		t.Fatalf("want ErrPageIndex, got %v", err)
	}
	o := opts72()
	o.DPI = 10
	if _, err := ExportPage(&buf, sc, 0, FormatPNG, o); !errors.Is(err, ErrInvalidDPI) {
		t.Fatalf("want ErrInvalidDPI, got %v", err)
	}
	if _, err := ExportPage(&buf, sc, 0, Format("gif"), opts72()); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestExportLeavesActivePage(t *testing.T) {
	sc := sampleScene(t)
	var buf bytes.Buffer
	if _, err := ExportPage(&buf, sc, 1, FormatSVG, opts72()); err != nil {
		t.Fatalf("svg: %v", err)
	}
	if sc.ActivePageIndex != 0 {
		t.Fatalf("active page changed to %d", sc.ActivePageIndex)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"PNG": FormatPNG, " jpeg ": FormatJPG, "svg": FormatSVG, "pdf": FormatPDF}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("cbz"); err == nil {
		t.Fatalf("cbz accepted")
	}
}

func TestBatchExportWritesAndRecords(t *testing.T) {
	root := t.TempDir()
	doc, err := storage.InitDocument(root, sampleScene(t))
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	recs, err := BatchExport(context.Background(), doc, BatchOptions{Preset: PresetWeb, DPIOverride: 72, Now: func() time.Time { return fixtureTime }})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("records: %d", len(recs))
	}
	for _, name := range []string{"png/calendar-page-1.png", "png/calendar-page-2.png", "svg/calendar-page-1.svg", "svg/calendar-page-2.svg"} {
		p := filepath.Join(root, storage.ExportsDirName, "web", filepath.FromSlash(name))
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Fatalf("missing output %s: %v", name, err)
		}
	}
	listed, err := storage.ListExports(context.Background(), root)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 4 || listed[0].Preset != "web" || listed[0].DPI != 72 {
		t.Fatalf("listed: %+v", listed)
	}
}

func TestBatchExportPrintPDF(t *testing.T) {
	root := t.TempDir()
	doc, err := storage.InitDocument(root, sampleScene(t))
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	recs, err := BatchExport(context.Background(), doc, BatchOptions{
		Preset: PresetPrint, Formats: []string{"pdf"}, DPIOverride: 72, Name: "family",
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(recs) != 1 || recs[0].PageIndex != -1 {
		t.Fatalf("records: %+v", recs)
	}
	b, err := os.ReadFile(filepath.Join(root, storage.ExportsDirName, "print", "pdf", "family.pdf"))
	if err != nil || !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("pdf output: %v", err)
	}
}

func TestBatchExportRejectsBadInput(t *testing.T) {
	doc, err := storage.InitDocument(t.TempDir(), sampleScene(t))
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := BatchExport(context.Background(), doc, BatchOptions{Formats: []string{"cbz"}}); err == nil {
		t.Fatalf("expected format error")
	}
	if _, err := BatchExport(context.Background(), doc, BatchOptions{Pages: []int{9}}); !errors.Is(err, ErrPageIndex) {
		t.Fatalf("want ErrPageIndex, got %v", err)
	}
	if _, err := BatchExport(context.Background(), nil, BatchOptions{}); err == nil {
		t.Fatalf("expected nil document error")
	}
}

func TestThumbnailIsCached(t *testing.T) {
	root := t.TempDir()
	doc, err := storage.InitDocument(root, sampleScene(t))
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	ctx := context.Background()
	first, err := Thumbnail(ctx, doc, 1, 120)
	if err != nil {
		t.Fatalf("thumbnail: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(first))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 80 || cfg.Height != 120 {
		t.Fatalf("thumbnail %dx%d", cfg.Width, cfg.Height)
	}
	total, err := storage.TotalPreviewBytes(ctx, root)
	if err != nil || total != int64(len(first)) {
		t.Fatalf("cached bytes %d (%v), want %d", total, err, len(first))
	}
	again, err := Thumbnail(ctx, doc, 1, 120)
	if err != nil || !bytes.Equal(first, again) {
		t.Fatalf("second call differs: %v", err)
	}
}

func TestThumbnailSize(t *testing.T) {
	w, h := ThumbnailSize(750, 1334, 256)
	if w != 144 || h != 256 {
		t.Fatalf("got %dx%d", w, h)
	}
	w, h = ThumbnailSize(1200, 600, 0)
	if w != DefaultThumbnailSide || h != 128 {
		t.Fatalf("default side: %dx%d", w, h)
	}
}
