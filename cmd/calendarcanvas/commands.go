/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"calendarcanvas/internal/calendar"
	"calendarcanvas/internal/crash"
	"calendarcanvas/internal/engine"
	"calendarcanvas/internal/export"
	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/render"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/storage"
	"calendarcanvas/internal/surface"
	"calendarcanvas/internal/textlayout"
	"calendarcanvas/internal/themepack"
)

const (
	telemetryFlush = 1500 * time.Millisecond
	renderTimeout  = 30 * time.Second
	defaultViewW   = 800
	defaultViewH   = 1200
)

func (a *app) newEngine(sc *scene.Scene, r *render.Renderer) *engine.Engine {
	snap := geom.DefaultSnapOptions()
	snap.Threshold = a.cfg.Editor.SnapThreshold
	return engine.New(engine.Options{
		Scene:        sc,
		Renderer:     r,
		HistoryLimit: a.cfg.Editor.HistoryLimit,
		Snap:         snap,
	})
}

// fonts returns the Go font library, with the configured font file replacing
// the default family when set.
func (a *app) fonts() *textlayout.FontLibrary {
	lib := textlayout.NewGoLibrary()
	if f := strings.TrimSpace(a.cfg.Render.FontFile); f != "" {
		if err := lib.LoadTTF(textlayout.DefaultFamily, 400, f); err != nil {
			a.log.Warn("font file not loaded", slog.String("file", f), slog.Any("err", err))
		}
	}
	return lib
}

// autosaver keeps drafts of the document in root per the autosave settings.
func (a *app) autosaver(root string) *storage.Autosaver {
	return storage.NewAutosaver(root, storage.AutosaveOptions{
		Interval: a.cfg.AutosaveInterval(),
		KeepLast: a.cfg.Autosave.KeepLast,
	})
}

func openDocument(dir string) (*storage.Document, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return storage.Open(root)
}

func (a *app) initDocument(dir, title string, rest []string) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if len(rest) >= 2 {
		if year, err = strconv.Atoi(rest[0]); err != nil {
			return fmt.Errorf("year: %w", err)
		}
		if month, err = strconv.Atoi(rest[1]); err != nil {
			return fmt.Errorf("month: %w", err)
		}
	}
	if _, _, _, err := calendar.Normalize(float64(year), float64(month), float64(a.cfg.Editor.WeekStart)); err != nil {
		return err
	}
	a.log.Info("init document", slog.String("root", root), slog.String("title", title))

	sc := scene.NewSceneAt(a.cfg.Editor.PageWidth, a.cfg.Editor.PageHeight, scene.NewID, now)
	sc.Project.Title = title
	doc, err := storage.InitDocument(root, sc)
	if err != nil {
		return err
	}
	eng := a.newEngine(doc.Scene, nil)
	defer crash.Recover(doc, crash.WithUploader(a.tel), crash.WithScene(eng.Serialize))
	saver := a.autosaver(root)
	detach := saver.Attach(eng)

	if _, err := eng.AddLayer(scene.KindCalendar, map[string]any{
		"year": year, "month": month, "weekStart": a.cfg.Editor.WeekStart,
	}, nil); err != nil {
		return err
	}
	pw := a.cfg.Editor.PageWidth
	titleFrame := geom.R(pw*0.1, pw*0.08, pw*0.8, 64)
	if _, err := eng.AddLayer(scene.KindText, map[string]any{"text": title, "fontSize": 40}, &titleFrame); err != nil {
		return err
	}
	if pal, err := themepack.Find(root, a.cfg.General.Theme); err == nil {
		if _, err := eng.ApplyTheme(pal); err != nil {
			return err
		}
	} else {
		a.log.Warn("theme not applied", slog.String("theme", a.cfg.General.Theme), slog.Any("err", err))
	}

	ctx := context.Background()
	detach()
	if err := saver.Close(ctx); err != nil {
		a.log.Warn("draft not saved", slog.Any("err", err))
	}
	doc.Scene = eng.Serialize()
	if err := storage.Save(doc); err != nil {
		return err
	}
	if err := storage.UpdateIndex(ctx, root, doc.Scene); err != nil {
		return err
	}
	a.tel.Event("document.created", map[string]any{"pages": len(doc.Scene.Project.Pages)})
	fmt.Println("Created calendar document at", root)
	return nil
}

func (a *app) open(dir string) error {
	doc, err := openDocument(dir)
	if err != nil {
		return err
	}
	defer crash.Recover(doc, crash.WithUploader(a.tel))
	ctx := context.Background()
	if doc.Recovered != "" {
		fmt.Println("Manifest was unreadable; restored from backup", doc.Recovered)
	}
	rebuilt, err := storage.DetectAndRebuildIndex(ctx, doc.Root, doc.Scene)
	if err != nil {
		return err
	}
	if rebuilt {
		fmt.Println("Search index was damaged and has been rebuilt.")
	}
	p := doc.Scene.Project
	fmt.Printf("Opened document: %s\n", p.Title)
	fmt.Printf("Pages: %d\n", len(p.Pages))
	for i, pg := range p.Pages {
		w, h := scene.PageSize(pg)
		fmt.Printf("  %d. %-12s %gx%g  %d layers\n", i+1, pg.Name, w, h, len(scene.Flatten(pg.Layers)))
	}
	fmt.Println("Root:", doc.Root)
	draft, err := storage.PendingDraft(ctx, doc)
	if err != nil {
		return err
	}
	if draft != nil {
		fmt.Printf("An unsaved draft from %s exists; run `calendarcanvas recover %s` to restore it.\n",
			draft.TS.Local().Format(time.DateTime), dir)
	}
	return nil
}

func (a *app) recoverDraft(dir string) error {
	doc, err := openDocument(dir)
	if err != nil {
		return err
	}
	ctx := context.Background()
	draft, err := storage.PendingDraft(ctx, doc)
	if err != nil {
		return err
	}
	if draft == nil {
		fmt.Println("No newer draft; the manifest is up to date.")
		return nil
	}
	sc, err := draft.Scene()
	if err != nil {
		return fmt.Errorf("decode draft %d: %w", draft.ID, err)
	}
	eng := a.newEngine(sc, nil)
	doc.Scene = eng.Serialize()
	if err := storage.Save(doc); err != nil {
		return err
	}
	if err := storage.UpdateIndex(ctx, doc.Root, doc.Scene); err != nil {
		return err
	}
	fmt.Printf("Restored draft %d (%s, %s).\n", draft.ID, draft.Reason, draft.TS.Local().Format(time.DateTime))
	return nil
}

func (a *app) month(ys, ms string, rest []string) error {
	year, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return fmt.Errorf("year: %w", err)
	}
	month, err := strconv.ParseFloat(ms, 64)
	if err != nil {
		return fmt.Errorf("month: %w", err)
	}
	ws := float64(a.cfg.Editor.WeekStart)
	if len(rest) > 0 {
		if ws, err = strconv.ParseFloat(rest[0], 64); err != nil {
			return fmt.Errorf("weekStart: %w", err)
		}
	}
	m, err := calendar.GenerateMonth(year, month, ws)
	if err != nil {
		return err
	}
	fmt.Print(formatMonth(m))
	return nil
}

// render draws the editor view of a page: the page fitted into a fixed
// view on the configured backdrop, painted by the frame loop.
func (a *app) render(dir, out string, rest []string) error {
	doc, err := openDocument(dir)
	if err != nil {
		return err
	}
	page := 0
	if len(rest) > 0 {
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("page: %w", err)
		}
		page = n - 1
	}
	if page < 0 || page >= len(doc.Scene.Project.Pages) {
		return fmt.Errorf("%w: page %d", export.ErrPageIndex, page+1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
	defer cancel()
	loop := render.NewLoop(a.cfg.FrameInterval())
	go func() { _ = loop.Run(ctx) }()

	done := make(chan error, 1)
	r := surface.NewRaster(defaultViewW, defaultViewH, surface.RasterOptions{
		Fonts:    a.fonts(),
		Backdrop: surface.Color(a.cfg.Render.Backdrop, "#F5F5F7"),
	})
	defer func() { _ = r.Close() }()

	err = loop.Post(ctx, func() {
		eng := a.newEngine(doc.Scene, render.New(render.WithFrames(loop)))
		eng.SetActivePageIndex(page)
		eng.Renderer().Attach(r)
		if err := eng.FitViewport(defaultViewW, defaultViewH, 1); err != nil {
			done <- err
			return
		}
		// queued after the renderer's own frame, so it runs once painted
		loop.RequestFrame(func() {
			if err := r.Err(); err != nil {
				done <- err
				return
			}
			f, err := os.Create(out)
			if err != nil {
				done <- err
				return
			}
			err = r.EncodePNG(f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			done <- err
		})
	})
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return fmt.Errorf("render: %w", ctx.Err())
	}
	fmt.Println("Wrote", out)
	return nil
}

func (a *app) export(dir, preset string, formats []string) error {
	doc, err := openDocument(dir)
	if err != nil {
		return err
	}
	defer crash.Recover(doc, crash.WithUploader(a.tel))
	opt := export.BatchOptions{Preset: export.PresetName(preset), Formats: formats}
	switch opt.Preset {
	case export.PresetWeb, export.PresetPrint:
	default:
		// any other name exports with the configured dpi and formats
		opt.DPIOverride = a.cfg.Export.DPI
		if len(opt.Formats) == 0 {
			opt.Formats = a.cfg.Export.Formats
		}
	}
	recs, err := export.BatchExport(context.Background(), doc, opt)
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Printf("%-4s %8d bytes  %s\n", r.Format, r.Bytes, r.Path)
	}
	a.tel.Event("export.finished", map[string]any{"preset": preset, "files": len(recs)})
	return nil
}

func (a *app) snapshots(dir string) error {
	doc, err := openDocument(dir)
	if err != nil {
		return err
	}
	snaps, err := storage.ListSnapshots(context.Background(), doc.Root, 0)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("No snapshots.")
		return nil
	}
	for _, s := range snaps {
		fmt.Printf("%5d  %s  %-8s %d bytes\n", s.ID, s.TS.Local().Format(time.DateTime), s.Reason, len(s.Data))
	}
	return nil
}

func (a *app) search(dir, text string) error {
	doc, err := openDocument(dir)
	if err != nil {
		return err
	}
	res, err := storage.SearchLayers(context.Background(), doc.Root, storage.SearchQuery{Text: text})
	if err != nil {
		return err
	}
	for _, r := range res {
		fmt.Printf("page %d  %-9s %-10s %s\n", r.PageIndex+1, r.Kind, r.LayerID, r.Name)
	}
	fmt.Printf("%d result(s)\n", len(res))
	return nil
}

func (a *app) themes(dir string, rest []string) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		pals, err := themepack.Load(root)
		if err != nil {
			return err
		}
		for _, p := range pals {
			fmt.Printf("%-12s %s  %s\n", p.Key, p.Primary, p.Name)
		}
		return nil
	}
	if len(rest) < 2 {
		return errors.New("themes export|install needs a zip path")
	}
	switch rest[0] {
	case "export":
		n, err := themepack.Export(root, rest[1])
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d palette(s) to %s\n", n, rest[1])
	case "install":
		keys, err := themepack.Install(root, rest[1])
		if err != nil {
			return err
		}
		fmt.Printf("Installed %d palette(s): %s\n", len(keys), strings.Join(keys, ", "))
	default:
		return fmt.Errorf("unknown themes action %q", rest[0])
	}
	return nil
}
