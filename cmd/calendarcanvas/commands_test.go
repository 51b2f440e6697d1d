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
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"calendarcanvas/internal/config"
	"calendarcanvas/internal/export"
	applog "calendarcanvas/internal/log"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/storage"
	"calendarcanvas/internal/telemetry"
)

func testApp(t *testing.T) *app {
	t.Helper()
	tel := telemetry.New(telemetry.Config{})
	t.Cleanup(tel.Close)
	cfg := config.Defaults()
	cfg.Autosave.IntervalMs = 60 * 60 * 1000
	return &app{cfg: cfg, tel: tel, log: applog.WithComponent("cli")}
}

func TestInitThenRender(t *testing.T) {
	a := testApp(t)
	dir := filepath.Join(t.TempDir(), "doc")
	if err := a.initDocument(dir, "Family", []string{"2024", "2"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	out := filepath.Join(t.TempDir(), "view.png")
	for _, args := range [][]string{nil, {"1"}} {
		if err := a.render(dir, out, args); err != nil {
			t.Fatalf("render %v: %v", args, err)
		}
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open png: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if cfg.Width != defaultViewW || cfg.Height != defaultViewH {
		t.Fatalf("png size %dx%d", cfg.Width, cfg.Height)
	}
	for _, page := range []string{"0", "2"} {
		if err := a.render(dir, out, []string{page}); !errors.Is(err, export.ErrPageIndex) {
			t.Fatalf("render page %s: expected ErrPageIndex, got %v", page, err)
		}
	}
}

func TestInitWritesDraftsThroughAutosave(t *testing.T) {
	a := testApp(t)
	dir := filepath.Join(t.TempDir(), "doc")
	if err := a.initDocument(dir, "Family", []string{"2024", "2"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	doc, err := openDocument(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := len(scene.Flatten(doc.Scene.Project.Pages[0].Layers)); got != 2 {
		t.Fatalf("layers = %d, want calendar and title", got)
	}
	ctx := context.Background()
	snaps, err := storage.ListSnapshots(ctx, doc.Root, 0)
	if err != nil || len(snaps) != 1 || snaps[0].Reason != storage.ReasonAutosave {
		t.Fatalf("snapshots = %+v err %v", snaps, err)
	}
	if d, err := storage.PendingDraft(ctx, doc); err != nil || d != nil {
		t.Fatalf("fresh document has a pending draft: %v %v", d, err)
	}
}
