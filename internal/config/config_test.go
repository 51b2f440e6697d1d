/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// useTempConfig points Load and Save at a file inside the test's temp dir.
func useTempConfig(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, p)
	return p
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	useTempConfig(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Defaults()) {
		t.Fatalf("got %#v, want defaults", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	useTempConfig(t)
	cfg := Defaults()
	cfg.Editor.WeekStart = 1
	cfg.Editor.HistoryLimit = 40
	cfg.Export.Formats = []string{"pdf", "png"}
	cfg.Autosave.KeepLast = 5
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, cfg)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	p := useTempConfig(t)
	if err := os.WriteFile(p, []byte("editor: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	useTempConfig(t)
	t.Setenv("CALCANVAS_TELEMETRY_OPT_IN", "true")
	t.Setenv("CALCANVAS_EDITOR_WEEK_START", "1")
	t.Setenv("CALCANVAS_EDITOR_SNAP_THRESHOLD", "4.5")
	t.Setenv("CALCANVAS_EXPORT_FORMATS", "PDF, svg")
	t.Setenv("CALCANVAS_AUTOSAVE_INTERVAL_MS", "250")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("telemetry opt-in not applied")
	}
	if cfg.Editor.WeekStart != 1 || cfg.Editor.SnapThreshold != 4.5 {
		t.Fatalf("editor overrides not applied: %#v", cfg.Editor)
	}
	if !reflect.DeepEqual(cfg.Export.Formats, []string{"pdf", "svg"}) {
		t.Fatalf("formats = %v", cfg.Export.Formats)
	}
	if cfg.AutosaveInterval() != 250*time.Millisecond {
		t.Fatalf("interval = %v", cfg.AutosaveInterval())
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	useTempConfig(t)
	t.Setenv("CALCANVAS_LOG_LEVEL", "ERROR")
	t.Setenv("CALCANVAS_LOG_FORMAT", "json")
	t.Setenv("CALCANVAS_LOG_SOURCE", "1")
	t.Setenv("CALCANVAS_LOG_FILE", "/tmp/calcanvas.log")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	lo := cfg.LogOptions()
	if lo.Level != "error" || lo.Format != "json" || !lo.AddSource || lo.File != "/tmp/calcanvas.log" {
		t.Fatalf("env overrides not applied to logging: %#v", lo)
	}
}

func TestEnvOverrideInvalidValue(t *testing.T) {
	useTempConfig(t)
	t.Setenv("CALCANVAS_EXPORT_DPI", "lots")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric dpi")
	}
}

func TestEnvOverrideFor(t *testing.T) {
	t.Setenv("CALCANVAS_EDITOR_HISTORY_LIMIT", "10")
	if name, ok := EnvOverrideFor("editor.history_limit"); !ok || name != "CALCANVAS_EDITOR_HISTORY_LIMIT" {
		t.Fatalf("got %q %v", name, ok)
	}
	if _, ok := EnvOverrideFor("render.backdrop"); ok {
		t.Fatalf("render.backdrop reported as overridden")
	}
	if _, ok := EnvOverrideFor("nope"); ok {
		t.Fatalf("unknown key reported as overridden")
	}
}

func TestMergeKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Editor: EditorConfig{PageWidth: 600}, Logging: LoggingConfig{Level: "debug", Source: true}}
	mergeInto(&dst, &src)
	if dst.Editor.PageWidth != 600 || dst.Editor.PageHeight != 1334 {
		t.Fatalf("page size merged wrong: %#v", dst.Editor)
	}
	if dst.Export.DPI != 150 || dst.Autosave.KeepLast != 20 {
		t.Fatalf("defaults lost: %#v %#v", dst.Export, dst.Autosave)
	}
	if dst.Logging.Level != "debug" || !dst.Logging.Source || dst.Logging.Format != "console" {
		t.Fatalf("logging merged wrong: %#v", dst.Logging)
	}
}

func TestNormalizeWeekStart(t *testing.T) {
	cfg := Defaults()
	cfg.Editor.WeekStart = 6
	cfg.Editor.HistoryLimit = -1
	normalize(&cfg)
	if cfg.Editor.WeekStart != 0 || cfg.Editor.HistoryLimit != 100 {
		t.Fatalf("normalize: %#v", cfg.Editor)
	}
}
