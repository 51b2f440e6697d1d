/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config loads the per-user settings of the calendar editor. The YAML
// file is user editable; CALCANVAS_* environment variables are read-only
// overrides applied on top at runtime.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	applog "calendarcanvas/internal/log"
)

// EnvPrefix is prepended to every override variable.
const EnvPrefix = "CALCANVAS_"

// EnvConfigPath points Load and Save at a different file.
const EnvConfigPath = EnvPrefix + "CONFIG"

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in" env:"TELEMETRY_OPT_IN"`
	Theme          string `yaml:"theme" env:"THEME"` // palette key applied to new documents
}

type EditorConfig struct {
	HistoryLimit  int     `yaml:"history_limit" env:"HISTORY_LIMIT"`
	PageWidth     float64 `yaml:"page_width" env:"PAGE_WIDTH"`
	PageHeight    float64 `yaml:"page_height" env:"PAGE_HEIGHT"`
	SnapThreshold float64 `yaml:"snap_threshold" env:"SNAP_THRESHOLD"`
	// WeekStart is 0 for Sunday, 1 for Monday.
	WeekStart int `yaml:"week_start" env:"WEEK_START"`
}

type RenderConfig struct {
	FrameIntervalMs int    `yaml:"frame_interval_ms" env:"FRAME_INTERVAL_MS"`
	Backdrop        string `yaml:"backdrop" env:"BACKDROP"`
	FontFile        string `yaml:"font_file" env:"FONT_FILE"`
}

type ExportConfig struct {
	DPI     int      `yaml:"dpi" env:"DPI"`
	Formats []string `yaml:"formats" env:"FORMATS" envSeparator:","`
}

type AutosaveConfig struct {
	IntervalMs int `yaml:"interval_ms" env:"INTERVAL_MS"`
	KeepLast   int `yaml:"keep_last" env:"KEEP_LAST"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Source bool   `yaml:"source" env:"SOURCE"`
	File   string `yaml:"file" env:"FILE"`
}

// AppConfig is the user-editable configuration.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Editor        EditorConfig   `yaml:"editor" envPrefix:"EDITOR_"`
	Render        RenderConfig   `yaml:"render" envPrefix:"RENDER_"`
	Export        ExportConfig   `yaml:"export" envPrefix:"EXPORT_"`
	Autosave      AutosaveConfig `yaml:"autosave" envPrefix:"AUTOSAVE_"`
	Logging       LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "twilight"},
		Editor:        EditorConfig{HistoryLimit: 100, PageWidth: 750, PageHeight: 1334, SnapThreshold: 6, WeekStart: 0},
		Render:        RenderConfig{FrameIntervalMs: 16, Backdrop: "#F5F5F7"},
		Export:        ExportConfig{DPI: 150, Formats: []string{"png"}},
		Autosave:      AutosaveConfig{IntervalMs: 5000, KeepLast: 20},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// envKeys maps dotted config keys to their override variables.
var envKeys = map[string]string{
	"general.telemetry_opt_in": "TELEMETRY_OPT_IN",
	"general.theme":            "THEME",
	"editor.history_limit":     "EDITOR_HISTORY_LIMIT",
	"editor.page_width":        "EDITOR_PAGE_WIDTH",
	"editor.page_height":       "EDITOR_PAGE_HEIGHT",
	"editor.snap_threshold":    "EDITOR_SNAP_THRESHOLD",
	"editor.week_start":        "EDITOR_WEEK_START",
	"render.frame_interval_ms": "RENDER_FRAME_INTERVAL_MS",
	"render.backdrop":          "RENDER_BACKDROP",
	"render.font_file":         "RENDER_FONT_FILE",
	"export.dpi":               "EXPORT_DPI",
	"export.formats":           "EXPORT_FORMATS",
	"autosave.interval_ms":     "AUTOSAVE_INTERVAL_MS",
	"autosave.keep_last":       "AUTOSAVE_KEEP_LAST",
	"logging.level":            "LOG_LEVEL",
	"logging.format":           "LOG_FORMAT",
	"logging.source":           "LOG_SOURCE",
	"logging.file":             "LOG_FILE",
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "CalendarCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "CalendarCanvas")
	default:
		home := os.Getenv("HOME")
		if home == "" {
			return "", errors.New("cannot resolve config directory")
		}
		base = filepath.Join(home, ".config", "calendarcanvas")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file if present, applies defaults and merges
// environment overrides. A malformed file is an error; a missing one is not.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	normalize(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if s := strings.TrimSpace(src.General.Theme); s != "" {
		dst.General.Theme = s
	}

	if src.Editor.HistoryLimit != 0 {
		dst.Editor.HistoryLimit = src.Editor.HistoryLimit
	}
	if src.Editor.PageWidth > 0 {
		dst.Editor.PageWidth = src.Editor.PageWidth
	}
	if src.Editor.PageHeight > 0 {
		dst.Editor.PageHeight = src.Editor.PageHeight
	}
	if src.Editor.SnapThreshold > 0 {
		dst.Editor.SnapThreshold = src.Editor.SnapThreshold
	}
	dst.Editor.WeekStart = src.Editor.WeekStart

	if src.Render.FrameIntervalMs > 0 {
		dst.Render.FrameIntervalMs = src.Render.FrameIntervalMs
	}
	if s := strings.TrimSpace(src.Render.Backdrop); s != "" {
		dst.Render.Backdrop = s
	}
	if s := strings.TrimSpace(src.Render.FontFile); s != "" {
		dst.Render.FontFile = s
	}

	if src.Export.DPI != 0 {
		dst.Export.DPI = src.Export.DPI
	}
	if len(src.Export.Formats) > 0 {
		dst.Export.Formats = append([]string(nil), src.Export.Formats...)
	}

	if src.Autosave.IntervalMs != 0 {
		dst.Autosave.IntervalMs = src.Autosave.IntervalMs
	}
	if src.Autosave.KeepLast != 0 {
		dst.Autosave.KeepLast = src.Autosave.KeepLast
	}

	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = s
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = s
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func applyEnvOverrides(cfg *AppConfig) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

// normalize fixes values the editor cannot work with.
func normalize(cfg *AppConfig) {
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if cfg.Editor.WeekStart != 1 {
		cfg.Editor.WeekStart = 0
	}
	if cfg.Editor.HistoryLimit <= 0 {
		cfg.Editor.HistoryLimit = Defaults().Editor.HistoryLimit
	}
	for i, f := range cfg.Export.Formats {
		cfg.Export.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
}

// EnvOverrideFor returns the env var name if the key is overridden by the
// environment.
func EnvOverrideFor(key string) (string, bool) {
	suffix, ok := envKeys[key]
	if !ok {
		return "", false
	}
	name := EnvPrefix + suffix
	if _, set := os.LookupEnv(name); set {
		return name, true
	}
	return "", false
}

// AutosaveInterval converts the configured interval to a duration.
func (c AppConfig) AutosaveInterval() time.Duration {
	if c.Autosave.IntervalMs <= 0 {
		return time.Duration(Defaults().Autosave.IntervalMs) * time.Millisecond
	}
	return time.Duration(c.Autosave.IntervalMs) * time.Millisecond
}

// FrameInterval is the minimum spacing of renderer frames.
func (c AppConfig) FrameInterval() time.Duration {
	if c.Render.FrameIntervalMs <= 0 {
		return 16 * time.Millisecond
	}
	return time.Duration(c.Render.FrameIntervalMs) * time.Millisecond
}

// LogOptions maps the logging section onto logger options.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		AddSource: c.Logging.Source,
		File:      c.Logging.File,
	}
}
