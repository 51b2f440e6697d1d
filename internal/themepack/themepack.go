/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package themepack manages calendar palettes stored with a document. Each
// palette is a YAML file under <document>/themes; packs of palettes move
// between documents as zip archives.
package themepack

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"calendarcanvas/internal/calendar"
	applog "calendarcanvas/internal/log"
	"calendarcanvas/internal/storage"
	"calendarcanvas/internal/surface"
)

// ManifestName is the descriptive entry added at the root of every pack.
const ManifestName = "themepack.manifest.yaml"

// maxEntryBytes bounds a single palette file read from an archive.
const maxEntryBytes = 64 << 10

var (
	ErrInvalidPalette = errors.New("invalid palette")
	ErrNotFound       = errors.New("palette not found")
)

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Manifest describes a pack archive.
type Manifest struct {
	Created time.Time `yaml:"created"`
	Source  string    `yaml:"source,omitempty"`
	Keys    []string  `yaml:"keys"`
}

func dir(root string) string { return filepath.Join(root, storage.ThemesDirName) }

// Validate checks the key and every color of p. The returned warnings name
// text/background pairs below the WCAG AA contrast ratio; they do not make
// the palette invalid.
func Validate(p calendar.Palette) (warnings []string, err error) {
	if !keyPattern.MatchString(p.Key) {
		return nil, fmt.Errorf("%w: key %q", ErrInvalidPalette, p.Key)
	}
	colors := []struct{ name, v string }{
		{"primary", p.Primary}, {"secondary", p.Secondary}, {"surface", p.Surface},
		{"surface_muted", p.SurfaceMuted}, {"text", p.Text}, {"accent", p.Accent},
	}
	for _, c := range colors {
		if _, ok := surface.ParseColor(c.v); !ok {
			return nil, fmt.Errorf("%w: %s color %q", ErrInvalidPalette, c.name, c.v)
		}
	}
	if !calendar.MeetsAA(p.Text, p.Surface, false) {
		warnings = append(warnings, fmt.Sprintf("text on surface contrast %.2f", calendar.Contrast(p.Text, p.Surface)))
	}
	if !calendar.MeetsAA(p.Surface, p.Primary, true) {
		warnings = append(warnings, fmt.Sprintf("today highlight contrast %.2f", calendar.Contrast(p.Surface, p.Primary)))
	}
	return warnings, nil
}

// Save writes p to <root>/themes/<key>.yaml, replacing an existing file.
func Save(root string, p calendar.Palette) error {
	if _, err := Validate(p); err != nil {
		return err
	}
	if err := os.MkdirAll(dir(root), 0o755); err != nil {
		return fmt.Errorf("ensure themes dir: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir(root), p.Key+".yaml"), data, 0o644)
}

func decode(data []byte) (calendar.Palette, error) {
	var p calendar.Palette
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPalette, err)
	}
	if _, err := Validate(p); err != nil {
		return p, err
	}
	return p, nil
}

// LoadDocument returns the palettes stored with the document, sorted by key.
// Files that fail to parse are logged and skipped.
func LoadDocument(root string) ([]calendar.Palette, error) {
	l := applog.WithComponent("themepack")
	entries, err := os.ReadDir(dir(root))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []calendar.Palette
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir(root), e.Name()))
		if err != nil {
			return nil, err
		}
		p, err := decode(data)
		if err != nil {
			l.Warn("skip palette", slog.String("file", e.Name()), slog.Any("err", err))
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Load returns the built-in palettes followed by the document's own. A
// document palette replaces the built-in one with the same key in place.
func Load(root string) ([]calendar.Palette, error) {
	custom, err := LoadDocument(root)
	if err != nil {
		return nil, err
	}
	all := calendar.Palettes()
	pos := map[string]int{}
	for i, p := range all {
		pos[p.Key] = i
	}
	for _, p := range custom {
		if i, ok := pos[p.Key]; ok {
			all[i] = p
			continue
		}
		all = append(all, p)
	}
	return all, nil
}

// Find returns the palette with key from Load.
func Find(root, key string) (calendar.Palette, error) {
	all, err := Load(root)
	if err != nil {
		return calendar.Palette{}, err
	}
	for _, p := range all {
		if p.Key == key {
			return p, nil
		}
	}
	return calendar.Palette{}, fmt.Errorf("%w: %q", ErrNotFound, key)
}

// Export zips the document's palettes into destZip with a manifest at the
// archive root. It returns the number of palettes written.
func Export(root, destZip string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("themepack"), "export").With(slog.String("document", root))
	if strings.TrimSpace(root) == "" || strings.TrimSpace(destZip) == "" {
		return 0, errors.New("document root and destination are required")
	}
	pals, err := LoadDocument(root)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	zf, err := os.Create(destZip)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	m := Manifest{Created: time.Now().UTC().Truncate(time.Second), Source: filepath.Base(root)}
	for _, p := range pals {
		m.Keys = append(m.Keys, p.Key)
	}
	if err := writeEntry(zw, ManifestName, m); err != nil {
		return 0, err
	}
	for _, p := range pals {
		if err := writeEntry(zw, p.Key+".yaml", p); err != nil {
			return 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finish zip: %w", err)
	}
	l.Info("theme pack exported", slog.Int("palettes", len(pals)), slog.String("zip", destZip))
	return len(pals), nil
}

func writeEntry(zw *zip.Writer, name string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Install copies the palettes of a pack into the document. Palettes whose
// key already exists in the document are skipped, as are entries that are
// not valid palettes. It returns the installed keys.
func Install(root, packZip string) ([]string, error) {
	l := applog.WithOperation(applog.WithComponent("themepack"), "install").With(slog.String("document", root))
	if strings.TrimSpace(root) == "" || strings.TrimSpace(packZip) == "" {
		return nil, errors.New("document root and pack are required")
	}
	r, err := zip.OpenReader(packZip)
	if err != nil {
		return nil, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	existing := map[string]bool{}
	if pals, err := LoadDocument(root); err == nil {
		for _, p := range pals {
			existing[p.Key] = true
		}
	}

	var installed []string
	for _, f := range r.File {
		name := path.Base(f.Name)
		if f.FileInfo().IsDir() || name == ManifestName || path.Ext(name) != ".yaml" {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return installed, err
		}
		p, err := decode(data)
		if err != nil {
			l.Warn("skip entry", slog.String("entry", f.Name), slog.Any("err", err))
			continue
		}
		if existing[p.Key] {
			l.Warn("skip existing palette", slog.String("key", p.Key))
			continue
		}
		if err := Save(root, p); err != nil {
			return installed, err
		}
		existing[p.Key] = true
		installed = append(installed, p.Key)
	}
	l.Info("theme pack installed", slog.Int("palettes", len(installed)))
	return installed, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxEntryBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidPalette, f.Name, maxEntryBytes)
	}
	return data, nil
}
