/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package themepack

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"calendarcanvas/internal/calendar"
)

func lantern() calendar.Palette {
	return calendar.Palette{
		Key: "lantern", Name: "Lantern", Primary: "#C62828", Secondary: "#FFEBEE",
		Surface: "#FFFFFF", SurfaceMuted: "#FFF5F5", Text: "#2B1B1B", Accent: "#FFB300",
	}
}

func TestSaveLoadFind(t *testing.T) {
	root := t.TempDir()
	if err := Save(root, lantern()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadDocument(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || !reflect.DeepEqual(got[0], lantern()) {
		t.Fatalf("got %+v", got)
	}
	all, err := Load(root)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != len(calendar.Palettes())+1 || all[len(all)-1].Key != "lantern" {
		t.Fatalf("custom palette not appended: %d", len(all))
	}
	p, err := Find(root, "lantern")
	if err != nil || p.Primary != "#C62828" {
		t.Fatalf("find: %+v %v", p, err)
	}
	if _, err := Find(root, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDocumentPaletteOverridesBuiltin(t *testing.T) {
	root := t.TempDir()
	builtin := calendar.Palettes()[0]
	custom := builtin
	custom.Primary = "#123456"
	if err := Save(root, custom); err != nil {
		t.Fatalf("save: %v", err)
	}
	all, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(all) != len(calendar.Palettes()) {
		t.Fatalf("override appended instead of replaced: %d", len(all))
	}
	if all[0].Key != builtin.Key || all[0].Primary != "#123456" {
		t.Fatalf("first palette %+v", all[0])
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*calendar.Palette)
		ok   bool
	}{
		{"valid", func(*calendar.Palette) {}, true},
		{"bad key", func(p *calendar.Palette) { p.Key = "../evil" }, false},
		{"empty key", func(p *calendar.Palette) { p.Key = "" }, false},
		{"bad color", func(p *calendar.Palette) { p.Accent = "not-a-color" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := lantern()
			tc.mut(&p)
			_, err := Validate(p)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidPalette) {
				t.Fatalf("want ErrInvalidPalette, got %v", err)
			}
		})
	}
}

func TestValidateWarnsOnLowContrast(t *testing.T) {
	p := lantern()
	p.Text = "#EEEEEE"
	warnings, err := Validate(p)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(warnings) == 0 {
		t.Fatalf("expected a contrast warning")
	}
}

func TestLoadSkipsBrokenFiles(t *testing.T) {
	root := t.TempDir()
	if err := Save(root, lantern()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir(root), "broken.yaml"), []byte("key: [x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadDocument(root)
	if err != nil || len(got) != 1 {
		t.Fatalf("got %d palettes, err %v", len(got), err)
	}
}

func TestExportAndInstallPack(t *testing.T) {
	src := t.TempDir()
	second := lantern()
	second.Key = "snow"
	second.Primary = "#1565C0"
	for _, p := range []calendar.Palette{lantern(), second} {
		if err := Save(src, p); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	zipPath := filepath.Join(t.TempDir(), "pack.zip")
	n, err := Export(src, zipPath)
	if err != nil || n != 2 {
		t.Fatalf("export: %d %v", n, err)
	}

	dst := t.TempDir()
	if err := Save(dst, lantern()); err != nil {
		t.Fatalf("save: %v", err)
	}
	keys, err := Install(dst, zipPath)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"snow"}) {
		t.Fatalf("installed %v, want only snow", keys)
	}
	p, err := Find(dst, "snow")
	if err != nil || p.Primary != "#1565C0" {
		t.Fatalf("installed palette: %+v %v", p, err)
	}
}

func TestInstallIgnoresForeignEntries(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "mixed.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	entries := map[string]string{
		"readme.txt":          "hello",
		"themes/broken.yaml":  "key: [",
		"../../escape.yaml":   "key: escape\nprimary: '#000000'\nsecondary: '#000000'\nsurface: '#FFFFFF'\nsurface_muted: '#FFFFFF'\ntext: '#000000'\naccent: '#000000'\n",
		"nested/bad-key.yaml": "key: Bad Key\n",
	}
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	root := t.TempDir()
	keys, err := Install(root, zipPath)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	// palettes are stored by key, so the entry path is never used as a file path
	if !reflect.DeepEqual(keys, []string{"escape"}) {
		t.Fatalf("installed %v", keys)
	}
	if _, err := os.Stat(filepath.Join(dir(root), "escape.yaml")); err != nil {
		t.Fatalf("palette not stored under themes: %v", err)
	}
}
