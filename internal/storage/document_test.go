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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/scene"
)

var fixtureTime = time.Date(2024, 2, 15, 9, 0, 0, 0, time.UTC)

// sampleScene has two pages: a calendar, a title and a sticker on the
// first, a shape on the second.
func sampleScene(t *testing.T) *scene.Scene {
	t.Helper()
	reg := scene.NewRegistry(func() time.Time { return fixtureTime })
	sc := scene.NewSceneAt(0, 0, scene.SequentialIDs(), fixtureTime)
	sc.Project.Title = "Family calendar"
	txt, err := reg.New(scene.KindText, map[string]any{"text": "Happy Lantern Festival"})
	if err != nil {
		t.Fatalf("text props: %v", err)
	}
	pg := sc.Project.Pages[0]
	pg.Layers = append(pg.Layers,
		&scene.Layer{ID: "l_1", Type: scene.KindCalendar, Name: "February", Frame: geom.R(37, 200, 675, 933), Props: reg.Defaults(scene.KindCalendar)},
		&scene.Layer{ID: "l_2", Type: scene.KindText, Name: "Title", Frame: geom.R(150, 80, 450, 94), Props: txt},
		&scene.Layer{ID: "l_3", Type: "sticker", Frame: geom.R(20, 20, 100, 100), Props: &scene.GenericProps{Type: "sticker", Values: map[string]any{"label": "lantern"}}},
	)
	back := scene.NewPage("pg_2", "Back", 750, 1334)
	back.Layers = append(back.Layers, &scene.Layer{ID: "l_4", Type: scene.KindShape, Name: "Frame", Frame: geom.R(40, 40, 670, 1254), Props: reg.Defaults(scene.KindShape)})
	sc.Project.Pages = append(sc.Project.Pages, back)
	return sc
}

func mustMarshal(t *testing.T, sc *scene.Scene) []byte {
	t.Helper()
	b, err := scene.Marshal(sc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestInitOpenRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "doc")
	sc := sampleScene(t)
	doc, err := InitDocument(root, sc)
	if err != nil {
		t.Fatalf("InitDocument: %v", err)
	}
	for _, d := range standardSubDirs {
		if st, err := os.Stat(filepath.Join(root, d)); err != nil || !st.IsDir() {
			t.Fatalf("expected subdir %s, err=%v", d, err)
		}
	}
	if doc.ManifestPath != filepath.Join(root, ManifestFileName) {
		t.Fatalf("manifest path = %s", doc.ManifestPath)
	}
	got, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Recovered != "" {
		t.Fatalf("unexpected recovery from %s", got.Recovered)
	}
	if !bytes.Equal(mustMarshal(t, got.Scene), mustMarshal(t, sc)) {
		t.Fatalf("scene changed across save/open")
	}
	if _, ok := got.Scene.Project.Pages[0].Layers[2].Props.(*scene.GenericProps); !ok {
		t.Fatalf("unknown kind lost its generic props: %T", got.Scene.Project.Pages[0].Layers[2].Props)
	}
}

func TestInitDocumentRequiresRootAndScene(t *testing.T) {
	if _, err := InitDocument("  ", sampleScene(t)); err == nil {
		t.Fatalf("expected error for blank root")
	}
	if _, err := InitDocument(t.TempDir(), nil); err == nil {
		t.Fatalf("expected error for nil scene")
	}
}

func TestSaveKeepsBackupsAndPrunes(t *testing.T) {
	root := t.TempDir()
	doc, err := InitDocument(root, sampleScene(t))
	if err != nil {
		t.Fatalf("InitDocument: %v", err)
	}
	for i := 0; i < 3; i++ {
		doc.Scene.Project.Title = "rev " + string(rune('A'+i))
		if err := Save(doc); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	names, err := backupNames(root)
	if err != nil {
		t.Fatalf("backupNames: %v", err)
	}
	if len(names) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(names))
	}
	removed, err := PruneBackups(root, 1)
	if err != nil || removed != 2 {
		t.Fatalf("PruneBackups removed %d err %v", removed, err)
	}
	names, _ = backupNames(root)
	if len(names) != 1 {
		t.Fatalf("expected 1 backup left, got %d", len(names))
	}
	b, err := os.ReadFile(names[0])
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !strings.Contains(string(b), `"rev B"`) {
		t.Fatalf("newest backup should hold the previous revision")
	}
}

func TestOpenFallsBackToLatestBackup(t *testing.T) {
	root := t.TempDir()
	doc, err := InitDocument(root, sampleScene(t))
	if err != nil {
		t.Fatalf("InitDocument: %v", err)
	}
	doc.Scene.Project.Title = "Edited"
	if err := Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(doc.ManifestPath, []byte("{ not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}
	got, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Recovered == "" {
		t.Fatalf("expected Recovered to name the backup")
	}
	if got.Scene.Project.Title != "Family calendar" {
		t.Fatalf("recovered title = %q", got.Scene.Project.Title)
	}
	if err := Save(got); err != nil || got.Recovered != "" {
		t.Fatalf("Save after recovery: err=%v recovered=%q", err, got.Recovered)
	}
}

func TestOpenRejectsSchemaViolation(t *testing.T) {
	root := t.TempDir()
	bad := `{"project":{"id":"","title":"x","pages":[]},"activePageIndex":0}`
	if err := os.WriteFile(filepath.Join(root, ManifestFileName), []byte(bad), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Open(root)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, scene.ErrInvalidScene) {
		t.Fatalf("expected ErrInvalidScene in chain, got %v", err)
	}
}

func TestOpenSkipsBrokenBackups(t *testing.T) {
	root := t.TempDir()
	doc, err := InitDocument(root, sampleScene(t))
	if err != nil {
		t.Fatalf("InitDocument: %v", err)
	}
	if err := Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	junk := filepath.Join(root, BackupsDirName, ManifestFileName+".99991231-235959.000.bak")
	if err := os.WriteFile(junk, []byte("junk"), 0o644); err != nil {
		t.Fatalf("write junk backup: %v", err)
	}
	if err := os.Remove(doc.ManifestPath); err != nil {
		t.Fatalf("remove manifest: %v", err)
	}
	got, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Recovered == junk {
		t.Fatalf("recovered from the broken backup")
	}
}

func TestOpenWithoutBackups(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, BackupsDirName), 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := Open(root)
	if !errors.Is(err, ErrNoBackup) {
		t.Fatalf("expected ErrNoBackup, got %v", err)
	}
}

func TestSaveAs(t *testing.T) {
	doc, err := InitDocument(t.TempDir(), sampleScene(t))
	if err != nil {
		t.Fatalf("InitDocument: %v", err)
	}
	newRoot := filepath.Join(t.TempDir(), "copy")
	if err := SaveAs(doc, newRoot); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if doc.Root != newRoot {
		t.Fatalf("root not updated: %s", doc.Root)
	}
	if _, err := os.Stat(filepath.Join(newRoot, ManifestFileName)); err != nil {
		t.Fatalf("manifest missing in new root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(newRoot, ThemesDirName)); err != nil {
		t.Fatalf("themes dir missing in new root: %v", err)
	}
	if err := SaveAs(nil, newRoot); err == nil {
		t.Fatalf("expected error for nil document")
	}
}
