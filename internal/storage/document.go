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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	applog "calendarcanvas/internal/log"
	"calendarcanvas/internal/scene"
)

const (
	ManifestFileName = "calendar.json"
	BackupsDirName   = "backups"
	ThemesDirName    = "themes"
	ExportsDirName   = "exports"
)

var standardSubDirs = []string{
	ThemesDirName,
	ExportsDirName,
	"assets",
	BackupsDirName,
}

// ErrNoBackup is returned when a broken manifest has no backup to fall back to.
var ErrNoBackup = errors.New("storage: no backups found")

// Document is an open calendar document on disk.
// Recovered is set when Open had to fall back to a backup manifest.
type Document struct {
	Root         string
	ManifestPath string
	Scene        *scene.Scene
	Recovered    string
}

// InitDocument creates root and its standard subfolders and writes sc as the manifest.
func InitDocument(root string, sc *scene.Scene) (*Document, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if sc == nil {
		return nil, errors.New("scene is required")
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	doc := &Document{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Scene:        sc,
	}
	if err := Save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create document root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads the document in root. A manifest that cannot be read, fails
// schema validation or breaks scene invariants is replaced by the newest
// backup that loads cleanly.
func Open(root string) (*Document, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("root", root))
	mpath := filepath.Join(root, ManifestFileName)
	sc, err := readManifest(mpath)
	if err == nil {
		return &Document{Root: root, ManifestPath: mpath, Scene: sc}, nil
	}
	sc, from, berr := openFromLatestBackup(root)
	if berr != nil {
		return nil, fmt.Errorf("open manifest: %w; backup attempt: %w", err, berr)
	}
	l.Warn("manifest unreadable, recovered from backup", slog.Any("err", err), slog.String("backup", from))
	return &Document{Root: root, ManifestPath: mpath, Scene: sc, Recovered: from}, nil
}

func readManifest(path string) (*scene.Scene, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := scene.Validate(b); err != nil {
		return nil, err
	}
	return scene.Unmarshal(b)
}

// Save writes doc.Scene with transactional semantics and keeps a
// timestamped backup of the previous manifest.
func Save(doc *Document) error {
	if doc == nil {
		return errors.New("nil Document")
	}
	if doc.Root == "" || doc.ManifestPath == "" {
		return errors.New("invalid Document: missing paths")
	}
	data, err := scene.Marshal(doc.Scene)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(doc.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(doc.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp))
		if cerr := copyFile(doc.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}
	if err := writeAtomic(doc.ManifestPath, data); err != nil {
		return err
	}
	doc.Recovered = ""
	return nil
}

// SaveAs moves the document to newRoot, scaffolding it, and saves there.
func SaveAs(doc *Document, newRoot string) error {
	if doc == nil {
		return errors.New("nil Document")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	doc.Root = newRoot
	doc.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(doc)
}

// PruneBackups deletes all but the newest keep manifest backups and reports
// how many were removed.
func PruneBackups(root string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	names, err := backupNames(root)
	if err != nil {
		return 0, err
	}
	if len(names) <= keep {
		return 0, nil
	}
	removed := 0
	for _, p := range names[:len(names)-keep] {
		if err := os.Remove(p); err != nil {
			return removed, fmt.Errorf("remove backup: %w", err)
		}
		removed++
	}
	return removed, nil
}

// writeAtomic writes to a temp file in the target directory and renames it
// over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", base, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp %s: %w", base, werr)
	}
	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", base, rerr)
	}
	return nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// backupNames lists manifest backups oldest first. The timestamp in the
// name sorts lexicographically.
func backupNames(root string) ([]string, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	slices.Sort(out)
	return out, nil
}

// openFromLatestBackup walks backups newest first and returns the first one
// that loads.
func openFromLatestBackup(root string) (*scene.Scene, string, error) {
	names, err := backupNames(root)
	if err != nil {
		return nil, "", err
	}
	if len(names) == 0 {
		return nil, "", ErrNoBackup
	}
	var last error
	for i := len(names) - 1; i >= 0; i-- {
		sc, err := readManifest(names[i])
		if err == nil {
			return sc, names[i], nil
		}
		last = err
	}
	return nil, "", fmt.Errorf("%w: every backup is unreadable: %w", ErrNoBackup, last)
}
