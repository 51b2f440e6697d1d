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
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"calendarcanvas/internal/engine"
	applog "calendarcanvas/internal/log"
	"calendarcanvas/internal/scene"
)

// Autosave defaults.
const (
	DefaultAutosaveInterval = 5 * time.Second
	DefaultAutosaveKeep     = 20
)

// AutosaveOptions configure an Autosaver. Zero values take the defaults.
type AutosaveOptions struct {
	Interval time.Duration
	KeepLast int
	Now      func() time.Time
	Logger   *slog.Logger
}

// Autosaver writes debounced draft snapshots of a document into its index.
// Notify is called from the editing goroutine; writes happen on a timer
// goroutine.
type Autosaver struct {
	root     string
	interval time.Duration
	keep     int
	now      func() time.Time
	log      *slog.Logger

	// writeMu orders flushes so a newer draft never lands before an older one.
	writeMu sync.Mutex

	mu      sync.Mutex
	pending *scene.Scene
	timer   *time.Timer
	closed  bool
	saved   int
	lastErr error
}

// NewAutosaver returns an autosaver for the document in root.
func NewAutosaver(root string, opts AutosaveOptions) *Autosaver {
	a := &Autosaver{
		root:     root,
		interval: opts.Interval,
		keep:     opts.KeepLast,
		now:      opts.Now,
		log:      opts.Logger,
	}
	if a.interval <= 0 {
		a.interval = DefaultAutosaveInterval
	}
	if a.keep <= 0 {
		a.keep = DefaultAutosaveKeep
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.log == nil {
		a.log = applog.WithComponent("autosave").With(slog.String("root", root))
	}
	return a
}

// Notify records sc as the newest draft and arms the timer. sc is copied,
// so the caller may keep editing it. Notifications within one interval are
// coalesced into a single write.
func (a *Autosaver) Notify(sc *scene.Scene) {
	if sc == nil {
		return
	}
	draft := sc.Clone()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending = draft
	if a.timer == nil {
		a.timer = time.AfterFunc(a.interval, func() { _ = a.Flush(context.Background()) })
	}
}

// Attach subscribes the autosaver to the engine's scene changes and returns
// the unsubscribe func.
func (a *Autosaver) Attach(eng *engine.Engine) (detach func()) {
	return eng.On(func(ev engine.Event) {
		if c, ok := ev.(engine.SceneChange); ok {
			a.Notify(c.Scene)
		}
	})
}

// Flush writes the pending draft now, if any, and prunes old snapshots.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	a.mu.Lock()
	draft := a.pending
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	if draft == nil {
		return nil
	}
	err := a.write(ctx, draft)
	a.mu.Lock()
	a.lastErr = err
	if err == nil {
		a.saved++
	}
	a.mu.Unlock()
	return err
}

func (a *Autosaver) write(ctx context.Context, draft *scene.Scene) error {
	id, err := SaveSnapshot(ctx, a.root, draft, ReasonAutosave, a.now())
	if err != nil {
		a.log.Warn("autosave failed", slog.Any("err", err))
		return fmt.Errorf("autosave: %w", err)
	}
	n, err := PruneSnapshots(ctx, a.root, a.keep)
	if err != nil {
		a.log.Warn("prune snapshots failed", slog.Any("err", err))
	}
	a.log.Debug("draft saved", slog.Int64("snapshot", id), slog.Int64("pruned", n))
	return nil
}

// Saved reports how many drafts were written and the last write error.
func (a *Autosaver) Saved() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saved, a.lastErr
}

// Close flushes the pending draft and stops accepting new ones.
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return a.Flush(ctx)
}

// PendingDraft returns the newest snapshot taken after the manifest was
// last written, or nil when the manifest is up to date. A draft equal to the
// manifest scene is not pending.
func PendingDraft(ctx context.Context, doc *Document) (*Snapshot, error) {
	st, err := os.Stat(doc.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("stat manifest: %w", err)
	}
	s, err := LatestSnapshot(ctx, doc.Root)
	if err != nil || s == nil {
		return nil, err
	}
	if !s.TS.After(st.ModTime()) {
		return nil, nil
	}
	if cur, err := scene.Marshal(doc.Scene); err == nil && bytes.Equal(cur, s.Data) {
		return nil, nil
	}
	return s, nil
}

// AutosaveCrashSnapshot stores the document's scene as a crash snapshot.
func AutosaveCrashSnapshot(doc *Document) (int64, error) {
	if doc == nil || doc.Scene == nil {
		return 0, fmt.Errorf("autosave crash snapshot: no document")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return SaveSnapshot(ctx, doc.Root, doc.Scene, ReasonCrash, time.Now())
}
