/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
// Package engine is the editor façade: the only code that mutates a live
// scene. Every edit runs as a command on the undo bus, asks the renderer to
// repaint what it touched and notifies subscribers synchronously.
package engine

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"calendarcanvas/internal/geom"
	applog "calendarcanvas/internal/log"
	"calendarcanvas/internal/render"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/undo"
)

// ErrNoActivePage means the scene has no page at its active index. It is a
// data-consistency error, not a user mistake.
var ErrNoActivePage = errors.New("engine: active page is missing")

// Options configure a new Engine. The zero value is usable.
type Options struct {
	// Scene is adopted as the live document. Nil creates an empty one.
	Scene    *scene.Scene
	Registry *scene.Registry
	Renderer *render.Renderer
	// HistoryLimit caps undo depth (default 100).
	HistoryLimit int
	// MergeWindow limits merging of drag updates to edits this close together.
	MergeWindow time.Duration
	IDs         scene.IDGen
	Now         func() time.Time
	Logger      *slog.Logger
	Snap        geom.SnapOptions
}

// Engine is not safe for concurrent use. Run it on one goroutine, e.g.
// through render.Loop.Post.
type Engine struct {
	scene    *scene.Scene
	reg      *scene.Registry
	renderer *render.Renderer
	history  *undo.Bus
	ids      scene.IDGen
	now      func() time.Time
	log      *slog.Logger
	snap     geom.SnapOptions

	selection []string
	subs      []subscriber
	nextSub   int
	saved     []byte
}

// New builds an engine. The given scene is healed with scene.Sanitize before
// use.
func New(opts Options) *Engine {
	e := &Engine{
		reg:      opts.Registry,
		renderer: opts.Renderer,
		ids:      opts.IDs,
		now:      opts.Now,
		log:      opts.Logger,
		snap:     opts.Snap,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.reg == nil {
		e.reg = scene.NewRegistry(e.now)
	}
	if e.renderer == nil {
		e.renderer = render.New()
	}
	if e.ids == nil {
		e.ids = scene.NewID
	}
	if e.log == nil {
		e.log = applog.WithComponent("engine")
	}
	if e.snap.Threshold <= 0 {
		e.snap = geom.DefaultSnapOptions()
	}
	e.history = undo.New(undo.Config{Limit: opts.HistoryLimit, MergeWindow: opts.MergeWindow, Now: e.now})

	sc := opts.Scene
	if sc == nil || scene.Check(sc) != nil {
		if sc != nil {
			e.log.Warn("invalid scene replaced with an empty document", "err", scene.Check(sc))
		}
		sc = scene.NewSceneAt(0, 0, e.ids, e.now())
	}
	scene.Sanitize(sc, e.reg)
	e.scene = sc
	e.renderer.SetScene(sc)
	e.MarkSaved()
	return e
}

func (e *Engine) Scene() *scene.Scene        { return e.scene }
func (e *Engine) Renderer() *render.Renderer { return e.renderer }
func (e *Engine) Registry() *scene.Registry  { return e.reg }
func (e *Engine) HistoryStats() undo.Stats   { return e.history.Stats() }
func (e *Engine) Viewport() geom.Viewport    { return e.renderer.Viewport() }
func (e *Engine) CanUndo() bool              { return e.history.CanUndo() }
func (e *Engine) CanRedo() bool              { return e.history.CanRedo() }

// SetHistoryLimit changes the undo depth, dropping the oldest entries.
func (e *Engine) SetHistoryLimit(limit int) {
	e.history.SetLimit(limit)
	e.emitHistory()
}

// ActivePage returns the page being edited.
func (e *Engine) ActivePage() (*scene.Page, error) {
	p, ok := e.scene.ActivePage()
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrNoActivePage, e.scene.ActivePageIndex)
	}
	return p, nil
}

// SetActivePageIndex switches pages and clears the selection. Out of range
// or unchanged indices report false.
func (e *Engine) SetActivePageIndex(i int) bool {
	if i < 0 || i >= len(e.scene.Project.Pages) || i == e.scene.ActivePageIndex {
		return false
	}
	e.scene.ActivePageIndex = i
	e.setSelection(nil)
	e.renderer.InvalidateAll()
	e.emitScene()
	return true
}

// run executes cmd on the history and publishes the change.
func (e *Engine) run(cmd undo.Command, merge bool) {
	e.history.Execute(cmd, undo.ExecOptions{Merge: merge})
	if len(e.selection) > 0 {
		e.renderer.RefreshSelection()
	}
	e.log.Debug("command", slog.String("name", cmd.Name()), slog.Int("history", e.history.Len()))
	e.emitScene()
	e.emitHistory()
}

// Undo reverts the last command. The selection is pruned of layers that no
// longer exist and the page repaints in full.
func (e *Engine) Undo() bool {
	if !e.history.Undo() {
		return false
	}
	e.afterHistoryMove()
	return true
}

func (e *Engine) Redo() bool {
	if !e.history.Redo() {
		return false
	}
	e.afterHistoryMove()
	return true
}

func (e *Engine) afterHistoryMove() {
	e.emitScene()
	e.emitHistory()
	e.renderer.InvalidateAll()
	e.pruneSelection()
	e.renderer.RefreshSelection()
}

// ViewportPatch changes selected viewport fields; nil fields are kept.
type ViewportPatch struct {
	Scale      *float64
	TranslateX *float64
	TranslateY *float64
	DPR        *float64
	Width      *float64
	Height     *float64
}

// UpdateViewport applies the patch, ignoring non-finite values and
// non-positive scale or ratio.
func (e *Engine) UpdateViewport(p ViewportPatch) {
	v := e.renderer.Viewport()
	set := func(dst *float64, src *float64, positive bool) {
		if src == nil || math.IsNaN(*src) || math.IsInf(*src, 0) || (positive && *src <= 0) {
			return
		}
		*dst = *src
	}
	set(&v.Scale, p.Scale, true)
	set(&v.TranslateX, p.TranslateX, false)
	set(&v.TranslateY, p.TranslateY, false)
	set(&v.DPR, p.DPR, true)
	set(&v.Width, p.Width, false)
	set(&v.Height, p.Height, false)
	e.setViewport(v)
}

func (e *Engine) setViewport(v geom.Viewport) {
	e.renderer.SetViewport(v)
	e.emit(ViewportChange{Viewport: e.renderer.Viewport()})
}

// FitViewport scales and centers the active page inside a width x height
// surface of logical pixels.
func (e *Engine) FitViewport(width, height, dpr float64) error {
	p, err := e.ActivePage()
	if err != nil {
		return err
	}
	if !(dpr > 0) {
		dpr = 1
	}
	pw, ph := scene.PageSize(p)
	e.setViewport(geom.Fit(width, height, pw, ph, dpr))
	return nil
}

// Serialize returns a deep copy of the document.
func (e *Engine) Serialize() *scene.Scene { return e.scene.Clone() }

// Restore replaces the document with a copy of s. History and selection are
// cleared because they refer to the old document.
func (e *Engine) Restore(s *scene.Scene) error {
	if err := scene.Check(s); err != nil {
		return err
	}
	next := s.Clone()
	scene.Sanitize(next, e.reg)
	e.scene = next
	e.history.Clear()
	e.renderer.SetScene(next)
	e.setSelection(nil)
	e.log.Info("document restored", slog.String("project", next.Project.ID), slog.Int("pages", len(next.Project.Pages)))
	e.emitScene()
	e.emitHistory()
	return nil
}

// MarkSaved records the current document as persisted.
func (e *Engine) MarkSaved() {
	b, err := scene.Marshal(e.scene)
	if err != nil {
		e.log.Warn("snapshot for dirty tracking failed", "err", err)
		return
	}
	e.saved = b
}

// Dirty reports whether the document differs from the last MarkSaved.
func (e *Engine) Dirty() bool {
	b, err := scene.Marshal(e.scene)
	if err != nil {
		return true
	}
	return !bytes.Equal(b, e.saved)
}
