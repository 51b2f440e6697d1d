/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
// Package render paints the active page of a scene onto a surface. It keeps
// a queue of dirty rectangles in document space, coalesces invalidations into
// one paint per frame and repaints the full page content inside each dirty
// clip.
package render

import (
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"calendarcanvas/internal/calendar"
	"calendarcanvas/internal/geom"
	applog "calendarcanvas/internal/log"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/surface"
)

const (
	// HandleSize is the edge of a resize handle in document units.
	HandleSize = 12
	// RotateHandleOffset is the distance of the rotation handle above the top edge.
	RotateHandleOffset = 48
	// MaxDirtyRects is the queue length beyond which a frame repaints the page.
	MaxDirtyRects = 16

	dirtyMargin   = 4
	overlayPrefix = "overlay:"

	KeySelection = overlayPrefix + "selection"
	KeyGuides    = overlayPrefix + "guides"
)

// Guide is an alignment line across the page.
type Guide struct {
	Orientation geom.Orientation
	Position    float64
}

// DragOverlay is a ghost frame drawn for a layer being dragged.
type DragOverlay struct {
	LayerID string
	Frame   geom.Rect
}

// Request describes an invalidation tied to a memo key. The region painted
// is Rect united with the bounds last remembered for Key.
type Request struct {
	// Rect is the region to repaint. Nil with nothing remembered repaints the page.
	Rect *geom.Rect
	// Key names the memo entry, typically a layer id or an overlay key.
	Key string
	// Next is remembered for Key; nil remembers Rect.
	Next *geom.Rect
	// Forget drops the entry for Key instead of remembering anything.
	Forget bool
}

// Stats counts renderer activity since creation.
type Stats struct {
	Frames          int
	Regions         int
	FullRepaints    int
	FrameRequests   int
	TextCacheHits   int
	TextCacheMisses int
	GridCacheHits   int
	GridCacheMisses int
	GridCacheSize   int
	LastDuration    time.Duration
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFrames sets the frame scheduler. The default is a ManualFrames.
func WithFrames(f FrameScheduler) Option { return func(r *Renderer) { r.frames = f } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(r *Renderer) { r.log = l } }

// WithMonths shares a month cache, e.g. one built with a fixed clock.
func WithMonths(c *calendar.MonthCache) Option { return func(r *Renderer) { r.months = c } }

// WithTextCacheSize bounds the glyph width cache (default 512).
func WithTextCacheSize(n int) Option { return func(r *Renderer) { r.metrics = newTextMetrics(n) } }

// Renderer is not safe for concurrent use; it belongs to the goroutine that
// owns the engine.
type Renderer struct {
	scene   *scene.Scene
	vp      geom.Viewport
	surface surface.Surface
	frames  FrameScheduler
	log     *slog.Logger

	dirty   []geom.Rect
	full    bool
	pending bool

	lastBounds map[string]geom.Rect
	grids      map[string]*gridEntry
	metrics    *textMetrics
	months     *calendar.MonthCache

	selection []string
	guides    []Guide
	drag      *DragOverlay

	stats Stats
}

// New returns a renderer with an identity viewport.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		vp:         geom.DefaultViewport(),
		lastBounds: map[string]geom.Rect{},
		grids:      map[string]*gridEntry{},
	}
	for _, o := range opts {
		o(r)
	}
	if r.frames == nil {
		r.frames = &ManualFrames{}
	}
	if r.log == nil {
		r.log = applog.WithComponent("render")
	}
	if r.metrics == nil {
		r.metrics = newTextMetrics(512)
	}
	if r.months == nil {
		r.months = calendar.NewMonthCache(24)
	}
	return r
}

// Attach sets the drawing surface and schedules a full repaint.
func (r *Renderer) Attach(s surface.Surface) {
	r.surface = s
	r.InvalidateAll()
}

func (r *Renderer) Surface() surface.Surface { return r.surface }
func (r *Renderer) Frames() FrameScheduler   { return r.frames }

// SetScene swaps the scene being drawn. The renderer only reads it.
func (r *Renderer) SetScene(s *scene.Scene) {
	r.scene = s
	r.metrics.purge()
	r.InvalidateAll()
}

func (r *Renderer) Scene() *scene.Scene { return r.scene }

func (r *Renderer) SetViewport(v geom.Viewport) {
	r.vp = v
	r.InvalidateAll()
}

func (r *Renderer) Viewport() geom.Viewport { return r.vp }

// page returns the active page with the index clamped into range.
func (r *Renderer) page() (*scene.Page, bool) {
	if r.scene == nil || r.scene.Project == nil || len(r.scene.Project.Pages) == 0 {
		return nil, false
	}
	i := min(max(r.scene.ActivePageIndex, 0), len(r.scene.Project.Pages)-1)
	p := r.scene.Project.Pages[i]
	return p, p != nil
}

// PageBounds is the active page rect, or the zero rect without a scene.
func (r *Renderer) PageBounds() geom.Rect {
	p, ok := r.page()
	if !ok {
		return geom.Rect{}
	}
	w, h := scene.PageSize(p)
	return geom.R(0, 0, w, h)
}

// LayerBounds is the rotated bounding box of a layer on the active page.
func (r *Renderer) LayerBounds(id string) (geom.Rect, bool) {
	p, ok := r.page()
	if !ok {
		return geom.Rect{}, false
	}
	l := scene.FindLayer(p, id)
	if l == nil {
		return geom.Rect{}, false
	}
	return layerBounds(l, p), true
}

func layerBounds(l *scene.Layer, p *scene.Page) geom.Rect {
	return geom.RotatedBounds(scene.EffectiveFrame(l, p), scene.EffectiveRotate(l))
}

// Invalidate queues rect for repaint. It is merged with every queued rect it
// touches; a non-finite or empty rect repaints the page.
func (r *Renderer) Invalidate(rect geom.Rect) {
	if !rect.Valid() {
		r.InvalidateAll()
		return
	}
	if !r.full {
		merged := rect
		for {
			i := slices.IndexFunc(r.dirty, merged.Intersects)
			if i < 0 {
				break
			}
			merged = merged.Union(r.dirty[i])
			r.dirty = slices.Delete(r.dirty, i, i+1)
		}
		r.dirty = append(r.dirty, merged)
		if len(r.dirty) > MaxDirtyRects {
			r.full = true
			r.dirty = r.dirty[:0]
		}
	}
	r.schedule()
}

// InvalidateAll queues a full-page repaint.
func (r *Renderer) InvalidateAll() {
	r.full = true
	r.dirty = r.dirty[:0]
	r.schedule()
}

// RequestRender invalidates a keyed region, repainting where the keyed
// object was and where it is now.
func (r *Renderer) RequestRender(req Request) {
	var target *geom.Rect
	if req.Rect != nil {
		t := *req.Rect
		target = &t
	}
	if req.Key != "" {
		if prev, ok := r.lastBounds[req.Key]; ok {
			if target != nil {
				u := target.Union(prev)
				target = &u
			} else {
				target = &prev
			}
		}
		switch {
		case req.Forget:
			delete(r.lastBounds, req.Key)
		case req.Next != nil:
			r.lastBounds[req.Key] = *req.Next
		case req.Rect != nil:
			r.lastBounds[req.Key] = *req.Rect
		default:
			delete(r.lastBounds, req.Key)
		}
	}
	if target != nil {
		r.Invalidate(*target)
	} else {
		r.InvalidateAll()
	}
}

// Remembered returns the bounds last recorded for key.
func (r *Renderer) Remembered(key string) (geom.Rect, bool) {
	b, ok := r.lastBounds[key]
	return b, ok
}

// Pending reports whether a frame has been requested and not yet painted.
func (r *Renderer) Pending() bool { return r.pending }

// Dirty returns a copy of the queued rects; full is true when the next
// frame repaints the whole page.
func (r *Renderer) Dirty() (rects []geom.Rect, full bool) {
	return slices.Clone(r.dirty), r.full
}

func (r *Renderer) schedule() {
	if r.pending {
		return
	}
	r.pending = true
	r.stats.FrameRequests++
	r.frames.RequestFrame(func() {
		r.pending = false
		r.Render()
	})
}

// Render paints all queued regions now. It is a no-op without a surface or
// a scene; queued regions are kept for the next pass.
func (r *Renderer) Render() {
	if r.surface == nil {
		return
	}
	page, ok := r.page()
	if !ok {
		return
	}
	start := time.Now()
	s := r.surface
	pw, ph := scene.PageSize(page)

	if r.vp.Width > 0 && r.vp.Height > 0 {
		w, h := r.vp.PixelSize()
		if sw, sh := s.Size(); sw != w || sh != h {
			s.Resize(w, h)
			r.full = true
		}
	}

	regions := r.dirty
	if r.full || len(regions) == 0 {
		regions = []geom.Rect{geom.R(0, 0, pw, ph)}
		r.stats.FullRepaints++
	}
	r.dirty, r.full = nil, false

	s.Save()
	s.SetTransform(r.vp.Matrix())
	for _, rect := range regions {
		ex := rect.Expand(dirtyMargin)
		s.Save()
		s.ClipRect(ex)
		s.ClearRect(ex.Expand(2))
		r.drawPage(page, pw, ph)
		s.Restore()
	}
	s.Restore()

	r.refreshMemo(page)

	r.stats.Frames++
	r.stats.Regions += len(regions)
	r.stats.LastDuration = time.Since(start)
	r.log.Debug("render pass", slog.Int("regions", len(regions)), slog.Duration("took", r.stats.LastDuration))
}

// refreshMemo records current layer bounds and drops entries and grid caches
// of layers that no longer exist. Overlay keys are kept.
func (r *Renderer) refreshMemo(page *scene.Page) {
	present := map[string]bool{}
	scene.Walk(page.Layers, func(l, _ *scene.Layer) bool {
		if l == nil {
			return true
		}
		present[l.ID] = true
		r.lastBounds[l.ID] = layerBounds(l, page)
		return true
	})
	for k := range r.lastBounds {
		if !strings.HasPrefix(k, overlayPrefix) && !present[k] {
			delete(r.lastBounds, k)
		}
	}
	for k := range r.grids {
		if !present[k] {
			delete(r.grids, k)
		}
	}
}

func (r *Renderer) drawPage(page *scene.Page, pw, ph float64) {
	s := r.surface
	s.Save()
	s.SetFillColor(white)
	s.BeginPath()
	s.Rect(geom.R(0, 0, pw, ph))
	s.Fill()
	for _, l := range page.Layers {
		r.drawLayer(l, page)
	}
	r.drawSelection(page)
	r.drawGuides(pw, ph)
	s.Restore()
}

// HitTest maps device pixels to document space and returns the topmost
// visible, unlocked top-level layer whose rotated bounds contain the point.
func (r *Renderer) HitTest(sx, sy float64) (string, bool) {
	page, ok := r.page()
	if !ok || r.surface == nil {
		return "", false
	}
	x, y := r.vp.ScreenToWorld(sx, sy)
	for i := len(page.Layers) - 1; i >= 0; i-- {
		l := page.Layers[i]
		if l == nil || !l.Interactive() {
			continue
		}
		if layerBounds(l, page).Contains(x, y) {
			return l.ID, true
		}
	}
	return "", false
}

// Stats returns a snapshot of the counters.
func (r *Renderer) Stats() Stats {
	st := r.stats
	st.TextCacheHits, st.TextCacheMisses = r.metrics.hits, r.metrics.misses
	st.GridCacheSize = len(r.grids)
	return st
}

func finiteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
