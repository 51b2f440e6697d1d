/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package render

import (
	"math"
	"slices"

	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/surface"
)

const (
	selectionPadding = 12
	guideThickness   = 6
)

var (
	selectionColor = surface.Color("rgb(112,100,255)", "#7064FF")
	guideColor     = surface.WithAlpha(selectionColor, 0.65)
)

// SetSelection replaces the set of selected layer ids. Order is ignored; an
// unchanged set does not repaint.
func (r *Renderer) SetSelection(ids []string) {
	next := slices.Clone(ids)
	slices.Sort(next)
	next = slices.Compact(next)
	cur := slices.Clone(r.selection)
	slices.Sort(cur)
	if slices.Equal(cur, next) {
		return
	}
	r.selection = next
	r.invalidateSelectionOverlay()
}

func (r *Renderer) Selection() []string { return slices.Clone(r.selection) }

// RefreshSelection repaints the selection overlay where it was and where the
// selected layers are now. Call it after selected layers changed geometry.
func (r *Renderer) RefreshSelection() { r.invalidateSelectionOverlay() }

// SetGuides replaces the visible alignment guides.
func (r *Renderer) SetGuides(guides []Guide) {
	if slices.Equal(r.guides, guides) {
		return
	}
	r.guides = slices.Clone(guides)
	r.invalidateGuidesOverlay()
}

func (r *Renderer) Guides() []Guide { return slices.Clone(r.guides) }

// SetDragOverlay shows a ghost frame for a drag in progress; nil hides it.
func (r *Renderer) SetDragOverlay(d *DragOverlay) {
	if d != nil {
		c := *d
		d = &c
	}
	r.drag = d
	r.invalidateSelectionOverlay()
}

func (r *Renderer) DragOverlay() *DragOverlay {
	if r.drag == nil {
		return nil
	}
	c := *r.drag
	return &c
}

func (r *Renderer) invalidateSelectionOverlay() {
	next, ok := r.selectionOverlayRect()
	if !ok {
		if _, had := r.lastBounds[KeySelection]; had {
			r.RequestRender(Request{Key: KeySelection, Forget: true})
		}
		return
	}
	r.RequestRender(Request{Rect: &next, Key: KeySelection, Next: &next})
}

func (r *Renderer) invalidateGuidesOverlay() {
	next, ok := r.guidesOverlayRect()
	if !ok {
		if _, had := r.lastBounds[KeyGuides]; had {
			r.RequestRender(Request{Key: KeyGuides, Forget: true})
		}
		return
	}
	r.RequestRender(Request{Rect: &next, Key: KeyGuides, Next: &next})
}

// selectionOverlayRect covers the outlines, handles and rotation knob of
// every selected layer plus the drag ghost.
func (r *Renderer) selectionOverlayRect() (geom.Rect, bool) {
	page, ok := r.page()
	if !ok {
		return geom.Rect{}, false
	}
	var rects []geom.Rect
	for _, id := range r.selection {
		l := scene.FindLayer(page, id)
		if l == nil {
			continue
		}
		b := layerBounds(l, page).Expand(selectionPadding)
		if scene.EffectiveRotate(l) == 0 {
			b.Y -= RotateHandleOffset + selectionPadding
			b.H += RotateHandleOffset + selectionPadding
		} else {
			b = b.Expand(RotateHandleOffset + selectionPadding)
		}
		rects = append(rects, b)
	}
	if r.drag != nil && r.drag.Frame.Valid() {
		rects = append(rects, r.drag.Frame.Expand(selectionPadding))
	}
	return geom.UnionAll(rects)
}

func (r *Renderer) guidesOverlayRect() (geom.Rect, bool) {
	if len(r.guides) == 0 {
		return geom.Rect{}, false
	}
	pb := r.PageBounds()
	rects := make([]geom.Rect, 0, len(r.guides))
	for _, g := range r.guides {
		if g.Orientation == geom.Vertical {
			rects = append(rects, geom.R(g.Position-guideThickness/2, pb.Y, guideThickness, pb.H))
		} else {
			rects = append(rects, geom.R(pb.X, g.Position-guideThickness/2, pb.W, guideThickness))
		}
	}
	return geom.UnionAll(rects)
}

func (r *Renderer) drawSelection(page *scene.Page) {
	s := r.surface
	line := r.vp.HairlineWidth()
	for _, id := range r.selection {
		l := scene.FindLayer(page, id)
		if l == nil {
			continue
		}
		f := scene.EffectiveFrame(l, page)
		w, h := f.W, f.H
		s.Save()
		s.Translate(f.X+w/2, f.Y+h/2)
		s.Rotate(scene.EffectiveRotate(l) * math.Pi / 180)
		s.SetLineWidth(line)
		s.SetStrokeColor(selectionColor)

		s.BeginPath()
		s.Rect(geom.R(-w/2, -h/2, w, h))
		s.SetFillColor(surface.WithAlpha(selectionColor, 0.16))
		s.Fill()
		s.Stroke()

		half := HandleSize / 2.0
		for _, p := range handlePoints(w, h) {
			roundedRect(s, p.X-half, p.Y-half, HandleSize, HandleSize, math.Min(4, half))
			s.SetFillColor(white)
			s.Fill()
			s.Stroke()
		}

		top := -h / 2
		knob := top - RotateHandleOffset
		s.BeginPath()
		s.MoveTo(0, top)
		s.LineTo(0, knob)
		s.Stroke()
		s.BeginPath()
		s.Arc(0, knob, half+2, 0, 2*math.Pi)
		s.SetFillColor(white)
		s.Fill()
		s.Stroke()
		s.Restore()
	}

	if r.drag != nil && r.drag.Frame.Valid() {
		s.Save()
		s.SetLineWidth(line)
		s.SetDash(6, 6)
		s.SetStrokeColor(selectionColor)
		s.SetFillColor(surface.WithAlpha(selectionColor, 0.08))
		s.BeginPath()
		s.Rect(r.drag.Frame)
		s.Fill()
		s.Stroke()
		s.Restore()
	}
}

// handlePoints are the four corners and four edge midpoints of a w x h box
// centered at the origin.
func handlePoints(w, h float64) [8]geom.Pt {
	x0, y0, x1, y1 := -w/2, -h/2, w/2, h/2
	return [8]geom.Pt{
		{X: x0, Y: y0}, {X: 0, Y: y0}, {X: x1, Y: y0},
		{X: x1, Y: 0}, {X: x1, Y: y1}, {X: 0, Y: y1},
		{X: x0, Y: y1}, {X: x0, Y: 0},
	}
}

func (r *Renderer) drawGuides(pw, ph float64) {
	if len(r.guides) == 0 {
		return
	}
	s := r.surface
	s.Save()
	s.SetLineWidth(r.vp.HairlineWidth())
	s.SetDash(12, 12)
	s.SetStrokeColor(guideColor)
	for _, g := range r.guides {
		s.BeginPath()
		if g.Orientation == geom.Vertical {
			s.MoveTo(g.Position, 0)
			s.LineTo(g.Position, ph)
		} else {
			s.MoveTo(0, g.Position)
			s.LineTo(pw, g.Position)
		}
		s.Stroke()
	}
	s.Restore()
}
