/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package engine

import (
	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/render"
	"calendarcanvas/internal/scene"
)

// SnapFrame snaps a proposed frame of layer id to the page and the other
// visible top-level layers, shows the matching guides and returns the
// snapped frame. Nothing is committed.
func (e *Engine) SnapFrame(id string, frame geom.Rect) (geom.Rect, bool) {
	p, l, err := e.find(id)
	if err != nil || l == nil || !frame.Valid() {
		return frame, false
	}
	pw, ph := scene.PageSize(p)
	anchors := []geom.Anchor{{Rect: geom.R(0, 0, pw, ph), Weight: 2}}
	for _, other := range p.Layers {
		if other.ID == id || other.Hidden {
			continue
		}
		anchors = append(anchors, geom.Anchor{Rect: other.Bounds(), Weight: 1})
	}
	snapped, lines := geom.ComputeSmartGuides(frame, anchors, e.snap)
	guides := make([]render.Guide, 0, len(lines))
	for _, g := range lines {
		guides = append(guides, render.Guide{Orientation: g.Orientation, Position: g.Position})
	}
	e.renderer.SetGuides(guides)
	return snapped, true
}

// ClearGuides hides the snapping guides.
func (e *Engine) ClearGuides() { e.renderer.SetGuides(nil) }

// PreviewDrag draws a ghost of layer id at frame without touching the
// document. Commit with UpdateLayerFrame and finish with EndDrag.
func (e *Engine) PreviewDrag(id string, frame geom.Rect) bool {
	if !e.layerExists(id) || !frame.Valid() {
		return false
	}
	e.renderer.SetDragOverlay(&render.DragOverlay{LayerID: id, Frame: frame})
	return true
}

// EndDrag removes the drag ghost and the guides.
func (e *Engine) EndDrag() {
	if e.renderer.DragOverlay() != nil {
		e.renderer.SetDragOverlay(nil)
	}
	if len(e.renderer.Guides()) > 0 {
		e.ClearGuides()
	}
}

// SelectionBounds is the union of the selected layers' rotated bounds.
func (e *Engine) SelectionBounds() (geom.Rect, bool) {
	p, ok := e.scene.ActivePage()
	if !ok {
		return geom.Rect{}, false
	}
	var rects []geom.Rect
	for _, l := range e.selectedLayers(p) {
		rects = append(rects, l.Bounds())
	}
	return geom.UnionAll(rects)
}
