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
	"slices"

	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/scene"
)

// Selection returns the selected layer ids in the order they were added.
func (e *Engine) Selection() []string { return slices.Clone(e.selection) }

// setSelection replaces the selection, syncs the renderer overlay and
// emits a SelectionChange when the set differs.
func (e *Engine) setSelection(ids []string) bool {
	if slices.Equal(ids, e.selection) {
		return false
	}
	e.selection = slices.Clone(ids)
	e.renderer.SetSelection(e.selection)
	e.emitSelection()
	return true
}

func (e *Engine) layerExists(id string) bool {
	p, ok := e.scene.ActivePage()
	return ok && scene.FindLayer(p, id) != nil
}

// Select selects the layer with id, adding to the selection when additive.
// Unknown ids report false.
func (e *Engine) Select(id string, additive bool) bool {
	if !e.layerExists(id) {
		return false
	}
	var next []string
	if additive {
		next = slices.Clone(e.selection)
	}
	if !slices.Contains(next, id) {
		next = append(next, id)
	}
	e.setSelection(next)
	return true
}

// SelectMany selects every existing id of ids and returns how many were
// accepted.
func (e *Engine) SelectMany(ids []string, additive bool) int {
	var next []string
	if additive {
		next = slices.Clone(e.selection)
	}
	n := 0
	for _, id := range ids {
		if !e.layerExists(id) {
			continue
		}
		n++
		if !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	if n == 0 && additive {
		return 0
	}
	e.setSelection(next)
	return n
}

// ToggleSelection adds or removes id.
func (e *Engine) ToggleSelection(id string) bool {
	if i := slices.Index(e.selection, id); i >= 0 {
		e.setSelection(slices.Delete(slices.Clone(e.selection), i, i+1))
		return true
	}
	if !e.layerExists(id) {
		return false
	}
	e.setSelection(append(slices.Clone(e.selection), id))
	return true
}

func (e *Engine) ClearSelection() {
	e.setSelection(nil)
}

// SelectByRect selects the visible, unlocked layers whose rotated bounds
// touch rect and returns their ids.
func (e *Engine) SelectByRect(rect geom.Rect, additive bool) ([]string, error) {
	p, err := e.ActivePage()
	if err != nil {
		return nil, err
	}
	var hits []string
	scene.Walk(p.Layers, func(l, _ *scene.Layer) bool {
		if l.Interactive() && l.Bounds().Intersects(rect) {
			hits = append(hits, l.ID)
		}
		return true
	})
	e.SelectMany(hits, additive)
	return hits, nil
}

// pruneSelection drops ids of layers that left the active page.
func (e *Engine) pruneSelection() {
	p, ok := e.scene.ActivePage()
	if !ok {
		e.setSelection(nil)
		return
	}
	next := slices.DeleteFunc(slices.Clone(e.selection), func(id string) bool {
		return scene.FindLayer(p, id) == nil
	})
	if len(next) == 0 {
		next = nil
	}
	e.setSelection(next)
}

// selectedLayers returns the selected layers of p in paint order.
func (e *Engine) selectedLayers(p *scene.Page) []*scene.Layer {
	var out []*scene.Layer
	scene.Walk(p.Layers, func(l, _ *scene.Layer) bool {
		if slices.Contains(e.selection, l.ID) {
			out = append(out, l)
		}
		return true
	})
	return out
}
