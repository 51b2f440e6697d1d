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
	"fmt"
	"slices"

	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/undo"
)

// AlignMode names an edge or center to align the selection to.
type AlignMode string

const (
	AlignLeft    AlignMode = "left"
	AlignRight   AlignMode = "right"
	AlignTop     AlignMode = "top"
	AlignBottom  AlignMode = "bottom"
	AlignCenterX AlignMode = "centerX"
	AlignCenterY AlignMode = "centerY"
)

// Axis is the direction of DistributeSelection.
type Axis string

const (
	Horizontal Axis = "horizontal"
	Vertical   Axis = "vertical"
)

// ReorderLayer moves a top-level layer to target in the z-order. The whole
// page repaints.
func (e *Engine) ReorderLayer(id string, target int) (bool, error) {
	p, err := e.ActivePage()
	if err != nil {
		return false, err
	}
	if !slices.ContainsFunc(p.Layers, func(l *scene.Layer) bool { return l.ID == id }) {
		return false, nil
	}
	before := scene.TopLevelIDs(p)
	after := slices.DeleteFunc(slices.Clone(before), func(s string) bool { return s == id })
	target = min(max(target, 0), len(after))
	after = slices.Insert(after, target, id)

	set := func(order []string) func() {
		return func() {
			scene.OrderByIDs(p, order)
			e.renderer.InvalidateAll()
			e.pruneSelection()
		}
	}
	e.run(&undo.Func{Label: "reorderLayer", DoFn: set(after), UndoFn: set(before)}, false)
	return true, nil
}

// frameSet restores or applies a batch of frames by layer id.
func (e *Engine) frameSet(p *scene.Page, frames map[string]geom.Rect, dirty geom.Rect) func() {
	return func() {
		for id, f := range frames {
			if l := scene.FindLayer(p, id); l != nil {
				l.Frame = f
			}
		}
		e.renderer.Invalidate(dirty)
	}
}

// AlignSelection lines up at least two selected layers against the union of
// their rotated bounds.
func (e *Engine) AlignSelection(mode AlignMode) (bool, error) {
	p, err := e.ActivePage()
	if err != nil {
		return false, err
	}
	layers := e.selectedLayers(p)
	if len(layers) < 2 {
		return false, nil
	}
	bounds := make([]geom.Rect, len(layers))
	for i, l := range layers {
		bounds[i] = l.Bounds()
	}
	union, _ := geom.UnionAll(bounds)

	before := make(map[string]geom.Rect, len(layers))
	after := make(map[string]geom.Rect, len(layers))
	dirty := union
	for _, l := range layers {
		next := l.Frame
		switch mode {
		case AlignLeft:
			next.X = union.X
		case AlignRight:
			next.X = union.X + union.W - next.W
		case AlignTop:
			next.Y = union.Y
		case AlignBottom:
			next.Y = union.Y + union.H - next.H
		case AlignCenterX:
			next.X = union.X + union.W/2 - next.W/2
		case AlignCenterY:
			next.Y = union.Y + union.H/2 - next.H/2
		default:
			return false, fmt.Errorf("align: unknown mode %q", mode)
		}
		before[l.ID] = l.Frame
		after[l.ID] = next
		dirty = dirty.Union(geom.RotatedBounds(next, l.Rotate))
	}
	e.run(&undo.Func{
		Label:  "align:" + string(mode),
		DoFn:   e.frameSet(p, after, dirty),
		UndoFn: e.frameSet(p, before, dirty),
	}, false)
	return true, nil
}

// DistributeSelection spaces more than two selected layers evenly between
// the first and last along axis. The outer layers keep their position.
func (e *Engine) DistributeSelection(axis Axis) (bool, error) {
	p, err := e.ActivePage()
	if err != nil {
		return false, err
	}
	if axis != Horizontal && axis != Vertical {
		return false, fmt.Errorf("distribute: unknown axis %q", axis)
	}
	layers := e.selectedLayers(p)
	if len(layers) <= 2 {
		return false, nil
	}
	lead := func(l *scene.Layer) float64 {
		if axis == Horizontal {
			return l.Frame.X
		}
		return l.Frame.Y
	}
	slices.SortStableFunc(layers, func(a, b *scene.Layer) int {
		switch da, db := lead(a), lead(b); {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})
	first := lead(layers[0])
	span := lead(layers[len(layers)-1]) - first
	if span == 0 {
		return false, nil
	}
	step := span / float64(len(layers)-1)

	before := make(map[string]geom.Rect, len(layers))
	after := make(map[string]geom.Rect, len(layers))
	var dirty geom.Rect
	for i, l := range layers {
		next := l.Frame
		if axis == Horizontal {
			next.X = first + step*float64(i)
		} else {
			next.Y = first + step*float64(i)
		}
		if i == len(layers)-1 {
			next = l.Frame
		}
		before[l.ID] = l.Frame
		after[l.ID] = next
		b := l.Bounds().Union(geom.RotatedBounds(next, l.Rotate))
		if i == 0 {
			dirty = b
		} else {
			dirty = dirty.Union(b)
		}
	}
	e.run(&undo.Func{
		Label:  "distribute:" + string(axis),
		DoFn:   e.frameSet(p, after, dirty),
		UndoFn: e.frameSet(p, before, dirty),
	}, false)
	return true, nil
}
