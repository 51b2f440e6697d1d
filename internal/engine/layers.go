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
	"math"

	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/render"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/undo"
)

// layerRef resolves a layer by id on a fixed page at command time, so a
// command keeps working after other commands replaced the layer value.
type layerRef struct {
	page *scene.Page
	id   string
}

func (r layerRef) get() *scene.Layer { return scene.FindLayer(r.page, r.id) }

func (r layerRef) with(fn func(l *scene.Layer)) {
	if l := r.get(); l != nil {
		fn(l)
	}
}

// find returns the active page and the layer with id. A missing layer is
// reported with a nil layer and no error.
func (e *Engine) find(id string) (*scene.Page, *scene.Layer, error) {
	p, err := e.ActivePage()
	if err != nil {
		return nil, nil, err
	}
	return p, scene.FindLayer(p, id), nil
}

// AddLayer inserts a layer of kind on top of the active page and selects
// it. props override the kind's defaults; a nil frame centers a default
// sized frame on the page.
func (e *Engine) AddLayer(kind scene.Kind, props map[string]any, frame *geom.Rect) (*scene.Layer, error) {
	p, err := e.ActivePage()
	if err != nil {
		return nil, err
	}
	if kind == "" {
		return nil, fmt.Errorf("add layer: empty kind")
	}
	pr, err := e.reg.New(kind, props)
	if err != nil {
		return nil, fmt.Errorf("add layer: %w", err)
	}
	f := scene.DefaultFrame(kind, p, pr)
	if frame != nil && frame.Valid() {
		f = *frame
	}
	proto := &scene.Layer{
		ID:    e.ids("ly"),
		Type:  kind,
		Name:  fmt.Sprintf("%s %d", kind, len(p.Layers)+1),
		Frame: f,
		Props: pr,
	}
	index := len(p.Layers)
	ref := layerRef{page: p, id: proto.ID}
	bounds := proto.Bounds()

	e.run(&undo.Func{
		Label: "addLayer",
		DoFn: func() {
			scene.InsertLayer(p, proto.Clone(), scene.Location{Index: index})
			e.setSelection([]string{proto.ID})
			e.renderer.RequestRender(renderRect(bounds, proto.ID))
		},
		UndoFn: func() {
			if l := ref.get(); l != nil {
				b := l.SubtreeBounds()
				scene.RemoveLayer(p, proto.ID)
				e.renderer.Invalidate(b)
			}
			e.pruneSelection()
		},
	}, false)
	return proto.Clone(), nil
}

// forgetSubtree drops the remembered bounds of l's descendants, repainting
// where each of them was last drawn.
func (e *Engine) forgetSubtree(l *scene.Layer) {
	scene.Walk(l.Children, func(c, _ *scene.Layer) bool {
		if c != nil {
			b := c.Bounds()
			e.renderer.RequestRender(render.Request{Rect: &b, Key: c.ID, Forget: true})
		}
		return true
	})
}

func renderRect(r geom.Rect, key string) render.Request {
	return render.Request{Rect: &r, Key: key}
}

// RemoveLayer deletes a layer. Undo puts a copy back at its old position.
func (e *Engine) RemoveLayer(id string) (bool, error) {
	p, l, err := e.find(id)
	if err != nil || l == nil {
		return false, err
	}
	snapshot := l.Clone()
	loc, _ := scene.Locate(p, id)
	parent := ""
	if loc.Parent != nil {
		parent = loc.Parent.ID
	}
	bounds := l.SubtreeBounds()

	e.run(&undo.Func{
		Label: "removeLayer",
		DoFn: func() {
			scene.RemoveLayer(p, id)
			e.pruneSelection()
			e.forgetSubtree(snapshot)
			e.renderer.RequestRender(render.Request{Rect: &bounds, Key: id, Forget: true})
		},
		UndoFn: func() {
			at := scene.Location{Index: loc.Index}
			if parent != "" {
				at.Parent = scene.FindLayer(p, parent)
			}
			scene.InsertLayer(p, snapshot.Clone(), at)
			e.renderer.RequestRender(renderRect(bounds, id))
			e.pruneSelection()
		},
	}, false)
	return true, nil
}

// UpdateOption tunes a single frame update.
type UpdateOption func(*updateOptions)

type updateOptions struct{ merge bool }

// Merge folds the update into the previous frame update of the same layer,
// so a whole drag undoes in one step.
func Merge() UpdateOption { return func(o *updateOptions) { o.merge = true } }

// frameCmd moves or resizes one layer. Consecutive frame commands of the
// same layer merge when executed with Merge.
type frameCmd struct {
	e      *Engine
	ref    layerRef
	before geom.Rect
	after  geom.Rect
}

func (c *frameCmd) Name() string     { return "updateLayerFrame" }
func (c *frameCmd) MergeKey() string { return "frame:" + c.ref.id }

func (c *frameCmd) Do()   { c.apply(c.before, c.after) }
func (c *frameCmd) Undo() { c.apply(c.after, c.before) }

func (c *frameCmd) apply(from, to geom.Rect) {
	c.ref.with(func(l *scene.Layer) {
		l.Frame = to
		dirty := geom.RotatedBounds(from, l.Rotate).Union(geom.RotatedBounds(to, l.Rotate))
		c.e.renderer.Invalidate(dirty)
	})
}

func (c *frameCmd) MergeWith(next undo.Command) bool {
	n, ok := next.(*frameCmd)
	if !ok || n.ref != c.ref {
		return false
	}
	c.after = n.after
	return true
}

// UpdateLayerFrame applies a partial frame. The patched frame must stay
// finite with a positive size.
func (e *Engine) UpdateLayerFrame(id string, patch scene.FramePatch, opts ...UpdateOption) (bool, error) {
	p, l, err := e.find(id)
	if err != nil || l == nil {
		return false, err
	}
	var o updateOptions
	for _, fn := range opts {
		fn(&o)
	}
	before := l.Frame
	after := patch.Apply(before)
	if !after.Valid() {
		return false, nil
	}
	e.run(&frameCmd{e: e, ref: layerRef{page: p, id: id}, before: before, after: after}, o.merge)
	return true, nil
}

// UpdateLayerProps merges patch into the layer's props.
func (e *Engine) UpdateLayerProps(id string, patch map[string]any) (bool, error) {
	p, l, err := e.find(id)
	if err != nil || l == nil {
		return false, err
	}
	if l.Props == nil {
		return false, nil
	}
	before := l.Props.Clone()
	after, err := l.Props.Patch(patch)
	if err != nil {
		return false, fmt.Errorf("update %s props: %w", id, err)
	}
	ref := layerRef{page: p, id: id}
	set := func(v scene.Props) func() {
		return func() {
			ref.with(func(l *scene.Layer) {
				l.Props = v.Clone()
				e.renderer.Invalidate(l.Bounds())
			})
		}
	}
	e.run(&undo.Func{Label: "updateLayerProps", DoFn: set(after), UndoFn: set(before)}, false)
	return true, nil
}

// RotateLayer sets the rotation in degrees.
func (e *Engine) RotateLayer(id string, degrees float64) (bool, error) {
	p, l, err := e.find(id)
	if err != nil || l == nil {
		return false, err
	}
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return false, nil
	}
	before := l.Rotate
	ref := layerRef{page: p, id: id}
	set := func(from, to float64) func() {
		return func() {
			ref.with(func(l *scene.Layer) {
				l.Rotate = to
				e.renderer.Invalidate(geom.RotatedBounds(l.Frame, from).Union(geom.RotatedBounds(l.Frame, to)))
			})
		}
	}
	e.run(&undo.Func{Label: "rotateLayer", DoFn: set(before, degrees), UndoFn: set(degrees, before)}, false)
	return true, nil
}

// ToggleLock flips the locked flag.
func (e *Engine) ToggleLock(id string) (bool, error) {
	return e.toggle(id, "toggleLock", func(l *scene.Layer) *bool { return &l.Locked })
}

// ToggleVisibility flips the hidden flag.
func (e *Engine) ToggleVisibility(id string) (bool, error) {
	return e.toggle(id, "toggleVisibility", func(l *scene.Layer) *bool { return &l.Hidden })
}

func (e *Engine) toggle(id, name string, field func(*scene.Layer) *bool) (bool, error) {
	p, l, err := e.find(id)
	if err != nil || l == nil {
		return false, err
	}
	before := *field(l)
	ref := layerRef{page: p, id: id}
	set := func(v bool) func() {
		return func() {
			ref.with(func(l *scene.Layer) {
				*field(l) = v
				e.renderer.Invalidate(l.SubtreeBounds())
			})
		}
	}
	e.run(&undo.Func{Label: name, DoFn: set(!before), UndoFn: set(before)}, false)
	return true, nil
}
