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

// Event is one notification from the engine. The concrete types are
// SceneChange, SelectionChange, HistoryChange and ViewportChange.
type Event interface {
	Type() string
}

// SceneChange follows every committed mutation. Scene is the live document;
// handlers must treat it as read-only.
type SceneChange struct {
	Scene *scene.Scene
}

type SelectionChange struct {
	Selection []string
}

type HistoryChange struct {
	CanUndo bool
	CanRedo bool
}

type ViewportChange struct {
	Viewport geom.Viewport
}

func (SceneChange) Type() string     { return "scene:change" }
func (SelectionChange) Type() string { return "selection:change" }
func (HistoryChange) Type() string   { return "history:change" }
func (ViewportChange) Type() string  { return "viewport:change" }

// Handler receives events synchronously on the engine's goroutine.
type Handler func(Event)

type subscriber struct {
	id int
	fn Handler
}

// On registers h and returns a function that removes it. Handlers run in
// registration order; a handler added or removed during delivery takes
// effect from the next event.
func (e *Engine) On(h Handler) (unsubscribe func()) {
	if h == nil {
		return func() {}
	}
	e.nextSub++
	id := e.nextSub
	e.subs = append(e.subs, subscriber{id: id, fn: h})
	return func() {
		e.subs = slices.DeleteFunc(e.subs, func(s subscriber) bool { return s.id == id })
	}
}

func (e *Engine) emit(ev Event) {
	for _, s := range slices.Clone(e.subs) {
		s.fn(ev)
	}
}

func (e *Engine) emitScene() { e.emit(SceneChange{Scene: e.scene}) }

func (e *Engine) emitHistory() {
	e.emit(HistoryChange{CanUndo: e.history.CanUndo(), CanRedo: e.history.CanRedo()})
}

func (e *Engine) emitSelection() {
	e.emit(SelectionChange{Selection: e.Selection()})
}
