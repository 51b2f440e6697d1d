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
	"calendarcanvas/internal/calendar"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/undo"
)

// ApplyTheme recolors every layer of the active page from a palette: text
// takes the primary color, shapes the primary stroke on the muted surface
// and calendars a theme derived from the palette. It is one undo step and
// reports false when no layer changed.
func (e *Engine) ApplyTheme(pal calendar.Palette) (bool, error) {
	p, err := e.ActivePage()
	if err != nil {
		return false, err
	}
	theme := calendar.ThemeFromPalette(pal)
	before := map[string]scene.Props{}
	after := map[string]scene.Props{}
	scene.Walk(p.Layers, func(l, _ *scene.Layer) bool {
		var next scene.Props
		switch pr := l.Props.(type) {
		case *scene.TextProps:
			c := pr.Clone().(*scene.TextProps)
			c.Color = pal.Primary
			next = c
		case *scene.ShapeProps:
			c := pr.Clone().(*scene.ShapeProps)
			c.Stroke, c.Fill = pal.Primary, pal.SurfaceMuted
			next = c
		case *scene.CalendarProps:
			c := pr.Clone().(*scene.CalendarProps)
			c.Theme = theme
			next = c
		default:
			return true
		}
		if !scene.PropsEqual(l.Props, next) {
			before[l.ID] = l.Props.Clone()
			after[l.ID] = next
		}
		return true
	})
	if len(after) == 0 {
		return false, nil
	}
	set := func(props map[string]scene.Props) func() {
		return func() {
			for id, pr := range props {
				if l := scene.FindLayer(p, id); l != nil {
					l.Props = pr.Clone()
				}
			}
			e.renderer.InvalidateAll()
		}
	}
	e.run(&undo.Func{Label: "applyTheme:" + pal.Key, DoFn: set(after), UndoFn: set(before)}, false)
	return true, nil
}
