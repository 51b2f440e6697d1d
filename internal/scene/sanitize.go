/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import (
	"math"

	"calendarcanvas/internal/geom"
)

// FramePatch is a partial frame update; nil fields keep their value.
type FramePatch struct {
	X, Y, W, H *float64
}

// Float returns a pointer to v for building patches.
func Float(v float64) *float64 { return &v }

// MoveTo patches the position only.
func MoveTo(x, y float64) FramePatch { return FramePatch{X: Float(x), Y: Float(y)} }

// ResizeTo patches the size only.
func ResizeTo(w, h float64) FramePatch { return FramePatch{W: Float(w), H: Float(h)} }

// FrameOf patches every field.
func FrameOf(r geom.Rect) FramePatch {
	return FramePatch{X: Float(r.X), Y: Float(r.Y), W: Float(r.W), H: Float(r.H)}
}

// Empty reports whether the patch changes nothing.
func (p FramePatch) Empty() bool { return p.X == nil && p.Y == nil && p.W == nil && p.H == nil }

// Apply returns r with the patched fields replaced.
func (p FramePatch) Apply(r geom.Rect) geom.Rect {
	if p.X != nil {
		r.X = *p.X
	}
	if p.Y != nil {
		r.Y = *p.Y
	}
	if p.W != nil {
		r.W = *p.W
	}
	if p.H != nil {
		r.H = *p.H
	}
	return r
}

// PageSize returns the page dimensions, substituting the defaults when
// either is not a positive finite number.
func PageSize(p *Page) (float64, float64) {
	if p == nil || !positive(p.Width) || !positive(p.Height) {
		return DefaultPageWidth, DefaultPageHeight
	}
	return p.Width, p.Height
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

// NormalizeFrame returns frame unchanged when valid, otherwise a default
// frame of 0.9 x 0.62 of the page centered on it.
func NormalizeFrame(frame geom.Rect, pageW, pageH float64) geom.Rect {
	if frame.Valid() {
		return frame
	}
	w, h := pageW*0.9, pageH*0.62
	return geom.Rect{X: (pageW - w) / 2, Y: (pageH - h) / 2, W: w, H: h}
}

// EffectiveFrame is the frame the renderer draws for l on p.
func EffectiveFrame(l *Layer, p *Page) geom.Rect {
	pw, ph := PageSize(p)
	return NormalizeFrame(l.Frame, pw, ph)
}

// EffectiveRotate returns the rotation, treating non-finite values as 0.
func EffectiveRotate(l *Layer) float64 {
	if math.IsNaN(l.Rotate) || math.IsInf(l.Rotate, 0) {
		return 0
	}
	return l.Rotate
}

// Sanitize repairs malformed data in place: the active page index is
// clamped, page sizes and layer frames are replaced with defaults, missing
// props are filled and nil entries dropped. It reports whether anything
// changed.
func Sanitize(s *Scene, reg *Registry) bool {
	if s == nil || s.Project == nil {
		return false
	}
	changed := false
	pages := s.Project.Pages[:0]
	for _, p := range s.Project.Pages {
		if p == nil {
			changed = true
			continue
		}
		pages = append(pages, p)
	}
	s.Project.Pages = pages
	if n := len(s.Project.Pages); n > 0 {
		if idx := min(max(s.ActivePageIndex, 0), n-1); idx != s.ActivePageIndex {
			s.ActivePageIndex = idx
			changed = true
		}
	}
	for _, p := range s.Project.Pages {
		if w, h := PageSize(p); w != p.Width || h != p.Height {
			p.Width, p.Height = w, h
			changed = true
		}
		if p.Layers == nil {
			p.Layers = []*Layer{}
		}
		if sanitizeLayers(&p.Layers, p, reg) {
			changed = true
		}
	}
	return changed
}

func sanitizeLayers(list *[]*Layer, p *Page, reg *Registry) bool {
	changed := false
	kept := (*list)[:0]
	for _, l := range *list {
		if l == nil {
			changed = true
			continue
		}
		kept = append(kept, l)
		if f := EffectiveFrame(l, p); f != l.Frame {
			l.Frame = f
			changed = true
		}
		if r := EffectiveRotate(l); r != l.Rotate {
			l.Rotate = r
			changed = true
		}
		if l.Props == nil || (l.Type.Builtin() && l.Props.Kind() != l.Type) {
			if reg != nil {
				l.Props = reg.Defaults(l.Type)
			} else {
				l.Props, _ = DecodeProps(l.Type, nil)
			}
			changed = true
		}
		if len(l.Children) > 0 && sanitizeLayers(&l.Children, p, reg) {
			changed = true
		}
	}
	*list = kept
	return changed
}
