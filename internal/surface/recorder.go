/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package surface

import (
	"image/color"
	"unicode/utf8"

	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/textlayout"
)

// Op is one recorded drawing call.
type Op struct {
	Name  string
	Rect  geom.Rect // device space for clip, clear and fill bounds
	Text  string
	Pt    geom.Pt // device anchor for text
	Color color.NRGBA
	Font  Font
	Width float64 // device line width for strokes
	Dash  []float64
	Depth int // save depth at the time of the call
}

// Recorder is a Surface that keeps a log of what was drawn. Text is measured
// with fixed advances (0.6 em, 1 em for wide runes) so tests are stable.
type Recorder struct {
	base
	ops      []Op
	measures int
}

// NewRecorder returns a recorder of w x h device pixels.
func NewRecorder(w, h int) *Recorder {
	return &Recorder{base: newBase(w, h, nil)}
}

func (r *Recorder) log(op Op) {
	op.Depth = len(r.stack)
	r.ops = append(r.ops, op)
}

func (r *Recorder) Resize(w, h int) {
	r.resize(w, h)
	r.log(Op{Name: "resize", Rect: geom.R(0, 0, float64(r.w), float64(r.h))})
}

func (r *Recorder) Save() {
	r.base.Save()
	r.log(Op{Name: "save"})
}

func (r *Recorder) Restore() {
	if _, ok := r.restore(); ok {
		r.log(Op{Name: "restore"})
	}
}

func (r *Recorder) ClipRect(rect geom.Rect) {
	r.log(Op{Name: "clip", Rect: r.clipTo(rect)})
}

func (r *Recorder) ClearRect(rect geom.Rect) {
	r.log(Op{Name: "clear", Rect: r.deviceRect(rect)})
}

func (r *Recorder) pathBounds() geom.Rect {
	var pts []geom.Pt
	for _, s := range r.path {
		switch s.Kind {
		case SegQuad:
			pts = append(pts, s.Pts[0], s.Pts[1])
		case SegCubic:
			pts = append(pts, s.Pts[0], s.Pts[1], s.Pts[2])
		default:
			pts = append(pts, s.Pts[0])
		}
	}
	if len(pts) == 0 {
		return geom.Rect{}
	}
	b := geom.Rect{X: pts[0].X, Y: pts[0].Y}
	for _, p := range pts[1:] {
		b = b.Union(geom.Rect{X: p.X, Y: p.Y})
	}
	return b
}

func (r *Recorder) Fill() {
	r.log(Op{Name: "fill", Rect: r.pathBounds(), Color: r.st.fill})
}

func (r *Recorder) Stroke() {
	r.log(Op{Name: "stroke", Rect: r.pathBounds(), Color: r.st.stroke, Width: r.deviceLineWidth(), Dash: r.deviceDash()})
}

func (r *Recorder) MeasureText(s string) float64 {
	r.measures++
	return r.advance(s)
}

func (r *Recorder) advance(s string) float64 {
	var w float64
	for _, c := range s {
		if textlayout.Wide(c) {
			w += r.st.font.Size
		} else {
			w += 0.6 * r.st.font.Size
		}
	}
	return w
}

func (r *Recorder) FillText(s string, x, y float64) {
	if utf8.RuneCountInString(s) == 0 {
		return
	}
	w := r.advance(s)
	switch r.st.align {
	case AlignCenter:
		x -= w / 2
	case AlignRight:
		x -= w
	}
	r.log(Op{Name: "text", Text: s, Pt: r.st.ctm.Apply(geom.Pt{X: x, Y: y}), Color: r.st.fill, Font: r.st.font})
}

// Ops returns the recorded calls.
func (r *Recorder) Ops() []Op { return r.ops }

// Count returns how many ops with the given name were recorded.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, op := range r.ops {
		if op.Name == name {
			n++
		}
	}
	return n
}

// Texts lists the strings passed to FillText in order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.ops {
		if op.Name == "text" {
			out = append(out, op.Text)
		}
	}
	return out
}

// Measures is the number of MeasureText calls made by clients.
func (r *Recorder) Measures() int { return r.measures }

// Reset drops the log and the measure counter.
func (r *Recorder) Reset() {
	r.ops = r.ops[:0]
	r.measures = 0
}

var _ Surface = (*Recorder)(nil)
