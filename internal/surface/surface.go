/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
// Package surface provides the immediate-mode drawing targets the renderer
// paints into: an in-memory recorder for tests, a raster canvas on gogpu/gg,
// and vector SVG and PDF writers.
//
// All surfaces share one state machine (transform stack, paint state and a
// path kept in device space), so drawing code sees identical semantics no
// matter which backend receives the output.
package surface

import (
	"fmt"
	"image/color"
	"math"

	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/textlayout"
)

// Align is the horizontal text anchor.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Baseline is the vertical text anchor.
type Baseline int

const (
	BaselineAlphabetic Baseline = iota
	BaselineTop
	BaselineMiddle
)

// Font selects a face by family, pixel size and weight.
type Font struct {
	Family string
	Size   float64
	Weight int
}

// String renders the font in CSS shorthand, e.g. "600 24px PingFang SC".
func (f Font) String() string {
	w := f.Weight
	if w == 0 {
		w = 400
	}
	return fmt.Sprintf("%d %gpx %s", w, f.Size, f.Family)
}

func (f Font) spec() textlayout.FontSpec {
	return textlayout.FontSpec{Family: f.Family, Size: f.Size, Weight: f.Weight}
}

// Surface is an immediate-mode 2D canvas. Coordinates passed to path and text
// calls are in user space and mapped through the current transform.
type Surface interface {
	Size() (w, h int)
	Resize(w, h int)

	Save()
	Restore()
	SetTransform(m geom.Affine)
	Transform(m geom.Affine)
	Translate(x, y float64)
	Rotate(rad float64)
	Scale(sx, sy float64)
	ClipRect(r geom.Rect)
	ClearRect(r geom.Rect)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadTo(cx, cy, x, y float64)
	Arc(cx, cy, r, a0, a1 float64)
	Rect(r geom.Rect)
	ClosePath()
	Fill()
	Stroke()

	SetFillColor(c color.NRGBA)
	SetStrokeColor(c color.NRGBA)
	SetLineWidth(w float64)
	SetDash(pattern ...float64)

	SetFont(f Font)
	SetTextAlign(a Align)
	SetTextBaseline(b Baseline)
	MeasureText(s string) float64
	FillText(s string, x, y float64)
}

// SegKind identifies a path segment.
type SegKind int

const (
	SegMove SegKind = iota
	SegLine
	SegQuad
	SegCubic
	SegClose
)

// Segment is one path element in device space. Pts holds the control points
// followed by the end point.
type Segment struct {
	Kind SegKind
	Pts  [3]geom.Pt
}

type state struct {
	ctm       geom.Affine
	fill      color.NRGBA
	stroke    color.NRGBA
	lineWidth float64
	dash      []float64
	font      Font
	align     Align
	baseline  Baseline
	clip      geom.Rect
	clipped   bool
	clips     int
}

func defaultState() state {
	return state{
		ctm:       geom.Identity,
		fill:      color.NRGBA{A: 255},
		stroke:    color.NRGBA{A: 255},
		lineWidth: 1,
		font:      Font{Family: textlayout.DefaultFamily, Size: 10, Weight: 400},
	}
}

// base implements the state and path bookkeeping shared by every surface.
type base struct {
	w, h     int
	st       state
	stack    []state
	path     []Segment
	start    geom.Pt
	measurer *textlayout.Measurer
}

func newBase(w, h int, m *textlayout.Measurer) base {
	if m == nil {
		m = textlayout.NewMeasurer(nil)
	}
	return base{w: max(1, w), h: max(1, h), st: defaultState(), measurer: m}
}

func (b *base) Size() (int, int) { return b.w, b.h }

func (b *base) resize(w, h int) {
	b.w, b.h = max(1, w), max(1, h)
	b.st = defaultState()
	b.stack = b.stack[:0]
	b.path = b.path[:0]
}

func (b *base) Save() {
	cp := b.st
	cp.dash = append([]float64(nil), b.st.dash...)
	cp.clips = 0
	b.stack = append(b.stack, b.st)
	b.st = cp
}

// restore pops the state and reports how many clips the popped state opened.
func (b *base) restore() (int, bool) {
	if len(b.stack) == 0 {
		return 0, false
	}
	n := b.st.clips
	b.st = b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return n, true
}

func (b *base) SetTransform(m geom.Affine) { b.st.ctm = m }
func (b *base) Transform(m geom.Affine)    { b.st.ctm = b.st.ctm.Mul(m) }
func (b *base) Translate(x, y float64)     { b.Transform(geom.Translate(x, y)) }
func (b *base) Rotate(rad float64)         { b.Transform(geom.Rotate(rad)) }
func (b *base) Scale(sx, sy float64)       { b.Transform(geom.Scale(sx, sy)) }

// CTM returns the current transform.
func (b *base) CTM() geom.Affine { return b.st.ctm }

// deviceRect maps r to the device-space bounding box of its corners.
func (b *base) deviceRect(r geom.Rect) geom.Rect {
	m := b.st.ctm
	p := []geom.Pt{
		m.Apply(geom.Pt{X: r.X, Y: r.Y}),
		m.Apply(geom.Pt{X: r.X + r.W, Y: r.Y}),
		m.Apply(geom.Pt{X: r.X, Y: r.Y + r.H}),
		m.Apply(geom.Pt{X: r.X + r.W, Y: r.Y + r.H}),
	}
	minX, minY := p[0].X, p[0].Y
	maxX, maxY := minX, minY
	for _, q := range p[1:] {
		minX, maxX = math.Min(minX, q.X), math.Max(maxX, q.X)
		minY, maxY = math.Min(minY, q.Y), math.Max(maxY, q.Y)
	}
	return geom.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// clipTo narrows the device clip and returns the new clip rect.
func (b *base) clipTo(r geom.Rect) geom.Rect {
	d := b.deviceRect(r)
	if b.st.clipped {
		if in, ok := b.st.clip.Intersect(d); ok {
			d = in
		} else {
			d = geom.Rect{X: d.X, Y: d.Y}
		}
	}
	b.st.clip = d
	b.st.clipped = true
	b.st.clips++
	return d
}

// visible reports whether a device point lies inside the clip.
func (b *base) visible(p geom.Pt) bool {
	return !b.st.clipped || b.st.clip.Contains(p.X, p.Y)
}

func (b *base) BeginPath() { b.path = b.path[:0] }

func (b *base) MoveTo(x, y float64) {
	p := b.st.ctm.Apply(geom.Pt{X: x, Y: y})
	b.start = p
	b.path = append(b.path, Segment{Kind: SegMove, Pts: [3]geom.Pt{p}})
}

func (b *base) LineTo(x, y float64) {
	if len(b.path) == 0 {
		b.MoveTo(x, y)
		return
	}
	b.path = append(b.path, Segment{Kind: SegLine, Pts: [3]geom.Pt{b.st.ctm.Apply(geom.Pt{X: x, Y: y})}})
}

func (b *base) QuadTo(cx, cy, x, y float64) {
	if len(b.path) == 0 {
		b.MoveTo(cx, cy)
	}
	m := b.st.ctm
	b.path = append(b.path, Segment{Kind: SegQuad, Pts: [3]geom.Pt{m.Apply(geom.Pt{X: cx, Y: cy}), m.Apply(geom.Pt{X: x, Y: y})}})
}

func (b *base) cubicTo(c1, c2, p geom.Pt) {
	m := b.st.ctm
	b.path = append(b.path, Segment{Kind: SegCubic, Pts: [3]geom.Pt{m.Apply(c1), m.Apply(c2), m.Apply(p)}})
}

// Arc adds a circular arc from angle a0 to a1 (radians, clockwise in a y-down
// space) approximated by cubic curves of at most a quarter turn each.
func (b *base) Arc(cx, cy, r, a0, a1 float64) {
	for a1 < a0 {
		a1 += 2 * math.Pi
	}
	at := func(a float64) geom.Pt { return geom.Pt{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)} }
	p0 := at(a0)
	if len(b.path) == 0 {
		b.MoveTo(p0.X, p0.Y)
	} else {
		b.LineTo(p0.X, p0.Y)
	}
	n := int(math.Ceil((a1 - a0) / (math.Pi / 2)))
	if n == 0 {
		return
	}
	step := (a1 - a0) / float64(n)
	k := 4.0 / 3.0 * math.Tan(step/4)
	for i := 0; i < n; i++ {
		s := a0 + float64(i)*step
		e := s + step
		ps, pe := at(s), at(e)
		c1 := geom.Pt{X: ps.X - k*r*math.Sin(s), Y: ps.Y + k*r*math.Cos(s)}
		c2 := geom.Pt{X: pe.X + k*r*math.Sin(e), Y: pe.Y - k*r*math.Cos(e)}
		b.cubicTo(c1, c2, pe)
	}
}

func (b *base) Rect(r geom.Rect) {
	b.MoveTo(r.X, r.Y)
	b.LineTo(r.X+r.W, r.Y)
	b.LineTo(r.X+r.W, r.Y+r.H)
	b.LineTo(r.X, r.Y+r.H)
	b.ClosePath()
}

func (b *base) ClosePath() {
	if len(b.path) == 0 {
		return
	}
	b.path = append(b.path, Segment{Kind: SegClose, Pts: [3]geom.Pt{b.start}})
}

// Path returns the current path in device space.
func (b *base) Path() []Segment { return b.path }

func (b *base) SetFillColor(c color.NRGBA)   { b.st.fill = c }
func (b *base) SetStrokeColor(c color.NRGBA) { b.st.stroke = c }
func (b *base) SetLineWidth(w float64) {
	if w > 0 && geom.Finite(w) {
		b.st.lineWidth = w
	}
}
func (b *base) SetDash(pattern ...float64) { b.st.dash = append(b.st.dash[:0:0], pattern...) }

// deviceLineWidth is the stroke width after the current transform.
func (b *base) deviceLineWidth() float64 { return b.st.lineWidth * b.st.ctm.ScaleFactor() }

func (b *base) deviceDash() []float64 {
	if len(b.st.dash) == 0 {
		return nil
	}
	f := b.st.ctm.ScaleFactor()
	out := make([]float64, len(b.st.dash))
	for i, d := range b.st.dash {
		out[i] = d * f
	}
	return out
}

func (b *base) SetFont(f Font) {
	if f.Size <= 0 {
		f.Size = 10
	}
	b.st.font = f
}
func (b *base) SetTextAlign(a Align)       { b.st.align = a }
func (b *base) SetTextBaseline(v Baseline) { b.st.baseline = v }

func (b *base) MeasureText(s string) float64 { return b.measurer.Advance(b.st.font.spec(), s) }

// textAnchor resolves the device-space baseline origin for s drawn at x,y,
// along with the device font size and rotation angle.
func (b *base) textAnchor(s string, x, y float64) (p geom.Pt, size, angle float64) {
	w := b.MeasureText(s)
	switch b.st.align {
	case AlignCenter:
		x -= w / 2
	case AlignRight:
		x -= w
	}
	met := b.measurer.Metrics(b.st.font.spec())
	asc, desc := 0.8*b.st.font.Size, 0.2*b.st.font.Size
	if h := met.Height(); h > 0 {
		asc, desc = b.st.font.Size*met.Ascent/h, b.st.font.Size*met.Descent/h
	}
	switch b.st.baseline {
	case BaselineTop:
		y += asc
	case BaselineMiddle:
		y += (asc - desc) / 2
	}
	m := b.st.ctm
	return m.Apply(geom.Pt{X: x, Y: y}), b.st.font.Size * m.ScaleFactor(), math.Atan2(m.B, m.A)
}
