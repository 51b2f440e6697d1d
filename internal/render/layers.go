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
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/surface"
	"calendarcanvas/internal/textlayout"
)

const uiFamily = "PingFang SC"

var white = surface.Color("#ffffff", "#ffffff")

// roundedRect adds a rounded rectangle path; the radius is clamped to half
// the shorter side.
func roundedRect(s surface.Surface, x, y, w, h, radius float64) {
	r := math.Max(0, math.Min(radius, math.Min(w, h)/2))
	right, bottom := x+w, y+h
	s.BeginPath()
	s.MoveTo(x+r, y)
	s.LineTo(right-r, y)
	s.QuadTo(right, y, right, y+r)
	s.LineTo(right, bottom-r)
	s.QuadTo(right, bottom, right-r, bottom)
	s.LineTo(x+r, bottom)
	s.QuadTo(x, bottom, x, bottom-r)
	s.LineTo(x, y+r)
	s.QuadTo(x, y, x+r, y)
	s.ClosePath()
}

func (r *Renderer) drawLayer(l *scene.Layer, page *scene.Page) {
	if l == nil || l.Hidden {
		return
	}
	s := r.surface
	f := scene.EffectiveFrame(l, page)
	s.Save()
	s.Translate(f.X+f.W/2, f.Y+f.H/2)
	s.Rotate(scene.EffectiveRotate(l) * math.Pi / 180)
	switch p := l.Props.(type) {
	case *scene.TextProps:
		r.drawText(p, f)
	case *scene.ShapeProps:
		r.drawShape(p, f)
	case *scene.CalendarProps:
		r.drawCalendar(l.ID, p, f)
	case *scene.GenericProps:
		if l.Type == scene.KindCalendarBlock {
			r.drawCalendarBlock(p, f)
		} else {
			r.drawFallback(l.Type, f)
		}
	default:
		r.drawFallback(l.Type, f)
	}
	s.Restore()
	for _, c := range l.Children {
		r.drawLayer(c, page)
	}
}

// fontWeight maps CSS weights ("500", "bold") to a number.
func fontWeight(v string) int {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "normal":
		return 400
	case "bold":
		return 700
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	return 400
}

func (r *Renderer) drawText(p *scene.TextProps, f geom.Rect) {
	s := r.surface
	size := p.FontSize
	if !(size > 0) || math.IsInf(size, 0) {
		size = 24
	}
	lh := p.LineHeight
	if !(lh > 0) {
		lh = 1.4
	}
	lineHeight := math.Max(1, lh) * size
	family := p.FontFamily
	if family == "" {
		family = uiFamily
	}
	font := surface.Font{Family: family, Size: size, Weight: fontWeight(p.FontWeight)}
	key := font.String()
	spacing := finiteOr(p.LetterSpacing, 0)

	s.SetFont(font)
	s.SetFillColor(surface.Color(p.Color, "#1F2330"))
	s.SetTextBaseline(surface.BaselineTop)

	advance := func(ch rune) float64 {
		return r.metrics.measure(key, size, ch, func() float64 { return s.MeasureText(string(ch)) })
	}
	lines := textlayout.Wrap(p.Text, f.W, spacing, advance)

	left, right := -f.W/2, f.W/2
	y := -f.H / 2
	for _, ln := range lines {
		if ln.Text == "" {
			y += lineHeight
			continue
		}
		if spacing != 0 {
			x := left
			switch p.Align {
			case "center":
				x = -ln.Width / 2
			case "right", "end":
				x = right - ln.Width
			}
			s.SetTextAlign(surface.AlignLeft)
			for _, ch := range ln.Text {
				s.FillText(string(ch), x, y)
				x += advance(ch) + spacing
			}
		} else {
			switch p.Align {
			case "center":
				s.SetTextAlign(surface.AlignCenter)
				s.FillText(ln.Text, 0, y)
			case "right", "end":
				s.SetTextAlign(surface.AlignRight)
				s.FillText(ln.Text, right, y)
			default:
				s.SetTextAlign(surface.AlignLeft)
				s.FillText(ln.Text, left, y)
			}
		}
		y += lineHeight
	}
}

func (r *Renderer) drawShape(p *scene.ShapeProps, f geom.Rect) {
	s := r.surface
	roundedRect(s, -f.W/2, -f.H/2, f.W, f.H, finiteOr(p.Radius, 0))
	s.SetFillColor(surface.Color(p.Fill, "#F0F0F0"))
	s.Fill()
	if p.Stroke != "" && p.StrokeWidth > 0 {
		s.SetLineWidth(p.StrokeWidth)
		s.SetStrokeColor(surface.Color(p.Stroke, "#CCCCCC"))
		s.Stroke()
	}
}

func (r *Renderer) drawFallback(kind scene.Kind, f geom.Rect) {
	s := r.surface
	s.SetFillColor(surface.Color("#E7E9F2", ""))
	s.BeginPath()
	s.Rect(geom.R(-f.W/2, -f.H/2, f.W, f.H))
	s.Fill()
	s.SetFillColor(surface.Color("#9599B0", ""))
	s.SetTextAlign(surface.AlignCenter)
	s.SetTextBaseline(surface.BaselineMiddle)
	s.SetFont(surface.Font{Family: uiFamily, Size: 24, Weight: 500})
	s.FillText(string(kind), 0, 0)
}

func genericString(p *scene.GenericProps, key, def string) string {
	if v, ok := p.Get(key); ok {
		if str, ok := v.(string); ok && str != "" {
			return str
		}
	}
	return def
}

func genericNumber(p *scene.GenericProps, key string, def float64) float64 {
	if v, ok := p.Get(key); ok {
		if n, ok := v.(float64); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return n
		}
	}
	return def
}

var weekdayLabels = []string{"日", "一", "二", "三", "四", "五", "六"}

// drawCalendarBlock paints the legacy fixed 7 x 6 grid with placeholder
// day numbers.
func (r *Renderer) drawCalendarBlock(p *scene.GenericProps, f geom.Rect) {
	s := r.surface
	w, h := f.W, f.H
	ws := int(genericNumber(p, "weekStart", 1)) % 7
	if ws < 0 {
		ws += 7
	}
	ordered := slices.Concat(weekdayLabels[ws:], weekdayLabels[:ws])
	header := math.Min(math.Max(h*0.18, 48), h*0.28)
	gridH := math.Max(0, h-header)
	cw, ch := w/7, gridH/6
	textColor := surface.Color(genericString(p, "textColor", ""), "#1F2330")

	s.Save()
	s.SetFillColor(surface.Color(genericString(p, "background", ""), "#ffffff"))
	s.BeginPath()
	s.Rect(geom.R(-w/2, -h/2, w, h))
	s.Fill()

	s.SetFillColor(textColor)
	s.SetTextAlign(surface.AlignCenter)
	s.SetTextBaseline(surface.BaselineMiddle)
	s.SetFont(surface.Font{Family: uiFamily, Size: math.Max(12, math.Min(22, header*0.35)), Weight: 500})
	for i, label := range ordered {
		s.FillText(label, -w/2+cw*float64(i)+cw/2, -h/2+header/2)
	}

	s.SetStrokeColor(surface.Color(genericString(p, "gridColor", ""), "rgba(31, 35, 48, 0.12)"))
	s.SetLineWidth(math.Max(1, math.Min(2, math.Min(w, h)*0.0025)))
	s.BeginPath()
	for row := 0; row <= 6; row++ {
		y := -h/2 + header + float64(row)*ch
		s.MoveTo(-w/2, y)
		s.LineTo(w/2, y)
	}
	for col := 0; col <= 7; col++ {
		x := -w/2 + float64(col)*cw
		s.MoveTo(x, -h/2+header)
		s.LineTo(x, -h/2+header+6*ch)
	}
	s.Stroke()

	s.SetFillColor(textColor)
	s.SetFont(surface.Font{Family: uiFamily, Size: math.Max(10, math.Min(20, ch*0.35)), Weight: 400})
	day := 1
	for row := 0; row < 6; row++ {
		for col := 0; col < 7; col++ {
			s.FillText(fmt.Sprint(day), -w/2+float64(col)*cw+cw/2, -h/2+header+float64(row)*ch+ch/2)
			day++
		}
	}
	s.Restore()
}
