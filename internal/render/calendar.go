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

	"calendarcanvas/internal/calendar"
	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/surface"
)

const numberFamily = "DIN Alternate"

type gridLine struct{ x1, y1, x2, y2 float64 }

// gridEntry is the memoized line geometry of one calendar layer. It stays
// valid while the layer's size and grid shape are unchanged.
type gridEntry struct {
	width, height           float64
	weekCount, columnCount  int
	contentLeft, daysTop    float64
	contentWidth, cellWidth float64
	lines                   []gridLine
}

func (g *gridEntry) matches(o gridEntry) bool {
	return g.width == o.width && g.height == o.height &&
		g.weekCount == o.weekCount && g.columnCount == o.columnCount &&
		g.contentLeft == o.contentLeft && g.daysTop == o.daysTop &&
		g.contentWidth == o.contentWidth && g.cellWidth == o.cellWidth
}

// calendarLayout is the geometry of a calendar layer in its local space
// (origin at the frame center).
type calendarLayout struct {
	w, h                  float64
	header                float64
	contentTop            float64
	contentLeft           float64
	contentWidth          float64
	weekLabelHeight       float64
	daysTop               float64
	cellWidth, cellHeight float64
	weekCount             int
	columnCount           int
	dayColumnOffset       int
	captionSize           float64
}

func layoutCalendar(p *scene.CalendarProps, f geom.Rect, weeks int) calendarLayout {
	w, h := f.W, f.H
	pad := finiteOr(p.Padding, 0)
	l := calendarLayout{w: w, h: h, weekCount: weeks, columnCount: 7}
	if p.ShowWeekNumber {
		l.columnCount, l.dayColumnOffset = 8, 1
	}
	l.header = math.Min(math.Max(h*0.18, 80), h*0.35)
	l.captionSize = math.Min(28, math.Max(20, h*0.04))
	l.contentTop = -h/2 + l.header + pad*0.5
	l.contentLeft = -w/2 + pad
	l.contentWidth = w - pad*2
	l.weekLabelHeight = math.Min(48, math.Max(32, h*0.055))
	l.daysTop = l.contentTop + l.weekLabelHeight + pad*0.15
	available := h/2 - pad - l.daysTop
	l.cellHeight = available / float64(max(1, weeks))
	l.cellWidth = l.contentWidth / float64(max(1, l.columnCount))
	return l
}

func (r *Renderer) gridLines(id string, l calendarLayout) []gridLine {
	want := gridEntry{
		width: l.w, height: l.h,
		weekCount: l.weekCount, columnCount: l.columnCount,
		contentLeft: l.contentLeft, daysTop: l.daysTop,
		contentWidth: l.contentWidth, cellWidth: l.cellWidth,
	}
	if g, ok := r.grids[id]; ok && g.matches(want) && g.lines != nil {
		r.stats.GridCacheHits++
		return g.lines
	}
	r.stats.GridCacheMisses++
	for row := 0; row <= l.weekCount; row++ {
		y := l.daysTop + float64(row)*l.cellHeight
		want.lines = append(want.lines, gridLine{l.contentLeft, y, l.contentLeft + l.contentWidth, y})
	}
	gridH := l.cellHeight * float64(l.weekCount)
	for col := 0; col <= l.columnCount; col++ {
		x := l.contentLeft + float64(col)*l.cellWidth
		want.lines = append(want.lines, gridLine{x, l.daysTop, x, l.daysTop + gridH})
	}
	r.grids[id] = &want
	return want.lines
}

func (r *Renderer) drawCalendar(id string, p *scene.CalendarProps, f geom.Rect) {
	month, err := r.months.Get(p.Year, p.Month, p.WeekStart)
	if err != nil {
		r.log.Debug("calendar layer skipped", "layer", id, "err", err)
		r.drawFallback(scene.KindCalendar, f)
		return
	}
	s := r.surface
	theme := p.Theme.WithDefaults()
	w, h := f.W, f.H
	radius := math.Max(0, finiteOr(p.Radius, 0))
	pad := finiteOr(p.Padding, 0)
	l := layoutCalendar(p, f, len(month.Weeks))

	roundedRect(s, -w/2, -h/2, w, h, radius)
	s.SetFillColor(surface.Color(theme.Background, "#FFFFFF"))
	s.Fill()

	// header band with rounded top corners only
	rr := math.Min(radius, math.Min(w, h)/2)
	s.BeginPath()
	s.MoveTo(-w/2+rr, -h/2)
	s.LineTo(w/2-rr, -h/2)
	s.QuadTo(w/2, -h/2, w/2, -h/2+rr)
	s.LineTo(w/2, -h/2+l.header)
	s.LineTo(-w/2, -h/2+l.header)
	s.LineTo(-w/2, -h/2+rr)
	s.QuadTo(-w/2, -h/2, -w/2+rr, -h/2)
	s.ClosePath()
	s.SetFillColor(surface.Color(theme.HeaderBackground, "#F6F7FB"))
	s.Fill()

	s.SetTextAlign(surface.AlignLeft)
	s.SetTextBaseline(surface.BaselineMiddle)
	s.SetFillColor(surface.Color(theme.HeaderText, "#1F2330"))
	s.SetFont(surface.Font{Family: uiFamily, Size: math.Min(56, math.Max(32, h*0.08)), Weight: 600})
	s.FillText(fmt.Sprintf("%d 年 %d 月", month.Year, month.Month), -w/2+pad, -h/2+l.header/2)
	secondary := surface.Color(theme.SecondaryText, "#A0A4B5")
	s.SetFont(surface.Font{Family: uiFamily, Size: l.captionSize, Weight: 400})
	s.SetFillColor(secondary)
	s.FillText(fmt.Sprintf("共 %d 周", len(month.Weeks)), -w/2+pad, -h/2+l.header/2+l.captionSize)

	weekend := surface.Color(theme.WeekendText, "#F5566C")
	s.Save()
	s.SetFont(surface.Font{Family: uiFamily, Size: l.captionSize, Weight: 500})
	s.SetTextAlign(surface.AlignCenter)
	s.SetTextBaseline(surface.BaselineMiddle)
	labelY := l.contentTop + l.weekLabelHeight/2
	if p.ShowWeekNumber {
		s.SetFillColor(secondary)
		s.FillText("周", l.contentLeft+l.cellWidth/2, labelY)
	}
	for i, wd := range month.Weekdays {
		if wd.Index == 0 || wd.Index == 6 {
			s.SetFillColor(weekend)
		} else {
			s.SetFillColor(secondary)
		}
		s.FillText(wd.Label, l.contentLeft+l.cellWidth*float64(i+l.dayColumnOffset)+l.cellWidth/2, labelY)
	}
	s.Restore()

	s.Save()
	s.SetLineWidth(math.Max(1, 1/math.Max(r.vp.Scale, 0.0001)))
	s.SetStrokeColor(surface.Color(theme.Grid, "#D7DBEC"))
	for _, ln := range r.gridLines(id, l) {
		s.BeginPath()
		s.MoveTo(ln.x1, ln.y1)
		s.LineTo(ln.x2, ln.y2)
		s.Stroke()
	}
	s.Restore()

	r.drawCells(p, month, l, theme)
}

func (r *Renderer) drawCells(p *scene.CalendarProps, month calendar.Month, l calendarLayout, theme calendar.Theme) {
	s := r.surface
	rules := p.Rules()
	hairline := math.Max(1, 1/math.Max(r.vp.Scale, 0.0001))
	text := surface.Color(theme.Text, "#1F2330")
	secondary := surface.Color(theme.SecondaryText, "#A0A4B5")
	weekend := surface.Color(theme.WeekendText, "#F5566C")
	today := surface.Color(theme.TodayBackground, "#7064FF")
	badge := surface.Color(theme.HolidayBadgeBackground, "#FFECE5")
	badgeText := surface.Color(theme.HolidayBadgeText, "#FF6A3D")
	outside := surface.Color(theme.SecondaryText+"CC", "#A0A4B5CC")
	cw, ch := l.cellWidth, l.cellHeight

	for row, week := range month.Weeks {
		if p.ShowWeekNumber && len(week) > 0 {
			ref := week[0]
			for _, d := range week {
				if d.InMonth() {
					ref = d
					break
				}
			}
			s.Save()
			s.SetTextAlign(surface.AlignCenter)
			s.SetTextBaseline(surface.BaselineMiddle)
			s.SetFont(surface.Font{Family: numberFamily, Size: math.Max(20, ch*0.32), Weight: 500})
			s.SetFillColor(secondary)
			s.FillText(fmt.Sprintf("%02d", ref.ISOWeek), l.contentLeft+cw/2, l.daysTop+float64(row)*ch+ch/2)
			s.Restore()
		}

		for col, day := range week {
			x := l.contentLeft + float64(col+l.dayColumnOffset)*cw
			y := l.daysTop + float64(row)*ch
			marks := rules.Mark(day)

			if marks.Weekend {
				in := math.Min(cw, ch) * 0.12
				roundedRect(s, x+in, y+in, cw-in*2, ch-in*2, math.Min(12, (ch-in*2)/2))
				s.SetFillColor(surface.WithAlpha(weekend, 0.12))
				s.Fill()
			}
			if marks.Today {
				in := math.Min(cw, ch) * 0.2
				roundedRect(s, x+in/2, y+in/2, cw-in, ch-in, math.Min(18, in))
				s.SetFillColor(today)
				s.Fill()
			}
			if marks.Holiday {
				in := math.Min(cw, ch) * 0.08
				roundedRect(s, x+in, y+in, cw-in*2, ch-in*2, math.Min(12, (ch-in*2)/2))
				s.SetLineWidth(math.Max(1, 2/math.Max(r.vp.Scale, 0.0001)))
				s.SetStrokeColor(surface.WithAlpha(badge, 0.9))
				s.Stroke()
			}
			if marks.Custom {
				in := math.Min(cw, ch) * 0.12
				s.Save()
				roundedRect(s, x+in, y+in, cw-in*2, ch-in*2, math.Min(14, (ch-in*2)/2))
				s.SetDash(6, 6)
				s.SetLineWidth(hairline)
				s.SetStrokeColor(surface.WithAlpha(today, 0.5))
				s.Stroke()
				s.Restore()
			}

			cx := x + cw/2
			numberY := y + ch*0.5
			if p.ShowLunar || p.ShowSolarTerm || p.ShowFestivals {
				numberY = y + ch*0.38
			}
			s.Save()
			s.SetFont(surface.Font{Family: numberFamily, Size: math.Min(48, math.Max(28, ch*0.42)), Weight: 600})
			s.SetTextAlign(surface.AlignCenter)
			s.SetTextBaseline(surface.BaselineMiddle)
			switch {
			case !day.InMonth():
				s.SetFillColor(outside)
			case day.IsWeekend:
				s.SetFillColor(weekend)
			default:
				s.SetFillColor(text)
			}
			s.FillText(fmt.Sprint(day.Display), cx, numberY)
			s.Restore()

			if label := secondaryLabel(p, day); label != "" {
				s.Save()
				s.SetFont(surface.Font{Family: uiFamily, Size: math.Min(26, math.Max(18, ch*0.28)), Weight: 400})
				s.SetTextAlign(surface.AlignCenter)
				s.SetTextBaseline(surface.BaselineMiddle)
				if day.InMonth() {
					s.SetFillColor(secondary)
				} else {
					s.SetFillColor(surface.WithAlpha(secondary, 0.6))
				}
				s.FillText(label, cx, y+ch*0.72)
				s.Restore()
			}

			if p.ShowHolidays && rules.IsHoliday(day) {
				bw := math.Min(36, cw*0.3)
				bh := math.Min(20, ch*0.22)
				bx, by := x+cw-bw-6, y+6
				s.Save()
				roundedRect(s, bx, by, bw, bh, 6)
				s.SetFillColor(badge)
				s.Fill()
				s.SetFillColor(badgeText)
				s.SetFont(surface.Font{Family: uiFamily, Size: math.Max(16, bh*0.7), Weight: 500})
				s.SetTextAlign(surface.AlignCenter)
				s.SetTextBaseline(surface.BaselineMiddle)
				s.FillText("假", bx+bw/2, by+bh/2)
				s.Restore()
			}
		}
	}
}

// secondaryLabel picks the text under the day number: a festival, then the
// solar term, then the lunar day (or the month name on the first day).
func secondaryLabel(p *scene.CalendarProps, d calendar.Day) string {
	switch {
	case p.ShowFestivals && len(d.Festivals) > 0:
		return d.Festivals[0]
	case p.ShowSolarTerm && d.SolarTerm != "":
		return d.SolarTerm
	case p.ShowLunar:
		if d.Lunar.Day == 1 {
			if d.Lunar.IsLeapMonth {
				return "闰" + d.Lunar.MonthName
			}
			return d.Lunar.MonthName
		}
		return d.Lunar.DayName
	}
	return ""
}
