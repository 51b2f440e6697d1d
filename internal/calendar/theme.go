/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package calendar

import (
	"math"
	"strconv"
	"strings"
)

// Theme holds the colors of a calendar layer as CSS color strings.
type Theme struct {
	Background             string `json:"background" yaml:"background"`
	HeaderBackground       string `json:"headerBackground" yaml:"header_background"`
	HeaderText             string `json:"headerText" yaml:"header_text"`
	Grid                   string `json:"grid" yaml:"grid"`
	Text                   string `json:"text" yaml:"text"`
	SecondaryText          string `json:"secondaryText" yaml:"secondary_text"`
	WeekendText            string `json:"weekendText" yaml:"weekend_text"`
	TodayBackground        string `json:"todayBackground" yaml:"today_background"`
	TodayText              string `json:"todayText" yaml:"today_text"`
	HolidayBadgeBackground string `json:"holidayBadgeBackground" yaml:"holiday_badge_background"`
	HolidayBadgeText       string `json:"holidayBadgeText" yaml:"holiday_badge_text"`
}

// DefaultTheme is the theme of a freshly inserted calendar layer.
func DefaultTheme() Theme {
	return Theme{
		Background:             "#FFFFFF",
		HeaderBackground:       "#F6F7FB",
		HeaderText:             "#1F2330",
		Grid:                   "#D7DBEC",
		Text:                   "#1F2330",
		SecondaryText:          "#A0A4B5",
		WeekendText:            "#F5566C",
		TodayBackground:        "#7064FF",
		TodayText:              "#FFFFFF",
		HolidayBadgeBackground: "#FFECE5",
		HolidayBadgeText:       "#FF6A3D",
	}
}

// WithDefaults fills empty colors from DefaultTheme.
func (t Theme) WithDefaults() Theme {
	d := DefaultTheme()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&t.Background, d.Background)
	fill(&t.HeaderBackground, d.HeaderBackground)
	fill(&t.HeaderText, d.HeaderText)
	fill(&t.Grid, d.Grid)
	fill(&t.Text, d.Text)
	fill(&t.SecondaryText, d.SecondaryText)
	fill(&t.WeekendText, d.WeekendText)
	fill(&t.TodayBackground, d.TodayBackground)
	fill(&t.TodayText, d.TodayText)
	fill(&t.HolidayBadgeBackground, d.HolidayBadgeBackground)
	fill(&t.HolidayBadgeText, d.HolidayBadgeText)
	return t
}

// Palette is a brand color token set from which calendar themes are derived.
type Palette struct {
	Key          string `json:"key" yaml:"key"`
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	Primary      string `json:"primary" yaml:"primary"`
	Secondary    string `json:"secondary" yaml:"secondary"`
	Surface      string `json:"surface" yaml:"surface"`
	SurfaceMuted string `json:"surfaceMuted" yaml:"surface_muted"`
	Text         string `json:"text" yaml:"text"`
	Accent       string `json:"accent" yaml:"accent"`
}

var builtinPalettes = []Palette{
	{Key: "twilight", Name: "暮光紫", Description: "柔和紫调，适合梦幻主题", Primary: "#7064FF", Secondary: "#F7F6FF", Surface: "#FFFFFF", SurfaceMuted: "#F1F2FF", Text: "#1F2330", Accent: "#FF8A80"},
	{Key: "sunny", Name: "柑橘橙", Description: "温暖活力，强调节日气氛", Primary: "#FF8A3D", Secondary: "#FFEFE2", Surface: "#FFFFFF", SurfaceMuted: "#FFF4EC", Text: "#332820", Accent: "#FFB74D"},
	{Key: "forest", Name: "松林绿", Description: "自然调性，适合露营与自然风", Primary: "#4CAF50", Secondary: "#E6F4EA", Surface: "#FFFFFF", SurfaceMuted: "#E9F7EE", Text: "#1F2A1E", Accent: "#8BC34A"},
	{Key: "noir", Name: "冷杉蓝", Description: "理性冷静，适合作品集", Primary: "#1E88E5", Secondary: "#E3F2FD", Surface: "#FFFFFF", SurfaceMuted: "#EAF3FE", Text: "#1A212F", Accent: "#64B5F6"},
}

// Palettes returns a copy of the built-in palettes.
func Palettes() []Palette { return append([]Palette(nil), builtinPalettes...) }

// PaletteByKey returns the palette with key, falling back to the first one.
func PaletteByKey(key string) (Palette, bool) {
	for _, p := range builtinPalettes {
		if p.Key == key {
			return p, true
		}
	}
	return builtinPalettes[0], false
}

// ThemeFromPalette derives a calendar theme from palette tokens.
func ThemeFromPalette(p Palette) Theme {
	return Theme{
		Background:             p.Surface,
		HeaderBackground:       p.Secondary,
		HeaderText:             p.Text,
		Grid:                   hex6(p.Primary) + "33",
		Text:                   p.Text,
		SecondaryText:          "#8E93A6",
		WeekendText:            p.Primary,
		TodayBackground:        p.Primary,
		TodayText:              p.Surface,
		HolidayBadgeBackground: hex6(p.Accent) + "33",
		HolidayBadgeText:       p.Accent,
	}.WithDefaults()
}

// hex6 expands a hex color to #RRGGBB.
func hex6(c string) string {
	v := strings.TrimPrefix(strings.TrimSpace(c), "#")
	if len(v) == 3 {
		v = string([]byte{v[0], v[0], v[1], v[1], v[2], v[2]})
	}
	for len(v) < 6 {
		v += "0"
	}
	return "#" + strings.ToUpper(v[:6])
}

func luminance(c string) float64 {
	v := hex6(c)[1:]
	ch := func(s string) float64 {
		n, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return 0
		}
		x := float64(n) / 255
		if x <= 0.04045 {
			return x / 12.92
		}
		return math.Pow((x+0.055)/1.055, 2.4)
	}
	return 0.2126*ch(v[0:2]) + 0.7152*ch(v[2:4]) + 0.0722*ch(v[4:6])
}

// Contrast returns the WCAG contrast ratio between two hex colors.
func Contrast(fg, bg string) float64 {
	l1, l2 := luminance(fg), luminance(bg)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

// MeetsAA reports whether fg on bg passes WCAG AA (4.5, or 3 for large text).
func MeetsAA(fg, bg string, largeText bool) bool {
	r := Contrast(fg, bg)
	if largeText {
		return r >= 3
	}
	return r >= 4.5
}
