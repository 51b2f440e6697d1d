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
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"calendarcanvas/internal/calendar"
	"calendarcanvas/internal/geom"
)

// Registry holds the default props of each layer kind. Built-in kinds are
// always present; others can be registered with a default bag.
type Registry struct {
	mu      sync.RWMutex
	now     func() time.Time
	generic map[Kind]map[string]any
}

// NewRegistry returns a registry whose calendar defaults use the clock's
// current year and month. A nil clock means time.Now.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	r := &Registry{now: now, generic: map[Kind]map[string]any{}}
	r.Register(KindCalendarBlock, map[string]any{})
	r.Register("material", map[string]any{"tone": "柔和"})
	return r
}

// Register sets the default bag for a kind without typed props.
func (r *Registry) Register(kind Kind, defaults map[string]any) {
	if kind.Builtin() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generic[kind] = copyMap(defaults)
}

// Kinds lists the known kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := []Kind{KindText, KindShape, KindCalendar}
	kinds = append(kinds, slices.Collect(maps.Keys(r.generic))...)
	slices.Sort(kinds)
	return kinds
}

// Known reports whether the kind is built in or registered.
func (r *Registry) Known(kind Kind) bool {
	if kind.Builtin() {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.generic[kind]
	return ok
}

// Defaults returns fresh default props for a kind. Unknown kinds get an
// empty bag.
func (r *Registry) Defaults(kind Kind) Props {
	switch kind {
	case KindText:
		return &TextProps{
			Text:       "双击编辑",
			FontFamily: "PingFang SC",
			FontSize:   28,
			FontWeight: "500",
			LineHeight: 1.4,
			Align:      "center",
			Color:      "#1F2330",
		}
	case KindShape:
		return &ShapeProps{Fill: "#F7F8FF", Stroke: "#7064FF", StrokeWidth: 4, Radius: 16}
	case KindCalendar:
		now := r.now()
		return &CalendarProps{
			Year:              float64(now.Year()),
			Month:             float64(now.Month()),
			WeekStart:         1,
			Radius:            36,
			Padding:           48,
			ShowLunar:         true,
			ShowSolarTerm:     true,
			ShowFestivals:     true,
			ShowHolidays:      true,
			HighlightToday:    true,
			HighlightWeekend:  true,
			HighlightHolidays: true,
			Holidays:          []string{},
			Theme:             calendar.DefaultTheme(),
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	values := copyMap(r.generic[kind])
	if values == nil {
		values = map[string]any{}
	}
	return &GenericProps{Type: kind, Values: values}
}

// New returns the kind's defaults with patch applied.
func (r *Registry) New(kind Kind, patch map[string]any) (Props, error) {
	p, err := r.Defaults(kind).Patch(patch)
	if err != nil {
		return nil, fmt.Errorf("%s defaults: %w", kind, err)
	}
	return p, nil
}

// DefaultFrame returns the centered insertion frame for a new layer.
func DefaultFrame(kind Kind, page *Page, props Props) geom.Rect {
	pw, ph := page.Width, page.Height
	if !(pw > 0) || !(ph > 0) {
		pw, ph = DefaultPageWidth, DefaultPageHeight
	}
	var w, h float64
	switch kind {
	case KindCalendar, KindCalendarBlock:
		w, h = pw*0.9, ph*0.7
	case KindText:
		size, lh := 28.0, 1.4
		if tp, ok := props.(*TextProps); ok {
			if tp.FontSize > 0 {
				size = tp.FontSize
			}
			if tp.LineHeight > 0 {
				lh = tp.LineHeight
			}
		}
		w, h = pw*0.6, size*lh*2.4
	case KindShape:
		w = pw * 0.32
		h = min(w, ph*0.9)
	default:
		w, h = min(200, pw), min(200, ph)
	}
	return geom.Rect{X: (pw - w) / 2, Y: (ph - h) / 2, W: w, H: h}
}
