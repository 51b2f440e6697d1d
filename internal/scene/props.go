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
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"calendarcanvas/internal/calendar"
)

// Kind names a layer type.
type Kind string

const (
	KindText          Kind = "text"
	KindShape         Kind = "shape"
	KindCalendar      Kind = "calendar"
	KindCalendarBlock Kind = "calendar-block"
)

// Builtin reports whether k has typed props.
func (k Kind) Builtin() bool {
	return k == KindText || k == KindShape || k == KindCalendar
}

// Props is the closed set of layer property variants: *TextProps,
// *ShapeProps, *CalendarProps and *GenericProps.
type Props interface {
	Kind() Kind
	// Clone returns a deep copy.
	Clone() Props
	// Patch returns a copy with the given JSON-style fields applied.
	// Unknown keys are ignored by the typed variants.
	Patch(patch map[string]any) (Props, error)
	sealed()
}

// TextProps configure a text layer.
type TextProps struct {
	Text          string  `json:"text"`
	FontFamily    string  `json:"fontFamily"`
	FontSize      float64 `json:"fontSize"`
	FontWeight    string  `json:"fontWeight"`
	LineHeight    float64 `json:"lineHeight"`
	LetterSpacing float64 `json:"letterSpacing"`
	Align         string  `json:"align"`
	Color         string  `json:"color"`
}

func (*TextProps) Kind() Kind { return KindText }
func (*TextProps) sealed()    {}

func (p *TextProps) Clone() Props {
	c := *p
	return &c
}

func (p *TextProps) Patch(patch map[string]any) (Props, error) {
	c := *p
	return &c, applyJSON(&c, patch)
}

// ShapeProps configure a rounded rectangle.
type ShapeProps struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Radius      float64 `json:"radius"`
}

func (*ShapeProps) Kind() Kind { return KindShape }
func (*ShapeProps) sealed()    {}

func (p *ShapeProps) Clone() Props {
	c := *p
	return &c
}

func (p *ShapeProps) Patch(patch map[string]any) (Props, error) {
	c := *p
	return &c, applyJSON(&c, patch)
}

// CalendarProps configure a month grid. Year, Month and WeekStart are kept
// as numbers and normalized at layout time.
type CalendarProps struct {
	Year                float64        `json:"year"`
	Month               float64        `json:"month"`
	WeekStart           float64        `json:"weekStart"`
	Radius              float64        `json:"radius"`
	Padding             float64        `json:"padding"`
	ShowWeekNumber      bool           `json:"showWeekNumber"`
	ShowLunar           bool           `json:"showLunar"`
	ShowSolarTerm       bool           `json:"showSolarTerm"`
	ShowFestivals       bool           `json:"showFestivals"`
	ShowHolidays        bool           `json:"showHolidays"`
	HighlightToday      bool           `json:"highlightToday"`
	HighlightWeekend    bool           `json:"highlightWeekend"`
	HighlightHolidays   bool           `json:"highlightHolidays"`
	HighlightExpression string         `json:"highlightExpression"`
	Holidays            []string       `json:"holidays"`
	Theme               calendar.Theme `json:"theme"`
}

func (*CalendarProps) Kind() Kind { return KindCalendar }
func (*CalendarProps) sealed()    {}

func (p *CalendarProps) Clone() Props { return p.clone() }

func (p *CalendarProps) clone() *CalendarProps {
	c := *p
	c.Holidays = slices.Clone(p.Holidays)
	return &c
}

func (p *CalendarProps) Patch(patch map[string]any) (Props, error) {
	c := p.clone()
	if h, ok := patch["holidays"]; ok && h != nil {
		// replace rather than decode into the cloned backing array
		c.Holidays = nil
	}
	return c, applyJSON(c, patch)
}

// Rules returns the highlight rules configured on the layer.
func (p *CalendarProps) Rules() calendar.Rules {
	return calendar.NewRules(p.HighlightToday, p.HighlightWeekend, p.HighlightHolidays, p.Holidays, p.HighlightExpression)
}

// calendarDecodeDefaults are the values assumed for fields missing from
// stored documents; badges and highlights default on.
func calendarDecodeDefaults() *CalendarProps {
	return &CalendarProps{
		ShowHolidays:      true,
		HighlightToday:    true,
		HighlightWeekend:  true,
		HighlightHolidays: true,
	}
}

// GenericProps is the opaque bag of a kind without typed props.
type GenericProps struct {
	Type   Kind
	Values map[string]any
}

func (p *GenericProps) Kind() Kind { return p.Type }
func (*GenericProps) sealed()      {}

func (p *GenericProps) Clone() Props {
	return &GenericProps{Type: p.Type, Values: copyMap(p.Values)}
}

func (p *GenericProps) Patch(patch map[string]any) (Props, error) {
	c := &GenericProps{Type: p.Type, Values: copyMap(p.Values)}
	if c.Values == nil {
		c.Values = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		c.Values[k] = copyValue(v)
	}
	return c, nil
}

// Get returns a value from the bag.
func (p *GenericProps) Get(key string) (any, bool) {
	v, ok := p.Values[key]
	return v, ok
}

func (p *GenericProps) MarshalJSON() ([]byte, error) {
	if p.Values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Values)
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

// applyJSON decodes patch onto dst through its JSON field names.
func applyJSON(dst any, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}
	return nil
}

// DecodeProps decodes a stored props object for kind. Missing or null data
// yields the zero variant.
func DecodeProps(kind Kind, data json.RawMessage) (Props, error) {
	empty := len(data) == 0 || string(data) == "null"
	switch kind {
	case KindText:
		p := &TextProps{}
		if !empty {
			if err := json.Unmarshal(data, p); err != nil {
				return nil, fmt.Errorf("text props: %w", err)
			}
		}
		return p, nil
	case KindShape:
		p := &ShapeProps{}
		if !empty {
			if err := json.Unmarshal(data, p); err != nil {
				return nil, fmt.Errorf("shape props: %w", err)
			}
		}
		return p, nil
	case KindCalendar:
		p := calendarDecodeDefaults()
		if !empty {
			if err := json.Unmarshal(data, p); err != nil {
				return nil, fmt.Errorf("calendar props: %w", err)
			}
		}
		return p, nil
	}
	g := &GenericProps{Type: kind, Values: map[string]any{}}
	if !empty {
		if err := json.Unmarshal(data, &g.Values); err != nil {
			return nil, fmt.Errorf("%s props: %w", kind, err)
		}
		if g.Values == nil {
			g.Values = map[string]any{}
		}
	}
	return g, nil
}

// PropsEqual compares two props values structurally.
func PropsEqual(a, b Props) bool { return reflect.DeepEqual(a, b) }

// Keys returns the bag's keys in sorted order.
func (p *GenericProps) Keys() []string {
	return slices.Sorted(maps.Keys(p.Values))
}
