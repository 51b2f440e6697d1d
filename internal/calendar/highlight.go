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
	"slices"
	"strconv"
	"strings"
	"time"
)

type tokenKind int

const (
	tokWeekend tokenKind = iota
	tokToday
	tokWeekday
	tokLunar
	tokFestival
	tokDate
	tokUnknown
)

type token struct {
	kind    tokenKind
	weekday int
	value   string
}

// Highlight is a parsed highlight expression. The zero value matches nothing.
type Highlight struct {
	tokens []token
	source string
}

// ParseHighlight parses a comma separated expression. Supported tokens are
// weekend, today, weekday=N, lunar=<name>, festival=<name> and literal
// YYYY-MM-DD dates. Unknown tokens are kept but never match.
func ParseHighlight(expr string) Highlight {
	h := Highlight{source: expr}
	for _, raw := range strings.Split(expr, ",") {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		h.tokens = append(h.tokens, parseToken(s))
	}
	return h
}

func parseToken(s string) token {
	switch strings.ToLower(s) {
	case "weekend":
		return token{kind: tokWeekend}
	case "today":
		return token{kind: tokToday}
	}
	if key, val, ok := strings.Cut(s, "="); ok {
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "weekday":
			n, err := strconv.Atoi(val)
			if err != nil {
				return token{kind: tokUnknown, value: s}
			}
			n %= 7
			if n < 0 {
				n += 7
			}
			return token{kind: tokWeekday, weekday: n}
		case "lunar":
			return token{kind: tokLunar, value: val}
		case "festival":
			return token{kind: tokFestival, value: val}
		}
		return token{kind: tokUnknown, value: s}
	}
	if _, err := time.Parse(time.DateOnly, s); err == nil {
		return token{kind: tokDate, value: s}
	}
	return token{kind: tokUnknown, value: s}
}

// Empty reports whether the expression has no tokens.
func (h Highlight) Empty() bool { return len(h.tokens) == 0 }

// String returns the source expression.
func (h Highlight) String() string { return h.source }

// Matches reports whether any token matches the day.
func (h Highlight) Matches(d Day) bool {
	for _, t := range h.tokens {
		if t.matches(d) {
			return true
		}
	}
	return false
}

func (t token) matches(d Day) bool {
	switch t.kind {
	case tokWeekend:
		return d.IsWeekend
	case tokToday:
		return d.IsToday
	case tokWeekday:
		return d.Weekday == t.weekday
	case tokLunar:
		return t.value != "" && (d.Lunar.DayName == t.value || d.Lunar.MonthName == t.value)
	case tokFestival:
		return t.value != "" && slices.Contains(d.Festivals, t.value)
	case tokDate:
		return d.ISODate == t.value
	}
	return false
}

// Marks are the highlight decisions for one cell.
type Marks struct {
	Weekend bool
	Today   bool
	Holiday bool
	Custom  bool
}

// Any reports whether any mark is set.
func (m Marks) Any() bool { return m.Weekend || m.Today || m.Holiday || m.Custom }

// Rules combine the built-in toggles with an expression. Built-in marks
// apply to cells of the displayed month only; the expression applies to
// every cell.
type Rules struct {
	HighlightToday    bool
	HighlightWeekend  bool
	HighlightHolidays bool
	Holidays          map[string]bool
	Expression        Highlight
}

// NewRules builds rules from layer settings. Holidays are ISO dates.
func NewRules(today, weekend, holidays bool, holidayDates []string, expr string) Rules {
	r := Rules{
		HighlightToday:    today,
		HighlightWeekend:  weekend,
		HighlightHolidays: holidays,
		Expression:        ParseHighlight(expr),
	}
	if len(holidayDates) > 0 {
		r.Holidays = make(map[string]bool, len(holidayDates))
		for _, d := range holidayDates {
			r.Holidays[strings.TrimSpace(d)] = true
		}
	}
	return r
}

// IsHoliday reports whether the cell's date is listed as a holiday.
func (r Rules) IsHoliday(d Day) bool { return r.Holidays[d.ISODate] }

// Mark evaluates the rules for a cell.
func (r Rules) Mark(d Day) Marks {
	var m Marks
	if d.InMonth() {
		m.Weekend = r.HighlightWeekend && d.IsWeekend
		m.Today = r.HighlightToday && d.IsToday
		m.Holiday = r.HighlightHolidays && r.IsHoliday(d)
	}
	m.Custom = r.Expression.Matches(d)
	return m
}
