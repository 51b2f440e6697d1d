/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"strings"

	"calendarcanvas/internal/calendar"
	"calendarcanvas/internal/textlayout"
)

const cellWidth = 9

// displayWidth counts wide runes as two terminal columns.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		if textlayout.Wide(r) {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func pad(s string, w int) string {
	if d := displayWidth(s); d < w {
		return s + strings.Repeat(" ", w-d)
	}
	return s
}

// dayNote is the secondary label of a cell: solar term, festival or lunar day.
func dayNote(d calendar.Day) string {
	switch {
	case d.SolarTerm != "":
		return d.SolarTerm
	case len(d.Festivals) > 0:
		return d.Festivals[0]
	default:
		return d.Lunar.DayName
	}
}

// formatMonth renders a month grid as fixed-width text. Days outside the
// month are shown without notes.
func formatMonth(m calendar.Month) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d-%02d\n", m.Year, m.Month)
	for _, wd := range m.Weekdays {
		b.WriteString(pad(wd.Label, cellWidth))
	}
	b.WriteString("\n")
	for _, week := range m.Weeks {
		for _, d := range week {
			cell := fmt.Sprintf("%2d", d.Display)
			if d.InMonth() {
				if n := dayNote(d); n != "" {
					cell += " " + n
				}
				if d.IsToday {
					cell = "*" + cell
				}
			}
			b.WriteString(pad(cell, cellWidth))
		}
		b.WriteString("\n")
	}
	return b.String()
}
