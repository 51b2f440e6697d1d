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

import "testing"

func februaryDay(t *testing.T, iso string) Day {
	t.Helper()
	m, err := GenerateMonth(2024, 2, 1, WithToday(refToday))
	if err != nil {
		t.Fatalf("GenerateMonth: %v", err)
	}
	d, ok := m.Find(iso)
	if !ok {
		t.Fatalf("%s not in grid", iso)
	}
	return d
}

func TestHighlightExpression(t *testing.T) {
	sat := februaryDay(t, "2024-02-10")
	thu := februaryDay(t, "2024-02-15")

	cases := []struct {
		expr string
		day  Day
		want bool
	}{
		{"weekend", sat, true},
		{"2024-02-10", sat, true},
		{"WEEKEND", sat, true},
		{"weekend", thu, false},
		{"today", thu, true},
		{" , today ,", thu, true},
		{"weekday=4", thu, true},
		{"weekday=-1", sat, true},
		{"weekday=13", sat, true},
		{"weekday=x", sat, false},
		{"lunar=初一", sat, true},
		{"lunar=正月", thu, true},
		{"festival=春节", sat, true},
		{"festival=春节", thu, false},
		{"2024-02-11", sat, false},
		{"holiday", sat, false},
		{"", sat, false},
		{"foo, 2024-02-15", thu, true},
	}
	for _, c := range cases {
		if got := ParseHighlight(c.expr).Matches(c.day); got != c.want {
			t.Errorf("%q on %s: got %v want %v", c.expr, c.day.ISODate, got, c.want)
		}
	}
	if !ParseHighlight(" , ").Empty() {
		t.Fatalf("blank tokens should be dropped")
	}
}

func TestRulesMark(t *testing.T) {
	m, err := GenerateMonth(2024, 2, 1, WithToday(refToday))
	if err != nil {
		t.Fatalf("GenerateMonth: %v", err)
	}
	r := NewRules(true, true, true, []string{"2024-02-12", "2024-01-30"}, "2024-01-29")

	cases := map[string]Marks{
		"2024-02-10": {Weekend: true},
		"2024-02-15": {Today: true},
		"2024-02-12": {Holiday: true},
		// built-in marks are limited to the displayed month
		"2024-01-30": {},
		"2024-01-29": {Custom: true},
		"2024-03-03": {},
	}
	for iso, want := range cases {
		d, ok := m.Find(iso)
		if !ok {
			t.Fatalf("%s missing", iso)
		}
		if got := r.Mark(d); got != want {
			t.Errorf("%s: got %+v want %+v", iso, got, want)
		}
	}
	off := NewRules(false, false, false, nil, "")
	if off.Mark(februaryDay(t, "2024-02-10")).Any() {
		t.Fatalf("disabled rules should not mark anything")
	}
}
