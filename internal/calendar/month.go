/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package calendar lays out month grids for calendar layers: day cells with
// Gregorian and lunar data, weekday labels, highlight rules and themes.
package calendar

import (
	"errors"
	"fmt"
	"math"
	"time"

	"calendarcanvas/internal/lunar"
)

// ErrInvalidMonth is returned for non-finite year or month input.
var ErrInvalidMonth = errors.New("calendar: invalid month payload")

// MaxWeeks is the maximum number of rows in a month grid.
const MaxWeeks = 6

var weekdayLabels = [7]string{"日", "一", "二", "三", "四", "五", "六"}

// Weekday is a column header. Index is 0 for Sunday through 6 for Saturday.
type Weekday struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Day is one cell of a month grid.
type Day struct {
	Date        time.Time  `json:"date"`
	ISODate     string     `json:"isoDate"`
	Display     int        `json:"display"`
	MonthOffset int        `json:"monthOffset"`
	Weekday     int        `json:"weekday"`
	IsWeekend   bool       `json:"isWeekend"`
	IsToday     bool       `json:"isToday"`
	ISOWeek     int        `json:"isoWeek"`
	Lunar       lunar.Info `json:"lunar"`
	SolarTerm   string     `json:"solarTerm,omitempty"`
	Festivals   []string   `json:"festivals,omitempty"`
}

// InMonth reports whether the cell belongs to the displayed month.
func (d Day) InMonth() bool { return d.MonthOffset == 0 }

// Month is a generated month grid.
type Month struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	WeekStart int       `json:"weekStart"`
	Weeks     [][]Day   `json:"weeks"`
	Weekdays  []Weekday `json:"weekdays"`
}

// Days returns all cells in row order.
func (m Month) Days() []Day {
	out := make([]Day, 0, len(m.Weeks)*7)
	for _, w := range m.Weeks {
		out = append(out, w...)
	}
	return out
}

// Find returns the cell for an ISO date.
func (m Month) Find(iso string) (Day, bool) {
	for _, w := range m.Weeks {
		for _, d := range w {
			if d.ISODate == iso {
				return d, true
			}
		}
	}
	return Day{}, false
}

type options struct {
	now    func() time.Time
	oracle lunar.Oracle
}

// Option configures GenerateMonth.
type Option func(*options)

// WithClock sets the clock used for the IsToday flag.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithToday pins "today" to a fixed date.
func WithToday(today time.Time) Option {
	return WithClock(func() time.Time { return today })
}

// WithOracle sets the lunar oracle. A nil oracle disables lunar data.
func WithOracle(o lunar.Oracle) Option {
	return func(opts *options) { opts.oracle = o }
}

var defaultOracle = lunar.Cached(lunar.Default())

func resolve(opts []Option) options {
	o := options{now: time.Now, oracle: defaultOracle}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// NormalizeWeekStart rounds weekStart and folds it into 0..6.
func NormalizeWeekStart(weekStart float64) int {
	if math.IsNaN(weekStart) || math.IsInf(weekStart, 0) {
		return 0
	}
	n := int(math.Round(weekStart)) % 7
	if n < 0 {
		n += 7
	}
	return n
}

// Weekdays returns the column headers for a week starting at weekStart.
func Weekdays(weekStart int) []Weekday {
	out := make([]Weekday, 7)
	for i := range out {
		idx := (weekStart + i) % 7
		out[i] = Weekday{Index: idx, Label: weekdayLabels[idx]}
	}
	return out
}

// Normalize validates and normalizes month input the way GenerateMonth does.
func Normalize(year, month, weekStart float64) (y, m, ws int, err error) {
	if math.IsNaN(year) || math.IsInf(year, 0) || math.IsNaN(month) || math.IsInf(month, 0) {
		return 0, 0, 0, fmt.Errorf("%w: year=%v month=%v", ErrInvalidMonth, year, month)
	}
	y = int(math.Round(year))
	m = int(math.Min(12, math.Max(1, math.Round(month))))
	return y, m, NormalizeWeekStart(weekStart), nil
}

// GenerateMonth lays out the grid for year/month with columns starting at
// weekStart (0 = Sunday). Month is clamped to 1..12. At most six rows are
// produced; generation stops after a row that ends in the following month
// on day 7 or later.
func GenerateMonth(year, month, weekStart float64, opts ...Option) (Month, error) {
	y, m, ws, err := Normalize(year, month, weekStart)
	if err != nil {
		return Month{}, err
	}
	o := resolve(opts)

	first := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	offset := (int(first.Weekday()) - ws + 7) % 7
	cursor := first.AddDate(0, 0, -offset)

	ty, tm, td := o.now().Date()
	today := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)

	out := Month{Year: y, Month: m, WeekStart: ws, Weekdays: Weekdays(ws)}
	for row := 0; row < MaxWeeks; row++ {
		week := make([]Day, 7)
		for col := range week {
			week[col] = newDay(cursor, y, m, (ws+col)%7, today, o.oracle)
			cursor = cursor.AddDate(0, 0, 1)
		}
		out.Weeks = append(out.Weeks, week)
		if last := week[6]; last.MonthOffset == 1 && last.Display >= 7 {
			break
		}
	}
	return out, nil
}

func newDay(date time.Time, year, month, weekday int, today time.Time, oracle lunar.Oracle) Day {
	_, isoWeek := date.ISOWeek()
	d := Day{
		Date:        date,
		ISODate:     date.Format(time.DateOnly),
		Display:     date.Day(),
		MonthOffset: compareMonth(year, month, date),
		Weekday:     weekday,
		IsWeekend:   weekday == 0 || weekday == 6,
		IsToday:     date.Equal(today),
		ISOWeek:     isoWeek,
	}
	if oracle != nil {
		d.Lunar = oracle.Lunar(date)
		d.SolarTerm = oracle.SolarTerm(date)
		d.Festivals = oracle.Festivals(date, d.Lunar).All()
	}
	return d
}

func compareMonth(year, month int, date time.Time) int {
	dy, dm := date.Year(), int(date.Month())
	switch {
	case dy == year && dm == month:
		return 0
	case dy < year || (dy == year && dm < month):
		return -1
	default:
		return 1
	}
}
