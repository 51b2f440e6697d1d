/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package lunar

import "time"

type monthDay struct{ m, d int }

var solarFestivals = map[monthDay][]string{
	{1, 1}:   {"元旦"},
	{2, 14}:  {"情人节"},
	{3, 8}:   {"妇女节"},
	{3, 12}:  {"植树节"},
	{4, 5}:   {"清明节"},
	{5, 1}:   {"劳动节"},
	{5, 4}:   {"青年节"},
	{6, 1}:   {"儿童节"},
	{7, 1}:   {"建党节"},
	{8, 1}:   {"建军节"},
	{9, 10}:  {"教师节"},
	{10, 1}:  {"国庆节"},
	{12, 25}: {"圣诞节"},
}

var lunarFestivals = map[monthDay][]string{
	{1, 1}:   {"春节"},
	{1, 15}:  {"元宵节"},
	{2, 2}:   {"龙抬头"},
	{5, 5}:   {"端午节"},
	{7, 7}:   {"七夕"},
	{7, 15}:  {"中元节"},
	{8, 15}:  {"中秋节"},
	{9, 9}:   {"重阳节"},
	{12, 8}:  {"腊八节"},
	{12, 23}: {"小年"},
}

const newYearsEve = "除夕"

// festivalsOf looks up festivals by solar month/day and by lunar month/day.
// Leap months carry no lunar festivals. New Year's Eve is the last day of
// the twelfth month, whether it has 29 or 30 days.
func festivalsOf(date time.Time, info Info) Festivals {
	_, m, d := date.Date()
	var out Festivals
	if names, ok := solarFestivals[monthDay{int(m), d}]; ok {
		out.Solar = append(out.Solar, names...)
	}
	if info.Month == 0 || info.IsLeapMonth {
		return out
	}
	if names, ok := lunarFestivals[monthDay{info.Month, info.Day}]; ok {
		out.Lunar = append(out.Lunar, names...)
	}
	if info.Month == 12 && info.Day == MonthLength(info.Year, 12, false) {
		out.Lunar = append(out.Lunar, newYearsEve)
	}
	return out
}
