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

// yearInfo encodes one lunar year per entry starting with 1900.
// Bits 0-3 hold the leap month (0 for none), bits 4-15 the month lengths
// from month 12 (bit 4) up to month 1 (bit 15), set meaning 30 days, and
// bit 16 the length of the leap month.
var yearInfo = [...]uint32{
	0x04bd8, 0x04ae0, 0x0a570, 0x054d5, 0x0d260, 0x0d950, 0x16554, 0x056a0, 0x09ad0, 0x055d2, // 1900
	0x04ae0, 0x0a5b6, 0x0a4d0, 0x0d250, 0x1d255, 0x0b540, 0x0d6a0, 0x0ada2, 0x095b0, 0x14977, // 1910
	0x04970, 0x0a4b0, 0x0b4b5, 0x06a50, 0x06d40, 0x1ab54, 0x02b60, 0x09570, 0x052f2, 0x04970, // 1920
	0x06566, 0x0d4a0, 0x0ea50, 0x16a95, 0x05ad0, 0x02b60, 0x186e3, 0x092e0, 0x1c8d7, 0x0c950, // 1930
	0x0d4a0, 0x1d8a6, 0x0b550, 0x056a0, 0x1a5b4, 0x025d0, 0x092d0, 0x0d2b2, 0x0a950, 0x0b557, // 1940
	0x06ca0, 0x0b550, 0x15355, 0x04da0, 0x0a5b0, 0x14573, 0x052b0, 0x0a9a8, 0x0e950, 0x06aa0, // 1950
	0x0aea6, 0x0ab50, 0x04b60, 0x0aae4, 0x0a570, 0x05260, 0x0f263, 0x0d950, 0x05b57, 0x056a0, // 1960
	0x096d0, 0x04dd5, 0x04ad0, 0x0a4d0, 0x0d4d4, 0x0d250, 0x0d558, 0x0b540, 0x0b6a0, 0x195a6, // 1970
	0x095b0, 0x049b0, 0x0a974, 0x0a4b0, 0x0b27a, 0x06a50, 0x06d40, 0x0af46, 0x0ab60, 0x09570, // 1980
	0x04af5, 0x04970, 0x064b0, 0x074a3, 0x0ea50, 0x06b58, 0x05ac0, 0x0ab60, 0x096d5, 0x092e0, // 1990
	0x0c960, 0x0d954, 0x0d4a0, 0x0da50, 0x07552, 0x056a0, 0x0abb7, 0x025d0, 0x092d0, 0x0cab5, // 2000
	0x0a950, 0x0b4a0, 0x0baa4, 0x0ad50, 0x055d9, 0x04ba0, 0x0a5b0, 0x15176, 0x052b0, 0x0a930, // 2010
	0x07954, 0x06aa0, 0x0ad50, 0x05b52, 0x04b60, 0x0a6e6, 0x0a4e0, 0x0d260, 0x0ea65, 0x0d530, // 2020
	0x05aa0, 0x076a3, 0x096d0, 0x04afb, 0x04ad0, 0x0a4d0, 0x1d0b6, 0x0d250, 0x0d520, 0x0dd45, // 2030
	0x0b5a0, 0x056d0, 0x055b2, 0x049b0, 0x0a577, 0x0a4b0, 0x0aa50, 0x1b255, 0x06d20, 0x0ada0, // 2040
	0x14b63, 0x09370, 0x049f8, 0x04970, 0x064b0, 0x168a6, 0x0ea50, 0x06b20, 0x1a6c4, 0x0aae0, // 2050
	0x092e0, 0x0d2e3, 0x0c960, 0x0d557, 0x0d4a0, 0x0da50, 0x05d55, 0x056a0, 0x0a6d0, 0x055d4, // 2060
	0x052d0, 0x0a9b8, 0x0a950, 0x0b4a0, 0x0b6a6, 0x0ad50, 0x055a0, 0x0aba4, 0x0a5b0, 0x052b0, // 2070
	0x0b273, 0x06930, 0x07337, 0x06aa0, 0x0ad50, 0x14b55, 0x04b60, 0x0a570, 0x054e4, 0x0d160, // 2080
	0x0e968, 0x0d520, 0x0daa0, 0x16aa6, 0x056d0, 0x04ae0, 0x0a9d4, 0x0a2d0, 0x0d150, 0x0f252, // 2090
	0x0d520, // 2100
}

const (
	firstYear = 1900
	lastYear  = firstYear + len(yearInfo) - 1
)

// epoch is lunar 1900-01-01.
var epoch = time.Date(1900, time.January, 31, 0, 0, 0, 0, time.UTC)

var (
	monthNames = [...]string{"正月", "二月", "三月", "四月", "五月", "六月", "七月", "八月", "九月", "十月", "冬月", "腊月"}
	dayNames   = [...]string{
		"初一", "初二", "初三", "初四", "初五", "初六", "初七", "初八", "初九", "初十",
		"十一", "十二", "十三", "十四", "十五", "十六", "十七", "十八", "十九", "二十",
		"廿一", "廿二", "廿三", "廿四", "廿五", "廿六", "廿七", "廿八", "廿九", "三十",
	}
	zodiac   = [...]string{"鼠", "牛", "虎", "兔", "龙", "蛇", "马", "羊", "猴", "鸡", "狗", "猪"}
	stems    = [...]string{"甲", "乙", "丙", "丁", "戊", "己", "庚", "辛", "壬", "癸"}
	branches = [...]string{"子", "丑", "寅", "卯", "辰", "巳", "午", "未", "申", "酉", "戌", "亥"}
)

func leapMonth(y int) int { return int(yearInfo[y-firstYear] & 0xf) }

func leapDays(y int) int {
	if leapMonth(y) == 0 {
		return 0
	}
	if yearInfo[y-firstYear]&0x10000 != 0 {
		return 30
	}
	return 29
}

func monthDays(y, m int) int {
	if yearInfo[y-firstYear]&(0x10000>>uint(m)) != 0 {
		return 30
	}
	return 29
}

func yearDays(y int) int {
	n := 348
	for bit := uint32(0x8000); bit > 0x8; bit >>= 1 {
		if yearInfo[y-firstYear]&bit != 0 {
			n++
		}
	}
	return n + leapDays(y)
}

// YearName returns the sexagenary (ganzhi) name of a year, e.g. 甲辰 for 2024.
func YearName(year int) string {
	off := ((year-4)%60 + 60) % 60
	return stems[off%10] + branches[off%12]
}

// ZodiacOf returns the zodiac animal of a year.
func ZodiacOf(year int) string {
	return zodiac[((year-4)%12+12)%12]
}

// MonthName returns the traditional name of lunar month 1..12.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthNames[m-1]
}

// DayName returns the traditional name of lunar day 1..30.
func DayName(d int) string {
	if d < 1 || d > 30 {
		return ""
	}
	return dayNames[d-1]
}

// MonthLength returns the days in lunar month m of year y, or 0 outside the table.
func MonthLength(y, m int, leap bool) int {
	if y < firstYear || y > lastYear || m < 1 || m > 12 {
		return 0
	}
	if leap {
		if leapMonth(y) != m {
			return 0
		}
		return leapDays(y)
	}
	return monthDays(y, m)
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fallbackInfo(year int) Info {
	return Info{Year: year, YearName: YearName(year), Zodiac: ZodiacOf(year)}
}

type tableOracle struct{}

func (tableOracle) Lunar(date time.Time) Info {
	day := civil(date)
	offset := int(day.Sub(epoch).Hours() / 24)
	if offset < 0 {
		return fallbackInfo(day.Year())
	}

	y := firstYear
	for ; y <= lastYear; y++ {
		n := yearDays(y)
		if offset < n {
			break
		}
		offset -= n
	}
	if y > lastYear {
		return fallbackInfo(day.Year())
	}

	leap := leapMonth(y)
	for m := 1; m <= 12; m++ {
		n := monthDays(y, m)
		if offset < n {
			return newInfo(y, m, offset+1, false)
		}
		offset -= n
		if m == leap {
			n = leapDays(y)
			if offset < n {
				return newInfo(y, m, offset+1, true)
			}
			offset -= n
		}
	}
	// unreachable while yearDays agrees with the month walk
	return fallbackInfo(day.Year())
}

func newInfo(y, m, d int, leap bool) Info {
	return Info{
		Year:        y,
		YearName:    YearName(y),
		Zodiac:      ZodiacOf(y),
		Month:       m,
		MonthName:   MonthName(m),
		Day:         d,
		DayName:     DayName(d),
		IsLeapMonth: leap,
	}
}

func (tableOracle) SolarTerm(date time.Time) string { return solarTerm(date) }

func (tableOracle) Festivals(date time.Time, info Info) Festivals {
	return festivalsOf(date, info)
}
