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

import (
	"math"
	"time"
)

var termNames = [...]string{
	"小寒", "大寒", "立春", "雨水", "惊蛰", "春分", "清明", "谷雨", "立夏", "小满", "芒种", "夏至",
	"小暑", "大暑", "立秋", "处暑", "白露", "秋分", "寒露", "霜降", "立冬", "小雪", "大雪", "冬至",
}

// minutes after the yearly base instant
var termMinutes = [...]int64{
	0, 21208, 42467, 63836, 85337, 107014, 128867, 150921, 173149, 195551, 218072, 240693,
	263343, 285989, 308563, 331033, 353350, 375494, 397447, 419210, 440795, 462224, 483532, 504758,
}

const tropicalYearMillis = 31556925974.7

var (
	termBase = time.Date(1900, time.January, 6, 2, 5, 0, 0, time.UTC)
	beijing  = time.FixedZone("CST", 8*60*60)
)

// TermDate returns the Beijing civil date of solar term index (0 = 小寒) in year.
// It uses a mean tropical year from the 1900 base, so terms falling close to
// midnight can land a day late; in 2025 立春 gives 02-04 and 清明 04-05,
// against the astronomical 02-03 and 04-04.
func TermDate(year, index int) time.Time {
	ms := termBase.UnixMilli() +
		int64(math.Round(float64(year-firstYear)*tropicalYearMillis)) +
		termMinutes[index]*60000
	return civil(time.UnixMilli(ms).In(beijing))
}

// solarTerm returns the name of the solar term on date, or "".
// Each Gregorian month holds exactly two terms, 2(m-1) and 2(m-1)+1.
func solarTerm(date time.Time) string {
	y, m, d := date.Date()
	if y < firstYear || y > lastYear {
		return ""
	}
	for i := 2 * (int(m) - 1); i <= 2*(int(m)-1)+1; i++ {
		ty, tm, td := TermDate(y, i).Date()
		if ty == y && tm == m && td == d {
			return termNames[i]
		}
	}
	return ""
}
