/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package lunar supplies lunisolar calendar facts for civil dates: lunar
// year/month/day names, the solar term falling on a date and the festivals
// observed on it. Calendar layout consumes these through the Oracle interface
// and never computes calendar astronomy itself.
package lunar

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Info describes the lunar date of one civil day.
// Month and Day are zero when the date lies outside the supported table.
type Info struct {
	Year        int    `json:"year"`
	YearName    string `json:"yearName"`
	Zodiac      string `json:"zodiac"`
	Month       int    `json:"month"`
	MonthName   string `json:"monthName"`
	Day         int    `json:"day"`
	DayName     string `json:"dayName"`
	IsLeapMonth bool   `json:"isLeapMonth"`
}

// Festivals lists the festival names of a day, split by calendar system.
type Festivals struct {
	Solar []string `json:"solar"`
	Lunar []string `json:"lunar"`
}

// All returns solar festivals followed by lunar festivals.
func (f Festivals) All() []string {
	if len(f.Solar)+len(f.Lunar) == 0 {
		return nil
	}
	out := make([]string, 0, len(f.Solar)+len(f.Lunar))
	out = append(out, f.Solar...)
	return append(out, f.Lunar...)
}

// Oracle answers lunar calendar questions for civil dates. Only the year,
// month and day of the passed time are significant.
type Oracle interface {
	Lunar(date time.Time) Info
	SolarTerm(date time.Time) string
	Festivals(date time.Time, info Info) Festivals
}

// Default returns the bundled table-driven oracle covering 1900-01-31 to 2100-12-31.
func Default() Oracle { return tableOracle{} }

type cachedDay struct {
	info Info
	term string
	fest Festivals
	ok   [3]bool
}

type cachedOracle struct {
	mu    sync.Mutex
	inner Oracle
	days  *lru.Cache[int64, *cachedDay]
}

// cachedDays bounds the memo to roughly a decade of days.
const cachedDays = 4096

// Cached wraps an oracle with a per-date memo.
func Cached(o Oracle) Oracle {
	if o == nil {
		o = Default()
	}
	if _, ok := o.(*cachedOracle); ok {
		return o
	}
	days, _ := lru.New[int64, *cachedDay](cachedDays)
	return &cachedOracle{inner: o, days: days}
}

func dayKey(t time.Time) int64 {
	y, m, d := t.Date()
	return int64(y)*10000 + int64(m)*100 + int64(d)
}

func (c *cachedOracle) entry(t time.Time) *cachedDay {
	k := dayKey(t)
	e, ok := c.days.Get(k)
	if !ok {
		e = &cachedDay{}
		c.days.Add(k, e)
	}
	return e
}

func (c *cachedOracle) Lunar(date time.Time) Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(date)
	if !e.ok[0] {
		e.info = c.inner.Lunar(date)
		e.ok[0] = true
	}
	return e.info
}

func (c *cachedOracle) SolarTerm(date time.Time) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(date)
	if !e.ok[1] {
		e.term = c.inner.SolarTerm(date)
		e.ok[1] = true
	}
	return e.term
}

func (c *cachedOracle) Festivals(date time.Time, info Info) Festivals {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(date)
	memo := e.ok[0] && e.info == info
	if memo && e.ok[2] {
		return copyFestivals(e.fest)
	}
	f := c.inner.Festivals(date, info)
	if memo {
		e.fest = f
		e.ok[2] = true
	}
	return copyFestivals(f)
}

func copyFestivals(f Festivals) Festivals {
	return Festivals{Solar: append([]string(nil), f.Solar...), Lunar: append([]string(nil), f.Lunar...)}
}
