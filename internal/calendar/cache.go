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
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type monthKey struct {
	year, month, weekStart int
	today                  string
}

// MonthCache memoizes generated months. Entries are keyed by the normalized
// year, month, week start and the current date so the today flag stays right
// across midnight.
type MonthCache struct {
	mu     sync.Mutex
	months *lru.Cache[monthKey, Month]
	opts   []Option
	now    func() time.Time
	hits   int
	misses int
}

// NewMonthCache keeps up to size months; opts are applied to every generation.
func NewMonthCache(size int, opts ...Option) *MonthCache {
	if size <= 0 {
		size = 24
	}
	months, _ := lru.New[monthKey, Month](size)
	return &MonthCache{months: months, opts: opts, now: resolve(opts).now}
}

// Get returns the month grid, generating it on a miss. Callers must not
// modify the returned weeks.
func (c *MonthCache) Get(year, month, weekStart float64) (Month, error) {
	y, m, ws, err := Normalize(year, month, weekStart)
	if err != nil {
		return Month{}, err
	}
	key := monthKey{year: y, month: m, weekStart: ws, today: c.now().Format(time.DateOnly)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.months.Get(key); ok {
		c.hits++
		return cached, nil
	}
	c.misses++
	full, err := GenerateMonth(float64(y), float64(m), float64(ws), c.opts...)
	if err != nil {
		return Month{}, err
	}
	c.months.Add(key, full)
	return full, nil
}

// Purge drops all entries.
func (c *MonthCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.months.Purge()
}

// Stats returns hit and miss counters.
func (c *MonthCache) Stats() (hits, misses, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.months.Len()
}
