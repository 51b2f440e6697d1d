/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package render

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// textMetrics caches glyph advances keyed by font, size and character.
type textMetrics struct {
	cache  *lru.Cache[string, float64]
	hits   int
	misses int
}

func newTextMetrics(size int) *textMetrics {
	if size <= 0 {
		size = 512
	}
	c, _ := lru.New[string, float64](size)
	return &textMetrics{cache: c}
}

func (m *textMetrics) measure(font string, size float64, ch rune, compute func() float64) float64 {
	key := font + "|" + strconv.FormatFloat(size, 'g', -1, 64) + "|" + string(ch)
	if v, ok := m.cache.Get(key); ok {
		m.hits++
		return v
	}
	m.misses++
	v := compute()
	m.cache.Add(key, v)
	return v
}

func (m *textMetrics) purge() { m.cache.Purge() }

func (m *textMetrics) len() int { return m.cache.Len() }
