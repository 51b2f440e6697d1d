/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package surface

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

var named = map[string]color.NRGBA{
	"transparent": {},
	"white":       {R: 255, G: 255, B: 255, A: 255},
	"black":       {A: 255},
}

// ParseColor understands #rgb, #rgba, #rrggbb, #rrggbbaa, rgb() and rgba()
// with 0-255 channels and a 0-1 alpha, plus a few keywords.
func ParseColor(s string) (color.NRGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := named[s]; ok {
		return c, true
	}
	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}
	var args string
	switch {
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		args = s[5 : len(s)-1]
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		args = s[4 : len(s)-1]
	default:
		return color.NRGBA{}, false
	}
	parts := strings.Split(args, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, false
	}
	var ch [4]float64
	ch[3] = 1
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) {
			return color.NRGBA{}, false
		}
		ch[i] = v
	}
	return color.NRGBA{
		R: channel(ch[0]),
		G: channel(ch[1]),
		B: channel(ch[2]),
		A: channel(ch[3] * 255),
	}, true
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

func parseHex(h string) (color.NRGBA, bool) {
	switch len(h) {
	case 3, 4:
		var b strings.Builder
		for _, r := range h {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		h = b.String()
	case 6, 8:
	default:
		return color.NRGBA{}, false
	}
	if len(h) == 6 {
		h += "ff"
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

// Color parses s and falls back to def when s is empty or malformed.
func Color(s, def string) color.NRGBA {
	if c, ok := ParseColor(s); ok {
		return c
	}
	c, _ := ParseColor(def)
	return c
}

// WithAlpha replaces the alpha channel; a is clamped to [0,1].
func WithAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = channel(a * 255)
	return c
}

// Hex formats c as #rrggbb, dropping alpha.
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
