/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
// Package textlayout measures and breaks text for the renderer and the vector
// surfaces. Measurement runs on x/image font faces; wrapping is independent
// of the face so callers can plug in their own advance function.
package textlayout

import (
	"strings"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/width"
)

// FontSpec describes a requested font. Size is in pixels.
type FontSpec struct {
	Family string
	Size   float64
	Weight int // 100..900
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// Height is ascent plus descent.
func (m Metrics) Height() float64 { return m.Ascent + m.Descent }

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	asc := float64(m.Ascent.Round())
	desc := float64(m.Descent.Round())
	return Metrics{Ascent: asc, Descent: desc, LineGap: float64(m.Height.Round()) - asc - desc}
}

// Wide reports whether r occupies a full em in CJK typesetting.
func Wide(r rune) bool {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return true
	}
	return false
}

// Measurer computes advances through a Provider. Wide runes always advance
// by the font size so CJK text keeps a stable width when the face has no
// glyph for it.
type Measurer struct {
	Provider Provider
}

func NewMeasurer(p Provider) *Measurer {
	if p == nil {
		p = BasicProvider{}
	}
	return &Measurer{Provider: p}
}

// Metrics resolves spec and returns its metrics.
func (m *Measurer) Metrics(spec FontSpec) Metrics {
	_, met := m.provider().Resolve(spec)
	return met
}

// Advance is the width of s without letter spacing.
func (m *Measurer) Advance(spec FontSpec, s string) float64 {
	face, _ := m.provider().Resolve(spec)
	var w fixed.Int26_6
	prev := rune(-1)
	for _, r := range s {
		if Wide(r) {
			w += fixed.Int26_6(spec.Size * 64)
			prev = -1
			continue
		}
		if prev >= 0 {
			w += face.Kern(prev, r)
		}
		adv, ok := face.GlyphAdvance(r)
		if !ok {
			adv = fixed.Int26_6(spec.Size * 32)
		}
		w += adv
		prev = r
	}
	return float64(w) / 64
}

// RuneAdvance is the advance of a single rune.
func (m *Measurer) RuneAdvance(spec FontSpec) func(rune) float64 {
	return func(r rune) float64 { return m.Advance(spec, string(r)) }
}

func (m *Measurer) provider() Provider {
	if m == nil || m.Provider == nil {
		return BasicProvider{}
	}
	return m.Provider
}

// Line is a single laid out line.
type Line struct {
	Text  string
	Width float64
}

// Box is the result of laying out a paragraph into a width.
type Box struct {
	Lines      []Line
	Width      float64
	Height     float64
	LineHeight float64
}

// Wrap breaks text into lines no wider than maxWidth. Hard breaks on '\n'
// are kept (an empty paragraph yields an empty line). Soft breaks happen at
// spaces and on either side of wide runes; a run that alone exceeds the width
// is split between runes. letterSpacing is added after every rune except the
// last one on a line. maxWidth <= 0 disables wrapping.
func Wrap(text string, maxWidth, letterSpacing float64, advance func(rune) float64) []Line {
	var out []Line
	for _, para := range strings.Split(text, "\n") {
		out = append(out, wrapParagraph(para, maxWidth, letterSpacing, advance)...)
	}
	return out
}

type token struct {
	runes []rune
	space bool
}

func tokenize(s string) []token {
	var toks []token
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			toks = append(toks, token{runes: cur})
			cur = nil
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			flush()
			toks = append(toks, token{runes: []rune{r}, space: true})
		case Wide(r):
			flush()
			toks = append(toks, token{runes: []rune{r}})
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return toks
}

func wrapParagraph(s string, maxWidth, spacing float64, advance func(rune) float64) []Line {
	if s == "" {
		return []Line{{}}
	}
	measure := func(rs []rune) float64 {
		var w float64
		for _, r := range rs {
			w += advance(r) + spacing
		}
		return w
	}
	var (
		lines []Line
		cur   []rune
		curW  float64
	)
	emit := func() {
		trimmed := []rune(strings.TrimRight(string(cur), " \t"))
		w := measure(trimmed)
		if len(trimmed) > 0 {
			w -= spacing
		}
		lines = append(lines, Line{Text: string(trimmed), Width: w})
		cur, curW = nil, 0
	}
	for _, tk := range tokenize(s) {
		tw := measure(tk.runes)
		if maxWidth <= 0 || curW+tw-spacing <= maxWidth {
			if !(tk.space && len(cur) == 0 && len(lines) > 0) {
				cur = append(cur, tk.runes...)
				curW += tw
			}
			continue
		}
		if tk.space {
			emit()
			continue
		}
		if len(cur) > 0 {
			emit()
		}
		if tw-spacing <= maxWidth {
			cur = append(cur, tk.runes...)
			curW = tw
			continue
		}
		for _, r := range tk.runes {
			rw := advance(r) + spacing
			if len(cur) > 0 && curW+rw-spacing > maxWidth {
				emit()
			}
			cur = append(cur, r)
			curW += rw
		}
	}
	if len(cur) > 0 || len(lines) == 0 {
		emit()
	}
	return lines
}

// Layout wraps text with m and computes the block size. lineHeight is a
// multiplier of the font size.
func (m *Measurer) Layout(spec FontSpec, text string, maxWidth, lineHeight, letterSpacing float64) Box {
	lh := spec.Size * max(1, lineHeight)
	lines := Wrap(text, maxWidth, letterSpacing, m.RuneAdvance(spec))
	box := Box{Lines: lines, LineHeight: lh, Height: lh * float64(len(lines))}
	for _, l := range lines {
		box.Width = max(box.Width, l.Width)
	}
	return box
}
