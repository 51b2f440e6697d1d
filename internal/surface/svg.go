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
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/textlayout"
)

// SVG writes drawing calls as SVG 1.1 elements. The viewBox is in device
// pixels; width and height attributes may carry a physical size.
type SVG struct {
	base
	buf      bytes.Buffer
	clipSeq  int
	open     int
	werr     error
	Backdrop color.NRGBA
	// WidthAttr and HeightAttr override the width/height attributes, e.g. "210mm".
	WidthAttr, HeightAttr string
}

// NewSVG creates an SVG surface of w x h device pixels. Text is measured
// with faces from fonts, or the bundled Go font when fonts is nil.
func NewSVG(w, h int, fonts *textlayout.FontLibrary) *SVG {
	if fonts == nil {
		fonts = textlayout.NewGoLibrary()
	}
	return &SVG{
		base:     newBase(w, h, textlayout.NewMeasurer(textlayout.OTProvider{Lib: fonts})),
		Backdrop: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

func (s *SVG) wf(format string, args ...any) {
	if s.werr != nil {
		return
	}
	_, s.werr = fmt.Fprintf(&s.buf, format, args...)
}

func (s *SVG) Resize(w, h int) {
	s.resize(w, h)
	s.buf.Reset()
	s.clipSeq, s.open, s.werr = 0, 0, nil
}

func (s *SVG) Restore() {
	n, ok := s.restore()
	if !ok {
		return
	}
	for i := 0; i < n; i++ {
		s.wf("</g>\n")
		s.open--
	}
}

func (s *SVG) ClipRect(r geom.Rect) {
	d := s.clipTo(r)
	s.clipSeq++
	s.wf("<clipPath id=\"c%d\"><rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\"/></clipPath>\n", s.clipSeq, d.X, d.Y, d.W, d.H)
	s.wf("<g clip-path=\"url(#c%d)\">\n", s.clipSeq)
	s.open++
}

func (s *SVG) ClearRect(r geom.Rect) {
	d := s.deviceRect(r)
	s.wf("<rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", d.X, d.Y, d.W, d.H, Hex(s.Backdrop))
}

func (s *SVG) pathData() string {
	var b strings.Builder
	for _, seg := range s.path {
		p := seg.Pts
		switch seg.Kind {
		case SegMove:
			fmt.Fprintf(&b, "M%g %g", round3(p[0].X), round3(p[0].Y))
		case SegLine:
			fmt.Fprintf(&b, "L%g %g", round3(p[0].X), round3(p[0].Y))
		case SegQuad:
			fmt.Fprintf(&b, "Q%g %g %g %g", round3(p[0].X), round3(p[0].Y), round3(p[1].X), round3(p[1].Y))
		case SegCubic:
			fmt.Fprintf(&b, "C%g %g %g %g %g %g", round3(p[0].X), round3(p[0].Y), round3(p[1].X), round3(p[1].Y), round3(p[2].X), round3(p[2].Y))
		case SegClose:
			b.WriteString("Z")
		}
	}
	return b.String()
}

func round3(v float64) float64 { return geom.FloatRound(v, 3) }

func paint(attr string, c color.NRGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("%s=\"%s\"", attr, Hex(c))
	}
	return fmt.Sprintf("%s=\"%s\" %s-opacity=\"%g\"", attr, Hex(c), attr, geom.FloatRound(float64(c.A)/255, 3))
}

func (s *SVG) Fill() {
	if len(s.path) == 0 || s.st.fill.A == 0 {
		return
	}
	s.wf("<path d=\"%s\" %s/>\n", s.pathData(), paint("fill", s.st.fill))
}

func (s *SVG) Stroke() {
	if len(s.path) == 0 || s.st.stroke.A == 0 {
		return
	}
	dash := ""
	if d := s.deviceDash(); len(d) > 0 {
		parts := make([]string, len(d))
		for i, v := range d {
			parts[i] = fmt.Sprintf("%g", round3(v))
		}
		dash = fmt.Sprintf(" stroke-dasharray=\"%s\"", strings.Join(parts, " "))
	}
	s.wf("<path d=\"%s\" fill=\"none\" %s stroke-width=\"%g\"%s/>\n", s.pathData(), paint("stroke", s.st.stroke), round3(s.deviceLineWidth()), dash)
}

func (s *SVG) FillText(str string, x, y float64) {
	if str == "" || s.st.fill.A == 0 {
		return
	}
	p, size, angle := s.textAnchor(str, x, y)
	rot := ""
	if deg := angle * 180 / math.Pi; math.Abs(deg) > 1e-6 {
		rot = fmt.Sprintf(" transform=\"rotate(%g %g %g)\"", round3(deg), round3(p.X), round3(p.Y))
	}
	weight := s.st.font.Weight
	if weight == 0 {
		weight = 400
	}
	s.wf("<text x=\"%g\" y=\"%g\" font-family=\"%s\" font-size=\"%g\" font-weight=\"%d\" %s%s>%s</text>\n",
		round3(p.X), round3(p.Y), escAttr(s.st.font.Family), round3(size), weight, paint("fill", s.st.fill), rot, escText(str))
}

// Bytes returns the complete document.
func (s *SVG) Bytes() ([]byte, error) {
	var out bytes.Buffer
	wa, ha := s.WidthAttr, s.HeightAttr
	if wa == "" {
		wa = fmt.Sprintf("%dpx", s.w)
	}
	if ha == "" {
		ha = fmt.Sprintf("%dpx", s.h)
	}
	fmt.Fprintf(&out, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(&out, "<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%s\" height=\"%s\" viewBox=\"0 0 %d %d\">\n", escAttr(wa), escAttr(ha), s.w, s.h)
	out.Write(s.buf.Bytes())
	for i := 0; i < s.open; i++ {
		out.WriteString("</g>\n")
	}
	out.WriteString("</svg>\n")
	if s.werr != nil {
		return nil, fmt.Errorf("build svg: %w", s.werr)
	}
	return out.Bytes(), nil
}

// WriteTo writes the complete document to w.
func (s *SVG) WriteTo(w io.Writer) (int64, error) {
	b, err := s.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

func escAttr(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

var _ Surface = (*SVG)(nil)
