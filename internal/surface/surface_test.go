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
	"image/color"
	"math"
	"strings"
	"testing"

	"calendarcanvas/internal/geom"
)

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.NRGBA
		ok   bool
	}{
		{"#fff", color.NRGBA{255, 255, 255, 255}, true},
		{"#1F2330", color.NRGBA{0x1f, 0x23, 0x30, 255}, true},
		{"#8C90A8CC", color.NRGBA{0x8c, 0x90, 0xa8, 0xcc}, true},
		{"#7064FF33", color.NRGBA{0x70, 0x64, 0xff, 0x33}, true},
		{"rgba(112, 100, 255, 0.16)", color.NRGBA{112, 100, 255, 41}, true},
		{"rgb(31,35,48)", color.NRGBA{31, 35, 48, 255}, true},
		{"transparent", color.NRGBA{}, true},
		{"#12", color.NRGBA{}, false},
		{"hsl(1,2,3)", color.NRGBA{}, false},
		{"rgba(1,2)", color.NRGBA{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseColor(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseColor(%q) = %v,%v want %v,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
	if c := Color("bogus", "#000000"); c != (color.NRGBA{A: 255}) {
		t.Fatalf("fallback color = %v", c)
	}
	if c := WithAlpha(color.NRGBA{R: 10, A: 255}, 0.5); c.A != 128 || c.R != 10 {
		t.Fatalf("WithAlpha = %v", c)
	}
}

func TestRecorderTracksTransformAndClip(t *testing.T) {
	r := NewRecorder(200, 200)
	r.Save()
	r.Scale(2, 2)
	r.Translate(10, 10)
	r.ClipRect(geom.R(0, 0, 20, 20))
	r.ClipRect(geom.R(10, 10, 40, 40))
	r.BeginPath()
	r.Rect(geom.R(0, 0, 5, 5))
	r.Fill()
	r.Restore()
	r.ClearRect(geom.R(0, 0, 5, 5))

	var clips []geom.Rect
	for _, op := range r.Ops() {
		if op.Name == "clip" {
			clips = append(clips, op.Rect)
		}
	}
	if len(clips) != 2 || clips[0] != geom.R(20, 20, 40, 40) || clips[1] != geom.R(40, 40, 20, 20) {
		t.Fatalf("unexpected clips %+v", clips)
	}
	ops := r.Ops()
	fill := ops[len(ops)-3]
	if fill.Name != "fill" || fill.Rect != geom.R(20, 20, 10, 10) {
		t.Fatalf("unexpected fill %+v", fill)
	}
	clear := ops[len(ops)-1]
	if clear.Name != "clear" || clear.Rect != geom.R(0, 0, 5, 5) || clear.Depth != 0 {
		t.Fatalf("transform not restored: %+v", clear)
	}
}

func TestRecorderTextAlignAndMeasure(t *testing.T) {
	r := NewRecorder(100, 100)
	r.SetFont(Font{Family: "PingFang SC", Size: 10})
	r.SetTextAlign(AlignCenter)
	if w := r.MeasureText("ab日"); math.Abs(w-22) > 1e-9 {
		t.Fatalf("measure = %v", w)
	}
	r.FillText("ab", 50, 10)
	if r.Measures() != 1 {
		t.Fatalf("FillText should not count as a client measure, got %d", r.Measures())
	}
	op := r.Ops()[0]
	if op.Text != "ab" || math.Abs(op.Pt.X-44) > 1e-9 {
		t.Fatalf("unexpected text op %+v", op)
	}
}

func TestArcApproximatesCircle(t *testing.T) {
	r := NewRecorder(100, 100)
	r.BeginPath()
	r.Arc(50, 50, 10, 0, 2*math.Pi)
	var cubic int
	for _, s := range r.Path() {
		if s.Kind == SegCubic {
			cubic++
			end := s.Pts[2]
			if d := math.Hypot(end.X-50, end.Y-50); math.Abs(d-10) > 1e-9 {
				t.Fatalf("arc point off circle: %v", d)
			}
		}
	}
	if cubic != 4 {
		t.Fatalf("expected 4 segments, got %d", cubic)
	}
}

func TestSVGDocument(t *testing.T) {
	s := NewSVG(100, 50, nil)
	s.Save()
	s.ClipRect(geom.R(0, 0, 50, 50))
	s.SetFillColor(color.NRGBA{R: 255, A: 128})
	s.BeginPath()
	s.Rect(geom.R(1, 2, 3, 4))
	s.Fill()
	s.SetStrokeColor(color.NRGBA{A: 255})
	s.SetDash(6, 6)
	s.Stroke()
	s.SetFillColor(color.NRGBA{A: 255})
	s.FillText("A&B", 10, 10)
	s.Restore()
	b, err := s.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	out := string(b)
	for _, want := range []string{
		`viewBox="0 0 100 50"`,
		`<clipPath id="c1">`,
		`d="M1 2L4 2L4 6L1 6Z" fill="#ff0000" fill-opacity="0.502"`,
		`stroke-dasharray="6 6"`,
		`>A&amp;B</text>`,
		"</g>\n</svg>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "<g ") != strings.Count(out, "</g>") {
		t.Fatalf("unbalanced groups:\n%s", out)
	}
}

func TestPDFOutput(t *testing.T) {
	p := NewPDF(300, 300, 300, nil)
	p.SetInfo("月历", "calendarcanvas")
	p.Save()
	p.ClipRect(geom.R(0, 0, 100, 100))
	p.SetFillColor(color.NRGBA{R: 200, A: 255})
	p.BeginPath()
	p.Arc(50, 50, 20, 0, 2*math.Pi)
	p.Fill()
	p.SetFont(Font{Family: "Go", Size: 20})
	p.Rotate(0.2)
	p.FillText("Hello", 10, 10)
	p.Restore()
	p.Resize(200, 100)
	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		t.Fatalf("output: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("not a pdf")
	}
}

func TestRasterFillsPixels(t *testing.T) {
	r := NewRaster(64, 64, RasterOptions{})
	defer r.Close()
	r.Scale(2, 2)
	r.SetFillColor(color.NRGBA{R: 255, A: 255})
	r.BeginPath()
	r.Rect(geom.R(4, 4, 16, 16))
	r.Fill()
	r.SetFont(Font{Size: 8})
	r.FillText("ok", 4, 30)
	if err := r.Err(); err != nil {
		t.Fatalf("raster error: %v", err)
	}
	cr, cg, _, _ := r.Image().At(20, 20).RGBA()
	if cr>>8 < 250 || cg>>8 > 5 {
		t.Fatalf("expected red pixel inside rect, got %v", r.Image().At(20, 20))
	}
	wr, wg, _, _ := r.Image().At(60, 2).RGBA()
	if wr>>8 < 250 || wg>>8 < 250 {
		t.Fatalf("expected white backdrop outside rect, got %v", r.Image().At(60, 2))
	}
	var png bytes.Buffer
	if err := r.EncodePNG(&png); err != nil || png.Len() == 0 {
		t.Fatalf("encode png: %v", err)
	}
}
