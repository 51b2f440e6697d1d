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
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"

	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/textlayout"
)

// PDF draws into a gofpdf document, one surface page per PDF page. Device
// pixels are mapped to points by PointsPerPixel, so a page drawn at 300 DPI
// keeps its physical size.
type PDF struct {
	base
	pdf      *gofpdf.Fpdf
	lib      *textlayout.FontLibrary
	fonts    map[string]bool
	ptPerPx  float64
	backdrop color.NRGBA
}

// NewPDF starts a document whose first page is w x h device pixels. dpi maps
// pixels to points (72 means 1:1).
func NewPDF(w, h int, dpi float64, fonts *textlayout.FontLibrary) *PDF {
	if fonts == nil {
		fonts = textlayout.NewGoLibrary()
	}
	if dpi <= 0 {
		dpi = 72
	}
	p := &PDF{
		base:     newBase(w, h, textlayout.NewMeasurer(textlayout.OTProvider{Lib: fonts})),
		lib:      fonts,
		fonts:    map[string]bool{},
		ptPerPx:  72 / dpi,
		backdrop: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
	p.pdf = gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: p.pt(float64(p.w)), Ht: p.pt(float64(p.h))},
	})
	p.pdf.SetAutoPageBreak(false, 0)
	p.pdf.SetMargins(0, 0, 0)
	p.pdf.AddPage()
	return p
}

// SetInfo sets the document title and author.
func (p *PDF) SetInfo(title, author string) {
	p.pdf.SetTitle(title, true)
	p.pdf.SetAuthor(author, true)
}

func (p *PDF) pt(v float64) float64 { return v * p.ptPerPx }

// Resize starts a new page with the given pixel size.
func (p *PDF) Resize(w, h int) {
	for len(p.stack) > 0 {
		p.Restore()
	}
	p.resize(w, h)
	p.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: p.pt(float64(p.w)), Ht: p.pt(float64(p.h))})
}

func (p *PDF) Restore() {
	n, ok := p.restore()
	if !ok {
		return
	}
	for i := 0; i < n; i++ {
		p.pdf.ClipEnd()
	}
}

func (p *PDF) ClipRect(r geom.Rect) {
	d := p.clipTo(r)
	p.pdf.ClipRect(p.pt(d.X), p.pt(d.Y), p.pt(d.W), p.pt(d.H), false)
}

func (p *PDF) ClearRect(r geom.Rect) {
	d := p.deviceRect(r)
	p.setFill(p.backdrop)
	p.pdf.Rect(p.pt(d.X), p.pt(d.Y), p.pt(d.W), p.pt(d.H), "F")
	p.pdf.SetAlpha(1, "Normal")
}

func (p *PDF) setFill(c color.NRGBA) {
	p.pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
	p.pdf.SetAlpha(float64(c.A)/255, "Normal")
}

func (p *PDF) setDraw(c color.NRGBA) {
	p.pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
	p.pdf.SetAlpha(float64(c.A)/255, "Normal")
}

func (p *PDF) emitPath() {
	for _, s := range p.path {
		q := s.Pts
		switch s.Kind {
		case SegMove:
			p.pdf.MoveTo(p.pt(q[0].X), p.pt(q[0].Y))
		case SegLine:
			p.pdf.LineTo(p.pt(q[0].X), p.pt(q[0].Y))
		case SegQuad:
			p.pdf.CurveTo(p.pt(q[0].X), p.pt(q[0].Y), p.pt(q[1].X), p.pt(q[1].Y))
		case SegCubic:
			p.pdf.CurveBezierCubicTo(p.pt(q[0].X), p.pt(q[0].Y), p.pt(q[1].X), p.pt(q[1].Y), p.pt(q[2].X), p.pt(q[2].Y))
		case SegClose:
			p.pdf.ClosePath()
		}
	}
}

func (p *PDF) Fill() {
	if len(p.path) == 0 || p.st.fill.A == 0 {
		return
	}
	p.setFill(p.st.fill)
	p.emitPath()
	p.pdf.DrawPath("F")
	p.pdf.SetAlpha(1, "Normal")
}

func (p *PDF) Stroke() {
	if len(p.path) == 0 || p.st.stroke.A == 0 {
		return
	}
	p.setDraw(p.st.stroke)
	p.pdf.SetLineWidth(p.pt(p.deviceLineWidth()))
	dash := p.deviceDash()
	for i := range dash {
		dash[i] = p.pt(dash[i])
	}
	p.pdf.SetDashPattern(dash, 0)
	p.emitPath()
	p.pdf.DrawPath("D")
	p.pdf.SetDashPattern(nil, 0)
	p.pdf.SetAlpha(1, "Normal")
}

// useFont registers the face data with gofpdf once per family/weight and
// selects it.
func (p *PDF) useFont(f Font, sizePt float64) bool {
	name := fmt.Sprintf("%s-%d", f.Family, f.Weight)
	if !p.fonts[name] {
		data, ok := p.lib.Data(f.spec())
		if !ok {
			return false
		}
		p.pdf.AddUTF8FontFromBytes(name, "", data)
		if p.pdf.Err() {
			return false
		}
		p.fonts[name] = true
	}
	p.pdf.SetFont(name, "", sizePt)
	return true
}

func (p *PDF) FillText(s string, x, y float64) {
	if s == "" || p.st.fill.A == 0 {
		return
	}
	at, size, angle := p.textAnchor(s, x, y)
	if !p.useFont(p.st.font, p.pt(size)) {
		return
	}
	p.setFill(p.st.fill)
	p.pdf.SetTextColor(int(p.st.fill.R), int(p.st.fill.G), int(p.st.fill.B))
	deg := angle * 180 / math.Pi
	if math.Abs(deg) > 1e-6 {
		p.pdf.TransformBegin()
		p.pdf.TransformRotate(-deg, p.pt(at.X), p.pt(at.Y))
		p.pdf.Text(p.pt(at.X), p.pt(at.Y), s)
		p.pdf.TransformEnd()
	} else {
		p.pdf.Text(p.pt(at.X), p.pt(at.Y), s)
	}
	p.pdf.SetAlpha(1, "Normal")
}

// Output finishes the document and writes it to w.
func (p *PDF) Output(w io.Writer) error {
	for len(p.stack) > 0 {
		p.Restore()
	}
	if err := p.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

var _ Surface = (*PDF)(nil)
