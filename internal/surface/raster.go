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
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"calendarcanvas/internal/geom"
	"calendarcanvas/internal/textlayout"
)

// Raster paints into a gogpu/gg pixel buffer. Paths are handed to gg in
// device space with an identity matrix. Text is drawn unrotated at the
// transformed anchor and skipped when the anchor falls outside the clip.
type Raster struct {
	base
	ctx      *gg.Context
	lib      *textlayout.FontLibrary
	backdrop color.NRGBA
	err      error

	mu      sync.Mutex
	sources map[string]*text.FontSource
	faces   map[faceID]text.Face
}

type faceID struct {
	key  string
	size float64
}

// RasterOptions configures a Raster surface.
type RasterOptions struct {
	// Fonts resolves faces; nil uses the bundled Go font.
	Fonts *textlayout.FontLibrary
	// Backdrop is what ClearRect paints; zero means opaque white.
	Backdrop color.NRGBA
}

// NewRaster creates a w x h pixel surface.
func NewRaster(w, h int, opt RasterOptions) *Raster {
	lib := opt.Fonts
	if lib == nil {
		lib = textlayout.NewGoLibrary()
	}
	bd := opt.Backdrop
	if bd == (color.NRGBA{}) {
		bd = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	r := &Raster{
		base:     newBase(w, h, textlayout.NewMeasurer(textlayout.OTProvider{Lib: lib})),
		lib:      lib,
		backdrop: bd,
		sources:  map[string]*text.FontSource{},
		faces:    map[faceID]text.Face{},
	}
	r.ctx = gg.NewContext(r.w, r.h)
	r.ctx.ClearWithColor(gg.FromColor(bd))
	return r
}

// Err returns the first drawing error since the last Resize.
func (r *Raster) Err() error { return r.err }

func (r *Raster) record(err error) {
	if err != nil && r.err == nil {
		r.err = err
	}
}

func (r *Raster) Resize(w, h int) {
	if w == r.w && h == r.h {
		return
	}
	r.resize(w, h)
	r.err = nil
	r.record(r.ctx.Resize(r.w, r.h))
	r.ctx.ClearWithColor(gg.FromColor(r.backdrop))
}

func (r *Raster) Save() {
	r.base.Save()
	r.ctx.Push()
}

func (r *Raster) Restore() {
	if _, ok := r.restore(); ok {
		r.ctx.Pop()
	}
}

func (r *Raster) ClipRect(rect geom.Rect) {
	d := r.clipTo(rect)
	r.ctx.ClipRect(d.X, d.Y, d.W, d.H)
}

func (r *Raster) ClearRect(rect geom.Rect) {
	d := r.deviceRect(rect)
	r.ctx.ClearPath()
	r.ctx.DrawRectangle(d.X, d.Y, d.W, d.H)
	r.ctx.SetColor(r.backdrop)
	r.record(r.ctx.Fill())
}

func (r *Raster) emitPath() {
	r.ctx.ClearPath()
	for _, s := range r.path {
		switch s.Kind {
		case SegMove:
			r.ctx.MoveTo(s.Pts[0].X, s.Pts[0].Y)
		case SegLine:
			r.ctx.LineTo(s.Pts[0].X, s.Pts[0].Y)
		case SegQuad:
			r.ctx.QuadraticTo(s.Pts[0].X, s.Pts[0].Y, s.Pts[1].X, s.Pts[1].Y)
		case SegCubic:
			r.ctx.CubicTo(s.Pts[0].X, s.Pts[0].Y, s.Pts[1].X, s.Pts[1].Y, s.Pts[2].X, s.Pts[2].Y)
		case SegClose:
			r.ctx.ClosePath()
		}
	}
}

func (r *Raster) Fill() {
	if len(r.path) == 0 || r.st.fill.A == 0 {
		return
	}
	r.emitPath()
	r.ctx.SetColor(r.st.fill)
	r.record(r.ctx.Fill())
}

func (r *Raster) Stroke() {
	if len(r.path) == 0 || r.st.stroke.A == 0 {
		return
	}
	r.emitPath()
	r.ctx.SetColor(r.st.stroke)
	r.ctx.SetLineWidth(r.deviceLineWidth())
	r.ctx.SetDash(r.deviceDash()...)
	r.record(r.ctx.Stroke())
}

func (r *Raster) face(f Font, size float64) (text.Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%s|%d", f.Family, f.Weight)
	id := faceID{key: key, size: size}
	if face, ok := r.faces[id]; ok {
		return face, nil
	}
	src, ok := r.sources[key]
	if !ok {
		data, found := r.lib.Data(f.spec())
		if !found {
			return nil, errors.New("no font data for " + f.String())
		}
		var err error
		src, err = text.NewFontSource(data)
		if err != nil {
			return nil, fmt.Errorf("load font %s: %w", f.Family, err)
		}
		r.sources[key] = src
	}
	face := src.Face(size)
	r.faces[id] = face
	return face, nil
}

func (r *Raster) FillText(s string, x, y float64) {
	if s == "" || r.st.fill.A == 0 {
		return
	}
	p, size, _ := r.textAnchor(s, x, y)
	if !r.visible(p) || size <= 0 {
		return
	}
	face, err := r.face(r.st.font, size)
	if err != nil {
		r.record(err)
		return
	}
	r.ctx.SetFont(face)
	r.ctx.SetColor(r.st.fill)
	r.ctx.DrawString(s, p.X, p.Y)
}

// Image returns the current pixels.
func (r *Raster) Image() image.Image { return r.ctx.Image() }

// EncodePNG writes the pixels as PNG.
func (r *Raster) EncodePNG(w io.Writer) error { return r.ctx.EncodePNG(w) }

// EncodeJPEG writes the pixels as JPEG at the given quality.
func (r *Raster) EncodeJPEG(w io.Writer, quality int) error { return r.ctx.EncodeJPEG(w, quality) }

// Close releases the gg context.
func (r *Raster) Close() error { return r.ctx.Close() }

var _ Surface = (*Raster)(nil)
