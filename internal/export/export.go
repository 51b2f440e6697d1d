/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export renders document pages to PNG, JPEG, SVG and PDF using the
// same renderer as the editor, so exported pages match what is on screen
// apart from selection and guides.
package export

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"calendarcanvas/internal/geom"
	applog "calendarcanvas/internal/log"
	"calendarcanvas/internal/render"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/surface"
	"calendarcanvas/internal/textlayout"
)

// Format is an output file format.
type Format string

const (
	FormatPNG Format = "png"
	FormatJPG Format = "jpg"
	FormatSVG Format = "svg"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts a format name in any case; "jpeg" is an alias of jpg.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPNG, FormatJPG, FormatSVG, FormatPDF:
		return f, nil
	case "jpeg":
		return FormatJPG, nil
	default:
		return "", fmt.Errorf("unknown format: %q", s)
	}
}

// Ext is the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// Watermark selects the mark drawn over the page.
type Watermark string

const (
	WatermarkNone Watermark = "none"
	WatermarkLogo Watermark = "logo"
	WatermarkText Watermark = "text"
)

const (
	MinDPI         = 72
	MaxBleed       = 20
	MinCustomSide  = 320
	MaxCustomSide  = 6000
	DefaultQuality = 90
	SizeCustom     = "custom"
	logoLabel      = "CalendarCanvas"
)

// DPIOptions are the resolutions offered in export dialogs.
var DPIOptions = []int{72, 150, 300, 450}

// SizePreset is a fixed output size in device pixels.
type SizePreset struct {
	Key    string
	Label  string
	Width  int
	Height int
}

// SizePresets lists the fixed output sizes. Custom takes Options.Width and
// Options.Height instead.
var SizePresets = []SizePreset{
	{Key: "mobile-916", Label: "Phone wallpaper 9:16", Width: 1080, Height: 1920},
	{Key: "square-1200", Label: "Square 1200", Width: 1200, Height: 1200},
	{Key: "print-a4", Label: "A4 300dpi", Width: 2480, Height: 3508},
	{Key: "print-a3", Label: "A3 300dpi", Width: 3508, Height: 4961},
}

func findSize(key string) (SizePreset, bool) {
	for _, p := range SizePresets {
		if p.Key == key {
			return p, true
		}
	}
	return SizePreset{}, false
}

var (
	ErrInvalidDPI       = errors.New("dpi must be at least 72")
	ErrInvalidSize      = errors.New("invalid output size")
	ErrWatermarkText    = errors.New("text watermark needs text")
	ErrInvalidWatermark = errors.New("unknown watermark")
	ErrPageIndex        = errors.New("page index out of range")
)

// Options controls a single export. The zero value is not valid; start from
// DefaultOptions.
type Options struct {
	DPI int
	// Bleed is extra document units around the page, clamped to 0..20.
	Bleed         float64
	Watermark     Watermark
	WatermarkText string
	// Quality applies to JPEG only.
	Quality int
	// Size is a SizePresets key, SizeCustom, or empty for DPI based sizing.
	Size          string
	Width, Height int
	// IncludeGuides draws the trim box when Bleed > 0.
	IncludeGuides bool
	Title         string
	Fonts         *textlayout.FontLibrary
	Logger        *slog.Logger
}

func DefaultOptions() Options {
	return Options{DPI: 150, Watermark: WatermarkNone, Quality: DefaultQuality}
}

// Validate checks the options and normalizes bleed and quality in place.
func (o *Options) Validate() error {
	if o.DPI < MinDPI {
		return fmt.Errorf("%w: %d", ErrInvalidDPI, o.DPI)
	}
	if math.IsNaN(o.Bleed) {
		o.Bleed = 0
	}
	o.Bleed = geom.Clamp(o.Bleed, 0, MaxBleed)
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	switch o.Watermark {
	case "", WatermarkNone, WatermarkLogo:
	case WatermarkText:
		if strings.TrimSpace(o.WatermarkText) == "" {
			return ErrWatermarkText
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidWatermark, o.Watermark)
	}
	switch o.Size {
	case "":
	case SizeCustom:
		if o.Width < MinCustomSide || o.Width > MaxCustomSide || o.Height < MinCustomSide || o.Height > MaxCustomSide {
			return fmt.Errorf("%w: custom %dx%d outside %d..%d", ErrInvalidSize, o.Width, o.Height, MinCustomSide, MaxCustomSide)
		}
	default:
		if _, ok := findSize(o.Size); !ok {
			return fmt.Errorf("%w: unknown preset %q", ErrInvalidSize, o.Size)
		}
	}
	return nil
}

// Info describes a rendered page.
type Info struct {
	Width, Height int
	// Scale is device pixels per document unit.
	Scale float64
}

// Viewport maps a pw x ph page plus bleed onto the output pixels. Without a
// size preset the output is the page at DPI; with one the page is fitted and
// centered.
func (o Options) Viewport(pw, ph float64) geom.Viewport {
	b := o.Bleed
	fw, fh := pw+2*b, ph+2*b
	w, h, fixed := o.outputSize()
	if !fixed {
		s := float64(o.DPI) / 72
		return geom.Viewport{
			Scale:      s,
			TranslateX: b,
			TranslateY: b,
			DPR:        1,
			Width:      math.Max(1, math.Round(fw*s)),
			Height:     math.Max(1, math.Round(fh*s)),
		}
	}
	vp := geom.Fit(float64(w), float64(h), fw, fh, 1)
	vp.TranslateX += b
	vp.TranslateY += b
	return vp
}

func (o Options) outputSize() (int, int, bool) {
	if o.Size == SizeCustom {
		return o.Width, o.Height, true
	}
	if p, ok := findSize(o.Size); ok {
		return p.Width, p.Height, true
	}
	return 0, 0, false
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return applog.WithComponent("export")
}

func pageAt(sc *scene.Scene, i int) (*scene.Page, error) {
	if sc == nil || sc.Project == nil || i < 0 || i >= len(sc.Project.Pages) || sc.Project.Pages[i] == nil {
		return nil, fmt.Errorf("%w: %d", ErrPageIndex, i)
	}
	return sc.Project.Pages[i], nil
}

// ExportPage renders page pageIndex of sc in the given format and writes the
// encoded file to w.
func ExportPage(w io.Writer, sc *scene.Scene, pageIndex int, format Format, opt Options) (Info, error) {
	if err := opt.Validate(); err != nil {
		return Info{}, err
	}
	page, err := pageAt(sc, pageIndex)
	if err != nil {
		return Info{}, err
	}
	vp := opt.Viewport(scene.PageSize(page))
	pxW, pxH := vp.PixelSize()
	info := Info{Width: pxW, Height: pxH, Scale: vp.Scale}

	switch format {
	case FormatPNG, FormatJPG:
		r := surface.NewRaster(pxW, pxH, surface.RasterOptions{Fonts: opt.Fonts})
		defer func() { _ = r.Close() }()
		drawPage(r, sc, pageIndex, vp, opt)
		if err := r.Err(); err != nil {
			return info, fmt.Errorf("rasterize page %d: %w", pageIndex+1, err)
		}
		if format == FormatJPG {
			err = r.EncodeJPEG(w, opt.Quality)
		} else {
			err = r.EncodePNG(w)
		}
		if err != nil {
			return info, fmt.Errorf("encode %s: %w", format, err)
		}
	case FormatSVG:
		s := surface.NewSVG(pxW, pxH, opt.Fonts)
		drawPage(s, sc, pageIndex, vp, opt)
		if _, err := s.WriteTo(w); err != nil {
			return info, fmt.Errorf("write svg: %w", err)
		}
	case FormatPDF:
		if _, err := ExportPDF(w, sc, []int{pageIndex}, opt); err != nil {
			return info, err
		}
	default:
		return info, fmt.Errorf("unknown format: %q", format)
	}
	opt.logger().Debug("page exported",
		slog.Int("page", pageIndex+1), slog.String("format", string(format)),
		slog.Int("w", pxW), slog.Int("h", pxH))
	return info, nil
}

// ExportPDF writes one PDF with a page per entry of pages; nil means all pages.
func ExportPDF(w io.Writer, sc *scene.Scene, pages []int, opt Options) ([]Info, error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	if pages == nil && sc != nil && sc.Project != nil {
		for i := range sc.Project.Pages {
			pages = append(pages, i)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrPageIndex)
	}
	var (
		doc   *surface.PDF
		infos []Info
	)
	for n, idx := range pages {
		page, err := pageAt(sc, idx)
		if err != nil {
			return nil, err
		}
		vp := opt.Viewport(scene.PageSize(page))
		pxW, pxH := vp.PixelSize()
		if n == 0 {
			doc = surface.NewPDF(pxW, pxH, float64(opt.DPI), opt.Fonts)
			title := opt.Title
			if title == "" && sc.Project != nil {
				title = sc.Project.Title
			}
			doc.SetInfo(title, logoLabel)
		} else {
			doc.Resize(pxW, pxH)
		}
		drawPage(doc, sc, idx, vp, opt)
		infos = append(infos, Info{Width: pxW, Height: pxH, Scale: vp.Scale})
	}
	if err := doc.Output(w); err != nil {
		return nil, err
	}
	return infos, nil
}

// drawPage paints one page into s. The renderer works on a shallow copy of
// the scene with its active page switched, so sc itself is left alone.
func drawPage(s surface.Surface, sc *scene.Scene, pageIndex int, vp geom.Viewport, opt Options) {
	w, h := s.Size()
	s.Save()
	s.SetTransform(geom.Identity)
	s.ClearRect(geom.R(0, 0, float64(w), float64(h)))
	s.Restore()

	view := *sc
	view.ActivePageIndex = pageIndex
	r := render.New(render.WithLogger(opt.logger()))
	r.SetScene(&view)
	r.SetViewport(vp)
	r.Attach(s)
	r.Render()

	page := sc.Project.Pages[pageIndex]
	pw, ph := scene.PageSize(page)
	s.Save()
	s.SetTransform(vp.Matrix())
	if opt.IncludeGuides && opt.Bleed > 0 {
		drawTrimBox(s, pw, ph, vp)
	}
	switch opt.Watermark {
	case WatermarkText:
		drawTextMark(s, opt.WatermarkText, pw, ph)
	case WatermarkLogo:
		drawLogoMark(s, pw, ph)
	}
	s.Restore()
}

var (
	guideColor = surface.Color("#00B7EB", "#00B7EB")
	markColor  = surface.Color("#1F2330", "#000000")
)

func drawTrimBox(s surface.Surface, pw, ph float64, vp geom.Viewport) {
	s.SetStrokeColor(guideColor)
	s.SetLineWidth(vp.HairlineWidth())
	s.SetDash(4, 3)
	s.BeginPath()
	s.Rect(geom.R(0, 0, pw, ph))
	s.Stroke()
	s.SetDash()
}

// drawTextMark puts the text in the bottom right corner at reduced opacity.
func drawTextMark(s surface.Surface, text string, pw, ph float64) {
	size := math.Max(12, math.Min(pw, ph)*0.03)
	margin := size
	s.SetFont(surface.Font{Family: "sans-serif", Size: size, Weight: 600})
	s.SetTextAlign(surface.AlignRight)
	s.SetTextBaseline(surface.BaselineAlphabetic)
	s.SetFillColor(surface.WithAlpha(markColor, 0.35))
	s.FillText(strings.TrimSpace(text), pw-margin, ph-margin)
}

// drawLogoMark draws a small badge with the product name.
func drawLogoMark(s surface.Surface, pw, ph float64) {
	size := math.Max(10, math.Min(pw, ph)*0.022)
	s.SetFont(surface.Font{Family: "sans-serif", Size: size, Weight: 700})
	tw := s.MeasureText(logoLabel)
	pad := size * 0.6
	box := geom.R(pw-tw-2*pad-size, ph-size*2.6, tw+2*pad, size+2*pad)
	s.SetFillColor(surface.WithAlpha(markColor, 0.55))
	s.BeginPath()
	s.Rect(box)
	s.Fill()
	s.SetFillColor(surface.Color("#FFFFFF", "#FFFFFF"))
	s.SetTextAlign(surface.AlignCenter)
	s.SetTextBaseline(surface.BaselineMiddle)
	s.FillText(logoLabel, box.X+box.W/2, box.Y+box.H/2)
}
