/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package geom

import "math"

const minScale = 0.0001

// Viewport maps document units to device pixels.
// Translation is expressed in document units and applied before scaling:
// device = (world + translate) * scale * dpr.
// Width and Height are the logical size of the drawing surface; zero means
// the surface keeps its current size.
type Viewport struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"tx"`
	TranslateY float64 `json:"ty"`
	DPR        float64 `json:"dpr"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
}

// DefaultViewport is the identity mapping at a device pixel ratio of 1.
func DefaultViewport() Viewport { return Viewport{Scale: 1, DPR: 1} }

func (v Viewport) factor() float64 {
	s := v.Scale
	if !finite(s) || s < minScale {
		s = minScale
	}
	d := v.DPR
	if !finite(d) || d < minScale {
		d = 1
	}
	return s * d
}

// WorldToScreen converts document coordinates to device pixels.
func (v Viewport) WorldToScreen(x, y float64) (float64, float64) {
	f := v.factor()
	return (x + v.TranslateX) * f, (y + v.TranslateY) * f
}

// ScreenToWorld is the inverse of WorldToScreen.
func (v Viewport) ScreenToWorld(sx, sy float64) (float64, float64) {
	f := v.factor()
	return sx/f - v.TranslateX, sy/f - v.TranslateY
}

// Matrix returns the affine transform from document space to device pixels.
func (v Viewport) Matrix() Affine {
	f := v.factor()
	return Scale(f, f).Mul(Translate(v.TranslateX, v.TranslateY))
}

// PixelSize is the device pixel size of the surface, at least 1x1.
func (v Viewport) PixelSize() (int, int) {
	d := v.DPR
	if !finite(d) || d < minScale {
		d = 1
	}
	w := int(math.Floor(v.Width * d))
	h := int(math.Floor(v.Height * d))
	return max(1, w), max(1, h)
}

// HairlineWidth is the document-space width of a line that stays visible
// at the current zoom.
func (v Viewport) HairlineWidth() float64 {
	s := v.Scale
	if !finite(s) || s < minScale {
		s = minScale
	}
	d := v.DPR
	if !finite(d) || d < minScale {
		d = 1
	}
	return math.Max(1/s, 1/d)
}

// Fit returns a viewport that fits a page of pw x ph into a surface of
// w x h logical pixels and centers it.
func Fit(w, h, pw, ph, dpr float64) Viewport {
	if pw <= 0 || ph <= 0 || w <= 0 || h <= 0 {
		return Viewport{Scale: 1, DPR: dpr, Width: w, Height: h}
	}
	scale := math.Min(w/pw, h/ph)
	return Viewport{
		Scale:      scale,
		TranslateX: (w/scale - pw) / 2,
		TranslateY: (h/scale - ph) / 2,
		DPR:        dpr,
		Width:      w,
		Height:     h,
	}
}
