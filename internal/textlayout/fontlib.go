/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFamily is the family name the bundled Go font is registered under.
const DefaultFamily = "Go"

// FontLibrary stores loaded OpenType fonts mapped by family/weight and keeps
// sized faces around. Safe for concurrent use.
type FontLibrary struct {
	mu    sync.Mutex
	fonts map[fontKey]*loadedFont
	faces map[faceKey]font.Face
}

type fontKey struct {
	family string
	weight int
}

type faceKey struct {
	fontKey
	size float64
	dpi  float64
}

type loadedFont struct {
	font *opentype.Font
	data []byte
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{fonts: make(map[fontKey]*loadedFont), faces: make(map[faceKey]font.Face)}
}

// NewGoLibrary returns a library with the Go regular font registered as the
// default family at weight 400.
func NewGoLibrary() *FontLibrary {
	fl := NewFontLibrary()
	if err := fl.LoadBytes(DefaultFamily, 400, goregular.TTF); err != nil {
		panic(err) // bundled font always parses
	}
	return fl
}

// LoadTTF loads a font file into the library under the given family/weight.
func (fl *FontLibrary) LoadTTF(family string, weight int, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	if err := fl.LoadBytes(family, weight, data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadBytes parses data and registers it.
func (fl *FontLibrary) LoadBytes(family string, weight int, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*loadedFont)
	}
	fl.fonts[fontKey{family: family, weight: weight}] = &loadedFont{font: f, data: data}
	return nil
}

// Data returns the raw font file that Resolve would use for spec.
func (fl *FontLibrary) Data(spec FontSpec) ([]byte, bool) {
	if fl == nil {
		return nil, false
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	_, lf := fl.find(spec)
	if lf == nil {
		return nil, false
	}
	return lf.data, true
}

// find must be called with mu held. Exact match first, then the same family
// at any weight, then the default family.
func (fl *FontLibrary) find(spec FontSpec) (fontKey, *loadedFont) {
	if fl == nil || fl.fonts == nil {
		return fontKey{}, nil
	}
	if spec.Weight == 0 {
		spec.Weight = 400
	}
	k := fontKey{family: spec.Family, weight: spec.Weight}
	if f, ok := fl.fonts[k]; ok {
		return k, f
	}
	for k, f := range fl.fonts {
		if k.family == spec.Family {
			return k, f
		}
	}
	for k, f := range fl.fonts {
		if k.family == DefaultFamily {
			return k, f
		}
	}
	return fontKey{}, nil
}

func (fl *FontLibrary) face(spec FontSpec, dpi float64) font.Face {
	if fl == nil {
		return nil
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	k, lf := fl.find(spec)
	if lf == nil {
		return nil
	}
	fk := faceKey{fontKey: k, size: spec.Size, dpi: dpi}
	if f, ok := fl.faces[fk]; ok {
		return f
	}
	f, err := opentype.NewFace(lf.font, &opentype.FaceOptions{Size: spec.Size, DPI: dpi, Hinting: font.HintingFull})
	if err != nil {
		return nil
	}
	if fl.faces == nil {
		fl.faces = make(map[faceKey]font.Face)
	}
	fl.faces[fk] = f
	return f
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another Provider.
// Sizes are pixels, so the default DPI of 72 maps one point to one pixel.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.Size <= 0 {
		spec.Size = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if face := p.Lib.face(spec, dpi); face != nil {
		return face, metricsOf(face)
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
