/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package scene defines the document tree edited by the engine:
// project, pages and layers with their kind specific properties.
package scene

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"calendarcanvas/internal/geom"
)

// ErrInvalidScene reports a structurally broken document.
var ErrInvalidScene = errors.New("scene: invalid scene")

// Default page size in document units.
const (
	DefaultPageWidth  = 750
	DefaultPageHeight = 1334
)

// Scene is the root of an open document.
type Scene struct {
	Project         *Project `json:"project"`
	ActivePageIndex int      `json:"activePageIndex"`
}

// Project owns the pages of a document. Timestamps are unix milliseconds.
type Project struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Pages     []*Page `json:"pages"`
	CreatedAt int64   `json:"createdAt"`
	UpdatedAt int64   `json:"updatedAt"`
}

// Page is a fixed-size canvas holding an ordered layer list, bottom first.
type Page struct {
	ID     string   `json:"id"`
	Name   string   `json:"name,omitempty"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Layers []*Layer `json:"layers"`
}

// Layer is one visual element on a page. Props always matches Type for the
// built-in kinds; unknown kinds carry a *GenericProps bag.
type Layer struct {
	ID       string
	Type     Kind
	Name     string
	Frame    geom.Rect
	Rotate   float64
	Hidden   bool
	Locked   bool
	Props    Props
	Children []*Layer
}

// Bounds returns the axis-aligned bounds of the rotated frame.
func (l *Layer) Bounds() geom.Rect { return geom.RotatedBounds(l.Frame, l.Rotate) }

// SubtreeBounds unions the bounds of l and all its descendants. Children
// are drawn at their own page-space frames, so they may lie outside l.
func (l *Layer) SubtreeBounds() geom.Rect {
	b := l.Bounds()
	Walk(l.Children, func(c, _ *Layer) bool {
		if c != nil {
			b = b.Union(c.Bounds())
		}
		return true
	})
	return b
}

// Interactive reports whether the layer can be hit or selected.
func (l *Layer) Interactive() bool { return !l.Hidden && !l.Locked }

// Bounds returns the page rectangle at the origin.
func (p *Page) Bounds() geom.Rect { return geom.R(0, 0, p.Width, p.Height) }

// IDGen produces ids with the given prefix.
type IDGen func(prefix string) string

// NewID returns prefix_ followed by 12 hex digits of a random UUID.
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + raw[:12]
}

// SequentialIDs returns a deterministic generator for tests and fixtures.
func SequentialIDs() IDGen {
	n := map[string]int{}
	return func(prefix string) string {
		n[prefix]++
		return prefix + "_" + strconv.Itoa(n[prefix])
	}
}

// NewScene creates a document with one empty page of the given size.
func NewScene(width, height float64, ids IDGen) *Scene {
	return NewSceneAt(width, height, ids, time.Now())
}

// NewSceneAt is NewScene with an explicit creation time.
func NewSceneAt(width, height float64, ids IDGen, now time.Time) *Scene {
	if ids == nil {
		ids = NewID
	}
	if width <= 0 || height <= 0 {
		width, height = DefaultPageWidth, DefaultPageHeight
	}
	ms := now.UnixMilli()
	return &Scene{
		Project: &Project{
			ID:        ids("p"),
			Title:     "Untitled",
			Pages:     []*Page{NewPage(ids("pg"), "页面 1", width, height)},
			CreatedAt: ms,
			UpdatedAt: ms,
		},
	}
}

// NewPage returns an empty page.
func NewPage(id, name string, width, height float64) *Page {
	return &Page{ID: id, Name: name, Width: width, Height: height, Layers: []*Layer{}}
}

// ActivePage returns the page at ActivePageIndex.
func (s *Scene) ActivePage() (*Page, bool) {
	if s == nil || s.Project == nil {
		return nil, false
	}
	if s.ActivePageIndex < 0 || s.ActivePageIndex >= len(s.Project.Pages) {
		return nil, false
	}
	p := s.Project.Pages[s.ActivePageIndex]
	return p, p != nil
}

// Touch bumps the project's UpdatedAt.
func (s *Scene) Touch(now time.Time) {
	if s != nil && s.Project != nil {
		s.Project.UpdatedAt = now.UnixMilli()
	}
}
