/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import "slices"

// Walk visits layers depth first in paint order with their parent (nil at
// the top level). Returning false stops the walk.
func Walk(layers []*Layer, fn func(l, parent *Layer) bool) bool {
	return walk(layers, nil, fn)
}

func walk(layers []*Layer, parent *Layer, fn func(l, parent *Layer) bool) bool {
	for _, l := range layers {
		if !fn(l, parent) {
			return false
		}
		if l != nil && len(l.Children) > 0 && !walk(l.Children, l, fn) {
			return false
		}
	}
	return true
}

// Flatten lists all layers depth first in paint order.
func Flatten(layers []*Layer) []*Layer {
	var out []*Layer
	Walk(layers, func(l, _ *Layer) bool {
		out = append(out, l)
		return true
	})
	return out
}

// LayerIDs returns the ids of Flatten(layers).
func LayerIDs(layers []*Layer) []string {
	var out []string
	Walk(layers, func(l, _ *Layer) bool {
		out = append(out, l.ID)
		return true
	})
	return out
}

// FindLayer returns the layer with id anywhere in the page tree.
func FindLayer(p *Page, id string) *Layer {
	var found *Layer
	Walk(p.Layers, func(l, _ *Layer) bool {
		if l.ID == id {
			found = l
			return false
		}
		return true
	})
	return found
}

// Location identifies where a layer sits: its parent (nil for the page) and
// index within the parent's list.
type Location struct {
	Parent *Layer
	Index  int
}

// Locate finds the location of a layer.
func Locate(p *Page, id string) (Location, bool) {
	if i := slices.IndexFunc(p.Layers, func(l *Layer) bool { return l.ID == id }); i >= 0 {
		return Location{Index: i}, true
	}
	var loc Location
	ok := false
	Walk(p.Layers, func(l, _ *Layer) bool {
		if i := slices.IndexFunc(l.Children, func(c *Layer) bool { return c.ID == id }); i >= 0 {
			loc, ok = Location{Parent: l, Index: i}, true
			return false
		}
		return true
	})
	return loc, ok
}

func (p *Page) list(parent *Layer) *[]*Layer {
	if parent == nil {
		return &p.Layers
	}
	return &parent.Children
}

// RemoveLayer detaches the layer with id and reports where it was.
func RemoveLayer(p *Page, id string) (*Layer, Location, bool) {
	loc, ok := Locate(p, id)
	if !ok {
		return nil, Location{}, false
	}
	list := p.list(loc.Parent)
	l := (*list)[loc.Index]
	*list = slices.Delete(*list, loc.Index, loc.Index+1)
	return l, loc, true
}

// InsertLayer inserts l at loc. The index is clamped to the list; a parent
// no longer in the page falls back to the top level.
func InsertLayer(p *Page, l *Layer, loc Location) {
	if loc.Parent != nil && FindLayer(p, loc.Parent.ID) != loc.Parent {
		loc = Location{Index: len(p.Layers)}
	}
	list := p.list(loc.Parent)
	i := min(max(loc.Index, 0), len(*list))
	*list = slices.Insert(*list, i, l)
}

// ReorderLayer moves a top-level layer to target, clamped to the list.
func ReorderLayer(p *Page, id string, target int) bool {
	i := slices.IndexFunc(p.Layers, func(l *Layer) bool { return l.ID == id })
	if i < 0 {
		return false
	}
	l := p.Layers[i]
	p.Layers = slices.Delete(p.Layers, i, i+1)
	target = min(max(target, 0), len(p.Layers))
	p.Layers = slices.Insert(p.Layers, target, l)
	return true
}

// TopLevelIDs returns the ids of the page's top-level layers in order.
func TopLevelIDs(p *Page) []string {
	out := make([]string, len(p.Layers))
	for i, l := range p.Layers {
		out[i] = l.ID
	}
	return out
}

// OrderByIDs rearranges the top-level layers to follow ids. Layers not named
// keep their relative order after the named ones.
func OrderByIDs(p *Page, ids []string) {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	slices.SortStableFunc(p.Layers, func(a, b *Layer) int {
		pa, oka := pos[a.ID]
		pb, okb := pos[b.ID]
		switch {
		case oka && okb:
			return pa - pb
		case oka:
			return -1
		case okb:
			return 1
		}
		return 0
	})
}
