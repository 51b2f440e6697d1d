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

// Clone returns a deep copy of the scene.
func (s *Scene) Clone() *Scene {
	if s == nil {
		return nil
	}
	return &Scene{Project: s.Project.Clone(), ActivePageIndex: s.ActivePageIndex}
}

// Clone returns a deep copy of the project and its pages.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	if p.Pages != nil {
		c.Pages = make([]*Page, len(p.Pages))
		for i, pg := range p.Pages {
			c.Pages[i] = pg.Clone()
		}
	}
	return &c
}

// Clone returns a deep copy of the page and its layers.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := *p
	c.Layers = cloneLayers(p.Layers)
	return &c
}

// Clone returns a deep copy of the layer subtree.
func (l *Layer) Clone() *Layer {
	if l == nil {
		return nil
	}
	c := *l
	if l.Props != nil {
		c.Props = l.Props.Clone()
	}
	c.Children = cloneLayers(l.Children)
	return &c
}

func cloneLayers(in []*Layer) []*Layer {
	if in == nil {
		return nil
	}
	out := make([]*Layer, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}
