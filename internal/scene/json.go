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

import (
	"encoding/json"
	"fmt"

	"calendarcanvas/internal/geom"
)

type layerJSON struct {
	ID       string          `json:"id"`
	Type     Kind            `json:"type"`
	Name     string          `json:"name,omitempty"`
	Frame    geom.Rect       `json:"frame"`
	Rotate   float64         `json:"rotate,omitempty"`
	Hidden   bool            `json:"hidden,omitempty"`
	Locked   bool            `json:"locked,omitempty"`
	Props    json.RawMessage `json:"props,omitempty"`
	Children []*Layer        `json:"children,omitempty"`
}

func (l *Layer) MarshalJSON() ([]byte, error) {
	out := layerJSON{
		ID:       l.ID,
		Type:     l.Type,
		Name:     l.Name,
		Frame:    l.Frame,
		Rotate:   l.Rotate,
		Hidden:   l.Hidden,
		Locked:   l.Locked,
		Children: l.Children,
	}
	if l.Props != nil {
		raw, err := json.Marshal(l.Props)
		if err != nil {
			return nil, fmt.Errorf("layer %s props: %w", l.ID, err)
		}
		out.Props = raw
	}
	return json.Marshal(out)
}

func (l *Layer) UnmarshalJSON(data []byte) error {
	var in layerJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	props, err := DecodeProps(in.Type, in.Props)
	if err != nil {
		return fmt.Errorf("layer %s: %w", in.ID, err)
	}
	*l = Layer{
		ID:       in.ID,
		Type:     in.Type,
		Name:     in.Name,
		Frame:    in.Frame,
		Rotate:   in.Rotate,
		Hidden:   in.Hidden,
		Locked:   in.Locked,
		Props:    props,
		Children: in.Children,
	}
	return nil
}

// Marshal encodes a scene as indented JSON.
func Marshal(s *Scene) ([]byte, error) {
	if s == nil || s.Project == nil {
		return nil, fmt.Errorf("%w: no project", ErrInvalidScene)
	}
	return json.MarshalIndent(s, "", "  ")
}

// Unmarshal decodes a scene and checks its structure. Pages with invalid
// sizes or frames are accepted and healed at render time.
func Unmarshal(data []byte) (*Scene, error) {
	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	if err := Check(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Check verifies the invariants a document must hold to be edited: a
// project with at least one page, no nil entries and page-unique layer ids.
func Check(s *Scene) error {
	if s == nil || s.Project == nil {
		return fmt.Errorf("%w: missing project", ErrInvalidScene)
	}
	if len(s.Project.Pages) == 0 {
		return fmt.Errorf("%w: project has no pages", ErrInvalidScene)
	}
	for i, p := range s.Project.Pages {
		if p == nil {
			return fmt.Errorf("%w: page %d is null", ErrInvalidScene, i)
		}
		seen := map[string]bool{}
		var bad error
		Walk(p.Layers, func(l, _ *Layer) bool {
			switch {
			case l == nil:
				bad = fmt.Errorf("%w: page %s has a null layer", ErrInvalidScene, p.ID)
			case seen[l.ID]:
				bad = fmt.Errorf("%w: page %s: duplicate layer id %q", ErrInvalidScene, p.ID, l.ID)
			}
			if bad != nil {
				return false
			}
			seen[l.ID] = true
			return true
		})
		if bad != nil {
			return bad
		}
	}
	return nil
}
