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

import "testing"

func TestComputeSmartGuides_SnapToPageEdges(t *testing.T) {
	page := Rect{X: 0, Y: 0, W: 200, H: 100}
	moving := Rect{X: 3, Y: 4, W: 80, H: 40}
	opts := SnapOptions{Threshold: 6, SnapToEdges: true}

	snapped, guides := ComputeSmartGuides(moving, []Anchor{{Rect: page, Weight: 1}}, opts)
	if snapped.X != 0 || snapped.Y != 0 {
		t.Fatalf("expected snap to 0,0, got %+v", snapped)
	}
	var vOK, hOK bool
	for _, g := range guides {
		if g.Orientation == Vertical && g.Position == 0 {
			vOK = true
		}
		if g.Orientation == Horizontal && g.Position == 0 {
			hOK = true
		}
	}
	if !vOK || !hOK {
		t.Fatalf("expected guides at x=0 (%v) and y=0 (%v)", vOK, hOK)
	}
}

func TestComputeSmartGuides_SnapToCenters(t *testing.T) {
	page := Rect{X: 0, Y: 0, W: 200, H: 100}
	moving := Rect{X: 48, Y: 17, W: 100, H: 60}
	opts := SnapOptions{Threshold: 5, SnapToCenters: true}

	snapped, guides := ComputeSmartGuides(moving, []Anchor{{Rect: page, Weight: 1}}, opts)
	if snapped.X != 50 || snapped.Y != 20 {
		t.Fatalf("expected centered rect, got %+v", snapped)
	}
	if len(guides) != 2 {
		t.Fatalf("expected two center guides, got %d", len(guides))
	}
	for _, g := range guides {
		if g.Kind != "center" {
			t.Fatalf("unexpected guide kind %q", g.Kind)
		}
	}
}

func TestComputeSmartGuides_ThresholdPreventsSnap(t *testing.T) {
	page := Rect{X: 0, Y: 0, W: 200, H: 100}
	moving := Rect{X: 10, Y: 10, W: 50, H: 20}

	snapped, guides := ComputeSmartGuides(moving, []Anchor{{Rect: page, Weight: 1}}, SnapOptions{Threshold: 5, SnapToEdges: true})
	if snapped != moving {
		t.Fatalf("expected no snapping when outside threshold; got %+v", snapped)
	}
	if len(guides) != 0 {
		t.Fatalf("expected no guides when no snap")
	}
}

func TestComputeSmartGuides_PicksClosestAxisIndependently(t *testing.T) {
	anchors := []Anchor{
		{Rect: Rect{X: 0, Y: 0, W: 100, H: 100}, Weight: 1},
		{Rect: Rect{X: 300, Y: 0, W: 100, H: 100}, Weight: 1},
	}
	moving := Rect{X: 2, Y: 97, W: 80, H: 80}

	snapped, _ := ComputeSmartGuides(moving, anchors, SnapOptions{Threshold: 5, SnapToEdges: true})
	if snapped.X != 0 {
		t.Fatalf("expected X snapped to 0, got %v", snapped.X)
	}
	if snapped.Y != 100 {
		t.Fatalf("expected Y snapped to 100, got %v", snapped.Y)
	}
}
