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

import (
	"math"
	"testing"
)

func TestViewportRoundTrip(t *testing.T) {
	v := Viewport{Scale: 0.5, TranslateX: 40, TranslateY: -12, DPR: 2}
	sx, sy := v.WorldToScreen(100, 200)
	if sx != 140 || sy != 188 {
		t.Fatalf("unexpected screen point %v,%v", sx, sy)
	}
	x, y := v.ScreenToWorld(sx, sy)
	if math.Abs(x-100) > 1e-9 || math.Abs(y-200) > 1e-9 {
		t.Fatalf("round trip failed: %v,%v", x, y)
	}
	p := v.Matrix().Apply(Pt{100, 200})
	if p.X != sx || p.Y != sy {
		t.Fatalf("matrix disagrees with WorldToScreen: %+v", p)
	}
}

func TestViewportClampsScale(t *testing.T) {
	v := Viewport{Scale: 0, DPR: 0}
	sx, _ := v.WorldToScreen(10000, 0)
	if math.Abs(sx-1) > 1e-9 {
		t.Fatalf("expected scale clamped to 0.0001 and dpr defaulted, got %v", sx)
	}
}

func TestViewportPixelSize(t *testing.T) {
	v := Viewport{Scale: 1, DPR: 1.5, Width: 101, Height: 0}
	w, h := v.PixelSize()
	if w != 151 || h != 1 {
		t.Fatalf("unexpected pixel size %dx%d", w, h)
	}
}

func TestFitCentersPage(t *testing.T) {
	v := Fit(1000, 1000, 750, 1334, 1)
	if math.Abs(v.Scale-1000.0/1334) > 1e-12 {
		t.Fatalf("unexpected scale %v", v.Scale)
	}
	x0, _ := v.WorldToScreen(0, 0)
	x1, _ := v.WorldToScreen(750, 0)
	if math.Abs((x0+x1)/2-500) > 1e-9 {
		t.Fatalf("page not centered horizontally: %v..%v", x0, x1)
	}
}
