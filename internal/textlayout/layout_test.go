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

import "testing"

// fixed advances: narrow runes 10, wide runes 20
func fixedAdvance(r rune) float64 {
	if Wide(r) {
		return 20
	}
	return 10
}

func texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func TestWrap(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		width   float64
		spacing float64
		want    []string
	}{
		{"no wrap", "hello world", 0, 0, []string{"hello world"}},
		{"spaces", "hello world foo", 60, 0, []string{"hello", "world", "foo"}},
		{"hard breaks", "a\n\nb", 100, 0, []string{"a", "", "b"}},
		{"cjk", "春节快乐吉祥", 60, 0, []string{"春节快", "乐吉祥"}},
		{"long word", "abcdefgh", 30, 0, []string{"abc", "def", "gh"}},
		{"spacing", "abcd", 35, 5, []string{"ab", "cd"}},
		{"mixed", "2024 新年", 60, 0, []string{"2024", "新年"}},
	}
	for _, tc := range cases {
		got := texts(Wrap(tc.text, tc.width, tc.spacing, fixedAdvance))
		if len(got) != len(tc.want) {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: line %d got %q want %q", tc.name, i, got[i], tc.want[i])
			}
		}
	}
}

func TestWrapWidthExcludesTrailingSpacing(t *testing.T) {
	lines := Wrap("abc", 0, 4, fixedAdvance)
	if len(lines) != 1 || lines[0].Width != 38 {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestMeasurerWideRunesUseFontSize(t *testing.T) {
	m := NewMeasurer(BasicProvider{})
	spec := FontSpec{Size: 24}
	if got := m.Advance(spec, "日历"); got != 48 {
		t.Fatalf("wide advance = %v, want 48", got)
	}
	if got := m.Advance(spec, "AB"); got != 14 {
		t.Fatalf("basicfont advance = %v, want 14", got)
	}
}

func TestMeasurerLayout(t *testing.T) {
	m := NewMeasurer(BasicProvider{})
	box := m.Layout(FontSpec{Size: 10}, "Hello world from Go", 50, 1.5, 0)
	if len(box.Lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(box.Lines))
	}
	if box.LineHeight != 15 || box.Height != 15*float64(len(box.Lines)) {
		t.Fatalf("unexpected box metrics: %+v", box)
	}
	if box.Width <= 0 || box.Width > 50 {
		t.Fatalf("unexpected box width: %v", box.Width)
	}
}

func TestGoLibraryResolvesAndFallsBack(t *testing.T) {
	lib := NewGoLibrary()
	p := OTProvider{Lib: lib}
	face, met := p.Resolve(FontSpec{Family: "PingFang SC", Size: 24, Weight: 600})
	if face == nil || met.Ascent <= 0 {
		t.Fatalf("expected Go font fallback, got %v %+v", face, met)
	}
	if data, ok := lib.Data(FontSpec{Family: DefaultFamily}); !ok || len(data) == 0 {
		t.Fatalf("expected raw font data")
	}
	m := NewMeasurer(p)
	if a, b := m.Advance(FontSpec{Size: 24}, "W"), m.Advance(FontSpec{Size: 48}, "W"); b <= a {
		t.Fatalf("advance should grow with size: %v vs %v", a, b)
	}
	if err := lib.LoadTTF("x", 400, t.TempDir()+"/missing.ttf"); err == nil {
		t.Fatalf("expected error for missing font file")
	}
}
