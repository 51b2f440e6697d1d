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
	"errors"
	"math"
	"reflect"
	"slices"
	"testing"
	"time"

	"calendarcanvas/internal/geom"
)

var fixedNow = time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)

func fixture(t *testing.T) *Scene {
	t.Helper()
	reg := NewRegistry(func() time.Time { return fixedNow })
	ids := SequentialIDs()
	s := NewSceneAt(750, 1334, ids, fixedNow)
	page := s.Project.Pages[0]
	add := func(kind Kind, frame geom.Rect) *Layer {
		l := &Layer{ID: ids("ly"), Type: kind, Name: string(kind), Frame: frame, Props: reg.Defaults(kind)}
		page.Layers = append(page.Layers, l)
		return l
	}
	add(KindCalendar, geom.R(37.5, 200, 675, 933.8))
	txt := add(KindText, geom.R(150, 80, 450, 94))
	txt.Rotate = 12
	add(KindShape, geom.R(10, 10, 100, 100))
	sticker := add("sticker", geom.R(300, 300, 120, 120))
	sticker.Props = &GenericProps{Type: "sticker", Values: map[string]any{
		"src":  "star.png",
		"tint": map[string]any{"r": 1.0, "g": 0.5},
		"tags": []any{"a", "b"},
	}}
	group := add("group", geom.R(0, 0, 200, 200))
	group.Children = []*Layer{
		{ID: ids("ly"), Type: KindShape, Frame: geom.R(5, 5, 50, 50), Props: reg.Defaults(KindShape), Hidden: true},
	}
	return s
}

func TestJSONRoundTrip(t *testing.T) {
	s := fixture(t)
	data, err := Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := Validate(data); err != nil {
		t.Fatalf("serialized scene should validate: %v", err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(s, back) {
		t.Fatalf("round trip changed the scene")
	}
	sticker := FindLayer(back.Project.Pages[0], "ly_4")
	g, ok := sticker.Props.(*GenericProps)
	if !ok || g.Kind() != "sticker" || g.Values["src"] != "star.png" {
		t.Fatalf("unknown kind lost its bag: %#v", sticker.Props)
	}
	if _, ok := FindLayer(back.Project.Pages[0], "ly_1").Props.(*CalendarProps); !ok {
		t.Fatalf("calendar props should decode to the typed variant")
	}
}

func TestDecodeCalendarDefaultsForMissingFlags(t *testing.T) {
	p, err := DecodeProps(KindCalendar, []byte(`{"year":2024,"month":2}`))
	if err != nil {
		t.Fatalf("DecodeProps: %v", err)
	}
	c := p.(*CalendarProps)
	if !c.HighlightToday || !c.HighlightWeekend || !c.HighlightHolidays || !c.ShowHolidays {
		t.Fatalf("missing highlight flags should default on: %+v", c)
	}
	if c.ShowLunar {
		t.Fatalf("missing show flags should default off")
	}
	if _, err := DecodeProps(KindText, []byte(`{"fontSize":"big"}`)); err == nil {
		t.Fatalf("expected type error for text props")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := fixture(t)
	c := s.Clone()
	if !reflect.DeepEqual(s, c) {
		t.Fatalf("clone differs from source")
	}
	cp := c.Project.Pages[0]
	cp.Layers[0].Props.(*CalendarProps).Holidays = append(cp.Layers[0].Props.(*CalendarProps).Holidays, "2024-02-12")
	cp.Layers[1].Frame.X = -1
	cp.Layers[3].Props.(*GenericProps).Values["tint"].(map[string]any)["r"] = 0.0
	cp.Layers[4].Children[0].Hidden = false
	cp.Layers = cp.Layers[:1]

	sp := s.Project.Pages[0]
	if len(sp.Layers) != 5 || sp.Layers[1].Frame.X != 150 {
		t.Fatalf("mutating the clone changed the source layers")
	}
	if len(sp.Layers[0].Props.(*CalendarProps).Holidays) != 0 {
		t.Fatalf("holidays slice is shared")
	}
	if sp.Layers[3].Props.(*GenericProps).Values["tint"].(map[string]any)["r"] != 1.0 {
		t.Fatalf("generic bag is shared")
	}
	if !sp.Layers[4].Children[0].Hidden {
		t.Fatalf("children are shared")
	}
}

func TestPatchProps(t *testing.T) {
	reg := NewRegistry(func() time.Time { return fixedNow })
	txt := reg.Defaults(KindText)
	p, err := txt.Patch(map[string]any{"text": "你好", "fontSize": 40, "bogus": true})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	tp := p.(*TextProps)
	if tp.Text != "你好" || tp.FontSize != 40 || tp.Color != "#1F2330" {
		t.Fatalf("unexpected patched props %+v", tp)
	}
	if txt.(*TextProps).Text != "双击编辑" {
		t.Fatalf("patch must not modify the receiver")
	}
	if _, err := txt.Patch(map[string]any{"fontSize": "x"}); err == nil {
		t.Fatalf("expected an error for a mistyped field")
	}

	cal := reg.Defaults(KindCalendar)
	p, err = cal.Patch(map[string]any{"theme": map[string]any{"text": "#000000"}, "holidays": []string{"2024-02-12"}})
	if err != nil {
		t.Fatalf("Patch calendar: %v", err)
	}
	cp := p.(*CalendarProps)
	if cp.Theme.Text != "#000000" || cp.Theme.Background != "#FFFFFF" {
		t.Fatalf("theme patch should merge fields, got %+v", cp.Theme)
	}
	if !slices.Equal(cp.Holidays, []string{"2024-02-12"}) || len(cal.(*CalendarProps).Holidays) != 0 {
		t.Fatalf("unexpected holidays %v / %v", cp.Holidays, cal.(*CalendarProps).Holidays)
	}

	gen := reg.Defaults("material")
	p, _ = gen.Patch(map[string]any{"opacity": 0.5})
	gp := p.(*GenericProps)
	if gp.Values["tone"] != "柔和" || gp.Values["opacity"] != 0.5 {
		t.Fatalf("generic patch should merge keys: %v", gp.Values)
	}
	if _, ok := gen.(*GenericProps).Get("opacity"); ok {
		t.Fatalf("generic patch must not modify the receiver")
	}
}

func TestTreeHelpers(t *testing.T) {
	s := fixture(t)
	p := s.Project.Pages[0]
	if got := LayerIDs(p.Layers); !slices.Equal(got, []string{"ly_1", "ly_2", "ly_3", "ly_4", "ly_5", "ly_6"}) {
		t.Fatalf("unexpected ids %v", got)
	}
	loc, ok := Locate(p, "ly_6")
	if !ok || loc.Parent == nil || loc.Parent.ID != "ly_5" || loc.Index != 0 {
		t.Fatalf("unexpected location %+v", loc)
	}
	l, loc, ok := RemoveLayer(p, "ly_2")
	if !ok || l.ID != "ly_2" || loc.Index != 1 || FindLayer(p, "ly_2") != nil {
		t.Fatalf("remove failed")
	}
	InsertLayer(p, l, loc)
	if p.Layers[1] != l {
		t.Fatalf("insert should restore the original index")
	}
	if !ReorderLayer(p, "ly_1", 99) || p.Layers[len(p.Layers)-1].ID != "ly_1" {
		t.Fatalf("reorder should clamp to the end")
	}
	if ReorderLayer(p, "missing", 0) {
		t.Fatalf("reorder of a missing id must fail")
	}
	OrderByIDs(p, []string{"ly_1", "ly_2", "ly_3", "ly_4", "ly_5"})
	if !slices.Equal(TopLevelIDs(p), []string{"ly_1", "ly_2", "ly_3", "ly_4", "ly_5"}) {
		t.Fatalf("OrderByIDs did not restore order: %v", TopLevelIDs(p))
	}
	if len(Flatten(p.Layers)) != 6 {
		t.Fatalf("flatten should include children")
	}
}

func TestSanitizeHealsCorruptData(t *testing.T) {
	s := fixture(t)
	p := s.Project.Pages[0]
	p.Width = math.NaN()
	p.Layers[1].Frame = geom.R(10, 10, 0, 20)
	p.Layers[2].Props = nil
	p.Layers = append(p.Layers, nil)
	s.ActivePageIndex = 7

	if !Sanitize(s, NewRegistry(nil)) {
		t.Fatalf("expected Sanitize to report changes")
	}
	if s.ActivePageIndex != 0 || p.Width != DefaultPageWidth || p.Height != DefaultPageHeight {
		t.Fatalf("page not healed: idx=%d %vx%v", s.ActivePageIndex, p.Width, p.Height)
	}
	f := p.Layers[1].Frame
	if f.W != 750*0.9 || math.Abs(f.H-1334*0.62) > 1e-9 || math.Abs(f.X+f.W/2-375) > 1e-9 {
		t.Fatalf("frame not replaced with centered default: %+v", f)
	}
	if _, ok := p.Layers[2].Props.(*ShapeProps); !ok {
		t.Fatalf("missing props should be filled with defaults")
	}
	if len(p.Layers) != 5 {
		t.Fatalf("nil layers should be dropped")
	}
	if Sanitize(s, nil) {
		t.Fatalf("a healed scene should be stable")
	}
}

func TestUnmarshalRejectsBrokenStructure(t *testing.T) {
	cases := []string{
		`{"project":null,"activePageIndex":0}`,
		`{"project":{"id":"p","title":"t","pages":[]},"activePageIndex":0}`,
		`{"project":{"id":"p","title":"t","pages":[{"id":"pg","width":1,"height":1,"layers":[{"id":"a","type":"text","frame":{"x":0,"y":0,"w":1,"h":1}},{"id":"a","type":"shape","frame":{"x":0,"y":0,"w":1,"h":1}}]}]},"activePageIndex":0}`,
		`not json`,
	}
	for i, c := range cases {
		if _, err := Unmarshal([]byte(c)); !errors.Is(err, ErrInvalidScene) {
			t.Errorf("case %d: expected ErrInvalidScene, got %v", i, err)
		}
	}
}

func TestValidateReportsSchemaErrors(t *testing.T) {
	bad := `{"project":{"id":"p","title":"t","pages":[{"id":"pg","width":"wide","height":1,"layers":[{"id":"a","type":"text","frame":{"x":0,"y":0,"w":1,"h":1},"props":{"fontSize":"big"}}]}]},"activePageIndex":0}`
	err := Validate([]byte(bad))
	if !errors.Is(err, ErrInvalidScene) {
		t.Fatalf("expected ErrInvalidScene, got %v", err)
	}
}

func TestDefaultFrame(t *testing.T) {
	reg := NewRegistry(func() time.Time { return fixedNow })
	page := NewPage("pg", "", 750, 1334)
	cal := DefaultFrame(KindCalendar, page, reg.Defaults(KindCalendar))
	if cal.W != 675 || math.Abs(cal.H-933.8) > 1e-9 || cal.X != 37.5 {
		t.Fatalf("unexpected calendar frame %+v", cal)
	}
	txt := DefaultFrame(KindText, page, reg.Defaults(KindText))
	if txt.W != 450 || math.Abs(txt.H-28*1.4*2.4) > 1e-9 {
		t.Fatalf("unexpected text frame %+v", txt)
	}
	other := DefaultFrame("sticker", page, nil)
	if other.W != 200 || other.H != 200 || other.Center() != (geom.Pt{X: 375, Y: 667}) {
		t.Fatalf("unexpected generic frame %+v", other)
	}
	if c := reg.Defaults(KindCalendar).(*CalendarProps); c.Year != 2024 || c.Month != 2 {
		t.Fatalf("calendar defaults should follow the clock: %v-%v", c.Year, c.Month)
	}
}
