package grid

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/errors"
)

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want bool
	}{
		{"identical", Rect{0, 0, 1, 1}, Rect{0, 0, 1, 1}, true},
		{"contained", Rect{0, 0, 4, 4}, Rect{1, 1, 1, 1}, true},
		{"partial", Rect{0, 0, 2, 2}, Rect{1, 1, 2, 2}, true},
		{"touching right edge", Rect{0, 0, 2, 1}, Rect{0, 2, 2, 1}, false},
		{"touching bottom edge", Rect{0, 0, 1, 1}, Rect{1, 0, 1, 1}, false},
		{"diagonal", Rect{0, 0, 1, 1}, Rect{1, 1, 1, 1}, false},
		{"far away", Rect{0, 0, 1, 1}, Rect{10, 10, 1, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Errorf("Overlaps is not symmetric for %v, %v", tt.a, tt.b)
			}
		})
	}
}

func TestIsOccupied(t *testing.T) {
	widgets := []Widget{
		{ID: "a", Row: 0, Col: 0, Width: 2, Height: 1, Visible: true},
		{ID: "hidden", Row: 1, Col: 0, Width: 4, Height: 1, Visible: false},
	}

	tests := []struct {
		name    string
		r       Rect
		exclude string
		want    bool
	}{
		{"overlaps a", Rect{0, 1, 1, 1}, "", true},
		{"excluded a", Rect{0, 1, 1, 1}, "a", false},
		{"hidden widget ignored", Rect{1, 0, 1, 1}, "", false},
		{"free cell", Rect{0, 2, 2, 1}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOccupied(widgets, tt.r, tt.exclude); got != tt.want {
				t.Errorf("IsOccupied(%v, %q) = %v, want %v", tt.r, tt.exclude, got, tt.want)
			}
		})
	}
}

func TestFindSlotScenario(t *testing.T) {
	// Widgets A and B fill row 0; C is dropped on A's anchor.
	widgets := []Widget{
		{ID: "A", Row: 0, Col: 0, Width: 2, Height: 1, Visible: true},
		{ID: "B", Row: 0, Col: 2, Width: 2, Height: 1, Visible: true},
		{ID: "C", Row: 5, Col: 0, Width: 1, Height: 1, Visible: true},
	}

	got := FindSlot(widgets, Rect{Row: 0, Col: 0, Width: 1, Height: 1}, 4, "C")
	if got.Row != 1 || got.Col != 0 || got.Degraded {
		t.Errorf("FindSlot = %+v, want (1,0) not degraded", got)
	}
}

func TestFindSlotKeepsFreeTarget(t *testing.T) {
	widgets := []Widget{{ID: "A", Row: 0, Col: 0, Width: 2, Height: 1, Visible: true}}

	got := FindSlot(widgets, Rect{Row: 3, Col: 3, Width: 1, Height: 1}, 4, "")
	if got.Row != 3 || got.Col != 3 || got.Checks != 1 {
		t.Errorf("FindSlot = %+v, want target (3,3) after one check", got)
	}
}

func TestFindSlotRowMajorOrder(t *testing.T) {
	// Row 1 has a hole at col 3, row 2 is empty: row 1 must win even though
	// the target column is 0.
	widgets := []Widget{
		{ID: "top", Row: 0, Col: 0, Width: 4, Height: 1, Visible: true},
		{ID: "mid", Row: 1, Col: 0, Width: 3, Height: 1, Visible: true},
	}

	got := FindSlot(widgets, Rect{Row: 0, Col: 0, Width: 1, Height: 1}, 4, "")
	if got.Row != 1 || got.Col != 3 {
		t.Errorf("FindSlot = (%d,%d), want (1,3)", got.Row, got.Col)
	}
}

func TestFindSlotOutOfBoundsTarget(t *testing.T) {
	got := FindSlot(nil, Rect{Row: 0, Col: 3, Width: 2, Height: 1}, 4, "")
	if got.Row != 0 || got.Col != 0 {
		t.Errorf("FindSlot = (%d,%d), want (0,0) for a target overflowing the grid", got.Row, got.Col)
	}
}

func TestFindSlotTerminatesWhenNothingFits(t *testing.T) {
	widgets := []Widget{
		{ID: "a", Row: 0, Col: 0, Width: 1, Height: 3, Visible: true},
		{ID: "b", Row: 0, Col: 1, Width: 1, Height: 2, Visible: true},
	}

	// Wider than the grid: no candidate can ever fit.
	got := FindSlot(widgets, Rect{Row: 0, Col: 0, Width: 3, Height: 1}, 2, "")
	if !got.Degraded {
		t.Fatalf("FindSlot = %+v, want degraded fallback", got)
	}
	if got.Row != 3 || got.Col != 0 {
		t.Errorf("fallback = (%d,%d), want (3,0)", got.Row, got.Col)
	}

	lastRow := 3 + searchMargin
	if bound := 1 + (lastRow+1)*2; got.Checks > bound {
		t.Errorf("Checks = %d exceeds bound %d", got.Checks, bound)
	}
}

func TestFindSlotFullGridScansBelow(t *testing.T) {
	var widgets []Widget
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			widgets = append(widgets, Widget{ID: string(rune('a' + r*4 + c)), Row: r, Col: c, Width: 1, Height: 1, Visible: true})
		}
	}

	got := FindSlot(widgets, Rect{Row: 1, Col: 1, Width: 2, Height: 1}, 4, "")
	if got.Degraded || got.Row != 3 || got.Col != 0 {
		t.Errorf("FindSlot = %+v, want (3,0) below the full block", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		l    Layout
		code errors.Code
	}{
		{
			name: "valid",
			l:    Layout{Columns: 4, Widgets: []Widget{{ID: "a", Width: 1, Height: 1, Visible: true}}},
		},
		{
			name: "hidden overlap allowed",
			l: Layout{Columns: 4, Widgets: []Widget{
				{ID: "a", Width: 2, Height: 2, Visible: true},
				{ID: "b", Width: 1, Height: 1, Visible: false},
			}},
		},
		{
			name: "visible overlap",
			l: Layout{Columns: 4, Widgets: []Widget{
				{ID: "a", Width: 2, Height: 2, Visible: true},
				{ID: "b", Row: 1, Col: 1, Width: 1, Height: 1, Visible: true},
			}},
			code: errors.ErrCodeOverlap,
		},
		{
			name: "zero width",
			l:    Layout{Columns: 4, Widgets: []Widget{{ID: "a", Width: 0, Height: 1}}},
			code: errors.ErrCodeInvalidInput,
		},
		{
			name: "duplicate id",
			l:    Layout{Columns: 4, Widgets: []Widget{{ID: "a", Width: 1, Height: 1}, {ID: "a", Row: 3, Width: 1, Height: 1}}},
			code: errors.ErrCodeInvalidInput,
		},
		{
			name: "no columns",
			l:    Layout{},
			code: errors.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.l)
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("Validate() code = %q, want %q (err=%v)", got, tt.code, err)
			}
		})
	}
}

func TestDefaultCatalogLayoutsAreValid(t *testing.T) {
	c := DefaultCatalog()
	for id, set := range c.Defaults {
		for _, bp := range breakpoint.All {
			l, _ := set.Get(bp)
			if l.Columns != bp.Columns() {
				t.Errorf("%s/%s columns = %d, want %d", id, bp, l.Columns, bp.Columns())
			}
			if err := Validate(l); err != nil {
				t.Errorf("%s/%s: %v", id, bp, err)
			}
		}
	}
	if _, ok := c.Page(DashboardPage); !ok {
		t.Error("catalog must contain the dashboard page")
	}
}

func TestCatalogReturnsCopies(t *testing.T) {
	c := DefaultCatalog()
	l, _ := c.Default(DashboardPage, breakpoint.Desktop)
	l.Widgets[0].Row = 99

	again, _ := c.Default(DashboardPage, breakpoint.Desktop)
	if again.Widgets[0].Row == 99 {
		t.Error("Default must return an independent copy")
	}
}

func TestCatalogMergeAndUnused(t *testing.T) {
	c := DefaultCatalog()
	c.Merge(Catalog{
		Pages:   []Page{{ID: "orders", Name: "Orders v2"}, {ID: "returns", Name: "Returns"}},
		Widgets: []WidgetInfo{{ID: "returns-feed", Name: "Returns", Category: "orders"}},
	})

	if p, _ := c.Page("orders"); p.Name != "Orders v2" {
		t.Errorf("merged page name = %q", p.Name)
	}
	if _, ok := c.Page("returns"); !ok {
		t.Error("merge should append new pages")
	}

	l, _ := c.Default(DashboardPage, breakpoint.Desktop)
	unused := c.Unused(l)
	for _, w := range unused {
		if l.Index(w.ID) >= 0 {
			t.Errorf("Unused returned placed widget %q", w.ID)
		}
	}
	if len(unused) != len(c.Widgets)-3 {
		t.Errorf("Unused = %d widgets, want %d", len(unused), len(c.Widgets)-3)
	}
}

func TestLayoutSetIsolation(t *testing.T) {
	c := DefaultCatalog()
	set, _ := c.DefaultSet(WarehousePage)
	before := set.Clone()

	desktop, _ := set.Get(breakpoint.Desktop)
	desktop.Widgets[0].Col = 3
	set.Set(breakpoint.Desktop, desktop)

	if diff := cmp.Diff(before.Mobile, set.Mobile); diff != "" {
		t.Errorf("mobile changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(before.Tablet, set.Tablet); diff != "" {
		t.Errorf("tablet changed (-before +after):\n%s", diff)
	}
	if set.Desktop.Widgets[0].Col != 3 {
		t.Error("desktop change was not stored")
	}
}

func TestLayoutSetRoundTrip(t *testing.T) {
	c := DefaultCatalog()
	set, _ := c.DefaultSet(WarehousePage)

	blob, err := MarshalLayoutSet(set)
	if err != nil {
		t.Fatalf("MarshalLayoutSet: %v", err)
	}
	decoded, err := UnmarshalLayoutSet(blob)
	if err != nil {
		t.Fatalf("UnmarshalLayoutSet: %v", err)
	}
	if diff := cmp.Diff(set, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	again, err := MarshalLayoutSet(decoded)
	if err != nil {
		t.Fatalf("MarshalLayoutSet: %v", err)
	}
	if !bytes.Equal(blob, again) {
		t.Errorf("blob not byte-identical after round trip:\n%s\n%s", blob, again)
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	c := DefaultCatalog()
	blob, err := MarshalRegistry(c.Defaults)
	if err != nil {
		t.Fatalf("MarshalRegistry: %v", err)
	}
	pages, err := UnmarshalRegistry(blob)
	if err != nil {
		t.Fatalf("UnmarshalRegistry: %v", err)
	}
	if diff := cmp.Diff(c.Defaults, pages); diff != "" {
		t.Errorf("registry mismatch (-want +got):\n%s", diff)
	}
}

func TestPartialLayoutSetRoundTrip(t *testing.T) {
	var set LayoutSet
	set.Set(breakpoint.Desktop, Layout{Columns: 4, Widgets: []Widget{
		{ID: "a", Width: 2, Height: 1, Visible: true},
	}})

	blob, err := MarshalLayoutSet(set)
	if err != nil {
		t.Fatalf("MarshalLayoutSet: %v", err)
	}
	if want := `{"desktop":{"columns":4,"widgets":[{"id":"a","row":0,"col":0,"width":2,"height":1,"visible":true}]}}`; string(blob) != want {
		t.Errorf("blob = %s, want %s", blob, want)
	}

	decoded, err := UnmarshalLayoutSet(blob)
	if err != nil {
		t.Fatalf("UnmarshalLayoutSet: %v", err)
	}
	if decoded.Has(breakpoint.Mobile) || decoded.Has(breakpoint.Tablet) {
		t.Errorf("missing breakpoints came back materialised: %+v", decoded)
	}
	again, err := MarshalLayoutSet(decoded)
	if err != nil {
		t.Fatalf("MarshalLayoutSet: %v", err)
	}
	if !bytes.Equal(blob, again) {
		t.Errorf("blob not byte-identical after round trip:\n%s\n%s", blob, again)
	}

	reg, err := MarshalRegistry(map[string]LayoutSet{"orders": set})
	if err != nil {
		t.Fatalf("MarshalRegistry: %v", err)
	}
	pages, err := UnmarshalRegistry(reg)
	if err != nil {
		t.Fatalf("UnmarshalRegistry: %v", err)
	}
	reg2, _ := MarshalRegistry(pages)
	if !bytes.Equal(reg, reg2) {
		t.Errorf("registry blob not byte-identical:\n%s\n%s", reg, reg2)
	}
}

func TestUnmarshalLayoutSetMissing(t *testing.T) {
	s, err := UnmarshalLayoutSet([]byte(`{"desktop":{"widgets":[{"id":"a","row":0,"col":0,"width":1,"height":1,"visible":true}]},"tablet":{"columns":2,"widgets":[]},"mobile":null}`))
	if err != nil {
		t.Fatalf("UnmarshalLayoutSet: %v", err)
	}
	if !s.Has(breakpoint.Tablet) || s.Tablet.Columns != 2 {
		t.Errorf("tablet layout not decoded: %+v", s.Tablet)
	}
	if s.Has(breakpoint.Desktop) {
		t.Error("layout without columns should be missing")
	}
	if s.Has(breakpoint.Mobile) {
		t.Error("null mobile layout should be missing")
	}
	if _, err := UnmarshalLayoutSet([]byte(`{not json`)); err == nil {
		t.Error("expected error for corrupt blob")
	}
	if _, err := UnmarshalLayoutSet([]byte(`{"mobile":{"columns":"one"}}`)); err == nil {
		t.Error("expected error for a malformed layout")
	}
}

func TestPatchApply(t *testing.T) {
	w := Widget{ID: "a", Row: 1, Col: 1, Width: 2, Height: 2, Visible: true}

	got := MoveTo(3, 0).Apply(w)
	want := Widget{ID: "a", Row: 3, Col: 0, Width: 2, Height: 2, Visible: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MoveTo (-want +got):\n%s", diff)
	}

	if got := SetVisible(false).Apply(w); got.Visible || got.Rect() != w.Rect() {
		t.Errorf("SetVisible changed geometry or failed: %+v", got)
	}
	if !(Patch{}).IsZero() || ResizeTo(1, 1).IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestCatalogLookupsOnValue(t *testing.T) {
	if p, ok := DefaultCatalog().Page(DashboardPage); !ok || p.ID != DashboardPage {
		t.Errorf("Page(%q) = %+v, %v", DashboardPage, p, ok)
	}
	l, ok := DefaultCatalog().Default(DashboardPage, breakpoint.Desktop)
	if !ok || l.Columns != 4 {
		t.Errorf("Default desktop = %+v, %v", l, ok)
	}
	if _, ok := DefaultCatalog().DefaultSet("nowhere"); ok {
		t.Error("DefaultSet of an unknown page should report false")
	}
	if unused := DefaultCatalog().Unused(l); len(unused) == 0 {
		t.Error("dashboard should leave catalogue widgets unused")
	}
}
