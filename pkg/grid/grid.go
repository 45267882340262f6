// Package grid defines the widget placement model of the layout engine and
// the pure algorithms that operate on it.
//
// # Model
//
// A [Widget] is one rectangle (row, col, width, height) plus a visibility
// flag. A [Layout] is the ordered widget list for one breakpoint, with the
// breakpoint's fixed column count. A [LayoutSet] carries one Layout per
// breakpoint; the three are independent values and never share storage.
//
// Invariant: no two visible widgets of a Layout overlap. Hidden widgets keep
// their last rectangle so that showing them again restores their position,
// but they are ignored by collision checks.
//
// # Algorithms
//
//   - [Overlaps] and [IsOccupied]: the collision detector
//   - [FindSlot]: nearest free cell search with a bounded scan
//   - [Validate]: full-layout invariant check
//
// All functions in this package are pure and allocation-light; they are
// safe to call from any goroutine.
package grid

import (
	"slices"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
)

// Rect is an axis-aligned rectangle in grid cells.
type Rect struct {
	Row    int `json:"row"`
	Col    int `json:"col"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Bottom returns the first row below r.
func (r Rect) Bottom() int { return r.Row + r.Height }

// Right returns the first column right of r.
func (r Rect) Right() int { return r.Col + r.Width }

// Widget is a single widget placement.
type Widget struct {
	ID      string `json:"id" bson:"id"`
	Row     int    `json:"row" bson:"row"`
	Col     int    `json:"col" bson:"col"`
	Width   int    `json:"width" bson:"width"`
	Height  int    `json:"height" bson:"height"`
	Visible bool   `json:"visible" bson:"visible"`
}

// Rect returns the rectangle occupied by w.
func (w Widget) Rect() Rect {
	return Rect{Row: w.Row, Col: w.Col, Width: w.Width, Height: w.Height}
}

// Layout is the full set of widget placements for one breakpoint.
type Layout struct {
	Columns int      `json:"columns" bson:"columns"`
	Widgets []Widget `json:"widgets" bson:"widgets"`
}

// Clone returns a deep copy of l.
func (l Layout) Clone() Layout {
	out := Layout{Columns: l.Columns, Widgets: slices.Clone(l.Widgets)}
	if out.Widgets == nil {
		out.Widgets = []Widget{}
	}
	return out
}

// Index returns the position of the widget with the given id, or -1.
func (l Layout) Index(id string) int {
	return slices.IndexFunc(l.Widgets, func(w Widget) bool { return w.ID == id })
}

// Widget returns the widget with the given id.
func (l Layout) Widget(id string) (Widget, bool) {
	i := l.Index(id)
	if i < 0 {
		return Widget{}, false
	}
	return l.Widgets[i], true
}

// Bottom returns the first row below every widget, visible or not.
func (l Layout) Bottom() int {
	return maxBottom(l.Widgets)
}

// VisibleCount returns the number of visible widgets.
func (l Layout) VisibleCount() int {
	n := 0
	for _, w := range l.Widgets {
		if w.Visible {
			n++
		}
	}
	return n
}

// Empty returns a layout with no widgets for breakpoint b.
func Empty(b breakpoint.Breakpoint) Layout {
	return Layout{Columns: b.Columns(), Widgets: []Widget{}}
}

// LayoutSet holds one independent Layout per breakpoint.
type LayoutSet struct {
	Mobile  Layout `json:"mobile" bson:"mobile"`
	Tablet  Layout `json:"tablet" bson:"tablet"`
	Desktop Layout `json:"desktop" bson:"desktop"`
}

// Get returns a copy of the layout for b.
func (s *LayoutSet) Get(b breakpoint.Breakpoint) (Layout, bool) {
	p := s.ptr(b)
	if p == nil {
		return Layout{}, false
	}
	return p.Clone(), true
}

// Set stores a copy of l as the layout for b. It reports false for an
// unknown breakpoint.
func (s *LayoutSet) Set(b breakpoint.Breakpoint, l Layout) bool {
	p := s.ptr(b)
	if p == nil {
		return false
	}
	*p = l.Clone()
	return true
}

// Has reports whether a layout has been materialised for b. The zero
// Layout (no columns) counts as missing.
func (s *LayoutSet) Has(b breakpoint.Breakpoint) bool {
	p := s.ptr(b)
	return p != nil && p.Columns > 0
}

// Clone returns a deep copy of s.
func (s LayoutSet) Clone() LayoutSet {
	return LayoutSet{
		Mobile:  s.Mobile.Clone(),
		Tablet:  s.Tablet.Clone(),
		Desktop: s.Desktop.Clone(),
	}
}

func (s *LayoutSet) ptr(b breakpoint.Breakpoint) *Layout {
	switch b {
	case breakpoint.Mobile:
		return &s.Mobile
	case breakpoint.Tablet:
		return &s.Tablet
	case breakpoint.Desktop:
		return &s.Desktop
	}
	return nil
}

// Patch is a partial widget update. Nil fields are left unchanged.
type Patch struct {
	Row     *int  `json:"row,omitempty"`
	Col     *int  `json:"col,omitempty"`
	Width   *int  `json:"width,omitempty"`
	Height  *int  `json:"height,omitempty"`
	Visible *bool `json:"visible,omitempty"`
}

// MoveTo returns a patch that relocates a widget.
func MoveTo(row, col int) Patch { return Patch{Row: &row, Col: &col} }

// ResizeTo returns a patch that changes a widget's size.
func ResizeTo(width, height int) Patch { return Patch{Width: &width, Height: &height} }

// SetVisible returns a patch that changes a widget's visibility.
func SetVisible(v bool) Patch { return Patch{Visible: &v} }

// IsZero reports whether p changes nothing.
func (p Patch) IsZero() bool {
	return p.Row == nil && p.Col == nil && p.Width == nil && p.Height == nil && p.Visible == nil
}

// Apply returns w with p applied.
func (p Patch) Apply(w Widget) Widget {
	if p.Row != nil {
		w.Row = *p.Row
	}
	if p.Col != nil {
		w.Col = *p.Col
	}
	if p.Width != nil {
		w.Width = *p.Width
	}
	if p.Height != nil {
		w.Height = *p.Height
	}
	if p.Visible != nil {
		w.Visible = *p.Visible
	}
	return w
}

func maxBottom(widgets []Widget) int {
	bottom := 0
	for _, w := range widgets {
		if b := w.Row + w.Height; b > bottom {
			bottom = b
		}
	}
	return bottom
}
