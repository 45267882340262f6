package grid

import (
	"github.com/matzehuels/gridkit/pkg/errors"
)

// Overlaps reports whether two rectangles share at least one cell.
// Rectangles that merely touch along an edge do not overlap.
func Overlaps(a, b Rect) bool {
	return !(a.Row >= b.Row+b.Height ||
		a.Row+a.Height <= b.Row ||
		a.Col >= b.Col+b.Width ||
		a.Col+a.Width <= b.Col)
}

// IsOccupied reports whether any visible widget other than excludeID
// overlaps r. It is the single validity check used by every mutation path.
func IsOccupied(widgets []Widget, r Rect, excludeID string) bool {
	for _, w := range widgets {
		if w.ID == excludeID || !w.Visible {
			continue
		}
		if Overlaps(r, w.Rect()) {
			return true
		}
	}
	return false
}

// Collision names a pair of overlapping visible widgets.
type Collision struct {
	A, B string
}

// Collisions returns every overlapping pair of visible widgets in l, in
// widget order.
func Collisions(l Layout) []Collision {
	var out []Collision
	for i, a := range l.Widgets {
		if !a.Visible {
			continue
		}
		for _, b := range l.Widgets[i+1:] {
			if b.Visible && Overlaps(a.Rect(), b.Rect()) {
				out = append(out, Collision{A: a.ID, B: b.ID})
			}
		}
	}
	return out
}

// ValidateShape checks the structural constraints of l: a positive column
// count, unique non-empty ids, non-negative positions and sizes of at least
// one cell. It does not check for overlap.
func ValidateShape(l Layout) error {
	if l.Columns <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "layout must have at least one column, got %d", l.Columns)
	}
	seen := make(map[string]bool, len(l.Widgets))
	for _, w := range l.Widgets {
		if err := errors.ValidateWidgetID(w.ID); err != nil {
			return err
		}
		if seen[w.ID] {
			return errors.New(errors.ErrCodeInvalidInput, "duplicate widget id %q", w.ID)
		}
		seen[w.ID] = true
		if w.Row < 0 || w.Col < 0 {
			return errors.New(errors.ErrCodeInvalidInput, "widget %q has negative position (%d,%d)", w.ID, w.Row, w.Col)
		}
		if w.Width < 1 || w.Height < 1 {
			return errors.New(errors.ErrCodeInvalidInput, "widget %q must be at least 1x1, got %dx%d", w.ID, w.Width, w.Height)
		}
	}
	return nil
}

// Validate checks the shape of l and the non-overlap invariant for visible
// widgets.
func Validate(l Layout) error {
	if err := ValidateShape(l); err != nil {
		return err
	}
	if c := Collisions(l); len(c) > 0 {
		return errors.New(errors.ErrCodeOverlap, "widgets %q and %q overlap", c[0].A, c[0].B)
	}
	return nil
}
