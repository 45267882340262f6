package grid

// searchMargin is the number of rows scanned past the lowest widget before
// the search gives up and falls back to appending at the bottom.
const searchMargin = 5

// Slot is the result of a placement search.
type Slot struct {
	Row int
	Col int

	// Degraded is set when no free cell was found within the scan bound and
	// the slot is the bottom-row fallback. A degraded slot may overlap.
	Degraded bool

	// Checks is the number of candidate rectangles tested.
	Checks int
}

// FindSlot returns the nearest free position for a width x height rectangle
// anchored at target, ignoring the widget excludeID.
//
// The target itself is returned when it is free and inside the grid.
// Otherwise rows are scanned from target.Row down to the lowest widget
// bottom plus a margin, and within each row columns from 0 to
// columns-width; the first free cell in that row-major order wins. If
// nothing is free the widget is placed at column 0 of the first row below
// every widget and the slot is marked Degraded.
//
// The scan performs at most (lastRow-target.Row+1) * (columns-width+1)
// checks plus one for the target, so FindSlot always terminates.
func FindSlot(widgets []Widget, target Rect, columns int, excludeID string) Slot {
	checks := 1
	if inBounds(target, columns) && !IsOccupied(widgets, target, excludeID) {
		return Slot{Row: target.Row, Col: target.Col, Checks: checks}
	}

	lastRow := max(maxBottom(widgets), target.Row+target.Height) + searchMargin
	for row := max(target.Row, 0); row <= lastRow; row++ {
		for col := 0; col <= columns-target.Width; col++ {
			checks++
			candidate := Rect{Row: row, Col: col, Width: target.Width, Height: target.Height}
			if !IsOccupied(widgets, candidate, excludeID) {
				return Slot{Row: row, Col: col, Checks: checks}
			}
		}
	}

	return Slot{Row: maxBottom(widgets), Col: 0, Degraded: true, Checks: checks}
}

func inBounds(r Rect, columns int) bool {
	return r.Row >= 0 && r.Col >= 0 && r.Width >= 1 && r.Height >= 1 && r.Col+r.Width <= columns
}
