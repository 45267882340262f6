package render

import (
	"github.com/matzehuels/gridkit/pkg/grid"
)

// CellKind classifies a matrix cell.
type CellKind int

const (
	// Empty cells are not covered by any visible widget.
	Empty CellKind = iota
	// Anchor cells are the top-left cell of a visible widget.
	Anchor
	// Covered cells belong to a visible widget but are not its anchor.
	Covered
)

func (k CellKind) String() string {
	switch k {
	case Anchor:
		return "anchor"
	case Covered:
		return "covered"
	default:
		return "empty"
	}
}

// Span is a 1-based, end-exclusive grid line range as used by CSS grid:
// a widget at row 0 with height 2 spans rows 1 / 3.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Size returns the number of tracks the span covers.
func (s Span) Size() int { return s.End - s.Start }

// Cell is one cell of a projected layout.
type Cell struct {
	Kind     CellKind `json:"kind"`
	Row      int      `json:"row"`
	Col      int      `json:"col"`
	WidgetID string   `json:"widget_id,omitempty"`

	// GridRow and GridCol are set on anchor cells only.
	GridRow Span `json:"grid_row,omitzero"`
	GridCol Span `json:"grid_col,omitzero"`
}

// Matrix is the cell grid of a layout, row-major.
type Matrix struct {
	Columns int      `json:"columns"`
	Rows    int      `json:"rows"`
	Cells   [][]Cell `json:"cells"`

	// Anchors lists the anchor cells in widget order.
	Anchors []Cell `json:"anchors"`
}

// At returns the cell at (row, col), or an Empty cell outside the matrix.
func (m Matrix) At(row, col int) Cell {
	if row < 0 || row >= m.Rows || col < 0 || col >= m.Columns {
		return Cell{Kind: Empty, Row: row, Col: col}
	}
	return m.Cells[row][col]
}

// Project lays l out as a cell matrix.
//
// The matrix has l.Columns columns and as many rows as the lowest visible
// widget reaches. Hidden widgets are skipped entirely. Cells of a widget
// that extend past the last column are clipped, but the anchor's spans keep
// the full size. Where visible widgets overlap, the earlier widget in l
// keeps the cell.
func Project(l grid.Layout) Matrix {
	rows := 0
	for _, w := range l.Widgets {
		if w.Visible {
			rows = max(rows, w.Row+w.Height)
		}
	}

	m := Matrix{Columns: l.Columns, Rows: rows, Cells: make([][]Cell, rows)}
	for r := range m.Cells {
		m.Cells[r] = make([]Cell, l.Columns)
		for c := range m.Cells[r] {
			m.Cells[r][c] = Cell{Kind: Empty, Row: r, Col: c}
		}
	}

	for _, w := range l.Widgets {
		if !w.Visible {
			continue
		}
		anchor := Cell{
			Kind:     Anchor,
			Row:      w.Row,
			Col:      w.Col,
			WidgetID: w.ID,
			GridRow:  Span{Start: w.Row + 1, End: w.Row + w.Height + 1},
			GridCol:  Span{Start: w.Col + 1, End: w.Col + w.Width + 1},
		}
		m.Anchors = append(m.Anchors, anchor)

		for r := w.Row; r < w.Row+w.Height; r++ {
			for c := w.Col; c < w.Col+w.Width && c < l.Columns; c++ {
				if m.Cells[r][c].Kind != Empty {
					continue
				}
				if r == w.Row && c == w.Col {
					m.Cells[r][c] = anchor
				} else {
					m.Cells[r][c] = Cell{Kind: Covered, Row: r, Col: c, WidgetID: w.ID}
				}
			}
		}
	}
	return m
}

// EmptyCells returns the empty cells in row-major order.
func (m Matrix) EmptyCells() []Cell {
	var out []Cell
	for _, row := range m.Cells {
		for _, c := range row {
			if c.Kind == Empty {
				out = append(out, c)
			}
		}
	}
	return out
}
