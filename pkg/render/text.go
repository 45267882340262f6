package render

import (
	"strings"
	"unicode/utf8"
)

// TextOptions configures [Text].
type TextOptions struct {
	// CellWidth is the number of characters per grid column, borders
	// excluded. Zero selects 12.
	CellWidth int
	// Edit shows empty cells as dots.
	Edit bool
}

// Text draws m as a box diagram, one text line per grid row plus borders.
// Each widget is outlined and labelled with its id, truncated to fit.
//
//	+-----------+-----------+
//	| a         | b         |
//	+-----------+-----------+
func Text(m Matrix, opts TextOptions) string {
	cw := opts.CellWidth
	if cw <= 0 {
		cw = 12
	}
	if m.Rows == 0 || m.Columns == 0 {
		return "(empty layout)\n"
	}

	owner := func(r, c int) string {
		if r < 0 || r >= m.Rows || c < 0 || c >= m.Columns {
			return "\x00"
		}
		cell := m.Cells[r][c]
		if cell.Kind == Empty {
			return "\x00" + string(rune('a'+r%26)) + string(rune('a'+c%26))
		}
		return cell.WidgetID
	}

	var b strings.Builder
	for r := 0; r <= m.Rows; r++ {
		// Border line above row r.
		for c := 0; c <= m.Columns; c++ {
			b.WriteByte(corner(owner, r, c))
			if c == m.Columns {
				break
			}
			if owner(r-1, c) != owner(r, c) {
				b.WriteString(strings.Repeat("-", cw))
			} else {
				b.WriteString(strings.Repeat(" ", cw))
			}
		}
		b.WriteByte('\n')
		if r == m.Rows {
			break
		}

		// Content line of row r. A label may run across the cells its
		// widget covers in this row.
		for c := 0; c <= m.Columns; {
			if owner(r, c-1) != owner(r, c) {
				b.WriteByte('|')
			} else {
				b.WriteByte(' ')
			}
			if c == m.Columns {
				break
			}
			run := 1
			for c+run < m.Columns && owner(r, c+run) == owner(r, c) {
				run++
			}
			b.WriteString(cellText(m.Cells[r][c], run*cw+run-1, opts.Edit))
			c += run
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// corner picks the border glyph at the top-left corner of cell (r, c).
func corner(owner func(r, c int) string, r, c int) byte {
	tl, tr := owner(r-1, c-1), owner(r-1, c)
	bl, br := owner(r, c-1), owner(r, c)
	if tl == tr && tr == bl && bl == br {
		return ' '
	}
	horizontal := tl != bl || tr != br
	vertical := tl != tr || bl != br
	switch {
	case horizontal && vertical:
		return '+'
	case horizontal:
		return '-'
	default:
		return '|'
	}
}

func cellText(cell Cell, width int, edit bool) string {
	var label string
	switch cell.Kind {
	case Anchor:
		label = cell.WidgetID
	case Empty:
		if edit {
			label = "."
		}
	}
	label = truncate(label, width-1)
	return " " + label + strings.Repeat(" ", width-1-utf8.RuneCountInString(label))
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "~"
}
