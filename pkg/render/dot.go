package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
)

// DOTOptions configures the graphviz preview of a matrix.
type DOTOptions struct {
	// Edit marks empty cells as drop targets.
	Edit bool

	// Density sets cell spacing. The zero value uses desktop spacing.
	Density breakpoint.Density

	// Labels maps widget ids to display names. Missing ids show the id.
	Labels map[string]string

	// CellSize is the width and height of one grid cell in points.
	// Zero selects 60.
	CellSize int
}

const defaultCellSize = 60

// ToDOT converts a matrix into a single graphviz node whose label is an
// HTML table. Widgets become cells with ROWSPAN and COLSPAN set from their
// spans, so the table reproduces the grid. The result can be rendered with
// [RenderSVG].
func ToDOT(m Matrix, opts DOTOptions) string {
	if opts.Density == (breakpoint.Density{}) {
		opts.Density = breakpoint.Desktop.Density()
	}
	size := opts.CellSize
	if size <= 0 {
		size = defaultCellSize
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=plaintext, fontsize=14];\n")
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "  grid [label=<<TABLE BORDER=\"0\" CELLBORDER=\"1\" CELLSPACING=\"%d\" CELLPADDING=\"%d\">\n",
		max(0, opts.Density.Gap/4), max(0, opts.Density.WidgetPadding/4))

	if m.Rows == 0 {
		fmt.Fprintf(&buf, "    <TR><TD WIDTH=\"%d\" HEIGHT=\"%d\" COLSPAN=\"%d\">empty layout</TD></TR>\n",
			size*max(1, m.Columns), size, max(1, m.Columns))
	}

	spanned := make([][]bool, m.Rows)
	for r := range spanned {
		spanned[r] = make([]bool, m.Columns)
	}

	for r := 0; r < m.Rows; r++ {
		buf.WriteString("    <TR>")
		for c := 0; c < m.Columns; c++ {
			if spanned[r][c] {
				continue
			}
			cell := m.Cells[r][c]
			if cell.Kind == Empty {
				spanned[r][c] = true
				buf.WriteString(emptyTD(r, c, size, opts.Edit))
				continue
			}
			rows, cols := claim(m, spanned, r, c)
			buf.WriteString(widgetTD(cell, rows, cols, size, opts.Labels))
		}
		buf.WriteString("</TR>\n")
	}

	buf.WriteString("  </TABLE>>];\n")
	buf.WriteString("}\n")
	return buf.String()
}

// claim marks the largest rectangle of unclaimed cells owned by the widget
// at (r, c), growing right then down, and returns its size.
func claim(m Matrix, spanned [][]bool, r, c int) (rows, cols int) {
	id := m.Cells[r][c].WidgetID
	owned := func(r, c int) bool {
		return !spanned[r][c] && m.Cells[r][c].Kind != Empty && m.Cells[r][c].WidgetID == id
	}

	cols = 1
	for c+cols < m.Columns && owned(r, c+cols) {
		cols++
	}
	rows = 1
grow:
	for r+rows < m.Rows {
		for cc := c; cc < c+cols; cc++ {
			if !owned(r+rows, cc) {
				break grow
			}
		}
		rows++
	}

	for rr := r; rr < r+rows; rr++ {
		for cc := c; cc < c+cols; cc++ {
			spanned[rr][cc] = true
		}
	}
	return rows, cols
}

func emptyTD(r, c, size int, edit bool) string {
	if !edit {
		return fmt.Sprintf(`<TD WIDTH="%d" HEIGHT="%d" BORDER="0"> </TD>`, size, size)
	}
	return fmt.Sprintf(`<TD WIDTH="%d" HEIGHT="%d" STYLE="dashed" COLOR="grey"><FONT COLOR="grey" POINT-SIZE="10">%d,%d</FONT></TD>`,
		size, size, r, c)
}

func widgetTD(cell Cell, rows, cols, size int, labels map[string]string) string {
	label := cell.WidgetID
	if name, ok := labels[cell.WidgetID]; ok && name != "" {
		label = name
	}
	fill := "white"
	if cell.Kind == Covered {
		// The widget's anchor lost its cell to an overlapping widget.
		fill = "lightgrey"
	}
	return fmt.Sprintf(`<TD ROWSPAN="%d" COLSPAN="%d" WIDTH="%d" HEIGHT="%d" BGCOLOR="%s" STYLE="rounded">%s</TD>`,
		rows, cols, size*cols, size*rows, fill, html.EscapeString(label))
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the drawing starts at the
// origin and scales with its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
