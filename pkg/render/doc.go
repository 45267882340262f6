// Package render turns a grid layout into something a host can paint.
//
// # Overview
//
// [Project] lays a [grid.Layout] out as a cell [Matrix]. Every cell is
// empty, the anchor (top-left cell) of a visible widget, or covered by one.
// Anchors carry 1-based, end-exclusive [Span]s that map directly onto CSS
// grid lines:
//
//	m := render.Project(layout)
//	for _, a := range m.Anchors {
//	    fmt.Printf("%s: grid-row %d / %d\n", a.WidgetID, a.GridRow.Start, a.GridRow.End)
//	}
//
// [Render] adds widget content on top of the matrix. Content is opaque to
// this package: a [ContentResolver] supplied by the host maps widget ids to
// content, and the [RenderWidget] fallback handles ids it does not know. In
// edit mode every empty cell becomes a [DropTarget] that forwards drops to
// a [DropHandler], normally the drag controller.
//
// # Previews
//
// [Text] draws a matrix as a box diagram for terminals. [ToDOT] converts it
// to a Graphviz HTML table and [RenderSVG] renders that with the embedded
// Graphviz. [ToPNG] and [ToPDF] convert the SVG with rsvg-convert.
//
//	dot := render.ToDOT(m, render.DOTOptions{Density: bp.Density()})
//	svg, err := render.RenderSVG(ctx, dot)
//
// [grid.Layout]: github.com/matzehuels/gridkit/pkg/grid.Layout
package render
