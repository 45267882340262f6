package render

import (
	"context"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
)

var errNoDropHandler = errors.New(errors.ErrCodeUnsupported, "no drop handler configured")

// Renderable is opaque widget content produced by the host.
type Renderable any

// Context is what a ContentResolver sees besides the widget id.
type Context struct {
	Breakpoint breakpoint.Breakpoint
	PageData   any
	Metrics    any
}

// ContentResolver maps a widget id to its content. It must not mutate the
// layout store. Returning nil defers to the RenderWidget fallback.
type ContentResolver func(id string, ctx Context) Renderable

// Props are passed to the RenderWidget fallback.
type Props struct {
	Context
	GridRow Span
	GridCol Span
}

// RenderWidget is the host's delegation point for widgets the resolver does
// not handle.
type RenderWidget func(id string, props Props) Renderable

// DropHandler receives drops on edit-mode drop targets.
// *controller.Drag satisfies it.
type DropHandler interface {
	Move(ctx context.Context, id string, row, col int) (grid.Layout, error)
}

// Options controls Render.
type Options struct {
	Context

	// Edit turns empty cells into drop targets.
	Edit bool

	Resolver ContentResolver
	Fallback RenderWidget

	// Drop is invoked by DropTarget.Accept.
	Drop DropHandler
}

// Item is one rendered widget.
type Item struct {
	WidgetID string     `json:"id"`
	GridRow  Span       `json:"grid_row"`
	GridCol  Span       `json:"grid_col"`
	Content  Renderable `json:"content,omitempty"`
}

// DropTarget is an empty cell in edit mode.
type DropTarget struct {
	Row int `json:"row"`
	Col int `json:"col"`

	drop DropHandler
}

// Accept forwards a dropped widget to the drag controller.
func (t DropTarget) Accept(ctx context.Context, widgetID string) (grid.Layout, error) {
	if t.drop == nil {
		return grid.Layout{}, errNoDropHandler
	}
	return t.drop.Move(ctx, widgetID, t.Row, t.Col)
}

// Stats summarises a layout for a status footer.
type Stats struct {
	Breakpoint breakpoint.Breakpoint `json:"breakpoint"`
	Columns    int                   `json:"columns"`
	Rows       int                   `json:"rows"`
	Visible    int                   `json:"visible"`
	Hidden     int                   `json:"hidden"`
}

// View is the result of rendering a layout.
type View struct {
	Matrix      Matrix             `json:"matrix"`
	Items       []Item             `json:"items"`
	DropTargets []DropTarget       `json:"drop_targets,omitempty"`
	Stats       Stats              `json:"stats"`
	Density     breakpoint.Density `json:"density"`
}

// Render projects l and resolves every visible widget to content.
func Render(l grid.Layout, opts Options) View {
	m := Project(l)
	v := View{
		Matrix:  m,
		Items:   make([]Item, 0, len(m.Anchors)),
		Stats:   StatsOf(l, opts.Breakpoint),
		Density: opts.Breakpoint.Density(),
	}

	for _, a := range m.Anchors {
		item := Item{WidgetID: a.WidgetID, GridRow: a.GridRow, GridCol: a.GridCol}
		if opts.Resolver != nil {
			item.Content = opts.Resolver(a.WidgetID, opts.Context)
		}
		if item.Content == nil && opts.Fallback != nil {
			item.Content = opts.Fallback(a.WidgetID, Props{Context: opts.Context, GridRow: a.GridRow, GridCol: a.GridCol})
		}
		v.Items = append(v.Items, item)
	}

	if opts.Edit {
		for _, c := range m.EmptyCells() {
			v.DropTargets = append(v.DropTargets, DropTarget{Row: c.Row, Col: c.Col, drop: opts.Drop})
		}
	}
	return v
}

// StatsOf counts the widgets of l.
func StatsOf(l grid.Layout, bp breakpoint.Breakpoint) Stats {
	visible := l.VisibleCount()
	rows := 0
	for _, w := range l.Widgets {
		if w.Visible {
			rows = max(rows, w.Row+w.Height)
		}
	}
	return Stats{
		Breakpoint: bp,
		Columns:    l.Columns,
		Rows:       rows,
		Visible:    visible,
		Hidden:     len(l.Widgets) - visible,
	}
}
