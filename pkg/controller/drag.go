package controller

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/observability"
)

// DragState is the state of a drag gesture.
type DragState int

const (
	DragIdle DragState = iota
	Dragging
	DragCommitted
	DragCancelled
)

func (s DragState) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case DragCommitted:
		return "committed"
	case DragCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Drag relocates widgets.
//
// A drag moves Idle -> Dragging on Start and Dragging -> Committed or
// Cancelled on Drop or Cancel. Committed and Cancelled are terminal for the
// gesture; the next Start begins a new one. The dragged widget's size never
// changes.
type Drag struct {
	cfg Config

	mu      sync.Mutex
	state   DragState
	gesture Gesture
}

// NewDrag creates a drag controller.
func NewDrag(cfg Config) *Drag {
	return &Drag{cfg: cfg.withDefaults()}
}

// State returns the current state.
func (d *Drag) State() DragState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Start begins dragging widget id on the active breakpoint.
// It fails with GESTURE_IN_PROGRESS while any gesture is active.
func (d *Drag) Start(ctx context.Context, id string) (Gesture, error) {
	if err := errors.ValidateWidgetID(id); err != nil {
		return Gesture{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	gs, err := d.cfg.Guard.Acquire(KindDrag, id, d.cfg.Source.Current())
	if err != nil {
		return Gesture{}, err
	}
	d.state = Dragging
	d.gesture = gs
	observability.Layout().OnGestureStart(ctx, string(KindDrag), id)
	d.logger().Debug("drag started", "breakpoint", gs.Breakpoint)
	return gs, nil
}

// Drop ends the drag over target cell (row, col).
//
// A target outside the grid cancels the drag with DRAG_TARGET_INVALID and a
// dragged id missing from the layout cancels it with UNKNOWN_WIDGET_ID; in
// both cases nothing is mutated. Otherwise the widget is placed at the
// nearest free slot and the new layout is returned. When the search falls
// back to the bottom row the layout is still committed and returned together
// with a PLACEMENT_EXHAUSTED error for which errors.Degraded reports true.
func (d *Drag) Drop(ctx context.Context, row, col int) (grid.Layout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != Dragging {
		return grid.Layout{}, errors.New(errors.ErrCodeNoGesture, "no drag in progress")
	}
	gs := d.gesture
	l, err := d.drop(ctx, gs, row, col)
	if err != nil && !errors.Degraded(err) {
		d.state = DragCancelled
		d.logger().Warn("drag cancelled", "code", errors.GetCode(err), "err", errors.UserMessage(err))
	} else {
		d.state = DragCommitted
	}
	endGesture(ctx, d.cfg.Guard, gs, err)
	return l, err
}

func (d *Drag) drop(ctx context.Context, gs Gesture, row, col int) (grid.Layout, error) {
	l, err := d.cfg.Store.Get(ctx, gs.Breakpoint)
	if err != nil {
		return grid.Layout{}, err
	}
	if row < 0 || col < 0 || col >= l.Columns {
		return grid.Layout{}, errors.New(errors.ErrCodeDragTargetInvalid,
			"drop target (%d,%d) is outside the %d-column grid", row, col, l.Columns)
	}
	w, ok := l.Widget(gs.WidgetID)
	if !ok {
		return grid.Layout{}, errors.New(errors.ErrCodeUnknownWidget, "dragged widget %q is not in the %s layout", gs.WidgetID, gs.Breakpoint)
	}

	target := grid.Rect{Row: row, Col: col, Width: w.Width, Height: w.Height}
	slot := grid.FindSlot(l.Widgets, target, l.Columns, w.ID)
	observability.Layout().OnPlacement(ctx, w.ID, slot.Checks, slot.Degraded)

	next, err := d.cfg.Store.MutateWidget(ctx, gs.Breakpoint, w.ID, grid.MoveTo(slot.Row, slot.Col))
	if err != nil {
		return grid.Layout{}, err
	}
	d.cfg.changed(next)
	d.logger().Info("widget moved", "from", [2]int{w.Row, w.Col}, "to", [2]int{slot.Row, slot.Col}, "checks", slot.Checks)

	if slot.Degraded {
		d.logger().Warn("no free slot found, placed below all widgets", "code", errors.ErrCodePlacementExhausted)
		return next, errors.New(errors.ErrCodePlacementExhausted,
			"no free slot for %q near (%d,%d); placed at (%d,%d)", w.ID, row, col, slot.Row, slot.Col)
	}
	return next, nil
}

// Cancel aborts the drag without mutating anything. It does nothing when no
// drag is in progress.
func (d *Drag) Cancel(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Dragging {
		return
	}
	d.state = DragCancelled
	endGesture(ctx, d.cfg.Guard, d.gesture, nil)
	d.logger().Debug("drag cancelled by caller")
}

// Move is a complete drag of id onto (row, col): Start followed by Drop.
func (d *Drag) Move(ctx context.Context, id string, row, col int) (grid.Layout, error) {
	if _, err := d.Start(ctx, id); err != nil {
		return grid.Layout{}, err
	}
	return d.Drop(ctx, row, col)
}

// logger returns the logger annotated with the current gesture.
// Must be called with mu held.
func (d *Drag) logger() *log.Logger {
	return d.cfg.Logger.With("gesture", d.gesture.ID, "widget", d.gesture.WidgetID)
}
