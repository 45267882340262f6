package controller

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/store"
)

// scenarioLayout is the 4-column layout used by the worked examples:
// A and B fill row 0, C waits further down.
func scenarioLayout() grid.Layout {
	return grid.Layout{Columns: 4, Widgets: []grid.Widget{
		{ID: "A", Row: 0, Col: 0, Width: 2, Height: 1, Visible: true},
		{ID: "B", Row: 0, Col: 2, Width: 2, Height: 1, Visible: true},
		{ID: "C", Row: 3, Col: 0, Width: 1, Height: 1, Visible: true},
	}}
}

type fixture struct {
	store   *store.LocalStore
	cfg     Config
	changes []grid.Layout
}

func newFixture(t *testing.T, l grid.Layout) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := log.New(io.Discard)

	var defaults grid.LayoutSet
	for _, bp := range breakpoint.All {
		defaults.Set(bp, grid.Empty(bp))
	}
	defaults.Set(breakpoint.Desktop, l)

	s, err := store.NewLocal(ctx, "test", defaults, nil, store.Options{Logger: logger})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	f := &fixture{store: s}
	f.cfg = Config{
		Store:          s,
		Source:         breakpoint.Fixed(breakpoint.Desktop),
		Guard:          &Guard{},
		Logger:         logger,
		OnLayoutChange: func(l grid.Layout) { f.changes = append(f.changes, l) },
	}
	return f
}

func (f *fixture) layout(t *testing.T) grid.Layout {
	t.Helper()
	l, err := f.store.Get(context.Background(), breakpoint.Desktop)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return l
}

func (f *fixture) widget(t *testing.T, id string) grid.Widget {
	t.Helper()
	w, ok := f.layout(t).Widget(id)
	if !ok {
		t.Fatalf("widget %q missing", id)
	}
	return w
}

// =============================================================================
// Drag
// =============================================================================

func TestDragScenarioFindsNextFreeRow(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	d := NewDrag(f.cfg)
	ctx := context.Background()

	gs, err := d.Start(ctx, "C")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if gs.ID == "" || gs.Kind != KindDrag {
		t.Errorf("gesture = %+v", gs)
	}
	if d.State() != Dragging {
		t.Errorf("State() = %v, want dragging", d.State())
	}

	if _, err := d.Drop(ctx, 0, 0); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if d.State() != DragCommitted {
		t.Errorf("State() = %v, want committed", d.State())
	}

	c := f.widget(t, "C")
	if c.Row != 1 || c.Col != 0 || c.Width != 1 || c.Height != 1 {
		t.Errorf("C = %+v, want (1,0) 1x1", c)
	}
	if len(f.changes) != 1 {
		t.Errorf("OnLayoutChange fired %d times, want 1", len(f.changes))
	}
	if err := grid.Validate(f.layout(t)); err != nil {
		t.Errorf("layout invalid after drag: %v", err)
	}
}

func TestDragKeepsFreeTarget(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	d := NewDrag(f.cfg)

	if _, err := d.Move(context.Background(), "A", 2, 1); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if a := f.widget(t, "A"); a.Row != 2 || a.Col != 1 || a.Width != 2 {
		t.Errorf("A = %+v, want (2,1) with width 2", a)
	}
}

func TestDragInvalidTargetCancels(t *testing.T) {
	tests := []struct {
		name     string
		row, col int
	}{
		{"negative row", -1, 0},
		{"negative col", 0, -1},
		{"past last column", 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, scenarioLayout())
			d := NewDrag(f.cfg)
			before := f.layout(t)

			_, err := d.Move(context.Background(), "C", tt.row, tt.col)
			if !errors.Is(err, errors.ErrCodeDragTargetInvalid) {
				t.Fatalf("Move() error = %v, want DRAG_TARGET_INVALID", err)
			}
			if d.State() != DragCancelled {
				t.Errorf("State() = %v, want cancelled", d.State())
			}
			if diff := cmp.Diff(before, f.layout(t)); diff != "" {
				t.Errorf("layout changed (-before +after):\n%s", diff)
			}
			if _, active := f.cfg.Guard.Active(); active {
				t.Error("guard still held after cancel")
			}
		})
	}
}

func TestDragUnknownWidgetCancels(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	d := NewDrag(f.cfg)

	_, err := d.Move(context.Background(), "ghost", 0, 0)
	if !errors.Is(err, errors.ErrCodeUnknownWidget) {
		t.Fatalf("Move() error = %v, want UNKNOWN_WIDGET_ID", err)
	}
	if d.State() != DragCancelled {
		t.Errorf("State() = %v, want cancelled", d.State())
	}
	if len(f.changes) != 0 {
		t.Error("OnLayoutChange fired for a cancelled drag")
	}
}

func TestDragRejectsSecondGesture(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	d := NewDrag(f.cfg)
	r := NewResize(f.cfg, ResizeOptions{})
	ctx := context.Background()

	if _, err := d.Start(ctx, "A"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := d.Start(ctx, "B"); !errors.Is(err, errors.ErrCodeGestureInProgress) {
		t.Errorf("second drag error = %v, want GESTURE_IN_PROGRESS", err)
	}
	if _, err := r.Start(ctx, "B", HandleEast, 0, 0); !errors.Is(err, errors.ErrCodeGestureInProgress) {
		t.Errorf("resize during drag error = %v, want GESTURE_IN_PROGRESS", err)
	}

	d.Cancel(ctx)
	if d.State() != DragCancelled {
		t.Errorf("State() = %v, want cancelled", d.State())
	}
	if _, err := d.Start(ctx, "B"); err != nil {
		t.Errorf("Start after cancel: %v", err)
	}
}

func TestDropWithoutStart(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	d := NewDrag(f.cfg)

	if _, err := d.Drop(context.Background(), 0, 0); !errors.Is(err, errors.ErrCodeNoGesture) {
		t.Errorf("Drop() error = %v, want NO_GESTURE", err)
	}
}

func TestDragDegradedPlacement(t *testing.T) {
	// A widget wider than the grid can never fit a candidate slot.
	l := grid.Layout{Columns: 4, Widgets: []grid.Widget{
		{ID: "wide", Row: 0, Col: 0, Width: 5, Height: 1, Visible: true},
	}}
	f := newFixture(t, l)
	d := NewDrag(f.cfg)

	got, err := d.Move(context.Background(), "wide", 0, 0)
	if !errors.Is(err, errors.ErrCodePlacementExhausted) || !errors.Degraded(err) {
		t.Fatalf("Move() error = %v, want degraded PLACEMENT_EXHAUSTED", err)
	}
	if d.State() != DragCommitted {
		t.Errorf("State() = %v, want committed", d.State())
	}
	w, _ := got.Widget("wide")
	if w.Row != 1 || w.Col != 0 {
		t.Errorf("wide = (%d,%d), want bottom fallback (1,0)", w.Row, w.Col)
	}
}

// =============================================================================
// Resize
// =============================================================================

func TestResizeScenarioGrowsEast(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	r := NewResize(f.cfg, ResizeOptions{})

	if _, err := r.ResizeBy(context.Background(), "B", HandleEast, DefaultWidthSensitivity, 0); err != nil {
		t.Fatalf("ResizeBy: %v", err)
	}
	b := f.widget(t, "B")
	want := grid.Widget{ID: "B", Row: 0, Col: 2, Width: 3, Height: 1, Visible: true}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Errorf("B mismatch (-want +got):\n%s", diff)
	}
}

func TestResizeAcceptsOverlapByDefault(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	r := NewResize(f.cfg, ResizeOptions{})

	if _, err := r.ResizeBy(context.Background(), "A", HandleEast, 2*DefaultWidthSensitivity, 0); err != nil {
		t.Fatalf("ResizeBy: %v", err)
	}
	if a := f.widget(t, "A"); a.Width != 4 || a.Row != 0 || a.Col != 0 {
		t.Errorf("A = %+v, want width 4 in place", a)
	}
}

func TestResizeSizing(t *testing.T) {
	tests := []struct {
		name          string
		handle        Handle
		dx, dy        float64
		width, height int
	}{
		{"east grows width only", HandleEast, 400, 300, 4, 1},
		{"south grows height only", HandleSouth, 400, 300, 2, 3},
		{"south-east grows both", HandleSouthEast, 200, 150, 3, 2},
		{"below half a unit rounds down", HandleEast, 99, 0, 2, 1},
		{"half a unit rounds up", HandleEast, 100, 0, 3, 1},
		{"width floor", HandleEast, -10000, 0, 1, 1},
		{"height floor", HandleSouthEast, -10000, -10000, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, scenarioLayout())
			r := NewResize(f.cfg, ResizeOptions{})

			if _, err := r.ResizeBy(context.Background(), "A", tt.handle, tt.dx, tt.dy); err != nil {
				t.Fatalf("ResizeBy: %v", err)
			}
			a := f.widget(t, "A")
			if a.Width != tt.width || a.Height != tt.height {
				t.Errorf("A = %dx%d, want %dx%d", a.Width, a.Height, tt.width, tt.height)
			}
			if a.Row != 0 || a.Col != 0 {
				t.Errorf("resize moved A to (%d,%d)", a.Row, a.Col)
			}
		})
	}
}

func TestResizeCustomSensitivity(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	r := NewResize(f.cfg, ResizeOptions{WidthSensitivity: 50, HeightSensitivity: 50})

	if _, err := r.ResizeBy(context.Background(), "C", HandleSouthEast, 100, 50); err != nil {
		t.Fatalf("ResizeBy: %v", err)
	}
	if c := f.widget(t, "C"); c.Width != 3 || c.Height != 2 {
		t.Errorf("C = %dx%d, want 3x2", c.Width, c.Height)
	}
}

func TestResizeStrictRejectsOverlap(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	r := NewResize(f.cfg, ResizeOptions{Strict: true})
	ctx := context.Background()

	s, err := r.Start(ctx, "A", HandleEast, 0, 0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Release(ctx)

	if _, err := s.Move(ctx, DefaultWidthSensitivity, 0); !errors.Is(err, errors.ErrCodeOverlap) {
		t.Errorf("Move() error = %v, want OVERLAP", err)
	}
	if w, h := s.Size(); w != 2 || h != 1 {
		t.Errorf("Size() = %dx%d, want unchanged 2x1", w, h)
	}

	// Growing south into free space is still allowed.
	s2 := NewResize(f.cfg, ResizeOptions{Strict: true})
	s.Release(ctx)
	if _, err := s2.ResizeBy(ctx, "C", HandleSouth, 0, DefaultHeightSensitivity); err != nil {
		t.Errorf("strict south resize: %v", err)
	}
	if err := grid.Validate(f.layout(t)); err != nil {
		t.Errorf("strict resize broke the layout: %v", err)
	}
}

func TestResizeAppliesLiveAndReleaseIsIdempotent(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	r := NewResize(f.cfg, ResizeOptions{})
	ctx := context.Background()

	s, err := r.Start(ctx, "C", HandleSouth, 10, 10)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Move(ctx, 10, 10+2*DefaultHeightSensitivity); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if c := f.widget(t, "C"); c.Height != 3 {
		t.Errorf("height after move = %d, want live update to 3", c.Height)
	}

	first, err := s.Release(ctx)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	second, err := s.Release(ctx)
	if err != nil {
		t.Fatalf("second Release: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second Release changed the result:\n%s", diff)
	}
	if _, err := s.Move(ctx, 0, 0); !errors.Is(err, errors.ErrCodeNoGesture) {
		t.Errorf("Move after Release error = %v, want NO_GESTURE", err)
	}
	if _, active := f.cfg.Guard.Active(); active {
		t.Error("guard still held after Release")
	}
}

func TestResizeStartErrors(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	r := NewResize(f.cfg, ResizeOptions{})
	ctx := context.Background()

	if _, err := r.Start(ctx, "ghost", HandleEast, 0, 0); !errors.Is(err, errors.ErrCodeUnknownWidget) {
		t.Errorf("unknown widget error = %v", err)
	}
	if _, err := r.Start(ctx, "A", "nw", 0, 0); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad handle error = %v", err)
	}
	if _, active := f.cfg.Guard.Active(); active {
		t.Error("failed starts must not hold the guard")
	}
}

func TestResizeRunReleasesOnClose(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	r := NewResize(f.cfg, ResizeOptions{})

	moves := make(chan Point, 3)
	moves <- Point{X: 100, Y: 0}
	moves <- Point{X: 200, Y: 0}
	moves <- Point{X: 400, Y: 0}
	close(moves)

	l, err := r.Run(context.Background(), "C", HandleEast, Point{}, moves)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	c, _ := l.Widget("C")
	if c.Width != 3 {
		t.Errorf("C width = %d, want 3", c.Width)
	}
	if _, active := f.cfg.Guard.Active(); active {
		t.Error("guard still held after Run")
	}
}

func TestResizeRunReleasesOnPanic(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	f.cfg.OnLayoutChange = func(grid.Layout) { panic("listener blew up") }
	r := NewResize(f.cfg, ResizeOptions{})

	moves := make(chan Point, 1)
	moves <- Point{X: 200, Y: 0}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the panic to propagate")
			}
		}()
		_, _ = r.Run(context.Background(), "C", HandleEast, Point{}, moves)
	}()

	if _, active := f.cfg.Guard.Active(); active {
		t.Error("guard still held after a panicking move")
	}
	if c := f.widget(t, "C"); c.Width != 2 {
		t.Errorf("C width = %d, want last computed size 2 committed", c.Width)
	}
}

func TestResizeRunStopsOnContextCancel(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	r := NewResize(f.cfg, ResizeOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	moves := make(chan Point)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Run(ctx, "C", HandleEast, Point{}, moves)
	}()
	moves <- Point{X: 200}
	cancel()
	<-done

	if _, active := f.cfg.Guard.Active(); active {
		t.Error("guard still held after cancel")
	}
	if c := f.widget(t, "C"); c.Width != 2 {
		t.Errorf("C width = %d, want 2", c.Width)
	}
}

// =============================================================================
// Visibility / Reset
// =============================================================================

func TestToggleTwiceRestoresWidget(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	v := NewVisibility(f.cfg, "test")
	ctx := context.Background()
	before := f.widget(t, "A")

	l, err := v.Toggle(ctx, "A")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if a, _ := l.Widget("A"); a.Visible {
		t.Error("A should be hidden after the first toggle")
	}
	if _, err := v.Toggle(ctx, "A"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	if diff := cmp.Diff(before, f.widget(t, "A")); diff != "" {
		t.Errorf("A changed after toggling twice (-before +after):\n%s", diff)
	}
	if len(f.changes) != 2 {
		t.Errorf("OnLayoutChange fired %d times, want 2", len(f.changes))
	}
}

func TestToggleUnknownWidget(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	v := NewVisibility(f.cfg, "test")

	if _, err := v.Toggle(context.Background(), "ghost"); !errors.Is(err, errors.ErrCodeUnknownWidget) {
		t.Errorf("Toggle() error = %v, want UNKNOWN_WIDGET_ID", err)
	}
}

func TestSetVisible(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	v := NewVisibility(f.cfg, "test")
	ctx := context.Background()

	if _, err := v.SetVisible(ctx, "B", true); err != nil {
		t.Fatalf("SetVisible: %v", err)
	}
	if len(f.changes) != 0 {
		t.Error("no-op SetVisible should not fire OnLayoutChange")
	}
	if _, err := v.SetVisible(ctx, "B", false); err != nil {
		t.Fatalf("SetVisible: %v", err)
	}
	if f.widget(t, "B").Visible {
		t.Error("B should be hidden")
	}
}

func TestShowOverCoveredRectangle(t *testing.T) {
	for _, strict := range []bool{false, true} {
		t.Run(fmt.Sprintf("strict=%v", strict), func(t *testing.T) {
			f := newFixture(t, scenarioLayout())
			f.cfg.Strict = strict
			v := NewVisibility(f.cfg, "test")
			d := NewDrag(f.cfg)
			ctx := context.Background()

			if _, err := v.Toggle(ctx, "A"); err != nil {
				t.Fatal(err)
			}
			if _, err := d.Move(ctx, "C", 0, 0); err != nil {
				t.Fatalf("Move: %v", err)
			}

			_, err := v.Toggle(ctx, "A")
			if !strict {
				if err != nil {
					t.Fatalf("Toggle: %v", err)
				}
				if !f.widget(t, "A").Visible {
					t.Error("A should be shown when not strict")
				}
				return
			}
			if !errors.Is(err, errors.ErrCodeOverlap) {
				t.Errorf("Toggle() error = %v, want OVERLAP", err)
			}
			if f.widget(t, "A").Visible {
				t.Error("A was shown over C in strict mode")
			}
			if len(grid.Collisions(f.layout(t))) != 0 {
				t.Error("strict show left overlapping widgets")
			}
		})
	}
}

func TestResetRestoresDefault(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	d := NewDrag(f.cfg)
	v := NewVisibility(f.cfg, "test")
	ctx := context.Background()
	want := scenarioLayout()

	for _, mv := range []struct {
		id       string
		row, col int
	}{{"A", 5, 0}, {"B", 6, 1}, {"C", 0, 3}} {
		if _, err := d.Move(ctx, mv.id, mv.row, mv.col); err != nil {
			t.Fatalf("Move %s: %v", mv.id, err)
		}
	}
	if _, err := v.Toggle(ctx, "B"); err != nil {
		t.Fatal(err)
	}

	if err := v.Reset(ctx, "desktop"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if diff := cmp.Diff(want, f.layout(t)); diff != "" {
		t.Errorf("reset mismatch (-want +got):\n%s", diff)
	}
	if got := f.changes[len(f.changes)-1]; cmp.Diff(want, got) != "" {
		t.Error("OnLayoutChange did not receive the reset layout")
	}
}

func TestResetTargets(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	v := NewVisibility(f.cfg, "test")
	ctx := context.Background()

	if err := v.Reset(ctx, "ALL"); err != nil {
		t.Errorf("Reset(all): %v", err)
	}
	if err := v.Reset(ctx, "Tablet"); err != nil {
		t.Errorf("Reset(tablet): %v", err)
	}
	if err := v.Reset(ctx, "watch"); !errors.Is(err, errors.ErrCodeInvalidBreakpoint) {
		t.Errorf("Reset(watch) error = %v, want INVALID_BREAKPOINT", err)
	}
}

func TestControllersFollowBreakpointSource(t *testing.T) {
	f := newFixture(t, scenarioLayout())
	sig := breakpoint.NewSignal(breakpoint.NewClassifier(breakpoint.Thresholds{}), breakpoint.Desktop)
	defer sig.Close()
	f.cfg.Source = sig
	v := NewVisibility(f.cfg, "test")
	ctx := context.Background()

	sig.Update(500)
	if _, err := v.Toggle(ctx, "A"); !errors.Is(err, errors.ErrCodeUnknownWidget) {
		t.Errorf("mobile layout is empty, Toggle error = %v", err)
	}

	sig.Update(1600)
	if _, err := v.Toggle(ctx, "A"); err != nil {
		t.Errorf("desktop Toggle: %v", err)
	}
}
