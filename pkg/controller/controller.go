// Package controller turns user gestures into layout mutations.
//
// Three controllers share one [Config]:
//
//   - [Drag] relocates a widget through the placement search
//   - [Resize] converts pointer deltas into grid-unit size changes
//   - [Visibility] toggles widgets and resets layouts to defaults
//
// Drag and resize are explicit state machines. They share a [Guard] so that
// only one gesture can be in progress per store; a second start is rejected
// with GESTURE_IN_PROGRESS. Controllers depend only on the [store.Store]
// contract and commit every change through MutateWidget, Reset or ResetAll.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/observability"
	"github.com/matzehuels/gridkit/pkg/store"
)

// Config wires a controller to its collaborators.
type Config struct {
	// Store receives every committed mutation. Required.
	Store store.Store

	// Source names the active breakpoint. Nil selects breakpoint.Desktop.
	Source breakpoint.Source

	// Guard enforces one gesture at a time. Controllers built from the same
	// Config value share it; nil allocates a private guard.
	Guard *Guard

	// Logger receives diagnostics. Nil selects log.Default().
	Logger *log.Logger

	// Strict makes Visibility refuse to show a widget whose remembered
	// rectangle is now covered by another visible widget.
	Strict bool

	// OnLayoutChange is called after every committed mutation with the full
	// layout of the active breakpoint.
	OnLayoutChange func(grid.Layout)
}

func (c Config) withDefaults() Config {
	if c.Source == nil {
		c.Source = breakpoint.Fixed(breakpoint.Desktop)
	}
	if c.Guard == nil {
		c.Guard = &Guard{}
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

func (c Config) changed(l grid.Layout) {
	if c.OnLayoutChange != nil {
		c.OnLayoutChange(l.Clone())
	}
}

// Kind names a gesture type.
type Kind string

const (
	KindDrag   Kind = "drag"
	KindResize Kind = "resize"
)

// Gesture identifies one in-progress drag or resize.
type Gesture struct {
	ID         string
	Kind       Kind
	WidgetID   string
	Breakpoint breakpoint.Breakpoint
	Started    time.Time
}

// Guard allows at most one active gesture.
type Guard struct {
	mu     sync.Mutex
	active *Gesture
}

// Acquire starts a gesture or fails with GESTURE_IN_PROGRESS.
func (g *Guard) Acquire(kind Kind, widgetID string, bp breakpoint.Breakpoint) (Gesture, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil {
		return Gesture{}, errors.New(errors.ErrCodeGestureInProgress,
			"%s of %q already in progress", g.active.Kind, g.active.WidgetID)
	}
	gs := Gesture{
		ID:         uuid.NewString(),
		Kind:       kind,
		WidgetID:   widgetID,
		Breakpoint: bp,
		Started:    time.Now(),
	}
	g.active = &gs
	return gs, nil
}

// Release ends the gesture with the given id. Releasing a gesture that is
// not active does nothing, so release is safe on every exit path.
func (g *Guard) Release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil && g.active.ID == id {
		g.active = nil
	}
}

// Active returns the gesture in progress, if any.
func (g *Guard) Active() (Gesture, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		return Gesture{}, false
	}
	return *g.active, true
}

// endGesture releases gs and reports it to the observability hooks.
func endGesture(ctx context.Context, g *Guard, gs Gesture, err error) {
	g.Release(gs.ID)
	observability.Layout().OnGestureEnd(ctx, string(gs.Kind), gs.WidgetID, time.Since(gs.Started), err)
}
