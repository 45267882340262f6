// Package store holds the authoritative widget layouts and persists them.
//
// Two variants implement the [Store] contract:
//
//   - [LocalStore] owns the layouts of a single page and persists them under
//     that page's key.
//   - [Registry] is the process-wide page registry of shared mode. Each page
//     is reached through [Registry.ForPage], which returns a Store scoped to
//     that page. The registry persists every page as one blob and also keeps
//     the session's global breakpoint.
//
// Both variants start from the hard-coded defaults of a [grid.Catalog],
// materialise a default when a layout is missing, and hand out deep copies
// so callers can never alias stored state.
//
// Stores serialise access with a mutex. The engine itself is single-threaded,
// but the HTTP server calls in from request goroutines.
package store

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/store/backend"
)

// Store is the read/write contract shared by local and shared layouts.
//
// All methods return deep copies; reads observe every preceding write.
// A failed call leaves the stored layout unchanged.
type Store interface {
	// Get returns the layout for bp, materialising the default if absent.
	Get(ctx context.Context, bp breakpoint.Breakpoint) (grid.Layout, error)

	// Replace atomically swaps the whole layout for bp.
	Replace(ctx context.Context, bp breakpoint.Breakpoint, l grid.Layout) error

	// MutateWidget applies p to exactly one widget and returns the new
	// layout. An unknown id fails with UNKNOWN_WIDGET_ID.
	MutateWidget(ctx context.Context, bp breakpoint.Breakpoint, id string, p grid.Patch) (grid.Layout, error)

	// Reset replaces the layout for bp with its default.
	Reset(ctx context.Context, bp breakpoint.Breakpoint) error

	// ResetAll replaces every breakpoint's layout with its default.
	ResetAll(ctx context.Context) error
}

// ChangeFunc is called after a committed mutation with the new layout.
type ChangeFunc func(bp breakpoint.Breakpoint, l grid.Layout)

// Options configures a store.
type Options struct {
	// Logger receives diagnostics. Nil selects log.Default().
	Logger *log.Logger

	// Keyer names the backend keys. Nil selects backend.NewDefaultKeyer().
	Keyer backend.Keyer
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Keyer == nil {
		o.Keyer = backend.NewDefaultKeyer()
	}
	return o
}

// checkBreakpoint rejects anything but the three known breakpoints.
func checkBreakpoint(bp breakpoint.Breakpoint) error {
	if !bp.Valid() {
		return errors.New(errors.ErrCodeInvalidBreakpoint, "invalid breakpoint %q", bp)
	}
	return nil
}

// checkReplacement validates a full layout handed to Replace.
func checkReplacement(bp breakpoint.Breakpoint, l grid.Layout) error {
	if l.Columns != bp.Columns() {
		return errors.New(errors.ErrCodeInvalidInput, "%s layout must have %d columns, got %d", bp, bp.Columns(), l.Columns)
	}
	return grid.Validate(l)
}

// applyPatch returns l with p applied to widget id. It checks only the
// structural constraints of the patched widget; collision policy is the
// caller's business.
func applyPatch(l grid.Layout, id string, p grid.Patch) (grid.Layout, error) {
	i := l.Index(id)
	if i < 0 {
		return grid.Layout{}, errors.New(errors.ErrCodeUnknownWidget, "unknown widget %q", id)
	}
	w := p.Apply(l.Widgets[i])
	if w.Row < 0 || w.Col < 0 {
		return grid.Layout{}, errors.New(errors.ErrCodeInvalidInput, "widget %q cannot move to (%d,%d)", id, w.Row, w.Col)
	}
	if w.Width < 1 || w.Height < 1 {
		return grid.Layout{}, errors.New(errors.ErrCodeInvalidInput, "widget %q must be at least 1x1, got %dx%d", id, w.Width, w.Height)
	}
	out := l.Clone()
	out.Widgets[i] = w
	return out, nil
}

// usable reports whether a loaded layout can be served for bp. Layouts with
// a foreign column count are treated as missing.
func usable(bp breakpoint.Breakpoint, l grid.Layout) bool {
	return l.Columns == bp.Columns() && grid.ValidateShape(l) == nil
}
