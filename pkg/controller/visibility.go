package controller

import (
	"context"
	"strings"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/observability"
)

// ResetAll is the reset target that restores every breakpoint.
const ResetAll = "all"

// Visibility shows, hides and resets widgets.
type Visibility struct {
	cfg  Config
	page string
}

// NewVisibility creates a visibility controller. page only labels
// diagnostics.
func NewVisibility(cfg Config, page string) *Visibility {
	return &Visibility{cfg: cfg.withDefaults(), page: page}
}

// Toggle flips the visibility of widget id on the active breakpoint.
// Geometry is left untouched, so hiding and showing again restores the
// widget exactly where it was.
func (v *Visibility) Toggle(ctx context.Context, id string) (grid.Layout, error) {
	bp := v.cfg.Source.Current()
	l, err := v.cfg.Store.Get(ctx, bp)
	if err != nil {
		return grid.Layout{}, err
	}
	w, ok := l.Widget(id)
	if !ok {
		v.cfg.Logger.Warn("toggle of unknown widget ignored", "widget", id, "code", errors.ErrCodeUnknownWidget)
		return grid.Layout{}, errors.New(errors.ErrCodeUnknownWidget, "widget %q is not in the %s layout", id, bp)
	}
	return v.setVisible(ctx, bp, l, w, !w.Visible)
}

// SetVisible shows or hides widget id on the active breakpoint.
func (v *Visibility) SetVisible(ctx context.Context, id string, visible bool) (grid.Layout, error) {
	bp := v.cfg.Source.Current()
	l, err := v.cfg.Store.Get(ctx, bp)
	if err != nil {
		return grid.Layout{}, err
	}
	w, ok := l.Widget(id)
	if !ok {
		return grid.Layout{}, errors.New(errors.ErrCodeUnknownWidget, "widget %q is not in the %s layout", id, bp)
	}
	if w.Visible == visible {
		return l, nil
	}
	return v.setVisible(ctx, bp, l, w, visible)
}

func (v *Visibility) setVisible(ctx context.Context, bp breakpoint.Breakpoint, l grid.Layout, w grid.Widget, visible bool) (grid.Layout, error) {
	if visible && v.cfg.Strict && grid.IsOccupied(l.Widgets, w.Rect(), w.ID) {
		return l, errors.New(errors.ErrCodeOverlap,
			"showing %q at (%d,%d) would overlap another widget", w.ID, w.Row, w.Col)
	}
	next, err := v.cfg.Store.MutateWidget(ctx, bp, w.ID, grid.SetVisible(visible))
	if err != nil {
		return grid.Layout{}, err
	}
	if visible && grid.IsOccupied(next.Widgets, w.Rect(), w.ID) {
		v.cfg.Logger.Warn("shown widget overlaps another widget", "widget", w.ID, "breakpoint", bp)
	}
	v.cfg.Logger.Debug("visibility changed", "widget", w.ID, "visible", visible, "breakpoint", bp)
	v.cfg.changed(next)
	return next, nil
}

// Reset replaces layouts with their defaults. target is a breakpoint name
// or "all". Reset is destructive and asks for no confirmation.
func (v *Visibility) Reset(ctx context.Context, target string) error {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == ResetAll {
		if err := v.cfg.Store.ResetAll(ctx); err != nil {
			return err
		}
	} else {
		bp, err := breakpoint.Parse(target)
		if err != nil {
			return err
		}
		if err := v.cfg.Store.Reset(ctx, bp); err != nil {
			return err
		}
	}
	observability.Layout().OnReset(ctx, v.page, target)
	v.cfg.Logger.Info("layout reset", "page", v.page, "target", target)

	l, err := v.cfg.Store.Get(ctx, v.cfg.Source.Current())
	if err != nil {
		return err
	}
	v.cfg.changed(l)
	return nil
}
