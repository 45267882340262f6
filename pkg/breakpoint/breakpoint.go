// Package breakpoint classifies viewport widths into the three grid
// configurations used by the layout engine.
//
// Each [Breakpoint] has a fixed column count (mobile 1, tablet 2, desktop 4)
// and a [Density] describing gap, row height and padding for renderers.
//
// A [Classifier] is a pure width-to-breakpoint mapping. A [Signal] wraps a
// classifier with one authoritative value per session and broadcasts changes
// to subscribers, which is how shared-store consumers agree on the active
// breakpoint.
package breakpoint

import (
	"strings"

	"github.com/matzehuels/gridkit/pkg/errors"
)

// Breakpoint names one of the three viewport size classes.
type Breakpoint string

// Supported breakpoints.
const (
	Mobile  Breakpoint = "mobile"
	Tablet  Breakpoint = "tablet"
	Desktop Breakpoint = "desktop"
)

// All lists the breakpoints from narrowest to widest.
var All = []Breakpoint{Mobile, Tablet, Desktop}

// Columns returns the fixed grid column count for b.
// Unknown breakpoints return 0.
func (b Breakpoint) Columns() int {
	switch b {
	case Mobile:
		return 1
	case Tablet:
		return 2
	case Desktop:
		return 4
	}
	return 0
}

// Valid reports whether b is one of the supported breakpoints.
func (b Breakpoint) Valid() bool { return b.Columns() > 0 }

func (b Breakpoint) String() string { return string(b) }

// Parse converts a name into a Breakpoint, ignoring case and surrounding space.
func Parse(s string) (Breakpoint, error) {
	b := Breakpoint(strings.ToLower(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", errors.New(errors.ErrCodeInvalidBreakpoint, "unknown breakpoint %q (want mobile, tablet or desktop)", s)
	}
	return b, nil
}

// Density holds the visual spacing parameters of a breakpoint, in pixels.
type Density struct {
	Gap           int `json:"gap" toml:"gap"`
	MinRowHeight  int `json:"min_row_height" toml:"min_row_height"`
	Padding       int `json:"padding" toml:"padding"`
	WidgetPadding int `json:"widget_padding" toml:"widget_padding"`
}

// Density returns the default spacing for b.
func (b Breakpoint) Density() Density {
	switch b {
	case Mobile:
		return Density{Gap: 12, MinRowHeight: 200, Padding: 8, WidgetPadding: 8}
	case Tablet:
		return Density{Gap: 16, MinRowHeight: 220, Padding: 12, WidgetPadding: 12}
	default:
		return Density{Gap: 24, MinRowHeight: 240, Padding: 16, WidgetPadding: 16}
	}
}

// Thresholds are the exclusive upper widths of the narrow breakpoints.
// Widths below Mobile classify as mobile, below Tablet as tablet, and
// everything else as desktop.
type Thresholds struct {
	Mobile int `json:"mobile" toml:"mobile"`
	Tablet int `json:"tablet" toml:"tablet"`
}

// DefaultThresholds are the cut points used when none are configured.
var DefaultThresholds = Thresholds{Mobile: 768, Tablet: 1024}

// Validate checks that the thresholds are positive and ordered.
func (t Thresholds) Validate() error {
	if t.Mobile <= 0 || t.Tablet <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "breakpoint thresholds must be positive (mobile=%d, tablet=%d)", t.Mobile, t.Tablet)
	}
	if t.Mobile >= t.Tablet {
		return errors.New(errors.ErrCodeInvalidInput, "mobile threshold %d must be below tablet threshold %d", t.Mobile, t.Tablet)
	}
	return nil
}

// Classifier maps viewport widths to breakpoints.
type Classifier struct {
	Thresholds Thresholds
}

// NewClassifier returns a classifier using t, or [DefaultThresholds] when t is zero.
func NewClassifier(t Thresholds) Classifier {
	if t == (Thresholds{}) {
		t = DefaultThresholds
	}
	return Classifier{Thresholds: t}
}

// Classify returns the breakpoint for a viewport width in pixels.
func (c Classifier) Classify(width int) Breakpoint {
	t := c.Thresholds
	if t == (Thresholds{}) {
		t = DefaultThresholds
	}
	switch {
	case width < t.Mobile:
		return Mobile
	case width < t.Tablet:
		return Tablet
	default:
		return Desktop
	}
}

// Source supplies the currently active breakpoint.
type Source interface {
	Current() Breakpoint
}

// Fixed is a Source that always reports the same breakpoint. It is the
// per-instance value used outside shared mode.
type Fixed Breakpoint

// Current returns the fixed breakpoint.
func (f Fixed) Current() Breakpoint { return Breakpoint(f) }
