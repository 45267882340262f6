package controller

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/observability"
)

// Default pointer distance, in pixels, that corresponds to one grid unit.
const (
	DefaultWidthSensitivity  = 200.0
	DefaultHeightSensitivity = 150.0
)

// Handle is the edge or corner a resize grabs.
type Handle string

const (
	HandleEast      Handle = "e"
	HandleSouth     Handle = "s"
	HandleSouthEast Handle = "se"
)

// ParseHandle validates a handle name.
func ParseHandle(s string) (Handle, error) {
	switch h := Handle(strings.ToLower(s)); h {
	case HandleEast, HandleSouth, HandleSouthEast:
		return h, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid resize handle %q (want e, s or se)", s)
}

func (h Handle) east() bool  { return strings.Contains(string(h), "e") }
func (h Handle) south() bool { return strings.Contains(string(h), "s") }

// ResizeOptions tunes the resize controller.
type ResizeOptions struct {
	// WidthSensitivity and HeightSensitivity are the pointer distances in
	// pixels per grid unit. Zero selects the defaults.
	WidthSensitivity  float64 `toml:"width_sensitivity"`
	HeightSensitivity float64 `toml:"height_sensitivity"`

	// Strict rejects any step whose rectangle would overlap another visible
	// widget with OVERLAP, keeping the last accepted size. By default
	// overlap produced by a resize is accepted. The engine applies the same
	// setting to showing hidden widgets, see [Config.Strict].
	Strict bool `toml:"strict"`
}

func (o ResizeOptions) withDefaults() ResizeOptions {
	if o.WidthSensitivity <= 0 {
		o.WidthSensitivity = DefaultWidthSensitivity
	}
	if o.HeightSensitivity <= 0 {
		o.HeightSensitivity = DefaultHeightSensitivity
	}
	return o
}

// Resize converts pointer drags on a widget handle into size changes.
type Resize struct {
	cfg  Config
	opts ResizeOptions
}

// NewResize creates a resize controller.
func NewResize(cfg Config, opts ResizeOptions) *Resize {
	return &Resize{cfg: cfg.withDefaults(), opts: opts.withDefaults()}
}

// Options returns the effective options.
func (r *Resize) Options() ResizeOptions { return r.opts }

// Point is a pointer position in pixels.
type Point struct {
	X, Y float64
}

// Session is one resize gesture, Idle -> Resizing -> Committed.
//
// There is no cancel: Release always commits the last computed size. The
// session holds the gesture guard until Release, so callers must release on
// every exit path:
//
//	s, err := r.Start(ctx, id, grid.HandleEast, x, y)
//	if err != nil { ... }
//	defer s.Release(ctx)
type Session struct {
	r       *Resize
	gesture Gesture
	handle  Handle
	origin  Point
	orig    grid.Widget

	mu     sync.Mutex
	width  int
	height int
	layout grid.Layout
	done   bool
}

// Start begins resizing widget id from pointer position (x, y).
func (r *Resize) Start(ctx context.Context, id string, handle Handle, x, y float64) (*Session, error) {
	if _, err := ParseHandle(string(handle)); err != nil {
		return nil, err
	}
	bp := r.cfg.Source.Current()
	l, err := r.cfg.Store.Get(ctx, bp)
	if err != nil {
		return nil, err
	}
	w, ok := l.Widget(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownWidget, "widget %q is not in the %s layout", id, bp)
	}

	gs, err := r.cfg.Guard.Acquire(KindResize, id, bp)
	if err != nil {
		return nil, err
	}
	observability.Layout().OnGestureStart(ctx, string(KindResize), id)
	r.cfg.Logger.Debug("resize started", "gesture", gs.ID, "widget", id, "handle", handle)

	return &Session{
		r:       r,
		gesture: gs,
		handle:  handle,
		origin:  Point{X: x, Y: y},
		orig:    w,
		width:   w.Width,
		height:  w.Height,
		layout:  l,
	}, nil
}

// Gesture returns the gesture this session belongs to.
func (s *Session) Gesture() Gesture { return s.gesture }

// Size returns the last computed width and height.
func (s *Session) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// sizeAt computes the size for a pointer at p.
func (s *Session) sizeAt(p Point) (width, height int) {
	width, height = s.orig.Width, s.orig.Height
	if s.handle.east() {
		dx := p.X - s.origin.X
		width = max(1, s.orig.Width+int(math.Round(dx/s.r.opts.WidthSensitivity)))
	}
	if s.handle.south() {
		dy := p.Y - s.origin.Y
		height = max(1, s.orig.Height+int(math.Round(dy/s.r.opts.HeightSensitivity)))
	}
	return width, height
}

// Move applies the size for the pointer at (x, y) immediately. The widget
// never moves. In strict mode a size that would overlap another visible
// widget is rejected with OVERLAP and the previous size is kept.
func (s *Session) Move(ctx context.Context, x, y float64) (grid.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return grid.Layout{}, errors.New(errors.ErrCodeNoGesture, "resize already released")
	}

	width, height := s.sizeAt(Point{X: x, Y: y})
	if width == s.width && height == s.height {
		return s.layout.Clone(), nil
	}
	if s.r.opts.Strict {
		rect := grid.Rect{Row: s.orig.Row, Col: s.orig.Col, Width: width, Height: height}
		if rect.Right() > s.layout.Columns || grid.IsOccupied(s.layout.Widgets, rect, s.orig.ID) {
			return s.layout.Clone(), errors.New(errors.ErrCodeOverlap,
				"resizing %q to %dx%d would overlap", s.orig.ID, width, height)
		}
	}

	l, err := s.r.cfg.Store.MutateWidget(ctx, s.gesture.Breakpoint, s.orig.ID, grid.ResizeTo(width, height))
	if err != nil {
		return s.layout.Clone(), err
	}
	s.width, s.height, s.layout = width, height, l
	s.r.cfg.changed(l)
	return l.Clone(), nil
}

// Release commits the last computed size and ends the gesture. Calling it
// again is a no-op that returns the committed layout.
func (s *Session) Release(ctx context.Context) (grid.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return s.layout.Clone(), nil
	}
	s.done = true

	var err error
	if s.width != s.orig.Width || s.height != s.orig.Height {
		var l grid.Layout
		l, err = s.r.cfg.Store.MutateWidget(ctx, s.gesture.Breakpoint, s.orig.ID, grid.ResizeTo(s.width, s.height))
		if err == nil {
			s.layout = l
		}
	}
	endGesture(ctx, s.r.cfg.Guard, s.gesture, err)
	if err != nil {
		s.r.cfg.Logger.Error("resize commit failed", "gesture", s.gesture.ID, "widget", s.orig.ID, "err", err)
		return s.layout.Clone(), err
	}
	s.r.cfg.Logger.Info("widget resized", "gesture", s.gesture.ID, "widget", s.orig.ID,
		"from", [2]int{s.orig.Width, s.orig.Height}, "to", [2]int{s.width, s.height})
	return s.layout.Clone(), nil
}

// Run drives a whole resize from a stream of pointer positions. It starts
// at origin, applies every position received on moves, and commits when
// moves is closed or ctx is done. The gesture is released on every path,
// including a panic in a change callback.
//
// Step errors such as a strict-mode OVERLAP do not end the gesture; the
// last one is returned if the commit itself succeeds.
func (r *Resize) Run(ctx context.Context, id string, handle Handle, origin Point, moves <-chan Point) (l grid.Layout, err error) {
	s, err := r.Start(ctx, id, handle, origin.X, origin.Y)
	if err != nil {
		return grid.Layout{}, err
	}
	defer func() {
		committed, releaseErr := s.Release(context.WithoutCancel(ctx))
		l = committed
		if releaseErr != nil {
			err = releaseErr
		}
	}()

	var stepErr error
	for {
		select {
		case <-ctx.Done():
			return grid.Layout{}, stepErr
		case p, ok := <-moves:
			if !ok {
				return grid.Layout{}, stepErr
			}
			if _, err := s.Move(ctx, p.X, p.Y); err != nil {
				stepErr = err
			}
		}
	}
}

// ResizeBy is a complete resize of id by a pointer delta (dx, dy): Start,
// one Move, Release.
func (r *Resize) ResizeBy(ctx context.Context, id string, handle Handle, dx, dy float64) (grid.Layout, error) {
	s, err := r.Start(ctx, id, handle, 0, 0)
	if err != nil {
		return grid.Layout{}, err
	}
	_, moveErr := s.Move(ctx, dx, dy)
	l, err := s.Release(ctx)
	if err != nil {
		return l, err
	}
	return l, moveErr
}
