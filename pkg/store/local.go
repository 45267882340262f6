package store

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/observability"
	"github.com/matzehuels/gridkit/pkg/store/backend"
)

// LocalStore holds the layouts of a single page.
//
// The whole layout set is loaded once at construction and written back on
// every committed mutation under the page key.
type LocalStore struct {
	mu       sync.Mutex
	page     string
	key      string
	set      grid.LayoutSet
	defaults grid.LayoutSet
	backend  backend.Backend
	logger   *log.Logger
	onChange []ChangeFunc
}

// NewLocal creates a store for page, seeded from defaults and overlaid with
// whatever b has saved for the page. A missing or unreadable blob is not an
// error: the affected breakpoints fall back to defaults and a warning is
// logged.
func NewLocal(ctx context.Context, page string, defaults grid.LayoutSet, b backend.Backend, opts Options) (*LocalStore, error) {
	if err := errors.ValidatePageID(page); err != nil {
		return nil, err
	}
	if b == nil {
		b = backend.NewNull()
	}
	opts = opts.withDefaults()

	s := &LocalStore{
		page:     page,
		key:      opts.Keyer.PageKey(page),
		defaults: defaults.Clone(),
		backend:  b,
		logger:   opts.Logger.With("page", page),
	}
	s.set = s.load(ctx)
	return s, nil
}

// load reads the saved set and fills every missing breakpoint from defaults.
func (s *LocalStore) load(ctx context.Context) grid.LayoutSet {
	out := s.defaults.Clone()

	start := time.Now()
	data, ok, err := s.backend.Load(ctx, s.key)
	observability.Store().OnLoad(ctx, s.key, ok, time.Since(start), err)
	if err != nil {
		s.logger.Warn("load saved layout failed, using defaults", "key", s.key, "err", err)
		return out
	}
	if !ok {
		return out
	}

	saved, err := grid.UnmarshalLayoutSet(data)
	if err != nil {
		s.logger.Warn("saved layout is corrupt, using defaults", "key", s.key, "err", err)
		observability.Store().OnRecover(ctx, s.page, "all", "corrupt")
		return out
	}
	for _, bp := range breakpoint.All {
		l, _ := saved.Get(bp)
		if !saved.Has(bp) || !usable(bp, l) {
			observability.Store().OnRecover(ctx, s.page, bp.String(), "missing")
			continue
		}
		out.Set(bp, l)
	}
	s.logger.Debug("loaded saved layout", "key", s.key)
	return out
}

// Page returns the page this store belongs to.
func (s *LocalStore) Page() string { return s.page }

// OnChange registers fn to run after every committed mutation.
func (s *LocalStore) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Get returns the layout for bp.
func (s *LocalStore) Get(ctx context.Context, bp breakpoint.Breakpoint) (grid.Layout, error) {
	if err := checkBreakpoint(bp); err != nil {
		return grid.Layout{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(ctx, bp), nil
}

// current returns the layout for bp, materialising the default if the set
// has none. Must be called with mu held.
func (s *LocalStore) current(ctx context.Context, bp breakpoint.Breakpoint) grid.Layout {
	if !s.set.Has(bp) {
		l := s.defaultFor(bp)
		s.logger.Warn("layout missing, materialising default",
			"breakpoint", bp, "code", errors.ErrCodeConfigurationMissing)
		observability.Store().OnRecover(ctx, s.page, bp.String(), "missing")
		s.set.Set(bp, l)
	}
	l, _ := s.set.Get(bp)
	return l
}

// Replace swaps the whole layout for bp after validating it.
func (s *LocalStore) Replace(ctx context.Context, bp breakpoint.Breakpoint, l grid.Layout) error {
	if err := checkBreakpoint(bp); err != nil {
		return err
	}
	if err := checkReplacement(bp, l); err != nil {
		return err
	}
	s.mu.Lock()
	err := s.commit(ctx, bp, l)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(bp, l)
	return nil
}

// MutateWidget applies p to widget id.
func (s *LocalStore) MutateWidget(ctx context.Context, bp breakpoint.Breakpoint, id string, p grid.Patch) (grid.Layout, error) {
	if err := checkBreakpoint(bp); err != nil {
		return grid.Layout{}, err
	}
	s.mu.Lock()
	next, err := applyPatch(s.current(ctx, bp), id, p)
	if err == nil {
		err = s.commit(ctx, bp, next)
	}
	s.mu.Unlock()
	if err != nil {
		return grid.Layout{}, err
	}
	s.notify(bp, next)
	return next.Clone(), nil
}

// Reset restores the default layout for bp.
func (s *LocalStore) Reset(ctx context.Context, bp breakpoint.Breakpoint) error {
	if err := checkBreakpoint(bp); err != nil {
		return err
	}
	l := s.defaultFor(bp)

	s.mu.Lock()
	err := s.commit(ctx, bp, l)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(bp, l)
	return nil
}

// ResetAll restores the defaults for every breakpoint.
func (s *LocalStore) ResetAll(ctx context.Context) error {
	var next grid.LayoutSet
	for _, bp := range breakpoint.All {
		next.Set(bp, s.defaultFor(bp))
	}

	s.mu.Lock()
	prev := s.set
	s.set = next
	err := s.save(ctx)
	if err != nil {
		s.set = prev
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	for _, bp := range breakpoint.All {
		l, _ := next.Get(bp)
		s.notify(bp, l)
	}
	return nil
}

// defaultFor returns the default layout for bp, or an empty one when the
// page has no default for it. defaults is immutable after construction.
func (s *LocalStore) defaultFor(bp breakpoint.Breakpoint) grid.Layout {
	if !s.defaults.Has(bp) {
		return grid.Empty(bp)
	}
	l, _ := s.defaults.Get(bp)
	return l
}

// commit stores l for bp and persists the set, rolling back on a save
// failure. Must be called with mu held.
func (s *LocalStore) commit(ctx context.Context, bp breakpoint.Breakpoint, l grid.Layout) error {
	prev := s.set.Clone()
	s.set.Set(bp, l)
	if err := s.save(ctx); err != nil {
		s.set = prev
		return err
	}
	return nil
}

func (s *LocalStore) save(ctx context.Context) error {
	data, err := grid.MarshalLayoutSet(s.set)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode layouts")
	}

	start := time.Now()
	err = s.backend.Save(ctx, s.key, data)
	observability.Store().OnSave(ctx, s.key, len(data), time.Since(start), err)
	if err != nil {
		s.logger.Error("save layout failed", "key", s.key, "err", err)
		return errors.Wrap(errors.ErrCodeStorage, err, "save layout for page %q", s.page)
	}
	return nil
}

// notify runs the change callbacks outside the lock, so callbacks may read
// the store again.
func (s *LocalStore) notify(bp breakpoint.Breakpoint, l grid.Layout) {
	s.mu.Lock()
	fns := append([]ChangeFunc(nil), s.onChange...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(bp, l.Clone())
	}
}

var _ Store = (*LocalStore)(nil)
