package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/observability"
	"github.com/matzehuels/gridkit/pkg/store/backend"
)

// PageChangeFunc is called after a committed mutation of a registry page.
type PageChangeFunc func(page string, bp breakpoint.Breakpoint, l grid.Layout)

// Registry is the process-wide map from page id to layout set used in
// shared mode. Pages are created lazily on first access and never evicted.
//
// The registry is persisted as a single blob under the registry key, and
// the session's global breakpoint under the view mode key.
type Registry struct {
	mu       sync.Mutex
	catalog  grid.Catalog
	pages    map[string]grid.LayoutSet
	viewMode breakpoint.Breakpoint
	backend  backend.Backend
	keyer    backend.Keyer
	logger   *log.Logger
	onChange []PageChangeFunc
}

// NewRegistry creates a registry seeded from the catalog defaults and
// overlaid with the pages saved in b. Saved pages replace their default
// wholesale; pages that were never saved keep the default.
func NewRegistry(ctx context.Context, catalog grid.Catalog, b backend.Backend, opts Options) *Registry {
	if b == nil {
		b = backend.NewNull()
	}
	opts = opts.withDefaults()

	r := &Registry{
		catalog:  catalog,
		pages:    make(map[string]grid.LayoutSet, len(catalog.Defaults)),
		viewMode: breakpoint.Desktop,
		backend:  b,
		keyer:    opts.Keyer,
		logger:   opts.Logger.With("store", "shared"),
	}
	for id := range catalog.Defaults {
		r.pages[id], _ = catalog.DefaultSet(id)
	}
	r.load(ctx)
	return r
}

func (r *Registry) load(ctx context.Context) {
	key := r.keyer.RegistryKey()
	start := time.Now()
	data, ok, err := r.backend.Load(ctx, key)
	observability.Store().OnLoad(ctx, key, ok, time.Since(start), err)

	switch {
	case err != nil:
		r.logger.Warn("load saved layouts failed, using defaults", "key", key, "err", err)
	case ok:
		saved, err := grid.UnmarshalRegistry(data)
		if err != nil {
			r.logger.Warn("saved layouts are corrupt, using defaults", "key", key, "err", err)
			observability.Store().OnRecover(ctx, "*", "all", "corrupt")
			break
		}
		for id, set := range saved {
			if errors.ValidatePageID(id) != nil {
				r.logger.Warn("skipping saved page with invalid id", "page", id)
				continue
			}
			for _, bp := range breakpoint.All {
				if l, _ := set.Get(bp); set.Has(bp) && !usable(bp, l) {
					r.logger.Warn("saved layout is unusable, using default",
						"page", id, "breakpoint", bp, "columns", l.Columns)
					observability.Store().OnRecover(ctx, id, bp.String(), "unusable")
					set.Set(bp, r.defaultFor(id, bp))
				}
			}
			r.pages[id] = set
		}
		r.logger.Debug("loaded saved layouts", "pages", len(saved))
	}

	key = r.keyer.ViewModeKey()
	data, ok, err = r.backend.Load(ctx, key)
	if err != nil {
		r.logger.Warn("load view mode failed", "key", key, "err", err)
		return
	}
	if ok {
		if bp, err := breakpoint.Parse(string(data)); err == nil {
			r.viewMode = bp
		} else {
			r.logger.Warn("saved view mode is invalid, using desktop", "value", string(data))
		}
	}
}

// ForPage returns a Store scoped to one page of the registry.
func (r *Registry) ForPage(pageID string) (*PageStore, error) {
	if err := errors.ValidatePageID(pageID); err != nil {
		return nil, err
	}
	return &PageStore{r: r, page: pageID}, nil
}

// Catalog returns the registry's page and widget catalogue.
func (r *Registry) Catalog() grid.Catalog {
	return r.catalog
}

// Pages returns the catalogue pages followed by any page created at
// runtime that the catalogue does not know, sorted by id.
func (r *Registry) Pages() []grid.Page {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := slices.Clone(r.catalog.Pages)
	var extra []string
	for id := range r.pages {
		if _, ok := r.catalog.Page(id); !ok {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		out = append(out, grid.Page{ID: id, Name: id})
	}
	return out
}

// UnusedWidgets lists the catalogue widgets not placed on page at bp.
func (r *Registry) UnusedWidgets(ctx context.Context, pageID string, bp breakpoint.Breakpoint) ([]grid.WidgetInfo, error) {
	ps, err := r.ForPage(pageID)
	if err != nil {
		return nil, err
	}
	l, err := ps.Get(ctx, bp)
	if err != nil {
		return nil, err
	}
	return r.catalog.Unused(l), nil
}

// Snapshot returns a deep copy of every page currently in the registry.
func (r *Registry) Snapshot() map[string]grid.LayoutSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]grid.LayoutSet, len(r.pages))
	for id, s := range r.pages {
		out[id] = s.Clone()
	}
	return out
}

// ViewMode returns the session's global breakpoint.
func (r *Registry) ViewMode() breakpoint.Breakpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewMode
}

// SetViewMode records and persists the session's global breakpoint.
func (r *Registry) SetViewMode(ctx context.Context, bp breakpoint.Breakpoint) error {
	if err := checkBreakpoint(bp); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.keyer.ViewModeKey()
	start := time.Now()
	err := r.backend.Save(ctx, key, []byte(bp))
	observability.Store().OnSave(ctx, key, len(bp), time.Since(start), err)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save view mode")
	}
	r.viewMode = bp
	return nil
}

// OnChange registers fn to run after every committed page mutation.
func (r *Registry) OnChange(fn PageChangeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// ResetPage restores every breakpoint of one page to its defaults.
func (r *Registry) ResetPage(ctx context.Context, pageID string) error {
	ps, err := r.ForPage(pageID)
	if err != nil {
		return err
	}
	return ps.ResetAll(ctx)
}

// ResetAllPages restores the whole registry to the catalogue defaults.
// Pages created at runtime are dropped.
func (r *Registry) ResetAllPages(ctx context.Context) error {
	next := make(map[string]grid.LayoutSet, len(r.catalog.Defaults))
	for id := range r.catalog.Defaults {
		next[id], _ = r.catalog.DefaultSet(id)
	}

	r.mu.Lock()
	prev := r.pages
	r.pages = next
	err := r.save(ctx)
	if err != nil {
		r.pages = prev
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}

	for id, set := range next {
		for _, bp := range breakpoint.All {
			if l, _ := set.Get(bp); set.Has(bp) {
				r.notify(id, bp, l)
			}
		}
	}
	return nil
}

// layout returns the layout of page at bp, materialising the default and
// creating the page if needed. Must be called with mu held.
func (r *Registry) layout(ctx context.Context, page string, bp breakpoint.Breakpoint) grid.Layout {
	set := r.pages[page]
	if !set.Has(bp) {
		l := r.defaultFor(page, bp)
		r.logger.Warn("layout missing, materialising default",
			"page", page, "breakpoint", bp, "code", errors.ErrCodeConfigurationMissing)
		observability.Store().OnRecover(ctx, page, bp.String(), "missing")
		set.Set(bp, l)
		r.pages[page] = set
	}
	l, _ := set.Get(bp)
	return l
}

// defaultFor returns the catalogue default for page at bp, or an empty
// layout when the catalogue has none.
func (r *Registry) defaultFor(page string, bp breakpoint.Breakpoint) grid.Layout {
	if set, ok := r.catalog.Defaults[page]; ok && set.Has(bp) {
		l, _ := set.Get(bp)
		return l
	}
	return grid.Empty(bp)
}

// commit stores l and persists the registry, rolling back on failure.
// Must be called with mu held.
func (r *Registry) commit(ctx context.Context, page string, bp breakpoint.Breakpoint, l grid.Layout) error {
	prev, existed := r.pages[page]
	set := prev.Clone()
	set.Set(bp, l)
	r.pages[page] = set
	if err := r.save(ctx); err != nil {
		if existed {
			r.pages[page] = prev
		} else {
			delete(r.pages, page)
		}
		return err
	}
	return nil
}

func (r *Registry) save(ctx context.Context) error {
	data, err := grid.MarshalRegistry(r.pages)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode layouts")
	}
	key := r.keyer.RegistryKey()
	start := time.Now()
	err = r.backend.Save(ctx, key, data)
	observability.Store().OnSave(ctx, key, len(data), time.Since(start), err)
	if err != nil {
		r.logger.Error("save layouts failed", "key", key, "err", err)
		return errors.Wrap(errors.ErrCodeStorage, err, "save layouts")
	}
	return nil
}

func (r *Registry) notify(page string, bp breakpoint.Breakpoint, l grid.Layout) {
	r.mu.Lock()
	fns := append([]PageChangeFunc(nil), r.onChange...)
	r.mu.Unlock()
	for _, fn := range fns {
		fn(page, bp, l.Clone())
	}
}

// PageStore is the Store view of one registry page.
type PageStore struct {
	r    *Registry
	page string
}

// Page returns the page this view is scoped to.
func (p *PageStore) Page() string { return p.page }

// Get returns the page layout for bp.
func (p *PageStore) Get(ctx context.Context, bp breakpoint.Breakpoint) (grid.Layout, error) {
	if err := checkBreakpoint(bp); err != nil {
		return grid.Layout{}, err
	}
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	return p.r.layout(ctx, p.page, bp), nil
}

// Replace swaps the page layout for bp after validating it.
func (p *PageStore) Replace(ctx context.Context, bp breakpoint.Breakpoint, l grid.Layout) error {
	if err := checkBreakpoint(bp); err != nil {
		return err
	}
	if err := checkReplacement(bp, l); err != nil {
		return err
	}
	p.r.mu.Lock()
	err := p.r.commit(ctx, p.page, bp, l)
	p.r.mu.Unlock()
	if err != nil {
		return err
	}
	p.r.notify(p.page, bp, l)
	return nil
}

// MutateWidget applies patch to widget id on this page.
func (p *PageStore) MutateWidget(ctx context.Context, bp breakpoint.Breakpoint, id string, patch grid.Patch) (grid.Layout, error) {
	if err := checkBreakpoint(bp); err != nil {
		return grid.Layout{}, err
	}
	p.r.mu.Lock()
	next, err := applyPatch(p.r.layout(ctx, p.page, bp), id, patch)
	if err == nil {
		err = p.r.commit(ctx, p.page, bp, next)
	}
	p.r.mu.Unlock()
	if err != nil {
		return grid.Layout{}, err
	}
	p.r.notify(p.page, bp, next)
	return next.Clone(), nil
}

// Reset restores the page default for bp.
func (p *PageStore) Reset(ctx context.Context, bp breakpoint.Breakpoint) error {
	if err := checkBreakpoint(bp); err != nil {
		return err
	}
	p.r.mu.Lock()
	l := p.r.defaultFor(p.page, bp)
	err := p.r.commit(ctx, p.page, bp, l)
	p.r.mu.Unlock()
	if err != nil {
		return err
	}
	p.r.notify(p.page, bp, l)
	return nil
}

// ResetAll restores the page defaults for every breakpoint.
func (p *PageStore) ResetAll(ctx context.Context) error {
	var next grid.LayoutSet
	p.r.mu.Lock()
	for _, bp := range breakpoint.All {
		next.Set(bp, p.r.defaultFor(p.page, bp))
	}
	prev, existed := p.r.pages[p.page]
	p.r.pages[p.page] = next
	err := p.r.save(ctx)
	if err != nil {
		if existed {
			p.r.pages[p.page] = prev
		} else {
			delete(p.r.pages, p.page)
		}
	}
	p.r.mu.Unlock()
	if err != nil {
		return err
	}

	for _, bp := range breakpoint.All {
		l, _ := next.Get(bp)
		p.r.notify(p.page, bp, l)
	}
	return nil
}

var _ Store = (*PageStore)(nil)
