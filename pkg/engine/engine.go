// Package engine wires the layout packages together for a host process.
//
// An [Engine] owns the persistence backend, the shared page registry, the
// session breakpoint signal, and one gesture guard per page. Hosts ask it
// for a [Page] and drive gestures through the page's controllers:
//
//	eng, err := engine.New(ctx, engine.Options{Config: cfg, Logger: logger})
//	if err != nil { ... }
//	defer eng.Close()
//
//	page, err := eng.Page(grid.DashboardPage)
//	l, err := page.Active().Drag.Move(ctx, "order-summary", 2, 0)
//
// The breakpoint signal starts at the persisted view mode and every change
// is written back, so shared-mode consumers agree after a restart.
//
// Pages named in Config.LocalPages bypass the registry and keep their
// layouts in a [store.LocalStore] under their own key.
package engine

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/config"
	"github.com/matzehuels/gridkit/pkg/controller"
	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/render"
	"github.com/matzehuels/gridkit/pkg/store"
	"github.com/matzehuels/gridkit/pkg/store/backend"
)

// Options configures New.
type Options struct {
	Config config.Config

	// Backend overrides the backend described by Config.Store. The engine
	// closes it on Close either way.
	Backend backend.Backend

	// Keyer overrides the persistence key scheme.
	Keyer backend.Keyer

	Logger *log.Logger

	// OnLayoutChange is called after every committed mutation on any page.
	OnLayoutChange func(page string, bp breakpoint.Breakpoint, l grid.Layout)
}

// Engine is a configured layout engine. It is safe for concurrent use.
type Engine struct {
	cfg      config.Config
	logger   *log.Logger
	backend  backend.Backend
	registry *store.Registry
	locals   map[string]*store.LocalStore
	signal   *breakpoint.Signal

	mu     sync.Mutex
	guards map[string]*controller.Guard
}

// New opens the configured backend, loads the registry and restores the
// session breakpoint.
func New(ctx context.Context, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	catalog, err := opts.Config.Catalog()
	if err != nil {
		return nil, err
	}

	b := opts.Backend
	if b == nil {
		if b, err = backend.Open(ctx, opts.Config.Store); err != nil {
			return nil, err
		}
	}

	storeOpts := store.Options{Logger: logger, Keyer: opts.Keyer}
	reg := store.NewRegistry(ctx, catalog, b, storeOpts)
	if opts.OnLayoutChange != nil {
		reg.OnChange(store.PageChangeFunc(opts.OnLayoutChange))
	}

	locals := make(map[string]*store.LocalStore, len(opts.Config.LocalPages))
	for _, id := range opts.Config.LocalPages {
		defaults, ok := catalog.DefaultSet(id)
		if !ok {
			logger.Warn("local page has no default layouts", "page", id, "code", errors.ErrCodeConfigurationMissing)
		}
		ls, err := store.NewLocal(ctx, id, defaults, b, storeOpts)
		if err != nil {
			b.Close()
			return nil, err
		}
		if opts.OnLayoutChange != nil {
			ls.OnChange(func(bp breakpoint.Breakpoint, l grid.Layout) { opts.OnLayoutChange(id, bp, l) })
		}
		locals[id] = ls
	}

	sig := breakpoint.NewSignal(breakpoint.NewClassifier(opts.Config.Breakpoints), reg.ViewMode())
	sig.OnChange(func(bp breakpoint.Breakpoint) {
		if err := reg.SetViewMode(context.Background(), bp); err != nil {
			logger.Warn("persist view mode", "breakpoint", bp, "err", err)
		}
	})

	logger.Debug("engine ready", "backend", opts.Config.Store.Kind, "pages", len(catalog.Pages), "view_mode", sig.Current())
	return &Engine{
		cfg:      opts.Config,
		logger:   logger,
		backend:  b,
		registry: reg,
		locals:   locals,
		signal:   sig,
		guards:   make(map[string]*controller.Guard),
	}, nil
}

// Close releases signal subscribers and the backend.
func (e *Engine) Close() error {
	e.signal.Close()
	return e.backend.Close()
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() config.Config { return e.cfg }

// Registry returns the shared page registry.
func (e *Engine) Registry() *store.Registry { return e.registry }

// Signal returns the session breakpoint signal.
func (e *Engine) Signal() *breakpoint.Signal { return e.signal }

// Catalog returns the page and widget catalogue.
func (e *Engine) Catalog() grid.Catalog { return e.registry.Catalog() }

// IsLocal reports whether page id has its own local store.
func (e *Engine) IsLocal(id string) bool {
	_, ok := e.locals[id]
	return ok
}

// ResetAll restores every page, shared and local, to its defaults.
func (e *Engine) ResetAll(ctx context.Context) error {
	if err := e.registry.ResetAllPages(ctx); err != nil {
		return err
	}
	for _, ls := range e.locals {
		if err := ls.ResetAll(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Page returns the handle for one page. Pages unknown to the catalogue are
// created on first use.
func (e *Engine) Page(id string) (*Page, error) {
	var ps store.Store
	if ls, ok := e.locals[id]; ok {
		ps = ls
	} else {
		shared, err := e.registry.ForPage(id)
		if err != nil {
			return nil, err
		}
		ps = shared
	}
	e.mu.Lock()
	g, ok := e.guards[id]
	if !ok {
		g = &controller.Guard{}
		e.guards[id] = g
	}
	e.mu.Unlock()
	return &Page{engine: e, id: id, store: ps, guard: g}, nil
}

// Page is one page of the engine together with its gesture guard.
type Page struct {
	engine *Engine
	id     string
	store  store.Store
	guard  *controller.Guard
}

// ID returns the page id.
func (p *Page) ID() string { return p.id }

// Local reports whether the page is kept outside the shared registry.
func (p *Page) Local() bool { return p.engine.IsLocal(p.id) }

// Store returns the page's layout store.
func (p *Page) Store() store.Store { return p.store }

// Controllers groups the gesture controllers bound to one breakpoint source.
type Controllers struct {
	Drag       *controller.Drag
	Resize     *controller.Resize
	Visibility *controller.Visibility
}

// Active returns controllers following the session breakpoint.
func (p *Page) Active() Controllers { return p.At(p.engine.signal) }

// At returns controllers acting on the breakpoint named by src. All
// controllers of a page share one guard, whatever their source.
func (p *Page) At(src breakpoint.Source) Controllers {
	cfg := controller.Config{
		Store:  p.store,
		Source: src,
		Guard:  p.guard,
		Logger: p.engine.logger.With("page", p.ID()),
		Strict: p.engine.cfg.Resize.Strict,
	}
	return Controllers{
		Drag:       controller.NewDrag(cfg),
		Resize:     controller.NewResize(cfg, p.engine.cfg.Resize),
		Visibility: controller.NewVisibility(cfg, p.ID()),
	}
}

// Layout returns the layout for bp.
func (p *Page) Layout(ctx context.Context, bp breakpoint.Breakpoint) (grid.Layout, error) {
	return p.store.Get(ctx, bp)
}

// View renders the layout for bp. In edit mode drops are forwarded to a
// drag controller bound to bp.
func (p *Page) View(ctx context.Context, bp breakpoint.Breakpoint, opts render.Options) (render.View, error) {
	l, err := p.store.Get(ctx, bp)
	if err != nil {
		return render.View{}, err
	}
	opts.Breakpoint = bp
	if opts.Edit && opts.Drop == nil {
		opts.Drop = p.At(breakpoint.Fixed(bp)).Drag
	}
	return render.Render(l, opts), nil
}

// Unused lists catalogue widgets not placed on bp.
func (p *Page) Unused(ctx context.Context, bp breakpoint.Breakpoint) ([]grid.WidgetInfo, error) {
	l, err := p.store.Get(ctx, bp)
	if err != nil {
		return nil, err
	}
	return p.engine.Catalog().Unused(l), nil
}

// Gesture reports the gesture in progress on this page, if any.
func (p *Page) Gesture() (controller.Gesture, bool) { return p.guard.Active() }
