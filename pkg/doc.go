// Package pkg provides the core libraries of gridkit, an adaptive grid
// layout engine for dashboards.
//
// # Overview
//
// gridkit keeps one widget layout per page and breakpoint. Widgets are
// rectangles on a column grid whose width depends on the viewport: one
// column on mobile, two on tablet, four on desktop. Users rearrange widgets
// by dragging, resizing and hiding them; every change is validated, placed
// without overlap where possible, and persisted.
//
// The pkg directory is organized bottom-up:
//
//  1. [breakpoint] - Viewport classification, column counts, spacing, and
//     the broadcast signal for the active breakpoint
//  2. [grid] - Layout model, collision detection, slot search, and the
//     page and widget catalogue
//  3. [store] - Layout stores (single page and shared registry) over
//     pluggable [store/backend] persistence
//  4. [controller] - Drag, resize, and visibility gestures
//  5. [render] - Cell-matrix projection, content resolution, and text,
//     DOT and SVG previews
//  6. [engine] - Wires the above together for a host process
//  7. [server] - JSON HTTP API over an engine
//
// # Architecture
//
// A gesture flows through the packages like this:
//
//	viewport width
//	     ↓
//	[breakpoint] Signal (active breakpoint)
//	     ↓
//	[controller] Drag / Resize / Visibility
//	     ↓
//	[grid] FindSlot, Collisions, Validate
//	     ↓
//	[store] Registry / LocalStore  →  [store/backend] file, sqlite, redis, mongo
//	     ↓
//	[render] Project → View / Text / ToDOT
//
// # Quick Start
//
//	cfg, _ := config.Load("")
//	eng, err := engine.New(ctx, engine.Options{Config: cfg})
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	eng.Signal().Update(1280) // desktop
//	page, _ := eng.Page(grid.DashboardPage)
//	l, err := page.Active().Drag.Move(ctx, "order-summary", 2, 0)
//
// # Persistence
//
// [store/backend] provides a file backend for the CLI, SQLite for a single
// host, and Redis or MongoDB for shared deployments. The null backend keeps
// everything in memory. Stored blobs are versioned JSON; a blob that cannot
// be decoded is ignored and the defaults are served.
//
// # Testing
//
//	go test ./pkg/...                      # All tests
//	go test ./pkg/grid/...                 # Specific package
//	GRIDKIT_TEST_REDIS_ADDR=localhost:6379 go test ./pkg/store/backend/...
//
// [breakpoint]: https://pkg.go.dev/github.com/matzehuels/gridkit/pkg/breakpoint
// [grid]: https://pkg.go.dev/github.com/matzehuels/gridkit/pkg/grid
// [store]: https://pkg.go.dev/github.com/matzehuels/gridkit/pkg/store
// [store/backend]: https://pkg.go.dev/github.com/matzehuels/gridkit/pkg/store/backend
// [controller]: https://pkg.go.dev/github.com/matzehuels/gridkit/pkg/controller
// [render]: https://pkg.go.dev/github.com/matzehuels/gridkit/pkg/render
// [engine]: https://pkg.go.dev/github.com/matzehuels/gridkit/pkg/engine
// [server]: https://pkg.go.dev/github.com/matzehuels/gridkit/pkg/server
package pkg
