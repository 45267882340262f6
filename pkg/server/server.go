// Package server exposes a layout engine over HTTP.
//
// The API is JSON throughout. Layout routes are scoped by page and
// breakpoint:
//
//	GET  /healthz
//	GET  /api/pages
//	GET  /api/widgets
//	POST /api/reset
//	GET  /api/breakpoint
//	PUT  /api/breakpoint                               {"width": 900} or {"breakpoint": "tablet"}
//	POST /api/pages/{page}/reset                       {"breakpoint": "desktop"|"all"}
//	GET  /api/pages/{page}/layouts/{bp}
//	PUT  /api/pages/{page}/layouts/{bp}                full layout
//	GET  /api/pages/{page}/layouts/{bp}/grid?edit=1    projected cell matrix
//	GET  /api/pages/{page}/layouts/{bp}/preview.svg    graphviz preview
//	GET  /api/pages/{page}/layouts/{bp}/unused
//	POST /api/pages/{page}/layouts/{bp}/move           {"id", "row", "col"}
//	POST /api/pages/{page}/layouts/{bp}/resize         {"id", "handle", "dx", "dy"}
//	POST /api/pages/{page}/layouts/{bp}/widgets/{id}/toggle
//
// Errors are returned as {"code", "message"} with a status derived from the
// error code. A drop that fell back to the degraded placement still
// succeeds; the response carries the layout and a warning.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/gridkit/pkg/config"
	"github.com/matzehuels/gridkit/pkg/engine"
)

// Server serves one engine.
type Server struct {
	engine *engine.Engine
	logger *log.Logger
	cfg    config.ServerConfig
	router chi.Router
}

// New builds the router for e.
func New(e *engine.Engine, cfg config.ServerConfig, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{engine: e, logger: logger, cfg: cfg}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/pages", s.handlePages)
		r.Get("/widgets", s.handleWidgets)
		r.Post("/reset", s.handleResetAll)
		r.Get("/breakpoint", s.handleGetBreakpoint)
		r.Put("/breakpoint", s.handleSetBreakpoint)

		r.Route("/pages/{page}", func(r chi.Router) {
			r.Post("/reset", s.handleResetPage)
			r.Route("/layouts/{bp}", func(r chi.Router) {
				r.Get("/", s.handleGetLayout)
				r.Put("/", s.handleReplaceLayout)
				r.Get("/grid", s.handleGrid)
				r.Get("/preview.svg", s.handlePreview)
				r.Get("/unused", s.handleUnused)
				r.Post("/move", s.handleMove)
				r.Post("/resize", s.handleResize)
				r.Post("/widgets/{id}/toggle", s.handleToggle)
			})
		})
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
