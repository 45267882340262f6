package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/buildinfo"
	"github.com/matzehuels/gridkit/pkg/controller"
	"github.com/matzehuels/gridkit/pkg/engine"
	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/render"
)

// LayoutResponse is returned by every route that produces a layout.
type LayoutResponse struct {
	Page       string                `json:"page"`
	Breakpoint breakpoint.Breakpoint `json:"breakpoint"`
	Layout     grid.Layout           `json:"layout"`
	// Warning is set when the change was applied in a degraded form.
	Warning *ErrorBody `json:"warning,omitempty"`
}

// MoveRequest is the body of a move.
type MoveRequest struct {
	ID  string `json:"id"`
	Row int    `json:"row"`
	Col int    `json:"col"`
}

// ResizeRequest is the body of a resize. DX and DY are pointer deltas in
// pixels.
type ResizeRequest struct {
	ID     string  `json:"id"`
	Handle string  `json:"handle"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
}

// ResetRequest is the body of a page reset. Breakpoint is a breakpoint name
// or "all".
type ResetRequest struct {
	Breakpoint string `json:"breakpoint"`
}

// BreakpointRequest sets the session breakpoint either from a viewport
// width or by name.
type BreakpointRequest struct {
	Width      *int   `json:"width,omitempty"`
	Breakpoint string `json:"breakpoint,omitempty"`
}

// BreakpointResponse describes the session breakpoint.
type BreakpointResponse struct {
	Breakpoint breakpoint.Breakpoint `json:"breakpoint"`
	Columns    int                   `json:"columns"`
	Density    breakpoint.Density    `json:"density"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Registry().Pages())
}

func (s *Server) handleWidgets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Catalog().Widgets)
}

func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ResetAll(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBreakpoint(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, describe(s.engine.Signal().Current()))
}

func (s *Server) handleSetBreakpoint(w http.ResponseWriter, r *http.Request) {
	var req BreakpointRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	sig := s.engine.Signal()
	switch {
	case req.Width != nil && req.Breakpoint != "":
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "give either width or breakpoint, not both"))
		return
	case req.Width != nil:
		if *req.Width < 0 {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "width must not be negative"))
			return
		}
		sig.Update(*req.Width)
	case req.Breakpoint != "":
		bp, err := breakpoint.Parse(req.Breakpoint)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := sig.Set(bp); err != nil {
			s.writeError(w, err)
			return
		}
	default:
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "width or breakpoint is required"))
		return
	}
	s.writeJSON(w, http.StatusOK, describe(sig.Current()))
}

func describe(bp breakpoint.Breakpoint) BreakpointResponse {
	return BreakpointResponse{Breakpoint: bp, Columns: bp.Columns(), Density: bp.Density()}
}

func (s *Server) handleResetPage(w http.ResponseWriter, r *http.Request) {
	page, err := s.engine.Page(chi.URLParam(r, "page"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req ResetRequest
	if err := decodeOptional(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Breakpoint == "" {
		req.Breakpoint = controller.ResetAll
	}
	if err := page.Active().Visibility.Reset(r.Context(), req.Breakpoint); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// target resolves the page and breakpoint path parameters.
func (s *Server) target(r *http.Request) (*engine.Page, breakpoint.Breakpoint, error) {
	bp, err := breakpoint.Parse(chi.URLParam(r, "bp"))
	if err != nil {
		return nil, "", err
	}
	page, err := s.engine.Page(chi.URLParam(r, "page"))
	if err != nil {
		return nil, "", err
	}
	return page, bp, nil
}

// respondLayout writes l, downgrading a degraded outcome to a warning.
func (s *Server) respondLayout(w http.ResponseWriter, page *engine.Page, bp breakpoint.Breakpoint, l grid.Layout, err error) {
	resp := LayoutResponse{Page: page.ID(), Breakpoint: bp, Layout: l}
	if err != nil {
		if !errors.Degraded(err) {
			s.writeError(w, err)
			return
		}
		resp.Warning = &ErrorBody{Code: errors.GetCode(err), Message: errors.UserMessage(err)}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	page, bp, err := s.target(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, err := page.Layout(r.Context(), bp)
	s.respondLayout(w, page, bp, l, err)
}

func (s *Server) handleReplaceLayout(w http.ResponseWriter, r *http.Request) {
	page, bp, err := s.target(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var l grid.Layout
	if err := decode(r, &l); err != nil {
		s.writeError(w, err)
		return
	}
	if l.Columns == 0 {
		l.Columns = bp.Columns()
	}
	if err := page.Store().Replace(r.Context(), bp, l); err != nil {
		s.writeError(w, err)
		return
	}
	l, err = page.Layout(r.Context(), bp)
	s.respondLayout(w, page, bp, l, err)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	page, bp, err := s.target(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	edit, _ := strconv.ParseBool(r.URL.Query().Get("edit"))
	v, err := page.View(r.Context(), bp, render.Options{Edit: edit})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	page, bp, err := s.target(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, err := page.Layout(r.Context(), bp)
	if err != nil {
		s.writeError(w, err)
		return
	}
	labels := make(map[string]string)
	for _, wi := range s.engine.Catalog().Widgets {
		labels[wi.ID] = wi.Name
	}
	edit, _ := strconv.ParseBool(r.URL.Query().Get("edit"))
	dot := render.ToDOT(render.Project(l), render.DOTOptions{Edit: edit, Density: bp.Density(), Labels: labels})
	svg, err := render.RenderSVG(r.Context(), dot)
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "render preview"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(svg)
}

func (s *Server) handleUnused(w http.ResponseWriter, r *http.Request) {
	page, bp, err := s.target(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	unused, err := page.Unused(r.Context(), bp)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if unused == nil {
		unused = []grid.WidgetInfo{}
	}
	s.writeJSON(w, http.StatusOK, unused)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	page, bp, err := s.target(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req MoveRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	l, err := page.At(breakpoint.Fixed(bp)).Drag.Move(r.Context(), req.ID, req.Row, req.Col)
	s.respondLayout(w, page, bp, l, err)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	page, bp, err := s.target(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req ResizeRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	handle, err := controller.ParseHandle(req.Handle)
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, err := page.At(breakpoint.Fixed(bp)).Resize.ResizeBy(r.Context(), req.ID, handle, req.DX, req.DY)
	s.respondLayout(w, page, bp, l, err)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	page, bp, err := s.target(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, err := page.At(breakpoint.Fixed(bp)).Visibility.Toggle(r.Context(), chi.URLParam(r, "id"))
	s.respondLayout(w, page, bp, l, err)
}
