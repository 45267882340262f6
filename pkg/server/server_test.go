package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/config"
	"github.com/matzehuels/gridkit/pkg/engine"
	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/observability"
	"github.com/matzehuels/gridkit/pkg/render"
	"github.com/matzehuels/gridkit/pkg/store/backend"
)

type testServer struct {
	t      *testing.T
	engine *engine.Engine
	http   *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := log.New(io.Discard)
	e, err := engine.New(context.Background(), engine.Options{
		Config:  config.Default(),
		Backend: backend.NewNull(),
		Logger:  logger,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(New(e, config.Default().Server, logger).Handler())
	t.Cleanup(func() {
		srv.Close()
		e.Close()
	})
	return &testServer{t: t, engine: e, http: srv}
}

func (ts *testServer) do(method, path string, body any) *http.Response {
	ts.t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(ts.t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.http.URL+path, rd)
	require.NoError(ts.t, err)
	resp, err := ts.http.Client().Do(req)
	require.NoError(ts.t, err)
	ts.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeResp[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

const desktopDashboard = "/api/pages/dashboard/layouts/desktop"

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeResp[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestRequestIDEchoed(t *testing.T) {
	ts := newTestServer(t)
	const id = "5a1f3f62-0d2b-4b8e-9f53-7a4c2f1e9d10"

	req, _ := http.NewRequest(http.MethodGet, ts.http.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, err := ts.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, id, resp.Header.Get(RequestIDHeader))

	req, _ = http.NewRequest(http.MethodGet, ts.http.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, "not a uuid")
	resp2, err := ts.http.Client().Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.NotEqual(t, "not a uuid", resp2.Header.Get(RequestIDHeader))
}

func TestPagesAndWidgets(t *testing.T) {
	ts := newTestServer(t)

	pages := decodeResp[[]grid.Page](t, ts.do(http.MethodGet, "/api/pages", nil))
	require.NotEmpty(t, pages)
	assert.Equal(t, grid.DashboardPage, pages[0].ID)

	widgets := decodeResp[[]grid.WidgetInfo](t, ts.do(http.MethodGet, "/api/widgets", nil))
	assert.NotEmpty(t, widgets)
}

func TestGetLayout(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(http.MethodGet, desktopDashboard, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeResp[LayoutResponse](t, resp)
	assert.Equal(t, "dashboard", got.Page)
	assert.Equal(t, breakpoint.Desktop, got.Breakpoint)
	assert.Equal(t, 4, got.Layout.Columns)
	assert.Len(t, got.Layout.Widgets, 3)
	assert.Nil(t, got.Warning)
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   errors.Code
	}{
		{"bad breakpoint", http.MethodGet, "/api/pages/dashboard/layouts/watch", nil, http.StatusBadRequest, errors.ErrCodeInvalidBreakpoint},
		{"unknown widget toggle", http.MethodPost, desktopDashboard + "/widgets/nope/toggle", nil, http.StatusNotFound, errors.ErrCodeUnknownWidget},
		{"drag off grid", http.MethodPost, desktopDashboard + "/move", MoveRequest{ID: "order-summary", Row: 0, Col: 9}, http.StatusBadRequest, errors.ErrCodeDragTargetInvalid},
		{"drag unknown widget", http.MethodPost, desktopDashboard + "/move", MoveRequest{ID: "ghost", Row: 0, Col: 0}, http.StatusNotFound, errors.ErrCodeUnknownWidget},
		{"bad handle", http.MethodPost, desktopDashboard + "/resize", ResizeRequest{ID: "order-summary", Handle: "nw"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown body field", http.MethodPost, desktopDashboard + "/move", map[string]any{"id": "x", "zz": 1}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"overlapping replace", http.MethodPut, desktopDashboard, grid.Layout{Columns: 4, Widgets: []grid.Widget{
			{ID: "a", Row: 0, Col: 0, Width: 2, Height: 1, Visible: true},
			{ID: "b", Row: 0, Col: 1, Width: 2, Height: 1, Visible: true},
		}}, http.StatusUnprocessableEntity, errors.ErrCodeOverlap},
		{"wrong columns replace", http.MethodPut, desktopDashboard, grid.Layout{Columns: 2}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad reset target", http.MethodPost, "/api/pages/dashboard/reset", ResetRequest{Breakpoint: "watch"}, http.StatusBadRequest, errors.ErrCodeInvalidBreakpoint},
		{"empty breakpoint body", http.MethodPut, "/api/breakpoint", map[string]any{}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decodeResp[ErrorBody](t, resp)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestMoveScenario(t *testing.T) {
	ts := newTestServer(t)

	// (1,1) overlaps inventory-overview, and every 2x2 slot down to row 3
	// touches staff-performance, so the search lands below it.
	resp := ts.do(http.MethodPost, desktopDashboard+"/move", MoveRequest{ID: "order-summary", Row: 1, Col: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeResp[LayoutResponse](t, resp)

	w, ok := got.Layout.Widget("order-summary")
	require.True(t, ok)
	assert.Equal(t, [2]int{4, 0}, [2]int{w.Row, w.Col})
	assert.NoError(t, grid.Validate(got.Layout))

	// The change is visible to a subsequent read.
	again := decodeResp[LayoutResponse](t, ts.do(http.MethodGet, desktopDashboard, nil))
	assert.Equal(t, got.Layout, again.Layout)
}

func TestMoveDegradedIsWarning(t *testing.T) {
	ts := newTestServer(t)
	wide := grid.Layout{Columns: 4, Widgets: []grid.Widget{
		{ID: "wide", Row: 0, Col: 0, Width: 5, Height: 1, Visible: true},
	}}
	// Replace checks overlap, not column bounds, so the widget is accepted
	// and no slot can ever hold it.
	resp := ts.do(http.MethodPut, "/api/pages/scratch/layouts/desktop", wide)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/pages/scratch/layouts/desktop/move", MoveRequest{ID: "wide", Row: 0, Col: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeResp[LayoutResponse](t, resp)
	require.NotNil(t, got.Warning)
	assert.Equal(t, errors.ErrCodePlacementExhausted, got.Warning.Code)
}

func TestResizeAndToggle(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodPost, desktopDashboard+"/resize",
		ResizeRequest{ID: "staff-performance", Handle: "s", DY: 150})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeResp[LayoutResponse](t, resp)
	w, _ := got.Layout.Widget("staff-performance")
	assert.Equal(t, 3, w.Height)
	assert.Equal(t, 4, w.Width)

	resp = ts.do(http.MethodPost, desktopDashboard+"/widgets/staff-performance/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decodeResp[LayoutResponse](t, resp)
	w, _ = got.Layout.Widget("staff-performance")
	assert.False(t, w.Visible)
	assert.Equal(t, 3, w.Height, "geometry kept while hidden")

	unused := decodeResp[[]grid.WidgetInfo](t, ts.do(http.MethodGet, desktopDashboard+"/unused", nil))
	for _, u := range unused {
		assert.NotEqual(t, "staff-performance", u.ID, "hidden widgets are still placed")
	}
}

func TestReplaceAndReset(t *testing.T) {
	ts := newTestServer(t)
	next := grid.Layout{Columns: 4, Widgets: []grid.Widget{
		{ID: "order-summary", Row: 0, Col: 0, Width: 4, Height: 1, Visible: true},
	}}

	resp := ts.do(http.MethodPut, desktopDashboard, next)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, next, decodeResp[LayoutResponse](t, resp).Layout)

	resp = ts.do(http.MethodPost, "/api/pages/dashboard/reset", ResetRequest{Breakpoint: "desktop"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	got := decodeResp[LayoutResponse](t, ts.do(http.MethodGet, desktopDashboard, nil))
	def, _ := ts.engine.Catalog().Default(grid.DashboardPage, breakpoint.Desktop)
	assert.Equal(t, def, got.Layout)

	// An empty body resets every breakpoint.
	resp = ts.do(http.MethodPost, "/api/pages/dashboard/reset", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/reset", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGridView(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(http.MethodGet, "/api/pages/dashboard/layouts/tablet/grid?edit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v := decodeResp[render.View](t, resp)
	assert.Equal(t, 2, v.Matrix.Columns)
	assert.Equal(t, 6, v.Matrix.Rows)
	assert.Len(t, v.Items, 3)
	assert.Equal(t, breakpoint.Tablet, v.Stats.Breakpoint)
	assert.Empty(t, v.DropTargets, "tablet default has no empty cells")
}

func TestBreakpointRoutes(t *testing.T) {
	ts := newTestServer(t)
	sub := ts.engine.Signal().Subscribe(context.Background())

	resp := ts.do(http.MethodPut, "/api/breakpoint", BreakpointRequest{Width: ptr(800)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeResp[BreakpointResponse](t, resp)
	assert.Equal(t, breakpoint.Tablet, got.Breakpoint)
	assert.Equal(t, 2, got.Columns)

	select {
	case bp := <-sub:
		assert.Equal(t, breakpoint.Tablet, bp)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the change")
	}

	resp = ts.do(http.MethodPut, "/api/breakpoint", BreakpointRequest{Breakpoint: "MOBILE"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decodeResp[BreakpointResponse](t, ts.do(http.MethodGet, "/api/breakpoint", nil))
	assert.Equal(t, breakpoint.Mobile, got.Breakpoint)
	assert.Equal(t, breakpoint.Mobile.Density(), got.Density)
}

type recordingHTTPHooks struct {
	observability.NoopHTTPHooks
	routes []string
	status []int
}

func (h *recordingHTTPHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.routes = append(h.routes, method+" "+route)
	h.status = append(h.status, status)
}

func TestHTTPHooksSeeRoutePattern(t *testing.T) {
	hooks := &recordingHTTPHooks{}
	observability.SetHTTPHooks(hooks)
	t.Cleanup(observability.Reset)

	ts := newTestServer(t)
	ts.do(http.MethodPost, desktopDashboard+"/widgets/nope/toggle", nil)

	require.Len(t, hooks.routes, 1)
	assert.Equal(t, "POST /api/pages/{page}/layouts/{bp}/widgets/{id}/toggle", hooks.routes[0])
	assert.Equal(t, http.StatusNotFound, hooks.status[0])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusFor(errors.New(errors.ErrCodeGestureInProgress, "busy")))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(errors.New(errors.ErrCodeStorage, "down")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(io.ErrUnexpectedEOF))
}

func ptr[T any](v T) *T { return &v }
