package cli

import (
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/config"
	"github.com/matzehuels/gridkit/pkg/engine"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/store/backend"
)

func newEditor(t *testing.T, bp breakpoint.Breakpoint) (*editorModel, *engine.Page) {
	t.Helper()
	ctx := context.Background()
	eng, err := engine.New(ctx, engine.Options{
		Config:  config.Default(),
		Backend: backend.NewNull(),
		Logger:  log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { eng.Close() })

	page, err := eng.Page(grid.DashboardPage)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	m, err := newEditorModel(ctx, page, bp)
	if err != nil {
		t.Fatalf("newEditorModel: %v", err)
	}
	return m, page
}

func press(m *editorModel, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd = m.Update(msg)
	}
	return cmd
}

func widget(t *testing.T, m *editorModel, id string) grid.Widget {
	t.Helper()
	w, ok := m.layout.Widget(id)
	if !ok {
		t.Fatalf("widget %q missing", id)
	}
	return w
}

func TestEditorDragAndDrop(t *testing.T) {
	m, page := newEditor(t, breakpoint.Desktop)

	press(m, "enter")
	if m.mode != modeDrag || m.dragging != "inventory-overview" {
		t.Fatalf("mode = %v dragging %q, want drag of inventory-overview", m.mode, m.dragging)
	}
	if _, ok := page.Gesture(); !ok {
		t.Error("drag should hold the page gesture")
	}

	// The layout is four rows deep; dragging may target the row below it.
	press(m, "down", "down", "down", "down", "down", "enter")
	if m.mode != modeBrowse {
		t.Errorf("mode = %v after drop", m.mode)
	}
	if w := widget(t, m, "inventory-overview"); w.Row != 4 || w.Col != 0 {
		t.Errorf("dropped at (%d,%d), want (4,0)", w.Row, w.Col)
	}
	if _, ok := page.Gesture(); ok {
		t.Error("gesture still active after drop")
	}

	stored, _ := page.Layout(context.Background(), breakpoint.Desktop)
	if w, _ := stored.Widget("inventory-overview"); w.Row != 4 {
		t.Errorf("stored row = %d, want 4", w.Row)
	}
}

func TestEditorEscCancelsDrag(t *testing.T) {
	m, page := newEditor(t, breakpoint.Desktop)

	press(m, "enter", "down", "esc")
	if m.mode != modeBrowse || m.statusErr {
		t.Errorf("mode = %v status %q", m.mode, m.status)
	}
	if _, ok := page.Gesture(); ok {
		t.Error("gesture still active after cancel")
	}
	if w := widget(t, m, "inventory-overview"); w.Row != 0 {
		t.Errorf("cancelled drag moved widget to row %d", w.Row)
	}
}

func TestEditorResize(t *testing.T) {
	m, _ := newEditor(t, breakpoint.Desktop)

	press(m, "r")
	if m.mode != modeResize {
		t.Fatalf("mode = %v, want resize", m.mode)
	}
	press(m, "right", "down")
	if w := widget(t, m, "inventory-overview"); w.Width != 3 || w.Height != 3 {
		t.Errorf("live size = %dx%d, want 3x3", w.Width, w.Height)
	}

	press(m, "enter")
	if m.mode != modeBrowse || m.session != nil {
		t.Error("resize should end on enter")
	}
	if w := widget(t, m, "inventory-overview"); w.Width != 3 || w.Height != 3 {
		t.Errorf("released size = %dx%d, want 3x3", w.Width, w.Height)
	}
}

func TestEditorHideAndRestore(t *testing.T) {
	m, _ := newEditor(t, breakpoint.Desktop)

	press(m, "v")
	if widget(t, m, "inventory-overview").Visible {
		t.Fatal("widget should be hidden")
	}
	if !strings.Contains(m.View(), "1 inventory-overview") {
		t.Error("hidden widget not listed in the view")
	}

	press(m, "1")
	if !widget(t, m, "inventory-overview").Visible {
		t.Error("widget should be visible again")
	}
}

func TestEditorCursorStaysInGrid(t *testing.T) {
	m, _ := newEditor(t, breakpoint.Mobile)

	press(m, "left", "up", "right", "right")
	if m.row != 0 || m.col != 0 {
		t.Errorf("cursor = (%d,%d), want (0,0)", m.row, m.col)
	}
	for i := 0; i < 20; i++ {
		press(m, "down")
	}
	if m.row != m.matrix.Rows-1 {
		t.Errorf("browse cursor row = %d, want last row %d", m.row, m.matrix.Rows-1)
	}
}

func TestEditorTabCyclesBreakpoints(t *testing.T) {
	m, _ := newEditor(t, breakpoint.Desktop)

	press(m, "tab")
	if m.bp != breakpoint.Mobile || m.layout.Columns != 1 {
		t.Errorf("after tab: %s with %d columns", m.bp, m.layout.Columns)
	}
	press(m, "tab")
	if m.bp != breakpoint.Tablet {
		t.Errorf("after second tab: %s", m.bp)
	}
}

func TestEditorQuitReleasesGesture(t *testing.T) {
	m, page := newEditor(t, breakpoint.Desktop)

	cmd := press(m, "enter", "q")
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
	if _, ok := page.Gesture(); ok {
		t.Error("quitting left a gesture active")
	}
}

func TestEditorViewMarksCursor(t *testing.T) {
	m, _ := newEditor(t, breakpoint.Desktop)

	v := m.View()
	for _, want := range []string{"Edit dashboard", "desktop", "cursor (0,0)", "inventory-overview", ">"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
}
