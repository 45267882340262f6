package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/controller"
	"github.com/matzehuels/gridkit/pkg/engine"
	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/render"
)

// editCommand starts the interactive terminal editor.
func (c *CLI) editCommand() *cobra.Command {
	var bp string

	cmd := &cobra.Command{
		Use:   "edit <page>",
		Short: "Arrange a page interactively",
		Long: `Arrange a page interactively.

Move the cursor with the arrow keys. Enter picks up the widget under the
cursor and drops it at the cursor. "r" resizes the widget under the cursor
with the arrow keys until enter. "v" hides a widget and the digit keys
bring hidden widgets back. Tab switches breakpoint, "R" resets the current
breakpoint and "q" quits. Every change is saved immediately.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completePages,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withPage(cmd.Context(), args[0], bp, func(ctx context.Context, _ *engine.Engine, page *engine.Page, bp breakpoint.Breakpoint) error {
				m, err := newEditorModel(ctx, page, bp)
				if err != nil {
					return err
				}
				_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
				return err
			})
		},
	}

	addBreakpointFlag(cmd, &bp)
	return cmd
}

// =============================================================================
// editorModel - Interactive layout editing
// =============================================================================

type editMode int

const (
	modeBrowse editMode = iota
	modeDrag
	modeResize
)

// editorCellWidth is the diagram width of one grid column.
const editorCellWidth = 14

var (
	editorCursorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	editorModeStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	editorErrorStyle  = lipgloss.NewStyle().Foreground(colorRed)
)

type editorModel struct {
	ctx  context.Context
	page *engine.Page
	bp   breakpoint.Breakpoint
	ctrl engine.Controllers

	layout grid.Layout
	matrix render.Matrix

	row, col int
	mode     editMode
	dragging string

	// Resize state: the live session and the simulated pointer.
	session *controller.Session
	px, py  float64

	status    string
	statusErr bool
}

func newEditorModel(ctx context.Context, page *engine.Page, bp breakpoint.Breakpoint) (*editorModel, error) {
	m := &editorModel{ctx: ctx, page: page}
	if err := m.switchTo(bp); err != nil {
		return nil, err
	}
	return m, nil
}

// switchTo binds the controllers to bp and reloads its layout.
func (m *editorModel) switchTo(bp breakpoint.Breakpoint) error {
	m.bp = bp
	m.ctrl = m.page.At(breakpoint.Fixed(bp))
	l, err := m.page.Layout(m.ctx, bp)
	if err != nil {
		return err
	}
	m.setLayout(l)
	m.row, m.col = 0, 0
	return nil
}

func (m *editorModel) setLayout(l grid.Layout) {
	m.layout = l
	m.matrix = render.Project(l)
	m.clampCursor()
}

func (m *editorModel) clampCursor() {
	maxRow := m.matrix.Rows
	if m.mode == modeBrowse && maxRow > 0 {
		maxRow-- // only dragging may target the row below the layout
	}
	m.row = min(max(m.row, 0), maxRow)
	m.col = min(max(m.col, 0), m.layout.Columns-1)
}

func (m *editorModel) setStatus(format string, args ...any) {
	m.status, m.statusErr = fmt.Sprintf(format, args...), false
}

// apply records the outcome of a mutation. Degraded results are applied and
// reported as a warning.
func (m *editorModel) apply(l grid.Layout, err error, format string, args ...any) {
	if err != nil && !errors.Degraded(err) {
		m.status, m.statusErr = errors.UserMessage(err), true
		if fresh, gerr := m.page.Layout(m.ctx, m.bp); gerr == nil {
			m.setLayout(fresh)
		}
		return
	}
	m.setLayout(l)
	m.setStatus(format, args...)
	if err != nil {
		m.status += " (" + errors.UserMessage(err) + ")"
	}
}

// hidden returns the hidden widgets in layout order.
func (m *editorModel) hidden() []grid.Widget {
	var out []grid.Widget
	for _, w := range m.layout.Widgets {
		if !w.Visible {
			out = append(out, w)
		}
	}
	return out
}

func (m *editorModel) widgetAtCursor() string {
	return m.matrix.At(m.row, m.col).WidgetID
}

func (m *editorModel) Init() tea.Cmd {
	return nil
}

func (m *editorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch k := key.String(); k {
	case "ctrl+c", "q":
		m.abort()
		return m, tea.Quit
	case "up", "k":
		m.step(-1, 0)
	case "down", "j":
		m.step(1, 0)
	case "left", "h":
		m.step(0, -1)
	case "right", "l":
		m.step(0, 1)
	case "enter", " ":
		m.confirm()
	case "esc":
		m.abort()
	case "r":
		m.startResize()
	case "v":
		m.hide()
	case "tab":
		m.nextBreakpoint()
	case "R":
		if m.mode != modeBrowse {
			break
		}
		if err := m.ctrl.Visibility.Reset(m.ctx, m.bp.String()); err != nil {
			m.status, m.statusErr = errors.UserMessage(err), true
			break
		}
		if l, err := m.page.Layout(m.ctx, m.bp); err == nil {
			m.setLayout(l)
		}
		m.setStatus("Reset %s layout", m.bp)
	default:
		if len(k) == 1 && k[0] >= '1' && k[0] <= '9' {
			m.restore(int(k[0] - '1'))
		}
	}
	return m, nil
}

// step moves the cursor, or grows the widget while resizing.
func (m *editorModel) step(dr, dc int) {
	if m.mode != modeResize {
		m.row += dr
		m.col += dc
		m.clampCursor()
		return
	}
	opts := m.ctrl.Resize.Options()
	m.px += float64(dc) * opts.WidthSensitivity
	m.py += float64(dr) * opts.HeightSensitivity
	l, err := m.session.Move(m.ctx, m.px, m.py)
	w, h := m.session.Size()
	m.apply(l, err, "Resizing %s to %dx%d", m.session.Gesture().WidgetID, w, h)
}

func (m *editorModel) confirm() {
	switch m.mode {
	case modeBrowse:
		id := m.widgetAtCursor()
		if id == "" {
			return
		}
		if _, err := m.ctrl.Drag.Start(m.ctx, id); err != nil {
			m.status, m.statusErr = errors.UserMessage(err), true
			return
		}
		m.mode, m.dragging = modeDrag, id
		m.setStatus("Dragging %s", id)
	case modeDrag:
		id := m.dragging
		m.mode, m.dragging = modeBrowse, ""
		l, err := m.ctrl.Drag.Drop(m.ctx, m.row, m.col)
		w, _ := l.Widget(id)
		m.apply(l, err, "Moved %s to (%d,%d)", id, w.Row, w.Col)
	case modeResize:
		m.finishResize()
	}
}

// abort ends any gesture in progress. A resize keeps its last size.
func (m *editorModel) abort() {
	switch m.mode {
	case modeDrag:
		m.ctrl.Drag.Cancel(m.ctx)
		m.mode, m.dragging = modeBrowse, ""
		m.setStatus("Drag cancelled")
		m.clampCursor()
	case modeResize:
		m.finishResize()
	}
}

func (m *editorModel) startResize() {
	if m.mode != modeBrowse {
		return
	}
	id := m.widgetAtCursor()
	if id == "" {
		return
	}
	s, err := m.ctrl.Resize.Start(m.ctx, id, controller.HandleSouthEast, 0, 0)
	if err != nil {
		m.status, m.statusErr = errors.UserMessage(err), true
		return
	}
	m.mode, m.session, m.px, m.py = modeResize, s, 0, 0
	w, h := s.Size()
	m.setStatus("Resizing %s (%dx%d)", id, w, h)
}

func (m *editorModel) finishResize() {
	s := m.session
	m.mode, m.session = modeBrowse, nil
	l, err := s.Release(m.ctx)
	w, h := s.Size()
	m.apply(l, err, "Resized %s to %dx%d", s.Gesture().WidgetID, w, h)
}

func (m *editorModel) hide() {
	if m.mode != modeBrowse {
		return
	}
	id := m.widgetAtCursor()
	if id == "" {
		return
	}
	l, err := m.ctrl.Visibility.SetVisible(m.ctx, id, false)
	m.apply(l, err, "Hid %s", id)
}

func (m *editorModel) restore(i int) {
	hidden := m.hidden()
	if m.mode != modeBrowse || i >= len(hidden) {
		return
	}
	id := hidden[i].ID
	l, err := m.ctrl.Visibility.SetVisible(m.ctx, id, true)
	m.apply(l, err, "Showed %s", id)
}

func (m *editorModel) nextBreakpoint() {
	if m.mode != modeBrowse {
		return
	}
	next := breakpoint.All[0]
	for i, bp := range breakpoint.All {
		if bp == m.bp {
			next = breakpoint.All[(i+1)%len(breakpoint.All)]
		}
	}
	if err := m.switchTo(next); err != nil {
		m.status, m.statusErr = errors.UserMessage(err), true
		return
	}
	m.setStatus("Editing %s", next)
}

func (m *editorModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Edit " + m.page.ID()))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %s · %d columns", m.bp, m.layout.Columns)))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("arrows move  ⏎ pick/drop  r resize  v hide  1-9 show  tab breakpoint  R reset  q quit"))
	b.WriteString("\n\n")

	b.WriteString(m.diagram())

	switch m.mode {
	case modeDrag:
		b.WriteString(editorModeStyle.Render("DRAG") + " ")
	case modeResize:
		b.WriteString(editorModeStyle.Render("RESIZE") + " ")
	}
	b.WriteString(StyleDim.Render(fmt.Sprintf("cursor (%d,%d)", m.row, m.col)))
	if id := m.widgetAtCursor(); id != "" {
		b.WriteString(StyleDim.Render(" on ") + StyleHighlight.Render(id))
	}
	b.WriteString("\n")

	if hidden := m.hidden(); len(hidden) > 0 {
		parts := make([]string, 0, len(hidden))
		for i, w := range hidden {
			if i == 9 {
				break
			}
			parts = append(parts, fmt.Sprintf("%d %s", i+1, w.ID))
		}
		b.WriteString(StyleDim.Render("hidden: " + strings.Join(parts, "  ")))
		b.WriteString("\n")
	}

	if m.status != "" {
		if m.statusErr {
			b.WriteString(editorErrorStyle.Render(iconError + " " + m.status))
		} else {
			b.WriteString(StyleSuccess.Render(iconSuccess) + " " + m.status)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// diagram draws the layout with the cursor marked. A cursor on the row
// below the layout is drawn as a marker line.
func (m *editorModel) diagram() string {
	text := render.Text(m.matrix, render.TextOptions{CellWidth: editorCellWidth, Edit: true})
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	pos := m.col*(editorCellWidth+1) + 1
	if line := 2*m.row + 1; m.matrix.Rows > 0 && line < len(lines) && pos < len(lines[line]) {
		l := lines[line]
		lines[line] = l[:pos] + editorCursorStyle.Render(">") + l[pos+1:]
	} else {
		lines = append(lines, strings.Repeat(" ", pos)+editorCursorStyle.Render("^"))
	}
	return strings.Join(lines, "\n") + "\n\n"
}
