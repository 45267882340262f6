package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/controller"
	"github.com/matzehuels/gridkit/pkg/engine"
	"github.com/matzehuels/gridkit/pkg/errors"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/render"
)

// layoutCommand creates the layout command group.
func (c *CLI) layoutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Inspect and edit stored page layouts",
		Long: `Inspect and edit stored page layouts.

Every subcommand acts on one page and one breakpoint. Without --breakpoint
the persisted view mode is used. Changes are written to the configured
store unless --no-persist is given.`,
	}

	cmd.AddCommand(c.layoutShowCommand())
	cmd.AddCommand(c.layoutMoveCommand())
	cmd.AddCommand(c.layoutResizeCommand())
	cmd.AddCommand(c.layoutToggleCommand())
	cmd.AddCommand(c.layoutResetCommand())
	cmd.AddCommand(c.layoutValidateCommand())
	cmd.AddCommand(c.layoutRenderCommand())

	return cmd
}

// pageFunc is the body of a page-scoped layout subcommand.
type pageFunc func(ctx context.Context, eng *engine.Engine, page *engine.Page, bp breakpoint.Breakpoint) error

// withPage opens the engine and resolves the page and breakpoint for fn.
func (c *CLI) withPage(ctx context.Context, pageID, bpName string, fn pageFunc) error {
	eng, err := c.openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	bp, err := resolveBreakpoint(eng, bpName)
	if err != nil {
		return err
	}
	page, err := eng.Page(pageID)
	if err != nil {
		return err
	}
	return fn(ctx, eng, page, bp)
}

func addBreakpointFlag(cmd *cobra.Command, bp *string) {
	cmd.Flags().StringVarP(bp, "breakpoint", "b", "", "breakpoint: mobile, tablet, desktop (default: persisted view mode)")
	_ = cmd.RegisterFlagCompletionFunc("breakpoint", completeBreakpoints)
}

// =============================================================================
// show
// =============================================================================

func (c *CLI) layoutShowCommand() *cobra.Command {
	var (
		bp     string
		edit   bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:               "show <page>",
		Short:             "Print a page layout as a grid diagram",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completePages,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withPage(cmd.Context(), args[0], bp, func(ctx context.Context, eng *engine.Engine, page *engine.Page, bp breakpoint.Breakpoint) error {
				v, err := page.View(ctx, bp, render.Options{Edit: edit})
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(v)
				}

				printKeyValue("Page", page.ID())
				fmt.Fprint(cmd.OutOrStdout(), render.Text(v.Matrix, render.TextOptions{Edit: edit}))
				printLayoutStats(v.Stats)

				unused, err := page.Unused(ctx, bp)
				if err != nil {
					return err
				}
				if len(unused) > 0 {
					ids := make([]string, len(unused))
					for i, w := range unused {
						ids[i] = w.ID
					}
					printDetail("Unused: %s", strings.Join(ids, ", "))
				}
				return nil
			})
		},
	}

	addBreakpointFlag(cmd, &bp)
	cmd.Flags().BoolVarP(&edit, "edit", "e", false, "mark empty cells as drop targets")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the projected view as JSON")

	return cmd
}

// =============================================================================
// move / resize / toggle
// =============================================================================

func (c *CLI) layoutMoveCommand() *cobra.Command {
	var bp string

	cmd := &cobra.Command{
		Use:   "move <page> <widget> <row> <col>",
		Short: "Drop a widget at the nearest free slot to a target cell",
		Long: `Drop a widget at the nearest free slot to a target cell.

The target must lie inside the grid. If the widget does not fit there, the
first free slot scanning rightwards and downwards from the target is used.
When no slot fits, the widget is placed below every other widget and a
warning is printed.`,
		Args:              cobra.ExactArgs(4),
		ValidArgsFunction: c.completePages,
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseCell("row", args[2])
			if err != nil {
				return err
			}
			col, err := parseCell("col", args[3])
			if err != nil {
				return err
			}
			return c.withPage(cmd.Context(), args[0], bp, func(ctx context.Context, _ *engine.Engine, page *engine.Page, bp breakpoint.Breakpoint) error {
				l, err := page.At(breakpoint.Fixed(bp)).Drag.Move(ctx, args[1], row, col)
				if err := reportMutation(err); err != nil {
					return err
				}
				w, _ := l.Widget(args[1])
				printSuccess("Moved %s to (%d,%d)", StyleHighlight.Render(args[1]), w.Row, w.Col)
				printLayout(cmd.OutOrStdout(), l, bp)
				return nil
			})
		},
	}

	addBreakpointFlag(cmd, &bp)
	return cmd
}

func (c *CLI) layoutResizeCommand() *cobra.Command {
	var (
		bp     string
		handle string
		cols   int
		rows   int
	)

	cmd := &cobra.Command{
		Use:   "resize <page> <widget>",
		Short: "Grow or shrink a widget by whole grid units",
		Long: `Grow or shrink a widget by whole grid units.

The change is applied as a drag on the given handle: "e" changes the width,
"s" the height and "se" both. Widgets never shrink below one cell.`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: c.completePages,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := controller.ParseHandle(handle)
			if err != nil {
				return err
			}
			return c.withPage(cmd.Context(), args[0], bp, func(ctx context.Context, _ *engine.Engine, page *engine.Page, bp breakpoint.Breakpoint) error {
				resize := page.At(breakpoint.Fixed(bp)).Resize
				opts := resize.Options()
				dx := float64(cols) * opts.WidthSensitivity
				dy := float64(rows) * opts.HeightSensitivity

				l, err := resize.ResizeBy(ctx, args[1], h, dx, dy)
				if err := reportMutation(err); err != nil {
					return err
				}
				w, _ := l.Widget(args[1])
				printSuccess("Resized %s to %dx%d", StyleHighlight.Render(args[1]), w.Width, w.Height)
				printLayout(cmd.OutOrStdout(), l, bp)
				return nil
			})
		},
	}

	addBreakpointFlag(cmd, &bp)
	cmd.Flags().StringVar(&handle, "handle", string(controller.HandleSouthEast), "resize handle: e, s, se")
	cmd.Flags().IntVar(&cols, "cols", 0, "columns to add (negative to shrink)")
	cmd.Flags().IntVar(&rows, "rows", 0, "rows to add (negative to shrink)")

	return cmd
}

func (c *CLI) layoutToggleCommand() *cobra.Command {
	var bp string

	cmd := &cobra.Command{
		Use:               "toggle <page> <widget>",
		Short:             "Show or hide a widget",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: c.completePages,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withPage(cmd.Context(), args[0], bp, func(ctx context.Context, _ *engine.Engine, page *engine.Page, bp breakpoint.Breakpoint) error {
				l, err := page.At(breakpoint.Fixed(bp)).Visibility.Toggle(ctx, args[1])
				if err := reportMutation(err); err != nil {
					return err
				}
				state := "hidden"
				if w, _ := l.Widget(args[1]); w.Visible {
					state = "visible"
				}
				printSuccess("%s is now %s", StyleHighlight.Render(args[1]), state)
				printLayout(cmd.OutOrStdout(), l, bp)
				return nil
			})
		},
	}

	addBreakpointFlag(cmd, &bp)
	return cmd
}

// =============================================================================
// reset
// =============================================================================

func (c *CLI) layoutResetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset <page> [breakpoint|all]",
		Short: "Restore the default layout",
		Long: `Restore the default layout of a page.

Without a breakpoint argument every breakpoint of the page is reset. This
discards your arrangement and asks for confirmation unless --yes is given.`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: c.completePages,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := controller.ResetAll
			if len(args) == 2 {
				target = args[1]
			}
			return c.withPage(cmd.Context(), args[0], "", func(ctx context.Context, _ *engine.Engine, page *engine.Page, _ breakpoint.Breakpoint) error {
				if !yes {
					ok, err := confirm(
						"Reset layout?",
						fmt.Sprintf("Restore the default %s layout of %q. Your arrangement is lost.", target, page.ID()),
						"Reset",
					)
					if err != nil {
						return err
					}
					if !ok {
						printInfo("Reset cancelled")
						return nil
					}
				}
				if err := page.Active().Visibility.Reset(ctx, target); err != nil {
					return err
				}
				printSuccess("Reset %s (%s)", StyleHighlight.Render(page.ID()), target)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// =============================================================================
// validate
// =============================================================================

func (c *CLI) layoutValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file and every stored layout",
		Long: `Check the config file and every stored layout.

Stored layouts are checked for malformed widgets and overlapping visible
widgets. The command fails if any layout is invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := c.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer eng.Close()

			if path := eng.Config().Path; path != "" {
				printSuccess("Config %s", path)
			} else {
				printInfo("No config file, using defaults")
			}
			for _, key := range eng.Config().Undecoded {
				printWarning("Unknown key %s", key)
			}

			problems := validateSnapshot(eng.Registry().Snapshot())
			for _, p := range problems {
				printError("%s", p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d invalid layout(s)", len(problems))
			}
			printSuccess("All stored layouts are valid")
			return nil
		},
	}
}

// validateSnapshot checks every layout of every page, in page order.
func validateSnapshot(pages map[string]grid.LayoutSet) []string {
	ids := make([]string, 0, len(pages))
	for id := range pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var problems []string
	for _, id := range ids {
		set := pages[id]
		for _, bp := range breakpoint.All {
			if !set.Has(bp) {
				continue
			}
			l, _ := set.Get(bp)
			if err := grid.ValidateShape(l); err != nil {
				problems = append(problems, fmt.Sprintf("%s/%s: %s", id, bp, errors.UserMessage(err)))
				continue
			}
			if l.Columns != bp.Columns() {
				problems = append(problems, fmt.Sprintf("%s/%s: %d columns, want %d", id, bp, l.Columns, bp.Columns()))
			}
			for _, col := range grid.Collisions(l) {
				problems = append(problems, fmt.Sprintf("%s/%s: %s overlaps %s", id, bp, col.A, col.B))
			}
		}
	}
	return problems
}

// =============================================================================
// render
// =============================================================================

// Render output formats.
const (
	formatText = "text"
	formatDOT  = "dot"
	formatSVG  = "svg"
	formatPNG  = "png"
	formatPDF  = "pdf"
)

var renderFormats = []string{formatText, formatDOT, formatSVG, formatPNG, formatPDF}

func (c *CLI) layoutRenderCommand() *cobra.Command {
	var (
		bp     string
		format string
		output string
		edit   bool
		scale  float64
	)

	cmd := &cobra.Command{
		Use:   "render <page>",
		Short: "Render a page layout to text, DOT, SVG, PNG or PDF",
		Long: `Render a page layout to text, DOT, SVG, PNG or PDF.

SVG is rendered with Graphviz. PNG and PDF additionally require
rsvg-convert on PATH. Without --output, text and DOT go to stdout and
images to <page>-<breakpoint>.<format>.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completePages,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validFormat(format) {
				return fmt.Errorf("invalid format %q (want one of %s)", format, strings.Join(renderFormats, ", "))
			}
			return c.withPage(cmd.Context(), args[0], bp, func(ctx context.Context, eng *engine.Engine, page *engine.Page, bp breakpoint.Breakpoint) error {
				l, err := page.Layout(ctx, bp)
				if err != nil {
					return err
				}
				prog := newProgress(loggerFromContext(ctx))
				data, err := renderLayout(ctx, cmd.ErrOrStderr(), l, bp, eng.Catalog(), format, edit, scale)
				if err != nil {
					return err
				}
				prog.done("Rendered layout", "page", page.ID(), "breakpoint", bp, "format", format)

				if output == "" && (format == formatText || format == formatDOT) {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if output == "" {
					output = fmt.Sprintf("%s-%s.%s", page.ID(), bp, format)
				}
				if err := writeFile(output, data); err != nil {
					return err
				}
				printSuccess("Rendered %s", StyleHighlight.Render(page.ID()))
				printFile(output)
				return nil
			})
		},
	}

	addBreakpointFlag(cmd, &bp)
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: "+strings.Join(renderFormats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().BoolVarP(&edit, "edit", "e", false, "mark empty cells as drop targets")
	cmd.Flags().Float64Var(&scale, "scale", defaultPNGScale, "PNG scale factor")
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(renderFormats, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func validFormat(f string) bool {
	for _, v := range renderFormats {
		if v == f {
			return true
		}
	}
	return false
}

// renderLayout produces l in the given format. Progress for the slower
// image formats is shown on w.
func renderLayout(ctx context.Context, w io.Writer, l grid.Layout, bp breakpoint.Breakpoint, catalog grid.Catalog, format string, edit bool, scale float64) ([]byte, error) {
	m := render.Project(l)
	if format == formatText {
		return []byte(render.Text(m, render.TextOptions{Edit: edit})), nil
	}

	labels := make(map[string]string, len(catalog.Widgets))
	for _, wi := range catalog.Widgets {
		labels[wi.ID] = wi.Name
	}
	dot := render.ToDOT(m, render.DOTOptions{Edit: edit, Density: bp.Density(), Labels: labels})
	if format == formatDOT {
		return []byte(dot), nil
	}

	sp := newSpinner(ctx, w, "Rendering "+format+"...")
	sp.Start()
	data, err := renderImage(ctx, dot, format, scale)
	if err != nil {
		sp.StopWithError("Render failed")
		return nil, err
	}
	sp.Stop()
	if sp.Cancelled() {
		return nil, ctx.Err()
	}
	return data, nil
}

func renderImage(ctx context.Context, dot, format string, scale float64) ([]byte, error) {
	svg, err := render.RenderSVG(ctx, dot)
	if err != nil {
		return nil, fmt.Errorf("render svg: %w", err)
	}
	switch format {
	case formatPNG:
		return render.ToPNG(ctx, svg, scale)
	case formatPDF:
		return render.ToPDF(ctx, svg)
	default:
		return svg, nil
	}
}

// =============================================================================
// Helpers
// =============================================================================

func parseCell(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%s must be a non-negative integer, got %q", name, s)
	}
	return n, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// reportMutation turns a degraded outcome into a printed warning.
func reportMutation(err error) error {
	if err == nil {
		return nil
	}
	if errors.Degraded(err) {
		printWarning("%s", errors.UserMessage(err))
		return nil
	}
	return err
}

// printLayout writes the diagram of l followed by its stats line.
func printLayout(w io.Writer, l grid.Layout, bp breakpoint.Breakpoint) {
	fmt.Fprint(w, render.Text(render.Project(l), render.TextOptions{}))
	printLayoutStats(render.StatsOf(l, bp))
}
