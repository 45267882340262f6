package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/grid"
)

// breakpointCommand shows or changes the persisted view mode.
func (c *CLI) breakpointCommand() *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:   "breakpoint [mobile|tablet|desktop]",
		Short: "Show or set the persisted view mode",
		Long: `Show or set the persisted view mode.

Without arguments the current view mode is printed. Give a breakpoint name,
or --width to classify a viewport width with the configured thresholds.
The view mode is the default breakpoint of every layout command.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(breakpoint.Mobile), string(breakpoint.Tablet), string(breakpoint.Desktop)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && cmd.Flags().Changed("width") {
				return fmt.Errorf("give either a breakpoint or --width, not both")
			}

			eng, err := c.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer eng.Close()

			sig := eng.Signal()
			before := sig.Current()
			switch {
			case len(args) == 1:
				bp, err := breakpoint.Parse(args[0])
				if err != nil {
					return err
				}
				if err := sig.Set(bp); err != nil {
					return err
				}
			case cmd.Flags().Changed("width"):
				if width < 0 {
					return fmt.Errorf("width must not be negative")
				}
				sig.Update(width)
			}

			bp := sig.Current()
			if bp != before {
				printSuccess("View mode %s %s %s", before, iconArrow, StyleHighlight.Render(bp.String()))
			}
			d := bp.Density()
			printKeyValue("Breakpoint", bp.String())
			printKeyValue("Columns", StyleNumber.Render(fmt.Sprint(bp.Columns())))
			printKeyValue("Gap", fmt.Sprintf("%dpx", d.Gap))
			printKeyValue("Row height", fmt.Sprintf("%dpx", d.MinRowHeight))
			printKeyValue("Padding", fmt.Sprintf("%dpx / %dpx", d.Padding, d.WidgetPadding))
			if bp != before {
				printNewline()
				printNextStep("Show a layout", appName+" layout show "+grid.DashboardPage)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&width, "width", "w", 0, "viewport width in pixels")
	return cmd
}
