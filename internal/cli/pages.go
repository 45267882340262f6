package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// pagesCommand lists the pages known to the registry.
func (c *CLI) pagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "List dashboard pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := c.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer eng.Close()

			pages := eng.Registry().Pages()
			rows := make([][]string, 0, len(pages))
			for _, p := range pages {
				mode := "shared"
				if eng.IsLocal(p.ID) {
					mode = "local"
				}
				rows = append(rows, []string{p.ID, p.Name, p.Path, strconv.Itoa(len(p.Widgets)), mode})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Path", "Widgets", "Store"}, rows))
			return nil
		},
	}

	cmd.AddCommand(c.widgetsCommand())
	return cmd
}

// widgetsCommand lists the widget catalogue.
func (c *CLI) widgetsCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "widgets",
		Short: "List the widget catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := c.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer eng.Close()

			var rows [][]string
			for _, w := range eng.Catalog().Widgets {
				if category != "" && !strings.EqualFold(w.Category, category) {
					continue
				}
				rows = append(rows, []string{w.ID, w.Name, w.Category, w.Description})
			}
			if len(rows) == 0 {
				printInfo("No widgets")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Category", "Description"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list widgets of this category")
	return cmd
}
