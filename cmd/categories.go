package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/birdwall/internal/catalog"
)

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the configured categories and their search keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			cat, err := catalog.New(rt.cfg.Catalog)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tKEYWORD")
			for _, c := range cat.Categories() {
				fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Keyword)
			}
			return tw.Flush()
		},
	}
}
