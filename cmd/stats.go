package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/birdwall/internal/catalog"
	"github.com/JakeFAU/birdwall/internal/manifest"
)

type categoryStats struct {
	Category string `json:"category"`
	Records  int    `json:"records"`
	Latest   string `json:"latest,omitempty"`
}

func newStatsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the manifest per category",
		Long: `Prints record counts and the newest timestamp for every configured category,
followed by any other categories found in the manifest.`,
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
			store := manifest.Load(rt.cfg.Manifest.Path, rt.logger.Named("manifest"))
			stats := collectStats(cat, store)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tRECORDS\tLATEST")
			for _, s := range stats {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Category, s.Records, s.Latest)
			}
			fmt.Fprintf(tw, "total\t%d\t\n", store.Count())
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func collectStats(cat catalog.Catalog, store *manifest.Store) []categoryStats {
	names := cat.Names()
	configured := make(map[string]struct{}, len(names))
	for _, name := range names {
		configured[name] = struct{}{}
	}
	for _, name := range store.Categories() {
		if _, ok := configured[name]; !ok {
			names = append(names, name)
		}
	}
	out := make([]categoryStats, 0, len(names))
	for _, name := range names {
		records := store.Records(name)
		s := categoryStats{Category: name, Records: len(records)}
		for _, r := range records {
			// ISO-8601 UTC strings compare in time order.
			if r.Timestamp > s.Latest {
				s.Latest = r.Timestamp
			}
		}
		out = append(out, s)
	}
	return out
}
