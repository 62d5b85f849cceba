package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/filters"
)

func newFacetsCmd(opts *options) *cobra.Command {
	var (
		asJSON bool
		sample int
	)
	cmd := &cobra.Command{
		Use:   "facets <graph.json>",
		Short: "Discover facet keys and count their values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger()
			defer logger.Sync()

			doc, _, err := opts.loadDocument(args[0], logger)
			if err != nil {
				return err
			}
			cfg, err := opts.domainConfig()
			if err != nil {
				return err
			}

			indexer := filters.NewIndexer(cfg, logger)
			keys := indexer.DiscoverFacetKeys(doc, sample)
			groups := indexer.BuildFacetIndex(doc, keys, filters.NewState(logger).Factory())

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), groups)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FACET\tVALUE\tCOUNT")
			for _, g := range groups {
				for _, v := range g.Values {
					fmt.Fprintf(tw, "%s\t%s\t%d\n", g.Key, v.Value, v.CountAll)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the facet index as JSON")
	cmd.Flags().IntVar(&sample, "sample", 0, "nodes sampled for key discovery; 0 uses the configured limit")
	return cmd
}
