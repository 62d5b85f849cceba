package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/persistence/file"
)

func newNormalizeCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "normalize <graph.json>",
		Short: "Normalize every node and print the cleaned document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger()
			defer logger.Sync()

			doc, report, err := opts.loadDocument(args[0], logger)
			if err != nil {
				return err
			}
			if output == "" {
				return writeJSON(cmd.OutOrStdout(), doc.Export())
			}

			data, err := doc.ToJSON()
			if err != nil {
				return err
			}
			path, err := file.NewDocuments("", logger).Save(cmd.Context(), output, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s: %d nodes, %d edges (%d nodes and %d edges dropped)\n",
				path, report.Nodes, report.Edges, report.DroppedNodes, report.DroppedEdges)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
