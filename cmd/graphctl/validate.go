package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// validation is the validate command's result
type validation struct {
	File         string `json:"file"`
	Nodes        int    `json:"nodes"`
	Edges        int    `json:"edges"`
	DroppedNodes int    `json:"droppedNodes"`
	DroppedEdges int    `json:"droppedEdges"`
}

func (v validation) clean() bool { return v.DroppedNodes == 0 && v.DroppedEdges == 0 }

func newValidateCmd(opts *options) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <graph.json>",
		Short: "Report what an import would keep and drop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger()
			defer logger.Sync()

			raw, err := countEntries(args[0])
			if err != nil {
				return err
			}
			_, report, err := opts.loadDocument(args[0], logger)
			if err != nil {
				return err
			}

			// entries without a key or endpoints never reach the import
			result := validation{
				File:         args[0],
				Nodes:        report.Nodes,
				Edges:        report.Edges,
				DroppedNodes: raw.nodes - report.Nodes,
				DroppedEdges: raw.edges - report.Edges,
			}
			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if strict && !result.clean() {
				return fmt.Errorf("%s: %d nodes and %d edges would be dropped", args[0], result.DroppedNodes, result.DroppedEdges)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when anything would be dropped")
	return cmd
}

type entryCounts struct {
	nodes int
	edges int
}

func countEntries(path string) (entryCounts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entryCounts{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var doc struct {
		Nodes []json.RawMessage `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return entryCounts{}, fmt.Errorf("%s is not a graph document: %w", path, err)
	}
	return entryCounts{nodes: len(doc.Nodes), edges: len(doc.Edges)}, nil
}
