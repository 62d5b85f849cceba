package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	domainconfig "github.com/SubjectCarterSoftware/WhoOwnsThis/domain/config"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/aggregates"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/config"
)

// options are the persistent flags shared by every command
type options struct {
	configDir string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "graphctl",
		Short:        "Offline tooling for ownership graph documents",
		Long:         longRoot,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "configuration directory; built-in defaults when empty")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newNormalizeCmd(opts),
		newFacetsCmd(opts),
		newValidateCmd(opts),
	)
	return root
}

func (o *options) logger() *zap.Logger {
	level := zapcore.WarnLevel
	if o.verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (o *options) domainConfig() (*domainconfig.DomainConfig, error) {
	if o.configDir == "" {
		return config.Default(config.EnvironmentFromEnv()).DomainConfig(), nil
	}
	cfg, err := config.NewLoader(o.configDir, config.EnvironmentFromEnv()).Load()
	if err != nil {
		return nil, err
	}
	return cfg.DomainConfig(), nil
}

// loadDocument reads and imports a graph file through the normalizer
func (o *options) loadDocument(path string, logger *zap.Logger) (*aggregates.Document, aggregates.ImportReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, aggregates.ImportReport{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg, err := o.domainConfig()
	if err != nil {
		return nil, aggregates.ImportReport{}, err
	}
	doc, report, err := aggregates.FromJSON(data, entities.NewNormalizer(cfg, nil), cfg)
	if err != nil {
		return nil, aggregates.ImportReport{}, err
	}
	logger.Debug("Document imported",
		zap.String("path", path),
		zap.Int("nodes", report.Nodes),
		zap.Int("edges", report.Edges),
		zap.Int("droppedNodes", report.DroppedNodes),
		zap.Int("droppedEdges", report.DroppedEdges),
	)
	return doc, report, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var longRoot = `
Inspect and clean up ownership graph documents without running the server.

Examples:
  # Normalize every node and write the cleaned document
  graphctl normalize team.json -o team.normalized.json

  # List the facets the filter panel would offer
  graphctl facets team.json

  # Fail when any node or edge would be dropped on import
  graphctl validate --strict team.json
`
