// Package convert runs a full conversion: load the source table, build the
// graph and hand it to the configured output sinks.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ha1tch/tabgraph/pkg/config"
	"github.com/ha1tch/tabgraph/pkg/graph"
	"github.com/ha1tch/tabgraph/pkg/models"
	"github.com/ha1tch/tabgraph/pkg/storage"
	"github.com/ha1tch/tabgraph/pkg/table"
)

// Result describes a finished conversion
type Result struct {
	OutputDir string
	Files     []string
	Graph     *models.Graph
	Stats     models.ConversionStats
}

// Converter converts source tables into graph output files
type Converter struct {
	sinks  []storage.Sink
	logger zerolog.Logger
}

// New creates a converter with the sinks named in cfg
func New(cfg *config.Config, logger zerolog.Logger) (*Converter, error) {
	sinks := make([]storage.Sink, 0, len(cfg.Sinks))
	for _, name := range cfg.Sinks {
		sink, err := storage.NewSink(name, SinkConfig(cfg, name))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	return NewWithSinks(sinks, logger), nil
}

// NewWithSinks creates a converter writing through the given sinks
func NewWithSinks(sinks []storage.Sink, logger zerolog.Logger) *Converter {
	return &Converter{
		sinks:  sinks,
		logger: logger,
	}
}

// SinkConfig returns the factory configuration for a sink
func SinkConfig(cfg *config.Config, name string) map[string]interface{} {
	switch name {
	case "json":
		return map[string]interface{}{"indent": cfg.JSONIndent}
	case "sqlite":
		return map[string]interface{}{
			"cache_size":   cfg.SQLiteCacheSize,
			"busy_timeout": cfg.SQLiteBusyTimeout,
		}
	}
	return map[string]interface{}{}
}

// OutputDir returns the directory a conversion of inputPath writes into: a
// sibling of the input named after its base name without extension.
// Leading dots never start an extension, so ".hidden" keeps its whole name.
func OutputDir(inputPath string) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(strings.TrimLeft(base, "."))
	name := strings.TrimSuffix(base, ext)
	return filepath.Join(filepath.Dir(inputPath), name)
}

// Run converts the table at inputPath. Nothing is written when the input
// cannot be loaded. Sink failures are returned together with the result so
// the caller can still report the files that were written.
func (c *Converter) Run(ctx context.Context, inputPath string) (*Result, error) {
	stats := models.ConversionStats{StartTime: time.Now()}

	t, err := table.Load(inputPath)
	if err != nil {
		return nil, err
	}
	c.logger.Info().Strs("columns", t.Columns).Msg("Available columns")

	g := graph.NewBuilder(c.logger).Build(t)

	outputDir := OutputDir(inputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	c.logger.Info().Str("dir", outputDir).Msg("Output directory created")

	files, writeErr := storage.WriteAll(ctx, c.sinks, outputDir, g, c.logger)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime).Seconds()
	stats.Rows = len(t.Rows)
	stats.Nodes = len(g.Nodes)
	stats.Edges = len(g.Edges)
	stats.Skipped = g.Skipped

	c.logger.Info().
		Int("rows", stats.Rows).
		Int("nodes", stats.Nodes).
		Int("edges", stats.Edges).
		Int("skipped", stats.Skipped).
		Float64("duration", stats.Duration).
		Msg("Conversion finished")

	return &Result{
		OutputDir: outputDir,
		Files:     files,
		Graph:     g,
		Stats:     stats,
	}, writeErr
}
