package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ha1tch/tabgraph/pkg/models"
	"github.com/ha1tch/tabgraph/pkg/storage"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: tabgraph-migrate <source-graph> <target-dir> [sink...]")
		fmt.Println("Example: tabgraph-migrate ./export/graph.db ./export-csv csv json")
		os.Exit(1)
	}

	source := os.Args[1]
	targetDir := os.Args[2]
	sinks := os.Args[3:]
	if len(sinks) == 0 {
		sinks = []string{"csv"}
	}

	if err := migrate(context.Background(), os.Stdout, source, targetDir, sinks); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Migration completed successfully!")
}

// migrate reads a graph written by the json or sqlite sink and writes it
// again through the named sinks.
func migrate(ctx context.Context, out io.Writer, source, targetDir string, sinkNames []string) error {
	if _, err := os.Stat(source); os.IsNotExist(err) {
		return fmt.Errorf("source graph does not exist: %s", source)
	}

	fmt.Fprintf(out, "Reading %s...\n", source)
	g, err := readGraph(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}

	sinks := make([]storage.Sink, 0, len(sinkNames))
	for _, name := range sinkNames {
		sink, err := storage.NewSink(name, map[string]interface{}{})
		if err != nil {
			return fmt.Errorf("failed to create sink: %w", err)
		}
		sinks = append(sinks, sink)
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	files, err := storage.WriteAll(ctx, sinks, targetDir, g, zerolog.Nop())
	for _, file := range files {
		fmt.Fprintf(out, "  Wrote %s\n", file)
	}
	if err != nil {
		return err
	}

	counts := g.EdgeCounts()
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)

	fmt.Fprintf(out, "\nMigration summary:\n")
	fmt.Fprintf(out, "  Total nodes: %d\n", len(g.Nodes))
	fmt.Fprintf(out, "  Total edges: %d\n", len(g.Edges))
	for _, t := range types {
		fmt.Fprintf(out, "    %s: %d\n", t, counts[models.EdgeType(t)])
	}
	fmt.Fprintf(out, "  Skipped rows: %d\n", g.Skipped)

	return nil
}

func readGraph(ctx context.Context, path string) (*models.Graph, error) {
	switch filepath.Ext(path) {
	case ".db", ".sqlite":
		return storage.ReadSQLiteGraph(ctx, path)
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return storage.ReadJSONGraph(f)
	}
	return nil, fmt.Errorf("unsupported source format %q (expected .db or .json)", filepath.Ext(path))
}
