package storage

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/ha1tch/tabgraph/pkg/models"
)

const JSONFileName = "graph.json"

// JSONFileSink writes the whole graph as a single JSON document
type JSONFileSink struct {
	indent bool
}

// NewJSONFileSink creates a new JSON file sink
func NewJSONFileSink(indent bool) *JSONFileSink {
	return &JSONFileSink{indent: indent}
}

// Info returns sink information
func (s *JSONFileSink) Info() SinkInfo {
	return SinkInfo{
		Type:   "json",
		Files:  []string{JSONFileName},
		Atomic: true,
	}
}

// Write writes graph.json into dir
func (s *JSONFileSink) Write(ctx context.Context, dir string, g *models.Graph) ([]string, error) {
	path := filepath.Join(dir, JSONFileName)

	err := writeFileAtomic(path, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		if s.indent {
			encoder.SetIndent("", "  ")
		}
		return encoder.Encode(g)
	})
	if err != nil {
		return nil, err
	}

	return []string{path}, nil
}

// ReadJSONGraph reads a graph previously written by the JSON sink
func ReadJSONGraph(r io.Reader) (*models.Graph, error) {
	var g models.Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
}
