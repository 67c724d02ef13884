package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ha1tch/tabgraph/pkg/models"
)

const (
	NodesFileName = "nodes.csv"
	EdgesFileName = "edges.csv"
)

// EdgesHeader is the header row of the edges table
var EdgesHeader = []string{"source", "target", "type"}

// CSVSink writes the node and edge tables as two CSV files
type CSVSink struct{}

// NewCSVSink creates a new CSV sink
func NewCSVSink() *CSVSink {
	return &CSVSink{}
}

// Info returns sink information
func (s *CSVSink) Info() SinkInfo {
	return SinkInfo{
		Type:   "csv",
		Files:  []string{NodesFileName, EdgesFileName},
		Atomic: true,
	}
}

// Write writes nodes.csv and edges.csv into dir. The edges file is attempted
// even when the nodes file fails.
func (s *CSVSink) Write(ctx context.Context, dir string, g *models.Graph) ([]string, error) {
	var (
		written []string
		errs    []error
	)

	nodesPath := filepath.Join(dir, NodesFileName)
	if err := writeFileAtomic(nodesPath, func(w io.Writer) error {
		return WriteNodes(w, g)
	}); err != nil {
		errs = append(errs, err)
	} else {
		written = append(written, nodesPath)
	}

	edgesPath := filepath.Join(dir, EdgesFileName)
	if err := writeFileAtomic(edgesPath, func(w io.Writer) error {
		return WriteEdges(w, g)
	}); err != nil {
		errs = append(errs, err)
	} else {
		written = append(written, edgesPath)
	}

	return written, errors.Join(errs...)
}

// WriteNodes writes the node table: the graph columns as header, then one
// record per node in graph order.
func WriteNodes(w io.Writer, g *models.Graph) (retErr error) {
	csvWriter := newCSVWriter(w)
	defer func() {
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil && retErr == nil {
			retErr = fmt.Errorf("CSV writer flush error: %w", err)
		}
	}()

	if err := csvWriter.Write(g.Columns); err != nil {
		return fmt.Errorf("failed to write nodes header: %w", err)
	}

	record := make([]string, len(g.Columns))
	for _, node := range g.Nodes {
		for i, column := range g.Columns {
			record[i] = node.Value(column)
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write node %s: %w", node.ID, err)
		}
	}

	return nil
}

// WriteEdges writes the edge table in construction order
func WriteEdges(w io.Writer, g *models.Graph) (retErr error) {
	csvWriter := newCSVWriter(w)
	defer func() {
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil && retErr == nil {
			retErr = fmt.Errorf("CSV writer flush error: %w", err)
		}
	}()

	if err := csvWriter.Write(EdgesHeader); err != nil {
		return fmt.Errorf("failed to write edges header: %w", err)
	}

	for _, edge := range g.Edges {
		if err := csvWriter.Write([]string{edge.Source, edge.Target, string(edge.Type)}); err != nil {
			return fmt.Errorf("failed to write edge: %w", err)
		}
	}

	return nil
}

// newCSVWriter returns a writer that terminates records with CRLF
func newCSVWriter(w io.Writer) *csv.Writer {
	csvWriter := csv.NewWriter(w)
	csvWriter.UseCRLF = true
	return csvWriter
}

// writeFileAtomic writes through a uniquely named temp file in the same
// directory and renames it into place, so path is either complete or
// untouched and no other file is clobbered.
func writeFileAtomic(path string, fill func(w io.Writer) error) error {
	file, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tempFile := file.Name()

	writer := bufio.NewWriter(file)
	err = fill(writer)
	if err == nil {
		err = writer.Flush()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tempFile, 0644)
	}
	if err == nil {
		err = os.Rename(tempFile, path)
	}
	if err != nil {
		os.Remove(tempFile)
		return &WriteError{Path: path, Err: err}
	}

	return nil
}
