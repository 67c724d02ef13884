package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ha1tch/tabgraph/pkg/models"
)

var (
	// ErrOutputWrite is returned when an output file cannot be written
	ErrOutputWrite = errors.New("output write failed")
	// ErrUnknownSink is returned when no sink is registered under a name
	ErrUnknownSink = errors.New("unknown sink type")
)

// WriteError reports a failure to write one output file
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrOutputWrite, e.Path, e.Err)
}

// Unwrap returns both the sentinel and the underlying cause
func (e *WriteError) Unwrap() []error {
	return []error{ErrOutputWrite, e.Err}
}

// Sink defines the interface for graph output backends
type Sink interface {
	// Write serializes the graph into dir and returns the files it produced.
	// A sink that writes several files attempts all of them even when one
	// fails.
	Write(ctx context.Context, dir string, g *models.Graph) ([]string, error)
}

// SinkInfo provides metadata about a sink implementation
type SinkInfo struct {
	Type   string   // "csv", "json", "sqlite"
	Files  []string // file names written into the output directory
	Atomic bool     // files are complete or absent
}

// InfoProvider allows sinks to describe themselves
type InfoProvider interface {
	Info() SinkInfo
}
