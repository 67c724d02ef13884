package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ha1tch/tabgraph/pkg/models"
)

// SinkFactory is a function that creates a new Sink instance
type SinkFactory func(config map[string]interface{}) (Sink, error)

var (
	sinkMu       sync.RWMutex
	sinkRegistry = make(map[string]SinkFactory)
)

// RegisterSink registers a new sink implementation
func RegisterSink(name string, factory SinkFactory) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	sinkRegistry[name] = factory
}

// NewSink creates a new sink instance by name
func NewSink(name string, config map[string]interface{}) (Sink, error) {
	sinkMu.RLock()
	factory, exists := sinkRegistry[name]
	sinkMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSink, name)
	}

	return factory(config)
}

// ListSinks returns all registered sink types in name order
func ListSinks() []string {
	sinkMu.RLock()
	defer sinkMu.RUnlock()

	sinks := make([]string, 0, len(sinkRegistry))
	for name := range sinkRegistry {
		sinks = append(sinks, name)
	}
	sort.Strings(sinks)
	return sinks
}

func init() {
	RegisterSink("csv", func(config map[string]interface{}) (Sink, error) {
		return NewCSVSink(), nil
	})

	RegisterSink("json", func(config map[string]interface{}) (Sink, error) {
		indent, ok := config["indent"].(bool)
		if !ok {
			indent = true
		}
		return NewJSONFileSink(indent), nil
	})

	RegisterSink("sqlite", func(config map[string]interface{}) (Sink, error) {
		sqliteConfig := SQLiteConfig{
			FileName:    SQLiteFileName,
			CacheSize:   2000, // 2MB
			BusyTimeout: 5000, // 5 seconds
		}

		if name, ok := config["file_name"].(string); ok && name != "" {
			sqliteConfig.FileName = name
		}
		if cache, ok := config["cache_size"].(int); ok {
			sqliteConfig.CacheSize = cache
		}
		if timeout, ok := config["busy_timeout"].(int); ok {
			sqliteConfig.BusyTimeout = timeout
		}

		return NewSQLiteSink(sqliteConfig), nil
	})
}

// WriteAll writes the graph through every sink. Sinks are independent: a
// failing sink is logged and the remaining sinks still run. The returned
// error joins every failure.
func WriteAll(ctx context.Context, sinks []Sink, dir string, g *models.Graph, logger zerolog.Logger) ([]string, error) {
	var (
		written []string
		errs    []error
	)

	for _, sink := range sinks {
		files, err := sink.Write(ctx, dir, g)
		for _, f := range files {
			logger.Info().Str("file", f).Msg("Output file created")
		}
		written = append(written, files...)

		if err != nil {
			event := logger.Error().Err(err)
			if info, ok := sink.(InfoProvider); ok {
				event = event.Str("sink", info.Info().Type)
			}
			event.Msg("Failed to write output")
			errs = append(errs, err)
		}
	}

	return written, errors.Join(errs...)
}
