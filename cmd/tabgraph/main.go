package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ha1tch/tabgraph/pkg/config"
	"github.com/ha1tch/tabgraph/pkg/convert"
)

// ExitError carries the exit code the process should terminate with
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return &ExitError{Code: 1, Message: "Usage: tabgraph <path_to_csv_file>"}
	}
	inputPath := args[0]

	if _, err := os.Stat(inputPath); errors.Is(err, os.ErrNotExist) {
		return &ExitError{Code: 1, Message: fmt.Sprintf("Error: File not found: %s", inputPath)}
	}

	cfg, err := config.Load()
	if err != nil {
		return &ExitError{Code: 1, Message: fmt.Sprintf("Error: %v", err)}
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}).
		Level(cfg.Level()).
		With().
		Timestamp().
		Logger()

	converter, err := convert.New(cfg, logger)
	if err != nil {
		return &ExitError{Code: 1, Message: fmt.Sprintf("Error: %v", err)}
	}

	result, err := converter.Run(context.Background(), inputPath)
	if result == nil {
		logger.Error().Err(err).Str("path", inputPath).Msg("Conversion failed")
		return &ExitError{Code: 1}
	}
	if err != nil {
		logger.Error().Err(err).Str("dir", result.OutputDir).Msg("Some output files could not be written")
		return &ExitError{Code: 1}
	}

	fmt.Fprintf(stdout, "Processing complete. Check %s for output files.\n", result.OutputDir)
	return nil
}
