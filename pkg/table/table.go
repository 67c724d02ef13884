// Package table loads a delimited source table into memory.
//
// Column names are normalized (leading byte-order marks removed, lower-cased)
// and every record is materialized so callers can traverse the rows more than
// once and observe the same sequence each time.
package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ha1tch/tabgraph/pkg/models"
)

var (
	// ErrMalformedInput is returned when the source cannot be parsed as a table
	ErrMalformedInput = errors.New("malformed input")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads the table stored at path
func Load(path string) (*models.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()

	t, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read parses a table from r. The first record is the header.
func Read(r io.Reader) (*models.Table, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1 // short and long records are tolerated row by row
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedInput)
	}
	if err != nil {
		return nil, classify(err)
	}
	if err := checkEncoding(reader, header); err != nil {
		return nil, err
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = NormalizeColumn(name)
	}

	t := &models.Table{
		Columns: columns,
		Rows:    make([]models.Row, 0),
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, classify(err)
		}
		if err := checkEncoding(reader, record); err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, newRow(columns, record))
	}

	return t, nil
}

// NormalizeColumn strips leading byte-order marks and lower-cases a column
// name with full Unicode case mapping: U+0130 lowers to "i\u0307", so a
// dotted capital I never collapses into the id column.
func NormalizeColumn(name string) string {
	// A Caser holds state and is not safe for concurrent use.
	return cases.Lower(language.Und).String(strings.TrimLeft(name, "\ufeff"))
}

func newRow(columns []string, record []string) models.Row {
	row := make(models.Row, len(columns))
	for i, column := range columns {
		if i < len(record) {
			row[column] = record[i]
		} else {
			row[column] = ""
		}
	}
	return row
}

// checkEncoding rejects records that are not valid UTF-8
func checkEncoding(reader *csv.Reader, record []string) error {
	for i, field := range record {
		if !utf8.ValidString(field) {
			line, column := reader.FieldPos(i)
			return fmt.Errorf("%w: line %d, column %d: invalid UTF-8", ErrMalformedInput, line, column)
		}
	}
	return nil
}

func classify(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("%w: line %d: %v", ErrMalformedInput, parseErr.Line, parseErr.Err)
	}
	return fmt.Errorf("failed to read input: %w", err)
}
