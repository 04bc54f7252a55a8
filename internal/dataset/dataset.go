// Package dataset loads closing-price series from CSV files.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"crossover-go/internal/signal"
)

// CloseColumn is the header the loader requires.
const CloseColumn = "close"

const utf8BOM = "\ufeff"

// Error reports an invalid or missing dataset. Error() returns the
// user-facing message only.
type Error struct {
	Msg   string
	Cause error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Cause }

// PriceSeries is an ordered list of close observations in file order.
type PriceSeries struct {
	Rows []signal.Price
}

// Len returns the number of rows, including rows with a missing close.
func (s *PriceSeries) Len() int { return len(s.Rows) }

// ValidCount returns how many rows carry a numeric close.
func (s *PriceSeries) ValidCount() int {
	n := 0
	for _, p := range s.Rows {
		if p.Valid {
			n++
		}
	}
	return n
}

// Load opens a CSV file and returns its close column as a PriceSeries.
func Load(path string) (*PriceSeries, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, &Error{Msg: "Input file missing", Cause: err}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &Error{Msg: "Invalid CSV format", Cause: fmt.Errorf("open csv: %w", err)}
	}
	defer file.Close()

	return Read(file)
}

// Read parses CSV content with a header row and coerces the close column to
// float64. Unparseable, blank, NaN or absent cells become invalid prices.
func Read(r io.Reader) (*PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &Error{Msg: "Invalid CSV format", Cause: fmt.Errorf("read csv header: %w", err)}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &Error{Msg: "Invalid CSV format", Cause: fmt.Errorf("read csv row: %w", err)}
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, &Error{
				Msg:   "Invalid CSV format",
				Cause: fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(record)),
			}
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, &Error{Msg: "CSV file is empty"}
	}

	closeIdx := -1
	for i, column := range header {
		if column == CloseColumn {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 {
		return nil, &Error{Msg: "Missing 'close' column"}
	}

	series := &PriceSeries{Rows: make([]signal.Price, len(records))}
	for i, record := range records {
		if closeIdx < len(record) {
			series.Rows[i] = coerce(record[closeIdx])
		}
	}
	if series.ValidCount() == 0 {
		return nil, &Error{Msg: "'close' column is not numeric"}
	}
	return series, nil
}

func coerce(cell string) signal.Price {
	value, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsNaN(value) {
		return signal.Price{}
	}
	return signal.Price{Close: value, Valid: true}
}
