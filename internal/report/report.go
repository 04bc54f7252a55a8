// Package report serializes run outcomes to the metrics file and mirrors them
// to a secondary stream.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	// StatusSuccess marks a completed run.
	StatusSuccess = "success"
	// StatusError marks a failed run.
	StatusError = "error"
	// MetricSignalRate is the only metric the job reports.
	MetricSignalRate = "signal_rate"
	// UnknownVersion is reported when a run fails before its config loads.
	UnknownVersion = "unknown"
)

// Ratio is a float that always serializes with a fractional part, so 0 is
// written as 0.0.
type Ratio float64

// MarshalJSON implements json.Marshaler.
func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("unsupported ratio %v", f)
	}
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(out, ".e") {
		out += ".0"
	}
	return []byte(out), nil
}

// Success is the record written when a run completes.
type Success struct {
	Version       string `json:"version"`
	RowsProcessed int    `json:"rows_processed"`
	Metric        string `json:"metric"`
	Value         Ratio  `json:"value"`
	LatencyMs     int64  `json:"latency_ms"`
	Seed          int64  `json:"seed"`
	Status        string `json:"status"`
}

// NewSuccess fills the constant fields of a success record.
func NewSuccess(version string, rows int, signalRate float64, latencyMs, seed int64) Success {
	return Success{
		Version:       version,
		RowsProcessed: rows,
		Metric:        MetricSignalRate,
		Value:         Ratio(signalRate),
		LatencyMs:     latencyMs,
		Seed:          seed,
		Status:        StatusSuccess,
	}
}

// Failure is the record written when any stage fails.
type Failure struct {
	Version      string `json:"version"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// NewFailure builds an error record, substituting UnknownVersion for an unset version.
func NewFailure(version, message string) Failure {
	if version == "" {
		version = UnknownVersion
	}
	return Failure{Version: version, Status: StatusError, ErrorMessage: message}
}

// Writer emits a single record to a file and the same bytes to a mirror stream.
type Writer struct {
	path   string
	mirror io.Writer
}

// NewWriter returns a writer targeting path. A nil mirror discards the copy.
func NewWriter(path string, mirror io.Writer) *Writer {
	if mirror == nil {
		mirror = io.Discard
	}
	return &Writer{path: path, mirror: mirror}
}

// Path returns the report file location.
func (w *Writer) Path() string { return w.path }

// WriteSuccess serializes a success record. The mirror only receives it once
// the file is written, so a caller can still fall back to WriteError.
func (w *Writer) WriteSuccess(rec Success) error { return w.write(rec, false) }

// WriteError serializes an error record. The mirror receives it even when the
// file cannot be written.
func (w *Writer) WriteError(rec Failure) error { return w.write(rec, true) }

func (w *Writer) write(rec any, mirrorOnFailure bool) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	fileErr := w.writeFile(data)
	if fileErr != nil && !mirrorOnFailure {
		return fileErr
	}
	if _, err := w.mirror.Write(append(data, '\n')); err != nil && fileErr == nil {
		return fmt.Errorf("mirror report: %w", err)
	}
	return fileErr
}

func (w *Writer) writeFile(data []byte) error {
	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	return nil
}

// Encode renders a record as 4-space indented JSON without a trailing newline.
func Encode(rec any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
