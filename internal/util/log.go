package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger writes JSON logs to stdout at the given level, falling back to info.
func NewLogger(level string) zerolog.Logger {
	return NewWriterLogger(os.Stdout, level)
}

// NewWriterLogger is NewLogger against an arbitrary sink.
func NewWriterLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// NewFileLogger appends JSON logs to path, creating parent directories as
// needed. The returned file must be closed by the caller.
func NewFileLogger(path, level string) (zerolog.Logger, *os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	return NewWriterLogger(file, level), file, nil
}
