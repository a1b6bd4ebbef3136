// Package applog is a thin log/slog wrapper so the rest of heatwatch logs
// through one shared, testable surface instead of reaching for slog (or
// fmt.Fprintf) directly in every package.
package applog

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps *slog.Logger. The zero value is not usable; construct one
// with New.
type Logger struct {
	*slog.Logger
}

// New builds a Logger writing structured text lines to w (typically a
// file, since stderr is owned by the terminal renderer while the
// bubbletea program is running full-screen).
func New(w io.Writer, level slog.Level) *Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(h)}
}

// Discard returns a Logger that drops everything, for tests and for any
// run where --log-file was not supplied.
func Discard() *Logger {
	return New(io.Discard, slog.LevelError)
}

// NewFile opens path for appending and returns a Logger backed by it,
// plus the underlying file so the caller can close it on shutdown. If
// path is empty, it returns a Discard logger and a nil file.
func NewFile(path string, level slog.Level) (*Logger, *os.File, error) {
	if path == "" {
		return Discard(), nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return New(f, level), f, nil
}
