// Package logging appends timestamped lines to a log file under the
// plugrove data root so node-scoped failures stay inspectable after a
// run finishes.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Logger appends timestamped lines to <root>/logs/plugrove.log.
// A nil Logger discards everything, so callers never need to guard.
type Logger struct {
	file *os.File
}

// New creates (or reuses) the log file under the given data root.
func New(root string) (*Logger, error) {
	logDir := filepath.Join(root, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "plugrove.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{file: f}, nil
}

// Discard returns a logger that drops all output. Used by tests and by
// library embedders that bring their own logging.
func Discard() *Logger {
	return &Logger{}
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Printf writes a single timestamped line to the log file.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	line = strings.TrimRight(line, "\n")
	timestamp := time.Now().Format(time.RFC3339)
	fmt.Fprintf(l.file, "[%s] %s\n", timestamp, line)
}

// Errorf writes a line with an error prefix.
func (l *Logger) Errorf(format string, args ...any) {
	l.Printf("error: "+format, args...)
}
