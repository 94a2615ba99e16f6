// Package logging builds the process slog.Logger from the [log] config section.
// Output goes to stderr, or is appended to a log file under the data directory.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/runoshun/sprintcrew/internal/domain"
)

// Logger owns a configured slog.Logger and the file it writes to, if any.
// Fields are ordered to minimize memory padding.
type Logger struct {
	*slog.Logger
	file *os.File
	mu   sync.Mutex
}

// New creates a Logger for cfg. Relative log files resolve against dataDir.
func New(dataDir string, cfg domain.LogConfig) (*Logger, error) {
	var out io.Writer = os.Stderr
	var file *os.File

	if path := domain.LogPath(dataDir, cfg); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		// G302: Log files are append-only and need read access by the operator group
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out, file = f, f
	}

	return &Logger{
		Logger: slog.New(NewHandler(out, cfg)),
		file:   file,
	}, nil
}

// NewHandler returns a text or JSON handler at the configured level.
func NewHandler(w io.Writer, cfg domain.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
