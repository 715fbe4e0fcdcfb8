// Package logging wraps zerolog for the two ways castrank runs: as a
// full-screen TUI, where the terminal belongs to the program and logs go to
// a file, and as a plain command that logs to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Modes
const (
	ModeCLI = "cli"
	ModeTUI = "tui"
)

// Logger wraps zerolog with mode-specific output.
type Logger struct {
	zlog   zerolog.Logger
	mode   string
	output io.Writer
	closer io.Closer
}

// New creates a logger writing to w. CLI mode uses the console writer,
// anything else writes JSON lines.
func New(mode string, w io.Writer) *Logger {
	l := &Logger{mode: mode}
	l.SetOutput(w)
	return l
}

// NewCLI logs human-readable lines to stderr.
func NewCLI() *Logger {
	return New(ModeCLI, os.Stderr)
}

// NewTUI logs JSON lines to path, creating its directory. An empty path
// discards everything, since the TUI owns stdout and stderr.
func NewTUI(path string) (*Logger, error) {
	if path == "" {
		return New(ModeTUI, io.Discard), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	l := New(ModeTUI, f)
	l.closer = f
	return l, nil
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop(), mode: ModeCLI, output: io.Discard}
}

// SetOutput redirects the logger, keeping its mode's format.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	if l.mode == ModeCLI {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	l.zlog = zerolog.New(w).With().Timestamp().Logger()
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event { return l.zlog.Info() }

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event { return l.zlog.Warn() }

// With creates a child logger context.
func (l *Logger) With() zerolog.Context { return l.zlog.With() }

// Zerolog exposes the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger { return l.zlog }

// SetLevel parses a level name ("debug", "info", ...) and applies it
// globally. Unknown names fall back to info.
func SetLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return level
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
