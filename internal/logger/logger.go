// Package logger holds the process-wide slog logger used by the tables when
// no per-table logger is configured.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvVar selects a log level for FromEnv ("debug", "info", "warn", "error").
const EnvVar = "EXTABLE_LOG"

// L is the global logger instance. It's initialized to discard all output by default.
// Call Init() or FromEnv() to enable logging.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Output  io.Writer  // Destination. Default: os.Stderr
	Level   slog.Level // Minimum log level. Default: LevelInfo when enabled
	JSON    bool       // Emit JSON records instead of text
}

// Init configures logging. Call from main() before any log calls.
// If opts.Enabled is false, all log output is discarded.
func Init(opts Options) {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := opts.Level
	if level == 0 {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.JSON {
		L = slog.New(slog.NewJSONHandler(out, handlerOpts))
		return
	}
	L = slog.New(slog.NewTextHandler(out, handlerOpts))
}

// FromEnv enables stderr logging when EXTABLE_LOG is set. It returns false
// and leaves the logger untouched when the variable is empty or unknown.
func FromEnv() bool {
	level, ok := ParseLevel(os.Getenv(EnvVar))
	if !ok {
		return false
	}
	Init(Options{Enabled: true, Level: level})
	return true
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
