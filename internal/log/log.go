// ABOUTME: Leveled printf-style logger for the completion engine and CLI
// ABOUTME: Global level via SetLevel; output defaults to stderr so stdout stays free for RPC

package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level constants matching slog levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var (
	level atomic.Int64

	outMu      sync.Mutex
	out        io.Writer = os.Stderr
	timestamps bool
)

func init() {
	level.Store(int64(LevelInfo))
}

// SetLevel sets the global log level.
func SetLevel(l slog.Level) {
	level.Store(int64(l))
}

// GetLevel returns the current log level.
func GetLevel() slog.Level {
	return slog.Level(level.Load())
}

// ParseLevel maps a config string ("debug", "info", "warn", "error") to a level.
// Unknown strings fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetOutput redirects all log output. A nil writer restores stderr.
// When stamp is true every line is prefixed with an RFC3339 timestamp,
// which is useful for log files but noisy on a terminal.
func SetOutput(w io.Writer, stamp bool) {
	outMu.Lock()
	defer outMu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	out = w
	timestamps = stamp
}

// Debug logs a debug message if the level allows it.
func Debug(format string, args ...any) {
	if slog.Level(level.Load()) > LevelDebug {
		return
	}
	emit("[DEBUG] ", format, args)
}

// Info logs an info message if the level allows it.
func Info(format string, args ...any) {
	if slog.Level(level.Load()) > LevelInfo {
		return
	}
	emit("[INFO] ", format, args)
}

// Warn logs a warning message if the level allows it.
func Warn(format string, args ...any) {
	if slog.Level(level.Load()) > LevelWarn {
		return
	}
	emit("[WARN] ", format, args)
}

// Error logs an error message (always emitted).
func Error(format string, args ...any) {
	emit("[ERROR] ", format, args)
}

func emit(prefix, format string, args []any) {
	outMu.Lock()
	defer outMu.Unlock()
	if timestamps {
		prefix = time.Now().Format(time.RFC3339) + " " + prefix
	}
	fmt.Fprintf(out, prefix+format+"\n", args...)
}
