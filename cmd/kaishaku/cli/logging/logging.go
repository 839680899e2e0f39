// Package logging writes structured JSON logs to .git/kaishaku/.logs/kaishaku.log.
//
// Log records never go to the user's terminal: until Init succeeds every call
// is discarded. Context carries the component and session name so call sites
// only pass the attributes specific to the event.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// LogsDirName is the log directory under the registry root. The leading dot
	// keeps it out of session listings.
	LogsDirName = ".logs"
	// LogFileName is the single log file all invocations append to.
	LogFileName = "kaishaku.log"
	// LogLevelEnvVar overrides the log level (debug, info, warn, error).
	LogLevelEnvVar = "KAISHAKU_LOG_LEVEL"
)

type ctxKey int

const (
	componentKey ctxKey = iota
	sessionKey
)

var (
	mu      sync.Mutex
	logger  = slog.New(slog.NewJSONHandler(io.Discard, nil))
	logFile *os.File
)

// ParseLevel converts a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init opens the log file under registryRoot/.logs and routes all subsequent
// log calls there. Calling Init again replaces the previous destination.
func Init(registryRoot string) error {
	dir := filepath.Join(registryRoot, LogsDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	//nolint:gosec // path is built from the repository's git dir
	f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	logger = newLogger(f, ParseLevel(os.Getenv(LogLevelEnvVar)))
	return nil
}

// SetOutput routes logs to w at the given level. Used by tests.
func SetOutput(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, level)
}

// Close flushes and closes the log file. Subsequent calls are discarded.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithComponent returns a context that tags log records with a component name.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// WithSession returns a context that tags log records with a session name.
func WithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

func current() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

func log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	l := current()
	if !l.Enabled(ctx, level) {
		return
	}
	if c, ok := ctx.Value(componentKey).(string); ok && c != "" {
		attrs = append(attrs, slog.String("component", c))
	}
	if s, ok := ctx.Value(sessionKey).(string); ok && s != "" {
		attrs = append(attrs, slog.String("session", s))
	}
	l.LogAttrs(ctx, level, msg, attrs...)
}

func Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelDebug, msg, attrs...)
}

func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelInfo, msg, attrs...)
}

func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelWarn, msg, attrs...)
}

func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelError, msg, attrs...)
}

// LogDuration logs msg at level with a duration_ms attribute measured from start.
func LogDuration(ctx context.Context, level slog.Level, msg string, start time.Time, attrs ...slog.Attr) {
	attrs = append(attrs, slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	log(ctx, level, msg, attrs...)
}
