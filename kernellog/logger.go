// Package kernellog provides structured logging for the rustcore-go
// microkernel and its boot-time collaborators.
//
// It uses the standard library's log/slog for structured, leveled logging,
// the same way the rest of this codebase's logging layer does. The one
// addition specific to a kernel is ConsoleWriter: an io.Writer adapter so
// the default logger can be pointed at the serial console during early
// boot and at os.Stderr once a hosted harness takes over.
package kernellog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"rustcore-go/arch"
)

type ctxKey struct{}

var (
	defaultLogger *slog.Logger
	loggerMu      sync.RWMutex
)

func init() {
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// ConsoleWriter is an io.Writer adapter over the kernel's simulated serial
// console, letting a slog.Handler write there directly. This is what a
// kernel uses before a hosted harness (the CLI, a test) takes over and
// points the logger at os.Stderr instead.
type ConsoleWriter struct{}

// Write sends p to the serial console byte by byte and always reports
// success; the console has no backpressure signal to report a short write.
func (ConsoleWriter) Write(p []byte) (int, error) {
	arch.WriteSerialBytes(p)
	return len(p), nil
}

// Config holds the logger configuration.
type Config struct {
	// Level is the minimum log level.
	Level slog.Level
	// Format is the output format ("text" or "json").
	Format string
	// Output is the log destination.
	Output io.Writer
	// AddSource adds source file information to log entries.
	AddSource bool
}

// NewLogger creates a new structured logger with the given configuration.
func NewLogger(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return slog.New(handler)
}

// SetDefault sets the default global logger.
func SetDefault(logger *slog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = logger
}

// Default returns the default global logger.
func Default() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return defaultLogger
}

// WithSubsystem returns a logger annotated with a kernel subsystem name
// (e.g. "memory", "ipc", "scheduler").
func WithSubsystem(logger *slog.Logger, subsystem string) *slog.Logger {
	return logger.With(slog.String("subsystem", subsystem))
}

// WithFrame returns a logger annotated with a physical frame number.
func WithFrame(logger *slog.Logger, frame uint16) *slog.Logger {
	return logger.With(slog.Uint64("frame", uint64(frame)))
}

// WithTask returns a logger annotated with a scheduler task id.
func WithTask(logger *slog.Logger, id uint16) *slog.Logger {
	return logger.With(slog.Uint64("task_id", uint64(id)))
}

// WithVector returns a logger annotated with an interrupt vector.
func WithVector(logger *slog.Logger, vector uint8) *slog.Logger {
	return logger.With(slog.Uint64("vector", uint64(vector)))
}

// ContextWithLogger returns a new context with the logger attached.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext retrieves the logger from context, falling back to Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return Default()
}

// ParseLevel parses a log level string ("debug", "info", "warn", "error").
// Invalid values return slog.LevelInfo.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Info logs an info message using the default logger.
func Info(msg string, args ...any) { Default().Info(msg, args...) }

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

// Error logs an error message using the default logger.
func Error(msg string, args ...any) { Default().Error(msg, args...) }

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
