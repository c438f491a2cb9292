// Package logging provides structured logging configuration using log/slog.
//
// Components take a *slog.Logger and derive scoped loggers from it with
// Component and WithFields. Operation IDs travel in the context so every
// entry written during one facade call can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const ctxKeyOperationID contextKey = "operation_id"

// Setup builds a logger for the given level and format, installs it as
// the slog default, and returns it.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// OrDefault returns logger, or slog.Default() when logger is nil.
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Component returns a logger tagged with a component name.
func Component(logger *slog.Logger, name string) *slog.Logger {
	return OrDefault(logger).With("component", name)
}

// ContextWithOperationID attaches an operation ID for log correlation.
func ContextWithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyOperationID, id)
}

// OperationIDFromContext extracts the operation ID, empty if none.
func OperationIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyOperationID).(string); ok {
		return v
	}
	return ""
}

// FromContext returns logger enriched with the context's operation ID.
//
//	logger := logging.FromContext(ctx, g.logger)
//	logger.Info("import finished", "rows", n)
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	logger = OrDefault(logger)
	if id := OperationIDFromContext(ctx); id != "" {
		logger = logger.With("operation_id", id)
	}
	return logger
}

// WithFields returns a logger with additional structured fields that
// carry through a multi-step operation.
func WithFields(ctx context.Context, logger *slog.Logger, args ...any) *slog.Logger {
	return FromContext(ctx, logger).With(args...)
}
