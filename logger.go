package vtable

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vtable-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithTable adds a table field to the logger.
func (l *Logger) WithTable(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", id),
	}
}

// WithOp adds an operation field to the logger.
func (l *Logger) WithOp(op string) *Logger {
	return &Logger{
		Logger: l.Logger.With("op", op),
	}
}

// LogMutation logs a mutating operation. attrs are key/value pairs
// identifying the affected entities.
func (l *Logger) LogMutation(ctx context.Context, op string, err error, attrs ...any) {
	if err != nil {
		l.ErrorContext(ctx, "mutation failed",
			append([]any{"op", op, "error", err}, attrs...)...,
		)
	} else {
		l.DebugContext(ctx, "mutation completed",
			append([]any{"op", op}, attrs...)...,
		)
	}
}

// LogQuery logs a read operation.
func (l *Logger) LogQuery(ctx context.Context, op string, err error, attrs ...any) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			append([]any{"op", op, "error", err}, attrs...)...,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			append([]any{"op", op}, attrs...)...,
		)
	}
}

// LogCascade logs the size of a cascading delete.
func (l *Logger) LogCascade(ctx context.Context, op string, columns, rows, cells int) {
	l.InfoContext(ctx, "cascade delete",
		"op", op,
		"columns", columns,
		"rows", rows,
		"cells", cells,
	)
}
