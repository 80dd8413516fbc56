package csrgo

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with csrgo-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithStage adds a build stage field to the logger.
func (l *Logger) WithStage(stage string) *Logger {
	return &Logger{
		Logger: l.Logger.With("stage", stage),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogNodesBuilt logs the completion of the id map build.
func (l *Logger) LogNodesBuilt(ctx context.Context, nodes uint64, labels int, bytes int64, duration time.Duration) {
	l.InfoContext(ctx, "nodes built",
		"nodes", nodes,
		"labels", labels,
		"bytes", bytes,
		"duration", duration,
	)
}

// LogRelationshipsBuilt logs the completion of the adjacency build.
func (l *Logger) LogRelationshipsBuilt(ctx context.Context, relationships uint64, bytes int64, duration time.Duration) {
	l.InfoContext(ctx, "relationships built",
		"relationships", relationships,
		"bytes", bytes,
		"duration", duration,
	)
}

// LogDropped logs relationships that were dropped or filtered during loading.
func (l *Logger) LogDropped(ctx context.Context, dropped, filtered uint64) {
	if dropped == 0 && filtered == 0 {
		return
	}
	l.WarnContext(ctx, "relationships skipped",
		"unmapped", dropped,
		"filtered", filtered,
	)
}

// LogBuildFailed logs a failed build stage.
func (l *Logger) LogBuildFailed(ctx context.Context, stage string, err error) {
	l.ErrorContext(ctx, "build failed",
		"stage", stage,
		"error", err,
	)
}
