package gbwt

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with gbwt-specific context. Construction
// logs a summary per InsertBatch call and on finalisation; merge logs
// each producer chunk at debug level.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler. If handler is
// nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// WithSequence adds a sequence id field to the logger.
func (l *Logger) WithSequence(seq uint64) *Logger {
	return &Logger{Logger: l.Logger.With("sequence", seq)}
}

// WithNode adds a node field to the logger.
func (l *Logger) WithNode(node uint64) *Logger {
	return &Logger{Logger: l.Logger.With("node", node)}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count uint64) *Logger {
	return &Logger{Logger: l.Logger.With("count", count)}
}
