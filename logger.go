package matcha

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with matcha-specific operation logging.
// Field names are stable so downstream log pipelines can rely on them.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a default text handler to stderr.
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

// LogDeclare logs a vector-space declaration.
func (l *Logger) LogDeclare(ctx context.Context, space string, dimension int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "declare space failed",
			"space", space,
			"dimension", dimension,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "space declared",
			"space", space,
			"dimension", dimension,
		)
	}
}

// LogUpsertBatch logs a batched upsert.
func (l *Logger) LogUpsertBatch(ctx context.Context, total, failed int, duration time.Duration, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "upsert batch failed",
			"total", total,
			"error", err,
		)
	case failed > 0:
		l.WarnContext(ctx, "upsert batch completed with rejected items",
			"total", total,
			"failed", failed,
			"stored", total-failed,
			"duration", duration,
		)
	default:
		l.DebugContext(ctx, "upsert batch completed",
			"count", total,
			"duration", duration,
		)
	}
}

// LogSearch logs a similarity search.
func (l *Logger) LogSearch(ctx context.Context, space string, topK, hits int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"space", space,
			"top_k", topK,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"space", space,
			"top_k", topK,
			"hits", hits,
			"duration", duration,
		)
	}
}

// LogDelete logs an item removal.
func (l *Logger) LogDelete(ctx context.Context, id uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"id", id,
		)
	}
}

// LogDeleteBatch logs a batched removal.
func (l *Logger) LogDeleteBatch(ctx context.Context, total, failed int, duration time.Duration, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "delete batch failed",
			"total", total,
			"error", err,
		)
	case failed > 0:
		l.DebugContext(ctx, "delete batch completed with missing items",
			"total", total,
			"missing", failed,
			"duration", duration,
		)
	default:
		l.DebugContext(ctx, "delete batch completed",
			"count", total,
			"duration", duration,
		)
	}
}

// LogSnapshotSave logs a snapshot write.
func (l *Logger) LogSnapshotSave(ctx context.Context, dest string, items int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot save failed",
			"dest", dest,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"dest", dest,
			"items", items,
			"duration", duration,
		)
	}
}

// LogSnapshotLoad logs a snapshot read.
func (l *Logger) LogSnapshotLoad(ctx context.Context, src string, items int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot load failed",
			"src", src,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot loaded",
			"src", src,
			"items", items,
		)
	}
}

// LogMatch logs a catalog-joined match request.
func (l *Logger) LogMatch(ctx context.Context, space string, topK, hits, matches int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "match failed",
			"space", space,
			"top_k", topK,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "match completed",
			"space", space,
			"top_k", topK,
			"hits", hits,
			"matches", matches,
			"duration", duration,
		)
	}
}

// LogResolveMiss logs a search hit that could not be joined against the
// catalog. Misses are soft: the hit is dropped, the request continues.
func (l *Logger) LogResolveMiss(ctx context.Context, space string, id uint64, key, reason string) {
	l.DebugContext(ctx, "hit dropped, catalog resolution missed",
		"space", space,
		"id", id,
		"join_key", key,
		"reason", reason,
	)
}

// LogIngest logs an ingestion run.
func (l *Logger) LogIngest(ctx context.Context, run string, stored, failed int, duration time.Duration, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "ingest run failed",
			"run", run,
			"stored", stored,
			"failed", failed,
			"error", err,
		)
	case failed > 0:
		l.WarnContext(ctx, "ingest run completed with failed records",
			"run", run,
			"stored", stored,
			"failed", failed,
			"duration", duration,
		)
	default:
		l.InfoContext(ctx, "ingest run completed",
			"run", run,
			"stored", stored,
			"duration", duration,
		)
	}
}
