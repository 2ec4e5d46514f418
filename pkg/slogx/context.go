package slogx

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithContext returns ctx carrying logger. HTTPMiddleware uses it to hand each
// handler a logger already tagged with the request id.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored by WithContext, or the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
