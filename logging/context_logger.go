package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

var key = ctxKey{}

// Inject stores a logger in ctx
func Inject(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, key, l)
}

// From returns the request scoped logger if present, else the global default
func From(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if l, ok := ctx.Value(key).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
