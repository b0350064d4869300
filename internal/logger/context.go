package logger

import (
	"context"

	"go.uber.org/zap"
)

type requestLoggerKey struct{}

// ContextWithLogger returns ctx carrying l. The HTTP middleware stores a
// logger tagged with the request id this way.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, requestLoggerKey{}, l)
}

// FromContext returns the logger stored by ContextWithLogger, or a no-op
// logger for contexts that never passed through the middleware.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(requestLoggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}
