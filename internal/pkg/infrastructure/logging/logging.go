package logging

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type loggerContextKey struct {
	name string
}

var loggerCtxKey = &loggerContextKey{"logger"}

// NewLogger creates the service logger and stores it in the returned context.
// An unknown or empty level leaves the global level untouched.
func NewLogger(ctx context.Context, serviceName, serviceVersion, level string) (context.Context, zerolog.Logger) {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && level != "" {
		zerolog.SetGlobalLevel(lvl)
	}

	logger := log.With().Str("service", strings.ToLower(serviceName)).Str("version", serviceVersion).Logger()
	ctx = NewContextWithLogger(ctx, logger)
	return ctx, logger
}

func NewContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	ctx = context.WithValue(ctx, loggerCtxKey, logger)
	return ctx
}

func GetLoggerFromContext(ctx context.Context) zerolog.Logger {
	logger, ok := ctx.Value(loggerCtxKey).(zerolog.Logger)

	if !ok {
		return log.Logger
	}

	return logger
}

// WithTraceID decorates the context logger with the trace id of the span in
// ctx, if any, and stores the result back in the context.
func WithTraceID(ctx context.Context) (context.Context, zerolog.Logger) {
	logger := GetLoggerFromContext(ctx)

	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ctx, logger
	}

	logger = logger.With().Str("traceID", sc.TraceID().String()).Logger()
	return NewContextWithLogger(ctx, logger), logger
}
