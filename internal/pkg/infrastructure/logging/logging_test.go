package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func TestThatLoggerCanBeStoredInContext(t *testing.T) {
	is := is.New(t)

	buf := &bytes.Buffer{}
	ctx := NewContextWithLogger(context.Background(), zerolog.New(buf))

	logger := GetLoggerFromContext(ctx)
	logger.Info().Msg("hello")

	is.True(strings.Contains(buf.String(), `"message":"hello"`))
}

func TestThatTraceIDIsAddedWhenPresent(t *testing.T) {
	is := is.New(t)

	buf := &bytes.Buffer{}
	ctx := NewContextWithLogger(context.Background(), zerolog.New(buf))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	_, logger := WithTraceID(ctx)
	logger.Info().Msg("traced")

	is.True(strings.Contains(buf.String(), `"traceID":"4bf92f3577b34da6a3ce929d0e0e4736"`))
}

func TestThatMissingTraceLeavesLoggerAsIs(t *testing.T) {
	is := is.New(t)

	buf := &bytes.Buffer{}
	ctx := NewContextWithLogger(context.Background(), zerolog.New(buf))

	_, logger := WithTraceID(ctx)
	logger.Info().Msg("untraced")

	is.True(!strings.Contains(buf.String(), "traceID"))
}
