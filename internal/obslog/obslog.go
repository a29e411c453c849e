// Package obslog is the structured, correlation-aware logger every
// package in this module logs through. Grounded on the teacher's
// correlation-injection wrapper in engine/telemetry/logging/logging.go
// (InfoCtx/ErrorCtx pulling trace/span ids out of context) re-expressed
// over zerolog instead of log/slog, following the component-scoped
// `.With().Str("component", ...).Logger()` idiom used for structured
// logging in the pack's other_examples ingestion pipeline.
package obslog

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

type correlationKey struct{}

// WithCorrelationID returns a context carrying id, picked up by every
// subsequent log call made through a Logger derived from this context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// New returns a zerolog.Logger scoped to component, writing structured
// JSON to stderr by default.
func New(component string) zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Str("component", component).Logger()
}

// InfoCtx logs at info level, attaching the correlation id carried on
// ctx (if any) as a "correlation_id" field.
func InfoCtx(ctx context.Context, l zerolog.Logger, msg string) {
	event := l.Info()
	if id := correlationIDFrom(ctx); id != "" {
		event = event.Str("correlation_id", id)
	}
	event.Msg(msg)
}

// ErrorCtx logs at error level, attaching err and the correlation id
// carried on ctx (if any).
func ErrorCtx(ctx context.Context, l zerolog.Logger, msg string, err error) {
	event := l.Error().Err(err)
	if id := correlationIDFrom(ctx); id != "" {
		event = event.Str("correlation_id", id)
	}
	event.Msg(msg)
}

// WarnCtx logs at warn level, attaching the correlation id carried on
// ctx (if any).
func WarnCtx(ctx context.Context, l zerolog.Logger, msg string) {
	event := l.Warn()
	if id := correlationIDFrom(ctx); id != "" {
		event = event.Str("correlation_id", id)
	}
	event.Msg(msg)
}

// Printf adapts a zerolog.Logger to the audit.ErrorLogger and
// filewatcher.ErrorLogger interfaces, both of which expect a
// plain Printf(format, args...) sink for non-fatal warnings.
type Printf struct {
	Logger zerolog.Logger
}

func (p Printf) Printf(format string, args ...any) {
	p.Logger.Warn().Msgf(format, args...)
}
