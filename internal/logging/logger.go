package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var logger = zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()

// Init configures the package logger. Output goes to stderr so the shell
// keeps stdout for its answers. An unknown level falls back to info.
func Init(isDevelopment bool, level string) {
	Configure(os.Stderr, isDevelopment, level)
}

func Configure(out io.Writer, isDevelopment bool, level string) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if isDevelopment {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(lvl).
			With().
			Timestamp().
			Caller().
			Logger()
		return
	}

	logger = zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

func Logger() *zerolog.Logger {
	return &logger
}

// WithContext returns the logger annotated with the trace and span ids of
// the span in ctx, if any.
func WithContext(ctx context.Context) zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}

	return logger.With().
		Str("traceId", span.SpanContext().TraceID().String()).
		Str("spanId", span.SpanContext().SpanID().String()).
		Logger()
}

func Info(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Info()
}

func Error(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Error()
}

func Warn(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Warn()
}

// ForVehicle returns the context logger tagged with the vehicle it is
// reporting on. Slot movements are logged at debug level through it.
func ForVehicle(ctx context.Context, vehicleID string) zerolog.Logger {
	return WithContext(ctx).With().Str("vehicleId", vehicleID).Logger()
}
