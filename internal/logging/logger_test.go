package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestWithContextAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, false, "debug")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	Info(ctx).Str("vehicle_id", "ABC-123").Msg("vehicle parked")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "vehicle parked", entry["message"])
	assert.Equal(t, "ABC-123", entry["vehicle_id"])
	assert.Equal(t, traceID.String(), entry["traceId"])
	assert.Equal(t, spanID.String(), entry["spanId"])
}

func TestWithContextWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, false, "info")

	Warn(context.Background()).Msg("no span")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "traceId")
	assert.Equal(t, "warn", entry["level"])
}

func TestConfigureLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, false, "warn")

	Info(context.Background()).Msg("hidden")
	assert.Zero(t, buf.Len())

	Error(context.Background()).Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigureUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, false, "chatty")

	log := ForVehicle(context.Background(), "KA01")
	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	Info(context.Background()).Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestForVehicle(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, false, "debug")

	log := ForVehicle(context.Background(), "KA01HH1234")
	log.Debug().Int("slotId", 2).Msg("vehicle parked")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "KA01HH1234", entry["vehicleId"])
	assert.Equal(t, "debug", entry["level"])
	assert.EqualValues(t, 2, entry["slotId"])
	assert.NotContains(t, entry, "traceId")
}
