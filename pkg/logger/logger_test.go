package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestNew_ServiceField(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "storefront", "debug")
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "storefront", entry["service"])
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "svc", "loud")
	l.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	l.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithContext_AddsTraceIDs(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	var buf bytes.Buffer
	l := WithContext(ctx, NewWithWriter(&buf, "svc", "info"))
	l.Info().Msg("traced")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, traceID.String(), entry["trace_id"])
	assert.Equal(t, spanID.String(), entry["span_id"])
}

func TestWithContext_NoSpan(t *testing.T) {
	var buf bytes.Buffer
	l := WithContext(context.Background(), NewWithWriter(&buf, "svc", "info"))
	l.Info().Msg("plain")
	assert.NotContains(t, buf.String(), "trace_id")
}
