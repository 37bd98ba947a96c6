package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"gradebook/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestNewWithOptions_JSONAddsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithOptions(logger.Options{Format: "json", Output: &buf})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	log.InfoContext(ctx, "report built", "student_id", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "report built", entry["msg"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
	assert.EqualValues(t, 7, entry["student_id"])
}

func TestNewWithOptions_Level(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithOptions(logger.Options{Format: "json", Level: "warn", Output: &buf})

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewWithOptions_TextColorsErrors(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithOptions(logger.Options{Format: "text", Output: &buf})

	log.Error("boom")

	assert.Contains(t, buf.String(), "\x1b[31mboom\x1b[0m")
}
