package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogger 把全局 logger 指向一个内存 buffer，便于断言输出字段
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	old := globalLogger
	globalLogger = slog.New(slog.NewJSONHandler(buf, nil))
	t.Cleanup(func() { globalLogger = old })
	return buf
}

func TestContextWithTraceCarriesFields(t *testing.T) {
	buf := captureLogger(t)

	ctx := ContextWithTrace(context.Background(), "req-1", "trace-1", "span-1")
	Info(ctx, "donation received", "order", "ORD-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "span-1", entry["span_id"])
	assert.Equal(t, "ORD-1", entry["order"])
}

func TestContextWithTraceSkipsEmptyFields(t *testing.T) {
	buf := captureLogger(t)

	ctx := ContextWithTrace(context.Background(), "req-2", "", "")
	Info(ctx, "donation received")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-2", entry["request_id"])
	_, hasTrace := entry["trace_id"]
	assert.False(t, hasTrace)
}

func TestWithContextNilContext(t *testing.T) {
	buf := captureLogger(t)

	Info(context.Background(), "plain message")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, hasRequestID := entry["request_id"]
	assert.False(t, hasRequestID)
}
