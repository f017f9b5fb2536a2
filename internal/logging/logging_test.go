package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "readowl-test", Version: "v1"})

	WithComponent("books").Info().Msg("hello")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "books", entry["component"])
	assert.Equal(t, "readowl-test", entry["service"])
	assert.Equal(t, "v1", entry["version"])
	assert.Equal(t, "hello", entry["message"])
}

func TestFromContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))

	l := FromContext(ctx)
	l.Info().Msg("scoped")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
	//nolint:staticcheck // nil context is handled explicitly
	assert.Empty(t, RequestIDFromContext(nil))
}

func TestTaskLogger(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	TaskLogger{Logger: WithComponent("tasks")}.Error("task failed", "queue", "notify_followers")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "notify_followers", entry["queue"])
}
