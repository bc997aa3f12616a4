package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelAndOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "warn", Output: &buf})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept")
	require.NoError(t, log.Sync())

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Contains(t, line, "timestamp")
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "chatty", Encoding: "console", Output: &buf})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("shown")
	require.NoError(t, log.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base, err := New(Config{Output: &buf})
	require.NoError(t, err)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithSessionID(ctx, "sess-1")
	FromContext(ctx, base).Info("tagged")
	require.NoError(t, base.Sync())

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "sess-1", line["session_id"])

	assert.Same(t, base, FromContext(context.Background(), base))
}
