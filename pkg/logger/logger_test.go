package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestBuildWritesServiceFieldsAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := build(Config{Level: "debug", Service: "marketing-stats", Environment: "test"}, zapcore.AddSync(&buf))

	ctx := ContextWithRequestID(context.Background(), "req-42")
	ctx = ContextWithClient(ctx, "203.0.113.7", "curl/8.0")
	WithRequestID(ctx, log).Debug("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "marketing-stats", entry["service"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "203.0.113.7", entry["client_ip"])
	assert.Equal(t, "curl/8.0", entry["user_agent"])
	assert.Contains(t, entry, "timestamp")
}

func TestBuildFallsBackToInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	log := build(Config{Level: "chatty"}, zapcore.AddSync(&buf))

	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.Info("shown")
	assert.NotZero(t, buf.Len())
}

func TestRequestIDMissing(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	assert.Nil(t, WithRequestID(context.Background(), nil))

	ip, ua := Client(ContextWithClient(context.Background(), "", ""))
	assert.Empty(t, ip)
	assert.Empty(t, ua)
}
