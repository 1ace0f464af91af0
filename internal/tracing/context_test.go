package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDs(t *testing.T) {
	assert.NotEmpty(t, NewTraceID())
	assert.NotEqual(t, NewTraceID(), NewTraceID())
	assert.NotEmpty(t, NewRequestID())
	assert.NotEqual(t, NewRequestID(), NewRequestID())
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetRequestID(ctx))

	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithCommand(ctx, "sponsor_info")
	ctx = WithChatID(ctx, "42")

	tc := FromContext(ctx)
	assert.Equal(t, "trace-1", tc.TraceID)
	assert.Equal(t, "req-1", tc.RequestID)
	assert.Equal(t, "sponsor_info", tc.Command)
	assert.Equal(t, "42", tc.ChatID)
}

func TestNewCommandContext(t *testing.T) {
	ctx := NewCommandContext(context.Background(), "sponsor_agreement", "-100")

	assert.NotEmpty(t, GetRequestID(ctx))
	assert.Equal(t, "sponsor_agreement", GetCommand(ctx))
	assert.Equal(t, "-100", GetChatID(ctx))

	ctx = NewCommandContext(context.Background(), "sponsor_info", "")
	assert.Empty(t, GetChatID(ctx))
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithRequestID(context.Background(), "req-7")
	ctx = WithCommand(ctx, "sponsor_info")

	logger := LoggerFromContext(ctx, base)
	logger.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-7"`)
	assert.Contains(t, out, `"command":"sponsor_info"`)
	assert.NotContains(t, out, "trace_id")
}

func TestStartSpan(t *testing.T) {
	require.NoError(t, InitOpenTelemetry("sponsorbot-test", "0.0.0"))
	defer func() {
		require.NoError(t, ShutdownOpenTelemetry(context.Background()))
	}()

	ctx := WithRequestID(context.Background(), "req-9")
	ctx, span := StartSpan(ctx, "test", "lookup")
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
}
