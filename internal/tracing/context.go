package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// RequestIDKey is the context key for the ID of one command invocation
	RequestIDKey ContextKey = "request_id"
	// CommandKey is the context key for the command name
	CommandKey ContextKey = "command"
	// ChatIDKey is the context key for the originating chat
	ChatIDKey ContextKey = "chat_id"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID   string
	RequestID string
	Command   string
	ChatID    string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// NewRequestID generates a new request ID
func NewRequestID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithCommand adds the command name to the context
func WithCommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, CommandKey, command)
}

// WithChatID adds the originating chat to the context
func WithChatID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, ChatIDKey, chatID)
}

func stringValue(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetCommand retrieves the command name from the context
func GetCommand(ctx context.Context) string {
	return stringValue(ctx, CommandKey)
}

// GetChatID retrieves the originating chat from the context
func GetChatID(ctx context.Context) string {
	return stringValue(ctx, ChatIDKey)
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:   GetTraceID(ctx),
		RequestID: GetRequestID(ctx),
		Command:   GetCommand(ctx),
		ChatID:    GetChatID(ctx),
	}
}

// NewCommandContext starts a request for one command invocation
func NewCommandContext(ctx context.Context, command, chatID string) context.Context {
	ctx = WithRequestID(ctx, NewRequestID())
	ctx = WithCommand(ctx, command)
	if chatID != "" {
		ctx = WithChatID(ctx, chatID)
	}
	return ctx
}

// LoggerFromContext adds the tracing fields present in ctx to logger
func LoggerFromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)
	lc := logger.With()

	if tc.TraceID != "" {
		lc = lc.Str("trace_id", tc.TraceID)
	}
	if tc.RequestID != "" {
		lc = lc.Str("request_id", tc.RequestID)
	}
	if tc.Command != "" {
		lc = lc.Str("command", tc.Command)
	}
	if tc.ChatID != "" {
		lc = lc.Str("chat_id", tc.ChatID)
	}

	return lc.Logger()
}
