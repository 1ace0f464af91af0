// Package audit writes an append-only JSON trail of what users asked the bot
// to do.
package audit

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Event types
const (
	TypeCommand  = "command"
	TypeSecurity = "security"
	TypeConfig   = "config"
)

// Statuses
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

// Event is a single audit record
type Event struct {
	Type      string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor,omitempty"` // chat user ID
	Action    string         `json:"action"`          // e.g. "command:sponsor_agreement"
	Status    string         `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	TraceID   string         `json:"trace_id,omitempty"`
}

// Logger records audit events. A nil Logger discards them.
type Logger struct {
	logger zerolog.Logger
	mu     sync.Mutex
	closer io.Closer
}

// New writes events to w
func New(w io.Writer) *Logger {
	return &Logger{
		logger: zerolog.New(w).With().Timestamp().Logger(),
	}
}

// Open appends events to the file at path
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	a := New(file)
	a.closer = file
	return a, nil
}

// Record emits event and, when ctx carries a span, adds it as a span event
func (a *Logger) Record(ctx context.Context, event Event) {
	if a == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		event.TraceID = span.SpanContext().TraceID().String()

		span.AddEvent(event.Action, trace.WithAttributes(
			attribute.String("audit.type", event.Type),
			attribute.String("audit.status", event.Status),
			attribute.String("audit.actor", event.Actor),
		))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entry := a.logger.Log().
		Str("type", event.Type).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("status", event.Status)

	if event.TraceID != "" {
		entry.Str("trace_id", event.TraceID)
	}
	if event.Metadata != nil {
		entry.Interface("metadata", event.Metadata)
	}

	entry.Msg("")
}

// Close closes the underlying file, if any
func (a *Logger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closer != nil {
		err := a.closer.Close()
		a.closer = nil
		return err
	}
	return nil
}

// RecordCommand records a command invocation
func (a *Logger) RecordCommand(ctx context.Context, command, actor, status string, metadata map[string]any) {
	a.Record(ctx, Event{
		Type:     TypeCommand,
		Actor:    actor,
		Action:   "command:" + command,
		Status:   status,
		Metadata: metadata,
	})
}

// RecordSecurity records an access decision
func (a *Logger) RecordSecurity(ctx context.Context, action, actor, status string, metadata map[string]any) {
	a.Record(ctx, Event{
		Type:     TypeSecurity,
		Actor:    actor,
		Action:   action,
		Status:   status,
		Metadata: metadata,
	})
}

// RecordConfig records a configuration change
func (a *Logger) RecordConfig(ctx context.Context, action, status string, metadata map[string]any) {
	a.Record(ctx, Event{
		Type:     TypeConfig,
		Actor:    "system",
		Action:   action,
		Status:   status,
		Metadata: metadata,
	})
}
