package observability

import (
	"context"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one unit of work inside a request. Spans are logged, not exported.
type Span struct {
	TraceID   string            `json:"trace_id"`
	SpanID    string            `json:"span_id"`
	ParentID  string            `json:"parent_id,omitempty"`
	Operation string            `json:"operation"`
	StartTime time.Time         `json:"start_time"`
	Duration  time.Duration     `json:"duration"`
	Tags      map[string]string `json:"tags,omitempty"`
	Status    SpanStatus        `json:"status"`
	Error     string            `json:"error,omitempty"`
}

type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "OK"
	SpanStatusError SpanStatus = "ERROR"
)

type spanContextKey struct{}

func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	span := &Span{
		TraceID:   newID(),
		SpanID:    newID(),
		Operation: operation,
		StartTime: time.Now(),
		Status:    SpanStatusOK,
		Tags:      make(map[string]string),
	}

	if parent := GetSpan(ctx); parent != nil {
		span.ParentID = parent.SpanID
		span.TraceID = parent.TraceID
	}

	return context.WithValue(ctx, spanContextKey{}, span), span
}

// Finish records the duration and writes the span to logger at debug level,
// or at warn level when the span failed.
func (s *Span) Finish(ctx context.Context, logger *slog.Logger) {
	s.Duration = time.Since(s.StartTime)

	level := slog.LevelDebug
	if s.Status == SpanStatusError {
		level = slog.LevelWarn
	}
	if !logger.Enabled(ctx, level) {
		return
	}

	attrs := []any{
		"trace_id", s.TraceID,
		"span_id", s.SpanID,
		"operation", s.Operation,
		"duration", s.Duration,
		"status", s.Status,
	}
	if s.ParentID != "" {
		attrs = append(attrs, "parent_id", s.ParentID)
	}
	for k, v := range s.Tags {
		attrs = append(attrs, k, v)
	}
	if s.Error != "" {
		attrs = append(attrs, "error", s.Error)
	}
	logger.Log(ctx, level, "span finished", attrs...)
}

func (s *Span) SetTag(key, value string) {
	if s.Tags == nil {
		s.Tags = make(map[string]string)
	}
	s.Tags[key] = value
}

func (s *Span) SetError(err error) {
	s.Status = SpanStatusError
	if err != nil {
		s.Error = err.Error()
	}
}

func GetSpan(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanContextKey{}).(*Span); ok {
		return span
	}
	return nil
}

func newID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:8])
}
