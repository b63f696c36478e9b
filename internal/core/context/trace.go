package context

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// TraceContext correlates a validation request across the HTTP layer,
// the log stream and the report store.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

// NewTraceContext starts a trace with freshly generated IDs.
func NewTraceContext() *TraceContext {
	return TraceFromHeaders("", "")
}

// TraceFromHeaders continues the caller's request and trace IDs when supplied
// and generates whichever is missing. The span ID is always local.
func TraceFromHeaders(requestID, traceID string) *TraceContext {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	traceID = strings.TrimSpace(traceID)
	if traceID == "" {
		traceID = uuid.New().String()
	}
	return &TraceContext{
		TraceID:   traceID,
		SpanID:    strings.ReplaceAll(uuid.New().String(), "-", "")[:16],
		RequestID: requestID,
	}
}

// LogFields returns the key-value pairs a log line carries for this trace.
func (t *TraceContext) LogFields() []any {
	if t == nil {
		return nil
	}
	return []any{"trace_id", t.TraceID, "request_id", t.RequestID}
}

// WithTrace attaches t to ctx.
func WithTrace(ctx context.Context, t *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, t)
}

// GetTrace returns the trace attached to ctx, or nil.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetRequestID returns the request ID attached to ctx or "".
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}
