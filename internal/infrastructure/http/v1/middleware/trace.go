package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appctx "feedvalidator/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"

	keyRequestID = "request_id"
	keyTraceID   = "trace_id"
)

var tracer = otel.Tracer("feedvalidator/http")

// Trace reads or generates request and trace IDs and opens a server span,
// so the spans of a validation run hang under the request.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := appctx.TraceFromHeaders(c.GetHeader(HeaderRequestID), c.GetHeader(HeaderTraceID))
		requestID, traceID := tc.RequestID, tc.TraceID

		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
				attribute.String("request.id", requestID),
			),
		)
		defer span.End()

		ctx = appctx.WithTrace(ctx, tc)
		c.Request = c.Request.WithContext(ctx)

		c.Set(keyTraceID, traceID)
		c.Set(keyRequestID, requestID)

		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}
