package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Request is the trace and metric scope of one inbound HTTP request. The
// span continues any trace context the caller sent in its headers.
type Request struct {
	route   string
	start   time.Time
	span    trace.Span
	metrics *Metrics

	mu    sync.Mutex
	attrs []attribute.KeyValue
}

type requestKey struct{}

// StartRequest opens the server span for r. route is the low-cardinality
// name used in metrics, usually the method and path pattern. metrics may
// be nil.
func StartRequest(r *http.Request, route string, metrics *Metrics) (context.Context, *Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := StartSpan(ctx, SpanHTTPRequest,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(AttrHTTPMethod, r.Method),
			attribute.String(AttrHTTPRoute, route),
		),
	)
	req := &Request{route: route, start: time.Now(), span: span, metrics: metrics}
	metrics.RecordRequestStart(ctx)
	return context.WithValue(ctx, requestKey{}, req), req
}

// RequestFromContext returns the request scope in ctx, or nil.
func RequestFromContext(ctx context.Context) *Request {
	req, _ := ctx.Value(requestKey{}).(*Request)
	return req
}

// Annotate tags the request span, for example with the workflow a handler
// resolved. Empty values and a nil receiver are ignored.
func (req *Request) Annotate(key, value string) {
	if req == nil || value == "" {
		return
	}
	req.mu.Lock()
	req.attrs = append(req.attrs, attribute.String(key, value))
	req.mu.Unlock()
}

// End closes the span with the response status and records request metrics.
// Server errors mark the span failed.
func (req *Request) End(ctx context.Context, status int) {
	req.mu.Lock()
	req.span.SetAttributes(req.attrs...)
	req.mu.Unlock()

	req.span.SetAttributes(attribute.Int(AttrHTTPStatus, status))
	if status >= http.StatusInternalServerError {
		req.span.SetStatus(codes.Error, http.StatusText(status))
	}
	req.span.End()
	req.metrics.RecordRequestEnd(ctx, req.route, status, time.Since(req.start))
}
