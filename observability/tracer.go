package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kbukum/flowengine"

// Span names.
const (
	SpanHTTPRequest      = "http.request"
	SpanWorkflowExecute  = "workflow.execute"
	SpanWorkflowNode     = "workflow.node"
	SpanCreditReserve    = "credits.reserve"
	SpanCreditSettle     = "credits.settle"
	SpanReservationSweep = "credits.sweep"
)

// Attribute keys shared by spans and metrics.
const (
	AttrHTTPMethod  = "http.method"
	AttrHTTPRoute   = "http.route"
	AttrHTTPStatus  = "http.status_code"
	AttrRequestID   = "request.id"
	AttrUserID      = "user.id"
	AttrWorkflowID  = "workflow.id"
	AttrExecutionID = "execution.id"
	AttrNodeID      = "node.id"
	AttrNodeType    = "node.type"
	AttrCredits     = "credits"
)

// StartSpan starts a span on the service tracer. Without Setup the global
// provider is a no-op and the span records nothing.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// SetSpanError records err on the span in ctx and marks the span failed.
func SetSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the hex trace id of the span in ctx, or "" outside a span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
