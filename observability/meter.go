package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by the HTTP surface and the
// workflow engine. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requestTotal      metric.Int64Counter
	requestDuration   metric.Float64Histogram
	requestActive     metric.Int64UpDownCounter
	executionTotal    metric.Int64Counter
	executionDuration metric.Float64Histogram
	executionActive   metric.Int64UpDownCounter
	nodeTotal         metric.Int64Counter
	nodeDuration      metric.Float64Histogram
	creditTotal       metric.Int64Counter
	errorTotal        metric.Int64Counter
}

// Credit flow directions passed to RecordCredits.
const (
	CreditsReserved = "reserved"
	CreditsUsed     = "used"
	CreditsRefunded = "refunded"
)

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.requestTotal, err = meter.Int64Counter("http.request.total",
		metric.WithDescription("HTTP requests by route and status class"),
	); err != nil {
		return nil, fmt.Errorf("creating http.request.total counter: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("http.request.duration",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating http.request.duration histogram: %w", err)
	}
	if m.requestActive, err = meter.Int64UpDownCounter("http.request.active",
		metric.WithDescription("HTTP requests in flight"),
	); err != nil {
		return nil, fmt.Errorf("creating http.request.active gauge: %w", err)
	}
	if m.executionTotal, err = meter.Int64Counter("workflow.execution.total",
		metric.WithDescription("Workflow executions by final status"),
	); err != nil {
		return nil, fmt.Errorf("creating workflow.execution.total counter: %w", err)
	}
	if m.executionDuration, err = meter.Float64Histogram("workflow.execution.duration",
		metric.WithDescription("Duration of workflow executions in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating workflow.execution.duration histogram: %w", err)
	}
	if m.executionActive, err = meter.Int64UpDownCounter("workflow.execution.active",
		metric.WithDescription("Number of workflow executions in flight"),
	); err != nil {
		return nil, fmt.Errorf("creating workflow.execution.active gauge: %w", err)
	}
	if m.nodeTotal, err = meter.Int64Counter("workflow.node.total",
		metric.WithDescription("Node executions by type and status"),
	); err != nil {
		return nil, fmt.Errorf("creating workflow.node.total counter: %w", err)
	}
	if m.nodeDuration, err = meter.Float64Histogram("workflow.node.duration",
		metric.WithDescription("Duration of node executions in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating workflow.node.duration histogram: %w", err)
	}
	if m.creditTotal, err = meter.Int64Counter("credits.total",
		metric.WithDescription("Credits moved by direction"),
	); err != nil {
		return nil, fmt.Errorf("creating credits.total counter: %w", err)
	}
	if m.errorTotal, err = meter.Int64Counter("error.total",
		metric.WithDescription("Total errors by type and component"),
	); err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}
	return m, nil
}

// RecordRequestStart increments the in-flight request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd records a finished request under its route pattern and
// status class ("2xx", "4xx", ...).
func (m *Metrics) RecordRequestEnd(ctx context.Context, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("status", fmt.Sprintf("%dxx", status/100)),
	)
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordExecutionStart increments the in-flight execution count.
func (m *Metrics) RecordExecutionStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.executionActive.Add(ctx, 1)
}

// RecordExecutionEnd records a finished execution with its final status.
func (m *Metrics) RecordExecutionEnd(ctx context.Context, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.executionActive.Add(ctx, -1)
	m.executionTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.executionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}

// RecordNode records one node execution.
func (m *Metrics) RecordNode(ctx context.Context, nodeType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.nodeTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_type", nodeType),
		attribute.String("status", status),
	))
	m.nodeDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("node_type", nodeType),
	))
}

// RecordCredits adds amount to the counter for the given direction.
// Non-positive amounts are ignored.
func (m *Metrics) RecordCredits(ctx context.Context, direction string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.creditTotal.Add(ctx, amount, metric.WithAttributes(attribute.String("direction", direction)))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
