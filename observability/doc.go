// Package observability wires OpenTelemetry tracing and metrics into the
// workflow service.
//
// Setup installs OTLP/HTTP exporters as the otel globals:
//
//	providers, err := observability.Setup(ctx, observability.DefaultExportConfig("workflowd"))
//	defer providers.Shutdown(ctx)
//
// Engine code opens spans with StartSpan. Each inbound HTTP request gets a
// Request scope that continues the caller's trace context; handlers tag it
// with the workflow or execution they touched:
//
//	observability.RequestFromContext(ctx).Annotate(observability.AttrWorkflowID, id)
//
// Metrics cover HTTP requests, executions, node runs and credit movement.
// A nil *Metrics records nothing.
package observability
