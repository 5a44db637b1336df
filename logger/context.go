package logger

import "context"

type contextKey string

const (
	ctxRequestID   contextKey = "request_id"
	ctxUserID      contextKey = "user_id"
	ctxExecutionID contextKey = "execution_id"
	ctxTraceID     contextKey = "trace_id"
)

// ContextWithRequestID stores the inbound request id on ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

// ContextWithUserID stores the acting user id on ctx.
func ContextWithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxUserID, id)
}

// ContextWithExecutionID stores the current execution id on ctx.
func ContextWithExecutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxExecutionID, id)
}

// ContextWithTraceID stores a trace id on ctx.
func ContextWithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxTraceID, id)
}

// RequestIDFromContext returns the request id stored on ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

// TraceIDFromContext returns the trace id stored on ctx, if any.
func TraceIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxTraceID).(string)
	return v
}

// UserIDFromContext returns the user id stored on ctx, if any.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxUserID).(string)
	return v
}

var contextFields = []struct {
	key   contextKey
	field string
}{
	{ctxTraceID, FieldTraceID},
	{ctxRequestID, FieldRequestID},
	{ctxUserID, FieldUserID},
	{ctxExecutionID, FieldExecutionID},
}
