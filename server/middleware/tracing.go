package middleware

import (
	"net/http"
	"strings"

	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/observability"
)

// Tracing opens a server span for every request and records request
// metrics. The trace id is added to the request's log context. Probe paths
// are not traced.
func Tracing(metrics *observability.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbePath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ctx, req := observability.StartRequest(r, routeOf(r), metrics)
			req.Annotate(observability.AttrRequestID, r.Header.Get(HeaderRequestID))
			if id := observability.TraceID(ctx); id != "" {
				ctx = logger.ContextWithTraceID(ctx, id)
			}

			rec := recordResponse(w)
			next.ServeHTTP(rec, r.WithContext(ctx))
			req.End(ctx, rec.Status())
		})
	}
}

// routeOf keeps metric cardinality bounded: ids in API paths collapse to a
// placeholder.
func routeOf(r *http.Request) string {
	return r.Method + " " + collapseIDs(r.URL.Path)
}

var idCollections = map[string]bool{"workflows": true, "executions": true}

func collapseIDs(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if idCollections[parts[i-1]] && parts[i] != "" {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
