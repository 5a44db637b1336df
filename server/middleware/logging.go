package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/flowengine/logger"
)

const slowRequest = 2 * time.Second

// RequestLogger logs every request with its status, size and duration.
// Probe and metrics paths are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	log = log.WithComponent("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbePath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := recordResponse(w)
			next.ServeHTTP(rec, r)
			duration := time.Since(start)

			fields := map[string]interface{}{
				"method":             r.Method,
				"path":               r.URL.Path,
				logger.FieldStatus:   rec.Status(),
				logger.FieldDuration: duration.Milliseconds(),
				"bytes":              rec.bytes,
				"client":             clientIP(r),
			}
			// Event streams are long-lived and never flagged as slow.
			if rec.streamed {
				fields["streamed"] = true
			} else if duration > slowRequest {
				fields["slow"] = true
			}
			logByStatus(log.WithContext(r.Context()), fields, rec.Status())
		})
	}
}

var probePaths = map[string]bool{
	"/health":  true,
	"/alive":   true,
	"/ready":   true,
	"/metrics": true,
}

func isProbePath(path string) bool {
	return probePaths[strings.TrimSuffix(path, "/")]
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
