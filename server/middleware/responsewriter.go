package middleware

import "net/http"

// responseRecorder remembers what a handler sent so the request log can
// report it. Flush and Unwrap pass through to keep the event stream working.
type responseRecorder struct {
	http.ResponseWriter
	status   int
	bytes    int64
	streamed bool
}

func recordResponse(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w}
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status == 0 {
		rr.status = code
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += int64(n)
	return n, err
}

// Flush marks the response as streamed.
func (rr *responseRecorder) Flush() {
	rr.streamed = true
	if f, ok := rr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the original writer.
func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

// Status is the code sent, or 200 when the handler wrote nothing.
func (rr *responseRecorder) Status() int {
	if rr.status == 0 {
		return http.StatusOK
	}
	return rr.status
}
