package sse

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/kbukum/flowengine/logger"
)

type connected struct {
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
}

// Serve streams the frames of topic to w until the request ends or the hub
// stops. The server's write timeout is lifted for this response.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, topic string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.log.Debug("Could not lift write deadline", logger.ErrorFields("sse_serve", err))
	}

	client := newClient(uuid.NewString(), topic, h.cfg.ClientBuffer)
	if !h.Register(client) {
		http.Error(w, "event stream is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.Unregister(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	hello, _ := json.Marshal(connected{ClientID: client.id, Topic: topic})
	if _, err := (Frame{Event: EventConnected, Data: hello}).WriteTo(w); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(h.cfg.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case f, ok := <-client.Frames():
			if !ok {
				return
			}
			if _, err := f.WriteTo(w); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
