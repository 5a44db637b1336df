package sse

import (
	"bytes"
	"fmt"
	"io"
)

// EventConnected is the first frame of every stream.
const EventConnected = "connected"

// Frame is one SSE message.
type Frame struct {
	ID    string
	Event string
	Data  []byte
}

// WriteTo writes f in the text/event-stream format.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if f.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", f.ID)
	}
	if f.Event != "" {
		fmt.Fprintf(&buf, "event: %s\n", f.Event)
	}
	for _, line := range bytes.Split(f.Data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.WriteTo(w)
}

// UserTopic is the topic carrying the events of one user's executions.
func UserTopic(userID string) string {
	return "user:" + userID
}
