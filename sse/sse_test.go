package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/flowengine/component"
	"github.com/kbukum/flowengine/events"
	"github.com/kbukum/flowengine/logger"
)

func startHub(t *testing.T, cfg Config) *Hub {
	t.Helper()
	h := NewHub(cfg, logger.NewNop())
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func receive(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case f, ok := <-c.Frames():
		if !ok {
			t.Fatal("frames channel closed")
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
	}
	return Frame{}
}

// ---------------------------------------------------------------------------
// Frame
// ---------------------------------------------------------------------------

func TestFrame_WriteTo(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{"data only", Frame{Data: []byte(`{"a":1}`)}, "data: {\"a\":1}\n\n"},
		{"full", Frame{ID: "e1", Event: "execution.started", Data: []byte("x")}, "id: e1\nevent: execution.started\ndata: x\n\n"},
		{"multiline", Frame{Data: []byte("a\nb")}, "data: a\ndata: b\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			if _, err := tt.frame.WriteTo(&sb); err != nil {
				t.Fatal(err)
			}
			if sb.String() != tt.want {
				t.Errorf("got %q, want %q", sb.String(), tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Hub
// ---------------------------------------------------------------------------

func TestHub_BroadcastReachesOnlyTopic(t *testing.T) {
	h := startHub(t, Config{})
	alice := newClient("a", UserTopic("alice"), 4)
	bob := newClient("b", UserTopic("bob"), 4)
	h.Register(alice)
	h.Register(bob)

	if !h.Broadcast(UserTopic("alice"), Frame{Event: "ping"}) {
		t.Fatal("broadcast dropped")
	}
	if f := receive(t, alice); f.Event != "ping" {
		t.Errorf("alice got %q", f.Event)
	}
	select {
	case f := <-bob.Frames():
		t.Errorf("bob received %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
	if n := h.ClientCount(); n != 2 {
		t.Errorf("ClientCount = %d, want 2", n)
	}
}

func TestHub_SlowClientDropsFrames(t *testing.T) {
	h := startHub(t, Config{})
	slow := newClient("slow", "t", 1)
	probe := newClient("probe", "p", 1)
	h.Register(slow)
	h.Register(probe)

	h.Broadcast("t", Frame{Event: "first"})
	h.Broadcast("t", Frame{Event: "second"})
	// Broadcasts are handled in order, so once the probe has its frame
	// both frames above were delivered or dropped.
	h.Broadcast("p", Frame{Event: "probe"})
	receive(t, probe)

	if f := receive(t, slow); f.Event != "first" {
		t.Errorf("got %q, want first", f.Event)
	}
	select {
	case f := <-slow.Frames():
		t.Errorf("unexpected frame %+v", f)
	default:
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	h := NewHub(Config{}, nil)
	done := make(chan struct{})
	go func() { h.Run(); close(done) }()

	c := newClient("a", "t", 1)
	h.Register(c)
	h.Stop()
	<-done

	if _, ok := <-c.Frames(); ok {
		t.Error("expected closed channel after Stop")
	}
	if h.Broadcast("t", Frame{}) {
		t.Error("Broadcast after Stop should report a drop")
	}
	if h.Register(newClient("late", "t", 1)) {
		t.Error("Register after Stop should fail")
	}
	h.Stop()
}

// ---------------------------------------------------------------------------
// Serve
// ---------------------------------------------------------------------------

func TestHub_Serve(t *testing.T) {
	h := startHub(t, Config{KeepAlive: time.Hour})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, UserTopic(r.URL.Query().Get("user")))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?user=alice", http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	readFrame := func() string {
		var lines []string
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if line == "\n" {
				return strings.Join(lines, "")
			}
			lines = append(lines, line)
		}
	}

	if first := readFrame(); !strings.Contains(first, "event: connected") || !strings.Contains(first, `"topic":"user:alice"`) {
		t.Fatalf("unexpected first frame %q", first)
	}

	h.Broadcast(UserTopic("alice"), Frame{ID: "e1", Event: "execution.started", Data: []byte(`{}`)})
	if got := readFrame(); got != "id: e1\nevent: execution.started\ndata: {}\n" {
		t.Errorf("got %q", got)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client not unregistered after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// ---------------------------------------------------------------------------
// EventPublisher
// ---------------------------------------------------------------------------

type recordingBroadcaster struct {
	topic string
	frame Frame
	drop  bool
}

func (b *recordingBroadcaster) Broadcast(topic string, f Frame) bool {
	b.topic, b.frame = topic, f
	return !b.drop
}

func TestEventPublisher(t *testing.T) {
	b := &recordingBroadcaster{}
	p := NewEventPublisher(b)
	e := events.Event{ID: "evt-1", Type: events.ExecutionSucceeded, ExecutionID: "x1", UserID: "alice", Status: "success"}

	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if b.topic != "user:alice" || b.frame.ID != "evt-1" || b.frame.Event != "execution.succeeded" {
		t.Errorf("unexpected broadcast %s %+v", b.topic, b.frame)
	}
	if !strings.Contains(string(b.frame.Data), `"execution_id":"x1"`) {
		t.Errorf("data = %s", b.frame.Data)
	}

	b.drop = true
	if err := p.Publish(context.Background(), e); err == nil {
		t.Error("expected an error for a dropped frame")
	}
}

// ---------------------------------------------------------------------------
// Config and Component
// ---------------------------------------------------------------------------

func TestConfig(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()
	if cfg.KeepAlive != 30*time.Second || cfg.ClientBuffer != 64 {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	cfg.KeepAlive = time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for a sub-second keep_alive")
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewComponent(Config{}, "/api/v1/events", logger.NewNop())
	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("health before start = %s", h.Status)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy || h.Message != "0 clients connected" {
		t.Errorf("health = %+v", h)
	}
	if d := c.Describe(); d.Type != "sse" || d.Details != "/api/v1/events" {
		t.Errorf("describe = %+v", d)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if c.Hub().Broadcast("t", Frame{}) {
		t.Error("stopped hub accepted a frame")
	}
}
