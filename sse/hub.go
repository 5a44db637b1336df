package sse

import (
	"sync"

	"github.com/kbukum/flowengine/logger"
)

// Broadcaster sends a frame to every client of a topic. It reports false
// when the frame was dropped.
type Broadcaster interface {
	Broadcast(topic string, f Frame) bool
}

// Client is one open stream.
type Client struct {
	id     string
	topic  string
	frames chan Frame
}

func newClient(id, topic string, buffer int) *Client {
	return &Client{id: id, topic: topic, frames: make(chan Frame, buffer)}
}

// ID returns the client id.
func (c *Client) ID() string { return c.id }

// Frames returns the channel the hub writes to. It is closed when the client
// is unregistered or the hub stops.
func (c *Client) Frames() <-chan Frame { return c.frames }

func (c *Client) send(f Frame) bool {
	select {
	case c.frames <- f:
		return true
	default:
		return false
	}
}

type message struct {
	topic string
	frame Frame
}

// Hub owns the client set. All mutations happen on the Run goroutine.
type Hub struct {
	log        *logger.Logger
	cfg        Config
	clients    map[string]map[*Client]struct{}
	count      int
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

var _ Broadcaster = (*Hub)(nil)

// NewHub creates a hub. Nothing is delivered until Run is called.
func NewHub(cfg Config, log *logger.Logger) *Hub {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		log:        log.WithComponent("sse"),
		cfg:        cfg,
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			set := h.clients[c.topic]
			if set == nil {
				set = make(map[*Client]struct{})
				h.clients[c.topic] = set
			}
			set[c] = struct{}{}
			h.count++
			total := h.count
			h.mu.Unlock()
			h.log.Debug("Stream client registered", logger.Fields("client_id", c.id, "total_clients", total))

		case c := <-h.unregister:
			h.remove(c)

		case m := <-h.broadcast:
			h.deliver(m)
		}
	}
}

// Stop ends Run and closes every client. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds c. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c and closes its frame channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues f for the clients of topic without blocking.
func (h *Hub) Broadcast(topic string, f Frame) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- message{topic: topic, frame: f}:
		return true
	default:
		h.log.Warn("Stream broadcast queue full, dropping frame", logger.Fields("topic", topic, "event", f.Event))
		return false
	}
}

// ClientCount returns the number of open streams.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) deliver(m message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[m.topic] {
		if !c.send(m.frame) {
			h.log.Warn("Stream client too slow, dropping frame", logger.Fields("client_id", c.id, "event", m.frame.Event))
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.topic]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.topic)
	}
	h.count--
	close(c.frames)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, set := range h.clients {
		for c := range set {
			close(c.frames)
		}
		delete(h.clients, topic)
	}
	h.count = 0
}
