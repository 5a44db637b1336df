package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/flowengine/component"
	"github.com/kbukum/flowengine/logger"
)

var _ component.Component = (*Component)(nil)

// Component connects the Redis client during service start and reports pool
// usage in its health check.
type Component struct {
	cfg Config
	log *logger.Logger

	mu     sync.RWMutex
	client *Client
}

// NewComponent returns a component that connects on Start.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Client returns the connected client, or nil before Start.
func (c *Component) Client() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

func (c *Component) Name() string { return "redis" }

// Start dials Redis and fails when the server does not answer a ping.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return nil
	}

	client, err := New(c.cfg, c.log)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis %s: %w", c.cfg.Addr, err)
	}
	c.client = client
	c.log.Info("Redis connected", logger.Fields("addr", c.cfg.Addr, "prefix", c.cfg.KeyPrefix))
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()
	return client.Close()
}

// Health pings the server. A pool that has timed out waiting for a
// connection is reported as degraded.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusUnhealthy}
	client := c.Client()
	if client == nil {
		h.Message = "not connected"
		return h
	}
	if err := client.Ping(ctx); err != nil {
		h.Message = err.Error()
		return h
	}

	stats := client.Unwrap().PoolStats()
	h.Status = component.StatusHealthy
	h.Message = fmt.Sprintf("%d/%d connections idle", stats.IdleConns, stats.TotalConns)
	if stats.Timeouts > 0 {
		h.Status = component.StatusDegraded
		h.Message += fmt.Sprintf(", %d pool timeouts", stats.Timeouts)
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Redis",
		Type:    "redis",
		Details: fmt.Sprintf("%s db=%d pool=%d prefix=%s", c.cfg.Addr, c.cfg.DB, c.cfg.Pool.Size, c.cfg.KeyPrefix),
	}
}
