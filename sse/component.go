package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/flowengine/component"
	"github.com/kbukum/flowengine/logger"
)

// Component runs a Hub under the component registry.
type Component struct {
	hub     *Hub
	path    string
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a component with a fresh Hub. path is only used for
// the startup summary.
func NewComponent(cfg Config, path string, log *logger.Logger) *Component {
	return &Component{hub: NewHub(cfg, log), path: path}
}

// Hub returns the hub.
func (c *Component) Hub() *Hub { return c.hub }

// Name returns the component name.
func (c *Component) Name() string { return "event-stream" }

// Start launches the hub loop.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	c.started = true
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.hub.Run()
	}()
	return nil
}

// Stop closes every stream and waits for the loop to exit.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hub.Stop()
	c.wg.Wait()
	return nil
}

// Health reports the number of open streams.
func (c *Component) Health(_ context.Context) component.Health {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.ClientCount()),
	}
}

// Describe returns the startup summary entry.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Event stream",
		Type:    "sse",
		Details: c.path,
	}
}
