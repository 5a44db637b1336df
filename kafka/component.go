package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/flowengine/component"
	"github.com/kbukum/flowengine/logger"
)

// Component owns the event producer's lifecycle.
type Component struct {
	cfg      Config
	log      *logger.Logger
	producer *Producer
	mu       sync.Mutex
	running  bool
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a Kafka component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("kafka"),
	}
}

// Name returns the component name.
func (c *Component) Name() string { return "kafka" }

// Start creates the producer. The underlying writer connects on first publish.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	p, err := NewProducer(c.cfg, c.log)
	if err != nil {
		return err
	}
	c.producer = p
	c.running = true
	c.log.Info("Kafka component started", map[string]interface{}{"topic": c.cfg.Topic})
	return nil
}

// Producer returns the producer, or nil before Start.
func (c *Component) Producer() *Producer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.producer
}

// Stop closes the producer.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.log.Info("Kafka component stopping")
	var err error
	if c.producer != nil {
		err = c.producer.Close()
		c.producer = nil
	}
	c.running = false
	return err
}

// Health checks broker connectivity by dialling the first broker.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	cfg := c.cfg
	producer := c.producer
	c.mu.Unlock()

	unhealthy := func(msg string) component.Health {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: msg}
	}
	if !running {
		return unhealthy("kafka not started")
	}
	if len(cfg.Brokers) == 0 {
		return unhealthy("no brokers configured")
	}

	dialer, err := CreateDialer(&cfg)
	if err != nil {
		return unhealthy(fmt.Sprintf("dialer: %v", err))
	}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return unhealthy(fmt.Sprintf("broker unreachable: %v", err))
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusDegraded,
			Message: fmt.Sprintf("broker metadata: %v", err),
		}
	}
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if producer != nil {
		stats := producer.Stats()
		h.Message = stats.Summary()
		if stats.Failing() {
			h.Status = component.StatusDegraded
		}
	}
	return h
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Kafka",
		Type:    "kafka",
		Details: fmt.Sprintf("brokers=%v topic=%s", c.cfg.Brokers, c.cfg.Topic),
	}
}
