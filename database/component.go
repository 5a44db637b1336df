package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/flowengine/component"
	"github.com/kbukum/flowengine/logger"
)

// Component owns the connection pool for the component registry. Models
// registered with WithAutoMigrate are migrated on Start when the config
// enables it.
type Component struct {
	cfg    Config
	log    *logger.Logger
	models []any

	mu sync.RWMutex
	db *DB
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log}
}

func (c *Component) WithAutoMigrate(models ...any) *Component {
	c.models = append(c.models, models...)
	return c
}

// DB is nil until Start succeeds and again after Stop.
func (c *Component) DB() *DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func (c *Component) Name() string { return "database" }

func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return fmt.Errorf("database start: component is disabled")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return nil
	}

	db, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	if c.cfg.AutoMigrate && len(c.models) > 0 {
		if err := db.AutoMigrate(c.models...); err != nil {
			_ = db.Close()
			return fmt.Errorf("database auto-migrate: %w", err)
		}
	}
	c.db = db
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	db := c.db
	c.db = nil
	c.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}

// Health pings the pool. A pool with every connection in use reports
// degraded: requests are queueing for a connection.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusUnhealthy}
	db := c.DB()
	if db == nil {
		h.Message = "not started"
		return h
	}
	if err := db.PingContext(ctx); err != nil {
		h.Message = "ping failed: " + err.Error()
		return h
	}
	s := db.Stats()
	h.Status = component.StatusHealthy
	h.Message = fmt.Sprintf("%d/%d connections in use", s.InUseConns, s.MaxOpen)
	if s.MaxOpen > 0 && s.InUseConns >= s.MaxOpen {
		h.Status = component.StatusDegraded
		h.Message += fmt.Sprintf(", %d waits", s.WaitCount)
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("driver=%s pool=%d/%d", c.cfg.Driver, c.cfg.Pool.MaxOpen, c.cfg.Pool.MaxIdle)
	if c.cfg.AutoMigrate {
		details += " auto-migrate=on"
	}
	return component.Description{Name: "Database", Type: "database", Details: details}
}
