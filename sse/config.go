package sse

import (
	"fmt"
	"time"
)

// Config tunes the event stream.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// KeepAlive is the interval of comment frames that keep proxies from
	// closing an idle stream (default: 30s).
	KeepAlive time.Duration `yaml:"keep_alive" mapstructure:"keep_alive"`
	// ClientBuffer is the number of frames queued per client before new
	// frames are dropped (default: 64).
	ClientBuffer int `yaml:"client_buffer" mapstructure:"client_buffer"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.KeepAlive == 0 {
		c.KeepAlive = 30 * time.Second
	}
	if c.ClientBuffer == 0 {
		c.ClientBuffer = 64
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.KeepAlive < time.Second {
		return fmt.Errorf("keep_alive must be at least 1s, got %s", c.KeepAlive)
	}
	if c.ClientBuffer < 1 {
		return fmt.Errorf("client_buffer must be positive, got %d", c.ClientBuffer)
	}
	return nil
}
