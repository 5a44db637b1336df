package redis

import (
	"fmt"
	"time"

	"github.com/kbukum/flowengine/security"
)

// DefaultKeyPrefix namespaces keys when none is configured.
const DefaultKeyPrefix = "flowengine"

// Config describes the Redis connection used by the credit ledger and the
// workflow cache.
//
//	redis:
//	  enabled: true
//	  addr: cache:6379
//	  key_prefix: flowengine
//	  pool:
//	    size: 20
//	  timeouts:
//	    read: 500ms
type Config struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// KeyPrefix is prepended to every key this service writes.
	KeyPrefix string `mapstructure:"key_prefix"`

	Pool     PoolConfig    `mapstructure:"pool"`
	Timeouts TimeoutConfig `mapstructure:"timeouts"`
	Retry    RetryConfig   `mapstructure:"retry"`

	// TLS is off unless one of its fields is set.
	TLS security.TLSConfig `mapstructure:"tls"`
}

// PoolConfig sizes the connection pool. Zero durations leave go-redis defaults.
type PoolConfig struct {
	Size        int           `mapstructure:"size"`
	MinIdle     int           `mapstructure:"min_idle"`
	Wait        time.Duration `mapstructure:"wait"`
	MaxIdleTime time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

// TimeoutConfig bounds socket operations.
type TimeoutConfig struct {
	Dial  time.Duration `mapstructure:"dial"`
	Read  time.Duration `mapstructure:"read"`
	Write time.Duration `mapstructure:"write"`
}

// RetryConfig controls go-redis command retries on network errors.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	MinBackoff time.Duration `mapstructure:"min_backoff"`
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.Pool.Size <= 0 {
		c.Pool.Size = 10
	}
	if c.Pool.MinIdle <= 0 {
		c.Pool.MinIdle = 2
	}
	if c.Timeouts.Dial <= 0 {
		c.Timeouts.Dial = 5 * time.Second
	}
	if c.Timeouts.Read <= 0 {
		c.Timeouts.Read = 3 * time.Second
	}
	if c.Timeouts.Write <= 0 {
		c.Timeouts.Write = 3 * time.Second
	}
	if c.Retry.MaxRetries <= 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Retry.MinBackoff <= 0 {
		c.Retry.MinBackoff = 8 * time.Millisecond
	}
	if c.Retry.MaxBackoff <= 0 {
		c.Retry.MaxBackoff = 512 * time.Millisecond
	}
}

// Validate checks an enabled configuration. Call ApplyDefaults first.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.Pool.Size <= 0 {
		return fmt.Errorf("redis pool size must be > 0")
	}
	if c.Pool.MinIdle > c.Pool.Size {
		return fmt.Errorf("redis pool min_idle %d exceeds size %d", c.Pool.MinIdle, c.Pool.Size)
	}
	if c.Retry.MinBackoff > c.Retry.MaxBackoff {
		return fmt.Errorf("redis retry min_backoff %s exceeds max_backoff %s", c.Retry.MinBackoff, c.Retry.MaxBackoff)
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("redis %w", err)
	}
	return nil
}
