package redis

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/flowengine/logger"
)

// Client wraps a go-redis client with service logging.
type Client struct {
	rdb    *goredis.Client
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// New creates a new Redis client with the given configuration and logger.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is disabled")
	}
	if log == nil {
		log = logger.NewNop()
	}

	opts := cfg.options()
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	opts.TLSConfig = tlsCfg

	rdb := goredis.NewClient(opts)

	log.Info("Redis client created", logger.Fields(
		"addr", cfg.Addr,
		"db", cfg.DB,
		"pool_size", cfg.Pool.Size,
		"tls", tlsCfg != nil,
	))

	return &Client{rdb: rdb, log: log, cfg: cfg}, nil
}

func (c Config) options() *goredis.Options {
	return &goredis.Options{
		Addr:            c.Addr,
		Password:        c.Password,
		DB:              c.DB,
		PoolSize:        c.Pool.Size,
		MinIdleConns:    c.Pool.MinIdle,
		PoolTimeout:     c.Pool.Wait,
		ConnMaxIdleTime: c.Pool.MaxIdleTime,
		ConnMaxLifetime: c.Pool.MaxLifetime,
		DialTimeout:     c.Timeouts.Dial,
		ReadTimeout:     c.Timeouts.Read,
		WriteTimeout:    c.Timeouts.Write,
		MaxRetries:      c.Retry.MaxRetries,
		MinRetryBackoff: c.Retry.MinBackoff,
		MaxRetryBackoff: c.Retry.MaxBackoff,
	}
}

// Ping verifies the Redis connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	pong, err := c.rdb.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if pong != "PONG" {
		return fmt.Errorf("unexpected redis ping response: %s", pong)
	}
	return nil
}

// Key joins parts under the configured key prefix.
func (c *Client) Key(parts ...string) string {
	key := c.cfg.KeyPrefix
	for _, p := range parts {
		if key != "" {
			key += ":"
		}
		key += p
	}
	return key
}

// Close closes the Redis connection. Safe to call multiple times.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.log.Info("Closing Redis connection")
	c.closed = true
	return c.rdb.Close()
}

// Unwrap returns the underlying go-redis client for advanced operations.
func (c *Client) Unwrap() *goredis.Client {
	return c.rdb
}
