package database

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var logLevels = []string{"silent", "error", "warn", "info"}

// Config is the database section. DSN is a connection URL for postgres and a
// file path or file: URI for sqlite.
//
//	database:
//	  enabled: true
//	  driver: postgres
//	  dsn: postgres://flow:secret@db:5432/flow?sslmode=disable
//	  pool:
//	    max_open: 25
//	    max_idle: 5
//	    max_lifetime: 1h
//	  slow_query_threshold: 200ms
type Config struct {
	Enabled bool       `mapstructure:"enabled"`
	Driver  string     `mapstructure:"driver"`
	DSN     string     `mapstructure:"dsn"`
	Pool    PoolConfig `mapstructure:"pool"`

	// ConnectAttempts bounds the startup retry loop; the service refuses to
	// start when the database stays unreachable.
	ConnectAttempts int  `mapstructure:"connect_attempts"`
	AutoMigrate     bool `mapstructure:"auto_migrate"`

	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	// LogLevel is GORM's: silent, error, warn or info.
	LogLevel string `mapstructure:"log_level"`
}

// PoolConfig sizes the sql.DB pool. sqlite always runs a single connection.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
	MaxIdleTime time.Duration `mapstructure:"max_idle_time"`
}

func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	p := &c.Pool
	if p.MaxOpen <= 0 {
		p.MaxOpen = 25
	}
	if p.MaxIdle <= 0 {
		p.MaxIdle = 5
	}
	if p.MaxLifetime <= 0 {
		p.MaxLifetime = time.Hour
	}
	if p.MaxIdleTime <= 0 {
		p.MaxIdleTime = 5 * time.Minute
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = 5
	}
	if c.SlowQueryThreshold <= 0 {
		c.SlowQueryThreshold = 200 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate only checks an enabled section.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case c.Driver != DriverPostgres && c.Driver != DriverSQLite:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	case c.DSN == "":
		return fmt.Errorf("database DSN is required")
	case c.Pool.MaxIdle > c.Pool.MaxOpen:
		return fmt.Errorf("pool.max_idle (%d) must be <= pool.max_open (%d)", c.Pool.MaxIdle, c.Pool.MaxOpen)
	case c.Pool.MaxLifetime < 0 || c.Pool.MaxIdleTime < 0:
		return fmt.Errorf("pool lifetimes must be non-negative")
	case !slices.Contains(logLevels, strings.ToLower(c.LogLevel)):
		return fmt.Errorf("log_level must be one of %v (got: %s)", logLevels, c.LogLevel)
	}
	return nil
}
