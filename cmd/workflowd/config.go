package main

import (
	"fmt"
	"time"

	"github.com/kbukum/flowengine/api"
	"github.com/kbukum/flowengine/auth"
	"github.com/kbukum/flowengine/config"
	"github.com/kbukum/flowengine/database"
	"github.com/kbukum/flowengine/kafka"
	"github.com/kbukum/flowengine/llm"
	"github.com/kbukum/flowengine/redis"
	"github.com/kbukum/flowengine/server"
	"github.com/kbukum/flowengine/sse"
	"github.com/kbukum/flowengine/workflow"
)

// Ledger backends.
const (
	LedgerSQL   = "sql"
	LedgerRedis = "redis"
)

// Config is the workflowd configuration, loaded from config.yml and the
// environment (e.g. DATABASE_DSN, AUTH_SECRET, ENGINE_TIMEOUT).
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server   server.Config   `yaml:"server" mapstructure:"server"`
	Database database.Config `yaml:"database" mapstructure:"database"`
	Redis    redis.Config    `yaml:"redis" mapstructure:"redis"`
	Kafka    kafka.Config    `yaml:"kafka" mapstructure:"kafka"`
	Auth     auth.Config     `yaml:"auth" mapstructure:"auth"`
	API      api.Config      `yaml:"api" mapstructure:"api"`
	LLM      llm.Config      `yaml:"llm" mapstructure:"llm"`
	Engine   workflow.Config `yaml:"engine" mapstructure:"engine"`
	Stream   sse.Config      `yaml:"stream" mapstructure:"stream"`
	Tracing  TracingConfig   `yaml:"tracing" mapstructure:"tracing"`
	Seed     SeedConfig      `yaml:"seed" mapstructure:"seed"`

	// Ledger selects the credit ledger: "sql" (default) or "redis".
	Ledger string `yaml:"ledger" mapstructure:"ledger"`

	// WorkflowCacheTTL enables the Redis read-through workflow cache when
	// Redis is enabled. Zero disables it.
	WorkflowCacheTTL time.Duration `yaml:"workflow_cache_ttl" mapstructure:"workflow_cache_ttl"`
}

// TracingConfig enables OTLP trace and metric export.
type TracingConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval"`
}

// SeedConfig is loaded into storage at start-up.
type SeedConfig struct {
	// WorkflowDirs hold workflow YAML definitions, upserted by id.
	WorkflowDirs []string `yaml:"workflow_dirs" mapstructure:"workflow_dirs"`
	// NodeTypes are pricing records, upserted by type.
	NodeTypes []NodeTypeSeed `yaml:"node_types" mapstructure:"node_types"`
	// Accounts are created with their role and opening balance. An account
	// that already holds credits keeps its balance.
	Accounts []AccountSeed `yaml:"accounts" mapstructure:"accounts"`
}

// NodeTypeSeed prices one node type.
type NodeTypeSeed struct {
	Type     string `yaml:"type" mapstructure:"type"`
	Credits  int64  `yaml:"credits" mapstructure:"credits"`
	Inactive bool   `yaml:"inactive" mapstructure:"inactive"`
}

// AccountSeed is a development account.
type AccountSeed struct {
	UserID  string `yaml:"user_id" mapstructure:"user_id"`
	Role    string `yaml:"role" mapstructure:"role"`
	Credits int64  `yaml:"credits" mapstructure:"credits"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Name == "" {
		c.Name = "workflowd"
	}
	c.Server.ApplyDefaults()
	if c.Database.Driver == "" {
		c.Database.Driver = database.DriverSQLite
		if c.Database.DSN == "" {
			c.Database.DSN = "workflowd.db"
		}
	}
	c.Database.ApplyDefaults()
	if c.Database.Driver == database.DriverSQLite {
		c.Database.AutoMigrate = true
	}
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.API.ApplyDefaults()
	c.LLM.ApplyDefaults()
	c.Engine.ApplyDefaults()
	c.Stream.ApplyDefaults()
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4318"
	}
	if c.Tracing.SampleRate <= 0 {
		c.Tracing.SampleRate = 1.0
	}
	if c.Tracing.MetricInterval <= 0 {
		c.Tracing.MetricInterval = 15 * time.Second
	}
	if c.Ledger == "" {
		c.Ledger = LedgerSQL
	}
}

// Validate checks every section and the cross-section rules.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if !c.Database.Enabled {
		return fmt.Errorf("database.enabled must be true: workflows and executions are stored there")
	}
	checks := []struct {
		section string
		validate func() error
	}{
		{"server", c.Server.Validate},
		{"database", c.Database.Validate},
		{"redis", c.Redis.Validate},
		{"kafka", c.Kafka.Validate},
		{"auth", c.Auth.Validate},
		{"engine", c.Engine.Validate},
		{"stream", c.Stream.Validate},
	}
	for _, check := range checks {
		if err := check.validate(); err != nil {
			return fmt.Errorf("%s: %w", check.section, err)
		}
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.Engine.Timeout {
		return fmt.Errorf("server.write_timeout (%s) must exceed engine.timeout (%s) so synchronous runs can answer",
			c.Server.WriteTimeout, c.Engine.Timeout)
	}
	switch c.Ledger {
	case LedgerSQL:
	case LedgerRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("ledger %q requires redis.enabled", LedgerRedis)
		}
	default:
		return fmt.Errorf("ledger must be %q or %q (got: %s)", LedgerSQL, LedgerRedis, c.Ledger)
	}
	for _, nt := range c.Seed.NodeTypes {
		if nt.Type == "" || nt.Credits < 0 {
			return fmt.Errorf("seed.node_types: invalid entry %+v", nt)
		}
	}
	for _, acct := range c.Seed.Accounts {
		if acct.UserID == "" || acct.Credits < 0 {
			return fmt.Errorf("seed.accounts: invalid entry for %q", acct.UserID)
		}
	}
	return nil
}
