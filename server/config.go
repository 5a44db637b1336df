package server

import (
	"fmt"
	"time"

	"github.com/kbukum/flowengine/server/middleware"
)

// Config is the server section. Timeouts are Go durations ("15s", "11m").
// WriteTimeout bounds a synchronous Execute call, so it defaults above the
// engine's ten minute run budget.
type Config struct {
	Host              string                `yaml:"host" mapstructure:"host"`
	Port              int                   `yaml:"port" mapstructure:"port"`
	ReadHeaderTimeout time.Duration         `yaml:"read_header_timeout" mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration         `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout      time.Duration         `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout       time.Duration         `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxBodySize       string                `yaml:"max_body_size" mapstructure:"max_body_size"`
	CORS              middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
}

func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	setDuration(&c.ReadHeaderTimeout, 5*time.Second)
	setDuration(&c.ReadTimeout, 15*time.Second)
	setDuration(&c.WriteTimeout, 11*time.Minute)
	setDuration(&c.IdleTimeout, time.Minute)
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	setList(&c.CORS.AllowedOrigins, "*")
	setList(&c.CORS.AllowedMethods, "GET", "POST", "OPTIONS")
	setList(&c.CORS.AllowedHeaders, "Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id", "Traceparent")
}

func setDuration(d *time.Duration, v time.Duration) {
	if *d == 0 {
		*d = v
	}
}

func setList(l *[]string, v ...string) {
	if len(*l) == 0 {
		*l = v
	}
}

func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	for name, d := range map[string]time.Duration{
		"read_header_timeout": c.ReadHeaderTimeout,
		"read_timeout":        c.ReadTimeout,
		"write_timeout":       c.WriteTimeout,
		"idle_timeout":        c.IdleTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("server.%s must be non-negative (got: %s)", name, d)
		}
	}
	if c.MaxBodySize != "" {
		if _, err := middleware.ParseSize(c.MaxBodySize); err != nil {
			return fmt.Errorf("server.max_body_size: %w", err)
		}
	}
	return nil
}
