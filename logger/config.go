package logger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Config is the logging section of the service config. Level takes any
// zerolog level name; Format is json for shipping and console (or pretty)
// for terminals.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"`
	Output    string `yaml:"output" mapstructure:"output"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = zerolog.InfoLevel.String()
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	c.Timestamp = true
}

func (c *Config) Validate() error {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil || lvl == zerolog.NoLevel {
		return fmt.Errorf("logging.level %q is not a zerolog level (trace, debug, info, warn, error, fatal)", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case FormatJSON, FormatConsole, FormatPretty:
	default:
		return fmt.Errorf("logging.format must be json, console or pretty (got: %s)", c.Format)
	}
	switch strings.ToLower(c.Output) {
	case "", "stdout", "stderr":
	default:
		return fmt.Errorf("logging.output must be stdout or stderr (got: %s)", c.Output)
	}
	return nil
}
