package kafka

import (
	"fmt"
	"time"

	"github.com/kbukum/flowengine/security"
)

// Supported SASL mechanisms.
const (
	MechanismPlain       = "PLAIN"
	MechanismScramSHA256 = "SCRAM-SHA-256"
	MechanismScramSHA512 = "SCRAM-SHA-512"
)

// DefaultTopic receives execution lifecycle events unless configured otherwise.
const DefaultTopic = "workflow.executions"

// Config holds the broker connection and the producer settings used to
// publish execution events.
//
//	kafka:
//	  enabled: true
//	  brokers: [kafka-1:9093, kafka-2:9093]
//	  tls:
//	    ca_file: /etc/ssl/kafka-ca.pem
//	  sasl:
//	    mechanism: SCRAM-SHA-512
//	    username: workflowd
//
// Secrets such as the SASL password come from the environment
// (KAFKA_SASL_PASSWORD).
type Config struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`

	// TLS is applied when any of its fields is set.
	TLS  security.TLSConfig `mapstructure:"tls"`
	SASL SASLConfig         `mapstructure:"sasl"`

	Producer ProducerConfig `mapstructure:"producer"`

	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	MetadataTTL time.Duration `mapstructure:"metadata_ttl"`
}

// SASLConfig authenticates against the brokers. An empty Mechanism disables it.
type SASLConfig struct {
	Mechanism string `mapstructure:"mechanism"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

// Enabled reports whether a mechanism is configured.
func (s SASLConfig) Enabled() bool { return s.Mechanism != "" }

func (s SASLConfig) validate() error {
	if !s.Enabled() {
		return nil
	}
	switch s.Mechanism {
	case MechanismPlain, MechanismScramSHA256, MechanismScramSHA512:
	default:
		return fmt.Errorf("unsupported sasl mechanism %q", s.Mechanism)
	}
	if s.Username == "" {
		return fmt.Errorf("sasl %s requires a username", s.Mechanism)
	}
	return nil
}

// ProducerConfig tunes the underlying kafka-go writer.
type ProducerConfig struct {
	// Compression is one of none, gzip, snappy, lz4 or zstd.
	Compression  string        `mapstructure:"compression"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// RequiredAcks is -1 to wait for all in-sync replicas or 1 for the leader.
	RequiredAcks int `mapstructure:"required_acks"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
	if c.MetadataTTL <= 0 {
		c.MetadataTTL = 6 * time.Second
	}

	p := &c.Producer
	if p.Compression == "" {
		p.Compression = "snappy"
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 100
	}
	if p.BatchTimeout <= 0 {
		p.BatchTimeout = time.Second
	}
	if p.WriteTimeout <= 0 {
		p.WriteTimeout = 10 * time.Second
	}
	if p.RequiredAcks == 0 {
		p.RequiredAcks = -1
	}
}

// Validate checks an enabled configuration. Call ApplyDefaults first.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka topic is required")
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("kafka %w", err)
	}
	if err := c.SASL.validate(); err != nil {
		return fmt.Errorf("kafka %w", err)
	}
	if _, ok := compressionCodecs[c.Producer.Compression]; !ok {
		return fmt.Errorf("kafka compression %q is not supported", c.Producer.Compression)
	}
	if c.Producer.MaxAttempts <= 0 {
		return fmt.Errorf("kafka producer max_attempts must be > 0")
	}
	if c.Producer.BatchSize <= 0 {
		return fmt.Errorf("kafka producer batch_size must be > 0")
	}
	switch c.Producer.RequiredAcks {
	case -1, 1:
	default:
		return fmt.Errorf("kafka producer required_acks must be -1 or 1")
	}
	return nil
}
