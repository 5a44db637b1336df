package kafka

import (
	"strings"
	"testing"
	"time"

	"github.com/kbukum/flowengine/security"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()

	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != "localhost:9092" {
		t.Errorf("Brokers = %v", cfg.Brokers)
	}
	if cfg.Topic != DefaultTopic {
		t.Errorf("Topic = %q", cfg.Topic)
	}
	want := ProducerConfig{
		Compression:  "snappy",
		MaxAttempts:  3,
		BatchSize:    100,
		BatchTimeout: time.Second,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: -1,
	}
	if cfg.Producer != want {
		t.Errorf("Producer = %+v, want %+v", cfg.Producer, want)
	}
	if cfg.DialTimeout != 10*time.Second || cfg.IdleTimeout != 30*time.Second || cfg.MetadataTTL != 6*time.Second {
		t.Errorf("timeouts = %v/%v/%v", cfg.DialTimeout, cfg.IdleTimeout, cfg.MetadataTTL)
	}
	if cfg.SASL.Enabled() {
		t.Error("sasl should stay disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_ApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Brokers:  []string{"broker1:9092", "broker2:9092"},
		Topic:    "audit",
		Producer: ProducerConfig{Compression: "gzip", MaxAttempts: 5, BatchSize: 200, RequiredAcks: 1},
	}
	cfg.ApplyDefaults()

	if len(cfg.Brokers) != 2 || cfg.Topic != "audit" {
		t.Errorf("brokers/topic overwritten: %v %q", cfg.Brokers, cfg.Topic)
	}
	p := cfg.Producer
	if p.Compression != "gzip" || p.MaxAttempts != 5 || p.BatchSize != 200 || p.RequiredAcks != 1 {
		t.Errorf("Producer overwritten: %+v", p)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"disabled skips checks", func(c *Config) { c.Enabled = false; c.Brokers = nil }, ""},
		{"no brokers", func(c *Config) { c.Brokers = nil }, "brokers"},
		{"no topic", func(c *Config) { c.Topic = "" }, "topic"},
		{"plain sasl", func(c *Config) { c.SASL = SASLConfig{Mechanism: MechanismPlain, Username: "u"} }, ""},
		{"scram 256", func(c *Config) { c.SASL = SASLConfig{Mechanism: MechanismScramSHA256, Username: "u"} }, ""},
		{"scram 512", func(c *Config) { c.SASL = SASLConfig{Mechanism: MechanismScramSHA512, Username: "u"} }, ""},
		{"unknown sasl", func(c *Config) { c.SASL = SASLConfig{Mechanism: "GSSAPI", Username: "u"} }, "GSSAPI"},
		{"sasl without user", func(c *Config) { c.SASL = SASLConfig{Mechanism: MechanismPlain} }, "username"},
		{"tls cert without key", func(c *Config) { c.TLS = security.TLSConfig{CertFile: "client.pem"} }, "tls"},
		{"unknown codec", func(c *Config) { c.Producer.Compression = "brotli" }, "compression"},
		{"zero attempts", func(c *Config) { c.Producer.MaxAttempts = 0 }, "max_attempts"},
		{"zero batch", func(c *Config) { c.Producer.BatchSize = 0 }, "batch_size"},
		{"bad acks", func(c *Config) { c.Producer.RequiredAcks = 2 }, "required_acks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Enabled: true}
			cfg.ApplyDefaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
