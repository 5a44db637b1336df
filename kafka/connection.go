package kafka

import (
	"crypto/tls"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

var compressionCodecs = map[string]kafkago.Compression{
	"none":   0,
	"gzip":   kafkago.Gzip,
	"snappy": kafkago.Snappy,
	"lz4":    kafkago.Lz4,
	"zstd":   kafkago.Zstd,
}

// connSecurity is the TLS and SASL setup shared by the writer transport and
// the health-check dialer. Nil fields mean plaintext or no authentication.
type connSecurity struct {
	tls  *tls.Config
	sasl sasl.Mechanism
}

func securityFor(cfg *Config) (connSecurity, error) {
	var sec connSecurity
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return sec, fmt.Errorf("kafka tls: %w", err)
	}
	sec.tls = tlsCfg

	if cfg.SASL.Enabled() {
		m, err := saslMechanism(cfg.SASL)
		if err != nil {
			return sec, fmt.Errorf("kafka sasl: %w", err)
		}
		sec.sasl = m
	}
	return sec, nil
}

// CreateTransport builds the writer transport.
func CreateTransport(cfg *Config) (*kafkago.Transport, error) {
	sec, err := securityFor(cfg)
	if err != nil {
		return nil, err
	}
	return &kafkago.Transport{
		DialTimeout: cfg.DialTimeout,
		IdleTimeout: cfg.IdleTimeout,
		MetadataTTL: cfg.MetadataTTL,
		TLS:         sec.tls,
		SASL:        sec.sasl,
	}, nil
}

// CreateDialer builds a dialer with the transport's security settings, used
// to reach a broker directly.
func CreateDialer(cfg *Config) (*kafkago.Dialer, error) {
	sec, err := securityFor(cfg)
	if err != nil {
		return nil, err
	}
	return &kafkago.Dialer{
		Timeout:       cfg.DialTimeout,
		DualStack:     true,
		TLS:           sec.tls,
		SASLMechanism: sec.sasl,
	}, nil
}

func saslMechanism(c SASLConfig) (sasl.Mechanism, error) {
	switch c.Mechanism {
	case MechanismPlain:
		return plain.Mechanism{Username: c.Username, Password: c.Password}, nil
	case MechanismScramSHA256:
		return scram.Mechanism(scram.SHA256, c.Username, c.Password)
	case MechanismScramSHA512:
		return scram.Mechanism(scram.SHA512, c.Username, c.Password)
	}
	return nil, fmt.Errorf("unsupported mechanism %q", c.Mechanism)
}

// ResolveCompression maps a codec name to kafka-go's constant. Unknown names
// fall back to snappy.
func ResolveCompression(name string) kafkago.Compression {
	if c, ok := compressionCodecs[name]; ok {
		return c
	}
	return kafkago.Snappy
}
