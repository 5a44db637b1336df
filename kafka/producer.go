package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/flowengine/logger"
)

// messageWriter is the part of *kafkago.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.WriterStats
	Close() error
}

// Producer wraps a kafka-go Writer with TLS/SASL, retries and logging.
// The writer is created on first use so the service can start while the
// brokers are still coming up.
type Producer struct {
	cfg    Config
	log    *logger.Logger
	mu     sync.RWMutex
	writer messageWriter
	closed bool
}

// NewProducer validates cfg and returns a producer whose writer is created lazily.
func NewProducer(cfg Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	return &Producer{cfg: cfg, log: log.WithComponent("kafka.producer")}, nil
}

func newProducerWithWriter(cfg Config, w messageWriter, log *logger.Logger) *Producer {
	cfg.ApplyDefaults()
	return &Producer{cfg: cfg, writer: w, log: log.WithComponent("kafka.producer")}
}

// Topic returns the configured event topic.
func (p *Producer) Topic() string { return p.cfg.Topic }

func (p *Producer) initWriter() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer != nil {
		return nil
	}

	transport, err := CreateTransport(&p.cfg)
	if err != nil {
		return fmt.Errorf("kafka producer transport: %w", err)
	}

	p.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(p.cfg.Brokers...),
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchSize:    p.cfg.Producer.BatchSize,
		BatchTimeout: p.cfg.Producer.BatchTimeout,
		RequiredAcks: kafkago.RequiredAcks(p.cfg.Producer.RequiredAcks),
		Compression:  ResolveCompression(p.cfg.Producer.Compression),
		WriteTimeout: p.cfg.Producer.WriteTimeout,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			p.log.Error("writer: "+msg, map[string]interface{}{
				"args": fmt.Sprintf("%v", args),
			})
		}),
	}

	p.log.Info("Kafka producer initialized", map[string]interface{}{
		"brokers":     p.cfg.Brokers,
		"topic":       p.cfg.Topic,
		"compression": p.cfg.Producer.Compression,
	})
	return nil
}

func (p *Producer) ensureWriter() error {
	p.mu.RLock()
	ready := p.writer != nil
	p.mu.RUnlock()
	if ready {
		return nil
	}
	return p.initWriter()
}

// WriteMessages sends messages with up to Producer.MaxAttempts attempts. Errors that
// cannot succeed on retry stop the loop early. The returned error is an
// *errors.AppError.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return fmt.Errorf("producer is closed")
	}
	if err := p.ensureWriter(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.Producer.MaxAttempts; attempt++ {
		err := p.writer.WriteMessages(ctx, msgs...)
		if err == nil {
			return nil
		}
		lastErr = err
		if IsNonRetryableError(err) || attempt == p.cfg.Producer.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return FromKafka(fmt.Errorf("write to %s: %w", p.cfg.Topic, lastErr), p.cfg.Topic)
}

// SendJSON marshals value and writes it to the configured topic under key.
func (p *Producer) SendJSON(ctx context.Context, key string, value interface{}, headers ...kafkago.Header) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	msg := kafkago.Message{
		Topic:   p.cfg.Topic,
		Key:     []byte(key),
		Value:   data,
		Headers: append([]kafkago.Header{{Key: "content-type", Value: []byte("application/json")}}, headers...),
		Time:    time.Now().UTC(),
	}
	return p.WriteMessages(ctx, msg)
}

// Stats returns the writer activity since the previous call, zero until the
// writer exists.
func (p *Producer) Stats() ProducerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.writer == nil {
		return ProducerStats{Topic: p.cfg.Topic}
	}
	return statsFrom(p.writer.Stats())
}

// IsAvailable reports whether the producer still accepts messages.
func (p *Producer) IsAvailable(_ context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}

// Close flushes and shuts down the writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Info("Kafka producer closing")
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
