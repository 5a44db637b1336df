package events

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
)

// JSONSender is satisfied by *kafka.Producer.
type JSONSender interface {
	SendJSON(ctx context.Context, key string, value interface{}, headers ...kafkago.Header) error
}

// KafkaPublisher writes events as JSON messages keyed by execution id, so
// every event of one execution lands on the same partition in order.
type KafkaPublisher struct {
	sender JSONSender
	source string
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher that stamps events with source.
func NewKafkaPublisher(sender JSONSender, source string) *KafkaPublisher {
	return &KafkaPublisher{sender: sender, source: source}
}

// Publish sends e.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.Source == "" {
		e.Source = p.source
	}
	headers := []kafkago.Header{
		{Key: "event-id", Value: []byte(e.ID)},
		{Key: "event-type", Value: []byte(e.Type)},
		{Key: "event-source", Value: []byte(e.Source)},
	}
	if err := p.sender.SendJSON(ctx, e.ExecutionID, e, headers...); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}
