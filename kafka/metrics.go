package kafka

import (
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// ProducerStats is the event writer's activity since the previous call to
// Producer.Stats; kafka-go resets its counters on every read.
type ProducerStats struct {
	Topic    string
	Events   int64
	Bytes    int64
	Errors   int64
	Retries  int64
	MaxWrite time.Duration
}

func statsFrom(s kafkago.WriterStats) ProducerStats {
	return ProducerStats{
		Topic:    s.Topic,
		Events:   s.Messages,
		Bytes:    s.Bytes,
		Errors:   s.Errors,
		Retries:  s.Retries,
		MaxWrite: s.WriteTime.Max,
	}
}

// Failing reports an interval in which every write failed.
func (s ProducerStats) Failing() bool {
	return s.Errors > 0 && s.Events == 0
}

// Summary is the line shown on the health endpoint.
func (s ProducerStats) Summary() string {
	return fmt.Sprintf("%d events, %d errors, %d retries, max write %s",
		s.Events, s.Errors, s.Retries, s.MaxWrite.Round(time.Millisecond))
}
