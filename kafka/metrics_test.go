package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

func TestProducerStats(t *testing.T) {
	tests := []struct {
		name        string
		in          kafkago.WriterStats
		wantFailing bool
		wantSummary string
	}{
		{
			name:        "idle",
			in:          kafkago.WriterStats{},
			wantSummary: "0 events, 0 errors, 0 retries, max write 0s",
		},
		{
			name: "healthy",
			in: kafkago.WriterStats{
				Messages: 12, Bytes: 2048, Retries: 1, Topic: "workflow.executions",
				WriteTime: kafkago.DurationStats{Max: 41*time.Millisecond + 400*time.Microsecond},
			},
			wantSummary: "12 events, 0 errors, 1 retries, max write 41ms",
		},
		{
			name:        "every write failed",
			in:          kafkago.WriterStats{Errors: 3, Retries: 6},
			wantFailing: true,
			wantSummary: "0 events, 3 errors, 6 retries, max write 0s",
		},
		{
			name:        "partial failure",
			in:          kafkago.WriterStats{Messages: 4, Errors: 1},
			wantSummary: "4 events, 1 errors, 0 retries, max write 0s",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := statsFrom(tt.in)
			if s.Failing() != tt.wantFailing {
				t.Errorf("Failing() = %v, want %v", s.Failing(), tt.wantFailing)
			}
			if got := s.Summary(); got != tt.wantSummary {
				t.Errorf("Summary() = %q, want %q", got, tt.wantSummary)
			}
			if s.Topic != tt.in.Topic || s.Bytes != tt.in.Bytes {
				t.Errorf("stats = %+v", s)
			}
		})
	}
}
