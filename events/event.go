package events

import (
	"context"
	"time"
)

// Type names an execution lifecycle transition.
type Type string

const (
	ExecutionStarted   Type = "execution.started"
	ExecutionSucceeded Type = "execution.succeeded"
	ExecutionFailed    Type = "execution.failed"
	ExecutionCancelled Type = "execution.cancelled"
	// ExecutionRecovered is emitted when the reservation sweeper settles a
	// run whose process never finished it.
	ExecutionRecovered Type = "execution.recovered"
)

// Credits carries the credit movement of an execution.
type Credits struct {
	Estimated int64 `json:"estimated"`
	Used      int64 `json:"used"`
	Refunded  int64 `json:"refunded"`
}

// Event is one execution lifecycle record.
type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	Source      string    `json:"source"`
	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	Credits     *Credits  `json:"credits,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher delivers events. Callers treat publish errors as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, event Event) error { return f(ctx, event) }

// Nop discards every event.
var Nop Publisher = PublisherFunc(func(context.Context, Event) error { return nil })
