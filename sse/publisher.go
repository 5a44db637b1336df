package sse

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/kbukum/flowengine/events"
)

// EventPublisher forwards execution events to the stream of the user who
// started the execution.
type EventPublisher struct {
	b Broadcaster
}

var _ events.Publisher = (*EventPublisher)(nil)

// NewEventPublisher creates a publisher writing to b.
func NewEventPublisher(b Broadcaster) *EventPublisher {
	return &EventPublisher{b: b}
}

// Publish broadcasts e on the owner's topic.
func (p *EventPublisher) Publish(_ context.Context, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Type, err)
	}
	if !p.b.Broadcast(UserTopic(e.UserID), Frame{ID: e.ID, Event: string(e.Type), Data: data}) {
		return fmt.Errorf("stream dropped %s for execution %s", e.Type, e.ExecutionID)
	}
	return nil
}
