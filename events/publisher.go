package events

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/flowengine/logger"
)

// LogPublisher writes events to the service log.
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.WithComponent("events")}
}

// Publish logs the event at info level.
func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	fields := logger.Fields(
		"event_id", e.ID,
		"event_type", string(e.Type),
		logger.FieldExecutionID, e.ExecutionID,
		logger.FieldWorkflowID, e.WorkflowID,
		logger.FieldUserID, e.UserID,
		logger.FieldStatus, e.Status,
	)
	if e.Credits != nil {
		fields["credits_estimated"] = e.Credits.Estimated
		fields["credits_used"] = e.Credits.Used
		fields["credits_refunded"] = e.Credits.Refunded
	}
	if e.Error != "" {
		fields[logger.FieldError] = e.Error
	}
	p.log.Info("execution event", fields)
	return nil
}

// Multi fans an event out to every publisher and joins their errors.
func Multi(publishers ...Publisher) Publisher {
	return PublisherFunc(func(ctx context.Context, e Event) error {
		var errs []error
		for _, p := range publishers {
			if p == nil {
				continue
			}
			if err := p.Publish(ctx, e); err != nil {
				errs = append(errs, err)
			}
		}
		return stderrors.Join(errs...)
	})
}
