package workflow

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/flowengine/errors"
	"github.com/kbukum/flowengine/events"
	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/observability"
)

const abandonedMessage = "Execution abandoned"

// SweepReport summarises one sweep.
type SweepReport struct {
	Scanned   int
	Recovered int
	Refunded  int64
	Failed    int
}

// ReservationSweeper refunds pre-deductions whose run never settled, for
// instance because the process died between reserving and settling.
//
// A reservation is stale once it has been pending for longer than the run
// budget plus a grace period. A still-running execution behind it is marked
// failed first so the engine, if it is somehow alive, cannot also settle.
type ReservationSweeper struct {
	cfg          Config
	reservations ReservationStore
	executions   ExecutionRecorder
	ledger       Ledger
	publisher    events.Publisher
	clock        Clock
	metrics      *observability.Metrics
	log          *logger.Logger
}

// Sweep recovers at most one batch of stale reservations.
func (s *ReservationSweeper) Sweep(ctx context.Context) (*SweepReport, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanReservationSweep)
	defer span.End()

	cutoff := s.clock.Now().Add(-(s.cfg.Timeout + s.cfg.SweepGrace))
	stale, err := s.reservations.ListStaleReservations(ctx, cutoff, s.cfg.SweepBatch)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, errors.Wrap(err)
	}

	report := &SweepReport{Scanned: len(stale)}
	for i := range stale {
		r := &stale[i]
		refund, err := s.recover(ctx, r)
		if err != nil {
			report.Failed++
			s.log.Error("Reservation recovery failed", logger.Fields(
				"reservation_id", r.ID,
				logger.FieldExecutionID, r.ExecutionID,
				logger.FieldError, err.Error(),
			))
			continue
		}
		if refund >= 0 {
			report.Recovered++
			report.Refunded += refund
		}
	}

	span.SetAttributes(
		attribute.Int("sweep.scanned", report.Scanned),
		attribute.Int("sweep.recovered", report.Recovered),
		attribute.Int64(observability.AttrCredits, report.Refunded),
	)
	if report.Scanned > 0 {
		s.log.Info("Reservation sweep finished", logger.Fields(
			"scanned", report.Scanned,
			"recovered", report.Recovered,
			"refunded", report.Refunded,
			"failed", report.Failed,
		))
	}
	return report, nil
}

// recover returns the amount refunded, or -1 when another party claimed the
// reservation first.
func (s *ReservationSweeper) recover(ctx context.Context, r *Reservation) (int64, error) {
	refund, used, err := s.decide(ctx, r)
	if err != nil {
		return 0, err
	}

	claimed, err := s.reservations.SettleReservation(ctx, r.ID, ReservationRecovered, refund)
	if err != nil {
		return 0, err
	}
	if !claimed {
		return -1, nil
	}
	if refund > 0 {
		extra := map[string]any{
			"reservation_id": r.ID,
			"execution_id":   r.ExecutionID,
		}
		if err := s.ledger.AddCredits(ctx, r.UserID, refund, ReasonRecovery, r.WorkflowID, extra); err != nil {
			if rErr := s.reservations.ReopenReservation(context.WithoutCancel(ctx), r.ID, ReservationRecovered); rErr != nil {
				return 0, stderrors.Join(err, rErr)
			}
			return 0, err
		}
		s.metrics.RecordCredits(ctx, observability.CreditsRefunded, refund)
	}

	s.publish(ctx, r, &events.Credits{Estimated: r.Amount, Used: used, Refunded: refund})
	return refund, nil
}

// decide works out how much of r goes back to the user.
func (s *ReservationSweeper) decide(ctx context.Context, r *Reservation) (refund, used int64, err error) {
	if r.ExecutionID == "" {
		return r.Amount, 0, nil
	}
	exec, err := s.executions.FindExecution(ctx, r.ExecutionID)
	if err != nil {
		return 0, 0, err
	}
	if exec == nil {
		return r.Amount, 0, nil
	}

	if exec.Status == StatusRunning {
		updated, err := s.executions.UpdateExecution(ctx, exec.ID, ExecutionUpdate{
			Status:       StatusFailed,
			Output:       map[string]any{"error": abandonedMessage},
			CreditsUsed:  exec.CreditsUsed,
			ErrorMessage: abandonedMessage,
			CompletedAt:  s.clock.Now(),
		})
		if err != nil {
			return 0, 0, err
		}
		if updated {
			return r.Amount, 0, nil
		}
		// The run finished between the read and the update.
		if exec, err = s.executions.FindExecution(ctx, r.ExecutionID); err != nil {
			return 0, 0, err
		}
		if exec == nil {
			return r.Amount, 0, nil
		}
	}

	switch exec.Status {
	case StatusSuccess:
		if exec.CreditsUsed >= r.Amount {
			return 0, exec.CreditsUsed, nil
		}
		return r.Amount - exec.CreditsUsed, exec.CreditsUsed, nil
	default:
		return r.Amount, 0, nil
	}
}

func (s *ReservationSweeper) publish(ctx context.Context, r *Reservation, credits *events.Credits) {
	err := s.publisher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        events.ExecutionRecovered,
		ExecutionID: r.ExecutionID,
		WorkflowID:  r.WorkflowID,
		UserID:      r.UserID,
		Status:      string(ReservationRecovered),
		Credits:     credits,
		Timestamp:   s.clock.Now(),
	})
	if err != nil {
		s.log.Warn("Event publish failed", logger.Fields(
			"reservation_id", r.ID,
			logger.FieldError, err.Error(),
		))
	}
}

// Run sweeps every interval until ctx is done.
func (s *ReservationSweeper) Run(ctx context.Context) error {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error("Reservation sweep failed", logger.ErrorFields("sweep", err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
