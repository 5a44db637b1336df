package workflow

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/errors"
	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/observability"
)

// Ledger references written with every workflow debit and credit.
const (
	LedgerModelRef        = "workflow"
	ReasonExecution       = "workflow_execution"
	ReasonRefund          = "workflow_refund"
	ReasonCompensation    = "workflow_compensation"
	ReasonRecovery        = "workflow_recovery"
	ReasonReserveRollback = "workflow_reserve_rollback"
)

// Estimate is the pre-run cost of a graph.
type Estimate struct {
	Total   int64
	Configs map[string]NodeTypeConfig
}

// Config returns the pricing record resolved for nodeType.
func (e Estimate) Config(nodeType string) NodeTypeConfig {
	if cfg, ok := e.Configs[nodeType]; ok {
		return cfg
	}
	return DefaultNodeTypeConfig(nodeType)
}

// CreditCoordinator estimates, reserves and settles the credits of a run.
type CreditCoordinator struct {
	ledger       Ledger
	configs      NodeTypeConfigSource
	reservations ReservationStore
	clock        Clock
	metrics      *observability.Metrics
	log          *logger.Logger
}

// NewCreditCoordinator creates a coordinator. reservations and metrics may be nil.
func NewCreditCoordinator(ledger Ledger, configs NodeTypeConfigSource, reservations ReservationStore, clock Clock, metrics *observability.Metrics, log *logger.Logger) *CreditCoordinator {
	if clock == nil {
		clock = SystemClock
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CreditCoordinator{
		ledger:       ledger,
		configs:      configs,
		reservations: reservations,
		clock:        clock,
		metrics:      metrics,
		log:          log.WithComponent("workflow.credits"),
	}
}

// Estimate sums CreditsPerExecution once per distinct node type in g, in
// first-seen order. Types with no stored record cost nothing. An inactive
// type fails the estimate.
//
// Metering charges every node occurrence, so a graph that repeats a type
// can use more than it was estimated at; Settle absorbs the difference.
func (c *CreditCoordinator) Estimate(ctx context.Context, g *dag.Graph) (Estimate, error) {
	est := Estimate{Configs: make(map[string]NodeTypeConfig)}
	for _, t := range g.Types() {
		cfg := DefaultNodeTypeConfig(t)
		stored, err := c.configs.NodeTypeConfig(ctx, t)
		if err != nil {
			return Estimate{}, errors.Wrap(err)
		}
		if stored != nil {
			cfg = *stored
			cfg.Type = t
			if !cfg.IsActive {
				return Estimate{}, errors.NodeTypeInactive(t)
			}
		}
		est.Configs[t] = cfg
		est.Total += cfg.CreditsPerExecution
	}
	return est, nil
}

// Reserve checks the balance and debits amount from the user's ledger. A
// zero amount touches nothing. With a ReservationStore configured the debit
// is also recorded as a pending reservation; a crash between the debit and
// that write is the one window the sweeper cannot see.
func (c *CreditCoordinator) Reserve(ctx context.Context, userID, workflowID string, amount int64) (*Hold, error) {
	h := &Hold{coordinator: c, userID: userID, workflowID: workflowID, reserved: amount}
	if amount <= 0 {
		h.reserved = 0
		return h, nil
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanCreditReserve)
	defer span.End()

	ok, err := c.ledger.HasCredits(ctx, userID, amount)
	if err != nil {
		return nil, errors.Wrap(err)
	}
	if !ok {
		return nil, errors.InsufficientCredits(amount)
	}
	balance, err := c.ledger.ConsumeCredits(ctx, userID, amount, LedgerModelRef, workflowID, ReasonExecution)
	if err != nil {
		return nil, errors.Wrap(err)
	}

	if c.reservations != nil {
		r := &Reservation{
			ID:         uuid.NewString(),
			UserID:     userID,
			WorkflowID: workflowID,
			Amount:     amount,
			Status:     ReservationPending,
			CreatedAt:  c.clock.Now(),
		}
		if err := c.reservations.CreateReservation(ctx, r); err != nil {
			if rbErr := c.ledger.AddCredits(context.WithoutCancel(ctx), userID, amount, ReasonReserveRollback, workflowID, nil); rbErr != nil {
				c.log.Error("Reservation rollback failed", logger.Fields(
					logger.FieldUserID, userID,
					logger.FieldWorkflowID, workflowID,
					logger.FieldCredits, amount,
					logger.FieldError, rbErr.Error(),
				))
			}
			return nil, errors.Wrap(err)
		}
		h.reservationID = r.ID
	}

	c.metrics.RecordCredits(ctx, observability.CreditsReserved, amount)
	c.log.Debug("Credits reserved", logger.Fields(
		logger.FieldUserID, userID,
		logger.FieldWorkflowID, workflowID,
		logger.FieldCredits, amount,
		"balance_after", balance,
	))
	return h, nil
}

// Hold is one run's reservation: what was debited, what the nodes used so
// far, and whether it has been settled. Settle and Compensate are mutually
// exclusive and take effect at most once.
type Hold struct {
	coordinator   *CreditCoordinator
	userID        string
	workflowID    string
	executionID   string
	reservationID string
	reserved      int64

	mu      sync.Mutex
	used    int64
	settled bool
}

// Reserved returns the amount debited up front.
func (h *Hold) Reserved() int64 { return h.reserved }

// Used returns the metered total.
func (h *Hold) Used() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.used
}

// Meter adds one node's cost to the running total.
func (h *Hold) Meter(credits int64) {
	h.mu.Lock()
	h.used += credits
	h.mu.Unlock()
	h.coordinator.metrics.RecordCredits(context.Background(), observability.CreditsUsed, credits)
}

// Attach links the hold to the execution it pays for.
func (h *Hold) Attach(ctx context.Context, executionID string) error {
	h.executionID = executionID
	if h.reservationID == "" {
		return nil
	}
	if err := h.coordinator.reservations.AttachExecution(ctx, h.reservationID, executionID); err != nil {
		return errors.Wrap(err)
	}
	return nil
}

// Settle refunds max(0, reserved - used). Use beyond the reservation is not
// charged.
func (h *Hold) Settle(ctx context.Context) (int64, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanCreditSettle)
	defer span.End()

	used := h.Used()
	refund := h.reserved - used
	if refund < 0 {
		refund = 0
	}
	return h.release(ctx, ReservationSettled, refund, ReasonRefund, map[string]any{
		"workflow_id": h.workflowID,
		"estimated":   h.reserved,
		"used":        used,
	})
}

// Compensate refunds the whole reservation after a failed run. It is a
// no-op once the hold is settled.
func (h *Hold) Compensate(ctx context.Context, reason string) (int64, error) {
	return h.release(ctx, ReservationCompensated, h.reserved, ReasonCompensation, map[string]any{
		"workflow_id": h.workflowID,
		"error":       reason,
	})
}

func (h *Hold) release(ctx context.Context, status ReservationStatus, refund int64, reason string, extra map[string]any) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.settled || h.reserved == 0 {
		h.settled = true
		return 0, nil
	}
	c := h.coordinator
	log := c.log.WithFields(logger.Fields(
		logger.FieldUserID, h.userID,
		logger.FieldExecutionID, h.executionID,
	))

	if h.reservationID != "" {
		claimed, err := c.reservations.SettleReservation(ctx, h.reservationID, status, refund)
		if err != nil {
			return 0, errors.Wrap(err)
		}
		if !claimed {
			h.settled = true
			log.Warn("Reservation already released elsewhere", logger.Fields("reservation_id", h.reservationID))
			return 0, nil
		}
	}

	if refund > 0 {
		ref := h.executionID
		if ref == "" {
			ref = h.workflowID
		}
		if err := c.ledger.AddCredits(ctx, h.userID, refund, reason, ref, extra); err != nil {
			log.Error("Refund failed", logger.Fields(logger.FieldCredits, refund, logger.FieldError, err.Error()))
			h.reopen(ctx, status, log)
			return 0, errors.Wrap(err)
		}
		c.metrics.RecordCredits(ctx, observability.CreditsRefunded, refund)
	}
	h.settled = true
	log.Info("Credits released", logger.Fields(
		"reason", reason,
		"reserved", h.reserved,
		"refunded", refund,
	))
	return refund, nil
}

// reopen returns a claimed reservation to pending after its refund failed.
// The hold stays unsettled so the caller may retry.
func (h *Hold) reopen(ctx context.Context, from ReservationStatus, log *logger.Logger) {
	if h.reservationID == "" {
		return
	}
	if err := h.coordinator.reservations.ReopenReservation(context.WithoutCancel(ctx), h.reservationID, from); err != nil {
		log.Error("Reservation left claimed without a refund", logger.Fields(
			"reservation_id", h.reservationID,
			logger.FieldError, err.Error(),
		))
	}
}
