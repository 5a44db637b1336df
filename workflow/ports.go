package workflow

import (
	"context"
	"time"
)

// WorkflowStore loads workflows. FindWorkflow returns nil, nil when the id
// is unknown.
type WorkflowStore interface {
	FindWorkflow(ctx context.Context, id string) (*Workflow, error)
}

// ExecutionRecorder persists executions and node executions.
//
// UpdateExecution only applies while the execution is running and reports
// whether a row changed. That makes every terminal transition happen once:
// a cancel racing the engine's own success or failure write loses cleanly.
// Find methods return nil, nil when the id is unknown.
type ExecutionRecorder interface {
	CreateExecution(ctx context.Context, exec *Execution) error
	UpdateExecution(ctx context.Context, id string, update ExecutionUpdate) (bool, error)
	FindExecution(ctx context.Context, id string) (*Execution, error)
	CreateNodeExecution(ctx context.Context, ne *NodeExecution) error
	UpdateNodeExecution(ctx context.Context, id string, update NodeExecutionUpdate) (bool, error)
	ListNodeExecutions(ctx context.Context, executionID string) ([]NodeExecution, error)
}

// Ledger is the user's credit account. ConsumeCredits must be atomic and
// must refuse to overdraw.
type Ledger interface {
	HasCredits(ctx context.Context, userID string, amount int64) (bool, error)
	ConsumeCredits(ctx context.Context, userID string, amount int64, modelRef, contextRef, reason string) (balanceAfter int64, err error)
	AddCredits(ctx context.Context, userID string, amount int64, reason, ref string, extra map[string]any) error
}

// NodeTypeConfigSource resolves pricing records. NodeTypeConfig returns
// nil, nil for types with no stored record.
type NodeTypeConfigSource interface {
	NodeTypeConfig(ctx context.Context, nodeType string) (*NodeTypeConfig, error)
}

// UserDirectory resolves a user's role for the elevated-access check.
type UserDirectory interface {
	UserRole(ctx context.Context, userID string) (string, error)
}

// ReservationStore keeps durable credit reservations.
//
// SettleReservation moves a pending reservation to status and reports
// whether it did; a false return means another party already claimed it and
// the caller must not refund. ReopenReservation undoes a claim from status
// whose refund never reached the ledger, so a retry or the sweeper can
// release it again.
type ReservationStore interface {
	CreateReservation(ctx context.Context, r *Reservation) error
	AttachExecution(ctx context.Context, reservationID, executionID string) error
	SettleReservation(ctx context.Context, id string, status ReservationStatus, refunded int64) (bool, error)
	ReopenReservation(ctx context.Context, id string, from ReservationStatus) error
	ListStaleReservations(ctx context.Context, before time.Time, limit int) ([]Reservation, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the wall clock in UTC.
var SystemClock Clock = systemClock{}
