package workflow

import (
	"time"

	"github.com/kbukum/flowengine/dag"
)

// Status is the lifecycle state of an execution or node execution.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// Workflow is a stored graph of typed nodes owned by a user.
type Workflow struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Graph       dag.Graph `json:"graph"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Execution is the record of one run of a workflow.
type Execution struct {
	ID               string          `json:"id"`
	WorkflowID       string          `json:"workflow_id"`
	UserID           string          `json:"user_id"`
	Status           Status          `json:"status"`
	Input            map[string]any  `json:"input"`
	Output           map[string]any  `json:"output,omitempty"`
	EstimatedCredits int64           `json:"estimated_credits"`
	CreditsUsed      int64           `json:"credits_used"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	Nodes            []NodeExecution `json:"nodes,omitempty"`
}

// NodeExecution is the record of one node within one execution. Input is
// the variables map as the node saw it.
type NodeExecution struct {
	ID           string         `json:"id"`
	ExecutionID  string         `json:"execution_id"`
	NodeID       string         `json:"node_id"`
	NodeType     string         `json:"node_type"`
	Status       Status         `json:"status"`
	Input        map[string]any `json:"input"`
	Output       any            `json:"output,omitempty"`
	CreditsUsed  int64          `json:"credits_used"`
	Duration     time.Duration  `json:"duration"`
	ErrorMessage string         `json:"error_message,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// ExecutionUpdate holds the terminal fields of an execution.
type ExecutionUpdate struct {
	Status       Status
	Output       map[string]any
	CreditsUsed  int64
	ErrorMessage string
	CompletedAt  time.Time
}

// NodeExecutionUpdate holds the terminal fields of a node execution.
type NodeExecutionUpdate struct {
	Status       Status
	Output       any
	CreditsUsed  int64
	Duration     time.Duration
	ErrorMessage string
	CompletedAt  time.Time
}

// NodeTypeConfig is the pricing record of a node type.
type NodeTypeConfig struct {
	Type                string `json:"type"`
	CreditsPerExecution int64  `json:"credits_per_execution"`
	IsActive            bool   `json:"is_active"`
}

// DefaultNodeTypeConfig is used for types with no stored record: free and active.
func DefaultNodeTypeConfig(nodeType string) NodeTypeConfig {
	return NodeTypeConfig{Type: nodeType, IsActive: true}
}

// ReservationStatus is the state of a credit reservation.
type ReservationStatus string

const (
	ReservationPending     ReservationStatus = "pending"
	ReservationSettled     ReservationStatus = "settled"
	ReservationCompensated ReservationStatus = "compensated"
	ReservationRecovered   ReservationStatus = "recovered"
)

// Reservation is the durable record of a pre-deduction. It stays pending
// until the run settles or compensates it; the sweeper recovers the ones a
// crashed process left behind.
type Reservation struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	WorkflowID  string            `json:"workflow_id"`
	ExecutionID string            `json:"execution_id,omitempty"`
	Amount      int64             `json:"amount"`
	Refunded    int64             `json:"refunded"`
	Status      ReservationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	SettledAt   *time.Time        `json:"settled_at,omitempty"`
}

// Credits is the credit breakdown returned to the caller.
type Credits struct {
	Estimated int64 `json:"estimated"`
	Used      int64 `json:"used"`
	Refunded  int64 `json:"refunded"`
}

// ExecutionResult is returned by Engine.Execute on success.
type ExecutionResult struct {
	Success     bool           `json:"success"`
	ExecutionID string         `json:"execution_id"`
	Output      map[string]any `json:"output"`
	Credits     Credits        `json:"credits"`
	Duration    time.Duration  `json:"duration"`
}

// CancelResult is returned by Engine.Cancel.
type CancelResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
