// Package workflowtest provides in-memory implementations of the workflow
// ports for tests.
package workflowtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kbukum/flowengine/workflow"
)

// Store implements WorkflowStore, ExecutionRecorder, NodeTypeConfigSource,
// UserDirectory and ReservationStore in memory.
type Store struct {
	mu           sync.Mutex
	workflows    map[string]*workflow.Workflow
	executions   map[string]*workflow.Execution
	nodes        map[string]*workflow.NodeExecution
	nodeOrder    []string
	configs      map[string]workflow.NodeTypeConfig
	roles        map[string]string
	reservations map[string]*workflow.Reservation

	// FailCreateExecution, when set, is returned by CreateExecution.
	FailCreateExecution error
	// FailCreateNodeExecution, when set, is returned by CreateNodeExecution.
	FailCreateNodeExecution error
	// OnNodeStart runs after a node execution is recorded, before the node runs.
	OnNodeStart func(ne *workflow.NodeExecution)
	// OnFindExecution runs after FindExecution has taken its copy.
	OnFindExecution func(id string)
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		workflows:    make(map[string]*workflow.Workflow),
		executions:   make(map[string]*workflow.Execution),
		nodes:        make(map[string]*workflow.NodeExecution),
		configs:      make(map[string]workflow.NodeTypeConfig),
		roles:        make(map[string]string),
		reservations: make(map[string]*workflow.Reservation),
	}
}

// PutWorkflow stores wf.
func (s *Store) PutWorkflow(wf *workflow.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *wf
	s.workflows[wf.ID] = &cp
}

// PutNodeTypeConfig stores a pricing record.
func (s *Store) PutNodeTypeConfig(cfg workflow.NodeTypeConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.Type] = cfg
}

// SetRole assigns a role to userID.
func (s *Store) SetRole(userID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = role
}

// PutExecution stores exec directly, bypassing the engine.
func (s *Store) PutExecution(exec *workflow.Execution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *exec
	s.executions[exec.ID] = &cp
}

// PutReservation stores r directly.
func (s *Store) PutReservation(r *workflow.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reservations[r.ID] = &cp
}

// FindWorkflow implements workflow.WorkflowStore.
func (s *Store) FindWorkflow(_ context.Context, id string) (*workflow.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, nil
	}
	cp := *wf
	return &cp, nil
}

// CreateExecution implements workflow.ExecutionRecorder.
func (s *Store) CreateExecution(_ context.Context, exec *workflow.Execution) error {
	if s.FailCreateExecution != nil {
		return s.FailCreateExecution
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *exec
	s.executions[exec.ID] = &cp
	return nil
}

// UpdateExecution implements workflow.ExecutionRecorder.
func (s *Store) UpdateExecution(_ context.Context, id string, u workflow.ExecutionUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.executions[id]
	if !ok || exec.Status != workflow.StatusRunning {
		return false, nil
	}
	completed := u.CompletedAt
	exec.Status = u.Status
	exec.Output = u.Output
	exec.CreditsUsed = u.CreditsUsed
	exec.ErrorMessage = u.ErrorMessage
	exec.CompletedAt = &completed
	return true, nil
}

// FindExecution implements workflow.ExecutionRecorder.
func (s *Store) FindExecution(_ context.Context, id string) (*workflow.Execution, error) {
	s.mu.Lock()
	exec, ok := s.executions[id]
	var cp *workflow.Execution
	if ok {
		c := *exec
		cp = &c
	}
	hook := s.OnFindExecution
	s.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	return cp, nil
}

// Execution returns the stored execution or nil.
func (s *Store) Execution(id string) *workflow.Execution {
	exec, _ := s.FindExecution(context.Background(), id)
	return exec
}

// Executions returns every stored execution.
func (s *Store) Executions() []workflow.Execution {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]workflow.Execution, 0, len(s.executions))
	for _, exec := range s.executions {
		out = append(out, *exec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// CreateNodeExecution implements workflow.ExecutionRecorder.
func (s *Store) CreateNodeExecution(_ context.Context, ne *workflow.NodeExecution) error {
	if s.FailCreateNodeExecution != nil {
		return s.FailCreateNodeExecution
	}
	s.mu.Lock()
	cp := *ne
	s.nodes[ne.ID] = &cp
	s.nodeOrder = append(s.nodeOrder, ne.ID)
	hook := s.OnNodeStart
	s.mu.Unlock()

	if hook != nil {
		hook(&cp)
	}
	return nil
}

// UpdateNodeExecution implements workflow.ExecutionRecorder.
func (s *Store) UpdateNodeExecution(_ context.Context, id string, u workflow.NodeExecutionUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ne, ok := s.nodes[id]
	if !ok || ne.Status != workflow.StatusRunning {
		return false, nil
	}
	completed := u.CompletedAt
	ne.Status = u.Status
	ne.Output = u.Output
	ne.CreditsUsed = u.CreditsUsed
	ne.Duration = u.Duration
	ne.ErrorMessage = u.ErrorMessage
	ne.CompletedAt = &completed
	return true, nil
}

// ListNodeExecutions implements workflow.ExecutionRecorder, in creation order.
func (s *Store) ListNodeExecutions(_ context.Context, executionID string) ([]workflow.NodeExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []workflow.NodeExecution
	for _, id := range s.nodeOrder {
		if ne := s.nodes[id]; ne.ExecutionID == executionID {
			out = append(out, *ne)
		}
	}
	return out, nil
}

// NodeTypeConfig implements workflow.NodeTypeConfigSource.
func (s *Store) NodeTypeConfig(_ context.Context, nodeType string) (*workflow.NodeTypeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[nodeType]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

// UserRole implements workflow.UserDirectory.
func (s *Store) UserRole(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roles[userID], nil
}

// CreateReservation implements workflow.ReservationStore.
func (s *Store) CreateReservation(_ context.Context, r *workflow.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reservations[r.ID] = &cp
	return nil
}

// AttachExecution implements workflow.ReservationStore.
func (s *Store) AttachExecution(_ context.Context, reservationID, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reservations[reservationID]; ok {
		r.ExecutionID = executionID
	}
	return nil
}

// SettleReservation implements workflow.ReservationStore.
func (s *Store) SettleReservation(_ context.Context, id string, status workflow.ReservationStatus, refunded int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || r.Status != workflow.ReservationPending {
		return false, nil
	}
	now := time.Now().UTC()
	r.Status = status
	r.Refunded = refunded
	r.SettledAt = &now
	return true, nil
}

// ReopenReservation implements workflow.ReservationStore.
func (s *Store) ReopenReservation(_ context.Context, id string, from workflow.ReservationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reservations[id]; ok && r.Status == from {
		r.Status = workflow.ReservationPending
		r.Refunded = 0
		r.SettledAt = nil
	}
	return nil
}

// ListStaleReservations implements workflow.ReservationStore.
func (s *Store) ListStaleReservations(_ context.Context, before time.Time, limit int) ([]workflow.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []workflow.Reservation
	for _, r := range s.reservations {
		if r.Status == workflow.ReservationPending && r.CreatedAt.Before(before) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Reservations returns every stored reservation.
func (s *Store) Reservations() []workflow.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]workflow.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		out = append(out, *r)
	}
	return out
}
