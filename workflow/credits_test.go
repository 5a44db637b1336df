package workflow_test

import (
	"context"
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/errors"
	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/workflow"
	"github.com/kbukum/flowengine/workflow/workflowtest"
)

func newCoordinator(store *workflowtest.Store, ledger *workflowtest.Ledger, reservations workflow.ReservationStore) *workflow.CreditCoordinator {
	return workflow.NewCreditCoordinator(ledger, store, reservations, nil, nil, logger.NewNop())
}

func TestEstimate_OncePerType(t *testing.T) {
	store := workflowtest.NewStore()
	store.PutNodeTypeConfig(workflow.NodeTypeConfig{Type: "llm", CreditsPerExecution: 10, IsActive: true})
	store.PutNodeTypeConfig(workflow.NodeTypeConfig{Type: "knowledge", CreditsPerExecution: 3, IsActive: true})
	c := newCoordinator(store, workflowtest.NewLedger(), nil)

	g := &dag.Graph{Nodes: []dag.Node{
		{ID: "s", Type: "start"},
		{ID: "a", Type: "llm"},
		{ID: "k", Type: "knowledge"},
		{ID: "b", Type: "llm"},
	}}
	est, err := c.Estimate(context.Background(), g)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if est.Total != 13 {
		t.Errorf("Total = %d, want 13", est.Total)
	}
	if got := est.Config("start"); got.CreditsPerExecution != 0 || !got.IsActive {
		t.Errorf("unpriced type = %+v, want free and active", got)
	}
	if got := est.Config("llm").CreditsPerExecution; got != 10 {
		t.Errorf("llm price = %d", got)
	}
}

func TestEstimate_InactiveType(t *testing.T) {
	store := workflowtest.NewStore()
	store.PutNodeTypeConfig(workflow.NodeTypeConfig{Type: "llm", CreditsPerExecution: 10})
	c := newCoordinator(store, workflowtest.NewLedger(), nil)

	_, err := c.Estimate(context.Background(), &dag.Graph{Nodes: []dag.Node{{ID: "a", Type: "llm"}}})
	assertCode(t, err, errors.ErrCodeNodeTypeInactive)
}

func TestReserve_ZeroTouchesNothing(t *testing.T) {
	store := workflowtest.NewStore()
	ledger := workflowtest.NewLedger()
	c := newCoordinator(store, ledger, store)

	h, err := c.Reserve(context.Background(), "u", "w", 0)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	h.Meter(5)
	refund, err := h.Settle(context.Background())
	if err != nil || refund != 0 {
		t.Errorf("Settle = %d, %v", refund, err)
	}
	if len(ledger.Entries()) != 0 || len(store.Reservations()) != 0 {
		t.Errorf("zero reservation touched the ledger or store")
	}
}

func TestReserve_Insufficient(t *testing.T) {
	ledger := workflowtest.NewLedger()
	ledger.SetBalance("u", 9)
	c := newCoordinator(workflowtest.NewStore(), ledger, nil)

	_, err := c.Reserve(context.Background(), "u", "w", 10)
	assertCode(t, err, errors.ErrCodeInsufficientCredits)
	appErr, _ := errors.AsAppError(err)
	if appErr.Details["required"] != int64(10) {
		t.Errorf("details = %v", appErr.Details)
	}
}

func TestHold_SettleRefundsDifference(t *testing.T) {
	store := workflowtest.NewStore()
	ledger := workflowtest.NewLedger()
	ledger.SetBalance("u", 50)
	c := newCoordinator(store, ledger, store)

	h, err := c.Reserve(context.Background(), "u", "w", 20)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if got := ledger.Balance("u"); got != 30 {
		t.Fatalf("balance after reserve = %d", got)
	}
	h.Meter(5)
	h.Meter(3)

	refund, err := h.Settle(context.Background())
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if refund != 12 || ledger.Balance("u") != 42 {
		t.Errorf("refund = %d, balance = %d", refund, ledger.Balance("u"))
	}

	// Settled holds ignore a later compensation.
	if again, _ := h.Compensate(context.Background(), "late"); again != 0 {
		t.Errorf("second release refunded %d", again)
	}
	if got := ledger.Balance("u"); got != 42 {
		t.Errorf("balance = %d after second release", got)
	}

	entries := ledger.Entries()
	reasons := []string{entries[0].Reason, entries[1].Reason}
	if !reflect.DeepEqual(reasons, []string{workflow.ReasonExecution, workflow.ReasonRefund}) {
		t.Errorf("reasons = %v", reasons)
	}
}

func TestHold_CompensateRefundsAll(t *testing.T) {
	store := workflowtest.NewStore()
	ledger := workflowtest.NewLedger()
	ledger.SetBalance("u", 50)
	c := newCoordinator(store, ledger, store)

	h, _ := c.Reserve(context.Background(), "u", "w", 20)
	h.Meter(15)
	refund, err := h.Compensate(context.Background(), "node failed")
	if err != nil {
		t.Fatalf("Compensate: %v", err)
	}
	if refund != 20 || ledger.Balance("u") != 50 {
		t.Errorf("refund = %d, balance = %d", refund, ledger.Balance("u"))
	}
	if r := store.Reservations()[0]; r.Status != workflow.ReservationCompensated {
		t.Errorf("reservation = %+v", r)
	}
}

func TestHold_ClaimedElsewhereDoesNotRefund(t *testing.T) {
	store := workflowtest.NewStore()
	ledger := workflowtest.NewLedger()
	ledger.SetBalance("u", 50)
	c := newCoordinator(store, ledger, store)

	h, _ := c.Reserve(context.Background(), "u", "w", 20)
	id := store.Reservations()[0].ID
	if ok, _ := store.SettleReservation(context.Background(), id, workflow.ReservationRecovered, 20); !ok {
		t.Fatal("could not claim reservation")
	}

	refund, err := h.Settle(context.Background())
	if err != nil || refund != 0 {
		t.Errorf("Settle = %d, %v", refund, err)
	}
	if got := ledger.Balance("u"); got != 30 {
		t.Errorf("balance = %d, want 30", got)
	}
}

type failingReservations struct {
	*workflowtest.Store
}

func (failingReservations) CreateReservation(context.Context, *workflow.Reservation) error {
	return stderrors.New("store down")
}

func TestHold_FailedRefundCanBeRetried(t *testing.T) {
	store := workflowtest.NewStore()
	ledger := workflowtest.NewLedger()
	ledger.SetBalance("u", 100)
	c := newCoordinator(store, ledger, store)
	ctx := context.Background()

	h, err := c.Reserve(ctx, "u", "w", 10)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	ledger.FailAdd = stderrors.New("ledger down")
	if _, err := h.Compensate(ctx, "node failed"); err == nil {
		t.Fatal("expected the refund error")
	}
	if r := store.Reservations(); len(r) != 1 || r[0].Status != workflow.ReservationPending {
		t.Fatalf("reservation after failed refund = %+v, want pending", r)
	}

	ledger.FailAdd = nil
	refund, err := h.Compensate(ctx, "node failed")
	if err != nil || refund != 10 {
		t.Fatalf("retry Compensate = %d, %v", refund, err)
	}
	if got := ledger.Balance("u"); got != 100 {
		t.Errorf("balance = %d, want 100", got)
	}
	if r := store.Reservations(); r[0].Status != workflow.ReservationCompensated {
		t.Errorf("status = %s, want compensated", r[0].Status)
	}
}

func TestReserve_StoreFailureRollsBack(t *testing.T) {
	store := workflowtest.NewStore()
	ledger := workflowtest.NewLedger()
	ledger.SetBalance("u", 50)
	c := newCoordinator(store, ledger, failingReservations{store})

	if _, err := c.Reserve(context.Background(), "u", "w", 20); err == nil {
		t.Fatal("expected error")
	}
	if got := ledger.Balance("u"); got != 50 {
		t.Errorf("balance = %d, want 50", got)
	}
	entries := ledger.Entries()
	if last := entries[len(entries)-1]; last.Reason != workflow.ReasonReserveRollback {
		t.Errorf("last entry = %+v", last)
	}
}
