package repository_test

import (
	"context"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/kbukum/flowengine/dag"
	"github.com/kbukum/flowengine/database/query"
	"github.com/kbukum/flowengine/database/testutil"
	"github.com/kbukum/flowengine/errors"
	"github.com/kbukum/flowengine/repository"
	"github.com/kbukum/flowengine/workflow"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func open(t *testing.T) *repository.Repositories {
	t.Helper()
	return repository.New(testutil.Open(t, repository.Models()...))
}

func TestWorkflowRepository(t *testing.T) {
	repos := open(t)
	ctx := context.Background()

	wf := &workflow.Workflow{
		ID:      "wf-1",
		OwnerID: "u1",
		Name:    "digest",
		Graph: dag.Graph{
			Nodes: []dag.Node{{ID: "s", Type: "start"}, {ID: "e", Type: "end", Config: map[string]any{"output": "{{s}}"}}},
			Edges: []dag.Edge{{Source: "s", Target: "e"}},
		},
	}
	if err := repos.Workflows.SaveWorkflow(ctx, wf); err != nil {
		t.Fatalf("SaveWorkflow() = %v", err)
	}

	got, err := repos.Workflows.FindWorkflow(ctx, "wf-1")
	if err != nil || got == nil {
		t.Fatalf("FindWorkflow() = %v, %v", got, err)
	}
	if !reflect.DeepEqual(got.Graph, wf.Graph) || got.Published {
		t.Errorf("stored workflow = %+v", got)
	}

	wf.Published = true
	if err := repos.Workflows.SaveWorkflow(ctx, wf); err != nil {
		t.Fatalf("SaveWorkflow() update = %v", err)
	}
	got, _ = repos.Workflows.FindWorkflow(ctx, "wf-1")
	if !got.Published {
		t.Error("second save should publish the workflow")
	}

	missing, err := repos.Workflows.FindWorkflow(ctx, "nope")
	if missing != nil || err != nil {
		t.Errorf("FindWorkflow(unknown) = %v, %v, want nil, nil", missing, err)
	}
}

func TestNodeTypeConfig_StoresInactive(t *testing.T) {
	repos := open(t)
	ctx := context.Background()

	if err := repos.Workflows.SaveNodeTypeConfig(ctx, workflow.NodeTypeConfig{Type: "llm", CreditsPerExecution: 7, IsActive: false}); err != nil {
		t.Fatal(err)
	}
	cfg, err := repos.Workflows.NodeTypeConfig(ctx, "llm")
	if err != nil || cfg == nil {
		t.Fatalf("NodeTypeConfig() = %v, %v", cfg, err)
	}
	if cfg.IsActive || cfg.CreditsPerExecution != 7 {
		t.Errorf("NodeTypeConfig() = %+v", cfg)
	}

	// Upserting an active type as inactive must switch it off.
	if err := repos.Workflows.SaveNodeTypeConfig(ctx, workflow.NodeTypeConfig{Type: "knowledge", CreditsPerExecution: 2, IsActive: true}); err != nil {
		t.Fatal(err)
	}
	if err := repos.Workflows.SaveNodeTypeConfig(ctx, workflow.NodeTypeConfig{Type: "knowledge", CreditsPerExecution: 2}); err != nil {
		t.Fatal(err)
	}
	if cfg, _ := repos.Workflows.NodeTypeConfig(ctx, "knowledge"); cfg == nil || cfg.IsActive {
		t.Errorf("after deactivation NodeTypeConfig() = %+v", cfg)
	}
	if none, _ := repos.Workflows.NodeTypeConfig(ctx, "end"); none != nil {
		t.Errorf("NodeTypeConfig(unpriced) = %+v, want nil", none)
	}
}

func TestExecutionRepository_TerminalUpdateHappensOnce(t *testing.T) {
	repos := open(t)
	ctx := context.Background()

	exec := &workflow.Execution{ID: "ex-1", WorkflowID: "wf-1", UserID: "u1", Status: workflow.StatusRunning,
		Input: map[string]any{"q": "hi"}, EstimatedCredits: 5, StartedAt: t0}
	if err := repos.Executions.CreateExecution(ctx, exec); err != nil {
		t.Fatal(err)
	}

	ok, err := repos.Executions.UpdateExecution(ctx, "ex-1", workflow.ExecutionUpdate{
		Status: workflow.StatusCancelled, ErrorMessage: "Cancelled by user", CompletedAt: t0.Add(time.Second),
	})
	if err != nil || !ok {
		t.Fatalf("first UpdateExecution() = %v, %v", ok, err)
	}
	ok, err = repos.Executions.UpdateExecution(ctx, "ex-1", workflow.ExecutionUpdate{
		Status: workflow.StatusSuccess, Output: map[string]any{"output": "late"}, CompletedAt: t0.Add(2 * time.Second),
	})
	if err != nil || ok {
		t.Fatalf("second UpdateExecution() = %v, %v, want false", ok, err)
	}

	got, err := repos.Executions.FindExecution(ctx, "ex-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != workflow.StatusCancelled || got.Output != nil || got.CompletedAt == nil {
		t.Errorf("execution = %+v", got)
	}
	if got.Input["q"] != "hi" {
		t.Errorf("Input = %v", got.Input)
	}
}

func TestExecutionRepository_NodeExecutionsInStartOrder(t *testing.T) {
	repos := open(t)
	ctx := context.Background()

	for i, id := range []string{"n-c", "n-a", "n-b"} {
		ne := &workflow.NodeExecution{ID: id, ExecutionID: "ex-1", NodeID: id, NodeType: "llm",
			Status: workflow.StatusRunning, Input: map[string]any{"i": i}, StartedAt: t0}
		if err := repos.Executions.CreateNodeExecution(ctx, ne); err != nil {
			t.Fatal(err)
		}
	}
	other := &workflow.NodeExecution{ID: "n-x", ExecutionID: "ex-2", NodeID: "x", NodeType: "start", Status: workflow.StatusRunning, StartedAt: t0}
	if err := repos.Executions.CreateNodeExecution(ctx, other); err != nil {
		t.Fatal(err)
	}

	ok, err := repos.Executions.UpdateNodeExecution(ctx, "n-a", workflow.NodeExecutionUpdate{
		Status: workflow.StatusSuccess, Output: map[string]any{"content": "x"}, CreditsUsed: 3, Duration: 40 * time.Millisecond, CompletedAt: t0,
	})
	if err != nil || !ok {
		t.Fatalf("UpdateNodeExecution() = %v, %v", ok, err)
	}
	if ok, _ := repos.Executions.UpdateNodeExecution(ctx, "n-a", workflow.NodeExecutionUpdate{Status: workflow.StatusFailed}); ok {
		t.Error("a finished node execution must not be updated again")
	}

	ok, err = repos.Executions.UpdateNodeExecution(ctx, "n-b", workflow.NodeExecutionUpdate{
		Status: workflow.StatusFailed, ErrorMessage: "provider down", CompletedAt: t0,
	})
	if err != nil || !ok {
		t.Fatalf("UpdateNodeExecution(failed, no output) = %v, %v", ok, err)
	}

	list, err := repos.Executions.ListNodeExecutions(ctx, "ex-1")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, ne := range list {
		ids = append(ids, ne.ID)
	}
	if !reflect.DeepEqual(ids, []string{"n-c", "n-a", "n-b"}) {
		t.Errorf("order = %v", ids)
	}
	if list[1].CreditsUsed != 3 || list[1].Duration != 40*time.Millisecond || list[1].Status != workflow.StatusSuccess {
		t.Errorf("updated node = %+v", list[1])
	}
	if out, _ := list[1].Output.(map[string]any); out["content"] != "x" {
		t.Errorf("output = %#v", list[1].Output)
	}
	if list[2].Status != workflow.StatusFailed || list[2].Output != nil || list[2].ErrorMessage != "provider down" {
		t.Errorf("failed node = %+v", list[2])
	}
}

func TestExecutionRepository_ListExecutions(t *testing.T) {
	repos := open(t)
	ctx := context.Background()

	for i, st := range []workflow.Status{workflow.StatusSuccess, workflow.StatusFailed, workflow.StatusSuccess} {
		exec := &workflow.Execution{ID: string(rune('a' + i)), WorkflowID: "wf-1", UserID: "u1", Status: st, StartedAt: t0.Add(time.Duration(i) * time.Minute)}
		if err := repos.Executions.CreateExecution(ctx, exec); err != nil {
			t.Fatal(err)
		}
	}
	foreign := &workflow.Execution{ID: "z", WorkflowID: "wf-9", UserID: "u2", Status: workflow.StatusFailed, StartedAt: t0}
	if err := repos.Executions.CreateExecution(ctx, foreign); err != nil {
		t.Fatal(err)
	}

	params := query.Parse(url.Values{"status": {"success"}}, repository.ExecutionListConfig)
	page, err := repos.Executions.ListExecutions(ctx, "u1", params)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 2 || page.Data[0].ID != "c" || page.Data[1].ID != "a" {
		t.Errorf("data = %+v", page.Data)
	}
	if page.Facets["status"]["failed"] != 1 || page.Facets["status"]["success"] != 2 {
		t.Errorf("facets = %v", page.Facets)
	}
}

func TestAccountRepository_Ledger(t *testing.T) {
	repos := open(t)
	ctx := context.Background()
	accounts := repos.Accounts

	if ok, _ := accounts.HasCredits(ctx, "u1", 1); ok {
		t.Error("a user without an account has no credits")
	}
	if err := accounts.AddCredits(ctx, "u1", 100, "grant", "", nil); err != nil {
		t.Fatal(err)
	}

	balance, err := accounts.ConsumeCredits(ctx, "u1", 30, workflow.LedgerModelRef, "wf-1", workflow.ReasonExecution)
	if err != nil || balance != 70 {
		t.Fatalf("ConsumeCredits() = %d, %v, want 70", balance, err)
	}

	_, err = accounts.ConsumeCredits(ctx, "u1", 71, workflow.LedgerModelRef, "wf-1", workflow.ReasonExecution)
	if appErr, ok := errors.AsAppError(err); !ok || appErr.Code != errors.ErrCodeInsufficientCredits {
		t.Fatalf("overdraw error = %v", err)
	}

	if err := accounts.AddCredits(ctx, "u1", 12, workflow.ReasonRefund, "wf-1", map[string]any{"execution_id": "ex-1"}); err != nil {
		t.Fatal(err)
	}
	if got, _ := accounts.Balance(ctx, "u1"); got != 82 {
		t.Errorf("Balance() = %d, want 82", got)
	}

	entries, err := accounts.Entries(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	var sum int64
	for _, e := range entries {
		sum += e.Amount
	}
	if len(entries) != 3 || sum != 82 {
		t.Errorf("entries = %d summing to %d, want 3 summing to 82", len(entries), sum)
	}
}

func TestAccountRepository_Roles(t *testing.T) {
	repos := open(t)
	ctx := context.Background()

	if role, err := repos.Accounts.UserRole(ctx, "u1"); role != "" || err != nil {
		t.Errorf("UserRole(unknown) = %q, %v", role, err)
	}
	if err := repos.Accounts.AddCredits(ctx, "u1", 5, "grant", "", nil); err != nil {
		t.Fatal(err)
	}
	if role, _ := repos.Accounts.UserRole(ctx, "u1"); role != repository.RoleUser {
		t.Errorf("default role = %q", role)
	}
	if err := repos.Accounts.SetRole(ctx, "u1", repository.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if role, _ := repos.Accounts.UserRole(ctx, "u1"); role != repository.RoleAdmin {
		t.Errorf("role = %q, want admin", role)
	}
	if b, _ := repos.Accounts.Balance(ctx, "u1"); b != 5 {
		t.Errorf("SetRole changed the balance to %d", b)
	}
}

func TestReservationRepository(t *testing.T) {
	repos := open(t)
	ctx := context.Background()
	store := repos.Reservations

	for i, id := range []string{"old", "older", "fresh"} {
		created := []time.Time{t0.Add(-10 * time.Minute), t0.Add(-20 * time.Minute), t0}[i]
		r := &workflow.Reservation{ID: id, UserID: "u1", WorkflowID: "wf-1", Amount: 10, Status: workflow.ReservationPending, CreatedAt: created}
		if err := store.CreateReservation(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.AttachExecution(ctx, "old", "ex-1"); err != nil {
		t.Fatal(err)
	}

	stale, err := store.ListStaleReservations(ctx, t0.Add(-time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 2 || stale[0].ID != "older" || stale[1].ExecutionID != "ex-1" {
		t.Fatalf("stale = %+v", stale)
	}

	ok, err := store.SettleReservation(ctx, "old", workflow.ReservationSettled, 4)
	if err != nil || !ok {
		t.Fatalf("SettleReservation() = %v, %v", ok, err)
	}
	if ok, _ := store.SettleReservation(ctx, "old", workflow.ReservationRecovered, 10); ok {
		t.Error("a reservation must be claimed only once")
	}
	got, _ := store.FindReservation(ctx, "old")
	if got.Status != workflow.ReservationSettled || got.Refunded != 4 || got.SettledAt == nil {
		t.Errorf("reservation = %+v", got)
	}

	stale, _ = store.ListStaleReservations(ctx, t0.Add(-time.Minute), 10)
	if len(stale) != 1 {
		t.Errorf("settled reservations must not be listed, got %d", len(stale))
	}

	// Reopening only undoes a claim of the named status.
	if err := store.ReopenReservation(ctx, "old", workflow.ReservationCompensated); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.FindReservation(ctx, "old"); got.Status != workflow.ReservationSettled {
		t.Errorf("status = %s, want settled kept", got.Status)
	}
	if err := store.ReopenReservation(ctx, "old", workflow.ReservationSettled); err != nil {
		t.Fatal(err)
	}
	got, _ = store.FindReservation(ctx, "old")
	if got.Status != workflow.ReservationPending || got.Refunded != 0 || got.SettledAt != nil {
		t.Errorf("reopened reservation = %+v", got)
	}
	if stale, _ = store.ListStaleReservations(ctx, t0.Add(-time.Minute), 10); len(stale) != 2 {
		t.Errorf("a reopened reservation should be stale again, got %d", len(stale))
	}
}

func TestKnowledgeRepository_Search(t *testing.T) {
	repos := open(t)
	ctx := context.Background()
	kb := repos.Knowledge

	docs := []struct{ user, collection, title, content string }{
		{"u1", "docs", "Refund policy", "Refunds are issued within 14 days."},
		{"u1", "docs", "Shipping", "Orders ship in two days. Refunds cover shipping."},
		{"u1", "faq", "Refund FAQ", "Ask support about your refund and shipping policy."},
		{"u2", "docs", "Refund policy", "Another tenant's refund policy."},
	}
	for _, d := range docs {
		if _, err := kb.AddDocument(ctx, d.user, d.collection, d.title, d.content); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := kb.Search(ctx, "u1", "docs", "refund policy", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].Title != "Refund policy" || hits[0].Score != 1 || hits[1].Score != 0.5 {
		t.Errorf("hits = %+v", hits)
	}

	all, _ := kb.Search(ctx, "u1", "", "refund shipping policy", 1)
	if len(all) != 1 || all[0].Title != "Refund FAQ" {
		t.Errorf("best across collections = %+v", all)
	}

	if none, _ := kb.Search(ctx, "u1", "docs", "a an", 5); len(none) != 0 {
		t.Errorf("short words should not match, got %+v", none)
	}
}
