package workflowtest

import (
	"context"
	"fmt"
	"sync"
)

// Entry is one ledger movement. Amount is negative for debits.
type Entry struct {
	UserID string
	Amount int64
	Reason string
	Ref    string
	Extra  map[string]any
}

// Ledger is an in-memory credit account per user.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int64
	entries  []Entry

	// FailAdd, when set, is returned by AddCredits.
	FailAdd error
}

// NewLedger creates a ledger with no accounts.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]int64)}
}

// SetBalance sets userID's balance.
func (l *Ledger) SetBalance(userID string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = amount
}

// Balance returns userID's balance.
func (l *Ledger) Balance(userID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID]
}

// Entries returns a copy of every movement.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// HasCredits implements workflow.Ledger.
func (l *Ledger) HasCredits(_ context.Context, userID string, amount int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID] >= amount, nil
}

// ConsumeCredits implements workflow.Ledger.
func (l *Ledger) ConsumeCredits(_ context.Context, userID string, amount int64, _, contextRef, reason string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[userID] < amount {
		return l.balances[userID], fmt.Errorf("insufficient balance for %s", userID)
	}
	l.balances[userID] -= amount
	l.entries = append(l.entries, Entry{UserID: userID, Amount: -amount, Reason: reason, Ref: contextRef})
	return l.balances[userID], nil
}

// AddCredits implements workflow.Ledger.
func (l *Ledger) AddCredits(_ context.Context, userID string, amount int64, reason, ref string, extra map[string]any) error {
	if l.FailAdd != nil {
		return l.FailAdd
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] += amount
	l.entries = append(l.entries, Entry{UserID: userID, Amount: amount, Reason: reason, Ref: ref, Extra: extra})
	return nil
}
