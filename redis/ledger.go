package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	apperrors "github.com/kbukum/flowengine/errors"
	"github.com/kbukum/flowengine/workflow"
)

// debitScript subtracts ARGV[1] from the balance at KEYS[1] only if it
// covers the amount, and appends the entry ARGV[2] to the list at KEYS[2].
// It returns {1, balance} on success and {0, balance} when refused.
var debitScript = goredis.NewScript(`
local balance = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
if balance < amount then
  return {0, balance}
end
local after = redis.call('DECRBY', KEYS[1], amount)
redis.call('RPUSH', KEYS[2], ARGV[2])
return {1, after}
`)

// creditScript adds ARGV[1] to KEYS[1] and appends ARGV[2] to KEYS[2].
var creditScript = goredis.NewScript(`
local after = redis.call('INCRBY', KEYS[1], ARGV[1])
redis.call('RPUSH', KEYS[2], ARGV[2])
return after
`)

// LedgerEntry is one balance movement as stored in the entry list.
type LedgerEntry struct {
	Amount     int64          `json:"amount"`
	Reason     string         `json:"reason"`
	ModelRef   string         `json:"model_ref,omitempty"`
	Ref        string         `json:"ref,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// Ledger keeps credit balances in Redis. Debits run as one Lua script, so
// the balance check and the decrement are atomic across every engine
// instance sharing the server. Roles live in a hash beside the balances.
type Ledger struct {
	client *Client
}

var (
	_ workflow.Ledger        = (*Ledger)(nil)
	_ workflow.UserDirectory = (*Ledger)(nil)
)

// NewLedger creates a Ledger on client.
func NewLedger(client *Client) *Ledger {
	return &Ledger{client: client}
}

func (l *Ledger) balanceKey(userID string) string { return l.client.Key("credits", "balance", userID) }
func (l *Ledger) entriesKey(userID string) string { return l.client.Key("credits", "entries", userID) }
func (l *Ledger) rolesKey() string                { return l.client.Key("users", "roles") }

// HasCredits reports whether userID's balance covers amount.
func (l *Ledger) HasCredits(ctx context.Context, userID string, amount int64) (bool, error) {
	balance, err := l.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// ConsumeCredits debits amount or fails with INSUFFICIENT_CREDITS.
func (l *Ledger) ConsumeCredits(ctx context.Context, userID string, amount int64, modelRef, contextRef, reason string) (int64, error) {
	entry, err := json.Marshal(LedgerEntry{
		Amount:     -amount,
		Reason:     reason,
		ModelRef:   modelRef,
		Ref:        contextRef,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		return 0, fmt.Errorf("encode ledger entry: %w", err)
	}

	res, err := debitScript.Run(ctx, l.client.rdb,
		[]string{l.balanceKey(userID), l.entriesKey(userID)}, amount, entry).Int64Slice()
	if err != nil {
		return 0, apperrors.ExternalServiceError("redis", err)
	}
	if len(res) != 2 {
		return 0, apperrors.Internal(fmt.Errorf("unexpected debit script reply %v", res))
	}
	if res[0] == 0 {
		return res[1], apperrors.InsufficientCredits(amount)
	}
	return res[1], nil
}

// AddCredits credits amount.
func (l *Ledger) AddCredits(ctx context.Context, userID string, amount int64, reason, ref string, extra map[string]any) error {
	entry, err := json.Marshal(LedgerEntry{
		Amount:     amount,
		Reason:     reason,
		ModelRef:   workflow.LedgerModelRef,
		Ref:        ref,
		Extra:      extra,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode ledger entry: %w", err)
	}
	err = creditScript.Run(ctx, l.client.rdb,
		[]string{l.balanceKey(userID), l.entriesKey(userID)}, amount, entry).Err()
	if err != nil {
		return apperrors.ExternalServiceError("redis", err)
	}
	return nil
}

// Balance returns userID's balance; zero when the user has none.
func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	balance, err := l.client.rdb.Get(ctx, l.balanceKey(userID)).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.ExternalServiceError("redis", err)
	}
	return balance, nil
}

// Entries returns userID's movements, oldest first.
func (l *Ledger) Entries(ctx context.Context, userID string) ([]LedgerEntry, error) {
	raw, err := l.client.rdb.LRange(ctx, l.entriesKey(userID), 0, -1).Result()
	if err != nil {
		return nil, apperrors.ExternalServiceError("redis", err)
	}
	out := make([]LedgerEntry, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal([]byte(r), &out[i]); err != nil {
			return nil, fmt.Errorf("decode ledger entry: %w", err)
		}
	}
	return out, nil
}

// UserRole returns userID's role, or "" when none is set.
func (l *Ledger) UserRole(ctx context.Context, userID string) (string, error) {
	role, err := l.client.rdb.HGet(ctx, l.rolesKey(), userID).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", apperrors.ExternalServiceError("redis", err)
	}
	return role, nil
}

// SetRole assigns role to userID.
func (l *Ledger) SetRole(ctx context.Context, userID, role string) error {
	if err := l.client.rdb.HSet(ctx, l.rolesKey(), userID, role).Err(); err != nil {
		return apperrors.ExternalServiceError("redis", err)
	}
	return nil
}
