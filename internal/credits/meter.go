// Package credits enforces the per-team credit balance. Every metered
// action (model call, skill invocation, media generation) debits the
// owning team before proceeding; each mutation appends a matching ledger
// row so the ledger deltas always sum to the current balance.
package credits

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/store"
)

// Transaction types recorded in the ledger.
const (
	TxHeartbeat = "heartbeat_debit"
	TxLLM       = "llm_debit"
	TxSkill     = "skill_debit"
	TxMedia     = "media_debit"
	TxTopup     = "topup"
)

// DebitResult reports the outcome of one debit attempt.
type DebitResult struct {
	OK         bool
	NewBalance int64
}

// Meter maintains per-team balances and atomically debits them.
type Meter struct {
	store   store.CreditStore
	enabled bool

	// Per-team locks serialize the balance-then-ledger sequence even when
	// the backing store has no transactional guarantee of its own.
	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

// NewMeter creates a credit meter. When enabled is false every debit
// succeeds without touching the store.
func NewMeter(cs store.CreditStore, enabled bool) *Meter {
	return &Meter{
		store:   cs,
		enabled: enabled,
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

// Enabled reports whether metering is active.
func (m *Meter) Enabled() bool { return m.enabled }

func (m *Meter) teamLock(teamID uuid.UUID) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	lock, ok := m.locks[teamID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[teamID] = lock
	}
	return lock
}

// Debit subtracts amount from the team's balance and appends a ledger
// entry. Insufficient balance returns OK=false without mutating anything.
func (m *Meter) Debit(ctx context.Context, teamID uuid.UUID, amount int64, txType, description string) (DebitResult, error) {
	if !m.enabled {
		return DebitResult{OK: true}, nil
	}
	if amount < 0 {
		return DebitResult{}, fmt.Errorf("debit amount must be non-negative, got %d", amount)
	}

	lock := m.teamLock(teamID)
	lock.Lock()
	defer lock.Unlock()

	ok, newBalance, err := m.store.Debit(ctx, teamID, amount, txType, description)
	if err != nil {
		return DebitResult{}, fmt.Errorf("debit team %s: %w", teamID, err)
	}
	if !ok {
		slog.Warn("credit debit rejected: insufficient balance",
			"team", teamID, "amount", amount, "balance", newBalance, "tx", txType)
	}
	return DebitResult{OK: ok, NewBalance: newBalance}, nil
}

// Topup adds credits to a team.
func (m *Meter) Topup(ctx context.Context, teamID uuid.UUID, amount int64, description string) (int64, error) {
	lock := m.teamLock(teamID)
	lock.Lock()
	defer lock.Unlock()
	return m.store.Credit(ctx, teamID, amount, TxTopup, description)
}

// Balance returns the team's current balance.
func (m *Meter) Balance(ctx context.Context, teamID uuid.UUID) (int64, error) {
	return m.store.Balance(ctx, teamID)
}

// Reconcile verifies the ledger invariant: the sum of all ledger deltas
// for a team equals its current balance.
func (m *Meter) Reconcile(ctx context.Context, teamID uuid.UUID) error {
	balance, err := m.store.Balance(ctx, teamID)
	if err != nil {
		return err
	}
	entries, err := m.store.Ledger(ctx, teamID, 0)
	if err != nil {
		return err
	}
	var sum int64
	for _, e := range entries {
		sum += e.Amount
	}
	if sum != balance {
		return fmt.Errorf("ledger diverged for team %s: deltas sum to %d, balance is %d", teamID, sum, balance)
	}
	return nil
}
