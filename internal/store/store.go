// Package store defines the persistence interfaces and row types for the
// agent runtime. Two implementations exist: store/pg (Postgres, managed
// deployments) and store/mem (in-memory, standalone mode and tests).
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// AgentStore persists agent configurations.
type AgentStore interface {
	Create(ctx context.Context, agent *AgentData) error
	Get(ctx context.Context, id uuid.UUID) (*AgentData, error)
	List(ctx context.Context, teamID uuid.UUID) ([]AgentData, error)
	ListByStatus(ctx context.Context, status string) ([]AgentData, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MessageStore is the append-only conversation history for agents.
// Messages are never mutated or deleted; context-window truncation
// happens at read time.
type MessageStore interface {
	Append(ctx context.Context, msg *MessageData) error
	// Recent returns up to limit most-recent messages for the agent,
	// in chronological order.
	Recent(ctx context.Context, agentID uuid.UUID, limit int) ([]MessageData, error)
}

// ApprovalStore persists human-review requests.
type ApprovalStore interface {
	Create(ctx context.Context, a *ApprovalData) error
	Get(ctx context.Context, id uuid.UUID) (*ApprovalData, error)
	// Resolve sets status and resolved_at on a pending approval. It returns
	// ErrNotFound for unknown ids and the current row when already resolved.
	Resolve(ctx context.Context, id uuid.UUID, status string) (*ApprovalData, error)
	ListPending(ctx context.Context, teamID, agentID uuid.UUID) ([]ApprovalData, error)
	CountPending(ctx context.Context, teamID uuid.UUID) (int, error)
}

// CreditStore persists team balances and the append-only credit ledger.
// Debit must be atomic per team: the balance check, balance update and
// ledger append happen in one transaction.
type CreditStore interface {
	Balance(ctx context.Context, teamID uuid.UUID) (int64, error)
	// Debit subtracts amount from the team balance and appends a ledger row.
	// Returns ok=false without mutating anything when amount exceeds the
	// current balance.
	Debit(ctx context.Context, teamID uuid.UUID, amount int64, txType, description string) (ok bool, newBalance int64, err error)
	// Credit adds amount to the team balance and appends a ledger row.
	Credit(ctx context.Context, teamID uuid.UUID, amount int64, txType, description string) (int64, error)
	// Ledger returns the team's ledger entries, newest first. limit <= 0
	// returns every entry.
	Ledger(ctx context.Context, teamID uuid.UUID, limit int) ([]LedgerEntryData, error)
}

// TeamStore persists teams.
type TeamStore interface {
	Create(ctx context.Context, team *TeamData) error
	Get(ctx context.Context, id uuid.UUID) (*TeamData, error)
}

// TaskStore persists team-scoped tasks.
type TaskStore interface {
	Create(ctx context.Context, task *TaskData) error
	Get(ctx context.Context, id uuid.UUID) (*TaskData, error)
	Update(ctx context.Context, id uuid.UUID, title, description, status string) error
	List(ctx context.Context, teamID uuid.UUID, status string) ([]TaskData, error)
}

// ChatStore persists team chat messages.
type ChatStore interface {
	Post(ctx context.Context, msg *ChatMessageData) error
	Recent(ctx context.Context, teamID uuid.UUID, channel string, limit int) ([]ChatMessageData, error)
}

// TableStore persists structured table records.
type TableStore interface {
	// Query returns the team's records for a table in creation order.
	// limit <= 0 returns every record.
	Query(ctx context.Context, teamID uuid.UUID, table string, limit int) ([]TableRecordData, error)
	Upsert(ctx context.Context, rec *TableRecordData) error
}

// ActivityStore is the append-only audit log.
type ActivityStore interface {
	Append(ctx context.Context, entry *ActivityData) error
	Recent(ctx context.Context, agentID uuid.UUID, limit int) ([]ActivityData, error)
}

// CredentialStore holds per-team skill credentials.
type CredentialStore interface {
	Get(ctx context.Context, teamID uuid.UUID, credentialID string) (string, error)
	Set(ctx context.Context, cred *SkillCredentialData) error
}

// Store bundles all persistence interfaces behind one handle.
type Store struct {
	Agents      AgentStore
	Messages    MessageStore
	Approvals   ApprovalStore
	Credits     CreditStore
	Teams       TeamStore
	Tasks       TaskStore
	Chat        ChatStore
	Tables      TableStore
	Activity    ActivityStore
	Credentials CredentialStore
}
