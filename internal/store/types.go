package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GenNewID generates a new UUID v7 (time-ordered).
func GenNewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Agent status values. A heartbeat timer exists iff status is "running".
const (
	AgentRunning = "running"
	AgentPaused  = "paused"
	AgentStopped = "stopped"
	AgentError   = "error"
)

// AgentData is the persistent configuration and live status of one agent.
type AgentData struct {
	ID               uuid.UUID `json:"id"`
	TeamID           uuid.UUID `json:"team_id"`
	DisplayName      string    `json:"display_name"`
	Status           string    `json:"status"`
	Proactive        bool      `json:"proactive"`
	HeartbeatSeconds int       `json:"heartbeat_seconds"`
	HeartbeatCron    string    `json:"heartbeat_cron,omitempty"`
	ActiveHoursStart int       `json:"active_hours_start"`
	ActiveHoursEnd   int       `json:"active_hours_end"`
	Model            string    `json:"model"`
	SystemPrompt     string    `json:"system_prompt"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TeamData owns agents, credits and workspace data.
type TeamData struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageData is one turn in an agent's append-only conversation history.
type MessageData struct {
	ID         uuid.UUID       `json:"id"`
	AgentID    uuid.UUID       `json:"agent_id"`
	Role       string          `json:"role"` // system, user, assistant, tool
	Content    string          `json:"content"`
	ToolCalls  json.RawMessage `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Approval risk levels and statuses.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"

	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// ApprovalData is a human-review request created for high-risk actions.
type ApprovalData struct {
	ID           uuid.UUID  `json:"id"`
	TeamID       uuid.UUID  `json:"team_id"`
	AgentID      uuid.UUID  `json:"agent_id"`
	ActionType   string     `json:"action_type"`
	ActionDetail string     `json:"action_detail"`
	RiskLevel    string     `json:"risk_level"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// LedgerEntryData is an immutable record of one balance change.
type LedgerEntryData struct {
	ID           uuid.UUID `json:"id"`
	TeamID       uuid.UUID `json:"team_id"`
	Amount       int64     `json:"amount"` // signed: debits negative, topups positive
	BalanceAfter int64     `json:"balance_after"`
	TxType       string    `json:"tx_type"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

// TaskData is a team-scoped work item mutated by the task built-ins.
type TaskData struct {
	ID          uuid.UUID `json:"id"`
	TeamID      uuid.UUID `json:"team_id"`
	AgentID     uuid.UUID `json:"agent_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"` // todo, in_progress, done
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChatMessageData is a message posted to a team channel by an agent.
type ChatMessageData struct {
	ID         uuid.UUID `json:"id"`
	TeamID     uuid.UUID `json:"team_id"`
	AgentID    uuid.UUID `json:"agent_id"`
	Channel    string    `json:"channel"`
	Content    string    `json:"content"`
	Attachment string    `json:"attachment,omitempty"` // workspace-relative media path
	CreatedAt  time.Time `json:"created_at"`
}

// TableRecordData is one row of a team's structured table.
type TableRecordData struct {
	ID        uuid.UUID       `json:"id"`
	TeamID    uuid.UUID       `json:"team_id"`
	Table     string          `json:"table"`
	Fields    json.RawMessage `json:"fields"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ActivityData is one append-only audit log entry.
type ActivityData struct {
	ID          uuid.UUID       `json:"id"`
	AgentID     uuid.UUID       `json:"agent_id"`
	EventType   string          `json:"event_type"`
	Description string          `json:"description"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SkillCredentialData is a per-team stored credential for a skill integration.
type SkillCredentialData struct {
	TeamID       uuid.UUID `json:"team_id"`
	CredentialID string    `json:"credential_id"`
	Value        string    `json:"value"`
	UpdatedAt    time.Time `json:"updated_at"`
}
