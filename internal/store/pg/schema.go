package pg

import (
	"context"
	"database/sql"
	"fmt"
)

// bootstrapSchema creates the tables on first start. Statements are
// idempotent so re-running on every boot is safe.
func bootstrapSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS teams (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS agents (
			id UUID PRIMARY KEY,
			team_id UUID NOT NULL REFERENCES teams(id),
			display_name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'stopped',
			proactive BOOLEAN NOT NULL DEFAULT FALSE,
			heartbeat_seconds INT NOT NULL DEFAULT 1800,
			heartbeat_cron TEXT NOT NULL DEFAULT '',
			active_hours_start INT NOT NULL DEFAULT 0,
			active_hours_end INT NOT NULL DEFAULT 24,
			model TEXT NOT NULL,
			system_prompt TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS agent_messages (
			id UUID PRIMARY KEY,
			agent_id UUID NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tool_calls JSONB,
			tool_call_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_messages_agent
			ON agent_messages(agent_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS approvals (
			id UUID PRIMARY KEY,
			team_id UUID NOT NULL,
			agent_id UUID NOT NULL,
			action_type TEXT NOT NULL,
			action_detail TEXT NOT NULL,
			risk_level TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL,
			resolved_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_approvals_pending
			ON approvals(team_id, status)`,
		`CREATE TABLE IF NOT EXISTS credit_ledger (
			id UUID PRIMARY KEY,
			team_id UUID NOT NULL,
			amount BIGINT NOT NULL,
			balance_after BIGINT NOT NULL,
			tx_type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_credit_ledger_team
			ON credit_ledger(team_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY,
			team_id UUID NOT NULL,
			agent_id UUID NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'todo',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id UUID PRIMARY KEY,
			team_id UUID NOT NULL,
			agent_id UUID NOT NULL,
			channel TEXT NOT NULL,
			content TEXT NOT NULL,
			attachment TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS table_records (
			id UUID PRIMARY KEY,
			team_id UUID NOT NULL,
			table_name TEXT NOT NULL,
			fields JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_table_records_team
			ON table_records(team_id, table_name)`,
		`CREATE TABLE IF NOT EXISTS activity_log (
			id UUID PRIMARY KEY,
			agent_id UUID NOT NULL,
			event_type TEXT NOT NULL,
			description TEXT NOT NULL,
			details JSONB,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS skill_credentials (
			team_id UUID NOT NULL,
			credential_id TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (team_id, credential_id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}
