package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/store"
)

// MessageStore implements store.MessageStore backed by Postgres.
// The table is append-only; the runtime never updates or deletes rows.
type MessageStore struct {
	db *sql.DB
}

func (s *MessageStore) Append(ctx context.Context, msg *store.MessageData) error {
	if msg.ID == uuid.Nil {
		msg.ID = store.GenNewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_messages (id, agent_id, role, content, tool_calls, tool_call_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.AgentID, msg.Role, msg.Content, jsonOrNull(msg.ToolCalls), msg.ToolCallID, msg.CreatedAt,
	)
	return err
}

// Recent reads the last limit messages in reverse-chronological order and
// replays them chronologically for context reconstruction.
func (s *MessageStore) Recent(ctx context.Context, agentID uuid.UUID, limit int) ([]store.MessageData, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, role, content, tool_calls, tool_call_id, created_at
		 FROM agent_messages WHERE agent_id = $1
		 ORDER BY created_at DESC LIMIT $2`, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.MessageData
	for rows.Next() {
		var m store.MessageData
		var toolCalls sql.NullString
		if err := rows.Scan(&m.ID, &m.AgentID, &m.Role, &m.Content, &toolCalls, &m.ToolCallID, &m.CreatedAt); err != nil {
			return nil, err
		}
		if toolCalls.Valid {
			m.ToolCalls = []byte(toolCalls.String)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func jsonOrNull(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return data
}
