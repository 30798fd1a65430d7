// Package activity is the append-only audit log. Writes are best-effort:
// a failed append is logged and swallowed so auditing never breaks the
// action being audited.
package activity

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/store"
)

// Logger appends audit entries to the activity store.
type Logger struct {
	store store.ActivityStore
}

// NewLogger creates an activity logger. store may be nil, which disables
// auditing (used by tests).
func NewLogger(s store.ActivityStore) *Logger {
	return &Logger{store: s}
}

// Log appends one audit entry. details may be nil.
func (l *Logger) Log(ctx context.Context, eventType string, agentID uuid.UUID, description string, details any) {
	if l == nil || l.store == nil {
		return
	}
	var raw json.RawMessage
	if details != nil {
		if data, err := json.Marshal(details); err == nil {
			raw = data
		}
	}
	entry := &store.ActivityData{
		AgentID:     agentID,
		EventType:   eventType,
		Description: description,
		Details:     raw,
	}
	if err := l.store.Append(ctx, entry); err != nil {
		slog.Warn("activity log append failed", "event", eventType, "agent", agentID, "error", err)
	}
}
