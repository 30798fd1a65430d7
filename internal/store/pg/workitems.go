package pg

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/store"
)

// TaskStore implements store.TaskStore backed by Postgres.
type TaskStore struct {
	db *sql.DB
}

func (s *TaskStore) Create(ctx context.Context, task *store.TaskData) error {
	if task.ID == uuid.Nil {
		task.ID = store.GenNewID()
	}
	if task.Status == "" {
		task.Status = "todo"
	}
	now := time.Now()
	task.CreatedAt, task.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, team_id, agent_id, title, description, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.ID, task.TeamID, task.AgentID, task.Title, task.Description, task.Status, now, now)
	return err
}

func (s *TaskStore) Get(ctx context.Context, id uuid.UUID) (*store.TaskData, error) {
	var t store.TaskData
	err := s.db.QueryRowContext(ctx,
		`SELECT id, team_id, agent_id, title, description, status, created_at, updated_at
		 FROM tasks WHERE id = $1`, id).
		Scan(&t.ID, &t.TeamID, &t.AgentID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TaskStore) Update(ctx context.Context, id uuid.UUID, title, description, status string) error {
	sets := []string{"updated_at = NOW()"}
	var args []any
	add := func(col, val string) {
		args = append(args, val)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if title != "" {
		add("title", title)
	}
	if description != "" {
		add("description", description)
	}
	if status != "" {
		add("status", status)
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *TaskStore) List(ctx context.Context, teamID uuid.UUID, status string) ([]store.TaskData, error) {
	q := `SELECT id, team_id, agent_id, title, description, status, created_at, updated_at
		 FROM tasks WHERE team_id = $1`
	args := []any{teamID}
	if status != "" {
		q += ` AND status = $2`
		args = append(args, status)
	}
	q += ` ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.TaskData
	for rows.Next() {
		var t store.TaskData
		if err := rows.Scan(&t.ID, &t.TeamID, &t.AgentID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ChatStore implements store.ChatStore backed by Postgres.
type ChatStore struct {
	db *sql.DB
}

func (s *ChatStore) Post(ctx context.Context, msg *store.ChatMessageData) error {
	if msg.ID == uuid.Nil {
		msg.ID = store.GenNewID()
	}
	msg.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, team_id, agent_id, channel, content, attachment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.TeamID, msg.AgentID, msg.Channel, msg.Content, msg.Attachment, msg.CreatedAt)
	return err
}

func (s *ChatStore) Recent(ctx context.Context, teamID uuid.UUID, channel string, limit int) ([]store.ChatMessageData, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, team_id, agent_id, channel, content, attachment, created_at
		 FROM chat_messages WHERE team_id = $1 AND ($2 = '' OR channel = $2)
		 ORDER BY created_at DESC LIMIT $3`, teamID, channel, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ChatMessageData
	for rows.Next() {
		var m store.ChatMessageData
		if err := rows.Scan(&m.ID, &m.TeamID, &m.AgentID, &m.Channel, &m.Content, &m.Attachment, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// TableStore implements store.TableStore backed by Postgres.
type TableStore struct {
	db *sql.DB
}

func (s *TableStore) Query(ctx context.Context, teamID uuid.UUID, table string, limit int) ([]store.TableRecordData, error) {
	// limit <= 0 means every row; record updates check team scope
	// against the full table.
	query := `SELECT id, team_id, table_name, fields, created_at, updated_at
		 FROM table_records WHERE team_id = $1 AND table_name = $2
		 ORDER BY created_at`
	args := []any{teamID, table}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.TableRecordData
	for rows.Next() {
		var r store.TableRecordData
		var fields []byte
		if err := rows.Scan(&r.ID, &r.TeamID, &r.Table, &fields, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Fields = fields
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *TableStore) Upsert(ctx context.Context, rec *store.TableRecordData) error {
	if rec.ID == uuid.Nil {
		rec.ID = store.GenNewID()
	}
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO table_records (id, team_id, table_name, fields, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (id) DO UPDATE SET fields = EXCLUDED.fields, updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.TeamID, rec.Table, []byte(rec.Fields), now)
	return err
}

// ActivityStore implements the append-only audit log backed by Postgres.
type ActivityStore struct {
	db *sql.DB
}

func (s *ActivityStore) Append(ctx context.Context, entry *store.ActivityData) error {
	if entry.ID == uuid.Nil {
		entry.ID = store.GenNewID()
	}
	entry.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, agent_id, event_type, description, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.AgentID, entry.EventType, entry.Description, jsonOrNull(entry.Details), entry.CreatedAt)
	return err
}

func (s *ActivityStore) Recent(ctx context.Context, agentID uuid.UUID, limit int) ([]store.ActivityData, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, event_type, description, details, created_at
		 FROM activity_log WHERE ($1 = '00000000-0000-0000-0000-000000000000'::uuid OR agent_id = $1)
		 ORDER BY created_at DESC LIMIT $2`, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ActivityData
	for rows.Next() {
		var e store.ActivityData
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.AgentID, &e.EventType, &e.Description, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if details.Valid {
			e.Details = []byte(details.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CredentialStore implements store.CredentialStore backed by Postgres.
type CredentialStore struct {
	db *sql.DB
}

func (s *CredentialStore) Get(ctx context.Context, teamID uuid.UUID, credentialID string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM skill_credentials WHERE team_id = $1 AND credential_id = $2`,
		teamID, credentialID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	return v, err
}

func (s *CredentialStore) Set(ctx context.Context, cred *store.SkillCredentialData) error {
	cred.UpdatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO skill_credentials (team_id, credential_id, value, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (team_id, credential_id) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		cred.TeamID, cred.CredentialID, cred.Value, cred.UpdatedAt)
	return err
}
