package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/store"
)

// ApprovalStore implements store.ApprovalStore backed by Postgres.
type ApprovalStore struct {
	db *sql.DB
}

const approvalSelectCols = `id, team_id, agent_id, action_type, action_detail,
	 risk_level, status, created_at, resolved_at`

func (s *ApprovalStore) Create(ctx context.Context, a *store.ApprovalData) error {
	if a.ID == uuid.Nil {
		a.ID = store.GenNewID()
	}
	a.Status = store.ApprovalPending
	a.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO approvals (id, team_id, agent_id, action_type, action_detail, risk_level, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.TeamID, a.AgentID, a.ActionType, a.ActionDetail, a.RiskLevel, a.Status, a.CreatedAt,
	)
	return err
}

func (s *ApprovalStore) Get(ctx context.Context, id uuid.UUID) (*store.ApprovalData, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+approvalSelectCols+` FROM approvals WHERE id = $1`, id)
	a, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return a, err
}

// Resolve updates only a pending row; resolving twice leaves the first
// resolution (and its timestamp) intact and returns the current row.
func (s *ApprovalStore) Resolve(ctx context.Context, id uuid.UUID, status string) (*store.ApprovalData, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE approvals SET status = $1, resolved_at = NOW()
		 WHERE id = $2 AND status = 'pending'`, status, id)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *ApprovalStore) ListPending(ctx context.Context, teamID, agentID uuid.UUID) ([]store.ApprovalData, error) {
	q := `SELECT ` + approvalSelectCols + ` FROM approvals WHERE status = 'pending'`
	var args []any
	if teamID != uuid.Nil {
		args = append(args, teamID)
		q += ` AND team_id = $1`
	}
	if agentID != uuid.Nil {
		args = append(args, agentID)
		if len(args) == 1 {
			q += ` AND agent_id = $1`
		} else {
			q += ` AND agent_id = $2`
		}
	}
	q += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ApprovalData
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *ApprovalStore) CountPending(ctx context.Context, teamID uuid.UUID) (int, error) {
	var n int
	var err error
	if teamID == uuid.Nil {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM approvals WHERE status = 'pending'`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM approvals WHERE status = 'pending' AND team_id = $1`, teamID).Scan(&n)
	}
	return n, err
}

func scanApproval(row rowScanner) (*store.ApprovalData, error) {
	var a store.ApprovalData
	var resolvedAt sql.NullTime
	err := row.Scan(&a.ID, &a.TeamID, &a.AgentID, &a.ActionType, &a.ActionDetail,
		&a.RiskLevel, &a.Status, &a.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		a.ResolvedAt = &resolvedAt.Time
	}
	return &a, nil
}
