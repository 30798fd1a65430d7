package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/store"
)

// CreditStore implements store.CreditStore backed by Postgres.
// Debit and Credit serialize per team via SELECT ... FOR UPDATE so the
// balance check, balance update and ledger append never interleave across
// concurrent calls for the same team.
type CreditStore struct {
	db *sql.DB
}

func (s *CreditStore) Balance(ctx context.Context, teamID uuid.UUID) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM teams WHERE id = $1`, teamID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	return balance, err
}

func (s *CreditStore) Debit(ctx context.Context, teamID uuid.UUID, amount int64, txType, description string) (bool, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin debit tx: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM teams WHERE id = $1 FOR UPDATE`, teamID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, store.ErrNotFound
	}
	if err != nil {
		return false, 0, err
	}

	if amount > balance {
		// Insufficient funds: no mutation, no ledger row.
		return false, balance, nil
	}

	newBalance := balance - amount
	if err := applyLedger(ctx, tx, teamID, -amount, newBalance, txType, description); err != nil {
		return false, 0, err
	}
	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit debit: %w", err)
	}
	return true, newBalance, nil
}

func (s *CreditStore) Credit(ctx context.Context, teamID uuid.UUID, amount int64, txType, description string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin credit tx: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM teams WHERE id = $1 FOR UPDATE`, teamID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	newBalance := balance + amount
	if err := applyLedger(ctx, tx, teamID, amount, newBalance, txType, description); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit credit: %w", err)
	}
	return newBalance, nil
}

// applyLedger writes the new balance and appends the matching ledger row
// inside the caller's transaction.
func applyLedger(ctx context.Context, tx *sql.Tx, teamID uuid.UUID, delta, newBalance int64, txType, description string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE teams SET balance = $1 WHERE id = $2`, newBalance, teamID); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO credit_ledger (id, team_id, amount, balance_after, tx_type, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		store.GenNewID(), teamID, delta, newBalance, txType, description, time.Now()); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

func (s *CreditStore) Ledger(ctx context.Context, teamID uuid.UUID, limit int) ([]store.LedgerEntryData, error) {
	// limit <= 0 means the whole ledger; reconciliation sums every row.
	query := `SELECT id, team_id, amount, balance_after, tx_type, description, created_at
		 FROM credit_ledger WHERE team_id = $1 ORDER BY created_at DESC`
	args := []any{teamID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.LedgerEntryData
	for rows.Next() {
		var e store.LedgerEntryData
		if err := rows.Scan(&e.ID, &e.TeamID, &e.Amount, &e.BalanceAfter, &e.TxType, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TeamStore implements store.TeamStore backed by Postgres.
type TeamStore struct {
	db *sql.DB
}

func (s *TeamStore) Create(ctx context.Context, team *store.TeamData) error {
	if team.ID == uuid.Nil {
		team.ID = store.GenNewID()
	}
	team.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teams (id, name, balance, created_at) VALUES ($1, $2, $3, $4)`,
		team.ID, team.Name, team.Balance, team.CreatedAt)
	return err
}

func (s *TeamStore) Get(ctx context.Context, id uuid.UUID) (*store.TeamData, error) {
	var t store.TeamData
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, balance, created_at FROM teams WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Balance, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
