// Package pg implements the store interfaces backed by Postgres.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nextlevelbuilder/crewd/internal/store"
)

// OpenDB creates a database/sql connection to Postgres using the pgx driver.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	slog.Info("postgres connected", "dsn_len", len(dsn))
	return db, nil
}

// New opens a Postgres-backed store, bootstrapping the schema if needed.
func New(ctx context.Context, dsn string) (*store.Store, *sql.DB, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := bootstrapSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &store.Store{
		Agents:      &AgentStore{db: db},
		Messages:    &MessageStore{db: db},
		Approvals:   &ApprovalStore{db: db},
		Credits:     &CreditStore{db: db},
		Teams:       &TeamStore{db: db},
		Tasks:       &TaskStore{db: db},
		Chat:        &ChatStore{db: db},
		Tables:      &TableStore{db: db},
		Activity:    &ActivityStore{db: db},
		Credentials: &CredentialStore{db: db},
	}, db, nil
}
