// Package memory is the long-term knowledge base behind the remember and
// search_knowledge tools. Entries are stored per agent in SQLite with an
// FTS5 index and searched with BM25 ranking.
package memory

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"database/sql"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one remembered fact.
type Entry struct {
	ID        string
	AgentID   string
	Text      string
	CreatedAt time.Time
}

// SearchResult is one search hit with its relevance score.
type SearchResult struct {
	Entry
	Score float64
}

// Store persists knowledge entries with full-text search.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the knowledge base at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("knowledge store opened", "path", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_agent ON entries(agent_id)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			text,
			id UNINDEXED,
			agent_id UNINDEXED,
			tokenize='porter unicode61'
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}

// Write stores one knowledge entry for an agent.
func (s *Store) Write(agentID, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO entries (id, agent_id, text) VALUES (?, ?, ?)`,
		id, agentID, text); err != nil {
		return "", fmt.Errorf("insert entry: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO entries_fts (text, id, agent_id) VALUES (?, ?, ?)`,
		text, id, agentID); err != nil {
		return "", fmt.Errorf("insert fts: %w", err)
	}
	return id, tx.Commit()
}

// Search runs a full-text query over one agent's entries, ranked by BM25.
// The rank is normalized to a [0,1] score with 1/(1+abs(rank)).
func (s *Store) Search(agentID, query string, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 6
	}

	rows, err := s.db.Query(
		`SELECT id, agent_id, text, 1.0 / (1.0 + abs(rank)) AS score
		 FROM entries_fts
		 WHERE entries_fts MATCH ? AND agent_id = ?
		 ORDER BY rank LIMIT ?`, query, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.AgentID, &r.Text, &r.Score); err != nil {
			continue
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
