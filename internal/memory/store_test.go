package memory

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteAndSearch(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Write("agent-1", "the deploy pipeline runs every friday afternoon"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := s.Write("agent-1", "the customer prefers concise weekly summaries"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	results, err := s.Search("agent-1", "deploy pipeline", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Search() returned no results for an indexed phrase")
	}
	if got := results[0].Text; got != "the deploy pipeline runs every friday afternoon" {
		t.Errorf("top result = %q, want the deploy entry", got)
	}
}

func TestSearchIsScopedPerAgent(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Write("agent-1", "sprint review is on monday"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	results, err := s.Search("agent-2", "sprint review", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("agent-2 sees agent-1 memories: %d results", len(results))
	}
}

func TestSearchEmptyStore(t *testing.T) {
	s := openTestStore(t)
	results, err := s.Search("agent-1", "anything", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
}
