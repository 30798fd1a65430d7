// Package mem provides an in-memory store implementation used in
// standalone mode and by tests. All methods are safe for concurrent use.
package mem

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/store"
)

// New returns a fully wired in-memory store.
func New() *store.Store {
	s := &state{
		agents:   make(map[uuid.UUID]store.AgentData),
		teams:    make(map[uuid.UUID]store.TeamData),
		tasks:    make(map[uuid.UUID]store.TaskData),
		approval: make(map[uuid.UUID]store.ApprovalData),
		creds:    make(map[string]string),
	}
	return &store.Store{
		Agents:      (*agentStore)(s),
		Messages:    (*messageStore)(s),
		Approvals:   (*approvalStore)(s),
		Credits:     (*creditStore)(s),
		Teams:       (*teamStore)(s),
		Tasks:       (*taskStore)(s),
		Chat:        (*chatStore)(s),
		Tables:      (*tableStore)(s),
		Activity:    (*activityStore)(s),
		Credentials: (*credentialStore)(s),
	}
}

type state struct {
	mu       sync.Mutex
	agents   map[uuid.UUID]store.AgentData
	teams    map[uuid.UUID]store.TeamData
	messages []store.MessageData
	approval map[uuid.UUID]store.ApprovalData
	ledger   []store.LedgerEntryData
	tasks    map[uuid.UUID]store.TaskData
	chat     []store.ChatMessageData
	tables   []store.TableRecordData
	activity []store.ActivityData
	creds    map[string]string
}

// --- Agents ---

type agentStore state

func (s *agentStore) Create(_ context.Context, a *store.AgentData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = store.GenNewID()
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.agents[a.ID] = *a
	return nil
}

func (s *agentStore) Get(_ context.Context, id uuid.UUID) (*store.AgentData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *agentStore) List(_ context.Context, teamID uuid.UUID) ([]store.AgentData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.AgentData
	for _, a := range s.agents {
		if teamID == uuid.Nil || a.TeamID == teamID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *agentStore) ListByStatus(_ context.Context, status string) ([]store.AgentData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.AgentData
	for _, a := range s.agents {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *agentStore) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	s.agents[id] = a
	return nil
}

func (s *agentStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.agents, id)
	return nil
}

// --- Messages ---

type messageStore state

func (s *messageStore) Append(_ context.Context, msg *store.MessageData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = store.GenNewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *messageStore) Recent(_ context.Context, agentID uuid.UUID, limit int) ([]store.MessageData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.MessageData
	for _, m := range s.messages {
		if m.AgentID == agentID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// --- Approvals ---

type approvalStore state

func (s *approvalStore) Create(_ context.Context, a *store.ApprovalData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = store.GenNewID()
	}
	a.Status = store.ApprovalPending
	a.CreatedAt = time.Now()
	s.approval[a.ID] = *a
	return nil
}

func (s *approvalStore) Get(_ context.Context, id uuid.UUID) (*store.ApprovalData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.approval[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *approvalStore) Resolve(_ context.Context, id uuid.UUID, status string) (*store.ApprovalData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.approval[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if a.Status == store.ApprovalPending {
		now := time.Now()
		a.Status = status
		a.ResolvedAt = &now
		s.approval[id] = a
	}
	return &a, nil
}

func (s *approvalStore) ListPending(_ context.Context, teamID, agentID uuid.UUID) ([]store.ApprovalData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.ApprovalData
	for _, a := range s.approval {
		if a.Status != store.ApprovalPending {
			continue
		}
		if teamID != uuid.Nil && a.TeamID != teamID {
			continue
		}
		if agentID != uuid.Nil && a.AgentID != agentID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *approvalStore) CountPending(ctx context.Context, teamID uuid.UUID) (int, error) {
	pending, err := s.ListPending(ctx, teamID, uuid.Nil)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// --- Credits ---

type creditStore state

func (s *creditStore) Balance(_ context.Context, teamID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return 0, store.ErrNotFound
	}
	return t.Balance, nil
}

func (s *creditStore) Debit(_ context.Context, teamID uuid.UUID, amount int64, txType, description string) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return false, 0, store.ErrNotFound
	}
	if amount > t.Balance {
		return false, t.Balance, nil
	}
	t.Balance -= amount
	s.teams[teamID] = t
	s.ledger = append(s.ledger, store.LedgerEntryData{
		ID: store.GenNewID(), TeamID: teamID, Amount: -amount,
		BalanceAfter: t.Balance, TxType: txType, Description: description,
		CreatedAt: time.Now(),
	})
	return true, t.Balance, nil
}

func (s *creditStore) Credit(_ context.Context, teamID uuid.UUID, amount int64, txType, description string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return 0, store.ErrNotFound
	}
	t.Balance += amount
	s.teams[teamID] = t
	s.ledger = append(s.ledger, store.LedgerEntryData{
		ID: store.GenNewID(), TeamID: teamID, Amount: amount,
		BalanceAfter: t.Balance, TxType: txType, Description: description,
		CreatedAt: time.Now(),
	})
	return t.Balance, nil
}

func (s *creditStore) Ledger(_ context.Context, teamID uuid.UUID, limit int) ([]store.LedgerEntryData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.LedgerEntryData
	for _, e := range s.ledger {
		if e.TeamID == teamID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// --- Teams ---

type teamStore state

func (s *teamStore) Create(_ context.Context, t *store.TeamData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = store.GenNewID()
	}
	t.CreatedAt = time.Now()
	s.teams[t.ID] = *t
	return nil
}

func (s *teamStore) Get(_ context.Context, id uuid.UUID) (*store.TeamData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

// --- Tasks ---

type taskStore state

func (s *taskStore) Create(_ context.Context, task *store.TaskData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == uuid.Nil {
		task.ID = store.GenNewID()
	}
	now := time.Now()
	task.CreatedAt, task.UpdatedAt = now, now
	if task.Status == "" {
		task.Status = "todo"
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *taskStore) Get(_ context.Context, id uuid.UUID) (*store.TaskData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *taskStore) Update(_ context.Context, id uuid.UUID, title, description, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	if title != "" {
		t.Title = title
	}
	if description != "" {
		t.Description = description
	}
	if status != "" {
		t.Status = status
	}
	t.UpdatedAt = time.Now()
	s.tasks[id] = t
	return nil
}

func (s *taskStore) List(_ context.Context, teamID uuid.UUID, status string) ([]store.TaskData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.TaskData
	for _, t := range s.tasks {
		if t.TeamID != teamID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- Chat ---

type chatStore state

func (s *chatStore) Post(_ context.Context, msg *store.ChatMessageData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = store.GenNewID()
	}
	msg.CreatedAt = time.Now()
	s.chat = append(s.chat, *msg)
	return nil
}

func (s *chatStore) Recent(_ context.Context, teamID uuid.UUID, channel string, limit int) ([]store.ChatMessageData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.ChatMessageData
	for _, m := range s.chat {
		if m.TeamID == teamID && (channel == "" || m.Channel == channel) {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// --- Tables ---

type tableStore state

func (s *tableStore) Query(_ context.Context, teamID uuid.UUID, table string, limit int) ([]store.TableRecordData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.TableRecordData
	for _, r := range s.tables {
		if r.TeamID == teamID && strings.EqualFold(r.Table, table) {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *tableStore) Upsert(_ context.Context, rec *store.TableRecordData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for i, r := range s.tables {
		if r.ID == rec.ID {
			rec.CreatedAt = r.CreatedAt
			rec.UpdatedAt = now
			s.tables[i] = *rec
			return nil
		}
	}
	if rec.ID == uuid.Nil {
		rec.ID = store.GenNewID()
	}
	rec.CreatedAt, rec.UpdatedAt = now, now
	s.tables = append(s.tables, *rec)
	return nil
}

// --- Activity ---

type activityStore state

func (s *activityStore) Append(_ context.Context, entry *store.ActivityData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = store.GenNewID()
	}
	entry.CreatedAt = time.Now()
	s.activity = append(s.activity, *entry)
	return nil
}

func (s *activityStore) Recent(_ context.Context, agentID uuid.UUID, limit int) ([]store.ActivityData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.ActivityData
	for _, e := range s.activity {
		if agentID == uuid.Nil || e.AgentID == agentID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// --- Credentials ---

type credentialStore state

func (s *credentialStore) Get(_ context.Context, teamID uuid.UUID, credentialID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.creds[teamID.String()+"/"+credentialID]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (s *credentialStore) Set(_ context.Context, cred *store.SkillCredentialData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.TeamID.String()+"/"+cred.CredentialID] = cred.Value
	return nil
}
