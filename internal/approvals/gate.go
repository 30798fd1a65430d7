// Package approvals manages human-review requests for high-risk agent
// actions.
//
// The gate is advisory and non-blocking by design: creating an approval
// returns immediately with pending status, and the agent's own system
// prompt is responsible for not proceeding until a human has acted. The
// runtime never waits on a pending approval.
package approvals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/store"
)

// ErrAlreadyResolved is returned when resolving an approval twice.
var ErrAlreadyResolved = errors.New("approval already resolved")

// Gate creates, lists and resolves approval records.
type Gate struct {
	store store.ApprovalStore
}

// NewGate creates an approval gate over the given store.
func NewGate(s store.ApprovalStore) *Gate {
	return &Gate{store: s}
}

// RequiresApproval reports whether an action at the given risk level needs
// a human reviewer. Only high and critical qualify; low and medium actions
// proceed unchecked — risk classification is the caller's responsibility.
func RequiresApproval(riskLevel string) bool {
	return riskLevel == store.RiskHigh || riskLevel == store.RiskCritical
}

// Create records a new pending approval request.
func (g *Gate) Create(ctx context.Context, teamID, agentID uuid.UUID, actionType, actionDetail, riskLevel string) (*store.ApprovalData, error) {
	a := &store.ApprovalData{
		TeamID:       teamID,
		AgentID:      agentID,
		ActionType:   actionType,
		ActionDetail: actionDetail,
		RiskLevel:    riskLevel,
	}
	if err := g.store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create approval: %w", err)
	}
	slog.Info("approval requested",
		"id", a.ID, "agent", agentID, "action", actionType, "risk", riskLevel)
	return a, nil
}

// Resolve transitions a pending approval to approved or rejected. Unknown
// ids fail with store.ErrNotFound; a second resolution fails with
// ErrAlreadyResolved and leaves the first resolution timestamp intact.
func (g *Gate) Resolve(ctx context.Context, id uuid.UUID, approved bool) (*store.ApprovalData, error) {
	status := store.ApprovalRejected
	if approved {
		status = store.ApprovalApproved
	}

	existing, err := g.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != store.ApprovalPending {
		return existing, ErrAlreadyResolved
	}

	resolved, err := g.store.Resolve(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("resolve approval %s: %w", id, err)
	}
	slog.Info("approval resolved", "id", id, "status", resolved.Status)
	return resolved, nil
}

// ListPending returns pending approvals, optionally filtered by team
// and/or agent (uuid.Nil = no filter).
func (g *Gate) ListPending(ctx context.Context, teamID, agentID uuid.UUID) ([]store.ApprovalData, error) {
	return g.store.ListPending(ctx, teamID, agentID)
}

// CountPending returns the number of pending approvals for a team
// (uuid.Nil = all teams).
func (g *Gate) CountPending(ctx context.Context, teamID uuid.UUID) (int, error) {
	return g.store.CountPending(ctx, teamID)
}
