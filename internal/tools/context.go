package tools

import (
	"context"

	"github.com/google/uuid"
)

// Per-call values are injected into the context rather than stored on
// tool instances, keeping tools safe for concurrent execution.

type ctxKey int

const (
	ctxKeyTeamID ctxKey = iota
	ctxKeyAgentID
	ctxKeyWorkspace
	ctxKeyCreditExempt
)

// CallContext identifies the calling agent for one tool execution.
type CallContext struct {
	TeamID       uuid.UUID
	AgentID      uuid.UUID
	Workspace    string // team workspace root on disk
	CreditExempt bool   // skip per-call skill metering
}

// WithCallContext injects the per-call values into ctx.
func WithCallContext(ctx context.Context, cc CallContext) context.Context {
	ctx = context.WithValue(ctx, ctxKeyTeamID, cc.TeamID)
	ctx = context.WithValue(ctx, ctxKeyAgentID, cc.AgentID)
	ctx = context.WithValue(ctx, ctxKeyWorkspace, cc.Workspace)
	ctx = context.WithValue(ctx, ctxKeyCreditExempt, cc.CreditExempt)
	return ctx
}

// TeamIDFromCtx returns the calling team, or uuid.Nil.
func TeamIDFromCtx(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(ctxKeyTeamID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// AgentIDFromCtx returns the calling agent, or uuid.Nil.
func AgentIDFromCtx(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(ctxKeyAgentID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WorkspaceFromCtx returns the team workspace root, or "".
func WorkspaceFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyWorkspace).(string); ok {
		return v
	}
	return ""
}

// CreditExemptFromCtx reports whether the caller skips skill metering.
func CreditExemptFromCtx(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyCreditExempt).(bool)
	return v
}
