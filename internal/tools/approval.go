package tools

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/crewd/internal/approvals"
	"github.com/nextlevelbuilder/crewd/internal/store"
)

// RequestApprovalTool files a human-review request for a risky action.
// The tool returns immediately with pending status — it does not block.
// The agent's system prompt is responsible for waiting on the outcome
// before acting.
type RequestApprovalTool struct {
	Gate *approvals.Gate
}

func (t *RequestApprovalTool) Name() string { return "request_approval" }
func (t *RequestApprovalTool) Description() string {
	return "Request human approval for a risky action. Returns immediately with pending status; do not perform the action until it is approved."
}
func (t *RequestApprovalTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"action_type":   prop("string", "Short category of the action, e.g. send_payment"),
		"action_detail": prop("string", "What exactly will be done and why"),
		"risk_level":    prop("string", "One of: low, medium, high, critical"),
	}, "action_type", "action_detail", "risk_level")
}
func (t *RequestApprovalTool) Execute(ctx context.Context, args map[string]any) *Result {
	risk := argString(args, "risk_level")
	switch risk {
	case store.RiskLow, store.RiskMedium, store.RiskHigh, store.RiskCritical:
	default:
		return ErrorResult("risk_level must be one of: low, medium, high, critical")
	}

	// Low/medium risk never creates a record — those actions proceed
	// unchecked by design.
	if !approvals.RequiresApproval(risk) {
		return NewResult(fmt.Sprintf("risk level %s does not require approval; proceed", risk))
	}

	a, err := t.Gate.Create(ctx, TeamIDFromCtx(ctx), AgentIDFromCtx(ctx),
		argString(args, "action_type"), argString(args, "action_detail"), risk)
	if err != nil {
		return ErrorResult(fmt.Sprintf("request approval: %v", err))
	}
	return NewResult(fmt.Sprintf(
		"approval request %s created with status pending. Wait for a human decision before performing this action.", a.ID))
}
