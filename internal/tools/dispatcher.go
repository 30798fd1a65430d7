package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/crewd/internal/credits"
)

// BrowserExecutor runs browser-automation tools. Tool names use the
// browser_ prefix.
type BrowserExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) *Result
}

// MCPExecutor runs tools bridged from MCP servers. Bridged names follow
// the server__tool convention.
type MCPExecutor interface {
	Has(name string) bool
	Execute(ctx context.Context, name string, args map[string]any) *Result
}

const (
	browserPrefix = "browser_"
	mcpSeparator  = "__"
)

// Dispatcher routes a named tool call to built-ins, the browser executor,
// the MCP executor or the skill registry. It never returns an error:
// every failure becomes descriptive text so the model can self-correct.
type Dispatcher struct {
	registry *Registry
	skills   *SkillRegistry
	browser  BrowserExecutor // nil = browser tools unavailable
	mcp      MCPExecutor     // nil = MCP tools unavailable
	meter    *credits.Meter
	limiter  *RateLimiter
}

// NewDispatcher wires the dispatch chain. browser, mcp and limiter may be
// nil.
func NewDispatcher(registry *Registry, skills *SkillRegistry, browser BrowserExecutor, mcp MCPExecutor, meter *credits.Meter, limiter *RateLimiter) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		skills:   skills,
		browser:  browser,
		mcp:      mcp,
		meter:    meter,
		limiter:  limiter,
	}
}

// Execute runs one tool call. argsJSON is the model-supplied argument
// string; malformed JSON yields a descriptive error result, not a crash.
func (d *Dispatcher) Execute(ctx context.Context, name, argsJSON string, cc CallContext) *Result {
	ctx = WithCallContext(ctx, cc)

	if err := d.limiter.Allow(cc.AgentID.String()); err != nil {
		return ErrorResult(err.Error())
	}

	args := map[string]any{}
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return ErrorResult(fmt.Sprintf("tool %s: arguments are not valid JSON: %v", name, err))
		}
	}

	start := time.Now()
	result := d.dispatch(ctx, name, args, cc)
	slog.Debug("tool executed",
		"tool", name,
		"agent", cc.AgentID,
		"duration_ms", time.Since(start).Milliseconds(),
		"is_error", result.IsError,
	)
	return result
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, args map[string]any, cc CallContext) *Result {
	if tool, ok := d.registry.Get(name); ok {
		return tool.Execute(ctx, args)
	}

	// Resolve the non-built-in handler before any metering so that a
	// name matching nothing costs nothing.
	var run func(context.Context) *Result
	switch {
	case strings.HasPrefix(name, browserPrefix):
		if d.browser == nil {
			return ErrorResult("browser automation is not available")
		}
		run = func(ctx context.Context) *Result { return d.browser.Execute(ctx, name, args) }
	case strings.Contains(name, mcpSeparator) && d.mcp != nil && d.mcp.Has(name):
		run = func(ctx context.Context) *Result { return d.mcp.Execute(ctx, name, args) }
	case d.skills.Has(name):
		run = func(ctx context.Context) *Result { return d.skills.Invoke(ctx, name, args) }
	default:
		return ErrorResult("no handler registered for tool: " + name)
	}

	if d.meter != nil && d.meter.Enabled() && !cc.CreditExempt {
		cost := credits.SkillCost(name, 1)
		if cost > 0 {
			res, err := d.meter.Debit(ctx, cc.TeamID, cost, credits.TxSkill, name)
			if err != nil {
				return ErrorResult(fmt.Sprintf("charge tool %s: %v", name, err))
			}
			if !res.OK {
				return ErrorResult(fmt.Sprintf(
					"insufficient credits for %s: needs %d, balance is %d", name, cost, res.NewBalance))
			}
		}
	}

	return run(ctx)
}
