// Package agent runs one conversational turn: the model reasons and
// acts through tools until it produces a final response, bounded by an
// iteration cap. A well-formed turn always terminates with some text.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/activity"
	"github.com/nextlevelbuilder/crewd/internal/credits"
	"github.com/nextlevelbuilder/crewd/internal/models"
	"github.com/nextlevelbuilder/crewd/internal/providers"
	"github.com/nextlevelbuilder/crewd/internal/store"
	"github.com/nextlevelbuilder/crewd/internal/tools"
)

const (
	// DefaultMaxIterations bounds one turn's reason/act rounds.
	DefaultMaxIterations = 10
	// ToolTimeout bounds one tool execution. A timed-out tool yields an
	// error-text result; the underlying call may finish in the background.
	ToolTimeout = 30 * time.Second

	iterationLimitResponse = "unable to complete within iteration limit"
	resultPreviewLen       = 200
)

// ToolDispatcher is the dispatch boundary the loop calls through.
type ToolDispatcher interface {
	Execute(ctx context.Context, name, argsJSON string, cc tools.CallContext) *tools.Result
}

// RunRequest is one turn's input.
type RunRequest struct {
	AgentID      uuid.UUID
	TeamID       uuid.UUID
	UserMessage  string
	Backend      models.BackendConfig
	Fallback     *models.BackendConfig
	ModelID      string // logical model, used for per-iteration cost
	SystemPrompt string
	Tools        []providers.ToolDefinition

	// TxType distinguishes interactive turns from heartbeat ticks in the
	// credit ledger. Defaults to the interactive type.
	TxType        string
	CreditExempt  bool
	MaxIterations int
	Workspace     string
}

// ToolCallRecord is one executed tool call in a turn's log.
type ToolCallRecord struct {
	Name      string
	Arguments string
	Result    string
	IsError   bool
}

// RunResult is one turn's outcome.
type RunResult struct {
	Response   string
	Iterations int
	ToolCalls  []ToolCallRecord
}

// Loop drives the reason/act cycle for agents.
type Loop struct {
	completer  providers.Completer
	dispatcher ToolDispatcher
	messages   store.MessageStore
	meter      *credits.Meter
	audit      *activity.Logger
	toolWait   time.Duration
}

func NewLoop(completer providers.Completer, dispatcher ToolDispatcher, messages store.MessageStore, meter *credits.Meter, audit *activity.Logger) *Loop {
	return &Loop{
		completer:  completer,
		dispatcher: dispatcher,
		messages:   messages,
		meter:      meter,
		audit:      audit,
		toolWait:   ToolTimeout,
	}
}

// RunTurn executes one full turn. The returned response is always
// appended to history before returning, whichever path produced it.
func (l *Loop) RunTurn(ctx context.Context, req RunRequest) (*RunResult, error) {
	maxIter := req.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	txType := req.TxType
	if txType == "" {
		txType = credits.TxLLM
	}

	if err := l.append(ctx, req.AgentID, store.MessageData{Role: "user", Content: req.UserMessage}); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	convo, err := buildContext(ctx, l.messages, req.AgentID, req.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	result := &RunResult{}
	cc := tools.CallContext{
		TeamID:       req.TeamID,
		AgentID:      req.AgentID,
		Workspace:    req.Workspace,
		CreditExempt: req.CreditExempt,
	}

	for result.Iterations < maxIter {
		result.Iterations++

		if l.meter != nil && l.meter.Enabled() {
			cost := credits.ModelCost(req.ModelID, 1)
			dr, err := l.meter.Debit(ctx, req.TeamID, cost, txType, req.ModelID)
			if err != nil {
				return nil, fmt.Errorf("debit llm iteration: %w", err)
			}
			if !dr.OK {
				result.Response = fmt.Sprintf(
					"I had to stop: the team's credit balance (%d) cannot cover another model call.", dr.NewBalance)
				return result, l.finish(ctx, req.AgentID, result.Response)
			}
		}

		resp, err := providers.CompleteWithFallback(ctx, l.completer, req.Backend, req.Fallback, providers.ChatRequest{
			Model:    req.Backend.Model,
			Messages: convo,
			Tools:    req.Tools,
		})
		if err != nil {
			return nil, fmt.Errorf("model call: %w", err)
		}

		// No tool calls and text content: that text is the final response.
		if len(resp.ToolCalls) == 0 {
			if resp.Content == "" {
				continue
			}
			result.Response = resp.Content
			return result, l.finish(ctx, req.AgentID, result.Response)
		}

		assistantTurn := providers.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls}
		convo = append(convo, assistantTurn)
		if err := l.appendAssistant(ctx, req.AgentID, resp); err != nil {
			return nil, fmt.Errorf("append assistant turn: %w", err)
		}

		// Execute the whole batch in order; a respond call ends the turn
		// only after every call in the batch has run.
		finalResponse := ""
		for _, call := range resp.ToolCalls {
			if call.Function.Name == tools.RespondToolName {
				if msg := respondMessage(call.Function.Arguments); msg != "" {
					finalResponse = msg
				}
			}

			toolResult := l.executeBounded(ctx, call, cc)
			record := ToolCallRecord{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
				Result:    toolResult.Text,
				IsError:   toolResult.IsError,
			}
			result.ToolCalls = append(result.ToolCalls, record)

			if call.Function.Name != "think" {
				l.audit.Log(ctx, "tool_call", req.AgentID, call.Function.Name, map[string]any{
					"result":   truncatePreview(toolResult.Text),
					"is_error": toolResult.IsError,
				})
			}

			toolTurn := providers.Message{Role: "tool", Content: toolResult.Text, ToolCallID: call.ID}
			convo = append(convo, toolTurn)
			if err := l.append(ctx, req.AgentID, store.MessageData{
				Role: "tool", Content: toolResult.Text, ToolCallID: call.ID,
			}); err != nil {
				return nil, fmt.Errorf("append tool result: %w", err)
			}
		}

		if finalResponse != "" {
			result.Response = finalResponse
			return result, l.finish(ctx, req.AgentID, result.Response)
		}
	}

	result.Response = iterationLimitResponse
	return result, l.finish(ctx, req.AgentID, result.Response)
}

// executeBounded races one tool call against the timeout. On expiry the
// goroutine is abandoned; its side effects may still land.
func (l *Loop) executeBounded(ctx context.Context, call providers.ToolCall, cc tools.CallContext) *tools.Result {
	done := make(chan *tools.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- tools.ErrorResult(fmt.Sprintf("tool %s panicked: %v", call.Function.Name, r))
			}
		}()
		done <- l.dispatcher.Execute(ctx, call.Function.Name, call.Function.Arguments, cc)
	}()

	select {
	case res := <-done:
		return res
	case <-time.After(l.toolWait):
		slog.Warn("tool timed out", "tool", call.Function.Name, "agent", cc.AgentID, "timeout", l.toolWait)
		return tools.ErrorResult(fmt.Sprintf("tool %s timed out after %s", call.Function.Name, l.toolWait))
	case <-ctx.Done():
		return tools.ErrorResult(fmt.Sprintf("tool %s canceled: %v", call.Function.Name, ctx.Err()))
	}
}

func (l *Loop) append(ctx context.Context, agentID uuid.UUID, msg store.MessageData) error {
	msg.AgentID = agentID
	return l.messages.Append(ctx, &msg)
}

func (l *Loop) appendAssistant(ctx context.Context, agentID uuid.UUID, resp *providers.ChatResponse) error {
	raw, err := json.Marshal(resp.ToolCalls)
	if err != nil {
		return err
	}
	return l.append(ctx, agentID, store.MessageData{
		Role: "assistant", Content: resp.Content, ToolCalls: raw,
	})
}

func (l *Loop) finish(ctx context.Context, agentID uuid.UUID, response string) error {
	if err := l.append(ctx, agentID, store.MessageData{Role: "assistant", Content: response}); err != nil {
		return fmt.Errorf("append final response: %w", err)
	}
	return nil
}

func respondMessage(argsJSON string) string {
	var args struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return ""
	}
	return args.Message
}

func truncatePreview(s string) string {
	if len(s) <= resultPreviewLen {
		return s
	}
	return s[:resultPreviewLen] + "..."
}
