package agent

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"

	"github.com/nextlevelbuilder/crewd/internal/providers"
	"github.com/nextlevelbuilder/crewd/internal/store"
)

const (
	historyLimit       = 50
	historyTokenBudget = 24000
)

var (
	encOnce sync.Once
	encoder *tiktoken.Tiktoken
)

// countTokens measures a message's cost against the history budget.
// Falls back to a bytes/4 estimate if the encoding is unavailable.
func countTokens(text string) int {
	encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = enc
		}
	})
	if encoder == nil {
		return len(text)/4 + 1
	}
	return len(encoder.Encode(text, nil, nil))
}

// buildContext assembles the model context: system prompt first, then
// the most recent history that fits the token budget, in chronological
// order. Truncation always happens at read time; stored history is
// never mutated.
func buildContext(ctx context.Context, msgs store.MessageStore, agentID uuid.UUID, systemPrompt string) ([]providers.Message, error) {
	recent, err := msgs.Recent(ctx, agentID, historyLimit)
	if err != nil {
		return nil, err
	}

	// Walk backwards from the newest message, keeping turns until the
	// budget is spent, then reverse back into chronological order.
	budget := historyTokenBudget
	kept := make([]store.MessageData, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		cost := countTokens(recent[i].Content)
		if cost > budget && len(kept) > 0 {
			break
		}
		budget -= cost
		kept = append(kept, recent[i])
	}

	out := make([]providers.Message, 0, len(kept)+1)
	if systemPrompt != "" {
		out = append(out, providers.Message{Role: "system", Content: systemPrompt})
	}
	for i := len(kept) - 1; i >= 0; i-- {
		out = append(out, toProviderMessage(kept[i]))
	}
	return out, nil
}

func toProviderMessage(m store.MessageData) providers.Message {
	pm := providers.Message{
		Role:       m.Role,
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	if len(m.ToolCalls) > 0 {
		var calls []providers.ToolCall
		if err := json.Unmarshal(m.ToolCalls, &calls); err == nil {
			pm.ToolCalls = calls
		}
	}
	return pm
}
