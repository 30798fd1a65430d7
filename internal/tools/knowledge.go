package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/crewd/internal/memory"
)

// RememberTool writes a fact to the agent's long-term memory.
type RememberTool struct {
	Memory *memory.Store
}

func (t *RememberTool) Name() string        { return "remember" }
func (t *RememberTool) Description() string { return "Store a fact in long-term memory for later retrieval." }
func (t *RememberTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"text": prop("string", "The fact to remember"),
	}, "text")
}
func (t *RememberTool) Execute(ctx context.Context, args map[string]any) *Result {
	text := strings.TrimSpace(argString(args, "text"))
	if text == "" {
		return ErrorResult("remember requires text")
	}
	id, err := t.Memory.Write(AgentIDFromCtx(ctx).String(), text)
	if err != nil {
		return ErrorResult(fmt.Sprintf("remember: %v", err))
	}
	return NewResult("remembered (" + id + ")")
}

// SearchKnowledgeTool searches the agent's long-term memory.
type SearchKnowledgeTool struct {
	Memory *memory.Store
}

func (t *SearchKnowledgeTool) Name() string        { return "search_knowledge" }
func (t *SearchKnowledgeTool) Description() string { return "Search long-term memory and the knowledge base." }
func (t *SearchKnowledgeTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"query": prop("string", "Search query"),
		"limit": prop("integer", "Max results (default 6)"),
	}, "query")
}
func (t *SearchKnowledgeTool) Execute(ctx context.Context, args map[string]any) *Result {
	query := strings.TrimSpace(argString(args, "query"))
	if query == "" {
		return ErrorResult("search_knowledge requires a query")
	}
	results, err := t.Memory.Search(AgentIDFromCtx(ctx).String(), query, argInt(args, "limit", 6))
	if err != nil {
		return ErrorResult(fmt.Sprintf("search knowledge: %v", err))
	}
	if len(results) == 0 {
		return NewResult("no matching knowledge found")
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- (%.2f) %s\n", r.Score, r.Text)
	}
	return NewResult(strings.TrimRight(b.String(), "\n"))
}
