package tools

import (
	"context"
	"fmt"
)

// argString extracts a string argument, tolerating absent keys.
func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// argInt extracts an integer argument from JSON numbers.
func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// ThinkTool is the reasoning marker. It lets the model lay out
// intermediate reasoning as a tool call without producing user output.
type ThinkTool struct{}

func (t *ThinkTool) Name() string        { return "think" }
func (t *ThinkTool) Description() string { return "Record a private reasoning step. Use this to plan before acting. The thought is not shown to anyone." }
func (t *ThinkTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"thought": prop("string", "The reasoning step"),
	}, "thought")
}
func (t *ThinkTool) Execute(_ context.Context, args map[string]any) *Result {
	if argString(args, "thought") == "" {
		return ErrorResult("think requires a thought argument")
	}
	return NewResult("noted")
}

// RespondTool emits the final response for the turn. The loop watches for
// this tool by name and captures its message argument.
type RespondTool struct{}

// RespondToolName is the designated final-response tool.
const RespondToolName = "respond"

func (t *RespondTool) Name() string        { return RespondToolName }
func (t *RespondTool) Description() string { return "Send your final response to the user and end the turn." }
func (t *RespondTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"message": prop("string", "The final response text"),
	}, "message")
}
func (t *RespondTool) Execute(_ context.Context, args map[string]any) *Result {
	msg := argString(args, "message")
	if msg == "" {
		return ErrorResult("respond requires a message argument")
	}
	return NewResult(fmt.Sprintf("response delivered (%d chars)", len(msg)))
}
