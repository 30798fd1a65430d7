// Package tools implements the tool catalog and dispatcher for the agent
// runtime: built-in tools, the pluggable skill-handler registry, and
// delegation to the browser-automation and MCP executors.
package tools

import (
	"context"

	"github.com/nextlevelbuilder/crewd/internal/providers"
)

// Tool is the interface all built-in tools implement.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) *Result
}

// ToProviderDef converts a Tool to a provider tool definition for LLM APIs.
func ToProviderDef(t Tool) providers.ToolDefinition {
	return providers.ToolDefinition{
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

// objectSchema builds a JSON Schema object with the given properties.
func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}
