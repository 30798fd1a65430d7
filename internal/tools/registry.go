package tools

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/nextlevelbuilder/crewd/internal/providers"
)

// Reserved built-in tool names. Externally supplied definitions (skills,
// MCP, browser) may not shadow these; collisions are rejected at
// registration time, not at call time.
var reservedNames = map[string]struct{}{
	"think":            {},
	"respond":          {},
	"read_file":        {},
	"write_file":       {},
	"list_files":       {},
	"create_task":      {},
	"update_task":      {},
	"list_tasks":       {},
	"send_message":     {},
	"request_approval": {},
	"query_table":      {},
	"update_table":     {},
	"search_knowledge": {},
	"remember":         {},
	"generate_image":   {},
	"generate_video":   {},
	"generate_3d":      {},
}

// validToolName is the identifier pattern all registered tool names must
// match. MCP bridge names (server__tool) and browser tools (browser_*)
// both fit.
var validToolName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// IsReserved reports whether name is a built-in tool name.
func IsReserved(name string) bool {
	_, ok := reservedNames[name]
	return ok
}

// ValidateExternalName checks a non-built-in tool name at registration
// time.
func ValidateExternalName(name string) error {
	if !validToolName.MatchString(name) {
		return fmt.Errorf("invalid tool name %q: must match %s", name, validToolName.String())
	}
	if IsReserved(name) {
		return fmt.Errorf("tool name %q collides with a reserved built-in", name)
	}
	return nil
}

// Registry holds the built-in tool implementations. It is populated once
// at startup and read-only afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a built-in tool. The name must be in the reserved set —
// built-ins are a closed catalog.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	if !IsReserved(name) {
		return fmt.Errorf("not a reserved built-in tool name: %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("built-in tool %q already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns a built-in tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// ProviderDefs returns tool definitions for the LLM provider API.
func (r *Registry) ProviderDefs() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]providers.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, ToProviderDef(tool))
	}
	return defs
}

// List returns all registered built-in names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered built-ins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
