package tools

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/providers"
	"github.com/nextlevelbuilder/crewd/internal/store"
)

// SkillHandler is a pluggable third-party integration. It receives parsed
// arguments and the resolved credentials it declared, and returns result
// text or an error.
type SkillHandler func(ctx context.Context, args map[string]any, credentials map[string]string) (string, error)

type skillDef struct {
	name          string
	description   string
	parameters    map[string]any
	handler       SkillHandler
	requiredCreds []string
}

// SkillRegistry holds registered skill handlers. Registration happens
// once at initialization; lookups are never concurrent with mutation.
type SkillRegistry struct {
	mu     sync.RWMutex
	skills map[string]*skillDef
	creds  store.CredentialStore // nil in tests
}

// NewSkillRegistry creates a skill registry. creds may be nil, in which
// case only the legacy environment-variable fallback is consulted.
func NewSkillRegistry(creds store.CredentialStore) *SkillRegistry {
	return &SkillRegistry{
		skills: make(map[string]*skillDef),
		creds:  creds,
	}
}

// Register adds a skill handler. Names are validated against the
// reserved built-in set and the identifier pattern; violations are
// rejected here, never deferred to call time.
func (r *SkillRegistry) Register(name, description string, parameters map[string]any, handler SkillHandler, requiredCredIDs []string) error {
	if err := ValidateExternalName(name); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("skill %q: handler is nil", name)
	}
	if parameters == nil {
		parameters = objectSchema(map[string]any{})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.skills[name]; exists {
		return fmt.Errorf("skill %q already registered", name)
	}
	r.skills[name] = &skillDef{
		name:          name,
		description:   description,
		parameters:    parameters,
		handler:       handler,
		requiredCreds: requiredCredIDs,
	}
	slog.Info("skill registered", "name", name, "credentials", len(requiredCredIDs))
	return nil
}

// Has reports whether a skill with the given name is registered.
func (r *SkillRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.skills[name]
	return ok
}

// ProviderDefs returns definitions for all registered skills.
func (r *SkillRegistry) ProviderDefs() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]providers.ToolDefinition, 0, len(r.skills))
	for _, def := range r.skills {
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        def.name,
				Description: def.description,
				Parameters:  def.parameters,
			},
		})
	}
	return defs
}

// Invoke resolves the skill's declared credentials and runs its handler.
// All failure modes become descriptive text so the model can adapt.
func (r *SkillRegistry) Invoke(ctx context.Context, name string, args map[string]any) (result *Result) {
	r.mu.RLock()
	def, ok := r.skills[name]
	r.mu.RUnlock()
	if !ok {
		return ErrorResult("no handler registered for tool: " + name)
	}

	credentials, missing := r.resolveCredentials(ctx, TeamIDFromCtx(ctx), def)
	if len(missing) > 0 {
		return ErrorResult(fmt.Sprintf(
			"skill %s is missing credentials: %s. Configure them for your team before using this skill.",
			name, strings.Join(missing, ", ")))
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("skill handler panicked", "skill", name, "panic", rec)
			result = ErrorResult(fmt.Sprintf("skill %s failed: %v", name, rec))
		}
	}()

	text, err := def.handler(ctx, args, credentials)
	if err != nil {
		return ErrorResult(fmt.Sprintf("skill %s failed: %v", name, err))
	}
	return NewResult(text)
}

// resolveCredentials looks up each declared credential: team-stored first,
// then the legacy environment variable CREWD_SKILL_<ID> used by
// self-hosted installs.
func (r *SkillRegistry) resolveCredentials(ctx context.Context, teamID uuid.UUID, def *skillDef) (map[string]string, []string) {
	resolved := make(map[string]string, len(def.requiredCreds))
	var missing []string
	for _, id := range def.requiredCreds {
		if r.creds != nil && teamID != uuid.Nil {
			if v, err := r.creds.Get(ctx, teamID, id); err == nil && v != "" {
				resolved[id] = v
				continue
			}
		}
		if v := os.Getenv(legacyCredEnv(id)); v != "" {
			resolved[id] = v
			continue
		}
		missing = append(missing, id)
	}
	return resolved, missing
}

func legacyCredEnv(credID string) string {
	return "CREWD_SKILL_" + strings.ToUpper(strings.ReplaceAll(credID, "-", "_"))
}
