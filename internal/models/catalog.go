// Package models resolves logical model identifiers to concrete provider
// backends. The catalog is a static lookup table; routing tries backends
// in priority order and supports an injected override policy for hosted
// deployments.
package models

// Provider is a concrete model backend vendor.
type Provider struct {
	ID      string
	BaseURL string
	KeyEnv  string // environment variable carrying the API key
	Local   bool   // local providers are probed for liveness instead of key-checked
}

// Route is one (provider, provider model id, priority) triple a logical
// model can resolve to. Lower priority numbers are tried first.
type Route struct {
	Provider string
	ModelID  string
	Priority int
}

// Model is a logical, user-facing model decoupled from any provider.
type Model struct {
	ID     string
	Routes []Route
}

// BackendConfig is a connectable backend returned by resolution.
type BackendConfig struct {
	Endpoint string
	Model    string
	APIKey   string
}

// Catalog is the static model/provider lookup table.
type Catalog struct {
	providers map[string]Provider
	models    map[string]Model
}

// DefaultCatalog returns the built-in providers and logical models.
func DefaultCatalog() *Catalog {
	providers := []Provider{
		{ID: "openai", BaseURL: "https://api.openai.com/v1", KeyEnv: "OPENAI_API_KEY"},
		{ID: "anthropic", BaseURL: "https://api.anthropic.com/v1", KeyEnv: "ANTHROPIC_API_KEY"},
		{ID: "openrouter", BaseURL: "https://openrouter.ai/api/v1", KeyEnv: "OPENROUTER_API_KEY"},
		{ID: "groq", BaseURL: "https://api.groq.com/openai/v1", KeyEnv: "GROQ_API_KEY"},
		{ID: "deepseek", BaseURL: "https://api.deepseek.com/v1", KeyEnv: "DEEPSEEK_API_KEY"},
		{ID: "mistral", BaseURL: "https://api.mistral.ai/v1", KeyEnv: "MISTRAL_API_KEY"},
		{ID: "local", BaseURL: "http://localhost:11434/v1", Local: true},
	}

	models := []Model{
		{ID: "smart", Routes: []Route{
			{Provider: "anthropic", ModelID: "claude-sonnet-4-5", Priority: 1},
			{Provider: "openai", ModelID: "gpt-4.1", Priority: 2},
			{Provider: "openrouter", ModelID: "anthropic/claude-sonnet-4.5", Priority: 3},
		}},
		{ID: "fast", Routes: []Route{
			{Provider: "groq", ModelID: "llama-3.3-70b-versatile", Priority: 1},
			{Provider: "openai", ModelID: "gpt-4.1-mini", Priority: 2},
			{Provider: "deepseek", ModelID: "deepseek-chat", Priority: 3},
		}},
		{ID: "cheap", Routes: []Route{
			{Provider: "deepseek", ModelID: "deepseek-chat", Priority: 1},
			{Provider: "mistral", ModelID: "mistral-small-latest", Priority: 2},
			{Provider: "local", ModelID: "llama3.1", Priority: 3},
		}},
		{ID: "local", Routes: []Route{
			{Provider: "local", ModelID: "llama3.1", Priority: 1},
		}},
	}

	c := &Catalog{
		providers: make(map[string]Provider, len(providers)),
		models:    make(map[string]Model, len(models)),
	}
	for _, p := range providers {
		c.providers[p.ID] = p
	}
	for _, m := range models {
		c.models[m.ID] = m
	}
	return c
}

// Provider returns the provider with the given id.
func (c *Catalog) Provider(id string) (Provider, bool) {
	p, ok := c.providers[id]
	return p, ok
}

// Model returns the logical model with the given id.
func (c *Catalog) Model(id string) (Model, bool) {
	m, ok := c.models[id]
	return m, ok
}

// ModelIDs lists all logical model ids.
func (c *Catalog) ModelIDs() []string {
	ids := make([]string, 0, len(c.models))
	for id := range c.models {
		ids = append(ids, id)
	}
	return ids
}

// AddModel registers or replaces a logical model. Used by tests and by
// deployments that extend the built-in catalog.
func (c *Catalog) AddModel(m Model) {
	c.models[m.ID] = m
}

// AddProvider registers or replaces a provider.
func (c *Catalog) AddProvider(p Provider) {
	c.providers[p.ID] = p
}
