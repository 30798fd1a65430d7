package models

import (
	"context"
	"errors"
	"testing"
)

func testCatalog() *Catalog {
	c := &Catalog{
		providers: make(map[string]Provider),
		models:    make(map[string]Model),
	}
	c.AddProvider(Provider{ID: "alpha", BaseURL: "https://alpha.example/v1", KeyEnv: "TEST_ALPHA_KEY"})
	c.AddProvider(Provider{ID: "beta", BaseURL: "https://beta.example/v1", KeyEnv: "TEST_BETA_KEY"})
	c.AddModel(Model{ID: "smart", Routes: []Route{
		{Provider: "beta", ModelID: "beta-large", Priority: 2},
		{Provider: "alpha", ModelID: "alpha-large", Priority: 1},
	}})
	return c
}

func credsFor(keys map[string]string) CredentialFunc {
	return func(providerID string) string { return keys[providerID] }
}

func TestResolvePicksLowestPriorityWithCredential(t *testing.T) {
	r := NewRouter(testCatalog(), credsFor(map[string]string{
		"alpha": "key-a",
		"beta":  "key-b",
	}), false)

	cfg, err := r.Resolve(context.Background(), "smart")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Model != "alpha-large" {
		t.Errorf("resolved model = %q, want %q", cfg.Model, "alpha-large")
	}
	if cfg.Endpoint != "https://alpha.example/v1" {
		t.Errorf("resolved endpoint = %q, want alpha's", cfg.Endpoint)
	}
	if cfg.APIKey != "key-a" {
		t.Errorf("resolved key = %q, want %q", cfg.APIKey, "key-a")
	}
}

func TestResolveSkipsRoutesWithoutCredential(t *testing.T) {
	r := NewRouter(testCatalog(), credsFor(map[string]string{
		"beta": "key-b",
	}), false)

	cfg, err := r.Resolve(context.Background(), "smart")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Model != "beta-large" {
		t.Errorf("resolved model = %q, want fallback to %q", cfg.Model, "beta-large")
	}
}

func TestResolveNoProvider(t *testing.T) {
	r := NewRouter(testCatalog(), nil, false)

	_, err := r.Resolve(context.Background(), "smart")
	var npe *NoProviderError
	if !errors.As(err, &npe) {
		t.Fatalf("Resolve() error = %v, want *NoProviderError", err)
	}
	if npe.Model != "smart" {
		t.Errorf("NoProviderError.Model = %q, want %q", npe.Model, "smart")
	}
}

func TestResolveUnknownModel(t *testing.T) {
	r := NewRouter(testCatalog(), nil, false)

	_, err := r.Resolve(context.Background(), "nonexistent")
	var npe *NoProviderError
	if !errors.As(err, &npe) {
		t.Fatalf("Resolve() error = %v, want *NoProviderError", err)
	}
}

type staticOverride struct {
	cfg   BackendConfig
	calls int
}

func (o *staticOverride) Resolve(ctx context.Context, logicalModelID string) (BackendConfig, error) {
	o.calls++
	return o.cfg, nil
}

func TestOverrideBypassesDefaultAlgorithm(t *testing.T) {
	r := NewRouter(testCatalog(), credsFor(map[string]string{"alpha": "key-a"}), false)

	override := &staticOverride{cfg: BackendConfig{Endpoint: "https://managed.example", Model: "managed-model", APIKey: "secret"}}
	r.SetOverride(override)

	for i := 0; i < 3; i++ {
		cfg, err := r.Resolve(context.Background(), "smart")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if cfg.Model != "managed-model" {
			t.Errorf("resolved model = %q, want override's", cfg.Model)
		}
	}
	if override.calls != 3 {
		t.Errorf("override calls = %d, want 3", override.calls)
	}

	// Removing the override restores the default algorithm.
	r.SetOverride(nil)
	cfg, err := r.Resolve(context.Background(), "smart")
	if err != nil {
		t.Fatalf("Resolve() after removing override error = %v", err)
	}
	if cfg.Model != "alpha-large" {
		t.Errorf("resolved model = %q, want %q", cfg.Model, "alpha-large")
	}
}

func TestReplacingOverrideReplacesPrior(t *testing.T) {
	r := NewRouter(testCatalog(), nil, false)

	first := &staticOverride{cfg: BackendConfig{Model: "first"}}
	second := &staticOverride{cfg: BackendConfig{Model: "second"}}
	r.SetOverride(first)
	r.SetOverride(second)

	cfg, err := r.Resolve(context.Background(), "smart")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Model != "second" {
		t.Errorf("resolved model = %q, want %q", cfg.Model, "second")
	}
	if first.calls != 0 {
		t.Errorf("replaced override was consulted %d times, want 0", first.calls)
	}
}

func TestResolveCachesResult(t *testing.T) {
	catalog := testCatalog()
	r := NewRouter(catalog, credsFor(map[string]string{"alpha": "key-a"}), false)

	if _, err := r.Resolve(context.Background(), "smart"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// Drop the route from the catalog; the cached entry still answers.
	catalog.AddModel(Model{ID: "smart"})
	cfg, err := r.Resolve(context.Background(), "smart")
	if err != nil {
		t.Fatalf("Resolve() from cache error = %v", err)
	}
	if cfg.Model != "alpha-large" {
		t.Errorf("cached model = %q, want %q", cfg.Model, "alpha-large")
	}
}
