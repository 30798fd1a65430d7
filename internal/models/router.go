package models

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	probeTimeout  = 2 * time.Second
	cacheTTL      = time.Minute
	cacheCapacity = 64
)

// NoProviderError is returned when no backend route passes its
// credential or liveness check.
type NoProviderError struct {
	Model string
}

func (e *NoProviderError) Error() string {
	return fmt.Sprintf("no provider available for model %q: configure an API key for one of its backends", e.Model)
}

// OverrideResolver fully replaces the default resolution algorithm.
// Hosted deployments install one so API keys come exclusively from
// deployment-managed secrets.
type OverrideResolver interface {
	Resolve(ctx context.Context, logicalModelID string) (BackendConfig, error)
}

// CredentialFunc returns the stored API key for a provider, or "" when
// none is configured.
type CredentialFunc func(providerID string) string

// Router maps logical model ids to connectable backends.
type Router struct {
	catalog     *Catalog
	credentials CredentialFunc
	hosted      bool
	httpClient  *http.Client

	mu       sync.RWMutex
	override OverrideResolver

	cache *expirable.LRU[string, BackendConfig]
}

// NewRouter creates a router over the given catalog. credentials may be
// nil, in which case only provider key environment variables are checked.
func NewRouter(catalog *Catalog, credentials CredentialFunc, hosted bool) *Router {
	return &Router{
		catalog:     catalog,
		credentials: credentials,
		hosted:      hosted,
		httpClient:  &http.Client{Timeout: probeTimeout},
		cache:       expirable.NewLRU[string, BackendConfig](cacheCapacity, nil, cacheTTL),
	}
}

// SetOverride installs an override resolver. At most one is active;
// installing a new one replaces the prior. Pass nil to remove.
func (r *Router) SetOverride(o OverrideResolver) {
	r.mu.Lock()
	r.override = o
	r.mu.Unlock()
	r.cache.Purge()
}

// Resolve maps a logical model id to the first backend whose credential
// or liveness check passes, in ascending priority order.
func (r *Router) Resolve(ctx context.Context, logicalModelID string) (BackendConfig, error) {
	r.mu.RLock()
	override := r.override
	r.mu.RUnlock()

	if override != nil {
		return override.Resolve(ctx, logicalModelID)
	}

	if cfg, ok := r.cache.Get(logicalModelID); ok {
		return cfg, nil
	}

	model, ok := r.catalog.Model(logicalModelID)
	if !ok {
		return BackendConfig{}, &NoProviderError{Model: logicalModelID}
	}

	routes := make([]Route, len(model.Routes))
	copy(routes, model.Routes)
	sort.SliceStable(routes, func(i, j int) bool { return routes[i].Priority < routes[j].Priority })

	for _, route := range routes {
		provider, ok := r.catalog.Provider(route.Provider)
		if !ok {
			continue
		}

		if provider.Local {
			if !r.probeLocal(ctx, provider.BaseURL) {
				slog.Debug("model route skipped: local backend unreachable",
					"model", logicalModelID, "provider", provider.ID)
				continue
			}
			cfg := BackendConfig{Endpoint: provider.BaseURL, Model: route.ModelID}
			r.cache.Add(logicalModelID, cfg)
			return cfg, nil
		}

		key := r.providerKey(provider)
		if key == "" {
			slog.Debug("model route skipped: no credential",
				"model", logicalModelID, "provider", provider.ID)
			continue
		}
		cfg := BackendConfig{Endpoint: provider.BaseURL, Model: route.ModelID, APIKey: key}
		r.cache.Add(logicalModelID, cfg)
		return cfg, nil
	}

	return BackendConfig{}, &NoProviderError{Model: logicalModelID}
}

// providerKey returns the provider credential. Hosted deployments read
// only the environment; otherwise stored credentials are checked first.
func (r *Router) providerKey(p Provider) string {
	if r.hosted {
		return os.Getenv(p.KeyEnv)
	}
	if r.credentials != nil {
		if key := r.credentials(p.ID); key != "" {
			return key
		}
	}
	return os.Getenv(p.KeyEnv)
}

// probeLocal checks whether a local backend answers within the probe
// timeout.
func (r *Router) probeLocal(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/models", nil)
	if err != nil {
		return false
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}
