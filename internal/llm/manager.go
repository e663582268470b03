package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// TierRoute maps one quality/latency tier to a concrete backend.
type TierRoute struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Manager holds the registered providers and the tier lookup table.
// Backend selection is a table lookup, never a branching chain at the
// call site.
type Manager struct {
	providers   map[string]Provider
	tiers       map[string]TierRoute
	defaultTier string
	mu          sync.RWMutex
}

// NewManager creates a new provider manager.
func NewManager(tiers map[string]TierRoute, defaultTier string) *Manager {
	if tiers == nil {
		tiers = make(map[string]TierRoute)
	}
	return &Manager{
		providers:   make(map[string]Provider),
		tiers:       tiers,
		defaultTier: defaultTier,
	}
}

// RegisterProvider registers a provider
func (m *Manager) RegisterProvider(provider Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[provider.Name()] = provider
}

// GetProvider gets a provider by name
func (m *Manager) GetProvider(name string) (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	provider, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return provider, nil
}

// Route resolves a tier to a registered provider and model. An empty
// tier resolves through the default tier.
func (m *Manager) Route(tier string) (Provider, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if tier == "" {
		tier = m.defaultTier
	}
	route, ok := m.tiers[tier]
	if !ok {
		return nil, "", fmt.Errorf("tier not configured: %s", tier)
	}
	provider, ok := m.providers[route.Provider]
	if !ok {
		return nil, "", fmt.Errorf("provider not found: %s", route.Provider)
	}
	return provider, route.Model, nil
}

// KeySetter is implemented by providers whose API key can be replaced
// after construction.
type KeySetter interface {
	SetAPIKey(key string)
}

// SetAPIKey updates the key on a registered provider. Returns false when
// the provider is unknown or carries no replaceable key (ollama).
func (m *Manager) SetAPIKey(name, key string) bool {
	m.mu.RLock()
	provider, ok := m.providers[name]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	setter, ok := provider.(KeySetter)
	if !ok {
		return false
	}
	setter.SetAPIKey(key)
	return true
}

// Send routes one request to a provider by name.
func (m *Manager) Send(ctx context.Context, providerName string, req *Request) (Outcome, error) {
	provider, err := m.GetProvider(providerName)
	if err != nil {
		return nil, err
	}
	return provider.Send(ctx, req)
}

// ListProviders returns the registered provider names, sorted.
func (m *Manager) ListProviders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tiers returns a copy of the tier table.
func (m *Manager) Tiers() map[string]TierRoute {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]TierRoute, len(m.tiers))
	for k, v := range m.tiers {
		out[k] = v
	}
	return out
}
