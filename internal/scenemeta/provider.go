// Package scenemeta defines the read-only scene/camera metadata collaborator:
// scene id to name, and per-category static/dynamic and tracking-radius
// defaults. It does not supply camera frame-rates. The core never writes
// through this interface.
//
// InMemoryProvider follows a registry pattern backed by a lock-guarded map
// rather than durable storage, per DESIGN.md.
package scenemeta

import (
	"sync"

	"github.com/google/uuid"
)

// CategoryDefaults describes one category's tracking defaults.
type CategoryDefaults struct {
	Static         bool
	TrackingRadius float64
}

// Provider is the read-only scene/camera metadata contract. Implementations
// must be safe for concurrent use.
type Provider interface {
	SceneName(sceneID string) string
	CategoryDefaults(category string) CategoryDefaults
}

// InMemoryProvider is a process-local Provider suitable for tests and
// single-scene deployments. A production deployment is expected to back
// Provider with the (out-of-scope) external configuration store instead.
type InMemoryProvider struct {
	mu         sync.RWMutex
	sceneNames map[string]string
	categories map[string]CategoryDefaults
	fallback   CategoryDefaults
}

// NewInMemoryProvider constructs a provider with the given fallback category
// defaults, used for any category not explicitly registered.
func NewInMemoryProvider(fallback CategoryDefaults) *InMemoryProvider {
	return &InMemoryProvider{
		sceneNames: make(map[string]string),
		categories: make(map[string]CategoryDefaults),
		fallback:   fallback,
	}
}

// RegisterScene associates a human-readable name with a scene id. If
// sceneID is empty, a new one is generated and returned.
func (p *InMemoryProvider) RegisterScene(sceneID, name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sceneID == "" {
		sceneID = uuid.New().String()
	}
	p.sceneNames[sceneID] = name
	return sceneID
}

// RegisterCategory sets the static/dynamic classification and tracking
// radius for a category.
func (p *InMemoryProvider) RegisterCategory(category string, defaults CategoryDefaults) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.categories[category] = defaults
}

// SceneName implements Provider.
func (p *InMemoryProvider) SceneName(sceneID string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if name, ok := p.sceneNames[sceneID]; ok {
		return name
	}
	return sceneID
}

// CategoryDefaults implements Provider.
func (p *InMemoryProvider) CategoryDefaults(category string) CategoryDefaults {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if d, ok := p.categories[category]; ok {
		return d
	}
	return p.fallback
}
