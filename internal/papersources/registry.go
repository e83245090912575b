package papersources

import (
	"sync"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// Registry holds paper sources in registration order.
// Registration order is the canonical source order used for dedup precedence,
// so lookups always return sources in that order regardless of how callers
// list the types they want.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]PaperSource
	order   []domain.SourceType
}

// NewRegistry creates a new source registry with an empty source map.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceType]PaperSource),
	}
}

// Register adds a source to the registry.
// Re-registering a type replaces the source but keeps its original position.
func (r *Registry) Register(source PaperSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := source.SourceType()
	if _, exists := r.sources[st]; !exists {
		r.order = append(r.order, st)
	}
	r.sources[st] = source
}

// Get returns a source by type, or nil if not found.
func (r *Registry) Get(sourceType domain.SourceType) PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// AllSources returns a snapshot of all registered sources in registration order.
func (r *Registry) AllSources() []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(r.order))
	for _, st := range r.order {
		sources = append(sources, r.sources[st])
	}
	return sources
}

// EnabledSources returns the enabled sources in registration order.
func (r *Registry) EnabledSources() []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(r.order))
	for _, st := range r.order {
		if s := r.sources[st]; s.IsEnabled() {
			sources = append(sources, s)
		}
	}
	return sources
}

// Select returns the enabled sources whose type is in sourceTypes, in
// registration order. Unknown or disabled types are skipped. An empty
// sourceTypes selects every enabled source.
func (r *Registry) Select(sourceTypes []domain.SourceType) []PaperSource {
	if len(sourceTypes) == 0 {
		return r.EnabledSources()
	}

	wanted := make(map[domain.SourceType]struct{}, len(sourceTypes))
	for _, st := range sourceTypes {
		wanted[st] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(sourceTypes))
	for _, st := range r.order {
		if _, ok := wanted[st]; !ok {
			continue
		}
		if s := r.sources[st]; s.IsEnabled() {
			sources = append(sources, s)
		}
	}
	return sources
}
