package consensus

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tarasov-md/GoldSignals/models"
)

// Registry maps provider names to implementations. Providers register
// here once at startup; the aggregation math never changes when a
// provider is added or removed.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]models.Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]models.Provider)}
}

// Register adds a provider under its own name, replacing any previous
// registration with the same name.
func (r *Registry) Register(p models.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (models.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q is not registered", name)
	}
	return p, nil
}

// Names lists registered providers in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
