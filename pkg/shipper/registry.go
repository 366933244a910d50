package shipper

import (
	"fmt"
	"sync"
)

// Registry manages registered shipping carriers.
type Registry struct {
	shippers map[string]Shipper
	mu       sync.RWMutex
}

// NewRegistry creates a new shipper registry.
func NewRegistry() *Registry {
	return &Registry{
		shippers: make(map[string]Shipper),
	}
}

// Register adds a shipper to the registry.
func (r *Registry) Register(s Shipper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shippers[s.Name()] = s
}

// Get returns a shipper by name.
func (r *Registry) Get(name string) (Shipper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.shippers[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// All returns all registered shippers.
func (r *Registry) All() []Shipper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Shipper, 0, len(r.shippers))
	for _, s := range r.shippers {
		result = append(result, s)
	}
	return result
}

// Names returns the names of all registered shippers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.shippers))
	for name := range r.shippers {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered shippers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shippers)
}

// Dispose tears down every registered shipper. Used during process
// shutdown.
func (r *Registry) Dispose() {
	for _, s := range r.All() {
		s.Dispose()
	}
}
