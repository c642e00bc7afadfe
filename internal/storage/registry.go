package storage

import (
	"fmt"
	"sync"
)

// Registry binds namespaces to the storages that host them.
type Registry struct {
	stores map[Namespace]Storage
	mu     sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{stores: make(map[Namespace]Storage)}
}

// Register binds ns to s, replacing any earlier binding.
func (r *Registry) Register(ns Namespace, s Storage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[ns] = s
}

// Lookup returns the storage bound to ns. The empty namespace resolves to
// Local.
func (r *Registry) Lookup(ns Namespace) (Storage, error) {
	if ns == "" {
		ns = Local
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[ns]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	return s, nil
}
