package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/rtsvc/internal/rtsvc"
)

// Service is a runtime service implementation: its one-time setup and its
// call handler. Either may be nil.
type Service struct {
	Init   func() error
	Handle rtsvc.Handler
}

// Registry maps service names to implementations.
type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]Service)}
}

// Register makes s available under name. Registering an empty name or the
// same name twice is a programming error and panics.
func (r *Registry) Register(name string, s Service) {
	if name == "" {
		panic("catalog: Register with empty service name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.services[name]; dup {
		panic(fmt.Sprintf("catalog: service %q registered twice", name))
	}
	r.services[name] = s
}

// Lookup returns the service registered under name.
func (r *Registry) Lookup(name string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[name]
	return s, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
