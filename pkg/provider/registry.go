package provider

import (
	"sync"

	mderrors "github.com/checkdag/checkdag/pkg/model/errors"
)

// Manager is the interface the teacher's pkg/executor/registry.go names
// for a provider registry, kept here so the host can depend on an
// interface rather than the concrete Registry type in tests.
type Manager interface {
	Register(p Provider) error
	Unregister(name string) error
	Has(name string) bool
	Get(name string) (Provider, bool)
	GetOrThrow(name string) (Provider, error)
	List() []string
	ListActive() []string
	Reset()
}

// Registry is a process-wide mapping from type string to Provider
// (spec.md §4.3), directly adapted from the teacher's
// pkg/executor/registry.go (RWMutex-guarded map, duplicate-register
// rejected, *-OrThrow variant for callers that want an error instead of a
// boolean).
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds p under its own Name(). Fails if that name is already
// registered.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.providers[name]; exists {
		return mderrors.New(mderrors.ConfigInvalid, "provider: duplicate registration for type "+name)
	}
	r.providers[name] = p
	return nil
}

// Unregister removes the provider registered under name, if any.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; !exists {
		return mderrors.New(mderrors.ConfigInvalid, "provider: not registered: "+name)
	}
	delete(r.providers, name)
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Get returns the provider registered under name, if any.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// GetOrThrow is Get, but returns a *model/errors.Error instead of a false
// ok, for callers (the scheduler) that treat an unknown type as a
// configuration error.
func (r *Registry) GetOrThrow(name string) (Provider, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, mderrors.New(mderrors.ConfigInvalid, "provider: unknown type "+name)
	}
	return p, nil
}

// List returns every registered provider name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// ListActive returns every registered provider name whose IsAvailable()
// currently returns true.
func (r *Registry) ListActive() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name, p := range r.providers {
		if p.IsAvailable() {
			names = append(names, name)
		}
	}
	return names
}

// Reset removes every registered provider. Intended for test isolation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[string]Provider)
}

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Default returns the process-wide Registry singleton used by host
// composition, creating it on first use.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry()
	}
	return defaultRegistry
}
