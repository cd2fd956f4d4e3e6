package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages all resource declarations in the application
type Registry struct {
	resources map[string]*Resource
	catalogs  map[string]*Catalog
	mu        sync.RWMutex
}

// NewRegistry creates a new resource registry
func NewRegistry() *Registry {
	return &Registry{
		resources: make(map[string]*Resource),
		catalogs:  make(map[string]*Catalog),
	}
}

// Register registers a resource and builds its catalog. Definition-time
// configuration errors surface here, before any request is served.
func (r *Registry) Register(res *Resource, parents ...*Catalog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[res.Name]; exists {
		return fmt.Errorf("resource %s is already registered", res.Name)
	}

	cat, err := BuildCatalog(res, parents...)
	if err != nil {
		return fmt.Errorf("catalog build failed for %s: %w", res.Name, err)
	}

	r.resources[res.Name] = res
	r.catalogs[res.Name] = cat
	StoreCatalog(cat)
	return nil
}

// Get retrieves a resource declaration by name
func (r *Registry) Get(name string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, exists := r.resources[name]
	return res, exists
}

// Catalog retrieves the resolved catalog for a resource
func (r *Registry) Catalog(name string) (*Catalog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cat, exists := r.catalogs[name]
	return cat, exists
}

// Relationship looks up a declared edge on a resource
func (r *Registry) Relationship(resource, name string) (*Relationship, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, exists := r.resources[resource]
	if !exists {
		return nil, false
	}
	rel, exists := res.Relationships[name]
	return rel, exists
}

// List returns all registered resource names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered resources
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.resources)
}

// ValidateAll checks cross-resource consistency: every relationship must
// target a registered resource. Called after all resources are registered,
// allowing forward references during registration.
func (r *Registry) ValidateAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, res := range r.resources {
		for relName, rel := range res.Relationships {
			if _, exists := r.resources[rel.Target]; !exists {
				return fmt.Errorf("resource %s: relationship %s targets unknown resource %s",
					name, relName, rel.Target)
			}
		}
	}
	return nil
}
