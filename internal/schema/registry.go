package schema

import (
	"fmt"
	"sync"
)

// Registry manages all collection schemas in the application
type Registry struct {
	collections map[string]*Collection
	byPlural    map[string]*Collection
	order       []string
	mu          sync.RWMutex
}

// NewRegistry creates a new schema registry
func NewRegistry() *Registry {
	return &Registry{
		collections: make(map[string]*Collection),
		byPlural:    make(map[string]*Collection),
		order:       make([]string, 0),
	}
}

// Register registers a new collection schema
func (r *Registry) Register(collection *Collection) error {
	if collection == nil || collection.Name == "" {
		return fmt.Errorf("collection must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.collections[collection.Name]; exists {
		return fmt.Errorf("collection %s is already registered", collection.Name)
	}
	if collection.Plural == "" {
		collection.Plural = Pluralize(collection.Name)
	}
	if other, exists := r.byPlural[collection.Plural]; exists {
		return fmt.Errorf("collection %s uses key %s already taken by %s",
			collection.Name, collection.Plural, other.Name)
	}

	r.collections[collection.Name] = collection
	r.byPlural[collection.Plural] = collection
	r.order = append(r.order, collection.Name)

	return nil
}

// Get retrieves a collection by model name
func (r *Registry) Get(name string) (*Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	collection, exists := r.collections[name]
	return collection, exists
}

// GetByPlural retrieves a collection by its plural key
func (r *Registry) GetByPlural(plural string) (*Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	collection, exists := r.byPlural[plural]
	return collection, exists
}

// List returns the registered model names in registration order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Exists checks if a collection is registered
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.collections[name]
	return exists
}

// Count returns the number of registered collections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.collections)
}

// Clear removes all registered collections (useful for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.collections = make(map[string]*Collection)
	r.byPlural = make(map[string]*Collection)
	r.order = make([]string, 0)
}
