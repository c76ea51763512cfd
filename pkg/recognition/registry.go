package recognition

import (
	"fmt"
	"sort"
	"strings"
)

// Factory builds a backend from configuration. It is called once at startup,
// so it is the place to load models and validate credentials.
type Factory func(cfg Config) (Recognizer, error)

// Registry manages all available backends
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a new backend registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a backend factory to the registry
func (r *Registry) Register(name string, factory Factory) {
	r.factories[strings.ToLower(name)] = factory
}

// Open constructs the named backend
func (r *Registry) Open(name string, cfg Config) (Recognizer, error) {
	factory, exists := r.factories[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("recognition backend %s not found (available: %s)", name, strings.Join(r.List(), ", "))
	}

	rec, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", name, err)
	}
	return rec, nil
}

// List returns all available backend names
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks if a backend is registered
func (r *Registry) Has(name string) bool {
	_, exists := r.factories[strings.ToLower(name)]
	return exists
}
