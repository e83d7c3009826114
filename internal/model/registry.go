package model

import (
	"fmt"
	"strings"
	"sync"
)

// Registry holds the descriptors known to the running process, in
// registration order.
type Registry struct {
	byName map[string]Descriptor
	order  []string
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Descriptor),
	}
}

// Register adds a descriptor. Fully-qualified names must be unique.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.Name() == "" {
		return fmt.Errorf("descriptor has no name")
	}
	if _, exists := r.byName[d.Name()]; exists {
		return fmt.Errorf("entity %s is already registered", d.Name())
	}

	r.byName[d.Name()] = d
	r.order = append(r.order, d.Name())
	return nil
}

// RegisterAll registers every descriptor, stopping at the first error
func (r *Registry) RegisterAll(ds ...Descriptor) error {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// Get looks up a descriptor by fully-qualified name, falling back to a
// case-insensitive match on the short name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.byName[name]; ok {
		return d, true
	}
	for _, key := range r.order {
		d := r.byName[key]
		if strings.EqualFold(d.ShortName(), name) {
			return d, true
		}
	}
	return nil, false
}

// All returns the registered descriptors in registration order
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Descriptor, 0, len(r.order))
	for _, key := range r.order {
		result = append(result, r.byName[key])
	}
	return result
}

// ShortNames returns the set of registered short names
func (r *Registry) ShortNames() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]bool, len(r.order))
	for _, d := range r.byName {
		result[d.ShortName()] = true
	}
	return result
}

// Len returns the number of registered descriptors
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
