package entity

import (
	"fmt"
	"sync"

	"github.com/kailas-cloud/indexsync/internal/domain"
)

// Registry holds the indexable types in registration order.
type Registry struct {
	mu     sync.RWMutex
	types  []*Type
	byType map[string]*Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[string]*Type)}
}

// Register adds a type. Content types must be unique.
func (r *Registry) Register(t *Type) error {
	if t == nil {
		return fmt.Errorf("nil type")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ct := t.ContentType()
	if _, ok := r.byType[ct]; ok {
		return fmt.Errorf("content type %q already registered", ct)
	}
	r.byType[ct] = t
	r.types = append(r.types, t)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(types ...*Type) {
	for _, t := range types {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Types returns every registered type, abstract ones included.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Type, len(r.types))
	copy(out, r.types)
	return out
}

// Indexable returns the concrete types in registration order.
func (r *Registry) Indexable() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		if !t.abstract {
			out = append(out, t)
		}
	}
	return out
}

// Lookup finds a concrete type by content type.
func (r *Registry) Lookup(contentType string) (*Type, error) {
	r.mu.RLock()
	t, ok := r.byType[contentType]
	r.mu.RUnlock()
	if !ok || t.abstract {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownType, contentType)
	}
	return t, nil
}
