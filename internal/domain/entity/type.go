package entity

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/kailas-cloud/indexsync/internal/domain/schema"
)

// Accessor computes a field value for an entity.
type Accessor func(ctx context.Context, e Entity) (any, error)

// SchemaHook adds type-specific fields to the mandatory schema.
type SchemaHook func(b *schema.Builder)

// IndexableFunc enumerates the instances of a type that belong in the index.
type IndexableFunc func(ctx context.Context) iter.Seq2[Entity, error]

// Type describes an indexable entity type.
type Type struct {
	namespace string
	name      string
	parent    *Type
	abstract  bool
	hook      SchemaHook
	accessors map[string]Accessor
	source    Source
	indexable IndexableFunc
}

// TypeOption configures a Type.
type TypeOption func(*Type)

// WithParent sets the indexable parent the content type is derived from.
func WithParent(p *Type) TypeOption {
	return func(t *Type) { t.parent = p }
}

// Abstract marks the type as never enumerated for indexing.
func Abstract() TypeOption {
	return func(t *Type) { t.abstract = true }
}

// WithSchema sets the schema extension hook.
func WithSchema(h SchemaHook) TypeOption {
	return func(t *Type) { t.hook = h }
}

// WithAccessor registers a computed accessor for a field.
func WithAccessor(field string, fn Accessor) TypeOption {
	return func(t *Type) { t.accessors[field] = fn }
}

// WithSource sets the authoritative store.
func WithSource(s Source) TypeOption {
	return func(t *Type) { t.source = s }
}

// WithIndexable restricts bulk enumeration. Defaults to Source.All.
func WithIndexable(fn IndexableFunc) TypeOption {
	return func(t *Type) { t.indexable = fn }
}

// NewType validates and creates an indexable Type.
func NewType(namespace, name string, opts ...TypeOption) (*Type, error) {
	if namespace == "" {
		return nil, fmt.Errorf("type namespace is required")
	}
	if name == "" {
		return nil, fmt.Errorf("type name is required")
	}
	t := &Type{namespace: namespace, name: name, accessors: map[string]Accessor{}}
	for _, o := range opts {
		o(t)
	}
	for p := t.parent; p != nil; p = p.parent {
		if p == t {
			return nil, fmt.Errorf("type %s.%s: parent cycle", namespace, name)
		}
	}
	return t, nil
}

// MustType is like NewType but panics on error.
func MustType(namespace, name string, opts ...TypeOption) *Type {
	t, err := NewType(namespace, name, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Namespace returns the namespace the type belongs to.
func (t *Type) Namespace() string { return t.namespace }

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// Parent returns the indexable parent, or nil.
func (t *Type) Parent() *Type { return t.parent }

// IsAbstract reports whether the type is skipped by bulk indexing.
func (t *Type) IsAbstract() bool { return t.abstract }

// Source returns the authoritative store, or nil.
func (t *Type) Source() Source { return t.source }

// MappingName is the lowercased type name.
func (t *Type) MappingName() string { return strings.ToLower(t.name) }

// OwnIdentifier is lower(namespace + "_" + name).
func (t *Type) OwnIdentifier() string {
	return strings.ToLower(t.namespace + "_" + t.name)
}

// ContentType is the own identifier prefixed by the parent's content type
// when a parent is set.
func (t *Type) ContentType() string {
	if t.parent == nil {
		return t.OwnIdentifier()
	}
	return t.parent.ContentType() + "_" + t.OwnIdentifier()
}

// Schema derives the type's schema: pk and content_type followed by the
// fields added by the nearest schema hook in the parent chain.
func (t *Type) Schema() (schema.Schema, error) {
	b := schema.NewBuilder(t.MappingName())
	if h := t.schemaHook(); h != nil {
		h(b)
	}
	s, err := b.Build()
	if err != nil {
		return schema.Schema{}, fmt.Errorf("type %s: %w", t.ContentType(), err)
	}
	return s, nil
}

// Accessor returns the accessor for a field, searching the parent chain.
func (t *Type) Accessor(field string) (Accessor, bool) {
	for c := t; c != nil; c = c.parent {
		if fn, ok := c.accessors[field]; ok {
			return fn, true
		}
	}
	return nil, false
}

// Indexable enumerates the instances to put in the index.
func (t *Type) Indexable(ctx context.Context) iter.Seq2[Entity, error] {
	if t.indexable != nil {
		return t.indexable(ctx)
	}
	if t.source == nil {
		return func(yield func(Entity, error) bool) {
			yield(nil, fmt.Errorf("type %s has no source", t.ContentType()))
		}
	}
	return t.source.All(ctx)
}

func (t *Type) schemaHook() SchemaHook {
	for c := t; c != nil; c = c.parent {
		if c.hook != nil {
			return c.hook
		}
	}
	return nil
}
