package schema

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/indexsync/internal/domain"
)

// Schema is the ordered field list of one indexable type's mapping.
// The first two fields are always pk and content_type.
type Schema struct {
	mappingName string
	fields      []Field
}

// MappingName returns the document type name the schema is registered under.
func (s Schema) MappingName() string { return s.mappingName }

// Fields returns a copy of the ordered fields.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of fields.
func (s Schema) Len() int { return len(s.fields) }

// Field looks a field up by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Equal reports whether two schemas declare the same fields in the same order.
func (s Schema) Equal(other Schema) bool {
	if s.mappingName != other.mappingName || len(s.fields) != len(other.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != other.fields[i] {
			return false
		}
	}
	return true
}

// Builder collects the extension fields an indexable type adds to its schema.
type Builder struct {
	mappingName string
	fields      []Field
	seen        map[string]bool
	errs        []error
}

// NewBuilder starts a schema with the mandatory pk and content_type fields.
func NewBuilder(mappingName string) *Builder {
	b := &Builder{mappingName: mappingName, seen: map[string]bool{}}
	b.append(Reconstruct(PKField, Integer))
	b.append(Reconstruct(ContentTypeField, Keyword))
	return b
}

// Add declares an extension field. Errors are collected and reported by Build.
func (b *Builder) Add(name string, ft Type) *Builder {
	if name == PKField || name == ContentTypeField {
		b.errs = append(b.errs, fmt.Errorf("field %q is reserved", name))
		return b
	}
	f, err := NewField(name, ft)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	if b.seen[name] {
		b.errs = append(b.errs, fmt.Errorf("duplicate field name: %s", name))
		return b
	}
	b.append(f)
	return b
}

// Integer declares an integer field.
func (b *Builder) Integer(name string) *Builder { return b.Add(name, Integer) }

// Long declares a 64-bit integer field.
func (b *Builder) Long(name string) *Builder { return b.Add(name, Long) }

// Float declares a floating point field.
func (b *Builder) Float(name string) *Builder { return b.Add(name, Float) }

// Boolean declares a boolean field.
func (b *Builder) Boolean(name string) *Builder { return b.Add(name, Boolean) }

// Keyword declares an exact-match string field.
func (b *Builder) Keyword(name string) *Builder { return b.Add(name, Keyword) }

// Text declares an analyzed full-text field.
func (b *Builder) Text(name string) *Builder { return b.Add(name, Text) }

// Date declares a date field.
func (b *Builder) Date(name string) *Builder { return b.Add(name, Date) }

// Build validates and returns the schema.
func (b *Builder) Build() (Schema, error) {
	if b.mappingName == "" {
		return Schema{}, fmt.Errorf("%w: mapping name is required", domain.ErrInvalidSchema)
	}
	if len(b.errs) > 0 {
		return Schema{}, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, errors.Join(b.errs...))
	}
	out := make([]Field, len(b.fields))
	copy(out, b.fields)
	return Schema{mappingName: b.mappingName, fields: out}, nil
}

func (b *Builder) append(f Field) {
	b.seen[f.name] = true
	b.fields = append(b.fields, f)
}
