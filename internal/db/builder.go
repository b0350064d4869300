package db

import "strings"

// MappingBuilder is a fluent builder for type mappings.
type MappingBuilder struct {
	m Mapping
}

// NewMapping starts building a mapping for a document type.
func NewMapping(typ string) *MappingBuilder {
	return &MappingBuilder{m: Mapping{Type: typ}}
}

// Field adds a field of the given type.
func (b *MappingBuilder) Field(name string, t FieldType) *MappingBuilder {
	b.m.Fields = append(b.m.Fields, MappingField{Name: name, Type: t})
	return b
}

// Integer adds an integer field.
func (b *MappingBuilder) Integer(name string) *MappingBuilder { return b.Field(name, FieldInteger) }

// Long adds a long field.
func (b *MappingBuilder) Long(name string) *MappingBuilder { return b.Field(name, FieldLong) }

// Float adds a float field.
func (b *MappingBuilder) Float(name string) *MappingBuilder { return b.Field(name, FieldFloat) }

// Boolean adds a boolean field.
func (b *MappingBuilder) Boolean(name string) *MappingBuilder { return b.Field(name, FieldBoolean) }

// Keyword adds an exact-match string field.
func (b *MappingBuilder) Keyword(name string) *MappingBuilder { return b.Field(name, FieldKeyword) }

// Text adds an analyzed string field.
func (b *MappingBuilder) Text(name string) *MappingBuilder { return b.Field(name, FieldText) }

// Date adds a date field.
func (b *MappingBuilder) Date(name string) *MappingBuilder { return b.Field(name, FieldDate) }

// Build validates and returns the mapping.
func (b *MappingBuilder) Build() (*Mapping, error) {
	if err := b.m.Validate(); err != nil {
		return nil, err
	}
	out := b.m
	out.Fields = append([]MappingField(nil), b.m.Fields...)
	return &out, nil
}

// MustBuild calls Build and panics on error.
func (b *MappingBuilder) MustBuild() *Mapping {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

// String returns a compact debug representation.
func (m *Mapping) String() string {
	parts := []string{"MAPPING", m.Type}
	for _, f := range m.Fields {
		parts = append(parts, f.Name+":"+f.Type.String())
	}
	return strings.Join(parts, " ")
}
