package schema

import (
	"fmt"
	"regexp"
)

// Type is the indexing type of a field.
type Type string

// Field type constants.
const (
	Integer Type = "integer"
	Long    Type = "long"
	Float   Type = "float"
	Boolean Type = "boolean"
	// Keyword is an unanalyzed string matched exactly.
	Keyword Type = "keyword"
	// Text is an analyzed string for full-text matching.
	Text Type = "text"
	Date Type = "date"
)

// Mandatory field names present in every derived schema.
const (
	PKField          = "pk"
	ContentTypeField = "content_type"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// IsValid checks if the field type is supported.
func (t Type) IsValid() bool {
	switch t {
	case Integer, Long, Float, Boolean, Keyword, Text, Date:
		return true
	}
	return false
}

// IsNumeric reports whether values of this type are numbers.
func (t Type) IsNumeric() bool {
	return t == Integer || t == Long || t == Float
}

// Field is an immutable value object describing one schema field.
type Field struct {
	name      string
	fieldType Type
}

// NewField validates and creates a Field.
// Name must be an identifier of at most 64 chars.
func NewField(name string, ft Type) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return Field{}, fmt.Errorf("field name %q too long (max 64)", name)
	}
	if !nameRegex.MatchString(name) {
		return Field{}, fmt.Errorf("field name %q must be an identifier", name)
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	return Field{name: name, fieldType: ft}, nil
}

// Reconstruct creates a Field without validation (storage hydration).
func Reconstruct(name string, ft Type) Field {
	return Field{name: name, fieldType: ft}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the field's indexing type.
func (f Field) FieldType() Type { return f.fieldType }
