package db

import (
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"strconv"
)

// FieldType enumerates supported mapping field types.
type FieldType int

const (
	// FieldInteger is a 32-bit integer field.
	FieldInteger FieldType = iota
	// FieldLong is a 64-bit integer field.
	FieldLong
	// FieldFloat is a floating point field.
	FieldFloat
	// FieldBoolean is a boolean field.
	FieldBoolean
	// FieldKeyword is an unanalyzed exact-match string field.
	FieldKeyword
	// FieldText is an analyzed full-text field.
	FieldText
	// FieldDate is a date/time field.
	FieldDate
)

var fieldTypeNames = [...]string{"integer", "long", "float", "boolean", "keyword", "text", "date"}

func (t FieldType) String() string {
	if int(t) < 0 || int(t) >= len(fieldTypeNames) {
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
	return fieldTypeNames[t]
}

// ParseFieldType converts a type name back into a FieldType.
func ParseFieldType(s string) (FieldType, error) {
	for i, n := range fieldTypeNames {
		if n == s {
			return FieldType(i), nil
		}
	}
	return 0, errors.New("unknown field type: " + s)
}

// IsNumeric reports whether the type holds numbers.
func (t FieldType) IsNumeric() bool {
	return t == FieldInteger || t == FieldLong || t == FieldFloat
}

// MappingField describes a single field of a type mapping.
type MappingField struct {
	Name string
	Type FieldType
}

// Mapping is the field definition of one document type inside an index.
type Mapping struct {
	Type   string
	Fields []MappingField
}

// Validate checks that the mapping is well-formed.
func (m *Mapping) Validate() error {
	if m.Type == "" {
		return errors.New("mapping type is required")
	}
	if !IsValidIdentifier(m.Type) {
		return errors.New("mapping type contains invalid characters")
	}
	if len(m.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool)
	for i := range m.Fields {
		f := &m.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if !IsValidIdentifier(f.Name) {
			return errors.New("field name contains invalid characters: " + f.Name)
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true
	}

	return nil
}

// Field looks a mapping field up by name.
func (m *Mapping) Field(name string) (MappingField, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return MappingField{}, false
}

type mappingProperty struct {
	Type string `json:"type"`
}

type mappingBody struct {
	Properties map[string]mappingProperty `json:"properties"`
}

// MarshalJSON encodes the mapping as {"<type>":{"properties":{...}}}.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	props := make(map[string]mappingProperty, len(m.Fields))
	for _, f := range m.Fields {
		props[f.Name] = mappingProperty{Type: f.Type.String()}
	}
	return json.Marshal(map[string]mappingBody{m.Type: {Properties: props}})
}

// UnmarshalJSON decodes the format produced by MarshalJSON. Field order is
// not preserved by the wire format and comes back sorted by name.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	var raw map[string]mappingBody
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return errors.New("mapping must contain exactly one type")
	}
	for typ, body := range raw {
		m.Type = typ
		m.Fields = m.Fields[:0]
		for _, name := range slices.Sorted(maps.Keys(body.Properties)) {
			ft, err := ParseFieldType(body.Properties[name].Type)
			if err != nil {
				return err
			}
			m.Fields = append(m.Fields, MappingField{Name: name, Type: ft})
		}
	}
	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
