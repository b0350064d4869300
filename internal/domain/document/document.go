package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is one named field value of a document.
type Value struct {
	Name  string
	Value any
}

// Document is the search-engine representation of one entity (immutable value object).
// Values keep schema order.
type Document struct {
	index  string
	typ    string
	id     int64
	values []Value
}

// New validates and creates a Document.
func New(index, typ string, id int64, values []Value) (Document, error) {
	if index == "" {
		return Document{}, fmt.Errorf("document index is required")
	}
	if typ == "" {
		return Document{}, fmt.Errorf("document type is required")
	}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v.Name == "" {
			return Document{}, fmt.Errorf("document field name is required")
		}
		if seen[v.Name] {
			return Document{}, fmt.Errorf("duplicate document field: %s", v.Name)
		}
		seen[v.Name] = true
	}
	out := make([]Value, len(values))
	copy(out, values)
	return Document{index: index, typ: typ, id: id, values: out}, nil
}

// Index returns the target index name.
func (d Document) Index() string { return d.index }

// Type returns the mapping name.
func (d Document) Type() string { return d.typ }

// ID returns the primary key the document is stored under.
func (d Document) ID() int64 { return d.id }

// IDString returns the document id as the backend sees it.
func (d Document) IDString() string { return strconv.FormatInt(d.id, 10) }

// Values returns a copy of the ordered field values.
func (d Document) Values() []Value {
	out := make([]Value, len(d.values))
	copy(out, d.values)
	return out
}

// Get returns a field value by name.
func (d Document) Get(name string) (any, bool) {
	for _, v := range d.values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return nil, false
}

// Fields returns the field values as a map.
func (d Document) Fields() map[string]any {
	m := make(map[string]any, len(d.values))
	for _, v := range d.values {
		m[v.Name] = v.Value
	}
	return m
}

// MarshalJSON encodes the document body as an object in field order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range d.values {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(v.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", v.Name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
