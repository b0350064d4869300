package entity

import (
	"context"
	"iter"
	"maps"
)

// Entity is a persisted record identified by an integer primary key.
type Entity interface {
	PK() int64
}

// FieldReader exposes stored attribute values by name.
type FieldReader interface {
	Field(name string) (any, bool)
}

// Source is the authoritative store for one indexable type.
type Source interface {
	// All enumerates every stored instance lazily. Each call restarts enumeration.
	All(ctx context.Context) iter.Seq2[Entity, error]
	// FetchByPKs loads the instances whose primary keys are in pks with one query.
	// Missing keys are omitted; result order is unspecified.
	FetchByPKs(ctx context.Context, pks []int64) ([]Entity, error)
}

// Row is a generic entity backed by a column map.
type Row struct {
	pk     int64
	values map[string]any
}

// NewRow creates a Row. The values map is copied.
func NewRow(pk int64, values map[string]any) Row {
	return Row{pk: pk, values: maps.Clone(values)}
}

// PK returns the primary key.
func (r Row) PK() int64 { return r.pk }

// Field returns a stored column value.
func (r Row) Field(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Values returns a copy of the stored column values.
func (r Row) Values() map[string]any { return maps.Clone(r.values) }

// Ref identifies an entity by primary key only. Used for deletes after the
// stored record is already gone.
type Ref int64

// PK returns the primary key.
func (r Ref) PK() int64 { return int64(r) }
