package db

import (
	"context"
)

// Backend is the search service facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces
type Backend interface {
	Pinger
	IndexManager
	MappingManager
	DocumentWriter
	Searcher
	Close() error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexManager provides index lifecycle operations.
type IndexManager interface {
	// CreateIndex creates an empty index. ErrIndexExists if it is already there.
	CreateIndex(ctx context.Context, name string) error
	// DropIndex removes an index and its documents. ErrIndexNotFound if absent.
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	// RefreshIndex makes every acknowledged write visible to search.
	RefreshIndex(ctx context.Context, name string) error
}

// MappingManager registers per-type mappings inside an index.
type MappingManager interface {
	PutMapping(ctx context.Context, index string, m *Mapping) error
}

// Field is one named document value.
type Field struct {
	Name  string
	Value any
}

// Doc is a document addressed by type and id inside an index.
type Doc struct {
	Type   string
	ID     string
	Fields []Field
}

// BulkOutcome is the per-document result of a bulk write.
type BulkOutcome struct {
	Type string
	ID   string
	Err  error
}

// DocumentWriter provides document write operations.
type DocumentWriter interface {
	// IndexDocument creates or fully replaces a document.
	IndexDocument(ctx context.Context, index string, doc Doc) error
	// DeleteDocument removes a document. ErrDocumentNotFound if absent.
	DeleteDocument(ctx context.Context, index, typ, id string) error
	// BulkWrite indexes docs in one round trip. Rejected documents are reported
	// through their outcome; the error return is reserved for failures that
	// affect the whole request.
	BulkWrite(ctx context.Context, index string, docs []Doc) ([]BulkOutcome, error)
}

// Searcher provides search operations.
type Searcher interface {
	Search(ctx context.Context, q *Query) (*SearchResult, error)
}
