package mutation

import (
	"context"

	domdoc "github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
)

// Index is the point-write side of the search index.
type Index interface {
	Index(ctx context.Context, doc domdoc.Document) error
	Delete(ctx context.Context, mappingName string, pk int64) error
}

// TypeResolver resolves registered concrete types by content type.
type TypeResolver interface {
	Lookup(contentType string) (*entity.Type, error)
}
