package rebuild

import (
	"context"

	domdoc "github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
)

// Index is the write side of the search index used by rebuilds.
type Index interface {
	Reset(ctx context.Context) error
	PutMapping(ctx context.Context, s schema.Schema) error
	Bulk(ctx context.Context, docs []domdoc.Document) ([]error, error)
	Refresh(ctx context.Context) error
}

// TypeLister lists the concrete types to index, in registration order.
type TypeLister interface {
	Indexable() []*entity.Type
}

// Locker guards against concurrent rebuilds of the same index.
type Locker interface {
	TryAcquire() (release func() error, err error)
}
