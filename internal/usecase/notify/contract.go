package notify

import (
	"context"

	"github.com/kailas-cloud/indexsync/internal/domain/entity"
)

// Mutator applies point writes to the index.
type Mutator interface {
	AddDocument(ctx context.Context, t *entity.Type, e entity.Entity) error
	DeleteDocument(ctx context.Context, t *entity.Type, e entity.Entity) error
}

// TypeResolver resolves registered concrete types by content type.
type TypeResolver interface {
	Lookup(contentType string) (*entity.Type, error)
}
