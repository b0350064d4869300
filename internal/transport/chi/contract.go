package chi

import (
	"context"

	dombatch "github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	healthuc "github.com/kailas-cloud/indexsync/internal/usecase/health"
	"github.com/kailas-cloud/indexsync/internal/usecase/notify"
	searchuc "github.com/kailas-cloud/indexsync/internal/usecase/search"
)

// Rebuilder runs a full index rebuild.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*dombatch.Report, error)
}

// Mutator applies point writes.
type Mutator interface {
	AddDocument(ctx context.Context, t *entity.Type, e entity.Entity) error
	DeleteDocument(ctx context.Context, t *entity.Type, e entity.Entity) error
}

// Searcher starts typed searches.
type Searcher interface {
	Search(t *entity.Type) *searchuc.Query
}

// ChangePublisher queues change notifications.
type ChangePublisher interface {
	Publish(ctx context.Context, c notify.Change) error
}

// TypeResolver finds a concrete indexable type by content type.
type TypeResolver interface {
	Lookup(contentType string) (*entity.Type, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
