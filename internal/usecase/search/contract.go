package search

import (
	"context"

	"github.com/kailas-cloud/indexsync/internal/domain/search/request"
	"github.com/kailas-cloud/indexsync/internal/domain/search/result"
)

// Index defines the read side of the search index.
type Index interface {
	Search(ctx context.Context, mappingName string, req request.Request) (*result.Page, error)
}
