package index

import (
	"context"
	"testing"

	"github.com/kailas-cloud/indexsync/internal/db"
	domdoc "github.com/kailas-cloud/indexsync/internal/domain/document"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	pingFn        func(ctx context.Context) error
	createIndexFn func(ctx context.Context, name string) error
	dropIndexFn   func(ctx context.Context, name string) error
	existsFn      func(ctx context.Context, name string) (bool, error)
	refreshFn     func(ctx context.Context, name string) error
	putMappingFn  func(ctx context.Context, index string, m *db.Mapping) error
	indexDocFn    func(ctx context.Context, index string, doc db.Doc) error
	deleteDocFn   func(ctx context.Context, index, typ, id string) error
	bulkWriteFn   func(ctx context.Context, index string, docs []db.Doc) ([]db.BulkOutcome, error)
	searchFn      func(ctx context.Context, q *db.Query) (*db.SearchResult, error)
}

func (m *mockStore) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func (m *mockStore) CreateIndex(ctx context.Context, name string) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, name)
	}
	return true, nil
}

func (m *mockStore) RefreshIndex(ctx context.Context, name string) error {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, name)
	}
	return nil
}

func (m *mockStore) PutMapping(ctx context.Context, index string, mp *db.Mapping) error {
	if m.putMappingFn != nil {
		return m.putMappingFn(ctx, index, mp)
	}
	return nil
}

func (m *mockStore) IndexDocument(ctx context.Context, index string, doc db.Doc) error {
	if m.indexDocFn != nil {
		return m.indexDocFn(ctx, index, doc)
	}
	return nil
}

func (m *mockStore) DeleteDocument(ctx context.Context, index, typ, id string) error {
	if m.deleteDocFn != nil {
		return m.deleteDocFn(ctx, index, typ, id)
	}
	return nil
}

func (m *mockStore) BulkWrite(ctx context.Context, index string, docs []db.Doc) ([]db.BulkOutcome, error) {
	if m.bulkWriteFn != nil {
		return m.bulkWriteFn(ctx, index, docs)
	}
	out := make([]db.BulkOutcome, len(docs))
	for i, d := range docs {
		out[i] = db.BulkOutcome{Type: d.Type, ID: d.ID}
	}
	return out, nil
}

func (m *mockStore) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "elastic"), ms
}

func testDocument(t *testing.T, pk int64) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New("elastic", "post", pk, []domdoc.Value{
		{Name: "pk", Value: pk},
		{Name: "content_type", Value: "blog_post"},
		{Name: "title", Value: "hello"},
	})
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	return doc
}
