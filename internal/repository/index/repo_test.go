package index

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain"
	domdoc "github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
	"github.com/kailas-cloud/indexsync/internal/domain/search/filter"
	"github.com/kailas-cloud/indexsync/internal/domain/search/request"
)

// --- Reset ---

func TestReset_DropsThenCreates(t *testing.T) {
	repo, ms := newTestRepo(t)
	var calls []string
	ms.dropIndexFn = func(_ context.Context, name string) error {
		calls = append(calls, "drop:"+name)
		return nil
	}
	ms.createIndexFn = func(_ context.Context, name string) error {
		calls = append(calls, "create:"+name)
		return nil
	}

	if err := repo.Reset(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(calls, []string{"drop:elastic", "create:elastic"}) {
		t.Errorf("calls = %v", calls)
	}
}

func TestReset_MissingIndexIgnored(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.dropIndexFn = func(context.Context, string) error { return db.ErrIndexNotFound }

	if err := repo.Reset(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReset_Unavailable(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.dropIndexFn = func(context.Context, string) error {
		return db.Unavailable(db.OpDropIndex, errors.New("dial tcp: refused"))
	}

	err := repo.Reset(context.Background())
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

// --- PutMapping ---

func TestPutMapping_ConvertsSchema(t *testing.T) {
	repo, ms := newTestRepo(t)
	s, err := schema.NewBuilder("post").Text("title").Boolean("published").Build()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}

	var got *db.Mapping
	ms.putMappingFn = func(_ context.Context, index string, m *db.Mapping) error {
		if index != "elastic" {
			t.Errorf("index = %s", index)
		}
		got = m
		return nil
	}

	if err := repo.PutMapping(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "MAPPING post pk:integer content_type:keyword title:text published:boolean" {
		t.Errorf("mapping = %s", got)
	}
}

// --- Index / Delete ---

func TestIndex_SendsOrderedFields(t *testing.T) {
	repo, ms := newTestRepo(t)
	var got db.Doc
	ms.indexDocFn = func(_ context.Context, _ string, doc db.Doc) error {
		got = doc
		return nil
	}

	if err := repo.Index(context.Background(), testDocument(t, 7)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Type != "post" || got.ID != "7" {
		t.Errorf("doc = %+v", got)
	}
	names := make([]string, 0, len(got.Fields))
	for _, f := range got.Fields {
		names = append(names, f.Name)
	}
	if !slices.Equal(names, []string{"pk", "content_type", "title"}) {
		t.Errorf("field order = %v", names)
	}
}

func TestDelete_NotFoundMapped(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.deleteDocFn = func(_ context.Context, _, typ, id string) error {
		if typ != "post" || id != "9" {
			t.Errorf("delete %s/%s", typ, id)
		}
		return db.ErrDocumentNotFound
	}

	err := repo.Delete(context.Background(), "post", 9)
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected domain.ErrDocumentNotFound, got %v", err)
	}
}

// --- Bulk ---

func TestBulk_PerDocumentErrors(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.bulkWriteFn = func(_ context.Context, _ string, docs []db.Doc) ([]db.BulkOutcome, error) {
		out := make([]db.BulkOutcome, len(docs))
		out[1].Err = &db.Error{Op: db.OpHSet, Err: errors.New("OOM")}
		return out, nil
	}

	docs := []domdoc.Document{testDocument(t, 1), testDocument(t, 2), testDocument(t, 3)}
	errs, err := repo.Bulk(context.Background(), docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if errs[0] != nil || errs[1] == nil || errs[2] != nil {
		t.Errorf("errs = %v", errs)
	}
}

func TestBulk_RequestFailure(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.bulkWriteFn = func(context.Context, string, []db.Doc) ([]db.BulkOutcome, error) {
		return nil, db.Unavailable(db.OpBulk, errors.New("connection reset"))
	}

	_, err := repo.Bulk(context.Background(), []domdoc.Document{testDocument(t, 1)})
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestBulk_OutcomeCountMismatch(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.bulkWriteFn = func(context.Context, string, []db.Doc) ([]db.BulkOutcome, error) {
		return []db.BulkOutcome{}, nil
	}

	if _, err := repo.Bulk(context.Background(), []domdoc.Document{testDocument(t, 1)}); err == nil {
		t.Fatal("expected error")
	}
}

// --- Search ---

func TestSearch_BuildsQueryAndFiltersType(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(_ context.Context, q *db.Query) (*db.SearchResult, error) {
		if q.Index != "elastic" || q.Type != "post" || q.Text != "go" || q.Limit != 5 || q.Offset != 10 {
			t.Errorf("query = %+v", q)
		}
		if len(q.Terms) != 1 || q.Terms[0].Field != "content_type" || q.Terms[0].Value != "blog_post" {
			t.Errorf("terms = %+v", q.Terms)
		}
		if !slices.Equal(q.ReturnFields, []string{"pk"}) {
			t.Errorf("return fields = %v", q.ReturnFields)
		}
		return &db.SearchResult{Total: 3, Hits: []db.Hit{
			{Type: "post", ID: "5", Fields: map[string]string{"pk": "5"}},
			{Type: "page", ID: "1"},
			{Type: "post", ID: "2"},
		}}, nil
	}

	c, _ := filter.NewMatch("content_type", "blog_post")
	f, _ := filter.NewExpression(c)
	req, err := request.New("go", f, 5, 10)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	page, err := repo.Search(context.Background(), "post", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 3 || len(page.Results) != 2 || page.Results[0].ID() != "5" || page.Results[1].ID() != "2" {
		t.Errorf("page = %+v", page)
	}
}

func TestSearch_TextNotSupported(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(context.Context, *db.Query) (*db.SearchResult, error) {
		return nil, db.ErrTextSearchNotSupported
	}

	req, _ := request.New("x", filter.Expression{}, 0, 0)
	_, err := repo.Search(context.Background(), "post", req)
	if !errors.Is(err, domain.ErrTextSearchNotSupported) {
		t.Fatalf("expected ErrTextSearchNotSupported, got %v", err)
	}
}
