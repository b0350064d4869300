package bleve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/indexsync/internal/db"
)

func postMapping() *db.Mapping {
	return db.NewMapping("post").
		Integer("pk").
		Keyword("content_type").
		Text("title").
		Boolean("published").
		MustBuild()
}

func post(id string, pk int64, title string, published bool) db.Doc {
	return db.Doc{
		Type: "post",
		ID:   id,
		Fields: []db.Field{
			{Name: "pk", Value: pk},
			{Name: "content_type", Value: "blog_post"},
			{Name: "title", Value: title},
			{Name: "published", Value: published},
		},
	}
}

func newIndexed(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := NewStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.CreateIndex(ctx, "elastic"))
	require.NoError(t, s.PutMapping(ctx, "elastic", postMapping()))
	return s
}

func TestStore_CreateIndex_Exists(t *testing.T) {
	// Given: a store with an index
	s := newIndexed(t, "")

	// When: the index is created again
	err := s.CreateIndex(context.Background(), "elastic")

	// Then: ErrIndexExists is returned
	assert.ErrorIs(t, err, db.ErrIndexExists)
}

func TestStore_DropIndex(t *testing.T) {
	s := newIndexed(t, "")
	ctx := context.Background()

	require.NoError(t, s.DropIndex(ctx, "elastic"))

	ok, err := s.IndexExists(ctx, "elastic")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, s.DropIndex(ctx, "elastic"), db.ErrIndexNotFound)
	assert.ErrorIs(t, s.RefreshIndex(ctx, "elastic"), db.ErrIndexNotFound)
}

func TestStore_IndexAndSearch(t *testing.T) {
	// Given: three indexed posts
	s := newIndexed(t, "")
	ctx := context.Background()
	require.NoError(t, s.IndexDocument(ctx, "elastic", post("1", 1, "Hello world", true)))
	require.NoError(t, s.IndexDocument(ctx, "elastic", post("2", 2, "Goodbye world", false)))
	require.NoError(t, s.IndexDocument(ctx, "elastic", post("3", 3, "Something else", true)))
	require.NoError(t, s.RefreshIndex(ctx, "elastic"))

	// When: searching free text
	res, err := s.Search(ctx, &db.Query{Index: "elastic", Type: "post", Text: "world", ReturnFields: []string{"pk"}})
	require.NoError(t, err)

	// Then: both matching posts are returned with their pk
	require.Len(t, res.Hits, 2)
	assert.Equal(t, 2, res.Total)
	pks := []string{res.Hits[0].Fields["pk"], res.Hits[1].Fields["pk"]}
	assert.ElementsMatch(t, []string{"1", "2"}, pks)
	assert.Equal(t, "post", res.Hits[0].Type)
}

func TestStore_SearchTerms(t *testing.T) {
	s := newIndexed(t, "")
	ctx := context.Background()
	_, err := s.BulkWrite(ctx, "elastic", []db.Doc{
		post("1", 1, "Hello world", true),
		post("2", 2, "Goodbye world", false),
		post("3", 3, "Something else", true),
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		terms []db.Term
		want  []string
	}{
		{"keyword", []db.Term{{Field: "content_type", Value: "blog_post"}}, []string{"1", "2", "3"}},
		{"numeric", []db.Term{{Field: "pk", Value: int64(2)}}, []string{"2"}},
		{"boolean", []db.Term{{Field: "published", Value: true}}, []string{"1", "3"}},
		{"conjunction", []db.Term{
			{Field: "content_type", Value: "blog_post"},
			{Field: "published", Value: false},
		}, []string{"2"}},
		{"no match", []db.Term{{Field: "content_type", Value: "blog_page"}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Search(ctx, &db.Query{Index: "elastic", Terms: tt.terms})
			require.NoError(t, err)

			ids := make([]string, 0, len(res.Hits))
			for _, h := range res.Hits {
				ids = append(ids, h.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_SearchPagination(t *testing.T) {
	s := newIndexed(t, "")
	ctx := context.Background()
	docs := []db.Doc{post("1", 1, "a", true), post("2", 2, "b", true), post("3", 3, "c", true)}
	_, err := s.BulkWrite(ctx, "elastic", docs)
	require.NoError(t, err)

	res, err := s.Search(ctx, &db.Query{Index: "elastic", Offset: 1, Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "2", res.Hits[0].ID)
}

func TestStore_IndexDocument_Replaces(t *testing.T) {
	s := newIndexed(t, "")
	ctx := context.Background()
	require.NoError(t, s.IndexDocument(ctx, "elastic", post("1", 1, "first title", true)))
	require.NoError(t, s.IndexDocument(ctx, "elastic", post("1", 1, "second title", true)))

	res, err := s.Search(ctx, &db.Query{Index: "elastic", Text: "first"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	res, err = s.Search(ctx, &db.Query{Index: "elastic", Text: "second"})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 1)
}

func TestStore_DeleteDocument(t *testing.T) {
	s := newIndexed(t, "")
	ctx := context.Background()
	require.NoError(t, s.IndexDocument(ctx, "elastic", post("1", 1, "Hello", true)))

	require.NoError(t, s.DeleteDocument(ctx, "elastic", "post", "1"))
	assert.ErrorIs(t, s.DeleteDocument(ctx, "elastic", "post", "1"), db.ErrDocumentNotFound)
}

func TestStore_BulkWrite_RejectsInvalidDocument(t *testing.T) {
	s := newIndexed(t, "")
	ctx := context.Background()

	out, err := s.BulkWrite(ctx, "elastic", []db.Doc{
		post("1", 1, "ok", true),
		{Type: "post"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NoError(t, out[0].Err)
	assert.Error(t, out[1].Err)
}

func TestStore_UnknownIndex(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.Search(context.Background(), &db.Query{Index: "missing"})
	assert.ErrorIs(t, err, db.ErrIndexNotFound)
	assert.ErrorIs(t, s.IndexDocument(context.Background(), "missing", post("1", 1, "x", true)), db.ErrIndexNotFound)
}

func TestStore_Closed(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(context.Background()), db.ErrUnavailable)
	assert.ErrorIs(t, s.CreateIndex(context.Background(), "elastic"), db.ErrUnavailable)
}

func TestStore_ReopenRestoresMappings(t *testing.T) {
	// Given: an on-disk index with a registered mapping and one document
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.CreateIndex(ctx, "elastic"))
	require.NoError(t, s.PutMapping(ctx, "elastic", postMapping()))
	require.NoError(t, s.IndexDocument(ctx, "elastic", post("1", 1, "persisted title", true)))
	require.NoError(t, s.Close())

	// When: the directory is opened by a new store
	s2, err := NewStore(dir)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	ok, err := s2.IndexExists(ctx, "elastic")
	require.NoError(t, err)
	require.True(t, ok)

	// Then: text search still uses the text field mapping
	require.NoError(t, s2.IndexDocument(ctx, "elastic", post("2", 2, "another title", false)))
	res, err := s2.Search(ctx, &db.Query{Index: "elastic", Text: "title"})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 2)
}
