package indexsync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listing struct {
	ID        int64     `indexsync:"id,pk"`
	Title     string    `indexsync:"title,text"`
	Published bool      `indexsync:"published"`
	ListedAt  time.Time `indexsync:"listed_at"`
}

func openListingsDB(t *testing.T, sqlDB *sql.DB) {
	t.Helper()
	_, err := sqlDB.Exec(`CREATE TABLE listings (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		published INTEGER NOT NULL,
		listed_at TEXT NOT NULL
	)`)
	require.NoError(t, err)
	_, err = sqlDB.Exec(`INSERT INTO listings (id, title, published, listed_at) VALUES
		(1, 'hello', 1, '2026-03-01T10:00:00Z'),
		(2, 'draft', 0, '2026-03-02 08:30:00')`)
	require.NoError(t, err)
}

func TestIndex_TableAndStructEncodeIdentically(t *testing.T) {
	e, sqlDB := newTestEngine(t)
	openListingsDB(t, sqlDB)
	listings, err := NewIndex[listing](e, "shop", "Item", Table("listings"))
	require.NoError(t, err)
	ctx := context.Background()

	stored, err := listings.table.Get(ctx, 1)
	require.NoError(t, err)
	fromTable, err := e.encoder.Encode(ctx, listings.typ, stored)
	require.NoError(t, err)

	item := listing{ID: 1, Title: "hello", Published: true,
		ListedAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.FixedZone("CET", 3600))}
	fromStruct, err := e.encoder.Encode(ctx, listings.typ, listings.meta.toRow(item))
	require.NoError(t, err)

	a, err := json.Marshal(fromTable)
	require.NoError(t, err)
	b, err := json.Marshal(fromStruct)
	require.NoError(t, err)
	assert.JSONEq(t, string(b), string(a))
	assert.JSONEq(t,
		`{"pk":1,"content_type":"shop_item","title":"hello","published":true,"listed_at":"2026-03-01T10:00:00Z"}`,
		string(a))
}

func TestIndex_BooleanFilterAfterRebuild(t *testing.T) {
	e, sqlDB := newTestEngine(t)
	openListingsDB(t, sqlDB)
	listings, err := NewIndex[listing](e, "shop", "Item", Table("listings"))
	require.NoError(t, err)
	ctx := context.Background()

	report, err := e.Rebuild(ctx)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	got, err := listings.Search().Where("published", true).Do(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.True(t, got[0].ListedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))

	got, err = listings.Search().Where("published", false).Do(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

type rankedPost struct {
	ID      int64  `indexsync:"id,pk"`
	Title   string `indexsync:"title,text"`
	Slug    string `indexsync:"slug,keyword"`
	Views   int    `indexsync:"views"`
	Popular bool   `indexsync:"popular,computed"`
}

func popular(_ context.Context, p rankedPost) (any, error) {
	return p.Views >= 20, nil
}

func TestIndex_ComputedField(t *testing.T) {
	e, sqlDB := newTestEngine(t)
	posts, err := NewIndex[rankedPost](e, "blog", "Post", Table("posts"), Computed("popular", popular))
	require.NoError(t, err)
	ctx := context.Background()

	report, err := e.Rebuild(ctx)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	got, err := posts.Search().Where("popular", true).Do(ctx)
	require.NoError(t, err)
	var pks []int64
	for _, p := range got {
		pks = append(pks, p.ID)
		assert.False(t, p.Popular, "computed fields are not loaded")
	}
	assert.ElementsMatch(t, []int64{2, 3}, pks)

	// a point write ignores the struct value and computes it too
	p := rankedPost{ID: 4, Title: "Fresh", Slug: "fresh", Views: 1, Popular: true}
	insertPost(t, sqlDB, post{ID: p.ID, Title: p.Title, Slug: p.Slug, Views: p.Views})
	require.NoError(t, posts.Add(ctx, p))
	require.NoError(t, e.Refresh(ctx))

	got, err = posts.Search().Where("popular", false).Do(ctx)
	require.NoError(t, err)
	pks = pks[:0]
	for _, p := range got {
		pks = append(pks, p.ID)
	}
	assert.ElementsMatch(t, []int64{1, 4}, pks)
}

func TestIndex_ComputedFieldWithoutAccessor(t *testing.T) {
	e, _ := newTestEngine(t)
	posts, err := NewIndex[rankedPost](e, "blog", "Post", Table("posts"))
	require.NoError(t, err)
	ctx := context.Background()

	report, err := e.Rebuild(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, report.Err(), ErrPartialBulkFailure)
	require.Len(t, report.Failures, 3)
	for _, f := range report.Failures {
		assert.ErrorIs(t, f.Err, ErrSchemaFieldUnresolvable)
	}

	err = posts.Add(ctx, rankedPost{ID: 9, Title: "x", Slug: "x"})
	assert.ErrorIs(t, err, ErrSchemaFieldUnresolvable)
}

func TestIndex_ComputedAccessorError(t *testing.T) {
	e, _ := newTestEngine(t)
	boom := errors.New("boom")
	posts, err := NewIndex[rankedPost](e, "blog", "Post", Computed("popular",
		func(context.Context, rankedPost) (any, error) { return nil, boom }))
	require.NoError(t, err)

	err = posts.Add(context.Background(), rankedPost{ID: 1, Title: "x", Slug: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestNewIndex_ComputedOptionMismatch(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := NewIndex[rankedPost](e, "blog", "Post", Computed("views", popular))
	require.ErrorIs(t, err, ErrInvalidSchema)

	// an option written for another model fails when it runs
	other, err := NewIndex[rankedPost](e, "blog", "Other", Computed("popular",
		func(context.Context, post) (any, error) { return true, nil }))
	require.NoError(t, err)
	err = other.Add(context.Background(), rankedPost{ID: 1, Title: "x", Slug: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "option expects")
}
