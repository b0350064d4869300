package entity

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/indexsync/internal/domain"
	domentity "github.com/kailas-cloud/indexsync/internal/domain/entity"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), "sqlite", ":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE posts (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		body TEXT,
		published INTEGER NOT NULL DEFAULT 0
	)`)
	require.NoError(t, err)
	for i, title := range []string{"one", "two", "three", "four", "five"} {
		_, err := db.Exec(`INSERT INTO posts (id, title, body, published) VALUES (?, ?, ?, ?)`,
			i+1, title, "body "+title, i%2)
		require.NoError(t, err)
	}
	return db
}

func postsTable(t *testing.T, db *sql.DB, cfg TableConfig) *Table {
	t.Helper()
	if cfg.Table == "" {
		cfg.Table = "posts"
	}
	if cfg.Columns == nil {
		cfg.Columns = []Column{{Field: "title"}, {Field: "text", Column: "body"}}
	}
	tbl, err := NewTable(db, cfg)
	require.NoError(t, err)
	return tbl
}

func collect(t *testing.T, tbl *Table) []int64 {
	t.Helper()
	var pks []int64
	for e, err := range tbl.All(context.Background()) {
		require.NoError(t, err)
		pks = append(pks, e.PK())
	}
	return pks
}

func TestTable_All_PagesInKeyOrder(t *testing.T) {
	// Given: five rows and a page size that does not divide them evenly
	db := openTestDB(t)
	tbl := postsTable(t, db, TableConfig{PageSize: 2})

	// When: enumerating
	pks := collect(t, tbl)

	// Then: every row is yielded once, in primary key order
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, pks)
}

func TestTable_All_Where(t *testing.T) {
	db := openTestDB(t)
	tbl := postsTable(t, db, TableConfig{Where: "published = 1", PageSize: 1})

	assert.Equal(t, []int64{2, 4}, collect(t, tbl))
}

func TestTable_All_StopsEarly(t *testing.T) {
	db := openTestDB(t)
	tbl := postsTable(t, db, TableConfig{PageSize: 2})

	var seen int
	for _, err := range tbl.All(context.Background()) {
		require.NoError(t, err)
		seen++
		if seen == 3 {
			break
		}
	}
	assert.Equal(t, 3, seen)
}

func TestTable_All_Restartable(t *testing.T) {
	db := openTestDB(t)
	tbl := postsTable(t, db, TableConfig{})

	assert.Equal(t, collect(t, tbl), collect(t, tbl))
}

func TestTable_All_QueryError(t *testing.T) {
	db := openTestDB(t)
	tbl := postsTable(t, db, TableConfig{Table: "missing"})

	var gotErr error
	for _, err := range tbl.All(context.Background()) {
		gotErr = err
	}
	assert.Error(t, gotErr)
}

func TestTable_FieldValues(t *testing.T) {
	db := openTestDB(t)
	tbl := postsTable(t, db, TableConfig{})

	e, err := tbl.Get(context.Background(), 3)
	require.NoError(t, err)

	row, ok := e.(domentity.Row)
	require.True(t, ok)
	title, _ := row.Field("title")
	text, _ := row.Field("text")
	assert.Equal(t, "three", title)
	assert.Equal(t, "body three", text)
	_, ok = row.Field("body")
	assert.False(t, ok, "columns are exposed under their field name")
}

func TestTable_FetchByPKs(t *testing.T) {
	db := openTestDB(t)
	tbl := postsTable(t, db, TableConfig{})

	got, err := tbl.FetchByPKs(context.Background(), []int64{5, 2, 9, 2})
	require.NoError(t, err)

	pks := make([]int64, 0, len(got))
	for _, e := range got {
		pks = append(pks, e.PK())
	}
	assert.ElementsMatch(t, []int64{2, 5}, pks)
}

func TestTable_FetchByPKs_Empty(t *testing.T) {
	db := openTestDB(t)
	tbl := postsTable(t, db, TableConfig{})

	got, err := tbl.FetchByPKs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTable_Get_NotFound(t *testing.T) {
	db := openTestDB(t)
	tbl := postsTable(t, db, TableConfig{})

	_, err := tbl.Get(context.Background(), 42)
	assert.True(t, errors.Is(err, domain.ErrEntityNotFound))
}

func TestNewTable_Validation(t *testing.T) {
	db := openTestDB(t)
	tests := []struct {
		name string
		cfg  TableConfig
	}{
		{"bad table", TableConfig{Table: "posts; DROP TABLE posts"}},
		{"bad pk", TableConfig{Table: "posts", PrimaryKey: "id--"}},
		{"bad column", TableConfig{Table: "posts", Columns: []Column{{Field: "x", Column: "a b"}}}},
		{"empty field", TableConfig{Table: "posts", Columns: []Column{{Column: "title"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(db, tt.cfg)
			assert.Error(t, err)
		})
	}
	_, err := NewTable(nil, TableConfig{Table: "posts"})
	assert.Error(t, err)
}
