package indexsync

import (
	"context"
	"fmt"

	searchuc "github.com/kailas-cloud/indexsync/internal/usecase/search"
)

// SearchBuilder is a fluent builder for typed search queries. Results are
// loaded from the database in hit order; hits whose row no longer exists
// are dropped.
type SearchBuilder[T any] struct {
	idx *Index[T]
	q   *searchuc.Query
}

// Match adds a free text query over the text fields.
func (b *SearchBuilder[T]) Match(text string) *SearchBuilder[T] {
	b.q.Match(text)
	return b
}

// Where adds an exact match filter.
func (b *SearchBuilder[T]) Where(field string, value any) *SearchBuilder[T] {
	b.q.Where(field, value)
	return b
}

// Limit sets the maximum number of results.
func (b *SearchBuilder[T]) Limit(n int) *SearchBuilder[T] {
	b.q.Limit(n)
	return b
}

// Offset skips the first n hits.
func (b *SearchBuilder[T]) Offset(n int) *SearchBuilder[T] {
	b.q.Offset(n)
	return b
}

// Do executes the search and returns typed results.
func (b *SearchBuilder[T]) Do(ctx context.Context) ([]T, error) {
	if b.idx.table == nil {
		return nil, ErrNoTable
	}
	ents, err := b.q.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	out := make([]T, 0, len(ents))
	for _, e := range ents {
		item, err := b.idx.convert(e)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}
