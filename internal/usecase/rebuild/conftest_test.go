package rebuild

import (
	"context"
	"iter"
	"sync"

	domdoc "github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
	"github.com/kailas-cloud/indexsync/internal/usecase/mapping"
)

// --- Mocks ---

type mockIndex struct {
	mu sync.Mutex

	resetFn      func(ctx context.Context) error
	putMappingFn func(ctx context.Context, s schema.Schema) error
	bulkFn       func(ctx context.Context, docs []domdoc.Document) ([]error, error)
	refreshFn    func(ctx context.Context) error

	calls   []string
	batches [][]domdoc.Document
}

func (m *mockIndex) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockIndex) Reset(ctx context.Context) error {
	m.record("reset")
	if m.resetFn != nil {
		return m.resetFn(ctx)
	}
	return nil
}

func (m *mockIndex) PutMapping(ctx context.Context, s schema.Schema) error {
	m.record("mapping:" + s.MappingName())
	if m.putMappingFn != nil {
		return m.putMappingFn(ctx, s)
	}
	return nil
}

func (m *mockIndex) Bulk(ctx context.Context, docs []domdoc.Document) ([]error, error) {
	m.record("bulk")
	m.mu.Lock()
	m.batches = append(m.batches, docs)
	m.mu.Unlock()
	if m.bulkFn != nil {
		return m.bulkFn(ctx, docs)
	}
	return make([]error, len(docs)), nil
}

func (m *mockIndex) Refresh(ctx context.Context) error {
	m.record("refresh")
	if m.refreshFn != nil {
		return m.refreshFn(ctx)
	}
	return nil
}

type mockLocker struct {
	err      error
	released bool
}

func (m *mockLocker) TryAcquire() (func() error, error) {
	if m.err != nil {
		return nil, m.err
	}
	return func() error {
		m.released = true
		return nil
	}, nil
}

// sliceSource serves rows from memory. err is yielded after the rows.
type sliceSource struct {
	rows []entity.Row
	err  error
}

func (s *sliceSource) All(context.Context) iter.Seq2[entity.Entity, error] {
	return func(yield func(entity.Entity, error) bool) {
		for _, r := range s.rows {
			if !yield(r, nil) {
				return
			}
		}
		if s.err != nil {
			yield(nil, s.err)
		}
	}
}

func (s *sliceSource) FetchByPKs(context.Context, []int64) ([]entity.Entity, error) {
	return nil, nil
}

// --- Fixtures ---

func postRows(n int) []entity.Row {
	rows := make([]entity.Row, n)
	for i := range rows {
		rows[i] = entity.NewRow(int64(i+1), map[string]any{"title": "post"})
	}
	return rows
}

func postType(src entity.Source) *entity.Type {
	return entity.MustType("blog", "Post",
		entity.WithSource(src),
		entity.WithSchema(func(b *schema.Builder) { b.Text("title") }),
	)
}

func newTestService(idx *mockIndex, types ...*entity.Type) *Service {
	reg := entity.NewRegistry()
	reg.MustRegister(types...)
	return New(idx, reg, mapping.NewEncoder(mapping.NewDeriver(), "elastic"))
}
