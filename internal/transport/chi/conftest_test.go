package chi

import (
	"context"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dombatch "github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
	"github.com/kailas-cloud/indexsync/internal/domain/search/request"
	"github.com/kailas-cloud/indexsync/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/indexsync/internal/usecase/health"
	"github.com/kailas-cloud/indexsync/internal/usecase/notify"
	searchuc "github.com/kailas-cloud/indexsync/internal/usecase/search"
)

type mockRebuilder struct {
	rebuildFn func(ctx context.Context) (*dombatch.Report, error)
}

func (m *mockRebuilder) Rebuild(ctx context.Context) (*dombatch.Report, error) {
	return m.rebuildFn(ctx)
}

type mockMutator struct {
	addFn    func(ctx context.Context, t *entity.Type, e entity.Entity) error
	deleteFn func(ctx context.Context, t *entity.Type, e entity.Entity) error
}

func (m *mockMutator) AddDocument(ctx context.Context, t *entity.Type, e entity.Entity) error {
	if m.addFn != nil {
		return m.addFn(ctx, t, e)
	}
	return nil
}

func (m *mockMutator) DeleteDocument(ctx context.Context, t *entity.Type, e entity.Entity) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, t, e)
	}
	return nil
}

type mockPublisher struct {
	published []notify.Change
	publishFn func(ctx context.Context, c notify.Change) error
}

func (m *mockPublisher) Publish(ctx context.Context, c notify.Change) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, c); err != nil {
			return err
		}
	}
	m.published = append(m.published, c)
	return nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type mockIndex struct {
	searchFn func(ctx context.Context, mappingName string, req request.Request) (*result.Page, error)
}

func (m *mockIndex) Search(ctx context.Context, mappingName string, req request.Request) (*result.Page, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, mappingName, req)
	}
	return &result.Page{}, nil
}

// rowSource serves rows from memory.
type rowSource struct {
	rows map[int64]entity.Row
}

func (s *rowSource) All(context.Context) iter.Seq2[entity.Entity, error] {
	return func(yield func(entity.Entity, error) bool) {
		for _, r := range s.rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (s *rowSource) FetchByPKs(_ context.Context, pks []int64) ([]entity.Entity, error) {
	var out []entity.Entity
	for _, pk := range pks {
		if r, ok := s.rows[pk]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type testEnv struct {
	server    *Server
	handler   http.Handler
	rebuilder *mockRebuilder
	mutator   *mockMutator
	publisher *mockPublisher
	index     *mockIndex
	health    *mockHealth
	postType  *entity.Type
}

func newTestEnv(t *testing.T, apiKeys ...string) *testEnv {
	t.Helper()
	src := &rowSource{rows: map[int64]entity.Row{
		2: entity.NewRow(2, map[string]any{"title": "two"}),
		5: entity.NewRow(5, map[string]any{"title": "five"}),
		9: entity.NewRow(9, map[string]any{"title": "nine"}),
	}}
	post := entity.MustType("blog", "Post",
		entity.WithSource(src),
		entity.WithSchema(func(b *schema.Builder) { b.Text("title") }),
	)
	reg := entity.NewRegistry()
	reg.MustRegister(post)

	env := &testEnv{
		rebuilder: &mockRebuilder{},
		mutator:   &mockMutator{},
		publisher: &mockPublisher{},
		index:     &mockIndex{},
		health:    &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
		postType:  post,
	}
	env.server = NewServer(
		env.rebuilder, env.mutator, searchuc.New(env.index), env.publisher, reg, env.health, nil,
	)
	env.handler = env.server.Router(apiKeys)
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func newRecorder() *httptest.ResponseRecorder { return httptest.NewRecorder() }
