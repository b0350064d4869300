package rebuild

import (
	"context"
	"errors"
	"slices"
	"testing"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/indexsync/internal/domain"
	domdoc "github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
)

// --- Rebuild ---

func TestRebuild_Order(t *testing.T) {
	idx := &mockIndex{}
	svc := newTestService(idx, postType(&sliceSource{rows: postRows(2)}))

	report, err := svc.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"reset", "mapping:post", "bulk", "refresh"}
	if !slices.Equal(idx.calls, want) {
		t.Errorf("calls = %v, want %v", idx.calls, want)
	}
	if report.Indexed() != 2 || report.Err() != nil {
		t.Errorf("indexed = %d, err = %v", report.Indexed(), report.Err())
	}
	if report.RunID() == "" {
		t.Error("expected run id")
	}
}

func TestRebuild_SkipsAbstractTypes(t *testing.T) {
	idx := &mockIndex{}
	base := entity.MustType("blog", "Entry", entity.Abstract(),
		entity.WithSchema(func(b *schema.Builder) { b.Text("title") }))
	post := entity.MustType("blog", "Post", entity.WithParent(base),
		entity.WithSource(&sliceSource{rows: postRows(1)}))

	report, err := newTestService(idx, base, post).Rebuild(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slices.Contains(idx.calls, "mapping:entry") {
		t.Error("abstract type mapping should not be saved")
	}
	types := report.Types()
	if len(types) != 1 || types[0].ContentType != "blog_entry_blog_post" {
		t.Errorf("types = %+v", types)
	}
}

func TestRebuild_Batches(t *testing.T) {
	idx := &mockIndex{}
	svc := newTestService(idx, postType(&sliceSource{rows: postRows(1200)}))

	if _, err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sizes []int
	for _, b := range idx.batches {
		sizes = append(sizes, len(b))
	}
	if !slices.Equal(sizes, []int{500, 500, 200}) {
		t.Errorf("batch sizes = %v", sizes)
	}
}

func TestRebuild_PartialBulkFailure(t *testing.T) {
	idx := &mockIndex{
		bulkFn: func(_ context.Context, docs []domdoc.Document) ([]error, error) {
			errs := make([]error, len(docs))
			for i, d := range docs {
				if d.ID() == 2 || d.ID() == 5 || d.ID() == 9 {
					errs[i] = errors.New("mapper_parsing_exception")
				}
			}
			return errs, nil
		},
	}
	svc := newTestService(idx, postType(&sliceSource{rows: postRows(10)})).WithBatchSize(4)

	report, err := svc.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("partial failure must not abort: %v", err)
	}
	if report.Indexed() != 7 {
		t.Errorf("indexed = %d, want 7", report.Indexed())
	}
	var pks []int64
	for _, f := range report.Failures() {
		pks = append(pks, f.PK())
	}
	if !slices.Equal(pks, []int64{2, 5, 9}) {
		t.Errorf("failed pks = %v", pks)
	}

	var pbe *domain.PartialBulkFailureError
	if !errors.As(report.Err(), &pbe) || pbe.Failed != 3 || pbe.Total != 10 {
		t.Errorf("report error = %v", report.Err())
	}
	if !errors.Is(report.Err(), domain.ErrPartialBulkFailure) {
		t.Error("expected ErrPartialBulkFailure")
	}
	if idx.calls[len(idx.calls)-1] != "refresh" {
		t.Error("index should still be refreshed")
	}
}

func TestRebuild_EncodeFailureRecorded(t *testing.T) {
	idx := &mockIndex{}
	rows := []entity.Row{
		entity.NewRow(1, map[string]any{"title": "ok"}),
		entity.NewRow(2, map[string]any{}),
		entity.NewRow(3, map[string]any{"title": "ok"}),
	}

	report, err := newTestService(idx, postType(&sliceSource{rows: rows})).Rebuild(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idx.batches) != 1 || len(idx.batches[0]) != 2 {
		t.Errorf("expected one bulk of 2 docs, got %v", idx.batches)
	}
	failures := report.Failures()
	if len(failures) != 1 || failures[0].PK() != 2 {
		t.Fatalf("failures = %v", failures)
	}
	if !errors.Is(failures[0].Err(), domain.ErrSchemaFieldUnresolvable) {
		t.Errorf("expected ErrSchemaFieldUnresolvable, got %v", failures[0].Err())
	}
}

func TestRebuild_BackendUnavailableAborts(t *testing.T) {
	idx := &mockIndex{
		bulkFn: func(context.Context, []domdoc.Document) ([]error, error) {
			return nil, domain.ErrBackendUnavailable
		},
	}
	svc := newTestService(idx, postType(&sliceSource{rows: postRows(3)}))

	_, err := svc.Rebuild(context.Background())
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if slices.Contains(idx.calls, "refresh") {
		t.Error("aborted rebuild must not refresh")
	}
}

func TestRebuild_RequestErrorFailsBatch(t *testing.T) {
	idx := &mockIndex{
		bulkFn: func(context.Context, []domdoc.Document) ([]error, error) {
			return nil, errors.New("bulk write: 0 outcomes for 3 documents")
		},
	}
	report, err := newTestService(idx, postType(&sliceSource{rows: postRows(3)})).Rebuild(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Failures()) != 3 {
		t.Errorf("failures = %d, want 3", len(report.Failures()))
	}
}

func TestRebuild_SourceErrorAborts(t *testing.T) {
	idx := &mockIndex{}
	boom := errors.New("no such table: posts")
	svc := newTestService(idx, postType(&sliceSource{rows: postRows(2), err: boom}))

	_, err := svc.Rebuild(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestRebuild_ResetFailure(t *testing.T) {
	idx := &mockIndex{resetFn: func(context.Context) error { return domain.ErrBackendUnavailable }}

	_, err := newTestService(idx, postType(&sliceSource{})).Rebuild(context.Background())
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if len(idx.calls) != 1 {
		t.Errorf("calls = %v", idx.calls)
	}
}

func TestRebuild_Locked(t *testing.T) {
	idx := &mockIndex{}
	lock := &mockLocker{err: domain.ErrRebuildInProgress}
	svc := newTestService(idx, postType(&sliceSource{})).WithLock(lock)

	if _, err := svc.Rebuild(context.Background()); !errors.Is(err, domain.ErrRebuildInProgress) {
		t.Fatalf("expected ErrRebuildInProgress, got %v", err)
	}
	if len(idx.calls) != 0 {
		t.Errorf("calls = %v", idx.calls)
	}
}

func TestRebuild_ReleasesLock(t *testing.T) {
	lock := &mockLocker{}
	svc := newTestService(&mockIndex{}, postType(&sliceSource{})).WithLock(lock)

	if _, err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lock.released {
		t.Error("lock not released")
	}
}

func TestRebuild_Observer(t *testing.T) {
	var events []Event
	svc := newTestService(&mockIndex{}, postType(&sliceSource{rows: postRows(2)})).
		WithObserver(func(e Event) { events = append(events, e) }).
		WithLimiter(rate.NewLimiter(rate.Inf, 1))

	if _, err := svc.Rebuild(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []EventKind{EventMappingSaved, EventDocumentIndexed, EventDocumentIndexed}
	var got []EventKind
	for _, e := range events {
		got = append(got, e.Kind)
	}
	if !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if events[0].MappingName != "post" || events[2].PK != 2 {
		t.Errorf("events = %+v", events)
	}
}

// --- Steps ---

func TestResetIndex_Idempotent(t *testing.T) {
	idx := &mockIndex{}
	svc := newTestService(idx)

	for range 2 {
		if err := svc.ResetIndex(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !slices.Equal(idx.calls, []string{"reset", "reset"}) {
		t.Errorf("calls = %v", idx.calls)
	}
}

func TestIndexDocuments_NoReset(t *testing.T) {
	idx := &mockIndex{}
	report, err := newTestService(idx, postType(&sliceSource{rows: postRows(1)})).IndexDocuments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(idx.calls, []string{"mapping:post", "bulk"}) {
		t.Errorf("calls = %v", idx.calls)
	}
	if report.Total() != 1 {
		t.Errorf("total = %d", report.Total())
	}
}

func TestIndexDocuments_MappingFailure(t *testing.T) {
	idx := &mockIndex{putMappingFn: func(context.Context, schema.Schema) error {
		return domain.ErrBackendUnavailable
	}}
	_, err := newTestService(idx, postType(&sliceSource{rows: postRows(1)})).IndexDocuments(context.Background())
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestRefreshIndex_Error(t *testing.T) {
	idx := &mockIndex{refreshFn: func(context.Context) error { return domain.ErrBackendUnavailable }}
	if err := newTestService(idx).RefreshIndex(context.Background()); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestEventKind_String(t *testing.T) {
	if EventMappingSaved.String() != "mapping_saved" || EventKind(99).String() != "unknown" {
		t.Error("unexpected event kind names")
	}
}
