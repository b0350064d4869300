package batch

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/indexsync/internal/domain"
)

func TestNewOK(t *testing.T) {
	r := NewOK("blog_post", 1)
	if r.ContentType() != "blog_post" || r.PK() != 1 {
		t.Errorf("got %q/%d", r.ContentType(), r.PK())
	}
	if r.Status() != StatusOK || !r.OK() {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusOK)
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestNewError(t *testing.T) {
	err := errors.New("something failed")
	r := NewError("blog_post", 2, err)
	if r.Status() != StatusError || r.OK() {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusError)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
}

func TestReport_Counts(t *testing.T) {
	start := time.Unix(100, 0)
	rep := NewReport("run-1", start)
	rep.Touch("empty_type")
	for i := int64(1); i <= 10; i++ {
		if i == 3 || i == 5 || i == 8 {
			rep.Add(NewError("blog_post", i, errors.New("rejected")))
			continue
		}
		rep.Add(NewOK("blog_post", i))
	}
	rep.Finish(start.Add(2 * time.Second))

	if rep.RunID() != "run-1" {
		t.Errorf("RunID() = %q", rep.RunID())
	}
	if rep.Total() != 10 || rep.Indexed() != 7 {
		t.Errorf("Total/Indexed = %d/%d, want 10/7", rep.Total(), rep.Indexed())
	}
	if rep.Duration() != 2*time.Second {
		t.Errorf("Duration() = %v", rep.Duration())
	}

	types := rep.Types()
	if len(types) != 2 || types[0].ContentType != "empty_type" || types[1].Failed != 3 {
		t.Errorf("Types() = %+v", types)
	}

	failures := rep.Failures()
	if len(failures) != 3 || failures[0].PK() != 3 || failures[2].PK() != 8 {
		t.Errorf("Failures() = %+v", failures)
	}

	err := rep.Err()
	if !errors.Is(err, domain.ErrPartialBulkFailure) {
		t.Fatalf("Err() = %v, want ErrPartialBulkFailure", err)
	}
	var pbf *domain.PartialBulkFailureError
	if !errors.As(err, &pbf) || pbf.Failed != 3 || pbf.Total != 10 {
		t.Errorf("PartialBulkFailureError = %+v", pbf)
	}
}

func TestReport_NoFailures(t *testing.T) {
	rep := NewReport("run-2", time.Now())
	rep.Add(NewOK("a", 1))
	if err := rep.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
	if rep.Duration() != 0 {
		t.Error("unfinished report should have zero duration")
	}
}
