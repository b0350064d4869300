package indexsync

import (
	"time"

	dombatch "github.com/kailas-cloud/indexsync/internal/domain/batch"
)

// Report summarizes a bulk indexing run.
type Report struct {
	RunID    string
	Duration time.Duration
	Total    int
	Indexed  int
	Types    []TypeCount
	Failures []Failure

	err error
}

// TypeCount holds per content type outcome counts.
type TypeCount struct {
	ContentType string
	Indexed     int
	Failed      int
}

// Failure is one document the run could not index.
type Failure struct {
	ContentType string
	PK          int64
	Err         error
}

// Err returns an error wrapping ErrPartialBulkFailure when any document failed.
func (r *Report) Err() error { return r.err }

func fromReport(r *dombatch.Report) *Report {
	if r == nil {
		return nil
	}
	out := &Report{
		RunID:    r.RunID(),
		Duration: r.Duration(),
		Total:    r.Total(),
		Indexed:  r.Indexed(),
		err:      r.Err(),
	}
	for _, tc := range r.Types() {
		out.Types = append(out.Types, TypeCount{
			ContentType: tc.ContentType,
			Indexed:     tc.Indexed,
			Failed:      tc.Failed,
		})
	}
	for _, f := range r.Failures() {
		out.Failures = append(out.Failures, Failure{
			ContentType: f.ContentType(),
			PK:          f.PK(),
			Err:         f.Err(),
		})
	}
	return out
}
