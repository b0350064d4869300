package batch

import (
	"time"

	"github.com/kailas-cloud/indexsync/internal/domain"
)

// TypeCounts aggregates outcomes for one content type.
type TypeCounts struct {
	ContentType string `json:"content_type"`
	Indexed     int    `json:"indexed"`
	Failed      int    `json:"failed"`
}

// Report summarizes a bulk indexing run. Not safe for concurrent use.
type Report struct {
	runID    string
	started  time.Time
	finished time.Time
	results  []Result
	order    []string
	counts   map[string]*TypeCounts
}

// NewReport starts an empty report.
func NewReport(runID string, started time.Time) *Report {
	return &Report{runID: runID, started: started, counts: map[string]*TypeCounts{}}
}

// Add records one outcome.
func (r *Report) Add(res Result) {
	r.results = append(r.results, res)
	c := r.typeCounts(res.contentType)
	if res.OK() {
		c.Indexed++
	} else {
		c.Failed++
	}
}

// Touch registers a content type with zero documents so it still appears in Types.
func (r *Report) Touch(contentType string) { r.typeCounts(contentType) }

// Finish stamps the completion time.
func (r *Report) Finish(at time.Time) { r.finished = at }

// RunID returns the run identifier.
func (r *Report) RunID() string { return r.runID }

// Duration returns how long the run took, zero until finished.
func (r *Report) Duration() time.Duration {
	if r.finished.IsZero() {
		return 0
	}
	return r.finished.Sub(r.started)
}

// Results returns every recorded outcome in order.
func (r *Report) Results() []Result {
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Failures returns the failed outcomes.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Types returns per content type counts in first-seen order.
func (r *Report) Types() []TypeCounts {
	out := make([]TypeCounts, 0, len(r.order))
	for _, ct := range r.order {
		out = append(out, *r.counts[ct])
	}
	return out
}

// Total returns the number of recorded outcomes.
func (r *Report) Total() int { return len(r.results) }

// Indexed returns the number of successful outcomes.
func (r *Report) Indexed() int { return r.Total() - len(r.Failures()) }

// Err returns a *domain.PartialBulkFailureError when any document failed.
func (r *Report) Err() error {
	failed := len(r.Failures())
	if failed == 0 {
		return nil
	}
	return &domain.PartialBulkFailureError{Failed: failed, Total: len(r.results)}
}

func (r *Report) typeCounts(ct string) *TypeCounts {
	c, ok := r.counts[ct]
	if !ok {
		c = &TypeCounts{ContentType: ct}
		r.counts[ct] = c
		r.order = append(r.order, ct)
	}
	return c
}
