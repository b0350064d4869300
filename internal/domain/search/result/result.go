package result

import (
	"fmt"
	"strconv"
)

// PKField is the hit field carrying the entity primary key.
const PKField = "pk"

// Result is a single search hit.
type Result struct {
	id     string
	score  float64
	fields map[string]string
}

// New creates a search result.
func New(id string, score float64, fields map[string]string) Result {
	return Result{id: id, score: score, fields: fields}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// Fields returns the stored fields returned with the hit.
func (r *Result) Fields() map[string]string { return r.fields }

// PK returns the entity primary key from the pk field, falling back to the
// document id.
func (r *Result) PK() (int64, error) {
	raw, ok := r.fields[PKField]
	if !ok || raw == "" {
		raw = r.id
	}
	pk, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("hit %q: invalid pk %q", r.id, raw)
	}
	return pk, nil
}

// Page is one page of hits in rank order.
type Page struct {
	Total   int
	Results []Result
}
