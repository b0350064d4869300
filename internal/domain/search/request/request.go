package request

import (
	"fmt"

	"github.com/kailas-cloud/indexsync/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 20
	MaxLimit       = 1000
	// MaxWindow bounds offset+limit.
	MaxWindow = 10000
)

// Request is a validated search over one type.
type Request struct {
	text    string
	filters filter.Expression
	limit   int
	offset  int
}

// New validates and normalizes search parameters. An empty text matches
// every document. Limit defaults to DefaultLimit and is clamped to MaxLimit.
func New(text string, filters filter.Expression, limit, offset int) (Request, error) {
	if len(text) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if offset < 0 {
		return Request{}, fmt.Errorf("offset must be non-negative")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset+limit > MaxWindow {
		return Request{}, fmt.Errorf("offset+limit must not exceed %d", MaxWindow)
	}
	return Request{text: text, filters: filters, limit: limit, offset: offset}, nil
}

// Text returns the free-text query.
func (r Request) Text() string { return r.text }

// Filters returns the exact-match conditions.
func (r Request) Filters() filter.Expression { return r.filters }

// Limit returns the page size.
func (r Request) Limit() int { return r.limit }

// Offset returns the number of hits to skip.
func (r Request) Offset() int { return r.offset }
