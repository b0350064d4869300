package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
	"github.com/kailas-cloud/indexsync/internal/domain/search/filter"
	"github.com/kailas-cloud/indexsync/internal/domain/search/request"
	"github.com/kailas-cloud/indexsync/internal/metrics"
)

// ErrInvalidQuery wraps errors in the query built by the caller.
var ErrInvalidQuery = errors.New("invalid query")

// Service runs searches and projects hits back to stored entities.
type Service struct {
	index  Index
	logger *zap.Logger
}

// New creates a search service.
func New(index Index) *Service {
	return &Service{index: index, logger: zap.NewNop()}
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// Search starts a query restricted to documents of t.
func (s *Service) Search(t *entity.Type) *Query {
	return &Query{svc: s, typ: t}
}

// Query is a search under construction. Builder methods return the receiver.
type Query struct {
	svc    *Service
	typ    *entity.Type
	text   string
	conds  []filter.Condition
	errs   []error
	limit  int
	offset int
}

// Match sets the free-text query.
func (q *Query) Match(text string) *Query {
	q.text = text
	return q
}

// Where adds an exact-match condition on field.
func (q *Query) Where(field string, value any) *Query {
	c, err := filter.NewMatch(field, value)
	if err != nil {
		q.errs = append(q.errs, err)
		return q
	}
	q.conds = append(q.conds, c)
	return q
}

// Limit sets the page size.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Offset sets the number of hits to skip.
func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// Execute runs the search and loads the hit entities from the type's source
// with one bulk fetch. Entities come back in hit order. Hits whose entity no
// longer exists are dropped.
func (q *Query) Execute(ctx context.Context) ([]entity.Entity, error) {
	if q.typ == nil {
		return nil, fmt.Errorf("type is required")
	}
	src := q.typ.Source()
	if src == nil {
		return nil, fmt.Errorf("type %s has no source", q.typ.ContentType())
	}
	req, err := q.request()
	if err != nil {
		return nil, err
	}

	ct := q.typ.ContentType()
	start := time.Now()
	defer func() { metrics.SearchDuration.WithLabelValues(ct).Observe(time.Since(start).Seconds()) }()

	page, err := q.svc.index.Search(ctx, q.typ.MappingName(), req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", ct, err)
	}

	pks := make([]int64, 0, len(page.Results))
	seen := make(map[int64]bool, len(page.Results))
	for _, r := range page.Results {
		pk, err := r.PK()
		if err != nil {
			q.svc.logger.Warn("Skipping hit without pk", zap.String("content_type", ct), zap.Error(err))
			continue
		}
		if seen[pk] {
			continue
		}
		seen[pk] = true
		pks = append(pks, pk)
	}
	if len(pks) == 0 {
		return nil, nil
	}

	ents, err := src.FetchByPKs(ctx, pks)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ct, err)
	}
	byPK := make(map[int64]entity.Entity, len(ents))
	for _, e := range ents {
		byPK[e.PK()] = e
	}

	out := make([]entity.Entity, 0, len(pks))
	for _, pk := range pks {
		if e, ok := byPK[pk]; ok {
			out = append(out, e)
		}
	}
	if dropped := len(pks) - len(out); dropped > 0 {
		metrics.SearchDroppedHitsTotal.WithLabelValues(ct).Add(float64(dropped))
		q.svc.logger.Debug("Dropped stale hits", zap.String("content_type", ct), zap.Int("dropped", dropped))
	}
	return out, nil
}

func (q *Query) request() (request.Request, error) {
	if len(q.errs) > 0 {
		return request.Request{}, fmt.Errorf("%w: %w", ErrInvalidQuery, errors.Join(q.errs...))
	}
	ctCond, err := filter.NewMatch(schema.ContentTypeField, q.typ.ContentType())
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	f, err := filter.NewExpression(append([]filter.Condition{ctCond}, q.conds...)...)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	req, err := request.New(q.text, f, q.limit, q.offset)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return req, nil
}
