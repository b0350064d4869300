package bleve

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/indexsync/internal/db"
)

// DefaultLimit applies when a query does not set one.
const DefaultLimit = 10

// Search runs a conjunction of term filters and an optional match query.
// Hits are ordered by score, then document id.
func (s *Store) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if q.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	bq, err := buildQuery(q)
	if err != nil {
		return nil, err
	}
	h, err := s.get(q.Index)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	req := bleve.NewSearchRequestOptions(bq, limit, max(q.Offset, 0), false)
	req.Fields = q.ReturnFields
	req.SortBy([]string{"-_score", "_id"})

	h.mu.RLock()
	res, err := h.idx.SearchInContext(ctx, req)
	h.mu.RUnlock()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	out := &db.SearchResult{Total: int(res.Total), Hits: make([]db.Hit, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		typ, id, ok := strings.Cut(hit.ID, ":")
		if !ok {
			continue
		}
		out.Hits = append(out.Hits, db.Hit{
			Type:   typ,
			ID:     id,
			Score:  hit.Score,
			Fields: stringFields(hit.Fields),
		})
	}
	return out, nil
}

func buildQuery(q *db.Query) (query.Query, error) {
	var parts []query.Query
	if q.Type != "" {
		tq := bleve.NewTermQuery(q.Type)
		tq.SetField(TypeField)
		parts = append(parts, tq)
	}
	for _, t := range q.Terms {
		tq, err := termQuery(t)
		if err != nil {
			return nil, err
		}
		parts = append(parts, tq)
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		parts = append(parts, bleve.NewMatchQuery(text))
	}

	switch len(parts) {
	case 0:
		return bleve.NewMatchAllQuery(), nil
	case 1:
		return parts[0], nil
	default:
		return bleve.NewConjunctionQuery(parts...), nil
	}
}

func termQuery(t db.Term) (query.Query, error) {
	if t.Field == "" {
		return nil, fmt.Errorf("term field is required")
	}
	inclusive := true
	if n, ok := toFloat(t.Value); ok {
		nq := bleve.NewNumericRangeInclusiveQuery(&n, &n, &inclusive, &inclusive)
		nq.SetField(t.Field)
		return nq, nil
	}
	switch v := t.Value.(type) {
	case bool:
		bq := bleve.NewBoolFieldQuery(v)
		bq.SetField(t.Field)
		return bq, nil
	case time.Time:
		dq := bleve.NewDateRangeInclusiveQuery(v, v, &inclusive, &inclusive)
		dq.SetField(t.Field)
		return dq, nil
	case string:
		tq := bleve.NewTermQuery(v)
		tq.SetField(t.Field)
		return tq, nil
	case fmt.Stringer:
		tq := bleve.NewTermQuery(v.String())
		tq.SetField(t.Field)
		return tq, nil
	default:
		return nil, fmt.Errorf("term %s: unsupported value type %T", t.Field, t.Value)
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// stringFields renders stored values the way the other backends return them.
func stringFields(fields map[string]any) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for name, v := range fields {
		switch x := v.(type) {
		case string:
			out[name] = x
		case float64:
			out[name] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[name] = strconv.FormatBool(x)
		default:
			out[name] = fmt.Sprint(x)
		}
	}
	return out
}
