package valkey

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/db/redis"
)

// Search runs FT.SEARCH on the FT index of q.Type.
// Only exact-match terms are supported; free text returns ErrTextSearchNotSupported.
func (s *Store) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if q.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Type == "" {
		return nil, fmt.Errorf("type is required")
	}
	if strings.TrimSpace(q.Text) != "" {
		return nil, db.ErrTextSearchNotSupported
	}

	// valkey-search does not support bare FT.SEARCH without a filter, so
	// listing a type falls back to SCAN + HMGET.
	if len(q.Terms) == 0 {
		return s.scanList(ctx, q)
	}

	queryStr, err := redis.BuildTerms(q.Terms, s.Serializer())
	if err != nil {
		return nil, err
	}

	args := redis.BuildSearchArgs(FTIndex(q.Index, q.Type), queryStr, q)
	cmd := s.Client().B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.Client().Do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, redis.Wrap(db.OpSearch, err)
	}

	return redis.ParseSearchResult(q.Index, raw)
}

// scanList pages through the keys of one type in key order.
func (s *Store) scanList(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	keys, err := s.Scan(ctx, redis.DocKey(q.Index, q.Type, "*"))
	if err != nil {
		return nil, fmt.Errorf("scan for list: %w", err)
	}
	slices.Sort(keys)

	total := len(keys)
	offset := max(q.Offset, 0)
	if offset >= total {
		return &db.SearchResult{Total: total}, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = redis.DefaultLimit
	}
	pageKeys := keys[offset:min(offset+limit, total)]

	hits := make([]db.Hit, 0, len(pageKeys))
	for _, key := range pageKeys {
		typ, id, ok := redis.ParseDocKey(q.Index, key)
		if !ok {
			continue
		}
		hits = append(hits, db.Hit{Type: typ, ID: id})
	}
	if len(q.ReturnFields) == 0 || len(hits) == 0 {
		return &db.SearchResult{Total: total, Hits: hits}, nil
	}

	cmds := make(rueidis.Commands, 0, len(hits))
	for _, h := range hits {
		cmds = append(cmds, s.Client().B().Hmget().Key(redis.DocKey(q.Index, h.Type, h.ID)).Field(q.ReturnFields...).Build())
	}
	for i, res := range s.Client().DoMulti(ctx, cmds...) {
		values, err := res.ToArray()
		if err != nil {
			return nil, redis.Wrap(db.OpHMGet, err)
		}
		hits[i].Fields = make(map[string]string, len(q.ReturnFields))
		for j, v := range values {
			if j >= len(q.ReturnFields) {
				break
			}
			// key may have been deleted between SCAN and HMGET
			if str, err := v.ToString(); err == nil {
				hits[i].Fields[q.ReturnFields[j]] = str
			}
		}
	}

	return &db.SearchResult{Total: total, Hits: hits}, nil
}
