package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/db/redis"
)

// Compile-time check: Store implements db.Backend.
var _ db.Backend = (*Store)(nil)

// Store implements db.Backend for Valkey with the valkey-search module.
//
// Document writes are shared with the Redis store. valkey-search has no
// FT.ALTER and no TEXT fields, so every mapping type gets its own FT index
// named <index>_<type>, text fields are declared as TAG, and the logical
// index is tracked by a marker key.
type Store struct {
	*redis.Store
	poll time.Duration
}

const backfillPoll = 50 * time.Millisecond

// NewStore creates a Valkey store via rueidis.
func NewStore(cfg redis.Config, ser db.Serializer) (*Store, error) {
	rs, err := redis.NewStore(cfg, ser)
	if err != nil {
		return nil, err
	}
	return &Store{Store: rs, poll: backfillPoll}, nil
}

// Open is a db.Opener for the "valkey" driver.
func Open(_ context.Context, cfg db.ConnectionConfig, ser db.Serializer) (db.Backend, error) {
	return NewStore(redis.ConfigFrom(cfg), ser)
}

// MarkerKey is the key whose presence means the logical index exists.
func MarkerKey(index string) string {
	return index + ":__index"
}

// FTIndex returns the FT index name serving one mapping type.
func FTIndex(index, typ string) string {
	return index + "_" + typ
}

// CreateIndex registers the logical index. FT indexes are created per type by PutMapping.
func (s *Store) CreateIndex(ctx context.Context, name string) error {
	if !db.IsValidIdentifier(name) {
		return fmt.Errorf("invalid index name %q", name)
	}
	created, err := s.SetNX(ctx, MarkerKey(name), []byte(time.Now().UTC().Format(time.RFC3339)))
	if err != nil {
		return err
	}
	if !created {
		return db.ErrIndexExists
	}
	return nil
}

// IndexExists checks the marker key.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	return s.Exists(ctx, MarkerKey(name))
}

// DropIndex drops every per-type FT index, then deletes all keys of the index.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	ok, err := s.IndexExists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return db.ErrIndexNotFound
	}

	types, err := s.MappingTypes(ctx, name)
	if err != nil {
		return err
	}
	for _, typ := range types {
		cmd := s.Client().B().Arbitrary("FT.DROPINDEX").Args(FTIndex(name, typ)).Build()
		if err := s.Client().Do(ctx, cmd).Error(); err != nil && !isUnknownIndex(err) {
			return redis.Wrap(db.OpDropIndex, err)
		}
	}

	keys, err := s.Scan(ctx, redis.DocPrefix(name)+"*")
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += 500 {
		end := min(start+500, len(keys))
		if err := s.Del(ctx, keys[start:end]...); err != nil {
			return err
		}
	}
	return nil
}

// RefreshIndex waits until no per-type index reports a backfill in progress.
func (s *Store) RefreshIndex(ctx context.Context, name string) error {
	ok, err := s.IndexExists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return db.ErrIndexNotFound
	}
	types, err := s.MappingTypes(ctx, name)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for _, typ := range types {
		for {
			busy, err := s.backfilling(ctx, FTIndex(name, typ))
			if err != nil {
				return err
			}
			if !busy {
				break
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("refresh %s: %w", name, ctx.Err())
			case <-ticker.C:
			}
		}
	}
	return nil
}

func (s *Store) backfilling(ctx context.Context, ftIndex string) (bool, error) {
	cmd := s.Client().B().Arbitrary("FT.INFO").Args(ftIndex).Build()
	info, err := s.Client().Do(ctx, cmd).AsMap()
	if err != nil {
		if isUnknownIndex(err) {
			return false, nil
		}
		return false, redis.Wrap(db.OpIndexInfo, err)
	}
	v, ok := info["backfill_in_progress"]
	if !ok {
		return false, nil
	}
	if n, err := v.AsInt64(); err == nil {
		return n != 0, nil
	}
	str, err := v.ToString()
	if err != nil {
		return false, nil
	}
	return str != "0", nil
}

// PutMapping creates the FT index of the mapping's type and stores the mapping JSON.
// An FT index that already exists keeps its schema.
func (s *Store) PutMapping(ctx context.Context, index string, m *db.Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	ok, err := s.IndexExists(ctx, index)
	if err != nil {
		return err
	}
	if !ok {
		return db.ErrIndexNotFound
	}

	args := []string{
		FTIndex(index, m.Type), "ON", "HASH",
		"PREFIX", "1", redis.DocKey(index, m.Type, ""),
		"SCHEMA",
	}
	for _, f := range m.Fields {
		args = append(args, redis.BuildFieldArgs(f, true)...)
	}
	cmd := s.Client().B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.Client().Do(ctx, cmd).Error(); err != nil && !redis.IsRedisErr(err, "already exists") {
		return redis.Wrap(db.OpCreateIndex, err)
	}

	return s.SaveMapping(ctx, index, m)
}

func isUnknownIndex(err error) bool {
	return redis.IsRedisErr(err, "not found") ||
		redis.IsRedisErr(err, "unknown index name") ||
		redis.IsRedisErr(err, "no such index")
}
