package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/db"
)

// CreateIndex creates an FT index over every hash under "<name>:".
// The schema starts with the mandatory pk and content_type fields; PutMapping extends it.
func (s *Store) CreateIndex(ctx context.Context, name string) error {
	if !db.IsValidIdentifier(name) {
		return fmt.Errorf("invalid index name %q", name)
	}
	args := []string{name, "ON", "HASH", "PREFIX", "1", DocPrefix(name), "SCHEMA"}
	args = append(args, BuildFieldArgs(db.MappingField{Name: "pk", Type: db.FieldLong}, false)...)
	args = append(args, BuildFieldArgs(db.MappingField{Name: "content_type", Type: db.FieldKeyword}, false)...)

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if IsRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return Wrap(db.OpCreateIndex, err)
	}
	return nil
}

// DropIndex removes an FT index together with its documents and stored mappings.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name, "DD").Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if IsRedisErr(err, "unknown index name") || IsRedisErr(err, "no such index") {
			return db.ErrIndexNotFound
		}
		return Wrap(db.OpDropIndex, err)
	}
	keys, err := s.Scan(ctx, MappingKey(name, "*"))
	if err != nil {
		return err
	}
	return s.Del(ctx, keys...)
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if IsRedisErr(err, "unknown index name") || IsRedisErr(err, "no such index") {
			return false, nil
		}
		return false, Wrap(db.OpIndexInfo, err)
	}
	return true, nil
}

// RefreshIndex waits until FT.INFO reports no background indexing in progress.
// Writes to hashes are indexed synchronously, so this only waits on scans
// started by FT.CREATE or FT.ALTER.
func (s *Store) RefreshIndex(ctx context.Context, name string) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		indexing, err := s.indexing(ctx, name)
		if err != nil {
			return err
		}
		if !indexing {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("refresh %s: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *Store) indexing(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	info, err := s.do(ctx, cmd).AsMap()
	if err != nil {
		if IsRedisErr(err, "unknown index name") || IsRedisErr(err, "no such index") {
			return false, db.ErrIndexNotFound
		}
		return false, Wrap(db.OpIndexInfo, err)
	}
	v, ok := info["indexing"]
	if !ok {
		return false, nil
	}
	n, err := v.AsInt64()
	if err != nil {
		return false, nil
	}
	return n != 0, nil
}

// PutMapping adds the mapping's fields to the index schema and stores the
// mapping JSON. Fields already in the schema are left unchanged.
func (s *Store) PutMapping(ctx context.Context, index string, m *db.Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}

	cmds := make(rueidis.Commands, 0, len(m.Fields))
	for _, f := range m.Fields {
		args := append([]string{index, "SCHEMA", "ADD"}, BuildFieldArgs(f, false)...)
		cmds = append(cmds, s.b().Arbitrary("FT.ALTER").Args(args...).Build())
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		err := res.Error()
		if err == nil || IsRedisErr(err, "duplicate field") {
			continue
		}
		if IsRedisErr(err, "unknown index name") || IsRedisErr(err, "no such index") {
			return db.ErrIndexNotFound
		}
		return Wrap(db.OpAlterIndex, fmt.Errorf("field %s: %w", m.Fields[i].Name, err))
	}

	return s.SaveMapping(ctx, index, m)
}

// BuildFieldArgs renders one FT.CREATE/FT.ALTER schema entry. With tagOnly
// set, TEXT fields are declared as TAG for engines without full-text support.
func BuildFieldArgs(f db.MappingField, tagOnly bool) []string {
	args := []string{f.Name}
	switch f.Type {
	case db.FieldInteger, db.FieldLong, db.FieldFloat:
		args = append(args, "NUMERIC")
		if f.Name == "pk" {
			args = append(args, "SORTABLE")
		}
	case db.FieldText:
		if tagOnly {
			args = append(args, "TAG", "SEPARATOR", "\x1f", "CASESENSITIVE")
		} else {
			args = append(args, "TEXT")
		}
	case db.FieldKeyword:
		args = append(args, "TAG", "SEPARATOR", "\x1f", "CASESENSITIVE")
	default:
		args = append(args, "TAG")
	}
	return args
}

// ErrMappingNotFound signals that no mapping was stored for a type.
var ErrMappingNotFound = errors.New("mapping not found")

// SaveMapping stores the mapping JSON under MappingKey.
func (s *Store) SaveMapping(ctx context.Context, index string, m *db.Mapping) error {
	data, err := m.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	return s.Set(ctx, MappingKey(index, m.Type), data)
}

// LoadMapping reads a stored mapping back.
func (s *Store) LoadMapping(ctx context.Context, index, typ string) (*db.Mapping, error) {
	data, err := s.Get(ctx, MappingKey(index, typ))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMappingNotFound, typ)
		}
		return nil, err
	}
	var m db.Mapping
	if err := m.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("decode mapping %s: %w", typ, err)
	}
	return &m, nil
}

// MappingTypes lists the types with a stored mapping.
func (s *Store) MappingTypes(ctx context.Context, index string) ([]string, error) {
	keys, err := s.Scan(ctx, MappingKey(index, "*"))
	if err != nil {
		return nil, err
	}
	prefix := MappingKey(index, "")
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k[len(prefix):])
	}
	return out, nil
}

func itoa(n int) string { return strconv.Itoa(n) }
