// Package bleve implements db.Backend on embedded bleve v2 indexes, kept in
// memory or on disk under a data directory.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/indexsync/internal/db"
)

// Compile-time check: Store implements db.Backend.
var _ db.Backend = (*Store)(nil)

const (
	// TypeField carries the mapping type of every document.
	TypeField = "_type"

	indexSuffix = ".bleve"
)

var errClosed = errors.New("bleve store is closed")

// Store keeps one bleve index per logical index name.
type Store struct {
	mu      sync.RWMutex
	dir     string
	indexes map[string]*handle
	closed  bool
}

// handle guards one bleve index. Mapping changes take the write lock
// because they mutate the live index mapping.
type handle struct {
	mu       sync.RWMutex
	idx      bleve.Index
	mappings map[string]*db.Mapping
}

// NewStore creates a store. An empty dir keeps every index in memory.
func NewStore(dir string) (*Store, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, db.Unavailable(db.OpOpen, fmt.Errorf("create data dir %s: %w", dir, err))
		}
	}
	return &Store{dir: dir, indexes: map[string]*handle{}}, nil
}

// Open is a db.Opener for the "bleve" driver. Only cfg.Dir is used.
func Open(_ context.Context, cfg db.ConnectionConfig, _ db.Serializer) (db.Backend, error) {
	return NewStore(cfg.Dir)
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+indexSuffix)
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return db.Unavailable(db.OpPing, errClosed)
	}
	return nil
}

// Close closes every open index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for name, h := range s.indexes {
		if err := h.idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	s.indexes = nil
	return errors.Join(errs...)
}

// CreateIndex creates an empty index.
func (s *Store) CreateIndex(_ context.Context, name string) error {
	if !db.IsValidIdentifier(name) {
		return fmt.Errorf("invalid index name %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return db.Unavailable(db.OpCreateIndex, errClosed)
	}
	if _, ok := s.indexes[name]; ok {
		return db.ErrIndexExists
	}

	var (
		idx bleve.Index
		err error
	)
	if s.dir == "" {
		idx, err = bleve.NewMemOnly(newIndexMapping())
	} else {
		idx, err = bleve.New(s.path(name), newIndexMapping())
		if errors.Is(err, bleve.ErrorIndexPathExists) {
			return db.ErrIndexExists
		}
	}
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	s.indexes[name] = &handle{idx: idx, mappings: map[string]*db.Mapping{}}
	return nil
}

// DropIndex closes the index and removes its data.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return db.Unavailable(db.OpDropIndex, errClosed)
	}

	h, err := s.lookupLocked(name)
	if err != nil {
		return err
	}
	delete(s.indexes, name)
	if err := h.idx.Close(); err != nil {
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	if s.dir != "" {
		if err := os.RemoveAll(s.path(name)); err != nil {
			return &db.Error{Op: db.OpDropIndex, Err: err}
		}
	}
	return nil
}

// IndexExists reports whether the index is open or present on disk.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, db.Unavailable(db.OpIndexInfo, errClosed)
	}
	if _, err := s.lookupLocked(name); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RefreshIndex is a no-op for existing indexes: bleve makes a write
// searchable once Index or Batch returns.
func (s *Store) RefreshIndex(_ context.Context, name string) error {
	_, err := s.get(name)
	return err
}

func (s *Store) get(name string) (*handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, db.Unavailable(db.OpOpen, errClosed)
	}
	return s.lookupLocked(name)
}

// lookupLocked returns the open index or opens it from disk. Caller holds s.mu.
func (s *Store) lookupLocked(name string) (*handle, error) {
	if h, ok := s.indexes[name]; ok {
		return h, nil
	}
	if s.dir == "" {
		return nil, db.ErrIndexNotFound
	}

	idx, err := bleve.Open(s.path(name))
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, db.ErrIndexNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}

	h := &handle{idx: idx, mappings: map[string]*db.Mapping{}}
	if err := h.restoreMappings(); err != nil {
		_ = idx.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	s.indexes[name] = h
	return h, nil
}

// newIndexMapping returns the base mapping. Documents of a type without a
// registered mapping only get the mandatory fields indexed.
func newIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.TypeField = TypeField
	im.DefaultMapping = baseDocumentMapping()
	return im
}
