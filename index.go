package indexsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	entityrepo "github.com/kailas-cloud/indexsync/internal/repository/entity"
)

// ErrNoTable is returned by Index operations that read the database when the
// index was declared without a table.
var ErrNoTable = errors.New("indexsync: index has no table")

// Typed is implemented by every Index and can be used as a parent.
type Typed interface {
	ContentType() string
	entityType() *entity.Type
}

// IndexOption configures an Index.
type IndexOption func(*indexConfig)

type indexConfig struct {
	table    string
	where    string
	parent   Typed
	abstract bool
	computed map[string]computeFunc
}

type computeFunc func(ctx context.Context, item any) (any, error)

// Table reads the index rows from table. The pk column and the field columns
// come from the struct tags.
func Table(name string) IndexOption {
	return func(c *indexConfig) {
		c.table = name
	}
}

// Where restricts which rows Rebuild indexes with an SQL predicate.
// Point operations are not restricted.
func Where(predicate string) IndexOption {
	return func(c *indexConfig) {
		c.where = predicate
	}
}

// Parent nests the content type of the index under p.
func Parent(p Typed) IndexOption {
	return func(c *indexConfig) {
		c.parent = p
	}
}

// AbstractIndex declares an index that only serves as a parent.
// Rebuild skips it and point operations reject it.
func AbstractIndex() IndexOption {
	return func(c *indexConfig) {
		c.abstract = true
	}
}

// Computed supplies the value of a field tagged computed. fn receives the
// model built from the stored columns and runs for bulk and point writes
// alike. Get and Search leave computed struct fields at their zero value.
func Computed[T any](field string, fn func(ctx context.Context, item T) (any, error)) IndexOption {
	return func(c *indexConfig) {
		if c.computed == nil {
			c.computed = map[string]computeFunc{}
		}
		c.computed[field] = func(ctx context.Context, item any) (any, error) {
			v, ok := item.(T)
			if !ok {
				return nil, fmt.Errorf("computed %s: model is %T, option expects %T", field, item, *new(T))
			}
			return fn(ctx, v)
		}
	}
}

// Index provides typed operations over one content type.
type Index[T any] struct {
	engine *Engine
	typ    *entity.Type
	meta   *modelMeta
	table  *entityrepo.Table
}

// NewIndex declares an index for T on engine. T must be a struct with an
// integer field tagged pk.
func NewIndex[T any](engine *Engine, namespace, name string, opts ...IndexOption) (*Index[T], error) {
	meta, err := parseModel[T]()
	if err != nil {
		return nil, fmt.Errorf("indexsync: %w", err)
	}

	var cfg indexConfig
	for _, o := range opts {
		o(&cfg)
	}

	idx := &Index[T]{engine: engine, meta: meta}
	typeOpts := []entity.TypeOption{entity.WithSchema(meta.schemaHook())}
	if cfg.parent != nil {
		typeOpts = append(typeOpts, entity.WithParent(cfg.parent.entityType()))
	}
	if cfg.abstract {
		typeOpts = append(typeOpts, entity.Abstract())
	}
	for field, fn := range cfg.computed {
		if !meta.isComputed(field) {
			return nil, fmt.Errorf("indexsync: %w: computed option for %q, which is not tagged computed",
				domain.ErrInvalidSchema, field)
		}
		typeOpts = append(typeOpts, entity.WithAccessor(field, idx.accessor(fn)))
	}
	if cfg.table != "" {
		if engine.sqlDB == nil {
			return nil, fmt.Errorf("indexsync: table %q: no database configured (use WithDatabase or WithDB)", cfg.table)
		}
		idx.table, err = entityrepo.NewTable(engine.sqlDB, meta.tableConfig(cfg.table, cfg.where, engine.cfg.pageSize))
		if err != nil {
			return nil, fmt.Errorf("indexsync: %w", err)
		}
		typeOpts = append(typeOpts, entity.WithSource(idx.table))
	}

	idx.typ, err = entity.NewType(namespace, name, typeOpts...)
	if err != nil {
		return nil, fmt.Errorf("indexsync: %w", err)
	}
	if err := engine.register(idx.typ); err != nil {
		return nil, err
	}
	return idx, nil
}

// ContentType returns the content type stored in every document of the index.
func (i *Index[T]) ContentType() string { return i.typ.ContentType() }

// MappingName returns the document type name of the index.
func (i *Index[T]) MappingName() string { return i.typ.MappingName() }

func (i *Index[T]) entityType() *entity.Type { return i.typ }

// Add indexes item, replacing any document with the same primary key.
func (i *Index[T]) Add(ctx context.Context, item T) error {
	if err := i.engine.mutator.AddDocument(ctx, i.typ, i.meta.toRow(item)); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}

// Delete removes the document with primary key pk. Deleting a document that
// is not indexed succeeds.
func (i *Index[T]) Delete(ctx context.Context, pk int64) error {
	if err := i.engine.mutator.DeleteDocument(ctx, i.typ, entity.Ref(pk)); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Get loads the row with primary key pk from the database.
func (i *Index[T]) Get(ctx context.Context, pk int64) (T, error) {
	var zero T
	if i.table == nil {
		return zero, ErrNoTable
	}
	e, err := i.table.Get(ctx, pk)
	if err != nil {
		return zero, fmt.Errorf("get: %w", err)
	}
	return i.convert(e)
}

// Sync brings the document of pk in line with the database: the row is
// indexed when it exists and the document deleted when it does not.
func (i *Index[T]) Sync(ctx context.Context, pk int64) error {
	if i.table == nil {
		return ErrNoTable
	}
	e, err := i.table.Get(ctx, pk)
	switch {
	case errors.Is(err, domain.ErrEntityNotFound):
		return i.Delete(ctx, pk)
	case err != nil:
		return fmt.Errorf("sync: %w", err)
	}
	if err := i.engine.mutator.AddDocument(ctx, i.typ, e); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// Search starts a query restricted to this index's content type.
func (i *Index[T]) Search() *SearchBuilder[T] {
	return &SearchBuilder[T]{idx: i, q: i.engine.search.Search(i.typ)}
}

func (i *Index[T]) accessor(fn computeFunc) entity.Accessor {
	return func(ctx context.Context, e entity.Entity) (any, error) {
		item, err := i.meta.fromEntity(e)
		if err != nil {
			return nil, err
		}
		return fn(ctx, item)
	}
}

func (i *Index[T]) convert(e entity.Entity) (T, error) {
	var zero T
	v, err := i.meta.fromEntity(e)
	if err != nil {
		return zero, err
	}
	item, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected model type %T", v)
	}
	return item, nil
}
