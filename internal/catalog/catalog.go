// Package catalog builds indexable types from configuration.
package catalog

import (
	"database/sql"
	"fmt"

	"github.com/kailas-cloud/indexsync/internal/config"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
	repoentity "github.com/kailas-cloud/indexsync/internal/repository/entity"
)

// Build creates a type for every configured entry and registers them in
// configuration order. Parents may be declared after their children.
// Concrete types read from db; pageSize bounds every enumeration query.
func Build(db *sql.DB, types []config.TypeConfig, pageSize int) (*entity.Registry, error) {
	b := &builder{
		db:       db,
		pageSize: pageSize,
		decls:    make(map[string]config.TypeConfig, len(types)),
		built:    make(map[string]*entity.Type, len(types)),
		visiting: make(map[string]bool),
	}
	for _, tc := range types {
		if _, dup := b.decls[tc.Ref()]; dup {
			return nil, fmt.Errorf("type %s declared twice", tc.Ref())
		}
		b.decls[tc.Ref()] = tc
	}

	reg := entity.NewRegistry()
	for _, tc := range types {
		t, err := b.build(tc.Ref())
		if err != nil {
			return nil, err
		}
		if err := reg.Register(t); err != nil {
			return nil, fmt.Errorf("register %s: %w", tc.Ref(), err)
		}
	}
	return reg, nil
}

type builder struct {
	db       *sql.DB
	pageSize int
	decls    map[string]config.TypeConfig
	built    map[string]*entity.Type
	visiting map[string]bool
}

func (b *builder) build(ref string) (*entity.Type, error) {
	if t, ok := b.built[ref]; ok {
		return t, nil
	}
	tc, ok := b.decls[ref]
	if !ok {
		return nil, fmt.Errorf("unknown type %q", ref)
	}
	if b.visiting[ref] {
		return nil, fmt.Errorf("type %s: parent cycle", ref)
	}
	b.visiting[ref] = true
	defer delete(b.visiting, ref)

	var opts []entity.TypeOption
	if tc.Parent != "" {
		parent, err := b.build(tc.Parent)
		if err != nil {
			return nil, fmt.Errorf("type %s parent: %w", ref, err)
		}
		opts = append(opts, entity.WithParent(parent))
	}
	if tc.Abstract {
		opts = append(opts, entity.Abstract())
	}
	if len(tc.Fields) > 0 {
		opts = append(opts, entity.WithSchema(schemaHook(tc.Fields)))
	}
	if tc.Table != "" {
		src, err := b.table(tc)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", ref, err)
		}
		opts = append(opts, entity.WithSource(src))
	}

	t, err := entity.NewType(tc.Namespace, tc.Name, opts...)
	if err != nil {
		return nil, err
	}
	b.built[ref] = t
	return t, nil
}

func (b *builder) table(tc config.TypeConfig) (*repoentity.Table, error) {
	if b.db == nil {
		return nil, fmt.Errorf("table %s: no database configured", tc.Table)
	}
	cols := make([]repoentity.Column, 0, len(tc.Fields))
	for _, f := range b.fields(tc) {
		cols = append(cols, repoentity.Column{Field: f.Name, Column: f.Column})
	}
	return repoentity.NewTable(b.db, repoentity.TableConfig{
		Table:      tc.Table,
		PrimaryKey: tc.PrimaryKey,
		Columns:    cols,
		Where:      tc.Where,
		PageSize:   b.pageSize,
	})
}

// fields returns the nearest declared field list in the parent chain, the
// same list the type's schema is derived from.
func (b *builder) fields(tc config.TypeConfig) []config.FieldConfig {
	for cur, ok := tc, true; ok; cur, ok = b.decls[cur.Parent] {
		if len(cur.Fields) > 0 {
			return cur.Fields
		}
	}
	return nil
}

func schemaHook(fields []config.FieldConfig) entity.SchemaHook {
	return func(sb *schema.Builder) {
		for _, f := range fields {
			sb.Add(f.Name, schema.Type(f.Type))
		}
	}
}
