package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"slices"
	"strings"

	"github.com/kailas-cloud/indexsync/internal/domain"
	domentity "github.com/kailas-cloud/indexsync/internal/domain/entity"
)

const (
	defaultPrimaryKey = "id"
	defaultPageSize   = 1000
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Column maps an entity field to a table column.
type Column struct {
	Field  string
	Column string
}

// TableConfig describes how one indexable type is stored.
type TableConfig struct {
	Table      string
	PrimaryKey string
	Columns    []Column
	// Where is an optional SQL predicate restricting which rows are indexable.
	Where    string
	PageSize int
}

// Table implements entity.Source over a database/sql table.
// Rows are loaded as entity.Row values keyed by field name.
type Table struct {
	db        *sql.DB
	table     string
	pk        string
	columns   []Column
	where     string
	pageSize  int
	selectSQL string
}

// Compile-time check: Table implements entity.Source.
var _ domentity.Source = (*Table)(nil)

// NewTable validates cfg and prepares the select list.
func NewTable(db *sql.DB, cfg TableConfig) (*Table, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if !identRe.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}
	pk := cfg.PrimaryKey
	if pk == "" {
		pk = defaultPrimaryKey
	}
	if !identRe.MatchString(pk) {
		return nil, fmt.Errorf("invalid primary key column %q", pk)
	}
	cols := make([]Column, 0, len(cfg.Columns))
	for _, c := range cfg.Columns {
		if c.Column == "" {
			c.Column = c.Field
		}
		if c.Field == "" || !identRe.MatchString(c.Column) {
			return nil, fmt.Errorf("invalid column mapping %q -> %q", c.Field, c.Column)
		}
		cols = append(cols, c)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	names := make([]string, 0, len(cols)+1)
	names = append(names, quote(pk))
	for _, c := range cols {
		names = append(names, quote(c.Column))
	}

	return &Table{
		db:        db,
		table:     cfg.Table,
		pk:        pk,
		columns:   cols,
		where:     strings.TrimSpace(cfg.Where),
		pageSize:  pageSize,
		selectSQL: "SELECT " + strings.Join(names, ", ") + " FROM " + quote(cfg.Table),
	}, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.table }

// All enumerates rows in primary key order, one page per query. No cursor is
// held open while rows are yielded.
func (t *Table) All(ctx context.Context) iter.Seq2[domentity.Entity, error] {
	return func(yield func(domentity.Entity, error) bool) {
		var after int64
		first := true
		for {
			page, err := t.page(ctx, after, first)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, row := range page {
				if !yield(row, nil) {
					return
				}
			}
			if len(page) < t.pageSize {
				return
			}
			after = page[len(page)-1].PK()
			first = false
		}
	}
}

func (t *Table) page(ctx context.Context, after int64, first bool) ([]domentity.Row, error) {
	var conds []string
	var args []any
	if t.where != "" {
		conds = append(conds, "("+t.where+")")
	}
	if !first {
		conds = append(conds, quote(t.pk)+" > ?")
		args = append(args, after)
	}
	q := t.selectSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY " + quote(t.pk) + " LIMIT ?"
	args = append(args, t.pageSize)

	rows, err := t.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", t.table, err)
	}
	return rows, nil
}

// FetchByPKs loads the rows whose primary keys are in pks with one IN query.
// Duplicate keys are collapsed; missing keys are omitted.
func (t *Table) FetchByPKs(ctx context.Context, pks []int64) ([]domentity.Entity, error) {
	if len(pks) == 0 {
		return nil, nil
	}
	uniq := slices.Clone(pks)
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)

	args := make([]any, len(uniq))
	for i, pk := range uniq {
		args[i] = pk
	}
	q := t.selectSQL + " WHERE " + quote(t.pk) + " IN (" + placeholders(len(uniq)) + ")"

	rows, err := t.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch %s by pk: %w", t.table, err)
	}
	out := make([]domentity.Entity, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}

// Get loads one row. domain.ErrEntityNotFound if it does not exist.
func (t *Table) Get(ctx context.Context, pk int64) (domentity.Entity, error) {
	rows, err := t.query(ctx, t.selectSQL+" WHERE "+quote(t.pk)+" = ?", pk)
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", t.table, pk, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %d: %w", t.table, pk, domain.ErrEntityNotFound)
	}
	return rows[0], nil
}

func (t *Table) query(ctx context.Context, q string, args ...any) ([]domentity.Row, error) {
	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domentity.Row
	for rows.Next() {
		var pk int64
		raw := make([]any, len(t.columns))
		dest := make([]any, 0, len(t.columns)+1)
		dest = append(dest, &pk)
		for i := range raw {
			dest = append(dest, &raw[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		values := make(map[string]any, len(t.columns))
		for i, c := range t.columns {
			values[c.Field] = normalize(raw[i])
		}
		out = append(out, domentity.NewRow(pk, values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalize converts driver byte slices to strings so stored text columns
// encode the same way regardless of driver.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func quote(ident string) string {
	return `"` + ident + `"`
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
