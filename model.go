package indexsync

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
	entityrepo "github.com/kailas-cloud/indexsync/internal/repository/entity"
	"github.com/kailas-cloud/indexsync/internal/usecase/mapping"
)

const tagKey = "indexsync"

var timeType = reflect.TypeFor[time.Time]()

// FieldType is the indexing type of a model field.
type FieldType = schema.Type

// Field types accepted in the indexsync struct tag.
const (
	FieldInteger = schema.Integer
	FieldLong    = schema.Long
	FieldFloat   = schema.Float
	FieldBoolean = schema.Boolean
	FieldKeyword = schema.Keyword
	FieldText    = schema.Text
	FieldDate    = schema.Date
)

// modelMeta holds parsed struct tag metadata, cached per Index.
type modelMeta struct {
	typ reflect.Type

	pkIdx    int
	pkColumn string
	fields   []modelField
}

// modelField maps one struct field to an index field and a table column.
type modelField struct {
	structIdx int
	name      string
	column    string
	typ       schema.Type
	computed  bool
}

// parseModel reflects on T and extracts indexsync struct tag metadata.
//
// Tag format: `indexsync:"name[,type][,column=col|computed]"`. The primary
// key is tagged `indexsync:"column,pk"` and must be an integer. Without an
// explicit type one is inferred from the Go kind. A computed field has no
// column; its value comes from the Computed option of the index.
func parseModel[T any]() (*modelMeta, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: type %s is not a struct", domain.ErrInvalidSchema, t)
	}

	meta := &modelMeta{typ: t, pkIdx: -1}
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("%w: field %s is not exported", domain.ErrInvalidSchema, f.Name)
		}
		if err := meta.applyTag(i, f, tag); err != nil {
			return nil, err
		}
	}
	if meta.pkIdx == -1 {
		return nil, fmt.Errorf("%w: %s has no field tagged pk", domain.ErrInvalidSchema, t)
	}
	return meta, nil
}

func (m *modelMeta) applyTag(idx int, f reflect.StructField, tag string) error {
	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		name = strings.ToLower(f.Name)
	}

	mf := modelField{structIdx: idx, name: name, column: name}
	pk := false
	for _, p := range parts[1:] {
		switch {
		case p == "pk":
			pk = true
		case p == "computed":
			mf.computed = true
		case strings.HasPrefix(p, "column="):
			mf.column = strings.TrimPrefix(p, "column=")
		case schema.Type(p).IsValid():
			mf.typ = schema.Type(p)
		default:
			return fmt.Errorf("%w: field %s: unknown tag option %q", domain.ErrInvalidSchema, f.Name, p)
		}
	}

	if mf.computed && (pk || mf.column != name) {
		return fmt.Errorf("%w: field %s: computed cannot be combined with pk or column", domain.ErrInvalidSchema, f.Name)
	}
	if pk {
		if m.pkIdx != -1 {
			return fmt.Errorf("%w: multiple pk fields", domain.ErrInvalidSchema)
		}
		if !isInteger(f.Type.Kind()) {
			return fmt.Errorf("%w: pk field %s must be an integer", domain.ErrInvalidSchema, f.Name)
		}
		m.pkIdx = idx
		m.pkColumn = mf.column
		return nil
	}

	if mf.typ == "" {
		ft, ok := inferType(f.Type)
		if !ok {
			return fmt.Errorf("%w: field %s: cannot infer type of %s", domain.ErrInvalidSchema, f.Name, f.Type)
		}
		mf.typ = ft
	}
	m.fields = append(m.fields, mf)
	return nil
}

func inferType(t reflect.Type) (schema.Type, bool) {
	if t == timeType {
		return schema.Date, true
	}
	switch k := t.Kind(); {
	case k == reflect.String:
		return schema.Keyword, true
	case k == reflect.Bool:
		return schema.Boolean, true
	case k == reflect.Int32 || k == reflect.Int16 || k == reflect.Int8 ||
		k == reflect.Uint16 || k == reflect.Uint8:
		return schema.Integer, true
	case isInteger(k):
		return schema.Long, true
	case k == reflect.Float32 || k == reflect.Float64:
		return schema.Float, true
	default:
		return "", false
	}
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

// schemaHook adds the model fields after pk and content_type.
func (m *modelMeta) schemaHook() entity.SchemaHook {
	return func(b *schema.Builder) {
		for _, f := range m.fields {
			b.Add(f.name, f.typ)
		}
	}
}

func (m *modelMeta) isComputed(name string) bool {
	for _, f := range m.fields {
		if f.name == name {
			return f.computed
		}
	}
	return false
}

// tableConfig describes the table the model rows are stored in.
func (m *modelMeta) tableConfig(table, where string, pageSize int) entityrepo.TableConfig {
	cols := make([]entityrepo.Column, 0, len(m.fields))
	for _, f := range m.fields {
		if !f.computed {
			cols = append(cols, entityrepo.Column{Field: f.name, Column: f.column})
		}
	}
	return entityrepo.TableConfig{
		Table:      table,
		PrimaryKey: m.pkColumn,
		Columns:    cols,
		Where:      where,
		PageSize:   pageSize,
	}
}

// toRow converts a typed struct to an entity row keyed by index field name.
// Computed fields are left out so they resolve through their accessor, the
// same way rows read from the table do.
func (m *modelMeta) toRow(item any) entity.Row {
	v := reflect.ValueOf(item)
	values := make(map[string]any, len(m.fields))
	for _, f := range m.fields {
		if !f.computed {
			values[f.name] = v.Field(f.structIdx).Interface()
		}
	}
	return entity.NewRow(pkOf(v.Field(m.pkIdx)), values)
}

// fromEntity converts a stored row back to a typed struct.
func (m *modelMeta) fromEntity(e entity.Entity) (any, error) {
	v := reflect.New(m.typ).Elem()
	setInt(v.Field(m.pkIdx), e.PK())

	fr, ok := e.(entity.FieldReader)
	if !ok {
		return v.Interface(), nil
	}
	for _, f := range m.fields {
		if f.computed {
			continue
		}
		raw, ok := fr.Field(f.name)
		if !ok || raw == nil {
			continue
		}
		if err := assign(v.Field(f.structIdx), raw); err != nil {
			return nil, fmt.Errorf("%s: field %s: %w", m.typ, f.name, err)
		}
	}
	return v.Interface(), nil
}

func pkOf(v reflect.Value) int64 {
	if v.CanInt() {
		return v.Int()
	}
	return int64(v.Uint())
}

func setInt(v reflect.Value, n int64) {
	if v.CanInt() {
		v.SetInt(n)
		return
	}
	v.SetUint(uint64(n))
}

// assign stores a database value into a struct field, converting between the
// representations sqlite drivers return and the Go field kind.
func assign(dst reflect.Value, raw any) error {
	src := reflect.ValueOf(raw)
	if dst.Type() == timeType {
		return assignTime(dst, raw)
	}
	switch {
	case dst.Kind() == reflect.String:
		dst.SetString(fmt.Sprint(raw))
		return nil
	case dst.Kind() == reflect.Bool:
		switch x := raw.(type) {
		case bool:
			dst.SetBool(x)
		case int64:
			dst.SetBool(x != 0)
		default:
			return fmt.Errorf("cannot assign %T to bool", raw)
		}
		return nil
	case src.CanInt() && (dst.CanInt() || dst.CanUint()):
		setInt(dst, src.Int())
		return nil
	case src.CanFloat() && dst.CanFloat():
		dst.SetFloat(src.Float())
		return nil
	case src.CanInt() && dst.CanFloat():
		dst.SetFloat(float64(src.Int()))
		return nil
	case src.CanFloat() && (dst.CanInt() || dst.CanUint()):
		setInt(dst, int64(src.Float()))
		return nil
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
		return nil
	default:
		return fmt.Errorf("cannot assign %T to %s", raw, dst.Type())
	}
}

func assignTime(dst reflect.Value, raw any) error {
	switch x := raw.(type) {
	case time.Time:
		dst.Set(reflect.ValueOf(x))
	case string:
		t, err := mapping.ParseDate(x)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
	default:
		return fmt.Errorf("cannot assign %T to time.Time", raw)
	}
	return nil
}
