package mapping

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/indexsync/internal/domain"
	domdoc "github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
)

// Encoder turns entities into documents. Bulk and point writes share it so
// both produce identical documents.
type Encoder struct {
	deriver *Deriver
	index   string
}

// NewEncoder creates an encoder writing documents addressed to index.
func NewEncoder(d *Deriver, index string) *Encoder {
	return &Encoder{deriver: d, index: index}
}

// Deriver returns the deriver used for schema plans.
func (e *Encoder) Deriver() *Deriver { return e.deriver }

// Encode builds the document of ent. A field that no strategy can resolve
// fails this document with a *domain.UnresolvableFieldError.
func (e *Encoder) Encode(ctx context.Context, t *entity.Type, ent entity.Entity) (domdoc.Document, error) {
	m, err := e.deriver.Derive(t)
	if err != nil {
		return domdoc.Document{}, err
	}
	return e.EncodeWith(ctx, m, ent)
}

// EncodeWith builds a document from an already derived mapping. Every value
// is converted to the representation of its field type, so a row read from
// the database and the same entity built in memory encode identically.
func (e *Encoder) EncodeWith(ctx context.Context, m *Mapping, ent entity.Entity) (domdoc.Document, error) {
	if ent == nil {
		return domdoc.Document{}, fmt.Errorf("entity is required")
	}
	reader, _ := ent.(entity.FieldReader)

	values := make([]domdoc.Value, 0, len(m.fields))
	for _, fp := range m.fields {
		v, err := resolve(ctx, m.contentType, fp, ent, reader)
		if err != nil {
			return domdoc.Document{}, err
		}
		if v.Value, err = coerce(fp.Field.FieldType(), v.Value); err != nil {
			return domdoc.Document{}, fmt.Errorf("%s pk=%d: field %s: %w", m.contentType, ent.PK(), v.Name, err)
		}
		values = append(values, v)
	}
	doc, err := domdoc.New(e.index, m.MappingName(), ent.PK(), values)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("%s pk=%d: %w", m.contentType, ent.PK(), err)
	}
	return doc, nil
}

func resolve(
	ctx context.Context, contentType string, fp FieldPlan, ent entity.Entity, reader entity.FieldReader,
) (domdoc.Value, error) {
	name := fp.Field.Name()
	for _, s := range fp.Strategies {
		switch s {
		case StrategyConstant:
			return domdoc.Value{Name: name, Value: fp.constant}, nil
		case StrategyPrimaryKey:
			return domdoc.Value{Name: name, Value: ent.PK()}, nil
		case StrategyStored:
			if reader == nil {
				continue
			}
			if v, ok := reader.Field(name); ok {
				return domdoc.Value{Name: name, Value: v}, nil
			}
		case StrategyAccessor:
			v, err := fp.accessor(ctx, ent)
			if err != nil {
				return domdoc.Value{}, fmt.Errorf("accessor %s pk=%d: %w", name, ent.PK(), err)
			}
			return domdoc.Value{Name: name, Value: v}, nil
		}
	}
	return domdoc.Value{}, &domain.UnresolvableFieldError{
		ContentType: contentType,
		Field:       name,
		PK:          ent.PK(),
	}
}
