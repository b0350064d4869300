package mapping

import (
	"fmt"
	"sync"

	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
)

// Strategy is one way of producing a field value from an entity.
type Strategy int

// Resolution strategies, tried in plan order.
const (
	// StrategyConstant emits the type's content type.
	StrategyConstant Strategy = iota
	// StrategyPrimaryKey emits the entity's primary key.
	StrategyPrimaryKey
	// StrategyStored reads a stored attribute of the same name.
	StrategyStored
	// StrategyAccessor calls the accessor registered for the field.
	StrategyAccessor
)

func (s Strategy) String() string {
	switch s {
	case StrategyConstant:
		return "constant"
	case StrategyPrimaryKey:
		return "pk"
	case StrategyStored:
		return "stored"
	case StrategyAccessor:
		return "accessor"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// FieldPlan is a schema field with its ordered resolution strategies.
type FieldPlan struct {
	Field      schema.Field
	Strategies []Strategy

	constant any
	accessor entity.Accessor
}

// Mapping is the derived schema of a type plus how to fill every field.
type Mapping struct {
	schema      schema.Schema
	contentType string
	fields      []FieldPlan
}

// Schema returns the ordered schema.
func (m *Mapping) Schema() schema.Schema { return m.schema }

// ContentType returns the constant written to content_type.
func (m *Mapping) ContentType() string { return m.contentType }

// MappingName returns the mapping-type name.
func (m *Mapping) MappingName() string { return m.schema.MappingName() }

// Fields returns the field plans in schema order.
func (m *Mapping) Fields() []FieldPlan {
	out := make([]FieldPlan, len(m.fields))
	copy(out, m.fields)
	return out
}

// Deriver builds mappings from indexable types. Results are memoised per type.
type Deriver struct {
	mu    sync.Mutex
	cache map[*entity.Type]*Mapping
}

// NewDeriver creates a Deriver.
func NewDeriver() *Deriver {
	return &Deriver{cache: map[*entity.Type]*Mapping{}}
}

// Derive returns the mapping of t. Repeated calls return the same mapping.
func (d *Deriver) Derive(t *entity.Type) (*Mapping, error) {
	if t == nil {
		return nil, fmt.Errorf("type is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if m, ok := d.cache[t]; ok {
		return m, nil
	}

	s, err := t.Schema()
	if err != nil {
		return nil, err
	}
	m := &Mapping{schema: s, contentType: t.ContentType()}
	for _, f := range s.Fields() {
		fp := FieldPlan{Field: f}
		switch f.Name() {
		case schema.ContentTypeField:
			fp.Strategies = []Strategy{StrategyConstant}
			fp.constant = m.contentType
		case schema.PKField:
			fp.Strategies = []Strategy{StrategyPrimaryKey}
		default:
			fp.Strategies = []Strategy{StrategyStored}
			if fn, ok := t.Accessor(f.Name()); ok {
				fp.Strategies = append(fp.Strategies, StrategyAccessor)
				fp.accessor = fn
			}
		}
		m.fields = append(m.fields, fp)
	}
	d.cache[t] = m
	return m, nil
}
