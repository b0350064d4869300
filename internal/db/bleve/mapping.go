package bleve

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/indexsync/internal/db"
)

// mappingsKey is the internal key holding every registered mapping as JSON.
// bleve persists only the mapping an index was created with, so types added
// later are replayed from here on open.
var mappingsKey = []byte("indexsync.mappings")

// PutMapping registers a static document mapping for m.Type. Fields of a
// type that was already registered are replaced.
func (s *Store) PutMapping(_ context.Context, index string, m *db.Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	h, err := s.get(index)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.apply(m); err != nil {
		return err
	}
	h.mappings[m.Type] = m
	if err := h.persistMappings(); err != nil {
		return &db.Error{Op: db.OpAlterIndex, Err: err}
	}
	return nil
}

// apply adds m to the live index mapping. Caller holds h.mu.
func (h *handle) apply(m *db.Mapping) error {
	im, ok := h.idx.Mapping().(*mapping.IndexMappingImpl)
	if !ok {
		return &db.Error{Op: db.OpAlterIndex, Err: fmt.Errorf("unexpected index mapping %T", h.idx.Mapping())}
	}
	dm, err := documentMapping(m)
	if err != nil {
		return err
	}
	im.AddDocumentMapping(m.Type, dm)
	return nil
}

func (h *handle) persistMappings() error {
	raw := make(map[string]json.RawMessage, len(h.mappings))
	for typ, m := range h.mappings {
		data, err := m.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode mapping %s: %w", typ, err)
		}
		raw[typ] = data
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return h.idx.SetInternal(mappingsKey, data)
}

func (h *handle) restoreMappings() error {
	data, err := h.idx.GetInternal(mappingsKey)
	if err != nil {
		return fmt.Errorf("read mappings: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode mappings: %w", err)
	}
	for typ, msg := range raw {
		var m db.Mapping
		if err := m.UnmarshalJSON(msg); err != nil {
			return fmt.Errorf("decode mapping %s: %w", typ, err)
		}
		if err := h.apply(&m); err != nil {
			return err
		}
		h.mappings[typ] = &m
	}
	return nil
}

func baseDocumentMapping() *mapping.DocumentMapping {
	dm := bleve.NewDocumentStaticMapping()
	dm.AddFieldMappingsAt(TypeField, keywordField())
	dm.AddFieldMappingsAt("pk", bleve.NewNumericFieldMapping())
	dm.AddFieldMappingsAt("content_type", keywordField())
	return dm
}

func documentMapping(m *db.Mapping) (*mapping.DocumentMapping, error) {
	dm := bleve.NewDocumentStaticMapping()
	dm.AddFieldMappingsAt(TypeField, keywordField())
	for _, f := range m.Fields {
		fm, err := fieldMapping(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		dm.AddFieldMappingsAt(f.Name, fm)
	}
	return dm, nil
}

func fieldMapping(t db.FieldType) (*mapping.FieldMapping, error) {
	switch t {
	case db.FieldInteger, db.FieldLong, db.FieldFloat:
		return bleve.NewNumericFieldMapping(), nil
	case db.FieldBoolean:
		return bleve.NewBooleanFieldMapping(), nil
	case db.FieldKeyword:
		return keywordField(), nil
	case db.FieldText:
		return bleve.NewTextFieldMapping(), nil
	case db.FieldDate:
		return bleve.NewDateTimeFieldMapping(), nil
	default:
		return nil, fmt.Errorf("unsupported field type %s", t)
	}
}

func keywordField() *mapping.FieldMapping {
	fm := bleve.NewKeywordFieldMapping()
	fm.IncludeInAll = false
	return fm
}
