package bleve

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/indexsync/internal/db"
)

// DocID returns the bleve document id of a typed document.
func DocID(typ, id string) string {
	return typ + ":" + id
}

func source(doc db.Doc) (map[string]any, error) {
	if doc.Type == "" || doc.ID == "" {
		return nil, fmt.Errorf("document type and id are required")
	}
	data := make(map[string]any, len(doc.Fields)+1)
	for _, f := range doc.Fields {
		if f.Value == nil {
			continue
		}
		data[f.Name] = f.Value
	}
	data[TypeField] = doc.Type
	return data, nil
}

// IndexDocument creates or replaces a document.
func (s *Store) IndexDocument(_ context.Context, index string, doc db.Doc) error {
	data, err := source(doc)
	if err != nil {
		return err
	}
	h, err := s.get(index)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if err := h.idx.Index(DocID(doc.Type, doc.ID), data); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// DeleteDocument removes a document. ErrDocumentNotFound if absent.
func (s *Store) DeleteDocument(_ context.Context, index, typ, id string) error {
	h, err := s.get(index)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	docID := DocID(typ, id)
	existing, err := h.idx.Document(docID)
	if err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	if existing == nil {
		return db.ErrDocumentNotFound
	}
	if err := h.idx.Delete(docID); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// BulkWrite indexes docs in one batch. When the batch is rejected as a
// whole, documents are retried one by one so each gets its own outcome.
func (s *Store) BulkWrite(ctx context.Context, index string, docs []db.Doc) ([]db.BulkOutcome, error) {
	out := make([]db.BulkOutcome, len(docs))
	if len(docs) == 0 {
		return out, nil
	}
	h, err := s.get(index)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	batch := h.idx.NewBatch()
	sources := make([]map[string]any, len(docs))
	for i, doc := range docs {
		out[i] = db.BulkOutcome{Type: doc.Type, ID: doc.ID}
		data, err := source(doc)
		if err == nil {
			err = batch.Index(DocID(doc.Type, doc.ID), data)
		}
		if err != nil {
			out[i].Err = &db.Error{Op: db.OpBulk, Err: err}
			continue
		}
		sources[i] = data
	}
	if batch.Size() == 0 {
		return out, nil
	}
	if err := h.idx.Batch(batch); err == nil {
		return out, nil
	}

	for i, data := range sources {
		if data == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := h.idx.Index(DocID(docs[i].Type, docs[i].ID), data); err != nil {
			out[i].Err = &db.Error{Op: db.OpBulk, Err: err}
		}
	}
	return out, nil
}
