package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/db"
)

// IndexDocument replaces the document hash in one DEL+HSET round trip.
func (s *Store) IndexDocument(ctx context.Context, index string, doc db.Doc) error {
	cmds, err := s.replaceCmds(index, doc)
	if err != nil {
		return err
	}
	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return Wrap(db.OpHSet, err)
		}
	}
	return nil
}

// DeleteDocument removes the document hash. ErrDocumentNotFound if nothing was deleted.
func (s *Store) DeleteDocument(ctx context.Context, index, typ, id string) error {
	n, err := s.DelCount(ctx, DocKey(index, typ, id))
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrDocumentNotFound
	}
	return nil
}

// BulkWrite pipelines DEL+HSET for every document in one DoMulti.
// Server replies fail single documents; a transport error fails the request.
func (s *Store) BulkWrite(ctx context.Context, index string, docs []db.Doc) ([]db.BulkOutcome, error) {
	out := make([]db.BulkOutcome, len(docs))
	if len(docs) == 0 {
		return out, nil
	}

	cmds := make(rueidis.Commands, 0, 2*len(docs))
	owner := make([]int, 0, 2*len(docs))
	for i, doc := range docs {
		out[i] = db.BulkOutcome{Type: doc.Type, ID: doc.ID}
		docCmds, err := s.replaceCmds(index, doc)
		if err != nil {
			out[i].Err = err
			continue
		}
		for range docCmds {
			owner = append(owner, i)
		}
		cmds = append(cmds, docCmds...)
	}
	if len(cmds) == 0 {
		return out, nil
	}

	for j, res := range s.client.DoMulti(ctx, cmds...) {
		err := res.Error()
		if err == nil {
			continue
		}
		if _, ok := rueidis.IsRedisErr(err); !ok {
			return nil, db.Unavailable(db.OpBulk, err)
		}
		i := owner[j]
		if out[i].Err == nil {
			out[i].Err = &db.Error{Op: db.OpHSet, Err: err}
		}
	}
	return out, nil
}

func (s *Store) replaceCmds(index string, doc db.Doc) ([]rueidis.Completed, error) {
	if doc.Type == "" || doc.ID == "" {
		return nil, fmt.Errorf("document type and id are required")
	}
	fields, err := s.encodeFields(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("document %s/%s: %w", doc.Type, doc.ID, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("document %s/%s has no fields", doc.Type, doc.ID)
	}

	key := DocKey(index, doc.Type, doc.ID)
	hset := s.b().Hset().Key(key).FieldValue()
	for _, f := range fields {
		hset = hset.FieldValue(f[0], f[1])
	}
	return []rueidis.Completed{
		s.b().Del().Key(key).Build(),
		hset.Build(),
	}, nil
}

// encodeFields serializes values in order. Nil values are omitted.
func (s *Store) encodeFields(fields []db.Field) ([][2]string, error) {
	out := make([][2]string, 0, len(fields))
	for _, f := range fields {
		if f.Value == nil {
			continue
		}
		v, err := s.ser.Encode(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out = append(out, [2]string{f.Name, v})
	}
	return out, nil
}
