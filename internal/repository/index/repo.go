package index

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain"
	domdoc "github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
	"github.com/kailas-cloud/indexsync/internal/domain/search/request"
	"github.com/kailas-cloud/indexsync/internal/domain/search/result"
)

// store is the consumer interface for the search backend (ISP).
type store interface {
	Ping(ctx context.Context) error
	CreateIndex(ctx context.Context, name string) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	RefreshIndex(ctx context.Context, name string) error
	PutMapping(ctx context.Context, index string, m *db.Mapping) error
	IndexDocument(ctx context.Context, index string, doc db.Doc) error
	DeleteDocument(ctx context.Context, index, typ, id string) error
	BulkWrite(ctx context.Context, index string, docs []db.Doc) ([]db.BulkOutcome, error)
	Search(ctx context.Context, q *db.Query) (*db.SearchResult, error)
}

// Repo writes domain documents to one named index.
type Repo struct {
	store store
	index string
}

// New creates an index repository bound to index.
func New(s store, index string) *Repo {
	return &Repo{store: s, index: index}
}

// Name returns the index name.
func (r *Repo) Name() string { return r.index }

// Ping checks backend connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return mapErr(r.store.Ping(ctx))
}

// Reset drops the index if present and creates it empty.
func (r *Repo) Reset(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.index); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.index, mapErr(err))
	}
	if err := r.store.CreateIndex(ctx, r.index); err != nil {
		return fmt.Errorf("create index %s: %w", r.index, mapErr(err))
	}
	return nil
}

// Exists reports whether the index exists.
func (r *Repo) Exists(ctx context.Context) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.index)
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", r.index, mapErr(err))
	}
	return ok, nil
}

// Refresh makes every acknowledged write searchable.
func (r *Repo) Refresh(ctx context.Context) error {
	if err := r.store.RefreshIndex(ctx, r.index); err != nil {
		return fmt.Errorf("refresh index %s: %w", r.index, mapErr(err))
	}
	return nil
}

// PutMapping registers the schema as the mapping of its type.
func (r *Repo) PutMapping(ctx context.Context, s schema.Schema) error {
	m, err := ToMapping(s)
	if err != nil {
		return err
	}
	if err := r.store.PutMapping(ctx, r.index, m); err != nil {
		return fmt.Errorf("put mapping %s: %w", s.MappingName(), mapErr(err))
	}
	return nil
}

// Index creates or replaces one document.
func (r *Repo) Index(ctx context.Context, doc domdoc.Document) error {
	if err := r.store.IndexDocument(ctx, r.index, toDoc(doc)); err != nil {
		return fmt.Errorf("index %s/%d: %w", doc.Type(), doc.ID(), mapErr(err))
	}
	return nil
}

// Delete removes one document. domain.ErrDocumentNotFound if absent.
func (r *Repo) Delete(ctx context.Context, mappingName string, pk int64) error {
	if err := r.store.DeleteDocument(ctx, r.index, mappingName, strconv.FormatInt(pk, 10)); err != nil {
		return fmt.Errorf("delete %s/%d: %w", mappingName, pk, mapErr(err))
	}
	return nil
}

// Bulk writes docs in one request. The returned slice holds one error per
// document, nil for documents that were accepted. The error return is set
// only when the request as a whole failed.
func (r *Repo) Bulk(ctx context.Context, docs []domdoc.Document) ([]error, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	batch := make([]db.Doc, len(docs))
	for i, d := range docs {
		batch[i] = toDoc(d)
	}
	outcomes, err := r.store.BulkWrite(ctx, r.index, batch)
	if err != nil {
		return nil, fmt.Errorf("bulk write %d documents: %w", len(docs), mapErr(err))
	}
	if len(outcomes) != len(docs) {
		return nil, fmt.Errorf("bulk write: %d outcomes for %d documents", len(outcomes), len(docs))
	}
	errs := make([]error, len(docs))
	for i, o := range outcomes {
		if o.Err != nil {
			errs[i] = mapErr(o.Err)
		}
	}
	return errs, nil
}

// Search runs req against the documents of one mapping type. Hits carry the
// pk field.
func (r *Repo) Search(ctx context.Context, mappingName string, req request.Request) (*result.Page, error) {
	q := &db.Query{
		Index:        r.index,
		Type:         mappingName,
		Text:         req.Text(),
		Offset:       req.Offset(),
		Limit:        req.Limit(),
		ReturnFields: []string{result.PKField},
	}
	for _, c := range req.Filters().Must() {
		q.Terms = append(q.Terms, db.Term{Field: c.Key(), Value: c.Value()})
	}
	res, err := r.store.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", r.index, mapErr(err))
	}
	page := &result.Page{Total: res.Total, Results: make([]result.Result, 0, len(res.Hits))}
	for _, h := range res.Hits {
		if mappingName != "" && h.Type != mappingName {
			continue
		}
		page.Results = append(page.Results, result.New(h.ID, h.Score, h.Fields))
	}
	return page, nil
}

// ToMapping converts a schema to a backend mapping.
func ToMapping(s schema.Schema) (*db.Mapping, error) {
	b := db.NewMapping(s.MappingName())
	for _, f := range s.Fields() {
		ft, err := db.ParseFieldType(string(f.FieldType()))
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %w", domain.ErrInvalidSchema, f.Name(), err)
		}
		b.Field(f.Name(), ft)
	}
	m, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
	}
	return m, nil
}

func toDoc(d domdoc.Document) db.Doc {
	values := d.Values()
	fields := make([]db.Field, len(values))
	for i, v := range values {
		fields[i] = db.Field{Name: v.Name, Value: v.Value}
	}
	return db.Doc{Type: d.Type(), ID: d.IDString(), Fields: fields}
}

// mapErr translates backend sentinels to domain sentinels, keeping the cause.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrUnavailable):
		return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	case errors.Is(err, db.ErrDocumentNotFound):
		return fmt.Errorf("%w: %w", domain.ErrDocumentNotFound, err)
	case errors.Is(err, db.ErrTextSearchNotSupported):
		return fmt.Errorf("%w: %w", domain.ErrTextSearchNotSupported, err)
	default:
		return err
	}
}
