package mutation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	"github.com/kailas-cloud/indexsync/internal/metrics"
	"github.com/kailas-cloud/indexsync/internal/usecase/mapping"
)

// Service propagates single-entity writes and deletes to the search index.
// Calls for different entities may run concurrently; ordering of calls for
// the same entity is up to the caller.
type Service struct {
	index   Index
	types   TypeResolver
	encoder *mapping.Encoder
	logger  *zap.Logger
}

// New creates a mutation service.
func New(index Index, types TypeResolver, encoder *mapping.Encoder) *Service {
	return &Service{index: index, types: types, encoder: encoder, logger: zap.NewNop()}
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// AddDocument encodes e and creates or replaces its document.
func (s *Service) AddDocument(ctx context.Context, t *entity.Type, e entity.Entity) (err error) {
	ct, err := s.check(t, e)
	if err != nil {
		return err
	}
	defer func() { metrics.MutationsTotal.WithLabelValues(ct, "add", metrics.Status(err)).Inc() }()

	doc, err := s.encoder.Encode(ctx, t, e)
	if err != nil {
		return fmt.Errorf("encode %s pk=%d: %w", ct, e.PK(), err)
	}
	if err := s.index.Index(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	s.logger.Debug("Document indexed", zap.String("content_type", ct), zap.Int64("pk", e.PK()))
	return nil
}

// DeleteDocument removes the document of e. A document that is already gone
// is not an error.
func (s *Service) DeleteDocument(ctx context.Context, t *entity.Type, e entity.Entity) (err error) {
	ct, err := s.check(t, e)
	if err != nil {
		return err
	}
	defer func() { metrics.MutationsTotal.WithLabelValues(ct, "delete", metrics.Status(err)).Inc() }()

	err = s.index.Delete(ctx, t.MappingName(), e.PK())
	if errors.Is(err, domain.ErrDocumentNotFound) {
		s.logger.Debug("Document already absent", zap.String("content_type", ct), zap.Int64("pk", e.PK()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// check rejects types the registry does not index.
func (s *Service) check(t *entity.Type, e entity.Entity) (string, error) {
	if e == nil {
		return "", fmt.Errorf("entity is required")
	}
	if t == nil {
		return "", fmt.Errorf("%w: nil type", domain.ErrUnknownType)
	}
	ct := t.ContentType()
	registered, err := s.types.Lookup(ct)
	if err != nil {
		return "", err //nolint:wrapcheck // Lookup already names the content type
	}
	if registered != t {
		return "", fmt.Errorf("%w: %s is not the registered type", domain.ErrUnknownType, ct)
	}
	return ct, nil
}
