package rebuild

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/indexsync/internal/domain"
	dombatch "github.com/kailas-cloud/indexsync/internal/domain/batch"
	domdoc "github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	"github.com/kailas-cloud/indexsync/internal/metrics"
	"github.com/kailas-cloud/indexsync/internal/usecase/mapping"
)

// DefaultBatchSize is the number of entities submitted per bulk request.
const DefaultBatchSize = 500

// Service rebuilds the search index from the authoritative stores.
type Service struct {
	index     Index
	types     TypeLister
	encoder   *mapping.Encoder
	batchSize int
	limiter   *rate.Limiter
	lock      Locker
	observer  Observer
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a rebuild service.
func New(index Index, types TypeLister, encoder *mapping.Encoder) *Service {
	return &Service{
		index:     index,
		types:     types,
		encoder:   encoder,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
}

// WithBatchSize configures the bulk batch size.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// WithLimiter throttles batch submission. nil disables throttling.
func (s *Service) WithLimiter(l *rate.Limiter) *Service {
	s.limiter = l
	return s
}

// WithLock makes Rebuild fail with domain.ErrRebuildInProgress while l is held elsewhere.
func (s *Service) WithLock(l Locker) *Service {
	s.lock = l
	return s
}

// WithObserver sets the progress callback.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// ResetIndex drops the index if it exists and creates it empty.
func (s *Service) ResetIndex(ctx context.Context) error {
	if err := s.index.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	return nil
}

// RefreshIndex makes every indexed document searchable.
func (s *Service) RefreshIndex(ctx context.Context) error {
	if err := s.index.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh index: %w", err)
	}
	return nil
}

// IndexDocuments saves the mapping of every concrete type and bulk indexes its
// instances. Per-document failures are recorded in the report. The error is
// set only for failures that abort the run.
func (s *Service) IndexDocuments(ctx context.Context) (*dombatch.Report, error) {
	report := dombatch.NewReport(uuid.NewString(), s.now())
	err := s.indexAll(ctx, report)
	report.Finish(s.now())
	return report, err
}

// Rebuild resets, indexes and refreshes the index. A partial bulk failure is
// not an error here; check Report.Err.
func (s *Service) Rebuild(ctx context.Context) (*dombatch.Report, error) {
	if s.lock != nil {
		release, err := s.lock.TryAcquire()
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(); err != nil {
				s.logger.Warn("Release rebuild lock failed", zap.Error(err))
			}
		}()
	}

	report := dombatch.NewReport(uuid.NewString(), s.now())
	log := s.logger.With(zap.String("run_id", report.RunID()))
	log.Info("Rebuild started")

	err := s.rebuild(ctx, report)
	report.Finish(s.now())

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		log.Error("Rebuild failed", zap.Error(err), zap.Int("documents", report.Total()))
	case report.Err() != nil:
		outcome = "partial"
		log.Warn("Rebuild finished with failures",
			zap.Int("indexed", report.Indexed()),
			zap.Int("failed", len(report.Failures())),
			zap.Duration("duration", report.Duration()),
		)
	default:
		log.Info("Rebuild finished",
			zap.Int("indexed", report.Indexed()),
			zap.Duration("duration", report.Duration()),
		)
	}
	metrics.RebuildsTotal.WithLabelValues(outcome).Inc()
	metrics.RebuildDuration.WithLabelValues(outcome).Observe(report.Duration().Seconds())

	return report, err
}

func (s *Service) rebuild(ctx context.Context, report *dombatch.Report) error {
	if err := s.ResetIndex(ctx); err != nil {
		return err
	}
	if err := s.indexAll(ctx, report); err != nil {
		return err
	}
	return s.RefreshIndex(ctx)
}

func (s *Service) indexAll(ctx context.Context, report *dombatch.Report) error {
	for _, t := range s.types.Indexable() {
		m, err := s.encoder.Deriver().Derive(t)
		if err != nil {
			return fmt.Errorf("derive %s: %w", t.ContentType(), err)
		}
		if err := s.index.PutMapping(ctx, m.Schema()); err != nil {
			return fmt.Errorf("save mapping %s: %w", m.MappingName(), err)
		}
		report.Touch(m.ContentType())
		s.emit(Event{Kind: EventMappingSaved, ContentType: m.ContentType(), MappingName: m.MappingName()})
		s.logger.Debug("Saved mapping", zap.String("type", m.MappingName()))

		if err := s.indexType(ctx, t, m, report); err != nil {
			return err
		}
	}
	return nil
}

// pending is one enumerated entity with its encoding outcome.
type pending struct {
	pk  int64
	doc domdoc.Document
	err error
}

// indexType encodes and submits one type. Encoding runs one batch ahead of
// submission.
func (s *Service) indexType(ctx context.Context, t *entity.Type, m *mapping.Mapping, report *dombatch.Report) error {
	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan []pending, 1)

	g.Go(func() error {
		defer close(batches)
		buf := make([]pending, 0, s.batchSize)
		for ent, err := range t.Indexable(gctx) {
			if err != nil {
				return fmt.Errorf("enumerate %s: %w", m.ContentType(), err)
			}
			doc, err := s.encoder.EncodeWith(gctx, m, ent)
			buf = append(buf, pending{pk: ent.PK(), doc: doc, err: err})
			if len(buf) < s.batchSize {
				continue
			}
			select {
			case batches <- buf:
			case <-gctx.Done():
				return gctx.Err()
			}
			buf = make([]pending, 0, s.batchSize)
		}
		if len(buf) == 0 {
			return nil
		}
		select {
		case batches <- buf:
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	})

	g.Go(func() error {
		for b := range batches {
			if err := s.submit(gctx, m, b, report); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait() //nolint:wrapcheck // both goroutines wrap their errors
}

func (s *Service) submit(ctx context.Context, m *mapping.Mapping, batch []pending, report *dombatch.Report) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	docs := make([]domdoc.Document, 0, len(batch))
	slots := make([]int, 0, len(batch))
	for i, p := range batch {
		if p.err == nil {
			docs = append(docs, p.doc)
			slots = append(slots, i)
		}
	}

	if len(docs) > 0 {
		errs, err := s.index.Bulk(ctx, docs)
		switch {
		case errors.Is(err, domain.ErrBackendUnavailable):
			return fmt.Errorf("bulk %s: %w", m.ContentType(), err)
		case err != nil:
			for _, i := range slots {
				batch[i].err = err
			}
		default:
			for j, i := range slots {
				batch[i].err = errs[j]
			}
		}
	}

	ct := m.ContentType()
	for _, p := range batch {
		if p.err != nil {
			report.Add(dombatch.NewError(ct, p.pk, p.err))
			metrics.DocumentsIndexedTotal.WithLabelValues(ct, "error").Inc()
			s.logger.Warn("Document failed",
				zap.String("content_type", ct), zap.Int64("pk", p.pk), zap.Error(p.err))
			s.emit(Event{Kind: EventDocumentFailed, ContentType: ct, MappingName: m.MappingName(), PK: p.pk, Err: p.err})
			continue
		}
		report.Add(dombatch.NewOK(ct, p.pk))
		metrics.DocumentsIndexedTotal.WithLabelValues(ct, "ok").Inc()
		s.emit(Event{Kind: EventDocumentIndexed, ContentType: ct, MappingName: m.MappingName(), PK: p.pk})
	}
	return nil
}

func (s *Service) emit(e Event) {
	if s.observer != nil {
		s.observer(e)
	}
}
