package indexsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/indexsync/internal/db"
	dbBleve "github.com/kailas-cloud/indexsync/internal/db/bleve"
	dbRedis "github.com/kailas-cloud/indexsync/internal/db/redis"
	dbValkey "github.com/kailas-cloud/indexsync/internal/db/valkey"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	"github.com/kailas-cloud/indexsync/internal/lock"
	entityrepo "github.com/kailas-cloud/indexsync/internal/repository/entity"
	indexrepo "github.com/kailas-cloud/indexsync/internal/repository/index"
	healthuc "github.com/kailas-cloud/indexsync/internal/usecase/health"
	"github.com/kailas-cloud/indexsync/internal/usecase/mapping"
	"github.com/kailas-cloud/indexsync/internal/usecase/mutation"
	"github.com/kailas-cloud/indexsync/internal/usecase/rebuild"
	searchuc "github.com/kailas-cloud/indexsync/internal/usecase/search"
)

const (
	defaultIndexName        = "elastic"
	defaultReadinessTimeout = 10 * time.Second
)

// readiness is implemented by backends that need time to accept commands.
type readiness interface {
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Engine is the indexsync entry point. It is safe for concurrent use once
// every index is declared.
type Engine struct {
	cfg     *engineConfig
	conns   *db.Connections
	sqlDB   *sql.DB
	ownDB   bool
	types   *entity.Registry
	index   *indexrepo.Repo
	encoder *mapping.Encoder

	mutator *mutation.Service
	search  *searchuc.Service
	logger  *zap.Logger
}

// Open connects to the search backend and, when configured, the database.
func Open(ctx context.Context, opts ...Option) (*Engine, error) {
	cfg := &engineConfig{indexName: defaultIndexName}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.conn.Driver == "" {
		return nil, errors.New("indexsync: search backend required (use WithBleve, WithRedis or WithValkey)")
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	conns := db.NewConnections()
	conns.RegisterDriver("redis", dbRedis.Open)
	conns.RegisterDriver("valkey", dbValkey.Open)
	conns.RegisterDriver("bleve", dbBleve.Open)
	if err := conns.Configure(db.DefaultAlias, cfg.conn); err != nil {
		return nil, fmt.Errorf("indexsync: %w", err)
	}
	backend, err := conns.Get(ctx, db.DefaultAlias)
	if err != nil {
		return nil, fmt.Errorf("indexsync: %w", err)
	}
	if r, ok := backend.(readiness); ok {
		if err := r.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			_ = conns.Close()
			return nil, fmt.Errorf("indexsync: search backend not ready: %w", err)
		}
	}

	e := &Engine{cfg: cfg, conns: conns, sqlDB: cfg.sqlDB, logger: cfg.logger}
	if e.sqlDB == nil && cfg.dsn != "" {
		e.sqlDB, err = entityrepo.Open(ctx, cfg.dbDriver, cfg.dsn, 0)
		if err != nil {
			_ = conns.Close()
			return nil, fmt.Errorf("indexsync: %w", err)
		}
		e.ownDB = true
	}

	e.types = entity.NewRegistry()
	e.index = indexrepo.New(backend, cfg.indexName)
	e.encoder = mapping.NewEncoder(mapping.NewDeriver(), cfg.indexName)
	e.mutator = mutation.New(e.index, e.types, e.encoder).WithLogger(e.logger)
	e.search = searchuc.New(e.index).WithLogger(e.logger)
	return e, nil
}

// Close releases the backend connection and the database opened by the engine.
func (e *Engine) Close() error {
	errs := []error{e.conns.Close()}
	if e.ownDB {
		errs = append(errs, e.sqlDB.Close())
	}
	return errors.Join(errs...)
}

// IndexName returns the name of the search index.
func (e *Engine) IndexName() string { return e.cfg.indexName }

// Ping checks search backend connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.index.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Health reports the state of the search backend and the database.
func (e *Engine) Health(ctx context.Context) Health {
	var dbPinger healthuc.DBPinger
	if e.sqlDB != nil {
		dbPinger = e.sqlDB
	}
	r := healthuc.New(e.index, dbPinger).Check(ctx)
	h := Health{Status: string(r.Status), Checks: make(map[string]string, len(r.Checks))}
	for name, c := range r.Checks {
		h.Checks[name] = string(c)
	}
	return h
}

// Health is the result of Engine.Health.
type Health struct {
	// Status is "ok", "degraded" or "error".
	Status string
	Checks map[string]string
}

// ContentTypes returns the content types that Rebuild indexes, in declaration order.
func (e *Engine) ContentTypes() []string {
	types := e.types.Indexable()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.ContentType()
	}
	return out
}

// Reset drops the index if it exists and creates it empty.
func (e *Engine) Reset(ctx context.Context) error {
	return e.rebuilder(nil).ResetIndex(ctx)
}

// IndexDocuments saves every mapping and bulk indexes every declared index
// without resetting first.
func (e *Engine) IndexDocuments(ctx context.Context, opts ...RebuildOption) (*Report, error) {
	r, err := e.rebuilder(opts).IndexDocuments(ctx)
	return fromReport(r), err
}

// Refresh makes every indexed document searchable.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.rebuilder(nil).RefreshIndex(ctx)
}

// Rebuild resets, indexes and refreshes the index. Documents rejected by the
// backend do not make it fail; check Report.Err.
func (e *Engine) Rebuild(ctx context.Context, opts ...RebuildOption) (*Report, error) {
	r, err := e.rebuilder(opts).Rebuild(ctx)
	return fromReport(r), err
}

// RebuildOption configures one Rebuild or IndexDocuments call.
type RebuildOption func(*rebuildConfig)

type rebuildConfig struct {
	progress func(Progress)
}

// WithProgress calls fn for every saved mapping and every indexed or failed document.
func WithProgress(fn func(Progress)) RebuildOption {
	return func(c *rebuildConfig) {
		c.progress = fn
	}
}

// Progress is one step of a rebuild.
type Progress struct {
	// Event is "mapping_saved", "document_indexed" or "document_failed".
	Event       string
	ContentType string
	Mapping     string
	PK          int64
	Err         error
}

func (e *Engine) rebuilder(opts []RebuildOption) *rebuild.Service {
	var rc rebuildConfig
	for _, o := range opts {
		o(&rc)
	}

	svc := rebuild.New(e.index, e.types, e.encoder).WithLogger(e.logger)
	if e.cfg.batchSize > 0 {
		svc.WithBatchSize(e.cfg.batchSize)
	}
	if e.cfg.batchesPerSecond > 0 {
		svc.WithLimiter(rate.NewLimiter(rate.Limit(e.cfg.batchesPerSecond), 1))
	}
	if e.cfg.lockDir != "" {
		svc.WithLock(lock.NewRebuildLock(e.cfg.lockDir, e.cfg.indexName))
	}
	if fn := rc.progress; fn != nil {
		svc.WithObserver(func(ev rebuild.Event) {
			fn(Progress{
				Event:       ev.Kind.String(),
				ContentType: ev.ContentType,
				Mapping:     ev.MappingName,
				PK:          ev.PK,
				Err:         ev.Err,
			})
		})
	}
	return svc
}

func (e *Engine) register(t *entity.Type) error {
	if err := e.types.Register(t); err != nil {
		return fmt.Errorf("indexsync: %w", err)
	}
	e.logger.Debug("Registered index",
		zap.String("content_type", t.ContentType()),
		zap.Bool("abstract", t.IsAbstract()),
	)
	return nil
}
