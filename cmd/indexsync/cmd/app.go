package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/indexsync/internal/catalog"
	"github.com/kailas-cloud/indexsync/internal/config"
	"github.com/kailas-cloud/indexsync/internal/db"
	dbBleve "github.com/kailas-cloud/indexsync/internal/db/bleve"
	dbRedis "github.com/kailas-cloud/indexsync/internal/db/redis"
	dbValkey "github.com/kailas-cloud/indexsync/internal/db/valkey"
	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	"github.com/kailas-cloud/indexsync/internal/lock"
	"github.com/kailas-cloud/indexsync/internal/metrics"
	entityrepo "github.com/kailas-cloud/indexsync/internal/repository/entity"
	indexrepo "github.com/kailas-cloud/indexsync/internal/repository/index"
	chiTransport "github.com/kailas-cloud/indexsync/internal/transport/chi"
	healthuc "github.com/kailas-cloud/indexsync/internal/usecase/health"
	"github.com/kailas-cloud/indexsync/internal/usecase/mapping"
	"github.com/kailas-cloud/indexsync/internal/usecase/mutation"
	"github.com/kailas-cloud/indexsync/internal/usecase/notify"
	"github.com/kailas-cloud/indexsync/internal/usecase/rebuild"
	searchuc "github.com/kailas-cloud/indexsync/internal/usecase/search"
)

// app is the composition root shared by the commands.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	conns   *db.Connections
	sqlDB   *sql.DB
	types   *entity.Registry
	index   *indexrepo.Repo
	encoder *mapping.Encoder
}

// openApp loads configuration and opens the backend and the database.
func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := newLogger(opts.env, level)
	if err != nil {
		return nil, err
	}

	metrics.RegisterIndexingMetrics()

	a := &app{cfg: cfg, logger: logger}
	if err := a.open(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	conns, err := newConnections(a.cfg)
	if err != nil {
		return err
	}
	a.conns = conns

	backend, err := conns.Get(ctx, a.cfg.Connection)
	if err != nil {
		return fmt.Errorf("open search backend: %w", err)
	}
	if err := backend.Ping(ctx); err != nil {
		a.logger.Warn("Search backend not reachable yet", zap.String("connection", a.cfg.Connection), zap.Error(err))
	}

	if a.cfg.Database.DSN != "" {
		a.sqlDB, err = entityrepo.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN, a.cfg.Database.MaxOpenConns)
		if err != nil {
			return err
		}
	}

	a.types, err = catalog.Build(a.sqlDB, a.cfg.Types, a.cfg.Bulk.PageSize)
	if err != nil {
		return fmt.Errorf("build type catalog: %w", err)
	}
	a.index = indexrepo.New(backend, a.cfg.IndexName)
	a.encoder = mapping.NewEncoder(mapping.NewDeriver(), a.cfg.IndexName)

	a.logger.Info("Opened indexsync",
		zap.String("index", a.cfg.IndexName),
		zap.String("connection", a.cfg.Connection),
		zap.String("db_driver", a.cfg.Database.Driver),
		zap.Int("types", len(a.types.Indexable())),
	)
	return nil
}

// newConnections declares every configured connection. Backends open lazily.
func newConnections(cfg config.Config) (*db.Connections, error) {
	conns := db.NewConnections()
	conns.RegisterDriver("redis", dbRedis.Open)
	conns.RegisterDriver("valkey", dbValkey.Open)
	conns.RegisterDriver("bleve", dbBleve.Open)

	for alias, c := range cfg.Connections {
		err := conns.Configure(alias, db.ConnectionConfig{
			Driver:     c.Driver,
			Hosts:      c.Hosts,
			Timeout:    time.Duration(c.TimeoutSec) * time.Second,
			Serializer: c.Serializer,
			Username:   c.Username,
			Password:   c.Password,
			DB:         c.DB,
			Dir:        c.Dir,
		})
		if err != nil {
			return nil, fmt.Errorf("configure connections: %w", err)
		}
	}
	return conns, nil
}

func (a *app) rebuildService(observer rebuild.Observer) *rebuild.Service {
	svc := rebuild.New(a.index, a.types, a.encoder).
		WithBatchSize(a.cfg.Bulk.ChunkSize).
		WithLock(lock.NewRebuildLock(a.cfg.LockDir, a.cfg.IndexName)).
		WithObserver(observer).
		WithLogger(a.logger)
	if bps := a.cfg.Bulk.BatchesPerSecond; bps > 0 {
		svc.WithLimiter(rate.NewLimiter(rate.Limit(bps), 1))
	}
	return svc
}

// server wires the HTTP API. The dispatcher must be started by the caller.
func (a *app) server() (*chiTransport.Server, *notify.Dispatcher) {
	mutator := mutation.New(a.index, a.types, a.encoder).WithLogger(a.logger)
	dispatcher := notify.New(mutator, a.types, a.cfg.Notify.Workers, a.cfg.Notify.Buffer).WithLogger(a.logger)

	// A nil *sql.DB must not reach the interface.
	var dbPinger healthuc.DBPinger
	if a.sqlDB != nil {
		dbPinger = a.sqlDB
	}

	srv := chiTransport.NewServer(
		a.rebuildService(nil),
		mutator,
		searchuc.New(a.index).WithLogger(a.logger),
		dispatcher,
		a.types,
		healthuc.New(a.index, dbPinger),
		a.logger,
	)
	return srv, dispatcher
}

// Close releases the backend connections and the database.
func (a *app) Close() error {
	var errs []error
	if a.conns != nil {
		errs = append(errs, a.conns.Close())
	}
	if a.sqlDB != nil {
		errs = append(errs, a.sqlDB.Close())
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
