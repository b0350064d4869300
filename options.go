package indexsync

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/db"
)

// Option configures the Engine.
type Option interface {
	apply(*engineConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*engineConfig)

func (f optionFunc) apply(c *engineConfig) { f(c) }

type engineConfig struct {
	conn db.ConnectionConfig

	dbDriver string
	dsn      string
	sqlDB    *sql.DB

	indexName        string
	batchSize        int
	pageSize         int
	batchesPerSecond float64
	lockDir          string

	logger *zap.Logger
}

// WithBleve uses the embedded bleve backend. An empty dir keeps the index in memory.
func WithBleve(dir string) Option {
	return optionFunc(func(c *engineConfig) {
		c.conn = db.ConnectionConfig{Driver: "bleve", Dir: dir}
	})
}

// WithRedis connects to Redis 8 or Redis Stack.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *engineConfig) {
		c.conn = db.ConnectionConfig{Driver: "redis", Hosts: []string{addr}, Password: password}
	})
}

// WithValkey connects to Valkey with the valkey-search module.
// Free text queries are not supported there; exact filters are.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *engineConfig) {
		c.conn = db.ConnectionConfig{Driver: "valkey", Hosts: []string{addr}, Password: password}
	})
}

// WithTimeout sets the per-command timeout of the Redis and Valkey clients.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *engineConfig) {
		c.conn.Timeout = d
	})
}

// WithDatabase opens the authoritative database. The engine closes it.
// Supported drivers are "sqlite" (pure Go) and "sqlite3" (cgo).
func WithDatabase(driver, dsn string) Option {
	return optionFunc(func(c *engineConfig) {
		c.dbDriver = driver
		c.dsn = dsn
	})
}

// WithDB uses an already opened database. The engine does not close it.
func WithDB(sqlDB *sql.DB) Option {
	return optionFunc(func(c *engineConfig) {
		c.sqlDB = sqlDB
	})
}

// WithIndexName sets the search index name. Default: "elastic".
func WithIndexName(name string) Option {
	return optionFunc(func(c *engineConfig) {
		c.indexName = name
	})
}

// WithBatchSize sets the number of documents per bulk request. Default: 500.
func WithBatchSize(size int) Option {
	return optionFunc(func(c *engineConfig) {
		c.batchSize = size
	})
}

// WithPageSize sets the number of rows read per query when enumerating a table.
// Default: 1000.
func WithPageSize(size int) Option {
	return optionFunc(func(c *engineConfig) {
		c.pageSize = size
	})
}

// WithRateLimit throttles bulk submission to n batches per second.
func WithRateLimit(n float64) Option {
	return optionFunc(func(c *engineConfig) {
		c.batchesPerSecond = n
	})
}

// WithLockDir guards Rebuild with a lock file in dir, shared by every process
// using the same index name.
func WithLockDir(dir string) Option {
	return optionFunc(func(c *engineConfig) {
		c.lockDir = dir
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *engineConfig) {
		c.logger = l
	})
}
