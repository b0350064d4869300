package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/db"
)

// Compile-time check: Store implements db.Backend.
var _ db.Backend = (*Store)(nil)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// Timeout bounds dialing and each write on the connection. Zero keeps rueidis defaults.
	Timeout time.Duration
}

// Store implements db.Backend via rueidis for Redis 8+ (RediSearch).
// Documents are hashes keyed <index>:<type>:<id>.
type Store struct {
	client rueidis.Client
	ser    db.Serializer
	poll   time.Duration
}

// refreshPoll is the FT.INFO polling interval used by RefreshIndex.
const refreshPoll = 50 * time.Millisecond

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config, ser db.Serializer) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	opt := rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	}
	if cfg.Timeout > 0 {
		opt.Dialer = net.Dialer{Timeout: cfg.Timeout}
		opt.ConnWriteTimeout = cfg.Timeout
	}

	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, db.Unavailable(db.OpOpen, fmt.Errorf("failed to create client: %w", err))
	}

	return NewStoreWithClient(client, ser), nil
}

// NewStoreWithClient wraps an existing rueidis client.
func NewStoreWithClient(c rueidis.Client, ser db.Serializer) *Store {
	if ser == nil {
		ser = db.TextSerializer{}
	}
	return &Store{client: c, ser: ser, poll: refreshPoll}
}

// Open is a db.Opener for the "redis" driver.
func Open(_ context.Context, cfg db.ConnectionConfig, ser db.Serializer) (db.Backend, error) {
	return NewStore(ConfigFrom(cfg), ser)
}

// ConfigFrom converts registry settings to a Config.
func ConfigFrom(cfg db.ConnectionConfig) Config {
	return Config{
		Addrs:    cfg.Hosts,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		Timeout:  cfg.Timeout,
	}
}

// Client exposes the underlying rueidis client.
func (s *Store) Client() rueidis.Client { return s.client }

// Serializer returns the value serializer.
func (s *Store) Serializer() db.Serializer { return s.ser }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return Wrap(db.OpPing, err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for search backend: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// Wrap classifies err: server replies become *db.Error, everything else
// (dial, timeout, closed client) is reported as db.ErrUnavailable.
func Wrap(op string, err error) error {
	var re *rueidis.RedisError
	if errors.As(err, &re) && !re.IsNil() {
		return &db.Error{Op: op, Err: err}
	}
	return db.Unavailable(op, err)
}

// IsRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func IsRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return containsIgnoreCase(re.Error(), substr)
}

func containsIgnoreCase(s, substr string) bool {
	ls := len(s)
	lsub := len(substr)
	if lsub > ls {
		return false
	}
	for i := 0; i <= ls-lsub; i++ {
		match := true
		for j := 0; j < lsub; j++ {
			sc := s[i+j]
			tc := substr[j]
			if sc >= 'A' && sc <= 'Z' {
				sc += 'a' - 'A'
			}
			if tc >= 'A' && tc <= 'Z' {
				tc += 'a' - 'A'
			}
			if sc != tc {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
