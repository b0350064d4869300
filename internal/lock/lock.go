package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/kailas-cloud/indexsync/internal/domain"
)

// RebuildLock serializes rebuilds of one index across goroutines and processes.
// The lock file lives at <dir>/<index>.rebuild.lock. With an empty dir only
// the in-process guard applies.
type RebuildLock struct {
	path  string
	mu    sync.Mutex
	held  bool
	flock *flock.Flock
}

// NewRebuildLock creates a lock for index under dir.
func NewRebuildLock(dir, index string) *RebuildLock {
	l := &RebuildLock{}
	if dir != "" {
		l.path = filepath.Join(dir, index+".rebuild.lock")
		l.flock = flock.New(l.path)
	}
	return l
}

// TryAcquire takes the lock without blocking. It returns
// domain.ErrRebuildInProgress when another holder has it.
func (l *RebuildLock) TryAcquire() (release func() error, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, domain.ErrRebuildInProgress
	}

	if l.flock != nil {
		if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
		acquired, err := l.flock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", l.path, err)
		}
		if !acquired {
			return nil, fmt.Errorf("%w: locked by another process (%s)", domain.ErrRebuildInProgress, l.path)
		}
	}
	l.held = true

	var once sync.Once
	return func() error {
		var err error
		once.Do(func() { err = l.release() })
		return err
	}, nil
}

func (l *RebuildLock) release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	if l.flock == nil {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}

// Path returns the lock file path, empty for in-process locks.
func (l *RebuildLock) Path() string { return l.path }

// IsHeld reports whether this instance currently holds the lock.
func (l *RebuildLock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
