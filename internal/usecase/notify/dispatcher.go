package notify

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/domain/entity"
	"github.com/kailas-cloud/indexsync/internal/metrics"
)

// Dispatcher defaults.
const (
	DefaultWorkers = 4
	DefaultBuffer  = 1000
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("dispatcher closed")

// Op is the kind of data change.
type Op string

// Change operations.
const (
	OpSave   Op = "save"
	OpDelete Op = "delete"
)

// IsValid reports whether the op is known.
func (o Op) IsValid() bool { return o == OpSave || o == OpDelete }

// Change notifies that one stored instance was saved or deleted.
type Change struct {
	Op          Op     `json:"op"`
	ContentType string `json:"content_type"`
	PK          int64  `json:"pk"`
}

// Dispatcher applies change notifications to the index. Changes of the same
// instance go to the same worker and are applied in publish order.
type Dispatcher struct {
	mutator Mutator
	types   TypeResolver
	logger  *zap.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	queues  []chan job
	wg      sync.WaitGroup
}

type job struct {
	change Change
	typ    *entity.Type
}

// New creates a dispatcher with the given worker count and per-worker buffer.
func New(m Mutator, types TypeResolver, workers, buffer int) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	d := &Dispatcher{mutator: m, types: types, logger: zap.NewNop()}
	d.queues = make([]chan job, workers)
	for i := range d.queues {
		d.queues[i] = make(chan job, buffer)
	}
	return d
}

// WithLogger sets the logger.
func (d *Dispatcher) WithLogger(l *zap.Logger) *Dispatcher {
	if l != nil {
		d.logger = l
	}
	return d
}

// Start launches the workers. ctx is passed to every mutation; cancel it to
// abandon in-flight work.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i, q := range d.queues {
		d.wg.Add(1)
		go d.run(ctx, i, q)
	}
}

// Publish queues a change. It blocks while the target worker's buffer is full.
func (d *Dispatcher) Publish(ctx context.Context, c Change) error {
	if !c.Op.IsValid() {
		return fmt.Errorf("invalid op %q", c.Op)
	}
	t, err := d.types.Lookup(c.ContentType)
	if err != nil {
		return err //nolint:wrapcheck // Lookup already names the content type
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queues[d.shard(c)] <- job{change: c, typ: t}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish: %w", ctx.Err())
	}
}

// Close stops accepting changes, drains the queues and waits for the workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) shard(c Change) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(c.ContentType))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(strconv.FormatInt(c.PK, 10)))
	return int(h.Sum32() % uint32(len(d.queues)))
}

func (d *Dispatcher) run(ctx context.Context, worker int, q <-chan job) {
	defer d.wg.Done()
	for j := range q {
		err := d.apply(ctx, j)
		metrics.ChangeEventsTotal.WithLabelValues(string(j.change.Op), metrics.Status(err)).Inc()
		if err != nil {
			d.logger.Error("Change failed",
				zap.Int("worker", worker),
				zap.String("op", string(j.change.Op)),
				zap.String("content_type", j.change.ContentType),
				zap.Int64("pk", j.change.PK),
				zap.Error(err),
			)
		}
	}
}

// apply loads saved instances from their source. A saved instance that is
// already gone is removed from the index instead.
func (d *Dispatcher) apply(ctx context.Context, j job) error {
	ref := entity.Ref(j.change.PK)
	if j.change.Op == OpDelete {
		return d.mutator.DeleteDocument(ctx, j.typ, ref) //nolint:wrapcheck // logged with change context
	}

	src := j.typ.Source()
	if src == nil {
		return fmt.Errorf("type %s has no source", j.change.ContentType)
	}
	ents, err := src.FetchByPKs(ctx, []int64{j.change.PK})
	if err != nil {
		return fmt.Errorf("load %s pk=%d: %w", j.change.ContentType, j.change.PK, err)
	}
	for _, e := range ents {
		if e.PK() == j.change.PK {
			return d.mutator.AddDocument(ctx, j.typ, e) //nolint:wrapcheck // logged with change context
		}
	}
	return d.mutator.DeleteDocument(ctx, j.typ, ref) //nolint:wrapcheck // logged with change context
}
