// Package inference - Session pool.
package inference

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// DefaultPoolSize is a single session: calls are serialized.
const DefaultPoolSize = 1

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("pool is closed")

// ErrAcquireTimeout is returned when no session frees up within the
// configured acquire timeout.
var ErrAcquireTimeout = errors.New("timeout waiting for available session")

// Resource is anything the pool can hold.
type Resource interface {
	Close() error
}

// PoolMetrics is a snapshot of pool usage.
type PoolMetrics struct {
	Size            int           `json:"size"`
	InUse           int           `json:"in_use"`
	TotalAcquired   int64         `json:"total_acquired"`
	TotalReleased   int64         `json:"total_released"`
	AcquireFailures int64         `json:"acquire_failures"`
	WaitTime        time.Duration `json:"wait_time"`
}

// Pool is a fixed set of exclusive resources handed out over a buffered
// channel. Each resource is used by at most one caller at a time.
type Pool[T Resource] struct {
	items          chan T
	size           int
	acquireTimeout time.Duration

	mu      sync.Mutex
	closed  bool
	metrics PoolMetrics
}

// NewPool creates size resources with factory. If any creation fails the
// already-created ones are closed.
//
// Arguments:
//   - size: Number of resources. Values <= 0 mean DefaultPoolSize.
//   - acquireTimeout: Upper bound on waiting in Acquire. Zero waits until
//     the context is done.
//   - factory: Creates the i-th resource.
//
// Returns:
//   - *Pool[T]: The filled pool.
//   - error: The first factory error, combined with any close errors.
func NewPool[T Resource](size int, acquireTimeout time.Duration, factory func(i int) (T, error)) (*Pool[T], error) {
	if size <= 0 {
		size = DefaultPoolSize
	}

	p := &Pool[T]{
		items:          make(chan T, size),
		size:           size,
		acquireTimeout: acquireTimeout,
		metrics:        PoolMetrics{Size: size},
	}

	for i := 0; i < size; i++ {
		item, err := factory(i)
		if err != nil {
			err = errors.Wrapf(err, "failed to initialize session %d", i)
			return nil, multierr.Append(err, p.Close())
		}
		p.items <- item
	}

	return p, nil
}

// Acquire takes a resource, waiting until one is free, the context is done
// or the acquire timeout elapses.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return zero, ErrPoolClosed
	}

	start := time.Now()
	defer func() {
		p.mu.Lock()
		p.metrics.WaitTime += time.Since(start)
		p.mu.Unlock()
	}()

	var timeout <-chan time.Time
	if p.acquireTimeout > 0 {
		timer := time.NewTimer(p.acquireTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case item, ok := <-p.items:
		if !ok {
			return zero, ErrPoolClosed
		}
		p.mu.Lock()
		p.metrics.InUse++
		p.metrics.TotalAcquired++
		p.mu.Unlock()
		return item, nil
	case <-timeout:
		p.recordFailure()
		return zero, ErrAcquireTimeout
	case <-ctx.Done():
		p.recordFailure()
		return zero, ctx.Err()
	}
}

// Release returns a resource to the pool. After Close the resource is
// closed instead.
func (p *Pool[T]) Release(item T) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.InUse--
	p.metrics.TotalReleased++

	if p.closed {
		return item.Close()
	}
	p.items <- item
	return nil
}

// Close closes every idle resource. Resources still acquired are closed on
// Release. Close is idempotent.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.items)

	var err error
	for item := range p.items {
		err = multierr.Append(err, item.Close())
	}
	return err
}

// Metrics returns a snapshot of the pool counters.
func (p *Pool[T]) Metrics() PoolMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

func (p *Pool[T]) recordFailure() {
	p.mu.Lock()
	p.metrics.AcquireFailures++
	p.mu.Unlock()
}
