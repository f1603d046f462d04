// Package pool bounds the number of concurrently processed exchanges.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrOverloaded is returned by Acquire when the waiting backlog is full.
// Callers should translate it into a 503 rather than queue the request.
var ErrOverloaded = errors.New("worker pool backlog is full")

// Pool is a counting semaphore with a bounded waiting backlog.
//
// Up to workers exchanges run concurrently. When all slots are busy,
// Acquire waits; when more than backlog callers are already waiting,
// Acquire fails with ErrOverloaded instead of queuing unboundedly.
// Goroutines parked on a channel are released in FIFO order, so waiting
// acquirers are served roughly first-come first-served.
type Pool struct {
	slots    chan struct{}
	backlog  int64
	waiting  atomic.Int64
	inFlight atomic.Int64
}

// New creates a Pool with the given number of worker slots and waiting
// backlog. workers must be at least 1; backlog may be 0, which makes the
// pool reject as soon as all slots are busy.
func New(workers, backlog int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if backlog < 0 {
		backlog = 0
	}
	return &Pool{
		slots:   make(chan struct{}, workers),
		backlog: int64(backlog),
	}
}

// Acquire obtains a worker slot, waiting until one frees or ctx is done.
// It returns ErrOverloaded when the waiting backlog is already full, or
// the context error when the caller goes away while queued.
//
// The returned Slot must be released on every exit path; Release is
// idempotent, so deferring it immediately is safe.
func (p *Pool) Acquire(ctx context.Context) (*Slot, error) {
	select {
	case p.slots <- struct{}{}:
		p.inFlight.Add(1)
		return &Slot{pool: p}, nil
	default:
	}

	if p.waiting.Add(1) > p.backlog {
		p.waiting.Add(-1)
		return nil, ErrOverloaded
	}
	defer p.waiting.Add(-1)

	select {
	case p.slots <- struct{}{}:
		p.inFlight.Add(1)
		return &Slot{pool: p}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight returns the number of currently held slots.
func (p *Pool) InFlight() int64 {
	return p.inFlight.Load()
}

// Waiting returns the number of acquirers currently queued for a slot.
func (p *Pool) Waiting() int64 {
	return p.waiting.Load()
}

// Capacity returns the configured number of worker slots.
func (p *Pool) Capacity() int {
	return cap(p.slots)
}

// Slot is one unit of the pool's concurrency budget.
type Slot struct {
	pool *Pool
	once sync.Once
}

// Release returns the slot to the pool. It is safe to call more than once;
// only the first call has an effect.
func (s *Slot) Release() {
	s.once.Do(func() {
		s.pool.inFlight.Add(-1)
		<-s.pool.slots
	})
}
