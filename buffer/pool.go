package buffer

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/arloliu/xfer/errs"
)

// MinPoolBuffers is the smallest number of aggregators a Pool preallocates.
// One incoming chunk may finish the current aggregator and spill into the next, so a
// spare must always be obtainable.
const MinPoolBuffers = 2

// Pool is the bounded Stager. It preallocates aggregators, recycles released ones,
// and never has more than maxBuffs aggregators in existence.
//
// When every aggregator is out with consumers, Write blocks until one is released
// or ctx is done. This is the backpressure mechanism: a producer that outpaces its
// consumers stalls instead of growing memory.
//
// Write and Flush must be called from a single producer goroutine. Release is safe
// for concurrent use and never blocks.
type Pool struct {
	blockSize int
	maxBuffs  int

	// sem holds one permit per aggregator outside the free list.
	sem *semaphore.Weighted

	mu        sync.Mutex
	free      []*Aggregator
	allocated int

	current *Aggregator
}

var _ Stager = (*Pool)(nil)

// NewPool creates a bounded pool of blockSize aggregators.
//
// Parameters:
//   - blockSize: Size of every emitted block except possibly the last
//   - numBuffs: Aggregators allocated up front, at least MinPoolBuffers
//   - maxBuffs: Upper bound on aggregators in existence, at least numBuffs
func NewPool(blockSize, numBuffs, maxBuffs int) (*Pool, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("%w: block size %d", errs.ErrInvalidSize, blockSize)
	}
	if numBuffs < MinPoolBuffers {
		return nil, fmt.Errorf("%w: need at least %d buffers, got %d", errs.ErrInvalidPoolSize, MinPoolBuffers, numBuffs)
	}
	if maxBuffs < numBuffs {
		return nil, fmt.Errorf("%w: max buffers %d below initial %d", errs.ErrInvalidPoolSize, maxBuffs, numBuffs)
	}

	p := &Pool{
		blockSize: blockSize,
		maxBuffs:  maxBuffs,
		sem:       semaphore.NewWeighted(int64(maxBuffs)),
		free:      make([]*Aggregator, 0, maxBuffs),
		allocated: numBuffs,
	}
	for range numBuffs {
		p.free = append(p.free, newAggregator(blockSize, p))
	}

	return p, nil
}

func (p *Pool) Write(ctx context.Context, b []byte, fn BlockFunc) error {
	return stage(ctx, &p.current, b, p.acquire, fn)
}

func (p *Pool) Flush(fn BlockFunc) error {
	return flush(&p.current, fn)
}

func (p *Pool) BlockSize() int {
	return p.blockSize
}

// MaxBuffers returns the allocation bound.
func (p *Pool) MaxBuffers() int {
	return p.maxBuffs
}

// Allocated returns the number of aggregators created so far.
func (p *Pool) Allocated() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.allocated
}

// Outstanding returns the number of aggregators currently out of the free list.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.allocated - len(p.free)
}

// Release returns an emitted aggregator to the pool. Aggregators from another pool
// and repeated releases are ignored.
func (p *Pool) Release(a *Aggregator) {
	if a == nil || a.owner != p {
		return
	}

	p.mu.Lock()
	for _, f := range p.free {
		if f == a {
			p.mu.Unlock()
			return
		}
	}
	a.Reset()
	p.free = append(p.free, a)
	p.mu.Unlock()

	p.sem.Release(1)
}

// acquire takes a free aggregator, allocating while under maxBuffs, and blocks when
// the pool is exhausted.
func (p *Pool) acquire(ctx context.Context) (*Aggregator, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrBufferWaitCanceled, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		a := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]

		return a, nil
	}

	// The permit guarantees allocated < maxBuffs here.
	p.allocated++

	return newAggregator(p.blockSize, p), nil
}
