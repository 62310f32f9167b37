package buffer

import (
	"context"
	"fmt"

	"github.com/arloliu/xfer/errs"
)

// BlockFunc receives a completed block. It is called synchronously, in block order,
// before the stager obtains the next aggregator. An error aborts the write.
type BlockFunc func(*Aggregator) error

// Stager rebuffers writes of any size into blocks of one fixed size.
//
// Concatenating the emitted blocks in emission order reproduces the concatenation
// of all writes. Every block except possibly the last holds exactly the block size.
//
// Write and Flush must be called from a single goroutine.
type Stager interface {
	// Write stages p, emitting every block p completes.
	Write(ctx context.Context, p []byte, fn BlockFunc) error
	// Flush emits the partially filled block, if any. A second Flush emits nothing.
	Flush(fn BlockFunc) error
	// Release hands an emitted block back once its consumer is done with it.
	Release(a *Aggregator)
	// BlockSize returns the fixed block size.
	BlockSize() int
}

// acquireFunc obtains an empty aggregator.
type acquireFunc func(ctx context.Context) (*Aggregator, error)

// stage runs the shared chunking algorithm: fill the current aggregator, emit it
// when full, obtain another for the unconsumed tail.
func stage(ctx context.Context, cur **Aggregator, p []byte, acquire acquireFunc, fn BlockFunc) error {
	for len(p) > 0 {
		if *cur == nil {
			a, err := acquire(ctx)
			if err != nil {
				return err
			}
			*cur = a
		}

		n := (*cur).Append(p)
		p = p[n:]

		if (*cur).Full() {
			full := *cur
			*cur = nil
			if err := fn(full); err != nil {
				return err
			}
		}
	}

	return nil
}

// flush emits the current partial aggregator once.
func flush(cur **Aggregator, fn BlockFunc) error {
	a := *cur
	*cur = nil
	if a == nil || a.Size() == 0 {
		return nil
	}

	return fn(a)
}

// StagingArea is the unbounded Stager: it allocates a fresh aggregator whenever it
// needs one and never recycles.
type StagingArea struct {
	blockSize int
	current   *Aggregator
}

var _ Stager = (*StagingArea)(nil)

// NewStagingArea creates an unbounded staging area emitting blocks of blockSize bytes.
func NewStagingArea(blockSize int) (*StagingArea, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("%w: block size %d", errs.ErrInvalidSize, blockSize)
	}

	return &StagingArea{blockSize: blockSize}, nil
}

func (s *StagingArea) Write(ctx context.Context, p []byte, fn BlockFunc) error {
	return stage(ctx, &s.current, p, s.acquire, fn)
}

func (s *StagingArea) Flush(fn BlockFunc) error {
	return flush(&s.current, fn)
}

// Release does nothing: emitted blocks belong to the consumer.
func (s *StagingArea) Release(*Aggregator) {}

func (s *StagingArea) BlockSize() int {
	return s.blockSize
}

func (s *StagingArea) acquire(context.Context) (*Aggregator, error) {
	return newAggregator(s.blockSize, nil), nil
}
