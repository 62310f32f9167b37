// Package buffer rebuffers an arbitrary sequence of byte chunks into fixed-size
// blocks suitable for parallel upload.
//
// Aggregator copies appended bytes into storage it owns: callers may reuse their
// buffers as soon as Append returns, and an emitted block never aliases caller memory.
package buffer

import (
	"fmt"
	"io"

	"github.com/arloliu/xfer/errs"
	"github.com/arloliu/xfer/internal/pool"
)

// Aggregator accumulates up to a fixed number of bytes from one or more writes into
// a single block.
//
// Note: The Aggregator is NOT thread-safe.
type Aggregator struct {
	buf   *pool.ByteBuffer
	limit int
	owner *Pool // set for aggregators handed out by a Pool
}

// NewAggregator creates an empty aggregator holding at most limit bytes.
func NewAggregator(limit int) (*Aggregator, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: aggregator limit %d", errs.ErrInvalidSize, limit)
	}

	return newAggregator(limit, nil), nil
}

func newAggregator(limit int, owner *Pool) *Aggregator {
	return &Aggregator{
		buf:   pool.NewByteBuffer(limit),
		limit: limit,
		owner: owner,
	}
}

// Append copies as much of p as fits and returns the number of bytes consumed.
// The caller keeps p[n:].
func (a *Aggregator) Append(p []byte) int {
	return a.buf.AppendWithin(p)
}

// RemainingCapacity returns how many more bytes the aggregator accepts.
func (a *Aggregator) RemainingCapacity() int {
	return a.limit - a.buf.Len()
}

// Size returns the number of bytes appended since the last Reset.
func (a *Aggregator) Size() int {
	return a.buf.Len()
}

// Limit returns the fixed capacity of the aggregator.
func (a *Aggregator) Limit() int {
	return a.limit
}

// Full reports whether the aggregator has reached its limit.
func (a *Aggregator) Full() bool {
	return a.buf.Len() == a.limit
}

// Bytes returns the aggregated bytes. The slice is valid until Reset.
func (a *Aggregator) Bytes() []byte {
	return a.buf.Bytes()
}

// WriteTo writes the aggregated bytes to w.
func (a *Aggregator) WriteTo(w io.Writer) (int64, error) {
	return a.buf.WriteTo(w)
}

// Reset empties the aggregator for reuse, keeping its storage.
func (a *Aggregator) Reset() {
	a.buf.Reset()
}
