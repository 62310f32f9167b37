// Package channel provides a buffered, seekable byte channel over a storage resource.
//
// A Channel is opened in one direction. A read channel pulls fixed-size chunks from a
// ReadBehavior and serves reads out of its window; a write channel accumulates writes
// and pushes full chunks to a WriteBehavior, committing the total length on Close.
//
// A Channel is not safe for concurrent use.
package channel

import (
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/xfer/errs"
)

// Channel is a seekable byte channel bound to exactly one of a ReadBehavior or a
// WriteBehavior.
type Channel struct {
	rb ReadBehavior
	wb WriteBehavior

	// buf holds the read window or the pending write bytes. bufStart is the
	// absolute offset of buf[0].
	buf      []byte
	bufStart int64
	cursor   int // read position within buf

	pos    int64
	size   int64 // write high-water mark
	eof    bool
	closed bool
}

var (
	_ io.ReadWriteSeeker = (*Channel)(nil)
	_ io.Closer          = (*Channel)(nil)
)

// NewReader opens a read channel at position start.
//
// Parameters:
//   - rb: Storage read behavior
//   - chunkSize: Bytes requested from rb per refill, must be positive
//   - start: Initial logical position, must not be negative
func NewReader(rb ReadBehavior, chunkSize int, start int64) (*Channel, error) {
	if rb == nil {
		return nil, fmt.Errorf("%w: nil read behavior", errs.ErrInvalidArgument)
	}
	c, err := newChannel(chunkSize, start)
	if err != nil {
		return nil, err
	}
	c.rb = rb

	return c, nil
}

// NewWriter opens a write channel at position start.
//
// Parameters:
//   - wb: Storage write behavior
//   - chunkSize: Bytes buffered before each call to wb.Write, must be positive
//   - start: Offset of the first written byte, must not be negative
func NewWriter(wb WriteBehavior, chunkSize int, start int64) (*Channel, error) {
	if wb == nil {
		return nil, fmt.Errorf("%w: nil write behavior", errs.ErrInvalidArgument)
	}
	c, err := newChannel(chunkSize, start)
	if err != nil {
		return nil, err
	}
	c.wb = wb
	c.size = start

	return c, nil
}

func newChannel(chunkSize int, start int64) (*Channel, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("%w: chunk size %d", errs.ErrInvalidSize, chunkSize)
	}
	if start < 0 {
		return nil, fmt.Errorf("%w: %d", errs.ErrInvalidPosition, start)
	}

	return &Channel{
		buf:      make([]byte, 0, chunkSize),
		bufStart: start,
		pos:      start,
	}, nil
}

// IsOpen reports whether Close has not yet succeeded.
func (c *Channel) IsOpen() bool {
	return !c.closed
}

// Position returns the logical position.
func (c *Channel) Position() int64 {
	return c.pos
}

// Read copies buffered bytes into p, refilling the window from the read behavior
// when it is exhausted. It returns io.EOF at the end of the resource.
func (c *Channel) Read(p []byte) (int, error) {
	if err := c.check(c.rb != nil); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	if c.cursor >= len(c.buf) {
		if c.eof {
			return 0, io.EOF
		}
		if err := c.refill(); err != nil {
			return 0, err
		}
	}

	n := copy(p, c.buf[c.cursor:])
	c.cursor += n
	c.pos += int64(n)

	return n, nil
}

func (c *Channel) refill() error {
	window := c.buf[:cap(c.buf)]
	n, err := c.rb.Read(window, c.pos)
	if n > 0 {
		c.buf = window[:n]
		c.bufStart = c.pos
		c.cursor = 0

		return nil
	}

	c.buf = c.buf[:0]
	c.bufStart = c.pos
	c.cursor = 0

	switch {
	case errors.Is(err, io.EOF):
		c.eof = true
		c.pos = min(c.pos, c.rb.ResourceLength())
		c.bufStart = c.pos

		return io.EOF
	case err != nil:
		return err
	default:
		return io.ErrNoProgress
	}
}

// Write buffers p, flushing each full chunk to the write behavior. When a flush
// fails, the bytes copied for that chunk are withdrawn and n counts only what the
// channel still holds or has stored.
func (c *Channel) Write(p []byte) (int, error) {
	if err := c.check(c.wb != nil); err != nil {
		return 0, err
	}

	written := 0
	for len(p) > 0 {
		before := len(c.buf)
		n := copy(c.buf[before:cap(c.buf)], p)
		c.buf = c.buf[:before+n]

		if len(c.buf) == cap(c.buf) {
			if err := c.flush(); err != nil {
				c.buf = c.buf[:before]
				return written, err
			}
		}

		written += n
		c.pos += int64(n)
		p = p[n:]
	}

	return written, nil
}

// flush stores the pending bytes at their absolute offset.
func (c *Channel) flush() error {
	if len(c.buf) == 0 {
		return nil
	}
	if err := c.wb.Write(c.buf, c.bufStart); err != nil {
		return fmt.Errorf("channel: write %d bytes at offset %d: %w", len(c.buf), c.bufStart, err)
	}

	c.bufStart += int64(len(c.buf))
	c.size = max(c.size, c.bufStart)
	c.buf = c.buf[:0]

	return nil
}

// SetPosition moves the logical position.
//
// A read channel moves within its window without I/O and otherwise drops the window
// so the next Read refills at pos. A write channel asks the write behavior whether
// pos is reachable, flushes pending bytes at their old offset, then moves.
func (c *Channel) SetPosition(pos int64) error {
	if c.closed {
		return errs.ErrChannelClosed
	}
	if pos < 0 {
		return fmt.Errorf("%w: %d", errs.ErrInvalidPosition, pos)
	}
	if pos == c.pos {
		return nil
	}

	if c.rb != nil {
		c.eof = false
		if pos >= c.bufStart && pos <= c.bufStart+int64(len(c.buf)) {
			c.cursor = int(pos - c.bufStart)
		} else {
			c.buf = c.buf[:0]
			c.bufStart = pos
			c.cursor = 0
		}
		c.pos = pos

		return nil
	}

	if err := c.wb.CanSeek(pos); err != nil {
		return err
	}
	if err := c.flush(); err != nil {
		return err
	}
	c.bufStart = pos
	c.pos = pos

	return nil
}

// Seek implements io.Seeker on top of SetPosition. io.SeekEnd is relative to Size.
func (c *Channel) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = c.pos
	case io.SeekEnd:
		size, err := c.Size()
		if err != nil {
			return c.pos, err
		}
		base = size
	default:
		return c.pos, fmt.Errorf("%w: whence %d", errs.ErrInvalidArgument, whence)
	}

	if err := c.SetPosition(base + offset); err != nil {
		return c.pos, err
	}

	return c.pos, nil
}

// Size returns the resource length for a read channel and the written length,
// including pending bytes, for a write channel.
func (c *Channel) Size() (int64, error) {
	if c.closed {
		return 0, errs.ErrChannelClosed
	}
	if c.rb != nil {
		return c.rb.ResourceLength(), nil
	}

	return max(c.size, c.bufStart+int64(len(c.buf))), nil
}

// Truncate flushes pending bytes and resizes the resource of a write channel. The
// position is pulled back to size if it lies beyond it.
func (c *Channel) Truncate(size int64) error {
	if err := c.check(c.wb != nil); err != nil {
		return err
	}
	if size < 0 {
		return fmt.Errorf("%w: truncate to %d", errs.ErrInvalidSize, size)
	}

	if err := c.flush(); err != nil {
		return err
	}
	if err := c.wb.Resize(size); err != nil {
		return err
	}

	c.size = size
	if c.pos > size {
		c.pos = size
		c.bufStart = size
	}

	return nil
}

// Close releases a read channel. A write channel flushes pending bytes and commits
// the written length. Once Close succeeds, further calls return nil.
func (c *Channel) Close() error {
	if c.closed {
		return nil
	}

	if c.wb != nil {
		if err := c.flush(); err != nil {
			return err
		}
		if err := c.wb.Commit(c.size); err != nil {
			return fmt.Errorf("channel: commit %d bytes: %w", c.size, err)
		}
	}

	c.closed = true
	c.buf = nil

	return nil
}

func (c *Channel) check(direction bool) error {
	if c.closed {
		return errs.ErrChannelClosed
	}
	if !direction {
		return errs.ErrWrongDirection
	}

	return nil
}
