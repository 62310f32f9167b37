package channel

import (
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/xfer/errs"
)

// ReadBehavior is the storage side of a read channel.
type ReadBehavior interface {
	// Read fills dst with resource bytes starting at offset and returns the count.
	// At or past the end of the resource it returns 0 and io.EOF.
	Read(dst []byte, offset int64) (int, error)
	// ResourceLength returns the total length of the resource.
	ResourceLength() int64
}

// WriteBehavior is the storage side of a write channel.
type WriteBehavior interface {
	// Write stores src at offset.
	Write(src []byte, offset int64) error
	// Commit finalizes the resource with totalLength bytes.
	Commit(totalLength int64) error
	// CanSeek returns an error if writing cannot continue at position.
	CanSeek(position int64) error
	// Resize sets the resource length.
	Resize(newSize int64) error
}

// ReaderAtBehavior reads a resource of known size through an io.ReaderAt.
type ReaderAtBehavior struct {
	r    io.ReaderAt
	size int64
}

var _ ReadBehavior = (*ReaderAtBehavior)(nil)

// NewReaderAtBehavior creates a ReadBehavior over the first size bytes of r.
func NewReaderAtBehavior(r io.ReaderAt, size int64) *ReaderAtBehavior {
	return &ReaderAtBehavior{r: r, size: size}
}

func (b *ReaderAtBehavior) Read(dst []byte, offset int64) (int, error) {
	if offset >= b.size {
		return 0, io.EOF
	}

	remaining := b.size - offset
	if int64(len(dst)) > remaining {
		dst = dst[:remaining]
	}

	n, err := b.r.ReadAt(dst, offset)
	if errors.Is(err, io.EOF) && n > 0 {
		err = nil
	}

	return n, err
}

func (b *ReaderAtBehavior) ResourceLength() int64 {
	return b.size
}

// AppendBehavior writes to an io.Writer that only accepts sequential data, such as a
// pipe or an HTTP request body. Writes must arrive at the current end of the stream.
type AppendBehavior struct {
	w         io.Writer
	written   int64
	committed bool
}

var _ WriteBehavior = (*AppendBehavior)(nil)

// NewAppendBehavior creates a WriteBehavior appending to w.
func NewAppendBehavior(w io.Writer) *AppendBehavior {
	return &AppendBehavior{w: w}
}

func (b *AppendBehavior) Write(src []byte, offset int64) error {
	if b.committed {
		return errs.ErrChannelClosed
	}
	if offset != b.written {
		return fmt.Errorf("%w: write at %d, stream is at %d", errs.ErrSeekUnsupported, offset, b.written)
	}

	n, err := b.w.Write(src)
	b.written += int64(n)
	if err != nil {
		return err
	}
	if n != len(src) {
		return io.ErrShortWrite
	}

	return nil
}

func (b *AppendBehavior) Commit(totalLength int64) error {
	if b.committed {
		return errs.ErrChannelClosed
	}
	if totalLength != b.written {
		return fmt.Errorf("%w: commit of %d bytes, %d written", errs.ErrInvalidSize, totalLength, b.written)
	}
	b.committed = true

	return nil
}

// CanSeek accepts only the current end of the stream.
func (b *AppendBehavior) CanSeek(position int64) error {
	if position != b.written {
		return fmt.Errorf("%w: seek to %d, stream is at %d", errs.ErrSeekUnsupported, position, b.written)
	}

	return nil
}

// Resize cannot shrink below what has already been written. Growing is a no-op: the
// stream length is whatever gets appended.
func (b *AppendBehavior) Resize(newSize int64) error {
	if newSize < b.written {
		return fmt.Errorf("%w: resize to %d below %d written", errs.ErrInvalidSize, newSize, b.written)
	}

	return nil
}

// Written returns the number of bytes appended so far.
func (b *AppendBehavior) Written() int64 {
	return b.written
}

// Committed reports whether Commit succeeded.
func (b *AppendBehavior) Committed() bool {
	return b.committed
}
