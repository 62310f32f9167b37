package channel

import (
	"bytes"
	"errors"
	"io"
	"math/rand/v2"
	"sort"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/xfer/errs"
)

type countingReader struct {
	ReadBehavior
	reads   int
	offsets []int64
}

func (r *countingReader) Read(dst []byte, offset int64) (int, error) {
	r.reads++
	r.offsets = append(r.offsets, offset)

	return r.ReadBehavior.Read(dst, offset)
}

type writeCall struct {
	offset int64
	data   []byte
}

type recordingWriter struct {
	writes  []writeCall
	commits []int64
	resizes []int64
	seeks   []int64

	failWrites int
	seekErr    error
}

func (w *recordingWriter) Write(src []byte, offset int64) error {
	if w.failWrites > 0 {
		w.failWrites--
		return errors.New("storage unavailable")
	}
	w.writes = append(w.writes, writeCall{offset: offset, data: bytes.Clone(src)})

	return nil
}

func (w *recordingWriter) Commit(totalLength int64) error {
	w.commits = append(w.commits, totalLength)
	return nil
}

func (w *recordingWriter) CanSeek(position int64) error {
	w.seeks = append(w.seeks, position)
	return w.seekErr
}

func (w *recordingWriter) Resize(newSize int64) error {
	w.resizes = append(w.resizes, newSize)
	return nil
}

// assemble lays out the recorded writes by offset.
func (w *recordingWriter) assemble() []byte {
	calls := append([]writeCall(nil), w.writes...)
	sort.SliceStable(calls, func(i, j int) bool { return calls[i].offset < calls[j].offset })

	var out []byte
	for _, c := range calls {
		end := int(c.offset) + len(c.data)
		if end > len(out) {
			out = append(out, make([]byte, end-len(out))...)
		}
		copy(out[c.offset:], c.data)
	}

	return out
}

func content(n int) []byte {
	rng := rand.New(rand.NewPCG(uint64(n), 3))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.UintN(256))
	}

	return b
}

func newCountingReader(data []byte) *countingReader {
	return &countingReader{ReadBehavior: NewReaderAtBehavior(bytes.NewReader(data), int64(len(data)))}
}

func TestNew_Invalid(t *testing.T) {
	rb := newCountingReader(nil)

	_, err := NewReader(rb, 0, 0)
	require.ErrorIs(t, err, errs.ErrInvalidSize)
	_, err = NewReader(rb, 8, -1)
	require.ErrorIs(t, err, errs.ErrInvalidPosition)
	_, err = NewReader(nil, 8, 0)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = NewWriter(&recordingWriter{}, -4, 0)
	require.ErrorIs(t, err, errs.ErrInvalidSize)
	_, err = NewWriter(nil, 4, 0)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestReader_ReadsContentInOrder(t *testing.T) {
	data := content(1000)

	for _, chunkSize := range []int{1, 7, 64, 1000, 4096} {
		rb := newCountingReader(data)
		c, err := NewReader(rb, chunkSize, 0)
		require.NoError(t, err)

		got, err := io.ReadAll(c)
		require.NoError(t, err)
		require.Equal(t, data, got, "chunk size %d", chunkSize)
		require.Equal(t, int64(len(data)), c.Position())
	}
}

func TestReader_IOTest(t *testing.T) {
	data := content(300)
	c, err := NewReader(newCountingReader(data), 32, 0)
	require.NoError(t, err)

	require.NoError(t, iotest.TestReader(c, data))
}

func TestReader_StartOffset(t *testing.T) {
	data := content(100)
	c, err := NewReader(newCountingReader(data), 16, 40)
	require.NoError(t, err)

	got, err := io.ReadAll(c)
	require.NoError(t, err)
	require.Equal(t, data[40:], got)
}

func TestReader_SeekWithinWindow(t *testing.T) {
	data := content(100)
	rb := newCountingReader(data)
	c, err := NewReader(rb, 32, 0)
	require.NoError(t, err)

	p := make([]byte, 20)
	_, err = io.ReadFull(c, p)
	require.NoError(t, err)
	require.Equal(t, 1, rb.reads)

	require.NoError(t, c.SetPosition(5))
	_, err = io.ReadFull(c, p[:10])
	require.NoError(t, err)
	require.Equal(t, data[5:15], p[:10])
	require.Equal(t, 1, rb.reads, "backward seek within the window does no I/O")

	pos, err := c.Seek(-3, io.SeekCurrent)
	require.NoError(t, err)
	require.Equal(t, int64(12), pos)
	require.Equal(t, 1, rb.reads)
}

func TestReader_SeekOutsideWindow(t *testing.T) {
	data := content(100)
	rb := newCountingReader(data)
	c, err := NewReader(rb, 16, 0)
	require.NoError(t, err)

	p := make([]byte, 8)
	_, err = io.ReadFull(c, p)
	require.NoError(t, err)
	require.Equal(t, 1, rb.reads)

	require.NoError(t, c.SetPosition(70))
	require.Equal(t, 1, rb.reads, "seeking alone does no I/O")

	_, err = io.ReadFull(c, p)
	require.NoError(t, err)
	require.Equal(t, data[70:78], p)
	require.Equal(t, 2, rb.reads, "exactly one refill")
	require.Equal(t, int64(70), rb.offsets[1])
}

func TestReader_EOFClampsPosition(t *testing.T) {
	data := content(10)
	c, err := NewReader(newCountingReader(data), 4, 0)
	require.NoError(t, err)

	pos, err := c.Seek(5, io.SeekEnd)
	require.NoError(t, err)
	require.Equal(t, int64(15), pos)

	n, err := c.Read(make([]byte, 4))
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(10), c.Position())

	_, err = c.Read(make([]byte, 4))
	require.ErrorIs(t, err, io.EOF)

	size, err := c.Size()
	require.NoError(t, err)
	require.Equal(t, int64(10), size)
}

func TestReader_WrongDirection(t *testing.T) {
	c, err := NewReader(newCountingReader(content(4)), 4, 0)
	require.NoError(t, err)

	_, err = c.Write([]byte("x"))
	require.ErrorIs(t, err, errs.ErrWrongDirection)
	require.ErrorIs(t, c.Truncate(0), errs.ErrWrongDirection)
}

func TestReader_Close(t *testing.T) {
	c, err := NewReader(newCountingReader(content(4)), 4, 0)
	require.NoError(t, err)

	require.True(t, c.IsOpen())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.False(t, c.IsOpen())

	_, err = c.Read(make([]byte, 1))
	require.ErrorIs(t, err, errs.ErrChannelClosed)
	require.ErrorIs(t, c.SetPosition(0), errs.ErrChannelClosed)
}

func TestWriter_ConcatenatesAndCommitsOnce(t *testing.T) {
	data := content(1000)
	rng := rand.New(rand.NewPCG(5, 5))

	for _, chunkSize := range []int{1, 9, 128, 2048} {
		wb := &recordingWriter{}
		c, err := NewWriter(wb, chunkSize, 0)
		require.NoError(t, err)

		for rest := data; len(rest) > 0; {
			n := min(len(rest), rng.IntN(50)+1)
			written, err := c.Write(rest[:n])
			require.NoError(t, err)
			require.Equal(t, n, written)
			rest = rest[n:]
		}

		require.NoError(t, c.Close())
		require.NoError(t, c.Close())

		require.Equal(t, data, wb.assemble(), "chunk size %d", chunkSize)
		require.Equal(t, []int64{int64(len(data))}, wb.commits)
		for _, w := range wb.writes[:len(wb.writes)-1] {
			require.Len(t, w.data, chunkSize)
		}
	}
}

func TestWriter_FlushFailureRollsBack(t *testing.T) {
	wb := &recordingWriter{failWrites: 1}
	c, err := NewWriter(wb, 4, 0)
	require.NoError(t, err)

	n, err := c.Write([]byte("ab"))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = c.Write([]byte("cdef"))
	require.Error(t, err)
	require.Equal(t, 0, n, "the chunk that failed to flush is withdrawn")
	require.Equal(t, int64(2), c.Position())

	n, err = c.Write([]byte("cdef"))
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.NoError(t, c.Close())

	require.Equal(t, []byte("abcdef"), wb.assemble())
	require.Equal(t, []int64{6}, wb.commits)
}

func TestWriter_SeekAsksBehaviorFirst(t *testing.T) {
	t.Run("Rejected", func(t *testing.T) {
		wb := &recordingWriter{seekErr: errs.ErrSeekUnsupported}
		c, err := NewWriter(wb, 8, 0)
		require.NoError(t, err)

		_, err = c.Write([]byte("abc"))
		require.NoError(t, err)

		require.ErrorIs(t, c.SetPosition(100), errs.ErrSeekUnsupported)
		require.Equal(t, []int64{100}, wb.seeks)
		require.Empty(t, wb.writes, "a rejected seek flushes nothing")
		require.Equal(t, int64(3), c.Position())
	})

	t.Run("Accepted", func(t *testing.T) {
		wb := &recordingWriter{}
		c, err := NewWriter(wb, 8, 0)
		require.NoError(t, err)

		_, err = c.Write([]byte("abc"))
		require.NoError(t, err)
		require.NoError(t, c.SetPosition(10))
		require.Equal(t, []writeCall{{offset: 0, data: []byte("abc")}}, wb.writes)

		_, err = c.Write([]byte("xy"))
		require.NoError(t, err)
		require.NoError(t, c.Close())

		require.Equal(t, writeCall{offset: 10, data: []byte("xy")}, wb.writes[1])
		require.Equal(t, []int64{12}, wb.commits)
	})

	t.Run("Negative", func(t *testing.T) {
		c, err := NewWriter(&recordingWriter{}, 8, 0)
		require.NoError(t, err)
		require.ErrorIs(t, c.SetPosition(-1), errs.ErrInvalidPosition)
	})
}

func TestWriter_Truncate(t *testing.T) {
	wb := &recordingWriter{}
	c, err := NewWriter(wb, 8, 0)
	require.NoError(t, err)

	_, err = c.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.NoError(t, c.Truncate(4))

	require.Equal(t, []int64{4}, wb.resizes)
	require.Equal(t, int64(4), c.Position())
	size, err := c.Size()
	require.NoError(t, err)
	require.Equal(t, int64(4), size)

	require.ErrorIs(t, c.Truncate(-1), errs.ErrInvalidSize)
	require.NoError(t, c.Close())
	require.Equal(t, []int64{4}, wb.commits)
}

func TestWriter_WrongDirection(t *testing.T) {
	c, err := NewWriter(&recordingWriter{}, 8, 0)
	require.NoError(t, err)

	_, err = c.Read(make([]byte, 1))
	require.ErrorIs(t, err, errs.ErrWrongDirection)
}

func TestWriter_ClosedRejectsWrites(t *testing.T) {
	c, err := NewWriter(&recordingWriter{}, 8, 0)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Write([]byte("x"))
	require.ErrorIs(t, err, errs.ErrChannelClosed)
	_, err = c.Size()
	require.ErrorIs(t, err, errs.ErrChannelClosed)
}

func TestAppendBehavior(t *testing.T) {
	var out bytes.Buffer
	ab := NewAppendBehavior(&out)
	c, err := NewWriter(ab, 5, 0)
	require.NoError(t, err)

	data := content(23)
	_, err = io.Copy(c, iotest.OneByteReader(bytes.NewReader(data)))
	require.NoError(t, err)

	require.ErrorIs(t, c.SetPosition(2), errs.ErrSeekUnsupported)
	require.ErrorIs(t, ab.Resize(1), errs.ErrInvalidSize)
	require.NoError(t, c.Close())

	require.Equal(t, data, out.Bytes())
	require.True(t, ab.Committed())
	require.Equal(t, int64(23), ab.Written())
	require.ErrorIs(t, ab.Write([]byte("x"), 23), errs.ErrChannelClosed)
}

func TestReaderAtBehavior(t *testing.T) {
	data := []byte("0123456789")
	rb := NewReaderAtBehavior(bytes.NewReader(data), 8)

	dst := make([]byte, 5)
	n, err := rb.Read(dst, 6)
	require.NoError(t, err)
	require.Equal(t, []byte("67"), dst[:n], "reads stop at the declared size")

	_, err = rb.Read(dst, 8)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(8), rb.ResourceLength())
}
