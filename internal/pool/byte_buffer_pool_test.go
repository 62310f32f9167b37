package pool

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewByteBuffer(t *testing.T) {
	bb := NewByteBuffer(1024)

	require.NotNil(t, bb)
	assert.Equal(t, 0, bb.Len())
	assert.Equal(t, 1024, bb.Cap())
	assert.Equal(t, 1024, bb.Available())
}

func TestByteBuffer_AppendWithin(t *testing.T) {
	bb := NewByteBuffer(8)

	n := bb.AppendWithin([]byte("hello"))
	assert.Equal(t, 5, n)
	assert.Equal(t, 3, bb.Available())

	n = bb.AppendWithin([]byte(" world"))
	assert.Equal(t, 3, n, "only the remaining capacity is copied")
	assert.Equal(t, []byte("hello wo"), bb.Bytes())
	assert.Equal(t, 8, bb.Cap(), "AppendWithin must not reallocate")

	n = bb.AppendWithin([]byte("x"))
	assert.Equal(t, 0, n)
}

func TestByteBuffer_AppendWithin_Copies(t *testing.T) {
	bb := NewByteBuffer(4)
	src := []byte("abcd")

	bb.AppendWithin(src)
	src[0] = 'z'

	assert.Equal(t, []byte("abcd"), bb.Bytes())
}

func TestByteBuffer_Truncate(t *testing.T) {
	bb := NewByteBuffer(8)
	bb.AppendWithin([]byte("abcdef"))

	bb.Truncate(2)
	assert.Equal(t, []byte("ab"), bb.Bytes())

	assert.Panics(t, func() { bb.Truncate(3) })
	assert.Panics(t, func() { bb.Truncate(-1) })
}

func TestByteBuffer_ResetKeepsCapacity(t *testing.T) {
	bb := NewByteBuffer(16)
	_, _ = bb.Write([]byte("some data"))

	bb.Reset()

	assert.Equal(t, 0, bb.Len())
	assert.Equal(t, 16, bb.Cap())
}

func TestByteBuffer_Grow(t *testing.T) {
	bb := NewByteBuffer(4)
	_, _ = bb.Write([]byte("abcd"))

	bb.Grow(0)
	assert.Equal(t, 4, bb.Cap())

	bb.Grow(10)
	assert.GreaterOrEqual(t, bb.Available(), 10)
	assert.Equal(t, []byte("abcd"), bb.Bytes(), "Grow must preserve data")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("boom") }

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(8)
	_, _ = bb.Write([]byte("data"))

	var out bytes.Buffer
	n, err := bb.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, "data", out.String())

	_, err = bb.WriteTo(failingWriter{})
	require.Error(t, err)
}

func TestByteBufferPool_GetPut(t *testing.T) {
	p := NewByteBufferPool(64, 128)

	bb := p.Get()
	require.NotNil(t, bb)
	assert.Equal(t, 0, bb.Len())

	_, _ = bb.Write([]byte("stale"))
	p.Put(bb)

	again := p.Get()
	assert.Equal(t, 0, again.Len(), "pooled buffers come back empty")

	p.Put(nil)
}

func TestByteBufferPool_MaxThreshold(t *testing.T) {
	p := NewByteBufferPool(8, 16)

	bb := p.Get()
	bb.Grow(64)
	require.Greater(t, bb.Cap(), 16)

	// Oversized buffers are dropped; the pool still hands out valid buffers.
	p.Put(bb)
	assert.NotNil(t, p.Get())
}

func TestFrameBuffer_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bb := GetFrameBuffer()
			_, _ = bb.Write([]byte{byte(i)})
			assert.Equal(t, 1, bb.Len())
			PutFrameBuffer(bb)
		}(i)
	}
	wg.Wait()
}
