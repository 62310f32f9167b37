package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// maxLZ4BlockSize bounds the decoded size accepted from a block prefix.
const maxLZ4BlockSize = 256 << 20

// LZ4 block layout: uvarint original length, one mode byte, payload.
const (
	lz4ModeRaw        byte = 0x0 // payload is the original bytes, LZ4 could not shrink them
	lz4ModeCompressed byte = 0x1
)

var errLZ4Corrupt = errors.New("lz4: corrupted block")

// lz4CompressorPool pools lz4.Compressor instances, which keep a hash table that is
// expensive to reallocate.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Compressor provides LZ4 block compression.
//
// The raw LZ4 block format records neither the decoded size nor whether the input
// was compressible, so every block carries a short prefix with both.
type LZ4Compressor struct{}

var _ Codec = (*LZ4Compressor)(nil)

// NewLZ4Compressor creates a new LZ4 compressor.
//
// Returns:
//   - LZ4Compressor: New LZ4 compressor instance
func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

// Compress compresses the input data using LZ4 compression.
//
// Parameters:
//   - data: Input data to compress
//
// Returns:
//   - []byte: Prefixed block (nil if input is empty)
//   - error: Compression error if any
func (c LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	prefix := binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64+1), uint64(len(data)))
	headLen := len(prefix) + 1
	dst := make([]byte, headLen+lz4.CompressBlockBound(len(data)))
	copy(dst, prefix)

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst[headLen:])
	if err != nil {
		return nil, err
	}

	if n == 0 || n >= len(data) {
		dst = append(dst[:headLen-1], lz4ModeRaw)
		return append(dst, data...), nil
	}
	dst[headLen-1] = lz4ModeCompressed

	return dst[:headLen+n], nil
}

// Decompress restores a block produced by Compress.
func (c LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	size, k := binary.Uvarint(data)
	if k <= 0 || k >= len(data) {
		return nil, fmt.Errorf("%w: bad length prefix", errLZ4Corrupt)
	}
	if size > maxLZ4BlockSize {
		return nil, fmt.Errorf("%w: declared size %d exceeds limit", errLZ4Corrupt, size)
	}

	mode, payload := data[k], data[k+1:]
	switch mode {
	case lz4ModeRaw:
		if uint64(len(payload)) != size {
			return nil, fmt.Errorf("%w: raw payload of %d bytes, want %d", errLZ4Corrupt, len(payload), size)
		}

		return append([]byte(nil), payload...), nil
	case lz4ModeCompressed:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errLZ4Corrupt, err)
		}
		if uint64(n) != size {
			return nil, fmt.Errorf("%w: decoded %d bytes, want %d", errLZ4Corrupt, n, size)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %#x", errLZ4Corrupt, mode)
	}
}
