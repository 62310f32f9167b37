package compress

import (
	"fmt"
	"strings"

	"github.com/arloliu/xfer/errs"
)

// Type identifies the codec applied to a block body before it is framed.
type Type uint8

const (
	None Type = 0x1 // None stores blocks unchanged.
	Zstd Type = 0x2 // Zstd compresses blocks with Zstandard.
	S2   Type = 0x3 // S2 compresses blocks with S2.
	LZ4  Type = 0x4 // LZ4 compresses blocks with LZ4 block format.
)

func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case Zstd:
		return "Zstd"
	case S2:
		return "S2"
	case LZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ContentEncoding returns the Content-Encoding token for t, or "" for None.
func (t Type) ContentEncoding() string {
	switch t {
	case Zstd:
		return "zstd"
	case S2:
		return "s2"
	case LZ4:
		return "lz4"
	default:
		return ""
	}
}

// ParseContentEncoding maps a Content-Encoding token back to a Type. An empty or
// "identity" token is None.
func ParseContentEncoding(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "identity":
		return None, nil
	case "zstd":
		return Zstd, nil
	case "s2":
		return S2, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("%w: content encoding %q", errs.ErrInvalidCodec, s)
	}
}

// Compressor compresses one block body.
type Compressor interface {
	// Compress returns the compressed form of data. The input is not modified.
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores one block body.
//
// Thread Safety: implementations in this package are safe for concurrent use.
type Decompressor interface {
	// Decompress returns the original bytes of data produced by the matching
	// Compressor, or an error if data is corrupted.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// Stats describes the effect of compressing one block.
type Stats struct {
	// Algorithm identifies the codec used
	Algorithm Type

	// OriginalSize is the size of the block before compression
	OriginalSize int64

	// CompressedSize is the size of the block after compression
	CompressedSize int64
}

// CompressionRatio returns the compression ratio (compressed size / original size).
//
// Values less than 1.0 indicate successful compression.
//
// Returns:
//   - float64: Compression ratio (0.0 if original size is zero)
func (s Stats) CompressionRatio() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// SpaceSavings returns the space savings as a percentage.
func (s Stats) SpaceSavings() float64 {
	return (1.0 - s.CompressionRatio()) * 100.0
}

// CreateCodec is a factory function that creates a Codec based on the specified type.
//
// Parameters:
//   - t: Type of compression (None, Zstd, S2, or LZ4)
//
// Returns:
//   - Codec: Codec instance for the specified type
//   - error: ErrInvalidCodec for an unknown type
func CreateCodec(t Type) (Codec, error) {
	switch t {
	case None:
		return NewNoOpCompressor(), nil
	case Zstd:
		return NewZstdCompressor(), nil
	case S2:
		return NewS2Compressor(), nil
	case LZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCodec, t)
	}
}

var builtinCodecs = map[Type]Codec{
	None: NewNoOpCompressor(),
	Zstd: NewZstdCompressor(),
	S2:   NewS2Compressor(),
	LZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves the shared built-in Codec for t.
func GetCodec(t Type) (Codec, error) {
	if codec, ok := builtinCodecs[t]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCodec, t)
}
