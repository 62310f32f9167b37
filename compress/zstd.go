package compress

// ZstdCompressor provides Zstandard compression for block bodies.
//
// It gives the best ratio of the built-in codecs and suits uploads where bandwidth
// matters more than CPU. The default build uses github.com/klauspost/compress/zstd;
// building with the gozstd tag switches to the cgo binding github.com/valyala/gozstd.
// Both produce standard zstd frames, so either side can decode the other.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Returns:
//   - ZstdCompressor: New Zstd compressor instance
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
