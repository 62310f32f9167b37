// Package compress provides the optional block codecs applied before framing.
//
// An uploader may compress each staged block before it is wrapped in a structured
// message, so the CRC-64 covers the bytes actually sent. Codecs are chosen by Type:
//   - None: blocks are sent unchanged
//   - Zstd: best ratio, moderate speed
//   - S2: balanced ratio and speed
//   - LZ4: fastest, moderate ratio
//
// Every codec is stateless from the caller's view and safe for concurrent use, so
// the shared instances returned by GetCodec can serve all upload workers:
//
//	codec, err := compress.GetCodec(compress.Zstd)
//	if err != nil {
//	    return err
//	}
//	body, err := codec.Compress(block)
//
// The Content-Encoding token of a Type (ContentEncoding, ParseContentEncoding) lets a
// downloader pick the matching decoder from the stored block's headers.
//
// # Build tags
//
// Zstd defaults to the pure Go github.com/klauspost/compress/zstd. Building with
// `-tags gozstd` and cgo enabled switches to github.com/valyala/gozstd.
package compress
