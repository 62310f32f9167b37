// Package xfer moves data to and from block storage with end-to-end integrity
// checks.
//
// Content travels as structured messages: a small binary framing that splits a
// payload into numbered segments, each followed by a CRC-64 of its bytes, with a
// CRC-64 of the whole content at the end. A receiver can verify a body as it
// streams and tell a corrupted transfer apart from an incompatible one.
//
// # Packages
//
//   - message: structured message encoder and decoder
//   - checksum: CRC-64 and MD5 checksums and their HTTP headers
//   - buffer: fixed-size block staging with a bounded buffer pool
//   - channel: buffered seekable channel over storage read and write behaviors
//   - compress: optional per-block codecs
//   - transfer: concurrent block uploads and verified downloads
//
// This package offers shortcuts with sensible defaults. For full control, use the
// packages above directly.
//
// # Basic Usage
//
// Framing and verifying a payload:
//
//	framed, err := xfer.Encode(payload)
//	if err != nil {
//	    return err
//	}
//	payload, err = xfer.Decode(framed) // fails with errs.ErrIntegrity on corruption
//
// Uploading a stream:
//
//	up, err := xfer.NewUploader(transport)
//	if err != nil {
//	    return err
//	}
//	res, err := up.Upload(ctx, file)
package xfer

import (
	"github.com/arloliu/xfer/checksum"
	"github.com/arloliu/xfer/compress"
	"github.com/arloliu/xfer/internal/hash"
	"github.com/arloliu/xfer/message"
	"github.com/arloliu/xfer/transfer"
)

var compressedUploadOptions = []transfer.Option{
	transfer.WithChecksum(checksum.StorageCRC64),
	transfer.WithCompression(compress.Zstd),
}

// NewUploader creates an uploader with custom options.
//
// Defaults are 4 MiB blocks framed as CRC-64 structured messages with 4 MiB
// segments, four concurrent block uploads, and no compression.
//
// Parameters:
//   - transport: The storage service side of the upload
//   - opts: Optional configuration functions (see transfer.Option)
//
// Returns:
//   - *transfer.Uploader: The created uploader
//   - error: An error if the configuration is invalid
func NewUploader(transport transfer.BlockTransport, opts ...transfer.Option) (*transfer.Uploader, error) {
	return transfer.NewUploader(transport, opts...)
}

// NewCompressedUploader creates an uploader that compresses every block with Zstd
// before framing it with CRC-64. Later options override these defaults.
func NewCompressedUploader(transport transfer.BlockTransport, opts ...transfer.Option) (*transfer.Uploader, error) {
	all := make([]transfer.Option, 0, len(compressedUploadOptions)+len(opts))
	all = append(all, compressedUploadOptions...)
	all = append(all, opts...)

	return transfer.NewUploader(transport, all...)
}

// Encode frames content as a CRC-64 structured message with default segments.
func Encode(content []byte) ([]byte, error) {
	return message.EncodeFully(content, message.DefaultSegmentSize, message.FlagCRC64)
}

// Decode verifies a structured message and returns its content.
func Decode(data []byte) ([]byte, error) {
	return message.DecodeFully(data, message.DefaultDecodeChunkSize)
}

// CRC64 returns the storage CRC-64 of data.
func CRC64(data []byte) uint64 {
	return checksum.ComputeCRC64(data, 0)
}

// BlockID returns the identifier of block index of the upload keyed by prefix.
//
// IDs of one upload are distinct and of equal length, as block storage services
// require.
func BlockID(prefix string, index int) string {
	return hash.BlockID(prefix, index)
}
