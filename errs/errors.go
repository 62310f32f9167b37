// Package errs defines the sentinel errors returned by xfer packages.
//
// Errors are grouped by category. Every specific sentinel wraps exactly one
// category sentinel, so callers can branch on the category with errors.Is:
//
//	if errors.Is(err, errs.ErrIntegrity) {
//	    // corruption in flight, the transfer may be retried
//	}
//	if errors.Is(err, errs.ErrFormat) {
//	    // protocol or version incompatibility, abandon the transfer
//	}
package errs

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	// ErrFormat reports a malformed, truncated or incompatible structured message.
	ErrFormat = errors.New("format error")
	// ErrIntegrity reports a checksum mismatch.
	ErrIntegrity = errors.New("integrity error")
	// ErrSequence reports out-of-order or skipped segments.
	ErrSequence = errors.New("sequencing error")
	// ErrInvalidArgument reports an invalid size, position or configuration value.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCanceled reports an operation abandoned while waiting for a resource.
	ErrCanceled = errors.New("canceled")
)

// Format errors.
var (
	ErrUnsupportedVersion    = fmt.Errorf("%w: unsupported structured message version", ErrFormat)
	ErrInvalidHeaderSize     = fmt.Errorf("%w: invalid header size", ErrFormat)
	ErrInvalidFlags          = fmt.Errorf("%w: invalid structured message flags", ErrFormat)
	ErrInvalidSegmentCount   = fmt.Errorf("%w: invalid segment count", ErrFormat)
	ErrSegmentLengthExceeded = fmt.Errorf("%w: segment length exceeds remaining message bytes", ErrFormat)
	ErrMessageLengthMismatch = fmt.Errorf("%w: consumed length does not match declared message length", ErrFormat)
	ErrTruncated             = fmt.Errorf("%w: structured message truncated", ErrFormat)
	ErrContentTooShort       = fmt.Errorf("%w: content shorter than declared length", ErrFormat)
	ErrContentTooLong        = fmt.Errorf("%w: content longer than declared length", ErrFormat)
	ErrChecksumHeader        = fmt.Errorf("%w: missing or malformed checksum header", ErrFormat)
)

// Integrity errors.
var (
	ErrSegmentChecksumMismatch = fmt.Errorf("%w: segment crc64 mismatch", ErrIntegrity)
	ErrMessageChecksumMismatch = fmt.Errorf("%w: message crc64 mismatch", ErrIntegrity)
	ErrChecksumMismatch        = fmt.Errorf("%w: checksum mismatch", ErrIntegrity)
)

// Sequencing errors.
var (
	ErrSegmentOutOfOrder = fmt.Errorf("%w: unexpected segment number", ErrSequence)
)

// Capacity, argument and direction errors.
var (
	ErrInvalidSize      = fmt.Errorf("%w: size must be positive", ErrInvalidArgument)
	ErrInvalidPosition  = fmt.Errorf("%w: position must not be negative", ErrInvalidArgument)
	ErrTooManySegments  = fmt.Errorf("%w: content requires more than 65535 segments", ErrInvalidArgument)
	ErrInvalidPoolSize  = fmt.Errorf("%w: invalid buffer pool size", ErrInvalidArgument)
	ErrInvalidAlgorithm = fmt.Errorf("%w: unsupported checksum algorithm", ErrInvalidArgument)
	ErrInvalidCodec     = fmt.Errorf("%w: unsupported compression type", ErrInvalidArgument)
	ErrWrongDirection   = fmt.Errorf("%w: operation not supported by channel direction", ErrInvalidArgument)
	ErrSeekUnsupported  = fmt.Errorf("%w: position not reachable by write behavior", ErrInvalidArgument)
	ErrChannelClosed    = errors.New("channel closed")
)

// Transport errors.
var (
	ErrUnknownBlock         = fmt.Errorf("%w: block id was never staged", ErrInvalidArgument)
	ErrCommitLengthMismatch = fmt.Errorf("%w: committed blocks do not add up to the total length", ErrInvalidArgument)
)

// Interruption errors.
var (
	ErrBufferWaitCanceled = fmt.Errorf("%w: waiting for pooled buffer", ErrCanceled)
)
