package message

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/xfer/checksum"
	"github.com/arloliu/xfer/errs"
)

// Wire layout constants. All multi-byte fields are little-endian.
const (
	// Version is the only structured message version understood by this package.
	Version uint8 = 1

	// HeaderLength is the size of the message header:
	// version (1) + message length (8) + flags (2) + segment count (2).
	HeaderLength = 13
	// SegmentHeaderLength is the size of a segment header:
	// segment number (2) + segment content length (8).
	SegmentHeaderLength = 10
	// CRC64Length is the size of a segment or message footer when CRC-64 is enabled.
	CRC64Length = checksum.CRC64Size

	// MaxSegments is the largest segment count the header can declare.
	MaxSegments = 1<<16 - 1

	// DefaultSegmentSize is the segment size used when callers do not choose one.
	DefaultSegmentSize = 4 * 1024 * 1024
)

// Flags selects the optional features of a structured message.
type Flags uint16

const (
	// FlagNone disables segment and message footers.
	FlagNone Flags = 0
	// FlagCRC64 adds a CRC-64 footer to every segment and to the message.
	FlagCRC64 Flags = 1 << 0

	knownFlags = FlagCRC64
)

func (f Flags) String() string {
	switch f {
	case FlagNone:
		return "None"
	case FlagCRC64:
		return "StorageCRC64"
	default:
		return fmt.Sprintf("Flags(0x%04x)", uint16(f))
	}
}

// HasCRC64 reports whether CRC-64 footers are present.
func (f Flags) HasCRC64() bool {
	return f&FlagCRC64 != 0
}

// FooterLength returns the size of each segment footer and of the message footer.
func (f Flags) FooterLength() int {
	if f.HasCRC64() {
		return CRC64Length
	}

	return 0
}

// Validate rejects flag bits this version does not define.
func (f Flags) Validate() error {
	if f&^knownFlags != 0 {
		return fmt.Errorf("%w: 0x%04x", errs.ErrInvalidFlags, uint16(f))
	}

	return nil
}

// FlagsFor maps a checksum algorithm to message flags. Auto resolves to FlagCRC64.
// Algorithms that cannot be expressed in the framing (MD5) are rejected.
func FlagsFor(alg checksum.Algorithm) (Flags, error) {
	switch alg.Resolve() {
	case checksum.None:
		return FlagNone, nil
	case checksum.StorageCRC64:
		return FlagCRC64, nil
	default:
		return 0, fmt.Errorf("%w: %s cannot frame a structured message", errs.ErrInvalidAlgorithm, alg)
	}
}

// Header is the fixed-size header at the start of every structured message.
type Header struct {
	// Version is the format version, byte offset 0.
	Version uint8
	// MessageLength is the total encoded length including header, segments and footer, byte offset 1-8.
	MessageLength uint64
	// Flags selects checksum footers, byte offset 9-10.
	Flags Flags
	// SegmentCount is the number of segments, at least 1, byte offset 11-12.
	SegmentCount uint16
}

// Parse parses the header from a byte slice of exactly HeaderLength bytes.
//
// Returns:
//   - errs.ErrInvalidHeaderSize if data is not HeaderLength bytes
//   - errs.ErrUnsupportedVersion, errs.ErrInvalidFlags or errs.ErrInvalidSegmentCount
//     if a field is out of range
func (h *Header) Parse(data []byte) error {
	if len(data) != HeaderLength {
		return fmt.Errorf("%w: message header needs %d bytes, got %d", errs.ErrInvalidHeaderSize, HeaderLength, len(data))
	}

	h.Version = data[0]
	h.MessageLength = binary.LittleEndian.Uint64(data[1:9])
	h.Flags = Flags(binary.LittleEndian.Uint16(data[9:11]))
	h.SegmentCount = binary.LittleEndian.Uint16(data[11:13])

	return h.Validate()
}

// Validate checks the header fields without regard to the payload.
func (h *Header) Validate() error {
	if h.Version != Version {
		return fmt.Errorf("%w: %d", errs.ErrUnsupportedVersion, h.Version)
	}
	if err := h.Flags.Validate(); err != nil {
		return err
	}
	if h.SegmentCount == 0 {
		return fmt.Errorf("%w: 0", errs.ErrInvalidSegmentCount)
	}

	minLength := uint64(HeaderLength) +
		uint64(h.SegmentCount)*uint64(SegmentHeaderLength+h.Flags.FooterLength()) +
		uint64(h.Flags.FooterLength())
	if h.MessageLength < minLength {
		return fmt.Errorf("%w: declared %d bytes, framing alone needs %d",
			errs.ErrMessageLengthMismatch, h.MessageLength, minLength)
	}

	return nil
}

// AppendTo appends the encoded header to b.
func (h *Header) AppendTo(b []byte) []byte {
	b = append(b, h.Version)
	b = binary.LittleEndian.AppendUint64(b, h.MessageLength)
	b = binary.LittleEndian.AppendUint16(b, uint16(h.Flags))
	b = binary.LittleEndian.AppendUint16(b, h.SegmentCount)

	return b
}

// Bytes serializes the header into a new HeaderLength byte slice.
func (h *Header) Bytes() []byte {
	return h.AppendTo(make([]byte, 0, HeaderLength))
}

// ContentLength returns the total content length implied by the header.
func (h *Header) ContentLength() int64 {
	overhead := int64(HeaderLength) +
		int64(h.SegmentCount)*int64(SegmentHeaderLength+h.Flags.FooterLength()) +
		int64(h.Flags.FooterLength())

	return int64(h.MessageLength) - overhead //nolint:gosec
}

// SegmentHeader precedes the content of every segment.
type SegmentHeader struct {
	// Number is the 1-based segment number, byte offset 0-1.
	Number uint16
	// ContentLength is the number of content bytes in the segment, byte offset 2-9.
	ContentLength uint64
}

// Parse parses the segment header from exactly SegmentHeaderLength bytes.
func (s *SegmentHeader) Parse(data []byte) error {
	if len(data) != SegmentHeaderLength {
		return fmt.Errorf("%w: segment header needs %d bytes, got %d",
			errs.ErrInvalidHeaderSize, SegmentHeaderLength, len(data))
	}

	s.Number = binary.LittleEndian.Uint16(data[0:2])
	s.ContentLength = binary.LittleEndian.Uint64(data[2:10])

	return nil
}

// AppendTo appends the encoded segment header to b.
func (s *SegmentHeader) AppendTo(b []byte) []byte {
	b = binary.LittleEndian.AppendUint16(b, s.Number)
	b = binary.LittleEndian.AppendUint64(b, s.ContentLength)

	return b
}

// Layout describes how content of a given length is split into segments.
type Layout struct {
	ContentLength int64
	SegmentSize   int64
	Flags         Flags
	NumSegments   int
	MessageLength int64
}

// NewLayout computes the segment layout for contentLength bytes split into
// segmentSize segments. Empty content still occupies one empty segment.
func NewLayout(contentLength, segmentSize int64, flags Flags) (Layout, error) {
	if contentLength < 0 {
		return Layout{}, fmt.Errorf("%w: content length %d", errs.ErrInvalidSize, contentLength)
	}
	if segmentSize < 1 {
		return Layout{}, fmt.Errorf("%w: segment size %d", errs.ErrInvalidSize, segmentSize)
	}
	if err := flags.Validate(); err != nil {
		return Layout{}, err
	}

	numSegments := max(int64(1), (contentLength+segmentSize-1)/segmentSize)
	if numSegments > MaxSegments {
		return Layout{}, fmt.Errorf("%w: %d bytes at segment size %d", errs.ErrTooManySegments, contentLength, segmentSize)
	}

	footer := int64(flags.FooterLength())
	messageLength := HeaderLength +
		numSegments*(SegmentHeaderLength+footer) +
		contentLength +
		footer

	return Layout{
		ContentLength: contentLength,
		SegmentSize:   segmentSize,
		Flags:         flags,
		NumSegments:   int(numSegments),
		MessageLength: messageLength,
	}, nil
}

// SegmentLength returns the content length of the 1-based segment number.
// Every segment but the last holds SegmentSize bytes; the last holds the remainder.
func (l Layout) SegmentLength(number int) int64 {
	if number < l.NumSegments {
		return l.SegmentSize
	}

	return l.ContentLength - l.SegmentSize*int64(l.NumSegments-1)
}

// Header returns the message header for the layout.
func (l Layout) Header() Header {
	return Header{
		Version:       Version,
		MessageLength: uint64(l.MessageLength), //nolint:gosec
		Flags:         l.Flags,
		SegmentCount:  uint16(l.NumSegments), //nolint:gosec
	}
}
