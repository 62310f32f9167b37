package message

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/text/transform"

	"github.com/arloliu/xfer/checksum"
	"github.com/arloliu/xfer/errs"
)

// region identifies the part of a structured message being produced or consumed.
type region uint8

const (
	regionMessageHeader region = iota
	regionSegmentHeader
	regionSegmentContent
	regionSegmentFooter
	regionMessageFooter
	regionDone
)

func (r region) String() string {
	switch r {
	case regionMessageHeader:
		return "message header"
	case regionSegmentHeader:
		return "segment header"
	case regionSegmentContent:
		return "segment content"
	case regionSegmentFooter:
		return "segment footer"
	case regionMessageFooter:
		return "message footer"
	case regionDone:
		return "done"
	default:
		return "unknown"
	}
}

// Encoder frames content into a structured message.
//
// Encoder implements transform.Transformer: content goes in as src, framed bytes come
// out in dst, and calls may be split at any byte. CRC-64 values are folded as content
// passes through, so the content is never buffered whole.
//
// Note: The Encoder is NOT thread-safe.
type Encoder struct {
	layout Layout

	region       region
	regionOffset int64 // bytes of the current region already produced
	segment      int   // current 1-based segment number, 0 before the first segment

	// meta holds the bytes of the current metadata region, generated on entry.
	meta    [HeaderLength]byte
	metaLen int

	segmentCRC uint64
	messageCRC uint64
}

var _ transform.Transformer = (*Encoder)(nil)

// NewEncoder creates an encoder for contentLength bytes of content split into
// segmentSize segments.
//
// Returns:
//   - errs.ErrInvalidSize if contentLength is negative or segmentSize is below 1
//   - errs.ErrTooManySegments if the content needs more than MaxSegments segments
//   - errs.ErrInvalidFlags for undefined flag bits
func NewEncoder(contentLength, segmentSize int64, flags Flags) (*Encoder, error) {
	layout, err := NewLayout(contentLength, segmentSize, flags)
	if err != nil {
		return nil, err
	}

	e := &Encoder{layout: layout}
	e.Reset()

	return e, nil
}

// Reset rewinds the encoder to the start of a new message with the same layout.
func (e *Encoder) Reset() {
	e.segment = 0
	e.segmentCRC = 0
	e.messageCRC = 0
	e.enter(regionMessageHeader)
}

// Layout returns the segment layout of the message.
func (e *Encoder) Layout() Layout {
	return e.layout
}

// MessageLength returns the total encoded length of the message.
func (e *Encoder) MessageLength() int64 {
	return e.layout.MessageLength
}

// NumSegments returns the number of segments in the message.
func (e *Encoder) NumSegments() int {
	return e.layout.NumSegments
}

// Done reports whether the whole message has been produced.
func (e *Encoder) Done() bool {
	return e.region == regionDone
}

// MessageCRC64 returns the CRC-64 of the content consumed so far.
func (e *Encoder) MessageCRC64() uint64 {
	return e.messageCRC
}

// Transform writes framed output for the content in src.
//
// Transform returns transform.ErrShortDst when dst fills up, errs.ErrContentTooShort
// when atEOF is set before the declared content length was supplied, and
// errs.ErrContentTooLong when src holds bytes past the end of the message.
func (e *Encoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for {
		switch e.region {
		case regionDone:
			if nSrc < len(src) {
				return nDst, nSrc, fmt.Errorf("%w: %d extra bytes after %d declared",
					errs.ErrContentTooLong, len(src)-nSrc, e.layout.ContentLength)
			}

			return nDst, nSrc, nil

		case regionSegmentContent:
			remaining := e.layout.SegmentLength(e.segment) - e.regionOffset
			if remaining == 0 {
				e.enter(regionSegmentFooter)
				continue
			}
			if nSrc == len(src) {
				if atEOF {
					return nDst, nSrc, fmt.Errorf("%w: segment %d ended %d bytes early",
						errs.ErrContentTooShort, e.segment, remaining)
				}

				return nDst, nSrc, nil
			}
			if nDst == len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}

			n := int(min(remaining, int64(len(dst)-nDst), int64(len(src)-nSrc)))
			chunk := src[nSrc : nSrc+n]
			copy(dst[nDst:], chunk)
			if e.layout.Flags.HasCRC64() {
				e.segmentCRC = checksum.ComputeCRC64(chunk, e.segmentCRC)
				e.messageCRC = checksum.ComputeCRC64(chunk, e.messageCRC)
			}
			e.regionOffset += int64(n)
			nDst += n
			nSrc += n

		default:
			if e.regionOffset == int64(e.metaLen) {
				e.next()
				continue
			}
			if nDst == len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}

			n := copy(dst[nDst:], e.meta[e.regionOffset:e.metaLen])
			e.regionOffset += int64(n)
			nDst += n
		}
	}
}

// next moves past a fully produced metadata region.
func (e *Encoder) next() {
	switch e.region {
	case regionMessageHeader:
		e.segment = 1
		e.enter(regionSegmentHeader)
	case regionSegmentHeader:
		e.enter(regionSegmentContent)
	case regionSegmentFooter:
		if e.segment < e.layout.NumSegments {
			e.segment++
			e.enter(regionSegmentHeader)
		} else {
			e.enter(regionMessageFooter)
		}
	case regionMessageFooter:
		e.enter(regionDone)
	case regionSegmentContent, regionDone:
		// content and done advance inside Transform
	}
}

// enter switches to r and generates its metadata bytes.
func (e *Encoder) enter(r region) {
	e.region = r
	e.regionOffset = 0

	buf := e.meta[:0]
	switch r {
	case regionMessageHeader:
		h := e.layout.Header()
		buf = h.AppendTo(buf)
	case regionSegmentHeader:
		e.segmentCRC = 0
		sh := SegmentHeader{
			Number:        uint16(e.segment), //nolint:gosec // bounded by MaxSegments
			ContentLength: uint64(e.layout.SegmentLength(e.segment)),
		}
		buf = sh.AppendTo(buf)
	case regionSegmentFooter:
		if e.layout.Flags.HasCRC64() {
			buf = binary.LittleEndian.AppendUint64(buf, e.segmentCRC)
		}
	case regionMessageFooter:
		if e.layout.Flags.HasCRC64() {
			buf = binary.LittleEndian.AppendUint64(buf, e.messageCRC)
		}
	case regionSegmentContent, regionDone:
	}
	e.metaLen = len(buf)
}

// EncodeFully frames content in one call.
func EncodeFully(content []byte, segmentSize int64, flags Flags) ([]byte, error) {
	e, err := NewEncoder(int64(len(content)), segmentSize, flags)
	if err != nil {
		return nil, err
	}

	dst := make([]byte, e.MessageLength())
	nDst, _, err := e.Transform(dst, content, true)
	if err != nil {
		return nil, err
	}

	return dst[:nDst], nil
}

// NewEncodingReader returns a reader producing the structured message framing the
// contentLength bytes read from r, and the length of that message.
//
// The returned reader fails with errs.ErrContentTooShort or errs.ErrContentTooLong
// if r does not supply exactly contentLength bytes.
func NewEncodingReader(r io.Reader, contentLength, segmentSize int64, flags Flags) (io.Reader, int64, error) {
	e, err := NewEncoder(contentLength, segmentSize, flags)
	if err != nil {
		return nil, 0, err
	}

	return transform.NewReader(r, e), e.MessageLength(), nil
}
