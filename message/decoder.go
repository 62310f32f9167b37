package message

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/transform"

	"github.com/arloliu/xfer/checksum"
	"github.com/arloliu/xfer/errs"
)

// DefaultDecodeChunkSize is the output chunk size used by DecodeFully callers that
// have no preference.
const DefaultDecodeChunkSize = 64 * 1024

// Decoder parses a structured message and yields its content.
//
// Decoder implements transform.Transformer: framed bytes go in as src and content
// comes out in dst. Input may arrive in pieces of any size; a metadata region is only
// parsed once all of its bytes are in src. Every segment footer and the message footer
// are verified when CRC-64 is enabled, and the consumed length is checked against the
// declared message length once the footer is read.
//
// Errors are sticky: once Transform fails, every later call returns the same error
// until Reset.
//
// Note: The Decoder is NOT thread-safe.
type Decoder struct {
	header    Header
	hasHeader bool

	region       region
	regionOffset uint64 // content bytes of the current segment already produced
	segment      int    // last segment number parsed
	segmentLen   uint64 // declared content length of the current segment
	consumed     uint64 // message bytes consumed so far

	segmentCRC uint64
	messageCRC uint64

	err error
}

var _ transform.Transformer = (*Decoder)(nil)

// NewDecoder creates a decoder positioned at the start of a message.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Reset rewinds the decoder for a new message.
func (d *Decoder) Reset() {
	*d = Decoder{}
}

// Header returns the message header, and false if it has not been parsed yet.
func (d *Decoder) Header() (Header, bool) {
	return d.header, d.hasHeader
}

// Done reports whether a complete, verified message has been consumed.
func (d *Decoder) Done() bool {
	return d.region == regionDone
}

// Consumed returns the number of message bytes consumed so far.
func (d *Decoder) Consumed() int64 {
	return int64(d.consumed) //nolint:gosec
}

// Transform consumes framed bytes from src and writes decoded content into dst.
//
// len(dst) bounds how much content one call produces, which gives callers the
// chunked decode(size) behavior. Transform returns transform.ErrShortDst when dst
// fills up and transform.ErrShortSrc when a metadata region is incomplete and more
// input may follow. With atEOF set, an incomplete message fails with errs.ErrTruncated.
func (d *Decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	if d.err != nil {
		return 0, 0, d.err
	}

	nDst, nSrc, err = d.transform(dst, src, atEOF)
	if err != nil && !errors.Is(err, transform.ErrShortDst) && !errors.Is(err, transform.ErrShortSrc) {
		d.err = err
	}

	return nDst, nSrc, err
}

func (d *Decoder) transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for {
		switch d.region {
		case regionDone:
			if nSrc < len(src) {
				return nDst, nSrc, fmt.Errorf("%w: %d bytes after the end of a %d byte message",
					errs.ErrMessageLengthMismatch, len(src)-nSrc, d.header.MessageLength)
			}

			return nDst, nSrc, nil

		case regionSegmentContent:
			remaining := d.segmentLen - d.regionOffset
			if remaining == 0 {
				d.region = regionSegmentFooter
				continue
			}
			if nSrc == len(src) {
				if atEOF {
					return nDst, nSrc, fmt.Errorf("%w: segment %d missing %d content bytes",
						errs.ErrTruncated, d.segment, remaining)
				}

				return nDst, nSrc, nil
			}
			if nDst == len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}

			n := int(min(remaining, uint64(len(dst)-nDst), uint64(len(src)-nSrc)))
			chunk := src[nSrc : nSrc+n]
			copy(dst[nDst:], chunk)
			if d.header.Flags.HasCRC64() {
				d.segmentCRC = checksum.ComputeCRC64(chunk, d.segmentCRC)
				d.messageCRC = checksum.ComputeCRC64(chunk, d.messageCRC)
			}
			d.regionOffset += uint64(n)
			d.consumed += uint64(n)
			nDst += n
			nSrc += n

		default:
			need := d.metaLength()
			if len(src)-nSrc < need {
				if atEOF {
					return nDst, nSrc, fmt.Errorf("%w: %s needs %d bytes, %d available",
						errs.ErrTruncated, d.region, need, len(src)-nSrc)
				}

				return nDst, nSrc, transform.ErrShortSrc
			}

			d.consumed += uint64(need)
			if err := d.parse(src[nSrc : nSrc+need]); err != nil {
				return nDst, nSrc, err
			}
			nSrc += need
		}
	}
}

// metaLength returns the size of the current metadata region.
func (d *Decoder) metaLength() int {
	switch d.region {
	case regionMessageHeader:
		return HeaderLength
	case regionSegmentHeader:
		return SegmentHeaderLength
	case regionSegmentFooter, regionMessageFooter:
		return d.header.Flags.FooterLength()
	case regionSegmentContent, regionDone:
	}

	return 0
}

// parse validates one complete metadata region and advances past it.
func (d *Decoder) parse(data []byte) error {
	switch d.region {
	case regionMessageHeader:
		if err := d.header.Parse(data); err != nil {
			return err
		}
		d.hasHeader = true
		d.region = regionSegmentHeader

	case regionSegmentHeader:
		var sh SegmentHeader
		if err := sh.Parse(data); err != nil {
			return err
		}
		if int(sh.Number) != d.segment+1 || int(sh.Number) > int(d.header.SegmentCount) {
			return fmt.Errorf("%w: expected segment %d of %d, got %d",
				errs.ErrSegmentOutOfOrder, d.segment+1, d.header.SegmentCount, sh.Number)
		}
		if limit := d.segmentLimit(int(sh.Number)); sh.ContentLength > limit {
			return fmt.Errorf("%w: segment %d declares %d bytes, at most %d remain",
				errs.ErrSegmentLengthExceeded, sh.Number, sh.ContentLength, limit)
		}
		d.segment = int(sh.Number)
		d.segmentLen = sh.ContentLength
		d.regionOffset = 0
		d.segmentCRC = 0
		d.region = regionSegmentContent

	case regionSegmentFooter:
		if d.header.Flags.HasCRC64() {
			if want := binary.LittleEndian.Uint64(data); want != d.segmentCRC {
				return fmt.Errorf("%w: segment %d reported %016x, computed %016x",
					errs.ErrSegmentChecksumMismatch, d.segment, want, d.segmentCRC)
			}
		}
		if d.segment == int(d.header.SegmentCount) {
			d.region = regionMessageFooter
		} else {
			d.region = regionSegmentHeader
		}

	case regionMessageFooter:
		if d.header.Flags.HasCRC64() {
			if want := binary.LittleEndian.Uint64(data); want != d.messageCRC {
				return fmt.Errorf("%w: reported %016x, computed %016x",
					errs.ErrMessageChecksumMismatch, want, d.messageCRC)
			}
		}
		if d.consumed != d.header.MessageLength {
			return fmt.Errorf("%w: consumed %d bytes, header declared %d",
				errs.ErrMessageLengthMismatch, d.consumed, d.header.MessageLength)
		}
		d.region = regionDone

	case regionSegmentContent, regionDone:
	}

	return nil
}

// segmentLimit returns the largest content length segment number may declare: the
// declared message bytes left after this header, less the framing every remaining
// segment and the message footer still need.
func (d *Decoder) segmentLimit(number int) uint64 {
	footer := uint64(d.header.Flags.FooterLength())
	framing := footer + // this segment's footer
		uint64(int(d.header.SegmentCount)-number)*(SegmentHeaderLength+footer) +
		footer // message footer

	if d.consumed+framing > d.header.MessageLength {
		return 0
	}

	return d.header.MessageLength - d.consumed - framing
}

// DecodeFully decodes a complete structured message, producing content in chunks
// of at most chunkSize bytes until the decoder yields nothing more.
func DecodeFully(data []byte, chunkSize int) ([]byte, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("%w: chunk size %d", errs.ErrInvalidSize, chunkSize)
	}

	d := NewDecoder()
	chunk := make([]byte, chunkSize)
	out := make([]byte, 0, max(0, len(data)-HeaderLength))

	for {
		nDst, nSrc, err := d.Transform(chunk, data, true)
		out = append(out, chunk[:nDst]...)
		data = data[nSrc:]

		switch {
		case errors.Is(err, transform.ErrShortDst):
			continue
		case err != nil:
			return nil, err
		case nDst == 0 && d.Done():
			return out, nil
		case nDst == 0:
			return nil, fmt.Errorf("%w: decoder made no progress", errs.ErrTruncated)
		}
	}
}

// NewDecodingReader returns a reader yielding the content of the structured message
// read from r. Read fails with the decoder's format, sequencing or integrity error.
func NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, NewDecoder())
}
