// Package message implements the structured message framing used to move payloads
// to and from a storage service with per-segment integrity checks.
//
// # Wire Format
//
// All integers are little-endian.
//
//	+---------------------------------------------------------------+
//	| Message header (13 bytes)                                     |
//	|   version (1) | message length (8) | flags (2) | segments (2) |
//	+---------------------------------------------------------------+
//	| Segment 1 header (10 bytes): number (2) | content length (8)  |
//	| Segment 1 content                                             |
//	| Segment 1 footer: CRC-64 of the segment content (0 or 8)      |
//	+---------------------------------------------------------------+
//	| ... segments 2..N ...                                         |
//	+---------------------------------------------------------------+
//	| Message footer: CRC-64 of all content (0 or 8)                |
//	+---------------------------------------------------------------+
//
// Footers are present only when FlagCRC64 is set. Every segment but the last holds
// exactly the segment size; empty content is framed as one empty segment.
//
// # Basic Usage
//
// Framing a payload held in memory:
//
//	framed, err := message.EncodeFully(payload, message.DefaultSegmentSize, message.FlagCRC64)
//	content, err := message.DecodeFully(framed, message.DefaultDecodeChunkSize)
//
// Streaming, without holding the payload:
//
//	body, length, err := message.NewEncodingReader(file, size, 4<<20, message.FlagCRC64)
//	// send length bytes of body
//
//	content := message.NewDecodingReader(resp.Body)
//	_, err = io.Copy(dst, content) // fails with an errs.ErrIntegrity error on corruption
//
// Encoder and Decoder implement golang.org/x/text/transform.Transformer and can be
// driven directly with caller-owned buffers.
//
// # Errors
//
// Decoding failures wrap one of errs.ErrFormat (malformed or truncated framing,
// unsupported version, length mismatch), errs.ErrSequence (segment numbers out of
// order) or errs.ErrIntegrity (CRC-64 mismatch).
package message
