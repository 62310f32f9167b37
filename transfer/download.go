package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/arloliu/xfer/checksum"
	"github.com/arloliu/xfer/compress"
	"github.com/arloliu/xfer/errs"
	"github.com/arloliu/xfer/message"
)

// Download verifies a downloaded body and writes its content to w.
//
// A body announced as a structured message is decoded and checked segment by
// segment. Any other body is checked against the service header for alg
// (x-ms-content-crc64 or Content-MD5); checksum.None skips verification. The
// verified bytes are then decompressed with codec.
//
// Nothing is written to w unless the whole body verifies.
//
// Returns:
//   - int64: Number of content bytes written to w
//   - error: A format or integrity error from verification, or a read/write error
func Download(ctx context.Context, w io.Writer, body io.Reader, header http.Header, alg checksum.Algorithm, codec compress.Type) (int64, error) {
	decompressor, err := compress.GetCodec(codec)
	if err != nil {
		return 0, err
	}

	src := &contextReader{ctx: ctx, r: body}

	var content []byte
	if message.IsStructuredBody(header) {
		want, err := message.StructuredContentLength(header)
		if err != nil {
			return 0, err
		}

		content, err = io.ReadAll(message.NewDecodingReader(src))
		if err != nil {
			return 0, fmt.Errorf("transfer: decode structured body: %w", err)
		}
		if got := int64(len(content)); got != want {
			return 0, lengthError(got, want)
		}
	} else {
		if content, err = io.ReadAll(src); err != nil {
			return 0, fmt.Errorf("transfer: read body: %w", err)
		}
		if err := verifyBody(content, header, alg); err != nil {
			return 0, err
		}
	}

	out, err := decompressor.Decompress(content)
	if err != nil {
		return 0, fmt.Errorf("transfer: decompress %s body: %w", codec, err)
	}

	n, err := w.Write(out)

	return int64(n), err
}

func verifyBody(content []byte, header http.Header, alg checksum.Algorithm) error {
	if alg == checksum.None {
		return nil
	}

	c, err := checksum.New(alg)
	if err != nil {
		return err
	}
	c.Update(content)

	return checksum.VerifyHeader(header, c)
}

func lengthError(got, want int64) error {
	if got < want {
		return fmt.Errorf("%w: decoded %d bytes, header announced %d", errs.ErrContentTooShort, got, want)
	}

	return fmt.Errorf("%w: decoded %d bytes, header announced %d", errs.ErrContentTooLong, got, want)
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
