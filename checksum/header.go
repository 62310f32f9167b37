package checksum

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/arloliu/xfer/errs"
)

// Service headers carrying whole-payload checksums.
const (
	HeaderContentMD5   = "Content-MD5"
	HeaderContentCRC64 = "x-ms-content-crc64"
)

// HeaderName returns the response header that carries a checksum for alg.
func HeaderName(alg Algorithm) (string, error) {
	switch alg.Resolve() {
	case StorageCRC64:
		return HeaderContentCRC64, nil
	case MD5:
		return HeaderContentMD5, nil
	default:
		return "", fmt.Errorf("%w: %s", errs.ErrInvalidAlgorithm, alg)
	}
}

// SetHeader stores c's value in h under the header for its algorithm.
func SetHeader(h http.Header, c Checksum) error {
	name, err := HeaderName(c.Algorithm())
	if err != nil {
		return err
	}
	h.Set(name, base64.StdEncoding.EncodeToString(c.Value()))

	return nil
}

// VerifyHeader compares c's value with the base64 checksum reported in h.
//
// Returns:
//   - errs.ErrChecksumHeader if the header is absent or not valid base64
//   - errs.ErrChecksumMismatch if the values differ
func VerifyHeader(h http.Header, c Checksum) error {
	name, err := HeaderName(c.Algorithm())
	if err != nil {
		return err
	}

	raw := h.Get(name)
	if raw == "" {
		return fmt.Errorf("%w: %s not present", errs.ErrChecksumHeader, name)
	}

	want, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errs.ErrChecksumHeader, name, err)
	}

	got := c.Value()
	if !bytes.Equal(want, got) {
		return fmt.Errorf("%w: %s reported %x, computed %x", errs.ErrChecksumMismatch, name, want, got)
	}

	return nil
}
