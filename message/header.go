package message

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/arloliu/xfer/errs"
)

// HTTP headers announcing a structured message body.
const (
	HeaderStructuredBody          = "x-ms-structured-body"
	HeaderStructuredContentLength = "x-ms-structured-content-length"

	// StructuredBodyCRC64 is the x-ms-structured-body value for version 1 with CRC-64.
	StructuredBodyCRC64 = "XSM/1.0; properties=crc64"
)

// SetRequestHeaders marks h as carrying a CRC-64 structured message body framing
// contentLength bytes of content.
func SetRequestHeaders(h http.Header, contentLength int64) {
	h.Set(HeaderStructuredBody, StructuredBodyCRC64)
	h.Set(HeaderStructuredContentLength, strconv.FormatInt(contentLength, 10))
}

// IsStructuredBody reports whether h announces a structured message body.
func IsStructuredBody(h http.Header) bool {
	v := h.Get(HeaderStructuredBody)
	return v != "" && strings.HasPrefix(strings.ToUpper(v), "XSM/1.0")
}

// StructuredContentLength returns the content length announced in h.
func StructuredContentLength(h http.Header) (int64, error) {
	raw := h.Get(HeaderStructuredContentLength)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s not present", errs.ErrFormat, HeaderStructuredContentLength)
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s %q", errs.ErrFormat, HeaderStructuredContentLength, raw)
	}

	return n, nil
}
