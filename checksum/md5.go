package checksum

import (
	"crypto/md5" //nolint:gosec // Content-MD5 is a transport integrity check, not a security control
	"hash"
)

// Digest wraps a cryptographic hash as a rolling Checksum.
type Digest struct {
	h   hash.Hash
	alg Algorithm
}

var _ Checksum = (*Digest)(nil)

// NewMD5 creates an MD5 digest checksum.
func NewMD5() *Digest {
	return &Digest{h: md5.New(), alg: MD5} //nolint:gosec
}

func (d *Digest) Update(p []byte) {
	// hash.Hash.Write never returns an error.
	_, _ = d.h.Write(p)
}

func (d *Digest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

func (d *Digest) Value() []byte {
	return d.h.Sum(nil)
}

func (d *Digest) Reset() {
	d.h.Reset()
}

func (d *Digest) Algorithm() Algorithm {
	return d.alg
}

func (d *Digest) sealed() {}
