// Package checksum provides the rolling checksums used to validate storage transfers.
//
// Two implementations exist: a table-driven CRC-64 (ECMA-182, reflected) used by
// structured messages and the x-ms-content-crc64 header, and an MD5 digest used for
// whole-payload validation against Content-MD5. Both satisfy the sealed Checksum
// interface and report their final value as a byte slice.
package checksum

import (
	"fmt"
	"io"
	"sync"

	"github.com/arloliu/xfer/errs"
)

// Algorithm selects how transferred data is checksummed.
type Algorithm uint8

const (
	// None disables checksumming.
	None Algorithm = 0x1
	// Auto lets the library choose; it resolves to StorageCRC64.
	Auto Algorithm = 0x2
	// StorageCRC64 selects the storage service's CRC-64.
	StorageCRC64 Algorithm = 0x3
	// MD5 selects a whole-payload MD5 digest.
	MD5 Algorithm = 0x4
)

func (a Algorithm) String() string {
	switch a {
	case None:
		return "None"
	case Auto:
		return "Auto"
	case StorageCRC64:
		return "StorageCRC64"
	case MD5:
		return "MD5"
	default:
		return "Unknown"
	}
}

// Resolve maps Auto to the concrete algorithm it stands for.
func (a Algorithm) Resolve() Algorithm {
	if a == Auto {
		return StorageCRC64
	}

	return a
}

// Checksum is a rolling checksum. Implementations are not safe for concurrent use.
type Checksum interface {
	io.Writer

	// Update folds p into the running state.
	Update(p []byte)
	// Value returns the checksum of everything folded since the last Reset.
	// It does not change the running state.
	Value() []byte
	// Reset clears the running state for reuse.
	Reset()
	// Algorithm reports which algorithm the checksum computes.
	Algorithm() Algorithm

	sealed()
}

// New creates the Checksum for alg. Auto resolves to StorageCRC64.
func New(alg Algorithm) (Checksum, error) {
	switch alg.Resolve() {
	case StorageCRC64:
		return NewCRC64(), nil
	case MD5:
		return NewMD5(), nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidAlgorithm, alg)
	}
}

// scratchSize bounds the copy buffer used by UpdateFrom.
const scratchSize = 4 * 1024

var scratchPool = sync.Pool{
	New: func() any {
		b := make([]byte, scratchSize)
		return &b
	},
}

// UpdateFrom folds every byte of r into c, copying through a 4 KiB scratch array so
// sources that are not backed by a plain slice are never materialized whole.
func UpdateFrom(c Checksum, r io.Reader) (int64, error) {
	bp, _ := scratchPool.Get().(*[]byte)
	defer scratchPool.Put(bp)

	scratch := *bp
	var total int64
	for {
		n, err := r.Read(scratch)
		if n > 0 {
			c.Update(scratch[:n])
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
