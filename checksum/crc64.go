package checksum

import "encoding/binary"

// Polynomial is the reflected ECMA-182 CRC-64 polynomial.
const Polynomial uint64 = 0xC96C5795D7870F42

// CRC64Size is the length of an encoded CRC-64 value.
const CRC64Size = 8

var crcTable = makeTable(Polynomial)

func makeTable(poly uint64) *[256]uint64 {
	t := new([256]uint64)
	for i := range 256 {
		crc := uint64(i)
		for range 8 {
			if crc&1 == 1 {
				crc = (crc >> 1) ^ poly
			} else {
				crc >>= 1
			}
		}
		t[i] = crc
	}

	return t
}

// ComputeCRC64 folds data into crc and returns the updated value.
//
// The register is inverted on entry and exit, so results match hash/crc64 with the
// ECMA table (CRC-64/XZ) and calls compose:
//
//	ComputeCRC64(b, ComputeCRC64(a, 0)) == ComputeCRC64(append(a, b...), 0)
func ComputeCRC64(data []byte, crc uint64) uint64 {
	crc = ^crc
	for _, b := range data {
		crc = crcTable[byte(crc)^b] ^ (crc >> 8)
	}

	return ^crc
}

// CRC64 is a rolling CRC-64 calculator.
type CRC64 struct {
	crc uint64
}

var _ Checksum = (*CRC64)(nil)

// NewCRC64 creates a CRC-64 calculator starting from zero.
func NewCRC64() *CRC64 {
	return &CRC64{}
}

func (c *CRC64) Update(p []byte) {
	c.crc = ComputeCRC64(p, c.crc)
}

func (c *CRC64) Write(p []byte) (int, error) {
	c.Update(p)
	return len(p), nil
}

// Sum64 returns the current CRC-64 value.
func (c *CRC64) Sum64() uint64 {
	return c.crc
}

// Value returns the CRC-64 encoded little-endian, the layout used on the wire.
func (c *CRC64) Value() []byte {
	return binary.LittleEndian.AppendUint64(make([]byte, 0, CRC64Size), c.crc)
}

func (c *CRC64) Reset() {
	c.crc = 0
}

func (c *CRC64) Algorithm() Algorithm {
	return StorageCRC64
}

func (c *CRC64) sealed() {}
