// Package hash derives block identifiers.
package hash

import (
	"encoding/base64"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// BlockID returns the identifier of block index within an upload keyed by prefix.
//
// Identifiers are the base64 encoding of 16 bytes, the xxHash64 of prefix followed
// by the big-endian index, so every block of one upload has an ID of equal length,
// as block storage services require.
func BlockID(prefix string, index int) string {
	var raw [16]byte
	binary.BigEndian.PutUint64(raw[:8], ID(prefix))
	binary.BigEndian.PutUint64(raw[8:], uint64(index))

	return base64.StdEncoding.EncodeToString(raw[:])
}
