// Package blocks defines the block identity and ordering model shared by
// every stream in this module: content hashes, block selectors, sealed
// headers, and the multi-fidelity block representation used to compare
// partially- and fully-populated blocks of the same chain.
package blocks

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashSize is the size in bytes of a block content hash.
const HashSize = 32

// Hash is a 32-byte content digest identifying a block or transaction.
type Hash [HashSize]byte

// HashFromHex parses a 0x-prefixed hexadecimal string into a Hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return h, fmt.Errorf("hash must start with 0x: %q", s)
	}

	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(raw) != HashSize {
		return h, fmt.Errorf("invalid hash length %d, expected %d", len(raw), HashSize)
	}

	copy(h[:], raw)
	return h, nil
}

// IsZero reports whether the hash is the all-zero value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Cmp compares two hashes as big-endian integers, returning -1, 0 or +1.
func (h Hash) Cmp(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// Hex returns the 0x-prefixed hexadecimal representation of the hash.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return h.Hex()
}
