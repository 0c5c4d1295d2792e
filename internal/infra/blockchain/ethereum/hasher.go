package ethereum

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/gabapcia/chainhead/internal/blocks"
)

// KeccakHasher seals headers whose content hash the node omitted. It digests
// a fixed-order binary encoding of the header fields with Keccak-256, giving
// every header a stable identity even when the canonical hash is unavailable.
type KeccakHasher struct{}

// Compile-time assertion that KeccakHasher implements blocks.Hasher.
var _ blocks.Hasher = KeccakHasher{}

// Hash computes the Keccak-256 digest of the header.
func (KeccakHasher) Hash(h blocks.Header) blocks.Hash {
	d := sha3.NewLegacyKeccak256()

	var buf [8]byte
	for _, n := range []uint64{h.Number, h.Timestamp, h.GasLimit, h.GasUsed} {
		binary.BigEndian.PutUint64(buf[:], n)
		d.Write(buf[:])
	}
	d.Write(h.ParentHash[:])
	d.Write(h.StateRoot[:])
	d.Write(h.ExtraData)

	var out blocks.Hash
	copy(out[:], d.Sum(nil))
	return out
}
