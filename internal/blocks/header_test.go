package blocks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticHasher returns the same digest for every header.
type staticHasher struct {
	digest Hash
}

func (h staticHasher) Hash(Header) Hash {
	return h.digest
}

func TestRawHeader_Seal(t *testing.T) {
	header := Header{Number: 42, ParentHash: Hash{0x41}}

	t.Run("node-supplied hash wins", func(t *testing.T) {
		supplied := Hash{0x42}
		raw := RawHeader{Header: header, Hash: &supplied}

		sealed, computedLocally := raw.Seal(staticHasher{digest: Hash{0xee}})

		assert.False(t, computedLocally)
		assert.Equal(t, supplied, sealed.Hash())
		assert.Equal(t, uint64(42), sealed.Number())
	})

	t.Run("missing hash is computed locally", func(t *testing.T) {
		raw := RawHeader{Header: header}

		sealed, computedLocally := raw.Seal(staticHasher{digest: Hash{0xee}})

		assert.True(t, computedLocally)
		assert.Equal(t, Hash{0xee}, sealed.Hash())
	})
}

func TestHashFromHex(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		in := "0x" + strings.Repeat("ab", HashSize)

		hash, err := HashFromHex(in)

		require.NoError(t, err)
		assert.Equal(t, in, hash.Hex())
	})

	t.Run("missing prefix", func(t *testing.T) {
		_, err := HashFromHex(strings.Repeat("ab", HashSize))

		assert.Error(t, err)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := HashFromHex("0xabcd")

		assert.Error(t, err)
	})
}

func TestAtBlock_String(t *testing.T) {
	t.Run("well-known selectors", func(t *testing.T) {
		assert.Equal(t, "latest", Latest.String())
		assert.Equal(t, "finalized", Finalized.String())
		assert.Equal(t, "safe", Safe.String())
		assert.Equal(t, "earliest", Earliest.String())
		assert.Equal(t, "pending", Pending.String())
	})

	t.Run("by number", func(t *testing.T) {
		assert.Equal(t, "0x2a", AtNumber(42).String())
	})

	t.Run("by hash", func(t *testing.T) {
		hash := Hash{0x01}

		assert.Equal(t, hash.Hex(), AtHash(hash).String())
	})
}
