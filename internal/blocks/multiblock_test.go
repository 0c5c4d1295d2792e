package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealedHeader(number uint64, hash Hash) SealedHeader {
	return Seal(Header{Number: number}, hash)
}

func TestMultiBlock_Upgrade(t *testing.T) {
	var (
		hash    = Hash{0x01}
		header  = HeaderBlock(sealedHeader(7, hash))
		partial = PartialBlock(sealedHeader(7, hash), []Hash{{0xaa}})
		full    = FullBlock(sealedHeader(7, hash), []Transaction{{Hash: Hash{0xaa}}}, nil)
	)

	t.Run("header upgrades to partial", func(t *testing.T) {
		current := header

		displaced := current.Upgrade(partial)

		assert.Equal(t, KindPartial, current.Kind())
		assert.Equal(t, KindHeader, displaced.Kind())
	})

	t.Run("header upgrades to full", func(t *testing.T) {
		current := header

		displaced := current.Upgrade(full)

		assert.Equal(t, KindFull, current.Kind())
		assert.Equal(t, KindHeader, displaced.Kind())
	})

	t.Run("partial upgrades to full", func(t *testing.T) {
		current := partial

		displaced := current.Upgrade(full)

		assert.Equal(t, KindFull, current.Kind())
		assert.Equal(t, KindPartial, displaced.Kind())
	})

	t.Run("no downgrade from partial to header", func(t *testing.T) {
		current := partial

		unused := current.Upgrade(header)

		assert.Equal(t, KindPartial, current.Kind(), "receiver must be untouched")
		assert.Equal(t, KindHeader, unused.Kind(), "candidate must be returned unused")
		assert.Equal(t, []Hash{{0xaa}}, current.TxHashes())
	})

	t.Run("same kind is not an upgrade", func(t *testing.T) {
		current := partial

		unused := current.Upgrade(PartialBlock(sealedHeader(8, Hash{0x02}), nil))

		assert.Equal(t, uint64(7), current.Number(), "receiver must be untouched")
		assert.Equal(t, uint64(8), unused.Number())
	})
}

func TestMultiBlock_Equal(t *testing.T) {
	t.Run("same hash across completeness levels", func(t *testing.T) {
		hash := Hash{0x05}

		a := HeaderBlock(sealedHeader(3, hash))
		b := FullBlock(sealedHeader(3, hash), []Transaction{{Hash: Hash{0x09}}}, nil)

		assert.True(t, a.Equal(b))
		assert.Zero(t, a.Compare(b))
	})

	t.Run("different hash same number", func(t *testing.T) {
		a := HeaderBlock(sealedHeader(3, Hash{0x05}))
		b := HeaderBlock(sealedHeader(3, Hash{0x06}))

		assert.False(t, a.Equal(b))
	})
}

func TestRef_Compare(t *testing.T) {
	t.Run("ordered by number first", func(t *testing.T) {
		lower := Ref{Number: 1, Hash: Hash{0xff}}
		higher := Ref{Number: 2, Hash: Hash{0x01}}

		assert.Equal(t, -1, lower.Compare(higher))
		assert.Equal(t, 1, higher.Compare(lower))
	})

	t.Run("equal number breaks ties by hash as big-endian integer", func(t *testing.T) {
		a := Ref{Number: 5, Hash: Hash{0x01}}
		b := Ref{Number: 5, Hash: Hash{0x02}}

		require.NotEqual(t, a.Hash, b.Hash)
		assert.Equal(t, -1, a.Compare(b))
		assert.Equal(t, 1, b.Compare(a))
	})

	t.Run("equal hash compares equal regardless of number", func(t *testing.T) {
		hash := Hash{0x07}

		a := Ref{Number: 5, Hash: hash}
		b := Ref{Number: 9, Hash: hash}

		assert.Zero(t, a.Compare(b))
		assert.True(t, a.Equal(b))
	})
}

func TestRef_Parent(t *testing.T) {
	t.Run("regular block", func(t *testing.T) {
		ref := Ref{Number: 10, Hash: Hash{0x0a}}

		parent := ref.Parent(Hash{0x09})

		assert.Equal(t, Ref{Number: 9, Hash: Hash{0x09}}, parent)
	})

	t.Run("genesis is self-parented", func(t *testing.T) {
		genesis := Ref{Number: 0, Hash: Hash{0x01}}

		assert.Equal(t, genesis, genesis.Parent(Hash{0xff}))
	})
}
