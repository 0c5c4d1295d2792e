package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabapcia/chainhead/internal/blocks"
)

func TestParseAtBlock(t *testing.T) {
	t.Run("well-known tags", func(t *testing.T) {
		for input, want := range map[string]blocks.AtBlock{
			"latest":    blocks.Latest,
			"finalized": blocks.Finalized,
			"safe":      blocks.Safe,
			"earliest":  blocks.Earliest,
			"pending":   blocks.Pending,
		} {
			at, err := parseAtBlock(input)
			require.NoError(t, err, input)
			assert.Equal(t, want, at, input)
		}
	})

	t.Run("decimal number", func(t *testing.T) {
		at, err := parseAtBlock("12345")
		require.NoError(t, err)
		assert.Equal(t, blocks.AtNumber(12345), at)
	})

	t.Run("hexadecimal number", func(t *testing.T) {
		at, err := parseAtBlock("0x2a")
		require.NoError(t, err)
		assert.Equal(t, blocks.AtNumber(42), at)
	})

	t.Run("full-length hash", func(t *testing.T) {
		hex := "0x" + strings.Repeat("ab", blocks.HashSize)

		at, err := parseAtBlock(hex)
		require.NoError(t, err)

		hash, err := blocks.HashFromHex(hex)
		require.NoError(t, err)
		assert.Equal(t, blocks.AtHash(hash), at)
	})

	t.Run("malformed selectors fail", func(t *testing.T) {
		for _, input := range []string{"", "abc", "0xzz", "-1", "0x" + strings.Repeat("zz", blocks.HashSize)} {
			_, err := parseAtBlock(input)
			assert.Error(t, err, input)
		}
	})
}
