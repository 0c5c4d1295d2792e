package blockcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabapcia/chainhead/internal/blocks"
)

// fakeBlockchain serves scripted blocks per selector and counts the calls.
type fakeBlockchain struct {
	blockAt func(ctx context.Context, at blocks.AtBlock) (*blocks.MultiBlock, error)
	calls   map[string]int
}

func (f *fakeBlockchain) BlockAt(ctx context.Context, at blocks.AtBlock) (*blocks.MultiBlock, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[at.String()]++
	return f.blockAt(ctx, at)
}

func chainBlock(number uint64) blocks.MultiBlock {
	return blocks.HeaderBlock(blocks.Seal(blocks.Header{Number: number}, blocks.Hash{byte(number)}))
}

func servingChain(latest, finalized uint64) *fakeBlockchain {
	return &fakeBlockchain{
		blockAt: func(_ context.Context, at blocks.AtBlock) (*blocks.MultiBlock, error) {
			var block blocks.MultiBlock
			switch at {
			case blocks.Latest:
				block = chainBlock(latest)
			case blocks.Finalized:
				block = chainBlock(finalized)
			default:
				number, ok := mustIdentifier(at).Number()
				if !ok {
					return nil, errors.New("unexpected selector")
				}
				block = chainBlock(number)
			}
			return &block, nil
		},
	}
}

func mustIdentifier(at blocks.AtBlock) blocks.Identifier {
	id, _ := at.Identifier()
	return id
}

func TestCacheEntry_Fresh(t *testing.T) {
	t.Run("never stored is never fresh", func(t *testing.T) {
		var entry cacheEntry
		assert.False(t, entry.fresh(time.Now(), time.Second))
	})

	t.Run("an entry aged exactly the timeout is still fresh", func(t *testing.T) {
		now := time.Now()

		entry := cacheEntry{fetchedAt: now.Add(-time.Second)}

		assert.True(t, entry.fresh(now, time.Second))
		assert.False(t, entry.fresh(now.Add(time.Nanosecond), time.Second))
	})
}

func TestProvider_Latest(t *testing.T) {
	t.Run("cached value is served within the timeout window", func(t *testing.T) {
		client := servingChain(100, 90)

		provider, err := New(t.Context(), client, WithCacheTimeout(100*time.Millisecond))
		require.NoError(t, err)

		first, err := provider.Latest(t.Context())
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)
		second, err := provider.Latest(t.Context())
		require.NoError(t, err)

		assert.True(t, first.Equal(second))
		assert.Equal(t, 1, client.calls["latest"], "the bootstrap fetch serves both calls")
	})

	t.Run("an expired window triggers exactly one refetch", func(t *testing.T) {
		client := servingChain(100, 90)

		provider, err := New(t.Context(), client, WithCacheTimeout(50*time.Millisecond))
		require.NoError(t, err)

		_, err = provider.Latest(t.Context())
		require.NoError(t, err)
		require.Equal(t, 1, client.calls["latest"])

		time.Sleep(80 * time.Millisecond)

		_, err = provider.Latest(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 2, client.calls["latest"])
	})

	t.Run("missing latest block maps to the sentinel", func(t *testing.T) {
		provider := &Provider{
			client: &fakeBlockchain{
				blockAt: func(context.Context, blocks.AtBlock) (*blocks.MultiBlock, error) {
					return nil, nil
				},
			},
			cfg: config{cacheTimeout: time.Second},
		}

		_, err := provider.Latest(t.Context())
		assert.ErrorIs(t, err, ErrNoLatestBlock)
	})

	t.Run("fetch errors propagate unchanged", func(t *testing.T) {
		fetchErr := errors.New("connection refused")
		provider := &Provider{
			client: &fakeBlockchain{
				blockAt: func(context.Context, blocks.AtBlock) (*blocks.MultiBlock, error) {
					return nil, fetchErr
				},
			},
			cfg: config{cacheTimeout: time.Second},
		}

		_, err := provider.Latest(t.Context())
		assert.ErrorIs(t, err, fetchErr)
	})
}

func TestProvider_Finalized(t *testing.T) {
	t.Run("finalized tag queries the node selector", func(t *testing.T) {
		client := servingChain(100, 90)

		provider, err := New(t.Context(), client, WithCacheTimeout(time.Second))
		require.NoError(t, err)

		block, err := provider.Finalized(t.Context())
		require.NoError(t, err)

		assert.Equal(t, uint64(90), block.Number())
		assert.Equal(t, 1, client.calls["finalized"])
	})

	t.Run("confirmations strategy fetches latest minus n", func(t *testing.T) {
		client := servingChain(100, 90)

		provider, err := New(t.Context(), client,
			WithCacheTimeout(time.Second),
			WithFinalityStrategy(Confirmations(10)),
		)
		require.NoError(t, err)

		block, err := provider.Finalized(t.Context())
		require.NoError(t, err)

		assert.Equal(t, uint64(90), block.Number())
		assert.Zero(t, client.calls["finalized"], "the node selector is never used")
		assert.Equal(t, 1, client.calls["0x5a"])
	})

	t.Run("unchanged target bumps the timestamp without refetching", func(t *testing.T) {
		client := servingChain(100, 90)

		provider, err := New(t.Context(), client,
			WithCacheTimeout(30*time.Millisecond),
			WithFinalityStrategy(Confirmations(10)),
		)
		require.NoError(t, err)

		_, err = provider.Finalized(t.Context())
		require.NoError(t, err)
		require.Equal(t, 1, client.calls["0x5a"])

		// Both caches expire; latest is refetched but still reports the same
		// height, so the confirmed block cannot have moved.
		time.Sleep(50 * time.Millisecond)

		block, err := provider.Finalized(t.Context())
		require.NoError(t, err)

		assert.Equal(t, uint64(90), block.Number())
		assert.Equal(t, 1, client.calls["0x5a"], "no refetch for an unchanged target")
		assert.Equal(t, 2, client.calls["latest"])
	})
}

func TestProvider_BlockAt(t *testing.T) {
	t.Run("point queries bypass the caches", func(t *testing.T) {
		client := servingChain(100, 90)

		provider, err := New(t.Context(), client, WithCacheTimeout(time.Second))
		require.NoError(t, err)

		for range 2 {
			block, err := provider.BlockAt(t.Context(), blocks.AtNumber(7))
			require.NoError(t, err)
			require.NotNil(t, block)
			assert.Equal(t, uint64(7), block.Number())
		}

		assert.Equal(t, 2, client.calls["0x7"])
	})
}
