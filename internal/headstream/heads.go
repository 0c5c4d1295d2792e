package headstream

import (
	"context"

	"github.com/gabapcia/chainhead/internal/blocks"
	"github.com/gabapcia/chainhead/internal/pkg/logger"
	"github.com/gabapcia/chainhead/internal/pkg/resilience/resub"
)

// Heads is the chain-head stream: a lazy, infinite, non-restartable sequence
// of sealed head blocks. Push mode yields header-only blocks; after a
// failover the polling fallback yields partial blocks, which callers can fold
// into previously seen items via blocks.MultiBlock.Upgrade.
type Heads struct {
	combinator[blocks.RawHeader, blocks.MultiBlock]
}

// NewHeads builds a chain-head stream over the "new heads" subscription
// topic, with "fetch latest" as the polling fallback.
func NewHeads(client Blockchain, hasher blocks.Hasher, opts ...Option) *Heads {
	cfg := newConfig(opts)

	h := &Heads{}
	h.cfg = cfg
	h.sub = resub.New(client.SubscribeNewHeads, cfg.resubscribeDelay)
	h.convert = func(ctx context.Context, raw blocks.RawHeader) (blocks.MultiBlock, error) {
		sealed, computedLocally := raw.Seal(hasher)
		if computedLocally {
			logger.Error(ctx, "[report this bug] node pushed a header without hash, hash computed locally",
				"block.number", sealed.Number(),
				"block.hash", sealed.Hash(),
			)
		}
		return blocks.HeaderBlock(sealed), nil
	}
	h.pollFn = func(ctx context.Context) ([]blocks.MultiBlock, error) {
		block, err := client.BlockAt(ctx, blocks.Latest)
		if err != nil {
			return nil, err
		}
		if block == nil {
			return nil, ErrNullLatestBlock
		}
		return []blocks.MultiBlock{*block}, nil
	}
	return h
}

// Logs is the chain-head stream variant for contract events: the same
// push/poll failover over the "logs" subscription topic. The polling
// fallback fetches the latest block and then the logs it contains.
type Logs struct {
	combinator[blocks.Log, blocks.Log]
}

// NewLogs builds a log stream for the given filter.
func NewLogs(client Blockchain, filter blocks.LogFilter, opts ...Option) *Logs {
	cfg := newConfig(opts)

	l := &Logs{}
	l.cfg = cfg
	l.sub = resub.New(func(ctx context.Context) (resub.PushHandle[blocks.Log], error) {
		return client.SubscribeLogs(ctx, filter)
	}, cfg.resubscribeDelay)
	l.convert = func(_ context.Context, log blocks.Log) (blocks.Log, error) {
		return log, nil
	}
	l.pollFn = func(ctx context.Context) ([]blocks.Log, error) {
		block, err := client.BlockAt(ctx, blocks.Latest)
		if err != nil {
			return nil, err
		}
		if block == nil {
			return nil, ErrNullLatestBlock
		}

		blockFilter := filter
		hash := block.Hash()
		blockFilter.BlockHash = &hash
		return client.Logs(ctx, blockFilter)
	}
	return l
}
