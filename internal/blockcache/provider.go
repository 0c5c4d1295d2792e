// Package blockcache serves the latest and finalized blocks of a chain from
// short-lived in-memory caches, so bursts of queries cost a single upstream
// call per cache window.
package blockcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gabapcia/chainhead/internal/blocks"
	"github.com/gabapcia/chainhead/internal/pkg/logger"
	"github.com/gabapcia/chainhead/internal/pkg/resilience/retry"
)

var (
	// ErrNoLatestBlock indicates the node reported no latest block.
	ErrNoLatestBlock = errors.New("node returned no latest block")

	// ErrNoFinalizedBlock indicates the node reported no block for the
	// configured finality strategy.
	ErrNoFinalizedBlock = errors.New("node returned no finalized block")
)

// defaultCacheTimeout is how long a cached block is served before the next
// query refreshes it.
const defaultCacheTimeout = time.Second

// FinalityStrategy selects how the finalized-equivalent block is derived.
// The zero value queries the node's own finalized selector.
type FinalityStrategy struct {
	confirmations    uint64
	useConfirmations bool
}

// FinalizedTag derives finality from the node's finalized block selector.
func FinalizedTag() FinalityStrategy {
	return FinalityStrategy{}
}

// Confirmations treats the block n confirmations behind the latest one as
// final, for chains whose nodes expose no finality selector.
func Confirmations(n uint64) FinalityStrategy {
	return FinalityStrategy{confirmations: n, useConfirmations: true}
}

// Blockchain is the RPC surface consumed by the provider.
type Blockchain interface {
	// BlockAt retrieves the block at the given selector, or nil when the
	// node has no such block.
	BlockAt(ctx context.Context, at blocks.AtBlock) (*blocks.MultiBlock, error)
}

// cacheEntry is a single cached block with its fetch timestamp. The mutex is
// held across the refresh call, so concurrent readers of a stale entry
// trigger exactly one upstream fetch and the rest are served the result.
type cacheEntry struct {
	mu        sync.Mutex
	block     blocks.MultiBlock
	fetchedAt time.Time
}

// An entry aged exactly timeout is still fresh; only a strictly older one
// triggers a refresh.
func (e *cacheEntry) fresh(now time.Time, timeout time.Duration) bool {
	return !e.fetchedAt.IsZero() && now.Sub(e.fetchedAt) <= timeout
}

func (e *cacheEntry) store(block blocks.MultiBlock, now time.Time) {
	e.block = block
	e.fetchedAt = now
}

type config struct {
	cacheTimeout time.Duration
	strategy     FinalityStrategy
}

// Option customizes a Provider.
type Option func(*config)

// WithCacheTimeout sets how long cached blocks are served before a refresh.
// Default: 1s.
func WithCacheTimeout(d time.Duration) Option {
	return func(c *config) {
		c.cacheTimeout = d
	}
}

// WithFinalityStrategy sets how the finalized block is derived.
// Default: the node's finalized selector.
func WithFinalityStrategy(s FinalityStrategy) Option {
	return func(c *config) {
		c.strategy = s
	}
}

// Provider answers latest/finalized block queries from TTL caches, going
// upstream only when a cache window has expired. Fetch errors propagate to
// the caller unchanged; there is no retry after construction.
type Provider struct {
	client Blockchain
	cfg    config

	latest    cacheEntry
	finalized cacheEntry
}

// New builds a Provider and warms both caches, retrying transient failures a
// few times so callers start from a populated state.
func New(ctx context.Context, client Blockchain, opts ...Option) (*Provider, error) {
	cfg := config{cacheTimeout: defaultCacheTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Provider{
		client: client,
		cfg:    cfg,
	}

	bootstrap := retry.New(retry.WithDelay(500*time.Millisecond), retry.WithMaxDelay(2*time.Second))
	err := bootstrap.Execute(ctx, func() error {
		if _, err := p.Latest(ctx); err != nil {
			return err
		}
		_, err := p.Finalized(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("warming block caches: %w", err)
	}
	return p, nil
}

// Latest returns the most recent block, served from cache when fresh.
func (p *Provider) Latest(ctx context.Context) (blocks.MultiBlock, error) {
	p.latest.mu.Lock()
	defer p.latest.mu.Unlock()

	if now := time.Now(); p.latest.fresh(now, p.cfg.cacheTimeout) {
		return p.latest.block, nil
	}

	block, err := p.client.BlockAt(ctx, blocks.Latest)
	if err != nil {
		return blocks.MultiBlock{}, err
	}
	if block == nil {
		return blocks.MultiBlock{}, ErrNoLatestBlock
	}

	p.latest.store(*block, time.Now())
	return *block, nil
}

// Finalized returns the finalized-equivalent block per the configured
// strategy, served from cache when fresh.
func (p *Provider) Finalized(ctx context.Context) (blocks.MultiBlock, error) {
	p.finalized.mu.Lock()
	defer p.finalized.mu.Unlock()

	if now := time.Now(); p.finalized.fresh(now, p.cfg.cacheTimeout) {
		return p.finalized.block, nil
	}

	if p.cfg.strategy.useConfirmations {
		return p.finalizedByConfirmations(ctx)
	}

	block, err := p.client.BlockAt(ctx, blocks.Finalized)
	if err != nil {
		return blocks.MultiBlock{}, err
	}
	if block == nil {
		return blocks.MultiBlock{}, ErrNoFinalizedBlock
	}

	p.finalized.store(*block, time.Now())
	return *block, nil
}

// finalizedByConfirmations resolves the block p.cfg.strategy.confirmations
// behind latest. When the target number matches the cached block the entry's
// timestamp is bumped instead of refetching, since a block at a fixed number
// never changes. Caller holds p.finalized.mu.
func (p *Provider) finalizedByConfirmations(ctx context.Context) (blocks.MultiBlock, error) {
	latest, err := p.Latest(ctx)
	if err != nil {
		return blocks.MultiBlock{}, err
	}

	var target uint64
	if latest.Number() > p.cfg.strategy.confirmations {
		target = latest.Number() - p.cfg.strategy.confirmations
	}

	if !p.finalized.fetchedAt.IsZero() && p.finalized.block.Number() == target {
		p.finalized.fetchedAt = time.Now()
		return p.finalized.block, nil
	}

	block, err := p.client.BlockAt(ctx, blocks.AtNumber(target))
	if err != nil {
		return blocks.MultiBlock{}, err
	}
	if block == nil {
		logger.Error(ctx, "[report this bug] node returned no block below its own latest",
			"target.number", target,
			"latest.number", latest.Number(),
		)
		return blocks.MultiBlock{}, ErrNoFinalizedBlock
	}

	p.finalized.store(*block, time.Now())
	return *block, nil
}

// BlockAt performs an uncached point query for the given selector.
func (p *Provider) BlockAt(ctx context.Context, at blocks.AtBlock) (*blocks.MultiBlock, error) {
	return p.client.BlockAt(ctx, at)
}
