// Package finalstream polls the finalized block of a remote chain and yields
// it as a strictly increasing sequence. The node exposes no push channel for
// finality and updates it at an unknown, drifting cadence, so the stream
// adjusts its own cadence from the ratio of duplicates and gaps it observes.
package finalstream

import (
	"context"
	"time"

	"github.com/gabapcia/chainhead/internal/blocks"
	"github.com/gabapcia/chainhead/internal/pkg/logger"
	"github.com/gabapcia/chainhead/internal/pkg/x/chflow"
)

type config struct {
	initialInterval time.Duration
}

// Option customizes a finalized-block stream.
type Option func(*config)

// WithInitialInterval sets the polling cadence the stream starts from before
// any adaptation. Default: 2s.
func WithInitialInterval(d time.Duration) Option {
	return func(c *config) {
		c.initialInterval = d
	}
}

// Stats is a point-in-time snapshot of the stream's acceptance model.
type Stats struct {
	// New counts headers accepted as expected progress.
	New uint64
	// Duplicated counts polls that returned the best block again.
	Duplicated uint64
	// Gaps counts polls that skipped ahead of the expected number.
	Gaps uint64
	// PollingInterval is the current adaptive cadence.
	PollingInterval time.Duration
	// BestNumber is the number of the last accepted header, valid only when
	// New > 0.
	BestNumber uint64
}

// Stream yields every finalized block exactly once, in strictly increasing
// number order. It never terminates on its own: poll failures and empty
// results are retried on the current cadence until ctx is canceled.
//
// Not safe for concurrent use; a stream has a single consumer.
type Stream struct {
	client  Blockchain
	stats   *statistics
	metrics metrics
	wait    bool
}

// New builds a finalized-block stream. The first poll fires immediately.
func New(client Blockchain, opts ...Option) *Stream {
	cfg := config{initialInterval: defaultPollingInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Stream{
		client:  client,
		stats:   newStatistics(cfg.initialInterval),
		metrics: newMetrics(),
	}
}

// Stats returns a snapshot of the acceptance counters and current cadence.
func (s *Stream) Stats() Stats {
	st := Stats{
		New:             s.stats.newBlocks,
		Duplicated:      s.stats.duplicated,
		Gaps:            s.stats.gaps,
		PollingInterval: s.stats.pollingInterval,
	}
	if s.stats.best != nil {
		st.BestNumber = s.stats.best.Number()
	}
	return st
}

// Interval returns the current adaptive polling cadence.
func (s *Stream) Interval() time.Duration {
	return s.stats.pollingInterval
}

// Next blocks until a new finalized block is accepted and returns it. It
// returns false only when ctx is canceled.
func (s *Stream) Next(ctx context.Context) (blocks.MultiBlock, bool) {
	for {
		if s.wait && !chflow.Sleep(ctx, s.stats.pollingInterval) {
			return blocks.MultiBlock{}, false
		}
		s.wait = true

		block, err := s.client.BlockAt(ctx, blocks.Finalized)
		if ctx.Err() != nil {
			return blocks.MultiBlock{}, false
		}
		if err != nil {
			logger.Warn(ctx, "failed to retrieve finalized block, retrying",
				"retry_in", s.stats.pollingInterval,
				"error", err,
			)
			continue
		}
		if block == nil {
			logger.Error(ctx, "[report this bug] node returned no finalized block, retrying",
				"retry_in", s.stats.pollingInterval,
			)
			continue
		}

		result, accepted := s.stats.observe(ctx, block.Header())
		s.metrics.record(ctx, result, s.stats.pollingInterval)
		if !accepted {
			continue
		}

		if result == outcomeGap {
			logger.Warn(ctx, "finalized block gap detected",
				"block.number", block.Number(),
				"gaps", s.stats.gaps,
				"polling_interval", s.stats.pollingInterval,
			)
		}
		return *block, true
	}
}
