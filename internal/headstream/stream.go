// Package headstream tracks the head of a remote chain over an unreliable
// transport. Each stream starts on a push subscription and transparently
// fails over to adaptive polling when push proves unreliable; once polling
// is in use it is kept for the stream's lifetime. Callers never observe a
// stall, a duplicate caused by the failover, or an out-of-order item.
package headstream

import (
	"context"
	"errors"
	"time"

	"github.com/gabapcia/chainhead/internal/pkg/logger"
	"github.com/gabapcia/chainhead/internal/pkg/resilience/breaker"
	"github.com/gabapcia/chainhead/internal/pkg/resilience/pollticker"
	"github.com/gabapcia/chainhead/internal/pkg/resilience/resub"
	"github.com/gabapcia/chainhead/internal/pkg/x/stream"
)

// ErrNullLatestBlock indicates the node returned no block for "latest",
// which a correct node can never do. The stream closes permanently.
var ErrNullLatestBlock = errors.New("node returned no block for latest")

const (
	// defaultResubscribeDelay is the fixed wait between failed subscribe attempts.
	defaultResubscribeDelay = 2 * time.Second

	// defaultPollingInterval is the target cadence of the polling fallback.
	defaultPollingInterval = 2 * time.Second

	// defaultMaxErrors is the shared consecutive-error budget across both modes.
	defaultMaxErrors = 10

	// errorForgiveness is subtracted from the shared error counter on the
	// push-to-poll switch, so a stream that just recovered from push mode is
	// not instantly re-tripped.
	errorForgiveness = 2
)

type config struct {
	resubscribeDelay time.Duration
	pollingInterval  time.Duration
	maxErrors        int
}

// Option customizes a chain-head stream.
type Option func(*config)

// WithResubscribeDelay sets the wait between failed subscribe attempts.
// Default: 2s.
func WithResubscribeDelay(d time.Duration) Option {
	return func(c *config) {
		c.resubscribeDelay = d
	}
}

// WithPollingInterval sets the target cadence of the polling fallback.
// Default: 2s.
func WithPollingInterval(d time.Duration) Option {
	return func(c *config) {
		c.pollingInterval = d
	}
}

// WithMaxErrors sets the shared consecutive-error budget. Default: 10.
func WithMaxErrors(n int) Option {
	return func(c *config) {
		c.maxErrors = n
	}
}

func newConfig(opts []Option) config {
	cfg := config{
		resubscribeDelay: defaultResubscribeDelay,
		pollingInterval:  defaultPollingInterval,
		maxErrors:        defaultMaxErrors,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

type mode int

const (
	modeSubscription mode = iota
	modePolling
	modeTerminated
)

// combinator is the push/poll failover engine shared by Heads and Logs.
//
// P is the payload type delivered by the push subscription, T the item type
// yielded to the caller. The polling fallback produces batches of T per tick
// (a single block for heads, all matching logs of the polled block for logs).
type combinator[P, T any] struct {
	sub     *resub.Stream[P]
	convert func(ctx context.Context, payload P) (T, error)
	pollFn  pollticker.Func[[]T]
	poll    *breaker.Breaker[[]T]

	cfg config

	mode       mode
	errorCount int
	lastItemAt time.Time
	buffered   []T
}

// Polling reports whether the stream has failed over to the polling fallback.
func (c *combinator[P, T]) Polling() bool {
	return c.mode == modePolling
}

// Terminated reports whether the stream has permanently ended.
func (c *combinator[P, T]) Terminated() bool {
	return c.mode == modeTerminated
}

// Next yields the next item or pass-through error. It returns false once the
// stream has terminated or ctx is canceled. Subscription-mode errors are
// retried internally and never surface as events; polling-mode errors are
// forwarded so the caller can react per item while they count toward the
// shared threshold.
func (c *combinator[P, T]) Next(ctx context.Context) (stream.Event[T], bool) {
	for {
		if ctx.Err() != nil {
			return stream.Event[T]{}, false
		}

		switch c.mode {
		case modeSubscription:
			ev, ok := c.sub.Next(ctx)
			if !ok {
				if ctx.Err() != nil {
					return stream.Event[T]{}, false
				}
				c.failover(ctx)
				continue
			}

			if !ev.Ok() {
				c.countSubscriptionError(ctx, ev.Err)
				continue
			}

			item, err := c.convert(ctx, ev.Item)
			if err != nil {
				c.countSubscriptionError(ctx, err)
				continue
			}

			c.errorCount = 0
			c.lastItemAt = time.Now()
			return stream.Of(item), true

		case modePolling:
			if len(c.buffered) > 0 {
				item := c.buffered[0]
				c.buffered = c.buffered[1:]
				return stream.Of(item), true
			}

			ev, ok := c.poll.Next(ctx)
			if !ok {
				if ctx.Err() != nil {
					return stream.Event[T]{}, false
				}
				if c.poll.Tripped() {
					logger.Error(ctx, "polling circuit breaker tripped, chain-head stream terminated")
				} else {
					logger.Error(ctx, "polling source ended, chain-head stream terminated")
				}
				c.mode = modeTerminated
				return stream.Event[T]{}, false
			}

			if !ev.Ok() {
				if errors.Is(ev.Err, ErrNullLatestBlock) {
					logger.Error(ctx, "[report this bug] node returned no block for latest")
					c.mode = modeTerminated
					return stream.Event[T]{}, false
				}

				c.errorCount++
				logger.Error(ctx, "chain-head poll failed",
					"error_count", c.errorCount,
					"error", ev.Err,
				)
				if c.errorCount >= c.cfg.maxErrors {
					c.mode = modeTerminated
				}
				return stream.Fail[T](ev.Err), true
			}

			c.errorCount = 0
			c.lastItemAt = time.Now()
			c.buffered = ev.Item

		case modeTerminated:
			return stream.Event[T]{}, false
		}
	}
}

// countSubscriptionError records a push-mode failure and forces an
// unsubscribe once the shared budget is exhausted. The unsubscribe only sets
// a flag; confirmation is not awaited, so the caller is never blocked here.
func (c *combinator[P, T]) countSubscriptionError(ctx context.Context, err error) {
	c.errorCount++
	logger.Warn(ctx, "chain-head subscription returned an error",
		"error_count", c.errorCount,
		"error", err,
	)
	if c.errorCount >= c.cfg.maxErrors {
		c.sub.Unsubscribe()
	}
}

// failover switches from push to polling for the remainder of the stream's
// life, down-shifting the shared error counter as partial forgiveness so the
// fresh polling mode is not instantly re-tripped.
func (c *combinator[P, T]) failover(ctx context.Context) {
	c.errorCount = max(c.errorCount-errorForgiveness, 0)
	c.poll = breaker.New(pollticker.New(c.pollFn, c.cfg.pollingInterval), c.cfg.maxErrors)
	c.mode = modePolling

	logger.Warn(ctx, "push subscription exhausted, switching to polling",
		"error_count", c.errorCount,
	)
}
