// Package resub wraps a push-subscription factory into a self-healing pull
// stream. Whenever the underlying subscription errors or closes, a new one is
// established automatically, with a fixed delay between failed attempts. The
// caller can request an unsubscribe at any time, which terminates the
// sequence after the pending network operation settles.
package resub

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gabapcia/chainhead/internal/pkg/logger"
	"github.com/gabapcia/chainhead/internal/pkg/x/chflow"
	"github.com/gabapcia/chainhead/internal/pkg/x/stream"
)

var (
	// ErrNotSupported is returned by a subscribe attempt when the transport
	// fundamentally does not support push subscriptions (e.g. plain HTTP).
	// It is propagated once, then the stream closes permanently.
	ErrNotSupported = errors.New("transport does not support subscriptions")

	// ErrClosed is returned by PushHandle.Recv when the server closed the
	// subscription without delivering an item. The stream resubscribes.
	ErrClosed = errors.New("subscription closed by server")

	// ErrServerRestart is returned by PushHandle.Recv when the server asked
	// the client to re-establish the subscription. The stream resubscribes.
	ErrServerRestart = errors.New("server requested resubscription")
)

// PushHandle is an open push subscription. Recv blocks until the next item,
// a terminal condition (ErrClosed, ErrServerRestart), or a delivery error.
// Unsubscribe tears the subscription down on the server.
type PushHandle[T any] interface {
	Recv(ctx context.Context) (T, error)
	Unsubscribe(ctx context.Context) error
}

// SubscribeFunc establishes a new push subscription.
type SubscribeFunc[T any] func(ctx context.Context) (PushHandle[T], error)

type state int

const (
	stateSubscribing state = iota
	stateSubscribed
	stateRetryDelay
	stateUnsubscribed
)

// Stream is a self-resubscribing wrapper over a SubscribeFunc.
//
// It is driven by exactly one caller at a time; state transitions happen
// synchronously inside Next, so there is never more than one outstanding
// subscribe or unsubscribe operation. Each delivered item consumes its
// subscription: a fresh subscribe is initiated for the next item, mirroring
// servers that may terminate a subscription after one notification.
type Stream[T any] struct {
	subscribe     SubscribeFunc[T]
	retryInterval time.Duration

	state  state
	handle PushHandle[T]

	// unsubscribe may be flipped by the owner between polls; it is checked
	// on every step and overrides all other transitions.
	unsubscribe atomic.Bool

	consecutiveErrors  int
	totalSubscriptions int
	lastSubscribedAt   time.Time
}

var _ stream.Stream[any] = (*Stream[any])(nil)

// New creates a self-resubscribing stream over the given factory, waiting
// retryInterval between failed subscribe attempts.
func New[T any](subscribe SubscribeFunc[T], retryInterval time.Duration) *Stream[T] {
	return &Stream[T]{
		subscribe:     subscribe,
		retryInterval: retryInterval,
		state:         stateSubscribing,
	}
}

// Unsubscribe requests termination of the stream. It only sets a flag; the
// unsubscribe operation itself is issued on the next call to Next, which is
// the only network operation the stream waits to complete before ending.
func (s *Stream[T]) Unsubscribe() {
	s.unsubscribe.Store(true)
}

// ConsecutiveErrors returns the current run of failed subscribe attempts.
func (s *Stream[T]) ConsecutiveErrors() int {
	return s.consecutiveErrors
}

// TotalSubscriptions returns how many subscriptions were established.
func (s *Stream[T]) TotalSubscriptions() int {
	return s.totalSubscriptions
}

// Terminated reports whether the sequence has ended.
func (s *Stream[T]) Terminated() bool {
	return s.state == stateUnsubscribed
}

// Next drives the state machine until an item or error is produced, the
// stream terminates (false), or ctx is canceled (false). Recoverable
// subscription failures are retried internally and never surface as events;
// only delivered items, per-item delivery errors, and the ErrNotSupported
// terminal error are yielded.
func (s *Stream[T]) Next(ctx context.Context) (stream.Event[T], bool) {
	for {
		if ctx.Err() != nil {
			return stream.Event[T]{}, false
		}

		switch s.state {
		case stateSubscribing:
			if s.unsubscribe.Load() {
				// No subscription is open, nothing to tear down.
				s.state = stateUnsubscribed
				return stream.Event[T]{}, false
			}

			handle, err := s.subscribe(ctx)
			if err != nil {
				if ctx.Err() != nil || s.unsubscribe.Load() {
					s.state = stateUnsubscribed
					return stream.Event[T]{}, false
				}
				if errors.Is(err, ErrNotSupported) {
					s.state = stateUnsubscribed
					return stream.Fail[T](err), true
				}

				s.consecutiveErrors++
				logger.Warn(ctx, "subscribe attempt failed, retrying",
					"attempts", s.consecutiveErrors,
					"retry_in", s.retryInterval,
					"error", err,
				)
				s.state = stateRetryDelay
				continue
			}

			if s.consecutiveErrors > 0 {
				logger.Info(ctx, "successfully subscribed",
					"attempts", s.consecutiveErrors,
					"total_subscriptions", s.totalSubscriptions+1,
				)
			}
			s.consecutiveErrors = 0
			s.totalSubscriptions++
			s.lastSubscribedAt = time.Now()
			s.handle = handle
			s.state = stateSubscribed

		case stateSubscribed:
			if s.unsubscribe.Load() {
				s.finishUnsubscribe(ctx)
				return stream.Event[T]{}, false
			}

			item, err := s.handle.Recv(ctx)
			if ctx.Err() != nil {
				// Caller stopped driving; the in-flight operation is abandoned.
				return stream.Event[T]{}, false
			}

			switch {
			case err == nil:
				// One item per subscribe: the next item requires a new
				// subscription, initiated on the following poll.
				s.handle = nil
				s.state = stateSubscribing
				return stream.Of(item), true

			case errors.Is(err, ErrClosed):
				logger.Warn(ctx, "subscription closed by server, resubscribing")
				s.handle = nil
				s.state = stateSubscribing

			case errors.Is(err, ErrServerRestart):
				s.handle = nil
				s.state = stateSubscribing

			default:
				// Delivery error: surface it and re-establish the subscription.
				s.handle = nil
				s.state = stateSubscribing
				return stream.Fail[T](err), true
			}

		case stateRetryDelay:
			if s.unsubscribe.Load() {
				// Nothing in flight, drop straight to terminated.
				s.state = stateUnsubscribed
				return stream.Event[T]{}, false
			}
			if !chflow.Sleep(ctx, s.retryInterval) {
				return stream.Event[T]{}, false
			}
			s.state = stateSubscribing

		case stateUnsubscribed:
			return stream.Event[T]{}, false
		}
	}
}

// finishUnsubscribe issues the unsubscribe call for the open subscription and
// marks the stream terminated. Errors are logged only: the caller asked for
// the teardown, so there is no one left to act on them.
func (s *Stream[T]) finishUnsubscribe(ctx context.Context) {
	if err := s.handle.Unsubscribe(ctx); err != nil {
		logger.Warn(ctx, "unsubscribe failed", "error", err)
	}
	s.handle = nil
	s.state = stateUnsubscribed
}
