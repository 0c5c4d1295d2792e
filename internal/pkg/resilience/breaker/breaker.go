// Package breaker guards a pull stream with a maximum-consecutive-failures
// threshold. Successful items pass through and reset the failure counter; a
// run of consecutive failures reaching the threshold closes the sequence.
package breaker

import (
	"context"

	"github.com/gabapcia/chainhead/internal/pkg/x/stream"
)

// Breaker wraps an inner stream and trips after a run of consecutive errors.
//
// Items from the inner stream are forwarded unchanged. Every error increments
// the consecutive-failure counter; when the counter reaches the threshold the
// sequence ends without yielding the tripping error, so a breaker with
// threshold N yields at most N-1 consecutive error items.
type Breaker[T any] struct {
	inner     stream.Stream[T]
	threshold int

	consecutiveErrors int
	tripped           bool
	ended             bool
}

var _ stream.Stream[any] = (*Breaker[any])(nil)

// New wraps inner with the given maximum-consecutive-failures threshold.
func New[T any](inner stream.Stream[T], threshold int) *Breaker[T] {
	return &Breaker[T]{
		inner:     inner,
		threshold: threshold,
	}
}

// Tripped reports whether the failure threshold closed the sequence, as
// opposed to the inner stream ending on its own.
func (b *Breaker[T]) Tripped() bool {
	return b.tripped
}

// Next forwards the next event from the inner stream. It returns false once
// the breaker has tripped, the inner stream has ended, or ctx is canceled.
func (b *Breaker[T]) Next(ctx context.Context) (stream.Event[T], bool) {
	if b.tripped || b.ended {
		return stream.Event[T]{}, false
	}

	ev, ok := b.inner.Next(ctx)
	if !ok {
		b.ended = true
		return stream.Event[T]{}, false
	}

	if ev.Ok() {
		b.consecutiveErrors = 0
		return ev, true
	}

	b.consecutiveErrors++
	if b.consecutiveErrors >= b.threshold {
		b.tripped = true
		return stream.Event[T]{}, false
	}
	return ev, true
}
