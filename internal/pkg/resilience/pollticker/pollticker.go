// Package pollticker runs a unit of work on an adaptive cadence. The caller
// pulls results one at a time; between results the ticker sleeps a
// dynamically adjusted interval that compensates for the latency of the work
// itself, so results keep arriving approximately one target interval apart.
package pollticker

import (
	"context"
	"time"

	"github.com/gabapcia/chainhead/internal/pkg/x/chflow"
	"github.com/gabapcia/chainhead/internal/pkg/x/stream"
)

// Func is the unit of work driven by the ticker. It may block for an
// unbounded time; the ticker imposes no timeout of its own.
type Func[T any] func(ctx context.Context) (T, error)

// Ticker yields the results of repeatedly invoking a Func, spacing
// invocations so that consecutive completions land approximately one target
// interval apart. Errors from the Func are yielded like any other result and
// never terminate the sequence; only context cancellation ends it.
//
// A Ticker is owned by a single caller and must not be polled concurrently.
type Ticker[T any] struct {
	fn     Func[T]
	target time.Duration

	interval      time.Duration // current inter-call delay estimate
	wait          time.Duration // delay to apply before the next call
	lastCompleted time.Time     // completion time of the previous call
}

var _ stream.Stream[any] = (*Ticker[any])(nil)

// New creates a Ticker that invokes fn on the given target cadence.
func New[T any](fn Func[T], target time.Duration) *Ticker[T] {
	return &Ticker[T]{
		fn:       fn,
		target:   target,
		interval: target,
	}
}

// Interval returns the current adaptive interval estimate.
func (t *Ticker[T]) Interval() time.Duration {
	return t.interval
}

// Next sleeps the pending delay, invokes the unit of work once, and yields
// its result. It returns false only when ctx is canceled; the sequence is
// otherwise infinite and not restartable.
func (t *Ticker[T]) Next(ctx context.Context) (stream.Event[T], bool) {
	if !chflow.Sleep(ctx, t.wait) {
		return stream.Event[T]{}, false
	}

	requestTime := time.Now()
	item, err := t.fn(ctx)
	now := time.Now()

	if t.lastCompleted.IsZero() {
		// First completion: aim the next call so the second result lands one
		// target interval after the start of the first call.
		t.interval = max(t.target-now.Sub(requestTime), 0)
	} else {
		// Exponential smoother, 9:1 in favor of the previous estimate.
		actual := now.Sub(t.lastCompleted)
		drift := actual - t.target
		t.interval = (t.interval*9 + max(t.interval-drift, 0)) / 10
	}
	t.lastCompleted = now
	t.wait = t.interval

	if err != nil {
		return stream.Fail[T](err), true
	}
	return stream.Of(item), true
}
