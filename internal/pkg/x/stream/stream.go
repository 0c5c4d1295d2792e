// Package stream defines the pull-driven sequence vocabulary shared by the
// resilience wrappers and the chain-head streams: a stream is stepped by a
// single owner, one event at a time, and may interleave items with
// pass-through errors before it ends.
package stream

import "context"

// Event is one element of a stream: an item or a pass-through error.
type Event[T any] struct {
	Item T
	Err  error
}

// Ok reports whether the event carries an item rather than an error.
func (e Event[T]) Ok() bool {
	return e.Err == nil
}

// Of builds an item event.
func Of[T any](item T) Event[T] {
	return Event[T]{Item: item}
}

// Fail builds an error event.
func Fail[T any](err error) Event[T] {
	return Event[T]{Err: err}
}

// Stream is a lazy sequence of events driven by exactly one caller.
//
// Next blocks until the next event is available and returns it with true, or
// returns false once the sequence has ended or ctx was canceled. After a
// false return the stream must not be polled again.
type Stream[T any] interface {
	Next(ctx context.Context) (Event[T], bool)
}
