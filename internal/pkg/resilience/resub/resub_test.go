package resub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedHandle replays one Recv result per call.
type scriptedHandle struct {
	recvs            []func() (int, error)
	next             int
	unsubscribeCalls *int
}

func (h *scriptedHandle) Recv(context.Context) (int, error) {
	fn := h.recvs[h.next]
	h.next++
	return fn()
}

func (h *scriptedHandle) Unsubscribe(context.Context) error {
	if h.unsubscribeCalls != nil {
		*h.unsubscribeCalls++
	}
	return nil
}

func itemHandle(n int) *scriptedHandle {
	return &scriptedHandle{recvs: []func() (int, error){
		func() (int, error) { return n, nil },
	}}
}

func TestStream_Next(t *testing.T) {
	t.Run("one item per subscribe", func(t *testing.T) {
		subscribes := 0
		s := New(func(context.Context) (PushHandle[int], error) {
			subscribes++
			return itemHandle(subscribes), nil
		}, time.Millisecond)

		for want := 1; want <= 3; want++ {
			ev, ok := s.Next(t.Context())
			require.True(t, ok)
			require.NoError(t, ev.Err)
			assert.Equal(t, want, ev.Item)
		}

		assert.Equal(t, 3, subscribes, "every delivered item consumes its subscription")
		assert.Equal(t, 3, s.TotalSubscriptions())
	})

	t.Run("unsupported transport is propagated once then terminal", func(t *testing.T) {
		s := New(func(context.Context) (PushHandle[int], error) {
			return nil, ErrNotSupported
		}, time.Millisecond)

		ev, ok := s.Next(t.Context())
		require.True(t, ok)
		assert.ErrorIs(t, ev.Err, ErrNotSupported)

		_, ok = s.Next(t.Context())
		assert.False(t, ok)
		assert.True(t, s.Terminated())
	})

	t.Run("recoverable subscribe failures are retried internally", func(t *testing.T) {
		attempts := 0
		s := New(func(context.Context) (PushHandle[int], error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection refused")
			}
			return itemHandle(7), nil
		}, time.Millisecond)

		ev, ok := s.Next(t.Context())
		require.True(t, ok)
		require.NoError(t, ev.Err)

		assert.Equal(t, 7, ev.Item)
		assert.Equal(t, 3, attempts)
		assert.Zero(t, s.ConsecutiveErrors(), "counter resets on success")
	})

	t.Run("server close resubscribes without surfacing an event", func(t *testing.T) {
		handles := []*scriptedHandle{
			{recvs: []func() (int, error){func() (int, error) { return 0, ErrClosed }}},
			itemHandle(11),
		}
		subscribes := 0
		s := New(func(context.Context) (PushHandle[int], error) {
			h := handles[subscribes]
			subscribes++
			return h, nil
		}, time.Millisecond)

		ev, ok := s.Next(t.Context())
		require.True(t, ok)
		require.NoError(t, ev.Err)

		assert.Equal(t, 11, ev.Item)
		assert.Equal(t, 2, subscribes)
	})

	t.Run("delivery errors are surfaced and trigger a resubscribe", func(t *testing.T) {
		boom := errors.New("decode failed")
		handles := []*scriptedHandle{
			{recvs: []func() (int, error){func() (int, error) { return 0, boom }}},
			itemHandle(5),
		}
		subscribes := 0
		s := New(func(context.Context) (PushHandle[int], error) {
			h := handles[subscribes]
			subscribes++
			return h, nil
		}, time.Millisecond)

		ev, ok := s.Next(t.Context())
		require.True(t, ok)
		assert.ErrorIs(t, ev.Err, boom)

		ev, ok = s.Next(t.Context())
		require.True(t, ok)
		require.NoError(t, ev.Err)
		assert.Equal(t, 5, ev.Item)
	})
}

func TestStream_Unsubscribe(t *testing.T) {
	t.Run("before any subscription no network call happens", func(t *testing.T) {
		subscribes := 0
		s := New(func(context.Context) (PushHandle[int], error) {
			subscribes++
			return itemHandle(1), nil
		}, time.Millisecond)

		s.Unsubscribe()

		_, ok := s.Next(t.Context())
		assert.False(t, ok)
		assert.True(t, s.Terminated())
		assert.Zero(t, subscribes)
	})

	t.Run("after an in-flight subscribe settles the handle is torn down", func(t *testing.T) {
		unsubscribeCalls := 0
		var s *Stream[int]
		s = New(func(context.Context) (PushHandle[int], error) {
			// Flag flips while the subscribe attempt is in flight.
			s.Unsubscribe()
			return &scriptedHandle{unsubscribeCalls: &unsubscribeCalls}, nil
		}, time.Millisecond)

		_, ok := s.Next(t.Context())

		assert.False(t, ok)
		assert.True(t, s.Terminated())
		assert.Equal(t, 1, unsubscribeCalls, "the settled subscription must be unsubscribed")
	})

	t.Run("while retrying failed subscribes the flag stops the loop", func(t *testing.T) {
		subscribes := 0
		var s *Stream[int]
		s = New(func(context.Context) (PushHandle[int], error) {
			subscribes++
			if subscribes == 2 {
				s.Unsubscribe()
			}
			return nil, errors.New("connection refused")
		}, time.Millisecond)

		_, ok := s.Next(t.Context())

		assert.False(t, ok)
		assert.True(t, s.Terminated())
		assert.Equal(t, 2, subscribes, "no retry after the flag flips")
	})
}
