package chflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReceive(t *testing.T) {
	t.Run("successful receive", func(t *testing.T) {
		ch := make(chan int, 1)
		ch <- 42

		value, ok := Receive(t.Context(), ch)

		assert.True(t, ok)
		assert.Equal(t, 42, value)
	})

	t.Run("context canceled before receive", func(t *testing.T) {
		ch := make(chan int)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		value, ok := Receive(ctx, ch)

		assert.False(t, ok)
		assert.Equal(t, 0, value)
	})

	t.Run("channel closed", func(t *testing.T) {
		ch := make(chan string)
		close(ch)

		value, ok := Receive(t.Context(), ch)

		assert.False(t, ok)
		assert.Equal(t, "", value)
	})
}

func TestSleep(t *testing.T) {
	t.Run("full duration elapses", func(t *testing.T) {
		start := time.Now()

		ok := Sleep(t.Context(), 10*time.Millisecond)

		assert.True(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("context canceled before the duration elapses", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		ok := Sleep(ctx, time.Minute)

		assert.False(t, ok)
	})

	t.Run("non-positive duration returns immediately", func(t *testing.T) {
		assert.True(t, Sleep(t.Context(), 0))
		assert.True(t, Sleep(t.Context(), -time.Second))
	})

	t.Run("non-positive duration still honors cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		assert.False(t, Sleep(ctx, 0))
	})
}
