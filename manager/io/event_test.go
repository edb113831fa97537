package io

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent(t *testing.T) {
	t.Run("initial state", func(t *testing.T) {
		assert.True(t, NewEvent(true).IsSet())
		assert.False(t, NewEvent(false).IsSet())
	})

	t.Run("set and reset are idempotent", func(t *testing.T) {
		ev := NewEvent(false)
		ev.Set()
		ev.Set()
		assert.True(t, ev.IsSet())
		ev.Reset()
		ev.Reset()
		assert.False(t, ev.IsSet())
	})

	t.Run("set wakes all waiters", func(t *testing.T) {
		ev := NewEvent(false)
		errs := make(chan error, 3)
		for i := 0; i < 3; i++ {
			go func() { errs <- ev.Wait(context.Background()) }()
		}
		time.Sleep(10 * time.Millisecond)
		ev.Set()
		for i := 0; i < 3; i++ {
			select {
			case err := <-errs:
				require.NoError(t, err)
			case <-time.After(time.Second):
				t.Fatal("waiter not woken")
			}
		}
	})

	t.Run("old channel stays closed after reset", func(t *testing.T) {
		ev := NewEvent(true)
		ch := ev.Channel()
		ev.Reset()
		select {
		case <-ch:
		default:
			t.Fatal("channel reopened")
		}
		assert.False(t, ev.IsSet())
	})

	t.Run("wait honours context", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := NewEvent(false).Wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
