package io

import (
	"context"
	"sync"
)

// Event 是手动复位的等待原语。Set 关闭当前 channel 唤醒所有等待者，
// Reset 换上一个新的 channel。两者都是幂等的。
type Event struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewEvent returns an event in the given state.
func NewEvent(signaled bool) *Event {
	ch := make(chan struct{})
	if signaled {
		close(ch)
	}
	return &Event{ch: ch}
}

// IsSet reports the state without blocking.
func (e *Event) IsSet() bool {
	select {
	case <-e.Channel():
		return true
	default:
		return false
	}
}

// Set 触发事件。
func (e *Event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.ch:
	default:
		close(e.ch)
	}
}

// Reset 将事件恢复为未触发状态。
func (e *Event) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.ch:
		e.ch = make(chan struct{})
	default:
	}
}

// Channel 返回当前这一代的 channel。事件触发后它被关闭，之后的 Reset 不会重新打开它。
func (e *Event) Channel() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ch
}

// Wait blocks until the event is set or ctx is done.
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.Channel():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
