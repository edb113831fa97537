package io

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

type waitMode int

const (
	waitForever waitMode = iota
	waitUntil
	pollOnce
)

// Wait is the blocking policy of a Poll call.
type Wait struct {
	mode     waitMode
	deadline time.Time
}

// WaitForever blocks until some stream is ready.
func WaitForever() Wait { return Wait{mode: waitForever} }

// WaitUntil blocks until some stream is ready or the deadline passes.
func WaitUntil(deadline time.Time) Wait { return Wait{mode: waitUntil, deadline: deadline} }

// PollOnce never blocks.
func PollOnce() Wait { return Wait{mode: pollOnce} }

func (w Wait) String() string {
	switch w.mode {
	case waitUntil:
		return fmt.Sprintf("until(%s)", w.deadline.Format(time.RFC3339Nano))
	case pollOnce:
		return "once"
	default:
		return "forever"
	}
}

// Poller evaluates readiness over heterogeneous streams. It keeps no state
// between calls and may be shared.
type Poller struct {
	// Interval caps each pause between rounds.
	Interval time.Duration
	// Now is the clock deadlines are compared against.
	Now func() time.Time
}

// NewPoller returns a poller using the default interval and the wall clock.
func NewPoller() *Poller {
	return &Poller{Interval: DefaultPollInterval, Now: time.Now}
}

// Poll evaluates every stream's Poll(bits[i]) once per round. As soon as
// any stream reports a nonzero result the whole vector is returned. When
// nothing is ready, PollOnce and an expired WaitUntil return all zeros;
// otherwise the caller is paused and the round restarts.
func (p *Poller) Poll(ctx context.Context, streams []Stream, bits []PollBits, w Wait) ([]PollBits, error) {
	if len(streams) != len(bits) {
		return nil, InvalidArgument("Poll: streams and bits differ in length")
	}
	out := make([]PollBits, len(streams))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ready := false
		for i, s := range streams {
			if s == nil {
				return nil, ErrStreamClosed
			}
			r, err := s.Poll(bits[i])
			if err != nil {
				return nil, err
			}
			out[i] = r
			ready = ready || r != 0
		}
		if ready {
			return out, nil
		}

		switch w.mode {
		case pollOnce:
			return out, nil
		case waitUntil:
			if !p.now().Before(w.deadline) {
				return out, nil
			}
		}
		if err := p.pause(ctx, streams, w); err != nil {
			return nil, err
		}
	}
}

func (p *Poller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// pause sleeps until a stream's wakeup event fires, the interval or
// deadline elapses, or ctx is done. Events already set carry no news and
// are left out so a stale signal cannot turn the loop into a spin.
func (p *Poller) pause(ctx context.Context, streams []Stream, w Wait) error {
	d := p.Interval
	if d <= 0 {
		d = DefaultPollInterval
	}
	if w.mode == waitUntil {
		if left := w.deadline.Sub(p.now()); left < d {
			d = left
		}
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	cases := make([]reflect.SelectCase, 0, len(streams)+2)
	cases = append(cases,
		reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
		reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(timer.C)},
	)
	for _, s := range streams {
		ev := s.Event()
		if ev == nil || ev.IsSet() {
			continue
		}
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ev.Channel())})
	}

	if chosen, _, _ := reflect.Select(cases); chosen == 0 {
		return ctx.Err()
	}
	return nil
}
