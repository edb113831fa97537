// Package io implements the host side of runtime streams: blocking
// descriptors, buffered asynchronous file input, relayed pipe input and the
// multiplexed poll engine over them.
package io

import (
	"context"
	"time"
)

// FileKind is the coarse classification reported to the runtime.
type FileKind int

const (
	KindError   FileKind = -1
	KindFile    FileKind = 0
	KindDir     FileKind = 1
	KindLink    FileKind = 2
	KindTTY     FileKind = 3
	KindPipe    FileKind = 4
	KindSocket  FileKind = 5
	KindDevice  FileKind = 6
	KindUnknown FileKind = 7
)

func (k FileKind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindLink:
		return "link"
	case KindTTY:
		return "tty"
	case KindPipe:
		return "pipe"
	case KindSocket:
		return "socket"
	case KindDevice:
		return "device"
	default:
		return "unknown"
	}
}

// PollBits is a readiness mask.
type PollBits uint32

const (
	PollIn  PollBits = 1
	PollOut PollBits = 2
	PollPri PollBits = 4
)

// Stream is a live host stream. The set of implementations is closed:
// BlockingStream, AsyncInputStream and PipeCopyStream.
//
// Read returns 0 with a nil error at end of stream. Callers establish
// availability first; Read waits if they did not.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)

	IsAvailable() (bool, error)
	WaitUntilAvailable(ctx context.Context) error
	CanOutput() (bool, error)
	WaitUntilOutputPossible(ctx context.Context) error

	// Poll reports which of the requested bits are ready now.
	Poll(bits PollBits) (PollBits, error)
	PollCapability() PollBits

	Pos() (uint64, error)
	SetPos(ctx context.Context, pos uint64) error
	Size() (uint64, error)

	FileKind() FileKind
	// Event returns the wakeup event used while blocked in Poll, or nil if
	// the stream can only be re-probed periodically.
	Event() *Event

	Close() error

	sealed()
}

// pause waits for ev (if any), ctx, or d, whichever comes first.
func pause(ctx context.Context, ev *Event, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	var wake <-chan struct{}
	if ev != nil {
		wake = ev.Channel()
	}
	select {
	case <-wake:
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// pollFromAvailability is the shared Poll for streams that only know
// IsAvailable and CanOutput.
func pollFromAvailability(s Stream, bits PollBits) (PollBits, error) {
	bits &= s.PollCapability()
	var out PollBits
	if bits&PollIn != 0 {
		ok, err := s.IsAvailable()
		if err != nil {
			return 0, err
		}
		if ok {
			out |= PollIn
		}
	}
	if bits&PollOut != 0 {
		ok, err := s.CanOutput()
		if err != nil {
			return 0, err
		}
		if ok {
			out |= PollOut
		}
	}
	return out, nil
}
