package io

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
)

// PipeCopyStream reads the read end of an OS pipe that a Relay fills from
// some other source. Availability is a non-destructive peek at the pipe.
type PipeCopyStream struct {
	mu     sync.Mutex
	closed bool

	pipe   *os.File
	avail  *Event
	relay  *Relay
	closer io.Closer

	opts options
}

// NewPipeCopyStream creates a pipe, starts relaying src into it and
// returns the stream over its read end. src is not closed with the stream.
func NewPipeCopyStream(src io.Reader, opts ...Option) (*PipeCopyStream, error) {
	o := newOptions(opts)
	r, w, err := os.Pipe()
	if err != nil {
		return nil, IOFailure("CreatePipe failed", err)
	}
	avail := NewEvent(false)
	relay := StartRelay(src, w, avail, o.logger)
	return &PipeCopyStream{
		pipe:   r,
		avail:  avail,
		relay:  relay,
		closer: NewMultiCloser(relay, r),
		opts:   o,
	}, nil
}

func (s *PipeCopyStream) sealed() {}

func (s *PipeCopyStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// IsAvailable 先复位事件再 peek。管道为空时返回 false；
// 管道有数据或 peek 失败（写端已关闭）时重新触发事件并返回 true，随后的读取会立即返回。
func (s *PipeCopyStream) IsAvailable() (bool, error) {
	if s.isClosed() {
		return false, ErrStreamClosed
	}
	s.avail.Reset()
	n, err := peekPipe(s.pipe)
	if err == nil && n == 0 {
		return false, nil
	}
	s.avail.Set()
	return true, nil
}

func (s *PipeCopyStream) WaitUntilAvailable(ctx context.Context) error {
	for {
		ok, err := s.IsAvailable()
		if err != nil || ok {
			return err
		}
		if err := pause(ctx, s.avail, s.opts.pollInterval); err != nil {
			return err
		}
	}
}

func (s *PipeCopyStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		if s.isClosed() {
			return 0, ErrStreamClosed
		}
		return 0, nil
	}
	if err := s.WaitUntilAvailable(context.Background()); err != nil {
		return 0, err
	}
	n, err := s.pipe.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, os.ErrClosed) {
			return n, ErrStreamClosed
		}
		return n, IOFailure("Error while reading", err)
	}
	return n, nil
}

func (s *PipeCopyStream) Write([]byte) (int, error) {
	if s.isClosed() {
		return 0, ErrStreamClosed
	}
	return 0, NotSupported("Stream is not open for writing")
}

func (s *PipeCopyStream) CanOutput() (bool, error) {
	if s.isClosed() {
		return false, ErrStreamClosed
	}
	return false, nil
}

func (s *PipeCopyStream) WaitUntilOutputPossible(context.Context) error {
	if s.isClosed() {
		return ErrStreamClosed
	}
	return NotSupported("Stream is not open for writing")
}

func (s *PipeCopyStream) Poll(bits PollBits) (PollBits, error) {
	return pollFromAvailability(s, bits)
}

func (s *PipeCopyStream) PollCapability() PollBits { return PollIn }

func (s *PipeCopyStream) Pos() (uint64, error) {
	if s.isClosed() {
		return 0, ErrStreamClosed
	}
	return 0, NotSupported("Stream is not a file")
}

func (s *PipeCopyStream) SetPos(context.Context, uint64) error {
	if s.isClosed() {
		return ErrStreamClosed
	}
	return NotSupported("Stream is not a file")
}

func (s *PipeCopyStream) Size() (uint64, error) {
	if s.isClosed() {
		return 0, ErrStreamClosed
	}
	return 0, NotSupported("Stream is not a file")
}

func (s *PipeCopyStream) FileKind() FileKind { return KindPipe }

func (s *PipeCopyStream) Event() *Event { return s.avail }

func (s *PipeCopyStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.closer.Close(); err != nil {
		return IOFailure("Close failed", err)
	}
	return nil
}
