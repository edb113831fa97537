package io

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/OpenListTeam/wazero-hostio/common/bytespool"
	"go.uber.org/zap"
)

type readResult struct {
	n   int
	err error
}

// AsyncInputStream reads a regular file through one outstanding background
// read at a time. The read fills an internal buffer at an explicit offset;
// idle is signaled whenever no read is in flight.
type AsyncInputStream struct {
	mu     sync.Mutex
	file   *os.File
	closed bool

	buf    []byte
	cursor int
	filled int
	// offset of the next background read; the logical position is
	// offset - filled + cursor.
	offset  int64
	eof     bool
	pending bool

	idle *Event
	// written by the reader goroutine before idle is set
	result readResult

	opts options
}

// NewAsyncInputStream takes ownership of f and starts the first read.
func NewAsyncInputStream(f *os.File, opts ...Option) *AsyncInputStream {
	s := &AsyncInputStream{
		file: f,
		idle: NewEvent(true),
		opts: newOptions(opts),
	}
	s.buf = bytespool.Get(s.opts.bufferSize)

	s.mu.Lock()
	s.beginRead()
	s.mu.Unlock()
	return s
}

func (s *AsyncInputStream) sealed() {}

// beginRead issues the next background read. Callers hold mu.
func (s *AsyncInputStream) beginRead() {
	s.cursor, s.filled = 0, 0
	s.pending = true
	s.idle.Reset()

	buf, off, f := s.buf, s.offset, s.file
	go func() {
		n, err := f.ReadAt(buf, off)
		if n > 0 && errors.Is(err, io.EOF) {
			err = nil
		}
		s.result = readResult{n: n, err: err}
		s.idle.Set()
	}()
}

// skipCR drops carriage returns at the cursor in text mode.
func (s *AsyncInputStream) skipCR() {
	if !s.opts.text {
		return
	}
	for s.cursor < s.filled && s.buf[s.cursor] == '\r' {
		s.cursor++
	}
}

func (s *AsyncInputStream) IsAvailable() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available()
}

func (s *AsyncInputStream) available() (bool, error) {
	if s.closed {
		return false, ErrStreamClosed
	}
	for {
		if s.cursor < s.filled || s.eof {
			return true, nil
		}
		if !s.pending {
			s.beginRead()
		}
		if !s.idle.IsSet() {
			return false, nil
		}

		s.pending = false
		res := s.result
		if res.n == 0 {
			if res.err == nil || errors.Is(res.err, io.EOF) {
				s.eof = true
				return true, nil
			}
			return false, IOFailure("ReadFile failed", res.err)
		}

		s.offset += int64(res.n)
		s.cursor, s.filled = 0, res.n
		s.skipCR()
		if s.cursor < s.filled {
			return true, nil
		}
		// a buffer of nothing but carriage returns; read on
		s.beginRead()
	}
}

func (s *AsyncInputStream) WaitUntilAvailable(ctx context.Context) error {
	for {
		ok, err := s.IsAvailable()
		if err != nil || ok {
			return err
		}
		if err := s.idle.Wait(ctx); err != nil {
			return err
		}
	}
}

// Read copies buffered bytes into p, filtering carriage returns in text
// mode. It returns 0 at end of file. Once the buffer is drained the next
// background read is issued. An empty p returns 0 without waiting.
func (s *AsyncInputStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		if s.isClosed() {
			return 0, ErrStreamClosed
		}
		return 0, nil
	}
	if err := s.WaitUntilAvailable(context.Background()); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStreamClosed
	}
	if s.cursor >= s.filled {
		// end of file, or another reader drained the buffer first
		return 0, nil
	}

	n := 0
	for s.cursor < s.filled && n < len(p) {
		b := s.buf[s.cursor]
		s.cursor++
		if s.opts.text && b == '\r' {
			continue
		}
		p[n] = b
		n++
	}
	s.skipCR()
	if s.cursor >= s.filled {
		s.beginRead()
	}
	return n, nil
}

func (s *AsyncInputStream) Write([]byte) (int, error) {
	if s.isClosed() {
		return 0, ErrStreamClosed
	}
	return 0, NotSupported("Stream is not open for writing")
}

func (s *AsyncInputStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *AsyncInputStream) CanOutput() (bool, error) {
	if s.isClosed() {
		return false, ErrStreamClosed
	}
	return false, nil
}

func (s *AsyncInputStream) WaitUntilOutputPossible(context.Context) error {
	if s.isClosed() {
		return ErrStreamClosed
	}
	return NotSupported("Stream is not open for writing")
}

func (s *AsyncInputStream) Poll(bits PollBits) (PollBits, error) {
	return pollFromAvailability(s, bits)
}

func (s *AsyncInputStream) PollCapability() PollBits { return PollIn }

func (s *AsyncInputStream) Pos() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStreamClosed
	}
	return uint64(s.offset - int64(s.filled) + int64(s.cursor)), nil
}

// SetPos waits for any in-flight read, discards the buffer and restarts
// reading at pos.
func (s *AsyncInputStream) SetPos(ctx context.Context, pos uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if err := s.idle.Wait(ctx); err != nil {
		return err
	}
	s.pending = false
	s.offset = int64(pos)
	s.eof = false
	s.beginRead()
	return nil
}

func (s *AsyncInputStream) Size() (uint64, error) {
	if s.isClosed() {
		return 0, ErrStreamClosed
	}
	fi, err := s.file.Stat()
	if err != nil {
		return 0, IOFailure("Stream is not a file", err)
	}
	return uint64(fi.Size()), nil
}

func (s *AsyncInputStream) FileKind() FileKind { return KindFile }

func (s *AsyncInputStream) Event() *Event { return s.idle }

// Close waits up to the close timeout for an in-flight read before closing
// the file. If the read does not finish in time its buffer is abandoned to
// the reader goroutine instead of being recycled.
func (s *AsyncInputStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	buf := s.buf
	s.buf = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.closeTimeout)
	defer cancel()
	if err := s.idle.Wait(ctx); err != nil {
		s.opts.logger.Warn("abandoning in-flight read on close",
			zap.String("name", s.file.Name()),
			zap.Duration("timeout", s.opts.closeTimeout))
	} else {
		bytespool.Put(buf)
	}

	if err := s.file.Close(); err != nil {
		return IOFailure("Close failed", err)
	}
	return nil
}
