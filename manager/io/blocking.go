package io

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// BlockingStream is a plain descriptor read and written with ordinary blocking
// calls. Readiness is probed with a zero-timeout OS query; waiters re-probe
// on the poll interval.
type BlockingStream struct {
	mu     sync.Mutex
	closed bool

	reader io.Reader
	writer io.Writer
	closer io.Closer
	seeker io.Seeker
	// file is set when the stream sits on an OS descriptor.
	file *os.File
	kind FileKind

	opts options
}

// NewBlockingStream wraps f for reading, writing or both.
func NewBlockingStream(f *os.File, read, write bool, opts ...Option) *BlockingStream {
	s := &BlockingStream{
		closer: f,
		seeker: f,
		file:   f,
		kind:   Classify(f),
		opts:   newOptions(opts),
	}
	if read {
		s.reader = f
	}
	if write {
		s.writer = f
	}
	return s
}

// NewBlockingReader wraps a reader that has no descriptor. It is always
// reported as available.
func NewBlockingReader(r io.Reader, opts ...Option) *BlockingStream {
	s := &BlockingStream{reader: r, kind: KindUnknown, opts: newOptions(opts)}
	if f, ok := r.(*os.File); ok {
		return NewBlockingStream(f, true, false, opts...)
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NewBlockingWriter wraps a writer that has no descriptor.
func NewBlockingWriter(w io.Writer, opts ...Option) *BlockingStream {
	s := &BlockingStream{writer: w, kind: KindUnknown, opts: newOptions(opts)}
	if f, ok := w.(*os.File); ok {
		return NewBlockingStream(f, false, true, opts...)
	}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *BlockingStream) sealed() {}

func (s *BlockingStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *BlockingStream) Read(p []byte) (int, error) {
	if s.isClosed() {
		return 0, ErrStreamClosed
	}
	if s.reader == nil {
		return 0, NotSupported("Stream is not open for reading")
	}
	n, err := s.reader.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, os.ErrClosed) {
			return n, ErrStreamClosed
		}
		return n, IOFailure("Error while reading", err)
	}
	return n, nil
}

func (s *BlockingStream) Write(p []byte) (int, error) {
	if s.isClosed() {
		return 0, ErrStreamClosed
	}
	if s.writer == nil {
		return 0, NotSupported("Stream is not open for writing")
	}
	n, err := s.writer.Write(p)
	if err != nil {
		if errors.Is(err, os.ErrClosed) {
			return n, ErrStreamClosed
		}
		return n, IOFailure("Error while writing", err)
	}
	return n, nil
}

func (s *BlockingStream) IsAvailable() (bool, error) {
	if s.isClosed() {
		return false, ErrStreamClosed
	}
	if s.reader == nil {
		return false, nil
	}
	if s.file == nil || s.kind == KindFile {
		return true, nil
	}
	ok, err := probe(s.file, probeRead)
	if err != nil {
		return false, IOFailure("Poll failed", err)
	}
	return ok, nil
}

// WaitUntilAvailable fails at once on a stream that cannot be read.
func (s *BlockingStream) WaitUntilAvailable(ctx context.Context) error {
	if s.isClosed() {
		return ErrStreamClosed
	}
	if s.reader == nil {
		return NotSupported("Stream is not open for reading")
	}
	return s.waitFor(ctx, s.IsAvailable)
}

func (s *BlockingStream) CanOutput() (bool, error) {
	if s.isClosed() {
		return false, ErrStreamClosed
	}
	if s.writer == nil {
		return false, nil
	}
	if s.file == nil || s.kind == KindFile {
		return true, nil
	}
	ok, err := probe(s.file, probeWrite)
	if err != nil {
		return false, IOFailure("Poll failed", err)
	}
	return ok, nil
}

func (s *BlockingStream) WaitUntilOutputPossible(ctx context.Context) error {
	if s.isClosed() {
		return ErrStreamClosed
	}
	if s.writer == nil {
		return NotSupported("Stream is not open for writing")
	}
	return s.waitFor(ctx, s.CanOutput)
}

func (s *BlockingStream) waitFor(ctx context.Context, ready func() (bool, error)) error {
	for {
		ok, err := ready()
		if err != nil || ok {
			return err
		}
		if err := pause(ctx, nil, s.opts.pollInterval); err != nil {
			return err
		}
	}
}

func (s *BlockingStream) Poll(bits PollBits) (PollBits, error) {
	return pollFromAvailability(s, bits)
}

func (s *BlockingStream) PollCapability() PollBits {
	var bits PollBits
	if s.reader != nil {
		bits |= PollIn
	}
	if s.writer != nil {
		bits |= PollOut
	}
	return bits
}

func (s *BlockingStream) seekable() bool {
	return s.seeker != nil && s.kind == KindFile
}

func (s *BlockingStream) Pos() (uint64, error) {
	if s.isClosed() {
		return 0, ErrStreamClosed
	}
	if !s.seekable() {
		return 0, NotSupported("Stream is not a file")
	}
	off, err := s.seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, IOFailure("Position error", err)
	}
	return uint64(off), nil
}

func (s *BlockingStream) SetPos(_ context.Context, pos uint64) error {
	if s.isClosed() {
		return ErrStreamClosed
	}
	if !s.seekable() {
		return NotSupported("Stream is not a file")
	}
	if _, err := s.seeker.Seek(int64(pos), io.SeekStart); err != nil {
		return IOFailure("Position error", err)
	}
	return nil
}

func (s *BlockingStream) Size() (uint64, error) {
	if s.isClosed() {
		return 0, ErrStreamClosed
	}
	if !s.seekable() || s.file == nil {
		return 0, NotSupported("Stream is not a file")
	}
	fi, err := s.file.Stat()
	if err != nil {
		return 0, IOFailure("Stream is not a file", err)
	}
	return uint64(fi.Size()), nil
}

func (s *BlockingStream) FileKind() FileKind { return s.kind }

func (s *BlockingStream) Event() *Event { return nil }

func (s *BlockingStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.closer == nil {
		return nil
	}
	if err := s.closer.Close(); err != nil {
		s.opts.logger.Debug("close failed", zap.Stringer("kind", s.kind), zap.Error(err))
		return IOFailure("Close failed", err)
	}
	return nil
}
