// Package hostio is the host side of a managed runtime's basic I/O: it owns
// the handle table of open streams and directories and answers dispatch
// requests against it.
package hostio

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/OpenListTeam/wazero-hostio/manager/filesystem"
	"github.com/OpenListTeam/wazero-hostio/manager/handle"
	hio "github.com/OpenListTeam/wazero-hostio/manager/io"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Fixed handles of the standard streams. They are never stored in the
// table and closing them is a no-op.
const (
	StdinHandle  handle.Handle = 1
	StdoutHandle handle.Handle = 2
	StderrHandle handle.Handle = 3

	numStdHandles = 3
)

// entry is one slot of the handle table: a stream or a directory.
type entry struct {
	stream hio.Stream
	dir    *filesystem.DirStream
}

// Host holds every live stream and directory handed out to the runtime.
type Host struct {
	cfg    config
	log    *zap.Logger
	poller *hio.Poller

	table *handle.Table[entry]
	kinds *lru.Cache[handle.Handle, hio.FileKind]

	stdOnce sync.Once
	std     [numStdHandles]hio.Stream
	stdErr  error

	closed atomic.Bool
}

// NewHost creates a host. Standard streams are set up on first use.
func NewHost(opts ...Option) *Host {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	kinds, err := lru.New[handle.Handle, hio.FileKind](cfg.kindCacheSize)
	if err != nil {
		// only fails for a non-positive size, which the option rejects
		panic(err)
	}

	return &Host{
		cfg:    cfg,
		log:    cfg.logger,
		poller: &hio.Poller{Interval: cfg.pollInterval, Now: cfg.now},
		table:  handle.New[entry](numStdHandles),
		kinds:  kinds,
	}
}

func (h *Host) standard() ([numStdHandles]hio.Stream, error) {
	h.stdOnce.Do(func() {
		in, err := hio.NewPipeCopyStream(h.cfg.stdin, h.cfg.streamOptions(false)...)
		if err != nil {
			h.stdErr = err
			return
		}
		h.std = [numStdHandles]hio.Stream{
			in,
			hio.NewBlockingWriter(h.cfg.stdout, h.cfg.streamOptions(false)...),
			hio.NewBlockingWriter(h.cfg.stderr, h.cfg.streamOptions(false)...),
		}
		h.log.Debug("standard streams ready")
	})
	return h.std, h.stdErr
}

// Stdin, Stdout and Stderr return the fixed handles, creating the streams
// on first call.
func (h *Host) Stdin() (handle.Handle, error)  { return h.stdHandle(StdinHandle) }
func (h *Host) Stdout() (handle.Handle, error) { return h.stdHandle(StdoutHandle) }
func (h *Host) Stderr() (handle.Handle, error) { return h.stdHandle(StderrHandle) }

func (h *Host) stdHandle(hd handle.Handle) (handle.Handle, error) {
	if h.closed.Load() {
		return handle.Invalid, hio.ErrStreamClosed
	}
	if _, err := h.standard(); err != nil {
		return handle.Invalid, err
	}
	return hd, nil
}

// stream resolves hd to a live stream.
func (h *Host) stream(hd handle.Handle) (hio.Stream, error) {
	if h.closed.Load() {
		return nil, hio.ErrStreamClosed
	}
	if h.table.IsReserved(hd) {
		std, err := h.standard()
		if err != nil {
			return nil, err
		}
		return std[hd-1], nil
	}
	e, ok := h.table.Get(hd)
	if !ok {
		return nil, hio.ErrStreamClosed
	}
	if e.stream == nil {
		return nil, hio.InvalidArgument("Handle is not a stream")
	}
	return e.stream, nil
}

func (h *Host) dir(hd handle.Handle) (*filesystem.DirStream, error) {
	if h.closed.Load() {
		return nil, hio.ErrStreamClosed
	}
	e, ok := h.table.Get(hd)
	if !ok {
		return nil, hio.ErrStreamClosed
	}
	if e.dir == nil {
		return nil, hio.InvalidArgument("Handle is not a directory")
	}
	return e.dir, nil
}

// OpenMode selects how Open treats the file.
type OpenMode int

const (
	OpenRead OpenMode = iota
	OpenWrite
	OpenAppend
)

func (m OpenMode) String() string {
	switch m {
	case OpenWrite:
		return "write"
	case OpenAppend:
		return "append"
	default:
		return "read"
	}
}

// Open opens path and returns its handle. Regular files opened for reading
// get a background-buffered stream; anything else is read or written with
// blocking calls.
func (h *Host) Open(path string, mode OpenMode, text bool) (handle.Handle, error) {
	if h.closed.Load() {
		return handle.Invalid, hio.ErrStreamClosed
	}

	var (
		f   *os.File
		err error
	)
	switch mode {
	case OpenRead:
		f, err = os.Open(path)
	case OpenWrite:
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	case OpenAppend:
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o666)
	default:
		return handle.Invalid, hio.InvalidArgument("Unknown open mode")
	}
	if err != nil {
		return handle.Invalid, hio.IOFailure("Cannot open", err)
	}

	opts := h.cfg.streamOptions(text)
	var s hio.Stream
	kind := hio.Classify(f)
	switch {
	case mode == OpenRead && kind == hio.KindFile:
		s = hio.NewAsyncInputStream(f, opts...)
	case mode == OpenRead:
		s = hio.NewBlockingStream(f, true, false, opts...)
	default:
		s = hio.NewBlockingStream(f, false, true, opts...)
	}

	hd := h.table.Insert(entry{stream: s})
	if hd == handle.Invalid {
		_ = s.Close()
		return handle.Invalid, hio.IOFailure("Too many open streams", nil)
	}
	h.kinds.Add(hd, kind)
	h.log.Debug("stream opened",
		zap.String("path", path),
		zap.Stringer("mode", mode),
		zap.Bool("text", text),
		zap.Stringer("kind", kind),
		zap.Uint32("handle", uint32(hd)))
	return hd, nil
}

// Close releases hd. The standard streams and handles that are already
// closed are ignored.
func (h *Host) Close(hd handle.Handle) error {
	if h.table.IsReserved(hd) {
		return nil
	}
	e, ok := h.table.Remove(hd)
	if !ok {
		return nil
	}
	h.kinds.Remove(hd)
	h.log.Debug("handle closed", zap.Uint32("handle", uint32(hd)))
	return closeEntry(e)
}

func closeEntry(e entry) error {
	if e.stream != nil {
		return e.stream.Close()
	}
	if e.dir != nil {
		return e.dir.Close()
	}
	return nil
}

// Shutdown closes every open handle and the relayed standard input. The
// host rejects all further requests. Standard output and error are left
// open since they belong to the embedder.
func (h *Host) Shutdown() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	entries := h.table.Drain()
	for _, e := range entries {
		err = multierr.Append(err, closeEntry(e))
	}
	h.kinds.Purge()

	// stop the lazy setup from running after shutdown
	h.stdOnce.Do(func() { h.stdErr = hio.ErrStreamClosed })
	if in := h.std[0]; in != nil {
		err = multierr.Append(err, in.Close())
	}
	h.log.Debug("host shut down", zap.Int("closed", len(entries)))
	return err
}

// OpenHandles reports how many streams and directories are open, not
// counting the standard streams.
func (h *Host) OpenHandles() int {
	return h.table.Len()
}
