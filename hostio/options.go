package hostio

import (
	stdio "io"
	"os"
	"time"

	hio "github.com/OpenListTeam/wazero-hostio/manager/io"
	"go.uber.org/zap"
)

const (
	// MaxStringRead caps a single read-as-string request.
	MaxStringRead = 100 * 1024

	defaultKindCacheSize = 128
	defaultMaxTransfer   = 1 << 20
)

type config struct {
	logger        *zap.Logger
	stdin         stdio.Reader
	stdout        stdio.Writer
	stderr        stdio.Writer
	bufferSize    int
	pollInterval  time.Duration
	closeTimeout  time.Duration
	kindCacheSize int
	maxTransfer   int
	now           func() time.Time
}

func defaultConfig() config {
	return config{
		logger:        zap.NewNop(),
		stdin:         os.Stdin,
		stdout:        os.Stdout,
		stderr:        os.Stderr,
		bufferSize:    hio.DefaultBufferSize,
		pollInterval:  hio.DefaultPollInterval,
		closeTimeout:  hio.DefaultCloseTimeout,
		kindCacheSize: defaultKindCacheSize,
		maxTransfer:   defaultMaxTransfer,
		now:           time.Now,
	}
}

// Option configures a Host.
type Option func(*config)

func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStdin sets the source relayed into standard input.
func WithStdin(r stdio.Reader) Option {
	return func(c *config) {
		if r != nil {
			c.stdin = r
		}
	}
}

func WithStdout(w stdio.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.stdout = w
		}
	}
}

func WithStderr(w stdio.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.stderr = w
		}
	}
}

// WithBufferSize sets the internal buffer of file input streams and the
// recommended buffer size reported to callers.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithPollInterval sets how often blocked callers re-probe streams that
// have no wakeup event.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithCloseTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.closeTimeout = d
		}
	}
}

func WithKindCacheSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.kindCacheSize = n
		}
	}
}

// WithMaxTransfer bounds the scratch buffer a single read may allocate.
// Larger requests fail with an insufficient-memory error.
func WithMaxTransfer(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxTransfer = n
		}
	}
}

// WithClock replaces the clock poll deadlines are compared against.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

func (c *config) streamOptions(text bool) []hio.Option {
	return []hio.Option{
		hio.WithTextMode(text),
		hio.WithBufferSize(c.bufferSize),
		hio.WithPollInterval(c.pollInterval),
		hio.WithCloseTimeout(c.closeTimeout),
		hio.WithLogger(c.logger),
	}
}
