package io

import (
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBufferSize is the internal buffer size of async input streams
	// and the size reported to the runtime as the preferred transfer unit.
	DefaultBufferSize = 4096
	// DefaultPollInterval bounds how long a waiter sleeps between readiness
	// probes when a stream offers no wakeup event.
	DefaultPollInterval = 20 * time.Millisecond
	// DefaultCloseTimeout bounds how long Close waits for an in-flight read.
	DefaultCloseTimeout = time.Second
)

type options struct {
	text         bool
	bufferSize   int
	pollInterval time.Duration
	closeTimeout time.Duration
	logger       *zap.Logger
}

// Option configures a stream.
type Option func(*options)

// WithTextMode enables carriage-return filtering on input.
func WithTextMode(text bool) Option {
	return func(o *options) {
		o.text = text
	}
}

func WithBufferSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.bufferSize = size
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

func WithCloseTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.closeTimeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		bufferSize:   DefaultBufferSize,
		pollInterval: DefaultPollInterval,
		closeTimeout: DefaultCloseTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	return o
}
