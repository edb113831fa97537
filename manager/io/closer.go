package io

import (
	"io"

	"go.uber.org/multierr"
)

// MultiCloser closes several resources in order and combines their errors.
type MultiCloser struct {
	closers []io.Closer
}

// NewMultiCloser skips nil closers.
func NewMultiCloser(closers ...io.Closer) *MultiCloser {
	mc := &MultiCloser{closers: make([]io.Closer, 0, len(closers))}
	for _, c := range closers {
		if c != nil {
			mc.closers = append(mc.closers, c)
		}
	}
	return mc
}

func (m *MultiCloser) Close() error {
	var err error
	for _, c := range m.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
