// Package filesystem holds the directory enumeration and path metadata
// calls exposed to the runtime.
package filesystem

import (
	"errors"
	"io"
	"os"
	"sync"

	hio "github.com/OpenListTeam/wazero-hostio/manager/io"
)

// dirEntry is one raw entry as the OS reports it.
type dirEntry struct {
	name  string
	isDir bool
}

// dirReader yields entries one at a time and io.EOF at the end.
type dirReader interface {
	next() (dirEntry, error)
	Close() error
}

type osDirReader struct {
	f *os.File
}

func (r *osDirReader) next() (dirEntry, error) {
	ents, err := r.f.ReadDir(1)
	if len(ents) == 0 {
		if err == nil {
			err = io.EOF
		}
		return dirEntry{}, err
	}
	return dirEntry{name: ents[0].Name(), isDir: ents[0].IsDir()}, nil
}

func (r *osDirReader) Close() error { return r.f.Close() }

// openDirReader is replaced in tests to feed synthetic listings.
var openDirReader = func(path string) (dirReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &osDirReader{f: f}, nil
}

// DirStream enumerates a directory keeping one entry of look-ahead. The
// "." and ".." entries are never returned.
type DirStream struct {
	mu      sync.Mutex
	r       dirReader
	ahead   dirEntry
	hasMore bool
	closed  bool
}

// OpenDir starts enumerating path. An empty directory is a valid stream
// with nothing to return.
func OpenDir(path string) (*DirStream, error) {
	d := &DirStream{}
	if err := d.open(path); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DirStream) open(path string) error {
	r, err := openDirReader(path)
	if err != nil {
		return hio.IOFailure("Cannot open directory", err)
	}
	d.r = r
	return d.fetch()
}

// fetch refills the look-ahead entry.
func (d *DirStream) fetch() error {
	e, err := d.r.next()
	switch {
	case err == nil:
		d.ahead, d.hasMore = e, true
	case errors.Is(err, io.EOF):
		d.ahead, d.hasMore = dirEntry{}, false
	default:
		d.hasMore = false
		return hio.IOFailure("Cannot read directory", err)
	}
	return nil
}

// Next returns the next entry name. ok is false at the end of the
// directory and stays false on further calls.
func (d *DirStream) Next() (name string, ok bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", false, hio.ErrStreamClosed
	}
	for d.hasMore {
		e := d.ahead
		if err := d.fetch(); err != nil {
			return "", false, err
		}
		if e.isDir && (e.name == "." || e.name == "..") {
			continue
		}
		return e.name, true, nil
	}
	return "", false, nil
}

// Rewind closes the enumeration and reopens it at path. It fails if path
// can no longer be opened as a directory. An empty directory is accepted,
// as in OpenDir, because "." and ".." are never listed here and so cannot
// serve as the entry that proves the directory still exists.
func (d *DirStream) Rewind(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return hio.ErrStreamClosed
	}
	if d.r != nil {
		_ = d.r.Close()
		d.r = nil
	}
	d.hasMore = false
	return d.open(path)
}

// Close releases the enumeration. Closing twice is a no-op.
func (d *DirStream) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.r == nil {
		return nil
	}
	err := d.r.Close()
	d.r = nil
	if err != nil {
		return hio.IOFailure("Cannot close directory", err)
	}
	return nil
}
