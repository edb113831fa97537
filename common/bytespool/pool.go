// Package bytespool recycles the transfer buffers used by host streams.
package bytespool

import "sync"

// Size classes run from MinSize doubling up to MaxSize, which covers the
// largest single string read the runtime may request.
const (
	MinSize    = 4096
	numClasses = 6
	MaxSize    = MinSize << (numClasses - 1)
)

var classes [numClasses]sync.Pool

func init() {
	for i := range classes {
		size := MinSize << i
		classes[i].New = func() any {
			b := make([]byte, size)
			return &b
		}
	}
}

func classFor(size int) int {
	for i := 0; i < numClasses; i++ {
		if size <= MinSize<<i {
			return i
		}
	}
	return -1
}

// Get returns a slice of length size. Sizes above MaxSize are allocated
// directly and are not recycled by Put.
func Get(size int) []byte {
	if size < 0 {
		size = 0
	}
	c := classFor(size)
	if c < 0 {
		return make([]byte, size)
	}
	b := *classes[c].Get().(*[]byte)
	return b[:size]
}

// Put hands b back for reuse. The caller must not touch b afterwards.
func Put(b []byte) {
	n := cap(b)
	if n < MinSize || n > MaxSize {
		return
	}
	// only exact class capacities came from Get
	c := classFor(n)
	if MinSize<<c != n {
		return
	}
	b = b[:n]
	classes[c].Put(&b)
}
