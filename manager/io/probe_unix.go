//go:build unix

package io

import (
	"os"

	"golang.org/x/sys/unix"
)

const (
	probeRead  = unix.POLLIN | unix.POLLPRI
	probeWrite = unix.POLLOUT
)

// probe asks the OS, without waiting, whether f is ready for events.
// Hang-up and error conditions count as ready since the next call will not
// block.
func probe(f *os.File, events int16) (ready bool, err error) {
	cerr := withFd(f, func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		var n int
		for {
			n, err = unix.Poll(fds, 0)
			if err != unix.EINTR {
				break
			}
		}
		ready = err == nil && n > 0 && fds[0].Revents != 0
	})
	if cerr != nil {
		return false, cerr
	}
	return ready, err
}
