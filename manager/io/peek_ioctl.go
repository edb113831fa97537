//go:build linux || darwin

package io

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// peekPipe returns the number of bytes waiting in the pipe. A drained pipe
// whose writer has gone away reports EPIPE.
func peekPipe(f *os.File) (n int, err error) {
	cerr := withFd(f, func(fd uintptr) {
		n, err = unix.IoctlGetInt(int(fd), inqRequest)
		if err != nil || n > 0 {
			return
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		k, perr := unix.Poll(fds, 0)
		// readable with nothing buffered means the writer has gone away
		if perr == nil && k > 0 && fds[0].Revents != 0 {
			err = syscall.EPIPE
		}
	})
	if cerr != nil {
		return 0, cerr
	}
	return n, err
}
