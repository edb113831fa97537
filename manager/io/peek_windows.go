//go:build windows

package io

import (
	"os"

	"golang.org/x/sys/windows"
)

func peekPipe(f *os.File) (n int, err error) {
	cerr := withFd(f, func(fd uintptr) {
		var avail uint32
		err = windows.PeekNamedPipe(windows.Handle(fd), nil, 0, nil, &avail, nil)
		n = int(avail)
	})
	if cerr != nil {
		return 0, cerr
	}
	return n, err
}
