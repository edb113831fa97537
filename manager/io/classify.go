package io

import (
	"io/fs"
	"os"

	"golang.org/x/term"
)

// Classify reports the kind of the object behind f.
func Classify(f *os.File) FileKind {
	fi, err := f.Stat()
	if err != nil {
		return KindError
	}
	return classifyMode(fi.Mode(), func() bool {
		tty := false
		_ = withFd(f, func(fd uintptr) {
			tty = term.IsTerminal(int(fd))
		})
		return tty
	})
}

func classifyMode(m fs.FileMode, isTerminal func() bool) FileKind {
	switch {
	case m.IsRegular():
		return KindFile
	case m.IsDir():
		return KindDir
	case m&fs.ModeSymlink != 0:
		return KindLink
	case m&fs.ModeNamedPipe != 0:
		return KindPipe
	case m&fs.ModeSocket != 0:
		return KindSocket
	case m&fs.ModeCharDevice != 0:
		if isTerminal() {
			return KindTTY
		}
		return KindDevice
	case m&fs.ModeDevice != 0:
		return KindDevice
	}
	return KindUnknown
}

// withFd runs fn with the raw descriptor of f without switching it to
// blocking mode the way File.Fd does.
func withFd(f *os.File, fn func(fd uintptr)) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	return rc.Control(fn)
}
