//go:build unix

package filesystem

import (
	"os"
	"syscall"

	hio "github.com/OpenListTeam/wazero-hostio/manager/io"
	"golang.org/x/sys/unix"
)

func access(path string, mode int) bool {
	var m uint32
	if mode&AccessRead != 0 {
		m |= unix.R_OK
	}
	if mode&AccessWrite != 0 {
		m |= unix.W_OK
	}
	if mode&AccessExec != 0 {
		m |= unix.X_OK
	}
	if m == 0 {
		m = unix.F_OK
	}
	return unix.Access(path, m) == nil
}

func readLink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", hio.IOFailure("readlink failed", err)
	}
	return target, nil
}

func fileID(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return -1
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return -1
	}
	return int64(st.Ino)
}
