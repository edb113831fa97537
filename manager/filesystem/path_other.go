//go:build !unix

package filesystem

import (
	"os"

	hio "github.com/OpenListTeam/wazero-hostio/manager/io"
)

func access(path string, mode int) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	if mode&AccessWrite != 0 && fi.Mode().Perm()&0o200 == 0 {
		return false
	}
	return true
}

func readLink(string) (string, error) {
	return "", hio.NotImplemented("Not implemented")
}

func fileID(string) int64 {
	return -1
}
