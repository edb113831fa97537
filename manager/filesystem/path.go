package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	hio "github.com/OpenListTeam/wazero-hostio/manager/io"
)

// Access rights understood by Access.
const (
	AccessRead  = 1
	AccessWrite = 2
	AccessExec  = 4
)

func Getwd() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", hio.IOFailure("GetCurrentDirectory failed", err)
	}
	return wd, nil
}

func Chdir(path string) error {
	if err := os.Chdir(path); err != nil {
		return hio.IOFailure("SetCurrentDirectory failed", err)
	}
	return nil
}

func Mkdir(path string) error {
	if err := os.Mkdir(path, 0o777); err != nil {
		return hio.IOFailure("CreateDirectory failed", err)
	}
	return nil
}

func Rmdir(path string) error {
	if err := syscall.Rmdir(path); err != nil {
		return hio.IOFailure("RemoveDirectory failed", &os.PathError{Op: "rmdir", Path: path, Err: err})
	}
	return nil
}

func IsDir(path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, hio.IOFailure("GetFileAttributes failed", err)
	}
	return fi.IsDir(), nil
}

func IsSymlink(path string) (bool, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return false, hio.IOFailure("GetFileAttributes failed", err)
	}
	return fi.Mode()&os.ModeSymlink != 0, nil
}

// AbsPath resolves path against the working directory. The empty path
// means the working directory itself. The result must exist.
func AbsPath(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", hio.IOFailure("GetFullPathName failed", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", hio.IOFailure("File does not exist", err)
	}
	return abs, nil
}

func hasWildcard(path string) bool {
	return strings.ContainsAny(path, "*?")
}

func ModTime(path string) (time.Time, error) {
	if hasWildcard(path) {
		return time.Time{}, hio.IOFailure("Invalid file name", syscall.EINVAL)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, hio.IOFailure("File does not exist", err)
	}
	return fi.ModTime(), nil
}

func FileSize(path string) (uint64, error) {
	if hasWildcard(path) {
		return 0, hio.IOFailure("Invalid file name", syscall.EINVAL)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return 0, hio.IOFailure("File does not exist", err)
	}
	return uint64(fi.Size()), nil
}

// SetTime sets both the access and modification times.
func SetTime(path string, t time.Time) error {
	if err := os.Chtimes(path, t, t); err != nil {
		return hio.IOFailure("SetFileTime failed", err)
	}
	return nil
}

// Remove deletes a file. Directories are refused; use Rmdir.
func Remove(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return hio.IOFailure("DeleteFile failed", err)
	}
	if fi.IsDir() {
		return hio.IOFailure("DeleteFile failed", &os.PathError{Op: "remove", Path: path, Err: syscall.EISDIR})
	}
	if err := os.Remove(path); err != nil {
		return hio.IOFailure("DeleteFile failed", err)
	}
	return nil
}

// Rename moves oldPath to newPath, replacing an existing file there.
func Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return hio.IOFailure("MoveFileEx failed", err)
	}
	return nil
}

// Access reports whether the process holds every right in mode. A missing
// file yields false, not an error.
func Access(path string, mode int) bool {
	return access(path, mode)
}

// TempFileName creates an empty file readable only by its owner in the
// temporary directory and returns its name.
func TempFileName() (string, error) {
	f, err := os.CreateTemp("", "MLTEMP")
	if err != nil {
		return "", hio.IOFailure("Unable to create temporary file", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", hio.IOFailure("Unable to create temporary file", err)
	}
	return name, nil
}

// ReadLink returns the target of a symbolic link.
func ReadLink(path string) (string, error) {
	return readLink(path)
}

// FileID returns a number identifying the file, or -1 where the platform
// offers none.
func FileID(path string) int64 {
	return fileID(path)
}
