package hostio

import (
	"math/big"

	"github.com/OpenListTeam/wazero-hostio/manager/filesystem"
)

func (h *Host) Getwd() (string, error)  { return filesystem.Getwd() }
func (h *Host) ChDir(path string) error { return filesystem.Chdir(path) }
func (h *Host) Mkdir(path string) error { return filesystem.Mkdir(path) }
func (h *Host) Rmdir(path string) error { return filesystem.Rmdir(path) }

func (h *Host) IsDir(path string) (bool, error)      { return filesystem.IsDir(path) }
func (h *Host) IsSymlink(path string) (bool, error)  { return filesystem.IsSymlink(path) }
func (h *Host) ReadLink(path string) (string, error) { return filesystem.ReadLink(path) }
func (h *Host) FullPath(path string) (string, error) { return filesystem.AbsPath(path) }
func (h *Host) FileSize(path string) (uint64, error) { return filesystem.FileSize(path) }
func (h *Host) Remove(path string) error             { return filesystem.Remove(path) }
func (h *Host) Rename(oldPath, newPath string) error { return filesystem.Rename(oldPath, newPath) }
func (h *Host) Access(path string, rights int) bool  { return filesystem.Access(path, rights) }
func (h *Host) TempFileName() (string, error)        { return filesystem.TempFileName() }
func (h *Host) FileID(path string) int64             { return filesystem.FileID(path) }

// ModTime returns the modification time in microseconds since the epoch.
func (h *Host) ModTime(path string) (*big.Int, error) {
	t, err := filesystem.ModTime(path)
	if err != nil {
		return nil, err
	}
	return TimeToMicros(t), nil
}

// SetTime sets the access and modification times of path.
func (h *Host) SetTime(path string, us *big.Int) error {
	return filesystem.SetTime(path, MicrosToTime(us))
}
