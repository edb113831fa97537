package hostio

import (
	"errors"

	"github.com/OpenListTeam/wazero-hostio/manager/filesystem"
	"github.com/OpenListTeam/wazero-hostio/manager/handle"
	hio "github.com/OpenListTeam/wazero-hostio/manager/io"
	"go.uber.org/zap"
)

// OpenDir starts enumerating path.
func (h *Host) OpenDir(path string) (handle.Handle, error) {
	if h.closed.Load() {
		return handle.Invalid, hio.ErrStreamClosed
	}
	d, err := filesystem.OpenDir(path)
	if err != nil {
		return handle.Invalid, err
	}
	hd := h.table.Insert(entry{dir: d})
	if hd == handle.Invalid {
		_ = d.Close()
		return handle.Invalid, hio.IOFailure("Too many open streams", nil)
	}
	h.log.Debug("directory opened", zap.String("path", path), zap.Uint32("handle", uint32(hd)))
	return hd, nil
}

// ReadDir returns the next entry name, or "" once the directory is
// exhausted.
func (h *Host) ReadDir(hd handle.Handle) (string, error) {
	d, err := h.dir(hd)
	if err != nil {
		return "", err
	}
	name, _, err := d.Next()
	return name, err
}

// CloseDir releases a directory handle. Closing twice is a no-op.
func (h *Host) CloseDir(hd handle.Handle) error {
	if _, err := h.dir(hd); err != nil {
		if errors.Is(err, hio.ErrStreamClosed) {
			return nil
		}
		return err
	}
	return h.Close(hd)
}

// RewindDir restarts the enumeration of hd at path.
func (h *Host) RewindDir(hd handle.Handle, path string) error {
	d, err := h.dir(hd)
	if err != nil {
		return err
	}
	return d.Rewind(path)
}
