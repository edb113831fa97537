package hostio

import (
	"context"

	"github.com/OpenListTeam/wazero-hostio/common/bytespool"
	"github.com/OpenListTeam/wazero-hostio/manager/handle"
	hio "github.com/OpenListTeam/wazero-hostio/manager/io"
)

// ReadInto waits until hd has input, then reads into buf. It returns 0 at
// end of stream. An empty buf also returns 0, at once, so callers must not
// read end of stream into that case.
func (h *Host) ReadInto(ctx context.Context, hd handle.Handle, buf []byte) (int, error) {
	s, err := h.stream(hd)
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}
	if err := s.WaitUntilAvailable(ctx); err != nil {
		return 0, err
	}
	return s.Read(buf)
}

// ReadBytes reads up to n bytes into a fresh slice.
func (h *Host) ReadBytes(ctx context.Context, hd handle.Handle, n int) ([]byte, error) {
	if n < 0 {
		return nil, hio.InvalidArgument("Negative length")
	}
	if n > h.cfg.maxTransfer {
		return nil, hio.ErrInsufficientMemory
	}
	if n == 0 {
		if _, err := h.stream(hd); err != nil {
			return nil, err
		}
		return []byte{}, nil
	}

	buf := bytespool.Get(n)
	defer bytespool.Put(buf)
	k, err := h.ReadInto(ctx, hd, buf)
	if err != nil {
		return nil, err
	}
	out := make([]byte, k)
	copy(out, buf[:k])
	return out, nil
}

// ReadString is ReadBytes with the request capped at MaxStringRead.
func (h *Host) ReadString(ctx context.Context, hd handle.Handle, n int) (string, error) {
	if n > MaxStringRead {
		n = MaxStringRead
	}
	b, err := h.ReadBytes(ctx, hd, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Write writes p without waiting for output readiness.
func (h *Host) Write(_ context.Context, hd handle.Handle, p []byte) (int, error) {
	s, err := h.stream(hd)
	if err != nil {
		return 0, err
	}
	return s.Write(p)
}

func (h *Host) IsAvailable(hd handle.Handle) (bool, error) {
	s, err := h.stream(hd)
	if err != nil {
		return false, err
	}
	return s.IsAvailable()
}

func (h *Host) WaitUntilAvailable(ctx context.Context, hd handle.Handle) error {
	s, err := h.stream(hd)
	if err != nil {
		return err
	}
	return s.WaitUntilAvailable(ctx)
}

func (h *Host) CanOutput(hd handle.Handle) (bool, error) {
	s, err := h.stream(hd)
	if err != nil {
		return false, err
	}
	return s.CanOutput()
}

func (h *Host) WaitUntilOutputPossible(ctx context.Context, hd handle.Handle) error {
	s, err := h.stream(hd)
	if err != nil {
		return err
	}
	return s.WaitUntilOutputPossible(ctx)
}

// BufferSize is the recommended transfer size.
func (h *Host) BufferSize() int {
	return h.cfg.bufferSize
}

// MaxTransfer is the largest single read ReadBytes accepts.
func (h *Host) MaxTransfer() int {
	return h.cfg.maxTransfer
}

func (h *Host) Pos(hd handle.Handle) (uint64, error) {
	s, err := h.stream(hd)
	if err != nil {
		return 0, err
	}
	return s.Pos()
}

func (h *Host) SetPos(ctx context.Context, hd handle.Handle, pos uint64) error {
	s, err := h.stream(hd)
	if err != nil {
		return err
	}
	return s.SetPos(ctx, pos)
}

// EndPos returns the size of the underlying file.
func (h *Host) EndPos(hd handle.Handle) (uint64, error) {
	s, err := h.stream(hd)
	if err != nil {
		return 0, err
	}
	return s.Size()
}

// SizeRemaining returns the bytes between the current position and the
// end of the file.
func (h *Host) SizeRemaining(hd handle.Handle) (uint64, error) {
	s, err := h.stream(hd)
	if err != nil {
		return 0, err
	}
	size, err := s.Size()
	if err != nil {
		return 0, err
	}
	pos, err := s.Pos()
	if err != nil {
		return 0, err
	}
	if pos > size {
		return 0, nil
	}
	return size - pos, nil
}

// Kind classifies the object behind hd.
func (h *Host) Kind(hd handle.Handle) (hio.FileKind, error) {
	s, err := h.stream(hd)
	if err != nil {
		return hio.KindError, err
	}
	if k, ok := h.kinds.Get(hd); ok {
		return k, nil
	}
	k := s.FileKind()
	h.kinds.Add(hd, k)
	return k, nil
}

func (h *Host) PollCapability(hd handle.Handle) (hio.PollBits, error) {
	s, err := h.stream(hd)
	if err != nil {
		return 0, err
	}
	return s.PollCapability(), nil
}

// DescriptorID is 0, 1 or 2 for the standard streams and 3 for anything
// else.
func (h *Host) DescriptorID(hd handle.Handle) int {
	if h.table.IsReserved(hd) {
		return int(hd - 1)
	}
	return numStdHandles
}

// StreamID returns a stable number for hd, suitable for hashing.
func (h *Host) StreamID(hd handle.Handle) uint32 {
	return uint32(hd)
}

// Poll resolves the handles and evaluates readiness under w.
func (h *Host) Poll(ctx context.Context, hds []handle.Handle, bits []hio.PollBits, w hio.Wait) ([]hio.PollBits, error) {
	if len(hds) != len(bits) {
		return nil, hio.InvalidArgument("Poll: handles and bits differ in length")
	}
	streams := make([]hio.Stream, len(hds))
	for i, hd := range hds {
		s, err := h.stream(hd)
		if err != nil {
			return nil, err
		}
		streams[i] = s
	}
	return h.poller.Poll(ctx, streams, bits, w)
}
