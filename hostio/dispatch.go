package hostio

import (
	"context"
	"fmt"
	"math/big"

	"github.com/OpenListTeam/wazero-hostio/manager/handle"
	hio "github.com/OpenListTeam/wazero-hostio/manager/io"
	"go.uber.org/zap"
)

// PollArgs is the argument of the poll operations. Deadline is only read by
// OpPollUntil and is in microseconds since the epoch.
type PollArgs struct {
	Handles  []handle.Handle
	Bits     []hio.PollBits
	Deadline *big.Int
}

type SetTimeArgs struct {
	Path string
	Time *big.Int
}

type RenameArgs struct {
	From string
	To   string
}

type AccessArgs struct {
	Path   string
	Rights int
}

// Dispatch runs one operation against hd. The argument and result types
// depend on op; a mismatched argument fails with an invalid-argument error.
// Panics raised underneath are reported as I/O failures.
func (h *Host) Dispatch(ctx context.Context, op Op, hd handle.Handle, arg any) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("dispatch panic", zap.Stringer("op", op), zap.Any("panic", r))
			res, err = nil, hio.IOFailure(op.String()+" failed", fmt.Errorf("panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch op {
	case OpStdin:
		return h.Stdin()
	case OpStdout:
		return h.Stdout()
	case OpStderr:
		return h.Stderr()

	case OpOpenTextIn, OpOpenBinaryIn, OpOpenTextOut, OpOpenBinaryOut, OpOpenTextAppend, OpOpenBinaryAppend:
		path, err := argAs[string](op, arg)
		if err != nil {
			return nil, err
		}
		mode, text := openModeOf(op)
		return h.Open(path, mode, text)

	case OpClose:
		return nil, h.Close(hd)

	case OpReadText, OpReadBinary:
		buf, err := argAs[[]byte](op, arg)
		if err != nil {
			return nil, err
		}
		return h.ReadInto(ctx, hd, buf)

	case OpReadTextString:
		n, err := argInt(op, arg)
		if err != nil {
			return nil, err
		}
		return h.ReadString(ctx, hd, n)

	case OpReadBinaryVector:
		n, err := argInt(op, arg)
		if err != nil {
			return nil, err
		}
		if n > MaxStringRead {
			n = MaxStringRead
		}
		return h.ReadBytes(ctx, hd, n)

	case OpWriteText, OpWriteBinary:
		buf, err := argAs[[]byte](op, arg)
		if err != nil {
			return nil, err
		}
		return h.Write(ctx, hd, buf)

	case OpBufferSize:
		return h.BufferSize(), nil
	case OpIsAvailable:
		return h.IsAvailable(hd)
	case OpSizeRemaining:
		return h.SizeRemaining(hd)
	case OpGetPos:
		return h.Pos(hd)
	case OpSetPos:
		pos, err := argInt(op, arg)
		if err != nil {
			return nil, err
		}
		if pos < 0 {
			return nil, hio.InvalidArgument("Negative position")
		}
		return nil, h.SetPos(ctx, hd, uint64(pos))
	case OpEndPos:
		return h.EndPos(hd)
	case OpKind:
		return h.Kind(hd)
	case OpPollCapability:
		return h.PollCapability(hd)

	case OpPollForever, OpPollUntil, OpPollOnce:
		pa, err := argAs[PollArgs](op, arg)
		if err != nil {
			return nil, err
		}
		var w hio.Wait
		switch op {
		case OpPollForever:
			w = hio.WaitForever()
		case OpPollOnce:
			w = hio.PollOnce()
		default:
			if pa.Deadline == nil {
				return nil, hio.InvalidArgument("Poll deadline missing")
			}
			w = hio.WaitUntil(MicrosToTime(pa.Deadline))
		}
		return h.Poll(ctx, pa.Handles, pa.Bits, w)

	case OpWaitAvailable:
		return nil, h.WaitUntilAvailable(ctx, hd)
	case OpCanOutput:
		return h.CanOutput(hd)
	case OpWaitOutput:
		return nil, h.WaitUntilOutputPossible(ctx, hd)
	case OpDescriptorID:
		return h.DescriptorID(hd), nil

	case OpOpenDir:
		path, err := argAs[string](op, arg)
		if err != nil {
			return nil, err
		}
		return h.OpenDir(path)
	case OpReadDir:
		return h.ReadDir(hd)
	case OpCloseDir:
		return nil, h.CloseDir(hd)
	case OpRewindDir:
		path, err := argAs[string](op, arg)
		if err != nil {
			return nil, err
		}
		return nil, h.RewindDir(hd, path)

	case OpGetwd:
		return h.Getwd()
	case OpStreamID:
		return h.StreamID(hd), nil
	case OpTempName:
		return h.TempFileName()
	}

	return h.dispatchPath(op, arg)
}

// dispatchPath handles the operations that take a path and no handle.
func (h *Host) dispatchPath(op Op, arg any) (any, error) {
	switch op {
	case OpSetTime:
		a, err := argAs[SetTimeArgs](op, arg)
		if err != nil {
			return nil, err
		}
		if a.Time == nil {
			return nil, hio.InvalidArgument("set-time: missing time")
		}
		return nil, h.SetTime(a.Path, a.Time)
	case OpRename:
		a, err := argAs[RenameArgs](op, arg)
		if err != nil {
			return nil, err
		}
		return nil, h.Rename(a.From, a.To)
	case OpAccess:
		a, err := argAs[AccessArgs](op, arg)
		if err != nil {
			return nil, err
		}
		return h.Access(a.Path, a.Rights), nil
	}

	switch op {
	case OpMkdir, OpRmdir, OpIsDir, OpIsSymlink, OpReadLink, OpFullPath,
		OpModTime, OpFileSize, OpRemove, OpFileID:
	default:
		h.log.Debug("unknown dispatch code", zap.Int("op", int(op)))
		return nil, hio.UnknownOperation(int(op))
	}

	path, err := argAs[string](op, arg)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpMkdir:
		return nil, h.Mkdir(path)
	case OpRmdir:
		return nil, h.Rmdir(path)
	case OpIsDir:
		return h.IsDir(path)
	case OpIsSymlink:
		return h.IsSymlink(path)
	case OpReadLink:
		return h.ReadLink(path)
	case OpFullPath:
		return h.FullPath(path)
	case OpModTime:
		return h.ModTime(path)
	case OpFileSize:
		return h.FileSize(path)
	case OpRemove:
		return nil, h.Remove(path)
	default:
		return h.FileID(path), nil
	}
}

func openModeOf(op Op) (OpenMode, bool) {
	switch op {
	case OpOpenTextIn:
		return OpenRead, true
	case OpOpenBinaryIn:
		return OpenRead, false
	case OpOpenTextOut:
		return OpenWrite, true
	case OpOpenBinaryOut:
		return OpenWrite, false
	case OpOpenTextAppend:
		return OpenAppend, true
	default:
		return OpenAppend, false
	}
}

func argAs[T any](op Op, arg any) (T, error) {
	v, ok := arg.(T)
	if !ok {
		var zero T
		return zero, hio.InvalidArgument(fmt.Sprintf("%s: want %T, got %T", op, zero, arg))
	}
	return v, nil
}

// argInt accepts the integer shapes callers commonly pass.
func argInt(op Op, arg any) (int, error) {
	switch v := arg.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case *big.Int:
		if v != nil && v.IsInt64() {
			return int(v.Int64()), nil
		}
	}
	return 0, hio.InvalidArgument(fmt.Sprintf("%s: want an integer, got %T", op, arg))
}
