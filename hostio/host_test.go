package hostio

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OpenListTeam/wazero-hostio/manager/handle"
	hio "github.com/OpenListTeam/wazero-hostio/manager/io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestHost(t *testing.T, opts ...Option) *Host {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t)), WithStdin(strings.NewReader(""))}, opts...)
	h := NewHost(opts...)
	t.Cleanup(func() { _ = h.Shutdown() })
	return h
}

func call[T any](t *testing.T, h *Host, op Op, hd handle.Handle, arg any) T {
	t.Helper()
	res, err := h.Dispatch(context.Background(), op, hd, arg)
	require.NoError(t, err, "op %s", op)
	v, ok := res.(T)
	require.True(t, ok, "op %s returned %T", op, res)
	return v
}

func readToEnd(t *testing.T, h *Host, hd handle.Handle) string {
	t.Helper()
	var sb strings.Builder
	for {
		s := call[string](t, h, OpReadTextString, hd, 7)
		if s == "" {
			return sb.String()
		}
		sb.WriteString(s)
	}
}

func TestRoundTrip(t *testing.T) {
	h := newTestHost(t)
	path := filepath.Join(t.TempDir(), "rt.bin")
	payload := bytes.Repeat([]byte{0, 1, 2, '\r', '\n', 255}, 3000)

	out := call[handle.Handle](t, h, OpOpenBinaryOut, 0, path)
	n := call[int](t, h, OpWriteBinary, out, payload)
	require.Equal(t, len(payload), n)
	require.NoError(t, h.Close(out))

	in := call[handle.Handle](t, h, OpOpenBinaryIn, 0, path)
	defer h.Close(in)

	var got []byte
	buf := make([]byte, 1000)
	for {
		k := call[int](t, h, OpReadBinary, in, buf)
		if k == 0 {
			break
		}
		got = append(got, buf[:k]...)
	}
	assert.Equal(t, payload, got)
}

func TestTextModeRoundTrip(t *testing.T) {
	h := newTestHost(t)
	path := filepath.Join(t.TempDir(), "rt.txt")

	out := call[handle.Handle](t, h, OpOpenTextOut, 0, path)
	call[int](t, h, OpWriteText, out, []byte("a\r\nb"))
	require.NoError(t, h.Close(out))

	in := call[handle.Handle](t, h, OpOpenTextIn, 0, path)
	defer h.Close(in)
	assert.Equal(t, "a\nb", readToEnd(t, h, in))
}

func TestAppend(t *testing.T) {
	h := newTestHost(t)
	path := filepath.Join(t.TempDir(), "log")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))

	out := call[handle.Handle](t, h, OpOpenBinaryAppend, 0, path)
	call[int](t, h, OpWriteBinary, out, []byte("two\n"))
	require.NoError(t, h.Close(out))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
}

func TestPositions(t *testing.T) {
	h := newTestHost(t)
	path := filepath.Join(t.TempDir(), "pos")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	in := call[handle.Handle](t, h, OpOpenBinaryIn, 0, path)
	defer h.Close(in)

	assert.EqualValues(t, 10, call[uint64](t, h, OpEndPos, in, nil))
	assert.Equal(t, "012", call[string](t, h, OpReadTextString, in, 3))
	assert.EqualValues(t, 3, call[uint64](t, h, OpGetPos, in, nil))
	assert.EqualValues(t, 7, call[uint64](t, h, OpSizeRemaining, in, nil))

	_, err := h.Dispatch(context.Background(), OpSetPos, in, uint64(6))
	require.NoError(t, err)
	assert.EqualValues(t, 6, call[uint64](t, h, OpGetPos, in, nil))
	assert.Equal(t, "6789", readToEnd(t, h, in))

	_, err = h.Dispatch(context.Background(), OpSetPos, in, -1)
	assert.ErrorIs(t, err, hio.ErrInvalidArgument)
}

func TestCloseWithReadInFlight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inflight")
	content := bytes.Repeat([]byte("leading bytes "), 10000)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	h := newTestHost(t)
	for i := 0; i < 20; i++ {
		in := call[handle.Handle](t, h, OpOpenBinaryIn, 0, path)
		// the first background read starts at open; close races it
		require.NoError(t, h.Close(in))
	}

	in := call[handle.Handle](t, h, OpOpenBinaryIn, 0, path)
	defer h.Close(in)
	got := call[[]byte](t, h, OpReadBinaryVector, in, 14)
	assert.Equal(t, content[:len(got)], got)
	assert.NotEmpty(t, got)
}

func TestClosedHandles(t *testing.T) {
	h := newTestHost(t)
	path := filepath.Join(t.TempDir(), "c")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	in := call[handle.Handle](t, h, OpOpenBinaryIn, 0, path)
	_, err := h.Dispatch(context.Background(), OpClose, in, nil)
	require.NoError(t, err)
	_, err = h.Dispatch(context.Background(), OpClose, in, nil)
	require.NoError(t, err, "double close is silent")

	_, err = h.Dispatch(context.Background(), OpReadBinaryVector, in, 1)
	assert.ErrorIs(t, err, hio.ErrStreamClosed)
	_, err = h.Dispatch(context.Background(), OpIsAvailable, in, nil)
	assert.ErrorIs(t, err, hio.ErrStreamClosed)
	_, err = h.Dispatch(context.Background(), OpKind, handle.Handle(12345), nil)
	assert.ErrorIs(t, err, hio.ErrStreamClosed)

	_, err = h.Dispatch(context.Background(), OpOpenBinaryIn, 0, filepath.Join(t.TempDir(), "missing"))
	var herr *hio.Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, hio.KindIOFailure, herr.Kind)
	assert.NotZero(t, herr.Code)
}

func TestStandardStreams(t *testing.T) {
	var stdout, stderr bytes.Buffer
	h := newTestHost(t,
		WithStdin(strings.NewReader("typed input")),
		WithStdout(&stdout),
		WithStderr(&stderr))

	in := call[handle.Handle](t, h, OpStdin, 0, nil)
	out := call[handle.Handle](t, h, OpStdout, 0, nil)
	errh := call[handle.Handle](t, h, OpStderr, 0, nil)
	assert.Equal(t, StdinHandle, in)
	assert.Equal(t, StdoutHandle, out)
	assert.Equal(t, StderrHandle, errh)

	assert.Equal(t, 0, call[int](t, h, OpDescriptorID, in, nil))
	assert.Equal(t, 1, call[int](t, h, OpDescriptorID, out, nil))
	assert.Equal(t, 2, call[int](t, h, OpDescriptorID, errh, nil))
	assert.Equal(t, hio.KindPipe, call[hio.FileKind](t, h, OpKind, in, nil))
	assert.Equal(t, hio.PollIn, call[hio.PollBits](t, h, OpPollCapability, in, nil))
	assert.Equal(t, hio.PollOut, call[hio.PollBits](t, h, OpPollCapability, out, nil))

	assert.Equal(t, "typed input", readToEnd(t, h, in))

	call[int](t, h, OpWriteText, out, []byte("hello"))
	call[int](t, h, OpWriteText, errh, []byte("oops"))
	assert.Equal(t, "hello", stdout.String())
	assert.Equal(t, "oops", stderr.String())

	// closing a standard stream is ignored
	require.NoError(t, h.Close(out))
	assert.True(t, call[bool](t, h, OpCanOutput, out, nil))
	_, err := h.Dispatch(context.Background(), OpWaitOutput, out, nil)
	require.NoError(t, err)

	_, err = h.Dispatch(context.Background(), OpGetPos, out, nil)
	assert.ErrorIs(t, err, hio.ErrNotSupported)
}

func TestDispatchErrors(t *testing.T) {
	h := newTestHost(t)

	_, err := h.Dispatch(context.Background(), Op(99), 0, nil)
	assert.ErrorIs(t, err, hio.ErrUnknownOperation)
	assert.Contains(t, err.Error(), "99")

	_, err = h.Dispatch(context.Background(), OpOpenBinaryIn, 0, 42)
	assert.ErrorIs(t, err, hio.ErrInvalidArgument)

	_, err = h.Dispatch(context.Background(), OpMkdir, 0, nil)
	assert.ErrorIs(t, err, hio.ErrInvalidArgument)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Dispatch(ctx, OpBufferSize, 0, nil)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 4096, call[int](t, h, OpBufferSize, 0, nil))
}

func TestInsufficientMemory(t *testing.T) {
	h := newTestHost(t, WithMaxTransfer(16))
	path := filepath.Join(t.TempDir(), "m")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	in := call[handle.Handle](t, h, OpOpenBinaryIn, 0, path)

	_, err := h.ReadBytes(context.Background(), in, 17)
	assert.ErrorIs(t, err, hio.ErrInsufficientMemory)
	assert.ErrorIs(t, err, hio.ErrIOFailure)
}

func TestReadStringIsCapped(t *testing.T) {
	h := newTestHost(t)
	path := filepath.Join(t.TempDir(), "big")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("z"), 3*MaxStringRead), 0o644))

	in := call[handle.Handle](t, h, OpOpenBinaryIn, 0, path)
	s := call[string](t, h, OpReadTextString, in, 10*MaxStringRead)
	assert.LessOrEqual(t, len(s), MaxStringRead)
	assert.NotEmpty(t, s)
}

func TestPollThroughDispatch(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	h := newTestHost(t, WithStdin(pr), WithPollInterval(time.Millisecond))

	path := filepath.Join(t.TempDir(), "p")
	out := call[handle.Handle](t, h, OpOpenBinaryOut, 0, path)
	in := call[handle.Handle](t, h, OpStdin, 0, nil)

	args := PollArgs{Handles: []handle.Handle{in}, Bits: []hio.PollBits{hio.PollIn}}
	assert.Equal(t, []hio.PollBits{0}, call[[]hio.PollBits](t, h, OpPollOnce, 0, args))

	args.Deadline = TimeToMicros(time.Now().Add(-time.Hour))
	start := time.Now()
	assert.Equal(t, []hio.PollBits{0}, call[[]hio.PollBits](t, h, OpPollUntil, 0, args))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	mixed := PollArgs{
		Handles: []handle.Handle{in, out},
		Bits:    []hio.PollBits{hio.PollIn, hio.PollOut},
	}
	assert.Equal(t, []hio.PollBits{0, hio.PollOut}, call[[]hio.PollBits](t, h, OpPollForever, 0, mixed))

	go func() {
		time.Sleep(20 * time.Millisecond)
		pw.Write([]byte("k"))
	}()
	assert.Equal(t, []hio.PollBits{hio.PollIn}, call[[]hio.PollBits](t, h, OpPollForever, 0, PollArgs{
		Handles: []handle.Handle{in},
		Bits:    []hio.PollBits{hio.PollIn},
	}))

	_, err := h.Dispatch(context.Background(), OpPollUntil, 0, PollArgs{Handles: []handle.Handle{in}, Bits: []hio.PollBits{hio.PollIn}})
	assert.ErrorIs(t, err, hio.ErrInvalidArgument)
}

func TestConcurrentOpenClose(t *testing.T) {
	h := newTestHost(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "shared")
	require.NoError(t, os.WriteFile(path, []byte("shared content"), 0o644))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				hd, err := h.Open(path, OpenRead, false)
				if !assert.NoError(t, err) {
					return
				}
				s, err := h.ReadString(context.Background(), hd, 6)
				assert.NoError(t, err)
				assert.Equal(t, "shared", s)
				assert.NoError(t, h.Close(hd))
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, h.OpenHandles())
}

func TestShutdown(t *testing.T) {
	h := NewHost(WithStdin(strings.NewReader("")))
	path := filepath.Join(t.TempDir(), "s")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	in, err := h.Open(path, OpenRead, false)
	require.NoError(t, err)
	_, err = h.Stdin()
	require.NoError(t, err)
	assert.Equal(t, 1, h.OpenHandles())

	require.NoError(t, h.Shutdown())
	require.NoError(t, h.Shutdown())
	assert.Zero(t, h.OpenHandles())

	_, err = h.IsAvailable(in)
	assert.ErrorIs(t, err, hio.ErrStreamClosed)
	_, err = h.IsAvailable(StdinHandle)
	assert.ErrorIs(t, err, hio.ErrStreamClosed)
	_, err = h.Open(path, OpenRead, false)
	assert.ErrorIs(t, err, hio.ErrStreamClosed)
}

func TestTimeConversion(t *testing.T) {
	ts := time.Date(2020, 5, 17, 10, 11, 12, 345678000, time.UTC)
	us := TimeToMicros(ts)
	assert.Equal(t, big.NewInt(ts.UnixMicro()), us)
	assert.True(t, ts.Equal(MicrosToTime(us)))

	before := time.Date(1960, 1, 1, 0, 0, 0, 500000000, time.UTC)
	assert.True(t, before.Equal(MicrosToTime(TimeToMicros(before))))

	huge := new(big.Int).Lsh(big.NewInt(1), 100)
	assert.True(t, MicrosToTime(huge).After(ts))
	assert.True(t, MicrosToTime(nil).Equal(time.Unix(0, 0)))
}

func TestWaitOnWrongDirection(t *testing.T) {
	h := newTestHost(t, WithStdout(&bytes.Buffer{}))
	out := call[handle.Handle](t, h, OpStdout, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	_, err := h.Dispatch(ctx, OpWaitAvailable, out, nil)
	assert.ErrorIs(t, err, hio.ErrNotSupported)
	_, err = h.Dispatch(ctx, OpReadBinary, out, make([]byte, 4))
	assert.ErrorIs(t, err, hio.ErrNotSupported)

	path := filepath.Join(t.TempDir(), "in")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	in := call[handle.Handle](t, h, OpOpenBinaryIn, 0, path)
	_, err = h.Dispatch(ctx, OpWaitOutput, in, nil)
	assert.ErrorIs(t, err, hio.ErrNotSupported)
	assert.Less(t, time.Since(start), time.Second)

	// an empty buffer returns at once and consumes nothing
	assert.Equal(t, 0, call[int](t, h, OpReadBinary, in, []byte{}))
	assert.Equal(t, "x", readToEnd(t, h, in))
}
