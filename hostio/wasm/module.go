// Package wasm exports a Host to WebAssembly guests as the "hostio" host
// module. Every call takes flat integers; strings and buffers are
// pointer/length pairs into the guest's exported memory.
//
// Results are int64. A negative result is the negated ErrorCode of the
// failure; last_error and last_errno describe it in detail.
package wasm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/OpenListTeam/wazero-hostio/hostio"
	"github.com/OpenListTeam/wazero-hostio/manager/handle"
	hio "github.com/OpenListTeam/wazero-hostio/manager/io"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// ModuleName is the import module guests link against.
const ModuleName = "hostio"

// ErrorCode is the negated result of a failed call.
type ErrorCode int64

const (
	CodeStreamClosed     ErrorCode = 1
	CodeIOFailure        ErrorCode = 2
	CodeNotSupported     ErrorCode = 3
	CodeInvalidArgument  ErrorCode = 4
	CodeNotImplemented   ErrorCode = 5
	CodeUnknownOperation ErrorCode = 6
	CodeInterrupted      ErrorCode = 7
	CodeMemoryFault      ErrorCode = 8
)

var errMemoryFault = errors.New("guest memory access out of range")

// Module binds a Host to guest instances.
type Module struct {
	host *hostio.Host
	log  *zap.Logger

	mu      sync.Mutex
	lastErr error
	// directory entries that did not fit the guest buffer, returned by the
	// next read on the same handle
	pendingDir map[handle.Handle]string
}

// Option configures a Module.
type Option func(*Module)

func WithLogger(l *zap.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.log = l
		}
	}
}

func New(h *hostio.Host, opts ...Option) *Module {
	m := &Module{host: h, log: zap.NewNop(), pendingDir: make(map[handle.Handle]string)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module) Name() string { return ModuleName }

// Export 将模块的全部函数注册到 builder。
func (m *Module) Export(builder wazero.HostModuleBuilder) wazero.HostModuleBuilder {
	exports := map[string]any{
		"general":     m.general,
		"path_op":     m.pathOp,
		"string_op":   m.stringOp,
		"read":        m.read,
		"write":       m.write,
		"rewind_dir":  m.rewindDir,
		"rename":      m.rename,
		"chdir":       m.chdir,
		"access":      m.access,
		"mod_time":    m.modTime,
		"set_time":    m.setTime,
		"poll":        m.poll,
		"last_error":  m.lastError,
		"last_errno":  m.lastErrno,
		"clear_error": m.clearError,
	}
	for name, fn := range exports {
		builder = builder.NewFunctionBuilder().WithFunc(fn).Export(name)
	}
	return builder
}

// Instantiate 在运行时 r 中实例化宿主模块。
func (m *Module) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	return m.Export(r.NewHostModuleBuilder(ModuleName)).Instantiate(ctx)
}

func (m *Module) fail(err error) int64 {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
	m.log.Debug("hostio call failed", zap.Error(err))
	return -int64(codeOf(err))
}

func codeOf(err error) ErrorCode {
	var herr *hio.Error
	switch {
	case errors.Is(err, errMemoryFault):
		return CodeMemoryFault
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeInterrupted
	case errors.As(err, &herr):
		switch herr.Kind {
		case hio.KindStreamClosed:
			return CodeStreamClosed
		case hio.KindNotSupported:
			return CodeNotSupported
		case hio.KindInvalidArgument:
			return CodeInvalidArgument
		case hio.KindNotImplemented:
			return CodeNotImplemented
		case hio.KindUnknownOperation:
			return CodeUnknownOperation
		}
	}
	return CodeIOFailure
}

// result 把 dispatch 的结果压平为 int64 返回值。
func (m *Module) result(res any, err error) int64 {
	if err != nil {
		return m.fail(err)
	}
	switch v := res.(type) {
	case nil:
		return 0
	case bool:
		if v {
			return 1
		}
		return 0
	case int:
		return int64(v)
	case int64:
		return v
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case handle.Handle:
		return int64(v)
	case hio.FileKind:
		return int64(v)
	case hio.PollBits:
		return int64(v)
	case *big.Int:
		if v != nil && v.IsInt64() {
			return v.Int64()
		}
	}
	return m.fail(hio.InvalidArgument("result does not fit an integer"))
}

func readBytes(mod api.Module, ptr, n uint32) ([]byte, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, errMemoryFault
	}
	b, ok := mem.Read(ptr, n)
	if !ok {
		return nil, errMemoryFault
	}
	return b, nil
}

func readString(mod api.Module, ptr, n uint32) (string, error) {
	b, err := readBytes(mod, ptr, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeBytes(mod api.Module, ptr uint32, b []byte) error {
	mem := mod.Memory()
	if mem == nil || !mem.Write(ptr, b) {
		return errMemoryFault
	}
	return nil
}

// entryPoint names the export that serves each operation general cannot:
// those whose argument is not an integer or whose result is not one.
var entryPoint = map[hostio.Op]string{
	hostio.OpOpenTextIn:       "path_op",
	hostio.OpOpenBinaryIn:     "path_op",
	hostio.OpOpenTextOut:      "path_op",
	hostio.OpOpenBinaryOut:    "path_op",
	hostio.OpOpenTextAppend:   "path_op",
	hostio.OpOpenBinaryAppend: "path_op",
	hostio.OpReadText:         "read",
	hostio.OpReadBinary:       "read",
	hostio.OpWriteText:        "write",
	hostio.OpWriteBinary:      "write",
	hostio.OpReadTextString:   "string_op",
	hostio.OpReadBinaryVector: "string_op",
	hostio.OpPollForever:      "poll",
	hostio.OpPollUntil:        "poll",
	hostio.OpPollOnce:         "poll",
	hostio.OpOpenDir:          "path_op",
	hostio.OpReadDir:          "string_op",
	hostio.OpRewindDir:        "rewind_dir",
	hostio.OpGetwd:            "string_op",
	hostio.OpMkdir:            "path_op",
	hostio.OpRmdir:            "path_op",
	hostio.OpIsDir:            "path_op",
	hostio.OpIsSymlink:        "path_op",
	hostio.OpReadLink:         "string_op",
	hostio.OpFullPath:         "string_op",
	hostio.OpModTime:          "mod_time",
	hostio.OpFileSize:         "path_op",
	hostio.OpSetTime:          "set_time",
	hostio.OpRemove:           "path_op",
	hostio.OpRename:           "rename",
	hostio.OpAccess:           "access",
	hostio.OpTempName:         "string_op",
	hostio.OpFileID:           "path_op",
}

// general runs an operation whose argument and result are plain integers.
// Anything else is refused before it runs, so no input is consumed.
func (m *Module) general(ctx context.Context, _ api.Module, op, hd uint32, arg int64) int64 {
	if name, ok := entryPoint[hostio.Op(op)]; ok {
		return m.fail(hio.InvalidArgument(fmt.Sprintf("%s: call %s", hostio.Op(op), name)))
	}
	if hostio.Op(op) == hostio.OpCloseDir {
		m.dropPending(handle.Handle(hd))
	}
	return m.result(m.host.Dispatch(ctx, hostio.Op(op), handle.Handle(hd), arg))
}

func (m *Module) dropPending(hd handle.Handle) {
	m.mu.Lock()
	delete(m.pendingDir, hd)
	m.mu.Unlock()
}

func (m *Module) takePending(hd handle.Handle) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.pendingDir[hd]
	delete(m.pendingDir, hd)
	return name, ok
}

// pathOp runs an operation whose single argument is a path.
func (m *Module) pathOp(ctx context.Context, mod api.Module, op, pathPtr, pathLen uint32) int64 {
	path, err := readString(mod, pathPtr, pathLen)
	if err != nil {
		return m.fail(err)
	}
	return m.result(m.host.Dispatch(ctx, hostio.Op(op), handle.Invalid, path))
}

// stringOp runs an operation that yields a string and copies it to out.
// It returns the full length, which exceeds outCap when the copy was cut
// short.
//
// The read-string operations take their length from outCap, so what they
// consume always fits. A directory entry longer than outCap is not copied
// at all; it is kept and returned by the next read on the handle.
func (m *Module) stringOp(ctx context.Context, mod api.Module, op, hd, inPtr, inLen, outPtr, outCap uint32) int64 {
	var (
		res any
		err error
	)
	switch o, h := hostio.Op(op), handle.Handle(hd); {
	case o == hostio.OpReadTextString, o == hostio.OpReadBinaryVector:
		// check the destination before anything is consumed
		if _, err := readBytes(mod, outPtr, outCap); err != nil {
			return m.fail(err)
		}
		res, err = m.host.Dispatch(ctx, o, h, int64(outCap))
	case o == hostio.OpReadDir:
		if name, ok := m.takePending(h); ok {
			res = name
		} else {
			res, err = m.host.Dispatch(ctx, o, h, nil)
		}
	default:
		var in string
		if in, err = readString(mod, inPtr, inLen); err == nil {
			res, err = m.host.Dispatch(ctx, o, h, in)
		}
	}
	if err != nil {
		return m.fail(err)
	}

	var out []byte
	switch v := res.(type) {
	case string:
		out = []byte(v)
	case []byte:
		out = v
	default:
		return m.fail(hio.InvalidArgument(hostio.Op(op).String() + " does not return a string"))
	}
	full := int64(len(out))
	if uint32(len(out)) > outCap {
		if hostio.Op(op) == hostio.OpReadDir {
			m.mu.Lock()
			m.pendingDir[handle.Handle(hd)] = string(out)
			m.mu.Unlock()
			return full
		}
		out = out[:outCap]
	}
	if err := writeBytes(mod, outPtr, out); err != nil {
		return m.fail(err)
	}
	return full
}

// read fills at most bufLen bytes of guest memory, and never more than the
// host's transfer limit in one call.
func (m *Module) read(ctx context.Context, mod api.Module, hd, bufPtr, bufLen uint32) int64 {
	n := int(bufLen)
	if limit := m.host.MaxTransfer(); n > limit {
		n = limit
	}
	if _, err := readBytes(mod, bufPtr, uint32(n)); err != nil {
		return m.fail(err)
	}
	data, err := m.host.ReadBytes(ctx, handle.Handle(hd), n)
	if err != nil {
		return m.fail(err)
	}
	if err := writeBytes(mod, bufPtr, data); err != nil {
		return m.fail(err)
	}
	return int64(len(data))
}

func (m *Module) write(ctx context.Context, mod api.Module, hd, bufPtr, bufLen uint32) int64 {
	data, err := readBytes(mod, bufPtr, bufLen)
	if err != nil {
		return m.fail(err)
	}
	return m.result(m.host.Dispatch(ctx, hostio.OpWriteBinary, handle.Handle(hd), data))
}

func (m *Module) rewindDir(ctx context.Context, mod api.Module, hd, pathPtr, pathLen uint32) int64 {
	m.dropPending(handle.Handle(hd))
	path, err := readString(mod, pathPtr, pathLen)
	if err != nil {
		return m.fail(err)
	}
	return m.result(m.host.Dispatch(ctx, hostio.OpRewindDir, handle.Handle(hd), path))
}

// chdir has no dispatch code; it goes to the host directly.
func (m *Module) chdir(_ context.Context, mod api.Module, pathPtr, pathLen uint32) int64 {
	path, err := readString(mod, pathPtr, pathLen)
	if err != nil {
		return m.fail(err)
	}
	return m.result(nil, m.host.ChDir(path))
}

func (m *Module) rename(ctx context.Context, mod api.Module, fromPtr, fromLen, toPtr, toLen uint32) int64 {
	from, err := readString(mod, fromPtr, fromLen)
	if err != nil {
		return m.fail(err)
	}
	to, err := readString(mod, toPtr, toLen)
	if err != nil {
		return m.fail(err)
	}
	return m.result(m.host.Dispatch(ctx, hostio.OpRename, handle.Invalid, hostio.RenameArgs{From: from, To: to}))
}

func (m *Module) access(ctx context.Context, mod api.Module, pathPtr, pathLen, rights uint32) int64 {
	path, err := readString(mod, pathPtr, pathLen)
	if err != nil {
		return m.fail(err)
	}
	return m.result(m.host.Dispatch(ctx, hostio.OpAccess, handle.Invalid, hostio.AccessArgs{Path: path, Rights: int(rights)}))
}

func (m *Module) modTime(ctx context.Context, mod api.Module, pathPtr, pathLen uint32) int64 {
	return m.pathOp(ctx, mod, uint32(hostio.OpModTime), pathPtr, pathLen)
}

func (m *Module) setTime(ctx context.Context, mod api.Module, pathPtr, pathLen uint32, micros int64) int64 {
	path, err := readString(mod, pathPtr, pathLen)
	if err != nil {
		return m.fail(err)
	}
	args := hostio.SetTimeArgs{Path: path, Time: big.NewInt(micros)}
	return m.result(m.host.Dispatch(ctx, hostio.OpSetTime, handle.Invalid, args))
}

// poll 从 guest 内存读取 n 个小端 u32 句柄和关注位，按 op 指定的策略轮询，
// 再把 n 个 u32 结果写回 outPtr。
func (m *Module) poll(ctx context.Context, mod api.Module, op, handlesPtr, bitsPtr, n, outPtr uint32, deadline int64) int64 {
	mem := mod.Memory()
	if mem == nil {
		return m.fail(errMemoryFault)
	}
	args := hostio.PollArgs{
		Handles: make([]handle.Handle, n),
		Bits:    make([]hio.PollBits, n),
	}
	for i := uint32(0); i < n; i++ {
		hd, ok := mem.ReadUint32Le(handlesPtr + 4*i)
		if !ok {
			return m.fail(errMemoryFault)
		}
		bits, ok := mem.ReadUint32Le(bitsPtr + 4*i)
		if !ok {
			return m.fail(errMemoryFault)
		}
		args.Handles[i] = handle.Handle(hd)
		args.Bits[i] = hio.PollBits(bits)
	}
	if hostio.Op(op) == hostio.OpPollUntil {
		args.Deadline = big.NewInt(deadline)
	}

	res, err := m.host.Dispatch(ctx, hostio.Op(op), handle.Invalid, args)
	if err != nil {
		return m.fail(err)
	}
	out, ok := res.([]hio.PollBits)
	if !ok {
		return m.fail(hio.InvalidArgument(hostio.Op(op).String() + " is not a poll operation"))
	}
	ready := int64(0)
	for i, bits := range out {
		if !mem.WriteUint32Le(outPtr+4*uint32(i), uint32(bits)) {
			return m.fail(errMemoryFault)
		}
		if bits != 0 {
			ready++
		}
	}
	return ready
}

// lastError copies the message of the last failure to buf and returns its
// full length, or 0 if there is none.
func (m *Module) lastError(_ context.Context, mod api.Module, bufPtr, bufCap uint32) int64 {
	m.mu.Lock()
	err := m.lastErr
	m.mu.Unlock()
	if err == nil {
		return 0
	}
	msg := []byte(err.Error())
	out := msg
	if uint32(len(out)) > bufCap {
		out = out[:bufCap]
	}
	if err := writeBytes(mod, bufPtr, out); err != nil {
		return -int64(CodeMemoryFault)
	}
	return int64(len(msg))
}

// lastErrno returns the OS error number of the last failure, or 0.
func (m *Module) lastErrno(context.Context, api.Module) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var herr *hio.Error
	if errors.As(m.lastErr, &herr) {
		return int32(herr.Code)
	}
	return 0
}

func (m *Module) clearError(context.Context, api.Module) {
	m.mu.Lock()
	m.lastErr = nil
	m.mu.Unlock()
}
