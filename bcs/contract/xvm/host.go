package xvm

import (
	"math"

	"github.com/pkg/errors"
	"github.com/xuperchain/xvm/exec"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/bridge"
)

const hostModule = "env"

// hostResolver binds the env imports of a contract to the session of the
// call that is running it.
type hostResolver struct {
	ctxmgr *bridge.ContextManager
	funcs  map[string]interface{}
}

var _ exec.Resolver = (*hostResolver)(nil)

func newHostResolver(ctxmgr *bridge.ContextManager) *hostResolver {
	h := &hostResolver{ctxmgr: ctxmgr}
	h.funcs = map[string]interface{}{
		"abort":             h.abort,
		"__request_context": h.requestContext,
		"__load_context":    h.loadContext,
		"__request_storage": h.requestStorage,
		"__load_storage":    h.loadStorage,
		"__height":          h.height,
		"__sequence":        h.sequence,
		"__fuel":            h.fuel,
		"__balance":         h.balance,
		"__returndatacopy":  h.returndatacopy,
		"__call":            h.call,
		"__delegatecall":    h.delegatecall,
		"__staticcall":      h.staticcall,
		"__log":             h.log,
	}
	return h
}

func (h *hostResolver) ResolveFunc(module, name string) (interface{}, bool) {
	if module != hostModule {
		return nil, false
	}
	f, ok := h.funcs[name]
	return f, ok
}

func (h *hostResolver) ResolveGlobal(module, name string) (int64, bool) {
	return 0, false
}

// frame is what a host function works with.
type frame struct {
	ctx      exec.Context
	sess     *bridge.Session
	instance *xvmInstance
}

// enter looks up the call running in ctx and settles the fuel the
// interpreter metered so far.
func (h *hostResolver) enter(ctx exec.Context) *frame {
	id, ok := ctx.GetUserData(contextIDKey).(int64)
	if !ok {
		exec.Throw(exec.NewTrap("host call without context"))
	}
	bctx, ok := h.ctxmgr.Context(id)
	if !ok || bctx.Session == nil {
		exec.Throw(exec.NewTrap("host call on a released context"))
	}
	instance, ok := bctx.Instance.(*xvmInstance)
	if !ok {
		exec.Throw(exec.NewTrap("host call from a foreign instance"))
	}
	f := &frame{ctx: ctx, sess: bctx.Session, instance: instance}
	f.check(f.sess.Sync(instance.FuelUsed()))
	return f
}

// check aborts the contract on err.
func (f *frame) check(err error) {
	if err != nil {
		f.instance.Abort(err)
	}
}

func (f *frame) read(ptr uint32) []byte {
	buf, err := readArrayBuffer(f.ctx.Memory(), ptr)
	f.check(err)
	return buf
}

func (f *frame) write(ptr uint32, data []byte) uint32 {
	f.check(writeArrayBuffer(f.ctx.Memory(), ptr, data))
	return uint32(len(data))
}

func (h *hostResolver) abort(ctx exec.Context, msg, file, line, column uint32) {
	f := h.enter(ctx)
	f.instance.Abort(errors.Wrapf(contract.ErrVMTrap, "abort at %d:%d", line, column))
}

func (h *hostResolver) requestContext(ctx exec.Context) uint32 {
	f := h.enter(ctx)
	n, err := f.sess.RequestContext()
	f.check(err)
	return uint32(n)
}

func (h *hostResolver) loadContext(ctx exec.Context, output uint32) uint32 {
	f := h.enter(ctx)
	buf, err := f.sess.LoadContext()
	f.check(err)
	return f.write(output, buf)
}

func (h *hostResolver) requestStorage(ctx exec.Context, key uint32) uint32 {
	f := h.enter(ctx)
	n, err := f.sess.RequestStorage(f.read(key))
	f.check(err)
	return uint32(n)
}

func (h *hostResolver) loadStorage(ctx exec.Context, key, value uint32) uint32 {
	f := h.enter(ctx)
	buf, err := f.sess.LoadStorage(f.read(key))
	f.check(err)
	return f.write(value, buf)
}

func (h *hostResolver) height(ctx exec.Context, output uint32) {
	f := h.enter(ctx)
	height, err := f.sess.Height()
	f.check(err)
	f.write(output, uint64Bytes(height))
}

func (h *hostResolver) sequence(ctx exec.Context, output uint32) {
	f := h.enter(ctx)
	seq, err := f.sess.Sequence()
	f.check(err)
	f.write(output, contract.AppendUint128(nil, &seq))
}

func (h *hostResolver) fuel(ctx exec.Context, output uint32) {
	f := h.enter(ctx)
	left, err := f.sess.Fuel()
	f.check(err)
	f.write(output, uint64Bytes(left))
}

func (h *hostResolver) balance(ctx exec.Context, who, what, output uint32) {
	f := h.enter(ctx)
	holder, err := contract.ParseContractId(f.read(who))
	f.check(err)
	asset, err := contract.ParseContractId(f.read(what))
	f.check(err)
	value, err := f.sess.Balance(holder, asset)
	f.check(err)
	f.write(output, contract.AppendUint128(nil, &value))
}

func (h *hostResolver) returndatacopy(ctx exec.Context, output uint32) {
	f := h.enter(ctx)
	f.write(output, f.sess.ReturnData())
}

func (h *hostResolver) call(ctx exec.Context, cellpack, incoming, checkpoint uint32, start uint64) uint32 {
	return h.extcall(ctx, contract.CallKindCall, cellpack, incoming, checkpoint)
}

func (h *hostResolver) delegatecall(ctx exec.Context, cellpack, incoming, checkpoint uint32, start uint64) uint32 {
	return h.extcall(ctx, contract.CallKindDelegate, cellpack, incoming, checkpoint)
}

func (h *hostResolver) staticcall(ctx exec.Context, cellpack, incoming, checkpoint uint32, start uint64) uint32 {
	return h.extcall(ctx, contract.CallKindStatic, cellpack, incoming, checkpoint)
}

// extcall runs a nested call. The fuel argument of the guest is ignored:
// the callee draws from the same transaction allocation. The result is the
// size of the return data, negated when the callee reverted.
func (h *hostResolver) extcall(ctx exec.Context, kind contract.CallKind, cellpackPtr, incomingPtr, checkpointPtr uint32) uint32 {
	f := h.enter(ctx)
	words, err := decodeWords(f.read(cellpackPtr))
	f.check(err)
	cp, err := contract.CellpackFromWords(words)
	f.check(err)
	transfers, _, err := contract.DecodeTransfers(f.read(incomingPtr))
	f.check(err)
	storage, _, err := contract.DecodeStorageMap(f.read(checkpointPtr))
	f.check(err)

	_, err = f.sess.Call(kind, cp, transfers, storage)
	size := len(f.sess.ReturnData())
	if err != nil {
		if size > math.MaxInt32 {
			size = math.MaxInt32
		}
		return uint32(int32(-size))
	}
	return uint32(size)
}

func (h *hostResolver) log(ctx exec.Context, msg uint32) {
	f := h.enter(ctx)
	f.sess.Log(string(f.read(msg)))
}
