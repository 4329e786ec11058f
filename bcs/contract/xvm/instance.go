package xvm

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuperchain/xvm/exec"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/bridge"
)

const contextIDKey = "ctxid"

func createInstance(ctx *bridge.Context, code exec.Code) (*xvmInstance, error) {
	limit := ctx.FuelLimit
	if limit > math.MaxInt64 {
		limit = math.MaxInt64
	}
	execCtx, err := code.NewContext(&exec.ContextConfig{
		GasLimit: int64(limit),
	})
	if err != nil {
		return nil, errors.Wrapf(contract.ErrVMTrap, "create exec context: %v", err)
	}
	execCtx.SetUserData(contextIDKey, ctx.ID)
	return &xvmInstance{
		bridgeCtx: ctx,
		execCtx:   execCtx,
		limit:     limit,
	}, nil
}

type xvmInstance struct {
	bridgeCtx *bridge.Context
	execCtx   exec.Context
	limit     uint64
	// hostErr is the error a host function trapped with
	hostErr error
}

func (x *xvmInstance) Exec() (*contract.CallResponse, error) {
	if x.execCtx.Memory() == nil {
		return nil, errors.Wrap(contract.ErrDecode, "bad contract, no memory")
	}
	ptr, err := x.execCtx.Exec(entryExport, nil)
	if err != nil {
		return nil, x.classify(err)
	}
	if ptr < 0 || ptr > math.MaxUint32 {
		return nil, errors.Wrapf(contract.ErrVMTrap, "%s returned pointer %d", entryExport, ptr)
	}
	buf, err := readArrayBuffer(x.execCtx.Memory(), uint32(ptr))
	if err != nil {
		return nil, err
	}
	return contract.DecodeCallResponse(buf)
}

// classify maps an execution failure to an error kind. A trap raised by a
// host function carries the host's error. The interpreter may stop just
// short of the limit, so its gas trap counts as exhaustion too.
func (x *xvmInstance) classify(err error) error {
	if x.hostErr != nil {
		return x.hostErr
	}
	if x.FuelUsed() >= x.limit || strings.Contains(strings.ToLower(err.Error()), "gas") {
		return errors.Wrapf(contract.ErrFuelExhausted, "%v", err)
	}
	return errors.Wrapf(contract.ErrVMTrap, "%v", err)
}

func (x *xvmInstance) FuelUsed() uint64 {
	used := x.execCtx.GasUsed()
	if used < 0 {
		return 0
	}
	return uint64(used)
}

func (x *xvmInstance) Release() {
	x.execCtx.Release()
}

// Abort stops execution with err from inside a host function.
func (x *xvmInstance) Abort(err error) {
	x.hostErr = err
	exec.Throw(exec.NewTrap(err.Error()))
}
