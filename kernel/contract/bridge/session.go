package bridge

import (
	"github.com/holiman/uint256"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/balance"
	"github.com/alkanes/alkanescore/kernel/contract/fuel"
	"github.com/alkanes/alkanescore/kernel/contract/sandbox"
	"github.com/alkanes/alkanescore/kernel/contract/trace"
)

// Session is the host side of one active call. Engines reach it through
// Context.Session from their host functions. Every method charges its cost
// to the transaction fuel before doing any work, and host functions call
// Sync with the engine's own metering first.
type Session struct {
	bridge  *XBridge
	exec    *execution
	ctx     *Context
	overlay *sandbox.Overlay
	// alkanes handed back by successful sub-calls
	received *balance.Sheet
	// engine fuel already moved into the tank
	synced     uint64
	returnData []byte
}

// Frame is a copy of the call frame.
func (s *Session) Frame() contract.CallFrame {
	return s.ctx.Runtime.Frame()
}

// Myself is the id whose storage and balances this call acts on.
func (s *Session) Myself() contract.ContractId {
	return s.ctx.Runtime.Myself()
}

// Sync charges the fuel the engine metered since the last Sync. used is
// cumulative for the call.
func (s *Session) Sync(used uint64) error {
	if used <= s.synced {
		return nil
	}
	delta := used - s.synced
	s.synced = used
	return s.consume(delta)
}

// consume charges n. When n does not fit, what is left is consumed anyway:
// an exhausted execution never gets its fuel back.
func (s *Session) consume(n uint64) error {
	tank := s.exec.msg.Tank
	if err := tank.ConsumeFuel(n); err != nil {
		tank.ConsumeAvailable(n)
		return err
	}
	return nil
}

// Charge is consume for engine-side costs such as memory growth.
func (s *Session) Charge(n uint64) error {
	return s.consume(n)
}

// RequestContext returns the size of the serialized context.
func (s *Session) RequestContext() (int, error) {
	buf := s.ctx.Runtime.Serialize()
	if err := s.consume(fuel.PerRequestByte * uint64(len(buf))); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// LoadContext returns the serialized context.
func (s *Session) LoadContext() ([]byte, error) {
	buf := s.ctx.Runtime.Serialize()
	if err := s.consume(fuel.PerLoadByte * uint64(len(buf))); err != nil {
		return nil, err
	}
	return buf, nil
}

// RequestStorage returns the size of the value stored under key.
func (s *Session) RequestStorage(key []byte) (int, error) {
	if err := s.consume(fuel.PerRequestByte * uint64(len(key))); err != nil {
		return 0, err
	}
	value, err := StoragePointer(s.overlay, s.Myself(), key).Get()
	if err != nil {
		return 0, err
	}
	return len(value), nil
}

// LoadStorage returns the value stored under key, empty if unset.
func (s *Session) LoadStorage(key []byte) ([]byte, error) {
	value, err := StoragePointer(s.overlay, s.Myself(), key).Get()
	if err != nil {
		return nil, err
	}
	if err := s.consume(fuel.PerLoadByte * uint64(len(value))); err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Session) saveStorage(m contract.StorageMap) error {
	myself := s.Myself()
	for _, key := range m.Keys() {
		if err := StoragePointer(s.overlay, myself, []byte(key)).Set(m[key]); err != nil {
			return err
		}
	}
	return nil
}

// Sequence is the number the next sequential deployment gets.
func (s *Session) Sequence() (uint256.Int, error) {
	if err := s.consume(fuel.Sequence); err != nil {
		return uint256.Int{}, err
	}
	return CurrentSequence(s.overlay)
}

// Fuel is what is left of the transaction allocation.
func (s *Session) Fuel() (uint64, error) {
	if err := s.consume(fuel.Fuel); err != nil {
		return 0, err
	}
	return s.exec.msg.Tank.TransactionFuel(), nil
}

// Height is the height of the block being indexed.
func (s *Session) Height() (uint64, error) {
	if err := s.consume(fuel.Height); err != nil {
		return 0, err
	}
	return s.exec.msg.Height, nil
}

// Balance is the stored balance of who in asset what.
func (s *Session) Balance(who, what contract.ContractId) (uint256.Int, error) {
	if err := s.consume(fuel.Balance); err != nil {
		return uint256.Int{}, err
	}
	return balance.Of(s.overlay, who, what)
}

// Call runs cp as a nested call. checkpoint is the storage the caller wants
// visible to the callee; it is written to the caller's overlay first. On
// failure the callee's writes are gone and ReturnData holds the revert
// payload.
func (s *Session) Call(kind contract.CallKind, cp *contract.Cellpack, transfers []contract.RuneTransfer, checkpoint contract.StorageMap) (*contract.CallResponse, error) {
	s.returnData = nil
	cost, err := fuel.ExtcallFuel(checkpoint.ByteSize())
	if err != nil {
		return nil, err
	}
	if cp.Target.IsDeploy() {
		cost += fuel.ExtcallDeploy
	}
	if err := s.consume(cost); err != nil {
		return nil, err
	}
	if err := s.saveStorage(checkpoint); err != nil {
		return nil, err
	}

	out, err := s.bridge.call(s.exec, kind, cp, transfers)
	if err != nil {
		s.returnData = contract.RevertPayload(err)
		return nil, err
	}
	s.returnData = out.response.Data
	if kind != contract.CallKindStatic && len(out.response.Alkanes) > 0 {
		if err := balance.Credit(s.overlay, s.Myself(), out.response.Alkanes); err != nil {
			return nil, err
		}
		got, err := balance.SheetFromTransfers(out.response.Alkanes)
		if err != nil {
			return nil, err
		}
		if err := got.Pipe(s.received); err != nil {
			return nil, err
		}
	}
	return out.response, nil
}

// ReturnData is the data of the last sub-call.
func (s *Session) ReturnData() []byte {
	return s.returnData
}

// Clock appends an event to the message trace.
func (s *Session) Clock(e trace.Event) error {
	return s.exec.msg.Trace.Clock(e)
}

// Log forwards a contract's debug output.
func (s *Session) Log(msg string) {
	s.ctx.Logger.Debug("contract log", "myself", s.Myself(), "ctxid", s.ctx.ID, "msg", msg)
}
