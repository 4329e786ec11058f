package contract

import (
	"sync"

	"github.com/holiman/uint256"
)

// CallKind distinguishes how a frame was entered.
type CallKind int

const (
	CallKindCall CallKind = iota
	CallKindDelegate
	CallKindStatic
)

func (k CallKind) String() string {
	switch k {
	case CallKindDelegate:
		return "delegatecall"
	case CallKindStatic:
		return "staticcall"
	}
	return "call"
}

// CallFrame is the plain data describing one call.
type CallFrame struct {
	Myself   ContractId     `json:"myself"`
	Caller   ContractId     `json:"caller"`
	Inputs   []uint256.Int  `json:"inputs"`
	Incoming []RuneTransfer `json:"incoming_alkanes"`
	Vout     uint32         `json:"vout"`
	Depth    int            `json:"depth"`
	Kind     CallKind       `json:"kind"`
}

// RuntimeContext is the frame of an active call. The orchestrator and the
// engine share it through the execution session for the lifetime of the call.
type RuntimeContext struct {
	mu    sync.Mutex
	frame CallFrame
}

// NewRuntimeContext wraps frame.
func NewRuntimeContext(frame CallFrame) *RuntimeContext {
	return &RuntimeContext{frame: frame}
}

// Frame returns a copy of the frame data.
func (c *RuntimeContext) Frame() CallFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.frame
	f.Inputs = append([]uint256.Int(nil), c.frame.Inputs...)
	f.Incoming = append([]RuneTransfer(nil), c.frame.Incoming...)
	return f
}

// Myself is the id whose storage and balances the call acts on.
func (c *RuntimeContext) Myself() ContractId {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame.Myself
}

// Depth is 0 for a top-level message.
func (c *RuntimeContext) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame.Depth
}

// Serialize renders the context as contracts read it:
// myself, caller, vout (u128), incoming transfers, then the inputs.
func (c *RuntimeContext) Serialize() []byte {
	f := c.Frame()
	buf := make([]byte, 0, 2*ContractIdSize+Uint128Size*(2+3*len(f.Incoming)+len(f.Inputs)))
	buf = append(buf, f.Myself.Bytes()...)
	buf = append(buf, f.Caller.Bytes()...)
	buf = AppendUint128(buf, uint256.NewInt(uint64(f.Vout)))
	buf = append(buf, EncodeTransfers(f.Incoming)...)
	for i := range f.Inputs {
		buf = AppendUint128(buf, &f.Inputs[i])
	}
	return buf
}
