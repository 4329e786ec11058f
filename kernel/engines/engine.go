package engines

import (
	"context"

	"github.com/btcsuite/btcd/wire"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/fuel"
)

// 区块处理引擎
// 引擎只约束最基本接口，消息的解码由外部的MessageSource完成
type BCEngine interface {
	// 初始化引擎
	Init(*EngineEnv) error
	// 按高度顺序处理区块，同一区块只能处理一次
	ProcessBlock(ctx context.Context, height uint64, block *wire.MsgBlock) (*BlockSummary, error)
	// 退出引擎，需要幂等
	Exit()
}

// Protomessage is one protocol message of a transaction as the protostone
// decoder hands it over.
type Protomessage struct {
	ProtocolTag uint64
	Calldata    []byte
	// Incoming are the alkanes routed to the message.
	Incoming []contract.RuneTransfer
	// Vout is the virtual output index of the message.
	Vout uint32
	// Pointer receives the alkanes of a successful message,
	// RefundPointer the incoming alkanes of a reverted one.
	Pointer       uint32
	RefundPointer uint32
}

// MessageSource decodes the protocol payloads of a transaction. Runestone and
// protostone parsing live behind it.
type MessageSource interface {
	fuel.MessageScanner
	Protomessages(tx *wire.MsgTx) []Protomessage
	// Envelope returns the binary revealed by the first input, nil if none.
	Envelope(tx *wire.MsgTx) []byte
}

// Outcome is what a handled message leaves for the output layer.
type Outcome struct {
	Outpoint wire.OutPoint
	TxIndex  uint32
	// Pointer is the output Transfers go to.
	Pointer   uint32
	Transfers []contract.RuneTransfer
	Response  *contract.CallResponse
	// Err is the reason of a revert.
	Err      error
	FuelUsed uint64
}

// Reverted reports whether the message was rolled back.
func (o *Outcome) Reverted() bool {
	return o.Err != nil
}

// BlockSummary lists the outcomes of a block in processing order.
type BlockSummary struct {
	Height       uint64
	Outcomes     []*Outcome
	FuelConsumed uint64
}
