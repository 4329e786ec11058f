package alkanes

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"

	"github.com/alkanes/alkanescore/kernel/common/xcontext"
	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/bridge"
	"github.com/alkanes/alkanescore/kernel/contract/fuel"
	"github.com/alkanes/alkanescore/kernel/contract/sandbox"
	"github.com/alkanes/alkanescore/kernel/contract/trace"
	"github.com/alkanes/alkanescore/kernel/engines"
	"github.com/alkanes/alkanescore/lib/metrics"
)

// ProtocolTag identifies alkanes messages among protostones.
const ProtocolTag = 1

// ErrForeignProtocol is returned for messages of another subprotocol.
var ErrForeignProtocol = errors.New("not an alkanes message")

// Dispatcher turns protocol messages into top-level executions.
type Dispatcher struct {
	bridge     *bridge.XBridge
	network    string
	activation uint64
	// nil when tracing is off
	sink trace.Sink
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Bridge     *bridge.XBridge
	Network    string
	Activation uint64
	Sink       trace.Sink
}

func NewDispatcher(cfg *DispatcherConfig) (*Dispatcher, error) {
	if cfg.Bridge == nil {
		return nil, errors.New("dispatcher needs a bridge")
	}
	return &Dispatcher{
		bridge:     cfg.Bridge,
		network:    cfg.Network,
		activation: cfg.Activation,
		sink:       cfg.Sink,
	}, nil
}

// MessageInput is one message with the state it runs against.
type MessageInput struct {
	Message engines.Protomessage
	TxHash  chainhash.Hash
	TxIndex uint32
	Height  uint64
	// Binary is the envelope of the transaction, for deploys.
	Binary []byte
	// Atomic receives the writes of a successful message.
	Atomic *sandbox.Overlay
	Tank   *fuel.Tank
}

// Outpoint names the trace of the message: the txid and its virtual vout.
func (in *MessageInput) Outpoint() wire.OutPoint {
	return wire.OutPoint{Hash: in.TxHash, Index: in.Message.Vout}
}

// HandleMessage executes one message. A reverted message is an Outcome with
// Err set; the returned error is for messages that must not be handled at
// all and for failures of the store itself.
func (d *Dispatcher) HandleMessage(xctx xcontext.XContext, in *MessageInput) (*engines.Outcome, error) {
	if in.Height < d.activation {
		return nil, errors.Wrapf(contract.ErrSubprotocolInactive, "height %d below activation %d", in.Height, d.activation)
	}
	if in.Message.ProtocolTag != ProtocolTag {
		return nil, errors.Wrapf(ErrForeignProtocol, "protocol tag %d", in.Message.ProtocolTag)
	}
	begin := time.Now()
	xlog := xctx.GetLog()
	tr := trace.New()

	out, err := d.execute(in, tr)
	if err != nil {
		return nil, err
	}
	xctx.GetTimer().Mark("execute")

	if d.sink != nil {
		if err := d.sink.Persist(in.Atomic, in.Outpoint(), in.Height, tr); err != nil {
			return nil, errors.Wrap(err, "persist trace")
		}
		xctx.GetTimer().Mark("trace")
	}

	result := "ok"
	if out.Reverted() {
		result = contract.ErrorKind(out.Err)
	}
	metrics.MessageCounter.WithLabelValues(d.network, result).Inc()
	metrics.MessageHistogram.WithLabelValues(d.network).Observe(time.Since(begin).Seconds())
	metrics.FuelConsumedCounter.WithLabelValues(d.network).Add(float64(out.FuelUsed))

	if out.Reverted() {
		xlog.Info("message reverted", "outpoint", in.Outpoint(), "height", in.Height,
			"fuel", out.FuelUsed, "err", out.Err, "timer", xctx.GetTimer().Print())
	} else {
		xlog.Info("message handled", "outpoint", in.Outpoint(), "height", in.Height,
			"fuel", out.FuelUsed, "alkanes", len(out.Transfers), "timer", xctx.GetTimer().Print())
	}
	return out, nil
}

func (d *Dispatcher) execute(in *MessageInput, tr *trace.Trace) (*engines.Outcome, error) {
	msg := in.Message
	out := &engines.Outcome{
		Outpoint: in.Outpoint(),
		TxIndex:  in.TxIndex,
	}
	revert := func(err error) *engines.Outcome {
		out.Err = err
		out.Pointer = msg.RefundPointer
		out.Transfers = msg.Incoming
		return out
	}

	cp, err := contract.DecodeCellpack(msg.Calldata)
	if err != nil {
		enter := trace.Event{
			Kind: trace.EnterCall,
			Context: &trace.Context{
				Inner: contract.CallFrame{Incoming: msg.Incoming, Vout: msg.Vout},
				Fuel:  in.Tank.TransactionFuel(),
			},
		}
		if cerr := tr.Clock(enter); cerr != nil {
			return nil, errors.Wrap(cerr, "trace decode failure")
		}
		if cerr := tr.Clock(trace.Event{
			Kind:     trace.RevertContext,
			Response: &trace.Response{Data: contract.RevertPayload(err), FuelUsed: trace.RevertFuelUsed},
		}); cerr != nil {
			return nil, errors.Wrap(cerr, "trace decode failure")
		}
		return revert(err), nil
	}

	runtime, err := LoadRuntimeBalances(in.Atomic)
	if err != nil {
		return nil, err
	}
	start := in.Tank.BlockConsumed()
	res, err := d.bridge.Execute(&bridge.Message{
		Cellpack:        cp,
		Incoming:        msg.Incoming,
		Vout:            msg.Vout,
		Height:          in.Height,
		Binary:          in.Binary,
		Atomic:          in.Atomic,
		RuntimeBalances: runtime,
		Tank:            in.Tank,
		Trace:           tr,
	})
	out.FuelUsed = in.Tank.BlockConsumed() - start
	if err != nil {
		return revert(err), nil
	}
	if err := storeRuntimeBalances(in.Atomic, res.Sheet); err != nil {
		return nil, err
	}
	out.Pointer = msg.Pointer
	out.Transfers = res.Response.Alkanes
	out.Response = res.Response
	return out, nil
}
