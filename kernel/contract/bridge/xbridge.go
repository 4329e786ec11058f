package bridge

import (
	"github.com/gammazero/deque"
	"github.com/pkg/errors"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/balance"
	"github.com/alkanes/alkanescore/kernel/contract/fuel"
	"github.com/alkanes/alkanescore/kernel/contract/sandbox"
	"github.com/alkanes/alkanescore/kernel/contract/trace"
	"github.com/alkanes/alkanescore/lib/logs"
	"github.com/alkanes/alkanescore/lib/metrics"
)

// XBridge 连接合约执行引擎与索引状态，负责嵌套调用的调度
type XBridge struct {
	ctxmgr  *ContextManager
	creator InstanceCreator
	config  contract.ExecConfig
	network string
	logger  logs.Logger
}

type XBridgeConfig struct {
	// Driver is the registered engine driver name.
	Driver        string
	CodeCacheSize int
	Exec          contract.ExecConfig
	// Network labels metrics.
	Network string
	Logger  logs.Logger
}

// New instances a new XBridge
func New(cfg *XBridgeConfig) (*XBridge, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logs.NewDiscardLogger()
	}
	execCfg := cfg.Exec
	if execCfg.MaxCallDepth <= 0 {
		execCfg.MaxCallDepth = contract.DefaultMaxCallDepth
	}
	ctxmgr := NewContextManager()
	creator, err := Open(cfg.Driver, &InstanceCreatorConfig{
		ContextManager: ctxmgr,
		CodeCacheSize:  cfg.CodeCacheSize,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	return &XBridge{
		ctxmgr:  ctxmgr,
		creator: creator,
		config:  execCfg,
		network: cfg.Network,
		logger:  logger,
	}, nil
}

// ContextManager is shared with the engine driver.
func (b *XBridge) ContextManager() *ContextManager {
	return b.ctxmgr
}

// Config returns the execution limits in force.
func (b *XBridge) Config() contract.ExecConfig {
	return b.config
}

// Message is one top-level invocation.
type Message struct {
	Cellpack *contract.Cellpack
	// Incoming are the alkanes the protocol message hands to the target.
	Incoming []contract.RuneTransfer
	Vout     uint32
	Height   uint64
	// Binary is the payload attached to the transaction, used by deploys.
	Binary []byte
	// Atomic receives the writes of a successful execution.
	Atomic *sandbox.Overlay
	// RuntimeBalances is what the message can draw on besides Incoming.
	RuntimeBalances *balance.Sheet
	Tank            *fuel.Tank
	Trace           *trace.Trace
}

// Result is the outcome of a successful top-level execution.
type Result struct {
	Response *contract.CallResponse
	// Sheet is what remains of incoming plus runtime balances after the
	// returned alkanes were taken out.
	Sheet    *balance.Sheet
	FuelUsed uint64
}

// execution is the state shared by every frame of one message.
type execution struct {
	msg *Message
	// active sessions, innermost at the back
	frames deque.Deque
}

func (ex *execution) top() *Session {
	if ex.frames.Len() == 0 {
		return nil
	}
	return ex.frames.Back().(*Session)
}

type outcome struct {
	response *contract.CallResponse
	combined *balance.Sheet
}

// Execute runs a message. On error nothing was written to msg.Atomic and the
// trace ends with a revert.
func (b *XBridge) Execute(msg *Message) (*Result, error) {
	if msg.Trace == nil {
		msg.Trace = trace.New()
	}
	if msg.RuntimeBalances == nil {
		msg.RuntimeBalances = balance.NewSheet()
	}
	ex := &execution{msg: msg}
	start := msg.Tank.BlockConsumed()
	out, err := b.call(ex, contract.CallKindCall, msg.Cellpack, msg.Incoming)
	if err != nil {
		if b.config.DrainPolicy == contract.DrainOnMessageRevert {
			msg.Tank.DrainFuel()
		}
		return nil, err
	}
	return &Result{
		Response: out.response,
		Sheet:    out.combined,
		FuelUsed: msg.Tank.BlockConsumed() - start,
	}, nil
}

// call runs one frame on top of the active one, or as the top-level frame.
func (b *XBridge) call(ex *execution, kind contract.CallKind, cp *contract.Cellpack, incoming []contract.RuneTransfer) (*outcome, error) {
	msg := ex.msg
	parent := ex.top()
	scope := msg.Atomic
	frame := contract.CallFrame{
		Myself:   cp.Target.Id,
		Inputs:   cp.Inputs,
		Incoming: incoming,
		Vout:     msg.Vout,
		Kind:     kind,
	}
	if parent != nil {
		scope = parent.overlay
		frame.Caller = parent.Myself()
		frame.Depth = parent.ctx.Runtime.Depth() + 1
	}

	ctx := b.ctxmgr.MakeContext()
	defer b.ctxmgr.DestroyContext(ctx)
	ctx.Target = cp.Target
	ctx.FuelLimit = msg.Tank.TransactionFuel()
	ctx.Logger = b.logger
	ctx.Runtime = contract.NewRuntimeContext(frame)
	sess := &Session{
		bridge:   b,
		exec:     ex,
		ctx:      ctx,
		overlay:  scope.Derive(),
		received: balance.NewSheet(),
	}
	startConsumed := msg.Tank.BlockConsumed()

	entered := false
	enter := func() error {
		entered = true
		ex.frames.PushBack(sess)
		metrics.CallCounter.WithLabelValues(b.network, kind.String()).Inc()
		metrics.CallDepthHistogram.WithLabelValues(b.network).Observe(float64(ctx.Runtime.Depth()))
		return msg.Trace.Clock(trace.Event{
			Kind: trace.EnterKind(kind),
			Context: &trace.Context{
				Inner:  ctx.Runtime.Frame(),
				Target: cp.Target.Id,
				Fuel:   ctx.FuelLimit,
			},
		})
	}
	defer func() {
		if entered {
			ex.frames.PopBack()
		}
	}()

	out, err := b.run(sess, parent, scope, cp, enter)
	if err == nil {
		if kind == contract.CallKindStatic {
			sess.overlay.Discard()
		} else {
			err = sess.overlay.Merge()
		}
	}
	if err != nil {
		sess.overlay.Discard()
		if !entered {
			if enterErr := enter(); enterErr != nil {
				return nil, enterErr
			}
		}
		b.logger.Debug("call reverted", "target", cp.Target.Id, "myself", ctx.Runtime.Myself(),
			"depth", ctx.Runtime.Depth(), "kind", kind, "err", err)
		if clockErr := msg.Trace.Clock(trace.Event{
			Kind: trace.RevertContext,
			Response: &trace.Response{
				Data:     contract.RevertPayload(err),
				FuelUsed: trace.RevertFuelUsed,
			},
		}); clockErr != nil {
			return nil, clockErr
		}
		if b.config.DrainPolicy == contract.DrainOnCallRevert {
			msg.Tank.DrainFuel()
		}
		return nil, err
	}

	if err := msg.Trace.Clock(trace.Event{
		Kind: trace.ReturnContext,
		Response: &trace.Response{
			Alkanes:  out.response.Alkanes,
			Data:     out.response.Data,
			FuelUsed: msg.Tank.BlockConsumed() - startConsumed,
		},
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// run resolves, executes and settles one frame inside sess.overlay. enter is
// called once the id the frame runs as is known.
func (b *XBridge) run(sess *Session, parent *Session, scope *sandbox.Overlay, cp *contract.Cellpack, enter func() error) (*outcome, error) {
	msg := sess.exec.msg
	ctx := sess.ctx
	frame := ctx.Runtime.Frame()

	if frame.Depth > b.config.MaxCallDepth {
		return nil, errors.Wrapf(contract.ErrCallDepthExceeded, "depth %d exceeds %d", frame.Depth, b.config.MaxCallDepth)
	}
	if frame.Kind != contract.CallKindCall && len(frame.Incoming) > 0 {
		return nil, errors.Wrapf(contract.ErrVMTrap, "%s cannot carry alkanes", frame.Kind)
	}

	var binary []byte
	switch frame.Kind {
	case contract.CallKindDelegate:
		if parent == nil || cp.Target.IsDeploy() {
			return nil, errors.Wrapf(contract.ErrUnresolvedTarget, "delegatecall to %s", cp.Target.Id)
		}
		code, err := LoadBinary(sess.overlay, cp.Target.Id)
		if err != nil {
			return nil, err
		}
		if len(code) == 0 {
			return nil, errors.Wrapf(contract.ErrUnresolvedTarget, "no binary at %s", cp.Target.Id)
		}
		binary = code
		caller := parent.Frame()
		frame.Myself = caller.Myself
		frame.Caller = caller.Caller
	default:
		r, err := resolveTarget(sess.overlay, cp.Target, msg.Binary, msg.Trace)
		if err != nil {
			return nil, err
		}
		binary = r.binary
		frame.Myself = r.myself
	}
	ctx.Runtime = contract.NewRuntimeContext(frame)
	if err := enter(); err != nil {
		return nil, err
	}

	if frame.Kind == contract.CallKindCall && len(frame.Incoming) > 0 {
		if parent != nil {
			if err := balance.Debit(sess.overlay, parent.Myself(), frame.Incoming); err != nil {
				return nil, err
			}
		}
		if err := balance.Credit(sess.overlay, frame.Myself, frame.Incoming); err != nil {
			return nil, err
		}
	}

	resp, err := b.invoke(sess, binary)
	if err != nil {
		return nil, err
	}

	if frame.Kind == contract.CallKindStatic {
		if len(resp.Alkanes) > 0 {
			return nil, errors.Wrap(contract.ErrVMTrap, "staticcall cannot return alkanes")
		}
		return &outcome{response: resp}, nil
	}

	storeCost, err := fuel.StoreFuel(resp.Storage.ByteSize())
	if err != nil {
		return nil, err
	}
	if err := sess.consume(storeCost); err != nil {
		return nil, err
	}
	if err := sess.saveStorage(resp.Storage); err != nil {
		return nil, err
	}

	combined, err := b.drawable(sess, parent, scope, resp.Alkanes)
	if err != nil {
		return nil, err
	}
	if err := balance.Reconcile(sess.overlay, frame.Myself, combined, resp.Alkanes); err != nil {
		return nil, err
	}
	return &outcome{response: resp, combined: combined}, nil
}

// invoke runs binary in the engine and settles the fuel it metered.
func (b *XBridge) invoke(sess *Session, binary []byte) (*contract.CallResponse, error) {
	sess.ctx.Session = sess
	instance, err := b.creator.CreateInstance(sess.ctx, binary)
	if err != nil {
		return nil, classify(err)
	}
	defer instance.Release()
	sess.ctx.Instance = instance

	resp, err := instance.Exec()
	syncErr := sess.Sync(instance.FuelUsed())
	if err != nil {
		return nil, classify(err)
	}
	if syncErr != nil {
		return nil, syncErr
	}
	if resp == nil {
		resp = &contract.CallResponse{}
	}
	return resp, nil
}

// drawable is what a frame may hand back: its incoming alkanes, what its
// sub-calls returned and its holdings before the call. The top-level frame
// holds the message's runtime balances; a nested frame holds its stored
// balances as they were before it was entered.
func (b *XBridge) drawable(sess *Session, parent *Session, scope *sandbox.Overlay, outgoing []contract.RuneTransfer) (*balance.Sheet, error) {
	frame := sess.ctx.Runtime.Frame()
	combined, err := balance.SheetFromTransfers(frame.Incoming)
	if err != nil {
		return nil, err
	}
	if err := sess.received.Pipe(combined); err != nil {
		return nil, err
	}
	if parent == nil {
		if err := sess.exec.msg.RuntimeBalances.Pipe(combined); err != nil {
			return nil, err
		}
		return combined, nil
	}
	seen := make(map[contract.AssetId]struct{}, len(outgoing))
	for i := range outgoing {
		if _, ok := seen[outgoing[i].Id]; ok {
			continue
		}
		seen[outgoing[i].Id] = struct{}{}
		held, err := balance.Of(scope, frame.Myself, outgoing[i].Id)
		if err != nil {
			return nil, err
		}
		if err := combined.Increase(outgoing[i].Id, &held); err != nil {
			return nil, err
		}
	}
	return combined, nil
}

// classify reports engine failures outside the known kinds as vm traps.
func classify(err error) error {
	if contract.ErrorKind(err) == "unknown" {
		return errors.Wrap(contract.ErrVMTrap, err.Error())
	}
	return err
}
