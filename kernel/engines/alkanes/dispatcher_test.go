package alkanes

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alkanes/alkanescore/kernel/common/xcontext"
	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/bridge"
	"github.com/alkanes/alkanescore/kernel/contract/fuel"
	"github.com/alkanes/alkanescore/kernel/contract/mock"
	"github.com/alkanes/alkanescore/kernel/contract/sandbox"
	"github.com/alkanes/alkanescore/kernel/contract/trace"
	"github.com/alkanes/alkanescore/kernel/engines"
	"github.com/alkanes/alkanescore/lib/logs"
)

var (
	vault = contract.NewContractId(2, 1)
	token = contract.NewContractId(2, 9)
)

type dispatchEnv struct {
	t          *testing.T
	dispatcher *Dispatcher
	root       *sandbox.Overlay
	tank       *fuel.Tank
}

func newDispatchEnv(t *testing.T, activation uint64, sink trace.Sink) *dispatchEnv {
	b, err := bridge.New(&bridge.XBridgeConfig{
		Driver:  mock.DriverName,
		Exec:    contract.DefaultExecConfig(),
		Network: "regtest",
	})
	require.NoError(t, err)
	d, err := NewDispatcher(&DispatcherConfig{
		Bridge:     b,
		Network:    "regtest",
		Activation: activation,
		Sink:       sink,
	})
	require.NoError(t, err)
	tank := fuel.NewTank(fuel.TotalFuelMainnet)
	tank.Initialize(1000)
	tank.FuelTransaction(1000, 0)
	return &dispatchEnv{t: t, dispatcher: d, root: sandbox.NewOverlay(nil), tank: tank}
}

func (e *dispatchEnv) handle(height uint64, msg engines.Protomessage) (*engines.Outcome, error) {
	xctx, err := xcontext.NewBaseCtx(nil, logs.NewDiscardLogger())
	require.NoError(e.t, err)
	return e.dispatcher.HandleMessage(xctx, &MessageInput{
		Message: msg,
		TxHash:  chainhash.Hash{0x42},
		Height:  height,
		Atomic:  e.root,
		Tank:    e.tank,
	})
}

func (e *dispatchEnv) runtime(id contract.AssetId) uint64 {
	sheet, err := LoadRuntimeBalances(e.root)
	require.NoError(e.t, err)
	v := sheet.Get(id)
	return v.Uint64()
}

func calldata(block, tx uint64, inputs ...uint64) []byte {
	cp := &contract.Cellpack{Target: contract.ParseTarget(contract.NewContractId(block, tx))}
	for _, v := range inputs {
		cp.Inputs = append(cp.Inputs, contract.U128(v))
	}
	return cp.Encode()
}

func TestHandleBelowActivation(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mock.NewMockSink(ctrl)
	env := newDispatchEnv(t, 880_000, sink)

	_, err := env.handle(879_999, engines.Protomessage{ProtocolTag: ProtocolTag, Calldata: calldata(2, 1)})
	assert.ErrorIs(t, err, contract.ErrSubprotocolInactive)
	assert.Equal(t, fuel.TotalFuelMainnet, env.tank.TransactionFuel())
}

func TestHandleForeignProtocol(t *testing.T) {
	env := newDispatchEnv(t, 0, nil)
	_, err := env.handle(1, engines.Protomessage{ProtocolTag: 2, Calldata: calldata(2, 1)})
	assert.ErrorIs(t, err, ErrForeignProtocol)
}

func TestHandleDecodeError(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mock.NewMockSink(ctrl)
	env := newDispatchEnv(t, 0, sink)

	var persisted *trace.Trace
	sink.EXPECT().
		Persist(env.root, wire.OutPoint{Hash: chainhash.Hash{0x42}, Index: 5}, uint64(10), gomock.Any()).
		DoAndReturn(func(_ sandbox.Store, _ wire.OutPoint, _ uint64, tr *trace.Trace) error {
			persisted = tr
			return nil
		})

	incoming := []contract.RuneTransfer{contract.NewRuneTransfer(token, 70)}
	out, err := env.handle(10, engines.Protomessage{
		ProtocolTag:   ProtocolTag,
		Calldata:      []byte{0x02},
		Incoming:      incoming,
		Vout:          5,
		Pointer:       0,
		RefundPointer: 1,
	})
	require.NoError(t, err)
	assert.True(t, out.Reverted())
	assert.ErrorIs(t, out.Err, contract.ErrDecode)
	assert.Equal(t, uint32(1), out.Pointer)
	assert.Equal(t, incoming, out.Transfers)

	require.NotNil(t, persisted)
	events := persisted.Events()
	require.Len(t, events, 2)
	assert.Equal(t, trace.EnterCall, events[0].Kind)
	assert.Equal(t, trace.RevertContext, events[1].Kind)
	assert.Equal(t, uint64(trace.RevertFuelUsed), events[1].Response.FuelUsed)
}

func TestDecodeErrorOnSealedTrace(t *testing.T) {
	env := newDispatchEnv(t, 0, nil)
	tr := trace.New()
	tr.Seal()
	out, err := env.dispatcher.execute(&MessageInput{
		Message: engines.Protomessage{ProtocolTag: ProtocolTag, Calldata: []byte{0x02}},
		TxHash:  chainhash.Hash{0x42},
		Height:  10,
		Atomic:  env.root,
		Tank:    env.tank,
	}, tr)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, trace.ErrSealed)
}

func TestHandleRuntimeBalances(t *testing.T) {
	env := newDispatchEnv(t, 0, nil)
	require.NoError(t, bridge.BinaryPointer(env.root, vault).Set(mock.Default.Define("dispatch-vault", func(e *mock.Env) (*contract.CallResponse, error) {
		e.Burn(100)
		frame := e.Frame()
		if len(frame.Inputs) == 0 {
			return &contract.CallResponse{}, nil
		}
		return &contract.CallResponse{Alkanes: []contract.RuneTransfer{
			{Id: token, Value: frame.Inputs[0]},
		}}, nil
	})))

	// unclaimed incoming alkanes stay with the runtime
	out, err := env.handle(1, engines.Protomessage{
		ProtocolTag: ProtocolTag,
		Calldata:    calldata(2, 1),
		Incoming:    []contract.RuneTransfer{contract.NewRuneTransfer(token, 500)},
		Pointer:     2,
	})
	require.NoError(t, err)
	require.False(t, out.Reverted())
	assert.Empty(t, out.Transfers)
	assert.Equal(t, uint64(500), env.runtime(token))

	// a later message draws on them
	out, err = env.handle(1, engines.Protomessage{
		ProtocolTag: ProtocolTag,
		Calldata:    calldata(2, 1, 200),
		Pointer:     2,
	})
	require.NoError(t, err)
	require.False(t, out.Reverted())
	assert.Equal(t, uint32(2), out.Pointer)
	assert.Equal(t, []contract.RuneTransfer{contract.NewRuneTransfer(token, 200)}, out.Transfers)
	assert.Equal(t, uint64(300), env.runtime(token))
	assert.NotZero(t, out.FuelUsed)

	// asking for more than is left reverts and leaves the runtime alone
	out, err = env.handle(1, engines.Protomessage{
		ProtocolTag:   ProtocolTag,
		Calldata:      calldata(2, 1, 1000),
		RefundPointer: 3,
	})
	require.NoError(t, err)
	assert.True(t, out.Reverted())
	assert.ErrorIs(t, out.Err, contract.ErrInsufficientBalance)
	assert.Equal(t, uint32(3), out.Pointer)
	assert.Equal(t, uint64(300), env.runtime(token))
}
