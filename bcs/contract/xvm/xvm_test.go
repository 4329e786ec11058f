package xvm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/bridge"
	"github.com/alkanes/alkanescore/kernel/contract/fuel"
	"github.com/alkanes/alkanescore/kernel/contract/sandbox"
	"github.com/alkanes/alkanescore/kernel/contract/trace"
)

// emptyModule exports __execute returning a pointer to an encoded empty
// response and one page of memory.
var emptyModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type: () -> i32
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f,
	// function
	0x03, 0x02, 0x01, 0x00,
	// memory: one page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export __execute, memory
	0x07, 0x16, 0x02,
	0x09, '_', '_', 'e', 'x', 'e', 'c', 'u', 't', 'e', 0x00, 0x00,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	// code: i32.const 4
	0x0a, 0x06, 0x01, 0x04, 0x00, 0x41, 0x04, 0x0b,
	// data: 20 byte arraybuffer at 4
	0x0b, 0x0a, 0x01, 0x00, 0x41, 0x00, 0x0b, 0x04, 0x14, 0x00, 0x00, 0x00,
}

func execute(t *testing.T, binary []byte) (*bridge.Result, *trace.Trace, error) {
	return executeWith(t, binary, fuel.TotalFuelMainnet, nil)
}

// executeWith runs binary as [2,1] on a fresh store. seed, if set, fills the
// store before the call, and totalFuel is the block allocation.
func executeWith(t *testing.T, binary []byte, totalFuel uint64, seed func(root *sandbox.Overlay, target contract.ContractId)) (*bridge.Result, *trace.Trace, error) {
	b, err := bridge.New(&bridge.XBridgeConfig{
		Driver:  DriverName,
		Exec:    contract.DefaultExecConfig(),
		Network: "regtest",
	})
	require.NoError(t, err)

	root := sandbox.NewOverlay(nil)
	target := contract.NewContractId(2, 1)
	require.NoError(t, bridge.BinaryPointer(root, target).Set(binary))
	if seed != nil {
		seed(root, target)
	}

	tank := fuel.NewTank(totalFuel)
	tank.Initialize(1000)
	tank.FuelTransaction(1000, 0)
	tr := trace.New()
	res, err := b.Execute(&bridge.Message{
		Cellpack: &contract.Cellpack{Target: contract.ParseTarget(target)},
		Height:   880_000,
		Atomic:   root,
		Tank:     tank,
		Trace:    tr,
	})
	return res, tr, err
}

func TestExecuteEmptyResponse(t *testing.T) {
	res, tr, err := execute(t, emptyModule)
	require.NoError(t, err)
	assert.Empty(t, res.Response.Alkanes)
	assert.Empty(t, res.Response.Data)

	events := tr.Events()
	require.Len(t, events, 2)
	assert.Equal(t, trace.EnterCall, events[0].Kind)
	assert.Equal(t, trace.ReturnContext, events[1].Kind)
}

func TestExecuteGarbage(t *testing.T) {
	_, tr, err := execute(t, []byte("not a wasm module"))
	assert.ErrorIs(t, err, contract.ErrDecode)
	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, trace.RevertContext, last.Kind)
}

func TestValidateModule(t *testing.T) {
	assert.NoError(t, validateModule(emptyModule))
	assert.ErrorIs(t, validateModule(emptyModule[:8]), contract.ErrDecode)
}

func TestArrayBuffer(t *testing.T) {
	mem := make([]byte, 32)
	require.NoError(t, writeArrayBuffer(mem, 8, []byte("abc")))
	assert.Equal(t, []byte{3, 0, 0, 0}, mem[4:8])
	buf, err := readArrayBuffer(mem, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), buf)

	assert.ErrorIs(t, writeArrayBuffer(mem, 30, []byte("abc")), contract.ErrVMTrap)
	_, err = readArrayBuffer(mem, 2)
	assert.ErrorIs(t, err, contract.ErrVMTrap)
	mem[28] = 0xff
	_, err = readArrayBuffer(mem, 32)
	assert.ErrorIs(t, err, contract.ErrVMTrap)
}

func TestDecodeWords(t *testing.T) {
	cp := &contract.Cellpack{
		Target: contract.ParseTarget(contract.NewContractId(2, 7)),
		Inputs: []uint256.Int{contract.U128(99)},
	}
	var buf []byte
	for _, w := range cp.Words() {
		w := w
		buf = contract.AppendUint128(buf, &w)
	}
	words, err := decodeWords(buf)
	require.NoError(t, err)
	back, err := contract.CellpackFromWords(words)
	require.NoError(t, err)
	assert.Equal(t, cp.Target, back.Target)
	assert.Equal(t, cp.Inputs, back.Inputs)

	_, err = decodeWords(buf[:20])
	assert.ErrorIs(t, err, contract.ErrDecode)
}
