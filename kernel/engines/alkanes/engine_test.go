package alkanes

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xconf "github.com/alkanes/alkanescore/kernel/common/xconfig"
	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/bridge"
	"github.com/alkanes/alkanescore/kernel/contract/fuel"
	"github.com/alkanes/alkanescore/kernel/contract/mock"
	"github.com/alkanes/alkanescore/kernel/contract/sandbox"
	"github.com/alkanes/alkanescore/kernel/contract/trace"
	"github.com/alkanes/alkanescore/kernel/engines"
	"github.com/alkanes/alkanescore/lib/storage/kvdb"
	_ "github.com/alkanes/alkanescore/lib/storage/kvdb/leveldb"
)

// fakeSource serves messages and envelopes keyed by txid.
type fakeSource struct {
	messages  map[chainhash.Hash][]engines.Protomessage
	envelopes map[chainhash.Hash][]byte
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		messages:  make(map[chainhash.Hash][]engines.Protomessage),
		envelopes: make(map[chainhash.Hash][]byte),
	}
}

func (s *fakeSource) Messages(tx *wire.MsgTx) [][]byte {
	var out [][]byte
	for _, m := range s.messages[tx.TxHash()] {
		if m.ProtocolTag == ProtocolTag {
			out = append(out, m.Calldata)
		}
	}
	return out
}

func (s *fakeSource) Protomessages(tx *wire.MsgTx) []engines.Protomessage {
	return s.messages[tx.TxHash()]
}

func (s *fakeSource) Envelope(tx *wire.MsgTx) []byte {
	return s.envelopes[tx.TxHash()]
}

func newTx(seed byte) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{seed}},
		Witness:          wire.TxWitness{{seed, 0x01, 0x02, 0x03}},
	})
	tx.AddTxOut(wire.NewTxOut(546, []byte{0x51}))
	return tx
}

type engineEnv struct {
	t      *testing.T
	db     kvdb.Database
	source *fakeSource
	engine *Engine
}

func newEngineEnv(t *testing.T, activation uint64) *engineEnv {
	db, err := kvdb.CreateKVInstance(&kvdb.KVParameter{
		KVEngineType: kvdb.KVEngineTypeLDB,
		InMemory:     true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conf := xconf.GetDefAlkanesConf()
	conf.Network = "regtest"
	conf.Engine = mock.DriverName
	conf.ActivationHeight = activation
	conf.Storage.InMemory = true

	source := newFakeSource()
	eng, err := engines.CreateBCEngine(EngineName, &engines.EngineEnv{
		Conf:   conf,
		DB:     db,
		Source: source,
	})
	require.NoError(t, err)
	t.Cleanup(eng.Exit)
	return &engineEnv{t: t, db: db, source: source, engine: eng.(*Engine)}
}

func (e *engineEnv) storage(id contract.ContractId, key string) []byte {
	v, err := bridge.StoragePointer(sandbox.NewDBModel(e.db), id, []byte(key)).Get()
	require.NoError(e.t, err)
	return v
}

func TestProcessBlockDeploys(t *testing.T) {
	env := newEngineEnv(t, 0)
	bin := mock.Default.Define("engine-deploy", func(e *mock.Env) (*contract.CallResponse, error) {
		e.Burn(5000)
		return &contract.CallResponse{Storage: contract.StorageMap{"/init": []byte{1}}}, nil
	})

	deploy := newTx(1)
	env.source.messages[deploy.TxHash()] = []engines.Protomessage{
		{ProtocolTag: ProtocolTag, Calldata: calldata(1, 0), Vout: 3},
	}
	env.source.envelopes[deploy.TxHash()] = bin
	other := newTx(2)

	block := wire.NewMsgBlock(&wire.BlockHeader{})
	require.NoError(t, block.AddTransaction(deploy))
	require.NoError(t, block.AddTransaction(other))

	summary, err := env.engine.ProcessBlock(context.Background(), 100, block)
	require.NoError(t, err)
	require.Len(t, summary.Outcomes, 1)
	out := summary.Outcomes[0]
	assert.False(t, out.Reverted())
	assert.Equal(t, wire.OutPoint{Hash: deploy.TxHash(), Index: 3}, out.Outpoint)
	assert.NotZero(t, summary.FuelConsumed)

	created := contract.NewContractId(2, 0)
	assert.Equal(t, []byte{1}, env.storage(created, "/init"))
	seq, err := bridge.CurrentSequence(sandbox.NewDBModel(env.db))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq.Uint64())

	tr, err := trace.NewKVSink(env.db).Load(out.Outpoint)
	require.NoError(t, err)
	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, trace.ReturnContext, last.Kind)

	assert.Equal(t, fuel.Ready, env.engine.Tank().State())
	assert.LessOrEqual(t, env.engine.Tank().BlockFuel(), fuel.TotalFuelMainnet-summary.FuelConsumed)
}

func TestProcessBlockRevertLeavesNoState(t *testing.T) {
	env := newEngineEnv(t, 0)
	bin := mock.Default.Define("engine-fail", func(e *mock.Env) (*contract.CallResponse, error) {
		return nil, contract.ErrVMTrap
	})
	tx := newTx(3)
	env.source.messages[tx.TxHash()] = []engines.Protomessage{
		{ProtocolTag: ProtocolTag, Calldata: calldata(1, 0), RefundPointer: 1},
	}
	env.source.envelopes[tx.TxHash()] = bin
	block := wire.NewMsgBlock(&wire.BlockHeader{})
	require.NoError(t, block.AddTransaction(tx))

	summary, err := env.engine.ProcessBlock(context.Background(), 5, block)
	require.NoError(t, err)
	require.Len(t, summary.Outcomes, 1)
	assert.True(t, summary.Outcomes[0].Reverted())
	assert.Equal(t, uint32(1), summary.Outcomes[0].Pointer)

	v, err := bridge.BinaryPointer(sandbox.NewDBModel(env.db), contract.NewContractId(2, 0)).Get()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestProcessBlockAbortKeepsNoTrace(t *testing.T) {
	env := newEngineEnv(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	abort := true
	bin := mock.Default.Define("engine-abort", func(e *mock.Env) (*contract.CallResponse, error) {
		if abort {
			cancel()
		}
		return &contract.CallResponse{}, nil
	})
	first := newTx(6)
	env.source.messages[first.TxHash()] = []engines.Protomessage{
		{ProtocolTag: ProtocolTag, Calldata: calldata(1, 0)},
	}
	env.source.envelopes[first.TxHash()] = bin
	block := wire.NewMsgBlock(&wire.BlockHeader{})
	require.NoError(t, block.AddTransaction(first))
	require.NoError(t, block.AddTransaction(newTx(7)))

	_, err := env.engine.ProcessBlock(ctx, 20, block)
	assert.ErrorIs(t, err, context.Canceled)

	sink := trace.NewKVSink(env.db)
	ops, err := sink.OutpointsAt(20)
	require.NoError(t, err)
	assert.Empty(t, ops)
	_, err = sink.Load(wire.OutPoint{Hash: first.TxHash()})
	assert.Error(t, err)

	abort = false
	summary, err := env.engine.ProcessBlock(context.Background(), 20, block)
	require.NoError(t, err)
	require.Len(t, summary.Outcomes, 1)
	ops, err = sink.OutpointsAt(20)
	require.NoError(t, err)
	assert.Equal(t, []wire.OutPoint{{Hash: first.TxHash()}}, ops)
}

func TestProcessBlockBeforeActivation(t *testing.T) {
	env := newEngineEnv(t, 1000)
	tx := newTx(4)
	env.source.messages[tx.TxHash()] = []engines.Protomessage{
		{ProtocolTag: ProtocolTag, Calldata: calldata(2, 1)},
	}
	block := wire.NewMsgBlock(&wire.BlockHeader{})
	require.NoError(t, block.AddTransaction(tx))

	summary, err := env.engine.ProcessBlock(context.Background(), 999, block)
	require.NoError(t, err)
	assert.Empty(t, summary.Outcomes)
	assert.Equal(t, fuel.Uninitialized, env.engine.Tank().State())
}

func TestProcessBlockAfterExit(t *testing.T) {
	env := newEngineEnv(t, 0)
	env.engine.Exit()
	env.engine.Exit()
	_, err := env.engine.ProcessBlock(context.Background(), 1, wire.NewMsgBlock(&wire.BlockHeader{}))
	assert.Error(t, err)
}

func TestCreateBCEngineRejects(t *testing.T) {
	env := newEngineEnv(t, 0)
	_, err := engines.CreateBCEngine("nope", &engines.EngineEnv{
		Conf:   xconf.GetDefAlkanesConf(),
		DB:     env.db,
		Source: env.source,
	})
	assert.Error(t, err)

	_, err = engines.CreateBCEngine(EngineName, &engines.EngineEnv{
		Conf:   xconf.GetDefAlkanesConf(),
		Source: env.source,
	})
	assert.Error(t, err)
	assert.Contains(t, engines.Engines(), EngineName)
}

func TestEngineOpensLogAndMetrics(t *testing.T) {
	db, err := kvdb.CreateKVInstance(&kvdb.KVParameter{
		KVEngineType: kvdb.KVEngineTypeLDB,
		InMemory:     true,
	})
	require.NoError(t, err)
	defer db.Close()

	logDir := t.TempDir()
	logConf := filepath.Join(t.TempDir(), "log.yaml")
	require.NoError(t, os.WriteFile(logConf, []byte(
		"module: alkanes\nfilepath: "+logDir+"\nfilename: engine\nlevel: info\nconsoleOnly: false\nrotateInterval: 0\n"), 0644))

	conf := xconf.GetDefAlkanesConf()
	conf.Network = "regtest"
	conf.Engine = mock.DriverName
	conf.LogConf = logConf
	conf.Metrics.Enabled = true
	conf.Metrics.Listen = "127.0.0.1:0"

	eng, err := engines.CreateBCEngine(EngineName, &engines.EngineEnv{
		Conf:   conf,
		DB:     db,
		Source: newFakeSource(),
	})
	require.NoError(t, err)
	engine := eng.(*Engine)
	require.NotNil(t, engine.metrics)

	_, err = engine.ProcessBlock(context.Background(), 1, wire.NewMsgBlock(&wire.BlockHeader{}))
	require.NoError(t, err)
	resp, err := http.Get("http://" + engine.metrics.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `alkanes_block_height{network="regtest"} 1`)

	eng.Exit()
	_, err = http.Get("http://" + engine.metrics.Addr() + "/metrics")
	assert.Error(t, err)

	logged, err := os.ReadFile(filepath.Join(logDir, "engine.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logged), "alkanes engine init")
}
