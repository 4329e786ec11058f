package alkanes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"

	"github.com/alkanes/alkanescore/kernel/common/xcontext"
	"github.com/alkanes/alkanescore/kernel/contract/bridge"
	"github.com/alkanes/alkanescore/kernel/contract/fuel"
	"github.com/alkanes/alkanescore/kernel/contract/sandbox"
	"github.com/alkanes/alkanescore/kernel/contract/trace"
	"github.com/alkanes/alkanescore/kernel/engines"
	"github.com/alkanes/alkanescore/lib/logs"
	"github.com/alkanes/alkanescore/lib/metrics"
	"github.com/alkanes/alkanescore/lib/storage/kvdb"
	"github.com/alkanes/alkanescore/lib/utils"
)

// EngineName is the name the block engine registers under.
const EngineName = "alkanes"

// Engine indexes blocks: it funds each transaction from the block's fuel,
// dispatches its messages and flushes the block's writes in one batch.
type Engine struct {
	mu         sync.Mutex
	network    string
	activation uint64
	db         kvdb.Database
	store      *sandbox.DBModel
	source     engines.MessageSource
	tank       *fuel.Tank
	dispatcher *Dispatcher
	log        logs.Logger
	// nil unless metrics are enabled
	metrics *metrics.Server
	exited  bool
}

var _ engines.BCEngine = (*Engine)(nil)

func NewEngine() engines.BCEngine {
	return &Engine{}
}

func (e *Engine) Init(env *engines.EngineEnv) error {
	conf := env.Conf
	xlog, err := env.OpenLog()
	if err != nil {
		return err
	}
	e.log = xlog
	xbridge, err := bridge.New(&bridge.XBridgeConfig{
		Driver:        conf.Engine,
		CodeCacheSize: conf.CodeCacheSize,
		Exec:          conf.ExecConfig(),
		Network:       conf.Network,
		Logger:        e.log,
	})
	if err != nil {
		return err
	}
	sink := env.Sink
	if sink == nil && conf.TraceEnabled {
		sink = trace.NewKVSink(env.DB)
	}
	e.dispatcher, err = NewDispatcher(&DispatcherConfig{
		Bridge:     xbridge,
		Network:    conf.Network,
		Activation: conf.Activation(),
		Sink:       sink,
	})
	if err != nil {
		return err
	}
	e.network = conf.Network
	e.activation = conf.Activation()
	e.db = env.DB
	e.store = sandbox.NewDBModel(env.DB)
	e.source = env.Source
	e.tank = fuel.NewTank(conf.BlockFuel())
	if conf.Metrics.Enabled {
		e.metrics, err = metrics.StartServer(conf.Metrics.Listen)
		if err != nil {
			return err
		}
		e.log.Info("metrics serving", "addr", e.metrics.Addr())
	}
	e.log.Info("alkanes engine init", "network", e.network, "activation", e.activation,
		"driver", conf.Engine, "block_fuel", conf.BlockFuel(), "drain", conf.DrainPolicy)
	return nil
}

// ProcessBlock runs every alkanes message of block. Blocks below the
// activation height are skipped.
func (e *Engine) ProcessBlock(ctx context.Context, height uint64, block *wire.MsgBlock) (*engines.BlockSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exited {
		return nil, errors.New("engine exited")
	}
	summary := &engines.BlockSummary{Height: height}
	if height < e.activation {
		return summary, nil
	}

	begin := time.Now()
	xctx, err := xcontext.NewBaseCtx(ctx, e.log)
	if err != nil {
		return nil, err
	}
	logId := utils.GenLogId()
	e.tank.InitializeBlock(block, e.source)
	xctx.GetTimer().Mark("initialize")

	atomic := sandbox.NewOverlay(e.store)
	for i, tx := range block.Transactions {
		if err := xctx.Err(); err != nil {
			atomic.Discard()
			return nil, err
		}
		txIndex := uint32(i)
		msgs := e.source.Protomessages(tx)
		var binary []byte
		for _, msg := range msgs {
			if msg.ProtocolTag != ProtocolTag {
				continue
			}
			if e.tank.ShouldAdvance(txIndex) {
				if !e.tank.IsTop() {
					e.tank.RefuelBlock()
				}
				e.tank.FuelTransaction(fuel.VirtualSize(tx, e.source), txIndex)
				binary = e.source.Envelope(tx)
			}
			out, err := e.dispatcher.HandleMessage(xctx, &MessageInput{
				Message: msg,
				TxHash:  tx.TxHash(),
				TxIndex: txIndex,
				Height:  height,
				Binary:  binary,
				Atomic:  atomic,
				Tank:    e.tank,
			})
			if err != nil {
				atomic.Discard()
				return nil, errors.Wrapf(err, "block %d tx %d", height, i)
			}
			summary.Outcomes = append(summary.Outcomes, out)
		}
	}
	if !e.tank.IsTop() {
		e.tank.RefuelBlock()
	}
	summary.FuelConsumed = e.tank.BlockConsumed()
	xctx.GetTimer().Mark("dispatch")

	if err := sandbox.Flush(atomic, e.db); err != nil {
		return nil, errors.Wrapf(err, "flush block %d", height)
	}
	xctx.GetTimer().Mark("flush")

	metrics.BlockHistogram.WithLabelValues(e.network).Observe(time.Since(begin).Seconds())
	metrics.BlockHeightGauge.WithLabelValues(e.network).Set(float64(height))
	metrics.BlockFuelGauge.WithLabelValues(e.network).Set(float64(e.tank.BlockFuel()))
	e.log.Info("block processed", "log_id", logId, "height", height, "txs", len(block.Transactions),
		"messages", len(summary.Outcomes), "fuel", summary.FuelConsumed, "timer", xctx.GetTimer().Print())
	return summary, nil
}

// Exit is idempotent.
func (e *Engine) Exit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exited {
		return
	}
	e.exited = true
	if e.metrics != nil {
		if err := e.metrics.Close(); err != nil {
			e.log.Warn("close metrics server failed", "err", err)
		}
	}
	if e.log != nil {
		e.log.Info("alkanes engine exit", "network", e.network)
	}
}

// Tank exposes the fuel state between blocks.
func (e *Engine) Tank() *fuel.Tank {
	return e.tank
}

// String implements fmt.Stringer.
func (e *Engine) String() string {
	return fmt.Sprintf("alkanes{network:%s activation:%d %s}", e.network, e.activation, e.tank)
}

func init() {
	engines.Register(EngineName, NewEngine)
}
