package metrics

import (
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "alkanes"

	SubsystemMessage = "message"
	SubsystemCall    = "call"
	SubsystemFuel    = "fuel"
	SubsystemBlock   = "block"
	SubsystemEngine  = "engine"

	LabelNetwork  = "network"
	LabelResult   = "result"
	LabelCallKind = "kind"
	LabelCache    = "cache"
)

// message
var (
	MessageCounter = prom.NewCounterVec(
		prom.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemMessage,
			Name:      "handled_total",
			Help:      "Total number of protocol messages handled, by outcome.",
		},
		[]string{LabelNetwork, LabelResult})
	MessageHistogram = prom.NewHistogramVec(
		prom.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemMessage,
			Name:      "handled_seconds",
			Help:      "Histogram of message handling latency.",
			Buckets:   prom.DefBuckets,
		},
		[]string{LabelNetwork})
)

// call
var (
	CallCounter = prom.NewCounterVec(
		prom.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemCall,
			Name:      "enter_total",
			Help:      "Total number of call frames entered, by kind.",
		},
		[]string{LabelNetwork, LabelCallKind})
	CallDepthHistogram = prom.NewHistogramVec(
		prom.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemCall,
			Name:      "depth",
			Help:      "Histogram of the depth of entered call frames.",
			Buckets:   prom.ExponentialBuckets(1, 2, 11),
		},
		[]string{LabelNetwork})
)

// fuel
var (
	FuelConsumedCounter = prom.NewCounterVec(
		prom.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemFuel,
			Name:      "consumed_total",
			Help:      "Total fuel consumed by messages.",
		},
		[]string{LabelNetwork})
	BlockFuelGauge = prom.NewGaugeVec(
		prom.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemFuel,
			Name:      "block_remaining",
			Help:      "Fuel left in the block pool after the last processed block.",
		},
		[]string{LabelNetwork})
)

// block
var (
	BlockHistogram = prom.NewHistogramVec(
		prom.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemBlock,
			Name:      "processed_seconds",
			Help:      "Histogram of block processing latency.",
			Buckets:   prom.DefBuckets,
		},
		[]string{LabelNetwork})
	BlockHeightGauge = prom.NewGaugeVec(
		prom.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemBlock,
			Name:      "height",
			Help:      "Height of the last processed block.",
		},
		[]string{LabelNetwork})
)

// engine
var (
	CodeCacheCounter = prom.NewCounterVec(
		prom.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemEngine,
			Name:      "code_cache_total",
			Help:      "Compiled code cache lookups, by hit or miss.",
		},
		[]string{LabelCache})
)

var registerOnce sync.Once

// RegisterMetrics registers every collector with the default registry. Safe
// to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		MustRegister(prom.DefaultRegisterer)
	})
}

// MustRegister registers every collector with reg.
func MustRegister(reg prom.Registerer) {
	reg.MustRegister(
		// message
		MessageCounter,
		MessageHistogram,
		// call
		CallCounter,
		CallDepthHistogram,
		// fuel
		FuelConsumedCounter,
		BlockFuelGauge,
		// block
		BlockHistogram,
		BlockHeightGauge,
		// engine
		CodeCacheCounter,
	)
}
