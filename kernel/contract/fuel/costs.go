package fuel

import (
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/alkanes/alkanescore/kernel/contract"
)

// Budget constants.
const (
	TotalFuelMainnet   uint64 = 100_000_000
	TotalFuelDogecoin  uint64 = 60_000_000
	TotalFuelFractal   uint64 = 50_000_000
	TotalFuelLuckycoin uint64 = 50_000_000
	TotalFuelBellscoin uint64 = 50_000_000
	MinimumFuel        uint64 = 90_000
)

// Host operation costs.
const (
	PerVbyte       uint64 = 150
	PerRequestByte uint64 = 1
	PerLoadByte    uint64 = 2
	PerStoreByte   uint64 = 8
	Sequence       uint64 = 5
	Fuel           uint64 = 5
	Extcall        uint64 = 500
	Height         uint64 = 10
	Balance        uint64 = 10
	ExtcallDeploy  uint64 = 10_000
)

// TotalFuelFor returns the per-block fuel of a network. Unknown networks use
// the mainnet value.
func TotalFuelFor(network string) uint64 {
	switch network {
	case "dogecoin":
		return TotalFuelDogecoin
	case "fractal":
		return TotalFuelFractal
	case "luckycoin":
		return TotalFuelLuckycoin
	case "bellscoin":
		return TotalFuelBellscoin
	}
	return TotalFuelMainnet
}

// ExtcallFuel is the price of a nested call that first flushes saveBytes of
// the caller's pending storage.
func ExtcallFuel(saveBytes uint64) (uint64, error) {
	store, overflow := math.SafeMul(PerStoreByte, saveBytes)
	if overflow {
		return 0, errors.Wrap(contract.ErrFuelExhausted, "extcall storage cost overflows")
	}
	total, overflow := math.SafeAdd(Extcall, store)
	if overflow {
		return 0, errors.Wrap(contract.ErrFuelExhausted, "extcall cost overflows")
	}
	return total, nil
}

// StoreFuel is the price of persisting n bytes.
func StoreFuel(n uint64) (uint64, error) {
	v, overflow := math.SafeMul(PerStoreByte, n)
	if overflow {
		return 0, errors.Wrap(contract.ErrFuelExhausted, "storage cost overflows")
	}
	return v, nil
}
