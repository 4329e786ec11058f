package fuel

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/alkanes/alkanescore/kernel/contract"
)

// State is the lifecycle position of a Tank.
type State int

const (
	Uninitialized State = iota
	Ready
	Funded
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Funded:
		return "funded"
	}
	return "uninitialized"
}

// Tank budgets compute across the transactions of one block. It has a single
// owner, the block processor, which passes it by reference down the call chain.
type Tank struct {
	state State

	total   uint64
	minimum uint64

	currentTxIndex uint32
	size           uint64
	txSize         uint64

	blockFuel         uint64
	transactionFuel   uint64
	blockMeteredFuel  uint64
	fuelConsumed      uint64
	blockConsumedFuel uint64
}

// NewTank returns an uninitialized tank with the given block total.
func NewTank(total uint64) *Tank {
	return &Tank{
		total:          total,
		minimum:        MinimumFuel,
		currentTxIndex: math.MaxUint32,
	}
}

// Initialize starts a block whose transactions sum to blockSize virtual bytes.
func (t *Tank) Initialize(blockSize uint64) {
	t.state = Ready
	t.currentTxIndex = math.MaxUint32
	t.size = blockSize
	t.txSize = 0
	t.blockFuel = t.total
	t.transactionFuel = 0
	t.blockMeteredFuel = 0
	t.fuelConsumed = 0
	t.blockConsumedFuel = 0
}

// IsTop reports whether no transaction has been funded in this block yet.
func (t *Tank) IsTop() bool {
	return t.currentTxIndex == math.MaxUint32
}

// ShouldAdvance reports whether txIndex starts a new transaction.
func (t *Tank) ShouldAdvance(txIndex uint32) bool {
	return t.currentTxIndex != txIndex
}

// FuelTransaction allocates the share of the remaining block fuel that txSize
// represents of the remaining block size, never less than the floor.
func (t *Tank) FuelTransaction(txSize uint64, txIndex uint32) {
	t.currentTxIndex = txIndex
	t.txSize = txSize

	var metered uint64
	if t.size > 0 {
		share := new(uint256.Int).Mul(uint256.NewInt(t.blockFuel), uint256.NewInt(txSize))
		share.Div(share, uint256.NewInt(t.size))
		if share.IsUint64() {
			metered = share.Uint64()
		} else {
			metered = math.MaxUint64
		}
	}
	t.blockMeteredFuel = metered
	t.transactionFuel = metered
	if t.transactionFuel < t.minimum {
		t.transactionFuel = t.minimum
	}
	if t.transactionFuel < t.blockFuel {
		t.blockFuel -= t.transactionFuel
	} else {
		t.blockFuel = 0
	}
	t.fuelConsumed = 0
	t.state = Funded
}

// ConsumeFuel charges n against the current allocation.
func (t *Tank) ConsumeFuel(n uint64) error {
	if n > t.transactionFuel {
		return errors.Wrapf(contract.ErrFuelExhausted, "need %d fuel, %d left", n, t.transactionFuel)
	}
	t.charge(n)
	return nil
}

// ConsumeAvailable charges min(n, remaining) and reports whether all of n fit.
// Used to settle the usage of a failed execution, which is never refunded.
func (t *Tank) ConsumeAvailable(n uint64) bool {
	if n > t.transactionFuel {
		t.charge(t.transactionFuel)
		return false
	}
	t.charge(n)
	return true
}

func (t *Tank) charge(n uint64) {
	t.transactionFuel -= n
	t.fuelConsumed += n
	t.blockConsumedFuel += n
	if n > t.blockMeteredFuel {
		t.blockMeteredFuel = 0
	} else {
		t.blockMeteredFuel -= n
	}
}

// DrainFuel clamps the allocation to the floor so that later messages of the
// same transaction run on the minimum allowance.
func (t *Tank) DrainFuel() {
	t.transactionFuel = t.minimum
	t.blockMeteredFuel = 0
	t.fuelConsumed = 0
}

// RefuelBlock returns transactionFuel - consumed to the block pool and retires
// the transaction's size. The refund saturates at zero.
func (t *Tank) RefuelBlock() {
	if t.state != Funded {
		return
	}
	if t.transactionFuel > t.fuelConsumed {
		t.blockFuel += t.transactionFuel - t.fuelConsumed
	}
	if t.txSize > t.size {
		t.size = 0
	} else {
		t.size -= t.txSize
	}
	t.transactionFuel = 0
	t.state = Ready
}

// StartFuel is the ceiling handed to a top-level execution.
func (t *Tank) StartFuel() uint64 {
	return t.transactionFuel
}

// TransactionFuel is what is left of the current allocation.
func (t *Tank) TransactionFuel() uint64 { return t.transactionFuel }

// Consumed is what the current transaction has used since funding or draining.
func (t *Tank) Consumed() uint64 { return t.fuelConsumed }

// BlockConsumed is the fuel used by every transaction of the block so far.
func (t *Tank) BlockConsumed() uint64 { return t.blockConsumedFuel }

// BlockFuel is the unallocated fuel of the block.
func (t *Tank) BlockFuel() uint64 { return t.blockFuel }

// BlockSize is the remaining virtual size of the block.
func (t *Tank) BlockSize() uint64 { return t.size }

// Total is the fixed per-block budget.
func (t *Tank) Total() uint64 { return t.total }

// State returns the lifecycle position.
func (t *Tank) State() State { return t.state }

func (t *Tank) String() string {
	return fmt.Sprintf("tank{state:%s tx:%d block_fuel:%d tx_fuel:%d consumed:%d size:%d}",
		t.state, t.currentTxIndex, t.blockFuel, t.transactionFuel, t.fuelConsumed, t.size)
}
