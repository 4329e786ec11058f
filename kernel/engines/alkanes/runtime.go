package alkanes

import (
	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/balance"
	"github.com/alkanes/alkanescore/kernel/contract/sandbox"
)

// runtimePointer holds the alkanes messages left unclaimed, as a transfer
// parcel. Every message of the protocol can draw on them.
func runtimePointer(store sandbox.Store) sandbox.Pointer {
	return sandbox.NewPointer(store, "/runtime/balances")
}

// LoadRuntimeBalances reads the runtime sheet.
func LoadRuntimeBalances(store sandbox.Store) (*balance.Sheet, error) {
	raw, err := runtimePointer(store).Get()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return balance.NewSheet(), nil
	}
	transfers, _, err := contract.DecodeTransfers(raw)
	if err != nil {
		return nil, err
	}
	return balance.SheetFromTransfers(transfers)
}

func storeRuntimeBalances(store sandbox.Store, sheet *balance.Sheet) error {
	return runtimePointer(store).Set(contract.EncodeTransfers(sheet.Transfers()))
}
