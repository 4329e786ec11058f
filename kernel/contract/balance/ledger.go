package balance

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/sandbox"
)

// Pointer addresses the stored balance of holder in asset:
// /alkanes/<hex(asset)>/balances/<hex(holder)>.
func Pointer(store sandbox.Store, holder, asset contract.ContractId) sandbox.Pointer {
	return sandbox.NewPointer(store, "/alkanes/").
		SelectId(asset).
		Keyword("/balances/").
		SelectId(holder)
}

// Of reads the stored balance of holder in asset.
func Of(store sandbox.Store, holder, asset contract.ContractId) (uint256.Int, error) {
	return Pointer(store, holder, asset).GetUint128()
}

// Credit adds every transfer to recipient's stored balances.
func Credit(store sandbox.Store, recipient contract.ContractId, transfers []contract.RuneTransfer) error {
	for i := range transfers {
		ptr := Pointer(store, recipient, transfers[i].Id)
		cur, err := ptr.GetUint128()
		if err != nil {
			return err
		}
		next := new(uint256.Int).Add(&cur, &transfers[i].Value)
		if !contract.IsUint128(next) {
			return errors.Wrapf(errOverflow, "credit %s to %s", transfers[i].Id, recipient)
		}
		if err := ptr.SetUint128(next); err != nil {
			return err
		}
	}
	return nil
}

// Debit subtracts every transfer from sender's stored balances. A transfer
// exceeding the stored balance fails with ErrInsufficientBalance; the caller
// discards the overlay, so partial application never escapes.
func Debit(store sandbox.Store, sender contract.ContractId, transfers []contract.RuneTransfer) error {
	return debit(store, sender, transfers, false)
}

// DebitOutgoing is Debit for the transfers a contract returns. Shortfalls in
// the contract's own asset are the minted excess and leave the stored balance
// as it was.
func DebitOutgoing(store sandbox.Store, myself contract.ContractId, transfers []contract.RuneTransfer) error {
	return debit(store, myself, transfers, true)
}

func debit(store sandbox.Store, sender contract.ContractId, transfers []contract.RuneTransfer, selfMint bool) error {
	for i := range transfers {
		ptr := Pointer(store, sender, transfers[i].Id)
		cur, err := ptr.GetUint128()
		if err != nil {
			return err
		}
		if cur.Lt(&transfers[i].Value) {
			if selfMint && transfers[i].Id == sender {
				continue
			}
			return errors.Wrapf(contract.ErrInsufficientBalance, "%s holds %s of %s, debit %s",
				sender, cur.Dec(), transfers[i].Id, transfers[i].Value.Dec())
		}
		next := new(uint256.Int).Sub(&cur, &transfers[i].Value)
		if err := ptr.SetUint128(next); err != nil {
			return err
		}
	}
	return nil
}

// Reconcile settles the transfers a successful call hands back. combined is
// what the call could draw on (incoming plus prior balances); it is debited
// with DebitMintable, then the stored balances of myself are debited.
func Reconcile(store sandbox.Store, myself contract.ContractId, combined *Sheet, outgoing []contract.RuneTransfer) error {
	if err := combined.DebitMintable(outgoing, myself); err != nil {
		return err
	}
	return DebitOutgoing(store, myself, outgoing)
}
