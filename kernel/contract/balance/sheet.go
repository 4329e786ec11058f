package balance

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/alkanes/alkanescore/kernel/contract"
)

var errOverflow = errors.New("balance exceeds u128")

// Sheet maps asset ids to balances. Iteration is always in id order.
type Sheet struct {
	balances map[contract.AssetId]uint256.Int
}

// NewSheet returns an empty sheet.
func NewSheet() *Sheet {
	return &Sheet{balances: make(map[contract.AssetId]uint256.Int)}
}

// SheetFromTransfers sums transfers per asset id.
func SheetFromTransfers(transfers []contract.RuneTransfer) (*Sheet, error) {
	s := NewSheet()
	for i := range transfers {
		if err := s.Increase(transfers[i].Id, &transfers[i].Value); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Get returns the balance of id, zero when absent.
func (s *Sheet) Get(id contract.AssetId) uint256.Int {
	return s.balances[id]
}

// Increase adds v to id.
func (s *Sheet) Increase(id contract.AssetId, v *uint256.Int) error {
	cur := s.balances[id]
	next := new(uint256.Int).Add(&cur, v)
	if !contract.IsUint128(next) {
		return errors.Wrapf(errOverflow, "asset %s", id)
	}
	s.balances[id] = *next
	return nil
}

// Decrease subtracts v from id and reports false, leaving id unchanged, when
// the balance is short.
func (s *Sheet) Decrease(id contract.AssetId, v *uint256.Int) bool {
	cur := s.balances[id]
	if cur.Lt(v) {
		return false
	}
	next := new(uint256.Int).Sub(&cur, v)
	if next.IsZero() {
		delete(s.balances, id)
	} else {
		s.balances[id] = *next
	}
	return true
}

// Pipe adds every balance of s into dst.
func (s *Sheet) Pipe(dst *Sheet) error {
	for _, id := range s.Ids() {
		v := s.balances[id]
		if err := dst.Increase(id, &v); err != nil {
			return err
		}
	}
	return nil
}

// Merge returns a new sheet holding a + b.
func Merge(a, b *Sheet) (*Sheet, error) {
	out := NewSheet()
	if err := a.Pipe(out); err != nil {
		return nil, err
	}
	if err := b.Pipe(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clone copies s.
func (s *Sheet) Clone() *Sheet {
	return &Sheet{balances: maps.Clone(s.balances)}
}

// Ids returns the asset ids in ascending order.
func (s *Sheet) Ids() []contract.AssetId {
	ids := maps.Keys(s.balances)
	slices.SortFunc(ids, func(a, b contract.AssetId) int { return a.Cmp(b) })
	return ids
}

// Transfers renders s as a transfer list in id order.
func (s *Sheet) Transfers() []contract.RuneTransfer {
	ids := s.Ids()
	out := make([]contract.RuneTransfer, 0, len(ids))
	for _, id := range ids {
		out = append(out, contract.RuneTransfer{Id: id, Value: s.balances[id]})
	}
	return out
}

// Len is the number of non-zero balances.
func (s *Sheet) Len() int {
	return len(s.balances)
}

// DebitMintable removes outgoing from s. Where an outgoing amount exceeds the
// balance held, the excess is minted only for the asset issued by self; any
// other shortfall fails with ErrUnauthorizedMint and leaves s unchanged.
func (s *Sheet) DebitMintable(outgoing []contract.RuneTransfer, self contract.ContractId) error {
	want, err := SheetFromTransfers(outgoing)
	if err != nil {
		return err
	}
	for _, id := range want.Ids() {
		need, have := want.Get(id), s.Get(id)
		if need.Gt(&have) && id != self {
			return errors.Wrapf(contract.ErrUnauthorizedMint, "asset %s: need %s, hold %s", id, need.Dec(), have.Dec())
		}
	}
	for _, id := range want.Ids() {
		need, have := want.Get(id), s.Get(id)
		if need.Gt(&have) {
			mint := new(uint256.Int).Sub(&need, &have)
			if err := s.Increase(id, mint); err != nil {
				return err
			}
		}
		s.Decrease(id, &need)
	}
	return nil
}
