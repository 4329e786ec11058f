package balance

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/sandbox"
)

var (
	tokenX  = contract.NewContractId(2, 10)
	tokenY  = contract.NewContractId(2, 11)
	holderA = contract.NewContractId(2, 20)
)

func amount(t *testing.T, store sandbox.Store, holder, asset contract.ContractId) uint64 {
	v, err := Of(store, holder, asset)
	require.NoError(t, err)
	return v.Uint64()
}

func TestCreditDebit(t *testing.T) {
	o := sandbox.NewOverlay(sandbox.NewMemModel())
	require.NoError(t, Credit(o, holderA, []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 1000)}))
	assert.Equal(t, uint64(1000), amount(t, o, holderA, tokenX))

	err := Debit(o, holderA, []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 1200)})
	assert.True(t, errors.Is(err, contract.ErrInsufficientBalance))
	assert.Equal(t, uint64(1000), amount(t, o, holderA, tokenX))

	require.NoError(t, Debit(o, holderA, []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 400)}))
	assert.Equal(t, uint64(600), amount(t, o, holderA, tokenX))
}

func TestDebitUnknownAsset(t *testing.T) {
	o := sandbox.NewOverlay(sandbox.NewMemModel())
	err := Debit(o, holderA, []contract.RuneTransfer{contract.NewRuneTransfer(tokenY, 1)})
	assert.True(t, errors.Is(err, contract.ErrInsufficientBalance))
}

func TestSheetDebitMintable(t *testing.T) {
	tests := []struct {
		name     string
		combined []contract.RuneTransfer
		outgoing []contract.RuneTransfer
		self     contract.ContractId
		wantErr  error
		want     map[contract.AssetId]uint64
	}{
		{
			name:     "within balance",
			combined: []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 100)},
			outgoing: []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 60)},
			self:     holderA,
			want:     map[contract.AssetId]uint64{tokenX: 40},
		},
		{
			name:     "foreign excess",
			combined: []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 100)},
			outgoing: []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 101)},
			self:     holderA,
			wantErr:  contract.ErrUnauthorizedMint,
			want:     map[contract.AssetId]uint64{tokenX: 100},
		},
		{
			name:     "self mint",
			combined: []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 5)},
			outgoing: []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 500)},
			self:     tokenX,
			want:     map[contract.AssetId]uint64{tokenX: 0},
		},
		{
			name: "split across transfers",
			combined: []contract.RuneTransfer{
				contract.NewRuneTransfer(tokenX, 10),
				contract.NewRuneTransfer(tokenY, 10),
			},
			outgoing: []contract.RuneTransfer{
				contract.NewRuneTransfer(tokenY, 6),
				contract.NewRuneTransfer(tokenY, 6),
			},
			self:    holderA,
			wantErr: contract.ErrUnauthorizedMint,
			want:    map[contract.AssetId]uint64{tokenX: 10, tokenY: 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet, err := SheetFromTransfers(tt.combined)
			require.NoError(t, err)
			err = sheet.DebitMintable(tt.outgoing, tt.self)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "err = %v", err)
			} else {
				assert.NoError(t, err)
			}
			for id, v := range tt.want {
				got := sheet.Get(id)
				assert.Equal(t, v, got.Uint64(), "asset %s", id)
			}
		})
	}
}

func TestReconcileConservesForeignSupply(t *testing.T) {
	o := sandbox.NewOverlay(sandbox.NewMemModel())
	incoming := []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 300)}
	require.NoError(t, Credit(o, holderA, incoming))

	combined, err := SheetFromTransfers(incoming)
	require.NoError(t, err)
	outgoing := []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 120)}
	require.NoError(t, Reconcile(o, holderA, combined, outgoing))

	// stored balance drops by exactly the outgoing amount
	assert.Equal(t, uint64(180), amount(t, o, holderA, tokenX))
	left := combined.Get(tokenX)
	assert.Equal(t, uint64(180), left.Uint64())
}

func TestReconcileSelfMintKeepsStored(t *testing.T) {
	o := sandbox.NewOverlay(sandbox.NewMemModel())
	require.NoError(t, Credit(o, tokenX, []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 7)}))

	outgoing := []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 1000)}
	require.NoError(t, Reconcile(o, tokenX, NewSheet(), outgoing))
	assert.Equal(t, uint64(7), amount(t, o, tokenX, tokenX))

	require.NoError(t, Reconcile(o, tokenX, NewSheet(), []contract.RuneTransfer{contract.NewRuneTransfer(tokenX, 5)}))
	assert.Equal(t, uint64(2), amount(t, o, tokenX, tokenX))
}

func TestSheetOrdering(t *testing.T) {
	s := NewSheet()
	for _, id := range []contract.AssetId{tokenY, holderA, tokenX} {
		one := contract.U128(1)
		require.NoError(t, s.Increase(id, &one))
	}
	ids := s.Ids()
	assert.Equal(t, []contract.AssetId{tokenX, tokenY, holderA}, ids)

	merged, err := Merge(s, s.Clone())
	require.NoError(t, err)
	v := merged.Get(tokenX)
	assert.Equal(t, uint64(2), v.Uint64())
	assert.Len(t, merged.Transfers(), 3)

	max := contract.MaxUint128()
	assert.Error(t, s.Increase(tokenX, max))
}
