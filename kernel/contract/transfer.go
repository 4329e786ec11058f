package contract

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// RuneTransfer moves Value units of asset Id between calls.
type RuneTransfer struct {
	Id    AssetId     `json:"id"`
	Value uint256.Int `json:"value"`
}

// NewRuneTransfer is a convenience constructor for small amounts.
func NewRuneTransfer(id AssetId, value uint64) RuneTransfer {
	return RuneTransfer{Id: id, Value: U128(value)}
}

// EncodeTransfers renders transfers as a u128 count followed by (block, tx, value) words.
func EncodeTransfers(transfers []RuneTransfer) []byte {
	buf := make([]byte, 0, Uint128Size*(1+3*len(transfers)))
	count := uint256.NewInt(uint64(len(transfers)))
	buf = AppendUint128(buf, count)
	for i := range transfers {
		buf = append(buf, transfers[i].Id.Bytes()...)
		buf = AppendUint128(buf, &transfers[i].Value)
	}
	return buf
}

// DecodeTransfers parses EncodeTransfers output and returns the bytes consumed.
func DecodeTransfers(buf []byte) ([]RuneTransfer, int, error) {
	count, err := ReadUint128(buf)
	if err != nil {
		return nil, 0, errors.Wrap(err, "transfer count")
	}
	off := Uint128Size
	const entry = ContractIdSize + Uint128Size
	if !count.IsUint64() || count.Uint64() > uint64((len(buf)-off)/entry) {
		return nil, 0, errors.Wrapf(ErrDecode, "transfer count %s exceeds payload", count.Dec())
	}
	n := int(count.Uint64())
	transfers := make([]RuneTransfer, 0, n)
	for i := 0; i < n; i++ {
		id, _ := ParseContractId(buf[off:])
		value, _ := ReadUint128(buf[off+ContractIdSize:])
		if !IsUint128(&value) {
			return nil, 0, errors.Wrap(ErrDecode, "transfer value exceeds u128")
		}
		transfers = append(transfers, RuneTransfer{Id: id, Value: value})
		off += entry
	}
	return transfers, off, nil
}
