package contract

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Uint128Size is the byte width of a serialized word.
const Uint128Size = 16

// ContractIdSize is the byte width of a serialized ContractId.
const ContractIdSize = 2 * Uint128Size

var maxUint128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// MaxUint128 returns 2^128-1.
func MaxUint128() *uint256.Int {
	return new(uint256.Int).Set(maxUint128)
}

// IsUint128 reports whether v fits into 128 bits.
func IsUint128(v *uint256.Int) bool {
	return v.BitLen() <= 128
}

// U128 builds a word from a uint64.
func U128(v uint64) uint256.Int {
	return *uint256.NewInt(v)
}

// PutUint128 writes v as 16 little-endian bytes.
func PutUint128(buf []byte, v *uint256.Int) {
	binary.LittleEndian.PutUint64(buf[0:8], v[0])
	binary.LittleEndian.PutUint64(buf[8:16], v[1])
}

// AppendUint128 appends v as 16 little-endian bytes.
func AppendUint128(dst []byte, v *uint256.Int) []byte {
	var buf [Uint128Size]byte
	PutUint128(buf[:], v)
	return append(dst, buf[:]...)
}

// ReadUint128 reads a 16 byte little-endian word.
func ReadUint128(buf []byte) (uint256.Int, error) {
	var v uint256.Int
	if len(buf) < Uint128Size {
		return v, errors.Wrapf(ErrDecode, "need %d bytes for u128, got %d", Uint128Size, len(buf))
	}
	v[0] = binary.LittleEndian.Uint64(buf[0:8])
	v[1] = binary.LittleEndian.Uint64(buf[8:16])
	return v, nil
}

// ContractId identifies a deployed alkane, or a deploy intent, by (block, tx).
// Asset ids of contract-issued tokens share the same shape.
type ContractId struct {
	Block uint256.Int
	Tx    uint256.Int
}

// AssetId is the ledger key of a fungible asset.
type AssetId = ContractId

// NewContractId builds an id from two small words.
func NewContractId(block, tx uint64) ContractId {
	return ContractId{Block: U128(block), Tx: U128(tx)}
}

// Bytes returns block || tx, each as 16 little-endian bytes.
func (id ContractId) Bytes() []byte {
	buf := make([]byte, 0, ContractIdSize)
	buf = AppendUint128(buf, &id.Block)
	return AppendUint128(buf, &id.Tx)
}

// ParseContractId is the inverse of Bytes.
func ParseContractId(buf []byte) (ContractId, error) {
	if len(buf) < ContractIdSize {
		return ContractId{}, errors.Wrapf(ErrDecode, "contract id needs %d bytes, got %d", ContractIdSize, len(buf))
	}
	block, _ := ReadUint128(buf[:Uint128Size])
	tx, _ := ReadUint128(buf[Uint128Size:ContractIdSize])
	return ContractId{Block: block, Tx: tx}, nil
}

// IsZero reports whether id is [0, 0], the caller of a top-level message.
func (id ContractId) IsZero() bool {
	return id.Block.IsZero() && id.Tx.IsZero()
}

// Cmp orders ids by block, then tx.
func (id ContractId) Cmp(other ContractId) int {
	if c := id.Block.Cmp(&other.Block); c != 0 {
		return c
	}
	return id.Tx.Cmp(&other.Tx)
}

func (id ContractId) String() string {
	return id.Block.Dec() + ":" + id.Tx.Dec()
}

// MarshalText renders the id as "block:tx".
func (id ContractId) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses "block:tx".
func (id *ContractId) UnmarshalText(text []byte) error {
	var block, tx string
	for i, c := range text {
		if c == ':' {
			block, tx = string(text[:i]), string(text[i+1:])
			break
		}
	}
	if block == "" || tx == "" {
		return errors.Wrapf(ErrDecode, "bad contract id %q", text)
	}
	b, err := uint256.FromDecimal(block)
	if err != nil {
		return errors.Wrapf(ErrDecode, "bad block %q", block)
	}
	t, err := uint256.FromDecimal(tx)
	if err != nil {
		return errors.Wrapf(ErrDecode, "bad tx %q", tx)
	}
	if !IsUint128(b) || !IsUint128(t) {
		return errors.Wrapf(ErrDecode, "contract id %q exceeds u128", text)
	}
	id.Block, id.Tx = *b, *t
	return nil
}
