package sandbox

import (
	"encoding/binary"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	hex "github.com/tmthrgd/go-hex"

	"github.com/alkanes/alkanescore/kernel/contract"
)

const lengthKeyword = "/length"

// Pointer addresses one key of a flat key space. Child keys are derived by
// appending either a raw keyword or the lowercase hex of a word, and values
// are kept as hex text in the underlying store.
type Pointer struct {
	store Store
	key   []byte
}

// NewPointer returns a pointer at keyword.
func NewPointer(store Store, keyword string) Pointer {
	return Pointer{store: store, key: []byte(keyword)}
}

// Key returns the derived key.
func (p Pointer) Key() []byte {
	return copyBytes(p.key)
}

// Bind returns the same key over another store.
func (p Pointer) Bind(store Store) Pointer {
	return Pointer{store: store, key: p.key}
}

// Keyword appends a raw string.
func (p Pointer) Keyword(word string) Pointer {
	return p.extend([]byte(word))
}

// Prefix puts a raw string in front of the key.
func (p Pointer) Prefix(word string) Pointer {
	key := make([]byte, 0, len(word)+len(p.key))
	key = append(key, word...)
	return Pointer{store: p.store, key: append(key, p.key...)}
}

// Select appends the hex text of word.
func (p Pointer) Select(word []byte) Pointer {
	return p.extend([]byte(hex.EncodeToString(word)))
}

// SelectId appends the hex text of an id's byte form.
func (p Pointer) SelectId(id contract.ContractId) Pointer {
	return p.Select(id.Bytes())
}

// SelectUint128 appends the hex text of a little-endian word.
func (p Pointer) SelectUint128(v *uint256.Int) Pointer {
	return p.Select(contract.AppendUint128(nil, v))
}

// SelectIndex addresses the i-th element of an array rooted at p.
func (p Pointer) SelectIndex(i uint32) Pointer {
	return p.Keyword("/" + strconv.FormatUint(uint64(i), 10))
}

// LengthKey addresses the element count of an array rooted at p.
func (p Pointer) LengthKey() Pointer {
	return p.Keyword(lengthKeyword)
}

func (p Pointer) extend(suffix []byte) Pointer {
	key := make([]byte, 0, len(p.key)+len(suffix))
	key = append(key, p.key...)
	return Pointer{store: p.store, key: append(key, suffix...)}
}

// Get returns the raw value, or nil when the key was never set.
func (p Pointer) Get() ([]byte, error) {
	text, err := p.store.Get(p.key)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v, err := hex.DecodeString(string(text))
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt value at %q", p.key)
	}
	return v, nil
}

// Set stores value.
func (p Pointer) Set(value []byte) error {
	return p.store.Put(p.key, []byte(hex.EncodeToString(value)))
}

// Nullify overwrites the value with a single zero byte.
func (p Pointer) Nullify() error {
	return p.Set([]byte{0})
}

// SetOrNullify stores value, or nullifies the key when the low 8 bytes of
// value read as a little-endian zero.
func (p Pointer) SetOrNullify(value []byte) error {
	low := value
	if len(low) > 8 {
		low = low[:8]
	}
	if binary.LittleEndian.Uint64(pad(low, 8)) == 0 {
		return p.Nullify()
	}
	return p.Set(value)
}

// GetUint128 reads a little-endian word, zero when unset.
func (p Pointer) GetUint128() (uint256.Int, error) {
	v, err := p.Get()
	if err != nil || len(v) == 0 {
		return uint256.Int{}, err
	}
	return contract.ReadUint128(pad(v, contract.Uint128Size))
}

// SetUint128 stores v as 16 little-endian bytes.
func (p Pointer) SetUint128(v *uint256.Int) error {
	if !contract.IsUint128(v) {
		return errors.Errorf("value %s exceeds u128", v.Dec())
	}
	return p.Set(contract.AppendUint128(nil, v))
}

// GetUint64 reads a little-endian u64, zero when unset.
func (p Pointer) GetUint64() (uint64, error) {
	v, err := p.Get()
	if err != nil || len(v) == 0 {
		return 0, err
	}
	return binary.LittleEndian.Uint64(pad(v, 8)), nil
}

// SetUint64 stores v as 8 little-endian bytes.
func (p Pointer) SetUint64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return p.Set(buf[:])
}

// GetUint32 reads a little-endian u32, zero when unset.
func (p Pointer) GetUint32() (uint32, error) {
	v, err := p.Get()
	if err != nil || len(v) == 0 {
		return 0, err
	}
	return binary.LittleEndian.Uint32(pad(v, 4)), nil
}

// SetUint32 stores v as 4 little-endian bytes.
func (p Pointer) SetUint32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return p.Set(buf[:])
}

// Length is the element count of the array rooted at p.
func (p Pointer) Length() (uint32, error) {
	return p.LengthKey().GetUint32()
}

// Append adds value at the end of the array rooted at p.
func (p Pointer) Append(value []byte) error {
	n, err := p.Length()
	if err != nil {
		return err
	}
	if err := p.LengthKey().SetUint32(n + 1); err != nil {
		return err
	}
	return p.SelectIndex(n).Set(value)
}

// Pop removes and returns the last element, nil on an empty array.
func (p Pointer) Pop() ([]byte, error) {
	n, err := p.Length()
	if err != nil || n == 0 {
		return nil, err
	}
	if err := p.LengthKey().SetUint32(n - 1); err != nil {
		return nil, err
	}
	return p.SelectIndex(n - 1).Get()
}

// GetList returns every element of the array rooted at p.
func (p Pointer) GetList() ([][]byte, error) {
	n, err := p.Length()
	if err != nil {
		return nil, err
	}
	list := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := p.SelectIndex(i).Get()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}

// pad widens short little-endian values read from storage.
func pad(v []byte, size int) []byte {
	if len(v) >= size {
		return v
	}
	out := make([]byte, size)
	copy(out, v)
	return out
}
