package xvm

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/alkanes/alkanescore/kernel/contract"
)

// Guest buffers are arraybuffers: the payload starts at ptr and its length
// is the little-endian u32 stored in the 4 bytes before it.
const lengthPrefix = 4

func readArrayBuffer(mem []byte, ptr uint32) ([]byte, error) {
	if ptr < lengthPrefix || uint64(ptr) > uint64(len(mem)) {
		return nil, errors.Wrapf(contract.ErrVMTrap, "arraybuffer pointer %d out of memory", ptr)
	}
	size := binary.LittleEndian.Uint32(mem[ptr-lengthPrefix:])
	end := uint64(ptr) + uint64(size)
	if end > uint64(len(mem)) {
		return nil, errors.Wrapf(contract.ErrVMTrap, "arraybuffer at %d of %d bytes out of memory", ptr, size)
	}
	out := make([]byte, size)
	copy(out, mem[ptr:end])
	return out, nil
}

func writeArrayBuffer(mem []byte, ptr uint32, data []byte) error {
	end := uint64(ptr) + uint64(len(data))
	if ptr < lengthPrefix || end > uint64(len(mem)) {
		return errors.Wrapf(contract.ErrVMTrap, "write of %d bytes at %d out of memory", len(data), ptr)
	}
	binary.LittleEndian.PutUint32(mem[ptr-lengthPrefix:], uint32(len(data)))
	copy(mem[ptr:], data)
	return nil
}

// decodeWords splits buf into u128 words.
func decodeWords(buf []byte) ([]uint256.Int, error) {
	if len(buf)%contract.Uint128Size != 0 {
		return nil, errors.Wrapf(contract.ErrDecode, "%d bytes is not a word list", len(buf))
	}
	words := make([]uint256.Int, 0, len(buf)/contract.Uint128Size)
	for off := 0; off < len(buf); off += contract.Uint128Size {
		w, err := contract.ReadUint128(buf[off:])
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, nil
}

func uint64Bytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}
