package contract

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// TargetKind enumerates the reserved deploy sentinels and ordinary calls.
type TargetKind int

const (
	// TargetCall invokes the binary bound at an existing id.
	TargetCall TargetKind = iota
	// TargetDeploy ([1, 0]) binds the binary attached to the transaction at a fresh [2, seq].
	TargetDeploy
	// TargetDeployReserved ([3, n]) binds the attached binary at [4, n].
	TargetDeployReserved
	// TargetDeployTemplate ([5, n]) instantiates the binary bound at [2, n] under a fresh [2, seq].
	TargetDeployTemplate
	// TargetDeployFactory ([6, n]) instantiates the binary bound at [4, n] under a fresh [2, seq].
	TargetDeployFactory
)

// Reserved block numbers of the id space.
const (
	blockDeploy         = 1
	blockSequence       = 2
	blockDeployReserved = 3
	blockReserved       = 4
	blockTemplate       = 5
	blockFactory        = 6
)

var targetKindNames = map[TargetKind]string{
	TargetCall:           "call",
	TargetDeploy:         "deploy",
	TargetDeployReserved: "deploy_reserved",
	TargetDeployTemplate: "deploy_template",
	TargetDeployFactory:  "deploy_factory",
}

func (k TargetKind) String() string {
	if name, ok := targetKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("target_kind(%d)", int(k))
}

// Target is the decoded form of a cellpack's first two words.
type Target struct {
	Kind TargetKind
	// Id is the raw (block, tx) pair as written in the cellpack.
	Id ContractId
}

// ParseTarget classifies a raw id. It is the only place the sentinel numbers are interpreted.
func ParseTarget(id ContractId) Target {
	t := Target{Kind: TargetCall, Id: id}
	if !id.Block.IsUint64() {
		return t
	}
	switch id.Block.Uint64() {
	case blockDeploy:
		if id.Tx.IsZero() {
			t.Kind = TargetDeploy
		}
	case blockDeployReserved:
		t.Kind = TargetDeployReserved
	case blockTemplate:
		t.Kind = TargetDeployTemplate
	case blockFactory:
		t.Kind = TargetDeployFactory
	}
	return t
}

// IsDeploy reports whether the target binds a binary to a new id.
func (t Target) IsDeploy() bool {
	return t.Kind != TargetCall
}

// Source is the id whose binary a template or factory deploy copies.
func (t Target) Source() ContractId {
	switch t.Kind {
	case TargetDeployTemplate:
		return ContractId{Block: U128(blockSequence), Tx: t.Id.Tx}
	case TargetDeployFactory:
		return ContractId{Block: U128(blockReserved), Tx: t.Id.Tx}
	}
	return t.Id
}

// ReservedId is where a DeployReserved target binds its binary.
func (t Target) ReservedId() ContractId {
	return ContractId{Block: U128(blockReserved), Tx: t.Id.Tx}
}

// SequenceId is the id assigned to the n-th sequential deployment.
func SequenceId(seq uint256.Int) ContractId {
	return ContractId{Block: U128(blockSequence), Tx: seq}
}

// Cellpack is an encoded contract invocation: a target followed by argument words.
type Cellpack struct {
	Target Target
	Inputs []uint256.Int
}

// DecodeCellpack decodes calldata made of LEB128 words read to the end.
func DecodeCellpack(calldata []byte) (*Cellpack, error) {
	words, err := DecodeVarintList(calldata)
	if err != nil {
		return nil, err
	}
	return CellpackFromWords(words)
}

// CellpackFromWords splits a word list into target and inputs.
func CellpackFromWords(words []uint256.Int) (*Cellpack, error) {
	if len(words) < 2 {
		return nil, errors.Wrapf(ErrDecode, "cellpack needs a target, got %d words", len(words))
	}
	id := ContractId{Block: words[0], Tx: words[1]}
	inputs := make([]uint256.Int, len(words)-2)
	copy(inputs, words[2:])
	return &Cellpack{Target: ParseTarget(id), Inputs: inputs}, nil
}

// Words returns the cellpack as a flat word list.
func (c *Cellpack) Words() []uint256.Int {
	words := make([]uint256.Int, 0, len(c.Inputs)+2)
	words = append(words, c.Target.Id.Block, c.Target.Id.Tx)
	return append(words, c.Inputs...)
}

// Encode renders the cellpack as LEB128 calldata.
func (c *Cellpack) Encode() []byte {
	return EncodeVarintList(c.Words())
}

func (c *Cellpack) String() string {
	parts := make([]string, 0, len(c.Inputs))
	for i := range c.Inputs {
		parts = append(parts, c.Inputs[i].Dec())
	}
	return fmt.Sprintf("%s(%s)[%s]", c.Target.Kind, c.Target.Id, strings.Join(parts, ","))
}

// DecodeVarintList reads unsigned LEB128 words until buf is exhausted.
// A word may not exceed 128 bits and the final byte must terminate a word.
func DecodeVarintList(buf []byte) ([]uint256.Int, error) {
	var words []uint256.Int
	for len(buf) > 0 {
		v, n, err := DecodeVarint(buf)
		if err != nil {
			return nil, err
		}
		words = append(words, v)
		buf = buf[n:]
	}
	return words, nil
}

// DecodeVarint reads one LEB128 word and returns it with the number of bytes read.
func DecodeVarint(buf []byte) (uint256.Int, int, error) {
	var v uint256.Int
	var shift uint
	for i, b := range buf {
		payload := uint64(b & 0x7f)
		if payload != 0 {
			if shift >= 128 || (shift > 121 && payload>>(128-shift) != 0) {
				return v, 0, errors.Wrap(ErrDecode, "varint overflows u128")
			}
			part := new(uint256.Int).Lsh(uint256.NewInt(payload), shift)
			v.Or(&v, part)
		}
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
		if shift > 7*19 {
			return v, 0, errors.Wrap(ErrDecode, "varint too long")
		}
	}
	return v, 0, errors.Wrap(ErrDecode, "truncated varint")
}

// EncodeVarint appends v in unsigned LEB128.
func EncodeVarint(dst []byte, v *uint256.Int) []byte {
	x := new(uint256.Int).Set(v)
	for {
		b := byte(x.Uint64() & 0x7f)
		x.Rsh(x, 7)
		if x.IsZero() {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// EncodeVarintList concatenates the LEB128 encodings of words.
func EncodeVarintList(words []uint256.Int) []byte {
	var out []byte
	for i := range words {
		out = EncodeVarint(out, &words[i])
	}
	return out
}
