package contract

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

func words(vs ...uint64) []uint256.Int {
	out := make([]uint256.Int, 0, len(vs))
	for _, v := range vs {
		out = append(out, U128(v))
	}
	return out
}

func TestDecodeCellpack(t *testing.T) {
	tests := []struct {
		name     string
		calldata []byte
		wantKind TargetKind
		wantId   ContractId
		inputs   int
		wantErr  bool
	}{
		{
			name:    "empty calldata",
			wantErr: true,
		},
		{
			name:     "single word",
			calldata: EncodeVarintList(words(2)),
			wantErr:  true,
		},
		{
			name:     "truncated varint",
			calldata: []byte{0x02, 0x80},
			wantErr:  true,
		},
		{
			name:     "call",
			calldata: EncodeVarintList(words(2, 7, 77, 300)),
			wantKind: TargetCall,
			wantId:   NewContractId(2, 7),
			inputs:   2,
		},
		{
			name:     "deploy",
			calldata: EncodeVarintList(words(1, 0, 0)),
			wantKind: TargetDeploy,
			wantId:   NewContractId(1, 0),
			inputs:   1,
		},
		{
			name:     "block one non-zero tx is a call",
			calldata: EncodeVarintList(words(1, 5)),
			wantKind: TargetCall,
			wantId:   NewContractId(1, 5),
		},
		{
			name:     "reserved",
			calldata: EncodeVarintList(words(3, 9)),
			wantKind: TargetDeployReserved,
			wantId:   NewContractId(3, 9),
		},
		{
			name:     "template",
			calldata: EncodeVarintList(words(5, 1)),
			wantKind: TargetDeployTemplate,
			wantId:   NewContractId(5, 1),
		},
		{
			name:     "factory",
			calldata: EncodeVarintList(words(6, 4)),
			wantKind: TargetDeployFactory,
			wantId:   NewContractId(6, 4),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp, err := DecodeCellpack(tt.calldata)
			if tt.wantErr {
				if !errors.Is(err, ErrDecode) {
					t.Fatalf("DecodeCellpack() error = %v, want decode error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeCellpack() error = %v", err)
			}
			if cp.Target.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", cp.Target.Kind, tt.wantKind)
			}
			if cp.Target.Id != tt.wantId {
				t.Errorf("id = %v, want %v", cp.Target.Id, tt.wantId)
			}
			if len(cp.Inputs) != tt.inputs {
				t.Errorf("inputs = %d, want %d", len(cp.Inputs), tt.inputs)
			}
			if !bytes.Equal(cp.Encode(), tt.calldata) {
				t.Errorf("Encode() = %x, want %x", cp.Encode(), tt.calldata)
			}
		})
	}
}

func TestTargetSource(t *testing.T) {
	tpl := ParseTarget(NewContractId(5, 12))
	if tpl.Source() != NewContractId(2, 12) {
		t.Errorf("template source = %v", tpl.Source())
	}
	factory := ParseTarget(NewContractId(6, 3))
	if factory.Source() != NewContractId(4, 3) {
		t.Errorf("factory source = %v", factory.Source())
	}
	reserved := ParseTarget(NewContractId(3, 8))
	if reserved.ReservedId() != NewContractId(4, 8) {
		t.Errorf("reserved id = %v", reserved.ReservedId())
	}
}

func TestVarintBounds(t *testing.T) {
	max := MaxUint128()
	enc := EncodeVarint(nil, max)
	v, n, err := DecodeVarint(enc)
	if err != nil {
		t.Fatalf("decode max u128: %v", err)
	}
	if n != len(enc) || !v.Eq(max) {
		t.Fatalf("decode max u128 = %s (%d bytes)", v.Dec(), n)
	}

	over := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	if _, _, err := DecodeVarint(EncodeVarint(nil, over)); !errors.Is(err, ErrDecode) {
		t.Fatalf("decode 2^128 error = %v, want decode error", err)
	}
}

func TestContractIdText(t *testing.T) {
	id := NewContractId(2, 1)
	text, _ := id.MarshalText()
	if string(text) != "2:1" {
		t.Fatalf("MarshalText() = %s", text)
	}
	var back ContractId
	if err := back.UnmarshalText(text); err != nil || back != id {
		t.Fatalf("UnmarshalText() = %v, %v", back, err)
	}
	if err := back.UnmarshalText([]byte("nope")); !errors.Is(err, ErrDecode) {
		t.Fatalf("UnmarshalText(nope) error = %v", err)
	}
	parsed, err := ParseContractId(id.Bytes())
	if err != nil || parsed != id {
		t.Fatalf("ParseContractId() = %v, %v", parsed, err)
	}
}

func TestShortWordsAreDecodeErrors(t *testing.T) {
	if _, err := ReadUint128(make([]byte, Uint128Size-1)); !errors.Is(err, ErrDecode) {
		t.Fatalf("ReadUint128(short) error = %v", err)
	}
	_, err := ParseContractId(make([]byte, ContractIdSize-1))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("ParseContractId(short) error = %v", err)
	}
	if ErrorKind(err) != ErrDecode.Error() {
		t.Fatalf("ErrorKind() = %s", ErrorKind(err))
	}
}
