package bridge

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/alkanes/alkanescore/kernel/contract"
	"github.com/alkanes/alkanescore/kernel/contract/sandbox"
	"github.com/alkanes/alkanescore/kernel/contract/trace"
)

// BinaryPointer addresses the binary bound at id: /alkanes/<hex(id)>.
func BinaryPointer(store sandbox.Store, id contract.ContractId) sandbox.Pointer {
	return sandbox.NewPointer(store, "/alkanes/").SelectId(id)
}

// SequencePointer addresses the next sequential deployment number.
func SequencePointer(store sandbox.Store) sandbox.Pointer {
	return sandbox.NewPointer(store, "/alkanes/sequence")
}

// StoragePointer addresses key in the storage of id:
// /alkanes/<hex(id)>/storage/<hex(key)>.
func StoragePointer(store sandbox.Store, id contract.ContractId, key []byte) sandbox.Pointer {
	return sandbox.NewPointer(store, "/alkanes/").SelectId(id).Keyword("/storage/").Select(key)
}

// LoadBinary returns the binary bound at id, nil if there is none.
func LoadBinary(store sandbox.Store, id contract.ContractId) ([]byte, error) {
	return BinaryPointer(store, id).Get()
}

// CurrentSequence is the number the next sequential deployment gets.
func CurrentSequence(store sandbox.Store) (uint256.Int, error) {
	return SequencePointer(store).GetUint128()
}

func nextSequence(store sandbox.Store) (contract.ContractId, error) {
	ptr := SequencePointer(store)
	seq, err := ptr.GetUint128()
	if err != nil {
		return contract.ContractId{}, err
	}
	next := new(uint256.Int).AddUint64(&seq, 1)
	if err := ptr.SetUint128(next); err != nil {
		return contract.ContractId{}, err
	}
	return contract.SequenceId(seq), nil
}

// resolved is the outcome of resolving a cellpack target.
type resolved struct {
	myself contract.ContractId
	binary []byte
}

// resolveTarget maps a target to the id it runs as and the binary it runs.
// Deploy targets bind a binary in store and record CreateAlkane in tr.
// attached is the binary carried by the transaction, if any.
func resolveTarget(store sandbox.Store, target contract.Target, attached []byte, tr *trace.Trace) (*resolved, error) {
	var (
		id     contract.ContractId
		binary []byte
		err    error
	)
	switch target.Kind {
	case contract.TargetCall:
		binary, err = LoadBinary(store, target.Id)
		if err != nil {
			return nil, err
		}
		if len(binary) == 0 {
			return nil, errors.Wrapf(contract.ErrUnresolvedTarget, "no binary at %s", target.Id)
		}
		return &resolved{myself: target.Id, binary: binary}, nil

	case contract.TargetDeploy:
		if len(attached) == 0 {
			return nil, errors.Wrap(contract.ErrUnresolvedTarget, "deploy without an attached binary")
		}
		binary = attached
		if id, err = nextSequence(store); err != nil {
			return nil, err
		}

	case contract.TargetDeployReserved:
		if len(attached) == 0 {
			return nil, errors.Wrap(contract.ErrUnresolvedTarget, "reserved deploy without an attached binary")
		}
		id = target.ReservedId()
		existing, err := LoadBinary(store, id)
		if err != nil {
			return nil, err
		}
		if len(existing) != 0 {
			return nil, errors.Wrapf(contract.ErrUnresolvedTarget, "%s already deployed", id)
		}
		binary = attached

	case contract.TargetDeployTemplate, contract.TargetDeployFactory:
		src := target.Source()
		if binary, err = LoadBinary(store, src); err != nil {
			return nil, err
		}
		if len(binary) == 0 {
			return nil, errors.Wrapf(contract.ErrUnresolvedTarget, "%s source %s has no binary", target.Kind, src)
		}
		if id, err = nextSequence(store); err != nil {
			return nil, err
		}

	default:
		return nil, errors.Wrapf(contract.ErrUnresolvedTarget, "target kind %s", target.Kind)
	}

	if err := BinaryPointer(store, id).Set(binary); err != nil {
		return nil, err
	}
	created := id
	if err := tr.Clock(trace.Event{Kind: trace.CreateAlkane, Created: &created}); err != nil {
		return nil, err
	}
	return &resolved{myself: id, binary: binary}, nil
}
