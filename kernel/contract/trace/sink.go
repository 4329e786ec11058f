package trace

import (
	"encoding/binary"
	"encoding/json"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/alkanes/alkanescore/kernel/contract/sandbox"
	"github.com/alkanes/alkanescore/lib/storage/kvdb"
)

//go:generate mockgen -source sink.go -destination ../mock/sink_mock.go -package mock

// Sink persists the trace of an outpoint once its message is processed.
// Writes go to store, the overlay of the block being indexed, so a trace is
// committed together with the state its message produced.
type Sink interface {
	Persist(store sandbox.Store, outpoint wire.OutPoint, height uint64, t *Trace) error
}

// OutpointBytes is txid || vout (4 bytes little-endian).
func OutpointBytes(op wire.OutPoint) []byte {
	buf := make([]byte, chainhash.HashSize+4)
	copy(buf, op.Hash[:])
	binary.LittleEndian.PutUint32(buf[chainhash.HashSize:], op.Index)
	return buf
}

// ParseOutpoint is the inverse of OutpointBytes.
func ParseOutpoint(buf []byte) (wire.OutPoint, error) {
	if len(buf) != chainhash.HashSize+4 {
		return wire.OutPoint{}, errors.Errorf("outpoint needs %d bytes, got %d", chainhash.HashSize+4, len(buf))
	}
	var op wire.OutPoint
	copy(op.Hash[:], buf[:chainhash.HashSize])
	op.Index = binary.LittleEndian.Uint32(buf[chainhash.HashSize:])
	return op, nil
}

// KVSink keeps traces in a kvdb.Database:
// /trace/<hex(outpoint)> holds the snappy compressed JSON log and
// /trace/height/<height> lists the outpoints traced in a block.
// Reads see the committed database only.
type KVSink struct {
	store *sandbox.DBModel
}

var _ Sink = (*KVSink)(nil)

// NewKVSink reads traces from db.
func NewKVSink(db kvdb.Database) *KVSink {
	return &KVSink{store: sandbox.NewDBModel(db)}
}

func tracePointer(store sandbox.Store, op wire.OutPoint) sandbox.Pointer {
	return sandbox.NewPointer(store, "/trace/").Select(OutpointBytes(op))
}

func heightPointer(store sandbox.Store, height uint64) sandbox.Pointer {
	return sandbox.NewPointer(store, "/trace/height/").Keyword(strconv.FormatUint(height, 10))
}

// Persist seals t and stages it in store. An outpoint already listed at
// height is not listed again.
func (s *KVSink) Persist(store sandbox.Store, op wire.OutPoint, height uint64, t *Trace) error {
	if store == nil {
		return errors.New("persist trace: nil store")
	}
	t.Seal()
	raw, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(err, "encode trace")
	}
	ptr := tracePointer(store, op)
	prev, err := ptr.Get()
	if err != nil {
		return err
	}
	if err := ptr.Set(snappy.Encode(nil, raw)); err != nil {
		return errors.Wrapf(err, "store trace %s", op)
	}
	if prev != nil {
		return nil
	}
	return heightPointer(store, height).Append(OutpointBytes(op))
}

// Load returns the trace stored for op.
func (s *KVSink) Load(op wire.OutPoint) (*Trace, error) {
	compressed, err := tracePointer(s.store, op).Get()
	if err != nil {
		return nil, err
	}
	if compressed == nil {
		return nil, errors.Errorf("no trace for %s", op)
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.Wrapf(err, "decompress trace %s", op)
	}
	t := New()
	if err := json.Unmarshal(raw, t); err != nil {
		return nil, errors.Wrapf(err, "decode trace %s", op)
	}
	return t, nil
}

// OutpointsAt lists the outpoints traced at height in processing order.
func (s *KVSink) OutpointsAt(height uint64) ([]wire.OutPoint, error) {
	list, err := heightPointer(s.store, height).GetList()
	if err != nil {
		return nil, err
	}
	out := make([]wire.OutPoint, 0, len(list))
	for _, raw := range list {
		op, err := ParseOutpoint(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}
