package contract

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// RevertMagic prefixes the payload of a reverted call.
var RevertMagic = []byte{0x08, 0xc3, 0x79, 0xa0}

// RevertPayload builds the response data of a failed call: magic followed by the message.
func RevertPayload(err error) []byte {
	msg := err.Error()
	buf := make([]byte, 0, len(RevertMagic)+len(msg))
	buf = append(buf, RevertMagic...)
	return append(buf, msg...)
}

// ParseRevert returns the message carried by a revert payload.
func ParseRevert(data []byte) (string, bool) {
	if !bytes.HasPrefix(data, RevertMagic) {
		return "", false
	}
	return string(data[len(RevertMagic):]), true
}

// StorageMap is the set of storage writes a contract hands back on return.
type StorageMap map[string][]byte

// Keys returns the keys in byte order.
func (m StorageMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ByteSize is the number of key and value bytes held by m.
func (m StorageMap) ByteSize() uint64 {
	var n uint64
	for k, v := range m {
		n += uint64(len(k) + len(v))
	}
	return n
}

// CallResponse is what an engine returns for a successful call.
type CallResponse struct {
	Alkanes []RuneTransfer `json:"alkanes"`
	Storage StorageMap     `json:"storage,omitempty"`
	Data    []byte         `json:"data"`
}

// EncodeStorageMap renders m as a u32 count followed by
// (u32 len, key, u32 len, value) pairs in key order.
func EncodeStorageMap(m StorageMap) []byte {
	buf := make([]byte, 4, 4+8*len(m)+int(m.ByteSize()))
	binary.LittleEndian.PutUint32(buf, uint32(len(m)))
	var word [4]byte
	for _, k := range m.Keys() {
		v := m[k]
		binary.LittleEndian.PutUint32(word[:], uint32(len(k)))
		buf = append(buf, word[:]...)
		buf = append(buf, k...)
		binary.LittleEndian.PutUint32(word[:], uint32(len(v)))
		buf = append(buf, word[:]...)
		buf = append(buf, v...)
	}
	return buf
}

// DecodeStorageMap parses the EncodeStorageMap form and returns the number
// of bytes read.
func DecodeStorageMap(buf []byte) (StorageMap, int, error) {
	rd := bytes.NewReader(buf)
	var count uint32
	if err := binary.Read(rd, binary.LittleEndian, &count); err != nil {
		return nil, 0, errors.Wrap(ErrDecode, "storage count")
	}
	m := make(StorageMap)
	for i := uint32(0); i < count; i++ {
		k, err := readSized(rd)
		if err != nil {
			return nil, 0, err
		}
		v, err := readSized(rd)
		if err != nil {
			return nil, 0, err
		}
		m[string(k)] = v
	}
	return m, len(buf) - rd.Len(), nil
}

// Encode renders the response in its extended wire form: transfers, the
// storage map, then data to the end.
func (r *CallResponse) Encode() []byte {
	buf := EncodeTransfers(r.Alkanes)
	buf = append(buf, EncodeStorageMap(r.Storage)...)
	return append(buf, r.Data...)
}

// DecodeCallResponse parses the extended wire form.
func DecodeCallResponse(buf []byte) (*CallResponse, error) {
	transfers, off, err := DecodeTransfers(buf)
	if err != nil {
		return nil, errors.Wrap(err, "response transfers")
	}
	storage, n, err := DecodeStorageMap(buf[off:])
	if err != nil {
		return nil, errors.Wrap(err, "response storage")
	}
	data := append([]byte(nil), buf[off+n:]...)
	return &CallResponse{Alkanes: transfers, Storage: storage, Data: data}, nil
}

func readSized(rd *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(rd, binary.LittleEndian, &n); err != nil {
		return nil, errors.Wrap(ErrDecode, "storage entry length")
	}
	if int64(n) > int64(rd.Len()) {
		return nil, errors.Wrapf(ErrDecode, "storage entry of %d bytes exceeds payload", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(rd, b); err != nil {
		return nil, errors.Wrap(ErrDecode, "storage entry")
	}
	return b, nil
}
