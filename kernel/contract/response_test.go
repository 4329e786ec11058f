package contract

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevertPayload(t *testing.T) {
	payload := RevertPayload(fmt.Errorf("boom"))
	assert.Equal(t, []byte{0x08, 0xc3, 0x79, 0xa0, 'b', 'o', 'o', 'm'}, payload)

	msg, ok := ParseRevert(payload)
	assert.True(t, ok)
	assert.Equal(t, "boom", msg)

	_, ok = ParseRevert([]byte("boom"))
	assert.False(t, ok)
}

func TestCallResponseWireForm(t *testing.T) {
	resp := &CallResponse{
		Alkanes: []RuneTransfer{
			NewRuneTransfer(NewContractId(2, 1), 500),
			NewRuneTransfer(NewContractId(2, 3), 7),
		},
		Storage: StorageMap{
			"/b": []byte{2},
			"/a": []byte{1, 1},
		},
		Data: []byte("hello"),
	}
	buf := resp.Encode()
	back, err := DecodeCallResponse(buf)
	require.NoError(t, err)
	assert.Equal(t, resp.Alkanes, back.Alkanes)
	assert.Equal(t, resp.Storage, back.Storage)
	assert.Equal(t, resp.Data, back.Data)
	assert.Equal(t, uint64(6), resp.Storage.ByteSize())

	// storage entries are written in key order
	assert.True(t, bytes.Index(buf, []byte("/a")) < bytes.Index(buf, []byte("/b")))
}

func TestDecodeCallResponseTruncated(t *testing.T) {
	buf := (&CallResponse{Alkanes: []RuneTransfer{NewRuneTransfer(NewContractId(2, 1), 1)}}).Encode()
	_, err := DecodeCallResponse(buf[:20])
	assert.ErrorIs(t, err, ErrDecode)
}

func TestRuntimeContextSerialize(t *testing.T) {
	frame := CallFrame{
		Myself:   NewContractId(2, 5),
		Caller:   NewContractId(0, 0),
		Vout:     3,
		Incoming: []RuneTransfer{NewRuneTransfer(NewContractId(2, 5), 9)},
		Inputs:   words(77),
	}
	ctx := NewRuntimeContext(frame)
	buf := ctx.Serialize()
	require.Len(t, buf, 32+32+16+16+48+16)
	myself, err := ParseContractId(buf)
	require.NoError(t, err)
	assert.Equal(t, frame.Myself, myself)
	transfers, _, err := DecodeTransfers(buf[80:])
	require.NoError(t, err)
	assert.Equal(t, frame.Incoming, transfers)
	assert.Equal(t, frame, ctx.Frame())
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "unauthorized mint", ErrorKind(fmt.Errorf("asset 2:1: %w", ErrUnauthorizedMint)))
	assert.Equal(t, "unknown", ErrorKind(fmt.Errorf("other")))
}
