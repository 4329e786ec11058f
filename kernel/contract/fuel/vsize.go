package fuel

import (
	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"

	"github.com/alkanes/alkanescore/kernel/contract"
)

// MessageScanner extracts the protocol-1 message payloads carried by a
// transaction. Runestone and protostone decoding live behind it.
type MessageScanner interface {
	Messages(tx *wire.MsgTx) [][]byte
}

// VirtualSize returns the fuel-weight of tx: zero when it carries no cellpack,
// its vsize with the first input's witness removed when any cellpack deploys
// ([1, 0]) or reserves ([3, n]), and its full vsize otherwise.
func VirtualSize(tx *wire.MsgTx, scanner MessageScanner) uint64 {
	var cellpacks [][]uint64
	for _, msg := range scanner.Messages(tx) {
		words, err := contract.DecodeVarintList(msg)
		if err != nil || len(words) < 2 {
			continue
		}
		head := []uint64{wordOrMax(words[0].IsUint64(), words[0].Uint64()), wordOrMax(words[1].IsUint64(), words[1].Uint64())}
		cellpacks = append(cellpacks, head)
	}
	if len(cellpacks) == 0 {
		return 0
	}
	for _, head := range cellpacks {
		if (head[0] == 1 && head[1] == 0) || head[0] == 3 {
			stripped := tx.Copy()
			if len(stripped.TxIn) > 0 {
				stripped.TxIn[0].Witness = nil
			}
			return vsize(stripped)
		}
	}
	return vsize(tx)
}

// BlockVirtualSize sums VirtualSize over every transaction of block.
func BlockVirtualSize(block *wire.MsgBlock, scanner MessageScanner) uint64 {
	var total uint64
	for _, tx := range block.Transactions {
		total += VirtualSize(tx, scanner)
	}
	return total
}

func vsize(tx *wire.MsgTx) uint64 {
	weight := blockchain.GetTransactionWeight(btcutil.NewTx(tx))
	return uint64((weight + blockchain.WitnessScaleFactor - 1) / blockchain.WitnessScaleFactor)
}

func wordOrMax(ok bool, v uint64) uint64 {
	if !ok {
		return ^uint64(0)
	}
	return v
}

// InitializeBlock starts a block, sizing it with BlockVirtualSize.
func (t *Tank) InitializeBlock(block *wire.MsgBlock, scanner MessageScanner) {
	t.Initialize(BlockVirtualSize(block, scanner))
}
