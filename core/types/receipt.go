package types

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// Receipt status values.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt represents the result of executing a transaction.
type Receipt struct {
	// Consensus fields.
	Type              uint8
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log

	// Derived fields, filled in after assembly.
	TxHash            Hash
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	BlobGasUsed       uint64
	BlockHash         Hash
	BlockNumber       *big.Int
	TransactionIndex  uint
}

// NewReceipt creates a receipt with the given type, status and cumulative
// gas used.
func NewReceipt(txType uint8, status, cumulativeGasUsed uint64) *Receipt {
	return &Receipt{
		Type:              txType,
		Status:            status,
		CumulativeGasUsed: cumulativeGasUsed,
	}
}

// Succeeded reports whether the transaction executed successfully.
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccessful
}

// receiptRLP is the consensus payload of a receipt.
type receiptRLP struct {
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log
}

// EncodeForRoot returns the consensus encoding of the receipt as it enters
// the receipts trie: plain RLP for legacy receipts, type byte followed by
// the RLP payload for typed receipts.
func (r *Receipt) EncodeForRoot() ([]byte, error) {
	payload := &receiptRLP{
		Status:            r.Status,
		CumulativeGasUsed: r.CumulativeGasUsed,
		Bloom:             r.Bloom,
		Logs:              r.Logs,
	}
	if r.Type == LegacyTxType {
		return rlp.EncodeToBytes(payload)
	}
	var buf bytes.Buffer
	buf.WriteByte(r.Type)
	if err := rlp.Encode(&buf, payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Receipts is a list of receipts.
type Receipts []*Receipt

// DeriveReceiptFields populates the derived fields on a block's receipts:
// block context, per-transaction hashes and global log indices.
func DeriveReceiptFields(receipts Receipts, blockHash Hash, blockNumber uint64, txs Transactions) {
	var logIndex uint
	for i, receipt := range receipts {
		receipt.BlockHash = blockHash
		receipt.BlockNumber = new(big.Int).SetUint64(blockNumber)
		receipt.TransactionIndex = uint(i)
		if i < len(txs) {
			receipt.TxHash = txs[i].Hash()
		}
		for _, log := range receipt.Logs {
			log.BlockHash = blockHash
			log.BlockNumber = blockNumber
			log.TxIndex = uint(i)
			log.Index = logIndex
			if i < len(txs) {
				log.TxHash = txs[i].Hash()
			}
			logIndex++
		}
	}
}
