package types

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Withdrawal is an EIP-4895 beacon chain withdrawal pushed into the
// execution layer.
type Withdrawal struct {
	Index     uint64
	Validator uint64
	Address   Address
	Amount    uint64 // in gwei
}

// Withdrawals is a list of withdrawals.
type Withdrawals []*Withdrawal

// AmountWei converts the gwei-denominated amount to wei.
func (w *Withdrawal) AmountWei() *uint256.Int {
	wei := new(uint256.Int).SetUint64(w.Amount)
	return wei.Mul(wei, uint256.NewInt(1e9))
}

// EncodeForRoot returns the RLP encoding of the withdrawal as it enters the
// withdrawals trie.
func (w *Withdrawal) EncodeForRoot() ([]byte, error) {
	return rlp.EncodeToBytes(w)
}
