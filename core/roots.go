package core

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/forgeth/forgeth/core/types"
	"github.com/forgeth/forgeth/trie"
)

// Ordered-index root derivation for the header's transaction, receipt and
// withdrawal commitments. Entries are keyed by the RLP encoding of their
// index; since RLP index order is not byte order (rlp(1)=0x01 sorts before
// rlp(0)=0x80), indices are inserted in the byte-sorted sequence
// 1..0x7f, 0, 0x80.. so the StackTrie's ordering invariant holds.

type derivable interface {
	EncodeForRoot() ([]byte, error)
}

func deriveRoot[T derivable](list []T) (types.Hash, error) {
	st := trie.NewStackTrie()
	update := func(i int) error {
		key, err := rlp.EncodeToBytes(uint64(i))
		if err != nil {
			return err
		}
		value, err := list[i].EncodeForRoot()
		if err != nil {
			return err
		}
		return st.Update(key, value)
	}
	for i := 1; i < len(list) && i <= 0x7f; i++ {
		if err := update(i); err != nil {
			return types.Hash{}, err
		}
	}
	if len(list) > 0 {
		if err := update(0); err != nil {
			return types.Hash{}, err
		}
	}
	for i := 0x80; i < len(list); i++ {
		if err := update(i); err != nil {
			return types.Hash{}, err
		}
	}
	return st.Hash(), nil
}

// DeriveTxsRoot computes the transactions root of a block.
func DeriveTxsRoot(txs types.Transactions) (types.Hash, error) {
	return deriveRoot(txs)
}

// DeriveReceiptsRoot computes the receipts root of a block.
func DeriveReceiptsRoot(receipts types.Receipts) (types.Hash, error) {
	return deriveRoot(receipts)
}

// DeriveWithdrawalsRoot computes the withdrawals root of a block.
func DeriveWithdrawalsRoot(withdrawals types.Withdrawals) (types.Hash, error) {
	return deriveRoot(withdrawals)
}
