// Package txpool provides the transaction source for the payload builder: a
// priority-ordered single-pass selector with invalidation feedback, and an
// in-memory pool implementation with a blob sidecar store.
package txpool

import (
	"errors"
	"math/big"

	"github.com/forgeth/forgeth/core/types"
)

var (
	// ErrNoSidecar is returned when a blob transaction's sidecar is not in
	// the store.
	ErrNoSidecar = errors.New("txpool: no sidecar for blob transaction")

	// ErrNoSender is returned when a transaction without a recovered
	// sender is added to the pool.
	ErrNoSender = errors.New("txpool: transaction has no sender")
)

// BestAttributes parameterizes a selection pass: the fee environment of the
// block being built.
type BestAttributes struct {
	// BaseFee is the block base fee; transactions whose fee cap cannot
	// cover it are not yielded.
	BaseFee *big.Int

	// BlobFee is the blob base fee; blob transactions whose blob fee cap
	// cannot cover it are not yielded. Nil when blobs are inactive.
	BlobFee *big.Int
}

// LazyTransaction is a pool transaction handed to the builder: the
// transaction plus selection metadata.
type LazyTransaction struct {
	Tx     *types.Transaction
	Sender types.Address

	// tip is the effective priority fee at the pass's base fee.
	tip *big.Int
	// arrival is the pool admission sequence number, the priority
	// tiebreak.
	arrival uint64
}

// EffectiveTip returns the transaction's effective priority fee per gas at
// the base fee of the selection pass.
func (lt *LazyTransaction) EffectiveTip() *big.Int { return lt.tip }

// Pool is the transaction source capability the builder needs.
type Pool interface {
	// BestTransactions starts a single-pass priority iteration over the
	// pool's executable transactions under the given fee environment.
	BestTransactions(attrs BestAttributes) *BestTransactions

	// BlobSidecars returns the sidecars for the given blob transaction
	// hashes, in order. Every hash must have a sidecar.
	BlobSidecars(hashes []types.Hash) ([]*types.BlobTxSidecar, error)
}
