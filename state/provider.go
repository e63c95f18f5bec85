// Package state provides the builder's view of chain state: a read-through
// memoizing cache over a parent-block state provider, exclusive and
// single-borrower database adapters over that cache, and a journaled
// build-time overlay that accumulates the changes of the block under
// construction.
package state

import (
	"errors"

	"github.com/forgeth/forgeth/core/types"
)

// Sentinel errors for provider failures surfaced through the cache.
var (
	ErrCodeNotFound = errors.New("state: code not found")
)

// Reader is the read-only account/storage surface the execution engine
// consumes. All reads are anchored to one parent block.
type Reader interface {
	// AccountInfo returns the basic info of an account, or nil if the
	// account does not exist.
	AccountInfo(addr types.Address) (*types.AccountInfo, error)

	// StorageAt returns the value of a storage slot. Absent slots and
	// absent accounts read as the zero hash.
	StorageAt(addr types.Address, slot types.Hash) (types.Hash, error)

	// CodeByHash returns the contract code with the given hash.
	CodeByHash(codeHash types.Hash) ([]byte, error)

	// BlockHash returns the hash of a historical block.
	BlockHash(number uint64) (types.Hash, error)
}

// Provider is the full capability the builder needs from the underlying
// chain state: the Reader surface plus state-root computation over a bundle
// of accumulated changes.
type Provider interface {
	Reader

	// StateRoot computes the post-state root that results from applying
	// the bundle on top of the provider's anchored state.
	StateRoot(bundle *BundleState) (types.Hash, error)
}

// BundleState is the net effect of a build attempt on the state: the final
// info of every touched account and every written storage slot. A nil
// account info records destruction/absence.
type BundleState struct {
	Accounts map[types.Address]*types.AccountInfo
	Storage  map[types.Address]map[types.Hash]types.Hash
}

// NewBundleState returns an empty bundle.
func NewBundleState() *BundleState {
	return &BundleState{
		Accounts: make(map[types.Address]*types.AccountInfo),
		Storage:  make(map[types.Address]map[types.Hash]types.Hash),
	}
}
