package core

import (
	"github.com/forgeth/forgeth/core/types"
	"github.com/forgeth/forgeth/state"
)

// EIP-2935: serve historical block hashes from state. A system contract
// stores the last HistoryServeWindow block hashes; at the start of each
// block the parent's hash is written at slot parent.Number %
// HistoryServeWindow, letting BLOCKHASH reach past the 256-block limit.

// HistoryStorageAddress is the EIP-2935 history storage contract address.
var HistoryStorageAddress = types.HexToAddress("0x0F792be4B0c0cb4DAE440Ef133E90C0eCD48CCCC")

// HistoryServeWindow is the number of historical block hashes stored.
const HistoryServeWindow = 8192

// ProcessParentBlockHash stores the parent block hash in the history
// storage contract. Called at the start of block construction, before any
// transaction executes.
func ProcessParentBlockHash(statedb *state.BuildState, parentNumber uint64, parentHash types.Hash) {
	if !statedb.Exist(HistoryStorageAddress) {
		statedb.CreateAccount(HistoryStorageAddress)
	}
	slot := uint64ToHash(parentNumber % HistoryServeWindow)
	statedb.SetState(HistoryStorageAddress, slot, parentHash)
}

// HistoricalBlockHash reads a historical block hash back out of the system
// contract. Returns the zero hash when unavailable.
func HistoricalBlockHash(statedb *state.BuildState, blockNumber uint64) types.Hash {
	if !statedb.Exist(HistoryStorageAddress) {
		return types.Hash{}
	}
	return statedb.GetState(HistoryStorageAddress, uint64ToHash(blockNumber%HistoryServeWindow))
}
