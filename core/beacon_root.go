package core

import (
	"github.com/forgeth/forgeth/core/types"
	"github.com/forgeth/forgeth/state"
)

// EIP-4788: expose the parent beacon block root inside the EVM through a
// ring-buffer system contract. The builder writes the attribute's beacon
// root before executing any transaction of the block.

// BeaconRootAddress is the EIP-4788 system contract address.
var BeaconRootAddress = types.HexToAddress("0x000F3df6D732807Ef1319fB7B8bB8522d0Beac02")

// historyBufferLength is the size of the beacon root ring buffer.
const historyBufferLength = 8191

// ProcessBeaconBlockRoot writes the header's parent beacon root into the
// ring buffer:
//
//	timestamp_idx = time % HISTORY_BUFFER_LENGTH
//	root_idx      = timestamp_idx + HISTORY_BUFFER_LENGTH
//
// Nothing is written when the header carries no beacon root (pre-Cancun).
func ProcessBeaconBlockRoot(statedb *state.BuildState, header *types.Header) {
	if header.ParentBeaconRoot == nil {
		return
	}
	if !statedb.Exist(BeaconRootAddress) {
		statedb.CreateAccount(BeaconRootAddress)
	}

	timestampIdx := header.Time % historyBufferLength
	rootIdx := timestampIdx + historyBufferLength

	statedb.SetState(BeaconRootAddress, uint64ToHash(timestampIdx), uint64ToHash(header.Time))
	statedb.SetState(BeaconRootAddress, uint64ToHash(rootIdx), *header.ParentBeaconRoot)
}

// uint64ToHash left-pads a uint64 into a 32-byte storage key/value.
func uint64ToHash(v uint64) types.Hash {
	var h types.Hash
	for i := 0; i < 8; i++ {
		h[31-i] = byte(v >> (8 * i))
	}
	return h
}
