package state

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/forgeth/forgeth/core/types"
)

func newTestBuildState(t *testing.T) (*BuildState, *MemoryProvider) {
	t.Helper()
	provider := NewMemoryProvider()
	db := NewCachingDB(NewCache[Unit](), provider, Unit{})
	return NewBuildState(db), provider
}

func TestBuildStateRevertLeavesNoTrace(t *testing.T) {
	statedb, provider := newTestBuildState(t)
	provider.SetAccount(testAddr, newTestAccount(0, 100))

	snap := statedb.Snapshot()
	statedb.SubBalance(testAddr, uint256.NewInt(40))
	statedb.SetNonce(testAddr, 1)
	statedb.AddBalance(testAddr2, uint256.NewInt(40))
	statedb.SetState(testAddr2, testSlot, types.HexToHash("0xff"))
	statedb.RevertToSnapshot(snap)

	if got := statedb.GetBalance(testAddr); got.Uint64() != 100 {
		t.Fatalf("balance not reverted: %s", got)
	}
	if got := statedb.GetNonce(testAddr); got != 0 {
		t.Fatalf("nonce not reverted: %d", got)
	}
	bundle := statedb.Bundle()
	if len(bundle.Accounts) != 0 {
		t.Fatalf("reverted changes leaked into bundle: %d accounts", len(bundle.Accounts))
	}
}

func TestBuildStateBundleCarriesNetEffect(t *testing.T) {
	statedb, provider := newTestBuildState(t)
	provider.SetAccount(testAddr, newTestAccount(5, 100))

	statedb.SubBalance(testAddr, uint256.NewInt(30))
	statedb.SetNonce(testAddr, 6)
	statedb.AddBalance(testAddr2, uint256.NewInt(30))
	statedb.SetState(testAddr2, testSlot, types.HexToHash("0x0a"))
	statedb.Finalise()

	bundle := statedb.Bundle()
	sender := bundle.Accounts[testAddr]
	if sender == nil || sender.Nonce != 6 || sender.Balance.Uint64() != 70 {
		t.Fatalf("sender bundle wrong: %+v", sender)
	}
	recipient := bundle.Accounts[testAddr2]
	if recipient == nil || recipient.Balance.Uint64() != 30 {
		t.Fatalf("recipient bundle wrong: %+v", recipient)
	}
	if got := bundle.Storage[testAddr2][testSlot]; got != types.HexToHash("0x0a") {
		t.Fatalf("storage bundle wrong: %s", got)
	}
}

func TestBuildStateRevertAfterFinalise(t *testing.T) {
	statedb, provider := newTestBuildState(t)
	provider.SetAccount(testAddr, newTestAccount(0, 100))

	// First transaction commits.
	statedb.SubBalance(testAddr, uint256.NewInt(10))
	statedb.Finalise()

	// Second transaction fails and reverts to its own snapshot.
	snap := statedb.Snapshot()
	statedb.SubBalance(testAddr, uint256.NewInt(50))
	statedb.RevertToSnapshot(snap)

	if got := statedb.GetBalance(testAddr); got.Uint64() != 90 {
		t.Fatalf("committed change lost or failed change kept: %s", got)
	}
}

func TestBuildStateStickyProviderError(t *testing.T) {
	statedb, provider := newTestBuildState(t)
	provider.Err = ErrCodeNotFound

	_ = statedb.GetBalance(testAddr)
	if statedb.Error() == nil {
		t.Fatal("provider error not recorded")
	}
}

func TestBuildStateOverlayReads(t *testing.T) {
	statedb, provider := newTestBuildState(t)
	provider.SetAccount(testAddr, newTestAccount(0, 1))
	provider.SetStorage(testAddr, testSlot, types.HexToHash("0x01"))

	if got := statedb.GetState(testAddr, testSlot); got != types.HexToHash("0x01") {
		t.Fatalf("fallthrough read: %s", got)
	}
	statedb.SetState(testAddr, testSlot, types.HexToHash("0x02"))
	if got := statedb.GetState(testAddr, testSlot); got != types.HexToHash("0x02") {
		t.Fatalf("overlay read: %s", got)
	}
}
