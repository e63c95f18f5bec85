package state

import (
	"github.com/holiman/uint256"

	"github.com/forgeth/forgeth/core/types"
)

// BuildState is the mutable overlay a build attempt executes against. Reads
// fall through to the underlying Reader (normally a CachingDB); writes are
// journaled so a failed transaction can be rolled back to its pre-state
// without leaving a trace in the final bundle.
//
// Read errors from the underlying provider are sticky: the first one is
// recorded and surfaced via Error, and the attempt must treat it as fatal.
type BuildState struct {
	reader Reader

	objects map[types.Address]*stateObject
	dirty   map[types.Address]struct{}
	journal []journalEntry
	dbErr   error
}

// stateObject is the in-overlay representation of one account.
type stateObject struct {
	exists  bool
	nonce   uint64
	balance *uint256.Int
	code    types.Hash
	storage map[types.Hash]types.Hash // written slots only
}

type journalEntry interface {
	revert(s *BuildState)
}

type (
	createEntry struct {
		addr types.Address
		prev *stateObject // nil if the account was previously untracked
	}
	balanceEntry struct {
		addr types.Address
		prev *uint256.Int
	}
	nonceEntry struct {
		addr types.Address
		prev uint64
	}
	storageEntry struct {
		addr     types.Address
		slot     types.Hash
		prev     types.Hash
		hadPrev  bool
	}
	dirtyEntry struct {
		addr types.Address
	}
)

func (e createEntry) revert(s *BuildState) {
	if e.prev == nil {
		delete(s.objects, e.addr)
	} else {
		s.objects[e.addr] = e.prev
	}
}
func (e balanceEntry) revert(s *BuildState) { s.objects[e.addr].balance = e.prev }
func (e nonceEntry) revert(s *BuildState)   { s.objects[e.addr].nonce = e.prev }
func (e storageEntry) revert(s *BuildState) {
	obj := s.objects[e.addr]
	if e.hadPrev {
		obj.storage[e.slot] = e.prev
	} else {
		delete(obj.storage, e.slot)
	}
}
func (e dirtyEntry) revert(s *BuildState) { delete(s.dirty, e.addr) }

// NewBuildState creates an empty overlay over the reader.
func NewBuildState(reader Reader) *BuildState {
	return &BuildState{
		reader:  reader,
		objects: make(map[types.Address]*stateObject),
		dirty:   make(map[types.Address]struct{}),
	}
}

// Error returns the first provider read error encountered, if any.
func (s *BuildState) Error() error { return s.dbErr }

func (s *BuildState) setError(err error) {
	if s.dbErr == nil {
		s.dbErr = err
	}
}

// getObject loads the account into the overlay, consulting the reader on
// first touch. Absent accounts are tracked with exists=false.
func (s *BuildState) getObject(addr types.Address) *stateObject {
	if obj, ok := s.objects[addr]; ok {
		return obj
	}
	obj := &stateObject{
		balance: new(uint256.Int),
		storage: make(map[types.Hash]types.Hash),
	}
	info, err := s.reader.AccountInfo(addr)
	if err != nil {
		s.setError(err)
	} else if info != nil {
		obj.exists = true
		obj.nonce = info.Nonce
		obj.code = info.CodeHash
		if info.Balance != nil {
			obj.balance.Set(info.Balance)
		}
	}
	s.objects[addr] = obj
	return obj
}

func (s *BuildState) markDirty(addr types.Address) {
	if _, ok := s.dirty[addr]; !ok {
		s.dirty[addr] = struct{}{}
		s.journal = append(s.journal, dirtyEntry{addr})
	}
}

// Exist reports whether the account exists.
func (s *BuildState) Exist(addr types.Address) bool {
	return s.getObject(addr).exists
}

// CreateAccount brings an account into existence with zero state.
func (s *BuildState) CreateAccount(addr types.Address) {
	prev := s.objects[addr]
	s.journal = append(s.journal, createEntry{addr: addr, prev: prev})
	s.objects[addr] = &stateObject{
		exists:  true,
		balance: new(uint256.Int),
		storage: make(map[types.Hash]types.Hash),
	}
	s.markDirty(addr)
}

// GetNonce returns the account nonce (zero for absent accounts).
func (s *BuildState) GetNonce(addr types.Address) uint64 {
	return s.getObject(addr).nonce
}

// SetNonce sets the account nonce, creating the account if needed.
func (s *BuildState) SetNonce(addr types.Address, nonce uint64) {
	obj := s.getObject(addr)
	s.journal = append(s.journal, nonceEntry{addr: addr, prev: obj.nonce})
	obj.nonce = nonce
	obj.exists = true
	s.markDirty(addr)
}

// GetBalance returns a copy of the account balance.
func (s *BuildState) GetBalance(addr types.Address) *uint256.Int {
	return new(uint256.Int).Set(s.getObject(addr).balance)
}

// AddBalance credits the account, creating it if needed.
func (s *BuildState) AddBalance(addr types.Address, amount *uint256.Int) {
	obj := s.getObject(addr)
	s.journal = append(s.journal, balanceEntry{addr: addr, prev: new(uint256.Int).Set(obj.balance)})
	obj.balance = new(uint256.Int).Add(obj.balance, amount)
	obj.exists = true
	s.markDirty(addr)
}

// SubBalance debits the account. Callers must have checked sufficiency.
func (s *BuildState) SubBalance(addr types.Address, amount *uint256.Int) {
	obj := s.getObject(addr)
	s.journal = append(s.journal, balanceEntry{addr: addr, prev: new(uint256.Int).Set(obj.balance)})
	obj.balance = new(uint256.Int).Sub(obj.balance, amount)
	s.markDirty(addr)
}

// GetCodeHash returns the account's code hash (zero for absent accounts).
func (s *BuildState) GetCodeHash(addr types.Address) types.Hash {
	return s.getObject(addr).code
}

// GetState returns a storage slot, preferring overlay writes over the
// underlying reader.
func (s *BuildState) GetState(addr types.Address, slot types.Hash) types.Hash {
	obj := s.getObject(addr)
	if value, ok := obj.storage[slot]; ok {
		return value
	}
	if !obj.exists {
		return types.Hash{}
	}
	value, err := s.reader.StorageAt(addr, slot)
	if err != nil {
		s.setError(err)
		return types.Hash{}
	}
	return value
}

// SetState writes a storage slot in the overlay.
func (s *BuildState) SetState(addr types.Address, slot, value types.Hash) {
	obj := s.getObject(addr)
	prev, hadPrev := obj.storage[slot]
	s.journal = append(s.journal, storageEntry{addr: addr, slot: slot, prev: prev, hadPrev: hadPrev})
	obj.storage[slot] = value
	obj.exists = true
	s.markDirty(addr)
}

// Snapshot returns a revision id for RevertToSnapshot.
func (s *BuildState) Snapshot() int {
	return len(s.journal)
}

// RevertToSnapshot undoes every change made since the snapshot was taken.
func (s *BuildState) RevertToSnapshot(rev int) {
	for i := len(s.journal) - 1; i >= rev; i-- {
		s.journal[i].revert(s)
	}
	s.journal = s.journal[:rev]
}

// Finalise commits the changes of the transaction just executed: the
// journal is discarded, so they can no longer be reverted.
func (s *BuildState) Finalise() {
	s.journal = s.journal[:0]
}

// Bundle collapses the overlay into the net state diff of the attempt.
func (s *BuildState) Bundle() *BundleState {
	bundle := NewBundleState()
	for addr := range s.dirty {
		obj := s.objects[addr]
		if !obj.exists {
			bundle.Accounts[addr] = nil
			continue
		}
		bundle.Accounts[addr] = &types.AccountInfo{
			Nonce:    obj.nonce,
			Balance:  new(uint256.Int).Set(obj.balance),
			CodeHash: obj.code,
		}
		if len(obj.storage) > 0 {
			slots := make(map[types.Hash]types.Hash, len(obj.storage))
			for k, v := range obj.storage {
				slots[k] = v
			}
			bundle.Storage[addr] = slots
		}
	}
	return bundle
}
