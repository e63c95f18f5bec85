package state

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/forgeth/forgeth/core/types"
	"github.com/forgeth/forgeth/crypto"
)

// MemoryProvider is an in-memory Provider anchored to a synthetic parent
// state. It counts provider calls so tests can assert cache behavior, and
// can be armed to fail on demand.
type MemoryProvider struct {
	accounts    map[types.Address]*types.AccountInfo
	storage     map[types.Address]map[types.Hash]types.Hash
	codes       map[types.Hash][]byte
	blockHashes map[uint64]types.Hash

	// Call counters, readable by tests.
	AccountCalls   int
	StorageCalls   int
	CodeCalls      int
	BlockHashCalls int

	// Err, when set, is returned by every read.
	Err error
}

// NewMemoryProvider creates an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		accounts:    make(map[types.Address]*types.AccountInfo),
		storage:     make(map[types.Address]map[types.Hash]types.Hash),
		codes:       make(map[types.Hash][]byte),
		blockHashes: make(map[uint64]types.Hash),
	}
}

// SetAccount installs an account in the parent state.
func (p *MemoryProvider) SetAccount(addr types.Address, info *types.AccountInfo) {
	p.accounts[addr] = info
}

// SetStorage installs a storage slot in the parent state.
func (p *MemoryProvider) SetStorage(addr types.Address, slot, value types.Hash) {
	if p.storage[addr] == nil {
		p.storage[addr] = make(map[types.Hash]types.Hash)
	}
	p.storage[addr][slot] = value
}

// SetCode installs contract code, keyed by its keccak256 hash.
func (p *MemoryProvider) SetCode(code []byte) types.Hash {
	h := crypto.Keccak256Hash(code)
	p.codes[h] = code
	return h
}

// SetBlockHash installs a historical block hash.
func (p *MemoryProvider) SetBlockHash(number uint64, hash types.Hash) {
	p.blockHashes[number] = hash
}

// AccountInfo implements Reader.
func (p *MemoryProvider) AccountInfo(addr types.Address) (*types.AccountInfo, error) {
	p.AccountCalls++
	if p.Err != nil {
		return nil, p.Err
	}
	info, ok := p.accounts[addr]
	if !ok {
		return nil, nil
	}
	return info.Copy(), nil
}

// StorageAt implements Reader.
func (p *MemoryProvider) StorageAt(addr types.Address, slot types.Hash) (types.Hash, error) {
	p.StorageCalls++
	if p.Err != nil {
		return types.Hash{}, p.Err
	}
	return p.storage[addr][slot], nil
}

// CodeByHash implements Reader.
func (p *MemoryProvider) CodeByHash(codeHash types.Hash) ([]byte, error) {
	p.CodeCalls++
	if p.Err != nil {
		return nil, p.Err
	}
	code, ok := p.codes[codeHash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCodeNotFound, codeHash)
	}
	return code, nil
}

// BlockHash implements Reader.
func (p *MemoryProvider) BlockHash(number uint64) (types.Hash, error) {
	p.BlockHashCalls++
	if p.Err != nil {
		return types.Hash{}, p.Err
	}
	return p.blockHashes[number], nil
}

// StateRoot computes a deterministic commitment over the parent state with
// the bundle applied: a keccak over the sorted account set. It is not a
// Merkle Patricia root, but it is stable and collision-resistant enough for
// a fixture.
func (p *MemoryProvider) StateRoot(bundle *BundleState) (types.Hash, error) {
	if p.Err != nil {
		return types.Hash{}, p.Err
	}
	// Merge parent accounts with the bundle's final values.
	merged := make(map[types.Address]*types.AccountInfo, len(p.accounts)+len(bundle.Accounts))
	for addr, info := range p.accounts {
		merged[addr] = info
	}
	for addr, info := range bundle.Accounts {
		merged[addr] = info
	}

	var data []byte
	for _, addr := range sortedAddrs(merged) {
		info := merged[addr]
		if info == nil {
			continue
		}
		data = append(data, addr.Bytes()...)
		var nonce [8]byte
		for i := 0; i < 8; i++ {
			nonce[7-i] = byte(info.Nonce >> (8 * i))
		}
		data = append(data, nonce[:]...)
		if info.Balance != nil {
			b := info.Balance.Bytes32()
			data = append(data, b[:]...)
		}
		for _, slot := range sortedSlots(bundle.Storage[addr]) {
			data = append(data, slot.Bytes()...)
			v := bundle.Storage[addr][slot]
			data = append(data, v.Bytes()...)
		}
	}
	return crypto.Keccak256Hash(data), nil
}

func sortedAddrs(m map[types.Address]*types.AccountInfo) []types.Address {
	addrs := make([]types.Address, 0, len(m))
	for a := range m {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	return addrs
}

func sortedSlots(m map[types.Hash]types.Hash) []types.Hash {
	slots := make([]types.Hash, 0, len(m))
	for s := range m {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool {
		return bytes.Compare(slots[i][:], slots[j][:]) < 0
	})
	return slots
}
