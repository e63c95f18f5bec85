package state

import (
	"github.com/forgeth/forgeth/core/types"
	"github.com/forgeth/forgeth/metrics"
)

// Unit is the scope of a plain, single-chain cache.
type Unit = struct{}

// scoped keys pair a cache entry with its scope value.
type scopedAddr[S comparable] struct {
	scope S
	addr  types.Address
}

type scopedHash[S comparable] struct {
	scope S
	hash  types.Hash
}

type scopedNum[S comparable] struct {
	scope S
	num   uint64
}

// cachedAccount memoizes one account: its basic info (nil records definitive
// absence) and every storage slot observed so far.
type cachedAccount struct {
	info    *types.AccountInfo
	storage map[types.Hash]types.Hash
}

// Cache is a read-through memoizing state cache. It survives across build
// attempts on the same parent block: every provider read is recorded,
// including definitive absence, and entries are never evicted. The zero
// scope Unit gives a plain cache; a uint64 scope qualifies every key with a
// chain id.
//
// Cache is not safe for concurrent use; CachingDB and SharedDB govern
// access.
type Cache[S comparable] struct {
	accounts    map[scopedAddr[S]]*cachedAccount
	codes       map[scopedHash[S]][]byte
	blockHashes map[scopedNum[S]]types.Hash
}

// NewCache returns an empty cache.
func NewCache[S comparable]() *Cache[S] {
	return &Cache[S]{
		accounts:    make(map[scopedAddr[S]]*cachedAccount),
		codes:       make(map[scopedHash[S]][]byte),
		blockHashes: make(map[scopedNum[S]]types.Hash),
	}
}

// GetOrFetchAccount returns the memoized account info, consulting the
// provider on first access. Absence (nil info) is cached like any other
// result, so repeated reads of a non-existent account cost one provider
// call total.
func (c *Cache[S]) GetOrFetchAccount(scope S, p Reader, addr types.Address) (*types.AccountInfo, error) {
	key := scopedAddr[S]{scope, addr}
	if acct, ok := c.accounts[key]; ok {
		metrics.CacheAccountHits.Inc()
		return acct.info, nil
	}
	metrics.CacheAccountMisses.Inc()
	info, err := p.AccountInfo(addr)
	if err != nil {
		return nil, err
	}
	c.accounts[key] = &cachedAccount{info: info, storage: make(map[types.Hash]types.Hash)}
	return info, nil
}

// GetOrFetchStorage returns the memoized value of a storage slot. A slot of
// an account known to be absent reads as zero without touching the
// provider, and the zero result is cached. An unknown account is fetched
// first so its absence can short-circuit the slot read.
func (c *Cache[S]) GetOrFetchStorage(scope S, p Reader, addr types.Address, slot types.Hash) (types.Hash, error) {
	key := scopedAddr[S]{scope, addr}
	acct, ok := c.accounts[key]
	if !ok {
		info, err := p.AccountInfo(addr)
		if err != nil {
			return types.Hash{}, err
		}
		acct = &cachedAccount{info: info, storage: make(map[types.Hash]types.Hash)}
		c.accounts[key] = acct
	}
	if value, ok := acct.storage[slot]; ok {
		metrics.CacheStorageHits.Inc()
		return value, nil
	}
	metrics.CacheStorageMisses.Inc()
	if acct.info == nil {
		// Absent accounts have no storage; record the zero value so the
		// hit path serves subsequent reads.
		acct.storage[slot] = types.Hash{}
		return types.Hash{}, nil
	}
	value, err := p.StorageAt(addr, slot)
	if err != nil {
		return types.Hash{}, err
	}
	acct.storage[slot] = value
	return value, nil
}

// GetOrFetchCode returns memoized contract code by hash.
func (c *Cache[S]) GetOrFetchCode(scope S, p Reader, codeHash types.Hash) ([]byte, error) {
	key := scopedHash[S]{scope, codeHash}
	if code, ok := c.codes[key]; ok {
		metrics.CacheCodeHits.Inc()
		return code, nil
	}
	metrics.CacheCodeMisses.Inc()
	code, err := p.CodeByHash(codeHash)
	if err != nil {
		return nil, err
	}
	c.codes[key] = code
	return code, nil
}

// GetOrFetchBlockHash returns a memoized historical block hash.
func (c *Cache[S]) GetOrFetchBlockHash(scope S, p Reader, number uint64) (types.Hash, error) {
	key := scopedNum[S]{scope, number}
	if hash, ok := c.blockHashes[key]; ok {
		return hash, nil
	}
	hash, err := p.BlockHash(number)
	if err != nil {
		return types.Hash{}, err
	}
	c.blockHashes[key] = hash
	return hash, nil
}

// InsertAccount pre-seeds an account with known info and storage, bypassing
// the provider. Used to warm the cache with state the caller has already
// materialized.
func (c *Cache[S]) InsertAccount(scope S, addr types.Address, info *types.AccountInfo, storage map[types.Hash]types.Hash) {
	st := make(map[types.Hash]types.Hash, len(storage))
	for k, v := range storage {
		st[k] = v
	}
	c.accounts[scopedAddr[S]{scope, addr}] = &cachedAccount{info: info, storage: st}
}

// Qualify converts a plain cache into a scope-qualified one by tagging
// every entry with the given scope. The conversion preserves all entries.
//
// Account entries are shared, not copied: storage slots filled through one
// cache after the conversion are visible through the other. Callers treat
// the source cache as consumed.
func Qualify[S comparable](c *Cache[Unit], scope S) *Cache[S] {
	out := NewCache[S]()
	for k, v := range c.accounts {
		out.accounts[scopedAddr[S]{scope, k.addr}] = v
	}
	for k, v := range c.codes {
		out.codes[scopedHash[S]{scope, k.hash}] = v
	}
	for k, v := range c.blockHashes {
		out.blockHashes[scopedNum[S]{scope, k.num}] = v
	}
	return out
}

// ForChain extracts the entries tagged with the given scope into a plain
// cache. Qualify followed by ForChain with the same scope is lossless.
//
// Like Qualify, the extracted account entries are shared with the source
// cache, which callers treat as consumed.
func ForChain[S comparable](c *Cache[S], scope S) *Cache[Unit] {
	out := NewCache[Unit]()
	for k, v := range c.accounts {
		if k.scope == scope {
			out.accounts[scopedAddr[Unit]{Unit{}, k.addr}] = v
		}
	}
	for k, v := range c.codes {
		if k.scope == scope {
			out.codes[scopedHash[Unit]{Unit{}, k.hash}] = v
		}
	}
	for k, v := range c.blockHashes {
		if k.scope == scope {
			out.blockHashes[scopedNum[Unit]{Unit{}, k.num}] = v
		}
	}
	return out
}

// Len reports the number of cached accounts, mainly for tests and metrics.
func (c *Cache[S]) Len() int { return len(c.accounts) }
