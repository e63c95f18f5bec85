package state

import (
	"sync"

	"github.com/forgeth/forgeth/core/types"
)

// CachingDB binds a cache, a provider and a scope into a Reader whose every
// access is memoized. It assumes exclusive use: one build attempt owns the
// CachingDB for its whole duration.
type CachingDB[S comparable] struct {
	cache    *Cache[S]
	provider Provider
	scope    S
}

// NewCachingDB creates an exclusive caching view over the provider.
func NewCachingDB[S comparable](cache *Cache[S], provider Provider, scope S) *CachingDB[S] {
	return &CachingDB[S]{cache: cache, provider: provider, scope: scope}
}

// AccountInfo implements Reader.
func (db *CachingDB[S]) AccountInfo(addr types.Address) (*types.AccountInfo, error) {
	return db.cache.GetOrFetchAccount(db.scope, db.provider, addr)
}

// StorageAt implements Reader.
func (db *CachingDB[S]) StorageAt(addr types.Address, slot types.Hash) (types.Hash, error) {
	return db.cache.GetOrFetchStorage(db.scope, db.provider, addr, slot)
}

// CodeByHash implements Reader.
func (db *CachingDB[S]) CodeByHash(codeHash types.Hash) ([]byte, error) {
	return db.cache.GetOrFetchCode(db.scope, db.provider, codeHash)
}

// BlockHash implements Reader.
func (db *CachingDB[S]) BlockHash(number uint64) (types.Hash, error) {
	return db.cache.GetOrFetchBlockHash(db.scope, db.provider, number)
}

// StateRoot delegates bundle root computation to the provider.
func (db *CachingDB[S]) StateRoot(bundle *BundleState) (types.Hash, error) {
	return db.provider.StateRoot(bundle)
}

// Cache returns the underlying cache, for handing back to the orchestrator
// after a build attempt.
func (db *CachingDB[S]) Cache() *Cache[S] { return db.cache }

// SharedDB wraps a CachingDB for contexts where ownership is shared but
// only one party may read at a time. Borrow hands out the exclusive view;
// a second borrow before Release panics, surfacing the ownership bug at
// the call site instead of corrupting the cache.
type SharedDB[S comparable] struct {
	mu       sync.Mutex
	db       *CachingDB[S]
	borrowed bool
}

// NewSharedDB creates a single-borrower wrapper around db.
func NewSharedDB[S comparable](db *CachingDB[S]) *SharedDB[S] {
	return &SharedDB[S]{db: db}
}

// Borrow returns the exclusive view. The caller must call Release before
// anyone else can borrow.
func (s *SharedDB[S]) Borrow() *CachingDB[S] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.borrowed {
		panic("state: shared database already borrowed")
	}
	s.borrowed = true
	return s.db
}

// Release returns the borrow taken by Borrow.
func (s *SharedDB[S]) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.borrowed {
		panic("state: release without borrow")
	}
	s.borrowed = false
}
