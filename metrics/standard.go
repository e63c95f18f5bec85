package metrics

// Pre-defined metrics for the builder's hot paths.
var (
	// State read cache.
	CacheAccountHits   = DefaultRegistry.Counter("state/cache/account/hits")
	CacheAccountMisses = DefaultRegistry.Counter("state/cache/account/misses")
	CacheStorageHits   = DefaultRegistry.Counter("state/cache/storage/hits")
	CacheStorageMisses = DefaultRegistry.Counter("state/cache/storage/misses")
	CacheCodeHits      = DefaultRegistry.Counter("state/cache/code/hits")
	CacheCodeMisses    = DefaultRegistry.Counter("state/cache/code/misses")

	// Build outcomes.
	BuildsBetter    = DefaultRegistry.Counter("engine/builds/better")
	BuildsAborted   = DefaultRegistry.Counter("engine/builds/aborted")
	BuildsCancelled = DefaultRegistry.Counter("engine/builds/cancelled")
	BuildsFailed    = DefaultRegistry.Counter("engine/builds/failed")

	// Selector feedback.
	TxsIncluded    = DefaultRegistry.Counter("engine/txs/included")
	TxsInvalidated = DefaultRegistry.Counter("engine/txs/invalidated")
	TxsSkipped     = DefaultRegistry.Counter("engine/txs/skipped")
)
